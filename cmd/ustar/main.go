// Command ustar lists and extracts regular files from USTAR archives.
//
// Usage:
//
//	ustar -f ARCHIVE (-t|-x) [-v] [-C DIR] [-config FILE] [-log-level LEVEL] [NAME...]
//
// Diagnostics are written to stderr in the style of tar. The exit status is 0
// on success and 2 on any failure.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"unicode"
	"unicode/utf8"

	platformerrors "github.com/jmgilman/go/errors"
	"github.com/jmgilman/go/fs/billy"
	"github.com/jmgilman/go/fs/core"

	"github.com/jmgilman/go/ustar"
	"github.com/jmgilman/go/ustar/internal/config"
	"github.com/jmgilman/go/ustar/internal/logging"
)

const (
	progName = "ustar"

	exitSuccess = 0
	exitFailure = 2

	msgNotRecoverable = "Error is not recoverable: exiting now"
	msgPreviousErrors = "Exiting with failure status due to previous errors"
)

// app holds the process collaborators so tests can substitute them.
type app struct {
	fs        core.FS
	stdin     io.Reader
	stdout    io.Writer
	stderr    io.Writer
	lookupEnv func(string) (string, bool)
}

// flags are the parsed command-line options.
type flags struct {
	archive    string
	list       bool
	extract    bool
	verbose    bool
	dir        string
	configPath string
	logLevel   string
	names      []string
	set        map[string]bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	a := &app{
		fs:        billy.NewLocal(),
		stdin:     os.Stdin,
		stdout:    os.Stdout,
		stderr:    os.Stderr,
		lookupEnv: os.LookupEnv,
	}
	code := a.run(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}

// run executes one invocation and returns the process exit status.
func (a *app) run(ctx context.Context, args []string) int {
	f, err := a.parseFlags(args)
	if errors.Is(err, flag.ErrHelp) {
		return exitSuccess
	}
	if err != nil {
		return exitFailure
	}

	cfg, logLevel, err := a.buildConfig(f)
	if err != nil {
		a.diag("%s", describe(err))
		a.diag("Try '%s -h' for more information.", progName)
		return exitFailure
	}

	logger := logging.NewLogger(a.logConfig(logLevel))

	out := bufio.NewWriter(a.stdout)
	result, err := ustar.Run(ctx, cfg,
		ustar.WithFS(a.fs),
		ustar.WithStdin(a.stdin),
		ustar.WithStdout(out),
		ustar.WithLogger(logger.Slog()),
	)
	if ferr := out.Flush(); ferr != nil && err == nil {
		err = platformerrors.Wrap(ferr, ustar.CodeSinkIO, "failed to write listing")
	}

	return a.report(cfg, result, err)
}

// logConfig returns the logger configuration for level. Debug logging also
// records the source location of each record.
func (a *app) logConfig(level logging.LogLevel) logging.LogConfig {
	lc := logging.DefaultLogConfig()
	lc.Level = level
	lc.Output = a.stderr
	lc.EnableCallerInfo = level == logging.LogLevelDebug
	return lc
}

// parseFlags parses args into flags. Parse errors are printed by the flag set.
func (a *app) parseFlags(args []string) (*flags, error) {
	f := &flags{set: make(map[string]bool)}

	fset := flag.NewFlagSet(progName, flag.ContinueOnError)
	fset.SetOutput(a.stderr)
	fset.StringVar(&f.archive, "f", "", "archive to read, or - for standard input")
	fset.BoolVar(&f.list, "t", false, "list the contents of the archive")
	fset.BoolVar(&f.extract, "x", false, "extract files from the archive")
	fset.BoolVar(&f.verbose, "v", false, "print file names while extracting")
	fset.StringVar(&f.dir, "C", "", "extract into `DIR`")
	fset.StringVar(&f.configPath, "config", "", "load defaults from YAML `FILE`")
	fset.StringVar(&f.logLevel, "log-level", "", "log `LEVEL` (debug, info, warn, error)")
	fset.Usage = func() {
		fmt.Fprintf(fset.Output(), "Usage: %s -f ARCHIVE (-t|-x) [options] [NAME...]\n", progName)
		fset.PrintDefaults()
	}

	if err := fset.Parse(args); err != nil {
		return nil, err
	}
	fset.Visit(func(fl *flag.Flag) {
		f.set[fl.Name] = true
	})
	f.names = fset.Args()
	return f, nil
}

// buildConfig merges file and environment defaults with flags.
func (a *app) buildConfig(f *flags) (ustar.Config, logging.LogLevel, error) {
	defaults, err := config.Load(a.fs, config.LoadOptions{
		Path:      f.configPath,
		LookupEnv: a.lookupEnv,
	})
	if err != nil {
		return ustar.Config{}, 0, err
	}

	if f.set["C"] {
		defaults.OutputDir = f.dir
	}
	if f.set["v"] {
		defaults.Verbose = f.verbose
	}
	if f.set["log-level"] {
		defaults.LogLevel = f.logLevel
	}

	level, err := logging.ParseLogLevel(defaults.LogLevel)
	if err != nil {
		return ustar.Config{}, 0, platformerrors.Wrap(err, ustar.CodeUsage, "invalid -log-level")
	}

	var mode ustar.Mode
	switch {
	case f.list && f.extract:
		return ustar.Config{}, 0, platformerrors.New(ustar.CodeUsage,
			"You may not specify more than one of '-t' and '-x'")
	case f.list:
		mode = ustar.ModeList
	case f.extract:
		mode = ustar.ModeExtract
	default:
		return ustar.Config{}, 0, platformerrors.New(ustar.CodeUsage,
			"You must specify one of the '-t' or '-x' options")
	}
	if f.archive == "" {
		return ustar.Config{}, 0, platformerrors.New(ustar.CodeUsage,
			"Refusing to guess the archive: the '-f' option is required")
	}

	cfg, err := ustar.NewConfig(f.archive, mode,
		ustar.WithVerbose(defaults.Verbose),
		ustar.WithNames(f.names...),
		ustar.WithOutputDir(defaults.OutputDir),
	)
	if err != nil {
		return ustar.Config{}, 0, err
	}
	return cfg, level, nil
}

// report prints warnings and the diagnostic for err, and returns the exit status.
func (a *app) report(cfg ustar.Config, result *ustar.Result, err error) int {
	if result != nil {
		for _, w := range result.Warnings {
			a.diag("%s", w.Message)
		}
	}
	if err == nil {
		return exitSuccess
	}

	var (
		typeErr  *ustar.UnsupportedTypeError
		notFound *ustar.NotFoundError
	)
	switch code := ustar.CodeOf(err); {
	case code == ustar.CodeArchiveOpen:
		a.diag("%s: Cannot open: %s", cfg.Archive(), openReason(err))
		a.diag(msgNotRecoverable)
	case code == ustar.CodeInvalidArchive:
		a.diag("This does not look like a tar archive")
		a.diag(msgPreviousErrors)
	case code == ustar.CodeUnexpectedEOF:
		a.diag("Unexpected EOF in archive")
		a.diag(msgNotRecoverable)
	case code == ustar.CodeUnsupportedType && errors.As(err, &typeErr):
		a.diag("Unsupported header type: %d", typeErr.Typeflag)
		a.diag(msgNotRecoverable)
	case code == platformerrors.CodeNotFound && errors.As(err, &notFound):
		for _, name := range notFound.Names {
			a.diag("%s: Not found in archive", name)
		}
		a.diag(msgPreviousErrors)
	default:
		a.diag("%s", describe(err))
		a.diag(msgNotRecoverable)
	}
	return exitFailure
}

// diag writes one tar-style diagnostic line to stderr.
func (a *app) diag(format string, args ...any) {
	fmt.Fprintf(a.stderr, progName+": "+format+"\n", args...)
}

// openReason extracts the operating system's reason from an open failure.
func openReason(err error) string {
	reason := err.Error()
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		reason = pathErr.Err.Error()
	} else if errors.Is(err, fs.ErrNotExist) {
		reason = fs.ErrNotExist.Error()
	}
	return capitalize(reason)
}

// describe renders err as its messages joined by colons, without error codes.
func describe(err error) string {
	perr, ok := err.(platformerrors.PlatformError)
	if !ok {
		return err.Error()
	}
	if cause := perr.Unwrap(); cause != nil {
		return perr.Message() + ": " + describe(cause)
	}
	return perr.Message()
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
