package ustar

import (
	"io"
	"log/slog"
	"os"
	"slices"

	platformerrors "github.com/jmgilman/go/errors"
	"github.com/jmgilman/go/fs/billy"
	"github.com/jmgilman/go/fs/core"
)

// StdinArchive is the archive path that reads the archive from standard input.
const StdinArchive = "-"

// Mode selects what a traversal does with selected entries.
type Mode int

const (
	// ModeUnset is the zero value and is rejected by NewConfig.
	ModeUnset Mode = iota
	// ModeList prints the name of every selected entry.
	ModeList
	// ModeExtract writes every selected entry to the sink.
	ModeExtract
)

// String returns a string representation of the Mode.
func (m Mode) String() string {
	switch m {
	case ModeList:
		return "list"
	case ModeExtract:
		return "extract"
	default:
		return "unset"
	}
}

// Config describes one pass over an archive. It is immutable once built by
// NewConfig; accessors return copies.
type Config struct {
	archive   string
	mode      Mode
	verbose   bool
	names     []string
	outputDir string
}

// ConfigOption is a functional option for building a Config.
type ConfigOption func(*Config)

// WithVerbose prints entry names while extracting.
// Listing always prints names.
func WithVerbose(verbose bool) ConfigOption {
	return func(c *Config) {
		c.verbose = verbose
	}
}

// WithNames restricts the pass to entries with these exact names.
// Each name matches at most one entry; repeat a name to match repeated entries.
func WithNames(names ...string) ConfigOption {
	return func(c *Config) {
		c.names = append(c.names, names...)
	}
}

// WithOutputDir sets the extraction directory. Defaults to the current directory.
func WithOutputDir(dir string) ConfigOption {
	return func(c *Config) {
		c.outputDir = dir
	}
}

// NewConfig builds a Config for archive in the given mode.
// It returns a CodeUsage error if archive is empty or mode is not
// ModeList or ModeExtract.
func NewConfig(archive string, mode Mode, opts ...ConfigOption) (Config, error) {
	cfg := Config{archive: archive, mode: mode}
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.archive == "" {
		return Config{}, platformerrors.New(CodeUsage, "archive path is required")
	}
	if cfg.mode != ModeList && cfg.mode != ModeExtract {
		return Config{}, platformerrors.New(CodeUsage, "one of list or extract mode is required")
	}
	return cfg, nil
}

// Archive returns the archive path.
func (c Config) Archive() string { return c.archive }

// Mode returns the traversal mode.
func (c Config) Mode() Mode { return c.mode }

// Verbose reports whether names are printed during extraction.
func (c Config) Verbose() bool { return c.verbose }

// Names returns a copy of the requested names.
func (c Config) Names() []string { return slices.Clone(c.names) }

// OutputDir returns the extraction directory.
func (c Config) OutputDir() string { return c.outputDir }

// printNames reports whether selected entry names are written to stdout.
func (c Config) printNames() bool {
	return c.mode == ModeList || c.verbose
}

// Options contains the collaborators used by a traversal.
type Options struct {
	// FS opens the archive and, unless Sink is set, receives extracted files.
	// If nil, a local OS-backed filesystem is used.
	FS core.FS

	// Sink receives extracted entries. If nil, an FSSink over FS rooted at
	// the configured output directory is used.
	Sink Sink

	// Stdout receives entry names. Defaults to os.Stdout.
	Stdout io.Writer

	// Stdin is read when the archive path is StdinArchive. Defaults to os.Stdin.
	Stdin io.Reader

	// Logger receives structured trace and warning records.
	// If nil, nothing is logged.
	Logger *slog.Logger
}

// Option is a functional option for configuring a traversal.
type Option func(*Options)

// WithFS sets the filesystem used to open the archive and extract entries.
func WithFS(fsys core.FS) Option {
	return func(o *Options) {
		o.FS = fsys
	}
}

// WithSink sets a custom extraction sink.
func WithSink(sink Sink) Option {
	return func(o *Options) {
		o.Sink = sink
	}
}

// WithStdout sets the writer that receives entry names.
func WithStdout(w io.Writer) Option {
	return func(o *Options) {
		o.Stdout = w
	}
}

// WithStdin sets the reader used for StdinArchive.
func WithStdin(r io.Reader) Option {
	return func(o *Options) {
		o.Stdin = r
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// newOptions applies opts over the defaults.
func newOptions(opts []Option) *Options {
	o := &Options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.FS == nil {
		o.FS = billy.NewLocal()
	}
	if o.Stdout == nil {
		o.Stdout = os.Stdout
	}
	if o.Stdin == nil {
		o.Stdin = os.Stdin
	}
	return o
}
