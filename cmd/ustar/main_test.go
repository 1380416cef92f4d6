package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/jmgilman/go/fs/billy"
	"github.com/jmgilman/go/fs/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmgilman/go/ustar/internal/logging"
	"github.com/jmgilman/go/ustar/internal/testutil"
)

type harness struct {
	fs     core.FS
	env    map[string]string
	stdin  *bytes.Reader
	stdout bytes.Buffer
	stderr bytes.Buffer
}

func newHarness(t *testing.T, archive []byte) *harness {
	t.Helper()
	h := &harness{
		fs:    billy.NewMemory(),
		env:   map[string]string{},
		stdin: bytes.NewReader(nil),
	}
	if archive != nil {
		require.NoError(t, h.fs.WriteFile("/a.tar", archive, 0o644))
	}
	return h
}

func (h *harness) run(args ...string) int {
	a := &app{
		fs:     h.fs,
		stdin:  h.stdin,
		stdout: &h.stdout,
		stderr: &h.stderr,
		lookupEnv: func(key string) (string, bool) {
			v, ok := h.env[key]
			return v, ok
		},
	}
	return a.run(context.Background(), args)
}

func sample() *testutil.ArchiveBuilder {
	return testutil.NewArchiveBuilder().
		AddFile("a.txt", []byte("hello")).
		AddFile("b", []byte("bee")).
		AddFile("c", []byte("sea"))
}

// TestRun_List tests listing an archive with -t
func TestRun_List(t *testing.T) {
	h := newHarness(t, sample().AddZeroBlocks(2).Bytes())

	code := h.run("-f", "/a.tar", "-t")
	assert.Equal(t, exitSuccess, code)
	assert.Equal(t, "a.txt\nb\nc\n", h.stdout.String())
	assert.Empty(t, h.stderr.String())
}

// TestRun_ExtractVerbose tests verbose extraction of selected names
func TestRun_ExtractVerbose(t *testing.T) {
	h := newHarness(t, sample().AddZeroBlocks(2).Bytes())

	code := h.run("-f", "/a.tar", "-x", "-v", "-C", "/out", "b", "c")
	assert.Equal(t, exitSuccess, code)
	assert.Equal(t, "b\nc\n", h.stdout.String())

	data, err := h.fs.ReadFile("/out/c")
	require.NoError(t, err)
	assert.Equal(t, "sea", string(data))

	exists, err := h.fs.Exists("/out/a.txt")
	require.NoError(t, err)
	assert.False(t, exists)
}

// TestRun_ExtractQuiet tests that extraction prints nothing without -v
func TestRun_ExtractQuiet(t *testing.T) {
	h := newHarness(t, sample().AddZeroBlocks(2).Bytes())

	code := h.run("-f", "/a.tar", "-x", "-C", "/out")
	assert.Equal(t, exitSuccess, code)
	assert.Empty(t, h.stdout.String())
}

// TestRun_OutputDirFromEnvironment tests the output directory from the environment
func TestRun_OutputDirFromEnvironment(t *testing.T) {
	h := newHarness(t, sample().AddZeroBlocks(2).Bytes())
	h.env["USTAR_OUTPUT_DIR"] = "/from-env"

	code := h.run("-f", "/a.tar", "-x")
	assert.Equal(t, exitSuccess, code)

	data, err := h.fs.ReadFile("/from-env/a.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

// TestRun_ConfigFileAndFlagPrecedence tests that flags override the config file
func TestRun_ConfigFileAndFlagPrecedence(t *testing.T) {
	h := newHarness(t, sample().AddZeroBlocks(2).Bytes())
	require.NoError(t, h.fs.WriteFile("/ustar.yaml", []byte("output_dir: /from-yaml\nverbose: true\n"), 0o644))

	code := h.run("-config", "/ustar.yaml", "-f", "/a.tar", "-x", "-C", "/from-flag", "a.txt")
	assert.Equal(t, exitSuccess, code)
	assert.Equal(t, "a.txt\n", h.stdout.String())

	exists, err := h.fs.Exists("/from-flag/a.txt")
	require.NoError(t, err)
	assert.True(t, exists)
}

// TestRun_Stdin tests reading the archive from standard input with -f -
func TestRun_Stdin(t *testing.T) {
	h := newHarness(t, nil)
	h.stdin = bytes.NewReader(sample().Bytes())

	code := h.run("-f", "-", "-t")
	assert.Equal(t, exitSuccess, code)
	assert.Equal(t, "a.txt\nb\nc\n", h.stdout.String())
}

// TestRun_Diagnostics tests the tar-style diagnostics and exit status
func TestRun_Diagnostics(t *testing.T) {
	tests := []struct {
		name       string
		archive    []byte
		args       []string
		wantCode   int
		wantStdout string
		wantStderr string
	}{
		{
			name:       "lone zero block",
			archive:    testutil.NewArchiveBuilder().AddFile("a.txt", []byte("hello")).AddZeroBlocks(1).Bytes(),
			args:       []string{"-f", "/a.tar", "-t"},
			wantCode:   exitSuccess,
			wantStdout: "a.txt\n",
			wantStderr: "ustar: A lone zero block at 3\n",
		},
		{
			name:       "not found",
			archive:    sample().AddZeroBlocks(2).Bytes(),
			args:       []string{"-f", "/a.tar", "-t", "x", "b", "y"},
			wantCode:   exitFailure,
			wantStdout: "b\n",
			wantStderr: "ustar: x: Not found in archive\n" +
				"ustar: y: Not found in archive\n" +
				"ustar: Exiting with failure status due to previous errors\n",
		},
		{
			name:     "not a tar archive",
			archive:  bytes.Repeat([]byte("plain text "), 100),
			args:     []string{"-f", "/a.tar", "-t"},
			wantCode: exitFailure,
			wantStderr: "ustar: This does not look like a tar archive\n" +
				"ustar: Exiting with failure status due to previous errors\n",
		},
		{
			name:       "unexpected eof",
			archive:    sample().Bytes()[:1200],
			args:       []string{"-f", "/a.tar", "-t"},
			wantCode:   exitFailure,
			wantStdout: "a.txt\n",
			wantStderr: "ustar: Unexpected EOF in archive\n" +
				"ustar: Error is not recoverable: exiting now\n",
		},
		{
			name: "unsupported type",
			archive: testutil.NewArchiveBuilder().
				AddFile("a.txt", []byte("hello")).
				AddHeader("dir/", 0, testutil.WithTypeflag('5')).
				AddZeroBlocks(2).
				Bytes(),
			args:       []string{"-f", "/a.tar", "-t"},
			wantCode:   exitFailure,
			wantStdout: "a.txt\n",
			wantStderr: "ustar: Unsupported header type: 53\n" +
				"ustar: Error is not recoverable: exiting now\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, tt.archive)

			code := h.run(tt.args...)
			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, tt.wantStdout, h.stdout.String())
			assert.Equal(t, tt.wantStderr, h.stderr.String())
		})
	}
}

// TestRun_CannotOpen tests the diagnostic for an archive that cannot be opened
func TestRun_CannotOpen(t *testing.T) {
	h := newHarness(t, nil)

	code := h.run("-f", "/missing.tar", "-t")
	assert.Equal(t, exitFailure, code)
	assert.Contains(t, h.stderr.String(), "ustar: /missing.tar: Cannot open: ")
	assert.Contains(t, h.stderr.String(), "ustar: Error is not recoverable: exiting now\n")
	assert.Empty(t, h.stdout.String())
}

// TestRun_UsageErrors tests rejecting invalid command lines
func TestRun_UsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no mode", []string{"-f", "/a.tar"}, "You must specify one of the '-t' or '-x' options"},
		{"both modes", []string{"-f", "/a.tar", "-t", "-x"}, "You may not specify more than one"},
		{"no archive", []string{"-t"}, "'-f' option is required"},
		{"bad log level", []string{"-f", "/a.tar", "-t", "-log-level", "loud"}, "invalid -log-level"},
		{"unknown flag", []string{"-q"}, "flag provided but not defined: -q"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, sample().AddZeroBlocks(2).Bytes())

			code := h.run(tt.args...)
			assert.Equal(t, exitFailure, code)
			assert.Contains(t, h.stderr.String(), tt.want)
			assert.Empty(t, h.stdout.String())
		})
	}
}

// TestRun_Help tests that -h prints usage and succeeds
func TestRun_Help(t *testing.T) {
	h := newHarness(t, nil)

	code := h.run("-h")
	assert.Equal(t, exitSuccess, code)
	assert.Contains(t, h.stderr.String(), "Usage: ustar")
}

// TestRun_DebugLogging tests debug log records on stderr
func TestRun_DebugLogging(t *testing.T) {
	h := newHarness(t, sample().AddZeroBlocks(2).Bytes())

	code := h.run("-f", "/a.tar", "-t", "-log-level", "debug")
	assert.Equal(t, exitSuccess, code)
	assert.Contains(t, h.stderr.String(), "msg=\"archive entry\"")
	assert.Contains(t, h.stderr.String(), "name=a.txt")
	assert.Contains(t, h.stderr.String(), "source=")
}

// TestRun_InfoLoggingOmitsSource tests that info logging skips entry records and source locations
func TestRun_InfoLoggingOmitsSource(t *testing.T) {
	h := newHarness(t, sample().AddZeroBlocks(2).Bytes())

	code := h.run("-f", "/a.tar", "-t", "-log-level", "info")
	assert.Equal(t, exitSuccess, code)
	assert.Contains(t, h.stderr.String(), "msg=\"traversal complete\"")
	assert.NotContains(t, h.stderr.String(), "msg=\"archive entry\"")
	assert.NotContains(t, h.stderr.String(), "source=")
}

// TestLogConfig tests the logger configuration for each level
func TestLogConfig(t *testing.T) {
	a := &app{stderr: &bytes.Buffer{}}

	debug := a.logConfig(logging.LogLevelDebug)
	assert.Equal(t, logging.LogLevelDebug, debug.Level)
	assert.True(t, debug.EnableCallerInfo)
	assert.Same(t, a.stderr, debug.Output)

	warn := a.logConfig(logging.LogLevelWarn)
	assert.False(t, warn.EnableCallerInfo)
}

// TestCapitalize tests capitalizing the first rune of a reason
func TestCapitalize(t *testing.T) {
	assert.Equal(t, "No such file or directory", capitalize("no such file or directory"))
	assert.Equal(t, "", capitalize(""))
}
