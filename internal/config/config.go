// Package config loads defaults for the ustar command from a YAML file,
// an optional .env file and the process environment.
package config

import (
	"os"
	"path/filepath"
	"strconv"

	platformerrors "github.com/jmgilman/go/errors"
	"github.com/jmgilman/go/fs/core"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/jmgilman/go/ustar/internal/logging"
)

// Environment variables read by Load.
const (
	EnvConfig    = "USTAR_CONFIG"
	EnvLogLevel  = "USTAR_LOG_LEVEL"
	EnvOutputDir = "USTAR_OUTPUT_DIR"
	EnvVerbose   = "USTAR_VERBOSE"
)

// DefaultDotEnv is the .env file consulted when LoadOptions.DotEnv is empty.
const DefaultDotEnv = ".env"

// Config holds command defaults. Command-line flags override every field.
type Config struct {
	LogLevel  string `yaml:"log_level"`
	OutputDir string `yaml:"output_dir"`
	Verbose   bool   `yaml:"verbose"`
}

// Default returns the built-in defaults.
func Default() Config {
	return Config{LogLevel: "error"}
}

// LoadOptions controls where Load looks for configuration.
type LoadOptions struct {
	// Path is the YAML config file. If empty, USTAR_CONFIG is consulted;
	// if that is also empty no file is read.
	Path string

	// DotEnv is the .env file. A missing file is ignored. Defaults to DefaultDotEnv.
	DotEnv string

	// LookupEnv reads the process environment. Defaults to os.LookupEnv.
	LookupEnv func(string) (string, bool)
}

// Load builds a Config from defaults, then the YAML file, then environment
// variables. Variables in the process environment win over the .env file.
func Load(fsys core.FS, opts LoadOptions) (Config, error) {
	if opts.LookupEnv == nil {
		opts.LookupEnv = os.LookupEnv
	}
	if opts.DotEnv == "" {
		opts.DotEnv = DefaultDotEnv
	}

	dotenv, err := readDotEnv(fsys, opts.DotEnv)
	if err != nil {
		return Config{}, err
	}
	lookup := func(key string) (string, bool) {
		if v, ok := opts.LookupEnv(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}

	cfg := Default()

	path := opts.Path
	if path == "" {
		path, _ = lookup(EnvConfig)
	}
	if path != "" {
		if err := readYAML(fsys, path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		cfg.LogLevel = v
	}
	if v, ok := lookup(EnvOutputDir); ok && v != "" {
		cfg.OutputDir = v
	}
	if v, ok := lookup(EnvVerbose); ok && v != "" {
		verbose, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, platformerrors.WrapWithContext(err, platformerrors.CodeInvalidConfig,
				"invalid boolean", map[string]interface{}{
					"variable": EnvVerbose,
				})
		}
		cfg.Verbose = verbose
	}

	if _, err := logging.ParseLogLevel(cfg.LogLevel); err != nil {
		return Config{}, platformerrors.Wrap(err, platformerrors.CodeInvalidConfig, "invalid log level")
	}
	return cfg, nil
}

// readYAML decodes the file at path over cfg.
func readYAML(fsys core.FS, path string, cfg *Config) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return platformerrors.Wrap(err, platformerrors.CodeInvalidConfig, "invalid config path")
	}

	data, err := fsys.ReadFile(abs)
	if err != nil {
		return platformerrors.WrapWithContext(err, platformerrors.CodeInvalidConfig,
			"failed to read config file", map[string]interface{}{
				"path": path,
			})
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return platformerrors.WrapWithContext(err, platformerrors.CodeInvalidConfig,
			"failed to parse config file", map[string]interface{}{
				"path": path,
			})
	}
	return nil
}

// readDotEnv parses the .env file at path. A missing file yields no variables.
func readDotEnv(fsys core.FS, path string) (map[string]string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, platformerrors.Wrap(err, platformerrors.CodeInvalidConfig, "invalid .env path")
	}

	exists, err := fsys.Exists(abs)
	if err != nil {
		return nil, platformerrors.Wrap(err, platformerrors.CodeInvalidConfig, "failed to stat .env file")
	}
	if !exists {
		return nil, nil
	}

	data, err := fsys.ReadFile(abs)
	if err != nil {
		return nil, platformerrors.Wrap(err, platformerrors.CodeInvalidConfig, "failed to read .env file")
	}

	vars, err := godotenv.Unmarshal(string(data))
	if err != nil {
		return nil, platformerrors.Wrap(err, platformerrors.CodeInvalidConfig, "failed to parse .env file")
	}
	return vars, nil
}
