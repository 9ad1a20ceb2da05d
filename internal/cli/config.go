package cli

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	qerrors "github.com/matzehuels/depquery/pkg/errors"
	"github.com/matzehuels/depquery/pkg/pipeline"
	"github.com/matzehuels/depquery/pkg/tree"
)

// configFile is the name of the config file inside the config directory.
const configFile = "config.toml"

// Config holds user defaults loaded from TOML:
//
//	selector = ":root > *"
//	format = "table"
//	workers = 16
//	keep_links = false
//	global_prefix = "/usr/local"
//
//	[serve]
//	addr = "127.0.0.1:8080"
type Config struct {
	Selector     string      `toml:"selector"`
	Format       string      `toml:"format"`
	Workers      int         `toml:"workers"`
	KeepLinks    bool        `toml:"keep_links"`
	GlobalPrefix string      `toml:"global_prefix"`
	Serve        ServeConfig `toml:"serve"`
}

// ServeConfig holds defaults for the serve command.
type ServeConfig struct {
	Addr string `toml:"addr"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		Selector: pipeline.DefaultSelector,
		Format:   pipeline.DefaultFormat,
		Workers:  tree.DefaultWorkers,
		Serve:    ServeConfig{Addr: "127.0.0.1:8080"},
	}
}

// LoadConfig reads the config file at path, or at the default location when
// path is empty. A missing default file yields the defaults; a missing
// explicit file is an error.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	explicit := path != ""
	if !explicit {
		dir, err := configDir()
		if err != nil {
			return cfg, nil
		}
		path = filepath.Join(dir, configFile)
	}

	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			if !explicit {
				return DefaultConfig(), nil
			}
			return cfg, qerrors.Wrap(qerrors.ErrCodeFileNotFound, err, "config file %s", path)
		}
		return cfg, qerrors.Wrap(qerrors.ErrCodeInvalidConfig, err, "parse %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return cfg, qerrors.New(qerrors.ErrCodeInvalidConfig, "unknown keys in %s: %s", path, strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return cfg, qerrors.Wrap(qerrors.ErrCodeInvalidConfig, err, "%s", path)
	}
	return cfg, nil
}

// Validate checks value ranges. Selector syntax is checked when a query runs.
func (c Config) Validate() error {
	if err := pipeline.ValidateFormat(c.Format); err != nil {
		return err
	}
	if c.Workers < 0 {
		return qerrors.New(qerrors.ErrCodeInvalidInput, "workers must not be negative: %d", c.Workers)
	}
	return qerrors.ValidateSelector(c.Selector)
}

// =============================================================================
// Paths
// =============================================================================

// configDir returns the config directory using XDG standard (~/.config/depquery/).
func configDir() (string, error) {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName), nil
}
