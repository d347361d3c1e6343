// Package config resolves hearth's settings. Sources, lowest to highest
// precedence: built-in defaults, the config file (TOML or YAML with ${VAR}
// expansion), a .env file, HEARTH_* environment variables, then command-line
// overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/julianstephens/hearth/internal/constants"
	"github.com/julianstephens/hearth/internal/utils"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "HEARTH_"

type Config struct {
	DataDir       string `toml:"data_dir" yaml:"data_dir" env:"DATA_DIR"`
	Driver        string `toml:"driver" yaml:"driver" env:"DRIVER"`
	DatabasePath  string `toml:"database_path" yaml:"database_path" env:"DATABASE_PATH"`
	FallbackPath  string `toml:"fallback_path" yaml:"fallback_path" env:"FALLBACK_PATH"`
	Timezone      string `toml:"timezone" yaml:"timezone" env:"TIMEZONE"`
	Debug         bool   `toml:"debug" yaml:"debug" env:"DEBUG"`
	BackupOnErase bool   `toml:"backup_on_erase" yaml:"backup_on_erase" env:"BACKUP_ON_ERASE"`

	// Source is the config file that was read, or "" when none was.
	Source string `toml:"-" yaml:"-" env:"-"`
}

// Options controls Load.
type Options struct {
	// ConfigPath names the config file. A named file must exist; when empty,
	// config.toml, config.yaml and config.yml in the default directory are
	// tried in turn.
	ConfigPath string
	// EnvFile is loaded into the environment when present. Defaults to ".env".
	EnvFile string
	// Override applies command-line values after every other source.
	Override func(*Config)
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		DataDir:       constants.DefaultConfigDir,
		Driver:        constants.DriverSQLite,
		Timezone:      "Local",
		BackupOnErase: true,
	}
}

// Load builds the configuration from every source and validates it.
func Load(opts Options) (Config, error) {
	cfg := Default()

	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("loading %s: %w", envFile, err)
	}

	path, err := findConfigFile(opts.ConfigPath)
	if err != nil {
		return Config{}, err
	}
	if path != "" {
		if err := decodeFile(path, &cfg); err != nil {
			return Config{}, err
		}
		cfg.Source = path
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("parsing environment: %w", err)
	}

	if opts.Override != nil {
		opts.Override(&cfg)
	}

	if err := cfg.resolvePaths(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

func findConfigFile(explicit string) (string, error) {
	if explicit != "" {
		path, err := ExpandHome(explicit)
		if err != nil {
			return "", err
		}
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("reading config file: %w", err)
		}
		return path, nil
	}

	dir, err := ExpandHome(constants.DefaultConfigDir)
	if err != nil {
		return "", err
	}
	for _, name := range []string{constants.DefaultConfigFile, "config.yaml", "config.yml"} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", nil
}

func decodeFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	expanded := expandEnvVars(string(data))

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		if _, err := toml.Decode(expanded, cfg); err != nil {
			return fmt.Errorf("parsing config: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return fmt.Errorf("parsing config: %w", err)
		}
	default:
		return fmt.Errorf("unsupported config format %q (use .toml, .yaml or .yml)", ext)
	}
	return nil
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR} with the variable's value, or "" when unset.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(envVarPattern.FindStringSubmatch(match)[1])
	})
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

// resolvePaths expands ~ and fills the store paths from DataDir.
func (c *Config) resolvePaths() error {
	var err error
	if c.DataDir, err = ExpandHome(c.DataDir); err != nil {
		return err
	}
	if c.DatabasePath == "" {
		name := constants.SQLiteFileName
		if c.Driver == constants.DriverBolt {
			name = constants.BoltFileName
		}
		c.DatabasePath = filepath.Join(c.DataDir, name)
	} else if c.DatabasePath, err = ExpandHome(c.DatabasePath); err != nil {
		return err
	}
	if c.FallbackPath == "" {
		c.FallbackPath = filepath.Join(c.DataDir, constants.FallbackFileName)
	} else if c.FallbackPath, err = ExpandHome(c.FallbackPath); err != nil {
		return err
	}
	return nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("data_dir is required")
	}
	switch c.Driver {
	case constants.DriverSQLite, constants.DriverBolt:
	default:
		return fmt.Errorf("driver must be %q or %q, got %q", constants.DriverSQLite, constants.DriverBolt, c.Driver)
	}
	if !utils.ValidateTimezone(c.Timezone) {
		return fmt.Errorf("timezone %q is not a valid IANA timezone", c.Timezone)
	}
	return nil
}
