// Package config resolves tool settings from defaults, an optional
// dbkeep.yaml, DB_* environment variables, and command-line flags, in
// ascending priority.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is the resolved settings surface consumed by the CLI.
type Config struct {
	Environment string `mapstructure:"environment"`
	Hostname    string `mapstructure:"hostname"`
	Database    string `mapstructure:"database"`

	// Location is the root directory for CSV export/import files.
	Location string `mapstructure:"location"`
	// SettingsDir holds the per-triple profile files.
	SettingsDir string `mapstructure:"settings_dir"`
	// KeyFile is the secret key location, one per user.
	KeyFile string `mapstructure:"key_file"`

	Log LogConfig `mapstructure:"log"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Load resolves the configuration. flags may be nil; when given, set flags
// override file and environment values (viper flag binding).
func Load(flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	v.SetDefault("environment", "dev")
	v.SetDefault("hostname", "localhost")
	v.SetDefault("database", "sample")
	v.SetDefault("location", filepath.Join(".", "db"))
	v.SetDefault("settings_dir", ".")
	v.SetDefault("key_file", defaultKeyFile())
	v.SetDefault("log.level", "info")

	v.SetEnvPrefix("DB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("dbkeep")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	if flags != nil {
		for flagName, key := range map[string]string{
			"environment": "environment",
			"hostname":    "hostname",
			"database":    "database",
			"location":    "location",
		} {
			if f := flags.Lookup(flagName); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", flagName, err)
				}
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.Log.Level = v.GetString("log.level")

	cfg.Environment = strings.ToLower(cfg.Environment)
	cfg.Hostname = strings.ToLower(cfg.Hostname)
	cfg.Database = strings.ToLower(cfg.Database)
	return cfg, nil
}

// defaultKeyFile places the secret key in the user's home directory, the
// one fixed per-user location.
func defaultKeyFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".dbkeep.secret.json"
	}
	return filepath.Join(home, ".dbkeep.secret.json")
}

// CSVDir returns the directory CSV files for the configured database live
// in: <location>/<environment>/<database>.
func (c *Config) CSVDir() string {
	return filepath.Join(c.Location, c.Environment, c.Database)
}
