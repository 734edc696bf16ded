// Package config loads and saves the user-level issuefs configuration:
// the tracker URL and credentials shared by every ticket folder.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/issuefs/issuefs/internal/tracker"
)

// Config holds the tracker connection settings. Values come from the
// config file and can be overridden with ISSUEFS_* environment
// variables (ISSUEFS_URL, ISSUEFS_USER, ISSUEFS_TOKEN).
type Config struct {
	URL   string `mapstructure:"url" yaml:"url"`
	User  string `mapstructure:"user" yaml:"user"`
	Token string `mapstructure:"token" yaml:"token"`
}

// Path returns the config file location.
func Path() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locate home directory: %w", err)
	}
	return filepath.Join(home, ".config", "issuefs", "config.yaml"), nil
}

// Load reads the configuration. A missing config file is not an error;
// environment variables alone can supply a working configuration.
func Load() (*Config, error) {
	p, err := Path()
	if err != nil {
		return nil, err
	}
	return loadFrom(p)
}

func loadFrom(p string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(p)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("issuefs")
	v.AutomaticEnv()

	// Bind explicitly so env vars apply even with no config file.
	for _, key := range []string{"url", "user", "token"} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if !os.IsNotExist(err) {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config %s: %w", p, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", p, err)
	}
	return &cfg, nil
}

// Save writes the configuration atomically, creating the directory if
// needed. The file is user-only since it holds a token.
func (c *Config) Save() error {
	p, err := Path()
	if err != nil {
		return err
	}
	return c.saveTo(p)
}

func (c *Config) saveTo(p string) error {
	if err := os.MkdirAll(filepath.Dir(p), 0o700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := atomic.WriteFile(p, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write config %s: %w", p, err)
	}
	if err := os.Chmod(p, 0o600); err != nil {
		return fmt.Errorf("restrict config permissions: %w", err)
	}
	return nil
}

// Client builds a tracker client from the configuration.
func (c *Config) Client() (tracker.Client, error) {
	if c.URL == "" {
		return nil, fmt.Errorf("no tracker URL configured; run 'issuefs login' or set ISSUEFS_URL")
	}
	return tracker.NewJiraClient(c.URL, c.User, c.Token)
}
