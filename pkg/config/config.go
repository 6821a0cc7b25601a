package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the application configuration. Values come from an optional yaml
// file and may be overridden by GOLDVAULT_* environment variables.
type Config struct {
	DBPath     string `yaml:"db_path"`
	LogLevel   string `yaml:"log_level"`
	LogFile    string `yaml:"log_file"`
	LogMaxSize int    `yaml:"log_max_size_mb"`
}

func Default() Config {
	return Config{
		DBPath:   "data/goldvault.db",
		LogLevel: "info",
	}
}

// Load reads the yaml file at path (missing file is fine, defaults apply)
// and then applies env overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if v := os.Getenv("GOLDVAULT_DB"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("GOLDVAULT_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("GOLDVAULT_LOG_FILE"); v != "" {
		cfg.LogFile = v
	}
	return cfg, nil
}
