package cli

import (
	"os"

	"github.com/BurntSushi/toml"
)

// fileConfig holds the optional settings read from config.toml. Flags
// always win over file values.
type fileConfig struct {
	BaseURL     string `toml:"base_url"`
	Suite       string `toml:"suite"`
	Concurrency int    `toml:"concurrency"`
}

// loadConfig reads the config file at path. A missing file is not an
// error; a malformed one is ignored with zero values so a broken config
// never blocks the tool.
func loadConfig(path string) fileConfig {
	var cfg fileConfig
	if path == "" {
		return cfg
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return fileConfig{}
	}
	return cfg
}

// fallback returns value unless it is the zero string, then alt.
func fallback(value, alt string) string {
	if value != "" {
		return value
	}
	return alt
}
