package shared

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
//
// Durable user preferences (library path, sync interval, notification toggle)
// live in the app_settings table instead; this file only bootstraps the
// process.
type Config struct {
	Database  DatabaseConfig  `toml:"database"`
	Tool      ToolConfig      `toml:"tool"`
	Downloads DownloadsConfig `toml:"downloads"`
	Metadata  MetadataConfig  `toml:"metadata"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ToolConfig locates the external fetch tool.
type ToolConfig struct {
	YtdlpPath string `toml:"ytdlp_path"`
}

// DownloadsConfig contains download orchestration settings.
type DownloadsConfig struct {
	MaxParallel int `toml:"max_parallel"`
	// StallTimeoutSeconds force-cancels a download whose subprocess has
	// produced no output for this long. Zero disables the watchdog.
	StallTimeoutSeconds int `toml:"stall_timeout_seconds"`
}

// MetadataConfig contains metadata worker pacing settings.
type MetadataConfig struct {
	SweepIntervalSeconds int `toml:"sweep_interval_seconds"`
	BatchSize            int `toml:"batch_size"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingConfig, err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
