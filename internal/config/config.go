// Package config loads the voiceover service configuration from YAML
// files and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/log"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Provider selection values.
const (
	ProviderNameAzure = "azure"
	ProviderNameDev   = "dev"
)

// Config holds the voiceover service configuration.
type Config struct {
	// Provider selects the synthesis provider: "azure" or "dev".
	// Chosen once at startup; call sites are indifferent to which is
	// active.
	Provider string `yaml:"provider" mapstructure:"provider" env:"VOICEOVER_PROVIDER"`

	// AzureRegion is the Azure speech resource region.
	AzureRegion string `yaml:"azure_region" mapstructure:"azure_region" env:"VOICEOVER_AZURE_REGION"`

	// FixturesDir holds the pre-recorded audio samples used by the
	// dev provider.
	FixturesDir string `yaml:"fixtures_dir" mapstructure:"fixtures_dir" env:"VOICEOVER_FIXTURES_DIR"`

	// BlobDir is the root of the file-backed blob store.
	BlobDir string `yaml:"blob_dir" mapstructure:"blob_dir" env:"VOICEOVER_BLOB_DIR"`

	// CacheDir is where the synthesis cache records live.
	CacheDir string `yaml:"cache_dir" mapstructure:"cache_dir" env:"VOICEOVER_CACHE_DIR"`

	// SynthesisTimeoutSecs bounds each remote synthesis call.
	SynthesisTimeoutSecs int `yaml:"synthesis_timeout_secs" mapstructure:"synthesis_timeout_secs" env:"VOICEOVER_SYNTHESIS_TIMEOUT_SECS"`

	// DebugLogging enables debug-level logs.
	DebugLogging bool `yaml:"debug_logging" mapstructure:"debug_logging" env:"VOICEOVER_DEBUG"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Provider:             ProviderNameDev,
		AzureRegion:          "eastus",
		FixturesDir:          "assets/voiceovers",
		BlobDir:              "data/blobs",
		CacheDir:             "data/cache",
		SynthesisTimeoutSecs: 30,
	}
}

// SynthesisTimeout returns the synthesis bound as a duration.
func (c *Config) SynthesisTimeout() time.Duration {
	return time.Duration(c.SynthesisTimeoutSecs) * time.Second
}

// configPaths returns the file locations checked for configuration.
func configPaths() []string {
	var paths []string
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, "voiceover.yml"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "oppia", "voiceover.yml"))
	}
	return paths
}

// Load reads configuration from the first config file found, then
// applies environment overrides on top. Missing files fall back to
// defaults.
func Load() (*Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigType("yaml")

	for _, path := range configPaths() {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			log.Warn("failed to read config", "path", path, "error", err)
			continue
		}
		if err := v.Unmarshal(cfg); err != nil {
			log.Warn("failed to parse config", "path", path, "error", err)
			continue
		}
		log.Debug("loaded configuration", "path", path)
		break
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment overrides: %w", err)
	}

	if cfg.Provider != ProviderNameAzure && cfg.Provider != ProviderNameDev {
		return nil, fmt.Errorf("unknown synthesis provider %q", cfg.Provider)
	}
	return cfg, nil
}

// WriteExample writes a commented example configuration to path.
func WriteExample(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := `# Voiceover service configuration.
#
# Place this file at ./voiceover.yml or ~/.config/oppia/voiceover.yml.
# Environment variables prefixed with VOICEOVER_ override file values.

`
	if err := os.WriteFile(path, append([]byte(header), data...), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// InitLogging configures the process logger.
func InitLogging(debug bool) {
	if debug {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.InfoLevel)
	}
}
