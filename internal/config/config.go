package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/xupit3r/gpujpeg/internal/codec"
)

// Config represents the application configuration
type Config struct {
	Device  DeviceConfig  `mapstructure:"device" yaml:"device"`
	Codec   CodecConfig   `mapstructure:"codec" yaml:"codec"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

type DeviceConfig struct {
	Backend string `mapstructure:"backend" yaml:"backend"`
}

type CodecConfig struct {
	Engine      string `mapstructure:"engine" yaml:"engine"`
	Quality     int    `mapstructure:"quality" yaml:"quality"`
	Subsampling string `mapstructure:"subsampling" yaml:"subsampling"`
}

type LoggingConfig struct {
	Level   string `mapstructure:"level" yaml:"level"`
	File    string `mapstructure:"file" yaml:"file"`
	Console bool   `mapstructure:"console" yaml:"console"`
}

// DefaultConfig returns configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Device: DeviceConfig{
			Backend: "auto",
		},
		Codec: CodecConfig{
			Engine:      "auto",
			Quality:     codec.DefaultQuality,
			Subsampling: codec.DefaultSubsampling.String(),
		},
		Logging: LoggingConfig{
			Level:   "warn",
			File:    "", // no log file unless configured
			Console: true,
		},
	}
}

// Load loads configuration from file, environment, and defaults
func Load(cfgFile string) (*Config, error) {
	return LoadWith(viper.New(), cfgFile)
}

// LoadWith is Load against a caller-owned viper instance, so command flags
// bound to v take part in resolution
func LoadWith(v *viper.Viper, cfgFile string) (*Config, error) {
	// Set defaults
	cfg := DefaultConfig()
	setDefaults(v, cfg)

	// Config file setup
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("finding home directory: %w", err)
		}

		v.AddConfigPath(filepath.Join(home, ".gpujpeg"))
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName("config")
	}

	// Environment variables
	v.SetEnvPrefix("GPUJPEG")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		// Config file not found is okay, use defaults
	}

	// Unmarshal into struct
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// Expand paths
	cfg.ExpandPaths()

	// Validate
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	validBackends := []string{"auto", "cpu", "cuda", "gpu"}
	if !contains(validBackends, strings.ToLower(c.Device.Backend)) {
		return fmt.Errorf("device.backend must be one of: %v", validBackends)
	}

	validEngines := []string{"auto", "software", "cpu", "nvjpeg"}
	if !contains(validEngines, strings.ToLower(c.Codec.Engine)) {
		return fmt.Errorf("codec.engine must be one of: %v", validEngines)
	}

	if c.Codec.Quality < 1 || c.Codec.Quality > 100 {
		return errors.New("codec.quality must be between 1 and 100")
	}

	if _, err := codec.ParseSubsampling(c.Codec.Subsampling); err != nil {
		return fmt.Errorf("codec.subsampling: %w", err)
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLevels, c.Logging.Level) {
		return fmt.Errorf("logging.level must be one of: %v", validLevels)
	}

	return nil
}

// EncodeParams returns the codec section as engine parameters
func (c *Config) EncodeParams() (codec.EncodeParams, error) {
	css, err := codec.ParseSubsampling(c.Codec.Subsampling)
	if err != nil {
		return codec.EncodeParams{}, err
	}
	p := codec.EncodeParams{Quality: c.Codec.Quality, Subsampling: css}
	return p, p.Validate()
}

// ExpandPaths expands ~ and environment variables in paths
func (c *Config) ExpandPaths() {
	c.Logging.File = expandPath(c.Logging.File)
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return os.ExpandEnv(path)
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("device.backend", cfg.Device.Backend)

	v.SetDefault("codec.engine", cfg.Codec.Engine)
	v.SetDefault("codec.quality", cfg.Codec.Quality)
	v.SetDefault("codec.subsampling", cfg.Codec.Subsampling)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.file", cfg.Logging.File)
	v.SetDefault("logging.console", cfg.Logging.Console)
}
