// Package config loads packsmith settings.
//
// Settings come from, in increasing priority: built-in defaults, a
// packsmith.toml file (the --config path, or packsmith.toml in the working
// directory), PACKSMITH_* environment variables, and command-line flags.
// Nested keys map to environment variables with underscores, so
// publish.endpoint is read from PACKSMITH_PUBLISH_ENDPOINT.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// AppName is the application name.
	AppName = "packsmith"

	// ConfigFileName is the config file stem looked up in the working directory.
	ConfigFileName = "packsmith"

	// ConfigFileExt is the config file extension.
	ConfigFileExt = "toml"

	// EnvPrefix prefixes every environment variable override.
	EnvPrefix = "PACKSMITH"
)

// ErrInvalidConfig indicates a setting failed validation.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the complete set of packsmith settings.
type Config struct {
	BaseRoot       string        `mapstructure:"base_root"`
	PackRoot       string        `mapstructure:"pack_root"`
	OutputDir      string        `mapstructure:"output_dir"`
	ArtifactPrefix string        `mapstructure:"artifact_prefix"`
	Force          bool          `mapstructure:"force"`
	LogLevel       string        `mapstructure:"log_level"`
	Hash           HashConfig    `mapstructure:"hash"`
	Publish        PublishConfig `mapstructure:"publish"`
}

// HashConfig configures artifact digests.
type HashConfig struct {
	ChunkSize int `mapstructure:"chunk_size"`
}

// PublishConfig configures the HTTP publisher. An empty endpoint disables
// publishing.
type PublishConfig struct {
	Endpoint   string        `mapstructure:"endpoint"`
	Token      string        `mapstructure:"token"`
	MaxRetries uint64        `mapstructure:"max_retries"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// LoadOptions controls where Load looks for settings.
type LoadOptions struct {
	// ConfigFile is an explicit config file; it must exist when set
	ConfigFile string

	// Dir is where packsmith.toml is looked up and relative paths are
	// resolved. Empty means the working directory.
	Dir string

	// Flags, when set, override file and environment values for the flags
	// the user actually passed
	Flags *pflag.FlagSet
}

// flagKeys maps config keys to the CLI flags that override them.
var flagKeys = map[string]string{
	"base_root":       "base-root",
	"pack_root":       "pack-root",
	"output_dir":      "output",
	"artifact_prefix": "prefix",
	"force":           "force",
	"log_level":       "log-level",
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		BaseRoot:       "base",
		PackRoot:       "pack",
		OutputDir:      "dist",
		ArtifactPrefix: "CustomServerPack",
		LogLevel:       "info",
		Hash: HashConfig{
			ChunkSize: 64 * 1024,
		},
		Publish: PublishConfig{
			MaxRetries: 3,
			Timeout:    2 * time.Minute,
		},
	}
}

// Load resolves the configuration and returns it together with the config
// file that was read, or "" when none was found.
func Load(opts LoadOptions) (*Config, string, error) {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("base_root", defaults.BaseRoot)
	v.SetDefault("pack_root", defaults.PackRoot)
	v.SetDefault("output_dir", defaults.OutputDir)
	v.SetDefault("artifact_prefix", defaults.ArtifactPrefix)
	v.SetDefault("force", defaults.Force)
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("hash.chunk_size", defaults.Hash.ChunkSize)
	v.SetDefault("publish.endpoint", defaults.Publish.Endpoint)
	v.SetDefault("publish.token", defaults.Publish.Token)
	v.SetDefault("publish.max_retries", defaults.Publish.MaxRetries)
	v.SetDefault("publish.timeout", defaults.Publish.Timeout)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	resolvedPath := ""
	if opts.ConfigFile != "" {
		if !fileExists(opts.ConfigFile) {
			return nil, "", fmt.Errorf("config file not found: %s", opts.ConfigFile)
		}
		resolvedPath = opts.ConfigFile
	} else {
		local := filepath.Join(opts.Dir, ConfigFileName+"."+ConfigFileExt)
		if fileExists(local) {
			resolvedPath = local
		}
		// If no config file found, use defaults (no error)
	}

	if resolvedPath != "" {
		v.SetConfigFile(resolvedPath)
		v.SetConfigType(ConfigFileExt)
		if err := v.ReadInConfig(); err != nil {
			return nil, "", fmt.Errorf("failed to read config file %s: %w", resolvedPath, err)
		}
	}

	if opts.Flags != nil {
		for key, name := range flagKeys {
			flag := opts.Flags.Lookup(name)
			if flag == nil {
				continue
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return nil, "", fmt.Errorf("failed to bind flag --%s: %w", name, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}

	paths, err := cfg.Paths().Absolute(opts.Dir)
	if err != nil {
		return nil, "", err
	}
	cfg.BaseRoot = paths.BaseRoot
	cfg.PackRoot = paths.PackRoot
	cfg.OutputDir = paths.OutputDir

	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}

	return &cfg, resolvedPath, nil
}

// Validate checks settings that viper cannot type-check.
func (c *Config) Validate() error {
	if c.BaseRoot == "" || c.PackRoot == "" || c.OutputDir == "" {
		return fmt.Errorf("%w: base_root, pack_root and output_dir must be set", ErrInvalidConfig)
	}
	if c.Paths().OutputInPackRoot() {
		return fmt.Errorf("%w: output_dir %s must not be inside pack_root %s", ErrInvalidConfig, c.OutputDir, c.PackRoot)
	}
	if c.ArtifactPrefix == "" || strings.ContainsAny(c.ArtifactPrefix, `/\`) {
		return fmt.Errorf("%w: artifact_prefix %q must be a plain file name", ErrInvalidConfig, c.ArtifactPrefix)
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: log_level: %v", ErrInvalidConfig, err)
	}
	if c.Hash.ChunkSize <= 0 {
		return fmt.Errorf("%w: hash.chunk_size must be positive", ErrInvalidConfig)
	}
	if c.Publish.Timeout < 0 {
		return fmt.Errorf("%w: publish.timeout must not be negative", ErrInvalidConfig)
	}
	return nil
}

// PublishEnabled reports whether a publish endpoint is configured.
func (c *Config) PublishEnabled() bool {
	return c.Publish.Endpoint != ""
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
