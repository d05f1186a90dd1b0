// Package config provides configuration loading for changeminer. Settings
// come from CLI flags, environment variables with the CHANGEMINER_ prefix,
// an optional .env file, and built-in defaults, in that priority order.
// The loaded Config is immutable after startup and passed by reference to
// every component constructor.
package config

import (
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/changegraph/changeminer/internal/domain"
)

// Configuration errors.
var (
	// ErrReposDirRequired indicates no repositories root was configured.
	ErrReposDirRequired = errors.New("repositories root directory is required")

	// ErrStorageDirRequired indicates no artifact output directory was configured.
	ErrStorageDirRequired = errors.New("artifact storage directory is required")

	// ErrBuilderCommandRequired indicates no change-graph builder command was configured.
	ErrBuilderCommandRequired = errors.New("change-graph builder command is required")

	// ErrInvalidThreshold indicates a non-positive batch size or recycle threshold.
	ErrInvalidThreshold = errors.New("batch size and recycle threshold must be positive")
)

// Config holds all application configuration.
type Config struct {
	// ReposDir is the root directory containing one working copy per
	// subdirectory.
	ReposDir string `mapstructure:"repos_dir"`

	// StorageDir receives one artifact file per flushed batch.
	StorageDir string `mapstructure:"storage_dir"`

	// BuilderCommand is the external change-graph builder invocation,
	// whitespace-separated. The two staged file paths are appended.
	BuilderCommand string `mapstructure:"builder_command"`

	// BatchSize is the flush threshold of a worker's graph batch.
	BatchSize int `mapstructure:"batch_size"`

	// RecycleAfter is the number of commit tasks a worker processes before
	// its parser and store are rebuilt.
	RecycleAfter int `mapstructure:"recycle_after"`

	// Workers is the worker pool size.
	Workers int `mapstructure:"workers"`

	// FileExtension restricts mining to files with this extension.
	FileExtension string `mapstructure:"file_extension"`

	// ExcludePrefix marks repository directories to skip.
	ExcludePrefix string `mapstructure:"exclude_prefix"`

	// LogLevel is the logging level (debug, info, warn, error).
	LogLevel string `mapstructure:"log_level"`
}

// BuilderArgv splits the builder command into an argv slice.
func (c *Config) BuilderArgv() []string {
	return strings.Fields(c.BuilderCommand)
}

// Load loads configuration from environment variables and defaults only.
func Load() (*Config, error) {
	return LoadWithFlags(nil)
}

// LoadWithFlags loads configuration with optional CLI flag overrides.
// Priority: CLI flags > environment variables > .env file > defaults.
func LoadWithFlags(flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	v.SetDefault("repos_dir", "")
	v.SetDefault("storage_dir", "")
	v.SetDefault("builder_command", "changegraph-build")
	v.SetDefault("batch_size", domain.DefaultBatchSize)
	v.SetDefault("recycle_after", domain.DefaultRecycleAfter)
	v.SetDefault("workers", runtime.NumCPU())
	v.SetDefault("file_extension", domain.DefaultFileExtension)
	v.SetDefault("exclude_prefix", domain.DefaultExcludePrefix)
	v.SetDefault("log_level", "info")

	v.SetEnvPrefix("CHANGEMINER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		_ = v.BindPFlag("repos_dir", flags.Lookup("repos-dir"))
		_ = v.BindPFlag("storage_dir", flags.Lookup("output-dir"))
		_ = v.BindPFlag("builder_command", flags.Lookup("builder"))
		_ = v.BindPFlag("batch_size", flags.Lookup("batch-size"))
		_ = v.BindPFlag("recycle_after", flags.Lookup("recycle-after"))
		_ = v.BindPFlag("workers", flags.Lookup("workers"))
		_ = v.BindPFlag("file_extension", flags.Lookup("ext"))
	}

	// Optional .env file in the working directory.
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the configuration for missing or nonsensical values.
func Validate(cfg *Config) error {
	if strings.TrimSpace(cfg.ReposDir) == "" {
		return ErrReposDirRequired
	}
	if strings.TrimSpace(cfg.StorageDir) == "" {
		return ErrStorageDirRequired
	}
	if len(cfg.BuilderArgv()) == 0 {
		return ErrBuilderCommandRequired
	}
	if cfg.BatchSize <= 0 || cfg.RecycleAfter <= 0 {
		return ErrInvalidThreshold
	}
	return nil
}
