// Package cmd provides the CLI commands for changeminer.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/changegraph/changeminer/internal/domain"
	"github.com/changegraph/changeminer/internal/infrastructure/config"
)

// Logger defines the logging interface used by the command.
type Logger interface {
	Info(ctx context.Context, msg string, fields map[string]any)
	Debug(ctx context.Context, msg string, fields map[string]any)
	Warn(ctx context.Context, msg string, fields map[string]any)
	Error(ctx context.Context, msg string, err error, fields map[string]any)
}

// Dependencies holds all injectable dependencies for the command.
// This enables testing by allowing mock implementations to be injected.
type Dependencies struct {
	// LoggerFactory creates a logger at the given level.
	LoggerFactory func(level string) (Logger, error)

	// ConfigLoader loads application configuration, with CLI flags taking
	// precedence over environment variables.
	ConfigLoader func(flags *pflag.FlagSet) (*config.Config, error)

	// MinerFactory creates the mining pipeline from the loaded config.
	MinerFactory func(cfg *config.Config, log Logger) (domain.Miner, error)

	// SummaryWriterFactory creates the run-summary writer.
	SummaryWriterFactory func() domain.OutputWriter

	// Stdout is the writer for the run summary.
	Stdout io.Writer

	// Stderr is the writer for fatal errors.
	Stderr io.Writer
}

var verbose bool

// defaultDeps holds the production dependencies, set from main().
var defaultDeps *Dependencies

// SetDefaultDependencies sets the default dependencies for production use.
func SetDefaultDependencies(deps *Dependencies) {
	defaultDeps = deps
}

// NewRootCmd creates the root command for changeminer.
func NewRootCmd() *cobra.Command {
	return NewRootCmdWithDeps(defaultDeps)
}

// NewRootCmdWithDeps creates the root command with explicit dependencies.
func NewRootCmdWithDeps(deps *Dependencies) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "changeminer [repos-root]",
		Short: "Mine commit histories into change-graph artifacts",
		Long: `changeminer walks every git working copy under a repositories root,
locates before/after versions of the same function in each code-modifying
commit, and hands every matched pair to an external change-graph builder.
Produced graphs are batched and stored as binary artifacts for downstream
pattern mining.

Repository directories whose name starts with the exclusion marker
(default "_") are skipped. Processing is distributed across a worker pool;
a malformed file, an unmatched method, or a builder failure never aborts
the run.

Examples:
  # Mine all repositories under ./repos into ./storage
  changeminer ./repos --output-dir ./storage

  # Use a custom builder command and smaller batches
  changeminer ./repos --output-dir ./storage --builder "python -m changegraph" --batch-size 50

  # Enable verbose logging
  changeminer ./repos --output-dir ./storage -v`,
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMine(cmd, args, deps)
		},
	}

	rootCmd.Flags().String("repos-dir", "", "Root directory containing one git working copy per subdirectory")
	rootCmd.Flags().String("output-dir", "", "Directory receiving one artifact file per flushed batch")
	rootCmd.Flags().String("builder", "", "External change-graph builder command")
	rootCmd.Flags().Int("batch-size", domain.DefaultBatchSize, "Graphs buffered per worker before a flush")
	rootCmd.Flags().Int("recycle-after", domain.DefaultRecycleAfter, "Commit tasks a worker processes before being recycled")
	rootCmd.Flags().Int("workers", 0, "Worker pool size (0 = number of CPUs)")
	rootCmd.Flags().String("ext", domain.DefaultFileExtension, "Source file extension to mine")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose/debug logging")

	return rootCmd
}

// runMine executes the mining pipeline with injected dependencies.
func runMine(cmd *cobra.Command, args []string, deps *Dependencies) error {
	if deps == nil {
		return errors.New("dependencies not configured")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	// A positional repos root overrides the flag/env value.
	if len(args) > 0 {
		if err := cmd.Flags().Set("repos-dir", args[0]); err != nil {
			return err
		}
	}

	cfg, err := deps.ConfigLoader(cmd.Flags())
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	log, err := deps.LoggerFactory(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("logger error: %w", err)
	}

	log.Info(ctx, "starting changeminer", map[string]any{
		"repos_dir":   cfg.ReposDir,
		"storage_dir": cfg.StorageDir,
		"workers":     cfg.Workers,
		"batch_size":  cfg.BatchSize,
	})

	miner, err := deps.MinerFactory(cfg, log)
	if err != nil {
		log.Error(ctx, "failed to initialize miner", err, nil)
		return err
	}

	summary, err := miner.Run(ctx)
	if err != nil {
		log.Error(ctx, "mining run failed", err, nil)
		if errors.Is(err, domain.ErrReposRootUnreadable) {
			return fmt.Errorf("cannot list repositories under %s", cfg.ReposDir)
		}
		return err
	}

	writer := deps.SummaryWriterFactory()
	if err := writer.WriteSummary(summary); err != nil {
		log.Error(ctx, "failed to write run summary", err, nil)
		return fmt.Errorf("output error: %w", err)
	}

	log.Info(ctx, "mining complete", map[string]any{
		"repositories": summary.Repositories,
		"commits":      summary.Commits,
		"graphs":       summary.Graphs,
		"artifacts":    summary.Artifacts,
	})
	return nil
}

// Execute runs the root command.
func Execute() {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
