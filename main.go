// Package main is the entry point for the changeminer CLI application.
// changeminer mines git commit histories for before/after versions of the
// same function and turns each pair into a stored change-graph artifact
// via an external builder.
package main

import (
	"os"

	"github.com/spf13/pflag"

	"github.com/changegraph/changeminer/cmd"
	"github.com/changegraph/changeminer/internal/adapters/builder"
	gitadapter "github.com/changegraph/changeminer/internal/adapters/git"
	logadapter "github.com/changegraph/changeminer/internal/adapters/logger"
	"github.com/changegraph/changeminer/internal/adapters/output"
	"github.com/changegraph/changeminer/internal/adapters/parser"
	"github.com/changegraph/changeminer/internal/adapters/store"
	"github.com/changegraph/changeminer/internal/domain"
	"github.com/changegraph/changeminer/internal/infrastructure/config"
	"github.com/changegraph/changeminer/internal/usecases"
)

func main() {
	deps := &cmd.Dependencies{
		LoggerFactory: func(level string) (cmd.Logger, error) {
			zapLog, err := logadapter.NewZapLogger(level)
			if err != nil {
				return nil, err
			}
			return logadapter.NewZapAdapter(zapLog), nil
		},

		ConfigLoader: func(flags *pflag.FlagSet) (*config.Config, error) {
			return config.LoadWithFlags(flags)
		},

		MinerFactory: func(cfg *config.Config, log cmd.Logger) (domain.Miner, error) {
			sources := func(name, path string) (domain.CommitSource, error) {
				return gitadapter.NewGoGitExtractor(name, path, log)
			}
			extractors := func() domain.MethodExtractor {
				return parser.New(log)
			}
			stores := func(worker string) (domain.GraphStore, error) {
				return store.NewFileStore(cfg.StorageDir, cfg.BatchSize, worker, log)
			}
			execBuilder := builder.NewExecBuilder(cfg.BuilderArgv())

			return usecases.NewMiner(
				usecases.Options{
					ReposDir:      cfg.ReposDir,
					FileExtension: cfg.FileExtension,
					ExcludePrefix: cfg.ExcludePrefix,
					Workers:       cfg.Workers,
					RecycleAfter:  cfg.RecycleAfter,
				},
				sources,
				extractors,
				execBuilder,
				stores,
				log,
			), nil
		},

		SummaryWriterFactory: func() domain.OutputWriter {
			return output.NewWriter()
		},

		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}

	cmd.SetDefaultDependencies(deps)
	cmd.Execute()
}
