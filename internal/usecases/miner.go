package usecases

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/changegraph/changeminer/internal/domain"
)

// Logger defines the logging interface required by the miner.
type Logger interface {
	Info(ctx context.Context, msg string, fields map[string]any)
	Debug(ctx context.Context, msg string, fields map[string]any)
	Warn(ctx context.Context, msg string, fields map[string]any)
	Error(ctx context.Context, msg string, err error, fields map[string]any)
}

// Options carries the miner's configuration slice. Values are copied at
// construction; the miner never reads process-wide state.
type Options struct {
	ReposDir      string
	FileExtension string
	ExcludePrefix string
	Workers       int
	RecycleAfter  int
}

// Miner drives the whole pipeline: it enumerates repositories, materializes
// their commit history sequentially (the git session is not shareable), and
// distributes per-commit work across a recycled worker pool.
type Miner struct {
	opts       Options
	sources    domain.CommitSourceFactory
	extractors domain.MethodExtractorFactory
	builder    domain.GraphBuilder
	stores     domain.GraphStoreFactory
	logger     Logger
}

// NewMiner creates a Miner with the given collaborators.
func NewMiner(
	opts Options,
	sources domain.CommitSourceFactory,
	extractors domain.MethodExtractorFactory,
	graphBuilder domain.GraphBuilder,
	stores domain.GraphStoreFactory,
	log Logger,
) *Miner {
	return &Miner{
		opts:       opts,
		sources:    sources,
		extractors: extractors,
		builder:    graphBuilder,
		stores:     stores,
		logger:     log,
	}
}

// runStats aggregates counters across workers.
type runStats struct {
	repos         atomic.Int64
	commits       atomic.Int64
	pairs         atomic.Int64
	graphs        atomic.Int64
	artifacts     atomic.Int64
	buildFailures atomic.Int64
	taskFailures  atomic.Int64
}

func (s *runStats) summary() *domain.RunSummary {
	return &domain.RunSummary{
		Repositories:  int(s.repos.Load()),
		Commits:       int(s.commits.Load()),
		Pairs:         int(s.pairs.Load()),
		Graphs:        int(s.graphs.Load()),
		Artifacts:     int(s.artifacts.Load()),
		BuildFailures: int(s.buildFailures.Load()),
		TaskFailures:  int(s.taskFailures.Load()),
	}
}

// Run mines every repository under the configured root. Enumeration
// failures (unreadable root, unopenable repository, missing remote, broken
// history walk) are unrecoverable misconfiguration and abort the run;
// everything below commit granularity is contained inside the workers.
func (m *Miner) Run(ctx context.Context) (*domain.RunSummary, error) {
	entries, err := os.ReadDir(m.opts.ReposDir)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrReposRootUnreadable, m.opts.ReposDir, err)
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), m.opts.ExcludePrefix) {
			continue
		}
		names = append(names, entry.Name())
	}

	stats := &runStats{}
	for i, name := range names {
		m.logger.Info(ctx, "looking at repository", map[string]any{
			"repository": name,
			"progress":   fmt.Sprintf("%d/%d", i+1, len(names)),
		})

		source, err := m.sources(name, filepath.Join(m.opts.ReposDir, name))
		if err != nil {
			return nil, err
		}

		commits, err := source.ExtractCommits(ctx)
		if err != nil {
			return nil, err
		}

		if err := m.dispatch(ctx, commits, stats); err != nil {
			return nil, err
		}
		stats.repos.Add(1)
	}

	return stats.summary(), nil
}

// dispatch fans the materialized commits out to the worker pool and waits
// for the pool to drain. Only context cancellation and store construction
// failures propagate; task-level failures are logged inside the workers.
func (m *Miner) dispatch(ctx context.Context, commits []domain.Commit, stats *runStats) error {
	start := time.Now()
	jobs := make(chan domain.Commit)

	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < m.opts.Workers; w++ {
		worker := fmt.Sprintf("worker-%d", w)
		g.Go(func() error {
			return m.worker(gctx, worker, jobs, stats)
		})
	}

	g.Go(func() error {
		defer close(jobs)
		for _, commit := range commits {
			select {
			case jobs <- commit:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	m.logger.Debug(ctx, "pool drained", map[string]any{
		"commits": len(commits),
		"elapsed": time.Since(start).String(),
	})
	return nil
}

// worker runs sessions back to back until the job channel closes. Each
// session owns a fresh extractor and store; bounding a session to the
// recycle threshold caps the memory repeated heavy parsing can accumulate.
// Results are identical whether or not recycling occurs.
func (m *Miner) worker(ctx context.Context, id string, jobs <-chan domain.Commit, stats *runStats) error {
	for {
		done, err := m.workerSession(ctx, id, jobs, stats)
		if err != nil || done {
			return err
		}
	}
}

func (m *Miner) workerSession(
	ctx context.Context,
	id string,
	jobs <-chan domain.Commit,
	stats *runStats,
) (done bool, err error) {
	extractor := m.extractors()
	store, err := m.stores(id)
	if err != nil {
		return true, err
	}
	defer func() { stats.artifacts.Add(int64(store.Stored())) }()

	for n := 0; n < m.opts.RecycleAfter; n++ {
		select {
		case <-ctx.Done():
			return true, ctx.Err()
		case commit, ok := <-jobs:
			if !ok {
				return true, nil
			}
			m.runTask(ctx, id, commit, extractor, store, stats)
			stats.commits.Add(1)
		}
	}
	return false, nil
}

// runTask isolates one commit task. Storage failures and panics terminate
// only this task; the worker and the pool keep running.
func (m *Miner) runTask(
	ctx context.Context,
	worker string,
	commit domain.Commit,
	extractor domain.MethodExtractor,
	store domain.GraphStore,
	stats *runStats,
) {
	defer func() {
		if r := recover(); r != nil {
			stats.taskFailures.Add(1)
			m.logger.Error(ctx, "commit task panicked", fmt.Errorf("panic: %v", r), map[string]any{
				"repository": commit.Repo.Path,
				"commit":     commit.Hash,
				"worker":     worker,
			})
		}
	}()

	if err := m.processCommit(ctx, worker, commit, extractor, store, stats); err != nil {
		stats.taskFailures.Add(1)
		m.logger.Error(ctx, "commit task failed", err, map[string]any{
			"repository": commit.Repo.Path,
			"commit":     commit.Hash,
			"worker":     worker,
		})
	}
}
