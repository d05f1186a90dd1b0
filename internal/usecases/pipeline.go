package usecases

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/changegraph/changeminer/internal/domain"
)

// processCommit runs the full pipeline for one materialized commit:
// filter modifications, extract both sides, match, bridge every surviving
// pair to the builder, and store the results. Any remaining batch is
// flushed at the end so a later worker recycle cannot silently drop it.
//
// Failures are contained at the granularity the pipeline defines: a parse
// failure empties one side of one file, a span failure skips one method, a
// builder failure skips one pair. Only storage failures escape, and the
// caller terminates just this task.
func (m *Miner) processCommit(
	ctx context.Context,
	worker string,
	commit domain.Commit,
	extractor domain.MethodExtractor,
	store domain.GraphStore,
	stats *runStats,
) error {
	m.logger.Info(ctx, "looking at commit", map[string]any{
		"commit":  commit.Hash,
		"message": domain.FlattenMessage(commit.Message),
		"worker":  worker,
	})

	for _, mod := range commit.Modifications {
		if mod.Kind != domain.ChangeModified {
			continue
		}
		if !strings.HasSuffix(mod.OldPath, m.opts.FileExtension) ||
			!strings.HasSuffix(mod.NewPath, m.opts.FileExtension) {
			continue
		}

		oldMethods := extractor.Extract(ctx, mod.OldPath, mod.OldSource)
		newMethods := extractor.Extract(ctx, mod.NewPath, mod.NewSource)

		for _, pair := range MatchMethods(oldMethods, newMethods) {
			oldSrc, ok := pair.Old.Snippet()
			if !ok {
				m.logSpanFailure(ctx, worker, commit, pair.Old)
				continue
			}
			newSrc, ok := pair.New.Snippet()
			if !ok {
				m.logSpanFailure(ctx, worker, commit, pair.New)
				continue
			}
			if oldSrc == "" || newSrc == "" || oldSrc == newSrc {
				continue
			}
			stats.pairs.Add(1)

			graph, err := m.buildPair(ctx, commit, pair, oldSrc, newSrc)
			if err != nil {
				stats.buildFailures.Add(1)
				m.logger.Error(ctx, "unable to build change graph", err, map[string]any{
					"repository": commit.Repo.Path,
					"commit":     commit.Hash,
					"method":     pair.Old.QualifiedName,
					"line":       pair.Old.Line,
					"worker":     worker,
				})
				continue
			}

			if err := store.Add(ctx, graph); err != nil {
				return err
			}
			stats.graphs.Add(1)
		}
	}

	return store.Flush(ctx)
}

// buildPair stages both method snapshots as ephemeral files and invokes the
// external builder. The files are removed on every exit path.
func (m *Miner) buildPair(
	ctx context.Context,
	commit domain.Commit,
	pair domain.MethodPair,
	oldSrc, newSrc string,
) (domain.ChangeGraph, error) {
	oldPath, oldCleanup, err := m.stageSnapshot(oldSrc)
	if err != nil {
		return domain.ChangeGraph{}, err
	}
	defer oldCleanup()

	newPath, newCleanup, err := m.stageSnapshot(newSrc)
	if err != nil {
		return domain.ChangeGraph{}, err
	}
	defer newCleanup()

	return m.builder.Build(ctx, oldPath, newPath, domain.PairMetadata{
		Repo:       commit.Repo,
		CommitHash: commit.Hash,
		Old:        pair.Old,
		New:        pair.New,
	})
}

func (m *Miner) stageSnapshot(src string) (string, func(), error) {
	f, err := os.CreateTemp("", "changeminer-*"+m.opts.FileExtension)
	if err != nil {
		return "", nil, fmt.Errorf("cannot stage method snapshot: %w", err)
	}
	cleanup := func() { _ = os.Remove(f.Name()) }

	if _, err := f.WriteString(src); err != nil {
		_ = f.Close()
		cleanup()
		return "", nil, fmt.Errorf("cannot write method snapshot: %w", err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("cannot finalize method snapshot: %w", err)
	}
	return f.Name(), cleanup, nil
}

func (m *Miner) logSpanFailure(ctx context.Context, worker string, commit domain.Commit, method domain.Method) {
	m.logger.Info(ctx, "unable to recover method source span", map[string]any{
		"repository": commit.Repo.Path,
		"commit":     commit.Hash,
		"method":     method.QualifiedName,
		"line":       method.Line,
		"worker":     worker,
	})
}
