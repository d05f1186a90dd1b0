package domain

import (
	"context"
	"errors"
)

// Domain errors. Enumeration errors are fatal to a run; the rest are
// contained at the granularity their consumer documents.
var (
	// ErrRepositoryNotFound indicates a directory under the repositories
	// root is not a valid git working copy.
	ErrRepositoryNotFound = errors.New("git repository not found at specified path")

	// ErrNoRemoteOrigin indicates no 'origin' remote is configured.
	ErrNoRemoteOrigin = errors.New("no 'origin' remote configured")

	// ErrReposRootUnreadable indicates the repositories root directory
	// cannot be listed. Fatal: the run is misconfigured.
	ErrReposRootUnreadable = errors.New("cannot list repositories root")

	// ErrBuilderFailed wraps any failure raised by the external
	// change-graph builder. The offending pair is skipped.
	ErrBuilderFailed = errors.New("change-graph builder failed")

	// ErrStorageFailed wraps artifact serialization failures. It propagates
	// to the task boundary and terminates only that task.
	ErrStorageFailed = errors.New("artifact storage failed")
)

// CommitSource materializes one repository's history into self-contained
// commit records. Implementations own the underlying VCS session, which must
// not leak into the returned commits.
type CommitSource interface {
	// Repository returns the identity of the mined working copy, including
	// the resolved origin remote URL.
	Repository() Repository

	// ExtractCommits walks the history and returns every commit that has at
	// least one parent, with full before/after text inlined per
	// modification. Blocking; must complete before any parallel dispatch.
	ExtractCommits(ctx context.Context) ([]Commit, error)
}

// CommitSourceFactory opens a working copy by directory name and path.
type CommitSourceFactory func(name, path string) (CommitSource, error)

// MethodExtractor parses one source snapshot into named function units.
// A parse failure yields an empty slice, never an error: malformed or
// partial snapshots are expected data, not exceptional conditions.
type MethodExtractor interface {
	Extract(ctx context.Context, filePath, source string) []Method
}

// MethodExtractorFactory creates a fresh extractor. Extractors are not
// goroutine-safe; each worker session owns its own.
type MethodExtractorFactory func() MethodExtractor

// GraphBuilder invokes the external change-graph builder on two staged
// method snapshots. May fail for any reason; the caller logs and skips.
type GraphBuilder interface {
	Build(ctx context.Context, oldPath, newPath string, meta PairMetadata) (ChangeGraph, error)
}

// GraphStore buffers produced graphs and flushes them to durable artifacts.
// A store instance belongs to exactly one worker session and is never
// shared; concurrent stores must not collide on artifact identifiers.
type GraphStore interface {
	// Add appends a graph to the batch, flushing when the configured
	// threshold is reached.
	Add(ctx context.Context, graph ChangeGraph) error

	// Flush writes any buffered remainder to a new artifact and clears the
	// batch. A no-op when the batch is empty.
	Flush(ctx context.Context) error

	// Size reports how many graphs are currently buffered.
	Size() int

	// Stored reports how many artifacts this store has written so far.
	Stored() int
}

// GraphStoreFactory creates a worker-private store. The worker annotation
// is attached to the store's log output.
type GraphStoreFactory func(worker string) (GraphStore, error)

// OutputWriter writes the run summary to an output destination.
type OutputWriter interface {
	WriteSummary(summary *RunSummary) error
}

// Miner drives the whole pipeline: repository enumeration, commit
// materialization, and parallel per-commit processing.
type Miner interface {
	Run(ctx context.Context) (*RunSummary, error)
}
