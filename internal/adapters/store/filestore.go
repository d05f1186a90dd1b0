// Package store persists batches of change graphs as gob-encoded artifact
// files. Each worker session owns one FileStore; artifact names are
// collision-resistant UUIDs, so concurrent stores never contend.
package store

import (
	"context"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/changegraph/changeminer/internal/domain"
)

// ArtifactExtension is the suffix of every stored batch file.
const ArtifactExtension = ".gob"

// Logger defines the logging interface for the store.
type Logger interface {
	Info(ctx context.Context, msg string, fields map[string]any)
	Debug(ctx context.Context, msg string, fields map[string]any)
}

// FileStore implements domain.GraphStore on the local filesystem.
type FileStore struct {
	dir       string
	batchSize int
	worker    string
	logger    Logger

	batch  []domain.ChangeGraph
	stored int
}

// NewFileStore creates a store writing under dir, flushing every batchSize
// graphs. The directory is created if missing. The worker annotation is
// attached to every log line.
func NewFileStore(dir string, batchSize int, worker string, log Logger) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: cannot create storage directory: %w", domain.ErrStorageFailed, err)
	}
	return &FileStore{
		dir:       dir,
		batchSize: batchSize,
		worker:    worker,
		logger:    log,
	}, nil
}

// Add appends a graph to the batch and flushes once the threshold is reached.
func (s *FileStore) Add(ctx context.Context, graph domain.ChangeGraph) error {
	s.batch = append(s.batch, graph)
	if len(s.batch) >= s.batchSize {
		return s.Flush(ctx)
	}
	return nil
}

// Flush writes the buffered graphs to a new artifact and clears the batch.
// The batch is cleared even when the write fails: a failed flush terminates
// the current commit task, and retrying the same poisoned batch on the
// worker's next task would fail it too.
func (s *FileStore) Flush(ctx context.Context) error {
	if len(s.batch) == 0 {
		return nil
	}

	batch := s.batch
	s.batch = nil

	name := artifactName()
	start := time.Now()
	s.logger.Info(ctx, "storing graphs", map[string]any{
		"artifact": name,
		"graphs":   len(batch),
		"worker":   s.worker,
	})

	if err := s.write(name, batch); err != nil {
		return err
	}

	s.stored++
	s.logger.Info(ctx, "storing graphs finished", map[string]any{
		"artifact": name,
		"worker":   s.worker,
		"elapsed":  time.Since(start).String(),
	})
	return nil
}

// Size reports how many graphs are currently buffered.
func (s *FileStore) Size() int {
	return len(s.batch)
}

// Stored reports how many artifacts have been written.
func (s *FileStore) Stored() int {
	return s.stored
}

func (s *FileStore) write(name string, batch []domain.ChangeGraph) error {
	f, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrStorageFailed, err)
	}
	defer f.Close()

	if err := gob.NewEncoder(f).Encode(batch); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrStorageFailed, err)
	}
	return nil
}

// artifactName returns a 32-character hex identifier, generable
// independently by concurrent workers without coordination.
func artifactName() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "") + ArtifactExtension
}

// ReadArtifact decodes a stored artifact back into its ordered graph
// collection. Used by downstream consumers and tests.
func ReadArtifact(path string) ([]domain.ChangeGraph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open artifact: %w", err)
	}
	defer f.Close()

	var batch []domain.ChangeGraph
	if err := gob.NewDecoder(f).Decode(&batch); err != nil {
		return nil, fmt.Errorf("cannot decode artifact: %w", err)
	}
	return batch, nil
}
