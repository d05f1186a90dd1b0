package store

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/changegraph/changeminer/internal/domain"
)

// testLogger is a minimal logger for testing that doesn't output anything.
type testLogger struct{}

func (l *testLogger) Info(_ context.Context, _ string, _ map[string]any)  {}
func (l *testLogger) Debug(_ context.Context, _ string, _ map[string]any) {}

func graph(n string) domain.ChangeGraph {
	return domain.ChangeGraph{
		RepoName:   "repoA",
		RepoURL:    "https://example.com/repoA.git",
		CommitHash: "c1",
		MethodName: n,
		Data:       []byte("graph-" + n),
	}
}

func artifacts(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var out []string
	for _, e := range entries {
		out = append(out, e.Name())
	}
	return out
}

func TestFileStore_FlushAtThreshold(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir, 2, "worker-0", &testLogger{})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, s.Add(ctx, graph("a")))
	assert.Equal(t, 1, s.Size())
	assert.Empty(t, artifacts(t, dir))

	require.NoError(t, s.Add(ctx, graph("b")))
	assert.Zero(t, s.Size(), "reaching the threshold flushes and clears the batch")
	assert.Len(t, artifacts(t, dir), 1)
	assert.Equal(t, 1, s.Stored())
}

func TestFileStore_CeilingOfKOverN(t *testing.T) {
	// K=5 graphs at threshold N=2 must produce ceil(5/2)=3 artifacts,
	// the last holding the remainder of 1.
	dir := t.TempDir()
	s, err := NewFileStore(dir, 2, "worker-0", &testLogger{})
	require.NoError(t, err)

	ctx := context.Background()
	for _, n := range []string{"a", "b", "c", "d", "e"} {
		require.NoError(t, s.Add(ctx, graph(n)))
	}
	require.NoError(t, s.Flush(ctx))

	names := artifacts(t, dir)
	require.Len(t, names, 3)
	assert.Equal(t, 3, s.Stored())

	sizes := map[int]int{}
	for _, name := range names {
		batch, err := ReadArtifact(filepath.Join(dir, name))
		require.NoError(t, err)
		sizes[len(batch)]++
	}
	assert.Equal(t, map[int]int{2: 2, 1: 1}, sizes)
}

func TestFileStore_FlushEmptyIsNoOp(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir, 2, "worker-0", &testLogger{})
	require.NoError(t, err)

	require.NoError(t, s.Flush(context.Background()))

	assert.Empty(t, artifacts(t, dir))
	assert.Zero(t, s.Stored())
}

func TestFileStore_ArtifactRoundTripPreservesOrderAndProvenance(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir, 10, "worker-0", &testLogger{})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, s.Add(ctx, graph("first")))
	require.NoError(t, s.Add(ctx, graph("second")))
	require.NoError(t, s.Flush(ctx))

	names := artifacts(t, dir)
	require.Len(t, names, 1)
	assert.True(t, strings.HasSuffix(names[0], ArtifactExtension))

	batch, err := ReadArtifact(filepath.Join(dir, names[0]))
	require.NoError(t, err)
	require.Len(t, batch, 2)
	assert.Equal(t, "first", batch[0].MethodName)
	assert.Equal(t, "second", batch[1].MethodName)
	assert.Equal(t, "https://example.com/repoA.git", batch[0].RepoURL)
	assert.Equal(t, []byte("graph-first"), batch[0].Data)
}

func TestFileStore_ConcurrentStoresDoNotCollide(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	for _, worker := range []string{"worker-0", "worker-1", "worker-2"} {
		s, err := NewFileStore(dir, 1, worker, &testLogger{})
		require.NoError(t, err)
		require.NoError(t, s.Add(ctx, graph(worker)))
	}

	names := artifacts(t, dir)
	assert.Len(t, names, 3)

	seen := map[string]bool{}
	for _, n := range names {
		assert.False(t, seen[n], "artifact names must be unique")
		seen[n] = true
	}
}

func TestFileStore_CreatesStorageDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "storage")

	s, err := NewFileStore(dir, 2, "worker-0", &testLogger{})

	require.NoError(t, err)
	require.NotNil(t, s)
	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
