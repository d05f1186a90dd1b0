package builder

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/changegraph/changeminer/internal/domain"
)

func stage(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func meta() domain.PairMetadata {
	return domain.PairMetadata{
		Repo:       domain.Repository{Name: "repoA", Path: "/repos/repoA", URL: "https://example.com/repoA.git"},
		CommitHash: "deadbeef",
		Old:        domain.Method{QualifiedName: "Outer.run", Line: 3},
		New:        domain.Method{QualifiedName: "Outer.run", Line: 3},
	}
}

func TestExecBuilder_StdoutBecomesGraphData(t *testing.T) {
	oldPath := stage(t, "old.py", "def f(): return 1")
	newPath := stage(t, "new.py", "def f(): return 2")

	b := NewExecBuilder([]string{"cat"})
	graph, err := b.Build(context.Background(), oldPath, newPath, meta())

	require.NoError(t, err)
	assert.Equal(t, "def f(): return 1def f(): return 2", string(graph.Data))
	assert.Equal(t, "repoA", graph.RepoName)
	assert.Equal(t, "deadbeef", graph.CommitHash)
	assert.Equal(t, "Outer.run", graph.MethodName)
}

func TestExecBuilder_MetadataInEnvironment(t *testing.T) {
	oldPath := stage(t, "old.py", "x")
	newPath := stage(t, "new.py", "y")

	b := NewExecBuilder([]string{"sh", "-c", `printf '%s %s' "$CHANGEGRAPH_COMMIT" "$CHANGEGRAPH_OLD_METHOD"`})
	graph, err := b.Build(context.Background(), oldPath, newPath, meta())

	require.NoError(t, err)
	assert.Equal(t, "deadbeef Outer.run", string(graph.Data))
}

func TestExecBuilder_ExitFailure(t *testing.T) {
	oldPath := stage(t, "old.py", "x")
	newPath := stage(t, "new.py", "y")

	b := NewExecBuilder([]string{"sh", "-c", "echo boom >&2; exit 3"})
	_, err := b.Build(context.Background(), oldPath, newPath, meta())

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrBuilderFailed)
	assert.Contains(t, err.Error(), "boom")
}

func TestExecBuilder_MissingCommand(t *testing.T) {
	oldPath := stage(t, "old.py", "x")
	newPath := stage(t, "new.py", "y")

	b := NewExecBuilder([]string{"definitely-not-a-real-command-xyz"})
	_, err := b.Build(context.Background(), oldPath, newPath, meta())

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrBuilderFailed)
}
