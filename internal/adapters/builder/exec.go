// Package builder invokes the external change-graph builder. The builder is
// a separate program: it receives the two staged method snapshots as its
// final arguments, pair metadata in its environment, and writes the graph
// serialization to stdout. The pipeline never inspects those bytes.
package builder

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/changegraph/changeminer/internal/domain"
)

// ExecBuilder implements domain.GraphBuilder by running a configured command.
type ExecBuilder struct {
	argv []string
}

// NewExecBuilder creates a builder for the given argv. The argv must be
// non-empty; config validation guarantees this in production wiring.
func NewExecBuilder(argv []string) *ExecBuilder {
	return &ExecBuilder{argv: argv}
}

// Build runs the builder command on the two staged snapshots. Any spawn or
// exit failure is wrapped in domain.ErrBuilderFailed for the caller to
// log-and-skip; stderr is included in the error for diagnostics.
func (b *ExecBuilder) Build(
	ctx context.Context,
	oldPath, newPath string,
	meta domain.PairMetadata,
) (domain.ChangeGraph, error) {
	args := append(append([]string{}, b.argv[1:]...), oldPath, newPath)
	cmd := exec.CommandContext(ctx, b.argv[0], args...)
	cmd.Env = append(os.Environ(),
		"CHANGEGRAPH_REPO_NAME="+meta.Repo.Name,
		"CHANGEGRAPH_REPO_PATH="+meta.Repo.Path,
		"CHANGEGRAPH_REPO_URL="+meta.Repo.URL,
		"CHANGEGRAPH_COMMIT="+meta.CommitHash,
		"CHANGEGRAPH_OLD_METHOD="+meta.Old.QualifiedName,
		"CHANGEGRAPH_NEW_METHOD="+meta.New.QualifiedName,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail != "" {
			return domain.ChangeGraph{}, fmt.Errorf("%w: %w: %s", domain.ErrBuilderFailed, err, detail)
		}
		return domain.ChangeGraph{}, fmt.Errorf("%w: %w", domain.ErrBuilderFailed, err)
	}

	return domain.ChangeGraph{
		RepoName:   meta.Repo.Name,
		RepoURL:    meta.Repo.URL,
		CommitHash: meta.CommitHash,
		MethodName: meta.Old.QualifiedName,
		Data:       stdout.Bytes(),
	}, nil
}
