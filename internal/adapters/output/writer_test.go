package output

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/changegraph/changeminer/internal/domain"
)

func TestWriteSummary(t *testing.T) {
	tests := []struct {
		name    string
		summary *domain.RunSummary
		want    string
	}{
		{
			name: "populated counters",
			summary: &domain.RunSummary{
				Repositories:  2,
				Commits:       14,
				Pairs:         9,
				Graphs:        7,
				Artifacts:     3,
				BuildFailures: 2,
				TaskFailures:  1,
			},
			want: "repositories: 2\ncommits: 14\npairs: 9\ngraphs: 7\nartifacts: 3\nbuild failures: 2\ntask failures: 1\n",
		},
		{
			name:    "empty run",
			summary: &domain.RunSummary{},
			want:    "repositories: 0\ncommits: 0\npairs: 0\ngraphs: 0\nartifacts: 0\nbuild failures: 0\ntask failures: 0\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			w := NewWriterWithOutput(&buf)

			err := w.WriteSummary(tt.summary)

			require.NoError(t, err)
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

// failingWriter always fails, for exercising the error path.
type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("write failed")
}

func TestWriteSummary_PropagatesWriteError(t *testing.T) {
	w := NewWriterWithOutput(failingWriter{})

	err := w.WriteSummary(&domain.RunSummary{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "write failed")
}
