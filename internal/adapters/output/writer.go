// Package output provides adapters for writing application output.
package output

import (
	"fmt"
	"io"
	"os"

	"github.com/changegraph/changeminer/internal/domain"
)

// Writer writes the run summary to the configured output destination.
// By default, it writes to stdout.
type Writer struct {
	out io.Writer
}

// NewWriter creates a new Writer that writes to stdout.
func NewWriter() *Writer {
	return &Writer{out: os.Stdout}
}

// NewWriterWithOutput creates a new Writer with a custom output destination.
// This is useful for testing.
func NewWriterWithOutput(out io.Writer) *Writer {
	return &Writer{out: out}
}

// WriteSummary writes one line per counter, machine-grepable.
func (w *Writer) WriteSummary(summary *domain.RunSummary) error {
	_, err := fmt.Fprintf(w.out,
		"repositories: %d\ncommits: %d\npairs: %d\ngraphs: %d\nartifacts: %d\nbuild failures: %d\ntask failures: %d\n",
		summary.Repositories,
		summary.Commits,
		summary.Pairs,
		summary.Graphs,
		summary.Artifacts,
		summary.BuildFailures,
		summary.TaskFailures,
	)
	return err
}
