// Package domain defines the core entities and interfaces of the change-graph
// mining pipeline. It contains no external dependencies and represents the
// innermost layer of the architecture.
package domain

import "strings"

// ChangeKind classifies how a commit touched a file.
type ChangeKind string

const (
	ChangeAdded    ChangeKind = "added"
	ChangeDeleted  ChangeKind = "deleted"
	ChangeModified ChangeKind = "modified"
	ChangeRenamed  ChangeKind = "renamed"
)

// Repository identifies one mined working copy. Immutable once constructed.
type Repository struct {
	// Name is the directory name under the repositories root.
	Name string

	// Path is the absolute path of the working copy.
	Path string

	// URL is the configured origin remote URL.
	URL string
}

// Modification is one file-level change within a commit. Source fields hold
// the complete file text; an empty string means the side does not exist
// (added/deleted files) or the blob is binary.
type Modification struct {
	Kind      ChangeKind
	OldPath   string
	OldSource string
	NewPath   string
	NewSource string
}

// Commit is a fully materialized commit record. It carries everything a
// worker needs and keeps no live handle to the underlying git session, so it
// can be handed across the worker pool freely. Commits without a parent are
// never materialized: there is no before-state to diff against.
type Commit struct {
	// Seq is the 1-based position among the repository's kept commits.
	Seq int

	Hash          string
	Message       string
	Modifications []Modification
	Repo          Repository
}

// Method is one named function or method extracted from a single source
// snapshot. It lives only for the duration of one commit task.
type Method struct {
	// ID is a synthetic identifier unique per extracted method. Methods are
	// matched by QualifiedName; the ID only disambiguates log output.
	ID string

	// Name is the bare function name.
	Name string

	// QualifiedName is the dot-joined path of enclosing class names
	// (outermost first) followed by Name, e.g. "Outer.Inner.run".
	QualifiedName string

	// Source is the complete file text the method was extracted from.
	// StartByte/EndByte delimit the method's span within it.
	Source    string
	StartByte uint32
	EndByte   uint32

	// Line is the 1-based line of the method definition, for diagnostics.
	Line uint32
}

// Snippet recovers the method's exact source text from its span. The second
// return is false when the span does not fit the source, which counts as an
// extraction-span failure and skips the method.
func (m Method) Snippet() (string, bool) {
	if m.StartByte >= m.EndByte || int(m.EndByte) > len(m.Source) {
		return "", false
	}
	return m.Source[m.StartByte:m.EndByte], true
}

// MethodPair is a before/after pair of the same qualified name.
type MethodPair struct {
	Old Method
	New Method
}

// PairMetadata describes a matched pair for the external builder.
type PairMetadata struct {
	Repo       Repository
	CommitHash string
	Old        Method
	New        Method
}

// ChangeGraph is the opaque artifact produced by the external builder. The
// pipeline never inspects Data; the remaining fields record provenance so a
// stored artifact can be traced back without the run's logs.
type ChangeGraph struct {
	RepoName   string
	RepoURL    string
	CommitHash string
	MethodName string
	Data       []byte
}

// RunSummary aggregates counters across one mining run.
type RunSummary struct {
	Repositories int
	Commits      int
	Pairs        int
	Graphs       int
	Artifacts    int

	// BuildFailures counts pairs the external builder rejected.
	BuildFailures int

	// TaskFailures counts commit tasks that were abandoned after a storage
	// failure or panic. The pool keeps running regardless.
	TaskFailures int
}

// FlattenMessage collapses a commit message to a single log-friendly line.
func FlattenMessage(msg string) string {
	return strings.TrimSpace(strings.ReplaceAll(msg, "\n", "; "))
}

// Defaults shared between configuration and tests.
const (
	// DefaultFileExtension is the extension of source snapshots that are
	// mined; modifications to any other file type are ignored.
	DefaultFileExtension = ".py"

	// DefaultExcludePrefix marks repository directories to skip.
	DefaultExcludePrefix = "_"

	// DefaultBatchSize is the number of graphs buffered before a flush.
	DefaultBatchSize = 300

	// DefaultRecycleAfter is the number of commit tasks a worker processes
	// before its parser and batch store are rebuilt.
	DefaultRecycleAfter = 1000

	// QualifiedNameSeparator joins enclosing class names with method names.
	QualifiedNameSeparator = "."
)
