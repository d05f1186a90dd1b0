// Package parser extracts named function units from Python source snapshots
// using tree-sitter. Snapshots come straight out of commit history, so
// malformed or partially written files are expected data: a parse failure
// degrades to an empty result and an informational log, never an error.
package parser

import (
	"context"

	"github.com/google/uuid"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/changegraph/changeminer/internal/domain"
)

// Logger defines the logging interface for the extractor.
type Logger interface {
	Info(ctx context.Context, msg string, fields map[string]any)
	Debug(ctx context.Context, msg string, fields map[string]any)
}

// Extractor parses one snapshot at a time. It is not goroutine-safe; each
// worker session owns its own instance.
type Extractor struct {
	parser *sitter.Parser
	logger Logger
}

// New creates an Extractor with a Python grammar loaded.
func New(log Logger) *Extractor {
	p := sitter.NewParser()
	p.SetLanguage(python.GetLanguage())
	return &Extractor{parser: p, logger: log}
}

// Extract parses the snapshot and returns every top-level function plus
// every function nested in class bodies, qualified by their enclosing class
// names. Returns nil when the snapshot does not parse cleanly.
func (e *Extractor) Extract(ctx context.Context, filePath, source string) []domain.Method {
	if source == "" {
		return nil
	}

	src := []byte(source)
	tree, err := e.parser.ParseCtx(ctx, nil, src)
	if err != nil || tree == nil {
		e.logger.Info(ctx, "unable to parse source snapshot", map[string]any{
			"file":  filePath,
			"error": err,
		})
		return nil
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil || root.HasError() {
		e.logger.Info(ctx, "source snapshot has syntax errors, skipping", map[string]any{
			"file": filePath,
		})
		return nil
	}

	methods := e.collect(root, src, source)
	e.logger.Debug(ctx, "extracted methods", map[string]any{
		"file":  filePath,
		"count": len(methods),
	})
	return methods
}

// collect walks the direct named children of a module or class body.
// Functions nested inside function bodies are intentionally not visited.
func (e *Extractor) collect(node *sitter.Node, src []byte, source string) []domain.Method {
	var methods []domain.Method
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child.Type() == "decorated_definition" {
			// The definition node's span excludes the decorators, matching
			// the span the builder receives.
			if def := child.ChildByFieldName("definition"); def != nil {
				child = def
			}
		}
		methods = append(methods, e.definition(child, src, source)...)
	}
	return methods
}

func (e *Extractor) definition(node *sitter.Node, src []byte, source string) []domain.Method {
	name := node.ChildByFieldName("name")
	if name == nil {
		return nil
	}

	switch node.Type() {
	case "function_definition":
		bare := name.Content(src)
		return []domain.Method{{
			ID:            uuid.NewString(),
			Name:          bare,
			QualifiedName: bare,
			Source:        source,
			StartByte:     node.StartByte(),
			EndByte:       node.EndByte(),
			Line:          name.StartPoint().Row + 1,
		}}

	case "class_definition":
		body := node.ChildByFieldName("body")
		if body == nil {
			return nil
		}
		// Prefix as the recursion unwinds: the innermost frame applies its
		// class name first, so arbitrarily deep nesting composes
		// outer-to-inner (Outer.Inner.run).
		nested := e.collect(body, src, source)
		class := name.Content(src)
		for i := range nested {
			nested[i].QualifiedName = class + domain.QualifiedNameSeparator + nested[i].QualifiedName
		}
		return nested
	}

	return nil
}
