// Package git materializes commit history from local working copies using
// go-git/v5. It implements the domain.CommitSource interface.
package git

import (
	"context"
	"fmt"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/utils/merkletrie"

	"github.com/changegraph/changeminer/internal/domain"
)

// Logger defines the logging interface for the git adapter.
type Logger interface {
	Info(ctx context.Context, msg string, fields map[string]any)
	Debug(ctx context.Context, msg string, fields map[string]any)
	Warn(ctx context.Context, msg string, fields map[string]any)
}

// GoGitExtractor implements domain.CommitSource using go-git/v5. The go-git
// session stays inside this type; extracted commits carry plain strings only
// and can be handed to the worker pool freely.
type GoGitExtractor struct {
	repo   *git.Repository
	ident  domain.Repository
	logger Logger
}

// NewGoGitExtractor opens the working copy at path and resolves its origin
// remote URL. Returns domain.ErrRepositoryNotFound if the path is not a git
// repository and domain.ErrNoRemoteOrigin if no origin remote is configured;
// both are fatal to a run.
func NewGoGitExtractor(name, path string, log Logger) (*GoGitExtractor, error) {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrRepositoryNotFound, path)
	}

	remote, err := repo.Remote("origin")
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrNoRemoteOrigin, path, err)
	}
	urls := remote.Config().URLs
	if len(urls) == 0 {
		return nil, fmt.Errorf("%w: origin remote has no URLs configured", domain.ErrNoRemoteOrigin)
	}

	return &GoGitExtractor{
		repo: repo,
		ident: domain.Repository{
			Name: name,
			Path: path,
			URL:  urls[0],
		},
		logger: log,
	}, nil
}

// Repository returns the identity of the mined working copy.
func (e *GoGitExtractor) Repository() domain.Repository {
	return e.ident
}

// ExtractCommits walks history from HEAD and returns a fully materialized
// record per commit that has at least one parent. Root commits are excluded
// entirely: there is no before-state to diff against.
func (e *GoGitExtractor) ExtractCommits(ctx context.Context) ([]domain.Commit, error) {
	start := time.Now()

	head, err := e.repo.Head()
	if err != nil {
		return nil, fmt.Errorf("failed to get HEAD: %w", err)
	}

	iter, err := e.repo.Log(&git.LogOptions{From: head.Hash()})
	if err != nil {
		return nil, fmt.Errorf("failed to open commit log: %w", err)
	}

	var commits []domain.Commit
	err = iter.ForEach(func(c *object.Commit) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if c.NumParents() == 0 {
			return nil
		}

		mods, err := e.modifications(ctx, c)
		if err != nil {
			return err
		}

		commits = append(commits, domain.Commit{
			Seq:           len(commits) + 1,
			Hash:          c.Hash.String(),
			Message:       c.Message,
			Modifications: mods,
			Repo:          e.ident,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk commit history: %w", err)
	}

	e.logger.Info(ctx, "commits extracted", map[string]any{
		"repository": e.ident.Name,
		"commits":    len(commits),
		"elapsed":    time.Since(start).String(),
	})
	return commits, nil
}

// modifications diffs the commit against its first parent with rename
// detection and inlines the full before/after text of every changed file.
func (e *GoGitExtractor) modifications(ctx context.Context, c *object.Commit) ([]domain.Modification, error) {
	parent, err := c.Parent(0)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve parent of %s: %w", c.Hash, err)
	}

	parentTree, err := parent.Tree()
	if err != nil {
		return nil, fmt.Errorf("failed to get parent tree of %s: %w", c.Hash, err)
	}
	tree, err := c.Tree()
	if err != nil {
		return nil, fmt.Errorf("failed to get tree of %s: %w", c.Hash, err)
	}

	changes, err := object.DiffTreeWithOptions(ctx, parentTree, tree, object.DefaultDiffTreeOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to diff trees of %s: %w", c.Hash, err)
	}

	mods := make([]domain.Modification, 0, len(changes))
	for _, change := range changes {
		action, err := change.Action()
		if err != nil {
			return nil, fmt.Errorf("failed to classify change in %s: %w", c.Hash, err)
		}

		from, to, err := change.Files()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve changed files in %s: %w", c.Hash, err)
		}

		mod := domain.Modification{
			OldPath:   change.From.Name,
			NewPath:   change.To.Name,
			OldSource: e.contents(ctx, from),
			NewSource: e.contents(ctx, to),
		}

		switch action {
		case merkletrie.Insert:
			mod.Kind = domain.ChangeAdded
		case merkletrie.Delete:
			mod.Kind = domain.ChangeDeleted
		case merkletrie.Modify:
			if change.From.Name != change.To.Name {
				mod.Kind = domain.ChangeRenamed
			} else {
				mod.Kind = domain.ChangeModified
			}
		}

		mods = append(mods, mod)
	}
	return mods, nil
}

// contents returns the full text of a file, or empty when the file is
// absent, binary, or unreadable. An unreadable blob degrades only that
// side of the modification.
func (e *GoGitExtractor) contents(ctx context.Context, f *object.File) string {
	if f == nil {
		return ""
	}
	if bin, err := f.IsBinary(); err != nil || bin {
		return ""
	}
	text, err := f.Contents()
	if err != nil {
		e.logger.Warn(ctx, "unable to read blob contents", map[string]any{
			"file":  f.Name,
			"error": err.Error(),
		})
		return ""
	}
	return text
}
