// Package vcs defines the narrow version-control surface issuefs needs.
//
// issuefs keeps two working trees bound to one shared object store: the
// user-facing ticket folder (the primary checkout) and a hidden shadow
// checkout that mirrors the last-fetched remote rendering. Everything the
// sync engine asks of version control goes through the Checkout interface,
// so "what changed remotely" and "what changed locally" are both answered
// by ordinary diffing against a shared history instead of bespoke logic.
//
// The git implementation lives in internal/vcs/git.
package vcs

import "context"

// Checkout is a working tree bound to a shared object store.
//
// Two checkouts of the same store see each other's commits: the shadow
// checkout pushes the tracking ref into the store, and the primary
// checkout merges that ref with the backend's own three-way merge.
type Checkout interface {
	// Root returns the working tree directory.
	Root() string

	// Stage stages all changes in the working tree, including new files.
	Stage(ctx context.Context) error

	// Commit commits staged changes. Committing with nothing staged is
	// a no-op, not an error.
	Commit(ctx context.Context, message string) error

	// Stash saves uncommitted changes, including untracked files.
	// Having nothing to stash is reported as ErrNothingToStash.
	Stash(ctx context.Context) error

	// StashPop restores the most recent stash. An empty stash list is
	// reported as ErrNothingToStash.
	StashPop(ctx context.Context) error

	// MergeFrom merges the named ref into the working tree. Textual
	// conflicts are left in the tree with the backend's conflict
	// markers; the error carries the backend output.
	MergeFrom(ctx context.Context, ref string) error

	// Fetch updates remote-tracking refs from the shared store.
	Fetch(ctx context.Context) error

	// PushRef pushes the named ref into the shared store.
	PushRef(ctx context.Context, ref string) error

	// ReadFileAt reads a file's content as of the given ref.
	// A path absent at that ref is reported as ErrPathNotFound.
	ReadFileAt(ctx context.Context, ref, path string) ([]byte, error)

	// Untracked lists untracked files, honoring the configured
	// excludes file.
	Untracked(ctx context.Context) ([]string, error)

	// Modified lists tracked files with uncommitted modifications.
	Modified(ctx context.Context) ([]string, error)

	// MergeBase returns the most recent common ancestor of two refs.
	// Histories without one are reported as ErrNoMergeBase.
	MergeBase(ctx context.Context, a, b string) (string, error)
}
