package git

import (
	"context"
	"fmt"
	"strings"

	"github.com/issuefs/issuefs/internal/vcs"
)

// Checkout implements vcs.Checkout for a git working tree bound to a
// shared object store.
type Checkout struct {
	workTree string
	gitDir   string
}

var _ vcs.Checkout = (*Checkout)(nil)

// Root returns the working tree directory.
func (c *Checkout) Root() string {
	return c.workTree
}

// run executes git with explicit work-tree and git-dir flags, the same
// invocation shape for the flag-driven primary and the cloned shadow.
func (c *Checkout) run(ctx context.Context, args ...string) ([]byte, error) {
	full := append([]string{"--work-tree=" + c.workTree, "--git-dir=" + c.gitDir}, args...)
	return vcs.ExecContext(ctx, c.workTree, "git", full...)
}

// Stage stages all changes, including new and deleted files.
func (c *Checkout) Stage(ctx context.Context) error {
	if _, err := c.run(ctx, "add", "-A"); err != nil {
		return fmt.Errorf("stage: %w", err)
	}
	return nil
}

// Commit commits staged changes. An empty diff commits nothing and
// returns nil.
func (c *Checkout) Commit(ctx context.Context, message string) error {
	out, err := c.run(ctx, "commit", "-m", message)
	if err != nil {
		if isNothingToCommit(out, err) {
			return nil
		}
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// CommitEmpty creates a commit even with nothing staged. Folder
// initialization uses it for the root commit the shadow clone branches
// from; it is not part of the vcs.Checkout surface.
func (c *Checkout) CommitEmpty(ctx context.Context, message string) error {
	if _, err := c.run(ctx, "commit", "--allow-empty", "-m", message); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func isNothingToCommit(out []byte, err error) bool {
	combined := string(out) + err.Error()
	return strings.Contains(combined, "nothing to commit") ||
		strings.Contains(combined, "nothing added to commit")
}

// Stash saves uncommitted changes, including untracked files.
func (c *Checkout) Stash(ctx context.Context) error {
	out, err := c.run(ctx, "stash", "push", "--include-untracked")
	if err != nil {
		return fmt.Errorf("stash: %w", err)
	}
	if strings.Contains(string(out), "No local changes") {
		return vcs.ErrNothingToStash
	}
	return nil
}

// StashPop restores the most recent stash entry.
func (c *Checkout) StashPop(ctx context.Context) error {
	if _, err := c.run(ctx, "stash", "pop"); err != nil {
		if strings.Contains(err.Error(), "No stash entries") {
			return vcs.ErrNothingToStash
		}
		return fmt.Errorf("stash pop: %w", err)
	}
	return nil
}

// MergeFrom merges the named ref into the working tree. On textual
// conflict, git leaves conflict markers in the tree and the returned
// error carries git's output; issuefs does not resolve conflicts.
func (c *Checkout) MergeFrom(ctx context.Context, ref string) error {
	if _, err := c.run(ctx, "merge", ref); err != nil {
		return fmt.Errorf("merge %s: %w", ref, err)
	}
	return nil
}

// Fetch updates remote-tracking refs from the shared store.
func (c *Checkout) Fetch(ctx context.Context) error {
	if _, err := c.run(ctx, "fetch", "origin"); err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	return nil
}

// PushRef pushes the named ref into the shared store.
func (c *Checkout) PushRef(ctx context.Context, ref string) error {
	if _, err := c.run(ctx, "push", "origin", ref); err != nil {
		return fmt.Errorf("push %s: %w", ref, err)
	}
	return nil
}

// ReadFileAt reads a file's content as of the given ref.
func (c *Checkout) ReadFileAt(ctx context.Context, ref, path string) ([]byte, error) {
	out, err := c.run(ctx, "show", ref+":"+path)
	if err != nil {
		msg := err.Error()
		if strings.Contains(msg, "does not exist") ||
			strings.Contains(msg, "exists on disk, but not in") ||
			strings.Contains(msg, "invalid object name") ||
			strings.Contains(msg, "bad revision") {
			return nil, vcs.ErrPathNotFound
		}
		return nil, fmt.Errorf("show %s:%s: %w", ref, path, err)
	}
	return out, nil
}

// Untracked lists untracked files relative to the working tree root,
// honoring the configured excludes file.
func (c *Checkout) Untracked(ctx context.Context) ([]string, error) {
	out, err := c.run(ctx, "ls-files", "--others", "--exclude-standard")
	if err != nil {
		return nil, fmt.Errorf("ls-files --others: %w", err)
	}
	return vcs.ParseLines(out), nil
}

// Modified lists tracked files with uncommitted modifications.
func (c *Checkout) Modified(ctx context.Context) ([]string, error) {
	out, err := c.run(ctx, "ls-files", "--modified")
	if err != nil {
		return nil, fmt.Errorf("ls-files --modified: %w", err)
	}
	return vcs.ParseLines(out), nil
}

// MergeBase returns the most recent common ancestor of two refs.
func (c *Checkout) MergeBase(ctx context.Context, a, b string) (string, error) {
	out, err := c.run(ctx, "merge-base", a, b)
	if err != nil {
		return "", vcs.ErrNoMergeBase
	}
	return vcs.TrimOutput(out), nil
}
