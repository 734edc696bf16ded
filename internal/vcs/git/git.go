// Package git implements the vcs.Checkout interface with the git binary.
//
// A ticket folder carries one bare object store (.issuefs/git) and two
// working trees bound to it:
//
//   - the primary checkout: the folder itself, driven with explicit
//     --work-tree/--git-dir flags against the bare store
//   - the shadow checkout: a clone under .issuefs/shadow whose origin is
//     the bare store, holding the last-fetched remote rendering
//
// The shadow checkout pushes the tracking branch into the store; the
// primary checkout merges it from there. Git's own three-way merge is the
// conflict-resolution substrate, so issuefs never diffs fields itself.
package git

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"

	"github.com/issuefs/issuefs/internal/vcs"
)

// Commit identity used for machine-made sync commits. Folder histories
// are local plumbing, not authored work.
const (
	commitName  = "issuefs"
	commitEmail = "issuefs@localhost"
)

// Store is a bare git repository shared by the primary and shadow
// checkouts of one ticket folder.
type Store struct {
	dir string
}

// Available reports whether the git binary can be found.
func Available() error {
	if _, err := exec.LookPath("git"); err != nil {
		return vcs.ErrBackendNotAvailable
	}
	return nil
}

// InitStore creates a bare repository at dir with the given default
// branch, configured to use excludesFile for untracked-file exclusion.
func InitStore(ctx context.Context, dir, branch, excludesFile string) (*Store, error) {
	if _, err := vcs.ExecContext(ctx, filepath.Dir(dir), "git", "init", "--bare", "-b", branch, dir); err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	s := &Store{dir: dir}
	settings := [][2]string{
		{"core.excludesfile", excludesFile},
		{"user.name", commitName},
		{"user.email", commitEmail},
	}
	for _, kv := range settings {
		if err := s.config(ctx, kv[0], kv[1]); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// OpenStore returns a handle to an existing bare store. It does not
// verify the directory; callers check folder structure beforehand.
func OpenStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the bare repository directory.
func (s *Store) Dir() string {
	return s.dir
}

// Checkout binds a working tree to the store. The returned checkout
// drives git with explicit --work-tree/--git-dir flags, so the tree
// needs no .git of its own.
func (s *Store) Checkout(workTree string) *Checkout {
	return &Checkout{workTree: workTree, gitDir: s.dir}
}

// CloneShadow clones the store into dest and leaves it on a fresh
// branch named ref. The clone's origin is the store, which is how the
// shadow later pushes the tracking ref back for the primary to merge.
func (s *Store) CloneShadow(ctx context.Context, dest, ref string) (*Checkout, error) {
	if _, err := vcs.ExecContext(ctx, filepath.Dir(dest), "git", "clone", s.dir, dest); err != nil {
		return nil, fmt.Errorf("clone shadow: %w", err)
	}

	c := &Checkout{workTree: dest, gitDir: filepath.Join(dest, ".git")}
	for _, kv := range [][2]string{{"user.name", commitName}, {"user.email", commitEmail}} {
		if _, err := c.run(ctx, "config", kv[0], kv[1]); err != nil {
			return nil, err
		}
	}
	if _, err := c.run(ctx, "checkout", "-b", ref); err != nil {
		return nil, fmt.Errorf("create shadow branch: %w", err)
	}
	return c, nil
}

// OpenShadow returns a checkout for an existing shadow clone at dest.
func OpenShadow(dest string) *Checkout {
	return &Checkout{workTree: dest, gitDir: filepath.Join(dest, ".git")}
}

func (s *Store) config(ctx context.Context, key, value string) error {
	_, err := vcs.ExecContext(ctx, filepath.Dir(s.dir), "git", "config", "--file", filepath.Join(s.dir, "config"), key, value)
	if err != nil {
		return fmt.Errorf("configure store: %w", err)
	}
	return err
}
