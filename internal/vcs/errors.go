package vcs

import "errors"

// Common errors returned by checkout operations.
//
// These are checked with errors.Is():
//
//	if errors.Is(err, vcs.ErrNothingToStash) {
//	    // nothing was stashed; continue
//	}
var (
	// ErrNoMergeBase is returned by MergeBase when the two refs share
	// no common ancestor, or when one of them does not exist yet.
	ErrNoMergeBase = errors.New("refs have no merge base")

	// ErrPathNotFound is returned by ReadFileAt when the path does not
	// exist at the requested ref.
	ErrPathNotFound = errors.New("path does not exist at ref")

	// ErrNothingToStash is returned by Stash and StashPop when there
	// are no changes to save or no stash entries to restore.
	ErrNothingToStash = errors.New("no stash entries")

	// ErrBackendNotAvailable is returned when the version-control
	// binary is not installed or not in PATH.
	ErrBackendNotAvailable = errors.New("version control binary not available")
)
