// Package engine orchestrates synchronization between a ticket folder
// and the remote issue tracker.
//
// One sync is fetch, merge, push, in that order: fetch renders remote
// state into the shadow tree and publishes it on the tracking ref,
// merge applies that ref to the working tree with the backend's own
// three-way merge, and push uploads whatever the working tree changed.
// The engine is single-threaded and blocking; every network call and
// backend invocation runs to completion before the next begins. There
// is no mid-operation rollback: a failed push leaves remote-file
// metadata and the working tree to be reconciled by the next sync.
package engine

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/issuefs/issuefs/internal/codec"
	"github.com/issuefs/issuefs/internal/folder"
	"github.com/issuefs/issuefs/internal/tracker"
	"github.com/issuefs/issuefs/internal/vcs"
)

// Engine drives sync for one ticket folder. Not safe for concurrent
// use; a folder has no cross-process locking either.
type Engine struct {
	folder *folder.Folder
	client tracker.Client
	codec  *codec.Codec

	// Explicit in-memory caches, scoped to this engine instance.
	live   *tracker.IssueSnapshot
	cached *tracker.IssueSnapshot
}

// New creates an engine over an opened folder and a tracker client.
func New(f *folder.Folder, client tracker.Client) *Engine {
	return &Engine{
		folder: f,
		client: client,
		codec:  f.Codec(),
	}
}

// Issue returns the remote issue, fetching it over the network on the
// first call and reusing the result for this engine's lifetime.
func (e *Engine) Issue(ctx context.Context) (*tracker.IssueSnapshot, error) {
	if e.live != nil {
		return e.live, nil
	}
	snap, err := e.client.Issue(ctx, e.folder.Key)
	if err != nil {
		return nil, err
	}
	e.live = snap
	return snap, nil
}

// CachedIssue returns the issue reconstructed from the persisted
// snapshot, degrading to a live fetch when the snapshot cannot be
// read. The read failure is logged, not surfaced.
func (e *Engine) CachedIssue(ctx context.Context) (*tracker.IssueSnapshot, error) {
	if e.cached != nil {
		return e.cached, nil
	}
	snap, err := e.folder.CachedSnapshot()
	if err != nil {
		e.folder.Log.Errorf("error loading cached issue: %v", err)
		snap, err = e.Issue(ctx)
		if err != nil {
			return nil, err
		}
	}
	e.cached = snap
	return snap, nil
}

// Fetch retrieves the remote issue, downloads changed attachments into
// the shadow tree, renders all fields there, persists the cached
// snapshot, commits the shadow tree, and publishes the tracking ref.
func (e *Engine) Fetch(ctx context.Context) error {
	issue, err := e.Issue(ctx)
	if err != nil {
		return err
	}

	meta, err := e.folder.RemoteFileMetadata()
	if err != nil {
		return err
	}

	changed, err := e.remotelyChanged(issue, meta)
	if err != nil {
		return err
	}
	for _, att := range changed {
		e.folder.Log.Infof("downloading file %q", att.Filename)
		content, err := e.client.DownloadAttachment(ctx, att)
		if err != nil {
			return fmt.Errorf("download %s: %w", att.Filename, err)
		}
		if err := os.WriteFile(e.folder.ShadowPath(att.Filename), content, 0o644); err != nil {
			return fmt.Errorf("write %s to shadow tree: %w", att.Filename, err)
		}
		meta[att.Filename] = att.Created
	}
	if err := e.folder.SetRemoteFileMetadata(meta); err != nil {
		return err
	}

	for name, data := range e.codec.Render(issue) {
		if err := os.WriteFile(e.folder.ShadowPath(name), data, 0o644); err != nil {
			return fmt.Errorf("render %s: %w", name, err)
		}
	}

	if err := e.folder.StoreSnapshot(issue); err != nil {
		return err
	}

	shadow := e.folder.Shadow()
	if err := shadow.Stage(ctx); err != nil {
		return err
	}
	if err := shadow.Commit(ctx, "Fetched remote changes"); err != nil {
		return err
	}
	return shadow.PushRef(ctx, folder.TrackingRef)
}

// Merge applies the tracking ref onto the working tree, preserving
// uncommitted local edits across the merge with a stash/pop cycle.
// Stash and pop failures (typically: nothing to stash) are expected
// and not errors; merge failures surface the backend's conflict
// output.
func (e *Engine) Merge(ctx context.Context) error {
	work := e.folder.Work()

	if err := work.Stash(ctx); err != nil && !errors.Is(err, vcs.ErrNothingToStash) {
		e.folder.Log.Debugf("stash before merge: %v", err)
	}

	mergeErr := work.MergeFrom(ctx, folder.TrackingRef)

	if err := work.StashPop(ctx); err != nil && !errors.Is(err, vcs.ErrNothingToStash) {
		e.folder.Log.Debugf("stash pop after merge: %v", err)
	}

	return mergeErr
}

// Pull is fetch followed by merge.
func (e *Engine) Pull(ctx context.Context) error {
	if err := e.Fetch(ctx); err != nil {
		return err
	}
	return e.Merge(ctx)
}

// Push uploads local changes: new and modified files as attachments
// (last write wins; an existing remote file of the same name is deleted
// first), the pending comment buffer, and locally differing field
// values in one batched update. It then commits the working tree and
// records the new attachment tokens in the shadow tree so a just-
// uploaded file is not re-detected as remotely changed.
func (e *Engine) Push(ctx context.Context) error {
	status, err := e.Status(ctx)
	if err != nil {
		return err
	}

	issue, err := e.Issue(ctx)
	if err != nil {
		return err
	}

	meta, err := e.folder.RemoteFileMetadata()
	if err != nil {
		return err
	}

	for _, filename := range status.ToUpload {
		content, err := os.ReadFile(e.folder.LocalPath(filename))
		if err != nil {
			return fmt.Errorf("read %s: %w", filename, err)
		}
		e.folder.Log.Infof("uploading file %q", filename)
		for _, att := range issue.Attachments {
			if att.Filename == filename {
				if err := e.client.DeleteAttachment(ctx, att.ID); err != nil {
					return err
				}
			}
		}
		stored, err := e.client.AddAttachment(ctx, e.folder.Key, filename, content)
		if err != nil {
			return err
		}
		meta[filename] = stored.Created
	}

	comment, err := e.folder.NewComment(true)
	if err != nil {
		return err
	}
	if comment != "" {
		e.folder.Log.Infof("adding comment %q", comment)
		if err := e.client.AddComment(ctx, e.folder.Key, comment); err != nil {
			return err
		}
	}

	if len(status.LocalDiffers) > 0 {
		updates := make(map[string]any, len(status.LocalDiffers))
		for field, diff := range status.LocalDiffers {
			updates[field] = diff.Local
		}
		e.folder.Log.Infof("updating fields %v", updates)
		if err := e.client.UpdateFields(ctx, e.folder.Key, updates); err != nil {
			return err
		}
	}

	work := e.folder.Work()
	if err := work.Stage(ctx); err != nil {
		return err
	}
	if err := work.Commit(ctx, "Pushed local changes"); err != nil {
		return err
	}

	// Fold the local commit into shadow history, then record the new
	// attachment tokens there and publish the tracking ref so the
	// working tree absorbs them on the next merge.
	shadow := e.folder.Shadow()
	if err := shadow.Fetch(ctx); err != nil {
		return err
	}
	if err := shadow.MergeFrom(ctx, "origin/"+folder.MainBranch); err != nil {
		return err
	}
	if err := e.folder.SetRemoteFileMetadata(meta); err != nil {
		return err
	}
	if err := shadow.Stage(ctx); err != nil {
		return err
	}
	if err := shadow.Commit(ctx, "Recorded remote file metadata"); err != nil {
		return err
	}
	return shadow.PushRef(ctx, folder.TrackingRef)
}

// Sync is pull followed by push. Fetch always completes and is merged
// before push begins, so a push operates on a working tree that has
// absorbed the latest known remote state.
func (e *Engine) Sync(ctx context.Context) error {
	if err := e.Pull(ctx); err != nil {
		return err
	}
	return e.Push(ctx)
}

// remotelyChanged returns attachments whose change token differs from
// the recorded one and which no remote ignore glob excludes.
func (e *Engine) remotelyChanged(issue *tracker.IssueSnapshot, meta map[string]string) ([]tracker.Attachment, error) {
	globs := e.folder.IgnoreGlobs(folder.RemoteIgnoreFileName)

	var changed []tracker.Attachment
	for _, att := range issue.Attachments {
		if folder.MatchesGlobs(att.Filename, globs) {
			continue
		}
		if meta[att.Filename] != att.Created {
			changed = append(changed, att)
		}
	}
	return changed, nil
}
