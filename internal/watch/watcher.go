// Package watch monitors a ticket folder for local edits and triggers a
// sync after the edits settle.
package watch

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/issuefs/issuefs/internal/folder"
)

// DefaultSettle is how long the folder must stay quiet before a sync
// fires. Editors write files several times in quick succession; the
// debounce collapses those bursts into one sync.
const DefaultSettle = 2 * time.Second

// SyncFunc runs one synchronization pass.
type SyncFunc func(ctx context.Context) error

// Watcher watches one ticket folder's working tree.
type Watcher struct {
	dir    string
	settle time.Duration
	sync   SyncFunc
	log    *folder.OpLog
}

// New creates a watcher over the folder at dir. A settle of zero uses
// DefaultSettle.
func New(f *folder.Folder, settle time.Duration, sync SyncFunc) *Watcher {
	if settle <= 0 {
		settle = DefaultSettle
	}
	return &Watcher{
		dir:    f.Path,
		settle: settle,
		sync:   sync,
		log:    f.Log,
	}
}

// Run watches until the context is cancelled. Sync failures are logged
// and watching continues; only watcher failures end the loop.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	if err := fsw.Add(w.dir); err != nil {
		return err
	}

	timer := time.NewTimer(w.settle)
	if !timer.Stop() {
		<-timer.C
	}
	pending := false

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			w.log.Debugf("change detected: %s %s", event.Op, filepath.Base(event.Name))
			if pending && !timer.Stop() {
				<-timer.C
			}
			timer.Reset(w.settle)
			pending = true

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warnf("watch error: %v", err)

		case <-timer.C:
			pending = false
			if err := w.sync(ctx); err != nil {
				w.log.Errorf("sync failed: %v", err)
			}
		}
	}
}

// relevant filters out metadata-directory churn and dotfiles; only
// user-visible edits should trigger a sync.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return false
	}

	rel, err := filepath.Rel(w.dir, event.Name)
	if err != nil {
		return false
	}
	if strings.HasPrefix(rel, ".") {
		return false
	}
	return true
}
