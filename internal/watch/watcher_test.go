package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/issuefs/issuefs/internal/folder"
)

func testWatcher(t *testing.T, dir string, settle time.Duration, sync SyncFunc) *Watcher {
	t.Helper()
	return &Watcher{
		dir:    dir,
		settle: settle,
		sync:   sync,
		log:    folder.NewOpLog(filepath.Join(t.TempDir(), "operation.log"), "PROJ-1", nil),
	}
}

func TestRelevant(t *testing.T) {
	w := testWatcher(t, "/tickets/proj-1", DefaultSettle, nil)

	tests := []struct {
		name string
		op   fsnotify.Op
		want bool
	}{
		{"/tickets/proj-1/details.issue.txt", fsnotify.Write, true},
		{"/tickets/proj-1/notes.txt", fsnotify.Create, true},
		{"/tickets/proj-1/notes.txt", fsnotify.Remove, true},
		{"/tickets/proj-1/notes.txt", fsnotify.Chmod, false},
		{"/tickets/proj-1/.issuefs/operation.log", fsnotify.Write, false},
		{"/tickets/proj-1/.issuefs_ignore", fsnotify.Write, false},
	}

	for _, tt := range tests {
		event := fsnotify.Event{Name: tt.name, Op: tt.op}
		if got := w.relevant(event); got != tt.want {
			t.Errorf("relevant(%s %s) = %v, want %v", tt.op, tt.name, got, tt.want)
		}
	}
}

func TestRunSyncsAfterSettle(t *testing.T) {
	dir := t.TempDir()
	synced := make(chan struct{}, 1)

	w := testWatcher(t, dir, 50*time.Millisecond, func(ctx context.Context) error {
		select {
		case synced <- struct{}{}:
		default:
		}
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Give the watcher a moment to register before producing events.
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("edit"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-synced:
	case <-ctx.Done():
		t.Fatal("sync did not fire after the settle interval")
	}

	cancel()
	if err := <-done; err != context.Canceled && err != context.DeadlineExceeded {
		t.Errorf("run returned %v", err)
	}
}

func TestNewDefaultsSettle(t *testing.T) {
	f := &folder.Folder{Path: "/tickets/proj-1"}
	w := New(f, 0, nil)
	if w.settle != DefaultSettle {
		t.Errorf("settle = %v, want %v", w.settle, DefaultSettle)
	}
}
