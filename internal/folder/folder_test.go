package folder

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/issuefs/issuefs/internal/codec"
	"github.com/issuefs/issuefs/internal/vcs/git"
)

func TestInferKey(t *testing.T) {
	tests := []struct {
		dir     string
		want    string
		wantErr bool
	}{
		{dir: "/tickets/proj-42", want: "PROJ-42"},
		{dir: "/tickets/ABC-1", want: "ABC-1"},
		{dir: "/tickets/ops_team-9", want: "OPS_TEAM-9"},
		{dir: "/tickets/notakey", wantErr: true},
		{dir: "/tickets/abc-", wantErr: true},
		{dir: "/tickets/abc-12x", wantErr: true},
	}

	for _, tt := range tests {
		got, err := InferKey(tt.dir)
		if tt.wantErr {
			if !errors.Is(err, ErrCannotInferKey) {
				t.Errorf("InferKey(%q) err = %v, want ErrCannotInferKey", tt.dir, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("InferKey(%q): %v", tt.dir, err)
			continue
		}
		if got != tt.want {
			t.Errorf("InferKey(%q) = %q, want %q", tt.dir, got, tt.want)
		}
	}
}

func TestMatchesGlobs(t *testing.T) {
	globs := []string{"*.issue.txt", "build/*.log"}

	tests := []struct {
		name string
		want bool
	}{
		{"details.issue.txt", true},
		{"sub/details.issue.txt", true}, // base name matches
		{"build/run.log", true},
		{"notes.txt", false},
		{"run.log", false},
	}

	for _, tt := range tests {
		if got := MatchesGlobs(tt.name, globs); got != tt.want {
			t.Errorf("MatchesGlobs(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestIgnoreGlobsAssemblyOrder(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	dir := t.TempDir()
	f := &Folder{Path: dir, codec: codec.New()}

	local := "# local patterns\n*.bak\n\n*.swp\n"
	if err := os.WriteFile(filepath.Join(dir, IgnoreFileName), []byte(local), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(home, IgnoreFileName), []byte("*.log\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	globs := f.IgnoreGlobs(IgnoreFileName)

	builtin := f.codec.RenderedFilenames()
	want := append(append([]string{}, builtin...), "*.bak", "*.swp", "*.log")
	if len(globs) != len(want) {
		t.Fatalf("globs = %v, want %v", globs, want)
	}
	for i := range want {
		if globs[i] != want[i] {
			t.Errorf("globs[%d] = %q, want %q", i, globs[i], want[i])
		}
	}
}

func TestVersionMarker(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, MetadataDirName), 0o755); err != nil {
		t.Fatal(err)
	}
	f := &Folder{Path: dir}

	if v := f.Version(); v != 1 {
		t.Errorf("missing marker: version = %d, want 1", v)
	}

	if err := f.WriteVersion(3); err != nil {
		t.Fatalf("write version: %v", err)
	}
	if v := f.Version(); v != 3 {
		t.Errorf("version = %d, want 3", v)
	}

	if err := os.WriteFile(f.MetadataPath(versionFileName), []byte("garbage\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if v := f.Version(); v != 1 {
		t.Errorf("garbage marker: version = %d, want 1", v)
	}
}

func TestNewCommentBuffer(t *testing.T) {
	dir := t.TempDir()
	f := &Folder{Path: dir}

	got, err := f.NewComment(false)
	if err != nil || got != "" {
		t.Errorf("missing buffer: (%q, %v), want empty", got, err)
	}

	if err := os.WriteFile(f.LocalPath(codec.NewCommentFile), []byte("  looks good\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err = f.NewComment(true)
	if err != nil {
		t.Fatalf("read comment: %v", err)
	}
	if got != "looks good" {
		t.Errorf("comment = %q, want %q", got, "looks good")
	}

	data, err := os.ReadFile(f.LocalPath(codec.NewCommentFile))
	if err != nil {
		t.Fatalf("buffer should survive clearing: %v", err)
	}
	if len(data) != 0 {
		t.Errorf("buffer not cleared: %q", data)
	}
}

func TestRemoteFileMetadataRoundTrip(t *testing.T) {
	f := &Folder{Path: t.TempDir()}

	meta, err := f.RemoteFileMetadata()
	if err != nil {
		t.Fatalf("missing metadata file: %v", err)
	}
	if len(meta) != 0 {
		t.Errorf("missing metadata file should read empty, got %v", meta)
	}

	want := map[string]string{"spec.pdf": "2024-01-05T10:00:00.000+0000"}
	if err := f.SetRemoteFileMetadata(want); err != nil {
		t.Fatalf("set metadata: %v", err)
	}
	meta, err = f.RemoteFileMetadata()
	if err != nil {
		t.Fatalf("read metadata: %v", err)
	}
	if meta["spec.pdf"] != want["spec.pdf"] {
		t.Errorf("metadata = %v, want %v", meta, want)
	}
}

func TestOpLogFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "operation.log")
	var echo bytes.Buffer

	log := NewOpLog(path, "PROJ-1", &echo)
	log.now = func() time.Time {
		return time.Date(2024, 3, 4, 5, 6, 7, 0, time.UTC)
	}

	log.Debugf("multi\nline detail")
	log.Infof("merged %d files", 2)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	want := "2024-03-04T05:06:07Z\tDEBUG\tmulti\\nline detail\n" +
		"2024-03-04T05:06:07Z\tINFO\tmerged 2 files\n"
	if string(data) != want {
		t.Errorf("log file = %q, want %q", data, want)
	}

	// DEBUG stays in the file; only INFO and above echo.
	if echo.String() != "[INFO PROJ-1] merged 2 files\n" {
		t.Errorf("echo = %q", echo.String())
	}
}

func TestValidateMigrationTable(t *testing.T) {
	if err := validateMigrationTable(); err != nil {
		t.Errorf("migration table invalid: %v", err)
	}
	if got := migrationTable[len(migrationTable)-1].version; got != CurrentVersion {
		t.Errorf("last migration version = %d, want CurrentVersion %d", got, CurrentVersion)
	}
}

func TestInitAndReopen(t *testing.T) {
	if err := git.Available(); err != nil {
		t.Skip("git binary not available")
	}
	t.Setenv("HOME", t.TempDir())
	ctx := context.Background()

	dir := filepath.Join(t.TempDir(), "proj-9")
	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatal(err)
	}

	f, err := Init(ctx, dir, io.Discard)
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	if f.Key != "PROJ-9" {
		t.Errorf("key = %q, want PROJ-9", f.Key)
	}
	if v := f.Version(); v != CurrentVersion {
		t.Errorf("version after init = %d, want %d", v, CurrentVersion)
	}
	if _, err := os.Stat(f.MetadataPath(shadowDirName)); err != nil {
		t.Errorf("shadow checkout missing: %v", err)
	}
	if _, err := os.Stat(f.ShadowPath(filepath.Join(MetadataDirName, remoteFilesName))); err != nil {
		t.Errorf("remote file metadata missing: %v", err)
	}
	if _, err := os.Stat(f.LocalPath(codec.NewCommentFile)); err != nil {
		t.Errorf("comment buffer missing: %v", err)
	}

	// Reopening is a no-op migration run.
	reopened, err := Open(ctx, dir, io.Discard)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if v := reopened.Version(); v != CurrentVersion {
		t.Errorf("version after reopen = %d, want %d", v, CurrentVersion)
	}
}

func TestOpenRejectsPlainDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "proj-3")
	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatal(err)
	}

	_, err := Open(context.Background(), dir, io.Discard)
	if !errors.Is(err, ErrNotTicketFolder) {
		t.Errorf("open plain dir err = %v, want ErrNotTicketFolder", err)
	}
}

func TestInitRejectsNonKeyDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "scratch")
	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatal(err)
	}

	_, err := Init(context.Background(), dir, io.Discard)
	if !errors.Is(err, ErrCannotInferKey) {
		t.Errorf("init err = %v, want ErrCannotInferKey", err)
	}
}
