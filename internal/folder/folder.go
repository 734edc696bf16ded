// Package folder implements the ticket folder: a directory of rendered
// issue files backed by two version-controlled trees sharing one object
// store.
//
// A folder owns its metadata directory (.issuefs), its version marker,
// its operation log, the cached issue snapshot, and the remote-file
// metadata persisted inside the shadow tree. Nothing here touches the
// network; the sync engine composes a folder with a tracker client.
package folder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/natefinch/atomic"

	"github.com/issuefs/issuefs/internal/codec"
	"github.com/issuefs/issuefs/internal/vcs"
	"github.com/issuefs/issuefs/internal/vcs/git"
)

// On-disk layout inside a ticket folder.
const (
	// MetadataDirName is the folder-private metadata directory; its
	// absence means the directory is not a ticket folder.
	MetadataDirName = ".issuefs"

	versionFileName  = "version"
	opLogFileName    = "operation.log"
	snapshotFileName = "issue.json"
	storeDirName     = "git"
	shadowDirName    = "shadow"
	excludesFileName = "gitignore"

	// remoteFilesName is the attachment change-token map, kept inside
	// the shadow tree so it travels with the remote rendering.
	remoteFilesName = "remote_files.json"

	// IgnoreFileName and RemoteIgnoreFileName are the optional glob
	// files for local-change and remote-change detection. Each is also
	// looked up in the user's home directory.
	IgnoreFileName       = ".issuefs_ignore"
	RemoteIgnoreFileName = ".issuefs_remote_ignore"

	// MainBranch is the primary history; TrackingRef is the branch the
	// shadow pushes into the shared store for the primary to merge.
	MainBranch  = "main"
	TrackingRef = "remote"
)

// Sentinel errors for folder construction preconditions.
var (
	// ErrNotTicketFolder means the metadata directory is absent.
	ErrNotTicketFolder = errors.New("not a synchronizable ticket folder")

	// ErrCannotInferKey means the directory name does not look like a
	// ticket key.
	ErrCannotInferKey = errors.New("cannot infer ticket key from folder name")
)

// keyPattern matches a ticket key: word characters, a hyphen, digits.
var keyPattern = regexp.MustCompile(`(?i)^\w+-\d+$`)

// Folder is a ticket folder handle.
type Folder struct {
	// Path is the absolute folder path.
	Path string

	// Key is the ticket key inferred from the directory name,
	// normalized to uppercase.
	Key string

	// Log is the folder's operation log.
	Log *OpLog

	store  *git.Store
	work   vcs.Checkout
	shadow vcs.Checkout
	codec  *codec.Codec
}

// InferKey derives the ticket key from a folder path.
func InferKey(dir string) (string, error) {
	name := filepath.Base(dir)
	if !keyPattern.MatchString(name) {
		return "", fmt.Errorf("%w: %s", ErrCannotInferKey, dir)
	}
	return strings.ToUpper(name), nil
}

// Open opens an existing ticket folder, runs pending schema migrations,
// and makes sure the new-comment buffer exists. The echo writer
// receives log lines at INFO and above; pass io.Discard to silence.
func Open(ctx context.Context, dir string, echo io.Writer) (*Folder, error) {
	f, err := openNoMigrate(dir, echo)
	if err != nil {
		return nil, err
	}
	if err := f.RunMigrations(ctx); err != nil {
		return nil, err
	}
	if err := f.EnsureCommentBuffer(); err != nil {
		return nil, err
	}
	return f, nil
}

func openNoMigrate(dir string, echo io.Writer) (*Folder, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve folder path: %w", err)
	}

	meta := filepath.Join(abs, MetadataDirName)
	if info, err := os.Stat(meta); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotTicketFolder, dir)
	}

	key, err := InferKey(abs)
	if err != nil {
		return nil, err
	}

	store := git.OpenStore(filepath.Join(meta, storeDirName))
	f := &Folder{
		Path:   abs,
		Key:    key,
		Log:    NewOpLog(filepath.Join(meta, opLogFileName), key, echo),
		store:  store,
		work:   store.Checkout(abs),
		shadow: git.OpenShadow(filepath.Join(meta, shadowDirName)),
		codec:  codec.New(),
	}
	return f, nil
}

// Init turns a directory named like a ticket key into a ticket folder:
// metadata directory, excludes file, bare object store, root commit,
// schema migrations, empty comment buffer.
func Init(ctx context.Context, dir string, echo io.Writer) (*Folder, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve folder path: %w", err)
	}
	if _, err := InferKey(abs); err != nil {
		return nil, err
	}
	if err := git.Available(); err != nil {
		return nil, err
	}

	meta := filepath.Join(abs, MetadataDirName)
	if err := os.Mkdir(meta, 0o755); err != nil {
		return nil, fmt.Errorf("create metadata directory: %w", err)
	}

	excludes := filepath.Join(meta, excludesFileName)
	if err := os.WriteFile(excludes, []byte(MetadataDirName+"\n"), 0o644); err != nil {
		return nil, fmt.Errorf("write excludes file: %w", err)
	}

	if _, err := git.InitStore(ctx, filepath.Join(meta, storeDirName), MainBranch, excludes); err != nil {
		return nil, err
	}

	f, err := openNoMigrate(abs, echo)
	if err != nil {
		return nil, err
	}
	f.Log.Infof("ticket folder for issue %s created at %s", f.Key, f.Path)

	// Root commit so the shadow clone has a history to branch from.
	work := f.store.Checkout(abs)
	if err := work.CommitEmpty(ctx, "Initialized"); err != nil {
		return nil, err
	}

	if err := f.RunMigrations(ctx); err != nil {
		return nil, err
	}
	if err := f.EnsureCommentBuffer(); err != nil {
		return nil, err
	}
	return f, nil
}

// Work returns the primary checkout (the user-facing tree).
func (f *Folder) Work() vcs.Checkout {
	return f.work
}

// Shadow returns the shadow checkout (the last-fetched remote tree).
func (f *Folder) Shadow() vcs.Checkout {
	return f.shadow
}

// Codec returns the folder's field codec.
func (f *Folder) Codec() *codec.Codec {
	return f.codec
}

// MetadataPath returns the path of a file inside the metadata dir.
func (f *Folder) MetadataPath(name string) string {
	return filepath.Join(f.Path, MetadataDirName, name)
}

// LocalPath returns the path of a file inside the working tree.
func (f *Folder) LocalPath(name string) string {
	return filepath.Join(f.Path, name)
}

// ShadowPath returns the path of a file inside the shadow tree.
func (f *Folder) ShadowPath(name string) string {
	return filepath.Join(f.MetadataPath(shadowDirName), name)
}

// Version reads the schema version marker. A missing marker means
// version 1.
func (f *Folder) Version() int {
	data, err := os.ReadFile(f.MetadataPath(versionFileName))
	if err != nil {
		return 1
	}
	v, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 1
	}
	return v
}

// WriteVersion persists the schema version marker. Each migration calls
// this as its final act so an interrupted migration is retried.
func (f *Folder) WriteVersion(v int) error {
	data := strconv.Itoa(v) + "\n"
	if err := atomic.WriteFile(f.MetadataPath(versionFileName), strings.NewReader(data)); err != nil {
		return fmt.Errorf("write version marker: %w", err)
	}
	return nil
}

// EnsureCommentBuffer creates the empty new-comment buffer if absent.
func (f *Folder) EnsureCommentBuffer() error {
	p := f.LocalPath(codec.NewCommentFile)
	if _, err := os.Stat(p); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("check comment buffer: %w", err)
	}
	if err := os.WriteFile(p, nil, 0o644); err != nil {
		return fmt.Errorf("create comment buffer: %w", err)
	}
	return nil
}

// NewComment reads the pending-comment buffer, trimmed of surrounding
// whitespace. With clear set, the buffer is truncated after reading.
// A missing buffer reads as empty.
func (f *Folder) NewComment(clear bool) (string, error) {
	p := f.LocalPath(codec.NewCommentFile)
	data, err := os.ReadFile(p)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read comment buffer: %w", err)
	}
	comment := strings.TrimSpace(string(data))
	if clear {
		if err := os.WriteFile(p, nil, 0o644); err != nil {
			return "", fmt.Errorf("clear comment buffer: %w", err)
		}
	}
	return comment, nil
}

// IgnoreGlobs assembles the ordered glob list for the named ignore
// file: the built-in set covering every rendered file, then the
// in-folder file, then the user-global file. Missing ignore files are
// expected and read as empty.
func (f *Folder) IgnoreGlobs(which string) []string {
	globs := f.codec.RenderedFilenames()

	globs = append(globs, globsFromFile(f.LocalPath(which))...)
	if home, err := os.UserHomeDir(); err == nil {
		globs = append(globs, globsFromFile(filepath.Join(home, which))...)
	}
	return globs
}

func globsFromFile(p string) []string {
	data, err := os.ReadFile(p)
	if err != nil {
		// Optional file; absent means no extra patterns.
		return nil
	}
	var globs []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		globs = append(globs, line)
	}
	return globs
}

// MatchesGlobs reports whether a repository-relative filename matches
// any of the glob patterns.
func MatchesGlobs(filename string, globs []string) bool {
	for _, glob := range globs {
		if ok, _ := path.Match(glob, filename); ok {
			return true
		}
		if ok, _ := path.Match(glob, path.Base(filename)); ok {
			return true
		}
	}
	return false
}

// RemoteFileMetadata reads the attachment change-token map from the
// shadow tree. A missing file reads as an empty map.
func (f *Folder) RemoteFileMetadata() (map[string]string, error) {
	p := f.ShadowPath(filepath.Join(MetadataDirName, remoteFilesName))
	data, err := os.ReadFile(p)
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read remote file metadata: %w", err)
	}
	meta, err := decodeRemoteFileMetadata(data)
	if err != nil {
		return nil, fmt.Errorf("parse remote file metadata: %w", err)
	}
	return meta, nil
}

// SetRemoteFileMetadata persists the attachment change-token map into
// the shadow tree.
func (f *Folder) SetRemoteFileMetadata(meta map[string]string) error {
	dir := f.ShadowPath(MetadataDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create shadow metadata dir: %w", err)
	}
	data, err := encodeRemoteFileMetadata(meta)
	if err != nil {
		return err
	}
	if err := atomic.WriteFile(filepath.Join(dir, remoteFilesName), bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write remote file metadata: %w", err)
	}
	return nil
}

// ReadLog returns the raw operation log contents.
func (f *Folder) ReadLog() (string, error) {
	data, err := os.ReadFile(f.MetadataPath(opLogFileName))
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read operation log: %w", err)
	}
	return string(data), nil
}
