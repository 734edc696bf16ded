package engine

import (
	"context"
	"errors"
	"os"
	"sort"
	"strings"

	"github.com/issuefs/issuefs/internal/codec"
	"github.com/issuefs/issuefs/internal/folder"
	"github.com/issuefs/issuefs/internal/vcs"
)

// FieldDiff is a field's value at the last merge base and its value on
// disk now.
type FieldDiff struct {
	Original string `json:"original"`
	Local    string `json:"local"`
}

// Status describes what a push would send.
type Status struct {
	// ToUpload lists new or modified non-ignored files.
	ToUpload []string `json:"to_upload"`

	// LocalDiffers maps field name to its original/local values for
	// fields that changed since the last sync. Only fields present at
	// the last sync point are diffable.
	LocalDiffers map[string]FieldDiff `json:"local_differs"`

	// NewComment is the pending comment buffer, trimmed. Reading it
	// here does not clear it.
	NewComment string `json:"new_comment"`
}

// Status reports pending local changes. It is a pure read: no network
// access, no mutation.
func (e *Engine) Status(ctx context.Context) (*Status, error) {
	toUpload, err := e.locallyChanged(ctx)
	if err != nil {
		return nil, err
	}

	differs, err := e.localDifferingFields(ctx)
	if err != nil {
		return nil, err
	}

	comment, err := e.folder.NewComment(false)
	if err != nil {
		return nil, err
	}

	return &Status{
		ToUpload:     toUpload,
		LocalDiffers: differs,
		NewComment:   comment,
	}, nil
}

// locallyChanged lists untracked and modified files that are regular
// files, not dotfiles, and not excluded by any local ignore glob.
func (e *Engine) locallyChanged(ctx context.Context) ([]string, error) {
	work := e.folder.Work()

	untracked, err := work.Untracked(ctx)
	if err != nil {
		return nil, err
	}
	modified, err := work.Modified(ctx)
	if err != nil {
		return nil, err
	}

	globs := e.folder.IgnoreGlobs(folder.IgnoreFileName)

	seen := map[string]bool{}
	var changed []string
	for _, name := range append(untracked, modified...) {
		if seen[name] {
			continue
		}
		seen[name] = true

		if strings.HasPrefix(name, ".") {
			continue
		}
		if folder.MatchesGlobs(name, globs) {
			continue
		}
		info, err := os.Stat(e.folder.LocalPath(name))
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		changed = append(changed, name)
	}
	sort.Strings(changed)
	return changed, nil
}

// localDifferingFields compares field values parsed from the working
// tree against values parsed at the merge base of the primary history
// and the tracking ref. Fields absent from the original snapshot are
// not diffable and cannot be pushed.
func (e *Engine) localDifferingFields(ctx context.Context) (map[string]FieldDiff, error) {
	local := e.localFields()
	original, err := e.originalFields(ctx)
	if err != nil {
		return nil, err
	}

	differs := map[string]FieldDiff{}
	for field, originalValue := range original {
		if local[field] != originalValue {
			differs[field] = FieldDiff{Original: originalValue, Local: local[field]}
		}
	}
	return differs, nil
}

// editableFilenames are the rendered files the parser reads.
func (e *Engine) editableFilenames() []string {
	names := []string{codec.DetailsFile}
	for _, field := range e.codec.FileFields() {
		names = append(names, codec.FileFieldName(field))
	}
	return names
}

// localFields parses field values from the files currently on disk.
func (e *Engine) localFields() map[string]string {
	files := map[string][]byte{}
	for _, name := range e.editableFilenames() {
		data, err := os.ReadFile(e.folder.LocalPath(name))
		if err != nil {
			// A rendered file the user deleted parses as absent.
			continue
		}
		files[name] = data
	}
	return e.codec.Parse(files)
}

// originalFields parses field values as of the last merge base. Before
// the first merge there is no base and nothing is diffable.
func (e *Engine) originalFields(ctx context.Context) (map[string]string, error) {
	work := e.folder.Work()

	base, err := work.MergeBase(ctx, folder.MainBranch, folder.TrackingRef)
	if errors.Is(err, vcs.ErrNoMergeBase) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, err
	}

	files := map[string][]byte{}
	for _, name := range e.editableFilenames() {
		data, err := work.ReadFileAt(ctx, base, name)
		if errors.Is(err, vcs.ErrPathNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		files[name] = data
	}
	return e.codec.Parse(files), nil
}
