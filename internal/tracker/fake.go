package tracker

import (
	"context"
	"fmt"
	"strconv"
)

// Fake is an in-memory Client used by engine and command tests. It keeps
// one issue's state and records the mutations made against it.
type Fake struct {
	Key      string
	Fields   map[string]any
	Files    []FakeAttachment
	Remarks  []Comment
	FetchErr error

	// Recorded calls.
	Updates   []map[string]any
	Added     []string
	Deleted   []string
	Uploads   []string
	Downloads []string
	nextID    int
	nextTick  int
}

// FakeAttachment pairs attachment metadata with its content.
type FakeAttachment struct {
	Attachment
	Content []byte
}

var _ Client = (*Fake)(nil)

// NewFake creates a fake tracker holding one issue.
func NewFake(key string) *Fake {
	return &Fake{
		Key:    key,
		Fields: map[string]any{},
		nextID: 1,
	}
}

// Attach adds a remote attachment with the given change token.
func (f *Fake) Attach(filename, created string, content []byte) {
	f.Files = append(f.Files, FakeAttachment{
		Attachment: Attachment{
			ID:       strconv.Itoa(f.nextID),
			Filename: filename,
			Created:  created,
		},
		Content: content,
	})
	f.nextID++
}

// Issue implements Client.
func (f *Fake) Issue(_ context.Context, key string) (*IssueSnapshot, error) {
	if f.FetchErr != nil {
		return nil, f.FetchErr
	}
	if key != f.Key {
		return nil, fmt.Errorf("no such issue %s", key)
	}

	fields := map[string]any{}
	for k, v := range f.Fields {
		fields[k] = v
	}

	var atts []any
	for _, a := range f.Files {
		atts = append(atts, map[string]any{
			"id":       a.ID,
			"filename": a.Filename,
			"created":  a.Created,
			"content":  "fake://" + a.ID,
		})
	}
	fields["attachment"] = atts

	var comments []any
	for _, c := range f.Remarks {
		comments = append(comments, map[string]any{
			"author":  c.Author,
			"body":    c.Body,
			"created": c.Created,
		})
	}
	fields["comment"] = map[string]any{"comments": comments}

	raw := map[string]any{"key": f.Key, "fields": fields}
	return SnapshotFromRaw(map[string]string{"server": "fake://tracker"}, raw)
}

// UpdateFields implements Client.
func (f *Fake) UpdateFields(_ context.Context, key string, fields map[string]any) error {
	if key != f.Key {
		return fmt.Errorf("no such issue %s", key)
	}
	f.Updates = append(f.Updates, fields)
	for k, v := range fields {
		f.Fields[k] = v
	}
	return nil
}

// AddComment implements Client.
func (f *Fake) AddComment(_ context.Context, key, body string) error {
	if key != f.Key {
		return fmt.Errorf("no such issue %s", key)
	}
	f.Added = append(f.Added, body)
	f.nextTick++
	f.Remarks = append(f.Remarks, Comment{
		Author:  "fake",
		Body:    body,
		Created: fmt.Sprintf("2024-01-01T00:00:%02d.000+0000", f.nextTick),
	})
	return nil
}

// AddAttachment implements Client.
func (f *Fake) AddAttachment(_ context.Context, key, filename string, content []byte) (*Attachment, error) {
	if key != f.Key {
		return nil, fmt.Errorf("no such issue %s", key)
	}
	f.Uploads = append(f.Uploads, filename)
	f.nextTick++
	att := Attachment{
		ID:       strconv.Itoa(f.nextID),
		Filename: filename,
		Created:  fmt.Sprintf("2024-02-01T00:00:%02d.000+0000", f.nextTick),
	}
	f.nextID++
	f.Files = append(f.Files, FakeAttachment{Attachment: att, Content: content})
	return &att, nil
}

// DeleteAttachment implements Client.
func (f *Fake) DeleteAttachment(_ context.Context, id string) error {
	for i, a := range f.Files {
		if a.ID == id {
			f.Deleted = append(f.Deleted, a.Filename)
			f.Files = append(f.Files[:i], f.Files[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("no such attachment %s", id)
}

// DownloadAttachment implements Client.
func (f *Fake) DownloadAttachment(_ context.Context, att Attachment) ([]byte, error) {
	for _, a := range f.Files {
		if a.ID == att.ID {
			f.Downloads = append(f.Downloads, a.Filename)
			return a.Content, nil
		}
	}
	return nil, fmt.Errorf("no such attachment %s", att.ID)
}
