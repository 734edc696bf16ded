// Package tracker defines the issue-tracker surface the sync engine
// depends on, plus a Jira REST binding.
//
// The engine treats the tracker as authoritative remote state. Every call
// is a single blocking attempt; retry policy belongs to the caller.
package tracker

import (
	"context"
	"fmt"
)

// Client is the remote issue tracker as the sync engine sees it.
type Client interface {
	// Issue fetches the live issue for the given key.
	Issue(ctx context.Context, key string) (*IssueSnapshot, error)

	// UpdateFields submits field updates in one batched call.
	UpdateFields(ctx context.Context, key string, fields map[string]any) error

	// AddComment submits a new comment.
	AddComment(ctx context.Context, key, body string) error

	// AddAttachment uploads a file and returns the stored attachment,
	// whose Created value serves as its change token.
	AddAttachment(ctx context.Context, key, filename string, content []byte) (*Attachment, error)

	// DeleteAttachment removes an attachment by id.
	DeleteAttachment(ctx context.Context, id string) error

	// DownloadAttachment retrieves an attachment's content.
	DownloadAttachment(ctx context.Context, att Attachment) ([]byte, error)
}

// IssueSnapshot is a structured capture of a remote issue.
type IssueSnapshot struct {
	// Key is the ticket key, e.g. PROJ-123.
	Key string

	// Fields maps field name to its raw value.
	Fields map[string]any

	// Raw is the tracker's full payload, kept verbatim so the snapshot
	// can be persisted and reconstructed without a network call.
	Raw map[string]any

	// Options are the connection options the snapshot was fetched
	// with (server URL and the like), persisted alongside Raw.
	Options map[string]string

	// Attachments are the issue's attachments in tracker order.
	Attachments []Attachment

	// Comments are the issue's comments in tracker order.
	Comments []Comment
}

// Attachment is a remote file on an issue. Created is an opaque change
// token: a differing value means the attachment changed remotely.
type Attachment struct {
	ID         string
	Filename   string
	Created    string
	ContentURL string
}

// Comment is a single remote comment.
type Comment struct {
	Author  string
	Body    string
	Created string
}

// SnapshotFromRaw reconstructs an IssueSnapshot from a persisted raw
// payload. It is the inverse of persisting {options, raw}: attachments
// and comments are re-derived from the field data.
func SnapshotFromRaw(options map[string]string, raw map[string]any) (*IssueSnapshot, error) {
	key, _ := raw["key"].(string)
	if key == "" {
		return nil, fmt.Errorf("raw payload has no issue key")
	}

	fields, _ := raw["fields"].(map[string]any)
	if fields == nil {
		fields = map[string]any{}
	}

	snap := &IssueSnapshot{
		Key:     key,
		Fields:  fields,
		Raw:     raw,
		Options: options,
	}

	if atts, ok := fields["attachment"].([]any); ok {
		for _, a := range atts {
			m, ok := a.(map[string]any)
			if !ok {
				continue
			}
			snap.Attachments = append(snap.Attachments, Attachment{
				ID:         str(m["id"]),
				Filename:   str(m["filename"]),
				Created:    str(m["created"]),
				ContentURL: str(m["content"]),
			})
		}
	}

	if wrap, ok := fields["comment"].(map[string]any); ok {
		if comments, ok := wrap["comments"].([]any); ok {
			for _, c := range comments {
				m, ok := c.(map[string]any)
				if !ok {
					continue
				}
				snap.Comments = append(snap.Comments, Comment{
					Author:  commentAuthor(m),
					Body:    str(m["body"]),
					Created: str(m["created"]),
				})
			}
		}
	}

	return snap, nil
}

// commentAuthor handles both a plain string author and Jira's nested
// {"author": {"displayName": ...}} shape.
func commentAuthor(m map[string]any) string {
	switch v := m["author"].(type) {
	case string:
		return v
	case map[string]any:
		if name := str(v["displayName"]); name != "" {
			return name
		}
		return str(v["name"])
	default:
		return ""
	}
}

func str(v any) string {
	s, _ := v.(string)
	return s
}
