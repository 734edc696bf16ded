// Package codec converts a structured issue snapshot into the flat files
// a ticket folder holds, and back.
//
// The rendered layout is the round-trip contract of the whole system:
// most fields land in one aggregated details file as indented blocks, a
// few file-valued fields get a dedicated file each, and comments go to a
// read-only transcript. The parser inverts the details block format so
// local edits can be diffed field by field.
package codec

import (
	"bytes"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/issuefs/issuefs/internal/tracker"
)

// Rendered file names. The new-comment buffer is not rendered by the
// codec but shares the naming convention and is ignored alongside the
// rendered files.
const (
	DetailsFile    = "details.issue.txt"
	CommentsFile   = "comments.issue.txt"
	NewCommentFile = "comment.new.txt"

	// indent is the fixed margin for block content lines.
	indent = "    "
)

// fileFieldSuffix names the dedicated file for a file-valued field.
const fileFieldSuffix = ".issue.txt"

// Codec renders and parses ticket files.
type Codec struct {
	// fileFields get a dedicated file instead of a details block.
	fileFields map[string]bool

	// noDetailFields are excluded from rendering entirely; their data
	// reaches the folder by other means (comments file, attachments).
	noDetailFields map[string]bool
}

// New returns a codec with the default field classification:
// description is file-valued; comment and attachment carry no detail.
func New() *Codec {
	return &Codec{
		fileFields:     map[string]bool{"description": true},
		noDetailFields: map[string]bool{"comment": true, "attachment": true},
	}
}

// FileFieldName returns the dedicated filename for a file-valued field.
func FileFieldName(field string) string {
	return field + fileFieldSuffix
}

// IsFileField reports whether the field renders to its own file.
func (c *Codec) IsFileField(field string) bool {
	return c.fileFields[field]
}

// FileFields returns the file-valued field names in sorted order.
func (c *Codec) FileFields() []string {
	fields := make([]string, 0, len(c.fileFields))
	for f := range c.fileFields {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

// RenderedFilenames returns every filename the codec may produce, plus
// the new-comment buffer. These form the built-in ignore set.
func (c *Codec) RenderedFilenames() []string {
	names := []string{DetailsFile, CommentsFile, NewCommentFile}
	for _, f := range c.FileFields() {
		names = append(names, FileFieldName(f))
	}
	return names
}

// Render converts a snapshot into its complete file tree: the details
// file, one file per file-valued field, and the comments transcript.
func (c *Codec) Render(snap *tracker.IssueSnapshot) map[string][]byte {
	files := map[string][]byte{
		DetailsFile:  c.RenderDetails(snap.Fields),
		CommentsFile: c.RenderComments(snap.Comments),
	}
	for _, field := range c.FileFields() {
		value := normalize(snap.Fields[field])
		files[FileFieldName(field)] = []byte(value + "\n")
	}
	return files
}

// RenderDetails renders all plain fields into the aggregated details
// file, in lexicographic field order. A missing value renders as an
// empty block, never an error.
func (c *Codec) RenderDetails(fields map[string]any) []byte {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	for _, name := range names {
		if c.noDetailFields[name] || c.fileFields[name] {
			continue
		}
		value := normalize(fields[name])
		fmt.Fprintf(&buf, "%s::\n\n", name)
		for _, line := range strings.Split(value, "\n") {
			fmt.Fprintf(&buf, "%s%s\n", indent, line)
		}
		buf.WriteString("\n")
	}
	return buf.Bytes()
}

// RenderComments renders the comment transcript in tracker order.
func (c *Codec) RenderComments(comments []tracker.Comment) []byte {
	var buf bytes.Buffer
	for _, comment := range comments {
		fmt.Fprintf(&buf, "%s: %s::\n\n", comment.Created, comment.Author)
		body := strings.ReplaceAll(comment.Body, "\r\n", "\n")
		for _, line := range strings.Split(body, "\n") {
			fmt.Fprintf(&buf, "%s%s\n", indent, line)
		}
		buf.WriteString("\n")
	}
	return buf.Bytes()
}

// headerPattern matches a details block header line: "name::".
var headerPattern = regexp.MustCompile(`^(\S+)::$`)

// ParseDetails inverts RenderDetails. Content lines have the fixed
// margin stripped; each value is trimmed of surrounding whitespace.
func (c *Codec) ParseDetails(data []byte) map[string]string {
	fields := map[string]string{}
	var name string
	var lines []string

	flush := func() {
		if name != "" {
			fields[name] = strings.TrimSpace(strings.Join(lines, "\n"))
		}
		lines = nil
	}

	for _, line := range strings.Split(string(data), "\n") {
		if m := headerPattern.FindStringSubmatch(line); m != nil {
			flush()
			name = m[1]
			continue
		}
		if name == "" {
			continue
		}
		if strings.HasPrefix(line, indent) {
			lines = append(lines, strings.TrimPrefix(line, indent))
		} else if strings.TrimSpace(line) == "" {
			lines = append(lines, "")
		}
	}
	flush()

	return fields
}

// ParseFileField recovers a file-valued field's value from its
// dedicated file.
func (c *Codec) ParseFileField(data []byte) string {
	return strings.TrimSpace(strings.ReplaceAll(string(data), "\r\n", "\n"))
}

// Parse recovers every locally editable field from a rendered file
// tree: details blocks plus the dedicated file-valued files.
func (c *Codec) Parse(files map[string][]byte) map[string]string {
	fields := c.ParseDetails(files[DetailsFile])
	for _, field := range c.FileFields() {
		if data, ok := files[FileFieldName(field)]; ok {
			fields[field] = c.ParseFileField(data)
		}
	}
	return fields
}

// normalize renders a raw field value as text: strings get newline
// normalization and whitespace trimming, nil renders empty, everything
// else is stringified.
func normalize(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(strings.ReplaceAll(v, "\r\n", "\n"))
	default:
		return fmt.Sprintf("%v", v)
	}
}
