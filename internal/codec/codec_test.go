package codec

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/issuefs/issuefs/internal/tracker"
)

func TestRenderDetailsOrdersFieldsLexicographically(t *testing.T) {
	c := New()
	fields := map[string]any{
		"summary":  "Fix the widget",
		"assignee": "mel",
		"priority": "High",
	}

	out := string(c.RenderDetails(fields))

	want := "assignee::\n\n    mel\n\npriority::\n\n    High\n\nsummary::\n\n    Fix the widget\n\n"
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("details mismatch (-want +got):\n%s", diff)
	}
}

func TestRenderDetailsSkipsFileAndNoDetailFields(t *testing.T) {
	c := New()
	fields := map[string]any{
		"summary":     "Fix the widget",
		"description": "Long prose",
		"comment":     map[string]any{"comments": []any{}},
		"attachment":  []any{},
	}

	out := string(c.RenderDetails(fields))

	for _, absent := range []string{"description::", "comment::", "attachment::"} {
		if strings.Contains(out, absent) {
			t.Errorf("details contains %q:\n%s", absent, out)
		}
	}
	if !strings.Contains(out, "summary::") {
		t.Errorf("details missing summary block:\n%s", out)
	}
}

func TestRenderNormalizesValues(t *testing.T) {
	c := New()
	fields := map[string]any{
		"summary":  "  crlf\r\nvalue  ",
		"votes":    float64(3),
		"assignee": nil,
	}

	got := c.ParseDetails(c.RenderDetails(fields))

	want := map[string]string{
		"summary":  "crlf\nvalue",
		"votes":    "3",
		"assignee": "",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestDetailsRoundTrip(t *testing.T) {
	c := New()
	fields := map[string]any{
		"summary":     "One line",
		"environment": "line one\n\nline three",
		"labels":      "[a b]",
		"empty":       "",
	}

	got := c.ParseDetails(c.RenderDetails(fields))

	want := map[string]string{
		"summary":     "One line",
		"environment": "line one\n\nline three",
		"labels":      "[a b]",
		"empty":       "",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestParseDetailsIgnoresUnindentedProse(t *testing.T) {
	c := New()
	data := []byte("preamble outside any block\nsummary::\n\n    kept\nstray unindented line\n")

	got := c.ParseDetails(data)

	if got["summary"] != "kept" {
		t.Errorf("summary = %q, want %q", got["summary"], "kept")
	}
}

func TestRenderFileField(t *testing.T) {
	c := New()
	snap := &tracker.IssueSnapshot{
		Key:    "PROJ-1",
		Fields: map[string]any{"description": "The long description.\r\nSecond line."},
	}

	files := c.Render(snap)

	want := "The long description.\nSecond line.\n"
	if got := string(files[FileFieldName("description")]); got != want {
		t.Errorf("description file = %q, want %q", got, want)
	}
}

func TestParseMergesDetailsAndFileFields(t *testing.T) {
	c := New()
	files := map[string][]byte{
		DetailsFile:                  []byte("summary::\n\n    Fix it\n\n"),
		FileFieldName("description"): []byte("Prose.\n"),
	}

	got := c.Parse(files)

	want := map[string]string{
		"summary":     "Fix it",
		"description": "Prose.",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("parse mismatch (-want +got):\n%s", diff)
	}
}

func TestRenderComments(t *testing.T) {
	c := New()
	comments := []tracker.Comment{
		{Author: "mel", Body: "First\r\ncomment", Created: "2024-01-02T03:04:05.000+0000"},
		{Author: "sam", Body: "Second", Created: "2024-01-03T03:04:05.000+0000"},
	}

	out := string(c.RenderComments(comments))

	want := "2024-01-02T03:04:05.000+0000: mel::\n\n    First\n    comment\n\n" +
		"2024-01-03T03:04:05.000+0000: sam::\n\n    Second\n\n"
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("comments mismatch (-want +got):\n%s", diff)
	}
}

func TestRenderedFilenamesCoverEveryOutput(t *testing.T) {
	c := New()
	snap := &tracker.IssueSnapshot{Key: "PROJ-1", Fields: map[string]any{"summary": "x"}}

	names := map[string]bool{}
	for _, n := range c.RenderedFilenames() {
		names[n] = true
	}

	for rendered := range c.Render(snap) {
		if !names[rendered] {
			t.Errorf("rendered file %q missing from RenderedFilenames", rendered)
		}
	}
	if !names[NewCommentFile] {
		t.Errorf("RenderedFilenames missing comment buffer %q", NewCommentFile)
	}
}
