package tracker

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJira(t *testing.T, handler http.HandlerFunc) *JiraClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewJiraClient(server.URL, "mel", "token123")
	require.NoError(t, err)
	return client
}

func TestNewJiraClientRejectsBadURL(t *testing.T) {
	for _, bad := range []string{"", "tracker.example", "://tracker"} {
		_, err := NewJiraClient(bad, "u", "t")
		assert.Error(t, err, "url %q", bad)
	}
}

func TestJiraIssue(t *testing.T) {
	client := newTestJira(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/rest/api/2/issue/PROJ-1", r.URL.Path)

		user, token, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "mel", user)
		assert.Equal(t, "token123", token)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"key": "PROJ-1",
			"fields": map[string]any{
				"summary": "Fix the widget",
			},
		})
	})

	snap, err := client.Issue(context.Background(), "PROJ-1")
	require.NoError(t, err)
	assert.Equal(t, "PROJ-1", snap.Key)
	assert.Equal(t, "Fix the widget", snap.Fields["summary"])
	assert.Equal(t, client.base, snap.Options["server"])
}

func TestJiraUpdateFields(t *testing.T) {
	client := newTestJira(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/rest/api/2/issue/PROJ-1", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "New summary", body["fields"]["summary"])

		w.WriteHeader(http.StatusNoContent)
	})

	err := client.UpdateFields(context.Background(), "PROJ-1", map[string]any{"summary": "New summary"})
	require.NoError(t, err)
}

func TestJiraAddComment(t *testing.T) {
	client := newTestJira(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/rest/api/2/issue/PROJ-1/comment", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Looks good", body["body"])

		w.WriteHeader(http.StatusCreated)
	})

	require.NoError(t, client.AddComment(context.Background(), "PROJ-1", "Looks good"))
}

func TestJiraAddAttachment(t *testing.T) {
	client := newTestJira(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/rest/api/2/issue/PROJ-1/attachments", r.URL.Path)
		assert.Equal(t, "no-check", r.Header.Get("X-Atlassian-Token"))

		require.NoError(t, r.ParseMultipartForm(1<<20))
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()

		assert.Equal(t, "notes.txt", header.Filename)
		content, err := io.ReadAll(file)
		require.NoError(t, err)
		assert.Equal(t, []byte("hello"), content)

		_ = json.NewEncoder(w).Encode([]map[string]string{{
			"id":       "2001",
			"filename": "notes.txt",
			"created":  "2024-02-01T10:00:00.000+0000",
			"content":  "/secure/attachment/2001/notes.txt",
		}})
	})

	stored, err := client.AddAttachment(context.Background(), "PROJ-1", "notes.txt", []byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, "2001", stored.ID)
	assert.Equal(t, "2024-02-01T10:00:00.000+0000", stored.Created)
}

func TestJiraDeleteAttachment(t *testing.T) {
	client := newTestJira(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/rest/api/2/attachment/2001", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, client.DeleteAttachment(context.Background(), "2001"))
}

func TestJiraDownloadAttachmentResolvesRelativeURL(t *testing.T) {
	client := newTestJira(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/secure/attachment/2001/notes.txt", r.URL.Path)
		_, _ = w.Write([]byte("file body"))
	})

	content, err := client.DownloadAttachment(context.Background(), Attachment{
		ID:         "2001",
		Filename:   "notes.txt",
		ContentURL: "/secure/attachment/2001/notes.txt",
	})
	require.NoError(t, err)
	assert.Equal(t, []byte("file body"), content)
}

func TestJiraErrorStatusSurfacesBody(t *testing.T) {
	client := newTestJira(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"errorMessages":["Issue does not exist"]}`, http.StatusNotFound)
	})

	_, err := client.Issue(context.Background(), "PROJ-404")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Issue does not exist")
}
