package tracker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// JiraClient implements Client against the Jira REST API (v2).
//
// Authentication is basic auth with an API token. The client performs
// exactly one HTTP attempt per operation.
type JiraClient struct {
	base  string
	user  string
	token string
	http  *http.Client
}

var _ Client = (*JiraClient)(nil)

// NewJiraClient creates a client for the Jira server at baseURL.
func NewJiraClient(baseURL, user, token string) (*JiraClient, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid tracker URL %q", baseURL)
	}
	return &JiraClient{
		base:  strings.TrimRight(baseURL, "/"),
		user:  user,
		token: token,
		http:  &http.Client{Timeout: 60 * time.Second},
	}, nil
}

// Issue implements Client.
func (j *JiraClient) Issue(ctx context.Context, key string) (*IssueSnapshot, error) {
	var raw map[string]any
	if err := j.do(ctx, http.MethodGet, "/rest/api/2/issue/"+url.PathEscape(key), nil, "", &raw); err != nil {
		return nil, fmt.Errorf("fetch issue %s: %w", key, err)
	}
	return SnapshotFromRaw(map[string]string{"server": j.base}, raw)
}

// UpdateFields implements Client.
func (j *JiraClient) UpdateFields(ctx context.Context, key string, fields map[string]any) error {
	body, err := json.Marshal(map[string]any{"fields": fields})
	if err != nil {
		return fmt.Errorf("encode field update: %w", err)
	}
	if err := j.do(ctx, http.MethodPut, "/rest/api/2/issue/"+url.PathEscape(key), bytes.NewReader(body), "application/json", nil); err != nil {
		return fmt.Errorf("update issue %s: %w", key, err)
	}
	return nil
}

// AddComment implements Client.
func (j *JiraClient) AddComment(ctx context.Context, key, comment string) error {
	body, err := json.Marshal(map[string]string{"body": comment})
	if err != nil {
		return fmt.Errorf("encode comment: %w", err)
	}
	if err := j.do(ctx, http.MethodPost, "/rest/api/2/issue/"+url.PathEscape(key)+"/comment", bytes.NewReader(body), "application/json", nil); err != nil {
		return fmt.Errorf("add comment to %s: %w", key, err)
	}
	return nil
}

// AddAttachment implements Client.
func (j *JiraClient) AddAttachment(ctx context.Context, key, filename string, content []byte) (*Attachment, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("build upload: %w", err)
	}
	if _, err := part.Write(content); err != nil {
		return nil, fmt.Errorf("build upload: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("build upload: %w", err)
	}

	req, err := j.newRequest(ctx, http.MethodPost, "/rest/api/2/issue/"+url.PathEscape(key)+"/attachments", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	// Jira refuses attachment uploads without this header.
	req.Header.Set("X-Atlassian-Token", "no-check")

	var stored []struct {
		ID       string `json:"id"`
		Filename string `json:"filename"`
		Created  string `json:"created"`
		Content  string `json:"content"`
	}
	if err := j.send(req, &stored); err != nil {
		return nil, fmt.Errorf("upload %s to %s: %w", filename, key, err)
	}
	if len(stored) == 0 {
		return nil, fmt.Errorf("upload %s to %s: empty response", filename, key)
	}
	return &Attachment{
		ID:         stored[0].ID,
		Filename:   stored[0].Filename,
		Created:    stored[0].Created,
		ContentURL: stored[0].Content,
	}, nil
}

// DeleteAttachment implements Client.
func (j *JiraClient) DeleteAttachment(ctx context.Context, id string) error {
	if err := j.do(ctx, http.MethodDelete, "/rest/api/2/attachment/"+url.PathEscape(id), nil, "", nil); err != nil {
		return fmt.Errorf("delete attachment %s: %w", id, err)
	}
	return nil
}

// DownloadAttachment implements Client.
func (j *JiraClient) DownloadAttachment(ctx context.Context, att Attachment) ([]byte, error) {
	target := att.ContentURL
	if target == "" {
		return nil, fmt.Errorf("attachment %s has no content URL", att.Filename)
	}
	if strings.HasPrefix(target, "/") {
		target = j.base + target
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", att.Filename, err)
	}
	req.SetBasicAuth(j.user, j.token)

	resp, err := j.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", att.Filename, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download %s: %s", att.Filename, resp.Status)
	}
	return io.ReadAll(resp.Body)
}

func (j *JiraClient) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, j.base+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.SetBasicAuth(j.user, j.token)
	return req, nil
}

func (j *JiraClient) do(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	req, err := j.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return j.send(req, out)
}

func (j *JiraClient) send(req *http.Request, out any) error {
	resp, err := j.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(data)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
