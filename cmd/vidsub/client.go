package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"vidsub/internal/api"
	"vidsub/internal/queue"
)

// apiClient speaks the server's JSON API.
type apiClient struct {
	base  string
	token string
	http  *http.Client
}

func newAPIClient(addr, token string) *apiClient {
	base := strings.TrimRight(addr, "/")
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	return &apiClient{base: base, token: token, http: &http.Client{}}
}

// apiError is a non-2xx reply decoded from api.ErrorResponse.
type apiError struct {
	Status int
	Body   api.ErrorResponse
}

func (e *apiError) Error() string {
	msg := e.Body.Error
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if len(e.Body.Suggestions) == 0 {
		return msg
	}
	var b strings.Builder
	b.WriteString(msg)
	b.WriteString("\nsuggestions:")
	for i, s := range e.Body.Suggestions {
		fmt.Fprintf(&b, "\n  %d. %s", i+1, s)
	}
	return b.String()
}

func (c *apiClient) upload(ctx context.Context, path string) (api.Task, error) {
	file, err := os.Open(path)
	if err != nil {
		return api.Task{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		part, err := mw.CreateFormFile("file", filepath.Base(path))
		if err == nil {
			_, err = io.Copy(part, file)
		}
		if err == nil {
			err = mw.Close()
		}
		_ = pw.CloseWithError(err)
	}()

	var resp api.TaskResponse
	if err := c.do(ctx, http.MethodPost, "/api/tasks", mw.FormDataContentType(), pr, &resp); err != nil {
		return api.Task{}, err
	}
	return resp.Task, nil
}

func (c *apiClient) process(ctx context.Context, id int64) (api.Task, error) {
	var resp api.TaskResponse
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/tasks/%d/process", id), "", nil, &resp)
	return resp.Task, err
}

func (c *apiClient) task(ctx context.Context, id int64) (api.Task, error) {
	var resp api.TaskResponse
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/tasks/%d", id), "", nil, &resp)
	return resp.Task, err
}

func (c *apiClient) tasks(ctx context.Context, statuses []queue.Status) ([]api.Task, error) {
	path := "/api/tasks"
	if len(statuses) > 0 {
		q := url.Values{}
		for _, s := range statuses {
			q.Add("status", string(s))
		}
		path += "?" + q.Encode()
	}
	var resp api.TaskListResponse
	err := c.do(ctx, http.MethodGet, path, "", nil, &resp)
	return resp.Tasks, err
}

func (c *apiClient) subtitle(ctx context.Context, id int64) (string, error) {
	var resp api.SubtitleResponse
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/tasks/%d/subtitle", id), "", nil, &resp)
	return resp.Content, err
}

func (c *apiClient) setSubtitle(ctx context.Context, id int64, content string) (api.Task, error) {
	body, err := json.Marshal(api.SubtitleUpdateRequest{Content: content})
	if err != nil {
		return api.Task{}, err
	}
	var resp api.TaskResponse
	err = c.do(ctx, http.MethodPut, fmt.Sprintf("/api/tasks/%d/subtitle", id), "application/json", bytes.NewReader(body), &resp)
	return resp.Task, err
}

func (c *apiClient) do(ctx context.Context, method, path, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return wrapDialError(err, c.base)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		apiErr := &apiError{Status: resp.StatusCode}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr.Body)
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

func wrapDialError(err error, base string) error {
	if errors.Is(err, syscall.ECONNREFUSED) {
		return fmt.Errorf("connect to server: %s refused the connection; start it with `vidsub serve`", base)
	}
	return fmt.Errorf("connect to server: %w", err)
}
