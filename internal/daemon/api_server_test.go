package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"vidsub/internal/api"
	"vidsub/internal/config"
	"vidsub/internal/deps"
	"vidsub/internal/media/ffprobe"
	"vidsub/internal/queue"
	"vidsub/internal/services"
	"vidsub/internal/testsupport"
	"vidsub/internal/workflow"
)

type stubValidator struct {
	mu  sync.Mutex
	err error
}

func (v *stubValidator) ValidateStructure(context.Context, string, bool) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.err
}

type stubBackend struct{}

func (stubBackend) Transcribe(context.Context, string) (string, error) {
	return "你好，欢迎学习越南语。", nil
}

func (stubBackend) Translate(context.Context, string, string, string) (string, error) {
	return "Xin chào", nil
}

func (stubBackend) Segment(_ context.Context, text string) (string, error) { return text, nil }

func (stubBackend) Available(context.Context) bool { return true }

func (stubBackend) Status(context.Context) services.BackendStatus {
	return services.BackendStatus{Name: "stub", Mode: services.ModePlaceholder, Available: true}
}

type stubTools struct{}

func (stubTools) Status(context.Context) deps.ToolStatus {
	return deps.ToolStatus{Platform: deps.PlatformLinux, Available: true}
}

type testServer struct {
	engine    *workflow.Engine
	validator *stubValidator
	http      *httptest.Server
	cfg       *config.Config
}

func newTestServer(t *testing.T, opts ...testsupport.ConfigOption) *testServer {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}
	validator := &stubValidator{}
	engine := workflow.NewEngine(queue.NewMemoryStore(), validator, stubBackend{}, stubBackend{}, workflow.OptionsFromConfig(cfg, nil))
	t.Cleanup(func() { _ = engine.Close(context.Background()) })
	srv := newAPIServer(cfg, engine, stubTools{}, nil)
	ts := httptest.NewServer(srv.handler())
	t.Cleanup(ts.Close)
	return &testServer{engine: engine, validator: validator, http: ts, cfg: cfg}
}

func (s *testServer) upload(t *testing.T, name string, size int) *http.Response {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = part.Write(bytes.Repeat([]byte{0x01}, size))
	_ = mw.Close()
	resp, err := http.Post(s.http.URL+"/api/tasks", mw.FormDataContentType(), &body)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func TestUploadProcessAndFetchSubtitle(t *testing.T) {
	s := newTestServer(t)

	resp := s.upload(t, "lesson.mp4", 2048)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	if resp.Header.Get(requestIDHeader) == "" {
		t.Fatal("expected request id header")
	}
	created := decode[api.TaskResponse](t, resp)
	if created.Task.Status != "UPLOADED" || created.Task.OriginalName != "lesson.mp4" {
		t.Fatalf("unexpected task %+v", created.Task)
	}

	resp, err := http.Post(s.http.URL+"/api/tasks/"+itoa(created.Task.ID)+"/process", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}
	resp.Body.Close()
	s.engine.Wait()

	resp, err = http.Get(s.http.URL + "/api/tasks/" + itoa(created.Task.ID))
	if err != nil {
		t.Fatal(err)
	}
	got := decode[api.TaskResponse](t, resp)
	if got.Task.Status != "COMPLETED" || got.Task.Progress != 100 {
		t.Fatalf("unexpected task %+v", got.Task)
	}

	resp, err = http.Get(s.http.URL + "/api/tasks/" + itoa(created.Task.ID) + "/subtitle?format=srt")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	if !strings.HasPrefix(string(raw), "1\n00:00:00,000 --> 00:00:05,000\n") {
		t.Fatalf("unexpected srt %q", raw)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/x-subrip") {
		t.Fatalf("unexpected content type %q", ct)
	}
}

func TestRejectedUploadReturnsSuggestions(t *testing.T) {
	s := newTestServer(t)
	s.validator.err = &ffprobe.ValidationError{Reason: ffprobe.Diagnosis{Category: ffprobe.CategoryMissingContainerMetadata}.Message()}

	resp := s.upload(t, "broken.mp4", 2048)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
	body := decode[api.ErrorResponse](t, resp)
	if body.Task == nil || body.Task.Status != "UPLOAD_FAILED" {
		t.Fatalf("expected task in body, got %+v", body)
	}
	if !strings.HasPrefix(body.Error, "invalid media: ") || len(body.Suggestions) == 0 {
		t.Fatalf("unexpected error body %+v", body)
	}

	resp, err := http.Post(s.http.URL+"/api/tasks/"+itoa(body.Task.ID)+"/process", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestTaskErrors(t *testing.T) {
	s := newTestServer(t)
	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/api/tasks/99", http.StatusNotFound},
		{http.MethodGet, "/api/tasks/abc", http.StatusBadRequest},
		{http.MethodPost, "/api/tasks/99/process", http.StatusNotFound},
		{http.MethodGet, "/api/tasks?status=bogus", http.StatusBadRequest},
		{http.MethodDelete, "/api/tasks/1", http.StatusMethodNotAllowed},
		{http.MethodPost, "/api/tasks", http.StatusBadRequest},
	}
	for _, tc := range tests {
		req, _ := http.NewRequest(tc.method, s.http.URL+tc.path, nil)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != tc.want {
			t.Errorf("%s %s = %d, want %d", tc.method, tc.path, resp.StatusCode, tc.want)
		}
	}
}

func TestPutSubtitleAcceptsJSONAndText(t *testing.T) {
	s := newTestServer(t)
	created := decode[api.TaskResponse](t, s.upload(t, "a.mp4", 2048))
	url := s.http.URL + "/api/tasks/" + itoa(created.Task.ID) + "/subtitle"

	req, _ := http.NewRequest(http.MethodPut, url, strings.NewReader(`{"content":"from json"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	updated := decode[api.TaskResponse](t, resp)
	if updated.Task.Status != "UPLOADED" || updated.Task.SubtitlePath == "" {
		t.Fatalf("unexpected task %+v", updated.Task)
	}

	req, _ = http.NewRequest(http.MethodPut, url, strings.NewReader("plain text"))
	req.Header.Set("Content-Type", "text/plain")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	resp, err = http.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	sub := decode[api.SubtitleResponse](t, resp)
	if sub.Content != "plain text" || sub.TaskID != created.Task.ID {
		t.Fatalf("unexpected subtitle %+v", sub)
	}
}

func TestListFiltersByStatus(t *testing.T) {
	s := newTestServer(t)
	first := decode[api.TaskResponse](t, s.upload(t, "a.mp4", 2048))
	second := decode[api.TaskResponse](t, s.upload(t, "b.mp4", 2048))

	resp, err := http.Get(s.http.URL + "/api/tasks")
	if err != nil {
		t.Fatal(err)
	}
	all := decode[api.TaskListResponse](t, resp)
	if len(all.Tasks) != 2 || all.Tasks[0].ID != second.Task.ID || all.Tasks[1].ID != first.Task.ID {
		t.Fatalf("expected newest first, got %+v", all.Tasks)
	}

	resp, err = http.Get(s.http.URL + "/api/tasks?status=completed")
	if err != nil {
		t.Fatal(err)
	}
	if got := decode[api.TaskListResponse](t, resp); len(got.Tasks) != 0 {
		t.Fatalf("expected no completed tasks, got %+v", got.Tasks)
	}
}

func TestToolsReportsBackendsAndDirectories(t *testing.T) {
	s := newTestServer(t)
	resp, err := http.Get(s.http.URL + "/api/tools")
	if err != nil {
		t.Fatal(err)
	}
	got := decode[api.ToolsResponse](t, resp)
	if !got.Tools.Available || len(got.Backends) != 2 || len(got.Directories) != 3 {
		t.Fatalf("unexpected tools response %+v", got)
	}
}

func TestAuthToken(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Paths.APIToken = "secret"
	engine := workflow.NewEngine(queue.NewMemoryStore(), &stubValidator{}, stubBackend{}, stubBackend{}, workflow.OptionsFromConfig(cfg, nil))
	defer engine.Close(context.Background())
	ts := httptest.NewServer(newAPIServer(cfg, engine, nil, nil).handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/tasks")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/tasks", nil)
	req.Header.Set("Authorization", "Bearer secret")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestDaemonSingleInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	newDaemon := func() *Daemon {
		engine := workflow.NewEngine(queue.NewMemoryStore(), &stubValidator{}, stubBackend{}, stubBackend{}, workflow.OptionsFromConfig(cfg, nil))
		d, err := New(cfg, engine, stubTools{}, nil)
		if err != nil {
			t.Fatal(err)
		}
		return d
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first := newDaemon()
	if err := first.Start(ctx); err != nil {
		t.Fatalf("first start: %v", err)
	}
	if first.Addr() == "" {
		t.Fatal("expected bound address")
	}
	second := newDaemon()
	if err := second.Start(ctx); err != ErrAlreadyRunning {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()
	first.Stop(stopCtx)
	if err := second.Start(ctx); err != nil {
		t.Fatalf("start after release: %v", err)
	}
	second.Stop(stopCtx)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
