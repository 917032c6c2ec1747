package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"vidsub/internal/api"
	"vidsub/internal/config"
	"vidsub/internal/logging"
	"vidsub/internal/preflight"
	"vidsub/internal/queue"
	"vidsub/internal/services"
	"vidsub/internal/workflow"
)

const (
	// maxUploadBytes bounds a multipart upload body.
	maxUploadBytes = 4 << 30
	// multipartMemory is held in memory before parts spill to temp files.
	multipartMemory = 32 << 20
	// maxSubtitleBytes bounds a subtitle replacement body.
	maxSubtitleBytes = 8 << 20
	uploadField      = "file"
	srtContentType   = "application/x-subrip; charset=utf-8"
)

type apiServer struct {
	cfg    *config.Config
	bind   string
	logger *slog.Logger
	engine Engine
	tools  ToolReporter

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, engine Engine, tools ToolReporter, logger *slog.Logger) *apiServer {
	s := &apiServer{
		cfg:    cfg,
		bind:   strings.TrimSpace(cfg.Paths.APIBind),
		logger: logging.NewComponentLogger(logger, "api-server"),
		engine: engine,
		tools:  tools,
	}
	s.server = &http.Server{
		Handler:           s.handler(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// handler builds the routed and wrapped HTTP handler.
func (s *apiServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/tasks", s.handleUpload)
	mux.HandleFunc("GET /api/tasks", s.handleList)
	mux.HandleFunc("GET /api/tasks/{id}", s.handleTask)
	mux.HandleFunc("POST /api/tasks/{id}/process", s.handleProcess)
	mux.HandleFunc("GET /api/tasks/{id}/subtitle", s.handleGetSubtitle)
	mux.HandleFunc("PUT /api/tasks/{id}/subtitle", s.handlePutSubtitle)
	mux.HandleFunc("GET /api/tools", s.handleTools)

	var h http.Handler = mux
	h = authMiddleware(s.cfg.Paths.APIToken, h)
	h = recovery(s.logger, h)
	h = accessLog(s.logger, h)
	return requestID(h)
}

func (s *apiServer) start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.ErrorWithContext(s.logger, "api server error", "api_server_failed", logging.Error(err))
		}
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) stop(ctx context.Context) {
	if err := s.server.Shutdown(ctx); err != nil {
		s.logger.Warn("api server shutdown incomplete", logging.Error(err))
	}
}

func (s *apiServer) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		s.writeError(w, r, http.StatusBadRequest, fmt.Errorf("parse upload form: %w", err))
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()
	file, header, err := r.FormFile(uploadField)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, fmt.Errorf("missing %q file part: %w", uploadField, err))
		return
	}
	defer file.Close()

	task, err := s.engine.Submit(r.Context(), file, header.Filename)
	if err != nil {
		s.writeError(w, r, statusFor(err), err)
		return
	}
	if task.Status == queue.StatusUploadFailed {
		view := api.FromTask(task)
		writeJSON(w, http.StatusUnprocessableEntity, errorBody(r, task.ErrorMessage, string(services.KindValidation), &view))
		return
	}
	writeJSON(w, http.StatusCreated, api.TaskResponse{Task: api.FromTask(task)})
}

func (s *apiServer) handleList(w http.ResponseWriter, r *http.Request) {
	var statuses []queue.Status
	for _, value := range r.URL.Query()["status"] {
		for _, part := range strings.Split(value, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			status, err := queue.ParseStatus(part)
			if err != nil {
				s.writeError(w, r, http.StatusBadRequest, err)
				return
			}
			statuses = append(statuses, status)
		}
	}
	tasks, err := s.engine.Tasks(r.Context(), statuses...)
	if err != nil {
		s.writeError(w, r, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, api.TaskListResponse{Tasks: api.FromTasks(tasks)})
}

func (s *apiServer) handleTask(w http.ResponseWriter, r *http.Request) {
	id, ok := s.taskID(w, r)
	if !ok {
		return
	}
	task, err := s.engine.Task(r.Context(), id)
	if err != nil {
		s.writeError(w, r, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, api.TaskResponse{Task: api.FromTask(task)})
}

func (s *apiServer) handleProcess(w http.ResponseWriter, r *http.Request) {
	id, ok := s.taskID(w, r)
	if !ok {
		return
	}
	// The run outlives the request.
	ctx := context.WithoutCancel(r.Context())
	if err := s.engine.Run(ctx, id); err != nil {
		status := statusFor(err)
		if errors.Is(err, workflow.ErrNotRunnable) {
			if task, getErr := s.engine.Task(r.Context(), id); getErr == nil {
				view := api.FromTask(task)
				body := errorBody(r, "task cannot be processed: "+task.ErrorMessage, string(services.KindValidation), &view)
				body.Suggestions = []string{"upload a valid video file again"}
				writeJSON(w, status, body)
				return
			}
		}
		s.writeError(w, r, status, err)
		return
	}
	task, err := s.engine.Task(r.Context(), id)
	if err != nil {
		s.writeError(w, r, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusAccepted, api.TaskResponse{Task: api.FromTask(task)})
}

func (s *apiServer) handleGetSubtitle(w http.ResponseWriter, r *http.Request) {
	id, ok := s.taskID(w, r)
	if !ok {
		return
	}
	content, err := s.engine.Subtitle(r.Context(), id)
	if err != nil {
		s.writeError(w, r, statusFor(err), err)
		return
	}
	if wantsSRT(r) {
		w.Header().Set("Content-Type", srtContentType)
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, content)
		return
	}
	writeJSON(w, http.StatusOK, api.SubtitleResponse{TaskID: id, Content: content})
}

func (s *apiServer) handlePutSubtitle(w http.ResponseWriter, r *http.Request) {
	id, ok := s.taskID(w, r)
	if !ok {
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxSubtitleBytes))
	if err != nil {
		s.writeError(w, r, http.StatusRequestEntityTooLarge, fmt.Errorf("read subtitle body: %w", err))
		return
	}
	content := string(body)
	if mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); mediaType == "application/json" {
		var req api.SubtitleUpdateRequest
		if err := json.Unmarshal(body, &req); err != nil {
			s.writeError(w, r, http.StatusBadRequest, fmt.Errorf("decode subtitle body: %w", err))
			return
		}
		content = req.Content
	}
	task, err := s.engine.UpdateSubtitle(r.Context(), id, content)
	if err != nil {
		s.writeError(w, r, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, api.TaskResponse{Task: api.FromTask(task)})
}

func (s *apiServer) handleTools(w http.ResponseWriter, r *http.Request) {
	resp := api.ToolsResponse{Backends: s.engine.Backends(r.Context())}
	if s.tools != nil {
		resp.Tools = s.tools.Status(r.Context())
	}
	for _, result := range preflight.CheckDirectories(s.cfg) {
		resp.Directories = append(resp.Directories, api.DirectoryStatus{
			Name:   result.Name,
			Path:   result.Path,
			Passed: result.Passed,
			Detail: result.Detail,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *apiServer) taskID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		s.writeError(w, r, http.StatusBadRequest, fmt.Errorf("invalid task id %q", r.PathValue("id")))
		return 0, false
	}
	return id, true
}

func wantsSRT(r *http.Request) bool {
	if strings.EqualFold(r.URL.Query().Get("format"), "srt") {
		return true
	}
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "application/x-subrip") || strings.HasPrefix(accept, "text/plain")
}

// statusFor maps engine and store errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, workflow.ErrAlreadyProcessing), errors.Is(err, workflow.ErrNotRunnable):
		return http.StatusConflict
	case errors.Is(err, workflow.ErrClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	kind := services.FailureKind(err)
	if status >= http.StatusInternalServerError {
		logging.ErrorWithContext(logging.WithContext(r.Context(), s.logger), "api request failed", "api_error",
			logging.String("path", r.URL.Path),
			logging.Int("status", status),
			logging.String(logging.FieldFailureKind, string(kind)),
			logging.Error(err),
		)
	}
	body := errorBody(r, err.Error(), string(kind), nil)
	body.Suggestions = api.FailureSuggestions(err.Error())
	writeJSON(w, status, body)
}

func errorBody(r *http.Request, message, kind string, task *api.Task) api.ErrorResponse {
	body := api.ErrorResponse{Error: message, Kind: kind, Task: task}
	if rid, ok := services.RequestIDFromContext(r.Context()); ok {
		body.RequestID = rid
	}
	if task != nil && kind == string(services.KindValidation) {
		body.Suggestions = api.FailureSuggestions(message)
		if len(body.Suggestions) == 0 {
			body.Suggestions = api.UploadSuggestions()
		}
	}
	return body
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}
