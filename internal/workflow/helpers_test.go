package workflow_test

import (
	"bytes"
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"vidsub/internal/notifications"
	"vidsub/internal/queue"
	"vidsub/internal/services"
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

func (v *stubValidator) set(err error) {
	v.mu.Lock()
	v.err = err
	v.mu.Unlock()
}

type stubTranscriber struct {
	text  string
	err   error
	block chan struct{}
	hook  func(ctx context.Context) error
}

func (s *stubTranscriber) Transcribe(ctx context.Context, _ string) (string, error) {
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if s.hook != nil {
		if err := s.hook(ctx); err != nil {
			return "", err
		}
	}
	return s.text, s.err
}

func (s *stubTranscriber) Available(context.Context) bool { return true }

func (s *stubTranscriber) Status(context.Context) services.BackendStatus {
	return services.BackendStatus{Name: "stub-transcriber", Mode: services.ModePlaceholder, Available: true}
}

type stubTranslator struct {
	translation string
	err         error
	panicValue  any
}

func (s *stubTranslator) Translate(_ context.Context, text, _, _ string) (string, error) {
	if s.panicValue != nil {
		panic(s.panicValue)
	}
	return s.translation, s.err
}

func (s *stubTranslator) Segment(_ context.Context, text string) (string, error) {
	return text + " / segmented", nil
}

func (s *stubTranslator) Available(context.Context) bool { return true }

func (s *stubTranslator) Status(context.Context) services.BackendStatus {
	return services.BackendStatus{Name: "stub-translator", Mode: services.ModePlaceholder, Available: true}
}

// recordingStore captures every committed snapshot per task.
type recordingStore struct {
	*queue.MemoryStore
	mu        sync.Mutex
	snapshots map[int64][]queue.Task
}

func newRecordingStore() *recordingStore {
	return &recordingStore{MemoryStore: queue.NewMemoryStore(), snapshots: map[int64][]queue.Task{}}
}

func (s *recordingStore) Update(ctx context.Context, id int64, mutate queue.MutateFunc) (*queue.Task, error) {
	task, err := s.MemoryStore.Update(ctx, id, mutate)
	if err == nil {
		s.mu.Lock()
		s.snapshots[id] = append(s.snapshots[id], *task)
		s.mu.Unlock()
	}
	return task, err
}

func (s *recordingStore) history(id int64) []queue.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]queue.Task(nil), s.snapshots[id]...)
}

type harness struct {
	engine      *workflow.Engine
	store       *recordingStore
	validator   *stubValidator
	transcriber *stubTranscriber
	translator  *stubTranslator
	dir         string
}

func newHarness(t *testing.T, mutate func(*workflow.Options)) *harness {
	t.Helper()
	dir := t.TempDir()
	h := &harness{
		store:       newRecordingStore(),
		validator:   &stubValidator{},
		transcriber: &stubTranscriber{text: "你好，欢迎学习越南语。"},
		translator:  &stubTranslator{translation: "Xin chào"},
		dir:         dir,
	}
	opts := workflow.Options{
		UploadDir:          filepath.Join(dir, "uploads"),
		ScratchDir:         filepath.Join(dir, "scratch"),
		StageTimeout:       5 * time.Second,
		SourceLanguage:     "zh",
		TargetLanguage:     "vi",
		CueTextLimit:       50,
		ResetOnRerun:       true,
		RequireVideoStream: true,
	}
	if mutate != nil {
		mutate(&opts)
	}
	h.engine = workflow.NewEngine(h.store, h.validator, h.transcriber, h.translator, opts)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = h.engine.Close(ctx)
	})
	return h
}

func (h *harness) submit(t *testing.T, name string) *queue.Task {
	t.Helper()
	task, err := h.engine.Submit(context.Background(), bytes.NewReader(bytes.Repeat([]byte{0x42}, 2048)), name)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	return task
}

func (h *harness) runToEnd(t *testing.T, id int64) *queue.Task {
	t.Helper()
	if err := h.engine.Run(context.Background(), id); err != nil {
		t.Fatalf("Run: %v", err)
	}
	h.engine.Wait()
	task, err := h.engine.Task(context.Background(), id)
	if err != nil {
		t.Fatalf("Task: %v", err)
	}
	return task
}

type published struct {
	event   notifications.Event
	payload notifications.Payload
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []published
	err    error
}

func (n *recordingNotifier) Publish(_ context.Context, event notifications.Event, payload notifications.Payload) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, published{event: event, payload: payload})
	return n.err
}

func (n *recordingNotifier) all() []published {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]published(nil), n.events...)
}
