package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"vidsub/internal/config"
	"vidsub/internal/logging"
	"vidsub/internal/queue"
	"vidsub/internal/services"
	"vidsub/internal/subtitles"
)

// Options configures an Engine.
type Options struct {
	UploadDir  string
	ScratchDir string
	// WorkerCount bounds concurrent runs; zero runs each task on its own goroutine.
	WorkerCount int
	// StageTimeout bounds every stage; zero disables the bound.
	StageTimeout       time.Duration
	SourceLanguage     string
	TargetLanguage     string
	CueTextLimit       int
	ResetOnRerun       bool
	RequireVideoStream bool
	// Notifier, when set, is told about every finished run.
	Notifier Notifier
	Logger   *slog.Logger
	// Now overrides the clock used for upload names.
	Now func() time.Time
}

// OptionsFromConfig maps the loaded configuration onto engine options.
func OptionsFromConfig(cfg *config.Config, logger *slog.Logger) Options {
	return Options{
		UploadDir:          cfg.Paths.UploadDir,
		ScratchDir:         cfg.Paths.ScratchDir,
		WorkerCount:        cfg.Workflow.WorkerCount,
		StageTimeout:       cfg.StageTimeout(),
		SourceLanguage:     cfg.Workflow.SourceLanguage,
		TargetLanguage:     cfg.Workflow.TargetLanguage,
		CueTextLimit:       cfg.Workflow.CueTextLimit,
		ResetOnRerun:       cfg.Workflow.ResetOnRerun,
		RequireVideoStream: cfg.Media.RequireVideoStream,
		Logger:             logger,
	}
}

// Engine drives tasks from upload to subtitle.
type Engine struct {
	store       queue.Store
	validator   MediaValidator
	transcriber Transcriber
	translator  Translator
	opts        Options
	logger      *slog.Logger
	pool        *workerPool

	// stop aborts runs still waiting for a worker slot when the engine closes.
	stop       context.Context
	cancelStop context.CancelFunc

	mu     sync.RWMutex
	closed bool
}

// NewEngine wires the engine to its store and backends.
func NewEngine(store queue.Store, validator MediaValidator, transcriber Transcriber, translator Translator, opts Options) *Engine {
	if opts.CueTextLimit <= 0 {
		opts.CueTextLimit = subtitles.DefaultCueTextLimit
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	stop, cancel := context.WithCancel(context.Background())
	return &Engine{
		store:       store,
		validator:   validator,
		transcriber: transcriber,
		translator:  translator,
		opts:        opts,
		logger:      logging.NewComponentLogger(opts.Logger, "workflow"),
		pool:        newWorkerPool(opts.WorkerCount),
		stop:        stop,
		cancelStop:  cancel,
	}
}

// Task returns a snapshot of one task.
func (e *Engine) Task(ctx context.Context, id int64) (*queue.Task, error) {
	return e.store.Get(ctx, id)
}

// Tasks lists tasks newest first, optionally filtered by status.
func (e *Engine) Tasks(ctx context.Context, statuses ...queue.Status) ([]*queue.Task, error) {
	return e.store.List(ctx, statuses...)
}

// UpdateSubtitle replaces the subtitle file of a task with content. Any
// status is accepted; status and progress are left untouched. A task without
// a subtitle yet gets the path its run would have used.
func (e *Engine) UpdateSubtitle(ctx context.Context, id int64, content string) (*queue.Task, error) {
	task, err := e.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	path := strings.TrimSpace(task.SubtitlePath)
	if path == "" {
		path = subtitles.PathFor(e.opts.ScratchDir, id)
	}
	if err := subtitles.Write(path, content); err != nil {
		return nil, err
	}
	updated, err := e.store.Update(ctx, id, func(t *queue.Task) error {
		if t.SubtitlePath == "" {
			t.SubtitlePath = path
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	logging.WithContext(services.WithTaskID(ctx, id), e.logger).Info("subtitle replaced",
		logging.EventType("subtitle_updated"),
		logging.String("subtitle_path", path),
		logging.Int("bytes", len(content)),
	)
	return updated, nil
}

// Subtitle returns the current subtitle content of a task.
func (e *Engine) Subtitle(ctx context.Context, id int64) (string, error) {
	task, err := e.store.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if task.SubtitlePath == "" {
		return "", fmt.Errorf("task %d has no subtitle: %w", id, services.ErrNotFound)
	}
	return subtitles.Read(task.SubtitlePath)
}

// Backends reports the transcription and translation backends.
func (e *Engine) Backends(ctx context.Context) []services.BackendStatus {
	return []services.BackendStatus{
		e.transcriber.Status(ctx),
		e.translator.Status(ctx),
	}
}

// RecoverInterrupted fails tasks left PROCESSING by a previous process.
// Call it once, before the engine accepts runs.
func (e *Engine) RecoverInterrupted(ctx context.Context) ([]int64, error) {
	ids, err := queue.FailStuckProcessing(ctx, e.store, queue.InterruptedMessage)
	for _, id := range ids {
		logging.WarnWithContext(logging.WithContext(services.WithTaskID(ctx, id), e.logger),
			"interrupted task marked failed", "run_interrupted",
			logging.String(logging.FieldImpact, "the subtitle for this task was not produced"),
			logging.String(logging.FieldErrorHint, "re-run the task"),
		)
	}
	return ids, err
}

// Wait blocks until every scheduled run has finished.
func (e *Engine) Wait() {
	e.pool.Wait()
}

// Close stops accepting work and waits for in-flight runs until ctx ends.
// Runs still queued for a worker slot are failed.
func (e *Engine) Close(ctx context.Context) error {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
	e.cancelStop()

	done := make(chan struct{})
	go func() {
		e.pool.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Engine) isClosed() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.closed
}
