package workflow

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"vidsub/internal/logging"
	"vidsub/internal/notifications"
	"vidsub/internal/queue"
	"vidsub/internal/services"
	"vidsub/internal/subtitles"
)

// Step labels recorded in Task.CurrentStep.
const (
	StepQueued       = "queued"
	StepStarting     = "starting"
	StepTranscribing = "transcribing"
	StepTranslating  = "translating"
	StepSegmenting   = "segmenting"
	StepSynthesizing = "synthesizing subtitle"
	StepCompleted    = "completed"
)

type runState struct {
	task        *queue.Task
	transcript  string
	translation string
	segmented   string
	subtitle    string
}

type stageSpec struct {
	name     string
	progress int
	step     string
	run      func(ctx context.Context, state *runState) error
}

func (e *Engine) stages() []stageSpec {
	return []stageSpec{
		{name: "validate", progress: 10, step: StepStarting, run: e.validateSource},
		{name: "transcribe", progress: 20, step: StepTranscribing, run: e.transcribe},
		{name: "translate", progress: 50, step: StepTranslating, run: e.translate},
		{name: "segment", progress: 70, step: StepSegmenting, run: e.segment},
		{name: "subtitle", progress: 90, step: StepSynthesizing, run: e.synthesize},
	}
}

// Run schedules processing of a task and returns once it is PROCESSING.
// UPLOADED, FAILED and COMPLETED tasks are runnable; a re-run starts again
// from progress 0.
func (e *Engine) Run(ctx context.Context, id int64) error {
	if e.isClosed() {
		return ErrClosed
	}
	runID := uuid.NewString()
	logger := logging.WithContext(services.WithRequestID(services.WithTaskID(ctx, id), runID), e.logger)

	task, err := e.store.Update(ctx, id, func(t *queue.Task) error {
		switch {
		case t.Status == queue.StatusProcessing:
			return ErrAlreadyProcessing
		case !t.Status.Runnable():
			return fmt.Errorf("%w: status %s", ErrNotRunnable, t.Status)
		}
		t.Status = queue.StatusProcessing
		t.Progress = 0
		t.CurrentStep = StepQueued
		if e.opts.ResetOnRerun {
			t.ErrorMessage = ""
		}
		return nil
	})
	if err != nil {
		logging.ErrorWithContext(logger, "task not scheduled", "run_rejected",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the task id and status"),
		)
		return err
	}
	logger.Info("task scheduled",
		logging.EventType("run_scheduled"),
		logging.String("source_path", task.SourcePath),
	)

	runCtx := services.WithRequestID(services.WithTaskID(context.Background(), id), runID)
	e.pool.Submit(e.stop,
		func() { e.execute(runCtx, id) },
		func(cause error) {
			e.markFailed(runCtx, id, newStageError("schedule", fmt.Errorf("run abandoned before start: %w", cause)))
		},
	)
	return nil
}

func (e *Engine) execute(ctx context.Context, id int64) {
	logger := logging.WithContext(ctx, e.logger)
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			e.markFailed(ctx, id, newStageError("", &panicError{value: r}))
		}
	}()

	task, err := e.store.Get(ctx, id)
	if err != nil {
		e.markFailed(ctx, id, newStageError("schedule", fmt.Errorf("load task: %w", err)))
		return
	}
	state := &runState{task: task}
	for _, stage := range e.stages() {
		if err := e.runStage(ctx, stage, state); err != nil {
			e.markFailed(ctx, id, err)
			return
		}
	}

	done, err := e.store.Update(ctx, id, func(t *queue.Task) error {
		t.SetCompleted(state.subtitle)
		t.ErrorMessage = ""
		return nil
	})
	if err != nil {
		e.markFailed(ctx, id, newStageError("complete", err))
		return
	}
	logger.Info("task completed",
		logging.EventType("run_complete"),
		logging.String("subtitle_path", state.subtitle),
		logging.Duration("run_duration", time.Since(start)),
	)
	e.notify(ctx, notifications.EventTaskCompleted, done)
}

func (e *Engine) runStage(ctx context.Context, stage stageSpec, state *runState) error {
	ctx = services.WithStage(ctx, stage.name)
	logger := logging.WithContext(ctx, e.logger)

	if _, err := e.store.Update(ctx, state.task.ID, func(t *queue.Task) error {
		t.SetProgress(stage.progress, stage.step)
		return nil
	}); err != nil {
		return newStageError(stage.name, fmt.Errorf("record progress: %w", err))
	}
	logger.Info("stage started",
		logging.EventType("stage_start"),
		logging.Int("progress", stage.progress),
		logging.String("step", stage.step),
	)

	stageCtx := ctx
	cancel := context.CancelFunc(func() {})
	if e.opts.StageTimeout > 0 {
		stageCtx, cancel = context.WithTimeout(ctx, e.opts.StageTimeout)
	}
	start := time.Now()
	err := callStage(stageCtx, stage, state)
	timedOut := errors.Is(stageCtx.Err(), context.DeadlineExceeded)
	cancel()
	if err != nil {
		if timedOut && !errors.Is(err, services.ErrTimeout) && !errors.Is(err, context.DeadlineExceeded) {
			err = services.Wrap(services.ErrTimeout, stage.name, "", fmt.Sprintf("exceeded %s", e.opts.StageTimeout), err)
		}
		return newStageError(stage.name, err)
	}
	logger.Info("stage completed",
		logging.EventType("stage_complete"),
		logging.Duration("stage_duration", time.Since(start)),
	)
	return nil
}

// callStage runs one stage and converts a panic into an error so a faulty
// backend fails the task instead of the worker.
func callStage(ctx context.Context, stage stageSpec, state *runState) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &panicError{value: r}
		}
	}()
	return stage.run(ctx, state)
}

func (e *Engine) markFailed(ctx context.Context, id int64, err error) {
	var stageErr *StageError
	if !errors.As(err, &stageErr) {
		stageErr = newStageError("", err)
	}
	if stageErr.Stage != "" {
		ctx = services.WithStage(ctx, stageErr.Stage)
	}
	logger := logging.WithContext(ctx, e.logger)
	message := stageErr.Error()

	task, updateErr := e.store.Update(ctx, id, func(t *queue.Task) error {
		t.SetFailed(message)
		return nil
	})
	attrs := []logging.Attr{
		logging.String(logging.FieldFailureKind, string(stageErr.Kind)),
		logging.String("error_message", message),
		logging.Error(stageErr.Err),
		logging.String(logging.FieldErrorHint, hintFor(stageErr.Kind)),
	}
	if task != nil {
		attrs = append(attrs, logging.Int("progress", task.Progress))
	}
	logging.ErrorWithContext(logger, "stage failed", "stage_failure", attrs...)
	if updateErr != nil {
		logger.Error("failed to persist stage failure", logging.Error(updateErr))
		return
	}
	e.notify(ctx, notifications.EventTaskFailed, task)
}

func (e *Engine) notify(ctx context.Context, event notifications.Event, task *queue.Task) {
	if e.opts.Notifier == nil || task == nil {
		return
	}
	payload := notifications.Payload{
		"taskID":       strconv.FormatInt(task.ID, 10),
		"name":         task.OriginalName,
		"subtitlePath": task.SubtitlePath,
		"error":        task.ErrorMessage,
	}
	if err := e.opts.Notifier.Publish(ctx, event, payload); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, e.logger), "notification not delivered", "notification_failed",
			logging.String("event", string(event)),
			logging.Error(err),
			logging.String(logging.FieldImpact, "task state is unaffected"),
			logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
		)
	}
}

func hintFor(kind services.Kind) string {
	switch kind {
	case services.KindValidation:
		return "the uploaded video is damaged or incomplete; upload it again"
	case services.KindToolMissing:
		return "install ffmpeg or run vidsub tools status"
	case services.KindBackendTimeout:
		return "raise workflow.stage_timeout_seconds or check the backend"
	case services.KindBackend:
		return "check transcription and translation backend settings"
	default:
		return "check logs for details"
	}
}

func (e *Engine) validateSource(ctx context.Context, state *runState) error {
	return e.validator.ValidateStructure(ctx, state.task.SourcePath, e.opts.RequireVideoStream)
}

func (e *Engine) transcribe(ctx context.Context, state *runState) error {
	text, err := e.transcriber.Transcribe(ctx, state.task.SourcePath)
	if err != nil {
		return err
	}
	state.transcript = text
	e.stageDebug(ctx, "transcript ready", logging.Int("text_runes", len([]rune(text))))
	return nil
}

func (e *Engine) translate(ctx context.Context, state *runState) error {
	text, err := e.translator.Translate(ctx, state.transcript, e.opts.SourceLanguage, e.opts.TargetLanguage)
	if err != nil {
		return err
	}
	state.translation = text
	e.stageDebug(ctx, "translation ready", logging.Int("text_runes", len([]rune(text))))
	return nil
}

func (e *Engine) segment(ctx context.Context, state *runState) error {
	text, err := e.translator.Segment(ctx, state.transcript)
	if err != nil {
		return err
	}
	state.segmented = text
	e.stageDebug(ctx, "segmentation ready", logging.String("segmented", text))
	return nil
}

func (e *Engine) synthesize(_ context.Context, state *runState) error {
	content := subtitles.Render(state.transcript, state.translation, e.opts.CueTextLimit)
	path := subtitles.PathFor(e.opts.ScratchDir, state.task.ID)
	if err := subtitles.Write(path, content); err != nil {
		return err
	}
	state.subtitle = path
	return nil
}

func (e *Engine) stageDebug(ctx context.Context, msg string, attrs ...logging.Attr) {
	logging.WithContext(ctx, e.logger).Debug(msg, logging.Args(attrs...)...)
}
