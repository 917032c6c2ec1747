package daemonrun

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"vidsub/internal/queue"
	"vidsub/internal/services/translate"
	"vidsub/internal/services/whisper"
	"vidsub/internal/subtitles"
	"vidsub/internal/testsupport"
	"vidsub/internal/workflow"
)

func buildRuntime(t *testing.T, opts ...testsupport.ConfigOption) *Runtime {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	rt, err := Build(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = rt.Close(ctx)
	})
	return rt
}

func submitAndRun(t *testing.T, rt *Runtime, name string) *queue.Task {
	t.Helper()
	ctx := context.Background()
	task, err := rt.Engine.Submit(ctx, bytes.NewReader(bytes.Repeat([]byte{0x7f}, 4096)), name)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if task.Status != queue.StatusUploaded {
		t.Fatalf("upload not accepted: %+v", task)
	}
	if err := rt.Engine.Run(ctx, task.ID); err != nil {
		t.Fatalf("Run: %v", err)
	}
	rt.Engine.Wait()
	done, err := rt.Engine.Task(ctx, task.ID)
	if err != nil {
		t.Fatalf("Task: %v", err)
	}
	return done
}

func TestPipelineWithStubbedMediaTools(t *testing.T) {
	rt := buildRuntime(t, testsupport.WithStubbedMedia(testsupport.StubMedia{}))

	done := submitAndRun(t, rt, "lesson.mp4")
	if done.Status != queue.StatusCompleted || done.Progress != 100 {
		t.Fatalf("unexpected task %+v", done)
	}
	content, err := rt.Engine.Subtitle(context.Background(), done.ID)
	if err != nil {
		t.Fatal(err)
	}
	want := subtitles.Render(whisper.PlaceholderTranscript(12.5), translate.PlaceholderVietnamese, subtitles.DefaultCueTextLimit)
	if content != want {
		t.Fatalf("subtitle mismatch\n got %q\nwant %q", content, want)
	}
	cues := subtitles.Parse(content)
	if len(cues) != 1 || cues[0].End != subtitles.PlaceholderCueEnd {
		t.Fatalf("expected a single placeholder cue, got %+v", cues)
	}
}

func TestCorruptUploadIsRejected(t *testing.T) {
	rt := buildRuntime(t, testsupport.WithStubbedMedia(testsupport.StubMedia{
		ProbeError: "[mov,mp4,m4a,3gp,3g2,mj2 @ 0x1] moov atom not found",
	}))
	task, err := rt.Engine.Submit(context.Background(), bytes.NewReader(bytes.Repeat([]byte{1}, 4096)), "broken.mp4")
	if err != nil {
		t.Fatal(err)
	}
	if task.Status != queue.StatusUploadFailed || !strings.Contains(task.ErrorMessage, "moov atom") {
		t.Fatalf("unexpected task %+v", task)
	}
}

func TestUploadWithoutVideoStreamIsRejected(t *testing.T) {
	audioOnly := `{"streams":[{"index":0,"codec_type":"audio","sample_rate":"16000","channels":1}],"format":{"duration":"3.0"}}`
	rt := buildRuntime(t, testsupport.WithStubbedMedia(testsupport.StubMedia{ProbeJSON: audioOnly}))
	task, err := rt.Engine.Submit(context.Background(), bytes.NewReader(bytes.Repeat([]byte{1}, 4096)), "voice.m4a")
	if err != nil {
		t.Fatal(err)
	}
	if task.Status != queue.StatusUploadFailed || !strings.Contains(task.ErrorMessage, "no video stream") {
		t.Fatalf("unexpected task %+v", task)
	}
}

func TestExtractionFailureFailsAtTranscription(t *testing.T) {
	rt := buildRuntime(t, testsupport.WithStubbedMedia(testsupport.StubMedia{
		ExtractError: "Invalid data found when processing input",
	}))
	done := submitAndRun(t, rt, "a.mp4")
	if done.Status != queue.StatusFailed || done.Progress != 20 || done.CurrentStep != workflow.StepTranscribing {
		t.Fatalf("unexpected task %+v", done)
	}
	if !strings.HasPrefix(done.ErrorMessage, "backend failure: ") {
		t.Fatalf("unexpected message %q", done.ErrorMessage)
	}
}

func TestMissingToolsFailWithToolMissing(t *testing.T) {
	rt := buildRuntime(t, testsupport.WithMissingTools())
	done := submitAndRun(t, rt, "a.mp4")
	if done.Status != queue.StatusFailed || done.Progress != 20 {
		t.Fatalf("unexpected task %+v", done)
	}
	if !strings.HasPrefix(done.ErrorMessage, "media tool missing: ") {
		t.Fatalf("unexpected message %q", done.ErrorMessage)
	}
	status := rt.Tools.Status(context.Background())
	if status.Available || status.InstructionsPath == "" {
		t.Fatalf("expected unavailable tools with instructions, got %+v", status)
	}
}

func TestSlowExtractionTimesOut(t *testing.T) {
	rt := buildRuntime(t,
		testsupport.WithStubbedMedia(testsupport.StubMedia{ExtractDelay: 3}),
		testsupport.WithStageTimeout(1),
	)
	done := submitAndRun(t, rt, "a.mp4")
	if done.Status != queue.StatusFailed || !strings.HasPrefix(done.ErrorMessage, "backend timeout: ") {
		t.Fatalf("unexpected task %+v", done)
	}
}

func TestSQLiteStoreConcurrentRuns(t *testing.T) {
	rt := buildRuntime(t,
		testsupport.WithStubbedMedia(testsupport.StubMedia{}),
		testsupport.WithSQLiteStore(),
		testsupport.WithWorkers(4),
	)
	const n = 12
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			task, err := rt.Engine.Submit(context.Background(), bytes.NewReader(bytes.Repeat([]byte{2}, 4096)), fmt.Sprintf("clip-%02d.mp4", i))
			if err != nil {
				errs <- err
				return
			}
			errs <- rt.Engine.Run(context.Background(), task.ID)
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatal(err)
		}
	}
	rt.Engine.Wait()
	completed, err := rt.Engine.Tasks(context.Background(), queue.StatusCompleted)
	if err != nil {
		t.Fatal(err)
	}
	if len(completed) != n {
		t.Fatalf("expected %d completed tasks, got %d", n, len(completed))
	}
}

func TestRestartFailsTasksLeftProcessing(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithSQLiteStore(), testsupport.WithStubbedMedia(testsupport.StubMedia{}))
	ctx := context.Background()

	first, err := Build(ctx, cfg, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	task, err := first.Engine.Submit(ctx, bytes.NewReader(bytes.Repeat([]byte{0x7f}, 4096)), "lesson.mp4")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, err := first.Store.Update(ctx, task.ID, func(t *queue.Task) error {
		t.SetProgress(50, workflow.StepTranslating)
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	if err := first.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}

	rt, err := Build(ctx, cfg, nil)
	if err != nil {
		t.Fatalf("Build after restart: %v", err)
	}
	t.Cleanup(func() { _ = rt.Close(ctx) })

	got, err := rt.Engine.Task(ctx, task.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != queue.StatusFailed || got.Progress != 50 || got.ErrorMessage != queue.InterruptedMessage {
		t.Fatalf("unexpected task after restart %+v", got)
	}

	if err := rt.Engine.Run(ctx, task.ID); err != nil {
		t.Fatalf("re-run after restart: %v", err)
	}
	rt.Engine.Wait()
	done, err := rt.Engine.Task(ctx, task.ID)
	if err != nil {
		t.Fatal(err)
	}
	if done.Status != queue.StatusCompleted || done.Progress != 100 {
		t.Fatalf("re-run did not complete: %+v", done)
	}
}
