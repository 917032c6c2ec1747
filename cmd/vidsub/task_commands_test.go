package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"vidsub/internal/api"
	"vidsub/internal/queue"
	"vidsub/internal/services/translate"
	"vidsub/internal/services/whisper"
	"vidsub/internal/subtitles"
	"vidsub/internal/testsupport"
)

func TestSubmitRunWaitCompletesTask(t *testing.T) {
	env := setupCLITestEnv(t)
	video := env.writeVideo(t, "lesson one.mp4")

	out, stderr, err := env.run(t, "", "submit", "--run", "--wait", "--json", video)
	if err != nil {
		t.Fatalf("submit: %v (stderr %q)", err, stderr)
	}
	task := decodeTask(t, out)
	if task.Status != string(queue.StatusCompleted) || task.Progress != 100 {
		t.Fatalf("unexpected task %+v", task)
	}
	if task.OriginalName != "lesson one.mp4" {
		t.Fatalf("original name = %q", task.OriginalName)
	}
	requireContains(t, stderr, "100% completed")

	out, _, err = env.run(t, "", "show", fmt.Sprint(task.ID))
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	requireContains(t, out, fmt.Sprintf("Task %d", task.ID))
	requireContains(t, out, "[OK] COMPLETED")
	requireContains(t, out, task.SubtitlePath)
}

func TestSubmitWithoutRunLeavesTaskUploaded(t *testing.T) {
	env := setupCLITestEnv(t)
	video := env.writeVideo(t, "clip.mkv")

	out, _, err := env.run(t, "", "submit", "--json", video)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	task := decodeTask(t, out)
	if task.Status != string(queue.StatusUploaded) || task.Progress != 0 {
		t.Fatalf("unexpected task %+v", task)
	}

	out, stderr, err := env.run(t, "", "run", "--wait", "--json", fmt.Sprint(task.ID))
	if err != nil {
		t.Fatalf("run: %v (stderr %q)", err, stderr)
	}
	if done := decodeTask(t, out); done.Status != string(queue.StatusCompleted) {
		t.Fatalf("expected completion, got %+v", done)
	}
}

func TestSubmitRejectedUploadShowsSuggestions(t *testing.T) {
	env := setupCLITestEnv(t)
	path := filepath.Join(env.baseDir, "tiny.mp4")
	testsupport.WriteFile(t, path, 10)

	_, _, err := env.run(t, "", "submit", path)
	if err == nil {
		t.Fatal("expected rejected upload")
	}
	msg := err.Error()
	requireContains(t, msg, "rejected")
	requireContains(t, msg, "invalid media")
	requireContains(t, msg, "suggestions:")
}

func TestRunFailedTaskReturnsError(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithStubbedMedia(testsupport.StubMedia{ExtractError: "Conversion failed!"}))
	video := env.writeVideo(t, "broken-audio.mp4")

	out, _, err := env.run(t, "", "submit", "--json", video)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	task := decodeTask(t, out)

	out, _, err = env.run(t, "", "run", "--wait", fmt.Sprint(task.ID))
	if err == nil || !strings.Contains(err.Error(), "failed") {
		t.Fatalf("expected failure error, got %v", err)
	}
	requireContains(t, out, "[ERROR] FAILED")
	requireContains(t, out, "backend failure")
}

func TestShowUnknownTask(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := env.run(t, "", "show", "999")
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not found, got %v", err)
	}

	if _, _, err := env.run(t, "", "show", "abc"); err == nil || !strings.Contains(err.Error(), "invalid task id") {
		t.Fatalf("expected invalid id error, got %v", err)
	}
}

func TestListFiltersByStatus(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := env.run(t, "", "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	requireContains(t, out, "No tasks")

	for _, name := range []string{"a.mp4", "b.mp4"} {
		if _, _, err := env.run(t, "", "submit", env.writeVideo(t, name)); err != nil {
			t.Fatalf("submit %s: %v", name, err)
		}
	}
	tiny := filepath.Join(env.baseDir, "c.mp4")
	testsupport.WriteFile(t, tiny, 1)
	_, _, _ = env.run(t, "", "submit", tiny)

	out, _, err = env.run(t, "", "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	requireContains(t, out, "a.mp4")
	requireContains(t, out, "UPLOAD_FAILED")

	out, _, err = env.run(t, "", "list", "--status", "uploaded", "--json")
	if err != nil {
		t.Fatalf("list --status: %v", err)
	}
	var resp api.TaskListResponse
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(resp.Tasks) != 2 {
		t.Fatalf("expected 2 uploaded tasks, got %+v", resp.Tasks)
	}
	if resp.Tasks[0].OriginalName != "b.mp4" {
		t.Fatalf("expected newest first, got %+v", resp.Tasks)
	}

	if _, _, err := env.run(t, "", "list", "--status", "bogus"); err == nil {
		t.Fatal("expected invalid status error")
	}
}

func TestSubtitleGetAndSet(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := env.run(t, "", "submit", "--run", "--wait", "--json", env.writeVideo(t, "talk.mp4"))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	task := decodeTask(t, out)

	out, _, err = env.run(t, "", "subtitle", "get", fmt.Sprint(task.ID))
	if err != nil {
		t.Fatalf("subtitle get: %v", err)
	}
	want := subtitles.Render(whisper.PlaceholderTranscript(12.5), translate.PlaceholderVietnamese, subtitles.DefaultCueTextLimit)
	if out != want {
		t.Fatalf("subtitle mismatch\n got %q\nwant %q", out, want)
	}

	edited := "1\n00:00:00,000 --> 00:00:02,000\nđã sửa\n\n"
	out, _, err = env.run(t, edited, "subtitle", "set", fmt.Sprint(task.ID), "-")
	if err != nil {
		t.Fatalf("subtitle set: %v", err)
	}
	requireContains(t, out, "replaced")

	out, _, err = env.run(t, "", "subtitle", "get", fmt.Sprint(task.ID))
	if err != nil {
		t.Fatalf("subtitle get: %v", err)
	}
	if out != edited {
		t.Fatalf("edited subtitle not returned: %q", out)
	}

	out, _, err = env.run(t, "", "show", "--json", fmt.Sprint(task.ID))
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	if got := decodeTask(t, out); got.Status != string(queue.StatusCompleted) {
		t.Fatalf("status changed by subtitle edit: %+v", got)
	}

	file := filepath.Join(env.baseDir, "edit.srt")
	if err := os.WriteFile(file, []byte("from file\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := env.run(t, "", "subtitle", "set", fmt.Sprint(task.ID), file); err != nil {
		t.Fatalf("subtitle set from file: %v", err)
	}
}

func TestServerUnavailableMentionsServe(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	configPath := filepath.Join(t.TempDir(), "config.toml")
	writeTestConfig(t, configPath, cfg)

	_, _, err := runCLI(t, []string{"--config", configPath, "--api", "127.0.0.1:1", "list"}, "")
	if err == nil || !strings.Contains(err.Error(), "connect to server") {
		t.Fatalf("expected connection error, got %v", err)
	}
}

func TestAPITokenIsSent(t *testing.T) {
	t.Setenv("VIDSUB_API_TOKEN", "")
	env := setupCLITestEnv(t, testsupport.WithAPIToken("s3cret"))

	if _, _, err := env.run(t, "", "list"); err != nil {
		t.Fatalf("list with token: %v", err)
	}

	other := *env.cfg
	other.Paths.APIToken = "wrong"
	otherPath := filepath.Join(env.baseDir, "wrong.toml")
	writeTestConfig(t, otherPath, &other)
	_, _, err := runCLI(t, []string{"--config", otherPath, "--api", env.addr, "list"}, "")
	if err == nil || !strings.Contains(strings.ToLower(err.Error()), "unauthorized") {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}
