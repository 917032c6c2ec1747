package api

import (
	"testing"
	"time"

	"vidsub/internal/queue"
	"vidsub/internal/services"
)

func TestFromTask(t *testing.T) {
	created := time.Date(2026, 3, 1, 10, 30, 0, 123_000_000, time.FixedZone("CST", 8*3600))
	task := &queue.Task{
		ID:           7,
		SourcePath:   "/data/uploads/1700000000000_abcd1234_clip.mp4",
		OriginalName: "clip.mp4",
		SizeBytes:    4096,
		Status:       queue.StatusFailed,
		Progress:     20,
		CurrentStep:  "transcribing",
		ErrorMessage: "backend failure: boom",
		CreatedAt:    created,
		UpdatedAt:    created,
	}
	got := FromTask(task)
	if got.FileName != "1700000000000_abcd1234_clip.mp4" {
		t.Fatalf("unexpected file name %q", got.FileName)
	}
	if got.Status != "FAILED" || got.Progress != 20 {
		t.Fatalf("unexpected status fields %+v", got)
	}
	if got.CreatedAt != "2026-03-01T02:30:00.123Z" {
		t.Fatalf("unexpected timestamp %q", got.CreatedAt)
	}
	if FromTask(nil) != (Task{}) {
		t.Fatal("nil task should convert to zero value")
	}
}

func TestFromTasksSkipsNil(t *testing.T) {
	out := FromTasks([]*queue.Task{{ID: 2}, nil, {ID: 1}})
	if len(out) != 2 || out[0].ID != 2 || out[1].ID != 1 {
		t.Fatalf("unexpected conversion %+v", out)
	}
}

func TestFailureSuggestions(t *testing.T) {
	tests := []struct {
		message string
		want    bool
	}{
		{"invalid media: MP4 container is missing its moov atom (metadata)", true},
		{services.KindToolMissing.Label() + ": audio extraction", true},
		{services.KindBackendTimeout.Label() + ": context deadline exceeded", true},
		{"invalid media: video file is empty", true},
		{"internal error: oops", false},
	}
	for _, tc := range tests {
		got := FailureSuggestions(tc.message)
		if (len(got) > 0) != tc.want {
			t.Errorf("FailureSuggestions(%q) = %v", tc.message, got)
		}
	}
}
