package ffprobe

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestResultHelpers(t *testing.T) {
	result := Result{
		Streams: []Stream{
			{CodecType: "video"},
			{CodecType: "audio", SampleRate: "16000", Channels: 1},
			{CodecType: "AUDIO"},
		},
		Format: Format{Duration: "123.45"},
	}
	if result.VideoStreamCount() != 1 {
		t.Fatalf("expected 1 video stream, got %d", result.VideoStreamCount())
	}
	if result.AudioStreamCount() != 2 {
		t.Fatalf("expected 2 audio streams, got %d", result.AudioStreamCount())
	}
	if result.DurationSeconds() != 123.45 {
		t.Fatalf("unexpected duration: %v", result.DurationSeconds())
	}
	if s, ok := result.FirstAudio(); !ok || s.SampleRate != "16000" {
		t.Fatalf("unexpected first audio %+v", s)
	}
}

func TestDurationSecondsHandlesInvalidNumbers(t *testing.T) {
	for _, raw := range []string{"", "bad", "-3"} {
		r := Result{Format: Format{Duration: raw}}
		if r.DurationSeconds() != 0 {
			t.Fatalf("duration %q => %v, want 0", raw, r.DurationSeconds())
		}
	}
}

func TestInspectRejectsEmptyPath(t *testing.T) {
	if _, err := Inspect(context.Background(), nil, "ffprobe", "  "); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestInspectUnparseableOutput(t *testing.T) {
	_, err := Inspect(context.Background(), fixedRun("not json", nil), "ffprobe", "clip.mp4")
	if err == nil {
		t.Fatal("expected parse failure")
	}
}

func writeProbeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ffprobe")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestInspectIgnoresStderrOnSuccess(t *testing.T) {
	binary := writeProbeScript(t, `echo '[h264 @ 0x1] mmco: unref short failure' >&2
echo '{"streams":[{"codec_type":"video"},{"codec_type":"audio","sample_rate":"16000","channels":1}],"format":{"duration":"3.5"}}'
`)
	result, err := Inspect(context.Background(), nil, binary, "clip.mp4")
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if result.VideoStreamCount() != 1 || result.DurationSeconds() != 3.5 {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestInspectReportsStderrOnFailure(t *testing.T) {
	binary := writeProbeScript(t, `echo '{}'
echo 'clip.mp4: moov atom not found' >&2
exit 1
`)
	_, err := Inspect(context.Background(), nil, binary, "clip.mp4")
	var probeErr *ProbeError
	if !errors.As(err, &probeErr) {
		t.Fatalf("expected *ProbeError, got %v", err)
	}
	if probeErr.Detail != "clip.mp4: moov atom not found" {
		t.Fatalf("detail = %q, want ffprobe's stderr", probeErr.Detail)
	}
}
