package ffprobe

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"os/exec"
	"slices"
	"strconv"
	"strings"
)

// Result is the subset of `ffprobe -show_format -show_streams -of json`
// that classification and audio checks read.
type Result struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

type Stream struct {
	Index      int    `json:"index"`
	CodecType  string `json:"codec_type"`
	Duration   string `json:"duration"`
	SampleRate string `json:"sample_rate"`
	Channels   int    `json:"channels"`
}

type Format struct {
	Duration   string `json:"duration"`
	FormatName string `json:"format_name"`
}

// RunFunc executes a command and returns its standard output. A failed run
// should return an *exec.ExitError carrying stderr, as exec.Cmd.Output does.
type RunFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRun(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// diagnostic picks ffprobe's stderr from a failed run, falling back to
// whatever the runner returned as output.
func diagnostic(out []byte, err error) string {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if msg := strings.TrimSpace(string(exitErr.Stderr)); msg != "" {
			return msg
		}
	}
	return strings.TrimSpace(string(out))
}

func probeArgs(path string) []string {
	return []string{"-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json", "--", path}
}

// Inspect runs ffprobe on path. Every failure, including a non-zero exit or
// output that is not JSON, is a *ProbeError of kind ToolFailure; for an exit
// the detail is ffprobe's own diagnostic text.
func Inspect(ctx context.Context, run RunFunc, binary, path string) (Result, error) {
	if strings.TrimSpace(path) == "" {
		return Result{}, &ProbeError{Kind: KindToolFailure, Detail: "empty path"}
	}
	if run == nil {
		run = execRun
	}
	if binary = strings.TrimSpace(binary); binary == "" {
		binary = "ffprobe"
	}

	out, err := run(ctx, binary, probeArgs(path)...)
	if err != nil {
		detail := diagnostic(out, err)
		if cause := ctx.Err(); cause != nil {
			err = cause
		}
		return Result{}, &ProbeError{Kind: KindToolFailure, Detail: detail, Err: err}
	}

	var result Result
	if err := json.Unmarshal(out, &result); err != nil {
		return Result{}, &ProbeError{Kind: KindToolFailure, Detail: "unparseable ffprobe output", Err: err}
	}
	return result, nil
}

func (s Stream) is(codecType string) bool { return strings.EqualFold(s.CodecType, codecType) }

func (r Result) count(codecType string) int {
	n := 0
	for _, s := range r.Streams {
		if s.is(codecType) {
			n++
		}
	}
	return n
}

func (r Result) VideoStreamCount() int { return r.count("video") }
func (r Result) AudioStreamCount() int { return r.count("audio") }

// FirstAudio returns the lowest-ordered audio stream.
func (r Result) FirstAudio() (Stream, bool) {
	i := slices.IndexFunc(r.Streams, func(s Stream) bool { return s.is("audio") })
	if i < 0 {
		return Stream{}, false
	}
	return r.Streams[i], true
}

// DurationSeconds is the container duration, 0 when missing or malformed.
func (r Result) DurationSeconds() float64 {
	return parseFloat(r.Format.Duration)
}

// parseFloat reads a non-negative ffprobe number; anything else is 0.
func parseFloat(value string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || math.IsNaN(v) || v < 0 {
		return 0
	}
	return v
}

func parseInt(value string) int {
	v, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0
	}
	return v
}
