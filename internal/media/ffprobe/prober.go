package ffprobe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"vidsub/internal/deps"
	"vidsub/internal/logging"
)

// AudioInfo describes the first audio stream of a media file.
type AudioInfo struct {
	DurationSeconds float64
	SampleRateHz    int
	ChannelCount    int
}

// ToolLocator resolves the media tools and reports whether they still run.
type ToolLocator interface {
	Resolve(ctx context.Context) (deps.Handle, error)
	IsAvailable(ctx context.Context) bool
}

// ProberOptions configures a Prober.
type ProberOptions struct {
	// MinBytes rejects files smaller than this many bytes.
	MinBytes int64
	// Timeout bounds each ffprobe invocation. Zero means no extra bound.
	Timeout time.Duration
	Logger  *slog.Logger
	Run     RunFunc
}

// Prober runs ffprobe through a ToolLocator.
type Prober struct {
	tools    ToolLocator
	minBytes int64
	timeout  time.Duration
	logger   *slog.Logger
	run      RunFunc
}

// NewProber constructs a Prober.
func NewProber(tools ToolLocator, opts ProberOptions) *Prober {
	return &Prober{
		tools:    tools,
		minBytes: opts.MinBytes,
		timeout:  opts.Timeout,
		logger:   logging.NewComponentLogger(opts.Logger, "media-probe"),
		run:      opts.Run,
	}
}

// Probe returns duration, sample rate and channel count for path.
func (p *Prober) Probe(ctx context.Context, path string) (AudioInfo, error) {
	result, err := p.inspect(ctx, path)
	if err != nil {
		return AudioInfo{}, err
	}
	stream, ok := result.FirstAudio()
	if !ok {
		return AudioInfo{}, &ProbeError{Kind: KindNoAudioStream}
	}
	info := AudioInfo{
		DurationSeconds: result.DurationSeconds(),
		SampleRateHz:    parseInt(stream.SampleRate),
		ChannelCount:    stream.Channels,
	}
	if info.DurationSeconds == 0 {
		if d := parseFloat(stream.Duration); d > 0 {
			info.DurationSeconds = d
		}
	}
	if info.SampleRateHz <= 0 || info.ChannelCount <= 0 {
		return AudioInfo{}, &ProbeError{
			Kind:   KindToolFailure,
			Detail: fmt.Sprintf("audio stream %d reports sample_rate=%q channels=%d", stream.Index, stream.SampleRate, stream.Channels),
		}
	}
	return info, nil
}

// ValidateStructure checks that path is a plausible video. It returns nil or a
// *ValidationError. Probing is skipped with a warning when the tools are
// unavailable; a non-positive duration is logged but accepted.
func (p *Prober) ValidateStructure(ctx context.Context, path string, requireVideoStream bool) error {
	logger := logging.WithContext(ctx, p.logger)

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &ValidationError{Path: path, Reason: "video file does not exist", Category: CategoryFileNotFound, Err: err}
		}
		if errors.Is(err, os.ErrPermission) {
			return &ValidationError{Path: path, Reason: "no permission to read the video file", Category: CategoryPermissionDenied, Err: err}
		}
		return &ValidationError{Path: path, Reason: "video file cannot be read: " + err.Error(), Err: err}
	}
	if info.IsDir() {
		return &ValidationError{Path: path, Reason: "video path is a directory"}
	}
	size := info.Size()
	if size == 0 {
		return &ValidationError{Path: path, Reason: "video file is empty"}
	}
	if size < p.minBytes {
		return &ValidationError{Path: path, Reason: fmt.Sprintf("video file is too small to be valid (%d bytes, minimum %d)", size, p.minBytes)}
	}

	if p.tools == nil || !p.tools.IsAvailable(ctx) {
		logging.WarnWithContext(logger, "media tools unavailable; skipping structural probe", "probe_skipped",
			logging.String("path", path),
			logging.String(logging.FieldImpact, "upload accepted after size checks only"),
			logging.String(logging.FieldErrorHint, "run vidsub tools status"),
		)
		return nil
	}

	result, err := p.inspect(ctx, path)
	if err != nil {
		var probeErr *ProbeError
		if errors.As(err, &probeErr) {
			diag := probeErr.Diagnosis()
			return &ValidationError{Path: path, Reason: diag.Message(), Category: diag.Category, Err: err}
		}
		return &ValidationError{Path: path, Reason: err.Error(), Err: err}
	}
	if requireVideoStream && result.VideoStreamCount() == 0 {
		return &ValidationError{Path: path, Reason: "file contains no video stream"}
	}
	if result.DurationSeconds() <= 0 {
		logging.WarnWithContext(logger, "media reports no duration", "probe_warning",
			logging.String("path", path),
			logging.String(logging.FieldImpact, "placeholder transcripts assume a short clip"),
		)
	}
	logger.Debug("media structure validated",
		logging.String("path", path),
		logging.Int("video_streams", result.VideoStreamCount()),
		logging.Int("audio_streams", result.AudioStreamCount()),
		logging.Float64("duration_seconds", result.DurationSeconds()),
	)
	return nil
}

func (p *Prober) inspect(ctx context.Context, path string) (Result, error) {
	if p.tools == nil {
		return Result{}, errors.New("ffprobe: no tool locator configured")
	}
	handle, err := p.tools.Resolve(ctx)
	if err != nil {
		return Result{}, err
	}
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	return Inspect(ctx, p.run, handle.FFprobe, path)
}
