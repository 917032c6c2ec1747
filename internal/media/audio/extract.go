package audio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"vidsub/internal/logging"
	"vidsub/internal/media/ffprobe"
	"vidsub/internal/services"
)

const (
	// OutputSuffix replaces the video extension on extracted audio.
	OutputSuffix = "_extracted.wav"

	sampleRate = "16000"
	channels   = "1"
	codec      = "pcm_s16le"
	bitrate    = "128k"
)

// ExtractionErrorKind distinguishes extraction failures.
type ExtractionErrorKind int

const (
	KindToolUnavailable ExtractionErrorKind = iota
	KindInvalidSource
	KindToolFailure
)

func (k ExtractionErrorKind) String() string {
	switch k {
	case KindToolUnavailable:
		return "tool_unavailable"
	case KindInvalidSource:
		return "invalid_source"
	default:
		return "tool_failure"
	}
}

// ExtractionError reports why audio could not be extracted. Detail carries the
// full ffmpeg output for KindToolFailure.
type ExtractionError struct {
	Kind   ExtractionErrorKind
	Detail string
	Err    error
}

func (e *ExtractionError) Error() string {
	switch e.Kind {
	case KindToolUnavailable:
		return "audio extraction: media tool unavailable"
	case KindInvalidSource:
		return "audio extraction: invalid source: " + e.Detail
	default:
		return "audio extraction: ffmpeg failed: " + ffprobe.Classify(e.Detail).Message()
	}
}

func (e *ExtractionError) Unwrap() []error {
	var marker error
	switch e.Kind {
	case KindToolUnavailable:
		marker = services.ErrToolUnavailable
	case KindInvalidSource:
		marker = services.ErrValidation
	default:
		marker = services.ErrExternalTool
	}
	if e.Err != nil {
		return []error{marker, e.Err}
	}
	return []error{marker}
}

// Validator checks a video before it is transcoded.
type Validator interface {
	ValidateStructure(ctx context.Context, path string, requireVideoStream bool) error
}

// RunFunc executes a command and returns its combined output.
type RunFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

// Options configures an Extractor.
type Options struct {
	ScratchDir string
	Timeout    time.Duration
	Logger     *slog.Logger
	Run        RunFunc
}

// Extractor wraps ffmpeg audio extraction.
type Extractor struct {
	tools      ffprobe.ToolLocator
	validator  Validator
	scratchDir string
	timeout    time.Duration
	logger     *slog.Logger
	run        RunFunc
}

// NewExtractor constructs an Extractor.
func NewExtractor(tools ffprobe.ToolLocator, validator Validator, opts Options) *Extractor {
	run := opts.Run
	if run == nil {
		run = func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return exec.CommandContext(ctx, name, args...).CombinedOutput() //nolint:gosec
		}
	}
	return &Extractor{
		tools:      tools,
		validator:  validator,
		scratchDir: opts.ScratchDir,
		timeout:    opts.Timeout,
		logger:     logging.NewComponentLogger(opts.Logger, "audio-extractor"),
		run:        run,
	}
}

// OutputPath returns where Extract writes audio for videoPath.
func (e *Extractor) OutputPath(videoPath string) string {
	base := filepath.Base(videoPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(e.scratchDir, stem+OutputSuffix)
}

// Extract transcodes videoPath to speech-ready WAV and returns the output path.
// Any existing file at that path is overwritten.
func (e *Extractor) Extract(ctx context.Context, videoPath string) (string, error) {
	logger := logging.WithContext(ctx, e.logger)
	if e.tools == nil || !e.tools.IsAvailable(ctx) {
		return "", &ExtractionError{Kind: KindToolUnavailable}
	}
	if e.validator != nil {
		if err := e.validator.ValidateStructure(ctx, videoPath, true); err != nil {
			return "", &ExtractionError{Kind: KindInvalidSource, Detail: err.Error(), Err: err}
		}
	}
	handle, err := e.tools.Resolve(ctx)
	if err != nil {
		return "", &ExtractionError{Kind: KindToolUnavailable, Err: err}
	}
	if err := os.MkdirAll(e.scratchDir, 0o755); err != nil {
		return "", fmt.Errorf("audio extraction: ensure scratch dir: %w", err)
	}

	dest := e.OutputPath(videoPath)
	args := []string{
		"-y",
		"-hide_banner",
		"-nostdin",
		"-i", videoPath,
		"-vn",
		"-ac", channels,
		"-ar", sampleRate,
		"-c:a", codec,
		"-b:a", bitrate,
		dest,
	}
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	start := time.Now()
	output, err := e.run(ctx, handle.FFmpeg, args...)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		detail := strings.TrimSpace(string(output))
		logging.ErrorWithContext(logger, "ffmpeg audio extraction failed", "audio_extract_failed",
			logging.String("source", videoPath),
			logging.String("ffmpeg_output", detail),
			logging.String("category", ffprobe.Classify(detail).Category.String()),
			logging.Error(err),
		)
		_ = os.Remove(dest)
		return "", &ExtractionError{Kind: KindToolFailure, Detail: detail, Err: err}
	}
	if info, statErr := os.Stat(dest); statErr != nil || info.Size() == 0 {
		if statErr == nil {
			statErr = errors.New("empty output")
		}
		return "", &ExtractionError{Kind: KindToolFailure, Detail: "ffmpeg produced no audio", Err: statErr}
	}
	logger.Info("audio extracted",
		logging.String("source", videoPath),
		logging.String("output", dest),
		logging.Duration("elapsed", time.Since(start)),
	)
	return dest, nil
}
