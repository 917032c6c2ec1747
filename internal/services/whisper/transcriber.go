package whisper

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

	"vidsub/internal/config"
	"vidsub/internal/deps"
	"vidsub/internal/logging"
	"vidsub/internal/media/ffprobe"
	"vidsub/internal/services"
)

// AudioExtractor produces a speech-ready WAV from a video.
type AudioExtractor interface {
	Extract(ctx context.Context, videoPath string) (string, error)
}

// AudioProber reports properties of an audio file.
type AudioProber interface {
	Probe(ctx context.Context, path string) (ffprobe.AudioInfo, error)
}

// RunFunc executes an external command and returns its combined output.
type RunFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

// Options configures a Transcriber.
type Options struct {
	// Binary and Model select whisper.cpp. Either empty means placeholder mode.
	Binary   string
	Model    string
	Language string
	Logger   *slog.Logger
	Run      RunFunc
}

// OptionsFromConfig maps the [transcription] section.
func OptionsFromConfig(cfg *config.Config, logger *slog.Logger) Options {
	return Options{
		Binary:   cfg.Transcription.WhisperBinary,
		Model:    cfg.Transcription.ModelPath,
		Language: cfg.Transcription.Language,
		Logger:   logger,
	}
}

// Transcriber turns a video into source-language text.
type Transcriber struct {
	extractor AudioExtractor
	prober    AudioProber
	tools     ffprobe.ToolLocator
	binary    string
	model     string
	language  string
	logger    *slog.Logger
	run       RunFunc
}

// New constructs a Transcriber. tools is consulted by Available since
// extraction needs ffmpeg in every mode.
func New(extractor AudioExtractor, prober AudioProber, tools ffprobe.ToolLocator, opts Options) *Transcriber {
	run := opts.Run
	if run == nil {
		run = func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return exec.CommandContext(ctx, name, args...).CombinedOutput() //nolint:gosec
		}
	}
	return &Transcriber{
		extractor: extractor,
		prober:    prober,
		tools:     tools,
		binary:    strings.TrimSpace(opts.Binary),
		model:     strings.TrimSpace(opts.Model),
		language:  strings.TrimSpace(opts.Language),
		logger:    logging.NewComponentLogger(opts.Logger, "whisper"),
		run:       run,
	}
}

func (t *Transcriber) local() bool {
	return t.binary != "" && t.model != ""
}

// Transcribe extracts audio from mediaPath and returns its transcript.
func (t *Transcriber) Transcribe(ctx context.Context, mediaPath string) (string, error) {
	logger := logging.WithContext(ctx, t.logger)

	audioPath, err := t.extractor.Extract(ctx, mediaPath)
	if err != nil {
		return "", fmt.Errorf("transcription: %w", err)
	}
	info, err := t.prober.Probe(ctx, audioPath)
	if err != nil {
		return "", fmt.Errorf("transcription: probe extracted audio: %w", err)
	}
	logger.Info("audio ready for transcription",
		logging.String("audio", audioPath),
		logging.Float64("duration_seconds", info.DurationSeconds),
		logging.Int("sample_rate_hz", info.SampleRateHz),
		logging.Int("channels", info.ChannelCount),
	)

	if !t.local() {
		text := PlaceholderTranscript(info.DurationSeconds)
		logger.Info("placeholder transcript produced",
			logging.String("mode", services.ModePlaceholder),
			logging.Int("text_runes", len([]rune(text))),
		)
		return text, nil
	}
	return t.runWhisper(ctx, logger, audioPath)
}

func (t *Transcriber) runWhisper(ctx context.Context, logger *slog.Logger, audioPath string) (string, error) {
	textBase := strings.TrimSuffix(audioPath, filepath.Ext(audioPath))
	textPath := textBase + ".txt"
	args := buildArgs(t.model, audioPath, textBase, t.language)

	start := time.Now()
	output, err := t.run(ctx, t.binary, args...)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = errors.Join(ctxErr, err)
		}
		return "", services.Wrap(services.ErrExternalTool, "transcription", "whisper.cpp",
			summarize(string(output)), err)
	}
	content, err := os.ReadFile(textPath)
	if err != nil {
		return "", services.Wrap(services.ErrExternalTool, "transcription", "whisper.cpp",
			"completed but transcript .txt file is missing", err)
	}
	text := strings.TrimSpace(string(content))
	logger.Info("whisper.cpp transcription completed",
		logging.String("transcript", textPath),
		logging.Duration("elapsed", time.Since(start)),
		logging.Int("text_runes", len([]rune(text))),
	)
	return text, nil
}

func buildArgs(model, audioPath, textBase, language string) []string {
	args := []string{
		"-m", model,
		"-f", audioPath,
		"-of", textBase,
		"-otxt",
	}
	if language != "" {
		args = append(args, "-l", language)
	}
	return args
}

func summarize(output string) string {
	output = strings.Join(strings.Fields(output), " ")
	if output == "" {
		return "transcription failed"
	}
	const limit = 200
	if runes := []rune(output); len(runes) > limit {
		return string(runes[:limit]) + "..."
	}
	return output
}

// Available reports whether transcription can run now: the media tools must
// be runnable and, in local mode, the whisper binary and model must exist.
func (t *Transcriber) Available(ctx context.Context) bool {
	if t.tools == nil || !t.tools.IsAvailable(ctx) {
		return false
	}
	if !t.local() {
		return true
	}
	return t.localProblem() == ""
}

// localProblem describes why the configured whisper.cpp setup cannot run, or
// returns "".
func (t *Transcriber) localProblem() string {
	binary := deps.CheckBinary("whisper.cpp", t.binary)
	if !binary.Available {
		return binary.Detail
	}
	if _, err := os.Stat(t.model); err != nil {
		return fmt.Sprintf("model %s not readable", t.model)
	}
	return ""
}

// Status describes the active mode.
func (t *Transcriber) Status(ctx context.Context) services.BackendStatus {
	status := services.BackendStatus{
		Name:      "whisper",
		Available: t.Available(ctx),
		Languages: SupportedLanguages(),
	}
	if t.local() {
		status.Mode = services.ModeLocal
		status.Model = t.model
		status.Detail = "whisper.cpp at " + t.binary
	} else {
		status.Mode = services.ModePlaceholder
		status.Detail = "whisper.cpp not configured; returning placeholder transcripts"
	}
	if !status.Available {
		reason := "media tools unavailable"
		if t.local() {
			if problem := t.localProblem(); problem != "" {
				reason = problem
			}
		}
		status.Detail += " (" + reason + ")"
	}
	return status
}
