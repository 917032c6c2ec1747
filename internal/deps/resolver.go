package deps

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"vidsub/internal/fileutil"
	"vidsub/internal/logging"
	"vidsub/internal/services"
)

// InstructionsFileName is written under <scratch>/ffmpeg when no tool can be found.
const InstructionsFileName = "FFMPEG_SETUP_INSTRUCTIONS.txt"

// Source records where a resolved tool came from.
type Source string

const (
	SourcePath    Source = "path"
	SourceBundled Source = "bundled"
)

// Handle names the resolved ffmpeg and ffprobe executables.
type Handle struct {
	FFmpeg  string
	FFprobe string
	Source  Source
}

// ResolutionError is returned when neither PATH nor a bundle provides the tool.
type ResolutionError struct {
	Tool             string
	Platform         Platform
	InstructionsPath string
}

func (e *ResolutionError) Error() string {
	msg := fmt.Sprintf("%s not found on PATH and no bundled binary for %s", e.Tool, e.Platform)
	if e.InstructionsPath != "" {
		msg += "; installation instructions written to " + e.InstructionsPath
	}
	return msg
}

func (e *ResolutionError) Unwrap() error { return services.ErrToolUnavailable }

// RunFunc executes a command and returns its combined output.
type RunFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRun(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Options configures a Resolver.
type Options struct {
	FFmpegBinary  string
	FFprobeBinary string
	// BundleDir holds <platform>/<executable> fallbacks. Empty disables bundles.
	BundleDir  string
	ScratchDir string
	// OS overrides runtime.GOOS for platform detection.
	OS           string
	ProbeTimeout time.Duration
	Logger       *slog.Logger
	Run          RunFunc
}

// Resolver locates ffmpeg and ffprobe. It is safe for concurrent use.
type Resolver struct {
	ffmpegName   string
	ffprobeName  string
	bundleDir    string
	scratchDir   string
	platform     Platform
	probeTimeout time.Duration
	logger       *slog.Logger
	run          RunFunc

	mu     sync.Mutex
	handle *Handle
}

// NewResolver builds a resolver. Unrecognized OS identifiers fall back to linux
// with a warning.
func NewResolver(opts Options) *Resolver {
	logger := logging.NewComponentLogger(opts.Logger, "tool-resolver")
	osName := opts.OS
	if strings.TrimSpace(osName) == "" {
		osName = runtime.GOOS
	}
	platform, known := DetectPlatform(osName)
	if !known {
		logging.WarnWithContext(logger, "unrecognized operating system; assuming linux", "platform_fallback",
			logging.String("os", osName),
			logging.String(logging.FieldImpact, "bundled binaries and install instructions target linux"),
			logging.String(logging.FieldErrorHint, "set tools.bundle_dir or install ffmpeg on PATH"),
		)
	}
	r := &Resolver{
		ffmpegName:   defaultString(opts.FFmpegBinary, "ffmpeg"),
		ffprobeName:  defaultString(opts.FFprobeBinary, "ffprobe"),
		bundleDir:    strings.TrimSpace(opts.BundleDir),
		scratchDir:   opts.ScratchDir,
		platform:     platform,
		probeTimeout: opts.ProbeTimeout,
		logger:       logger,
		run:          opts.Run,
	}
	if r.probeTimeout <= 0 {
		r.probeTimeout = 10 * time.Second
	}
	if r.run == nil {
		r.run = execRun
	}
	return r
}

// Platform reports the detected platform.
func (r *Resolver) Platform() Platform { return r.platform }

// Resolve returns the tool handle, resolving it on first success and caching it
// afterwards. Failures are not cached so a later install is picked up.
func (r *Resolver) Resolve(ctx context.Context) (Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.handle != nil {
		return *r.handle, nil
	}

	ffmpeg, src, err := r.resolveTool(ctx, r.ffmpegName)
	if err != nil {
		return Handle{}, err
	}
	ffprobe, _, err := r.resolveTool(ctx, r.ffprobeName)
	if err != nil {
		return Handle{}, err
	}
	h := Handle{FFmpeg: ffmpeg, FFprobe: ffprobe, Source: src}
	r.handle = &h
	r.logger.Info("media tools resolved",
		logging.String("ffmpeg", h.FFmpeg),
		logging.String("ffprobe", h.FFprobe),
		logging.String("source", string(h.Source)),
		logging.String("platform", string(r.platform)),
	)
	return h, nil
}

// IsAvailable resolves the tools if needed and re-runs the version probe against
// the resolved paths. The probe is never cached.
func (r *Resolver) IsAvailable(ctx context.Context) bool {
	h, err := r.Resolve(ctx)
	if err != nil {
		return false
	}
	return r.runnable(ctx, h.FFmpeg) == nil && r.runnable(ctx, h.FFprobe) == nil
}

func (r *Resolver) resolveTool(ctx context.Context, name string) (string, Source, error) {
	err := r.runnable(ctx, name)
	if err == nil {
		return name, SourcePath, nil
	}
	r.logger.Debug("tool not runnable from PATH", logging.String("tool", name), logging.Error(err))

	if path, ok, err := r.materializeBundled(name); err != nil {
		return "", "", services.Wrap(services.ErrToolUnavailable, "", "install bundled "+name, "", err)
	} else if ok {
		return path, SourceBundled, nil
	}

	instructions, err := r.writeInstructions()
	if err != nil {
		r.logger.Warn("write installation instructions failed", logging.Error(err))
	}
	return "", "", &ResolutionError{Tool: name, Platform: r.platform, InstructionsPath: instructions}
}

func (r *Resolver) runnable(ctx context.Context, path string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	probeCtx, cancel := context.WithTimeout(ctx, r.probeTimeout)
	defer cancel()
	if _, err := r.run(probeCtx, path, "-version"); err != nil {
		return err
	}
	return nil
}

func (r *Resolver) toolDir() string {
	return filepath.Join(r.scratchDir, "ffmpeg")
}

func (r *Resolver) materializeBundled(name string) (string, bool, error) {
	if r.bundleDir == "" {
		return "", false, nil
	}
	exe := r.platform.ExecutableName(filepath.Base(name))
	src := filepath.Join(r.bundleDir, string(r.platform), exe)
	info, err := os.Stat(src)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", false, nil
		}
		return "", false, err
	}
	if info.IsDir() {
		return "", false, nil
	}
	if err := os.MkdirAll(r.toolDir(), 0o755); err != nil {
		return "", false, err
	}
	dst := filepath.Join(r.toolDir(), exe)
	mode := os.FileMode(0o644)
	if r.platform != PlatformWindows {
		mode = 0o755
	}
	if err := fileutil.CopyFileMode(src, dst, mode); err != nil {
		return "", false, err
	}
	r.logger.Info("bundled tool installed", logging.String("tool", name), logging.String("path", dst))
	return dst, true, nil
}

func (r *Resolver) instructionsPath() string {
	return filepath.Join(r.toolDir(), InstructionsFileName)
}

func (r *Resolver) writeInstructions() (string, error) {
	if err := os.MkdirAll(r.toolDir(), 0o755); err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString("FFmpeg is required to extract audio and inspect uploaded videos.\n\n")
	fmt.Fprintf(&b, "Detected platform: %s\n\n", r.platform)
	b.WriteString(r.platform.installInstructions())
	b.WriteString("\nAfter installing, restart vidsub or run: vidsub tools status\n")
	if r.bundleDir == "" {
		b.WriteString("To use a bundled binary instead, set tools.bundle_dir and place the executable under <bundle_dir>/")
		b.WriteString(string(r.platform))
		b.WriteString("/\n")
	}
	path := r.instructionsPath()
	if err := fileutil.WriteFileAtomic(path, []byte(b.String()), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func defaultString(value, fallback string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return fallback
}
