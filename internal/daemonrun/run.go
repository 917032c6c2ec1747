// Package daemonrun assembles the vidsub runtime from configuration and runs
// the server process.
package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"vidsub/internal/config"
	"vidsub/internal/daemon"
	"vidsub/internal/deps"
	"vidsub/internal/logging"
	"vidsub/internal/media/audio"
	"vidsub/internal/media/ffprobe"
	"vidsub/internal/notifications"
	"vidsub/internal/queue"
	"vidsub/internal/services/translate"
	"vidsub/internal/services/whisper"
	"vidsub/internal/workflow"
)

// Runtime holds every component built from one configuration.
type Runtime struct {
	Config      *config.Config
	Logger      *slog.Logger
	Tools       *deps.Resolver
	Prober      *ffprobe.Prober
	Extractor   *audio.Extractor
	Transcriber *whisper.Transcriber
	Translator  *translate.Translator
	Notifier    notifications.Service
	Store       queue.Store
	Engine      *workflow.Engine
}

// Build wires tools, backends, the task store and the engine.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Runtime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	tools := deps.NewResolver(deps.Options{
		FFmpegBinary:  cfg.Tools.FFmpegBinary,
		FFprobeBinary: cfg.Tools.FFprobeBinary,
		BundleDir:     cfg.Tools.BundleDir,
		ScratchDir:    cfg.Paths.ScratchDir,
		ProbeTimeout:  cfg.ProbeTimeout(),
		Logger:        logger,
	})
	prober := ffprobe.NewProber(tools, ffprobe.ProberOptions{
		MinBytes: cfg.Media.MinUploadBytes,
		Timeout:  cfg.ProbeTimeout(),
		Logger:   logger,
	})
	extractor := audio.NewExtractor(tools, prober, audio.Options{
		ScratchDir: cfg.Paths.ScratchDir,
		Timeout:    cfg.StageTimeout(),
		Logger:     logger,
	})
	transcriber := whisper.New(extractor, prober, tools, whisper.OptionsFromConfig(cfg, logger))
	translator := translate.New(cfg, logger)

	store, err := queue.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open task store: %w", err)
	}
	notifier := notifications.NewService(cfg)
	opts := workflow.OptionsFromConfig(cfg, logger)
	opts.Notifier = notifier
	engine := workflow.NewEngine(store, prober, transcriber, translator, opts)
	if _, err := engine.RecoverInterrupted(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("recover interrupted tasks: %w", err)
	}

	return &Runtime{
		Config:      cfg,
		Logger:      logger,
		Tools:       tools,
		Prober:      prober,
		Extractor:   extractor,
		Transcriber: transcriber,
		Translator:  translator,
		Notifier:    notifier,
		Store:       store,
		Engine:      engine,
	}, nil
}

// Close drains the engine and closes the store. When runs are still in
// flight at ctx's deadline the store stays open so they can still record
// their outcome; anything left PROCESSING is recovered on the next start.
func (rt *Runtime) Close(ctx context.Context) error {
	if rt == nil {
		return nil
	}
	if err := rt.Engine.Close(ctx); err != nil {
		logging.WarnWithContext(rt.Logger, "engine did not drain; leaving task store open", "shutdown_incomplete",
			logging.Error(err),
			logging.String(logging.FieldImpact, "tasks still running are failed on the next start"),
			logging.String(logging.FieldErrorHint, "re-run the affected tasks after restart"),
		)
		return err
	}
	return rt.Store.Close()
}

// Options configures server process behavior.
type Options struct {
	LogLevel        string
	ShutdownTimeout time.Duration
}

// Run starts the server and blocks until SIGINT/SIGTERM or ctx ends.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	level := cfg.Logging.Level
	if opts.LogLevel != "" {
		level = opts.LogLevel
	}
	logger, err := logging.New(logging.Options{
		Level:    level,
		Format:   cfg.Logging.Format,
		FilePath: filepath.Join(cfg.Paths.LogDir, "vidsub.log"),
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	rt, err := Build(signalCtx, cfg, logger)
	if err != nil {
		logger.Error("runtime setup failed", logging.Error(err))
		return err
	}
	defer func() {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), shutdownTimeout(opts))
		defer closeCancel()
		_ = rt.Close(closeCtx)
	}()
	rt.logDependencySnapshot(signalCtx)

	pidPath := filepath.Join(cfg.Paths.LogDir, "vidsub.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	d, err := daemon.New(cfg, rt.Engine, rt.Tools, logger)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	if err := d.Run(signalCtx, shutdownTimeout(opts)); err != nil {
		return err
	}
	logger.Info("vidsub server shut down")
	return nil
}

func shutdownTimeout(opts Options) time.Duration {
	if opts.ShutdownTimeout > 0 {
		return opts.ShutdownTimeout
	}
	return 30 * time.Second
}

func writePIDFile(path string) error {
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func (rt *Runtime) logDependencySnapshot(ctx context.Context) {
	status := rt.Tools.Status(ctx)
	attrs := []logging.Attr{
		logging.EventType("dependency_snapshot"),
		logging.String("platform", string(status.Platform)),
		logging.Bool("media_tools_available", status.Available),
		logging.String("ffmpeg_binary", status.FFmpeg.Path),
		logging.String("ffprobe_binary", status.FFprobe.Path),
		logging.String("store_backend", rt.Config.Store.Backend),
		logging.Int("worker_count", rt.Config.Workflow.WorkerCount),
	}
	for _, backend := range rt.Engine.Backends(ctx) {
		attrs = append(attrs,
			logging.String(backend.Name+"_mode", backend.Mode),
			logging.Bool(backend.Name+"_available", backend.Available),
		)
	}
	rt.Logger.Info("dependency snapshot", logging.Args(attrs...)...)
	if !status.Available {
		logging.WarnWithContext(rt.Logger, "media tools unavailable", "media_tools_missing",
			logging.String("detail", status.Error),
			logging.String("instructions_path", status.InstructionsPath),
			logging.String(logging.FieldImpact, "uploads are accepted after size checks only and runs fail at transcription"),
			logging.String(logging.FieldErrorHint, "install ffmpeg or set tools.bundle_dir"),
		)
	}
}
