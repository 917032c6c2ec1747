package daemon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"vidsub/internal/config"
	"vidsub/internal/deps"
	"vidsub/internal/logging"
	"vidsub/internal/queue"
	"vidsub/internal/services"
)

// Engine is the workflow surface the server exposes.
type Engine interface {
	Submit(ctx context.Context, r io.Reader, originalName string) (*queue.Task, error)
	Run(ctx context.Context, id int64) error
	Task(ctx context.Context, id int64) (*queue.Task, error)
	Tasks(ctx context.Context, statuses ...queue.Status) ([]*queue.Task, error)
	Subtitle(ctx context.Context, id int64) (string, error)
	UpdateSubtitle(ctx context.Context, id int64, content string) (*queue.Task, error)
	Backends(ctx context.Context) []services.BackendStatus
	Close(ctx context.Context) error
}

// ToolReporter reports media tool readiness.
type ToolReporter interface {
	Status(ctx context.Context) deps.ToolStatus
}

// ErrAlreadyRunning is returned when another server holds the lock.
var ErrAlreadyRunning = errors.New("another vidsub server is already running")

// Daemon owns the API server and the single-instance lock.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	engine Engine
	api    *apiServer

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
}

// New constructs a daemon. Nothing is bound until Start.
func New(cfg *config.Config, engine Engine, tools ToolReporter, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || engine == nil {
		return nil, errors.New("daemon requires config and workflow engine")
	}
	logger = logging.NewComponentLogger(logger, "daemon")
	lockPath := cfg.LockPath()
	return &Daemon{
		cfg:      cfg,
		logger:   logger,
		engine:   engine,
		api:      newAPIServer(cfg, engine, tools, logger),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the lock and begins serving. The server shuts down when ctx
// ends.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}
	if err := os.MkdirAll(filepath.Dir(d.lockPath), 0o755); err != nil {
		return fmt.Errorf("create lock directory: %w", err)
	}
	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return ErrAlreadyRunning
	}
	if err := d.api.start(ctx); err != nil {
		_ = d.lock.Unlock()
		return err
	}
	d.running.Store(true)
	d.logger.Info("vidsub server started",
		logging.EventType("daemon_started"),
		logging.String("lock", d.lockPath),
		logging.String("address", d.Addr()),
	)
	return nil
}

// Addr returns the bound listener address, useful with port 0.
func (d *Daemon) Addr() string {
	return d.api.addr()
}

// Stop stops the API server, drains the engine and releases the lock.
func (d *Daemon) Stop(ctx context.Context) {
	if !d.running.Swap(false) {
		return
	}
	d.api.stop(ctx)
	if err := d.engine.Close(ctx); err != nil {
		logging.WarnWithContext(d.logger, "workflow did not drain before shutdown", "daemon_drain_timeout",
			logging.Error(err),
			logging.String(logging.FieldImpact, "tasks still running are marked failed on the next start"),
			logging.String(logging.FieldErrorHint, "re-run the affected tasks after restart"),
		)
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release server lock", logging.Error(err))
	}
	d.logger.Info("vidsub server stopped", logging.EventType("daemon_stopped"))
}

// Run starts the daemon, blocks until ctx ends, then stops it within
// shutdownTimeout.
func (d *Daemon) Run(ctx context.Context, shutdownTimeout time.Duration) error {
	if err := d.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	d.Stop(stopCtx)
	return nil
}
