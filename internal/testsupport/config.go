package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"vidsub/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Translation runs in placeholder mode and tasks are kept in memory.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.UploadDir = filepath.Join(base, "uploads")
	cfgVal.Paths.ScratchDir = filepath.Join(base, "scratch")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.Tools.ProbeTimeoutSeconds = 5
	cfgVal.Workflow.StageTimeoutSeconds = 30
	cfgVal.Translation.APIKey = ""
	cfgVal.Store.Backend = config.StoreMemory
	cfgVal.Store.SQLitePath = filepath.Join(base, "tasks.db")
	cfgVal.Logging.Level = "debug"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithSQLiteStore switches the task store to SQLite inside the temp dir.
func WithSQLiteStore() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Store.Backend = config.StoreSQLite
	}
}

// WithWorkers sets the worker pool size.
func WithWorkers(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Workflow.WorkerCount = n
	}
}

// WithStageTimeout sets the per-stage timeout in seconds.
func WithStageTimeout(seconds int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Workflow.StageTimeoutSeconds = seconds
	}
}

// WithMissingTools points the tool names at binaries that do not exist and
// disables bundled fallbacks.
func WithMissingTools() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Tools.FFmpegBinary = filepath.Join(b.baseDir, "missing", "ffmpeg")
		b.cfg.Tools.FFprobeBinary = filepath.Join(b.baseDir, "missing", "ffprobe")
		b.cfg.Tools.BundleDir = ""
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.UploadDir)
}

func binDir(b *configBuilder) string {
	dir := filepath.Join(b.baseDir, "bin")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		b.t.Fatalf("mkdir bin dir: %v", err)
	}
	return dir
}

func prependPath(b *configBuilder, dir string) {
	b.t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))
}

// WithAPIToken requires bearer authentication on the HTTP API.
func WithAPIToken(token string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.APIToken = token
	}
}
