package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"vidsub/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv(config.TranslationAPIKeyEnv, "")
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantUploads := filepath.Join(tempHome, ".local", "share", "vidsub", "uploads")
	if cfg.Paths.UploadDir != wantUploads {
		t.Fatalf("unexpected upload dir: got %q want %q", cfg.Paths.UploadDir, wantUploads)
	}
	if cfg.Paths.APIBind != "127.0.0.1:7490" {
		t.Fatalf("unexpected api bind: %q", cfg.Paths.APIBind)
	}
	if cfg.Media.MinUploadBytes != 1024 {
		t.Fatalf("expected 1024 byte upload floor, got %d", cfg.Media.MinUploadBytes)
	}
	if cfg.Workflow.SourceLanguage != "zh" || cfg.Workflow.TargetLanguage != "vi" {
		t.Fatalf("unexpected languages: %s -> %s", cfg.Workflow.SourceLanguage, cfg.Workflow.TargetLanguage)
	}
	if cfg.Workflow.CueTextLimit != 50 {
		t.Fatalf("unexpected cue text limit %d", cfg.Workflow.CueTextLimit)
	}
	if cfg.Store.Backend != config.StoreMemory {
		t.Fatalf("expected memory store by default, got %q", cfg.Store.Backend)
	}
	if cfg.Translation.APIKey != "" {
		t.Fatalf("expected empty translation key, got %q", cfg.Translation.APIKey)
	}
}

func TestLoadCustomConfigOverrides(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv(config.TranslationAPIKeyEnv, "env-key")

	configPath := filepath.Join(t.TempDir(), "config.toml")
	content := `
[paths]
upload_dir = "~/videos/in"
scratch_dir = "/tmp/vidsub-scratch"

[workflow]
worker_count = 4
stage_timeout_seconds = 30
source_language = "zh-Hans"
target_language = "en-US"

[store]
backend = "SQLite"
sqlite_path = "~/tasks.db"

[notifications]
ntfy_topic = "https://ntfy.example/vidsub"

[logging]
format = "JSON"
level = "Debug"
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected explicit config to be used, got %q exists=%v", resolved, exists)
	}
	if cfg.Paths.UploadDir != filepath.Join(tempHome, "videos", "in") {
		t.Fatalf("unexpected upload dir %q", cfg.Paths.UploadDir)
	}
	if cfg.Workflow.WorkerCount != 4 {
		t.Fatalf("unexpected worker count %d", cfg.Workflow.WorkerCount)
	}
	if got := cfg.StageTimeout().Seconds(); got != 30 {
		t.Fatalf("unexpected stage timeout %v", got)
	}
	if cfg.Workflow.SourceLanguage != "zh" || cfg.Workflow.TargetLanguage != "en" {
		t.Fatalf("expected canonical base languages, got %s -> %s", cfg.Workflow.SourceLanguage, cfg.Workflow.TargetLanguage)
	}
	if cfg.Store.Backend != config.StoreSQLite {
		t.Fatalf("unexpected store backend %q", cfg.Store.Backend)
	}
	if cfg.Store.SQLitePath != filepath.Join(tempHome, "tasks.db") {
		t.Fatalf("unexpected sqlite path %q", cfg.Store.SQLitePath)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected logging config %+v", cfg.Logging)
	}
	if cfg.Notifications.NtfyTopic != "https://ntfy.example/vidsub" || cfg.Notifications.RequestTimeoutSeconds != 10 {
		t.Fatalf("unexpected notifications config %+v", cfg.Notifications)
	}
	if cfg.Translation.APIKey != "env-key" {
		t.Fatalf("expected translation key from env, got %q", cfg.Translation.APIKey)
	}
}

func TestValidateRejectsInvalidValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"negative workers", func(c *config.Config) { c.Workflow.WorkerCount = -1 }, "worker_count"},
		{"same languages", func(c *config.Config) { c.Workflow.TargetLanguage = c.Workflow.SourceLanguage }, "target_language"},
		{"unknown store", func(c *config.Config) { c.Store.Backend = "redis" }, "store.backend"},
		{"whisper without model", func(c *config.Config) { c.Transcription.WhisperBinary = "whisper-cli" }, "model_path"},
		{"bad log format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"negative floor", func(c *config.Config) { c.Media.MinUploadBytes = -5 }, "min_upload_bytes"},
		{"ntfy topic without scheme", func(c *config.Config) { c.Notifications.NtfyTopic = "ntfy.sh/vidsub" }, "ntfy_topic"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Paths.UploadDir = t.TempDir()
			cfg.Paths.ScratchDir = t.TempDir()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

func TestLoadRejectsInvalidLanguageTag(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	configPath := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(configPath, []byte("[workflow]\nsource_language = \"not a tag!\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(configPath); err == nil {
		t.Fatal("expected invalid language tag to fail")
	}
}

func TestSampleConfigParses(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	var cfg config.Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("sample config did not parse: %v", err)
	}
	if cfg.Workflow.CueTextLimit != 50 {
		t.Fatalf("unexpected sample cue limit %d", cfg.Workflow.CueTextLimit)
	}
}

func TestEnsureDirectoriesCreatesRoots(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.UploadDir = filepath.Join(base, "uploads")
	cfg.Paths.ScratchDir = filepath.Join(base, "scratch")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, dir := range []string{cfg.Paths.UploadDir, cfg.Paths.ScratchDir, cfg.Paths.LogDir} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s: %v", dir, err)
		}
	}
}
