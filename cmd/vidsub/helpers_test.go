package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"vidsub/internal/api"
	"vidsub/internal/config"
	"vidsub/internal/daemon"
	"vidsub/internal/daemonrun"
	"vidsub/internal/logging"
	"vidsub/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	daemon     *daemon.Daemon
	configPath string
	addr       string
	baseDir    string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)

	opts = append([]testsupport.ConfigOption{testsupport.WithStubbedMedia(testsupport.StubMedia{})}, opts...)
	cfg := testsupport.NewConfig(t, opts...)

	configPath := filepath.Join(homeDir, ".config", "vidsub", "config.toml")
	writeTestConfig(t, configPath, cfg)

	rt, err := daemonrun.Build(context.Background(), cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("daemonrun.Build: %v", err)
	}
	d, err := daemon.New(cfg, rt.Engine, rt.Tools, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("daemon.Start: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		d.Stop(ctx)
		_ = rt.Close(ctx)
	})

	return &cliTestEnv{
		cfg:        cfg,
		daemon:     d,
		configPath: configPath,
		addr:       d.Addr(),
		baseDir:    base,
	}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func (e *cliTestEnv) run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	return runCLI(t, append([]string{"--config", e.configPath, "--api", e.addr}, args...), stdin)
}

func runCLI(t *testing.T, args []string, stdin string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	cmd.SetContext(context.Background())
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func (e *cliTestEnv) writeVideo(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(e.baseDir, "inbox", name)
	testsupport.WriteFile(t, path, 4096)
	return path
}

func decodeTask(t *testing.T, out string) api.Task {
	t.Helper()
	var task api.Task
	if err := json.Unmarshal([]byte(out), &task); err != nil {
		t.Fatalf("decode task from %q: %v", out, err)
	}
	return task
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
