package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	UploadDir  string `toml:"upload_dir"`
	ScratchDir string `toml:"scratch_dir"`
	LogDir     string `toml:"log_dir"`
	APIBind    string `toml:"api_bind"`
	// APIToken, when set, is required as a bearer token on every API request.
	APIToken string `toml:"api_token"`
}

// Tools describes how the media tool is located.
type Tools struct {
	FFmpegBinary        string `toml:"ffmpeg_binary"`
	FFprobeBinary       string `toml:"ffprobe_binary"`
	BundleDir           string `toml:"bundle_dir"`
	ProbeTimeoutSeconds int    `toml:"probe_timeout_seconds"`
}

// Media contains upload validation thresholds.
type Media struct {
	MinUploadBytes     int64 `toml:"min_upload_bytes"`
	RequireVideoStream bool  `toml:"require_video_stream"`
}

// Workflow contains pipeline scheduling and rendering settings.
type Workflow struct {
	WorkerCount         int    `toml:"worker_count"`
	StageTimeoutSeconds int    `toml:"stage_timeout_seconds"`
	SourceLanguage      string `toml:"source_language"`
	TargetLanguage      string `toml:"target_language"`
	CueTextLimit        int    `toml:"cue_text_limit"`
	ResetOnRerun        bool   `toml:"reset_on_rerun"`
}

// Transcription configures the speech-to-text backend. When the whisper
// binary or model is empty the backend produces placeholder transcripts.
type Transcription struct {
	WhisperBinary string `toml:"whisper_binary"`
	ModelPath     string `toml:"model_path"`
	Language      string `toml:"language"`
}

// Translation configures the OpenAI-compatible translation backend.
type Translation struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	Referer        string `toml:"referer"`
	Title          string `toml:"title"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Store selects the task store backend.
type Store struct {
	Backend    string `toml:"backend"`
	SQLitePath string `toml:"sqlite_path"`
}

// Notifications configures ntfy delivery of task completion and failure.
// An empty topic disables notifications.
type Notifications struct {
	NtfyTopic             string `toml:"ntfy_topic"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for vidsub.
//
// Configuration sections by subsystem:
//   - Paths: upload, scratch and log roots plus the API bind address
//   - Tools: ffmpeg/ffprobe names and the bundled binary directory
//   - Media: upload validation thresholds
//   - Workflow: worker pool size, stage timeout and subtitle languages
//   - Transcription: whisper.cpp binary and model
//   - Translation: chat completion endpoint and credential
//   - Store: memory or sqlite task store
//   - Notifications: ntfy topic for task outcomes
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Tools         Tools         `toml:"tools"`
	Media         Media         `toml:"media"`
	Workflow      Workflow      `toml:"workflow"`
	Transcription Transcription `toml:"transcription"`
	Translation   Translation   `toml:"translation"`
	Store         Store         `toml:"store"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

const (
	defaultConfigPath = "~/.config/vidsub/config.toml"
	projectConfigName = "vidsub.toml"
)

// DefaultConfigPath returns the expanded ~/.config/vidsub/config.toml.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load reads, normalizes and validates the configuration.
//
// An explicit path is used as given, and a missing file there means defaults.
// Without one, ~/.config/vidsub/config.toml is tried first and then
// ./vidsub.toml. Load returns the config, the path it settled on and
// whether that file existed.
func Load(path string) (*Config, string, bool, error) {
	resolved, exists, err := locate(path)
	if err != nil {
		return nil, "", false, err
	}
	cfg := Default()
	if exists {
		if err := decodeFile(resolved, &cfg); err != nil {
			return nil, "", false, err
		}
	}
	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolved, exists, nil
}

// decodeFile overlays the TOML file onto cfg. Unknown keys are errors so a
// misspelled option is not silently ignored.
func decodeFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	dec := toml.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func locate(explicit string) (string, bool, error) {
	if explicit != "" {
		path, err := expandPath(explicit)
		if err != nil {
			return "", false, err
		}
		exists, err := isFile(path)
		return path, exists, err
	}

	home, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	project, err := filepath.Abs(projectConfigName)
	if err != nil {
		return "", false, err
	}
	for _, candidate := range []string{home, project} {
		if ok, _ := isFile(candidate); ok {
			return candidate, true, nil
		}
	}
	return home, false, nil
}

func isFile(path string) (bool, error) {
	info, err := os.Stat(path)
	switch {
	case err == nil:
		return !info.IsDir(), nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("stat config: %w", err)
	}
}

// EnsureDirectories creates the upload, scratch and log roots.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.UploadDir, c.Paths.ScratchDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// StageTimeout bounds every pipeline stage, subprocess or backend call.
func (c *Config) StageTimeout() time.Duration { return seconds(c.Workflow.StageTimeoutSeconds) }

// ProbeTimeout bounds a single ffmpeg -version or ffprobe run.
func (c *Config) ProbeTimeout() time.Duration { return seconds(c.Tools.ProbeTimeoutSeconds) }

// TranslationTimeout bounds a single translation request.
func (c *Config) TranslationTimeout() time.Duration { return seconds(c.Translation.TimeoutSeconds) }

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }

// LockPath is the single-instance lock file used by the server.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.LogDir, "vidsub.lock")
}

// ExpandPath resolves a leading ~ against the home directory and makes the
// result absolute. An empty value stays empty.
func ExpandPath(value string) (string, error) {
	return expandPath(value)
}

func expandPath(value string) (string, error) {
	if value == "" {
		return "", nil
	}
	if rest, ok := strings.CutPrefix(value, "~"); ok && (rest == "" || rest[0] == '/' || rest[0] == '\\') {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		value = filepath.Join(home, rest)
	}
	abs, err := filepath.Abs(value)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", value, err)
	}
	return abs, nil
}

// CreateSample writes the annotated sample configuration to path, creating
// parent directories.
func CreateSample(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
