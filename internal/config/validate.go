package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateMedia(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateTranscription(); err != nil {
		return err
	}
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.UploadDir) == "" {
		return errors.New("paths.upload_dir must be set")
	}
	if strings.TrimSpace(c.Paths.ScratchDir) == "" {
		return errors.New("paths.scratch_dir must be set")
	}
	return nil
}

func (c *Config) validateMedia() error {
	if c.Media.MinUploadBytes < 0 {
		return errors.New("media.min_upload_bytes must be zero or positive")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.WorkerCount < 0 {
		return errors.New("workflow.worker_count must be zero (unbounded) or positive")
	}
	if c.Workflow.SourceLanguage == c.Workflow.TargetLanguage {
		return fmt.Errorf("workflow.target_language must differ from source_language (%s)", c.Workflow.SourceLanguage)
	}
	return nil
}

func (c *Config) validateTranscription() error {
	if (c.Transcription.WhisperBinary == "") != (c.Transcription.ModelPath == "") {
		return errors.New("transcription.whisper_binary and transcription.model_path must be set together")
	}
	return nil
}

func (c *Config) validateStore() error {
	switch c.Store.Backend {
	case StoreMemory, StoreSQLite:
		return nil
	default:
		return fmt.Errorf("store.backend: unsupported value %q (want %q or %q)", c.Store.Backend, StoreMemory, StoreSQLite)
	}
}

func (c *Config) validateNotifications() error {
	topic := c.Notifications.NtfyTopic
	if topic != "" && !strings.HasPrefix(topic, "http://") && !strings.HasPrefix(topic, "https://") {
		return fmt.Errorf("notifications.ntfy_topic must be an http(s) URL, got %q", topic)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
