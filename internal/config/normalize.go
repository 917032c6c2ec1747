package config

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/text/language"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeTools(); err != nil {
		return err
	}
	if err := c.normalizeWorkflow(); err != nil {
		return err
	}
	if err := c.normalizeTranscription(); err != nil {
		return err
	}
	c.normalizeTranslation()
	if err := c.normalizeStore(); err != nil {
		return err
	}
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeoutSeconds <= 0 {
		c.Notifications.RequestTimeoutSeconds = defaultNotifyTimeout
	}
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.UploadDir, err = expandPath(c.Paths.UploadDir); err != nil {
		return fmt.Errorf("paths.upload_dir: %w", err)
	}
	if c.Paths.ScratchDir, err = expandPath(c.Paths.ScratchDir); err != nil {
		return fmt.Errorf("paths.scratch_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	if c.Paths.APIToken == "" {
		if value, ok := os.LookupEnv(APITokenEnv); ok {
			c.Paths.APIToken = strings.TrimSpace(value)
		}
	}
	return nil
}

func (c *Config) normalizeTools() error {
	c.Tools.FFmpegBinary = strings.TrimSpace(c.Tools.FFmpegBinary)
	if c.Tools.FFmpegBinary == "" {
		c.Tools.FFmpegBinary = defaultFFmpegBinary
	}
	c.Tools.FFprobeBinary = strings.TrimSpace(c.Tools.FFprobeBinary)
	if c.Tools.FFprobeBinary == "" {
		c.Tools.FFprobeBinary = defaultFFprobeBinary
	}
	var err error
	if c.Tools.BundleDir, err = expandPath(strings.TrimSpace(c.Tools.BundleDir)); err != nil {
		return fmt.Errorf("tools.bundle_dir: %w", err)
	}
	if c.Tools.ProbeTimeoutSeconds <= 0 {
		c.Tools.ProbeTimeoutSeconds = defaultProbeTimeout
	}
	return nil
}

func (c *Config) normalizeWorkflow() error {
	if c.Workflow.StageTimeoutSeconds <= 0 {
		c.Workflow.StageTimeoutSeconds = defaultStageTimeout
	}
	if c.Workflow.CueTextLimit <= 0 {
		c.Workflow.CueTextLimit = defaultCueTextLimit
	}
	src, err := canonicalLanguage(c.Workflow.SourceLanguage, defaultSourceLanguage)
	if err != nil {
		return fmt.Errorf("workflow.source_language: %w", err)
	}
	dst, err := canonicalLanguage(c.Workflow.TargetLanguage, defaultTargetLanguage)
	if err != nil {
		return fmt.Errorf("workflow.target_language: %w", err)
	}
	c.Workflow.SourceLanguage = src
	c.Workflow.TargetLanguage = dst
	return nil
}

func (c *Config) normalizeTranscription() error {
	c.Transcription.WhisperBinary = strings.TrimSpace(c.Transcription.WhisperBinary)
	var err error
	if c.Transcription.ModelPath, err = expandPath(strings.TrimSpace(c.Transcription.ModelPath)); err != nil {
		return fmt.Errorf("transcription.model_path: %w", err)
	}
	lang, err := canonicalLanguage(c.Transcription.Language, c.Workflow.SourceLanguage)
	if err != nil {
		return fmt.Errorf("transcription.language: %w", err)
	}
	c.Transcription.Language = lang
	return nil
}

func (c *Config) normalizeTranslation() {
	c.Translation.APIKey = strings.TrimSpace(c.Translation.APIKey)
	if c.Translation.APIKey == "" {
		if value, ok := os.LookupEnv(TranslationAPIKeyEnv); ok {
			c.Translation.APIKey = strings.TrimSpace(value)
		}
	}
	c.Translation.BaseURL = strings.TrimSpace(c.Translation.BaseURL)
	if c.Translation.BaseURL == "" {
		c.Translation.BaseURL = defaultTranslationBaseURL
	}
	c.Translation.Model = strings.TrimSpace(c.Translation.Model)
	if c.Translation.Model == "" {
		c.Translation.Model = defaultTranslationModel
	}
	if c.Translation.TimeoutSeconds <= 0 {
		c.Translation.TimeoutSeconds = defaultTranslationTimeout
	}
}

func (c *Config) normalizeStore() error {
	c.Store.Backend = strings.ToLower(strings.TrimSpace(c.Store.Backend))
	if c.Store.Backend == "" {
		c.Store.Backend = defaultStoreBackend
	}
	if strings.TrimSpace(c.Store.SQLitePath) == "" {
		c.Store.SQLitePath = defaultSQLitePath
	}
	var err error
	if c.Store.SQLitePath, err = expandPath(c.Store.SQLitePath); err != nil {
		return fmt.Errorf("store.sqlite_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

// canonicalLanguage parses a BCP 47 tag and returns its base language code.
func canonicalLanguage(value, fallback string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		value = fallback
	}
	tag, err := language.Parse(value)
	if err != nil {
		return "", fmt.Errorf("invalid language tag %q: %w", value, err)
	}
	base, _ := tag.Base()
	return base.String(), nil
}
