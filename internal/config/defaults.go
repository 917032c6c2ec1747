package config

const (
	defaultUploadDir          = "~/.local/share/vidsub/uploads"
	defaultScratchDir         = "~/.local/share/vidsub/scratch"
	defaultLogDir             = "~/.local/share/vidsub/logs"
	defaultAPIBind            = "127.0.0.1:7490"
	defaultFFmpegBinary       = "ffmpeg"
	defaultFFprobeBinary      = "ffprobe"
	defaultProbeTimeout       = 15
	defaultMinUploadBytes     = 1024
	defaultStageTimeout       = 600
	defaultSourceLanguage     = "zh"
	defaultTargetLanguage     = "vi"
	defaultCueTextLimit       = 50
	defaultTranslationBaseURL = "https://openrouter.ai/api/v1/chat/completions"
	defaultTranslationModel   = "google/gemini-3-flash-preview"
	defaultTranslationTimeout = 60
	defaultTranslationTitle   = "vidsub"
	defaultStoreBackend       = StoreMemory
	defaultSQLitePath         = "~/.local/share/vidsub/tasks.db"
	defaultNotifyTimeout      = 10
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"

	// StoreMemory keeps tasks in process memory.
	StoreMemory = "memory"
	// StoreSQLite persists tasks in a SQLite database.
	StoreSQLite = "sqlite"

	// TranslationAPIKeyEnv is consulted when translation.api_key is empty.
	TranslationAPIKeyEnv = "VIDSUB_TRANSLATION_API_KEY"
	// APITokenEnv is consulted when paths.api_token is empty.
	APITokenEnv = "VIDSUB_API_TOKEN"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			UploadDir:  defaultUploadDir,
			ScratchDir: defaultScratchDir,
			LogDir:     defaultLogDir,
			APIBind:    defaultAPIBind,
		},
		Tools: Tools{
			FFmpegBinary:        defaultFFmpegBinary,
			FFprobeBinary:       defaultFFprobeBinary,
			ProbeTimeoutSeconds: defaultProbeTimeout,
		},
		Media: Media{
			MinUploadBytes:     defaultMinUploadBytes,
			RequireVideoStream: true,
		},
		Workflow: Workflow{
			StageTimeoutSeconds: defaultStageTimeout,
			SourceLanguage:      defaultSourceLanguage,
			TargetLanguage:      defaultTargetLanguage,
			CueTextLimit:        defaultCueTextLimit,
			ResetOnRerun:        true,
		},
		Transcription: Transcription{
			Language: defaultSourceLanguage,
		},
		Translation: Translation{
			BaseURL:        defaultTranslationBaseURL,
			Model:          defaultTranslationModel,
			Title:          defaultTranslationTitle,
			TimeoutSeconds: defaultTranslationTimeout,
		},
		Store: Store{
			Backend:    defaultStoreBackend,
			SQLitePath: defaultSQLitePath,
		},
		Notifications: Notifications{
			RequestTimeoutSeconds: defaultNotifyTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
