package translate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"vidsub/internal/config"
	"vidsub/internal/logging"
	"vidsub/internal/services"
	"vidsub/internal/services/llm"
)

// SegmentSeparator joins segmentation tokens.
const SegmentSeparator = " / "

// PlaceholderVietnamese is returned for Vietnamese targets when no API key
// is configured.
const PlaceholderVietnamese = "Xin chào, chào mừng học tiếng Việt. Hôm nay chúng ta học từ vựng cơ bản. Hãy đọc theo tôi."

// Translator is the translation backend.
type Translator struct {
	client *llm.Client
	logger *slog.Logger
}

// New builds a translator from the [translation] config section.
func New(cfg *config.Config, logger *slog.Logger, opts ...llm.Option) *Translator {
	client := llm.NewClient(llm.Config{
		APIKey:  cfg.Translation.APIKey,
		BaseURL: cfg.Translation.BaseURL,
		Model:   cfg.Translation.Model,
		Referer: cfg.Translation.Referer,
		Title:   cfg.Translation.Title,
		Timeout: cfg.TranslationTimeout(),
	}, opts...)
	return NewWithClient(client, logger)
}

// NewWithClient wraps an existing client.
func NewWithClient(client *llm.Client, logger *slog.Logger) *Translator {
	return &Translator{
		client: client,
		logger: logging.NewComponentLogger(logger, "translate"),
	}
}

// Translate converts text from one language to another.
func (t *Translator) Translate(ctx context.Context, text, from, to string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", nil
	}
	if !t.client.Configured() {
		t.logger.Debug("translation placeholder used",
			logging.String("from", from),
			logging.String("to", to),
			logging.Int("text_runes", len([]rune(text))),
		)
		return placeholderTranslation(text, to), nil
	}

	system := fmt.Sprintf(
		"You translate subtitles from %s to %s. Reply with the translation only, without notes or quotes.",
		languageName(from), languageName(to),
	)
	out, err := t.client.Complete(ctx, system, text)
	if err != nil {
		return "", services.Wrap(services.ErrExternalTool, "translation", "translate", "completion request failed", err)
	}
	t.logger.Debug("translation completed",
		logging.String("from", from),
		logging.String("to", to),
		logging.Int("result_runes", len([]rune(out))),
	)
	return strings.TrimSpace(out), nil
}

// Segment splits text into words, preserving order, joined by " / ".
func (t *Translator) Segment(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", nil
	}
	if !t.client.Configured() {
		return strings.Join(Tokenize(text), SegmentSeparator), nil
	}

	raw, err := t.client.CompleteJSON(ctx,
		`Split the user's text into words in their original order. Drop punctuation. Respond with JSON {"tokens": ["..."]}.`,
		text,
	)
	if err != nil {
		return "", services.Wrap(services.ErrExternalTool, "translation", "segment", "completion request failed", err)
	}
	var parsed struct {
		Tokens []string `json:"tokens"`
	}
	if err := llm.DecodeJSON(raw, &parsed); err != nil {
		return "", services.Wrap(services.ErrExternalTool, "translation", "segment", "parse model reply", err)
	}
	tokens := make([]string, 0, len(parsed.Tokens))
	for _, token := range parsed.Tokens {
		if token = strings.TrimSpace(token); token != "" {
			tokens = append(tokens, token)
		}
	}
	if len(tokens) == 0 {
		return "", services.Wrap(services.ErrExternalTool, "translation", "segment", "model returned no tokens", nil)
	}
	return strings.Join(tokens, SegmentSeparator), nil
}

// Available reports whether the backend can serve requests. The placeholder
// mode is always available.
func (t *Translator) Available(context.Context) bool {
	return true
}

// Status describes the active mode.
func (t *Translator) Status(context.Context) services.BackendStatus {
	status := services.BackendStatus{
		Name:      "translate",
		Available: true,
	}
	if t.client.Configured() {
		status.Mode = services.ModeRemote
		status.Model = t.client.Model()
		status.Detail = "chat completion"
	} else {
		status.Mode = services.ModePlaceholder
		status.Detail = "no api key configured; returning placeholder text"
	}
	return status
}

func placeholderTranslation(text, to string) string {
	if base(to) == "vi" {
		return PlaceholderVietnamese
	}
	return "[" + base(to) + "] " + text
}

func base(code string) string {
	tag, err := language.Parse(strings.TrimSpace(code))
	if err != nil {
		return strings.ToLower(strings.TrimSpace(code))
	}
	b, _ := tag.Base()
	return b.String()
}

func languageName(code string) string {
	tag, err := language.Parse(strings.TrimSpace(code))
	if err != nil {
		return code
	}
	if name := display.English.Tags().Name(tag); name != "" {
		return name
	}
	return code
}
