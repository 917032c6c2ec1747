package llm

import "strings"

// chatRequest is the OpenAI-compatible request body.
type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []message       `json:"messages"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []choice  `json:"choices"`
	Error   *apiError `json:"error"`
}

type apiError struct {
	Message string `json:"message"`
}

// choice accepts the streaming "delta" and legacy "text" shapes as well,
// since some providers send them even for non-streaming calls.
type choice struct {
	Message      reply  `json:"message"`
	Delta        reply  `json:"delta"`
	Text         string `json:"text"`
	FinishReason string `json:"finish_reason"`
}

type reply struct {
	Content string `json:"content"`
	Refusal string `json:"refusal"`
}

// answer returns the first non-blank content, the first finish reason and
// the first refusal across all choices.
func (r chatResponse) answer() (content, finish, refusal string) {
	for _, c := range r.Choices {
		if finish == "" {
			finish = strings.TrimSpace(c.FinishReason)
		}
		if refusal == "" {
			refusal = firstNonBlank(c.Message.Refusal, c.Delta.Refusal)
		}
		if content == "" {
			content = firstNonBlank(c.Message.Content, c.Delta.Content, c.Text)
		}
	}
	return content, finish, refusal
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
