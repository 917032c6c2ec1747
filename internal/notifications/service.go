package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"vidsub/internal/config"
)

const userAgent = "vidsub/0.1"

// Event names a task lifecycle milestone.
type Event string

const (
	EventTaskCompleted Event = "task_completed"
	EventTaskFailed    Event = "task_failed"
	EventTest          Event = "test"
)

// Payload carries event fields. Recognised keys: "taskID", "name",
// "subtitlePath", "error".
type Payload map[string]string

// Service publishes events.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds an ntfy-backed notifier, or a no-op one when
// notifications.ntfy_topic is empty.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}
	timeout := time.Duration(cfg.Notifications.RequestTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	msg, ok := format(event, payload)
	if !ok {
		return fmt.Errorf("unknown notification event %q", event)
	}
	return n.send(ctx, msg)
}

func format(event Event, payload Payload) (message, bool) {
	name := strings.TrimSpace(payload["name"])
	if name == "" {
		name = "task " + payload["taskID"]
	}
	switch event {
	case EventTaskCompleted:
		body := fmt.Sprintf("Subtitle ready: %s", name)
		if path := strings.TrimSpace(payload["subtitlePath"]); path != "" {
			body += "\nFile: " + path
		}
		return message{
			title: "vidsub - Complete",
			body:  body,
			tags:  []string{"vidsub", "task", "completed"},
		}, true
	case EventTaskFailed:
		reason := strings.TrimSpace(payload["error"])
		if reason == "" {
			reason = "unknown"
		}
		return message{
			title:    "vidsub - Failed",
			body:     fmt.Sprintf("Processing failed: %s\n%s", name, reason),
			tags:     []string{"vidsub", "task", "failed"},
			priority: "high",
		}, true
	case EventTest:
		return message{
			title:    "vidsub - Test",
			body:     "Notification system test",
			tags:     []string{"vidsub", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if msg.title != "" {
		req.Header.Set("Title", msg.title)
	}
	if len(msg.tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.tags, ","))
	}
	if msg.priority != "" {
		req.Header.Set("Priority", msg.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
