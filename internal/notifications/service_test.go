package notifications_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"vidsub/internal/config"
	"vidsub/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	svc := notifications.NewService(&cfg)
	if err := svc.Publish(context.Background(), notifications.EventTaskCompleted, notifications.Payload{"taskID": "1"}); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

type captured struct {
	title, tags, priority, body string
}

func newNtfyServer(t *testing.T, status int) (*httptest.Server, chan captured) {
	t.Helper()
	got := make(chan captured, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got <- captured{
			title:    r.Header.Get("Title"),
			tags:     r.Header.Get("Tags"),
			priority: r.Header.Get("Priority"),
			body:     string(body),
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte("topic quota exceeded"))
	}))
	t.Cleanup(srv.Close)
	return srv, got
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name           string
		event          notifications.Event
		payload        notifications.Payload
		expectTitle    string
		expectBody     string
		expectTags     string
		expectPriority string
	}{
		{
			name:        "completed",
			event:       notifications.EventTaskCompleted,
			payload:     notifications.Payload{"taskID": "3", "name": "lesson.mp4", "subtitlePath": "/scratch/subtitles/3.srt"},
			expectTitle: "vidsub - Complete",
			expectBody:  "Subtitle ready: lesson.mp4\nFile: /scratch/subtitles/3.srt",
			expectTags:  "vidsub,task,completed",
		},
		{
			name:           "failed without name",
			event:          notifications.EventTaskFailed,
			payload:        notifications.Payload{"taskID": "4", "error": "backend timeout: exceeded 1s"},
			expectTitle:    "vidsub - Failed",
			expectBody:     "Processing failed: task 4\nbackend timeout: exceeded 1s",
			expectTags:     "vidsub,task,failed",
			expectPriority: "high",
		},
		{
			name:           "test",
			event:          notifications.EventTest,
			expectTitle:    "vidsub - Test",
			expectBody:     "Notification system test",
			expectTags:     "vidsub,test",
			expectPriority: "low",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv, got := newNtfyServer(t, http.StatusOK)
			cfg := config.Default()
			cfg.Notifications.NtfyTopic = srv.URL
			svc := notifications.NewService(&cfg)

			if err := svc.Publish(context.Background(), tc.event, tc.payload); err != nil {
				t.Fatalf("Publish: %v", err)
			}
			req := <-got
			if req.title != tc.expectTitle {
				t.Fatalf("title = %q, want %q", req.title, tc.expectTitle)
			}
			if req.body != tc.expectBody {
				t.Fatalf("body = %q, want %q", req.body, tc.expectBody)
			}
			if req.tags != tc.expectTags {
				t.Fatalf("tags = %q, want %q", req.tags, tc.expectTags)
			}
			if req.priority != tc.expectPriority {
				t.Fatalf("priority = %q, want %q", req.priority, tc.expectPriority)
			}
		})
	}
}

func TestNtfyServiceReportsHTTPErrors(t *testing.T) {
	srv, _ := newNtfyServer(t, http.StatusTooManyRequests)
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = srv.URL
	err := notifications.NewService(&cfg).Publish(context.Background(), notifications.EventTest, nil)
	if err == nil || !strings.Contains(err.Error(), "429") || !strings.Contains(err.Error(), "quota") {
		t.Fatalf("expected 429 error, got %v", err)
	}
}

func TestNtfyServiceRejectsUnknownEvent(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = "http://127.0.0.1:1/topic"
	if err := notifications.NewService(&cfg).Publish(context.Background(), "bogus", nil); err == nil {
		t.Fatal("expected unknown event error")
	}
}
