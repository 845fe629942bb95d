package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"labwatch/internal/config"
)

const userAgent = "labwatch/0.1.0"

// Event identifies a notification type.
type Event string

const (
	EventFileRejected    Event = "file_rejected"
	EventStreakMilestone Event = "streak_milestone"
	EventTest            Event = "test"
)

// Payload carries event-specific values.
type Payload map[string]any

// Service publishes notification events.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil || cfg.Notifications.NtfyTopic == "" {
		return noopService{}
	}
	return &ntfyService{
		endpoint: cfg.Notifications.NtfyTopic,
		client:   &http.Client{Timeout: cfg.NotificationTimeout()},
	}
}

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
		return nil
	}
	return n.send(ctx, msg)
}

func format(event Event, payload Payload) (message, bool) {
	switch event {
	case EventFileRejected:
		text := fmt.Sprintf("Rejected: %s (%s)", payload.textValue("file"), payload.textValue("category"))
		if streak := payload.intValue("previous_streak"); streak > 0 {
			text = fmt.Sprintf("%s\nStreak reset from %d", text, streak)
		}
		if summary := payload.textValue("summary"); summary != "" {
			text = fmt.Sprintf("%s\n%s", text, summary)
		}
		return message{
			title:    "labwatch - File Rejected",
			body:     text,
			tags:     []string{"labwatch", "rejected", payload.textValue("category")},
			priority: "high",
		}, true
	case EventStreakMilestone:
		return message{
			title: "labwatch - Streak",
			body:  fmt.Sprintf("%d consecutive accepted files (latest: %s)", payload.intValue("streak"), payload.textValue("file")),
			tags:  []string{"labwatch", "streak"},
		}, true
	case EventTest:
		return message{
			title:    "labwatch - Test",
			body:     "Notification system test",
			tags:     []string{"labwatch", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func (n *ntfyService) send(ctx context.Context, data message) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if tags := nonEmpty(data.tags); len(tags) > 0 {
		req.Header.Set("Tags", strings.Join(tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
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

func nonEmpty(values []string) []string {
	out := values[:0:0]
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func (p Payload) textValue(key string) string {
	if v, ok := p[key]; ok && v != nil {
		return strings.TrimSpace(fmt.Sprint(v))
	}
	return ""
}

func (p Payload) intValue(key string) int {
	switch v := p[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	}
	return 0
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
