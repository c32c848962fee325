package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"dubshorts/internal/config"
)

const userAgent = "dubshorts/0.1.0"

// Event identifies a notification kind.
type Event string

const (
	EventRunStarted   Event = "run_started"
	EventRunCompleted Event = "run_completed"
	EventNothingToDo  Event = "nothing_to_do"
	EventError        Event = "error"
	EventTest         Event = "test"
)

// Payload carries event fields. Values are rendered with fmt.
type Payload map[string]any

func (p Payload) str(key string) string {
	if p == nil {
		return ""
	}
	switch v := p[key].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case error:
		return strings.TrimSpace(v.Error())
	case time.Time:
		if v.IsZero() {
			return ""
		}
		return v.UTC().Format(time.RFC3339)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

// Service publishes events.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		enabled: map[Event]bool{
			EventRunStarted:   cfg.Notifications.RunStarted,
			EventRunCompleted: cfg.Notifications.RunCompleted,
			EventNothingToDo:  cfg.Notifications.NothingToDo,
			EventError:        cfg.Notifications.Errors,
			EventTest:         true,
		},
	}
}

// NewNoop returns a service that drops every event.
func NewNoop() Service { return noopService{} }

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	enabled  map[Event]bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, fields Payload) error {
	if !n.enabled[event] {
		return nil
	}
	data, ok := format(event, fields)
	if !ok {
		return nil
	}
	return n.send(ctx, data)
}

func format(event Event, fields Payload) (payload, bool) {
	switch event {
	case EventRunStarted:
		message := "▶️ Run started"
		if source := fields.str("source"); source != "" {
			message += " (" + source + ")"
		}
		return payload{
			title:    "Dubshorts - Run Started",
			message:  message,
			tags:     []string{"dubshorts", "run", "started"},
			priority: "low",
		}, true
	case EventRunCompleted:
		subject := fields.str("title")
		if subject == "" {
			subject = fields.str("url")
		}
		message := fmt.Sprintf("📤 Published: %s", subject)
		if id := fields.str("videoID"); id != "" {
			message += "\nVideo: " + id
		}
		if scheduled := fields.str("scheduled"); scheduled != "" {
			message += "\nScheduled: " + scheduled
		}
		return payload{
			title:   "Dubshorts - Published",
			message: message,
			tags:    []string{"dubshorts", "publish", "completed"},
		}, true
	case EventNothingToDo:
		return payload{
			title:    "Dubshorts - Backlog Empty",
			message:  "📭 No unprocessed shorts in backlog",
			tags:     []string{"dubshorts", "backlog", "empty"},
			priority: "low",
		}, true
	case EventError:
		var builder strings.Builder
		builder.WriteString("❌ Error")
		if label := fields.str("context"); label != "" {
			builder.WriteString(" with ")
			builder.WriteString(label)
		}
		builder.WriteString(": ")
		if msg := fields.str("error"); msg != "" {
			builder.WriteString(msg)
		} else {
			builder.WriteString("unknown")
		}
		return payload{
			title:    "Dubshorts - Error",
			message:  builder.String(),
			tags:     []string{"dubshorts", "error", "alert"},
			priority: "high",
		}, true
	case EventTest:
		return payload{
			title:    "Dubshorts - Test",
			message:  "🧪 Notification system test",
			tags:     []string{"dubshorts", "test"},
			priority: "low",
		}, true
	default:
		return payload{}, false
	}
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
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

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
