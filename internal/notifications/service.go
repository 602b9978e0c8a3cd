package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"beatforge/internal/config"
)

const userAgent = "Beatforge/0.1.0"

// Service defines the notification surface exposed to pipeline components.
type Service interface {
	NotifyDeliverableReady(ctx context.Context, outputPath string, clipCount int, syncMode string) error
	NotifyAssetFinalized(ctx context.Context, name string) error
	NotifyError(ctx context.Context, err error, contextLabel string) error
	TestNotification(ctx context.Context) error
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
		endpoint:     topic,
		client:       &http.Client{Timeout: timeout},
		deliverables: cfg.Notifications.Deliverables,
		errors:       cfg.Notifications.Errors,
	}
}

// NewNop returns a Service that discards every notification.
func NewNop() Service {
	return noopService{}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint     string
	client       *http.Client
	deliverables bool
	errors       bool
}

func (n *ntfyService) NotifyDeliverableReady(ctx context.Context, outputPath string, clipCount int, syncMode string) error {
	if !n.deliverables {
		return nil
	}
	data := payload{
		title:    "Beatforge - Deliverable Ready",
		message:  fmt.Sprintf("Music video assembled from %d clips (%s sync): %s", clipCount, syncMode, outputPath),
		tags:     []string{"beatforge", "assembly", "completed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyAssetFinalized(ctx context.Context, name string) error {
	if !n.deliverables {
		return nil
	}
	data := payload{
		title:   "Beatforge - Finalized",
		message: fmt.Sprintf("Asset packaged for delivery: %s", strings.TrimSpace(name)),
		tags:    []string{"beatforge", "finalize", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !n.errors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" in ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "Beatforge - Error",
		message:  builder.String(),
		tags:     []string{"beatforge", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Beatforge - Test",
		message:  "Notification system test",
		tags:     []string{"beatforge", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
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

func (noopService) NotifyDeliverableReady(context.Context, string, int, string) error { return nil }
func (noopService) NotifyAssetFinalized(context.Context, string) error                { return nil }
func (noopService) NotifyError(context.Context, error, string) error                  { return nil }
func (noopService) TestNotification(context.Context) error                            { return nil }
