package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"papersum/internal/config"
)

const userAgent = "papersum/0.1"

// RunReport is the subset of a finished run a notice describes.
type RunReport struct {
	Command   string
	Succeeded int
	Failed    int
	Elapsed   time.Duration
}

// Service defines the notification surface used by commands.
type Service interface {
	NotifyRunCompleted(ctx context.Context, run RunReport) error
	TestNotification(ctx context.Context) error
	Enabled() bool
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := cfg.NotifyTimeout()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) Enabled() bool { return true }

func (n *ntfyService) NotifyRunCompleted(ctx context.Context, run RunReport) error {
	elapsed := run.Elapsed.Round(time.Second)
	if elapsed < 0 {
		elapsed = 0
	}
	command := strings.TrimSpace(run.Command)
	if command == "" {
		command = "run"
	}

	data := payload{
		title:   fmt.Sprintf("papersum - %s complete", command),
		message: fmt.Sprintf("%d succeeded in %s", run.Succeeded, elapsed),
		tags:    []string{"papersum", command, "completed"},
	}
	if run.Failed > 0 {
		data.title = fmt.Sprintf("papersum - %s complete (with errors)", command)
		data.message = fmt.Sprintf("%d succeeded, %d failed in %s", run.Succeeded, run.Failed, elapsed)
		data.tags = []string{"papersum", command, "failed"}
		data.priority = "high"
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "papersum - Test",
		message:  "Notification system test",
		tags:     []string{"papersum", "test"},
		priority: "low",
	})
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

func (noopService) NotifyRunCompleted(context.Context, RunReport) error { return nil }
func (noopService) TestNotification(context.Context) error              { return nil }
func (noopService) Enabled() bool                                       { return false }
