package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const userAgent = "update-notifier-go/0.1.0"

// Ntfy publishes messages to an ntfy topic URL. Actions are not supported and
// are dropped.
type Ntfy struct {
	endpoint string
	client   *http.Client
}

// NewNtfy returns an ntfy transport. A non-positive timeout uses 10s.
func NewNtfy(endpoint string, timeout time.Duration) *Ntfy {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Ntfy{endpoint: endpoint, client: &http.Client{Timeout: timeout}}
}

func (n *Ntfy) Send(ctx context.Context, msg Message) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.Body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if msg.Title != "" {
		req.Header.Set("Title", msg.Title)
	}
	tags := []string{"update-notifier"}
	if msg.Tag != "" {
		tags = append(tags, msg.Tag)
	}
	req.Header.Set("Tags", strings.Join(tags, ","))
	switch msg.Urgency {
	case UrgencyLow:
		req.Header.Set("Priority", "low")
	case UrgencyCritical:
		req.Header.Set("Priority", "high")
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
