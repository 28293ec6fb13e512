// Package slack sends high-priority triage notifications to Slack via
// incoming webhooks.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/linnemanlabs/sift/internal/intake"
	"github.com/linnemanlabs/sift/internal/triage"
)

const (
	maxReasoningLen = 1000
	httpTimeout     = 10 * time.Second
)

// Notifier posts triage results to a Slack webhook.
type Notifier struct {
	webhookURL string
	client     *http.Client
}

// New creates a new Slack notifier. If webhookURL is empty, Notify is a no-op.
func New(webhookURL string) *Notifier {
	return &Notifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: httpTimeout},
	}
}

// Notify posts a triage result to the configured Slack webhook.
// If no webhook URL is configured, it returns nil immediately.
func (n *Notifier) Notify(ctx context.Context, item *intake.Item, res *triage.Result) error {
	if n.webhookURL == "" {
		return nil
	}

	msg := buildMessage(item, res)

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("slack: marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("slack: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("slack: post webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("slack: webhook returned %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

func buildMessage(item *intake.Item, res *triage.Result) map[string]any {
	return map[string]any{
		"blocks": []map[string]any{
			headerBlock(item, res),
			{"type": "divider"},
			fieldsBlock(item, res),
			reasoningBlock(res),
			{"type": "divider"},
			contextBlock(res),
		},
	}
}

func headerBlock(item *intake.Item, res *triage.Result) map[string]any {
	subject := item.Subject
	if subject == "" {
		subject = "(no subject)"
	}

	return map[string]any{
		"type": "header",
		"text": map[string]any{
			"type": "plain_text",
			"text": fmt.Sprintf("%s %s: %s", priorityEmoji(res.Priority), res.Priority, subject),
		},
	}
}

func fieldsBlock(item *intake.Item, res *triage.Result) map[string]any {
	from := item.FromName
	if from == "" {
		from = item.FromAddress
	}
	if from == "" {
		from = "unknown"
	}

	fields := []map[string]any{
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Category:* %s", res.Category),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*From:* %s", from),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Source:* %s", item.Source),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Confidence:* %d%%", res.Confidence),
		},
	}

	return map[string]any{
		"type":   "section",
		"fields": fields,
	}
}

func reasoningBlock(res *triage.Result) map[string]any {
	text := truncate(res.Reasoning, maxReasoningLen)
	if text == "" {
		text = "_No reasoning available._"
	}

	return map[string]any{
		"type": "section",
		"text": map[string]any{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Reasoning*\n\n%s", text),
		},
	}
}

func contextBlock(res *triage.Result) map[string]any {
	elements := []map[string]any{
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("sift • intake %s • %s", res.ID, res.TriagedAt.UTC().Format("2006-01-02 15:04 UTC")),
		},
	}

	return map[string]any{
		"type":     "context",
		"elements": elements,
	}
}

func priorityEmoji(p intake.Priority) string {
	switch p {
	case intake.PriorityP0:
		return "\U0001f534" // red circle
	case intake.PriorityP1:
		return "\U0001f7e1" // yellow circle
	default:
		return "\U0001f7e2" // green circle
	}
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit-3] + "..."
}
