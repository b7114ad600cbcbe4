// Package notify pushes freshly recorded headlines to a chat.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/deusflow/headwatch/internal/logger"
	"github.com/deusflow/headwatch/internal/metrics"
	"github.com/deusflow/headwatch/internal/retry"
	"github.com/deusflow/headwatch/internal/sink"
)

// Telegram rejects messages above 4096 characters.
const maxMessageRunes = 4000

type Notifier interface {
	Notify(ctx context.Context, records []sink.Record) error
}

// Telegram sends records through the Bot API sendMessage method.
type Telegram struct {
	apiURL  string
	token   string
	chatID  string
	client  *http.Client
	retry   retry.RetryConfig
	metrics *metrics.Metrics
}

func NewTelegram(apiURL, token, chatID string, m *metrics.Metrics) *Telegram {
	if apiURL == "" {
		apiURL = "https://api.telegram.org"
	}
	if m == nil {
		m = metrics.Global
	}
	return &Telegram{
		apiURL:  strings.TrimRight(apiURL, "/"),
		token:   token,
		chatID:  chatID,
		client:  &http.Client{Timeout: 30 * time.Second},
		retry:   retry.DefaultConfig(),
		metrics: m,
	}
}

// Notify sends all records, split across as many messages as needed.
func (t *Telegram) Notify(ctx context.Context, records []sink.Record) error {
	for _, msg := range FormatMessages(records) {
		err := retry.WithRetry(ctx, t.retry, func() error {
			return t.sendMessageOnce(ctx, msg)
		})
		if err != nil {
			return fmt.Errorf("can't send message to Telegram: %w", err)
		}
		t.metrics.IncrementNotificationsSent()
	}
	logger.Debug("telegram notification sent", "records", len(records))
	return nil
}

// FormatMessages renders records as Telegram HTML, packing as many per message as fit.
func FormatMessages(records []sink.Record) []string {
	var out []string
	var b strings.Builder
	for _, r := range records {
		entry := formatRecord(r)
		if b.Len() > 0 && utf8.RuneCountInString(b.String())+utf8.RuneCountInString(entry) > maxMessageRunes {
			out = append(out, strings.TrimSpace(b.String()))
			b.Reset()
		}
		b.WriteString(entry)
	}
	if b.Len() > 0 {
		out = append(out, strings.TrimSpace(b.String()))
	}
	return out
}

func formatRecord(r sink.Record) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🕒 %s", r.Time.Format(sink.TimestampLayout))
	if r.Source != "" {
		fmt.Fprintf(&b, " · %s", html.EscapeString(r.Source))
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "<b>%s</b>\n", html.EscapeString(r.Original))
	fmt.Fprintf(&b, "<i>%s</i>\n", html.EscapeString(r.Translated))
	fmt.Fprintf(&b, "<a href=\"%s\">🔗 link</a>\n\n", html.EscapeString(r.Link))
	return b.String()
}

func (t *Telegram) sendMessageOnce(ctx context.Context, text string) error {
	url := fmt.Sprintf("%s/bot%s/sendMessage", t.apiURL, t.token)

	payload := map[string]interface{}{
		"chat_id":                  t.chatID,
		"text":                     text,
		"parse_mode":               "HTML",
		"disable_web_page_preview": true,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return retry.Permanent(fmt.Errorf("error make JSON: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return retry.Permanent(fmt.Errorf("error creating request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("error HTTP request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return fmt.Errorf("telegram API error: status %d", resp.StatusCode)
	default:
		return retry.Permanent(fmt.Errorf("telegram API error: status %d", resp.StatusCode))
	}
}
