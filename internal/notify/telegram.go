// Package notify delivers best-effort messages to referrers through the
// Telegram Bot API.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/refstore/referral-engine/internal/metrics"
)

const (
	defaultAPIBase = "https://api.telegram.org"
	sendTimeout    = 5 * time.Second
	maxAttempts    = 3
)

// Telegram posts sendMessage calls for a single bot token. Delivery is
// best effort: callers treat a returned error as a logged degradation,
// never as a request failure.
type Telegram struct {
	token   string
	apiBase string
	backoff time.Duration
	client  *http.Client
	log     *zap.Logger
}

// NewTelegram builds a notifier for the given bot token. An empty token
// disables sending; Send then becomes a logged no-op.
func NewTelegram(token string, log *zap.Logger) *Telegram {
	return &Telegram{
		token:   token,
		apiBase: defaultAPIBase,
		backoff: time.Second,
		client:  &http.Client{Timeout: sendTimeout},
		log:     log,
	}
}

// sendMessagePayload is the subset of the Bot API sendMessage body we use.
type sendMessagePayload struct {
	ChatID int64  `json:"chat_id"`
	Text   string `json:"text"`
}

// Send delivers text to the chat, retrying transient failures up to
// maxAttempts with a short backoff between tries.
func (t *Telegram) Send(ctx context.Context, chatID int64, text string) error {
	if t.token == "" {
		t.log.Debug("telegram disabled, dropping message", zap.Int64("chat_id", chatID))
		return nil
	}
	if chatID == 0 {
		return fmt.Errorf("no chat id for recipient")
	}

	body, err := json.Marshal(sendMessagePayload{ChatID: chatID, Text: text})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		lastErr = t.post(ctx, body)
		if lastErr == nil {
			metrics.NotificationsTotal.WithLabelValues("sent").Inc()
			return nil
		}
		t.log.Warn("telegram send failed",
			zap.Int64("chat_id", chatID),
			zap.Int("attempt", attempt),
			zap.Error(lastErr))
		if attempt < maxAttempts {
			select {
			case <-ctx.Done():
				metrics.NotificationsTotal.WithLabelValues("failed").Inc()
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * t.backoff):
			}
		}
	}
	metrics.NotificationsTotal.WithLabelValues("failed").Inc()
	return lastErr
}

func (t *Telegram) post(ctx context.Context, body []byte) error {
	url := fmt.Sprintf("%s/bot%s/sendMessage", t.apiBase, t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("telegram api status %d: %s", resp.StatusCode, snippet)
	}
	return nil
}

// CreditedMessage renders the notification text for one credited
// commission.
func CreditedMessage(referrerName, buyerName, amount string, level int) string {
	return fmt.Sprintf(
		"🎉 %s, you earned a level %d referral bonus of %s from %s's order!",
		referrerName, level, amount, buyerName)
}
