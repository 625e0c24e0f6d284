package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"VCRadar/internal/domain"
	"VCRadar/internal/ports"
)

// captionLimit is Telegram's maximum photo caption length. Longer
// messages are delivered as a bare photo followed by the full text.
const captionLimit = 1024

const defaultAPIBase = "https://api.telegram.org"

// Notifier sends opportunity messages to a Telegram chat via the bot API.
type Notifier struct {
	apiBase  string
	botToken string
	chatID   string
	client   *http.Client
	logger   *slog.Logger
}

var _ ports.Notifier = (*Notifier)(nil)

// NewNotifier registers bot token and chat identifier.
func NewNotifier(botToken, chatID string, logger *slog.Logger) *Notifier {
	return &Notifier{
		apiBase:  defaultAPIBase,
		botToken: botToken,
		chatID:   chatID,
		client:   &http.Client{Timeout: 10 * time.Second},
		logger:   logger,
	}
}

// Deliver posts the rendered message, attaching the image when one is
// available. Photo and Markdown failures step down to plainer forms; only
// a failure of the final plain-text attempt is surfaced.
func (n *Notifier) Deliver(ctx context.Context, item domain.NewsItem, message, imageURL string) error {
	if n.botToken == "" || n.chatID == "" {
		return fmt.Errorf("telegram notifier misconfigured")
	}

	if imageURL != "" {
		if len(message) <= captionLimit {
			if err := n.sendPhoto(ctx, imageURL, message); err == nil {
				return nil
			} else {
				n.warn("photo with caption failed, sending as text", "title", item.Title, "error", err)
			}
		} else {
			// Caption cannot hold the message; ship the photo alone and
			// let the text follow as a separate message.
			if err := n.sendPhoto(ctx, imageURL, ""); err != nil {
				n.warn("standalone photo failed, proceeding with text only", "title", item.Title, "error", err)
			}
		}
	}

	if err := n.sendMessage(ctx, message, true); err == nil {
		return nil
	} else {
		n.warn("markdown message failed, retrying as plain text", "title", item.Title, "error", err)
	}

	plain := strings.NewReplacer("*", "", "_", "").Replace(message)
	if err := n.sendMessage(ctx, plain, false); err != nil {
		return fmt.Errorf("send plain text: %w", err)
	}
	return nil
}

func (n *Notifier) sendPhoto(ctx context.Context, photoURL, caption string) error {
	payload := map[string]any{
		"chat_id": n.chatID,
		"photo":   photoURL,
	}
	if caption != "" {
		payload["caption"] = caption
		payload["parse_mode"] = "Markdown"
	}
	return n.post(ctx, "sendPhoto", payload)
}

func (n *Notifier) sendMessage(ctx context.Context, text string, markdown bool) error {
	payload := map[string]any{
		"chat_id":                  n.chatID,
		"text":                     text,
		"disable_web_page_preview": true,
	}
	if markdown {
		payload["parse_mode"] = "Markdown"
	}
	return n.post(ctx, "sendMessage", payload)
}

func (n *Notifier) post(ctx context.Context, method string, payload map[string]any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", method, err)
	}

	endpoint := fmt.Sprintf("%s/bot%s/%s", n.apiBase, n.botToken, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("telegram %s error %s: %s", method, resp.Status, strings.TrimSpace(string(detail)))
	}
	return nil
}

func (n *Notifier) warn(msg string, args ...any) {
	if n.logger != nil {
		n.logger.Warn(msg, args...)
	}
}
