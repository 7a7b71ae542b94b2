package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const telegramAPIBase = "https://api.telegram.org"

// TelegramSender posts alerts to a chat through the Telegram Bot API.
type TelegramSender struct {
	token  string
	chatID string
	base   string
	client *http.Client
}

// NewTelegramSender builds a sender for the given bot token and chat ID.
func NewTelegramSender(token, chatID string) *TelegramSender {
	return &TelegramSender{
		token:  token,
		chatID: chatID,
		base:   telegramAPIBase,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

type telegramMessage struct {
	ChatID             string `json:"chat_id"`
	Text               string `json:"text"`
	ParseMode          string `json:"parse_mode"`
	DisableLinkPreview bool   `json:"disable_web_page_preview"`
}

// Send posts the note via sendMessage. The title renders bold and the event
// kind trails as a hashtag so chat members can mute e.g. #trade spam while
// keeping #market_resolved.
func (t *TelegramSender) Send(ctx context.Context, note Note) error {
	msg := telegramMessage{
		ChatID:             t.chatID,
		Text:               fmt.Sprintf("*%s*\n%s\n#%s", note.Title, note.Body, note.Event),
		ParseMode:          "Markdown",
		DisableLinkPreview: true,
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("telegram: marshal message: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.base, t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("telegram: status %d: %s", resp.StatusCode, string(detail))
	}
	return nil
}

func (t *TelegramSender) Name() string { return "telegram" }
