package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Telegram pushes operator-facing messages to a chat via the bot API.
type Telegram struct {
	botKey string
	chatID string
	http   *http.Client
}

func NewTelegram(botKey, chatID string) *Telegram {
	return &Telegram{
		botKey: botKey,
		chatID: chatID,
		http:   &http.Client{Timeout: 10 * time.Second},
	}
}

// Enabled reports whether bot credentials are configured.
func (t *Telegram) Enabled() bool { return t.botKey != "" && t.chatID != "" }

func (t *Telegram) Send(ctx context.Context, text string) error {
	if !t.Enabled() {
		return nil
	}
	body, err := json.Marshal(map[string]string{
		"chat_id":    t.chatID,
		"text":       text,
		"parse_mode": "MarkDown",
	})
	if err != nil {
		return err
	}
	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", t.botKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.http.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram responded with status %d", resp.StatusCode)
	}
	return nil
}
