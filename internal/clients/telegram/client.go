// Package telegram delivers reports to a chat through the Telegram Bot API.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/coinwatch/internal/domain"
)

// DefaultBaseURL is the Bot API root
const DefaultBaseURL = "https://api.telegram.org"

// Client sends messages to a single chat
type Client struct {
	baseURL string
	token   string
	chatID  string
	client  *http.Client
	log     zerolog.Logger
}

type sendMessageRequest struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// NewClient creates a bot client posting to chatID.
// An empty baseURL selects DefaultBaseURL.
func NewClient(baseURL, token, chatID string, log zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		chatID:  chatID,
		client:  &http.Client{Timeout: 30 * time.Second},
		log:     log.With().Str("client", "telegram").Logger(),
	}
}

// Send posts message as HTML with link previews disabled.
// Every failure wraps domain.ErrNotify.
func (c *Client) Send(ctx context.Context, message string) error {
	payload, err := json.Marshal(sendMessageRequest{
		ChatID:                c.chatID,
		Text:                  message,
		ParseMode:             "HTML",
		DisableWebPagePreview: true,
	})
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrNotify, err)
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", c.baseURL, c.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrNotify, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		// the URL carries the bot token
		return fmt.Errorf("%w: request failed: %s", domain.ErrNotify, c.redact(err.Error()))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return fmt.Errorf("%w: failed to read response: %w", domain.ErrNotify, err)
	}

	var result apiResponse
	_ = json.Unmarshal(body, &result)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !result.OK {
		return fmt.Errorf("%w: API returned status %d: %s", domain.ErrNotify, resp.StatusCode, result.Description)
	}

	c.log.Debug().Str("chat_id", c.chatID).Int("bytes", len(message)).Msg("Message sent")
	return nil
}

func (c *Client) redact(s string) string {
	if c.token == "" {
		return s
	}
	return strings.ReplaceAll(s, c.token, "<token>")
}
