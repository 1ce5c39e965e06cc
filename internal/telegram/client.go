// Package telegram is a thin client for the Bot API methods this bot uses.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const defaultBaseURL = "https://api.telegram.org"

// Client calls the Telegram Bot API over HTTPS.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

// New returns a client for the given bot token.
func New(token string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    defaultBaseURL,
		token:      token,
	}
}

// NewWithBaseURL is New with a custom API endpoint, used in tests.
func NewWithBaseURL(token, baseURL string) *Client {
	c := New(token)
	c.baseURL = baseURL
	return c
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result,omitempty"`
	Description string          `json:"description,omitempty"`
}

func (c *Client) call(ctx context.Context, method string, payload, result any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", method, err)
	}

	url := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()

	var apiResp apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return fmt.Errorf("decode %s response: %w", method, err)
	}
	if !apiResp.OK {
		return fmt.Errorf("%s: api error: %s", method, apiResp.Description)
	}
	if result != nil && apiResp.Result != nil {
		if err := json.Unmarshal(apiResp.Result, result); err != nil {
			return fmt.Errorf("unmarshal %s result: %w", method, err)
		}
	}
	return nil
}

type sendMessageRequest struct {
	ChatID      any    `json:"chat_id"`
	Text        string `json:"text"`
	ParseMode   string `json:"parse_mode,omitempty"`
	ReplyMarkup any    `json:"reply_markup,omitempty"`
}

func (c *Client) send(ctx context.Context, chatID any, text string, opts *SendOptions) (*Message, error) {
	req := sendMessageRequest{ChatID: chatID, Text: text}
	if opts != nil {
		req.ParseMode = opts.ParseMode
		req.ReplyMarkup = opts.ReplyMarkup
	}
	var msg Message
	if err := c.call(ctx, "sendMessage", req, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// SendMessage sends a text message to a private chat.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string, opts *SendOptions) (*Message, error) {
	return c.send(ctx, chatID, text, opts)
}

// SendChannelMessage sends a text message to a channel, which may be
// addressed as "@name" or a numeric id string.
func (c *Client) SendChannelMessage(ctx context.Context, channel, text string, opts *SendOptions) (*Message, error) {
	return c.send(ctx, channel, text, opts)
}

// AnswerCallback acknowledges a callback query, optionally with a toast text.
func (c *Client) AnswerCallback(ctx context.Context, callbackID, text string) error {
	payload := map[string]any{"callback_query_id": callbackID}
	if text != "" {
		payload["text"] = text
	}
	return c.call(ctx, "answerCallbackQuery", payload, nil)
}

// EditMessageReplyMarkup replaces the inline keyboard of a sent message.
// Passing an empty markup removes the buttons.
func (c *Client) EditMessageReplyMarkup(ctx context.Context, chatID, messageID int64, markup *InlineKeyboardMarkup) error {
	payload := map[string]any{
		"chat_id":      chatID,
		"message_id":   messageID,
		"reply_markup": markup,
	}
	return c.call(ctx, "editMessageReplyMarkup", payload, nil)
}
