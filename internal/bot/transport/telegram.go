package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"
)

const defaultAPIBase = "https://api.telegram.org"

// TelegramClient talks to the Telegram Bot API over JSON/HTTPS.
type TelegramClient struct {
	token   string
	apiBase string
	client  *http.Client
}

func NewTelegramClient(token string) *TelegramClient {
	return &TelegramClient{
		token:   token,
		apiBase: defaultAPIBase,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

// WithAPIBase overrides the API endpoint. Test hook.
func (c *TelegramClient) WithAPIBase(base string) *TelegramClient {
	c.apiBase = base
	return c
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Description string          `json:"description"`
	Result      json.RawMessage `json:"result"`
}

type apiMessage struct {
	MessageID int `json:"message_id"`
	Chat      struct {
		ID int64 `json:"id"`
	} `json:"chat"`
	From *struct {
		ID    int64 `json:"id"`
		IsBot bool  `json:"is_bot"`
	} `json:"from"`
	Text string `json:"text"`
}

// Update is one long-poll result entry.
type Update struct {
	UpdateID int64       `json:"update_id"`
	Message  *apiMessage `json:"message"`
}

func (c *TelegramClient) call(ctx context.Context, method string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("error encoding %s request: %w", method, err)
	}

	url := fmt.Sprintf("%s/bot%s/%s", c.apiBase, c.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, method, out)
}

func (c *TelegramClient) do(req *http.Request, method string, out any) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("error calling %s: %w", method, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("error reading %s response: %w", method, err)
	}

	var api apiResponse
	if err := json.Unmarshal(raw, &api); err != nil {
		return fmt.Errorf("error decoding %s response: %w", method, err)
	}
	if !api.OK {
		return fmt.Errorf("%s failed: %s", method, api.Description)
	}
	if out != nil {
		if err := json.Unmarshal(api.Result, out); err != nil {
			return fmt.Errorf("error decoding %s result: %w", method, err)
		}
	}
	return nil
}

func (c *TelegramClient) Send(ctx context.Context, chatID int64, text string) (MessageRef, error) {
	var msg apiMessage
	err := c.call(ctx, "sendMessage", map[string]any{
		"chat_id": chatID,
		"text":    text,
	}, &msg)
	if err != nil {
		return MessageRef{}, err
	}
	return MessageRef{ChatID: msg.Chat.ID, MessageID: msg.MessageID}, nil
}

func (c *TelegramClient) SendPhoto(ctx context.Context, chatID int64, caption string, photo []byte) (MessageRef, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if err := w.WriteField("chat_id", strconv.FormatInt(chatID, 10)); err != nil {
		return MessageRef{}, err
	}
	if caption != "" {
		if err := w.WriteField("caption", caption); err != nil {
			return MessageRef{}, err
		}
	}
	part, err := w.CreateFormFile("photo", "qr.png")
	if err != nil {
		return MessageRef{}, err
	}
	if _, err := part.Write(photo); err != nil {
		return MessageRef{}, err
	}
	if err := w.Close(); err != nil {
		return MessageRef{}, err
	}

	url := fmt.Sprintf("%s/bot%s/sendPhoto", c.apiBase, c.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return MessageRef{}, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	var msg apiMessage
	if err := c.do(req, "sendPhoto", &msg); err != nil {
		return MessageRef{}, err
	}
	return MessageRef{ChatID: msg.Chat.ID, MessageID: msg.MessageID}, nil
}

func (c *TelegramClient) DeleteMessage(ctx context.Context, ref MessageRef) error {
	return c.call(ctx, "deleteMessage", map[string]any{
		"chat_id":    ref.ChatID,
		"message_id": ref.MessageID,
	}, nil)
}

// GetUpdates long-polls for inbound updates past the given offset.
func (c *TelegramClient) GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]Update, error) {
	var updates []Update
	err := c.call(ctx, "getUpdates", map[string]any{
		"offset":  offset,
		"timeout": int(timeout.Seconds()),
	}, &updates)
	if err != nil {
		return nil, err
	}
	return updates, nil
}

// Inbound converts an update into a Message, skipping edits, bot echoes
// and non-text payloads.
func (u *Update) Inbound() (Message, bool) {
	if u.Message == nil || u.Message.Text == "" {
		return Message{}, false
	}
	if u.Message.From != nil && u.Message.From.IsBot {
		return Message{}, false
	}
	return Message{
		ChatID:    u.Message.Chat.ID,
		MessageID: u.Message.MessageID,
		Text:      u.Message.Text,
	}, true
}
