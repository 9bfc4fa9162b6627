// Package transport abstracts the chat platform. The auth core only
// depends on Sender; the Telegram Bot API client below is the production
// implementation.
package transport

import "context"

// Message is an inbound chat message from a single principal. The chat
// ID doubles as the principal ID: each privileged user talks to the bot
// through a private one-on-one chat.
type Message struct {
	ChatID    int64
	MessageID int
	Text      string
}

// MessageRef identifies a sent message for later deletion.
type MessageRef struct {
	ChatID    int64
	MessageID int
}

// Sender delivers prompts and removes sensitive messages. Password and
// backup-code prompts rely on DeleteMessage for post-display cleanup.
type Sender interface {
	Send(ctx context.Context, chatID int64, text string) (MessageRef, error)
	SendPhoto(ctx context.Context, chatID int64, caption string, photo []byte) (MessageRef, error)
	DeleteMessage(ctx context.Context, ref MessageRef) error
}
