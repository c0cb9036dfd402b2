// Package transport defines the outbound chat contract used by the notifier.
package transport

import "context"

// ChatTarget addresses one chat. Chat is either a numeric id or an
// @username for public channels; ThreadID selects a forum topic (0 if none).
type ChatTarget struct {
	Chat     string
	ThreadID int
}

// MessageRef identifies a sent message.
type MessageRef struct {
	Chat      string
	ThreadID  int
	MessageID int
}

type SendOptions struct {
	DisablePreview bool
	Silent         bool
}

// Sender delivers plain text to a chat.
type Sender interface {
	SendText(ctx context.Context, to ChatTarget, text string, opt *SendOptions) (MessageRef, error)
}
