package notifier

import (
	"errors"
	"time"

	kit "hwbot/internal/transport"
)

var (
	// ErrSend matches every *SendError.
	ErrSend  = errors.New("notification send failed")
	ErrEmpty = errors.New("empty notification text")
)

// Config controls delivery to the single relay chat.
type Config struct {
	Target      kit.ChatTarget
	RatePerSec  int
	SendTimeout time.Duration
	HistorySize int
}

type HistoryItem struct {
	At        time.Time
	Kind      string
	Text      string
	MessageID int
}

// SendError is returned when the chat transport rejects a message. It is a
// distinct kind so the relay never tries to report it through the same chat.
type SendError struct {
	Text string
	Err  error
}

func (e *SendError) Error() string        { return "send message: " + e.Err.Error() }
func (e *SendError) Unwrap() error        { return e.Err }
func (e *SendError) Is(target error) bool { return target == ErrSend }
