package storage

import (
	"errors"
	"time"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures storage.
//
// Driver values:
//   - "file": JSON Lines file, no dependencies
//   - "sqlite": SQLite database file (modernc.org/sqlite, pure Go)
//
// If Driver is empty or "none", storage is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Delivery kinds.
const (
	KindStatus   = "status"
	KindError    = "error"
	KindGreeting = "greeting"
)

// Delivery records one outbound chat message attempt.
// Keep it compact and schema-stable.
type Delivery struct {
	At        time.Time `json:"at"`
	Chat      string    `json:"chat"`
	Kind      string    `json:"kind"`
	Text      string    `json:"text"`
	MessageID int       `json:"message_id,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// OK reports whether the message reached the chat.
func (d Delivery) OK() bool { return d.Error == "" }
