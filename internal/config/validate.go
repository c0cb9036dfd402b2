package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate checks the parts of cfg that config can judge on its own.
// Schedule syntax is checked by the scheduler (see app validator).
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("config is nil")
	}
	u, err := url.Parse(strings.TrimSpace(c.Practicum.Endpoint))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("practicum.endpoint: invalid url %q", c.Practicum.Endpoint)
	}
	if _, err := ParseDurationField("practicum.request_timeout", c.Practicum.RequestTimeout); err != nil {
		return err
	}
	if _, err := ParseDurationField("telegram.send_timeout", c.Telegram.SendTimeout); err != nil {
		return err
	}
	if c.Telegram.ThreadID < 0 {
		return fmt.Errorf("telegram.thread_id must be >= 0")
	}
	if strings.TrimSpace(c.Relay.Schedule) == "" {
		return fmt.Errorf("relay.schedule is required")
	}
	switch strings.ToLower(strings.TrimSpace(c.Relay.EmptyHomeworks)) {
	case EmptyIgnore, EmptyError:
	default:
		return fmt.Errorf("relay.empty_homeworks: want %q or %q, got %q", EmptyIgnore, EmptyError, c.Relay.EmptyHomeworks)
	}
	switch strings.ToLower(strings.TrimSpace(c.Relay.SendErrors)) {
	case SendErrorsPropagate, SendErrorsLog:
	default:
		return fmt.Errorf("relay.send_errors: want %q or %q, got %q", SendErrorsPropagate, SendErrorsLog, c.Relay.SendErrors)
	}
	if c.Notifier.RatePerSec < 0 {
		return fmt.Errorf("notifier.rate_per_sec must be >= 0")
	}
	if c.Notifier.HistorySize < 0 {
		return fmt.Errorf("notifier.history_size must be >= 0")
	}
	switch strings.ToLower(strings.TrimSpace(c.Storage.Driver)) {
	case "", "none":
	case "file", "sqlite", "sqlite3":
		if strings.TrimSpace(c.Storage.Path) == "" {
			return fmt.Errorf("storage.path is required for driver %q", c.Storage.Driver)
		}
	default:
		return fmt.Errorf("storage.driver: unknown driver %q", c.Storage.Driver)
	}
	if _, err := ParseDurationField("storage.busy_timeout", c.Storage.BusyTimeout); err != nil {
		return err
	}
	return nil
}
