package relay

import (
	"strings"

	"hwbot/internal/config"
)

// Options are the behaviour switches that config reloads may change.
type Options struct {
	// EmptyHomeworks is config.EmptyIgnore or config.EmptyError.
	EmptyHomeworks string
	// SendErrors is config.SendErrorsPropagate or config.SendErrorsLog.
	SendErrors   string
	ReportErrors bool
	Greeting     bool
}

// OptionsFrom maps the relay config section, filling unknown values with defaults.
func OptionsFrom(c config.RelayConfig) Options {
	o := Options{
		EmptyHomeworks: strings.ToLower(strings.TrimSpace(c.EmptyHomeworks)),
		SendErrors:     strings.ToLower(strings.TrimSpace(c.SendErrors)),
		ReportErrors:   c.ReportErrors,
		Greeting:       c.Greeting,
	}
	if o.EmptyHomeworks != config.EmptyError {
		o.EmptyHomeworks = config.EmptyIgnore
	}
	if o.SendErrors != config.SendErrorsLog {
		o.SendErrors = config.SendErrorsPropagate
	}
	return o
}
