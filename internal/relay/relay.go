// Package relay is the poll-validate-notify step behind the bot's schedule.
package relay

import (
	"context"
	"errors"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/dustin/go-humanize"

	"hwbot/internal/config"
	"hwbot/internal/notifier"
	"hwbot/internal/practicum"
	"hwbot/internal/storage"
	logx "hwbot/pkg/logx"
)

// ErrNothingSubmitted is returned for an empty homework list when empty lists
// are configured as errors.
var ErrNothingSubmitted = errors.New("no homework submitted since the last poll")

const (
	// ErrorPrefix starts every failure report sent to the chat.
	ErrorPrefix  = "Сбой в работе программы: "
	GreetingText = "Бот запущен, отслеживаю статус домашней работы."

	// maxReportRunes keeps a failure report inside one Telegram message.
	maxReportRunes = 1000
)

// Fetcher is the status API (practicum.Client).
type Fetcher interface {
	Fetch(ctx context.Context, fromDate int64) (any, error)
}

// Notifier is the deduplicating chat sender (notifier.Service).
type Notifier interface {
	NotifyKind(ctx context.Context, kind, text string) (bool, error)
}

type Relay struct {
	fetch  Fetcher
	notify Notifier
	log    logx.Logger

	mu     sync.Mutex
	opt    Options
	cursor int64
}

// New builds a relay starting at cursor 0, which the fetcher reads as "now".
func New(f Fetcher, n Notifier, opt Options, log logx.Logger) *Relay {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Relay{fetch: f, notify: n, opt: opt, log: log}
}

func (r *Relay) Apply(opt Options) {
	r.mu.Lock()
	r.opt = opt
	r.mu.Unlock()
}

func (r *Relay) Options() Options {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.opt
}

// Cursor is the from_date used by the next poll.
func (r *Relay) Cursor() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cursor
}

func (r *Relay) advance(to int64) {
	r.mu.Lock()
	r.cursor = to
	r.mu.Unlock()
}

// Greet sends the startup message when greetings are enabled.
func (r *Relay) Greet(ctx context.Context) error {
	if !r.Options().Greeting {
		return nil
	}
	if _, err := r.notify.NotifyKind(ctx, storage.KindGreeting, GreetingText); err != nil {
		r.log.Warn("greeting not sent", logx.Err(err))
		return err
	}
	return nil
}

// Step runs one poll. Failures other than chat send errors are reported to
// the chat (subject to dedup) and returned; send errors are only logged so a
// broken chat never triggers another send.
func (r *Relay) Step(ctx context.Context) error {
	opt := r.Options()
	err := r.poll(ctx, opt)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		// Shutdown, not a failure worth reporting.
		return err
	}

	if errors.Is(err, notifier.ErrSend) {
		if opt.SendErrors == config.SendErrorsLog {
			return nil
		}
		return err
	}

	r.log.Error(ErrorPrefix+err.Error(), logx.Err(err))
	if !opt.ReportErrors {
		return err
	}
	if _, nerr := r.notify.NotifyKind(ctx, storage.KindError, ErrorPrefix+truncate(err.Error(), maxReportRunes)); nerr != nil {
		r.log.Warn("failure report not sent", logx.Err(nerr))
	}
	return err
}

func (r *Relay) poll(ctx context.Context, opt Options) error {
	cursor := r.Cursor()
	v, err := r.fetch.Fetch(ctx, cursor)
	if err != nil {
		return err
	}
	batch, err := practicum.CheckResponse(v)
	if err != nil {
		return err
	}

	if len(batch.Homeworks) == 0 {
		r.advance(batch.CurrentDate)
		if opt.EmptyHomeworks == config.EmptyError {
			return ErrNothingSubmitted
		}
		r.log.Info("no homework updates", logx.String("since", since(cursor)))
		return nil
	}

	msg, err := practicum.ParseStatus(batch.Homeworks[0])
	if err != nil {
		return err
	}
	if _, err := r.notify.NotifyKind(ctx, storage.KindStatus, msg); err != nil {
		return err
	}
	r.advance(batch.CurrentDate)
	r.log.Debug("cursor advanced", logx.Int64("from", cursor), logx.Int64("to", batch.CurrentDate))
	return nil
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "…"
}

func since(cursor int64) string {
	if cursor == 0 {
		return "start"
	}
	return humanize.Time(time.Unix(cursor, 0))
}
