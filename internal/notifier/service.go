package notifier

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"hwbot/internal/storage"
	kit "hwbot/internal/transport"
	logx "hwbot/pkg/logx"
)

// Service sends texts to one chat with last-message dedup, a rate limit and
// a per-send timeout.
//
// It is safe for concurrent use; sends are serialized.
type Service struct {
	mu      sync.Mutex
	cfg     Config
	limiter *rate.Limiter

	log    logx.Logger
	sender kit.Sender
	store  storage.Store

	// sendMu makes the dedup check and the send one step.
	sendMu   sync.Mutex
	lastSent string

	hmu     sync.Mutex
	history []HistoryItem
}

func New(cfg Config, sender kit.Sender, log logx.Logger, store storage.Store) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Service{
		sender: sender,
		log:    log,
		store:  store,
	}
	s.applyLocked(cfg)
	return s
}

// Apply swaps limits and target. The last-sent text is kept.
func (s *Service) Apply(cfg Config) {
	s.mu.Lock()
	s.applyLocked(cfg)
	s.mu.Unlock()
}

func (s *Service) applyLocked(cfg Config) {
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 1
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 10 * time.Second
	}
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = 100
	}
	s.cfg = cfg
	s.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec)
}

// Notify sends a status update. See NotifyKind.
func (s *Service) Notify(ctx context.Context, text string) (bool, error) {
	return s.NotifyKind(ctx, storage.KindStatus, text)
}

// NotifyKind sends text unless it equals the last sent text. It reports
// whether a message went out. Transport failures come back as *SendError.
func (s *Service) NotifyKind(ctx context.Context, kind, text string) (bool, error) {
	if text == "" {
		return false, ErrEmpty
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	if text == s.lastSent {
		s.log.Error("message already sent, not repeating", logx.String("kind", kind), logx.String("text", text))
		return false, nil
	}

	s.mu.Lock()
	cfg := s.cfg
	lim := s.limiter
	s.mu.Unlock()

	if err := lim.Wait(ctx); err != nil {
		return false, err
	}

	callCtx, cancel := context.WithTimeout(ctx, cfg.SendTimeout)
	ref, err := s.sender.SendText(callCtx, cfg.Target, text, nil)
	cancel()

	d := storage.Delivery{
		At:        time.Now(),
		Chat:      cfg.Target.Chat,
		Kind:      kind,
		Text:      text,
		MessageID: ref.MessageID,
	}
	if err != nil {
		d.Error = err.Error()
		s.journal(ctx, d)
		s.log.Error("Сбой в работе Telegram", logx.String("kind", kind), logx.Err(err))
		return false, &SendError{Text: text, Err: err}
	}

	s.lastSent = text
	s.appendHistory(HistoryItem{At: d.At, Kind: kind, Text: text, MessageID: ref.MessageID}, cfg.HistorySize)
	s.journal(ctx, d)
	s.log.Debug("message sent", logx.String("kind", kind), logx.String("text", text), logx.Int("message_id", ref.MessageID))
	return true, nil
}

// LastSent returns the last successfully sent text.
func (s *Service) LastSent() string {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	return s.lastSent
}

func (s *Service) Snapshot() []HistoryItem {
	s.hmu.Lock()
	out := append([]HistoryItem(nil), s.history...)
	s.hmu.Unlock()
	return out
}

func (s *Service) appendHistory(it HistoryItem, max int) {
	s.hmu.Lock()
	s.history = append(s.history, it)
	if len(s.history) > max {
		s.history = s.history[len(s.history)-max:]
	}
	s.hmu.Unlock()
}

func (s *Service) journal(ctx context.Context, d storage.Delivery) {
	if s.store == nil {
		return
	}
	// Journal writes must not eat into the next step; detach from cancellation.
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
	defer cancel()
	if err := s.store.AppendDelivery(cctx, d); err != nil {
		s.log.Warn("delivery journal write failed", logx.Err(err))
	}
}
