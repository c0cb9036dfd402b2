// Package app wires config, logging, the journal and the relay loop together
// and owns their lifecycle.
package app

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"hwbot/internal/config"
	"hwbot/internal/notifier"
	"hwbot/internal/practicum"
	"hwbot/internal/relay"
	"hwbot/internal/runtime/supervisor"
	"hwbot/internal/storage"
	"hwbot/internal/task/scheduler"
	kit "hwbot/internal/transport"
	"hwbot/internal/transport/telegram"
	logx "hwbot/pkg/logx"
)

// PollJob is the scheduler name of the relay step.
const PollJob = "homework.poll"

type App struct {
	creds config.Credentials

	cfgm *config.Manager
	sup  *supervisor.Supervisor

	log   logx.Logger
	logs  *logx.Service
	store storage.Store

	api    *practicum.Client
	sender kit.Sender
	notif  *notifier.Service
	relay  *relay.Relay
	sched  *scheduler.Service
	unit   *unitNotifier

	stopOnce sync.Once
}

type Option func(*options)

type options struct {
	sender     kit.Sender
	httpClient *http.Client
}

// WithSender replaces the Telegram adapter.
func WithSender(s kit.Sender) Option { return func(o *options) { o.sender = s } }

// WithHTTPClient sets the client used for the status API.
func WithHTTPClient(hc *http.Client) Option { return func(o *options) { o.httpClient = hc } }

// New loads the config and builds every component. Nothing runs until Start.
func New(cfgPath string, creds config.Credentials, opts ...Option) (*App, error) {
	if err := creds.Check(); err != nil {
		return nil, err
	}
	var o options
	for _, fn := range opts {
		fn(&o)
	}

	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	logs, log := logx.New(mapLogConfig(cfg))
	a := &App{creds: creds, cfgm: cfgm, log: log, logs: logs, unit: newUnitNotifier(log.With(logx.String("comp", "systemd")))}
	if err := a.build(cfg, o); err != nil {
		a.closeStore()
		_ = logs.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) build(cfg *config.Config, o options) error {
	scfg, enabled, err := mapStorageConfig(cfg)
	if err != nil {
		return err
	}
	if enabled {
		st, err := storage.Open(scfg, a.log.With(logx.String("comp", "storage")))
		if err != nil {
			return fmt.Errorf("open storage: %w", err)
		}
		a.store = st
	}

	pcfg, err := mapPracticumConfig(cfg, a.creds)
	if err != nil {
		return err
	}
	var popts []practicum.Option
	if o.httpClient != nil {
		popts = append(popts, practicum.WithHTTPClient(o.httpClient))
	}
	a.api, err = practicum.NewClient(pcfg, a.log.With(logx.String("comp", "practicum")), popts...)
	if err != nil {
		return err
	}

	ncfg, err := mapNotifierConfig(cfg, a.creds)
	if err != nil {
		return err
	}
	a.sender = o.sender
	if a.sender == nil {
		// Offline: no getMe at boot, so an unreachable Bot API only fails sends.
		tg, err := telegram.New(telegram.Config{
			Token:   a.creds.TelegramToken,
			Timeout: ncfg.SendTimeout,
			Offline: true,
		}, a.log.With(logx.String("comp", "telegram")))
		if err != nil {
			return err
		}
		a.sender = tg
	}
	a.notif = notifier.New(ncfg, a.sender, a.log.With(logx.String("comp", "notifier")), a.store)
	a.relay = relay.New(a.api, a.notif, relay.OptionsFrom(cfg.Relay), a.log.With(logx.String("comp", "relay")))

	a.sched = scheduler.New(scheduler.Config{}, a.log.With(logx.String("comp", "scheduler")))
	if err := a.sched.Set(PollJob, cfg.Relay.Schedule, a.poll); err != nil {
		return fmt.Errorf("relay.schedule: %w", err)
	}
	return nil
}

func (a *App) Logger() logx.Logger { return a.log }

// Done is closed when a supervised goroutine fails fatally.
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		return nil
	}
	return a.sup.Done()
}

func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

// Relay exposes the relay for status reporting.
func (a *App) Relay() *relay.Relay { return a.relay }

func (a *App) Notifier() *notifier.Service { return a.notif }

func (a *App) Scheduler() *scheduler.Service { return a.sched }

// poll is the scheduled job.
func (a *App) poll(ctx context.Context) error {
	err := a.relay.Step(ctx)
	if err != nil {
		a.unit.Status("last poll failed: " + err.Error())
		return err
	}
	a.unit.Status(fmt.Sprintf("last poll ok at %s, cursor %d, goroutines %d",
		time.Now().Format(time.TimeOnly), a.relay.Cursor(), a.sup.Counters().Active))
	return nil
}

func (a *App) Start(ctx context.Context) error {
	a.sup = supervisor.New(ctx, supervisor.WithLogger(a.log.With(logx.String("comp", "supervisor"))), supervisor.WithCancelOnError(true))

	// transactional reload: rejected configs are never published
	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))
	a.cfgm.SetValidator(a.validate)

	a.logJournal(a.sup.Context())

	// The greeting goes out before the first status.
	_ = a.relay.Greet(a.sup.Context())

	if err := a.sched.Start(a.sup.Context()); err != nil {
		return err
	}

	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		applied := a.cfgm.Get()
		for {
			select {
			case <-c.Done():
				return
			case newCfg, ok := <-sub:
				if !ok {
					return
				}
				// Coalesce bursts: only the newest config matters.
				for drained := false; !drained; {
					select {
					case newer := <-sub:
						if newer != nil {
							newCfg = newer
						}
					default:
						drained = true
					}
				}
				a.apply(applied, newCfg)
				applied = newCfg
			}
		}
	})
	a.sup.GoRestart("config.watch", a.cfgm.Watch, supervisor.WithRestartBackoff(time.Second, 30*time.Second))
	a.sup.Go0("systemd.watchdog", a.unit.WatchdogLoop)

	a.unit.Ready()
	a.log.Info("app started",
		logx.String("schedule", a.sched.Snapshot().Spec),
		logx.String("chat", a.creds.ChatID),
		logx.Secret("practicum_token", a.creds.PracticumToken),
	)
	return nil
}

func (a *App) validate(_ context.Context, cfg *config.Config) error {
	if err := a.sched.Validate(cfg.Relay.Schedule); err != nil {
		return fmt.Errorf("relay.schedule: %w", err)
	}
	if _, _, err := mapStorageConfig(cfg); err != nil {
		return err
	}
	if _, err := mapNotifierConfig(cfg, a.creds); err != nil {
		return err
	}
	_, err := mapPracticumConfig(cfg, a.creds)
	return err
}

// apply pushes a reloaded config into the live components.
func (a *App) apply(prev, next *config.Config) {
	sections := config.ChangedSections(prev, next)
	if len(sections) == 0 {
		a.log.Debug("config reload received, but no effective changes detected")
		return
	}
	changed := logx.String("changed", strings.Join(sections, ","))

	// logging first so the rest of the reload is logged at the new level
	a.logs.Apply(mapLogConfig(next))

	a.relay.Apply(relay.OptionsFrom(next.Relay))
	if ncfg, err := mapNotifierConfig(next, a.creds); err != nil {
		a.log.Warn("invalid notifier config; keeping previous", logx.Err(err))
	} else {
		a.notif.Apply(ncfg)
	}
	if err := a.sched.Reschedule(next.Relay.Schedule); err != nil {
		a.log.Warn("invalid schedule; keeping previous", logx.Err(err))
	}

	for _, s := range []string{"practicum", "storage"} {
		if slices.Contains(sections, s) {
			a.log.Warn(s + " config changed; restart required for changes to take effect")
		}
	}
	a.log.Info("config applied", changed)
}

// logJournal logs the most recent journaled delivery, if any.
func (a *App) logJournal(ctx context.Context) {
	if a.store == nil {
		return
	}
	c, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	last, err := a.store.RecentDeliveries(c, 1)
	if err != nil {
		a.log.Warn("delivery journal unreadable", logx.Err(err))
		return
	}
	if len(last) == 0 {
		a.log.Info("delivery journal is empty")
		return
	}
	d := last[0]
	a.log.Info("last journaled delivery",
		logx.String("kind", d.Kind),
		logx.String("when", humanize.Time(d.At)),
		logx.Bool("ok", d.OK()),
	)
}

func (a *App) closeStore() {
	if a.store == nil {
		return
	}
	if err := a.store.Close(); err != nil {
		a.log.Warn("storage close failed", logx.Err(err))
	}
}

// Stop shuts everything down, bounding each step so one component can't
// stall the rest. It is safe to call more than once.
func (a *App) Stop(ctx context.Context, reason StopReason) error {
	if a.sup == nil {
		return nil
	}
	a.stopOnce.Do(func() { a.stop(ctx, reason) })
	return nil
}

func (a *App) stop(ctx context.Context, reason StopReason) {
	a.log.Info("stopping", logx.String("reason", string(reason)))
	a.unit.Stopping()

	// Cancel first so background loops start unwinding immediately.
	a.sup.Cancel()

	step := func(name string, max time.Duration, fn func(context.Context) error) {
		start := time.Now()
		// respect the caller's deadline; never extend it
		if dl, ok := ctx.Deadline(); ok {
			max = min(max, time.Until(dl))
		}
		if max <= 0 {
			a.log.Warn("stop step skipped (deadline reached)", logx.String("name", name))
			return
		}
		stepCtx, cancel := context.WithTimeout(ctx, max)
		defer cancel()

		done := make(chan error, 1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					done <- fmt.Errorf("panic in stop step %s: %v", name, r)
				}
			}()
			done <- fn(stepCtx)
		}()

		select {
		case err := <-done:
			if err != nil {
				a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
			}
			a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", time.Since(start)))
		case <-stepCtx.Done():
			a.log.Warn("stop step deadline reached (continuing)", logx.String("name", name), logx.Duration("elapsed", time.Since(start)))
		}
	}

	step("scheduler", 5*time.Second, func(c context.Context) error { a.sched.Stop(c); return nil })
	step("supervisor", 2*time.Second, func(c context.Context) error { return a.sup.Wait(c) })
	step("storage", time.Second, func(context.Context) error {
		a.closeStore()
		return nil
	})

	a.log.Info("stopped")
	_ = a.logs.Close()
}
