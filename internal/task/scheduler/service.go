package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/robfig/cron/v3"

	logx "hwbot/pkg/logx"
)

var ErrNoJob = errors.New("scheduler: no job registered")

func New(cfg Config, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		cfg: cfg,
		log: log,
		// SecondOptional allows both 5-field and 6-field (with seconds) cron specs.
		parser: cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
	}
}

// Validate reports whether schedule would be accepted by Set or Reschedule.
func (s *Service) Validate(schedule string) error {
	_, err := s.normalize(schedule)
	return err
}

// Set registers the job under name with the given schedule, replacing any
// previous registration. If the scheduler is running the new schedule is
// armed immediately (without an extra run).
func (s *Service) Set(name, schedule string, job Job) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("name required")
	}
	if job == nil {
		return errors.New("job required")
	}
	spec, err := s.normalize(schedule)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.name = name
	s.job = job
	return s.armLocked(spec)
}

// Reschedule swaps the schedule of the registered job.
func (s *Service) Reschedule(schedule string) error {
	spec, err := s.normalize(schedule)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.job == nil {
		return ErrNoJob
	}
	if spec == s.spec {
		return nil
	}
	return s.armLocked(spec)
}

func (s *Service) normalize(schedule string) (string, error) {
	ps, err := ParseSchedule(schedule)
	if err != nil {
		return "", err
	}
	spec := ps.CronSpec()
	if _, err := s.parser.Parse(spec); err != nil {
		return "", fmt.Errorf("invalid schedule %q: %w", schedule, err)
	}
	return spec, nil
}

// armLocked (re)registers the cron entry. Call with s.mu held.
func (s *Service) armLocked(spec string) error {
	prev := s.spec
	s.spec = spec
	if s.c == nil {
		return nil
	}
	if s.entryID != 0 {
		s.c.Remove(s.entryID)
		s.entryID = 0
	}
	eid, err := s.c.AddJob(spec, cron.FuncJob(s.runOnce))
	if err != nil {
		s.spec = prev
		return err
	}
	s.entryID = eid
	fields := []logx.Field{logx.String("name", s.name), logx.String("spec", spec)}
	if sched, perr := s.parser.Parse(spec); perr == nil {
		fields = append(fields, logx.String("next", humanize.Time(sched.Next(time.Now()))))
	}
	s.log.Info("schedule armed", fields...)
	return nil
}

// Start arms the schedule and runs the job once right away. It is idempotent.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c != nil {
		return nil
	}
	if s.job == nil {
		return ErrNoJob
	}

	s.runCtx, s.cancel = context.WithCancel(ctx)
	clog := cronLogger{log: s.log}
	s.c = cron.New(
		cron.WithParser(s.parser),
		// No SkipIfStillRunning: its token is lost when a job panics. runOnce
		// keeps its own overlap guard.
		cron.WithChain(cron.Recover(clog)),
		cron.WithLogger(clog),
	)
	if err := s.armLocked(s.spec); err != nil {
		s.c = nil
		s.cancel()
		return err
	}
	s.c.Start()

	// The wrapped job shares the overlap guard and panic recovery with cron triggers.
	first := s.c.Entry(s.entryID).WrappedJob
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		first.Run()
	}()

	s.log.Info("service started", logx.String("name", s.name), logx.String("spec", s.spec))
	return nil
}

// Stop disarms the schedule, cancels an in-flight run and waits for it to
// return or for ctx to expire.
func (s *Service) Stop(ctx context.Context) {
	start := time.Now()

	s.mu.Lock()
	c := s.c
	cancel := s.cancel
	s.c = nil
	s.entryID = 0
	s.mu.Unlock()

	if c == nil {
		return
	}
	cancel()

	done := make(chan struct{})
	go func() {
		<-c.Stop().Done()
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.log.Warn("stop timed out; run still in flight")
	}
	s.log.Info("service stopped", logx.Duration("took", time.Since(start)))
}

func (s *Service) runOnce() {
	s.mu.Lock()
	job := s.job
	name := s.name
	timeout := s.cfg.Timeout
	ctx := s.runCtx
	s.mu.Unlock()

	if job == nil || ctx == nil || ctx.Err() != nil {
		return
	}

	// One run at a time, across immediate runs, triggers and reschedules.
	s.smu.Lock()
	if s.running {
		s.smu.Unlock()
		s.log.Debug("previous run still in flight, skipping", logx.String("name", name))
		return
	}
	s.running = true
	s.smu.Unlock()

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	defer func() {
		// Also reached when the job panics.
		s.smu.Lock()
		s.running = false
		s.smu.Unlock()
	}()

	err := job(ctx)
	info := RunInfo{Started: start, Took: time.Since(start)}
	if err != nil {
		info.Err = err.Error()
	}

	s.smu.Lock()
	s.runs++
	if err != nil {
		s.failures++
	}
	s.last = info
	s.smu.Unlock()

	if err != nil {
		s.log.Warn("run failed", logx.String("name", name), logx.Duration("took", info.Took), logx.Err(err))
		return
	}
	s.log.Debug("run finished", logx.String("name", name), logx.Duration("took", info.Took))
}

func (s *Service) Snapshot() Snapshot {
	s.mu.Lock()
	snap := Snapshot{Name: s.name, Spec: s.spec}
	if s.c != nil && s.entryID != 0 {
		e := s.c.Entry(s.entryID)
		snap.Next = e.Next
		snap.Prev = e.Prev
	}
	s.mu.Unlock()

	s.smu.Lock()
	snap.Running = s.running
	snap.Runs = s.runs
	snap.Failures = s.failures
	snap.Last = s.last
	s.smu.Unlock()
	return snap
}

// cronLogger routes robfig/cron's internal logging into logx.
type cronLogger struct {
	log logx.Logger
}

func (l cronLogger) Info(msg string, kv ...interface{}) {
	l.log.Trace("cron: "+msg, kvFields(kv)...)
}

func (l cronLogger) Error(err error, msg string, kv ...interface{}) {
	l.log.Error("cron: "+msg, append(kvFields(kv), logx.Err(err))...)
}

func kvFields(kv []interface{}) []logx.Field {
	out := make([]logx.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		k, ok := kv[i].(string)
		if !ok {
			k = fmt.Sprint(kv[i])
		}
		out = append(out, logx.Any(k, kv[i+1]))
	}
	return out
}
