package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	logx "hwbot/pkg/logx"
)

// Config controls the scheduler.
type Config struct {
	// Timeout bounds one run; 0 leaves it to the job.
	Timeout time.Duration
}

// Job is one unit of scheduled work. A returned error is logged, not retried.
type Job func(ctx context.Context) error

// RunInfo describes a finished run.
type RunInfo struct {
	Started time.Time
	Took    time.Duration
	Err     string
}

type Snapshot struct {
	Name     string
	Spec     string
	Running  bool
	Next     time.Time
	Prev     time.Time
	Runs     uint64
	Failures uint64
	Last     RunInfo
}

type Service struct {
	mu sync.Mutex

	log    logx.Logger
	cfg    Config
	parser cron.Parser
	c      *cron.Cron

	name    string
	spec    string
	job     Job
	entryID cron.EntryID

	runCtx context.Context
	cancel context.CancelFunc
	// wg tracks runs started outside cron (the initial run).
	wg sync.WaitGroup

	smu      sync.Mutex
	running  bool
	runs     uint64
	failures uint64
	last     RunInfo
}
