package schedule

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

type Job interface {
	Name() string
	Run(ctx context.Context) error
}

type Scheduler interface {
	AddJob(job Job, spec string) error
	Start(ctx context.Context)
	Stop()
}

type Option func(*CronScheduler)

// WithRunTimeout bounds a single job run. Zero leaves runs unbounded.
func WithRunTimeout(d time.Duration) Option {
	return func(c *CronScheduler) {
		c.runTimeout = d
	}
}

// CronScheduler runs jobs on standard five-field cron specs. A job whose
// previous run is still in progress is skipped, not queued.
type CronScheduler struct {
	cron       *cron.Cron
	entries    map[string]cron.EntryID
	runTimeout time.Duration
	ctx        context.Context
}

var _ Scheduler = (*CronScheduler)(nil)

func NewCronScheduler(opts ...Option) *CronScheduler {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	c := &CronScheduler{
		cron:    cron.New(cron.WithParser(parser)),
		entries: make(map[string]cron.EntryID),
		ctx:     context.Background(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *CronScheduler) AddJob(job Job, spec string) error {
	name := job.Name()
	if _, ok := c.entries[name]; ok {
		return fmt.Errorf("job %s already scheduled", name)
	}
	id, err := c.cron.AddFunc(spec, c.wrap(job, spec))
	if err != nil {
		return fmt.Errorf("schedule job %s: %w", name, err)
	}
	c.entries[name] = id
	logutil.GetLogger(c.ctx).Info("job scheduled", zap.String("job", name), zap.String("spec", spec))
	return nil
}

// RunNow executes a scheduled job once, outside its cron cadence.
func (c *CronScheduler) RunNow(name string) bool {
	id, ok := c.entries[name]
	if !ok {
		return false
	}
	c.cron.Entry(id).WrappedJob.Run()
	return true
}

func (c *CronScheduler) Start(ctx context.Context) {
	if ctx != nil {
		c.ctx = ctx
	}
	c.cron.Start()
}

func (c *CronScheduler) Stop() {
	<-c.cron.Stop().Done()
}

func (c *CronScheduler) wrap(job Job, spec string) func() {
	var running atomic.Bool
	return func() {
		logger := logutil.GetLogger(c.ctx).With(zap.String("job", job.Name()), zap.String("spec", spec))
		if !running.CompareAndSwap(false, true) {
			logger.Info("job skipped, previous run still active")
			return
		}
		defer running.Store(false)

		ctx := c.ctx
		if c.runTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, c.runTimeout)
			defer cancel()
		}
		start := time.Now()
		if err := job.Run(ctx); err != nil {
			logger.Error("job failed", zap.Error(err), zap.Duration("duration", time.Since(start)))
			return
		}
		logger.Info("job done", zap.Duration("duration", time.Since(start)))
	}
}
