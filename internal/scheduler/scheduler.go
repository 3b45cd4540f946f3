package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"summarybot/internal/metrics"
)

const (
	DefaultJanitorSpec    = "*/15 * * * *"
	Timezone              = "UTC"
	TimezoneOffsetSeconds = 0
)

// Sweeper removes staged files older than maxAge.
type Sweeper interface {
	Sweep(now time.Time, maxAge time.Duration) (int, error)
}

// Scheduler runs the staging janitor. Files are normally removed by the
// request that staged them; the janitor catches what a crash left behind.
type Scheduler struct {
	ctx     context.Context
	cron    *cron.Cron
	spec    string
	sweeper Sweeper
	maxAge  time.Duration
	now     func() time.Time
	log     *slog.Logger
}

func New(
	ctx context.Context,
	spec string,
	sweeper Sweeper,
	maxAge time.Duration,
	log *slog.Logger,
) *Scheduler {
	if spec == "" {
		spec = DefaultJanitorSpec
	}

	c := cron.New(cron.WithLocation(time.FixedZone(Timezone, TimezoneOffsetSeconds)))

	return &Scheduler{
		ctx:     ctx,
		cron:    c,
		spec:    spec,
		sweeper: sweeper,
		maxAge:  maxAge,
		now:     time.Now,
		log:     log,
	}
}

func (s *Scheduler) Spec() string {
	return s.spec
}

// Start sweeps once right away and then on every tick of the spec.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.spec, s.sweepStaging); err != nil {
		return err
	}

	s.sweepStaging()
	s.cron.Start()

	return nil
}

// Stop stops the cron and waits for a running sweep to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) sweepStaging() {
	select {
	case <-s.ctx.Done():
		s.log.InfoContext(s.ctx, "Scheduler context is done",
			"error", s.ctx.Err())
		return
	default:
	}

	removed, err := s.sweeper.Sweep(s.now(), s.maxAge)
	metrics.ObserveSwept(removed)

	if err != nil {
		s.log.ErrorContext(s.ctx, "Failed to sweep staging area",
			"error", err,
			"removed", removed,
			"maxAge", s.maxAge)
		return
	}

	if removed > 0 {
		s.log.InfoContext(s.ctx, "Stale staged files are removed",
			"removed", removed,
			"maxAge", s.maxAge)
	}
}
