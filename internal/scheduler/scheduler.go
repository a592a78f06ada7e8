package scheduler

import (
	"time"

	"github.com/go-co-op/gocron"

	"github.com/i474232898/weather-publisher/internal/logging"
	"github.com/i474232898/weather-publisher/internal/uploader"
)

// Pruner drops archived records that fell out of retention.
type Pruner interface {
	Prune() int
}

// StatsSource reports upload worker counters.
type StatsSource interface {
	Stats() uploader.Stats
}

// Scheduler runs periodic housekeeping: archive pruning and a worker status line.
type Scheduler struct {
	scheduler *gocron.Scheduler
	store     Pruner
	workers   []StatsSource
	interval  time.Duration
	logger    logging.Logger
}

// New creates a new Scheduler.
func New(interval time.Duration, store Pruner, logger logging.Logger, workers ...StatsSource) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	return &Scheduler{
		scheduler: s,
		store:     store,
		workers:   workers,
		interval:  interval,
		logger:    logger,
	}
}

// Start schedules the periodic job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	interval := s.interval
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	_, err := s.scheduler.Every(interval).WaitForSchedule().Do(s.RunOnce)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// RunOnce performs a single housekeeping pass.
func (s *Scheduler) RunOnce() {
	if s.store != nil {
		if n := s.store.Prune(); n > 0 {
			s.logger.Debugf("pruned %d archived record(s)", n)
		}
	}

	for _, w := range s.workers {
		st := w.Stats()
		last := "never"
		if !st.LastPost.IsZero() {
			last = st.LastPost.Format(time.RFC3339)
		}
		s.logger.Infof("%s: queued=%d posted=%d failed=%d skipped=%d stale=%d throttled=%d dropped=%d last_post=%s",
			st.Protocol, st.Queued, st.Posted, st.Failed, st.Skipped, st.Stale, st.Throttled, st.Dropped, last)
	}
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
