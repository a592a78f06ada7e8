package uploader

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/i474232898/weather-publisher/internal/logging"
	"github.com/i474232898/weather-publisher/internal/weather"
)

// Processor uploads a single record. Returning an error wrapping ErrSkipped
// marks the record as handled without a post.
type Processor interface {
	ProcessRecord(ctx context.Context, rec weather.Record) error
}

// ProcessorFunc adapts a plain function to Processor.
type ProcessorFunc func(ctx context.Context, rec weather.Record) error

func (f ProcessorFunc) ProcessRecord(ctx context.Context, rec weather.Record) error {
	return f(ctx, rec)
}

type WorkerConfig struct {
	Protocol string

	// MaxBacklog bounds the queue; 0 means unbounded.
	MaxBacklog int
	// Stale is the maximum record age; 0 means records never go stale.
	Stale time.Duration
	// PostInterval is the minimum spacing between successful posts; 0 disables it.
	PostInterval time.Duration

	LogSuccess bool
	LogFailure bool

	// DrainOnStop processes the remaining queue on shutdown instead of abandoning it.
	DrainOnStop bool
}

// Stats is a snapshot of the worker counters.
type Stats struct {
	Protocol  string    `json:"protocol"`
	Queued    int       `json:"queued"`
	Posted    uint64    `json:"posted"`
	Failed    uint64    `json:"failed"`
	Skipped   uint64    `json:"skipped"`
	Stale     uint64    `json:"stale"`
	Throttled uint64    `json:"throttled"`
	Dropped   uint64    `json:"dropped"`
	Abandoned uint64    `json:"abandoned"`
	LastPost  time.Time `json:"lastPost,omitempty"`
}

// Worker drains a Queue and hands records to a Processor one at a time, so
// uploads to one destination are strictly serialized in FIFO order.
type Worker struct {
	cfg       WorkerConfig
	queue     *Queue
	processor Processor
	logger    logging.Logger
	metrics   MetricsProviderInterface
	now       func() time.Time

	posted, failed, skipped   atomic.Uint64
	stale, throttled, dropped atomic.Uint64
	abandoned                 atomic.Uint64
	lastPost                  atomic.Int64 // unix nanoseconds, 0 = never

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewWorker(cfg WorkerConfig, processor Processor, logger logging.Logger, metrics MetricsProviderInterface) *Worker {
	if metrics == nil {
		metrics = &noopMetrics{}
	}
	return &Worker{
		cfg:       cfg,
		queue:     NewQueue(cfg.MaxBacklog),
		processor: processor,
		logger:    logger,
		metrics:   metrics,
		now:       time.Now,
	}
}

// NewArchiveRecord makes the worker a weather.RecordListener.
func (w *Worker) NewArchiveRecord(rec weather.Record) {
	w.Enqueue(rec)
}

// Enqueue adds a record for upload. It never blocks on the network.
func (w *Worker) Enqueue(rec weather.Record) {
	e, dropped := w.queue.Put(rec)
	w.metrics.SetQueueLength(w.queue.Len())
	w.logger.Debugf("%s: queued record %s", w.cfg.Protocol, e.ID)

	if n := len(dropped); n > 0 {
		w.dropped.Add(uint64(n))
		w.metrics.IncRecords(OutcomeDropped, n)
		w.logger.Warnf("%s: backlog of %d exceeded, dropped %d oldest record(s)", w.cfg.Protocol, w.cfg.MaxBacklog, n)
	}
}

// Start runs the worker loop in its own goroutine until Stop is called or ctx is done.
func (w *Worker) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})

	go func() {
		defer close(w.done)
		w.Run(ctx)
	}()
}

// Stop signals the loop and waits for it to finish. The record in flight is
// completed; the rest of the queue is abandoned unless DrainOnStop is set.
func (w *Worker) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cancel == nil {
		return
	}
	w.cancel()
	<-w.done
	w.cancel, w.done = nil, nil
}

// Run processes records until ctx is done, then applies the shutdown policy.
func (w *Worker) Run(ctx context.Context) {
	w.logger.Infof("%s: upload worker started", w.cfg.Protocol)
	for {
		e, err := w.queue.Get(ctx)
		if err != nil {
			w.shutdown()
			return
		}
		w.metrics.SetQueueLength(w.queue.Len())

		// A stop request must not abort the record in flight; tries stay
		// bounded by the transport timeout.
		w.handle(context.WithoutCancel(ctx), e)
	}
}

func (w *Worker) shutdown() {
	if w.cfg.DrainOnStop {
		n := 0
		for {
			e, ok := w.queue.TryGet()
			if !ok {
				break
			}
			w.handle(context.Background(), e)
			n++
		}
		w.logger.Infof("%s: upload worker stopped after draining %d record(s)", w.cfg.Protocol, n)
	} else {
		left := w.queue.Drain()
		if n := len(left); n > 0 {
			w.abandoned.Add(uint64(n))
			w.logger.Warnf("%s: upload worker stopped, abandoned %d queued record(s)", w.cfg.Protocol, n)
		} else {
			w.logger.Infof("%s: upload worker stopped", w.cfg.Protocol)
		}
	}
	w.metrics.SetQueueLength(w.queue.Len())
}

// handle takes one record through the staleness, interval and upload steps
// and returns the outcome.
func (w *Worker) handle(ctx context.Context, e Entry) string {
	outcome := w.process(ctx, e)
	w.metrics.IncRecords(outcome, 1)
	return outcome
}

func (w *Worker) process(ctx context.Context, e Entry) string {
	ts, ok := e.Record.Time()
	if !ok {
		w.failed.Add(1)
		if w.cfg.LogFailure {
			w.logger.Errorf("%s: record %s: %v", w.cfg.Protocol, e.ID, weather.ErrNoTimestamp)
		}
		return OutcomeFailed
	}
	stamp := ts.Format(time.RFC3339)
	now := w.now()

	if w.cfg.Stale > 0 {
		if age := now.Sub(ts); age > w.cfg.Stale {
			w.stale.Add(1)
			if w.cfg.LogFailure {
				w.logger.Infof("%s: record %s is stale (%s old), skipping", w.cfg.Protocol, stamp, age.Truncate(time.Second))
			}
			return OutcomeStale
		}
	}

	if w.cfg.PostInterval > 0 {
		if last := w.lastPost.Load(); last != 0 {
			if since := now.Sub(time.Unix(0, last)); since < w.cfg.PostInterval {
				w.throttled.Add(1)
				w.logger.Debugf("%s: wait interval (%s) has not passed for record %s", w.cfg.Protocol, w.cfg.PostInterval, stamp)
				return OutcomeThrottled
			}
		}
	}

	err := w.processor.ProcessRecord(ctx, e.Record)
	switch {
	case err == nil:
		w.posted.Add(1)
		w.lastPost.Store(w.now().UnixNano())
		if w.cfg.LogSuccess {
			w.logger.Infof("%s: published record %s", w.cfg.Protocol, stamp)
		}
		return OutcomePosted

	case errors.Is(err, ErrSkipped):
		w.skipped.Add(1)
		w.logger.Debugf("%s: record %s not uploaded: %v", w.cfg.Protocol, stamp, err)
		return OutcomeSkipped

	default:
		w.failed.Add(1)
		if w.cfg.LogFailure {
			w.logger.Errorf("%s: failed to publish record %s: %v", w.cfg.Protocol, stamp, err)
		}
		return OutcomeFailed
	}
}

// Stats returns a snapshot of the worker counters.
func (w *Worker) Stats() Stats {
	s := Stats{
		Protocol:  w.cfg.Protocol,
		Queued:    w.queue.Len(),
		Posted:    w.posted.Load(),
		Failed:    w.failed.Load(),
		Skipped:   w.skipped.Load(),
		Stale:     w.stale.Load(),
		Throttled: w.throttled.Load(),
		Dropped:   w.dropped.Load(),
		Abandoned: w.abandoned.Load(),
	}
	if last := w.lastPost.Load(); last != 0 {
		s.LastPost = time.Unix(0, last).UTC()
	}
	return s
}

// QueueLen returns the number of records waiting.
func (w *Worker) QueueLen() int {
	return w.queue.Len()
}
