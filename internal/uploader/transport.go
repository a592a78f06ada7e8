package uploader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-publisher/internal/logging"
)

// maxResponseBody caps how much of an error response is kept.
const maxResponseBody = 64 << 10

// Request is one upload, replayed verbatim on every try.
type Request struct {
	Method  string
	URL     string
	Body    []byte
	Headers http.Header
}

// BackoffConfig controls the wait between tries: InitialInterval doubled on
// every retry and capped at MaxInterval.
type BackoffConfig struct {
	MaxTries        int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// TransportConfig bundles HTTP client and resilience settings.
type TransportConfig struct {
	Client  *http.Client
	Backoff BackoffConfig
	// Timeout bounds every single try.
	Timeout time.Duration

	BreakerName string
	// BreakerFailures consecutive failed tries open the circuit; 0 disables it.
	BreakerFailures int
	BreakerCooldown time.Duration
}

// Transport posts requests with bounded retries, exponential backoff and
// a circuit breaker.
type Transport struct {
	client  *http.Client
	backoff BackoffConfig
	timeout time.Duration
	circuit *gobreaker.CircuitBreaker
	logger  logging.Logger
	metrics MetricsProviderInterface
}

func NewTransport(cfg TransportConfig, logger logging.Logger, metrics MetricsProviderInterface) (*Transport, error) {
	if cfg.Client == nil {
		return nil, errNoHTTPClient
	}
	if cfg.Backoff.MaxTries < 1 || cfg.Backoff.InitialInterval < 0 || cfg.Timeout <= 0 {
		return nil, errInvalidConfig
	}
	if metrics == nil {
		metrics = &noopMetrics{}
	}

	t := &Transport{
		client:  cfg.Client,
		backoff: cfg.Backoff,
		timeout: cfg.Timeout,
		logger:  logger,
		metrics: metrics,
	}

	if cfg.BreakerFailures > 0 {
		threshold := uint32(cfg.BreakerFailures)
		t.circuit = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        cfg.BreakerName,
			MaxRequests: 1,
			Timeout:     cfg.BreakerCooldown,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= threshold
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warnf("circuit breaker %s: %s -> %s", name, from, to)
			},
		})
	}
	return t, nil
}

// Post sends req up to MaxTries times. A try fails on network errors, timeouts,
// non-2xx statuses and non-empty response bodies. When the circuit is open the
// request fails at once without using up tries.
func (t *Transport) Post(ctx context.Context, req Request) error {
	var lastErr error

	for attempt := 1; ; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		err := t.try(ctx, req)
		if err == nil {
			return nil
		}

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			t.metrics.IncAttempts("circuit_open")
			return fmt.Errorf("%w: %v", ErrCircuitOpen, err)
		}

		lastErr = err
		t.logger.Debugf("try %d of %d to %s failed: %v", attempt, t.backoff.MaxTries, req.URL, err)
		if attempt >= t.backoff.MaxTries {
			return fmt.Errorf("%w after %d tries: %w", ErrRetriesExhausted, attempt, lastErr)
		}

		delay := t.delay(attempt)
		if delay <= 0 {
			continue
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
			// continue to next attempt
		}
	}
}

// delay returns the wait after the given (1-based) failed try.
func (t *Transport) delay(attempt int) time.Duration {
	d := t.backoff.InitialInterval
	for i := 1; i < attempt; i++ {
		d *= 2
		if t.backoff.MaxInterval > 0 && d >= t.backoff.MaxInterval {
			return t.backoff.MaxInterval
		}
	}
	if t.backoff.MaxInterval > 0 && d > t.backoff.MaxInterval {
		d = t.backoff.MaxInterval
	}
	return d
}

func (t *Transport) try(ctx context.Context, req Request) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	exec := func() (interface{}, error) {
		httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, bytes.NewReader(req.Body))
		if err != nil {
			return nil, err
		}
		for k, vs := range req.Headers {
			for _, v := range vs {
				httpReq.Header.Add(k, v)
			}
		}

		start := time.Now()
		resp, err := t.client.Do(httpReq)
		if err != nil {
			t.metrics.IncAttempts("error")
			return nil, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
		t.metrics.ObservePostDuration(time.Since(start))
		if err != nil {
			t.metrics.IncAttempts("error")
			return nil, fmt.Errorf("read response: %w", err)
		}

		if err := checkResponse(resp.StatusCode, body); err != nil {
			t.metrics.IncAttempts("failed_post")
			return nil, err
		}
		t.metrics.IncAttempts("ok")
		return nil, nil
	}

	if t.circuit == nil {
		_, err := exec()
		return err
	}
	_, err := t.circuit.Execute(exec)
	return err
}

// checkResponse treats any response body as an error message from the server,
// whatever the status code.
func checkResponse(status int, body []byte) error {
	if len(body) > 0 {
		return &FailedPostError{StatusCode: status, Body: string(body)}
	}
	if status < 200 || status >= 300 {
		return &StatusError{StatusCode: status}
	}
	return nil
}
