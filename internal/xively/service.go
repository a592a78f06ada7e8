package xively

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/i474232898/weather-publisher/internal/config"
	"github.com/i474232898/weather-publisher/internal/logging"
	"github.com/i474232898/weather-publisher/internal/uploader"
	"github.com/i474232898/weather-publisher/internal/weather"
)

// Protocol names this uploader in logs and metrics.
const Protocol = "Xively"

// Service is a running Xively uploader: a queue-draining worker whose
// records are posted by a Publisher.
type Service struct {
	*uploader.Worker
	Publisher *Publisher
}

// New validates cfg and builds the uploader. A missing feed or token is
// fatal: no queue or worker is created. reg may be nil to disable metrics.
func New(cfg config.XivelyConfig, logger logging.Logger, reg prometheus.Registerer, augmenters ...weather.Augmenter) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("data will not be posted: %w", err)
	}

	metrics := uploader.NewMetricsProvider(reg, Protocol)

	transport, err := uploader.NewTransport(uploader.TransportConfig{
		Client: &http.Client{},
		Backoff: uploader.BackoffConfig{
			MaxTries:        cfg.MaxTries,
			InitialInterval: cfg.RetryWait,
			MaxInterval:     cfg.MaxRetryWait,
		},
		Timeout:         cfg.Timeout,
		BreakerName:     Protocol,
		BreakerFailures: cfg.BreakerFailures,
		BreakerCooldown: cfg.BreakerCooldown,
	}, logger, metrics)
	if err != nil {
		return nil, err
	}

	publisher := NewPublisher(cfg, transport, logger, augmenters...)

	worker := uploader.NewWorker(uploader.WorkerConfig{
		Protocol:     Protocol,
		MaxBacklog:   cfg.MaxBacklog,
		Stale:        cfg.Stale,
		PostInterval: cfg.PostInterval,
		LogSuccess:   cfg.LogSuccess,
		LogFailure:   cfg.LogFailure,
		DrainOnStop:  cfg.DrainOnStop,
	}, publisher, logger, metrics)

	logger.Infof("Data will be uploaded to %s feed %s", Protocol, cfg.Feed)
	return &Service{Worker: worker, Publisher: publisher}, nil
}
