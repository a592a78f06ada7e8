package xively

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/goccy/go-json"

	"github.com/i474232898/weather-publisher/internal/config"
	"github.com/i474232898/weather-publisher/internal/logging"
	"github.com/i474232898/weather-publisher/internal/uploader"
	"github.com/i474232898/weather-publisher/internal/weather"
)

// Version is reported in the User-Agent header.
const Version = "1.0.0"

// APIKeyHeader carries the feed token.
const APIKeyHeader = "X-PachubeApiKey"

// Poster sends a prepared request, retrying as it sees fit.
type Poster interface {
	Post(ctx context.Context, req uploader.Request) error
}

// Publisher turns archive records into Xively feed updates.
type Publisher struct {
	url        string
	token      string
	station    string
	skipUpload bool

	poster     Poster
	augmenters []weather.Augmenter
	logger     logging.Logger
}

func NewPublisher(cfg config.XivelyConfig, poster Poster, logger logging.Logger, augmenters ...weather.Augmenter) *Publisher {
	station := ""
	if cfg.Station != "" {
		station = url.QueryEscape(cfg.Station)
	}
	return &Publisher{
		url:        strings.TrimRight(cfg.ServerURL, "/") + "/" + url.PathEscape(cfg.Feed),
		token:      cfg.Token,
		station:    station,
		skipUpload: cfg.SkipUpload,
		poster:     poster,
		augmenters: augmenters,
		logger:     logger,
	}
}

// URL returns the feed endpoint.
func (p *Publisher) URL() string {
	return p.url
}

// ProcessRecord augments, formats and uploads one record.
func (p *Publisher) ProcessRecord(ctx context.Context, rec weather.Record) error {
	r := rec
	for _, a := range p.augmenters {
		augmented, err := a.Augment(ctx, r)
		if err != nil {
			p.logger.Warnf("augment record: %v", err)
			continue
		}
		r = augmented
	}

	payload, err := Format(r, p.station)
	if err != nil {
		return err
	}
	if payload == nil {
		return fmt.Errorf("no uploadable fields: %w", uploader.ErrSkipped)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	p.logger.Debugf("url: %s", p.url)
	p.logger.Debugf("data: %s", body)

	if p.skipUpload {
		p.logger.Debugf("skipping upload")
		return fmt.Errorf("skip_upload is set: %w", uploader.ErrSkipped)
	}

	headers := http.Header{}
	headers.Set("User-Agent", "weather-publisher/"+Version)
	headers.Set("Content-Type", "application/json")
	headers.Set(APIKeyHeader, p.token)

	return p.poster.Post(ctx, uploader.Request{
		Method:  http.MethodPut,
		URL:     p.url,
		Body:    body,
		Headers: headers,
	})
}
