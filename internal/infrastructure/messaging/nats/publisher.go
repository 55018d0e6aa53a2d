package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/dreschagin/analytics-validator/pkg/logger"
)

const (
	// Upper bound on in-flight async publishes before PublishEvent blocks.
	maxPendingAsync = 256

	// How long Close waits for outstanding JetStream acks.
	asyncCompleteTimeout = 5 * time.Second

	// Retention for the validation results stream when this process creates it.
	resultsMaxAge = 7 * 24 * time.Hour
)

// Config describes the connection and the JetStream topology for validation
// results. The stream is created on startup if it does not exist yet, so
// consumers can attach before the first cycle completes.
type Config struct {
	URL     string
	Stream  string
	Subject string
}

func (c Config) Validate() error {
	if c.URL == "" {
		return errors.New("nats url is required")
	}
	if c.Stream == "" {
		return errors.New("stream name is required")
	}
	if c.Subject == "" {
		return errors.New("subject is required")
	}
	return nil
}

// NATSPublisher publishes validation cycle results to JetStream.
// Implements port.EventPublisher.
type NATSPublisher struct {
	nc     *nats.Conn
	js     nats.JetStreamContext
	stream string
	logger *logger.Logger
}

// NewNATSPublisher connects to NATS and ensures the validation results stream
// exists. Publish acks are tracked asynchronously; rejected publishes surface
// through the error handler, not through PublishEvent.
func NewNATSPublisher(cfg Config, log *logger.Logger) (*NATSPublisher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid nats config: %w", err)
	}

	nc, err := nats.Connect(cfg.URL,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(10),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("NATS disconnected", "error", err.Error())
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("NATS reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := nc.JetStream(
		nats.PublishAsyncMaxPending(maxPendingAsync),
		nats.PublishAsyncErrHandler(func(_ nats.JetStream, msg *nats.Msg, err error) {
			log.Warn("JetStream rejected validation result",
				"subject", msg.Subject,
				"error", err.Error(),
			)
		}),
	)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to get JetStream context: %w", err)
	}

	if err := ensureResultsStream(js, cfg); err != nil {
		nc.Close()
		return nil, err
	}

	log.Info("Connected to NATS",
		"url", cfg.URL,
		"stream", cfg.Stream,
		"subject", cfg.Subject,
	)

	return &NATSPublisher{
		nc:     nc,
		js:     js,
		stream: cfg.Stream,
		logger: log,
	}, nil
}

// ensureResultsStream creates the results stream unless one already exists.
// An existing stream is left untouched: its retention settings belong to the
// operator, not to this process.
func ensureResultsStream(js nats.JetStreamContext, cfg Config) error {
	_, err := js.StreamInfo(cfg.Stream)
	if err == nil {
		return nil
	}
	if !errors.Is(err, nats.ErrStreamNotFound) {
		return fmt.Errorf("failed to look up stream %s: %w", cfg.Stream, err)
	}

	_, err = js.AddStream(&nats.StreamConfig{
		Name:        cfg.Stream,
		Description: "validation cycle results",
		Subjects:    []string{cfg.Subject},
		MaxAge:      resultsMaxAge,
		Storage:     nats.FileStorage,
	})
	if err != nil {
		return fmt.Errorf("failed to create stream %s: %w", cfg.Stream, err)
	}
	return nil
}

// PublishEvent publishes an event to the given subject. Async: the ack is not
// awaited here, so a slow broker never stalls the validation loop.
func (p *NATSPublisher) PublishEvent(_ context.Context, subject string, event interface{}) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if _, err := p.js.PublishAsync(subject, data); err != nil {
		p.logger.Error("Failed to publish validation result", err,
			"subject", subject,
		)
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.Debug("Validation result published",
		"subject", subject,
		"size", len(data),
	)

	return nil
}

// Close waits for outstanding publish acks, then closes the connection.
func (p *NATSPublisher) Close() error {
	if p.nc == nil {
		return nil
	}

	select {
	case <-p.js.PublishAsyncComplete():
	case <-time.After(asyncCompleteTimeout):
		p.logger.Warn("Timed out waiting for JetStream acks", "stream", p.stream)
	}

	p.logger.Info("Closing NATS connection")
	p.nc.Close()
	return nil
}
