package nats

import (
	"context"

	"github.com/dreschagin/analytics-validator/internal/application/port"
	"github.com/dreschagin/analytics-validator/internal/validation"
	"github.com/dreschagin/analytics-validator/pkg/logger"
)

// ResultPublisher streams completed validation cycles to a NATS subject so
// downstream consumers (alerting, BI pipelines) can react to score changes.
// Implements validation.CycleListener.
type ResultPublisher struct {
	publisher port.EventPublisher
	subject   string
	logger    *logger.Logger
}

func NewResultPublisher(publisher port.EventPublisher, subject string, log *logger.Logger) *ResultPublisher {
	return &ResultPublisher{
		publisher: publisher,
		subject:   subject,
		logger:    log,
	}
}

// OnCycleResult publishes the result. Publish failures are logged, not
// propagated, so a broker outage never blocks the validation loop.
func (p *ResultPublisher) OnCycleResult(ctx context.Context, result validation.CycleResult) {
	if err := p.publisher.PublishEvent(ctx, p.subject, result); err != nil {
		p.logger.Warn("Failed to publish validation result",
			"cycle_id", result.ID,
			"subject", p.subject,
			"error", err.Error(),
		)
	}
}
