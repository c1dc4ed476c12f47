package outbox

import (
	"context"
	"time"

	"go.uber.org/multierr"

	"github.com/pharmadesk/pharmadesk-backend/pkg/db/models"
	"github.com/pharmadesk/pharmadesk-backend/pkg/logger"
)

const (
	defaultBatchSize    = 50
	defaultPollInterval = 2 * time.Second
	maxPublishAttempts  = 10
)

// EventSink delivers captured events to subscribers.
type EventSink interface {
	Publish(ctx context.Context, channel string, payload any) error
}

// Publisher drains unpublished outbox rows and relays them to the sink.
// Delivery is at-least-once; consumers dedupe on the envelope event id.
type Publisher struct {
	repo      *Repository
	sink      EventSink
	logg      *logger.Logger
	batchSize int
	interval  time.Duration
}

func NewPublisher(repo *Repository, sink EventSink, logg *logger.Logger) *Publisher {
	return &Publisher{
		repo:      repo,
		sink:      sink,
		logg:      logg,
		batchSize: defaultBatchSize,
		interval:  defaultPollInterval,
	}
}

// Run polls until the context is cancelled.
func (p *Publisher) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := p.Drain(ctx); err != nil && p.logg != nil {
				p.logg.Error(ctx, "draining outbox", err)
			}
		}
	}
}

// Drain publishes one batch and returns how many rows were delivered.
func (p *Publisher) Drain(ctx context.Context) (int, error) {
	rows, err := p.repo.FetchUnpublished(p.batchSize, maxPublishAttempts)
	if err != nil {
		return 0, err
	}

	published := 0
	var errs []error
	for i := range rows {
		row := &rows[i]
		if err := p.publishOne(ctx, row); err != nil {
			if markErr := p.repo.MarkFailed(row.ID, err); markErr != nil {
				errs = append(errs, markErr)
			}
			if row.AttemptCount+1 >= maxPublishAttempts && p.logg != nil {
				logCtx := p.logg.WithFields(ctx, map[string]any{
					"event_id":   row.ID.String(),
					"event_type": row.EventType,
					"attempts":   row.AttemptCount + 1,
				})
				p.logg.Warn(logCtx, "outbox event exhausted publish attempts, giving up")
			}
			continue
		}

		if err := p.repo.MarkPublished(row.ID); err != nil {
			errs = append(errs, err)
			continue
		}
		published++
	}
	return published, multierr.Combine(errs...)
}

func (p *Publisher) publishOne(ctx context.Context, row *models.OutboxEvent) error {
	channel := "pd:events:" + string(row.EventType)
	if err := p.sink.Publish(ctx, channel, []byte(row.Payload)); err != nil {
		if p.logg != nil {
			logCtx := p.logg.WithFields(ctx, map[string]any{
				"event_id":   row.ID.String(),
				"event_type": row.EventType,
				"channel":    channel,
			})
			p.logg.Error(logCtx, "publishing outbox event", err)
		}
		return err
	}
	return nil
}
