package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"gorm.io/gorm"

	"github.com/LLTIGER/pulse-architects-sub001/pkg/db/models"
	"github.com/LLTIGER/pulse-architects-sub001/pkg/outbox/registry"
)

// disposition is what happened to one outbox row in a batch.
type disposition string

const (
	dispositionPublished disposition = "published"
	dispositionRetry     disposition = "retry"
	dispositionParked    disposition = "parked"
)

// delivery tracks one row from dispatch to its final disposition.
type delivery struct {
	event   models.OutboxEvent
	pub     publisher
	result  publishResult
	sentAt  time.Time
	outcome disposition
	cause   error
}

func (d *delivery) settle(outcome disposition, cause error) {
	d.outcome, d.cause = outcome, cause
	d.result = nil
}

// dispatch resolves and hands every row to its publisher without waiting, so
// pubsub can batch the whole set. Rows that cannot be sent settle as parked.
func (s *Service) dispatch(ctx context.Context, events []models.OutboxEvent) []*delivery {
	out := make([]*delivery, 0, len(events))
	for _, event := range events {
		d := &delivery{event: event}
		out = append(out, d)

		resolved, err := s.registry.Resolve(event)
		if err != nil {
			d.settle(dispositionParked, err)
			continue
		}
		topic := resolved.Descriptor.Topic
		if d.pub = s.publisherFactory(topic); d.pub == nil {
			d.settle(dispositionParked, fmt.Errorf("publisher not configured for topic %s", topic))
			continue
		}
		d.sentAt = s.now()
		if d.result = d.pub.Publish(ctx, message(event, resolved)); d.result == nil {
			d.settle(dispositionParked, fmt.Errorf("publisher returned nil for topic %s", topic))
		}
	}
	return out
}

// await collects publish results. A failed key is resumed only after every
// result is in, since later messages on the same key fail with it.
func (s *Service) await(ctx context.Context, deliveries []*delivery) {
	type pausedKey struct {
		pub publisher
		key string
	}
	var paused []pausedKey
	seen := map[pausedKey]bool{}

	for _, d := range deliveries {
		if d.result == nil {
			continue
		}
		_, err := d.result.Get(ctx)
		s.metrics.ObservePublish(s.now().Sub(d.sentAt))
		if err == nil {
			s.metrics.ObserveLag(s.now().Sub(d.event.CreatedAt))
			d.settle(dispositionPublished, nil)
			continue
		}
		d.settle(s.classify(d.event, err))
		if pk := (pausedKey{d.pub, orderingKey(d.event)}); !seen[pk] {
			seen[pk] = true
			paused = append(paused, pk)
		}
	}
	for _, pk := range paused {
		pk.pub.ResumePublish(pk.key)
	}
}

func (s *Service) classify(event models.OutboxEvent, err error) (disposition, error) {
	var nonRetryable registry.NonRetryableError
	switch {
	case errors.As(err, &nonRetryable):
		return dispositionParked, err
	case event.AttemptCount+1 >= s.maxAttempts:
		return dispositionParked, fmt.Errorf("max publish attempts reached: %w", err)
	default:
		return dispositionRetry, err
	}
}

func (s *Service) record(ctx context.Context, tx *gorm.DB, d *delivery) error {
	event := d.event
	s.metrics.Disposition(string(event.EventType), string(d.outcome))
	logCtx := s.logg.WithFields(ctx, eventFields(event))

	switch d.outcome {
	case dispositionPublished:
		if err := s.repo.MarkPublishedTx(tx, event.ID); err != nil {
			return fmt.Errorf("mark published %s: %w", event.ID, err)
		}
		s.logg.Debug(logCtx, "outbox event published")
	case dispositionRetry:
		logCtx = s.logg.WithFields(logCtx, map[string]any{"attempt_count": event.AttemptCount + 1, "error": d.cause.Error()})
		s.logg.Warn(logCtx, "outbox publish failed; will retry")
		if err := s.repo.MarkFailedTx(tx, event.ID, d.cause); err != nil {
			return fmt.Errorf("mark failure %s: %w", event.ID, err)
		}
	case dispositionParked:
		s.logg.Warn(s.logg.WithField(logCtx, "error", d.cause.Error()), "outbox event parked")
		if err := s.repo.MarkTerminalTx(tx, event.ID, d.cause, s.maxAttempts); err != nil {
			return fmt.Errorf("mark terminal %s: %w", event.ID, err)
		}
	}
	return nil
}

func orderingKey(event models.OutboxEvent) string {
	return event.AggregateID.String()
}

func message(event models.OutboxEvent, resolved *registry.ResolvedEvent) *gcppubsub.Message {
	key := orderingKey(event)
	return &gcppubsub.Message{
		Data:        event.Payload,
		OrderingKey: key,
		Attributes: map[string]string{
			"event_id":       resolved.Envelope.EventID,
			"event_type":     string(event.EventType),
			"aggregate_type": string(event.AggregateType),
			"aggregate_id":   key,
			"occurred_at":    resolved.Envelope.OccurredAt.UTC().Format(time.RFC3339Nano),
		},
	}
}

func eventFields(event models.OutboxEvent) map[string]any {
	fields := map[string]any{
		"outbox_id":      event.ID.String(),
		"event_type":     event.EventType,
		"aggregate_type": event.AggregateType,
		"aggregate_id":   event.AggregateID.String(),
	}
	if event.LastError != nil {
		fields["last_error"] = *event.LastError
	}
	return fields
}
