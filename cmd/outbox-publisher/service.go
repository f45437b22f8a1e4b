package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/LLTIGER/pulse-architects-sub001/pkg/config"
	"github.com/LLTIGER/pulse-architects-sub001/pkg/db/models"
	"github.com/LLTIGER/pulse-architects-sub001/pkg/logger"
	"github.com/LLTIGER/pulse-architects-sub001/pkg/metrics"
	"github.com/LLTIGER/pulse-architects-sub001/pkg/outbox/registry"
)

const (
	defaultBatchSize      = 50
	defaultPollInterval   = time.Second
	defaultPublishTimeout = 15 * time.Second
	defaultMaxAttempts    = 10
	maxBackoff            = 10 * time.Second
	jitterWindow          = 250 * time.Millisecond
)

type dbClient interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type pubSubClient interface {
	Ping(context.Context) error
	Publisher(name string) *gcppubsub.Publisher
}

type outboxRepository interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
}

type registryResolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

type ServiceParams struct {
	Config           *config.Config
	Logger           *logger.Logger
	Metrics          *metrics.OutboxMetrics
	DB               dbClient
	PubSub           pubSubClient
	Repository       outboxRepository
	Registry         registryResolver
	PublisherFactory publisherFactory
	Clock            func() time.Time
}

// Service relays committed outbox rows to Pub/Sub. Rows are locked per batch
// so several relays can run side by side without double publishing.
type Service struct {
	logg             *logger.Logger
	metrics          *metrics.OutboxMetrics
	db               dbClient
	repo             outboxRepository
	pubsub           pubSubClient
	registry         registryResolver
	publisherFactory publisherFactory
	now              func() time.Time
	batchSize        int
	maxAttempts      int
	pollInterval     time.Duration
	publishTimeout   time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Config == nil:
		return nil, errors.New("config is required")
	case params.Logger == nil:
		return nil, errors.New("logger is required")
	case params.DB == nil:
		return nil, errors.New("database client is required")
	case params.PubSub == nil:
		return nil, errors.New("pubsub client is required")
	case params.Repository == nil:
		return nil, errors.New("outbox repository is required")
	case params.Registry == nil:
		return nil, errors.New("event registry is required")
	}

	s := &Service{
		logg:             params.Logger,
		metrics:          params.Metrics,
		db:               params.DB,
		repo:             params.Repository,
		pubsub:           params.PubSub,
		registry:         params.Registry,
		publisherFactory: params.PublisherFactory,
		now:              params.Clock,
	}
	if s.publisherFactory == nil {
		s.publisherFactory = orderedPublisherFactory(params.PubSub)
	}
	if s.now == nil {
		s.now = time.Now
	}
	cfg := params.Config.Outbox
	s.batchSize = positiveOr(cfg.BatchSize, defaultBatchSize)
	s.maxAttempts = positiveOr(cfg.MaxAttempts, defaultMaxAttempts)
	s.pollInterval = positiveOr(cfg.PollInterval, defaultPollInterval)
	s.publishTimeout = positiveOr(cfg.PublishTimeout, defaultPublishTimeout)
	return s, nil
}

// Run drains the outbox until ctx is cancelled. A full batch is followed
// immediately by the next one; errors back off exponentially.
func (s *Service) Run(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	if err := s.pubsub.Ping(ctx); err != nil {
		return fmt.Errorf("pubsub ping failed: %w", err)
	}

	wait := s.pollInterval
	for ctx.Err() == nil {
		processed, err := s.processBatch(ctx)
		switch {
		case err != nil:
			s.logg.Error(ctx, "outbox batch failed", err)
			wait = nextBackoff(wait, s.pollInterval, maxBackoff)
		case processed:
			wait = s.pollInterval
			continue
		default:
			wait = s.pollInterval
		}
		if err := sleep(ctx, withJitter(wait)); err != nil {
			return err
		}
	}
	return ctx.Err()
}

// processBatch relays one locked batch. A failed publish only affects its own
// row; bookkeeping failures roll the whole batch back.
func (s *Service) processBatch(ctx context.Context) (bool, error) {
	var deliveries []*delivery
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		events, err := s.repo.FetchUnpublishedForPublish(tx, s.batchSize, s.maxAttempts)
		if err != nil {
			return fmt.Errorf("fetch batch: %w", err)
		}
		if len(events) == 0 {
			return nil
		}

		publishCtx, cancel := context.WithTimeout(ctx, s.publishTimeout)
		defer cancel()
		deliveries = s.dispatch(publishCtx, events)
		s.await(publishCtx, deliveries)

		for _, d := range deliveries {
			if err := s.record(ctx, tx, d); err != nil {
				return err
			}
		}
		return nil
	})
	if err == nil {
		s.summarize(ctx, deliveries)
	}
	return len(deliveries) > 0, err
}

func (s *Service) summarize(ctx context.Context, deliveries []*delivery) {
	counts := map[disposition]int{}
	for _, d := range deliveries {
		counts[d.outcome]++
	}
	fields := map[string]any{
		"published": counts[dispositionPublished],
		"retry":     counts[dispositionRetry],
		"parked":    counts[dispositionParked],
	}
	if counts[dispositionRetry]+counts[dispositionParked] > 0 {
		s.logg.Warn(s.logg.WithFields(ctx, fields), "outbox batch finished with failures")
	} else if len(deliveries) > 0 {
		s.logg.Info(s.logg.WithFields(ctx, fields), "outbox batch published")
	}
}
