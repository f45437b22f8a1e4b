package stripewebhook

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/LLTIGER/pulse-architects-sub001/pkg/db/models"
)

const providerStripe = "stripe"

// ProcessedEvents is the durable record of webhook deliveries whose effects committed.
type ProcessedEvents struct {
	db *gorm.DB
}

func NewProcessedEvents(db *gorm.DB) *ProcessedEvents {
	return &ProcessedEvents{db: db}
}

// Record inserts the event row inside tx. It returns false when the event
// was already recorded by an earlier delivery.
func (r *ProcessedEvents) Record(ctx context.Context, tx *gorm.DB, eventID, eventType string, now time.Time) (bool, error) {
	if tx == nil {
		tx = r.db
	}
	row := models.WebhookEvent{
		Provider:    providerStripe,
		EventID:     eventID,
		EventType:   eventType,
		ProcessedAt: now,
	}
	res := tx.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "provider"}, {Name: "event_id"}},
			DoNothing: true,
		}).
		Create(&row)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// Exists reports whether an earlier delivery of eventID already committed.
func (r *ProcessedEvents) Exists(ctx context.Context, eventID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.WebhookEvent{}).
		Where("provider = ? AND event_id = ?", providerStripe, eventID).
		Count(&count).Error
	return count > 0, err
}
