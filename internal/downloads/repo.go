package downloads

import (
	"context"

	"gorm.io/gorm"

	"github.com/LLTIGER/pulse-architects-sub001/internal/repo"
	"github.com/LLTIGER/pulse-architects-sub001/pkg/db/models"
)

// EventRepository appends download attempts to the audit log.
type EventRepository struct {
	events repo.Table[models.DownloadEvent]
}

func NewEventRepository(db *gorm.DB) *EventRepository {
	return &EventRepository{events: repo.NewTable[models.DownloadEvent](db)}
}

func (r *EventRepository) Record(ctx context.Context, event *models.DownloadEvent) error {
	return r.events.Insert(ctx, event)
}
