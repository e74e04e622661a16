package outbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/assignmentpoint-backend/pkg/db/models"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/enums"
)

const defaultParkedPage = 50

// Park copies event into outbox_dlq and pins its attempt count at ceiling so Claim never
// returns it again. Both writes share tx.
func (r *Repository) Park(tx *gorm.DB, event models.OutboxEvent, reason enums.DeadLetterReason, cause error, ceiling int) error {
	if tx == nil {
		return errTxRequired
	}
	message := truncate(cause.Error())
	letter := models.DeadLetter{
		EventID:       event.ID,
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       event.Payload,
		Reason:        reason,
		ErrorMessage:  message,
		AttemptCount:  event.AttemptCount,
		FailedAt:      time.Now().UTC(),
	}
	if err := tx.Create(&letter).Error; err != nil {
		return fmt.Errorf("outbox: park %s: %w", event.ID, err)
	}
	return r.update(tx, event.ID, map[string]any{"last_error": message, "attempt_count": ceiling})
}

// Requeue deletes the dead letter for eventID and re-arms the source row with a fresh
// attempt budget. It reports false when nothing was parked under that id.
func (r *Repository) Requeue(ctx context.Context, eventID uuid.UUID) (bool, error) {
	requeued := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		deleted := tx.Where("event_id = ?", eventID).Delete(&models.DeadLetter{})
		if deleted.Error != nil {
			return deleted.Error
		}
		if deleted.RowsAffected == 0 {
			return nil
		}
		requeued = true
		return tx.Model(&models.OutboxEvent{}).
			Where("id = ? AND published_at IS NULL", eventID).
			Updates(map[string]any{"attempt_count": 0, "last_error": nil}).Error
	})
	if err != nil {
		return false, fmt.Errorf("outbox: requeue %s: %w", eventID, err)
	}
	return requeued, nil
}

// Parked returns the dead letter for eventID, or nil when the event is not parked.
func (r *Repository) Parked(ctx context.Context, eventID uuid.UUID) (*models.DeadLetter, error) {
	var letter models.DeadLetter
	err := r.db.WithContext(ctx).Where("event_id = ?", eventID).First(&letter).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &letter, nil
}

// ListParked returns the most recent dead letters first.
func (r *Repository) ListParked(ctx context.Context, limit int) ([]models.DeadLetter, error) {
	if limit <= 0 {
		limit = defaultParkedPage
	}
	var letters []models.DeadLetter
	err := r.db.WithContext(ctx).Order("failed_at DESC").Limit(limit).Find(&letters).Error
	return letters, err
}
