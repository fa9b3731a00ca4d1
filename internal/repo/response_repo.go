// Package repo – Response repository.
//
// Responses have upsert semantics on (poll_id, user_id): a re-vote overwrites
// the previous flags in place, matching the original store's
// INSERT OR REPLACE behavior. No vote history is retained.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"sessionbot/internal/domain"
)

// RecordResponse inserts or overwrites the (pollID, userID) response row with
// the given display name and day flags. RespondedAt is refreshed on every
// write, so the listing order reflects each user's latest vote.
func RecordResponse(ctx context.Context, db *gorm.DB, pollID uint, userID, displayName string, dayA, dayB bool) (*domain.Response, error) {
	r := &domain.Response{
		PollID:      pollID,
		UserID:      userID,
		DisplayName: displayName,
		DayA:        dayA,
		DayB:        dayB,
		RespondedAt: time.Now().UTC(),
	}
	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "poll_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"display_name", "day_a", "day_b", "responded_at"}),
		}).
		Create(r).Error
	if err != nil {
		return nil, err
	}
	return r, nil
}

// ListResponses returns all responses for pollID ordered by response time
// ascending, which keeps the rendered roster order deterministic. It returns
// an empty slice when nobody has responded.
func ListResponses(ctx context.Context, db *gorm.DB, pollID uint) ([]domain.Response, error) {
	var out []domain.Response
	err := db.WithContext(ctx).
		Where("poll_id = ?", pollID).
		Order("responded_at asc").
		Find(&out).Error
	return out, err
}
