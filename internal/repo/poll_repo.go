// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Poll model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition. The lifecycle guard "one active poll
// per channel" is enforced by the service layer; this package just exposes
// the queries it needs.
//
// Error semantics:
//   - When a poll is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"sessionbot/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// CreatePoll inserts a new active Poll row for channelRef referencing the
// rendered message messageRef. CreatedAt is set to UTC. A duplicate
// messageRef violates the unique index and surfaces as a DB error.
func CreatePoll(ctx context.Context, db *gorm.DB, messageRef, channelRef string, deadline time.Time) (*domain.Poll, error) {
	p := &domain.Poll{
		MessageRef: messageRef,
		ChannelRef: channelRef,
		CreatedAt:  time.Now().UTC(),
		Deadline:   deadline,
		Active:     true,
	}
	if err := db.WithContext(ctx).Create(p).Error; err != nil {
		return nil, err
	}
	return p, nil
}

// GetActivePoll returns the active poll for channelRef, or ErrNotFound when
// the channel has none. By invariant at most one row satisfies
// (channel, active); the newest wins if the invariant is ever violated.
func GetActivePoll(ctx context.Context, db *gorm.DB, channelRef string) (*domain.Poll, error) {
	var p domain.Poll
	err := db.WithContext(ctx).
		Where("channel_ref = ? AND active = ?", channelRef, true).
		Order("created_at desc").
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetActivePollByMessageRef returns the active poll rendered as messageRef,
// or ErrNotFound. This supports interaction dispatch without channel context.
func GetActivePollByMessageRef(ctx context.Context, db *gorm.DB, messageRef string) (*domain.Poll, error) {
	var p domain.Poll
	err := db.WithContext(ctx).
		Where("message_ref = ? AND active = ?", messageRef, true).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListActivePolls returns all active polls ordered by creation time,
// optionally filtered to a single channel when channelRef is non-empty.
// It returns an empty slice when nothing is active.
func ListActivePolls(ctx context.Context, db *gorm.DB, channelRef string) ([]domain.Poll, error) {
	q := db.WithContext(ctx).Where("active = ?", true)
	if channelRef != "" {
		q = q.Where("channel_ref = ?", channelRef)
	}
	var out []domain.Poll
	err := q.Order("created_at asc").Find(&out).Error
	return out, err
}

// ClosePoll sets active=false on the poll. Closing an already-inactive (or
// missing) poll is a no-op, not an error; the "must exist" rule lives in the
// service layer.
func ClosePoll(ctx context.Context, db *gorm.DB, pollID uint) error {
	return db.WithContext(ctx).
		Model(&domain.Poll{}).
		Where("id = ?", pollID).
		Update("active", false).Error
}
