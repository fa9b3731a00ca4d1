// Package services – UserSettingsService.
//
// Per-user preferences: an optional IANA timezone used to localize reminder
// texts, and the direct-message opt-in flag. Settings exist independently of
// any poll and are created on demand.
package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"sessionbot/internal/domain"
	"sessionbot/internal/repo"
)

// UserSettingsService reads and updates per-user settings.
type UserSettingsService struct {
	DB *gorm.DB
}

// Get returns the settings for userID, or a zero-value row when the user
// never configured anything.
func (s *UserSettingsService) Get(ctx context.Context, userID string) (*domain.UserSettings, error) {
	us, err := repo.GetUserSettings(ctx, s.DB, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return &domain.UserSettings{UserID: userID}, nil
	}
	if err != nil {
		return nil, err
	}
	return us, nil
}

// SetTimezone validates and stores the user's timezone, preserving the
// opt-in flag. Returns ErrInvalidTimezone for names the tz database does not
// know.
func (s *UserSettingsService) SetTimezone(ctx context.Context, userID, tz string) error {
	if _, err := time.LoadLocation(tz); err != nil || tz == "" {
		return ErrInvalidTimezone
	}
	current, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	_, err = repo.UpsertUserSettings(ctx, s.DB, userID, tz, current.DMOptIn)
	return err
}

// SetDMOptIn stores the user's direct-message preference, preserving the
// timezone.
func (s *UserSettingsService) SetDMOptIn(ctx context.Context, userID string, optIn bool) error {
	current, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	_, err = repo.UpsertUserSettings(ctx, s.DB, userID, current.Timezone, optIn)
	return err
}
