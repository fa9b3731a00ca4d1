// Package repo – generic config table and per-user settings.
//
// The config table is a plain string key/value store; typed access with
// defaults is layered on top by the settings package. User settings are
// keyed by user id and upserted on demand.
package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"sessionbot/internal/domain"
)

// GetSetting returns the stored value for key, or def when the key is unset.
// A missing row is not an error; only real DB failures are.
func GetSetting(ctx context.Context, db *gorm.DB, key, def string) (string, error) {
	var s domain.Setting
	err := db.WithContext(ctx).First(&s, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return def, nil
	}
	if err != nil {
		return def, err
	}
	return s.Value, nil
}

// SetSetting stores value under key, overwriting any previous value.
func SetSetting(ctx context.Context, db *gorm.DB, key, value string) error {
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value"}),
		}).
		Create(&domain.Setting{Key: key, Value: value}).Error
}

// SeedSetting stores value under key only if the key is currently unset,
// used to install static defaults once at startup.
func SeedSetting(ctx context.Context, db *gorm.DB, key, value string) error {
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoNothing: true,
		}).
		Create(&domain.Setting{Key: key, Value: value}).Error
}

// GetUserSettings returns the settings row for userID, or ErrNotFound.
func GetUserSettings(ctx context.Context, db *gorm.DB, userID string) (*domain.UserSettings, error) {
	var u domain.UserSettings
	if err := db.WithContext(ctx).First(&u, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// UpsertUserSettings creates or overwrites the settings row for userID.
func UpsertUserSettings(ctx context.Context, db *gorm.DB, userID, timezone string, dmOptIn bool) (*domain.UserSettings, error) {
	u := &domain.UserSettings{
		UserID:    userID,
		Timezone:  timezone,
		DMOptIn:   dmOptIn,
		UpdatedAt: time.Now().UTC(),
	}
	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"timezone", "dm_opt_in", "updated_at"}),
		}).
		Create(u).Error
	if err != nil {
		return nil, err
	}
	return u, nil
}

// ListUserSettings returns every settings row, ordered by user id.
func ListUserSettings(ctx context.Context, db *gorm.DB) ([]domain.UserSettings, error) {
	var out []domain.UserSettings
	err := db.WithContext(ctx).Order("user_id asc").Find(&out).Error
	return out, err
}

// ListDMOptInUsers returns the users who opted in to direct-message
// reminders.
func ListDMOptInUsers(ctx context.Context, db *gorm.DB) ([]domain.UserSettings, error) {
	var out []domain.UserSettings
	err := db.WithContext(ctx).
		Where("dm_opt_in = ?", true).
		Order("user_id asc").
		Find(&out).Error
	return out, err
}

// ListUsersWithTimezone returns the users who configured an explicit
// timezone.
func ListUsersWithTimezone(ctx context.Context, db *gorm.DB) ([]domain.UserSettings, error) {
	var out []domain.UserSettings
	err := db.WithContext(ctx).
		Where("timezone <> ''").
		Order("user_id asc").
		Find(&out).Error
	return out, err
}
