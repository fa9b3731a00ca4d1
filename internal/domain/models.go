// Package domain defines the persistence models for availability polls,
// responses, reminder trackers, and per-user settings. These types are
// mapped with GORM and form the core data layer of the scheduling bot.
package domain

import "time"

// Delivery modes for reminder trackers. "channel" broadcasts one reminder
// into the scheduling channel; "dm" nags each pending user directly.
const (
	DeliveryChannel = "channel"
	DeliveryDM      = "dm"
)

// Poll represents one instance of the weekly availability request, scoped to
// a channel. Polls are never deleted: closing flips Active to false and the
// row (plus its responses) stays behind for historical queries.
//
// Invariant: at most one row per channel has Active=true.
//
// Fields:
//   - ID: surrogate primary key.
//   - MessageRef: the chat platform's id for the rendered poll message,
//     unique so interaction callbacks can be dispatched without channel
//     context.
//   - ChannelRef: the chat platform's id for the channel the poll lives in.
//   - CreatedAt: creation timestamp (UTC).
//   - Deadline: the response cut-off; reminders stop once it has passed.
//   - Active: soft-delete flag; false once the poll is closed or purged.
type Poll struct {
	ID         uint      `json:"id"          gorm:"primaryKey"`
	MessageRef string    `json:"message_ref" gorm:"type:varchar(64);not null;uniqueIndex"`
	ChannelRef string    `json:"channel_ref" gorm:"type:varchar(64);not null;index:idx_channel_active,priority:1"`
	CreatedAt  time.Time `json:"created_at"`
	Deadline   time.Time `json:"deadline"    gorm:"not null"`
	Active     bool      `json:"active"      gorm:"not null;default:true;index:idx_channel_active,priority:2"`
}

// TableName returns the database table name for Poll.
func (Poll) TableName() string { return "polls" }

// Response is a user's day-A/day-B availability answer for a specific poll.
// A user has at most one row per poll (enforced by unique index); re-voting
// overwrites the row in place, last write wins, no history retained.
//
// The two day flags are independent booleans; both false is a valid answer
// ("neither day"). They are stored as 0/1 per the original schema.
type Response struct {
	ID          uint      `json:"id"           gorm:"primaryKey"`
	PollID      uint      `json:"poll_id"      gorm:"not null;index;uniqueIndex:ux_poll_user"`
	UserID      string    `json:"user_id"      gorm:"type:varchar(64);not null;uniqueIndex:ux_poll_user"`
	DisplayName string    `json:"display_name" gorm:"type:varchar(128);not null"`
	DayA        bool      `json:"day_a"        gorm:"not null;default:false"`
	DayB        bool      `json:"day_b"        gorm:"not null;default:false"`
	RespondedAt time.Time `json:"responded_at"`

	// Poll is the parent poll. Responses are cascade-deleted only if the
	// poll row itself is ever removed, which the lifecycle never does.
	Poll Poll `json:"-" gorm:"foreignKey:PollID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Response.
func (Response) TableName() string { return "responses" }

// ReminderTracker is the per-poll bookkeeping of when the last nag went out
// and at what cadence. Exactly one row exists per active poll (1:1 on the
// poll primary key); it is created alongside the poll and deleted when the
// poll is closed or purged.
type ReminderTracker struct {
	PollID        uint      `json:"poll_id"        gorm:"primaryKey;autoIncrement:false"`
	LastSentAt    time.Time `json:"last_sent_at"   gorm:"not null"`
	IntervalHours int       `json:"interval_hours" gorm:"not null"`
	DeliveryMode  string    `json:"delivery_mode"  gorm:"type:varchar(16);not null;default:'channel'"`

	Poll Poll `json:"-" gorm:"foreignKey:PollID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for ReminderTracker.
func (ReminderTracker) TableName() string { return "reminder_trackers" }

// UserSettings holds per-user preferences independent of any poll: an
// optional IANA timezone used to localize reminder texts, and a direct
// message opt-in flag. Rows are created on demand and never deleted.
type UserSettings struct {
	UserID    string    `json:"user_id"   gorm:"type:varchar(64);primaryKey"`
	Timezone  string    `json:"timezone"  gorm:"type:varchar(64)"`
	DMOptIn   bool      `json:"dm_opt_in" gorm:"not null;default:false"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for UserSettings.
func (UserSettings) TableName() string { return "user_settings" }

// Setting is one row of the generic string key/value configuration table.
// Typed access with defaults lives in the settings package.
type Setting struct {
	Key   string `json:"key"   gorm:"type:varchar(64);primaryKey"`
	Value string `json:"value" gorm:"type:text;not null"`
}

// TableName returns the database table name for Setting.
func (Setting) TableName() string { return "config" }
