package models

import (
	"time"
)

// SystemUserID is the sentinel giver/receiver for system-awarded amounts
// (daily rewards, squad fees). System rows never debit a real balance.
const SystemUserID = "0"

// Balance is the per guild+user bytes record. last_daily is a UTC calendar
// date, not a timestamp; it is nil until the first successful daily claim.
type Balance struct {
	GuildID       string     `json:"guild_id" db:"guild_id"`
	UserID        string     `json:"user_id" db:"user_id"`
	Balance       int64      `json:"balance" db:"balance"`
	TotalReceived int64      `json:"total_received" db:"total_received"`
	TotalSent     int64      `json:"total_sent" db:"total_sent"`
	StreakCount   int        `json:"streak_count" db:"streak_count"`
	LastDaily     *time.Time `json:"last_daily" db:"last_daily"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}
