package models

import (
	"time"
)

// BytesConfig is the per-guild economy configuration. StreakBonuses maps a
// milestone length (stringified integer) to a reward multiplier; it is stored
// as jsonb and decoded as-is, so malformed entries survive until the
// calculator skips them.
type BytesConfig struct {
	GuildID         string         `json:"guild_id" db:"guild_id"`
	DailyAmount     int64          `json:"daily_amount" db:"daily_amount"`
	StartingBalance int64          `json:"starting_balance" db:"starting_balance"`
	MaxTransfer     int64          `json:"max_transfer" db:"max_transfer"`
	StreakBonuses   map[string]any `json:"streak_bonuses" db:"streak_bonuses"`
	IsEnabled       bool           `json:"is_enabled" db:"is_enabled"`
	UpdatedAt       time.Time      `json:"updated_at" db:"updated_at"`
}
