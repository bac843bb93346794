package models

import (
	"time"
)

// Squad is a joinable team within a guild. SwitchCost is the bytes fee
// charged when a member leaves one squad for another; the first join is free.
type Squad struct {
	ID         string    `json:"id" db:"id"`
	GuildID    string    `json:"guild_id" db:"guild_id"`
	Name       string    `json:"name" db:"name"`
	RoleID     string    `json:"role_id" db:"role_id"`
	SwitchCost int64     `json:"switch_cost" db:"switch_cost"`
	IsActive   bool      `json:"is_active" db:"is_active"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// SquadMembership records which squad a user currently belongs to.
// One membership per user per guild.
type SquadMembership struct {
	GuildID  string    `json:"guild_id" db:"guild_id"`
	UserID   string    `json:"user_id" db:"user_id"`
	SquadID  string    `json:"squad_id" db:"squad_id"`
	JoinedAt time.Time `json:"joined_at" db:"joined_at"`
}
