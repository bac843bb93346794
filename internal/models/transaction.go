package models

import (
	"time"
)

// Transaction is one append-only ledger row. Rows are never updated or
// deleted; daily rewards carry SystemUserID as the giver.
type Transaction struct {
	ID         string    `json:"id" db:"id"`
	GuildID    string    `json:"guild_id" db:"guild_id"`
	GiverID    string    `json:"giver_id" db:"giver_id"`
	ReceiverID string    `json:"receiver_id" db:"receiver_id"`
	Amount     int64     `json:"amount" db:"amount"`
	Reason     string    `json:"reason" db:"reason"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}
