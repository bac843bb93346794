package services

import (
	"encoding/json"
	"log"
	"time"
)

type AuditEvent struct {
	Timestamp     time.Time `json:"timestamp"`
	EventType     string    `json:"event_type"`
	TransactionID string    `json:"transaction_id"`
	GuildID       string    `json:"guild_id"`
	UserID        string    `json:"user_id"`
	Amount        int64     `json:"amount"`
	Status        string    `json:"status"`
	Details       any       `json:"details"`
}

// AuditLogger emits structured audit events for every balance mutation. The
// ledger table is the durable record; this stream exists so operators can
// trace a mutation without querying the database.
type AuditLogger struct{}

func NewAuditLogger() *AuditLogger {
	return &AuditLogger{}
}

func (a *AuditLogger) LogTransfer(transactionID, giverID, receiverID string, amount int64, status string) {
	event := AuditEvent{
		Timestamp:     time.Now(),
		EventType:     "TRANSFER",
		TransactionID: transactionID,
		Amount:        amount,
		Status:        status,
		Details: map[string]string{
			"giver_id":    giverID,
			"receiver_id": receiverID,
		},
	}
	a.log(event)
}

func (a *AuditLogger) LogClaim(guildID, userID string, reward int64, streak, bonus int) {
	event := AuditEvent{
		Timestamp: time.Now(),
		EventType: "DAILY_CLAIM",
		GuildID:   guildID,
		UserID:    userID,
		Amount:    reward,
		Status:    "SUCCESS",
		Details: map[string]int{
			"streak": streak,
			"bonus":  bonus,
		},
	}
	a.log(event)
}

func (a *AuditLogger) LogError(guildID, userID string, err error) {
	event := AuditEvent{
		Timestamp: time.Now(),
		EventType: "ERROR",
		GuildID:   guildID,
		UserID:    userID,
		Status:    "FAILED",
		Details:   map[string]string{"error": err.Error()},
	}
	a.log(event)
}

func (a *AuditLogger) log(event AuditEvent) {
	data, _ := json.Marshal(event)
	log.Printf("AUDIT: %s", string(data))
}
