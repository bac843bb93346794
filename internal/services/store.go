package services

import (
	"context"
	"time"

	"github.com/bytecord/backend/internal/models"
)

// BalanceStore is the storage contract the claim and transfer workflows
// depend on. The load-bearing requirement is UpdateDailyReward: it MUST be an
// atomic write conditioned on the stored last_daily still differing from the
// claim date. A plain read-then-write implementation will double-award under
// concurrent claims.
type BalanceStore interface {
	// GetBalance returns the balance row, or (nil, nil) when none exists.
	GetBalance(ctx context.Context, guildID, userID string) (*models.Balance, error)

	// GetOrCreateBalance returns the balance row, lazily creating it with the
	// given starting balance.
	GetOrCreateBalance(ctx context.Context, guildID, userID string, startingBalance int64) (*models.Balance, error)

	// UpdateDailyReward applies dailyAmount*streakBonus and the new streak
	// atomically, only if last_daily != claimDate at write time, and appends
	// the system-award ledger row in the same transaction. Returns
	// ErrAlreadyClaimed when the condition no longer holds.
	UpdateDailyReward(ctx context.Context, guildID, userID string, dailyAmount int64, streakBonus, newStreakCount int, claimDate time.Time) (*models.Balance, error)

	// CreateTransaction debits the giver, credits the receiver and appends
	// the ledger row in one transaction. A giver of models.SystemUserID
	// credits without debiting anyone.
	CreateTransaction(ctx context.Context, guildID, giverID, receiverID string, amount int64, reason string) (*models.Transaction, error)

	// ResetStreak zeroes streak_count and leaves last_daily untouched.
	ResetStreak(ctx context.Context, guildID, userID string) (*models.Balance, error)

	// GetLeaderboard returns the top balances for a guild, highest first,
	// ties broken by row creation order.
	GetLeaderboard(ctx context.Context, guildID string, limit int) ([]models.Balance, error)
}
