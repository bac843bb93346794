package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/bytecord/backend/internal/models"
)

// BalanceService is the Postgres implementation of BalanceStore, plus the
// HTTP endpoints that are pure reads over it (balance lookup, leaderboard)
// and the admin streak reset.
type BalanceService struct {
	db      *sql.DB
	configs *ConfigService
	audit   *AuditLogger
}

func NewBalanceService(db *sql.DB, configs *ConfigService) *BalanceService {
	return &BalanceService{
		db:      db,
		configs: configs,
		audit:   NewAuditLogger(),
	}
}

const balanceColumns = `guild_id, user_id, balance, total_received, total_sent, streak_count, last_daily, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBalance(row rowScanner) (*models.Balance, error) {
	var b models.Balance
	var lastDaily sql.NullTime
	err := row.Scan(&b.GuildID, &b.UserID, &b.Balance, &b.TotalReceived, &b.TotalSent,
		&b.StreakCount, &lastDaily, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if lastDaily.Valid {
		d := lastDaily.Time.UTC()
		b.LastDaily = &d
	}
	return &b, nil
}

// GetBalance returns the stored balance row, or (nil, nil) when the user has
// no row yet.
func (s *BalanceService) GetBalance(ctx context.Context, guildID, userID string) (*models.Balance, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+balanceColumns+`
		FROM byte_balances
		WHERE guild_id = $1 AND user_id = $2
	`, guildID, userID)

	balance, err := scanBalance(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch balance: %w", err)
	}
	return balance, nil
}

// GetOrCreateBalance lazily creates the balance row with the configured
// starting balance. The upsert's no-op update makes RETURNING yield the
// existing row when a concurrent request created it first.
func (s *BalanceService) GetOrCreateBalance(ctx context.Context, guildID, userID string, startingBalance int64) (*models.Balance, error) {
	balance, err := s.GetBalance(ctx, guildID, userID)
	if err != nil {
		return nil, err
	}
	if balance != nil {
		return balance, nil
	}

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO byte_balances (guild_id, user_id, balance, total_received, total_sent, streak_count)
		VALUES ($1, $2, $3, 0, 0, 0)
		ON CONFLICT (guild_id, user_id) DO UPDATE SET updated_at = NOW()
		RETURNING `+balanceColumns+`
	`, guildID, userID, startingBalance)

	balance, err = scanBalance(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create balance: %w", err)
	}
	log.Printf("[BALANCE] Created balance for guild=%s user=%s starting=%d", guildID, userID, startingBalance)
	return balance, nil
}

// UpdateDailyReward applies the daily reward and streak atomically, gated on
// last_daily still differing from the claim date at write time. Zero rows
// updated means another request claimed first; both clients see the same
// Conflict. The system-award ledger row commits in the same transaction.
func (s *BalanceService) UpdateDailyReward(ctx context.Context, guildID, userID string, dailyAmount int64, streakBonus, newStreakCount int, claimDate time.Time) (*models.Balance, error) {
	reward := dailyAmount * int64(streakBonus)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `
		UPDATE byte_balances
		SET balance = balance + $4,
		    total_received = total_received + $4,
		    streak_count = $5,
		    last_daily = $3,
		    updated_at = NOW()
		WHERE guild_id = $1 AND user_id = $2
		  AND last_daily IS DISTINCT FROM $3
		RETURNING `+balanceColumns+`
	`, guildID, userID, claimDate, reward, newStreakCount)

	balance, err := scanBalance(row)
	if err == sql.ErrNoRows {
		return nil, ErrAlreadyClaimed
	}
	if err != nil {
		return nil, fmt.Errorf("failed to apply daily reward: %w", err)
	}

	reason := fmt.Sprintf("Daily reward (streak %d)", newStreakCount)
	if streakBonus > 1 {
		reason = fmt.Sprintf("Daily reward (streak %d, %dx bonus)", newStreakCount, streakBonus)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO byte_transactions (id, guild_id, giver_id, receiver_id, amount, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, uuid.NewString(), guildID, models.SystemUserID, userID, reward, reason, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to record daily award: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit daily reward: %w", err)
	}
	return balance, nil
}

// CreateTransaction moves bytes between two existing balance rows and appends
// the ledger entry, all in one transaction. The giver debit is guarded by
// balance >= amount in the UPDATE itself, so a concurrent spend cannot drive
// the balance negative.
func (s *BalanceService) CreateTransaction(ctx context.Context, guildID, giverID, receiverID string, amount int64, reason string) (*models.Transaction, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if giverID != models.SystemUserID {
		result, err := tx.ExecContext(ctx, `
			UPDATE byte_balances
			SET balance = balance - $3, total_sent = total_sent + $3, updated_at = NOW()
			WHERE guild_id = $1 AND user_id = $2 AND balance >= $3
		`, guildID, giverID, amount)
		if err != nil {
			return nil, fmt.Errorf("failed to debit giver: %w", err)
		}
		rowsAffected, _ := result.RowsAffected()
		if rowsAffected == 0 {
			return nil, ErrInsufficientBalance
		}
	}

	if receiverID != models.SystemUserID {
		result, err := tx.ExecContext(ctx, `
			UPDATE byte_balances
			SET balance = balance + $3, total_received = total_received + $3, updated_at = NOW()
			WHERE guild_id = $1 AND user_id = $2
		`, guildID, receiverID, amount)
		if err != nil {
			return nil, fmt.Errorf("failed to credit receiver: %w", err)
		}
		rowsAffected, _ := result.RowsAffected()
		if rowsAffected == 0 {
			return nil, fmt.Errorf("receiver balance row missing for guild=%s user=%s", guildID, receiverID)
		}
	}

	record := &models.Transaction{
		ID:         uuid.NewString(),
		GuildID:    guildID,
		GiverID:    giverID,
		ReceiverID: receiverID,
		Amount:     amount,
		Reason:     reason,
		CreatedAt:  time.Now().UTC(),
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO byte_transactions (id, guild_id, giver_id, receiver_id, amount, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, record.ID, record.GuildID, record.GiverID, record.ReceiverID, record.Amount, record.Reason, record.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to append transaction: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.audit.LogTransfer(record.ID, giverID, receiverID, amount, "SUCCESS")
	return record, nil
}

// ResetStreak zeroes the streak counter. last_daily stays as-is: the user can
// still not double-claim today, they just restart from 1 tomorrow.
func (s *BalanceService) ResetStreak(ctx context.Context, guildID, userID string) (*models.Balance, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE byte_balances
		SET streak_count = 0, updated_at = NOW()
		WHERE guild_id = $1 AND user_id = $2
		RETURNING `+balanceColumns+`
	`, guildID, userID)

	balance, err := scanBalance(row)
	if err != nil {
		return nil, err
	}
	return balance, nil
}

// GetLeaderboard returns the top balances for a guild, highest balance first.
// Ties break on row creation order so the ordering is stable across reads.
func (s *BalanceService) GetLeaderboard(ctx context.Context, guildID string, limit int) ([]models.Balance, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+balanceColumns+`
		FROM byte_balances
		WHERE guild_id = $1
		ORDER BY balance DESC, created_at ASC
		LIMIT $2
	`, guildID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch leaderboard: %w", err)
	}
	defer rows.Close()

	balances := []models.Balance{}
	for rows.Next() {
		balance, err := scanBalance(rows)
		if err != nil {
			return nil, err
		}
		balances = append(balances, *balance)
	}
	return balances, rows.Err()
}

// HTTP handlers

// GetUserBalance returns (and lazily creates) a user's balance
// @Summary Get user balance
// @Description Fetch a user's bytes balance, creating it with the guild's starting balance on first lookup
// @Tags bytes
// @Produce json
// @Security BearerAuth
// @Param guildID path string true "Guild ID"
// @Param userID path string true "User ID"
// @Success 200 {object} models.Balance
// @Failure 400 {object} services.ErrorResponse
// @Failure 500 {object} services.ErrorResponse
// @Router /guilds/{guildID}/bytes/balance/{userID} [get]
func (s *BalanceService) GetUserBalance(w http.ResponseWriter, r *http.Request) {
	guildID := chi.URLParam(r, "guildID")
	userID := chi.URLParam(r, "userID")

	if !isValidSnowflake(guildID) || !isValidSnowflake(userID) {
		SendErrorResponse(w, "Invalid guild or user id", http.StatusBadRequest, nil)
		return
	}

	cfg, err := s.configs.GetConfig(r.Context(), guildID)
	if err != nil {
		log.Printf("[BALANCE] Failed to load config for guild %s: %v", guildID, err)
		SendErrorResponse(w, "Failed to fetch balance", http.StatusInternalServerError, nil)
		return
	}

	balance, err := s.GetOrCreateBalance(r.Context(), guildID, userID, cfg.StartingBalance)
	if err != nil {
		log.Printf("[BALANCE] Failed to fetch balance for guild=%s user=%s: %v", guildID, userID, err)
		SendErrorResponse(w, "Failed to fetch balance", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(balance)
}

// Leaderboard returns the guild's top balances
// @Summary Get bytes leaderboard
// @Description Top balances for a guild, highest first
// @Tags bytes
// @Produce json
// @Security BearerAuth
// @Param guildID path string true "Guild ID"
// @Param limit query int false "Number of entries (default: 10, max: 100)"
// @Success 200 {object} object{leaderboard=[]models.Balance,count=int}
// @Failure 400 {object} services.ErrorResponse
// @Failure 500 {object} services.ErrorResponse
// @Router /guilds/{guildID}/bytes/leaderboard [get]
func (s *BalanceService) Leaderboard(w http.ResponseWriter, r *http.Request) {
	guildID := chi.URLParam(r, "guildID")
	if !isValidSnowflake(guildID) {
		SendErrorResponse(w, "Invalid guild id", http.StatusBadRequest, nil)
		return
	}

	limit := 10
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l >= 1 && l <= 100 {
			limit = l
		}
	}

	balances, err := s.GetLeaderboard(r.Context(), guildID, limit)
	if err != nil {
		log.Printf("[BALANCE] Failed to fetch leaderboard for guild %s: %v", guildID, err)
		SendErrorResponse(w, "Failed to fetch leaderboard", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"leaderboard": balances,
		"count":       len(balances),
	})
}

// ResetUserStreak resets a user's daily streak
// @Summary Reset streak
// @Description Admin reset of a user's streak counter; last claim date is left untouched
// @Tags bytes
// @Produce json
// @Security BearerAuth
// @Param guildID path string true "Guild ID"
// @Param userID path string true "User ID"
// @Success 200 {object} models.Balance
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 500 {object} services.ErrorResponse
// @Router /guilds/{guildID}/bytes/streak/{userID}/reset [post]
func (s *BalanceService) ResetUserStreak(w http.ResponseWriter, r *http.Request) {
	guildID := chi.URLParam(r, "guildID")
	userID := chi.URLParam(r, "userID")

	if !isValidSnowflake(guildID) || !isValidSnowflake(userID) {
		SendErrorResponse(w, "Invalid guild or user id", http.StatusBadRequest, nil)
		return
	}

	balance, err := s.ResetStreak(r.Context(), guildID, userID)
	if err == sql.ErrNoRows {
		SendErrorResponse(w, "Balance not found", http.StatusNotFound, nil)
		return
	}
	if err != nil {
		log.Printf("[BALANCE] Failed to reset streak for guild=%s user=%s: %v", guildID, userID, err)
		SendErrorResponse(w, "Failed to reset streak", http.StatusInternalServerError, nil)
		return
	}

	log.Printf("[BALANCE] Streak reset for guild=%s user=%s", guildID, userID)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(balance)
}
