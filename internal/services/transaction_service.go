package services

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/bytecord/backend/internal/models"
)

// TransactionService exposes the transfer endpoint and ledger reads. The
// balance mutation itself lives in the store so debit, credit and ledger
// append commit or roll back together.
type TransactionService struct {
	db        *sql.DB
	store     BalanceStore
	configs   *ConfigService
	validator *ValidationHelper
}

func NewTransactionService(db *sql.DB, store BalanceStore, configs *ConfigService) *TransactionService {
	return &TransactionService{
		db:        db,
		store:     store,
		configs:   configs,
		validator: NewValidationHelper(),
	}
}

// CreateTransaction transfers bytes between two guild members
// @Summary Create a transfer
// @Description Move bytes from one member to another and append the ledger entry
// @Tags transactions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param guildID path string true "Guild ID"
// @Param transaction body object{giver_id=string,receiver_id=string,amount=int64,reason=string} true "Transfer data"
// @Success 201 {object} models.Transaction
// @Failure 400 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Failure 500 {object} services.ErrorResponse
// @Router /guilds/{guildID}/bytes/transactions [post]
func (ts *TransactionService) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	guildID := chi.URLParam(r, "guildID")
	if !isValidSnowflake(guildID) {
		SendErrorResponse(w, "Invalid guild id", http.StatusBadRequest, nil)
		return
	}

	var req struct {
		GiverID    string `json:"giver_id" validate:"required"`
		ReceiverID string `json:"receiver_id" validate:"required"`
		Amount     int64  `json:"amount" validate:"required,gt=0"`
		Reason     string `json:"reason" validate:"max=200"`
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return
	}
	if err := ts.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}
	if !isValidSnowflake(req.GiverID) || !isValidSnowflake(req.ReceiverID) {
		SendErrorResponse(w, "Invalid giver or receiver id", http.StatusBadRequest, nil)
		return
	}
	if req.GiverID == req.ReceiverID {
		SendErrorResponse(w, ErrSelfTransfer.Error(), http.StatusConflict, nil)
		return
	}

	cfg, err := ts.configs.GetConfig(r.Context(), guildID)
	if err != nil {
		log.Printf("[TRANSFER] Failed to load config for guild %s: %v", guildID, err)
		SendErrorResponse(w, "Failed to process transfer", http.StatusInternalServerError, nil)
		return
	}
	if !cfg.IsEnabled {
		SendErrorResponse(w, ErrBytesDisabled.Error(), http.StatusConflict, nil)
		return
	}
	if req.Amount > cfg.MaxTransfer {
		SendErrorResponse(w, fmt.Sprintf("amount exceeds transfer limit of %d", cfg.MaxTransfer), http.StatusBadRequest, nil)
		return
	}

	// Ensure both rows exist before the guarded debit/credit.
	if _, err := ts.store.GetOrCreateBalance(r.Context(), guildID, req.GiverID, cfg.StartingBalance); err != nil {
		log.Printf("[TRANSFER] Failed to load giver balance: %v", err)
		SendErrorResponse(w, "Failed to process transfer", http.StatusInternalServerError, nil)
		return
	}
	if _, err := ts.store.GetOrCreateBalance(r.Context(), guildID, req.ReceiverID, cfg.StartingBalance); err != nil {
		log.Printf("[TRANSFER] Failed to load receiver balance: %v", err)
		SendErrorResponse(w, "Failed to process transfer", http.StatusInternalServerError, nil)
		return
	}

	reason := strings.TrimSpace(req.Reason)
	record, err := ts.store.CreateTransaction(r.Context(), guildID, req.GiverID, req.ReceiverID, req.Amount, reason)
	if err != nil {
		if errors.Is(err, ErrInsufficientBalance) {
			SendErrorResponse(w, ErrInsufficientBalance.Error(), http.StatusConflict, nil)
			return
		}
		log.Printf("[TRANSFER] Failed transfer guild=%s giver=%s receiver=%s: %v", guildID, req.GiverID, req.ReceiverID, err)
		SendErrorResponse(w, "Failed to process transfer", http.StatusInternalServerError, nil)
		return
	}

	log.Printf("[TRANSFER] %s: guild=%s giver=%s receiver=%s amount=%d", record.ID, guildID, req.GiverID, req.ReceiverID, req.Amount)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success":     true,
		"transaction": record,
	})
}

// ListTransactions retrieves ledger entries for a guild
// @Summary List transactions
// @Description Ledger entries for a guild, newest first, optionally filtered by user
// @Tags transactions
// @Produce json
// @Security BearerAuth
// @Param guildID path string true "Guild ID"
// @Param userId query string false "Filter by giver or receiver"
// @Param limit query int false "Number of entries (default: 50, max: 100)"
// @Success 200 {object} object{transactions=[]models.Transaction,count=int}
// @Failure 400 {object} services.ErrorResponse
// @Failure 500 {object} services.ErrorResponse
// @Router /guilds/{guildID}/bytes/transactions [get]
func (ts *TransactionService) ListTransactions(w http.ResponseWriter, r *http.Request) {
	guildID := chi.URLParam(r, "guildID")
	if !isValidSnowflake(guildID) {
		SendErrorResponse(w, "Invalid guild id", http.StatusBadRequest, nil)
		return
	}

	userID := r.URL.Query().Get("userId")
	if userID != "" && !isValidSnowflake(userID) {
		SendErrorResponse(w, "Invalid user id", http.StatusBadRequest, nil)
		return
	}

	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l >= 1 && l <= 100 {
			limit = l
		}
	}

	transactions, err := ts.fetchTransactions(r, guildID, userID, limit)
	if err != nil {
		log.Printf("[TRANSFER] Failed to fetch transactions for guild %s: %v", guildID, err)
		SendErrorResponse(w, "Failed to fetch transactions", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"transactions": transactions,
		"count":        len(transactions),
	})
}

func (ts *TransactionService) fetchTransactions(r *http.Request, guildID, userID string, limit int) ([]models.Transaction, error) {
	query := `
		SELECT id, guild_id, giver_id, receiver_id, amount, reason, created_at
		FROM byte_transactions
		WHERE guild_id = $1
	`
	args := []interface{}{guildID}

	if userID != "" {
		query += ` AND (giver_id = $2 OR receiver_id = $2)`
		args = append(args, userID)
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args)+1)
	args = append(args, limit)

	rows, err := ts.db.QueryContext(r.Context(), query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	transactions := []models.Transaction{}
	for rows.Next() {
		var tx models.Transaction
		err := rows.Scan(&tx.ID, &tx.GuildID, &tx.GiverID, &tx.ReceiverID, &tx.Amount, &tx.Reason, &tx.CreatedAt)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, tx)
	}
	return transactions, rows.Err()
}
