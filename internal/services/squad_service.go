package services

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bytecord/backend/internal/models"
)

// SquadService manages squad membership. Switching from one squad to another
// costs bytes; the fee flows through the same transactional balance path as
// member transfers, with the system as receiver.
type SquadService struct {
	db        *sql.DB
	store     BalanceStore
	configs   *ConfigService
	validator *ValidationHelper
}

func NewSquadService(db *sql.DB, store BalanceStore, configs *ConfigService) *SquadService {
	return &SquadService{
		db:        db,
		store:     store,
		configs:   configs,
		validator: NewValidationHelper(),
	}
}

func (s *SquadService) fetchSquad(r *http.Request, guildID, squadID string) (*models.Squad, error) {
	var squad models.Squad
	err := s.db.QueryRowContext(r.Context(), `
		SELECT id, guild_id, name, role_id, switch_cost, is_active, created_at
		FROM squads
		WHERE id = $1 AND guild_id = $2 AND is_active = true
	`, squadID, guildID).Scan(&squad.ID, &squad.GuildID, &squad.Name, &squad.RoleID,
		&squad.SwitchCost, &squad.IsActive, &squad.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &squad, nil
}

func (s *SquadService) fetchMembership(r *http.Request, guildID, userID string) (*models.SquadMembership, error) {
	var m models.SquadMembership
	err := s.db.QueryRowContext(r.Context(), `
		SELECT guild_id, user_id, squad_id, joined_at
		FROM squad_members
		WHERE guild_id = $1 AND user_id = $2
	`, guildID, userID).Scan(&m.GuildID, &m.UserID, &m.SquadID, &m.JoinedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ListSquads returns a guild's active squads
// @Summary List squads
// @Tags squads
// @Produce json
// @Security BearerAuth
// @Param guildID path string true "Guild ID"
// @Success 200 {object} object{squads=[]models.Squad,count=int}
// @Failure 400 {object} services.ErrorResponse
// @Failure 500 {object} services.ErrorResponse
// @Router /guilds/{guildID}/squads [get]
func (s *SquadService) ListSquads(w http.ResponseWriter, r *http.Request) {
	guildID := chi.URLParam(r, "guildID")
	if !isValidSnowflake(guildID) {
		SendErrorResponse(w, "Invalid guild id", http.StatusBadRequest, nil)
		return
	}

	rows, err := s.db.QueryContext(r.Context(), `
		SELECT id, guild_id, name, role_id, switch_cost, is_active, created_at
		FROM squads
		WHERE guild_id = $1 AND is_active = true
		ORDER BY created_at ASC
	`, guildID)
	if err != nil {
		log.Printf("[SQUAD] Failed to list squads for guild %s: %v", guildID, err)
		SendErrorResponse(w, "Failed to fetch squads", http.StatusInternalServerError, nil)
		return
	}
	defer rows.Close()

	squads := []models.Squad{}
	for rows.Next() {
		var squad models.Squad
		err := rows.Scan(&squad.ID, &squad.GuildID, &squad.Name, &squad.RoleID,
			&squad.SwitchCost, &squad.IsActive, &squad.CreatedAt)
		if err != nil {
			SendErrorResponse(w, "Failed to fetch squads", http.StatusInternalServerError, nil)
			return
		}
		squads = append(squads, squad)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"squads": squads,
		"count":  len(squads),
	})
}

// GetMembership returns a user's current squad
// @Summary Get squad membership
// @Tags squads
// @Produce json
// @Security BearerAuth
// @Param guildID path string true "Guild ID"
// @Param userID path string true "User ID"
// @Success 200 {object} models.SquadMembership
// @Failure 404 {object} services.ErrorResponse
// @Router /guilds/{guildID}/squads/members/{userID} [get]
func (s *SquadService) GetMembership(w http.ResponseWriter, r *http.Request) {
	guildID := chi.URLParam(r, "guildID")
	userID := chi.URLParam(r, "userID")
	if !isValidSnowflake(guildID) || !isValidSnowflake(userID) {
		SendErrorResponse(w, "Invalid guild or user id", http.StatusBadRequest, nil)
		return
	}

	membership, err := s.fetchMembership(r, guildID, userID)
	if err == sql.ErrNoRows {
		SendErrorResponse(w, "Not in a squad", http.StatusNotFound, nil)
		return
	}
	if err != nil {
		log.Printf("[SQUAD] Failed to fetch membership guild=%s user=%s: %v", guildID, userID, err)
		SendErrorResponse(w, "Failed to fetch membership", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(membership)
}

// JoinSquad adds a user to a squad, charging the switch fee when they leave
// another squad for it
// @Summary Join squad
// @Tags squads
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param guildID path string true "Guild ID"
// @Param squadID path string true "Squad ID"
// @Param request body object{user_id=string} true "Joining user"
// @Success 200 {object} models.SquadMembership
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Router /guilds/{guildID}/squads/{squadID}/join [post]
func (s *SquadService) JoinSquad(w http.ResponseWriter, r *http.Request) {
	guildID := chi.URLParam(r, "guildID")
	squadID := chi.URLParam(r, "squadID")
	if !isValidSnowflake(guildID) {
		SendErrorResponse(w, "Invalid guild id", http.StatusBadRequest, nil)
		return
	}

	var req struct {
		UserID string `json:"user_id" validate:"required"`
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
	if err := s.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}
	if !isValidSnowflake(req.UserID) {
		SendErrorResponse(w, "Invalid user id", http.StatusBadRequest, nil)
		return
	}

	squad, err := s.fetchSquad(r, guildID, squadID)
	if err == sql.ErrNoRows {
		SendErrorResponse(w, "Squad not found", http.StatusNotFound, nil)
		return
	}
	if err != nil {
		log.Printf("[SQUAD] Failed to fetch squad %s: %v", squadID, err)
		SendErrorResponse(w, "Failed to join squad", http.StatusInternalServerError, nil)
		return
	}

	current, err := s.fetchMembership(r, guildID, req.UserID)
	if err != nil && err != sql.ErrNoRows {
		log.Printf("[SQUAD] Failed to fetch membership guild=%s user=%s: %v", guildID, req.UserID, err)
		SendErrorResponse(w, "Failed to join squad", http.StatusInternalServerError, nil)
		return
	}
	if current != nil && current.SquadID == squad.ID {
		SendErrorResponse(w, ErrAlreadyInSquad.Error(), http.StatusConflict, nil)
		return
	}

	// The first join is free; switching squads costs bytes.
	if current != nil && squad.SwitchCost > 0 {
		cfg, err := s.configs.GetConfig(r.Context(), guildID)
		if err != nil {
			SendErrorResponse(w, "Failed to join squad", http.StatusInternalServerError, nil)
			return
		}
		if _, err := s.store.GetOrCreateBalance(r.Context(), guildID, req.UserID, cfg.StartingBalance); err != nil {
			SendErrorResponse(w, "Failed to join squad", http.StatusInternalServerError, nil)
			return
		}
		reason := fmt.Sprintf("Squad switch fee: %s", squad.Name)
		if _, err := s.store.CreateTransaction(r.Context(), guildID, req.UserID, models.SystemUserID, squad.SwitchCost, reason); err != nil {
			if errors.Is(err, ErrInsufficientBalance) {
				SendErrorResponse(w, ErrInsufficientBalance.Error(), http.StatusConflict, nil)
				return
			}
			log.Printf("[SQUAD] Failed to charge switch fee guild=%s user=%s: %v", guildID, req.UserID, err)
			SendErrorResponse(w, "Failed to join squad", http.StatusInternalServerError, nil)
			return
		}
	}

	var membership models.SquadMembership
	err = s.db.QueryRowContext(r.Context(), `
		INSERT INTO squad_members (guild_id, user_id, squad_id, joined_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (guild_id, user_id) DO UPDATE SET squad_id = EXCLUDED.squad_id, joined_at = NOW()
		RETURNING guild_id, user_id, squad_id, joined_at
	`, guildID, req.UserID, squad.ID).Scan(&membership.GuildID, &membership.UserID, &membership.SquadID, &membership.JoinedAt)
	if err != nil {
		log.Printf("[SQUAD] Failed to record membership guild=%s user=%s squad=%s: %v", guildID, req.UserID, squad.ID, err)
		SendErrorResponse(w, "Failed to join squad", http.StatusInternalServerError, nil)
		return
	}

	log.Printf("[SQUAD] guild=%s user=%s joined squad=%s", guildID, req.UserID, squad.ID)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(membership)
}

// LeaveSquad removes a user from their squad; leaving is free
// @Summary Leave squad
// @Tags squads
// @Produce json
// @Security BearerAuth
// @Param guildID path string true "Guild ID"
// @Param userID path string true "User ID"
// @Success 200 {object} map[string]string
// @Failure 404 {object} services.ErrorResponse
// @Router /guilds/{guildID}/squads/members/{userID} [delete]
func (s *SquadService) LeaveSquad(w http.ResponseWriter, r *http.Request) {
	guildID := chi.URLParam(r, "guildID")
	userID := chi.URLParam(r, "userID")
	if !isValidSnowflake(guildID) || !isValidSnowflake(userID) {
		SendErrorResponse(w, "Invalid guild or user id", http.StatusBadRequest, nil)
		return
	}

	result, err := s.db.ExecContext(r.Context(), `
		DELETE FROM squad_members WHERE guild_id = $1 AND user_id = $2
	`, guildID, userID)
	if err != nil {
		log.Printf("[SQUAD] Failed to remove membership guild=%s user=%s: %v", guildID, userID, err)
		SendErrorResponse(w, "Failed to leave squad", http.StatusInternalServerError, nil)
		return
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		SendErrorResponse(w, "Not in a squad", http.StatusNotFound, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "Left squad"})
}
