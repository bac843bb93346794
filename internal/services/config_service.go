package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"

	"github.com/bytecord/backend/internal/config"
	"github.com/bytecord/backend/internal/models"
)

// ConfigService serves per-guild economy configuration with a Redis
// read-through cache. The cache is a TTL'd copy invalidated on every write;
// it is never consulted for the claim conditional update, which always goes
// against the store's own last_daily.
type ConfigService struct {
	db        *sql.DB
	redis     *redis.Client
	defaults  *config.BytesDefaults
	validator *ValidationHelper
}

func NewConfigService(db *sql.DB, redisClient *redis.Client, defaults *config.BytesDefaults) *ConfigService {
	return &ConfigService{
		db:        db,
		redis:     redisClient,
		defaults:  defaults,
		validator: NewValidationHelper(),
	}
}

func configCacheKey(guildID string) string {
	return fmt.Sprintf("bytes_config:%s", guildID)
}

// GetConfig returns the guild's config, falling back to service defaults when
// the guild has never been configured.
func (s *ConfigService) GetConfig(ctx context.Context, guildID string) (*models.BytesConfig, error) {
	if s.redis != nil {
		cached, err := s.redis.Get(ctx, configCacheKey(guildID)).Bytes()
		if err == nil {
			var cfg models.BytesConfig
			if err := json.Unmarshal(cached, &cfg); err == nil {
				return &cfg, nil
			}
		}
	}

	cfg, err := s.fetchConfig(ctx, guildID)
	if err != nil {
		return nil, err
	}

	if s.redis != nil {
		data, err := json.Marshal(cfg)
		if err == nil {
			if err := s.redis.Set(ctx, configCacheKey(guildID), data, s.defaults.ConfigCacheTTL).Err(); err != nil {
				log.Printf("[CONFIG] Failed to cache config for guild %s: %v", guildID, err)
			}
		}
	}
	return cfg, nil
}

func (s *ConfigService) fetchConfig(ctx context.Context, guildID string) (*models.BytesConfig, error) {
	var cfg models.BytesConfig
	var bonusesRaw []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT guild_id, daily_amount, starting_balance, max_transfer, streak_bonuses, is_enabled, updated_at
		FROM bytes_configs
		WHERE guild_id = $1
	`, guildID).Scan(&cfg.GuildID, &cfg.DailyAmount, &cfg.StartingBalance, &cfg.MaxTransfer,
		&bonusesRaw, &cfg.IsEnabled, &cfg.UpdatedAt)

	if err == sql.ErrNoRows {
		return s.defaultConfig(guildID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch config: %w", err)
	}

	if len(bonusesRaw) > 0 {
		if err := json.Unmarshal(bonusesRaw, &cfg.StreakBonuses); err != nil {
			// Unreadable bonus tables degrade to no bonuses, never to an error.
			log.Printf("[CONFIG] Corrupt streak_bonuses for guild %s: %v", guildID, err)
			cfg.StreakBonuses = map[string]any{}
		}
	}
	return &cfg, nil
}

func (s *ConfigService) defaultConfig(guildID string) *models.BytesConfig {
	bonuses := make(map[string]any, len(s.defaults.StreakBonuses))
	for k, v := range s.defaults.StreakBonuses {
		bonuses[k] = v
	}
	return &models.BytesConfig{
		GuildID:         guildID,
		DailyAmount:     s.defaults.DailyAmount,
		StartingBalance: s.defaults.StartingBalance,
		MaxTransfer:     s.defaults.MaxTransfer,
		StreakBonuses:   bonuses,
		IsEnabled:       true,
		UpdatedAt:       time.Now().UTC(),
	}
}

func (s *ConfigService) invalidate(ctx context.Context, guildID string) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Del(ctx, configCacheKey(guildID)).Err(); err != nil {
		log.Printf("[CONFIG] Failed to invalidate cache for guild %s: %v", guildID, err)
	}
}

// HTTP handlers

// GetGuildConfig returns the guild's bytes configuration
// @Summary Get guild config
// @Description Fetch the guild's bytes economy configuration, defaults if never configured
// @Tags config
// @Produce json
// @Security BearerAuth
// @Param guildID path string true "Guild ID"
// @Success 200 {object} models.BytesConfig
// @Failure 400 {object} services.ErrorResponse
// @Failure 500 {object} services.ErrorResponse
// @Router /guilds/{guildID}/bytes/config [get]
func (s *ConfigService) GetGuildConfig(w http.ResponseWriter, r *http.Request) {
	guildID := chi.URLParam(r, "guildID")
	if !isValidSnowflake(guildID) {
		SendErrorResponse(w, "Invalid guild id", http.StatusBadRequest, nil)
		return
	}

	cfg, err := s.GetConfig(r.Context(), guildID)
	if err != nil {
		log.Printf("[CONFIG] Failed to fetch config for guild %s: %v", guildID, err)
		SendErrorResponse(w, "Failed to fetch config", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(cfg)
}

// UpdateGuildConfig upserts the guild's bytes configuration
// @Summary Update guild config
// @Description Create or replace the guild's bytes economy configuration
// @Tags config
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param guildID path string true "Guild ID"
// @Param config body object{daily_amount=int64,starting_balance=int64,max_transfer=int64,streak_bonuses=object,is_enabled=bool} true "Guild config"
// @Success 200 {object} models.BytesConfig
// @Failure 400 {object} services.ErrorResponse
// @Failure 500 {object} services.ErrorResponse
// @Router /guilds/{guildID}/bytes/config [put]
func (s *ConfigService) UpdateGuildConfig(w http.ResponseWriter, r *http.Request) {
	guildID := chi.URLParam(r, "guildID")
	if !isValidSnowflake(guildID) {
		SendErrorResponse(w, "Invalid guild id", http.StatusBadRequest, nil)
		return
	}

	var req struct {
		DailyAmount     int64          `json:"daily_amount" validate:"required,gt=0"`
		StartingBalance int64          `json:"starting_balance" validate:"gte=0"`
		MaxTransfer     int64          `json:"max_transfer" validate:"required,gt=0"`
		StreakBonuses   map[string]any `json:"streak_bonuses"`
		IsEnabled       *bool          `json:"is_enabled"`
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

	if req.StreakBonuses == nil {
		req.StreakBonuses = map[string]any{}
	}
	isEnabled := true
	if req.IsEnabled != nil {
		isEnabled = *req.IsEnabled
	}

	bonusesJSON, err := json.Marshal(req.StreakBonuses)
	if err != nil {
		SendErrorResponse(w, "Invalid streak bonuses", http.StatusBadRequest, nil)
		return
	}

	_, err = s.db.ExecContext(r.Context(), `
		INSERT INTO bytes_configs (guild_id, daily_amount, starting_balance, max_transfer, streak_bonuses, is_enabled, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (guild_id) DO UPDATE
		SET daily_amount = EXCLUDED.daily_amount,
		    starting_balance = EXCLUDED.starting_balance,
		    max_transfer = EXCLUDED.max_transfer,
		    streak_bonuses = EXCLUDED.streak_bonuses,
		    is_enabled = EXCLUDED.is_enabled,
		    updated_at = NOW()
	`, guildID, req.DailyAmount, req.StartingBalance, req.MaxTransfer, bonusesJSON, isEnabled)
	if err != nil {
		log.Printf("[CONFIG] Failed to update config for guild %s: %v", guildID, err)
		SendErrorResponse(w, "Failed to update config", http.StatusInternalServerError, nil)
		return
	}

	s.invalidate(r.Context(), guildID)
	log.Printf("[CONFIG] Updated config for guild %s", guildID)

	cfg, err := s.GetConfig(r.Context(), guildID)
	if err != nil {
		SendErrorResponse(w, "Failed to fetch config", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(cfg)
}

// DeleteGuildConfig resets the guild to default configuration
// @Summary Delete guild config
// @Description Remove the guild's stored configuration; lookups fall back to service defaults
// @Tags config
// @Produce json
// @Security BearerAuth
// @Param guildID path string true "Guild ID"
// @Success 200 {object} models.BytesConfig
// @Failure 400 {object} services.ErrorResponse
// @Failure 500 {object} services.ErrorResponse
// @Router /guilds/{guildID}/bytes/config [delete]
func (s *ConfigService) DeleteGuildConfig(w http.ResponseWriter, r *http.Request) {
	guildID := chi.URLParam(r, "guildID")
	if !isValidSnowflake(guildID) {
		SendErrorResponse(w, "Invalid guild id", http.StatusBadRequest, nil)
		return
	}

	if _, err := s.db.ExecContext(r.Context(), `DELETE FROM bytes_configs WHERE guild_id = $1`, guildID); err != nil {
		log.Printf("[CONFIG] Failed to delete config for guild %s: %v", guildID, err)
		SendErrorResponse(w, "Failed to delete config", http.StatusInternalServerError, nil)
		return
	}

	s.invalidate(r.Context(), guildID)
	log.Printf("[CONFIG] Deleted config for guild %s, defaults apply", guildID)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.defaultConfig(guildID))
}
