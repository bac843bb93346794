package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"regexp"

	"github.com/go-chi/chi/v5"

	"github.com/bytecord/backend/internal/services"
)

// DailyHandler is the HTTP boundary of the claim workflow. The conflict
// mapping matters here: already-claimed and losing the race are both 409,
// deliberately indistinguishable to the caller.
type DailyHandler struct {
	service *services.DailyService
}

func NewDailyHandler(service *services.DailyService) *DailyHandler {
	return &DailyHandler{service: service}
}

var snowflakeRegex = regexp.MustCompile(`^[0-9]{17,20}$`)

// ClaimDaily awards the user's daily bytes
// @Summary Claim daily reward
// @Description Claim the daily bytes reward; succeeds at most once per UTC calendar day
// @Tags bytes
// @Produce json
// @Security BearerAuth
// @Param guildID path string true "Guild ID"
// @Param userID path string true "User ID"
// @Success 200 {object} services.ClaimResult
// @Failure 400 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Failure 500 {object} services.ErrorResponse
// @Router /guilds/{guildID}/bytes/daily/{userID} [post]
func (h *DailyHandler) ClaimDaily(w http.ResponseWriter, r *http.Request) {
	guildID := chi.URLParam(r, "guildID")
	userID := chi.URLParam(r, "userID")

	if !snowflakeRegex.MatchString(guildID) || !snowflakeRegex.MatchString(userID) {
		services.SendErrorResponse(w, "Invalid guild or user id", http.StatusBadRequest, nil)
		return
	}

	result, err := h.service.Claim(r.Context(), guildID, userID)
	if err != nil {
		if services.IsConflict(err) {
			services.SendErrorResponse(w, err.Error(), http.StatusConflict, nil)
			return
		}
		log.Printf("[DAILY] Claim failed for guild=%s user=%s: %v", guildID, userID, err)
		services.SendErrorResponse(w, "Failed to process claim", http.StatusInternalServerError, nil)
		return
	}

	log.Printf("[DAILY] Claim succeeded for guild=%s user=%s reward=%d streak=%d",
		guildID, userID, result.RewardAmount, result.Balance.StreakCount)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}
