package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"github.com/bytecord/backend/internal/config"
	"github.com/bytecord/backend/internal/services"
	"github.com/bytecord/backend/internal/streak"
)

const (
	guildID = "123456789012345678"
	userID  = "876543210987654321"
)

// newClaimHandler wires the real services over sqlmock so the test covers the
// whole claim path from route to conditional update.
func newClaimHandler(t *testing.T, clock streak.Clock) (*DailyHandler, sqlmock.Sqlmock, func()) {
	db, dbMock, err := sqlmock.New()
	assert.NoError(t, err)

	configs := services.NewConfigService(db, nil, config.LoadBytesDefaults())
	store := services.NewBalanceService(db, configs)
	daily := services.NewDailyService(store, configs, clock)
	return NewDailyHandler(daily), dbMock, func() { db.Close() }
}

func postClaim(handler *DailyHandler, guild, user string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Post("/guilds/{guildID}/bytes/daily/{userID}", handler.ClaimDaily)
	req := httptest.NewRequest("POST", "/guilds/"+guild+"/bytes/daily/"+user, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func balanceColumns() []string {
	return []string{
		"guild_id", "user_id", "balance", "total_received", "total_sent",
		"streak_count", "last_daily", "created_at", "updated_at",
	}
}

func TestDailyHandler_ClaimDaily(t *testing.T) {
	claimDay := time.Date(2024, 6, 15, 9, 0, 0, 0, time.UTC)
	today := streak.DateOf(claimDay)
	clock := streak.FixedClock{Instant: claimDay}
	now := time.Now().UTC()

	t.Run("first claim awards through the full stack", func(t *testing.T) {
		handler, dbMock, cleanup := newClaimHandler(t, clock)
		defer cleanup()

		dbMock.ExpectQuery("SELECT (.+) FROM bytes_configs").
			WithArgs(guildID).
			WillReturnError(sql.ErrNoRows)
		dbMock.ExpectQuery("SELECT (.+) FROM byte_balances").
			WithArgs(guildID, userID).
			WillReturnError(sql.ErrNoRows)
		dbMock.ExpectQuery("INSERT INTO byte_balances").
			WithArgs(guildID, userID, int64(100)).
			WillReturnRows(sqlmock.NewRows(balanceColumns()).
				AddRow(guildID, userID, int64(100), int64(0), int64(0), 0, nil, now, now))
		dbMock.ExpectBegin()
		dbMock.ExpectQuery("UPDATE byte_balances").
			WithArgs(guildID, userID, today, int64(10), 1).
			WillReturnRows(sqlmock.NewRows(balanceColumns()).
				AddRow(guildID, userID, int64(110), int64(10), int64(0), 1, today, now, now))
		dbMock.ExpectExec("INSERT INTO byte_transactions").
			WillReturnResult(sqlmock.NewResult(0, 1))
		dbMock.ExpectCommit()

		w := postClaim(handler, guildID, userID)

		assert.Equal(t, http.StatusOK, w.Code)
		var result services.ClaimResult
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
		assert.Equal(t, int64(10), result.RewardAmount)
		assert.Equal(t, int64(110), result.Balance.Balance)
		assert.Equal(t, 1, result.Balance.StreakCount)
		assert.NoError(t, dbMock.ExpectationsWereMet())
	})

	t.Run("second claim the same day is a conflict", func(t *testing.T) {
		handler, dbMock, cleanup := newClaimHandler(t, clock)
		defer cleanup()

		dbMock.ExpectQuery("SELECT (.+) FROM bytes_configs").
			WithArgs(guildID).
			WillReturnError(sql.ErrNoRows)
		dbMock.ExpectQuery("SELECT (.+) FROM byte_balances").
			WithArgs(guildID, userID).
			WillReturnRows(sqlmock.NewRows(balanceColumns()).
				AddRow(guildID, userID, int64(110), int64(10), int64(0), 1, today, now, now))

		w := postClaim(handler, guildID, userID)

		assert.Equal(t, http.StatusConflict, w.Code)
		var response services.ErrorResponse
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "already claimed today", response.Error)
		assert.NoError(t, dbMock.ExpectationsWereMet())
	})

	t.Run("losing the conditional update is the same conflict", func(t *testing.T) {
		handler, dbMock, cleanup := newClaimHandler(t, clock)
		defer cleanup()

		yesterday := today.AddDate(0, 0, -1)
		dbMock.ExpectQuery("SELECT (.+) FROM bytes_configs").
			WithArgs(guildID).
			WillReturnError(sql.ErrNoRows)
		dbMock.ExpectQuery("SELECT (.+) FROM byte_balances").
			WithArgs(guildID, userID).
			WillReturnRows(sqlmock.NewRows(balanceColumns()).
				AddRow(guildID, userID, int64(110), int64(10), int64(0), 1, yesterday, now, now))
		dbMock.ExpectBegin()
		// Another request wrote last_daily between our read and this update.
		dbMock.ExpectQuery("UPDATE byte_balances").
			WithArgs(guildID, userID, today, int64(10), 2).
			WillReturnError(sql.ErrNoRows)
		dbMock.ExpectRollback()

		w := postClaim(handler, guildID, userID)

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.NoError(t, dbMock.ExpectationsWereMet())
	})

	t.Run("invalid ids are rejected before any work", func(t *testing.T) {
		handler, dbMock, cleanup := newClaimHandler(t, clock)
		defer cleanup()

		w := postClaim(handler, "not-a-guild", userID)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.NoError(t, dbMock.ExpectationsWereMet())
	})
}
