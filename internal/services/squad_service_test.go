package services

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/bytecord/backend/internal/config"
	"github.com/bytecord/backend/internal/models"
)

const testSquadID = "7b0778be-88ef-4b91-a094-0ec6d2e0a2a8"

func newTestSquadService(t *testing.T, store BalanceStore) (*SquadService, sqlmock.Sqlmock, func()) {
	db, dbMock, err := sqlmock.New()
	assert.NoError(t, err)
	configs := NewConfigService(db, nil, config.LoadBytesDefaults())
	return NewSquadService(db, store, configs), dbMock, func() { db.Close() }
}

func squadRows(switchCost int64) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "guild_id", "name", "role_id", "switch_cost", "is_active", "created_at"}).
		AddRow(testSquadID, testGuildID, "Blue Team", "333333333333333333", switchCost, true, time.Now().UTC())
}

func postJoin(t *testing.T, service *SquadService, userID string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Post("/guilds/{guildID}/squads/{squadID}/join", service.JoinSquad)

	body, _ := json.Marshal(map[string]string{"user_id": userID})
	req := httptest.NewRequest("POST", "/guilds/"+testGuildID+"/squads/"+testSquadID+"/join", bytes.NewBuffer(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSquadService_JoinSquad(t *testing.T) {
	t.Run("first join is free", func(t *testing.T) {
		store := &MockBalanceStore{}
		service, dbMock, cleanup := newTestSquadService(t, store)
		defer cleanup()

		dbMock.ExpectQuery("SELECT (.+) FROM squads").
			WithArgs(testSquadID, testGuildID).
			WillReturnRows(squadRows(50))
		dbMock.ExpectQuery("SELECT (.+) FROM squad_members").
			WithArgs(testGuildID, testUserID).
			WillReturnError(sql.ErrNoRows)
		dbMock.ExpectQuery("INSERT INTO squad_members").
			WithArgs(testGuildID, testUserID, testSquadID).
			WillReturnRows(sqlmock.NewRows([]string{"guild_id", "user_id", "squad_id", "joined_at"}).
				AddRow(testGuildID, testUserID, testSquadID, time.Now().UTC()))

		w := postJoin(t, service, testUserID)

		assert.Equal(t, http.StatusOK, w.Code)
		store.AssertNotCalled(t, "CreateTransaction",
			mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("switching squads charges the fee", func(t *testing.T) {
		store := &MockBalanceStore{}
		store.On("GetOrCreateBalance", mock.Anything, testGuildID, testUserID, int64(100)).
			Return(&models.Balance{GuildID: testGuildID, UserID: testUserID, Balance: 200}, nil)
		store.On("CreateTransaction", mock.Anything, testGuildID, testUserID, models.SystemUserID, int64(50), "Squad switch fee: Blue Team").
			Return(&models.Transaction{ID: "fee-tx", Amount: 50}, nil)

		service, dbMock, cleanup := newTestSquadService(t, store)
		defer cleanup()

		dbMock.ExpectQuery("SELECT (.+) FROM squads").
			WithArgs(testSquadID, testGuildID).
			WillReturnRows(squadRows(50))
		dbMock.ExpectQuery("SELECT (.+) FROM squad_members").
			WithArgs(testGuildID, testUserID).
			WillReturnRows(sqlmock.NewRows([]string{"guild_id", "user_id", "squad_id", "joined_at"}).
				AddRow(testGuildID, testUserID, "another-squad-id", time.Now().UTC()))
		expectDefaultConfig(dbMock)
		dbMock.ExpectQuery("INSERT INTO squad_members").
			WithArgs(testGuildID, testUserID, testSquadID).
			WillReturnRows(sqlmock.NewRows([]string{"guild_id", "user_id", "squad_id", "joined_at"}).
				AddRow(testGuildID, testUserID, testSquadID, time.Now().UTC()))

		w := postJoin(t, service, testUserID)

		assert.Equal(t, http.StatusOK, w.Code)
		store.AssertExpectations(t)
	})

	t.Run("joining the current squad is a conflict", func(t *testing.T) {
		store := &MockBalanceStore{}
		service, dbMock, cleanup := newTestSquadService(t, store)
		defer cleanup()

		dbMock.ExpectQuery("SELECT (.+) FROM squads").
			WithArgs(testSquadID, testGuildID).
			WillReturnRows(squadRows(50))
		dbMock.ExpectQuery("SELECT (.+) FROM squad_members").
			WithArgs(testGuildID, testUserID).
			WillReturnRows(sqlmock.NewRows([]string{"guild_id", "user_id", "squad_id", "joined_at"}).
				AddRow(testGuildID, testUserID, testSquadID, time.Now().UTC()))

		w := postJoin(t, service, testUserID)

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("unaffordable switch fee is a conflict", func(t *testing.T) {
		store := &MockBalanceStore{}
		store.On("GetOrCreateBalance", mock.Anything, testGuildID, testUserID, int64(100)).
			Return(&models.Balance{GuildID: testGuildID, UserID: testUserID, Balance: 10}, nil)
		store.On("CreateTransaction", mock.Anything, testGuildID, testUserID, models.SystemUserID, int64(50), "Squad switch fee: Blue Team").
			Return(nil, ErrInsufficientBalance)

		service, dbMock, cleanup := newTestSquadService(t, store)
		defer cleanup()

		dbMock.ExpectQuery("SELECT (.+) FROM squads").
			WithArgs(testSquadID, testGuildID).
			WillReturnRows(squadRows(50))
		dbMock.ExpectQuery("SELECT (.+) FROM squad_members").
			WithArgs(testGuildID, testUserID).
			WillReturnRows(sqlmock.NewRows([]string{"guild_id", "user_id", "squad_id", "joined_at"}).
				AddRow(testGuildID, testUserID, "another-squad-id", time.Now().UTC()))
		expectDefaultConfig(dbMock)

		w := postJoin(t, service, testUserID)

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("unknown squad", func(t *testing.T) {
		service, dbMock, cleanup := newTestSquadService(t, &MockBalanceStore{})
		defer cleanup()

		dbMock.ExpectQuery("SELECT (.+) FROM squads").
			WithArgs(testSquadID, testGuildID).
			WillReturnError(sql.ErrNoRows)

		w := postJoin(t, service, testUserID)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestSquadService_LeaveSquad(t *testing.T) {
	service, dbMock, cleanup := newTestSquadService(t, &MockBalanceStore{})
	defer cleanup()

	leave := func() *httptest.ResponseRecorder {
		r := chi.NewRouter()
		r.Delete("/guilds/{guildID}/squads/members/{userID}", service.LeaveSquad)
		req := httptest.NewRequest("DELETE", "/guilds/"+testGuildID+"/squads/members/"+testUserID, nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	t.Run("leaving is free", func(t *testing.T) {
		dbMock.ExpectExec("DELETE FROM squad_members").
			WithArgs(testGuildID, testUserID).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.Equal(t, http.StatusOK, leave().Code)
	})

	t.Run("not in a squad", func(t *testing.T) {
		dbMock.ExpectExec("DELETE FROM squad_members").
			WithArgs(testGuildID, testUserID).
			WillReturnResult(sqlmock.NewResult(0, 0))

		assert.Equal(t, http.StatusNotFound, leave().Code)
	})
}

func TestSquadService_GetMembership(t *testing.T) {
	service, dbMock, cleanup := newTestSquadService(t, &MockBalanceStore{})
	defer cleanup()

	r := chi.NewRouter()
	r.Get("/guilds/{guildID}/squads/members/{userID}", service.GetMembership)

	t.Run("existing membership", func(t *testing.T) {
		dbMock.ExpectQuery("SELECT (.+) FROM squad_members").
			WithArgs(testGuildID, testUserID).
			WillReturnRows(sqlmock.NewRows([]string{"guild_id", "user_id", "squad_id", "joined_at"}).
				AddRow(testGuildID, testUserID, testSquadID, time.Now().UTC()))

		req := httptest.NewRequest("GET", "/guilds/"+testGuildID+"/squads/members/"+testUserID, nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		var membership models.SquadMembership
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &membership))
		assert.Equal(t, testSquadID, membership.SquadID)
	})

	t.Run("no membership", func(t *testing.T) {
		dbMock.ExpectQuery("SELECT (.+) FROM squad_members").
			WithArgs(testGuildID, testUserID).
			WillReturnError(sql.ErrNoRows)

		req := httptest.NewRequest("GET", "/guilds/"+testGuildID+"/squads/members/"+testUserID, nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
