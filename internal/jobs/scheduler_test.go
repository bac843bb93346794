package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"github.com/bytecord/backend/internal/streak"
)

func TestScheduler_RunIntegrityAudit(t *testing.T) {
	db, dbMock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	clock := streak.FixedClock{Instant: time.Date(2024, 6, 15, 4, 0, 0, 0, time.UTC)}
	scheduler := NewScheduler(db, clock)

	t.Run("flags corrupted rows without failing the sweep", func(t *testing.T) {
		rows := sqlmock.NewRows([]string{"guild_id", "user_id", "streak_count", "last_daily"}).
			AddRow("123456789012345678", "111111111111111111", 3, time.Date(2024, 6, 14, 0, 0, 0, 0, time.UTC)).
			// future claim date and negative streak are both inconsistent
			AddRow("123456789012345678", "222222222222222222", 1, time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)).
			AddRow("123456789012345678", "333333333333333333", -2, nil)
		dbMock.ExpectQuery("SELECT (.+) FROM byte_balances").
			WillReturnRows(rows)

		err := scheduler.RunIntegrityAudit(context.Background())
		assert.NoError(t, err)
		assert.NoError(t, dbMock.ExpectationsWereMet())
	})

	t.Run("query failure is returned", func(t *testing.T) {
		dbMock.ExpectQuery("SELECT (.+) FROM byte_balances").
			WillReturnError(assert.AnError)

		err := scheduler.RunIntegrityAudit(context.Background())
		assert.Error(t, err)
	})
}

func TestScheduler_Start(t *testing.T) {
	db, _, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	scheduler := NewScheduler(db, streak.UTCClock{})

	t.Run("rejects a malformed schedule", func(t *testing.T) {
		assert.Error(t, scheduler.Start("not a cron expression"))
	})

	t.Run("accepts standard five-field syntax", func(t *testing.T) {
		s := NewScheduler(db, streak.UTCClock{})
		assert.NoError(t, s.Start("0 4 * * *"))
		s.Stop()
	})
}
