// Package jobs runs the scheduled background work: the nightly streak-data
// integrity audit. The audit only reports; corrupted rows are healed by the
// claim path the next time the user touches them, never by the sweep.
package jobs

import (
	"context"
	"database/sql"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/bytecord/backend/internal/streak"
)

type Scheduler struct {
	cron  *cron.Cron
	db    *sql.DB
	clock streak.Clock
}

func NewScheduler(db *sql.DB, clock streak.Clock) *Scheduler {
	return &Scheduler{
		cron:  cron.New(cron.WithLocation(time.UTC)),
		db:    db,
		clock: clock,
	}
}

// Start registers the audit job and starts the cron loop. The schedule uses
// standard five-field cron syntax, evaluated in UTC.
func (s *Scheduler) Start(schedule string) error {
	_, err := s.cron.AddFunc(schedule, func() {
		if err := s.RunIntegrityAudit(context.Background()); err != nil {
			log.Printf("[CRON] Integrity audit failed: %v", err)
		}
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	log.Printf("[CRON] Integrity audit scheduled: %s", schedule)
	return nil
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
}

// RunIntegrityAudit sweeps every balance row and flags ones whose streak data
// is inconsistent: negative streaks, future claim dates, or a streak with no
// claim date at all.
func (s *Scheduler) RunIntegrityAudit(ctx context.Context) error {
	today := s.clock.Today()

	rows, err := s.db.QueryContext(ctx, `
		SELECT guild_id, user_id, streak_count, last_daily
		FROM byte_balances
	`)
	if err != nil {
		return err
	}
	defer rows.Close()

	checked, flagged := 0, 0
	for rows.Next() {
		var guildID, userID string
		var streakCount int
		var lastDaily sql.NullTime
		if err := rows.Scan(&guildID, &userID, &streakCount, &lastDaily); err != nil {
			return err
		}

		var last *time.Time
		if lastDaily.Valid {
			d := lastDaily.Time.UTC()
			last = &d
		}

		checked++
		if !streak.ValidateStreakData(last, streakCount, today) {
			flagged++
			log.Printf("[CRON] Inconsistent streak data: guild=%s user=%s streak=%d last_daily=%v",
				guildID, userID, streakCount, lastDaily.Time)
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	log.Printf("[CRON] Integrity audit complete: checked=%d flagged=%d", checked, flagged)
	return nil
}
