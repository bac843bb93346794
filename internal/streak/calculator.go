// Package streak implements the daily reward calculation engine: pure,
// deterministic functions of (last claim date, current streak, bonus
// configuration, today). The package performs no I/O and holds no locks;
// the no-double-claim guarantee comes from the store's conditional update,
// not from anything here.
package streak

import (
	"encoding/json"
	"strconv"
	"time"
)

// Result is the outcome of a single streak evaluation. It is computed fresh
// per request and never persisted. All fields are populated even when
// CanClaim is false so callers can use them for diagnostics.
type Result struct {
	NewStreakCount     int       `json:"newStreakCount"`
	CanClaim           bool      `json:"canClaim"`
	StreakBonus        int       `json:"streakBonus"`
	RewardAmount       int64     `json:"rewardAmount"`
	NextClaimDate      time.Time `json:"nextClaimDate"`
	IsStreakBroken     bool      `json:"isStreakBroken"`
	DaysSinceLastClaim *int      `json:"daysSinceLastClaim"`
}

// CanClaimToday reports whether a claim is allowed given the last successful
// claim date. A lastDaily in the future (clock skew, corrupted row) counts as
// already claimed: the bias is always against double-awarding.
func CanClaimToday(lastDaily *time.Time, today time.Time) bool {
	if lastDaily == nil {
		return true
	}
	return DateOf(*lastDaily).Before(DateOf(today))
}

// CalculateStreakCount returns the streak the user would hold after claiming
// today. Claiming on consecutive days extends the streak; any gap, and any
// corrupted future date, resets it to 1. The result is always >= 1.
func CalculateStreakCount(lastDaily *time.Time, currentStreak int, today time.Time) int {
	if lastDaily == nil {
		return 1
	}
	yesterday := DateOf(today).AddDate(0, 0, -1)
	if DateOf(*lastDaily).Equal(yesterday) {
		if currentStreak < 0 {
			currentStreak = 0
		}
		return currentStreak + 1
	}
	return 1
}

// CalculateStreakBonus resolves the reward multiplier from the configured
// bonus table, a mapping of milestone length (stringified integer) to
// multiplier. A milestone applies whenever it evenly divides the streak, so
// periodic bonuses recur forever. When several milestones divide the streak
// the highest multiplier value wins, regardless of which milestone is larger.
// Malformed entries are skipped; the result never drops below 1.
func CalculateStreakBonus(streakCount int, bonuses map[string]any) int {
	bonus := 1
	if streakCount <= 0 || len(bonuses) == 0 {
		return bonus
	}
	for key, raw := range bonuses {
		milestone, err := strconv.Atoi(key)
		if err != nil || milestone <= 0 {
			continue
		}
		multiplier, ok := asMultiplier(raw)
		if !ok {
			continue
		}
		if streakCount%milestone == 0 && multiplier > bonus {
			bonus = multiplier
		}
	}
	return bonus
}

// asMultiplier coerces a decoded JSON bonus value to an integer multiplier.
func asMultiplier(raw any) (int, bool) {
	switch v := raw.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, false
		}
		return int(n), true
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// CalculateStreakResult composes eligibility, streak continuation, bonus and
// reward into one value.
func CalculateStreakResult(lastDaily *time.Time, currentStreak int, dailyAmount int64, bonuses map[string]any, today time.Time) Result {
	today = DateOf(today)
	newStreak := CalculateStreakCount(lastDaily, currentStreak, today)
	bonus := CalculateStreakBonus(newStreak, bonuses)

	result := Result{
		NewStreakCount: newStreak,
		CanClaim:       CanClaimToday(lastDaily, today),
		StreakBonus:    bonus,
		RewardAmount:   dailyAmount * int64(bonus),
		NextClaimDate:  today.AddDate(0, 0, 1),
	}

	if lastDaily != nil {
		last := DateOf(*lastDaily)
		yesterday := today.AddDate(0, 0, -1)
		result.IsStreakBroken = last.Before(yesterday) || !last.Before(today)

		days := int(today.Sub(last) / (24 * time.Hour))
		if days < 0 {
			days = 0
		}
		result.DaysSinceLastClaim = &days
	}

	return result
}

// ValidateStreakData reports whether a stored (lastDaily, streakCount) pair is
// internally consistent. Used by the integrity audit, never on the claim path:
// the claim path normalizes corrupted data instead of rejecting it.
func ValidateStreakData(lastDaily *time.Time, streakCount int, today time.Time) bool {
	if streakCount < 0 {
		return false
	}
	if lastDaily == nil {
		return streakCount == 0
	}
	return !DateOf(*lastDaily).After(DateOf(today))
}
