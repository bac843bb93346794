package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/bytecord/backend/internal/models"
	"github.com/bytecord/backend/internal/streak"
)

// DailyService orchestrates the daily claim: load, evaluate with the pure
// calculator, then apply through the store's conditional update. The service
// itself holds no locks; when two requests race, the store applies exactly
// one and the loser gets the same ErrAlreadyClaimed a repeat claim would.
type DailyService struct {
	store   BalanceStore
	configs *ConfigService
	clock   streak.Clock
	audit   *AuditLogger
}

func NewDailyService(store BalanceStore, configs *ConfigService, clock streak.Clock) *DailyService {
	return &DailyService{
		store:   store,
		configs: configs,
		clock:   clock,
		audit:   NewAuditLogger(),
	}
}

// ClaimResult is the successful claim response.
type ClaimResult struct {
	Balance       *models.Balance `json:"balance"`
	RewardAmount  int64           `json:"reward_amount"`
	StreakBonus   int             `json:"streak_bonus"`
	NextClaimDate time.Time       `json:"next_claim_at"`
}

// Claim awards the daily reward at most once per UTC calendar day.
func (s *DailyService) Claim(ctx context.Context, guildID, userID string) (*ClaimResult, error) {
	cfg, err := s.configs.GetConfig(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to load guild config: %w", err)
	}
	if !cfg.IsEnabled {
		return nil, ErrBytesDisabled
	}

	balance, err := s.store.GetOrCreateBalance(ctx, guildID, userID, cfg.StartingBalance)
	if err != nil {
		return nil, err
	}

	today := s.clock.Today()
	result := streak.CalculateStreakResult(balance.LastDaily, balance.StreakCount, cfg.DailyAmount, cfg.StreakBonuses, today)
	if !result.CanClaim {
		return nil, ErrAlreadyClaimed
	}

	updated, err := s.store.UpdateDailyReward(ctx, guildID, userID, cfg.DailyAmount, result.StreakBonus, result.NewStreakCount, today)
	if err != nil {
		if !errors.Is(err, ErrAlreadyClaimed) {
			s.audit.LogError(guildID, userID, err)
		}
		return nil, err
	}

	s.audit.LogClaim(guildID, userID, result.RewardAmount, result.NewStreakCount, result.StreakBonus)
	if result.IsStreakBroken {
		log.Printf("[DAILY] Streak reset for guild=%s user=%s after gap", guildID, userID)
	}

	return &ClaimResult{
		Balance:       updated,
		RewardAmount:  result.RewardAmount,
		StreakBonus:   result.StreakBonus,
		NextClaimDate: result.NextClaimDate,
	}, nil
}
