package services

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/bytecord/backend/internal/models"
)

type MockBalanceStore struct {
	mock.Mock
}

func (m *MockBalanceStore) GetBalance(ctx context.Context, guildID, userID string) (*models.Balance, error) {
	args := m.Called(ctx, guildID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Balance), args.Error(1)
}

func (m *MockBalanceStore) GetOrCreateBalance(ctx context.Context, guildID, userID string, startingBalance int64) (*models.Balance, error) {
	args := m.Called(ctx, guildID, userID, startingBalance)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Balance), args.Error(1)
}

func (m *MockBalanceStore) UpdateDailyReward(ctx context.Context, guildID, userID string, dailyAmount int64, streakBonus, newStreakCount int, claimDate time.Time) (*models.Balance, error) {
	args := m.Called(ctx, guildID, userID, dailyAmount, streakBonus, newStreakCount, claimDate)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Balance), args.Error(1)
}

func (m *MockBalanceStore) CreateTransaction(ctx context.Context, guildID, giverID, receiverID string, amount int64, reason string) (*models.Transaction, error) {
	args := m.Called(ctx, guildID, giverID, receiverID, amount, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Transaction), args.Error(1)
}

func (m *MockBalanceStore) ResetStreak(ctx context.Context, guildID, userID string) (*models.Balance, error) {
	args := m.Called(ctx, guildID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Balance), args.Error(1)
}

func (m *MockBalanceStore) GetLeaderboard(ctx context.Context, guildID string, limit int) ([]models.Balance, error) {
	args := m.Called(ctx, guildID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Balance), args.Error(1)
}

// memoryStore is a mutex-guarded in-memory BalanceStore. Its UpdateDailyReward
// applies the same compare-and-set the SQL conditional update does, so it can
// stand in for Postgres in concurrency tests.
type memoryStore struct {
	mu       sync.Mutex
	balances map[string]*models.Balance
	ledger   []models.Transaction
}

func newMemoryStore() *memoryStore {
	return &memoryStore{balances: make(map[string]*models.Balance)}
}

func storeKey(guildID, userID string) string {
	return guildID + ":" + userID
}

func (s *memoryStore) GetBalance(ctx context.Context, guildID, userID string) (*models.Balance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.balances[storeKey(guildID, userID)]
	if !ok {
		return nil, nil
	}
	copied := *b
	return &copied, nil
}

func (s *memoryStore) GetOrCreateBalance(ctx context.Context, guildID, userID string, startingBalance int64) (*models.Balance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := storeKey(guildID, userID)
	if b, ok := s.balances[key]; ok {
		copied := *b
		return &copied, nil
	}
	now := time.Now().UTC()
	b := &models.Balance{
		GuildID:   guildID,
		UserID:    userID,
		Balance:   startingBalance,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.balances[key] = b
	copied := *b
	return &copied, nil
}

func (s *memoryStore) UpdateDailyReward(ctx context.Context, guildID, userID string, dailyAmount int64, streakBonus, newStreakCount int, claimDate time.Time) (*models.Balance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.balances[storeKey(guildID, userID)]
	if !ok {
		return nil, ErrAlreadyClaimed
	}
	if b.LastDaily != nil && b.LastDaily.Equal(claimDate) {
		return nil, ErrAlreadyClaimed
	}
	reward := dailyAmount * int64(streakBonus)
	b.Balance += reward
	b.TotalReceived += reward
	b.StreakCount = newStreakCount
	d := claimDate
	b.LastDaily = &d
	b.UpdatedAt = time.Now().UTC()
	s.ledger = append(s.ledger, models.Transaction{
		GuildID:    guildID,
		GiverID:    models.SystemUserID,
		ReceiverID: userID,
		Amount:     reward,
		CreatedAt:  time.Now().UTC(),
	})
	copied := *b
	return &copied, nil
}

func (s *memoryStore) CreateTransaction(ctx context.Context, guildID, giverID, receiverID string, amount int64, reason string) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if giverID != models.SystemUserID {
		giver, ok := s.balances[storeKey(guildID, giverID)]
		if !ok || giver.Balance < amount {
			return nil, ErrInsufficientBalance
		}
		giver.Balance -= amount
		giver.TotalSent += amount
	}
	if receiverID != models.SystemUserID {
		receiver, ok := s.balances[storeKey(guildID, receiverID)]
		if !ok {
			return nil, ErrInsufficientBalance
		}
		receiver.Balance += amount
		receiver.TotalReceived += amount
	}
	tx := models.Transaction{
		GuildID:    guildID,
		GiverID:    giverID,
		ReceiverID: receiverID,
		Amount:     amount,
		Reason:     reason,
		CreatedAt:  time.Now().UTC(),
	}
	s.ledger = append(s.ledger, tx)
	return &tx, nil
}

func (s *memoryStore) ResetStreak(ctx context.Context, guildID, userID string) (*models.Balance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.balances[storeKey(guildID, userID)]
	if !ok {
		return nil, ErrAlreadyClaimed
	}
	b.StreakCount = 0
	copied := *b
	return &copied, nil
}

func (s *memoryStore) GetLeaderboard(ctx context.Context, guildID string, limit int) ([]models.Balance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Balance{}
	for _, b := range s.balances {
		if b.GuildID == guildID {
			out = append(out, *b)
		}
	}
	return out, nil
}
