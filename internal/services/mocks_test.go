package services

import (
	"context"

	"github.com/adrewards/backend/internal/models"
	"github.com/adrewards/backend/internal/store"
	"github.com/stretchr/testify/mock"
)

// MockStore lets tests inject storage failures
type MockStore struct {
	mock.Mock
}

func (m *MockStore) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockStore) EnsureUser(ctx context.Context, u *models.User) (*models.User, error) {
	args := m.Called(ctx, u)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockStore) GetUser(ctx context.Context, userID string) (*models.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockStore) CreateAd(ctx context.Context, ad *models.Ad) error {
	args := m.Called(ctx, ad)
	return args.Error(0)
}

func (m *MockStore) GetAd(ctx context.Context, adID int64) (*models.Ad, error) {
	args := m.Called(ctx, adID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Ad), args.Error(1)
}

func (m *MockStore) SetAdActive(ctx context.Context, adID int64, active bool) error {
	args := m.Called(ctx, adID, active)
	return args.Error(0)
}

func (m *MockStore) ListAds(ctx context.Context, activeOnly bool) ([]models.Ad, error) {
	args := m.Called(ctx, activeOnly)
	return args.Get(0).([]models.Ad), args.Error(1)
}

func (m *MockStore) GetWithdrawal(ctx context.Context, id int64) (*models.Withdrawal, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Withdrawal), args.Error(1)
}

func (m *MockStore) ListWithdrawals(ctx context.Context, userID string) ([]models.Withdrawal, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]models.Withdrawal), args.Error(1)
}

func (m *MockStore) ListAdClicks(ctx context.Context, userID string) ([]models.AdClick, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]models.AdClick), args.Error(1)
}

func (m *MockStore) ListDeposits(ctx context.Context, userID string) ([]models.Deposit, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]models.Deposit), args.Error(1)
}

func (m *MockStore) ResetAllDailyRewards(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}
