package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/adrewards/backend/internal/config"
	"github.com/adrewards/backend/internal/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestEarningService_RecordAdCompletion(t *testing.T) {
	ctx := context.Background()

	t.Run("first ad replaces the signup bonus", func(t *testing.T) {
		f := newFixture(t)
		f.user("u1", nil)
		ad := f.ad(t, "50", true)

		res, err := f.earning.RecordAdCompletion(ctx, "u1", ad.ID)
		require.NoError(t, err)

		assert.Equal(t, "50.00", res.Earnings.StringFixed(2))
		assert.Equal(t, "50.00", res.NewBalance.StringFixed(2))
		assert.Equal(t, 1, res.TotalAdsCompleted)
		assert.Equal(t, models.EarningModeNormal, res.Mode)

		u := f.get(t, "u1")
		assert.Equal(t, "50.00", u.Balance.StringFixed(2))
		assert.Equal(t, "50.00", u.DailyReward.StringFixed(2))
		assert.Equal(t, 1, u.TotalAdsCompleted)

		clicks, err := f.store.ListAdClicks(ctx, "u1")
		require.NoError(t, err)
		require.Len(t, clicks, 1)
		assert.Equal(t, ad.ID, clicks[0].AdID)
		assert.Equal(t, "50.00", clicks[0].EarnedAmount.StringFixed(2))
	})

	t.Run("second ad adds", func(t *testing.T) {
		f := newFixture(t)
		f.user("u1", nil)
		ad := f.ad(t, "50", true)

		_, err := f.earning.RecordAdCompletion(ctx, "u1", ad.ID)
		require.NoError(t, err)
		res, err := f.earning.RecordAdCompletion(ctx, "u1", ad.ID)
		require.NoError(t, err)

		assert.Equal(t, "100.00", res.NewBalance.StringFixed(2))
		assert.Equal(t, 2, res.TotalAdsCompleted)
		assert.Equal(t, "100.00", f.get(t, "u1").DailyReward.StringFixed(2))
	})

	t.Run("bonus kept when balance differs from the bonus", func(t *testing.T) {
		f := newFixture(t)
		f.user("u1", func(u *models.User) { u.Balance = money("24999.99") })
		ad := f.ad(t, "50", true)

		res, err := f.earning.RecordAdCompletion(ctx, "u1", ad.ID)
		require.NoError(t, err)
		assert.Equal(t, "25049.99", res.NewBalance.StringFixed(2))
	})

	t.Run("bonus kept once an ad was completed", func(t *testing.T) {
		f := newFixture(t)
		f.user("u1", func(u *models.User) { u.TotalAdsCompleted = 3 })
		ad := f.ad(t, "50", true)

		res, err := f.earning.RecordAdCompletion(ctx, "u1", ad.ID)
		require.NoError(t, err)
		assert.Equal(t, "25050.00", res.NewBalance.StringFixed(2))
		assert.Equal(t, 4, res.TotalAdsCompleted)
	})

	t.Run("promotion mode pays the restriction commission until the limit", func(t *testing.T) {
		f := newFixture(t)
		f.user("u1", func(u *models.User) {
			u.Balance = money("100")
			u.TotalAdsCompleted = 5
			u.Restriction = &models.Restriction{AdsLimit: 2, CommissionPerAd: money("20"), DepositRequirement: money("5000")}
		})
		ad := f.ad(t, "50", true)

		for i := 1; i <= 2; i++ {
			res, err := f.earning.RecordAdCompletion(ctx, "u1", ad.ID)
			require.NoError(t, err)
			assert.Equal(t, "20.00", res.Earnings.StringFixed(2))
			assert.Equal(t, models.EarningModePromotion, res.Mode)
		}

		before := f.get(t, "u1")
		assert.Equal(t, "140.00", before.Balance.StringFixed(2))
		assert.Equal(t, 2, before.RestrictedAdsCompleted)
		assert.Equal(t, 7, before.TotalAdsCompleted)

		_, err := f.earning.RecordAdCompletion(ctx, "u1", ad.ID)
		assert.Equal(t, KindConflict, KindOf(err))
		assert.EqualError(t, err, "Promotion completed")
		assert.Equal(t, before, f.get(t, "u1"))
	})

	t.Run("promotion mode also replaces the bonus on the first ad", func(t *testing.T) {
		f := newFixture(t)
		f.user("u1", func(u *models.User) {
			u.Restriction = &models.Restriction{AdsLimit: 5, CommissionPerAd: money("12.345")}
		})
		ad := f.ad(t, "50", true)

		res, err := f.earning.RecordAdCompletion(ctx, "u1", ad.ID)
		require.NoError(t, err)
		assert.Equal(t, "12.35", res.Earnings.StringFixed(2))
		assert.Equal(t, "12.35", res.NewBalance.StringFixed(2))
	})

	t.Run("zero ads limit means normal mode", func(t *testing.T) {
		f := newFixture(t)
		f.user("u1", func(u *models.User) {
			u.TotalAdsCompleted = 1
			u.Restriction = &models.Restriction{AdsLimit: 0, CommissionPerAd: money("1")}
		})
		ad := f.ad(t, "50", true)

		res, err := f.earning.RecordAdCompletion(ctx, "u1", ad.ID)
		require.NoError(t, err)
		assert.Equal(t, models.EarningModeNormal, res.Mode)
		assert.Equal(t, "50.00", res.Earnings.StringFixed(2))
	})
}

func TestEarningService_Preconditions(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		setup   func(f *fixture) (userID string, adID int64)
		kind    ErrorKind
		message string
	}{
		{
			name: "unknown user wins over unknown ad",
			setup: func(f *fixture) (string, int64) {
				return "ghost", 999
			},
			kind:    KindNotFound,
			message: "User not found",
		},
		{
			name: "inactive account wins over unknown ad",
			setup: func(f *fixture) (string, int64) {
				f.user("u1", func(u *models.User) { u.Status = models.UserStatusPending })
				return "u1", 999
			},
			kind:    KindForbidden,
			message: "Account not active",
		},
		{
			name: "frozen account",
			setup: func(f *fixture) (string, int64) {
				f.user("u1", func(u *models.User) { u.Status = models.UserStatusFrozen })
				return "u1", 999
			},
			kind:    KindForbidden,
			message: "Account not active",
		},
		{
			name: "pending deposit",
			setup: func(f *fixture) (string, int64) {
				f.user("u1", func(u *models.User) { u.PendingDepositAmount = money("5000") })
				return "u1", 999
			},
			kind:    KindForbidden,
			message: "You have a pending deposit. Please wait for admin approval.",
		},
		{
			name: "unknown ad",
			setup: func(f *fixture) (string, int64) {
				f.user("u1", nil)
				return "u1", 999
			},
			kind:    KindNotFound,
			message: "Ad not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			userID, adID := tt.setup(f)

			_, err := f.earning.RecordAdCompletion(ctx, userID, adID)
			require.Error(t, err)
			assert.Equal(t, tt.kind, KindOf(err))
			assert.EqualError(t, err, tt.message)

			clicks, err := f.store.ListAdClicks(ctx, "")
			require.NoError(t, err)
			assert.Empty(t, clicks)
		})
	}

	t.Run("inactive ad", func(t *testing.T) {
		f := newFixture(t)
		f.user("u1", nil)
		ad := f.ad(t, "50", false)

		_, err := f.earning.RecordAdCompletion(ctx, "u1", ad.ID)
		assert.Equal(t, KindConflict, KindOf(err))
		assert.EqualError(t, err, "Ad is not active")

		u := f.get(t, "u1")
		assert.Equal(t, "25000.00", u.Balance.StringFixed(2))
		assert.Equal(t, 0, u.TotalAdsCompleted)
	})
}

func TestEarningService_ConcurrentCompletions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.user("u1", func(u *models.User) {
		u.Balance = money("0")
		u.TotalAdsCompleted = 1
	})
	ad := f.ad(t, "50", true)

	const n = 25
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.earning.RecordAdCompletion(ctx, "u1", ad.ID)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	u := f.get(t, "u1")
	assert.Equal(t, "1250.00", u.Balance.StringFixed(2))
	assert.Equal(t, "1250.00", u.DailyReward.StringFixed(2))
	assert.Equal(t, n+1, u.TotalAdsCompleted)

	clicks, err := f.store.ListAdClicks(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, clicks, n)
	assert.Equal(t, float64(n), testutil.ToFloat64(f.metrics.AdCompletions.WithLabelValues("normal")))
}

func TestEarningService_ConcurrentFirstAds(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.user("u1", nil)
	ad := f.ad(t, "50", true)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.earning.RecordAdCompletion(ctx, "u1", ad.ID)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// exactly one completion may consume the bonus
	assert.Equal(t, "500.00", f.get(t, "u1").Balance.StringFixed(2))
}

func TestEarningService_StoreFailure(t *testing.T) {
	ctx := context.Background()
	s := new(MockStore)
	cfg := config.DefaultRewardsConfig()
	metrics := NewMetrics(prometheus.NewRegistry())
	logger := zap.NewNop()
	catalog := NewAdCatalog(s, nil, cfg.AdCacheTTL, metrics, logger)
	svc := NewEarningService(s, catalog, cfg, NewAuditLogger(logger), metrics, logger)

	s.On("GetAd", mock.Anything, int64(1)).Return(&models.Ad{ID: 1, Price: money("50"), IsActive: true}, nil)
	s.On("WithTx", mock.Anything).Return(errors.New("connection refused"))

	_, err := svc.RecordAdCompletion(ctx, "u1", 1)
	assert.EqualError(t, err, "connection refused")
	assert.Equal(t, KindInternal, KindOf(err))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.OperationErrors.WithLabelValues("ad_completion", "internal")))
	s.AssertExpectations(t)
}
