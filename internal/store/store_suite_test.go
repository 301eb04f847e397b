package store

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"

	"github.com/adrewards/backend/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runStoreSuite exercises the Store contract against any implementation.
func runStoreSuite(t *testing.T, open func(t *testing.T) Store) {
	ctx := context.Background()

	seedUser := func(t *testing.T, s Store, balance string) string {
		t.Helper()
		id := uuid.NewString()
		_, err := s.EnsureUser(ctx, &models.User{
			ID:      id,
			Email:   id + "@example.com",
			Status:  models.UserStatusActive,
			Balance: decimal.RequireFromString(balance),
		})
		require.NoError(t, err)
		return id
	}

	t.Run("ensure user is idempotent", func(t *testing.T) {
		s := open(t)
		id := seedUser(t, s, "25000")

		again, err := s.EnsureUser(ctx, &models.User{ID: id, Status: models.UserStatusPending, Balance: decimal.NewFromInt(1)})
		require.NoError(t, err)
		assert.Equal(t, "25000.00", again.Balance.StringFixed(2))
		assert.Equal(t, models.UserStatusActive, again.Status)
		assert.Nil(t, again.Restriction)
	})

	t.Run("unknown user", func(t *testing.T) {
		s := open(t)

		_, err := s.GetUser(ctx, "missing")
		assert.ErrorIs(t, err, ErrUserNotFound)

		err = AddBalance(ctx, s, "missing", decimal.NewFromInt(1))
		assert.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("balance primitives", func(t *testing.T) {
		s := open(t)
		id := seedUser(t, s, "100")

		require.NoError(t, AddBalance(ctx, s, id, decimal.RequireFromString("50.255")))
		require.NoError(t, SubtractBalance(ctx, s, id, decimal.RequireFromString("0.26")))

		u, err := s.GetUser(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "150.00", u.Balance.StringFixed(2))

		err = SubtractBalance(ctx, s, id, decimal.RequireFromString("150.01"))
		assert.ErrorIs(t, err, ErrInsufficientBalance)

		err = AddBalance(ctx, s, id, decimal.NewFromInt(-1))
		assert.ErrorIs(t, err, ErrNegativeAmount)

		require.NoError(t, s.WithTx(ctx, func(tx Tx) error {
			return tx.SetBalance(ctx, id, decimal.NewFromInt(7))
		}))
		u, err = s.GetUser(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "7.00", u.Balance.StringFixed(2))
	})

	t.Run("failed transaction leaves no trace", func(t *testing.T) {
		s := open(t)
		id := seedUser(t, s, "100")
		boom := errors.New("boom")

		err := s.WithTx(ctx, func(tx Tx) error {
			if err := tx.AddBalance(ctx, id, decimal.NewFromInt(10)); err != nil {
				return err
			}
			if err := tx.IncrementAdsCompleted(ctx, id); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)

		u, err := s.GetUser(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "100.00", u.Balance.StringFixed(2))
		assert.Equal(t, 0, u.TotalAdsCompleted)
	})

	t.Run("counters and daily reward", func(t *testing.T) {
		s := open(t)
		id := seedUser(t, s, "0")

		require.NoError(t, s.WithTx(ctx, func(tx Tx) error {
			if err := tx.AddDailyReward(ctx, id, decimal.RequireFromString("12.50")); err != nil {
				return err
			}
			if err := tx.IncrementAdsCompleted(ctx, id); err != nil {
				return err
			}
			return tx.IncrementAdsCompleted(ctx, id)
		}))

		u, err := s.GetUser(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "12.50", u.DailyReward.StringFixed(2))
		assert.Equal(t, 2, u.TotalAdsCompleted)

		n, err := s.ResetAllDailyRewards(ctx)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, int64(1))

		u, err = s.GetUser(ctx, id)
		require.NoError(t, err)
		assert.True(t, u.DailyReward.IsZero())
		assert.Equal(t, 2, u.TotalAdsCompleted)
	})

	t.Run("restriction lifecycle", func(t *testing.T) {
		s := open(t)
		id := seedUser(t, s, "0")

		require.NoError(t, s.WithTx(ctx, func(tx Tx) error {
			return tx.SetRestriction(ctx, id, models.RestrictionInput{
				AdsLimit:             3,
				DepositRequirement:   decimal.NewFromInt(5000),
				CommissionPerAd:      decimal.RequireFromString("120.5"),
				PendingDepositAmount: decimal.NewFromInt(5000),
			})
		}))
		require.NoError(t, s.WithTx(ctx, func(tx Tx) error {
			return tx.IncrementRestrictedAdsCompleted(ctx, id)
		}))

		u, err := s.GetUser(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, u.Restriction)
		assert.True(t, u.InPromotionMode())
		assert.Equal(t, 3, u.Restriction.AdsLimit)
		assert.Equal(t, "120.50", u.Restriction.CommissionPerAd.StringFixed(2))
		assert.Equal(t, "5000.00", u.Restriction.DepositRequirement.StringFixed(2))
		assert.Equal(t, 1, u.Restriction.CompletedCount)
		assert.True(t, u.HasPendingDeposit())

		require.NoError(t, s.WithTx(ctx, func(tx Tx) error {
			return tx.ClearRestriction(ctx, id)
		}))

		u, err = s.GetUser(ctx, id)
		require.NoError(t, err)
		assert.Nil(t, u.Restriction)
		assert.False(t, u.HasPendingDeposit())
		assert.Equal(t, 0, u.RestrictedAdsCompleted)
	})

	t.Run("reset field touches only its column", func(t *testing.T) {
		s := open(t)
		id := seedUser(t, s, "300")

		require.NoError(t, s.WithTx(ctx, func(tx Tx) error {
			if err := tx.AddDailyReward(ctx, id, decimal.NewFromInt(40)); err != nil {
				return err
			}
			return tx.IncrementAdsCompleted(ctx, id)
		}))

		require.NoError(t, s.WithTx(ctx, func(tx Tx) error {
			return tx.ResetField(ctx, id, models.ResetDailyReward)
		}))
		u, err := s.GetUser(ctx, id)
		require.NoError(t, err)
		assert.True(t, u.DailyReward.IsZero())
		assert.Equal(t, "300.00", u.Balance.StringFixed(2))
		assert.Equal(t, 1, u.TotalAdsCompleted)

		require.NoError(t, s.WithTx(ctx, func(tx Tx) error {
			return tx.ResetField(ctx, id, models.ResetTotalAdsCompleted)
		}))
		u, err = s.GetUser(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, 0, u.TotalAdsCompleted)
		assert.Equal(t, "300.00", u.Balance.StringFixed(2))

		err = s.WithTx(ctx, func(tx Tx) error {
			return tx.ResetField(ctx, id, models.ResetField("isAdmin"))
		})
		assert.ErrorIs(t, err, ErrFieldNotAllowed)
	})

	t.Run("status", func(t *testing.T) {
		s := open(t)
		id := seedUser(t, s, "0")

		require.NoError(t, s.WithTx(ctx, func(tx Tx) error {
			return tx.SetStatus(ctx, id, models.UserStatusFrozen)
		}))
		u, err := s.GetUser(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, models.UserStatusFrozen, u.Status)
	})

	t.Run("admin flag", func(t *testing.T) {
		s := open(t)
		id := seedUser(t, s, "0")

		require.NoError(t, s.WithTx(ctx, func(tx Tx) error {
			return tx.SetAdmin(ctx, id, true)
		}))
		u, err := s.GetUser(ctx, id)
		require.NoError(t, err)
		assert.True(t, u.IsAdmin)

		err = s.WithTx(ctx, func(tx Tx) error {
			return tx.SetAdmin(ctx, "ghost", true)
		})
		assert.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("ads", func(t *testing.T) {
		s := open(t)

		active := &models.Ad{Title: "Active", Price: decimal.NewFromInt(50), IsActive: true}
		inactive := &models.Ad{Title: "Paused", Price: decimal.NewFromInt(10), IsActive: false}
		require.NoError(t, s.CreateAd(ctx, active))
		require.NoError(t, s.CreateAd(ctx, inactive))
		assert.NotZero(t, active.ID)

		got, err := s.GetAd(ctx, active.ID)
		require.NoError(t, err)
		assert.Equal(t, "Active", got.Title)
		assert.Equal(t, "50.00", got.Price.StringFixed(2))
		assert.True(t, got.IsActive)

		_, err = s.GetAd(ctx, 9999)
		assert.ErrorIs(t, err, ErrAdNotFound)

		all, err := s.ListAds(ctx, false)
		require.NoError(t, err)
		assert.Len(t, all, 2)

		onlyActive, err := s.ListAds(ctx, true)
		require.NoError(t, err)
		require.Len(t, onlyActive, 1)
		assert.Equal(t, active.ID, onlyActive[0].ID)

		require.NoError(t, s.SetAdActive(ctx, inactive.ID, true))
		require.NoError(t, s.SetAdActive(ctx, active.ID, false))
		got, err = s.GetAd(ctx, active.ID)
		require.NoError(t, err)
		assert.False(t, got.IsActive)
		onlyActive, err = s.ListAds(ctx, true)
		require.NoError(t, err)
		require.Len(t, onlyActive, 1)
		assert.Equal(t, inactive.ID, onlyActive[0].ID)
		assert.ErrorIs(t, s.SetAdActive(ctx, 9999, true), ErrAdNotFound)
	})

	t.Run("ad clicks and deposits", func(t *testing.T) {
		s := open(t)
		id := seedUser(t, s, "0")
		other := seedUser(t, s, "0")
		ad := &models.Ad{Title: "Ad", Price: decimal.NewFromInt(5), IsActive: true}
		require.NoError(t, s.CreateAd(ctx, ad))

		require.NoError(t, s.WithTx(ctx, func(tx Tx) error {
			if err := tx.InsertAdClick(ctx, &models.AdClick{UserID: id, AdID: ad.ID, EarnedAmount: decimal.NewFromInt(5)}); err != nil {
				return err
			}
			if err := tx.InsertAdClick(ctx, &models.AdClick{UserID: other, AdID: ad.ID, EarnedAmount: decimal.NewFromInt(5), Mode: models.EarningModePromotion}); err != nil {
				return err
			}
			return tx.InsertDeposit(ctx, &models.Deposit{UserID: id, Amount: decimal.NewFromInt(100), Type: models.DepositAdminBonus, Description: "welcome"})
		}))

		clicks, err := s.ListAdClicks(ctx, id)
		require.NoError(t, err)
		require.Len(t, clicks, 1)
		assert.Equal(t, models.EarningModeNormal, clicks[0].Mode)
		assert.Equal(t, "5.00", clicks[0].EarnedAmount.StringFixed(2))

		all, err := s.ListAdClicks(ctx, "")
		require.NoError(t, err)
		assert.Len(t, all, 2)

		deposits, err := s.ListDeposits(ctx, id)
		require.NoError(t, err)
		require.Len(t, deposits, 1)
		assert.Equal(t, models.DepositAdminBonus, deposits[0].Type)
		assert.Equal(t, "welcome", deposits[0].Description)
	})

	t.Run("withdrawal records", func(t *testing.T) {
		s := open(t)
		id := seedUser(t, s, "5000")

		w := &models.Withdrawal{UserID: id, Amount: decimal.NewFromInt(1500), Method: models.PayoutEzCash, AccountDetails: "0771234567"}
		require.NoError(t, s.WithTx(ctx, func(tx Tx) error {
			return tx.InsertWithdrawal(ctx, w)
		}))
		assert.NotZero(t, w.ID)
		assert.Equal(t, models.WithdrawalPending, w.Status)

		reason := "duplicate request"
		require.NoError(t, s.WithTx(ctx, func(tx Tx) error {
			locked, err := tx.LockWithdrawal(ctx, w.ID)
			if err != nil {
				return err
			}
			assert.Equal(t, models.WithdrawalPending, locked.Status)
			return tx.SetWithdrawalStatus(ctx, w.ID, models.WithdrawalRejected, &reason)
		}))

		got, err := s.GetWithdrawal(ctx, w.ID)
		require.NoError(t, err)
		assert.Equal(t, models.WithdrawalRejected, got.Status)
		require.NotNil(t, got.Reason)
		assert.Equal(t, reason, *got.Reason)
		assert.NotNil(t, got.ProcessedAt)

		list, err := s.ListWithdrawals(ctx, id)
		require.NoError(t, err)
		assert.Len(t, list, 1)

		_, err = s.GetWithdrawal(ctx, 424242)
		assert.ErrorIs(t, err, ErrWithdrawalNotFound)

		err = s.WithTx(ctx, func(tx Tx) error {
			_, err := tx.LockWithdrawal(ctx, 424242)
			return err
		})
		assert.ErrorIs(t, err, ErrWithdrawalNotFound)
	})

	t.Run("concurrent credits on one user are all applied", func(t *testing.T) {
		s := open(t)
		id := seedUser(t, s, "0")

		const n = 40
		var wg sync.WaitGroup
		errs := make(chan error, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs <- AddBalance(ctx, s, id, decimal.NewFromInt(1))
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		u, err := s.GetUser(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("%d.00", n), u.Balance.StringFixed(2))
	})

	t.Run("random interleavings never go negative", func(t *testing.T) {
		s := open(t)
		ids := []string{seedUser(t, s, "10"), seedUser(t, s, "10"), seedUser(t, s, "10")}

		const workers, ops = 6, 25
		var wg sync.WaitGroup
		var mu sync.Mutex
		net := map[string]decimal.Decimal{}
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func(seed int64) {
				defer wg.Done()
				rng := rand.New(rand.NewSource(seed))
				for i := 0; i < ops; i++ {
					id := ids[rng.Intn(len(ids))]
					amount := decimal.NewFromInt(int64(rng.Intn(7) + 1))
					var err error
					delta := amount
					if rng.Intn(2) == 0 {
						err = SubtractBalance(ctx, s, id, amount)
						delta = amount.Neg()
					} else {
						err = AddBalance(ctx, s, id, amount)
					}
					if errors.Is(err, ErrInsufficientBalance) {
						continue
					}
					if !assert.NoError(t, err) {
						return
					}
					mu.Lock()
					net[id] = net[id].Add(delta)
					mu.Unlock()
				}
			}(int64(w + 1))
		}
		wg.Wait()

		for _, id := range ids {
			u, err := s.GetUser(ctx, id)
			require.NoError(t, err)
			assert.False(t, u.Balance.IsNegative())
			assert.Equal(t, decimal.NewFromInt(10).Add(net[id]).StringFixed(2), u.Balance.StringFixed(2))
		}
	})
}
