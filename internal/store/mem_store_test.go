package store

import (
	"context"
	"testing"
	"time"

	"github.com/adrewards/backend/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemStore(t *testing.T) {
	runStoreSuite(t, func(t *testing.T) Store {
		return NewMemStore()
	})
}

func TestMemStore_LockHeldUntilCommit(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()
	s.PutUser(&models.User{ID: "u1", Status: models.UserStatusActive, Balance: decimal.NewFromInt(10)})

	locked := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		err := s.WithTx(ctx, func(tx Tx) error {
			if err := tx.AddBalance(ctx, "u1", decimal.NewFromInt(5)); err != nil {
				return err
			}
			close(locked)
			<-release
			return nil
		})
		assert.NoError(t, err)
	}()

	<-locked
	second := make(chan *models.User, 1)
	go func() {
		_ = s.WithTx(ctx, func(tx Tx) error {
			u, err := tx.LockUser(ctx, "u1")
			second <- u
			return err
		})
	}()

	select {
	case <-second:
		t.Fatal("second transaction read the user while it was locked")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	<-done
	u := <-second
	require.NotNil(t, u)
	assert.Equal(t, "15.00", u.Balance.StringFixed(2))
}

func TestMemStore_ResetWaitsForInflightTx(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()
	s.PutUser(&models.User{ID: "u1", Status: models.UserStatusActive, DailyReward: decimal.NewFromInt(3)})

	locked := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.WithTx(ctx, func(tx Tx) error {
			if err := tx.AddDailyReward(ctx, "u1", decimal.NewFromInt(2)); err != nil {
				return err
			}
			close(locked)
			<-release
			return nil
		})
	}()

	<-locked
	resetDone := make(chan int64)
	go func() {
		n, _ := s.ResetAllDailyRewards(ctx)
		resetDone <- n
	}()

	close(release)
	<-done
	assert.Equal(t, int64(1), <-resetDone)

	u, err := s.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, u.DailyReward.IsZero())
}

func TestMemStore_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewMemStore().WithTx(ctx, func(tx Tx) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}
