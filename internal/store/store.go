// Package store persists the user ledger, ad catalog, and payout records.
//
// Every balance mutation happens inside a Tx obtained from Store.WithTx.
// A user row touched by a Tx stays locked until the Tx ends, so concurrent
// operations on the same user serialize while different users proceed
// independently. Lock order is withdrawal row first, then user row, and a
// single Tx never locks more than one user.
package store

import (
	"context"
	"errors"

	"github.com/adrewards/backend/internal/models"
	"github.com/shopspring/decimal"
)

var (
	ErrUserNotFound        = errors.New("user not found")
	ErrAdNotFound          = errors.New("ad not found")
	ErrWithdrawalNotFound  = errors.New("withdrawal not found")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrNegativeAmount      = errors.New("amount must not be negative")
	ErrFieldNotAllowed     = errors.New("field not allowed")
)

// Store is the ledger repository
type Store interface {
	// WithTx runs fn in one transaction, committing only if fn returns nil.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// EnsureUser creates u if no ledger entry exists for u.ID and returns the stored entry.
	EnsureUser(ctx context.Context, u *models.User) (*models.User, error)
	GetUser(ctx context.Context, userID string) (*models.User, error)

	CreateAd(ctx context.Context, ad *models.Ad) error
	GetAd(ctx context.Context, adID int64) (*models.Ad, error)
	ListAds(ctx context.Context, activeOnly bool) ([]models.Ad, error)
	SetAdActive(ctx context.Context, adID int64, active bool) error

	GetWithdrawal(ctx context.Context, id int64) (*models.Withdrawal, error)
	// List* methods return every record when userID is empty, newest first.
	ListWithdrawals(ctx context.Context, userID string) ([]models.Withdrawal, error)
	ListAdClicks(ctx context.Context, userID string) ([]models.AdClick, error)
	ListDeposits(ctx context.Context, userID string) ([]models.Deposit, error)

	// ResetAllDailyRewards zeroes every user's daily reward and returns the rows touched.
	ResetAllDailyRewards(ctx context.Context) (int64, error)
}

// Tx exposes the ledger primitives. Amounts are rounded to two decimals on write.
type Tx interface {
	LockUser(ctx context.Context, userID string) (*models.User, error)

	AddBalance(ctx context.Context, userID string, amount decimal.Decimal) error
	SubtractBalance(ctx context.Context, userID string, amount decimal.Decimal) error
	SetBalance(ctx context.Context, userID string, amount decimal.Decimal) error
	AddDailyReward(ctx context.Context, userID string, amount decimal.Decimal) error
	IncrementAdsCompleted(ctx context.Context, userID string) error
	IncrementRestrictedAdsCompleted(ctx context.Context, userID string) error

	SetRestriction(ctx context.Context, userID string, in models.RestrictionInput) error
	ClearRestriction(ctx context.Context, userID string) error
	SetStatus(ctx context.Context, userID string, status models.UserStatus) error
	SetAdmin(ctx context.Context, userID string, isAdmin bool) error
	ResetField(ctx context.Context, userID string, field models.ResetField) error

	InsertAdClick(ctx context.Context, click *models.AdClick) error
	InsertDeposit(ctx context.Context, deposit *models.Deposit) error
	InsertWithdrawal(ctx context.Context, w *models.Withdrawal) error
	LockWithdrawal(ctx context.Context, id int64) (*models.Withdrawal, error)
	SetWithdrawalStatus(ctx context.Context, id int64, status models.WithdrawalStatus, reason *string) error
}

// AddBalance credits amount to a user in its own transaction.
func AddBalance(ctx context.Context, s Store, userID string, amount decimal.Decimal) error {
	return s.WithTx(ctx, func(tx Tx) error {
		return tx.AddBalance(ctx, userID, amount)
	})
}

// SubtractBalance debits amount from a user in its own transaction.
func SubtractBalance(ctx context.Context, s Store, userID string, amount decimal.Decimal) error {
	return s.WithTx(ctx, func(tx Tx) error {
		return tx.SubtractBalance(ctx, userID, amount)
	})
}

func normalizeAmount(amount decimal.Decimal) (decimal.Decimal, error) {
	if amount.IsNegative() {
		return amount, ErrNegativeAmount
	}
	return models.RoundMoney(amount), nil
}
