package services

import (
	"context"
	"errors"
	"strconv"

	"github.com/adrewards/backend/internal/config"
	"github.com/adrewards/backend/internal/models"
	"github.com/adrewards/backend/internal/store"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CreateWithdrawalInput is a validated payout request
type CreateWithdrawalInput struct {
	Amount         decimal.Decimal
	Method         models.PayoutMethod
	AccountDetails string
}

// WithdrawalService runs the pending -> approved | rejected payout workflow
type WithdrawalService struct {
	store   store.Store
	cfg     *config.RewardsConfig
	audit   *AuditLogger
	metrics *Metrics
	log     *zap.Logger
}

func NewWithdrawalService(s store.Store, cfg *config.RewardsConfig, audit *AuditLogger, metrics *Metrics, logger *zap.Logger) *WithdrawalService {
	return &WithdrawalService{
		store:   s,
		cfg:     cfg,
		audit:   audit,
		metrics: metrics,
		log:     logger,
	}
}

// Create files a pending withdrawal. The balance is not reserved; it is
// re-checked and debited only on approval.
func (s *WithdrawalService) Create(ctx context.Context, userID string, in CreateWithdrawalInput) (*models.Withdrawal, error) {
	amount := models.RoundMoney(in.Amount)
	if amount.LessThan(s.cfg.MinimumWithdrawal) {
		err := Invalid("Minimum withdrawal amount is %s", s.cfg.MinimumWithdrawal.StringFixed(2))
		s.metrics.observeError("withdrawal_create", err)
		return nil, err
	}

	w := &models.Withdrawal{
		UserID:         userID,
		Amount:         amount,
		Method:         in.Method,
		AccountDetails: in.AccountDetails,
		Status:         models.WithdrawalPending,
	}
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		user, err := tx.LockUser(ctx, userID)
		if errors.Is(err, store.ErrUserNotFound) {
			return NotFound("User not found")
		}
		if err != nil {
			return err
		}

		if user.TotalAdsCompleted < s.cfg.PayoutUnlockAds {
			return Invalid("Payout requires at least %d ads completed. You have completed %d.",
				s.cfg.PayoutUnlockAds, user.TotalAdsCompleted)
		}
		if amount.GreaterThan(user.Balance) {
			return Invalid("Insufficient balance")
		}
		return tx.InsertWithdrawal(ctx, w)
	})
	if err != nil {
		s.metrics.observeError("withdrawal_create", err)
		return nil, err
	}

	s.metrics.Withdrawals.WithLabelValues(string(models.WithdrawalPending)).Inc()
	s.audit.LogWithdrawal("WITHDRAWAL_REQUESTED", userID, userID, strconv.FormatInt(w.ID, 10), w.Amount, string(w.Status))
	return w, nil
}

// Approve debits the requester and marks the withdrawal approved, atomically.
func (s *WithdrawalService) Approve(ctx context.Context, actor Actor, id int64) (*models.Withdrawal, error) {
	if err := actor.requireAdmin(); err != nil {
		return nil, err
	}

	var approved *models.Withdrawal
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		w, err := s.lockPending(ctx, tx, id)
		if err != nil {
			return err
		}

		user, err := tx.LockUser(ctx, w.UserID)
		if errors.Is(err, store.ErrUserNotFound) {
			return NotFound("User not found")
		}
		if err != nil {
			return err
		}
		if user.Balance.LessThan(w.Amount) {
			return Invalid("Insufficient balance")
		}

		if err := tx.SubtractBalance(ctx, w.UserID, w.Amount); err != nil {
			if errors.Is(err, store.ErrInsufficientBalance) {
				return Invalid("Insufficient balance")
			}
			return err
		}
		if err := tx.SetWithdrawalStatus(ctx, id, models.WithdrawalApproved, nil); err != nil {
			return err
		}

		approved, err = tx.LockWithdrawal(ctx, id)
		return err
	})
	if err != nil {
		s.metrics.observeError("withdrawal_approve", err)
		if KindOf(err) == KindInternal {
			s.log.Error("Withdrawal approval failed", zap.Int64("withdrawal_id", id), zap.Error(err))
		}
		return nil, err
	}

	s.metrics.Withdrawals.WithLabelValues(string(models.WithdrawalApproved)).Inc()
	s.audit.LogWithdrawal("WITHDRAWAL_APPROVED", actor.UserID, approved.UserID, strconv.FormatInt(id, 10), approved.Amount, string(approved.Status))
	return approved, nil
}

// Reject closes a pending withdrawal without touching the balance.
func (s *WithdrawalService) Reject(ctx context.Context, actor Actor, id int64, reason string) (*models.Withdrawal, error) {
	if err := actor.requireAdmin(); err != nil {
		return nil, err
	}

	var rejected *models.Withdrawal
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		if _, err := s.lockPending(ctx, tx, id); err != nil {
			return err
		}

		var r *string
		if reason != "" {
			r = &reason
		}
		if err := tx.SetWithdrawalStatus(ctx, id, models.WithdrawalRejected, r); err != nil {
			return err
		}

		var err error
		rejected, err = tx.LockWithdrawal(ctx, id)
		return err
	})
	if err != nil {
		s.metrics.observeError("withdrawal_reject", err)
		return nil, err
	}

	s.metrics.Withdrawals.WithLabelValues(string(models.WithdrawalRejected)).Inc()
	s.audit.LogWithdrawal("WITHDRAWAL_REJECTED", actor.UserID, rejected.UserID, strconv.FormatInt(id, 10), rejected.Amount, string(rejected.Status))
	return rejected, nil
}

func (s *WithdrawalService) lockPending(ctx context.Context, tx store.Tx, id int64) (*models.Withdrawal, error) {
	w, err := tx.LockWithdrawal(ctx, id)
	if errors.Is(err, store.ErrWithdrawalNotFound) {
		return nil, NotFound("Withdrawal not found")
	}
	if err != nil {
		return nil, err
	}
	if w.Status != models.WithdrawalPending {
		return nil, Conflict("Already processed")
	}
	return w, nil
}

// List returns every withdrawal for admins and the caller's own otherwise
func (s *WithdrawalService) List(ctx context.Context, actor Actor) ([]models.Withdrawal, error) {
	if actor.IsAdmin {
		return s.store.ListWithdrawals(ctx, "")
	}
	return s.store.ListWithdrawals(ctx, actor.UserID)
}

// Get returns a withdrawal visible to actor
func (s *WithdrawalService) Get(ctx context.Context, actor Actor, id int64) (*models.Withdrawal, error) {
	w, err := s.store.GetWithdrawal(ctx, id)
	if errors.Is(err, store.ErrWithdrawalNotFound) {
		return nil, NotFound("Withdrawal not found")
	}
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin && w.UserID != actor.UserID {
		return nil, NotFound("Withdrawal not found")
	}
	return w, nil
}
