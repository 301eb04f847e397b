package services

import (
	"context"
	"errors"
	"strconv"

	"github.com/adrewards/backend/internal/models"
	"github.com/adrewards/backend/internal/store"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DepositInput is an admin credit to a user's balance
type DepositInput struct {
	Amount      decimal.Decimal
	Type        models.DepositType
	Description string
}

// AdminService applies privileged overrides to user ledgers
type AdminService struct {
	store   store.Store
	audit   *AuditLogger
	metrics *Metrics
	log     *zap.Logger
}

func NewAdminService(s store.Store, audit *AuditLogger, metrics *Metrics, logger *zap.Logger) *AdminService {
	return &AdminService{
		store:   s,
		audit:   audit,
		metrics: metrics,
		log:     logger,
	}
}

// ManualDeposit credits amount and records the deposit in one transaction.
func (s *AdminService) ManualDeposit(ctx context.Context, actor Actor, userID string, in DepositInput) (*models.Deposit, error) {
	if err := actor.requireAdmin(); err != nil {
		return nil, err
	}
	amount := models.RoundMoney(in.Amount)
	if !amount.IsPositive() {
		return nil, Invalid("Amount must be greater than zero")
	}
	if amount.GreaterThan(models.MaxMoney) {
		return nil, Invalid("Amount exceeds the maximum")
	}
	if in.Type == "" {
		in.Type = models.DepositManualAdd
	}

	deposit := &models.Deposit{
		UserID:      userID,
		Amount:      amount,
		Type:        in.Type,
		Description: in.Description,
	}
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		if _, err := lockExisting(ctx, tx, userID); err != nil {
			return err
		}
		if err := tx.AddBalance(ctx, userID, deposit.Amount); err != nil {
			return err
		}
		return tx.InsertDeposit(ctx, deposit)
	})
	if err != nil {
		return nil, s.fail("manual_deposit", userID, err)
	}

	s.done("manual_deposit", actor, userID, deposit.Amount, map[string]string{
		"type":       string(deposit.Type),
		"deposit_id": strconv.FormatInt(deposit.ID, 10),
	})
	return deposit, nil
}

// ResetField zeroes one allow-listed ledger field and returns the updated user.
func (s *AdminService) ResetField(ctx context.Context, actor Actor, userID, field string) (*models.User, error) {
	if err := actor.requireAdmin(); err != nil {
		return nil, err
	}
	f, ok := models.ParseResetField(field)
	if !ok {
		return nil, Invalid("Field not allowed")
	}

	user, err := s.mutate(ctx, userID, func(tx store.Tx) error {
		return tx.ResetField(ctx, userID, f)
	})
	if err != nil {
		return nil, s.fail("reset_field", userID, err)
	}

	s.done("reset_field", actor, userID, decimal.Zero, map[string]string{"field": field})
	return user, nil
}

// ApplyRestriction starts a promotion window and restarts its counter.
func (s *AdminService) ApplyRestriction(ctx context.Context, actor Actor, userID string, in models.RestrictionInput) (*models.User, error) {
	if err := actor.requireAdmin(); err != nil {
		return nil, err
	}
	if in.AdsLimit <= 0 {
		return nil, Invalid("Ads limit must be greater than zero")
	}
	if in.CommissionPerAd.IsNegative() || in.DepositRequirement.IsNegative() || in.PendingDepositAmount.IsNegative() {
		return nil, Invalid("Amounts must not be negative")
	}

	user, err := s.mutate(ctx, userID, func(tx store.Tx) error {
		return tx.SetRestriction(ctx, userID, in)
	})
	if err != nil {
		return nil, s.fail("apply_restriction", userID, err)
	}

	s.done("apply_restriction", actor, userID, in.CommissionPerAd, map[string]string{
		"ads_limit":      strconv.Itoa(in.AdsLimit),
		"deposit":        in.DepositRequirement.StringFixed(2),
		"pending_amount": in.PendingDepositAmount.StringFixed(2),
	})
	return user, nil
}

// RemoveRestriction ends a promotion window and clears any pending deposit.
func (s *AdminService) RemoveRestriction(ctx context.Context, actor Actor, userID string) (*models.User, error) {
	if err := actor.requireAdmin(); err != nil {
		return nil, err
	}

	user, err := s.mutate(ctx, userID, func(tx store.Tx) error {
		return tx.ClearRestriction(ctx, userID)
	})
	if err != nil {
		return nil, s.fail("remove_restriction", userID, err)
	}

	s.done("remove_restriction", actor, userID, decimal.Zero, nil)
	return user, nil
}

// SetStatus moves a user to any status; transitions are not restricted.
func (s *AdminService) SetStatus(ctx context.Context, actor Actor, userID string, status models.UserStatus) (*models.User, error) {
	if err := actor.requireAdmin(); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, Invalid("Invalid status")
	}

	user, err := s.mutate(ctx, userID, func(tx store.Tx) error {
		return tx.SetStatus(ctx, userID, status)
	})
	if err != nil {
		return nil, s.fail("set_status", userID, err)
	}

	s.done("set_status", actor, userID, decimal.Zero, map[string]string{"status": string(status)})
	return user, nil
}

// SetAdmin grants or revokes the admin capability. An admin cannot revoke
// their own capability.
func (s *AdminService) SetAdmin(ctx context.Context, actor Actor, userID string, isAdmin bool) (*models.User, error) {
	if err := actor.requireAdmin(); err != nil {
		return nil, err
	}
	if !isAdmin && actor.UserID == userID {
		return nil, Invalid("Cannot revoke your own admin access")
	}

	user, err := s.mutate(ctx, userID, func(tx store.Tx) error {
		return tx.SetAdmin(ctx, userID, isAdmin)
	})
	if err != nil {
		return nil, s.fail("set_admin", userID, err)
	}

	s.done("set_admin", actor, userID, decimal.Zero, map[string]string{"is_admin": strconv.FormatBool(isAdmin)})
	return user, nil
}

// ResetAllDailyRewards zeroes every daily reward. Called by the scheduler and
// by the admin trigger; there is no actor check here.
func (s *AdminService) ResetAllDailyRewards(ctx context.Context) (int64, error) {
	n, err := s.store.ResetAllDailyRewards(ctx)
	if err != nil {
		s.metrics.observeError("daily_reset", err)
		s.log.Error("Daily reward reset failed", zap.Error(err))
		return n, err
	}
	s.metrics.DailyResets.Inc()
	s.log.Info("Daily rewards reset", zap.Int64("users", n))
	return n, nil
}

// GetUser returns the ledger of userID to the user themselves or an admin
func (s *AdminService) GetUser(ctx context.Context, actor Actor, userID string) (*models.User, error) {
	if !actor.IsAdmin && actor.UserID != userID {
		return nil, Forbidden("Forbidden")
	}
	u, err := s.store.GetUser(ctx, userID)
	if errors.Is(err, store.ErrUserNotFound) {
		return nil, NotFound("User not found")
	}
	return u, err
}

// ListDeposits returns deposits for one user, or all when userID is empty
func (s *AdminService) ListDeposits(ctx context.Context, actor Actor, userID string) ([]models.Deposit, error) {
	if err := actor.requireAdmin(); err != nil {
		return nil, err
	}
	return s.store.ListDeposits(ctx, userID)
}

// ListAdClicks returns the earning audit trail for one user, or all when userID is empty
func (s *AdminService) ListAdClicks(ctx context.Context, actor Actor, userID string) ([]models.AdClick, error) {
	if err := actor.requireAdmin(); err != nil {
		return nil, err
	}
	return s.store.ListAdClicks(ctx, userID)
}

// mutate runs fn against an existing user and returns the user as committed
func (s *AdminService) mutate(ctx context.Context, userID string, fn func(tx store.Tx) error) (*models.User, error) {
	var updated *models.User
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		if _, err := lockExisting(ctx, tx, userID); err != nil {
			return err
		}
		if err := fn(tx); err != nil {
			return err
		}
		var err error
		updated, err = tx.LockUser(ctx, userID)
		return err
	})
	return updated, err
}

func (s *AdminService) fail(operation, userID string, err error) error {
	if errors.Is(err, store.ErrFieldNotAllowed) {
		err = Invalid("Field not allowed")
	}
	s.metrics.observeError(operation, err)
	if KindOf(err) == KindInternal {
		s.log.Error("Admin operation failed", zap.String("operation", operation), zap.String("user_id", userID), zap.Error(err))
	}
	return err
}

func (s *AdminService) done(operation string, actor Actor, userID string, amount decimal.Decimal, details map[string]string) {
	s.metrics.AdminOperations.WithLabelValues(operation).Inc()
	s.audit.LogAdminAction(actor.UserID, userID, operation, amount, details)
}

func lockExisting(ctx context.Context, tx store.Tx, userID string) (*models.User, error) {
	u, err := tx.LockUser(ctx, userID)
	if errors.Is(err, store.ErrUserNotFound) {
		return nil, NotFound("User not found")
	}
	return u, err
}
