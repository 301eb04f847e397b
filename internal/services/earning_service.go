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

// AdCompletion is the outcome of a credited ad view
type AdCompletion struct {
	Earnings          decimal.Decimal
	NewBalance        decimal.Decimal
	TotalAdsCompleted int
	Mode              models.EarningMode
	ClickID           int64
}

// EarningService credits users for completed ads
type EarningService struct {
	store   store.Store
	catalog *AdCatalog
	cfg     *config.RewardsConfig
	audit   *AuditLogger
	metrics *Metrics
	log     *zap.Logger
}

func NewEarningService(s store.Store, catalog *AdCatalog, cfg *config.RewardsConfig, audit *AuditLogger, metrics *Metrics, logger *zap.Logger) *EarningService {
	return &EarningService{
		store:   s,
		catalog: catalog,
		cfg:     cfg,
		audit:   audit,
		metrics: metrics,
		log:     logger,
	}
}

// RecordAdCompletion credits userID for viewing adID.
//
// The first credited ad of a user still holding exactly the signup bonus
// replaces that bonus with the commission instead of adding to it. Users in a
// promotion window earn the restriction commission until its ad limit is hit.
// All ledger writes and the audit record commit together or not at all.
func (s *EarningService) RecordAdCompletion(ctx context.Context, userID string, adID int64) (*AdCompletion, error) {
	// The ad is read before the user lock so the catalog never waits on a ledger
	// transaction; its errors are reported after the user checks to keep precedence.
	ad, adErr := s.catalog.Get(ctx, adID)

	var result AdCompletion
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		user, err := tx.LockUser(ctx, userID)
		if errors.Is(err, store.ErrUserNotFound) {
			return NotFound("User not found")
		}
		if err != nil {
			return err
		}

		if user.Status != models.UserStatusActive {
			return Forbidden("Account not active")
		}
		if user.HasPendingDeposit() {
			return Forbidden("You have a pending deposit. Please wait for admin approval.")
		}
		if adErr != nil {
			return adErr
		}
		if !ad.IsActive {
			return Conflict("Ad is not active")
		}

		commission := ad.Price
		mode := models.EarningModeNormal
		if user.InPromotionMode() {
			if user.RestrictedAdsCompleted >= user.Restriction.AdsLimit {
				return Conflict("Promotion completed")
			}
			commission = user.Restriction.CommissionPerAd
			mode = models.EarningModePromotion
		}
		commission = models.RoundMoney(commission)

		firstAdWithBonus := user.TotalAdsCompleted == 0 && user.Balance.Equal(s.cfg.SignupBonus)
		if firstAdWithBonus {
			err = tx.SetBalance(ctx, userID, commission)
		} else {
			err = tx.AddBalance(ctx, userID, commission)
		}
		if err != nil {
			return err
		}

		if err := tx.AddDailyReward(ctx, userID, commission); err != nil {
			return err
		}
		if mode == models.EarningModePromotion {
			if err := tx.IncrementRestrictedAdsCompleted(ctx, userID); err != nil {
				return err
			}
		}
		if err := tx.IncrementAdsCompleted(ctx, userID); err != nil {
			return err
		}

		click := &models.AdClick{UserID: userID, AdID: adID, EarnedAmount: commission, Mode: mode}
		if err := tx.InsertAdClick(ctx, click); err != nil {
			return err
		}

		updated, err := tx.LockUser(ctx, userID)
		if err != nil {
			return err
		}

		result = AdCompletion{
			Earnings:          commission,
			NewBalance:        updated.Balance,
			TotalAdsCompleted: updated.TotalAdsCompleted,
			Mode:              mode,
			ClickID:           click.ID,
		}
		if firstAdWithBonus {
			s.log.Info("Signup bonus replaced by first earning",
				zap.String("user_id", userID),
				zap.String("bonus", s.cfg.SignupBonus.StringFixed(2)),
				zap.String("earnings", commission.StringFixed(2)))
		}
		return nil
	})
	if err != nil {
		s.metrics.observeError("ad_completion", err)
		if KindOf(err) == KindInternal {
			s.log.Error("Ad completion failed", zap.String("user_id", userID), zap.Int64("ad_id", adID), zap.Error(err))
			s.audit.LogError("AD_EARNING", userID, err)
		}
		return nil, err
	}

	s.metrics.AdCompletions.WithLabelValues(string(result.Mode)).Inc()
	s.metrics.EarningsTotal.WithLabelValues(string(result.Mode)).Add(result.Earnings.InexactFloat64())
	s.audit.LogEarning(userID, strconv.FormatInt(adID, 10), result.Earnings, string(result.Mode))
	return &result, nil
}
