package config

import (
	"fmt"
	"time"

	"github.com/adrewards/backend/internal/models"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// RewardsConfig holds the earning and payout rules
type RewardsConfig struct {
	SignupBonus        decimal.Decimal
	PayoutUnlockAds    int
	MinimumWithdrawal  decimal.Decimal
	InitialStatus      models.UserStatus
	DailyResetSchedule string
	Currency           string
	AdCacheTTL         time.Duration
	ClickRate          float64
	ClickBurst         int
	DebtorName         string
	DebtorBIC          string
}

// LoadRewardsConfig reads rewards settings with defaults
func LoadRewardsConfig() (*RewardsConfig, error) {
	viper.SetDefault("rewards.signup_bonus", "25000")
	viper.SetDefault("rewards.payout_unlock_ads", 28)
	viper.SetDefault("rewards.min_withdrawal", "1000")
	viper.SetDefault("rewards.initial_status", string(models.UserStatusPending))
	viper.SetDefault("rewards.daily_reset_cron", "0 0 * * *")
	viper.SetDefault("rewards.currency", "LKR")
	viper.SetDefault("rewards.ad_cache_ttl", 30*time.Second)
	viper.SetDefault("rewards.click_rate", 3)
	viper.SetDefault("rewards.click_burst", 7)
	viper.SetDefault("payout.debtor_name", "AdRewards Payouts")
	viper.SetDefault("payout.debtor_bic", "ADRWLKLX")

	bonus, err := decimal.NewFromString(viper.GetString("rewards.signup_bonus"))
	if err != nil {
		return nil, fmt.Errorf("invalid rewards.signup_bonus: %w", err)
	}
	minimum, err := decimal.NewFromString(viper.GetString("rewards.min_withdrawal"))
	if err != nil {
		return nil, fmt.Errorf("invalid rewards.min_withdrawal: %w", err)
	}
	status := models.UserStatus(viper.GetString("rewards.initial_status"))
	if !status.Valid() {
		return nil, fmt.Errorf("invalid rewards.initial_status %q", status)
	}

	return &RewardsConfig{
		SignupBonus:        models.RoundMoney(bonus),
		PayoutUnlockAds:    viper.GetInt("rewards.payout_unlock_ads"),
		MinimumWithdrawal:  models.RoundMoney(minimum),
		InitialStatus:      status,
		DailyResetSchedule: viper.GetString("rewards.daily_reset_cron"),
		Currency:           viper.GetString("rewards.currency"),
		AdCacheTTL:         viper.GetDuration("rewards.ad_cache_ttl"),
		ClickRate:          viper.GetFloat64("rewards.click_rate"),
		ClickBurst:         viper.GetInt("rewards.click_burst"),
		DebtorName:         viper.GetString("payout.debtor_name"),
		DebtorBIC:          viper.GetString("payout.debtor_bic"),
	}, nil
}

// DefaultRewardsConfig returns the built-in rules without consulting viper
func DefaultRewardsConfig() *RewardsConfig {
	return &RewardsConfig{
		SignupBonus:        decimal.NewFromInt(25000),
		PayoutUnlockAds:    28,
		MinimumWithdrawal:  decimal.NewFromInt(1000),
		InitialStatus:      models.UserStatusPending,
		DailyResetSchedule: "0 0 * * *",
		Currency:           "LKR",
		AdCacheTTL:         30 * time.Second,
		ClickRate:          3,
		ClickBurst:         7,
		DebtorName:         "AdRewards Payouts",
		DebtorBIC:          "ADRWLKLX",
	}
}
