package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// UserStatus is the account state gating earning
type UserStatus string

const (
	UserStatusActive  UserStatus = "active"
	UserStatusPending UserStatus = "pending"
	UserStatusFrozen  UserStatus = "frozen"
)

// Valid reports whether s is a known status
func (s UserStatus) Valid() bool {
	switch s {
	case UserStatusActive, UserStatusPending, UserStatusFrozen:
		return true
	}
	return false
}

// User is the per-user ledger entry
type User struct {
	ID                     string          `json:"id" db:"id" example:"4b1d0c7e-2f7a-4d7e-9a53-0b8d5f0e6a11"`
	Email                  string          `json:"email,omitempty" db:"email" example:"user@example.com"`
	Status                 UserStatus      `json:"status" db:"status" example:"active"`
	IsAdmin                bool            `json:"isAdmin" db:"is_admin"`
	Balance                decimal.Decimal `json:"balance" db:"balance" example:"25000.00"`          // withdrawable balance (milestone amount)
	DailyReward            decimal.Decimal `json:"dailyReward" db:"daily_reward" example:"150.00"`   // earned today (milestone reward)
	DestinationAmount      decimal.Decimal `json:"destinationAmount" db:"destination_amount"`        // informational target
	OngoingMilestone       int             `json:"ongoingMilestone" db:"ongoing_milestone"`          // informational
	TotalAdsCompleted      int             `json:"totalAdsCompleted" db:"total_ads_completed"`       // lifetime count
	Points                 int             `json:"points" db:"points"`                               // informational
	PendingDepositAmount   decimal.Decimal `json:"pendingDepositAmount" db:"pending_deposit_amount"` // blocks earning while > 0
	RestrictedAdsCompleted int             `json:"restrictedAdsCompleted" db:"restricted_ads_completed"`
	Restriction            *Restriction    `json:"restriction,omitempty"`
	CreatedAt              time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt              time.Time       `json:"updatedAt" db:"updated_at"`
}

// Restriction is an admin-configured promotion window
type Restriction struct {
	AdsLimit           int             `json:"adsLimit"`
	CommissionPerAd    decimal.Decimal `json:"commissionPerAd"`
	DepositRequirement decimal.Decimal `json:"depositRequirement"`
	CompletedCount     int             `json:"completedCount"`
}

// RestrictionInput is the payload of an applied restriction
type RestrictionInput struct {
	AdsLimit             int
	DepositRequirement   decimal.Decimal
	CommissionPerAd      decimal.Decimal
	PendingDepositAmount decimal.Decimal
}

// InPromotionMode reports whether earnings use the restriction commission
func (u *User) InPromotionMode() bool {
	return u.Restriction != nil && u.Restriction.AdsLimit > 0
}

// HasPendingDeposit reports whether earning is blocked by an outstanding deposit
func (u *User) HasPendingDeposit() bool {
	return u.PendingDepositAmount.IsPositive()
}

// Clone returns a deep copy
func (u *User) Clone() *User {
	c := *u
	if u.Restriction != nil {
		r := *u.Restriction
		c.Restriction = &r
	}
	return &c
}

// ResetField names a ledger field an admin may zero
type ResetField string

const (
	ResetBalance                ResetField = "milestoneAmount"
	ResetDailyReward            ResetField = "milestoneReward"
	ResetDestinationAmount      ResetField = "destinationAmount"
	ResetOngoingMilestone       ResetField = "ongoingMilestone"
	ResetTotalAdsCompleted      ResetField = "totalAdsCompleted"
	ResetPoints                 ResetField = "points"
	ResetRestrictedAdsCompleted ResetField = "restrictedAdsCompleted"
)

var resetColumns = map[ResetField]string{
	ResetBalance:                "balance",
	ResetDailyReward:            "daily_reward",
	ResetDestinationAmount:      "destination_amount",
	ResetOngoingMilestone:       "ongoing_milestone",
	ResetTotalAdsCompleted:      "total_ads_completed",
	ResetPoints:                 "points",
	ResetRestrictedAdsCompleted: "restricted_ads_completed",
}

// ParseResetField checks name against the allow-list
func ParseResetField(name string) (ResetField, bool) {
	f := ResetField(name)
	_, ok := resetColumns[f]
	return f, ok
}

// Column returns the storage column for f, or "" if f is not allowed
func (f ResetField) Column() string {
	return resetColumns[f]
}

// Monetary reports whether the field holds money rather than a count
func (f ResetField) Monetary() bool {
	switch f {
	case ResetBalance, ResetDailyReward, ResetDestinationAmount:
		return true
	}
	return false
}
