package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// WithdrawalStatus moves pending -> approved | rejected, never back
type WithdrawalStatus string

const (
	WithdrawalPending  WithdrawalStatus = "pending"
	WithdrawalApproved WithdrawalStatus = "approved"
	WithdrawalRejected WithdrawalStatus = "rejected"
)

// PayoutMethod is the rail a withdrawal is paid out on
type PayoutMethod string

const (
	PayoutBankTransfer PayoutMethod = "Bank Transfer"
	PayoutEzCash       PayoutMethod = "EzCash"
	PayoutKoKo         PayoutMethod = "KoKo"
)

// Withdrawal is a payout request
type Withdrawal struct {
	ID             int64            `json:"id" db:"id" example:"1"`
	UserID         string           `json:"userId" db:"user_id"`
	Amount         decimal.Decimal  `json:"amount" db:"amount" example:"1500.00"`
	Method         PayoutMethod     `json:"method" db:"method" example:"Bank Transfer"`
	AccountDetails string           `json:"accountDetails" db:"account_details"`
	Status         WithdrawalStatus `json:"status" db:"status" example:"pending"`
	Reason         *string          `json:"reason,omitempty" db:"reason"`
	CreatedAt      time.Time        `json:"createdAt" db:"created_at"`
	ProcessedAt    *time.Time       `json:"processedAt,omitempty" db:"processed_at"`
}

// DepositType classifies a credited deposit
type DepositType string

const (
	DepositRegular    DepositType = "deposit"
	DepositManualAdd  DepositType = "manual_add"
	DepositAdminBonus DepositType = "admin_bonus"
)

// Deposit records an admin-initiated credit
type Deposit struct {
	ID          int64           `json:"id" db:"id"`
	UserID      string          `json:"userId" db:"user_id"`
	Amount      decimal.Decimal `json:"amount" db:"amount"`
	Type        DepositType     `json:"type" db:"type"`
	Description string          `json:"description,omitempty" db:"description"`
	CreatedAt   time.Time       `json:"createdAt" db:"created_at"`
}

// MaxMoney is the largest amount a NUMERIC(14,2) column holds
var MaxMoney = decimal.RequireFromString("999999999999.99")

// RoundMoney rounds to the two decimal places every stored amount carries
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
