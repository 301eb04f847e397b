package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Ad is a catalog entry paying Price per completion
type Ad struct {
	ID          int64           `json:"id" db:"id" example:"1"`
	Title       string          `json:"title" db:"title" example:"Summer Sale"`
	Description string          `json:"description" db:"description"`
	ImageURL    string          `json:"imageUrl" db:"image_url"`
	TargetURL   string          `json:"targetUrl" db:"target_url"`
	Price       decimal.Decimal `json:"price" db:"price" example:"50.00"`
	IsActive    bool            `json:"isActive" db:"is_active"`
	CreatedAt   time.Time       `json:"createdAt" db:"created_at"`
}

// EarningMode records which commission rule produced an earning
type EarningMode string

const (
	EarningModeNormal    EarningMode = "normal"
	EarningModePromotion EarningMode = "promotion"
)

// AdClick is the audit record of one credited ad completion
type AdClick struct {
	ID           int64           `json:"id" db:"id"`
	UserID       string          `json:"userId" db:"user_id"`
	AdID         int64           `json:"adId" db:"ad_id"`
	EarnedAmount decimal.Decimal `json:"earnedAmount" db:"earned_amount"`
	Mode         EarningMode     `json:"mode" db:"mode"`
	CreatedAt    time.Time       `json:"createdAt" db:"created_at"`
}
