package services

import (
	"context"
	"testing"

	"github.com/adrewards/backend/internal/config"
	"github.com/adrewards/backend/internal/models"
	"github.com/adrewards/backend/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var admin = Actor{UserID: "admin-1", IsAdmin: true}

type fixture struct {
	store       *store.MemStore
	cfg         *config.RewardsConfig
	metrics     *Metrics
	catalog     *AdCatalog
	earning     *EarningService
	withdrawals *WithdrawalService
	admin       *AdminService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s := store.NewMemStore()
	cfg := config.DefaultRewardsConfig()
	logger := zap.NewNop()
	metrics := NewMetrics(prometheus.NewRegistry())
	audit := NewAuditLogger(logger)
	catalog := NewAdCatalog(s, nil, cfg.AdCacheTTL, metrics, logger)

	return &fixture{
		store:       s,
		cfg:         cfg,
		metrics:     metrics,
		catalog:     catalog,
		earning:     NewEarningService(s, catalog, cfg, audit, metrics, logger),
		withdrawals: NewWithdrawalService(s, cfg, audit, metrics, logger),
		admin:       NewAdminService(s, audit, metrics, logger),
	}
}

// user seeds an active user; mutate adjusts fields before it is stored
func (f *fixture) user(id string, mutate func(u *models.User)) *models.User {
	u := &models.User{
		ID:      id,
		Email:   id + "@example.com",
		Status:  models.UserStatusActive,
		Balance: f.cfg.SignupBonus,
	}
	if mutate != nil {
		mutate(u)
	}
	f.store.PutUser(u)
	return u
}

func (f *fixture) ad(t *testing.T, price string, active bool) *models.Ad {
	t.Helper()
	ad := &models.Ad{Title: "Ad " + price, Price: decimal.RequireFromString(price), IsActive: active}
	require.NoError(t, f.store.CreateAd(context.Background(), ad))
	return ad
}

func (f *fixture) get(t *testing.T, id string) *models.User {
	t.Helper()
	u, err := f.store.GetUser(context.Background(), id)
	require.NoError(t, err)
	return u
}

func money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
