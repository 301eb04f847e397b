package handlers

import (
	"net/http"

	"github.com/adrewards/backend/internal/middleware"
	"github.com/go-chi/chi/v5"
)

// API groups the handlers mounted under /api/v1
type API struct {
	Ads          *AdHandler
	Withdrawals  *WithdrawalHandler
	Admin        *AdminHandler
	Auth         *AuthHandler
	Authenticate func(http.Handler) http.Handler
	ClickLimit   func(http.Handler) http.Handler
}

// Mount registers every API route on r
func (a *API) Mount(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(a.Authenticate)

		r.Post("/auth/logout", a.Auth.Logout)

		r.Get("/ads", a.Ads.ListAds)
		r.Get("/ads/{adId}", a.Ads.GetAd)
		r.With(a.ClickLimit).Post("/ads/{adId}/click", a.Ads.RecordClick)

		r.Get("/users/me", a.Admin.Me)
		r.Get("/users/{userId}", a.Admin.GetUser)

		r.Get("/withdrawals", a.Withdrawals.List)
		r.Post("/withdrawals", a.Withdrawals.Create)

		// Admin endpoints
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin)

			r.Patch("/ads/{adId}/active", a.Ads.SetActive)

			r.Post("/withdrawals/{id}/approve", a.Withdrawals.Approve)
			r.Post("/withdrawals/{id}/reject", a.Withdrawals.Reject)
			r.Get("/withdrawals/{id}/iso20022", a.Withdrawals.ExportISO20022)

			r.Patch("/users/{userId}/status", a.Admin.SetStatus)
			r.Post("/users/{userId}/restrict", a.Admin.ApplyRestriction)
			r.Post("/users/{userId}/unrestrict", a.Admin.RemoveRestriction)
			r.Post("/users/{userId}/deposit", a.Admin.Deposit)
			r.Post("/users/{userId}/reset", a.Admin.ResetField)

			r.Get("/admin/deposits", a.Admin.ListDeposits)
			r.Post("/admin/deposits", a.Admin.CreateDeposit)
			r.Get("/admin/transactions", a.Admin.ListTransactions)
			r.Get("/admin/transactions/{userId}", a.Admin.ListTransactions)
			r.Post("/admin/daily-reset", a.Admin.ResetDailyRewards)
		})
	})
}
