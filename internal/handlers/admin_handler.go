package handlers

import (
	"net/http"

	"github.com/adrewards/backend/internal/middleware"
	"github.com/adrewards/backend/internal/models"
	"github.com/adrewards/backend/internal/services"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// StatusRequest sets a user's account status
// @Description Account status change
type StatusRequest struct {
	Status string `json:"status" validate:"required,oneof=active pending frozen" example:"active"`
}

// RestrictionRequest starts a promotion window
// @Description Promotion restriction
type RestrictionRequest struct {
	AdsLimit             int    `json:"adsLimit" validate:"required,gt=0" example:"10"`
	CommissionPerAd      string `json:"commissionPerAd" validate:"required,money_gte0" example:"20.00"`
	DepositRequirement   string `json:"depositRequirement" validate:"omitempty,money_gte0" example:"5000.00"`
	PendingDepositAmount string `json:"pendingDepositAmount" validate:"omitempty,money_gte0" example:"0"`
}

// DepositRequest credits a user's balance
// @Description Manual deposit
type DepositRequest struct {
	Amount      string `json:"amount" validate:"required,money" example:"500.00"`
	Type        string `json:"type" validate:"omitempty,oneof=deposit manual_add admin_bonus" example:"manual_add"`
	Description string `json:"description" validate:"max=255" example:"Promotion deposit received"`
}

// AdminDepositRequest is a DepositRequest naming its target user
// @Description Manual deposit for a user
type AdminDepositRequest struct {
	UserID string `json:"userId" validate:"required" example:"4b1d0c7e-2f7a-4d7e-9a53-0b8d5f0e6a11"`
	DepositRequest
}

// ResetFieldRequest names the ledger field to zero
// @Description Field reset
type ResetFieldRequest struct {
	Field string `json:"field" validate:"required" example:"milestoneReward"`
}

type AdminHandler struct {
	service   *services.AdminService
	validator *services.ValidationHelper
	log       *zap.Logger
}

func NewAdminHandler(service *services.AdminService, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		service:   service,
		validator: services.NewValidationHelper(),
		log:       logger,
	}
}

func (h *AdminHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if !decodeJSON(w, r, dst, false) {
		return false
	}
	if err := h.validator.ValidateStruct(dst); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return false
	}
	return true
}

func (h *AdminHandler) writeUser(w http.ResponseWriter, user *models.User, err error) {
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user":    user,
	})
}

// Me returns the caller's ledger
// @Summary Current user
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{success=bool,user=models.User}
// @Router /users/me [get]
func (h *AdminHandler) Me(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromContext(r.Context())
	user, err := h.service.GetUser(r.Context(), actor, actor.UserID)
	h.writeUser(w, user, err)
}

// GetUser returns a user's ledger
// @Summary Get user
// @Description Users may read their own ledger; admins any ledger
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Param userId path string true "User ID"
// @Success 200 {object} object{success=bool,user=models.User}
// @Failure 403 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /users/{userId} [get]
func (h *AdminHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.GetUser(r.Context(), middleware.ActorFromContext(r.Context()), chi.URLParam(r, "userId"))
	h.writeUser(w, user, err)
}

// SetStatus changes a user's account status
// @Summary Set user status
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param userId path string true "User ID"
// @Param request body StatusRequest true "New status"
// @Success 200 {object} object{success=bool,user=models.User}
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /users/{userId}/status [patch]
func (h *AdminHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	var req StatusRequest
	if !h.decode(w, r, &req) {
		return
	}

	user, err := h.service.SetStatus(r.Context(), middleware.ActorFromContext(r.Context()),
		chi.URLParam(r, "userId"), models.UserStatus(req.Status))
	h.writeUser(w, user, err)
}

// ApplyRestriction puts a user into promotion mode
// @Summary Apply restriction
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param userId path string true "User ID"
// @Param request body RestrictionRequest true "Restriction"
// @Success 200 {object} object{success=bool,user=models.User}
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /users/{userId}/restrict [post]
func (h *AdminHandler) ApplyRestriction(w http.ResponseWriter, r *http.Request) {
	var req RestrictionRequest
	if !h.decode(w, r, &req) {
		return
	}

	user, err := h.service.ApplyRestriction(r.Context(), middleware.ActorFromContext(r.Context()),
		chi.URLParam(r, "userId"), models.RestrictionInput{
			AdsLimit:             req.AdsLimit,
			CommissionPerAd:      parseMoney(req.CommissionPerAd),
			DepositRequirement:   parseMoney(req.DepositRequirement),
			PendingDepositAmount: parseMoney(req.PendingDepositAmount),
		})
	h.writeUser(w, user, err)
}

// RemoveRestriction ends a user's promotion window
// @Summary Remove restriction
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param userId path string true "User ID"
// @Success 200 {object} object{success=bool,user=models.User}
// @Failure 404 {object} services.ErrorResponse
// @Router /users/{userId}/unrestrict [post]
func (h *AdminHandler) RemoveRestriction(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.RemoveRestriction(r.Context(), middleware.ActorFromContext(r.Context()), chi.URLParam(r, "userId"))
	h.writeUser(w, user, err)
}

// ResetField zeroes one allow-listed ledger field
// @Summary Reset ledger field
// @Description Allowed fields: milestoneAmount, milestoneReward, destinationAmount, ongoingMilestone, totalAdsCompleted, points, restrictedAdsCompleted
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param userId path string true "User ID"
// @Param request body ResetFieldRequest true "Field"
// @Success 200 {object} object{success=bool,user=models.User}
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /users/{userId}/reset [post]
func (h *AdminHandler) ResetField(w http.ResponseWriter, r *http.Request) {
	var req ResetFieldRequest
	if !h.decode(w, r, &req) {
		return
	}

	user, err := h.service.ResetField(r.Context(), middleware.ActorFromContext(r.Context()), chi.URLParam(r, "userId"), req.Field)
	h.writeUser(w, user, err)
}

// Deposit credits the user named in the path
// @Summary Manual deposit
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param userId path string true "User ID"
// @Param request body DepositRequest true "Deposit"
// @Success 201 {object} object{success=bool,deposit=models.Deposit}
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /users/{userId}/deposit [post]
func (h *AdminHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	var req DepositRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.deposit(w, r, chi.URLParam(r, "userId"), req)
}

// CreateDeposit credits the user named in the body
// @Summary Manual deposit
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body AdminDepositRequest true "Deposit"
// @Success 201 {object} object{success=bool,deposit=models.Deposit}
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /admin/deposits [post]
func (h *AdminHandler) CreateDeposit(w http.ResponseWriter, r *http.Request) {
	var req AdminDepositRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.deposit(w, r, req.UserID, req.DepositRequest)
}

func (h *AdminHandler) deposit(w http.ResponseWriter, r *http.Request, userID string, req DepositRequest) {
	deposit, err := h.service.ManualDeposit(r.Context(), middleware.ActorFromContext(r.Context()), userID, services.DepositInput{
		Amount:      parseMoney(req.Amount),
		Type:        models.DepositType(req.Type),
		Description: req.Description,
	})
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"deposit": deposit,
	})
}

// ListDeposits lists admin credits
// @Summary List deposits
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param userId query string false "Filter by user"
// @Success 200 {object} object{success=bool,deposits=[]models.Deposit}
// @Router /admin/deposits [get]
func (h *AdminHandler) ListDeposits(w http.ResponseWriter, r *http.Request) {
	deposits, err := h.service.ListDeposits(r.Context(), middleware.ActorFromContext(r.Context()), r.URL.Query().Get("userId"))
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"deposits": deposits,
	})
}

// ListTransactions lists credited ad views
// @Summary Ad earning history
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param userId path string false "User ID"
// @Success 200 {object} object{success=bool,transactions=[]models.AdClick}
// @Router /admin/transactions/{userId} [get]
func (h *AdminHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	clicks, err := h.service.ListAdClicks(r.Context(), middleware.ActorFromContext(r.Context()), chi.URLParam(r, "userId"))
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"transactions": clicks,
	})
}

// ResetDailyRewards zeroes every user's daily reward now
// @Summary Reset daily rewards
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{success=bool,usersReset=int}
// @Router /admin/daily-reset [post]
func (h *AdminHandler) ResetDailyRewards(w http.ResponseWriter, r *http.Request) {
	n, err := h.service.ResetAllDailyRewards(r.Context())
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"usersReset": n,
	})
}
