package handlers

import (
	"net/http"

	"github.com/adrewards/backend/internal/middleware"
	"github.com/adrewards/backend/internal/models"
	"github.com/adrewards/backend/internal/services"
	"go.uber.org/zap"
)

// CreateWithdrawalRequest is the payout request body
// @Description Payout request
type CreateWithdrawalRequest struct {
	Amount         string `json:"amount" validate:"required,money" example:"1500.00"`                              // Amount to withdraw
	Method         string `json:"method" validate:"required,oneof='Bank Transfer' EzCash KoKo" example:"EzCash"`   // Payout channel
	AccountDetails string `json:"accountDetails" validate:"required,max=255" example:"Commercial Bank 8001234567"` // Where to pay
}

// RejectWithdrawalRequest carries an optional rejection reason
// @Description Rejection reason
type RejectWithdrawalRequest struct {
	Reason string `json:"reason" validate:"max=500" example:"Account details mismatch"`
}

type WithdrawalHandler struct {
	service   *services.WithdrawalService
	exporter  *services.PayoutExporter
	validator *services.ValidationHelper
	log       *zap.Logger
}

func NewWithdrawalHandler(service *services.WithdrawalService, exporter *services.PayoutExporter, logger *zap.Logger) *WithdrawalHandler {
	return &WithdrawalHandler{
		service:   service,
		exporter:  exporter,
		validator: services.NewValidationHelper(),
		log:       logger,
	}
}

// List returns the caller's withdrawals, or all of them for admins
// @Summary List withdrawals
// @Tags Withdrawals
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{success=bool,withdrawals=[]models.Withdrawal}
// @Router /withdrawals [get]
func (h *WithdrawalHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context(), middleware.ActorFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"withdrawals": list,
	})
}

// Create files a pending withdrawal
// @Summary Request a withdrawal
// @Description Files a pending payout; the balance is debited only on approval
// @Tags Withdrawals
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateWithdrawalRequest true "Withdrawal request"
// @Success 201 {object} object{success=bool,withdrawal=models.Withdrawal}
// @Failure 400 {object} services.ErrorResponse
// @Router /withdrawals [post]
func (h *WithdrawalHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req CreateWithdrawalRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	withdrawal, err := h.service.Create(r.Context(), userID, services.CreateWithdrawalInput{
		Amount:         parseMoney(req.Amount),
		Method:         models.PayoutMethod(req.Method),
		AccountDetails: req.AccountDetails,
	})
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"success":    true,
		"withdrawal": withdrawal,
	})
}

// Approve debits the requester and marks the withdrawal approved
// @Summary Approve withdrawal
// @Tags Withdrawals
// @Produce json
// @Security BearerAuth
// @Param id path int true "Withdrawal ID"
// @Success 200 {object} object{success=bool,withdrawal=models.Withdrawal}
// @Failure 400 {object} services.ErrorResponse
// @Failure 403 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /withdrawals/{id}/approve [post]
func (h *WithdrawalHandler) Approve(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	withdrawal, err := h.service.Approve(r.Context(), middleware.ActorFromContext(r.Context()), id)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"withdrawal": withdrawal,
	})
}

// Reject closes a pending withdrawal
// @Summary Reject withdrawal
// @Tags Withdrawals
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Withdrawal ID"
// @Param request body RejectWithdrawalRequest false "Reason"
// @Success 200 {object} object{success=bool,withdrawal=models.Withdrawal}
// @Failure 400 {object} services.ErrorResponse
// @Failure 403 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /withdrawals/{id}/reject [post]
func (h *WithdrawalHandler) Reject(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req RejectWithdrawalRequest
	if !decodeJSON(w, r, &req, true) {
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	withdrawal, err := h.service.Reject(r.Context(), middleware.ActorFromContext(r.Context()), id, req.Reason)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"withdrawal": withdrawal,
	})
}

// ExportISO20022 renders an approved withdrawal as a pacs.008 credit transfer
// @Summary Export payout as ISO 20022
// @Tags Withdrawals
// @Produce json
// @Security BearerAuth
// @Param id path int true "Withdrawal ID"
// @Success 200 {object} object{success=bool,export=services.PayoutExport}
// @Failure 400 {object} services.ErrorResponse
// @Failure 403 {object} services.ErrorResponse
// @Router /withdrawals/{id}/iso20022 [get]
func (h *WithdrawalHandler) ExportISO20022(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	export, err := h.exporter.Export(r.Context(), middleware.ActorFromContext(r.Context()), id)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"export":  export,
	})
}
