package handlers

import (
	"net/http"

	"github.com/adrewards/backend/internal/middleware"
	"github.com/adrewards/backend/internal/services"
	"go.uber.org/zap"
)

// AdStatusRequest pauses or resumes an ad
// @Description Ad availability
type AdStatusRequest struct {
	IsActive *bool `json:"isActive" validate:"required" example:"false"`
}

type AdHandler struct {
	catalog   *services.AdCatalog
	earning   *services.EarningService
	validator *services.ValidationHelper
	log       *zap.Logger
}

func NewAdHandler(catalog *services.AdCatalog, earning *services.EarningService, logger *zap.Logger) *AdHandler {
	return &AdHandler{
		catalog:   catalog,
		earning:   earning,
		validator: services.NewValidationHelper(),
		log:       logger,
	}
}

// ListAds lists the ad catalog
// @Summary List ads
// @Description Active ads for users; admins may pass all=true to include inactive ones
// @Tags Ads
// @Produce json
// @Security BearerAuth
// @Param all query bool false "Include inactive ads (admin only)"
// @Success 200 {object} object{success=bool,ads=[]models.Ad}
// @Failure 401 {object} services.ErrorResponse
// @Router /ads [get]
func (h *AdHandler) ListAds(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromContext(r.Context())
	activeOnly := !(actor.IsAdmin && r.URL.Query().Get("all") == "true")

	ads, err := h.catalog.List(r.Context(), activeOnly)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"ads":     ads,
	})
}

// GetAd returns one ad
// @Summary Get ad
// @Tags Ads
// @Produce json
// @Security BearerAuth
// @Param adId path int true "Ad ID"
// @Success 200 {object} object{success=bool,ad=models.Ad}
// @Failure 404 {object} services.ErrorResponse
// @Router /ads/{adId} [get]
func (h *AdHandler) GetAd(w http.ResponseWriter, r *http.Request) {
	adID, ok := pathID(w, r, "adId")
	if !ok {
		return
	}

	ad, err := h.catalog.Get(r.Context(), adID)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"ad":      ad,
	})
}

// SetActive pauses or resumes an ad
// @Summary Set ad availability
// @Description Inactive ads stay listed for admins but cannot be completed
// @Tags Ads
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param adId path int true "Ad ID"
// @Param request body AdStatusRequest true "Availability"
// @Success 200 {object} object{success=bool,ad=models.Ad}
// @Failure 400 {object} services.ErrorResponse
// @Failure 403 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /ads/{adId}/active [patch]
func (h *AdHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	adID, ok := pathID(w, r, "adId")
	if !ok {
		return
	}
	var req AdStatusRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	ad, err := h.catalog.SetActive(r.Context(), middleware.ActorFromContext(r.Context()), adID, *req.IsActive)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"ad":      ad,
	})
}

// RecordClick credits the caller for a completed ad view
// @Summary Complete an ad
// @Description Credits the ad commission (or the promotion commission) to the caller
// @Tags Ads
// @Produce json
// @Security BearerAuth
// @Param adId path int true "Ad ID"
// @Success 200 {object} object{success=bool,earnings=string,newBalance=string,totalAdsCompleted=int}
// @Failure 400 {object} services.ErrorResponse
// @Failure 403 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 429 {object} services.ErrorResponse
// @Router /ads/{adId}/click [post]
func (h *AdHandler) RecordClick(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}
	adID, ok := pathID(w, r, "adId")
	if !ok {
		return
	}

	res, err := h.earning.RecordAdCompletion(r.Context(), userID, adID)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":           true,
		"earnings":          res.Earnings.StringFixed(2),
		"newBalance":        res.NewBalance.StringFixed(2),
		"totalAdsCompleted": res.TotalAdsCompleted,
		"mode":              res.Mode,
	})
}
