package handlers

import (
	"net/http"
	"time"

	"github.com/adrewards/backend/internal/middleware"
	"go.uber.org/zap"
)

type AuthHandler struct {
	auth   *middleware.Authenticator
	expiry time.Duration
	log    *zap.Logger
}

func NewAuthHandler(auth *middleware.Authenticator, expiry time.Duration, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		auth:   auth,
		expiry: expiry,
		log:    logger,
	}
}

// Logout revokes the caller's bearer token
// @Summary Logout
// @Description Blacklist the current token until it expires
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{success=bool,message=string}
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.Revoke(r.Context(), middleware.BearerToken(r), h.expiry); err != nil {
		h.log.Warn("Failed to blacklist token", zap.Error(err))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Logout successful",
	})
}
