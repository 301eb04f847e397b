package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/adrewards/backend/internal/config"
	"github.com/adrewards/backend/internal/models"
	"github.com/adrewards/backend/internal/services"
	"github.com/adrewards/backend/internal/store"
	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

type contextKey string

const (
	userIDKey  contextKey = "userID"
	isAdminKey contextKey = "isAdmin"
)

var (
	errMissingSubject = errors.New("token has no subject")

	// ErrMissingSecret is returned when no token signing secret is configured
	ErrMissingSecret = errors.New("jwt secret key is not configured")
)

// Authenticator validates bearer tokens issued by the identity service and
// provisions a ledger for first-time users.
type Authenticator struct {
	secret []byte
	redis  *redis.Client
	store  store.Store
	cfg    *config.RewardsConfig
	log    *zap.Logger
}

func NewAuthenticator(secret string, redisClient *redis.Client, s store.Store, cfg *config.RewardsConfig, logger *zap.Logger) (*Authenticator, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, ErrMissingSecret
	}
	return &Authenticator{
		secret: []byte(secret),
		redis:  redisClient,
		store:  s,
		cfg:    cfg,
		log:    logger,
	}, nil
}

func blacklistKey(token string) string {
	return fmt.Sprintf("blacklist:%s", token)
}

// Middleware rejects requests without a valid, unrevoked token
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			services.SendErrorResponse(w, "Authorization header required", http.StatusUnauthorized, nil)
			return
		}

		if a.redis != nil {
			revoked, err := a.redis.Exists(r.Context(), blacklistKey(token)).Result()
			if err != nil {
				a.log.Warn("Token revocation check failed", zap.Error(err))
			} else if revoked > 0 {
				services.SendErrorResponse(w, "Token revoked", http.StatusUnauthorized, nil)
				return
			}
		}

		userID, email, err := a.parse(token)
		if err != nil {
			services.SendErrorResponse(w, "Invalid token", http.StatusUnauthorized, nil)
			return
		}

		user, err := a.store.EnsureUser(r.Context(), &models.User{
			ID:      userID,
			Email:   email,
			Status:  a.cfg.InitialStatus,
			Balance: a.cfg.SignupBonus,
		})
		if err != nil {
			a.log.Error("Failed to provision user", zap.String("user_id", userID), zap.Error(err))
			services.SendErrorResponse(w, "Internal server error", http.StatusInternalServerError, nil)
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, user.ID)
		ctx = context.WithValue(ctx, isAdminKey, user.IsAdmin)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Revoke blacklists token until it would have expired anyway
func (a *Authenticator) Revoke(ctx context.Context, token string, ttl time.Duration) error {
	if a.redis == nil {
		return errors.New("token revocation requires redis")
	}
	return a.redis.Set(ctx, blacklistKey(token), "1", ttl).Err()
}

func (a *Authenticator) parse(tokenString string) (userID, email string, err error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return a.secret, nil
	})
	if err != nil {
		return "", "", err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", "", jwt.ErrTokenInvalidClaims
	}
	sub, err := claims.GetSubject()
	if err != nil {
		return "", "", err
	}
	if sub == "" {
		return "", "", errMissingSubject
	}
	email, _ = claims["email"].(string)
	return sub, email, nil
}

func bearerToken(r *http.Request) (string, bool) {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// BearerToken returns the raw token of an authenticated request
func BearerToken(r *http.Request) string {
	token, _ := bearerToken(r)
	return token
}

// RequireAdmin must run after Middleware
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !ActorFromContext(r.Context()).IsAdmin {
			services.SendErrorResponse(w, "Admin only", http.StatusForbidden, nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

// ActorFromContext returns the caller as seen by the services
func ActorFromContext(ctx context.Context) services.Actor {
	id, _ := UserIDFromContext(ctx)
	isAdmin, _ := ctx.Value(isAdminKey).(bool)
	return services.Actor{UserID: id, IsAdmin: isAdmin}
}

// WithActor stores an already authenticated caller in ctx
func WithActor(ctx context.Context, actor services.Actor) context.Context {
	ctx = context.WithValue(ctx, userIDKey, actor.UserID)
	return context.WithValue(ctx, isAdminKey, actor.IsAdmin)
}
