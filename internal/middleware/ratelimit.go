package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/adrewards/backend/internal/services"
	"golang.org/x/time/rate"
)

// visitor holds the rate limiter for one user and when it was last used
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ClickLimiter throttles ad clicks per authenticated user
type ClickLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
	idle     time.Duration
	now      func() time.Time
}

func NewClickLimiter(perSecond float64, burst int) *ClickLimiter {
	return &ClickLimiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Limit(perSecond),
		burst:    burst,
		idle:     3 * time.Minute,
		now:      time.Now,
	}
}

func (l *ClickLimiter) getVisitor(userID string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	v, exists := l.visitors[userID]
	if !exists {
		limiter := rate.NewLimiter(l.limit, l.burst)
		l.visitors[userID] = &visitor{limiter, l.now()}
		return limiter
	}

	v.lastSeen = l.now()
	return v.limiter
}

// Cleanup drops visitors idle for longer than three minutes, once a minute,
// until ctx is done.
func (l *ClickLimiter) Cleanup(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.sweep()
		}
	}
}

func (l *ClickLimiter) sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()

	for id, v := range l.visitors {
		if l.now().Sub(v.lastSeen) > l.idle {
			delete(l.visitors, id)
		}
	}
}

// Middleware must run after the authenticator
func (l *ClickLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := UserIDFromContext(r.Context())
		if !ok {
			services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
			return
		}

		if !l.getVisitor(userID).Allow() {
			services.SendErrorResponse(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests, nil)
			return
		}

		next.ServeHTTP(w, r)
	})
}
