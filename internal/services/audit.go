package services

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// AuditEvent is one entry of the money-movement audit trail
type AuditEvent struct {
	EventID   string            `json:"event_id"`
	Timestamp time.Time         `json:"timestamp"`
	EventType string            `json:"event_type"`
	ActorID   string            `json:"actor_id,omitempty"`
	UserID    string            `json:"user_id"`
	Reference string            `json:"reference,omitempty"`
	Amount    decimal.Decimal   `json:"amount"`
	Status    string            `json:"status"`
	Details   map[string]string `json:"details,omitempty"`
}

// AuditLogger writes audit events to a dedicated zap logger
type AuditLogger struct {
	log *zap.Logger
}

func NewAuditLogger(logger *zap.Logger) *AuditLogger {
	return &AuditLogger{log: logger.Named("audit")}
}

func (a *AuditLogger) LogEarning(userID, adID string, amount decimal.Decimal, mode string) {
	a.write(AuditEvent{
		EventType: "AD_EARNING",
		UserID:    userID,
		Reference: adID,
		Amount:    amount,
		Status:    "SUCCESS",
		Details:   map[string]string{"mode": mode},
	})
}

func (a *AuditLogger) LogWithdrawal(eventType, actorID, userID, withdrawalID string, amount decimal.Decimal, status string) {
	a.write(AuditEvent{
		EventType: eventType,
		ActorID:   actorID,
		UserID:    userID,
		Reference: withdrawalID,
		Amount:    amount,
		Status:    status,
	})
}

func (a *AuditLogger) LogAdminAction(actorID, userID, operation string, amount decimal.Decimal, details map[string]string) {
	a.write(AuditEvent{
		EventType: operation,
		ActorID:   actorID,
		UserID:    userID,
		Amount:    amount,
		Status:    "SUCCESS",
		Details:   details,
	})
}

func (a *AuditLogger) LogError(operation, userID string, err error) {
	a.write(AuditEvent{
		EventType: operation,
		UserID:    userID,
		Status:    "FAILED",
		Details:   map[string]string{"error": err.Error()},
	})
}

func (a *AuditLogger) write(event AuditEvent) {
	event.EventID = uuid.NewString()
	event.Timestamp = time.Now().UTC()

	fields := []zap.Field{
		zap.String("event_id", event.EventID),
		zap.Time("timestamp", event.Timestamp),
		zap.String("event_type", event.EventType),
		zap.String("user_id", event.UserID),
		zap.String("amount", event.Amount.StringFixed(2)),
		zap.String("status", event.Status),
	}
	if event.ActorID != "" {
		fields = append(fields, zap.String("actor_id", event.ActorID))
	}
	if event.Reference != "" {
		fields = append(fields, zap.String("reference", event.Reference))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String(k, v))
	}
	a.log.Info("AUDIT", fields...)
}
