package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/jmcleod/gatehouse/internal/uuid"
)

// AuditEvent identifies the type of security-relevant action being logged.
type AuditEvent string

const (
	AuditLoginSuccess    AuditEvent = "login_success"
	AuditLoginFailure    AuditEvent = "login_failure"
	AuditLogout          AuditEvent = "logout"
	AuditSessionRejected AuditEvent = "session_rejected"
	AuditUserCreated     AuditEvent = "user_created"
	AuditUserUpdated     AuditEvent = "user_updated"
	AuditUserDeleted     AuditEvent = "user_deleted"
)

// auditLogger wraps slog.Logger for structured security audit logging.
type auditLogger struct {
	logger *slog.Logger
}

func newAuditLogger(logger *slog.Logger) *auditLogger {
	return &auditLogger{
		logger: logger.With("component", "audit"),
	}
}

// logEvent writes one audit entry. identity may be empty when the actor is
// unknown (failed logins, rejected tokens); tokens are never logged.
func (al *auditLogger) logEvent(event AuditEvent, r *http.Request, identity string, attrs ...slog.Attr) {
	base := []slog.Attr{
		slog.String("event", string(event)),
		slog.String("event_id", uuid.New()),
		slog.String("remote_addr", r.RemoteAddr),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}
	if identity != "" {
		base = append(base, slog.String("identity", identity))
	}
	base = append(base, attrs...)
	al.logger.LogAttrs(r.Context(), slog.LevelInfo, "audit", base...)
}
