// Package audit registra eventos de seguridad (login, TOTP, API keys,
// consentimientos) en un logger dedicado, separado del log operativo.
package audit

import (
	"context"

	"go.uber.org/zap"

	"github.com/dropDatabas3/humanid/internal/observability/logger"
)

// Event identifica el tipo de evento auditado.
type Event string

const (
	LoginSucceeded       Event = "login.succeeded"
	TOTPEnabled          Event = "totp.enabled"
	TOTPDisabled         Event = "totp.disabled"
	BackupCodeUsed       Event = "totp.backup_code_used"
	APIKeyIssued         Event = "apikey.issued"
	APIKeyBlacklisted    Event = "apikey.blacklisted"
	AuthorizationGranted Event = "oauth.authorization_granted"
	AuthorizationDenied  Event = "oauth.authorization_denied"
	CodeExchanged        Event = "oauth.code_exchanged"
)

// Log emite event en el logger "audit" del contexto (conserva request_id).
func Log(ctx context.Context, event Event, fields ...zap.Field) {
	fields = append(fields, zap.String("event", string(event)))
	logger.From(ctx).Named("audit").Info(string(event), fields...)
}
