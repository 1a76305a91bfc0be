// Package email envía las notificaciones de seguridad del core (TOTP activado
// o desactivado, nueva API key). El contenido es texto fijo.
package email

import (
	"context"
	"fmt"

	"github.com/dropDatabas3/humanid/internal/observability/logger"
)

// Kind identifica la notificación.
type Kind string

const (
	KindTOTPEnabled   Kind = "totp_enabled"
	KindTOTPDisabled  Kind = "totp_disabled"
	KindAPIKeyCreated Kind = "api_key_created"
)

// Sender es la interfaz para enviar emails.
type Sender interface {
	Send(to, subject, textBody string) error
}

// Mailer es el colaborador que usan los servicios: "enviar un email de tipo X".
type Mailer interface {
	Send(ctx context.Context, kind Kind, to string) error
}

type message struct {
	subject string
	body    string
}

var messages = map[Kind]message{
	KindTOTPEnabled: {
		subject: "Two-factor authentication enabled",
		body:    "Two-factor authentication was enabled on your account. If this was not you, reset your password and contact support.",
	},
	KindTOTPDisabled: {
		subject: "Two-factor authentication disabled",
		body:    "Two-factor authentication was disabled on your account. If this was not you, reset your password and contact support.",
	},
	KindAPIKeyCreated: {
		subject: "New API key created",
		body:    "A new API key was created for your account. If this was not you, revoke it and reset your password.",
	},
}

// NewMailer arma un Mailer sobre un Sender. sender nil = no-op.
func NewMailer(sender Sender) Mailer {
	if sender == nil {
		return noopMailer{}
	}
	return &mailer{sender: sender}
}

type mailer struct {
	sender Sender
}

func (m *mailer) Send(ctx context.Context, kind Kind, to string) error {
	msg, ok := messages[kind]
	if !ok {
		return fmt.Errorf("email: unknown kind %q", kind)
	}
	if err := m.sender.Send(to, msg.subject, msg.body); err != nil {
		logger.From(ctx).Warn("notification not sent",
			logger.Layer("email"),
			logger.String("kind", string(kind)),
			logger.Err(err),
		)
		return err
	}
	return nil
}

type noopMailer struct{}

func (noopMailer) Send(ctx context.Context, kind Kind, to string) error {
	logger.From(ctx).Debug("smtp no configurado; notificación omitida",
		logger.Layer("email"),
		logger.String("kind", string(kind)),
	)
	return nil
}
