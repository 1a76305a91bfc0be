package mfa

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/humanid/internal/audit"
	"github.com/dropDatabas3/humanid/internal/domain/repository"
	"github.com/dropDatabas3/humanid/internal/flood"
	"github.com/dropDatabas3/humanid/internal/observability/logger"
	"github.com/dropDatabas3/humanid/internal/security/password"
	"github.com/dropDatabas3/humanid/internal/security/secretbox"
	tokens "github.com/dropDatabas3/humanid/internal/security/token"
	"github.com/dropDatabas3/humanid/internal/security/totp"
)

// DefaultTrustTTL is how long a trusted device may skip the TOTP step.
const DefaultTrustTTL = 30 * 24 * time.Hour

// Second-factor errors. All but ErrTOTPNotConfigured count against the
// totp flood guard.
var (
	ErrTOTPNotConfigured  = errors.New("mfa: totp not configured")
	ErrMissingTOTPToken   = errors.New("mfa: missing totp token")
	ErrInvalidTOTPToken   = errors.New("mfa: invalid totp token")
	ErrInvalidBackupCode  = errors.New("mfa: invalid backup code")
	ErrTOTPAlreadyEnabled = errors.New("mfa: totp already enabled")
	ErrTOTPDisabled       = errors.New("mfa: totp not enabled")
	ErrDeviceNotFound     = errors.New("mfa: trusted device not found")
)

// Validator checks second-factor codes and trusted devices.
type Validator interface {
	// Validate checks a 6-digit TOTP code or, for any other length, a backup
	// code. A matched backup code is consumed and the user saved; the
	// returned user carries the new version.
	Validate(ctx context.Context, user *repository.User, code string) (*repository.User, error)
	// IsTrustedDevice reports whether secret matches a device entry for the
	// user agent that is younger than the trust TTL.
	IsTrustedDevice(user *repository.User, userAgent, secret string) bool
	// SaveTrustedDevice issues a new device secret for the user agent,
	// replacing any previous entry, and returns it in clear.
	SaveTrustedDevice(ctx context.Context, user *repository.User, userAgent string) (string, *repository.User, error)
}

// ValidatorDeps contiene las dependencias del validator.
type ValidatorDeps struct {
	Users repository.UserRepository
	Flood *flood.Guard
	// Box abre el secreto TOTP sellado; nil = secreto en claro.
	Box      *secretbox.Box
	TrustTTL time.Duration
	Now      func() time.Time
}

type validator struct {
	deps  ValidatorDeps
	codec secretCodec
}

// NewValidator crea el TOTP Validator.
func NewValidator(deps ValidatorDeps) Validator {
	if deps.TrustTTL <= 0 {
		deps.TrustTTL = DefaultTrustTTL
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &validator{deps: deps, codec: secretCodec{box: deps.Box}}
}

func (v *validator) Validate(ctx context.Context, user *repository.User, code string) (*repository.User, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("mfa.validator"),
		logger.Op("Validate"),
		logger.UserID(user.ID),
	)

	if user.TOTPSecret == "" {
		return nil, ErrTOTPNotConfigured
	}
	if err := v.deps.Flood.Check(ctx, repository.FloodTOTP, user.ID); err != nil {
		return nil, err
	}

	code = strings.TrimSpace(code)
	if code == "" {
		return nil, v.fail(ctx, user.ID, ErrMissingTOTPToken)
	}

	if len(code) == totp.Digits {
		secret, err := v.codec.open(user.TOTPSecret)
		if err != nil {
			log.Error("totp secret cannot be opened", logger.Err(err))
			return nil, fmt.Errorf("open totp secret: %w", err)
		}
		if !totp.Verify(secret, code, v.deps.Now()) {
			log.Debug("totp code rejected")
			return nil, v.fail(ctx, user.ID, ErrInvalidTOTPToken)
		}
		return user, nil
	}

	idx := slices.IndexFunc(user.TOTPBackupCodes, func(hash string) bool {
		return password.Verify(code, hash)
	})
	if idx < 0 {
		log.Debug("backup code rejected")
		return nil, v.fail(ctx, user.ID, ErrInvalidBackupCode)
	}

	updated := user.Clone()
	updated.TOTPBackupCodes = slices.Delete(updated.TOTPBackupCodes, idx, idx+1)
	updated.UpdatedAt = v.deps.Now()
	if err := v.deps.Users.Save(ctx, updated); err != nil {
		return nil, fmt.Errorf("consume backup code: %w", err)
	}
	log.Info("backup code consumed", logger.Count(len(updated.TOTPBackupCodes)))
	audit.Log(ctx, audit.BackupCodeUsed, logger.UserID(updated.ID), logger.Count(len(updated.TOTPBackupCodes)))
	return updated, nil
}

// fail registra el intento fallido y devuelve cause.
func (v *validator) fail(ctx context.Context, userID string, cause error) error {
	if err := v.deps.Flood.Record(ctx, repository.FloodTOTP, userID); err != nil {
		return err
	}
	return cause
}

func (v *validator) IsTrustedDevice(user *repository.User, userAgent, secret string) bool {
	if secret == "" {
		return false
	}
	uaHash := tokens.SHA256Hex(userAgent)
	for _, d := range user.TrustedDevices {
		if d.UserAgentHash != uaHash {
			continue
		}
		if !tokens.EqualHash(d.SecretHash, tokens.SHA256Hex(secret)) {
			return false
		}
		return v.deps.Now().Sub(d.CreatedAt) <= v.deps.TrustTTL
	}
	return false
}

func (v *validator) SaveTrustedDevice(ctx context.Context, user *repository.User, userAgent string) (string, *repository.User, error) {
	secret, err := tokens.GenerateOpaqueToken(32)
	if err != nil {
		return "", nil, err
	}
	now := v.deps.Now()
	uaHash := tokens.SHA256Hex(userAgent)

	updated := user.Clone()
	updated.TrustedDevices = slices.DeleteFunc(updated.TrustedDevices, func(d repository.TrustedDevice) bool {
		return d.UserAgentHash == uaHash
	})
	updated.TrustedDevices = append(updated.TrustedDevices, repository.TrustedDevice{
		ID:            uuid.NewString(),
		UserAgentHash: uaHash,
		SecretHash:    tokens.SHA256Hex(secret),
		CreatedAt:     now,
	})
	updated.UpdatedAt = now
	if err := v.deps.Users.Save(ctx, updated); err != nil {
		return "", nil, fmt.Errorf("save trusted device: %w", err)
	}

	logger.From(ctx).Info("trusted device saved",
		logger.Layer("service"), logger.Op("SaveTrustedDevice"), logger.UserID(user.ID))
	return secret, updated, nil
}
