package mfa

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/dropDatabas3/humanid/internal/audit"
	"github.com/dropDatabas3/humanid/internal/domain/repository"
	"github.com/dropDatabas3/humanid/internal/email"
	"github.com/dropDatabas3/humanid/internal/observability/logger"
	"github.com/dropDatabas3/humanid/internal/security/password"
	"github.com/dropDatabas3/humanid/internal/security/secretbox"
	"github.com/dropDatabas3/humanid/internal/security/totp"
)

// BackupCodeCount is the number of codes issued by RegenerateCodes.
const BackupCodeCount = 16

// ConfigureResult is returned by Configure so the user can enroll an
// authenticator app.
type ConfigureResult struct {
	Secret string
	URL    string
}

// TOTPService backs the /totp endpoints. Every operation except Configure
// validates the X-HID-TOTP code first.
type TOTPService interface {
	Configure(ctx context.Context, userID string) (*ConfigureResult, error)
	Enable(ctx context.Context, userID, code string) error
	Disable(ctx context.Context, userID, code string) error
	RegenerateCodes(ctx context.Context, userID, code string) ([]string, error)
	TrustDevice(ctx context.Context, userID, code, userAgent string) (string, error)
	RemoveDevice(ctx context.Context, userID, code, deviceID string) error
}

// TOTPDeps contiene las dependencias del servicio TOTP.
type TOTPDeps struct {
	Users     repository.UserRepository
	Validator Validator
	Mailer    email.Mailer
	Box       *secretbox.Box
	Hasher    password.Hasher
	// Issuer aparece en la app autenticadora (otpauth://totp/Issuer:email).
	Issuer string
	Now    func() time.Time
}

type totpService struct {
	deps  TOTPDeps
	codec secretCodec
}

// NewTOTPService crea el servicio TOTP.
func NewTOTPService(deps TOTPDeps) TOTPService {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Mailer == nil {
		deps.Mailer = email.NewMailer(nil)
	}
	if deps.Hasher.Cost == 0 {
		deps.Hasher = password.NewHasher(0)
	}
	if deps.Issuer == "" {
		deps.Issuer = "HID"
	}
	return &totpService{deps: deps, codec: secretCodec{box: deps.Box}}
}

func (s *totpService) Configure(ctx context.Context, userID string) (*ConfigureResult, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("totp.Configure"), logger.UserID(userID))

	user, err := s.deps.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.TOTPEnabled {
		return nil, ErrTOTPAlreadyEnabled
	}

	secret, err := totp.GenerateSecret()
	if err != nil {
		return nil, err
	}
	sealed, err := s.codec.seal(secret)
	if err != nil {
		return nil, fmt.Errorf("seal totp secret: %w", err)
	}
	user.TOTPSecret = sealed
	user.UpdatedAt = s.deps.Now()
	if err := s.deps.Users.Save(ctx, user); err != nil {
		return nil, err
	}

	log.Info("totp secret generated")
	return &ConfigureResult{Secret: secret, URL: totp.OTPAuthURL(s.deps.Issuer, user.Email, secret)}, nil
}

// confirm carga el usuario y valida el código del paso.
func (s *totpService) confirm(ctx context.Context, userID, code string) (*repository.User, error) {
	user, err := s.deps.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.deps.Validator.Validate(ctx, user, code)
}

func (s *totpService) Enable(ctx context.Context, userID, code string) error {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("totp.Enable"), logger.UserID(userID))

	user, err := s.deps.Users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.TOTPEnabled {
		return ErrTOTPAlreadyEnabled
	}
	user, err = s.deps.Validator.Validate(ctx, user, code)
	if err != nil {
		return err
	}

	user.TOTPEnabled = true
	user.UpdatedAt = s.deps.Now()
	if err := s.deps.Users.Save(ctx, user); err != nil {
		return err
	}
	log.Info("totp enabled")
	audit.Log(ctx, audit.TOTPEnabled, logger.UserID(user.ID))
	s.notify(ctx, email.KindTOTPEnabled, user.Email)
	return nil
}

func (s *totpService) Disable(ctx context.Context, userID, code string) error {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("totp.Disable"), logger.UserID(userID))

	user, err := s.deps.Users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if !user.TOTPEnabled {
		return ErrTOTPDisabled
	}
	user, err = s.deps.Validator.Validate(ctx, user, code)
	if err != nil {
		return err
	}

	user.TOTPEnabled = false
	user.TOTPSecret = ""
	user.TOTPBackupCodes = nil
	user.TrustedDevices = nil
	user.UpdatedAt = s.deps.Now()
	if err := s.deps.Users.Save(ctx, user); err != nil {
		return err
	}
	log.Info("totp disabled")
	audit.Log(ctx, audit.TOTPDisabled, logger.UserID(user.ID))
	s.notify(ctx, email.KindTOTPDisabled, user.Email)
	return nil
}

func (s *totpService) RegenerateCodes(ctx context.Context, userID, code string) ([]string, error) {
	user, err := s.confirm(ctx, userID, code)
	if err != nil {
		return nil, err
	}

	codes, err := totp.GenerateBackupCodes(BackupCodeCount)
	if err != nil {
		return nil, err
	}
	hashes := make([]string, 0, len(codes))
	for _, c := range codes {
		h, err := s.deps.Hasher.Hash(c)
		if err != nil {
			return nil, err
		}
		hashes = append(hashes, h)
	}

	user.TOTPBackupCodes = hashes
	user.UpdatedAt = s.deps.Now()
	if err := s.deps.Users.Save(ctx, user); err != nil {
		return nil, err
	}
	logger.From(ctx).Info("backup codes regenerated",
		logger.Layer("service"), logger.Op("totp.RegenerateCodes"), logger.UserID(userID), logger.Count(len(codes)))
	return codes, nil
}

func (s *totpService) TrustDevice(ctx context.Context, userID, code, userAgent string) (string, error) {
	user, err := s.confirm(ctx, userID, code)
	if err != nil {
		return "", err
	}
	secret, _, err := s.deps.Validator.SaveTrustedDevice(ctx, user, userAgent)
	return secret, err
}

func (s *totpService) RemoveDevice(ctx context.Context, userID, code, deviceID string) error {
	user, err := s.confirm(ctx, userID, code)
	if err != nil {
		return err
	}
	idx := slices.IndexFunc(user.TrustedDevices, func(d repository.TrustedDevice) bool { return d.ID == deviceID })
	if idx < 0 {
		return ErrDeviceNotFound
	}
	user.TrustedDevices = slices.Delete(user.TrustedDevices, idx, idx+1)
	user.UpdatedAt = s.deps.Now()
	if err := s.deps.Users.Save(ctx, user); err != nil {
		return err
	}
	logger.From(ctx).Info("trusted device removed",
		logger.Layer("service"), logger.Op("totp.RemoveDevice"), logger.UserID(userID), logger.ID(deviceID))
	return nil
}

// notify envía el mail sin afectar el resultado de la operación.
func (s *totpService) notify(ctx context.Context, kind email.Kind, to string) {
	if err := s.deps.Mailer.Send(ctx, kind, to); err != nil {
		logger.From(ctx).Warn("notification mail failed",
			logger.Layer("service"), logger.String("kind", string(kind)), logger.Err(err))
	}
}
