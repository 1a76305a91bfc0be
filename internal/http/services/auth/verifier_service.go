package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dropDatabas3/humanid/internal/domain/repository"
	"github.com/dropDatabas3/humanid/internal/flood"
	"github.com/dropDatabas3/humanid/internal/metrics"
	"github.com/dropDatabas3/humanid/internal/observability/logger"
	"github.com/dropDatabas3/humanid/internal/security/password"
)

// DefaultPasswordMaxAgeMonths is the password age after which login is refused.
const DefaultPasswordMaxAgeMonths = 6

// Errores de credenciales
var (
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrEmailUnverified    = errors.New("auth: email not verified")
	ErrPasswordExpired    = errors.New("auth: password expired")
)

// Verifier is the Credential Verifier.
type Verifier interface {
	// Verify checks email and password. Unknown emails and wrong passwords
	// are recorded against the login flood guard; a locked-out email fails
	// before the password is compared.
	Verify(ctx context.Context, email, password string) (*repository.User, error)
}

// VerifierDeps contiene las dependencias del verifier.
type VerifierDeps struct {
	Users                repository.UserRepository
	Flood                *flood.Guard
	PasswordMaxAgeMonths int
	Now                  func() time.Time
}

type verifier struct {
	deps VerifierDeps
}

// NewVerifier crea el Credential Verifier.
func NewVerifier(deps VerifierDeps) Verifier {
	if deps.PasswordMaxAgeMonths == 0 {
		deps.PasswordMaxAgeMonths = DefaultPasswordMaxAgeMonths
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &verifier{deps: deps}
}

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (v *verifier) Verify(ctx context.Context, email, pwd string) (*repository.User, error) {
	email = NormalizeEmail(email)
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("auth.verifier"),
		logger.Op("Verify"),
	)

	if err := v.deps.Flood.Check(ctx, repository.FloodLogin, email); err != nil {
		if errors.Is(err, flood.ErrRateLimited) {
			metrics.RecordLogin("rate_limited")
		}
		return nil, err
	}

	user, err := v.deps.Users.GetByEmail(ctx, email)
	if err != nil {
		if repository.IsNotFound(err) {
			log.Debug("unknown email")
			return nil, v.invalid(ctx, email)
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	log = log.With(logger.UserID(user.ID))

	if !user.EmailVerified {
		log.Info("email not verified")
		metrics.RecordLogin("unverified")
		return nil, ErrEmailUnverified
	}
	if password.Expired(user.LastPasswordReset, v.deps.Now(), v.deps.PasswordMaxAgeMonths) {
		log.Info("password expired")
		metrics.RecordLogin("expired")
		return nil, ErrPasswordExpired
	}

	if !password.Verify(pwd, user.PasswordHash) {
		log.Debug("password check failed")
		return nil, v.invalid(ctx, email)
	}

	metrics.RecordLogin("success")
	return user, nil
}

// invalid registra el intento fallido para email y devuelve ErrInvalidCredentials.
func (v *verifier) invalid(ctx context.Context, email string) error {
	metrics.RecordLogin("invalid")
	if err := v.deps.Flood.Record(ctx, repository.FloodLogin, email); err != nil {
		return err
	}
	return ErrInvalidCredentials
}
