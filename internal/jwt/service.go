// Package jwt firma y verifica JWT RS256 (API keys e ID tokens OIDC) con
// rotación current → legacy y publica el JWKS.
package jwt

import (
	"errors"
	"slices"
	"strings"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/dropDatabas3/humanid/internal/domain/repository"
	"github.com/dropDatabas3/humanid/internal/metrics"
)

var (
	// ErrSignatureInvalid: ni la clave actual ni la legacy validan la firma.
	ErrSignatureInvalid = errors.New("jwt: signature invalid")
	// ErrTokenExpired: firma válida pero exp en el pasado.
	ErrTokenExpired = errors.New("jwt: token expired")
)

// Config del servicio.
type Config struct {
	Issuer     string
	IDTokenTTL time.Duration
	// APIKeyTTL cero = API keys sin exp.
	APIKeyTTL time.Duration
	// LegacySubClients reciben el email como sub del ID token.
	LegacySubClients []string
}

// Service es el JWT Service.
type Service struct {
	keys *Keystore
	cfg  Config
	now  func() time.Time
}

// NewService crea el servicio; IDTokenTTL default 1h.
func NewService(keys *Keystore, cfg Config) *Service {
	if cfg.IDTokenTTL <= 0 {
		cfg.IDTokenTTL = time.Hour
	}
	return &Service{keys: keys, cfg: cfg, now: time.Now}
}

// WithClock reemplaza el reloj (tests).
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Issuer devuelve el iss configurado.
func (s *Service) Issuer() string { return s.cfg.Issuer }

// Issue firma claims con la clave actual (RS256) y header kid.
func (s *Service) Issue(claims jwtv5.MapClaims) (string, error) {
	key, err := s.keys.Current()
	if err != nil {
		return "", err
	}
	tk := jwtv5.NewWithClaims(jwtv5.SigningMethodRS256, claims)
	tk.Header["kid"] = key.KID
	tk.Header["typ"] = "JWT"
	return tk.SignedString(key.Private)
}

// Verify valida con la clave actual y, si falla la firma (o la actual no se
// puede cargar), una vez con la legacy.
func (s *Service) Verify(token string) (jwtv5.MapClaims, error) {
	cur, cerr := s.keys.Current()
	if cerr == nil {
		claims, err := s.parse(token, cur)
		if err == nil {
			metrics.RecordJWTVerification("current")
			return claims, nil
		}
		if errors.Is(err, jwtv5.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
	}

	legacy, lerr := s.keys.Legacy()
	if lerr != nil {
		if cerr != nil {
			// sin ninguna clave cargable
			return nil, cerr
		}
		metrics.RecordJWTVerification("none")
		return nil, ErrSignatureInvalid
	}
	if cerr == nil && legacy.KID == cur.KID {
		metrics.RecordJWTVerification("none")
		return nil, ErrSignatureInvalid
	}
	claims, err := s.parse(token, legacy)
	if err == nil {
		metrics.RecordJWTVerification("legacy")
		return claims, nil
	}
	if errors.Is(err, jwtv5.ErrTokenExpired) {
		return nil, ErrTokenExpired
	}
	metrics.RecordJWTVerification("none")
	return nil, ErrSignatureInvalid
}

func (s *Service) parse(token string, key *Key) (jwtv5.MapClaims, error) {
	claims := jwtv5.MapClaims{}
	_, err := jwtv5.ParseWithClaims(token, claims,
		func(*jwtv5.Token) (any, error) { return key.Public, nil },
		jwtv5.WithValidMethods([]string{"RS256"}),
		jwtv5.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// PublicKeyAsJWK expone la clave actual; si no se puede cargar, la legacy.
func (s *Service) PublicKeyAsJWK() (JWK, error) {
	key, err := s.keys.Current()
	if err != nil {
		legacy, lerr := s.keys.Legacy()
		if lerr != nil {
			return JWK{}, err
		}
		key = legacy
	}
	return toJWK(key), nil
}

// JWKS devuelve la actual y, si es distinta, la legacy (para que los
// clientes verifiquen tokens firmados antes de la rotación).
func (s *Service) JWKS() (JWKS, error) {
	first, err := s.PublicKeyAsJWK()
	if err != nil {
		return JWKS{}, err
	}
	set := JWKS{Keys: []JWK{first}}
	if legacy, err := s.keys.Legacy(); err == nil && legacy.KID != first.Kid {
		set.Keys = append(set.Keys, toJWK(legacy))
	}
	return set, nil
}

// HasScope indica si scope (separado por espacios) contiene want.
func HasScope(scope, want string) bool {
	return slices.Contains(strings.Fields(scope), want)
}

// GenerateIDToken construye y firma un ID token OIDC.
func (s *Service) GenerateIDToken(client *repository.Client, user *repository.User, scope, nonce string, authTime time.Time) (string, error) {
	now := s.now()
	claims := jwtv5.MapClaims{
		"iss": s.cfg.Issuer,
		"sub": s.Subject(client.ID, user),
		"aud": client.ID,
		"iat": now.Unix(),
		"exp": now.Add(s.cfg.IDTokenTTL).Unix(),
	}
	if nonce != "" {
		claims["nonce"] = nonce
	}
	if !authTime.IsZero() {
		claims["auth_time"] = authTime.Unix()
	}
	for k, v := range UserClaims(user, scope) {
		claims[k] = v
	}
	return s.Issue(claims)
}

// Subject es el sub para clientID: el user ID, o el email para los clientes
// de la tabla legacy.
func (s *Service) Subject(clientID string, user *repository.User) string {
	if slices.Contains(s.cfg.LegacySubClients, clientID) {
		return user.Email
	}
	return user.ID
}

// UserClaims devuelve los claims de usuario habilitados por scope
// (email → email/email_verified, profile → datos de perfil). También lo usa /userinfo.
func UserClaims(user *repository.User, scope string) map[string]any {
	out := map[string]any{}
	if HasScope(scope, "email") {
		out["email"] = user.Email
		out["email_verified"] = user.EmailVerified
	}
	if HasScope(scope, "profile") {
		out["name"] = user.Name
		out["given_name"] = user.GivenName
		out["family_name"] = user.FamilyName
		out["picture"] = user.Picture
		out["locale"] = user.Locale
		if !user.UpdatedAt.IsZero() {
			out["updated_at"] = user.UpdatedAt.Unix()
		}
	}
	return out
}

// IssueAPIKey emite el JWT de API {id, jti, iat, exp?}. El jti evita que dos
// keys emitidas en el mismo segundo tengan el mismo hash.
func (s *Service) IssueAPIKey(userID string) (string, error) {
	now := s.now()
	claims := jwtv5.MapClaims{
		"id":  userID,
		"jti": uuid.NewString(),
		"iat": now.Unix(),
	}
	if s.cfg.APIKeyTTL > 0 {
		claims["exp"] = now.Add(s.cfg.APIKeyTTL).Unix()
	}
	return s.Issue(claims)
}
