package middlewares

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"

	"github.com/dropDatabas3/humanid/internal/domain/repository"
	httperrors "github.com/dropDatabas3/humanid/internal/http/errors"
	"github.com/dropDatabas3/humanid/internal/jwt"
	"github.com/dropDatabas3/humanid/internal/observability/logger"
	"github.com/dropDatabas3/humanid/internal/security/bewit"
	"github.com/dropDatabas3/humanid/internal/session"
)

// =================================================================================
// PRINCIPAL
// =================================================================================

// Principal es la identidad autenticada de un request.
type Principal struct {
	UserID string
	// Method es "session", "bearer_jwt", "bearer_token" o "bewit".
	Method string
	// ClientID y Scope solo se completan con access tokens OAuth opacos.
	ClientID string
	Scope    string
}

// =================================================================================
// ESTRATEGIAS (conjunto cerrado: SessionAuth | BearerAuth | BewitAuth)
// =================================================================================

// errNoCredentials indica que la estrategia no aplica a este request y se
// prueba la siguiente.
var errNoCredentials = errors.New("auth: no credentials")

// Strategy es una forma de autenticar un request. El método sin exportar
// impide implementaciones fuera de este paquete.
type Strategy interface {
	authenticate(r *http.Request) (Principal, error)
}

// SessionAuth acepta la cookie de sesión cuando contraseña y TOTP (si aplica)
// fueron superados.
type SessionAuth struct {
	Sessions *session.Manager
}

func (a SessionAuth) authenticate(r *http.Request) (Principal, error) {
	s := a.Sessions.Load(r)
	if !s.Authenticated() {
		return Principal{}, errNoCredentials
	}
	return Principal{UserID: s.UserID, Method: "session"}, nil
}

// JWTVerifier verifica API keys firmadas.
type JWTVerifier interface {
	Verify(token string) (jwtv5.MapClaims, error)
}

// BlacklistChecker indica si una API key fue revocada.
type BlacklistChecker interface {
	IsBlacklisted(ctx context.Context, token string) (bool, error)
}

// AccessTokenLookup busca tokens OAuth opacos.
type AccessTokenLookup interface {
	Lookup(ctx context.Context, typ repository.TokenType, token string) (*repository.OAuthToken, error)
}

// BearerAuth acepta Authorization: Bearer con una API key JWT (no revocada)
// o un access token OAuth opaco vigente.
type BearerAuth struct {
	JWT       JWTVerifier
	Blacklist BlacklistChecker
	Tokens    AccessTokenLookup
	// Now permite fijar el reloj en tests.
	Now func() time.Time
}

func (a BearerAuth) authenticate(r *http.Request) (Principal, error) {
	raw := BearerToken(r)
	if raw == "" {
		return Principal{}, errNoCredentials
	}
	if strings.Count(raw, ".") == 2 {
		return a.fromJWT(r.Context(), raw)
	}
	return a.fromAccessToken(r.Context(), raw)
}

func (a BearerAuth) fromJWT(ctx context.Context, raw string) (Principal, error) {
	if a.JWT == nil {
		return Principal{}, httperrors.ErrUnauthorized
	}
	claims, err := a.JWT.Verify(raw)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return Principal{}, httperrors.ErrTokenExpired
	case errors.Is(err, jwt.ErrSignatureInvalid):
		return Principal{}, httperrors.ErrSignatureInvalid
	case err != nil:
		return Principal{}, httperrors.ErrServiceUnavailable.WithCause(err)
	}
	userID, _ := claims["id"].(string)
	if userID == "" {
		return Principal{}, httperrors.ErrSignatureInvalid.WithDetail("missing id claim")
	}
	if a.Blacklist != nil {
		revoked, err := a.Blacklist.IsBlacklisted(ctx, raw)
		if err != nil {
			return Principal{}, httperrors.ErrServiceUnavailable.WithCause(err)
		}
		if revoked {
			return Principal{}, httperrors.ErrUnauthorized.WithDetail("api key revoked")
		}
	}
	return Principal{UserID: userID, Method: "bearer_jwt"}, nil
}

func (a BearerAuth) fromAccessToken(ctx context.Context, raw string) (Principal, error) {
	if a.Tokens == nil {
		return Principal{}, httperrors.ErrUnauthorized
	}
	tok, err := a.Tokens.Lookup(ctx, repository.TokenAccess, raw)
	if err != nil {
		if repository.IsNotFound(err) {
			return Principal{}, httperrors.ErrUnauthorized.WithDetail("unknown access token")
		}
		return Principal{}, httperrors.ErrServiceUnavailable.WithCause(err)
	}
	now := time.Now
	if a.Now != nil {
		now = a.Now
	}
	if tok.Expired(now()) {
		return Principal{}, httperrors.ErrTokenExpired
	}
	return Principal{UserID: tok.UserID, Method: "bearer_token", ClientID: tok.ClientID, Scope: tok.Scope}, nil
}

// BewitAuth acepta URLs firmadas (?bewit=) en requests GET.
type BewitAuth struct {
	Signer *bewit.Signer
}

func (a BewitAuth) authenticate(r *http.Request) (Principal, error) {
	b := r.URL.Query().Get("bewit")
	if b == "" {
		return Principal{}, errNoCredentials
	}
	if r.Method != http.MethodGet {
		return Principal{}, httperrors.ErrUnauthorized.WithDetail("bewit only valid for GET")
	}
	userID, err := a.Signer.Verify(b, bewit.CanonicalPath(r.URL))
	switch {
	case errors.Is(err, bewit.ErrExpired):
		return Principal{}, httperrors.ErrTokenExpired
	case err != nil:
		return Principal{}, httperrors.ErrSignatureInvalid
	}
	return Principal{UserID: userID, Method: "bewit"}, nil
}

// BearerToken extrae el token de Authorization: Bearer ("" si no hay).
func BearerToken(r *http.Request) string {
	ah := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(ah) < 7 || !strings.EqualFold(ah[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(ah[7:])
}

// =================================================================================
// MIDDLEWARE
// =================================================================================

// RequireAuth prueba las estrategias en orden. La primera que encuentra
// credenciales decide: si son válidas el Principal queda en el contexto, si
// no se responde con su error. Sin credenciales se responde 401.
func RequireAuth(strategies ...Strategy) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, st := range strategies {
				p, err := st.authenticate(r)
				if errors.Is(err, errNoCredentials) {
					continue
				}
				if err != nil {
					logger.From(r.Context()).Debug("authentication rejected", logger.Op("require_auth"), logger.Err(err))
					w.Header().Set("WWW-Authenticate", `Bearer realm="humanid", error="invalid_token"`)
					httperrors.WriteError(w, err)
					return
				}
				ctx := WithPrincipal(r.Context(), p)
				ctx = logger.Enrich(ctx, logger.UserID(p.UserID), logger.AuthMethod(p.Method))
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}
			w.Header().Set("WWW-Authenticate", `Bearer realm="humanid"`)
			httperrors.WriteError(w, httperrors.ErrUnauthorized)
		})
	}
}
