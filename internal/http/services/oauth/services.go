// Package oauth implementa el authorization server OAuth2/OIDC: enums del
// protocolo, Token Issuer y GrantEngine (authorize, decision, token).
package oauth

import (
	"time"

	"github.com/dropDatabas3/humanid/internal/cache"
	"github.com/dropDatabas3/humanid/internal/domain/repository"
)

// Deps contiene las dependencias para crear los services oauth.
type Deps struct {
	Tokens      repository.OAuthTokenRepository
	Clients     repository.ClientRepository
	Users       repository.UserRepository
	JWT         IDTokenSigner
	ClientCache cache.Client
	ClientTTL   time.Duration
	TTL         TTLConfig
	LoginURL    string
}

// Services agrupa los services del dominio oauth.
type Services struct {
	Issuer *TokenIssuer
	Grants *GrantEngine
}

// NewServices crea el agregador de services oauth.
func NewServices(d Deps) Services {
	issuer := NewTokenIssuer(d.Tokens, d.TTL)
	return Services{
		Issuer: issuer,
		Grants: NewGrantEngine(GrantDeps{
			Tokens:   issuer,
			Clients:  NewCachedClients(d.Clients, d.ClientCache, d.ClientTTL),
			Users:    d.Users,
			JWT:      d.JWT,
			LoginURL: d.LoginURL,
		}),
	}
}
