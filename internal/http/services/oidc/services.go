// Package oidc contiene los services de discovery y JWKS.
package oidc

// Deps contiene las dependencias para crear los services OIDC.
type Deps struct {
	Issuer  string
	BaseURL string
	Keys    KeySource
}

// Services agrupa los services del dominio OIDC.
type Services struct {
	Discovery DiscoveryService
	JWKS      JWKSService
}

// NewServices crea el agregador de services OIDC.
func NewServices(d Deps) Services {
	return Services{
		Discovery: NewDiscoveryService(d.Issuer, d.BaseURL),
		JWKS:      NewJWKSService(d.Keys),
	}
}
