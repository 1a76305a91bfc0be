package oidc

import (
	"strings"

	dto "github.com/dropDatabas3/humanid/internal/http/dto/oidc"
)

// DiscoveryService arma el documento /.well-known/openid-configuration.
type DiscoveryService interface {
	Discovery() dto.OIDCMetadata
}

type discoveryService struct {
	issuer  string
	baseURL string
}

// NewDiscoveryService crea el service. baseURL vacío usa el issuer.
func NewDiscoveryService(issuer, baseURL string) DiscoveryService {
	issuer = strings.TrimRight(issuer, "/")
	baseURL = strings.TrimRight(baseURL, "/")
	if baseURL == "" {
		baseURL = issuer
	}
	return &discoveryService{issuer: issuer, baseURL: baseURL}
}

// Metadata OIDC común
var (
	responseTypesSupported            = []string{"code", "token", "id_token", "id_token token"}
	responseModesSupported            = []string{"query", "fragment"}
	grantTypesSupported               = []string{"authorization_code", "refresh_token", "implicit"}
	subjectTypesSupported             = []string{"public"}
	idTokenSigningAlgValuesSupported  = []string{"RS256"}
	tokenEndpointAuthMethodsSupported = []string{"client_secret_basic", "client_secret_post"}
	promptValuesSupported             = []string{"none", "login", "consent", "select_account"}
	scopesSupported                   = []string{"openid", "email", "profile"}
	claimsSupported                   = []string{
		"iss", "sub", "aud", "exp", "iat", "nonce", "auth_time",
		"email", "email_verified",
		"name", "given_name", "family_name", "picture", "locale", "updated_at",
	}
)

func (s *discoveryService) Discovery() dto.OIDCMetadata {
	return dto.OIDCMetadata{
		Issuer:                            s.issuer,
		AuthorizationEndpoint:             s.baseURL + "/oauth/authorize",
		TokenEndpoint:                     s.baseURL + "/oauth/access_token",
		UserinfoEndpoint:                  s.baseURL + "/oauth/userinfo",
		JWKSURI:                           s.baseURL + "/oauth/jwks",
		EndSessionEndpoint:                s.baseURL + "/logout",
		ResponseTypesSupported:            responseTypesSupported,
		ResponseModesSupported:            responseModesSupported,
		GrantTypesSupported:               grantTypesSupported,
		SubjectTypesSupported:             subjectTypesSupported,
		IDTokenSigningAlgValuesSupported:  idTokenSigningAlgValuesSupported,
		TokenEndpointAuthMethodsSupported: tokenEndpointAuthMethodsSupported,
		PromptValuesSupported:             promptValuesSupported,
		ScopesSupported:                   scopesSupported,
		ClaimsSupported:                   claimsSupported,
	}
}
