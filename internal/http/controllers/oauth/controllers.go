package oauth

import (
	svc "github.com/dropDatabas3/humanid/internal/http/services/oauth"
	"github.com/dropDatabas3/humanid/internal/session"
)

// Controllers agrupa todos los controllers del dominio OAuth.
type Controllers struct {
	Authorize *AuthorizeController
	Token     *TokenController
	UserInfo  *UserInfoController
}

// NewControllers creates the OAuth controllers aggregator.
func NewControllers(s svc.Services, sessions *session.Manager) *Controllers {
	return &Controllers{
		Authorize: NewAuthorizeController(s.Grants, sessions),
		Token:     NewTokenController(s.Grants),
		UserInfo:  NewUserInfoController(s.Grants),
	}
}
