package apikey

import (
	svc "github.com/dropDatabas3/humanid/internal/http/services/apikey"
	"github.com/dropDatabas3/humanid/internal/security/bewit"
)

// Controllers agrupa los controllers de API keys y bewits.
type Controllers struct {
	APIKeys *APIKeyController
	Bewit   *BewitController
}

// NewControllers crea el agregador.
func NewControllers(s svc.Service, signer *bewit.Signer) *Controllers {
	return &Controllers{
		APIKeys: NewAPIKeyController(s),
		Bewit:   NewBewitController(signer),
	}
}
