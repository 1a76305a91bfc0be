// Package oauth contiene DTOs del authorization server.
package oauth

// ConsentResponse se devuelve en GET /oauth/authorize cuando el usuario
// todavía no autorizó al client. La UI re-envía Params junto con decision
// (approve | deny) en POST /oauth/authorize.
type ConsentResponse struct {
	Status     string            `json:"status"` // "consent_required"
	ClientID   string            `json:"client_id"`
	ClientName string            `json:"client_name,omitempty"`
	Scope      string            `json:"scope,omitempty"`
	Params     map[string]string `json:"params"`
}
