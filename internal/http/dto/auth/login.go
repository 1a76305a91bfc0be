// Package auth contiene DTOs de login.
package auth

// LoginResponse es la respuesta JSON de POST /login.
type LoginResponse struct {
	// Step es "totp" (falta el segundo factor) o "done".
	Step     string `json:"step"`
	Redirect string `json:"redirect,omitempty"`
}
