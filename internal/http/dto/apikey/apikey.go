// Package apikey contiene DTOs de /api/v3/jsonwebtoken y /api/v3/bewit.
package apikey

import "time"

// IssueRequest son las credenciales para emitir una API key. El código TOTP
// viaja en el header X-HID-TOTP.
type IssueRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// IssueResponse devuelve el JWT una única vez.
type IssueResponse struct {
	ID    string `json:"id"`
	Token string `json:"token"`
}

// KeyView es una API key listada (sin el token).
type KeyView struct {
	ID          string    `json:"id"`
	Blacklisted bool      `json:"blacklisted"`
	CreatedAt   time.Time `json:"created_at"`
}

// BlacklistRequest identifica la key a revocar.
type BlacklistRequest struct {
	Token string `json:"token"`
}

// BewitRequest pide una URL firmada.
type BewitRequest struct {
	URL string `json:"url"`
}

// BewitResponse devuelve la URL firmada y su vencimiento.
type BewitResponse struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}
