// Package mfa contiene DTOs de /totp.
package mfa

// ConfigResponse es el secreto nuevo y su URL otpauth:// (para QR).
type ConfigResponse struct {
	Secret string `json:"secret"`
	URL    string `json:"url"`
}

// StatusResponse informa el estado TOTP tras enable/disable.
type StatusResponse struct {
	Enabled bool `json:"enabled"`
}

// CodesResponse devuelve los backup codes en claro (única vez).
type CodesResponse struct {
	Codes []string `json:"codes"`
}
