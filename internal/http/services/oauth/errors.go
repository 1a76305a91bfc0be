package oauth

import "errors"

// Errores del protocolo
var (
	ErrInvalidRequest  = errors.New("oauth: invalid request")
	ErrInvalidGrant    = errors.New("oauth: invalid grant")
	ErrInvalidRedirect = errors.New("oauth: redirect_uri not registered")
	ErrClientNotFound  = errors.New("oauth: client not found")
	ErrInvalidClient   = errors.New("oauth: client authentication failed")
	ErrInvalidToken    = errors.New("oauth: invalid access token")
	ErrLoginRequired   = errors.New("oauth: login required")
	// ErrTokenCollision es reintentable: el token generado ya existía.
	ErrTokenCollision = errors.New("oauth: token collision")
)
