package repository

import (
	"context"
	"slices"
	"time"
)

// TrustedDevice es un dispositivo que puede saltear el paso TOTP.
// UserAgentHash y SecretHash son SHA-256 hex; el secreto en claro solo
// vive en la cookie del navegador.
type TrustedDevice struct {
	ID            string
	UserAgentHash string
	SecretHash    string
	CreatedAt     time.Time
}

// User representa un usuario tal como lo ve el core de autenticación.
type User struct {
	ID            string
	Email         string
	PasswordHash  string
	EmailVerified bool

	TOTPEnabled bool
	// TOTPSecret se guarda sellado con secretbox cuando hay clave configurada.
	TOTPSecret string
	// TOTPBackupCodes son hashes bcrypt; cada uno se elimina al usarse.
	TOTPBackupCodes []string
	TrustedDevices  []TrustedDevice

	LastPasswordReset time.Time
	AuthorizedClients []string

	// Claims de perfil para el ID token.
	Name       string
	GivenName  string
	FamilyName string
	Picture    string
	Locale     string

	CreatedAt time.Time
	UpdatedAt time.Time
	// Version se incrementa en cada Save exitoso.
	Version int64
}

// HasAuthorizedClient indica si el usuario ya dio consentimiento al client.
func (u *User) HasAuthorizedClient(clientID string) bool {
	return slices.Contains(u.AuthorizedClients, clientID)
}

// Clone devuelve una copia profunda (los adapters en memoria no comparten slices).
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.TOTPBackupCodes = slices.Clone(u.TOTPBackupCodes)
	c.TrustedDevices = slices.Clone(u.TrustedDevices)
	c.AuthorizedClients = slices.Clone(u.AuthorizedClients)
	return &c
}

// UserRepository es el Credential Store: lookup por id/email con save optimista.
type UserRepository interface {
	// GetByID busca un usuario por ID.
	// Retorna ErrNotFound si no existe.
	GetByID(ctx context.Context, id string) (*User, error)

	// GetByEmail busca un usuario por email (ya normalizado a minúsculas).
	// Retorna ErrNotFound si no existe.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// Create inserta un usuario nuevo. Email duplicado retorna ErrConflict.
	Create(ctx context.Context, u *User) error

	// Save persiste los campos de autenticación del usuario.
	// Falla con ErrConflict si u.Version no coincide con la almacenada;
	// en éxito incrementa u.Version.
	Save(ctx context.Context, u *User) error
}
