// Package password hashea y compara contraseñas y códigos de respaldo con bcrypt.
package password

import (
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost es deliberadamente lento; los tests bajan a bcrypt.MinCost.
const DefaultCost = 12

// ErrEmpty indica una contraseña vacía.
var ErrEmpty = errors.New("empty password")

// Hasher encapsula el costo de bcrypt.
type Hasher struct {
	Cost int
}

// NewHasher crea un Hasher; cost <= 0 usa DefaultCost.
func NewHasher(cost int) Hasher {
	if cost <= 0 {
		cost = DefaultCost
	}
	return Hasher{Cost: cost}
}

// Hash devuelve el hash bcrypt de plain.
func (h Hasher) Hash(plain string) (string, error) {
	if plain == "" {
		return "", ErrEmpty
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), h.Cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Verify compara plain contra un hash bcrypt. Hash inválido = false.
func Verify(plain, hash string) bool {
	if plain == "" || hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// Expired indica si una contraseña cambiada en lastReset superó maxAge meses.
// lastReset cero = nunca vence (usuarios anteriores a la política).
func Expired(lastReset, now time.Time, maxAgeMonths int) bool {
	if lastReset.IsZero() || maxAgeMonths <= 0 {
		return false
	}
	return lastReset.AddDate(0, maxAgeMonths, 0).Before(now)
}
