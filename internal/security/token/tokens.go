package tokens

import (
	"crypto/rand"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// opaqueEntropy es la cantidad de bytes aleatorios que alimentan cada token OAuth.
const opaqueEntropy = 256

// NewOpaque genera un token OAuth opaco: hex(sha1(256 bytes aleatorios)).
// La unicidad la garantiza la capa de persistencia, no la construcción.
func NewOpaque() (string, error) {
	b := make([]byte, opaqueEntropy)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	sum := sha1.Sum(b)
	return hex.EncodeToString(sum[:]), nil
}

// GenerateOpaqueToken genera un token aleatorio (base64url sin padding).
// Se usa para secretos de trusted device y client secrets.
func GenerateOpaqueToken(nBytes int) (string, error) {
	b := make([]byte, nBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// SHA256Hex devuelve sha256(input) en hexadecimal (hash de user agent y de API keys).
func SHA256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return fmt.Sprintf("%x", sum)
}

// EqualHash compara dos digests en tiempo constante.
func EqualHash(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
