package jwt

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
)

// Key es un par RSA identificado por kid. Private es nil para claves
// legacy cargadas solo como pública.
type Key struct {
	KID     string
	Private *rsa.PrivateKey
	Public  *rsa.PublicKey
}

// GenerateKey genera una clave RSA-2048.
func GenerateKey() (*rsa.PrivateKey, error) {
	return rsa.GenerateKey(rand.Reader, 2048)
}

// KID calcula base64url(sha256(SPKI DER)) de la clave pública.
func KID(pub *rsa.PublicKey) string {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(der)
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// NewKey arma un Key desde una privada.
func NewKey(priv *rsa.PrivateKey) *Key {
	return &Key{KID: KID(&priv.PublicKey), Private: priv, Public: &priv.PublicKey}
}

// EncodePrivateKeyPEM serializa en PKCS#8 ("PRIVATE KEY").
func EncodePrivateKeyPEM(priv *rsa.PrivateKey) ([]byte, error) {
	der, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return nil, err
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}), nil
}

// ParseKeyPEM acepta PKCS#1/PKCS#8 privadas o PKIX/PKCS#1 públicas.
func ParseKeyPEM(data []byte) (*Key, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.New("jwt: no PEM block found")
	}
	switch block.Type {
	case "RSA PRIVATE KEY":
		priv, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("jwt: parse pkcs1: %w", err)
		}
		return NewKey(priv), nil
	case "PRIVATE KEY":
		k, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("jwt: parse pkcs8: %w", err)
		}
		priv, ok := k.(*rsa.PrivateKey)
		if !ok {
			return nil, errors.New("jwt: pkcs8 key is not RSA")
		}
		return NewKey(priv), nil
	case "PUBLIC KEY":
		k, err := x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("jwt: parse pkix: %w", err)
		}
		pub, ok := k.(*rsa.PublicKey)
		if !ok {
			return nil, errors.New("jwt: public key is not RSA")
		}
		return &Key{KID: KID(pub), Public: pub}, nil
	case "RSA PUBLIC KEY":
		pub, err := x509.ParsePKCS1PublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("jwt: parse pkcs1 public: %w", err)
		}
		return &Key{KID: KID(pub), Public: pub}, nil
	default:
		return nil, fmt.Errorf("jwt: unsupported PEM type %q", block.Type)
	}
}

// ----- JWKS (serialización) -----

// JWK es una clave pública RSA en formato JWK.
type JWK struct {
	Kty string `json:"kty"` // "RSA"
	Kid string `json:"kid"`
	Use string `json:"use"` // "sig"
	Alg string `json:"alg"` // "RS256"
	N   string `json:"n"`
	E   string `json:"e"`
}

// JWKS es el documento {keys: [...]}.
type JWKS struct {
	Keys []JWK `json:"keys"`
}

func toJWK(k *Key) JWK {
	return JWK{
		Kty: "RSA",
		Kid: k.KID,
		Use: "sig",
		Alg: "RS256",
		N:   base64.RawURLEncoding.EncodeToString(k.Public.N.Bytes()),
		E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(k.Public.E)).Bytes()),
	}
}
