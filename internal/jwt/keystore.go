package jwt

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/dropDatabas3/humanid/internal/observability/logger"
)

// ErrNoKey indica que la clave pedida no está configurada.
var ErrNoKey = errors.New("jwt: key not configured")

const (
	slotCurrent = "current"
	slotLegacy  = "legacy"
)

// KeystoreConfig indica de dónde cargar las claves.
type KeystoreConfig struct {
	// CurrentPath es el PEM privado con el que se firma.
	CurrentPath string
	// LegacyPath es el PEM (privado o público) de la clave anterior; opcional.
	LegacyPath string
	// Dev genera una clave efímera si CurrentPath está vacío.
	Dev bool
}

// Keystore carga las claves de forma perezosa. Las cargas concurrentes se
// colapsan con singleflight; solo se cachean las cargas exitosas.
type Keystore struct {
	cfg KeystoreConfig
	sf  singleflight.Group

	mu   sync.RWMutex
	keys map[string]*Key
}

// NewKeystore crea un keystore respaldado por archivos PEM.
func NewKeystore(cfg KeystoreConfig) *Keystore {
	return &Keystore{cfg: cfg, keys: map[string]*Key{}}
}

// NewStaticKeystore arma un keystore con claves ya cargadas (tests, CLI).
// legacy puede ser nil.
func NewStaticKeystore(current, legacy *Key) *Keystore {
	ks := &Keystore{keys: map[string]*Key{}}
	if current != nil {
		ks.keys[slotCurrent] = current
	}
	if legacy != nil {
		ks.keys[slotLegacy] = legacy
	}
	return ks
}

// Current devuelve la clave de firma activa.
func (k *Keystore) Current() (*Key, error) { return k.load(slotCurrent) }

// Legacy devuelve la clave anterior; ErrNoKey si no hay.
func (k *Keystore) Legacy() (*Key, error) { return k.load(slotLegacy) }

func (k *Keystore) load(slot string) (*Key, error) {
	k.mu.RLock()
	key, ok := k.keys[slot]
	k.mu.RUnlock()
	if ok {
		return key, nil
	}

	v, err, _ := k.sf.Do(slot, func() (any, error) {
		k.mu.RLock()
		cached, ok := k.keys[slot]
		k.mu.RUnlock()
		if ok {
			return cached, nil
		}
		key, err := k.read(slot)
		if err != nil {
			return nil, err
		}
		k.mu.Lock()
		k.keys[slot] = key
		k.mu.Unlock()
		return key, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Key), nil
}

func (k *Keystore) read(slot string) (*Key, error) {
	path := k.cfg.CurrentPath
	if slot == slotLegacy {
		path = k.cfg.LegacyPath
	}
	if path == "" {
		if slot == slotCurrent && k.cfg.Dev {
			priv, err := GenerateKey()
			if err != nil {
				return nil, err
			}
			key := NewKey(priv)
			logger.L().Warn("jwt: usando clave efímera de desarrollo", logger.Layer("jwt"), logger.String("kid", key.KID))
			return key, nil
		}
		return nil, ErrNoKey
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("jwt: read %s key: %w", slot, err)
	}
	key, err := ParseKeyPEM(data)
	if err != nil {
		return nil, err
	}
	if slot == slotCurrent && key.Private == nil {
		return nil, errors.New("jwt: current key must be a private key")
	}
	return key, nil
}
