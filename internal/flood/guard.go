// Package flood cuenta intentos fallidos (login, totp) por identificador en una
// ventana deslizante y bloquea temporalmente al llegar al umbral.
//
// Check y Record son dos pasos separados: dos intentos concurrentes pueden
// leer el mismo conteo antes de que alguno registre. Se mantiene así a propósito
// para no cambiar el momento observable del bloqueo.
package flood

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dropDatabas3/humanid/internal/domain/repository"
	"github.com/dropDatabas3/humanid/internal/metrics"
	"github.com/dropDatabas3/humanid/internal/observability/logger"
)

const (
	DefaultWindow    = 5 * time.Minute
	DefaultThreshold = 5
)

// ErrRateLimited indica que el identificador está bloqueado.
var ErrRateLimited = errors.New("flood: too many failed attempts")

// LockedError es el ErrRateLimited concreto que devuelve Check; RetryAfter es
// la ventana configurada del Guard.
type LockedError struct {
	RetryAfter time.Duration
}

func (e *LockedError) Error() string { return ErrRateLimited.Error() }

func (e *LockedError) Is(target error) bool { return target == ErrRateLimited }

// Config define ventana y umbral.
type Config struct {
	Window    time.Duration
	Threshold int
}

// Guard aplica el lockout sobre un FloodRepository (Postgres, memoria o Redis).
type Guard struct {
	store     repository.FloodRepository
	window    time.Duration
	threshold int
	now       func() time.Time
}

// New crea un Guard; valores cero usan los defaults (5 minutos, 5 intentos).
func New(store repository.FloodRepository, cfg Config) *Guard {
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultThreshold
	}
	return &Guard{store: store, window: cfg.Window, threshold: cfg.Threshold, now: time.Now}
}

// WithClock reemplaza el reloj (tests).
func (g *Guard) WithClock(now func() time.Time) *Guard {
	g.now = now
	return g
}

// Window es la ventana de conteo; también es el hint de espera para el cliente.
func (g *Guard) Window() time.Duration { return g.window }

// Check falla con ErrRateLimited (como *LockedError) si (typ, identifier) ya alcanzó el umbral.
// No registra nada.
func (g *Guard) Check(ctx context.Context, typ repository.FloodType, identifier string) error {
	n, err := g.store.CountSince(ctx, typ, identifier, g.now().Add(-g.window))
	if err != nil {
		return fmt.Errorf("flood: count: %w", err)
	}
	if n >= g.threshold {
		logger.From(ctx).Warn("flood lockout",
			logger.Layer("flood"),
			logger.FloodType(string(typ)),
			logger.Count(n),
		)
		metrics.RecordFloodLockout(string(typ))
		return &LockedError{RetryAfter: g.window}
	}
	return nil
}

// Record agrega un intento fallido. Solo se llama ante una credencial realmente incorrecta.
func (g *Guard) Record(ctx context.Context, typ repository.FloodType, identifier string) error {
	err := g.store.Append(ctx, repository.FloodEntry{Type: typ, Identifier: identifier, CreatedAt: g.now()})
	if err != nil {
		return fmt.Errorf("flood: append: %w", err)
	}
	return nil
}

// Purge elimina entradas fuera de la ventana (barrido externo).
func (g *Guard) Purge(ctx context.Context) (int64, error) {
	return g.store.PurgeBefore(ctx, g.now().Add(-g.window))
}
