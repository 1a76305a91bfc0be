package repository

import (
	"context"
	"time"
)

// FloodType es el tipo de intento fallido contado por el flood guard.
type FloodType string

const (
	FloodLogin FloodType = "login"
	FloodTOTP  FloodType = "totp"
)

// FloodEntry es un intento fallido. Append-only.
type FloodEntry struct {
	Type       FloodType
	Identifier string
	CreatedAt  time.Time
}

// FloodRepository almacena intentos fallidos.
type FloodRepository interface {
	// Append agrega un intento fallido.
	Append(ctx context.Context, e FloodEntry) error

	// CountSince cuenta entradas de (typ, identifier) con created_at >= since.
	CountSince(ctx context.Context, typ FloodType, identifier string, since time.Time) (int, error)

	// PurgeBefore elimina entradas con created_at < before.
	PurgeBefore(ctx context.Context, before time.Time) (int64, error)
}
