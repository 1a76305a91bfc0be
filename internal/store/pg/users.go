package pg

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/humanid/internal/domain/repository"
)

type userRepo struct{ pool *pgxpool.Pool }

// deviceRow es la forma JSONB de trusted_devices.
type deviceRow struct {
	ID            string    `json:"id"`
	UserAgentHash string    `json:"ua"`
	SecretHash    string    `json:"secret"`
	CreatedAt     time.Time `json:"created_at"`
}

const userColumns = `
	id, email, password_hash, email_verified, totp_enabled, totp_secret,
	totp_backup_codes, trusted_devices, last_password_reset, authorized_clients,
	name, given_name, family_name, picture, locale, created_at, updated_at, version`

func scanUser(row pgx.Row) (*repository.User, error) {
	var (
		u         repository.User
		devices   []byte
		lastReset *time.Time
	)
	err := row.Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.EmailVerified, &u.TOTPEnabled, &u.TOTPSecret,
		&u.TOTPBackupCodes, &devices, &lastReset, &u.AuthorizedClients,
		&u.Name, &u.GivenName, &u.FamilyName, &u.Picture, &u.Locale, &u.CreatedAt, &u.UpdatedAt, &u.Version,
	)
	if err != nil {
		return nil, err
	}
	if lastReset != nil {
		u.LastPasswordReset = *lastReset
	}
	var rows []deviceRow
	if len(devices) > 0 {
		if err := json.Unmarshal(devices, &rows); err != nil {
			return nil, err
		}
	}
	for _, d := range rows {
		u.TrustedDevices = append(u.TrustedDevices, repository.TrustedDevice(d))
	}
	return &u, nil
}

func encodeDevices(ds []repository.TrustedDevice) ([]byte, error) {
	rows := make([]deviceRow, 0, len(ds))
	for _, d := range ds {
		rows = append(rows, deviceRow(d))
	}
	return json.Marshal(rows)
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func (r *userRepo) GetByID(ctx context.Context, id string) (*repository.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM app_user WHERE id = $1`, id))
	if err != nil {
		return nil, mapErr("get user", err)
	}
	return u, nil
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*repository.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM app_user WHERE email = $1`, strings.ToLower(email)))
	if err != nil {
		return nil, mapErr("get user by email", err)
	}
	return u, nil
}

func (r *userRepo) Create(ctx context.Context, u *repository.User) error {
	devices, err := encodeDevices(u.TrustedDevices)
	if err != nil {
		return err
	}
	const query = `
		INSERT INTO app_user (
			id, email, password_hash, email_verified, totp_enabled, totp_secret,
			totp_backup_codes, trusted_devices, last_password_reset, authorized_clients,
			name, given_name, family_name, picture, locale, version
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, 1)
		RETURNING created_at, updated_at, version
	`
	err = r.pool.QueryRow(ctx, query,
		u.ID, strings.ToLower(u.Email), u.PasswordHash, u.EmailVerified, u.TOTPEnabled, u.TOTPSecret,
		nonNil(u.TOTPBackupCodes), devices, nullTime(u.LastPasswordReset), nonNil(u.AuthorizedClients),
		u.Name, u.GivenName, u.FamilyName, u.Picture, u.Locale,
	).Scan(&u.CreatedAt, &u.UpdatedAt, &u.Version)
	return mapErr("create user", err)
}

func (r *userRepo) Save(ctx context.Context, u *repository.User) error {
	devices, err := encodeDevices(u.TrustedDevices)
	if err != nil {
		return err
	}
	const query = `
		UPDATE app_user SET
			password_hash = $3, email_verified = $4, totp_enabled = $5, totp_secret = $6,
			totp_backup_codes = $7, trusted_devices = $8, last_password_reset = $9,
			authorized_clients = $10, version = version + 1, updated_at = NOW()
		WHERE id = $1 AND version = $2
		RETURNING version, updated_at
	`
	err = r.pool.QueryRow(ctx, query,
		u.ID, u.Version, u.PasswordHash, u.EmailVerified, u.TOTPEnabled, u.TOTPSecret,
		nonNil(u.TOTPBackupCodes), devices, nullTime(u.LastPasswordReset), nonNil(u.AuthorizedClients),
	).Scan(&u.Version, &u.UpdatedAt)
	if err == pgx.ErrNoRows {
		// distinguir usuario inexistente de versión vieja
		var exists bool
		if qerr := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM app_user WHERE id = $1)`, u.ID).Scan(&exists); qerr != nil {
			return mapErr("save user", qerr)
		}
		if !exists {
			return repository.ErrNotFound
		}
		return repository.ErrConflict
	}
	return mapErr("save user", err)
}
