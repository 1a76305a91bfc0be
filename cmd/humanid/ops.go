package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/dropDatabas3/humanid/internal/domain/repository"
	"github.com/dropDatabas3/humanid/internal/http/services/oauth"
	"github.com/dropDatabas3/humanid/internal/jwt"
	"github.com/dropDatabas3/humanid/internal/observability/logger"
	"github.com/dropDatabas3/humanid/internal/security/password"
	tokens "github.com/dropDatabas3/humanid/internal/security/token"
	"github.com/dropDatabas3/humanid/internal/store"
	"github.com/dropDatabas3/humanid/internal/store/pg"
	"github.com/dropDatabas3/humanid/internal/util/atomicwrite"
	migrations "github.com/dropDatabas3/humanid/migrations/postgres"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Aplica las migraciones SQL embebidas (postgres)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			in, err := openInfra(ctx, cfg)
			if err != nil {
				return err
			}
			defer in.Close()

			pool := store.PoolOf(in.Store)
			if pool == nil {
				return errors.New("migrate: storage.driver must be postgres")
			}
			res, err := pg.NewMigrator(migrations.FS, migrations.Dir).Run(ctx, pool)
			if err != nil {
				return err
			}
			logger.L().Info("migrations done",
				logger.Any("applied", res.Applied),
				logger.Int("skipped", len(res.Skipped)),
				logger.Duration(res.Duration))
			return nil
		},
	}
}

// purgeCmd es el barrido externo de tokens y entradas de flood vencidas;
// pensado para cron.
func purgeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "purge-expired",
		Short: "Borra tokens OAuth vencidos y entradas de flood fuera de la ventana",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			in, err := openInfra(ctx, cfg)
			if err != nil {
				return err
			}
			defer in.Close()

			issuer := oauth.NewTokenIssuer(in.Store.Tokens(), oauth.TTLConfig{
				Code:    cfg.OAuth.CodeTTL,
				Access:  cfg.OAuth.AccessTTL,
				Refresh: cfg.OAuth.RefreshTTL,
			})
			n, err := issuer.PurgeExpired(ctx)
			if err != nil {
				return fmt.Errorf("purge tokens: %w", err)
			}
			f, err := in.Flood.Purge(ctx)
			if err != nil {
				return fmt.Errorf("purge flood: %w", err)
			}
			fmt.Printf("tokens=%d flood=%d\n", n, f)
			return nil
		},
	}
}

func keysCmd() *cobra.Command {
	keys := &cobra.Command{Use: "keys", Short: "Claves de firma RS256"}

	var out string
	var force bool
	gen := &cobra.Command{
		Use:   "generate",
		Short: "Genera una clave RSA-2048 en PEM e imprime su kid",
		RunE: func(*cobra.Command, []string) error {
			if out == "" {
				return errors.New("--out es requerido")
			}
			priv, err := jwt.GenerateKey()
			if err != nil {
				return err
			}
			pemBytes, err := jwt.EncodePrivateKeyPEM(priv)
			if err != nil {
				return err
			}
			if err := atomicwrite.WriteFile(out, pemBytes, 0o600, force); err != nil {
				return err
			}
			fmt.Println(jwt.KID(&priv.PublicKey))
			return nil
		},
	}
	gen.Flags().StringVar(&out, "out", "", "Archivo PEM de salida")
	gen.Flags().BoolVar(&force, "force", false, "Sobrescribe el archivo si existe")
	keys.AddCommand(gen)
	return keys
}

func usersCmd() *cobra.Command {
	users := &cobra.Command{Use: "users", Short: "Usuarios (seed local)"}

	var email, pass, name string
	var unverified bool
	add := &cobra.Command{
		Use:   "add",
		Short: "Crea un usuario con password",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(email) == "" || pass == "" {
				return errors.New("--email y --password son requeridos")
			}
			if err := password.DefaultPolicy.Check(pass); err != nil {
				return err
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			in, err := openInfra(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer in.Close()
			warnIfMemory(cfg.Storage.Driver)

			hash, err := password.NewHasher(cfg.Auth.BcryptCost).Hash(pass)
			if err != nil {
				return err
			}
			now := time.Now().UTC()
			u := &repository.User{
				ID:                uuid.NewString(),
				Email:             strings.ToLower(strings.TrimSpace(email)),
				PasswordHash:      hash,
				EmailVerified:     !unverified,
				Name:              name,
				LastPasswordReset: now,
				CreatedAt:         now,
				UpdatedAt:         now,
			}
			if err := in.Store.Users().Create(cmd.Context(), u); err != nil {
				return err
			}
			fmt.Println(u.ID)
			return nil
		},
	}
	add.Flags().StringVar(&email, "email", "", "Email")
	add.Flags().StringVar(&pass, "password", "", "Password")
	add.Flags().StringVar(&name, "name", "", "Nombre visible")
	add.Flags().BoolVar(&unverified, "unverified", false, "Crea el usuario sin email verificado")
	users.AddCommand(add)
	return users
}

func clientsCmd() *cobra.Command {
	clients := &cobra.Command{Use: "clients", Short: "Clients OAuth (seed local)"}

	var id, name string
	var redirects []string
	add := &cobra.Command{
		Use:   "add",
		Short: "Registra un client y genera su secret",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if id == "" || len(redirects) == 0 {
				return errors.New("--id y --redirect-uri son requeridos")
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			in, err := openInfra(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer in.Close()
			warnIfMemory(cfg.Storage.Driver)

			secret, err := tokens.GenerateOpaqueToken(32)
			if err != nil {
				return err
			}
			c := &repository.Client{
				ID:           id,
				Secret:       secret,
				Name:         name,
				RedirectURI:  redirects[0],
				RedirectURIs: redirects[1:],
				CreatedAt:    time.Now().UTC(),
			}
			if err := in.Store.Clients().Create(cmd.Context(), c); err != nil {
				return err
			}
			fmt.Printf("client_id=%s\nclient_secret=%s\n", c.ID, secret)
			return nil
		},
	}
	add.Flags().StringVar(&id, "id", "", "client_id")
	add.Flags().StringVar(&name, "name", "", "Nombre para la pantalla de consentimiento")
	add.Flags().StringSliceVar(&redirects, "redirect-uri", nil, "Redirect URI (repetible; la primera es la principal)")
	clients.AddCommand(add)
	return clients
}

func warnIfMemory(driver string) {
	if strings.EqualFold(driver, "memory") {
		logger.L().Warn("storage.driver=memory: the record will not survive this process")
	}
}
