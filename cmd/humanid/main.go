// Command humanid corre el identity provider y sus tareas de operación.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/dropDatabas3/humanid/internal/config"
	"github.com/dropDatabas3/humanid/internal/observability/logger"
)

// Version se inyecta con -ldflags "-X main.Version=...".
var Version = "dev"

var (
	flagConfig   string
	flagLogLevel string
)

func main() {
	// .env es opcional; en prod las variables vienen del entorno.
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:           "humanid",
		Short:         "Identity provider: login, TOTP, OAuth2/OIDC y API keys",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flagConfig, "config", envOr("HUMANID_CONFIG", "config.yaml"), "Path al YAML de configuración (env HUMANID_CONFIG)")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", envOr("LOG_LEVEL", "info"), "debug|info|warn|error")

	root.AddCommand(
		serveCmd(),
		migrateCmd(),
		purgeCmd(),
		keysCmd(),
		usersCmd(),
		clientsCmd(),
		&cobra.Command{
			Use:   "version",
			Short: "Imprime la versión",
			Run:   func(*cobra.Command, []string) { fmt.Println(Version) },
		},
	)

	err := root.Execute()
	_ = logger.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

// loadConfig carga la config e inicializa el logger global.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	logger.Init(logger.Config{
		Env:         cfg.App.Env,
		Level:       flagLogLevel,
		ServiceName: "humanid",
		Version:     Version,
	})
	return cfg, nil
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
