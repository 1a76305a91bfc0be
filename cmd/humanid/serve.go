package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dropDatabas3/humanid/internal/cache"
	"github.com/dropDatabas3/humanid/internal/config"
	"github.com/dropDatabas3/humanid/internal/email"
	"github.com/dropDatabas3/humanid/internal/http/controllers"
	"github.com/dropDatabas3/humanid/internal/http/router"
	"github.com/dropDatabas3/humanid/internal/http/services"
	"github.com/dropDatabas3/humanid/internal/http/services/health"
	"github.com/dropDatabas3/humanid/internal/http/services/oauth"
	"github.com/dropDatabas3/humanid/internal/jwt"
	"github.com/dropDatabas3/humanid/internal/metrics"
	"github.com/dropDatabas3/humanid/internal/observability/logger"
	"github.com/dropDatabas3/humanid/internal/rate"
	"github.com/dropDatabas3/humanid/internal/security/bewit"
	"github.com/dropDatabas3/humanid/internal/security/secretbox"
	"github.com/dropDatabas3/humanid/internal/session"
	"github.com/dropDatabas3/humanid/internal/store"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Levanta el servidor HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	log := logger.L().With(logger.Component("serve"))

	in, err := openInfra(ctx, cfg)
	if err != nil {
		return err
	}
	defer in.Close()

	// ─── Seguridad ───
	keys := jwt.NewKeystore(jwt.KeystoreConfig{
		CurrentPath: cfg.JWT.CurrentKeyPath,
		LegacyPath:  cfg.JWT.LegacyKeyPath,
		Dev:         !cfg.IsProd(),
	})
	jwtSvc := jwt.NewService(keys, jwt.Config{
		Issuer:           cfg.JWT.Issuer,
		IDTokenTTL:       cfg.JWT.IDTokenTTL,
		APIKeyTTL:        cfg.JWT.APIKeyTTL,
		LegacySubClients: cfg.JWT.LegacySubClients,
	})

	sessionBox, err := boxOrEphemeral(cfg.Session.Secret, "session")
	if err != nil {
		return err
	}
	sessions := session.NewManager(sessionBox, session.Config{
		CookieName: cfg.Session.CookieName,
		TTL:        cfg.Session.TTL,
		Domain:     cfg.Session.Domain,
		SameSite:   cfg.Session.SameSite,
		Secure:     cfg.Session.Secure,
		TrustTTL:   cfg.Session.TrustTTL,
	})

	var totpBox *secretbox.Box
	if cfg.TOTP.SecretKey != "" {
		if totpBox, err = secretbox.NewFromString(cfg.TOTP.SecretKey); err != nil {
			return err
		}
	}

	bewitKey := []byte(cfg.Bewit.Key)
	if len(bewitKey) == 0 {
		bewitKey = randomKey()
	}
	signer := bewit.NewSigner(bewitKey, cfg.Bewit.TTL)

	// ─── Infra opcional ───
	clientCache, err := cache.New(cache.Config{
		Driver:     cfg.Cache.Kind,
		Prefix:     cfg.Cache.Redis.Prefix + "client:",
		DefaultTTL: cfg.Cache.ClientTTL,
		Redis:      in.Redis,
	})
	if err != nil {
		return err
	}

	var sender email.Sender
	if cfg.SMTP.Host != "" {
		sender = email.NewSMTPSender(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.From, cfg.SMTP.Username, cfg.SMTP.Password)
	}

	var limiter rate.Limiter
	if cfg.Rate.Enabled {
		if in.Redis != nil {
			limiter = rate.NewRedisLimiter(in.Redis, cfg.Cache.Redis.Prefix+"rl:", cfg.Rate.MaxRequests, cfg.Rate.Window)
		} else {
			limiter = rate.NewMemoryLimiter(cfg.Rate.MaxRequests, cfg.Rate.Window)
		}
	}

	metricsHandler, err := metrics.Register(metrics.Config{Pool: func() *pgxpool.Pool { return store.PoolOf(in.Store) }})
	if err != nil {
		return err
	}

	// ─── Services / controllers / router ───
	healthDeps := health.Deps{Version: Version, StoreCheck: in.Store.Ping, JWT: jwtSvc}
	if in.Redis != nil {
		healthDeps.RedisCheck = func(ctx context.Context) error { return in.Redis.Ping(ctx).Err() }
	}
	svcs := services.New(services.Deps{
		Store:                in.Store,
		Flood:                in.Flood,
		JWT:                  jwtSvc,
		Mailer:               email.NewMailer(sender),
		Box:                  totpBox,
		ClientCache:          clientCache,
		Issuer:               cfg.JWT.Issuer,
		BaseURL:              cfg.App.BaseURL,
		TOTPIssuer:           cfg.TOTP.Issuer,
		TrustTTL:             cfg.Session.TrustTTL,
		PasswordMaxAgeMonths: cfg.Auth.PasswordMaxAgeMonths,
		BcryptCost:           cfg.Auth.BcryptCost,
		ClientCacheTTL:       cfg.Cache.ClientTTL,
		TokenTTL: oauth.TTLConfig{
			Code:    cfg.OAuth.CodeTTL,
			Access:  cfg.OAuth.AccessTTL,
			Refresh: cfg.OAuth.RefreshTTL,
		},
		LoginURL:       cfg.OAuth.LoginURL,
		AfterLoginPath: cfg.OAuth.AfterLoginPath,
		HealthDeps:     healthDeps,
	})
	ctrls := controllers.New(svcs, controllers.Deps{Sessions: sessions, Bewit: signer, LoginPath: cfg.OAuth.LoginURL})

	rd := router.Deps{
		Controllers:   ctrls,
		Sessions:      sessions,
		JWT:           jwtSvc,
		Blacklist:     svcs.APIKeys,
		Tokens:        svcs.OAuth.Issuer,
		Bewit:         signer,
		RateLimiter:   limiter,
		RateWhitelist: cfg.Rate.Whitelist,
	}
	if cfg.Server.MetricsAddr == "" {
		rd.Metrics = metricsHandler
	}

	servers := []*http.Server{{
		Addr:         cfg.Server.Addr,
		Handler:      router.New(rd),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}}
	if cfg.Server.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metricsHandler)
		servers = append(servers, &http.Server{Addr: cfg.Server.MetricsAddr, Handler: mux})
	}

	// ─── Run ───
	g, gctx := errgroup.WithContext(ctx)
	for _, srv := range servers {
		g.Go(func() error {
			log.Info("listening", logger.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		var errs []error
		for _, srv := range servers {
			errs = append(errs, srv.Shutdown(sctx))
		}
		return errors.Join(errs...)
	})
	return g.Wait()
}
