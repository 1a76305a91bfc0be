package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Bloque app (opcional en YAML).
	App struct {
		// dev | staging | prod
		Env string `yaml:"app_env"`
		// BaseURL pública del servicio (discovery, links).
		BaseURL string `yaml:"base_url"`
	} `yaml:"app"`

	Server struct {
		Addr string `yaml:"addr"`
		// MetricsAddr vacío = /metrics se sirve en el listener principal.
		MetricsAddr     string        `yaml:"metrics_addr"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`

	Storage struct {
		Driver   string `yaml:"driver"` // postgres | memory
		DSN      string `yaml:"dsn"`
		Postgres struct {
			MaxConns        int32         `yaml:"max_conns"`
			MinConns        int32         `yaml:"min_conns"`
			ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
		} `yaml:"postgres"`
	} `yaml:"storage"`

	Cache struct {
		Kind  string `yaml:"kind"` // memory | redis
		Redis struct {
			Addr     string `yaml:"addr"`
			DB       int    `yaml:"db"`
			Password string `yaml:"password"`
			Prefix   string `yaml:"prefix"`
		} `yaml:"redis"`
		// ClientTTL es la vida de los clients OAuth cacheados.
		ClientTTL time.Duration `yaml:"client_ttl"`
	} `yaml:"cache"`

	Session struct {
		CookieName string        `yaml:"cookie_name"`
		Domain     string        `yaml:"domain"`
		SameSite   string        `yaml:"samesite"`
		Secure     bool          `yaml:"secure"`
		TTL        time.Duration `yaml:"ttl"`
		// Secret cifra la cookie (32 bytes: base64, hex o raw).
		Secret string `yaml:"secret"`
		// TrustTTL es la vida de la cookie x-hid-totp-trust.
		TrustTTL time.Duration `yaml:"trust_ttl"`
	} `yaml:"session"`

	JWT struct {
		Issuer         string        `yaml:"issuer"`
		CurrentKeyPath string        `yaml:"current_key_path"`
		LegacyKeyPath  string        `yaml:"legacy_key_path"`
		IDTokenTTL     time.Duration `yaml:"id_token_ttl"`
		// APIKeyTTL cero = API keys sin exp.
		APIKeyTTL        time.Duration `yaml:"api_key_ttl"`
		LegacySubClients []string      `yaml:"legacy_sub_clients"`
	} `yaml:"jwt"`

	OAuth struct {
		CodeTTL        time.Duration `yaml:"code_ttl"`
		AccessTTL      time.Duration `yaml:"access_ttl"`
		RefreshTTL     time.Duration `yaml:"refresh_ttl"`
		LoginURL       string        `yaml:"login_url"`
		AfterLoginPath string        `yaml:"after_login_path"`
	} `yaml:"oauth"`

	Auth struct {
		PasswordMaxAgeMonths int `yaml:"password_max_age_months"`
		BcryptCost           int `yaml:"bcrypt_cost"`
	} `yaml:"auth"`

	Flood struct {
		// Store: db (mismo backend que storage) | redis
		Store     string        `yaml:"store"`
		Window    time.Duration `yaml:"window"`
		Threshold int           `yaml:"threshold"`
	} `yaml:"flood"`

	TOTP struct {
		Issuer string `yaml:"issuer"`
		// SecretKey sella los secretos TOTP en la base; vacío = texto plano.
		SecretKey string `yaml:"secret_key"`
	} `yaml:"totp"`

	Bewit struct {
		Key string        `yaml:"key"`
		TTL time.Duration `yaml:"ttl"`
	} `yaml:"bewit"`

	Rate struct {
		Enabled     bool          `yaml:"enabled"`
		Window      time.Duration `yaml:"window"`
		MaxRequests int           `yaml:"max_requests"`
		Whitelist   []string      `yaml:"whitelist"`
	} `yaml:"rate"`

	SMTP struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		From     string `yaml:"from"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`
	} `yaml:"smtp"`
}

// Default devuelve la configuración de desarrollo (memoria, sin Redis).
func Default() *Config {
	c := &Config{}
	c.App.Env = "dev"
	c.Server.Addr = ":8080"
	c.Server.ReadTimeout = 15 * time.Second
	c.Server.WriteTimeout = 15 * time.Second
	c.Server.ShutdownTimeout = 10 * time.Second

	c.Storage.Driver = "memory"
	c.Storage.Postgres.MaxConns = 10
	c.Storage.Postgres.ConnMaxLifetime = time.Hour

	c.Cache.Kind = "memory"
	c.Cache.Redis.Prefix = "hid:"
	c.Cache.ClientTTL = 5 * time.Minute

	c.Session.CookieName = "hid_session"
	c.Session.SameSite = "Lax"
	c.Session.TTL = 12 * time.Hour
	c.Session.TrustTTL = 30 * 24 * time.Hour

	c.JWT.Issuer = "http://localhost:8080"
	c.JWT.IDTokenTTL = time.Hour

	c.OAuth.CodeTTL = 10 * time.Minute
	c.OAuth.AccessTTL = time.Hour
	c.OAuth.RefreshTTL = 30 * 24 * time.Hour
	c.OAuth.LoginURL = "/login"
	c.OAuth.AfterLoginPath = "/user"

	c.Auth.PasswordMaxAgeMonths = 6
	c.Auth.BcryptCost = 11

	c.Flood.Store = "db"
	c.Flood.Window = 5 * time.Minute
	c.Flood.Threshold = 5

	c.TOTP.Issuer = "HID"

	c.Bewit.TTL = 5 * time.Minute

	c.Rate.Window = time.Minute
	c.Rate.MaxRequests = 60

	c.SMTP.Port = 587
	return c
}

// Load lee el YAML en path (vacío o inexistente = defaults), aplica los
// overrides de entorno y valida.
func Load(path string) (*Config, error) {
	c := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, err
		default:
			if err := yaml.Unmarshal(b, c); err != nil {
				return nil, fmt.Errorf("config: parse %s: %w", path, err)
			}
		}
	}

	c.applyEnvOverrides()

	if c.App.BaseURL == "" {
		c.App.BaseURL = c.JWT.Issuer
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// IsProd indica si app_env es prod.
func (c *Config) IsProd() bool {
	return strings.EqualFold(c.App.Env, "prod")
}

func getEnvStr(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(v), true
}

func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if n, err := strconv.Atoi(s); err == nil {
			return n, true
		}
	}
	return 0, false
}

func getEnvBool(key string) (bool, bool) {
	if s, ok := getEnvStr(key); ok {
		if b, err := strconv.ParseBool(s); err == nil {
			return b, true
		}
	}
	return false, false
}

func getEnvDur(key string) (time.Duration, bool) {
	if s, ok := getEnvStr(key); ok {
		if d, err := time.ParseDuration(s); err == nil {
			return d, true
		}
	}
	return 0, false
}

func getEnvCSV(key string) ([]string, bool) {
	if s, ok := getEnvStr(key); ok {
		if s == "" {
			return []string{}, true
		}
		parts := strings.Split(s, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out, true
	}
	return nil, false
}

func (c *Config) applyEnvOverrides() {
	// APP
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = v
	}
	if v, ok := getEnvStr("APP_BASE_URL"); ok {
		c.App.BaseURL = v
	}

	// SERVER
	if v, ok := getEnvStr("SERVER_ADDR"); ok {
		c.Server.Addr = v
	}
	if v, ok := getEnvStr("SERVER_METRICS_ADDR"); ok {
		c.Server.MetricsAddr = v
	}
	if v, ok := getEnvDur("SERVER_SHUTDOWN_TIMEOUT"); ok {
		c.Server.ShutdownTimeout = v
	}

	// STORAGE
	if v, ok := getEnvStr("STORAGE_DRIVER"); ok {
		c.Storage.Driver = v
	}
	if v, ok := getEnvStr("STORAGE_DSN"); ok {
		c.Storage.DSN = v
	}
	if v, ok := getEnvInt("POSTGRES_MAX_CONNS"); ok {
		c.Storage.Postgres.MaxConns = int32(v)
	}
	if v, ok := getEnvInt("POSTGRES_MIN_CONNS"); ok {
		c.Storage.Postgres.MinConns = int32(v)
	}
	if v, ok := getEnvDur("POSTGRES_CONN_MAX_LIFETIME"); ok {
		c.Storage.Postgres.ConnMaxLifetime = v
	}

	// CACHE
	if v, ok := getEnvStr("CACHE_KIND"); ok {
		c.Cache.Kind = v
	}
	if v, ok := getEnvStr("REDIS_ADDR"); ok {
		c.Cache.Redis.Addr = v
	}
	if v, ok := getEnvInt("REDIS_DB"); ok {
		c.Cache.Redis.DB = v
	}
	if v, ok := getEnvStr("REDIS_PASSWORD"); ok {
		c.Cache.Redis.Password = v
	}
	if v, ok := getEnvStr("REDIS_PREFIX"); ok {
		c.Cache.Redis.Prefix = v
	}
	if v, ok := getEnvDur("CACHE_CLIENT_TTL"); ok {
		c.Cache.ClientTTL = v
	}

	// SESSION
	if v, ok := getEnvStr("SESSION_SECRET"); ok {
		c.Session.Secret = v
	}
	if v, ok := getEnvStr("SESSION_COOKIE_NAME"); ok {
		c.Session.CookieName = v
	}
	if v, ok := getEnvStr("SESSION_DOMAIN"); ok {
		c.Session.Domain = v
	}
	if v, ok := getEnvStr("SESSION_SAMESITE"); ok {
		c.Session.SameSite = v
	}
	if v, ok := getEnvBool("SESSION_SECURE"); ok {
		c.Session.Secure = v
	}
	if v, ok := getEnvDur("SESSION_TTL"); ok {
		c.Session.TTL = v
	}

	// JWT
	if v, ok := getEnvStr("JWT_ISSUER"); ok {
		c.JWT.Issuer = v
	}
	if v, ok := getEnvStr("JWT_CURRENT_KEY_PATH"); ok {
		c.JWT.CurrentKeyPath = v
	}
	if v, ok := getEnvStr("JWT_LEGACY_KEY_PATH"); ok {
		c.JWT.LegacyKeyPath = v
	}
	if v, ok := getEnvDur("JWT_ID_TOKEN_TTL"); ok {
		c.JWT.IDTokenTTL = v
	}
	if v, ok := getEnvDur("JWT_API_KEY_TTL"); ok {
		c.JWT.APIKeyTTL = v
	}
	if v, ok := getEnvCSV("JWT_LEGACY_SUB_CLIENTS"); ok {
		c.JWT.LegacySubClients = v
	}

	// OAUTH
	if v, ok := getEnvDur("OAUTH_CODE_TTL"); ok {
		c.OAuth.CodeTTL = v
	}
	if v, ok := getEnvDur("OAUTH_ACCESS_TTL"); ok {
		c.OAuth.AccessTTL = v
	}
	if v, ok := getEnvDur("OAUTH_REFRESH_TTL"); ok {
		c.OAuth.RefreshTTL = v
	}
	if v, ok := getEnvStr("OAUTH_LOGIN_URL"); ok {
		c.OAuth.LoginURL = v
	}

	// AUTH
	if v, ok := getEnvInt("AUTH_PASSWORD_MAX_AGE_MONTHS"); ok {
		c.Auth.PasswordMaxAgeMonths = v
	}
	if v, ok := getEnvInt("AUTH_BCRYPT_COST"); ok {
		c.Auth.BcryptCost = v
	}

	// FLOOD
	if v, ok := getEnvStr("FLOOD_STORE"); ok {
		c.Flood.Store = v
	}
	if v, ok := getEnvDur("FLOOD_WINDOW"); ok {
		c.Flood.Window = v
	}
	if v, ok := getEnvInt("FLOOD_THRESHOLD"); ok {
		c.Flood.Threshold = v
	}

	// TOTP / BEWIT
	if v, ok := getEnvStr("TOTP_ISSUER"); ok {
		c.TOTP.Issuer = v
	}
	if v, ok := getEnvStr("TOTP_SECRET_KEY"); ok {
		c.TOTP.SecretKey = v
	}
	if v, ok := getEnvStr("BEWIT_KEY"); ok {
		c.Bewit.Key = v
	}
	if v, ok := getEnvDur("BEWIT_TTL"); ok {
		c.Bewit.TTL = v
	}

	// RATE
	if v, ok := getEnvBool("RATE_ENABLED"); ok {
		c.Rate.Enabled = v
	}
	if v, ok := getEnvDur("RATE_WINDOW"); ok {
		c.Rate.Window = v
	}
	if v, ok := getEnvInt("RATE_MAX_REQUESTS"); ok {
		c.Rate.MaxRequests = v
	}
	if v, ok := getEnvCSV("RATE_WHITELIST"); ok {
		c.Rate.Whitelist = v
	}

	// SMTP
	if v, ok := getEnvStr("SMTP_HOST"); ok {
		c.SMTP.Host = v
	}
	if v, ok := getEnvInt("SMTP_PORT"); ok {
		c.SMTP.Port = v
	}
	if v, ok := getEnvStr("SMTP_FROM"); ok {
		c.SMTP.From = v
	}
	if v, ok := getEnvStr("SMTP_USERNAME"); ok {
		c.SMTP.Username = v
	}
	if v, ok := getEnvStr("SMTP_PASSWORD"); ok {
		c.SMTP.Password = v
	}
}

// Validate verifica los valores críticos. En prod exige secretos y clave
// de firma explícitos.
func (c *Config) Validate() error {
	var errs []error

	switch strings.ToLower(c.Storage.Driver) {
	case "memory":
	case "postgres", "pg", "postgresql":
		if c.Storage.DSN == "" {
			errs = append(errs, errors.New("storage.dsn is required for postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.driver: unsupported %q", c.Storage.Driver))
	}

	switch strings.ToLower(c.Cache.Kind) {
	case "memory":
	case "redis":
		if c.Cache.Redis.Addr == "" {
			errs = append(errs, errors.New("cache.redis.addr is required when cache.kind=redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("cache.kind: unsupported %q", c.Cache.Kind))
	}

	switch strings.ToLower(c.Flood.Store) {
	case "db":
	case "redis":
		if c.Cache.Redis.Addr == "" {
			errs = append(errs, errors.New("flood.store=redis requires cache.redis.addr"))
		}
	default:
		errs = append(errs, fmt.Errorf("flood.store: unsupported %q", c.Flood.Store))
	}

	if c.Flood.Threshold <= 0 || c.Flood.Window <= 0 {
		errs = append(errs, errors.New("flood.threshold and flood.window must be positive"))
	}
	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		errs = append(errs, fmt.Errorf("auth.bcrypt_cost out of range: %d", c.Auth.BcryptCost))
	}
	if c.JWT.Issuer == "" {
		errs = append(errs, errors.New("jwt.issuer is required"))
	}

	if c.IsProd() {
		if c.Session.Secret == "" {
			errs = append(errs, errors.New("SESSION_SECRET is required in prod"))
		}
		if c.JWT.CurrentKeyPath == "" {
			errs = append(errs, errors.New("JWT_CURRENT_KEY_PATH is required in prod"))
		}
		if c.Bewit.Key == "" {
			errs = append(errs, errors.New("BEWIT_KEY is required in prod"))
		}
		if !c.Session.Secure {
			errs = append(errs, errors.New("session.secure must be true in prod"))
		}
	}
	return errors.Join(errs...)
}
