// Package session mantiene la sesión de login en una cookie cifrada
// (AES-256-GCM). No hay estado del lado servidor.
package session

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/dropDatabas3/humanid/internal/observability/logger"
	"github.com/dropDatabas3/humanid/internal/security/secretbox"
)

const (
	DefaultCookieName = "hid.sid"
	// TrustCookieName lleva el secreto de trusted device.
	TrustCookieName = "x-hid-totp-trust"
	DefaultTTL      = 12 * time.Hour
)

// State es la etapa del handshake de login.
type State int

const (
	Unauthenticated State = iota
	PasswordVerified
	TOTPPending
	Authenticated
)

func (s State) String() string {
	switch s {
	case PasswordVerified:
		return "password_verified"
	case TOTPPending:
		return "totp_pending"
	case Authenticated:
		return "authenticated"
	default:
		return "unauthenticated"
	}
}

// Session es el contenido de la cookie.
type Session struct {
	UserID string `json:"uid,omitempty"`
	// TOTPRequired se fija en el paso de contraseña según el usuario.
	TOTPRequired bool `json:"totp_req,omitempty"`
	TOTPPassed   bool `json:"totp,omitempty"`
	// PendingTrustGrant: el usuario pidió recordar el dispositivo; se
	// concreta cuando pasa el TOTP.
	PendingTrustGrant bool      `json:"trust,omitempty"`
	AuthTime          time.Time `json:"auth_time,omitempty"`
	LastSeen          time.Time `json:"seen"`
}

// State deriva la etapa actual.
func (s *Session) State() State {
	switch {
	case s == nil || s.UserID == "":
		return Unauthenticated
	case s.TOTPPassed:
		return Authenticated
	case s.TOTPRequired:
		return TOTPPending
	default:
		return PasswordVerified
	}
}

// Authenticated es atajo de State() == Authenticated.
func (s *Session) Authenticated() bool { return s.State() == Authenticated }

// Config de la cookie.
type Config struct {
	CookieName string
	TTL        time.Duration
	Domain     string
	SameSite   string
	Secure     bool
	// TrustTTL es la vida de la cookie de trusted device (30 días).
	TrustTTL time.Duration
}

// Manager carga y guarda sesiones.
type Manager struct {
	box *secretbox.Box
	cfg Config
	now func() time.Time
}

// NewManager crea el Manager con defaults razonables.
func NewManager(box *secretbox.Box, cfg Config) *Manager {
	if cfg.CookieName == "" {
		cfg.CookieName = DefaultCookieName
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.TrustTTL <= 0 {
		cfg.TrustTTL = 30 * 24 * time.Hour
	}
	return &Manager{box: box, cfg: cfg, now: time.Now}
}

// WithClock reemplaza el reloj (tests).
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

// Load devuelve la sesión del request, o nil si no hay, fue alterada o expiró.
func (m *Manager) Load(r *http.Request) *Session {
	ck, err := r.Cookie(m.cfg.CookieName)
	if err != nil || ck.Value == "" {
		return nil
	}
	raw, err := m.box.Open(ck.Value)
	if err != nil {
		logger.From(r.Context()).Debug("session cookie rejected", logger.Layer("session"), logger.Err(err))
		return nil
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil
	}
	if s.LastSeen.Add(m.cfg.TTL).Before(m.now()) {
		return nil
	}
	return &s
}

// Save refresca LastSeen y escribe la cookie.
func (m *Manager) Save(w http.ResponseWriter, s *Session) error {
	s.LastSeen = m.now().UTC()
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	sealed, err := m.box.Seal(raw)
	if err != nil {
		return err
	}
	http.SetCookie(w, m.buildCookie(m.cfg.CookieName, sealed, m.cfg.TTL))
	return nil
}

// Destroy borra la cookie de sesión.
func (m *Manager) Destroy(w http.ResponseWriter) {
	http.SetCookie(w, m.buildCookie(m.cfg.CookieName, "", -1))
}

// SetTrustCookie entrega el secreto de trusted device al navegador.
func (m *Manager) SetTrustCookie(w http.ResponseWriter, secret string) {
	http.SetCookie(w, m.buildCookie(TrustCookieName, secret, m.cfg.TrustTTL))
}

// TrustCookie lee el secreto de trusted device (vacío si no hay).
func TrustCookie(r *http.Request) string {
	ck, err := r.Cookie(TrustCookieName)
	if err != nil {
		return ""
	}
	return ck.Value
}

// buildCookie: ttl < 0 borra la cookie.
func (m *Manager) buildCookie(name, value string, ttl time.Duration) *http.Cookie {
	ck := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.cfg.Secure,
		SameSite: parseSameSite(m.cfg.SameSite),
	}
	if strings.TrimSpace(m.cfg.Domain) != "" {
		ck.Domain = m.cfg.Domain
	}
	switch {
	case ttl < 0:
		ck.Expires = time.Unix(0, 0).UTC()
		ck.MaxAge = -1
	case ttl > 0:
		ck.Expires = m.now().Add(ttl).UTC()
		ck.MaxAge = int(ttl.Seconds())
	}
	return ck
}

func parseSameSite(s string) http.SameSite {
	switch strings.TrimSpace(strings.ToLower(s)) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}
