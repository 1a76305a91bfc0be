// Package memory implementa los repositorios de dominio en memoria.
// Lo usan los tests y el modo de desarrollo sin base de datos.
package memory

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dropDatabas3/humanid/internal/domain/repository"
)

// Store guarda todo bajo un único mutex; cada operación es atómica.
type Store struct {
	mu      sync.Mutex
	users   map[string]*repository.User
	emails  map[string]string
	clients map[string]*repository.Client
	tokens  map[string]*repository.OAuthToken
	flood   []repository.FloodEntry
	apiKeys map[string]*repository.APIKey
	now     func() time.Time
}

func New() *Store {
	return &Store{
		users:   map[string]*repository.User{},
		emails:  map[string]string{},
		clients: map[string]*repository.Client{},
		tokens:  map[string]*repository.OAuthToken{},
		apiKeys: map[string]*repository.APIKey{},
		now:     time.Now,
	}
}

func (s *Store) Users() repository.UserRepository        { return (*userRepo)(s) }
func (s *Store) Clients() repository.ClientRepository    { return (*clientRepo)(s) }
func (s *Store) Tokens() repository.OAuthTokenRepository { return (*tokenRepo)(s) }
func (s *Store) Flood() repository.FloodRepository       { return (*floodRepo)(s) }
func (s *Store) APIKeys() repository.APIKeyRepository    { return (*apiKeyRepo)(s) }

func (s *Store) Ping(context.Context) error { return nil }
func (s *Store) Close()                     {}

// ─── UserRepository ───

type userRepo Store

func (r *userRepo) GetByID(_ context.Context, id string) (*repository.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return u.Clone(), nil
}

func (r *userRepo) GetByEmail(_ context.Context, email string) (*repository.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.emails[strings.ToLower(email)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return r.users[id].Clone(), nil
}

func (r *userRepo) Create(_ context.Context, u *repository.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	email := strings.ToLower(u.Email)
	if _, dup := r.emails[email]; dup {
		return repository.ErrConflict
	}
	if _, dup := r.users[u.ID]; dup {
		return repository.ErrConflict
	}
	now := r.now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	u.Version = 1
	c := u.Clone()
	c.Email = email
	r.users[u.ID] = c
	r.emails[email] = u.ID
	return nil
}

func (r *userRepo) Save(_ context.Context, u *repository.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.users[u.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if cur.Version != u.Version {
		return repository.ErrConflict
	}
	u.Version++
	u.UpdatedAt = r.now()
	c := u.Clone()
	c.Email = cur.Email
	r.users[u.ID] = c
	return nil
}

// ─── ClientRepository ───

type clientRepo Store

func (r *clientRepo) GetByID(_ context.Context, id string) (*repository.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.clients[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *c
	cp.RedirectURIs = slices.Clone(c.RedirectURIs)
	return &cp, nil
}

func (r *clientRepo) Create(_ context.Context, c *repository.Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.clients[c.ID]; dup {
		return repository.ErrConflict
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = r.now()
	}
	cp := *c
	cp.RedirectURIs = slices.Clone(c.RedirectURIs)
	r.clients[c.ID] = &cp
	return nil
}

// ─── OAuthTokenRepository ───

type tokenRepo Store

func (r *tokenRepo) Create(_ context.Context, t *repository.OAuthToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.insertLocked(t)
}

func (r *tokenRepo) insertLocked(t *repository.OAuthToken) error {
	if _, dup := r.tokens[t.Token]; dup {
		return repository.ErrConflict
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = r.now()
	}
	cp := *t
	r.tokens[t.Token] = &cp
	return nil
}

func (r *tokenRepo) Get(_ context.Context, typ repository.TokenType, token string) (*repository.OAuthToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[token]
	if !ok || t.Type != typ {
		return nil, repository.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *tokenRepo) ExchangeCode(_ context.Context, code, clientID string, issued ...*repository.OAuthToken) (*repository.OAuthToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[code]
	if !ok || t.Type != repository.TokenCode || t.ClientID != clientID {
		return nil, repository.ErrNotFound
	}
	for _, it := range issued {
		if _, dup := r.tokens[it.Token]; dup {
			return nil, repository.ErrConflict
		}
	}
	consumed := *t
	delete(r.tokens, code)
	for _, it := range issued {
		// ya validado arriba: no puede fallar
		_ = r.insertLocked(it)
	}
	return &consumed, nil
}

func (r *tokenRepo) Delete(_ context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tokens, token)
	return nil
}

func (r *tokenRepo) PurgeExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for k, t := range r.tokens {
		if t.Expired(now) {
			delete(r.tokens, k)
			n++
		}
	}
	return n, nil
}

// ─── FloodRepository ───

type floodRepo Store

func (r *floodRepo) Append(_ context.Context, e repository.FloodEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flood = append(r.flood, e)
	return nil
}

func (r *floodRepo) CountSince(_ context.Context, typ repository.FloodType, identifier string, since time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.flood {
		if e.Type == typ && e.Identifier == identifier && !e.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (r *floodRepo) PurgeBefore(_ context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.flood[:0]
	var n int64
	for _, e := range r.flood {
		if e.CreatedAt.Before(before) {
			n++
			continue
		}
		kept = append(kept, e)
	}
	r.flood = kept
	return n, nil
}

// ─── APIKeyRepository ───

type apiKeyRepo Store

func (r *apiKeyRepo) Create(_ context.Context, k *repository.APIKey) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, cur := range r.apiKeys {
		if cur.TokenHash == k.TokenHash {
			return repository.ErrConflict
		}
	}
	if _, dup := r.apiKeys[k.ID]; dup {
		return repository.ErrConflict
	}
	if k.CreatedAt.IsZero() {
		k.CreatedAt = r.now()
	}
	cp := *k
	r.apiKeys[k.ID] = &cp
	return nil
}

func (r *apiKeyRepo) ListByUser(_ context.Context, userID string) ([]repository.APIKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []repository.APIKey
	for _, k := range r.apiKeys {
		if k.UserID == userID {
			out = append(out, *k)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *apiKeyRepo) GetByHash(_ context.Context, tokenHash string) (*repository.APIKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, k := range r.apiKeys {
		if k.TokenHash == tokenHash {
			cp := *k
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *apiKeyRepo) Blacklist(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k, ok := r.apiKeys[id]
	if !ok {
		return repository.ErrNotFound
	}
	k.Blacklisted = true
	return nil
}
