// Package session identifies browsers. Each browser gets a random id in a
// long-lived cookie; the id names the browser's local cache namespace.
// Issued ids are registered so a client cannot pick its own namespace.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// CookieName is the name of the browser cookie.
	CookieName = "tn_client"

	// DefaultTTL is how long an idle browser id stays registered.
	DefaultTTL = 180 * 24 * time.Hour

	// keyPrefix namespaces browser registrations in Valkey.
	keyPrefix = "browser:"

	// idLength is the byte length of the random browser ID (16 bytes = 32 hex chars).
	idLength = 16
)

// Registry records issued browser ids.
type Registry interface {
	Touch(ctx context.Context, id string, ttl time.Duration) (bool, error)
	Register(ctx context.Context, id string, ttl time.Duration) error
	Remove(ctx context.Context, id string) error
}

// Store issues and recognises browser cookies.
type Store struct {
	registry Registry
	ttl      time.Duration
	secure   bool
}

// NewStore creates a browser store. Set secure to true when served over TLS.
func NewStore(registry Registry, secure bool) *Store {
	return &Store{registry: registry, ttl: DefaultTTL, secure: secure}
}

// Ensure returns the browser id of the request, issuing a new one and
// setting the cookie when the request carries no registered id.
func (s *Store) Ensure(ctx context.Context, w http.ResponseWriter, r *http.Request) (string, error) {
	if cookie, err := r.Cookie(CookieName); err == nil && validID(cookie.Value) {
		ok, err := s.registry.Touch(ctx, cookie.Value, s.ttl)
		if err != nil {
			return "", fmt.Errorf("session touch: %w", err)
		}
		if ok {
			return cookie.Value, nil
		}
	}

	id, err := generateID()
	if err != nil {
		return "", fmt.Errorf("session create: %w", err)
	}
	if err := s.registry.Register(ctx, id, s.ttl); err != nil {
		return "", fmt.Errorf("session register: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(s.ttl.Seconds()),
	})
	return id, nil
}

// Forget unregisters the request's browser id and clears the cookie.
func (s *Store) Forget(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return nil // No cookie, nothing to forget
	}
	if err := s.registry.Remove(ctx, cookie.Value); err != nil {
		return fmt.Errorf("session forget: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		MaxAge:   -1,
	})
	return nil
}

// ValkeyRegistry keeps registrations in Valkey with a sliding TTL.
type ValkeyRegistry struct {
	client *redis.Client
}

// NewValkeyRegistry creates a registry on client.
func NewValkeyRegistry(client *redis.Client) *ValkeyRegistry {
	return &ValkeyRegistry{client: client}
}

// Touch refreshes id's TTL and reports whether it was registered.
func (v *ValkeyRegistry) Touch(ctx context.Context, id string, ttl time.Duration) (bool, error) {
	return v.client.Expire(ctx, keyPrefix+id, ttl).Result()
}

// Register records id.
func (v *ValkeyRegistry) Register(ctx context.Context, id string, ttl time.Duration) error {
	return v.client.Set(ctx, keyPrefix+id, time.Now().UTC().Format(time.RFC3339), ttl).Err()
}

// Remove drops id.
func (v *ValkeyRegistry) Remove(ctx context.Context, id string) error {
	return v.client.Del(ctx, keyPrefix+id).Err()
}

// MemoryRegistry keeps registrations in process.
type MemoryRegistry struct {
	mu      sync.Mutex
	expires map[string]time.Time
	now     func() time.Time
}

// NewMemoryRegistry creates an empty registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{expires: make(map[string]time.Time), now: time.Now}
}

// Touch refreshes id's TTL and reports whether it was registered.
func (m *MemoryRegistry) Touch(_ context.Context, id string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	exp, ok := m.expires[id]
	if !ok || !m.now().Before(exp) {
		delete(m.expires, id)
		return false, nil
	}
	m.expires[id] = m.now().Add(ttl)
	return true, nil
}

// Register records id.
func (m *MemoryRegistry) Register(_ context.Context, id string, ttl time.Duration) error {
	m.mu.Lock()
	m.expires[id] = m.now().Add(ttl)
	m.mu.Unlock()
	return nil
}

// Remove drops id.
func (m *MemoryRegistry) Remove(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.expires, id)
	m.mu.Unlock()
	return nil
}

func validID(s string) bool {
	if len(s) != idLength*2 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}

// generateID creates a cryptographically random browser identifier.
func generateID() (string, error) {
	b := make([]byte, idLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
