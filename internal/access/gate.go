package access

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"agencypulse/internal/config"
)

// DefaultCacheTTL is how long an accepted token skips the bcrypt check.
const DefaultCacheTTL = 5 * time.Minute

// ErrInvalidTokenHash is returned when the configured hash is not bcrypt.
var ErrInvalidTokenHash = errors.New("access token hash is not a bcrypt hash")

// OpenGate admits every caller.
type OpenGate struct{}

// Authenticate implements Gate.
func (OpenGate) Authenticate(context.Context, string) Context {
	return Context{Authenticated: true, Subject: "anonymous", Method: MethodOpen}
}

// Enabled implements Gate.
func (OpenGate) Enabled() bool { return false }

// TokenGate admits callers whose bearer token matches a bcrypt hash.
type TokenGate struct {
	hash   []byte
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger

	mu       sync.RWMutex
	accepted map[[sha256.Size]byte]time.Time
}

// NewTokenGate validates hash and returns a gate that compares tokens
// against it.
func NewTokenGate(hash string, logger *slog.Logger) (*TokenGate, error) {
	if _, err := bcrypt.Cost([]byte(hash)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTokenHash, err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TokenGate{
		hash:     []byte(hash),
		ttl:      DefaultCacheTTL,
		now:      time.Now,
		logger:   logger.With(slog.String("component", "access_gate")),
		accepted: make(map[[sha256.Size]byte]time.Time),
	}, nil
}

// Authenticate implements Gate.
func (g *TokenGate) Authenticate(ctx context.Context, token string) Context {
	if token == "" {
		return Anonymous
	}

	key := sha256.Sum256([]byte(token))
	if g.cached(key) {
		return g.granted()
	}

	if err := bcrypt.CompareHashAndPassword(g.hash, []byte(token)); err != nil {
		g.logger.WarnContext(ctx, "access token rejected", slog.String("reason", err.Error()))
		return Anonymous
	}

	g.mu.Lock()
	g.accepted[key] = g.now().Add(g.ttl)
	g.mu.Unlock()

	g.logger.DebugContext(ctx, "access token accepted")
	return g.granted()
}

// Enabled implements Gate.
func (g *TokenGate) Enabled() bool { return true }

func (g *TokenGate) granted() Context {
	return Context{Authenticated: true, Subject: "token", Method: MethodToken}
}

func (g *TokenGate) cached(key [sha256.Size]byte) bool {
	g.mu.RLock()
	expires, ok := g.accepted[key]
	g.mu.RUnlock()
	if !ok {
		return false
	}
	if g.now().After(expires) {
		g.mu.Lock()
		delete(g.accepted, key)
		g.mu.Unlock()
		return false
	}
	return true
}

// NewGate builds the gate described by cfg.
func NewGate(cfg config.AccessConfig, logger *slog.Logger) (Gate, error) {
	if !cfg.Enabled {
		return OpenGate{}, nil
	}
	return NewTokenGate(cfg.TokenHash, logger)
}

// HashToken returns the bcrypt hash to configure for token.
func HashToken(token string) (string, error) {
	if token == "" {
		return "", errors.New("token must not be empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
