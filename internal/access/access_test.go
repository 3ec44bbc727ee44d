package access

import (
	"context"
	"crypto/sha256"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"agencypulse/internal/config"
)

const testToken = "s3cret-dashboard-token"

func testHash(t *testing.T) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testToken), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func sha256Key(token string) [sha256.Size]byte {
	return sha256.Sum256([]byte(token))
}

func TestCredential(t *testing.T) {
	tests := []struct {
		name   string
		target string
		header string
		want   string
	}{
		{"bearer header", "/api/dashboards/retention", "Bearer abc", "abc"},
		{"case insensitive scheme", "/", "bearer  abc ", "abc"},
		{"other scheme", "/", "Basic dXNlcjpwYXNz", ""},
		{"query token", "/ws/dashboards/retention?token=xyz", "", "xyz"},
		{"header wins over query", "/?token=xyz", "Bearer abc", "abc"},
		{"none", "/", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			assert.Equal(t, tt.want, Credential(r))
		})
	}
}

func TestTokenGate(t *testing.T) {
	gate, err := NewTokenGate(testHash(t), nil)
	require.NoError(t, err)
	ctx := context.Background()

	assert.True(t, gate.Enabled())
	assert.Equal(t, Anonymous, gate.Authenticate(ctx, ""))
	assert.Equal(t, Anonymous, gate.Authenticate(ctx, "wrong"))

	ac := gate.Authenticate(ctx, testToken)
	assert.True(t, ac.Authenticated)
	assert.Equal(t, MethodToken, ac.Method)

	r := httptest.NewRequest(http.MethodGet, "/api/summary", nil)
	r.Header.Set("Authorization", "Bearer "+testToken)
	assert.True(t, Resolve(gate, r).Authenticated)
}

func TestTokenGate_CacheExpiry(t *testing.T) {
	gate, err := NewTokenGate(testHash(t), nil)
	require.NoError(t, err)

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	gate.now = func() time.Time { return now }
	ctx := context.Background()

	require.True(t, gate.Authenticate(ctx, testToken).Authenticated)
	assert.Len(t, gate.accepted, 1)

	now = now.Add(DefaultCacheTTL + time.Second)
	assert.True(t, gate.Authenticate(ctx, testToken).Authenticated, "re-verified after expiry")
	assert.Equal(t, now.Add(DefaultCacheTTL), gate.accepted[sha256Key(testToken)])
}

func TestNewTokenGate_InvalidHash(t *testing.T) {
	_, err := NewTokenGate("not-a-hash", nil)
	assert.ErrorIs(t, err, ErrInvalidTokenHash)
}

func TestNewGate(t *testing.T) {
	gate, err := NewGate(config.AccessConfig{}, nil)
	require.NoError(t, err)
	assert.False(t, gate.Enabled())
	assert.True(t, gate.Authenticate(context.Background(), "").Authenticated)

	gate, err = NewGate(config.AccessConfig{Enabled: true, TokenHash: testHash(t)}, nil)
	require.NoError(t, err)
	assert.True(t, gate.Enabled())
	assert.False(t, gate.Authenticate(context.Background(), "").Authenticated)
}

func TestHashToken(t *testing.T) {
	hash, err := HashToken(testToken)
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte(testToken)))

	_, err = HashToken("")
	assert.Error(t, err)
}

func TestContextRoundTrip(t *testing.T) {
	assert.Equal(t, Anonymous, FromContext(context.Background()))

	ctx := WithContext(context.Background(), Trusted)
	assert.Equal(t, Trusted, FromContext(ctx))
}
