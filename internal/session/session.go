package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// TTL is how long an issued session and its cookies remain valid.
const TTL = 7 * 24 * time.Hour

// Session is the gateway-side record of an issued backend session. Lookup is
// keyed by the SHA-256 hash of the access token; the token itself is never
// stored.
type Session struct {
	ID           uuid.UUID
	TokenHash    string
	User         json.RawMessage
	RefreshToken string
	CreatedAt    time.Time
	ExpiresAt    time.Time
}

// Store persists issued sessions so that session status, logout, and refresh
// work without a backend round trip.
type Store interface {
	Save(ctx context.Context, s Session) error
	// Get returns the session for the token hash, or nil when absent or expired.
	Get(ctx context.Context, tokenHash string) (*Session, error)
	Delete(ctx context.Context, tokenHash string) error
	DeleteExpired(ctx context.Context) (int64, error)
}

// HashToken returns the SHA-256 hash of the token as a hex string.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// New builds a session record for a freshly issued access token.
func New(accessToken, refreshToken string, user json.RawMessage) Session {
	now := time.Now()
	return Session{
		ID:           uuid.New(),
		TokenHash:    HashToken(accessToken),
		User:         user,
		RefreshToken: refreshToken,
		CreatedAt:    now,
		ExpiresAt:    now.Add(TTL),
	}
}
