// Package session keeps one Redis record per issued access token. The record
// holds a digest of the refresh token, so a leaked Redis snapshot cannot be
// replayed against /auth/refresh.
package session

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	redisclient "github.com/angelmondragon/storefront-backend/pkg/redis"
)

const refreshTokenBytes = 32

var (
	ErrInvalidRefreshToken = errors.New("invalid refresh token")

	errNoAccessID = errors.New("access id is required")
)

type sessionStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

type sessionKeyer interface {
	AccessSessionKey(accessID string) string
}

// AccessSessionChecker is what the auth middleware needs.
type AccessSessionChecker interface {
	HasSession(ctx context.Context, accessID string, userID uuid.UUID) (bool, error)
}

type record struct {
	UserID   uuid.UUID `json:"user_id"`
	Digest   string    `json:"refresh_digest"`
	IssuedAt time.Time `json:"issued_at"`
}

func (r record) matches(refreshToken string) bool {
	return subtle.ConstantTimeCompare([]byte(r.Digest), []byte(digest(refreshToken))) == 1
}

// Manager issues, rotates and revokes sessions keyed by access token jti.
type Manager struct {
	store sessionStore
	keyer sessionKeyer
	ttl   time.Duration
	now   func() time.Time
}

// NewManager requires the refresh ttl to outlive the access token, otherwise
// an expired access token could never be refreshed.
func NewManager(client *redisclient.Client, cfg config.JWTConfig) (*Manager, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	ttl := cfg.RefreshTokenTTL()
	accessTTL := time.Duration(cfg.ExpirationMinutes) * time.Minute
	if ttl <= 0 || ttl <= accessTTL {
		return nil, fmt.Errorf("refresh token ttl (%s) must exceed access token ttl (%s)", ttl, accessTTL)
	}
	return &Manager{store: client, keyer: client, ttl: ttl, now: time.Now}, nil
}

// NewAccessID returns a fresh jti.
func NewAccessID() string {
	return uuid.NewString()
}

// Generate opens a session for accessID and returns its refresh token.
func (m *Manager) Generate(ctx context.Context, accessID string, userID uuid.UUID) (string, error) {
	if strings.TrimSpace(accessID) == "" {
		return "", errNoAccessID
	}
	if userID == uuid.Nil {
		return "", errors.New("user id is required")
	}
	return m.issue(ctx, accessID, userID)
}

// Rotate trades a valid refresh token for a new session. The old session is
// removed only after the new one is stored. Any mismatch, including a session
// owned by another user, is ErrInvalidRefreshToken.
func (m *Manager) Rotate(ctx context.Context, oldAccessID string, userID uuid.UUID, refreshToken string) (string, string, error) {
	if strings.TrimSpace(oldAccessID) == "" || strings.TrimSpace(refreshToken) == "" {
		return "", "", ErrInvalidRefreshToken
	}

	current, found, err := m.load(ctx, oldAccessID)
	if err != nil {
		return "", "", err
	}
	if !found || current.UserID != userID || !current.matches(refreshToken) {
		return "", "", ErrInvalidRefreshToken
	}

	accessID := NewAccessID()
	token, err := m.issue(ctx, accessID, userID)
	if err != nil {
		return "", "", err
	}
	if err := m.Revoke(ctx, oldAccessID); err != nil {
		return "", "", err
	}
	return accessID, token, nil
}

func (m *Manager) Revoke(ctx context.Context, accessID string) error {
	if strings.TrimSpace(accessID) == "" {
		return errNoAccessID
	}
	return m.store.Del(ctx, m.keyer.AccessSessionKey(accessID))
}

// HasSession is false for unknown ids and for sessions owned by someone else.
func (m *Manager) HasSession(ctx context.Context, accessID string, userID uuid.UUID) (bool, error) {
	if strings.TrimSpace(accessID) == "" {
		return false, errNoAccessID
	}
	current, found, err := m.load(ctx, accessID)
	if err != nil {
		return false, err
	}
	return found && current.UserID == userID, nil
}

func (m *Manager) issue(ctx context.Context, accessID string, userID uuid.UUID) (string, error) {
	buf := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate refresh token: %w", err)
	}
	token := base64.RawURLEncoding.EncodeToString(buf)

	raw, err := json.Marshal(record{UserID: userID, Digest: digest(token), IssuedAt: m.now().UTC()})
	if err != nil {
		return "", err
	}
	if err := m.store.Set(ctx, m.keyer.AccessSessionKey(accessID), string(raw), m.ttl); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	return token, nil
}

// load reports found=false for missing or unreadable records.
func (m *Manager) load(ctx context.Context, accessID string) (record, bool, error) {
	raw, err := m.store.Get(ctx, m.keyer.AccessSessionKey(accessID))
	if errors.Is(err, redislib.Nil) {
		return record{}, false, nil
	}
	if err != nil {
		return record{}, false, fmt.Errorf("load session: %w", err)
	}
	var rec record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return record{}, false, nil
	}
	return rec, true, nil
}

func digest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
