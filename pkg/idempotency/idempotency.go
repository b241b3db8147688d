// Package idempotency replays the first response for a repeated
// Idempotency-Key so retried checkouts never create a second order.
package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	redislib "github.com/redis/go-redis/v9"

	"github.com/angelmondragon/storefront-backend/pkg/redis"
)

const (
	pendingMarker = "pending"
	maxKeyLen     = 255
)

var (
	// ErrInProgress means another request with the same key has not finished yet.
	ErrInProgress = errors.New("request with this idempotency key is still in progress")
	ErrInvalidKey = errors.New("idempotency key must be 1-255 printable characters")
	// ErrKeyReused means the key was first used with a different request body.
	ErrKeyReused = errors.New("idempotency key reused with a different request")
)

// Response is the captured outcome replayed for duplicate requests.
type Response struct {
	Status      int             `json:"status"`
	ContentType string          `json:"contentType,omitempty"`
	Body        json.RawMessage `json:"body"`
	RequestHash string          `json:"requestHash"`
}

// Manager stores one Response per (scope, key) in Redis for the configured TTL.
// Keys follow the `sf:idempotency:<scope>:<key>` pattern.
type Manager struct {
	store redis.IdempotencyStore
	ttl   time.Duration
}

func NewManager(store redis.IdempotencyStore, ttl time.Duration) (*Manager, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl <= 0 {
		return nil, errors.New("ttl must be positive")
	}
	return &Manager{store: store, ttl: ttl}, nil
}

// Begin claims the key. A nil Response with nil error means the caller owns the
// key and must Complete or Release it; a non-nil Response should be replayed.
// requestHash fingerprints the request body; a stored response recorded for a
// different hash yields ErrKeyReused.
func (m *Manager) Begin(ctx context.Context, scope, key, requestHash string) (*Response, error) {
	storeKey, err := m.storeKey(scope, key)
	if err != nil {
		return nil, err
	}
	claimed, err := m.store.SetNX(ctx, storeKey, pendingMarker, m.ttl)
	if err != nil {
		return nil, err
	}
	if claimed {
		return nil, nil
	}

	raw, err := m.store.Get(ctx, storeKey)
	if err != nil {
		if errors.Is(err, redislib.Nil) {
			// expired between SETNX and GET; treat as still busy so the client retries.
			return nil, ErrInProgress
		}
		return nil, err
	}
	if raw == pendingMarker {
		return nil, ErrInProgress
	}
	var resp Response
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return nil, fmt.Errorf("decode stored response: %w", err)
	}
	if resp.RequestHash != requestHash {
		return nil, ErrKeyReused
	}
	return &resp, nil
}

// Complete records the response so later duplicates replay it.
func (m *Manager) Complete(ctx context.Context, scope, key string, resp Response) error {
	storeKey, err := m.storeKey(scope, key)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return m.store.Set(ctx, storeKey, string(raw), m.ttl)
}

// Release frees the key so the client may retry, used when the request failed
// in a way that should not be replayed.
func (m *Manager) Release(ctx context.Context, scope, key string) error {
	storeKey, err := m.storeKey(scope, key)
	if err != nil {
		return err
	}
	return m.store.Del(ctx, storeKey)
}

func (m *Manager) storeKey(scope, key string) (string, error) {
	if strings.TrimSpace(scope) == "" {
		return "", errors.New("scope is required")
	}
	key = strings.TrimSpace(key)
	if key == "" || len(key) > maxKeyLen || strings.ContainsAny(key, " :\t\n") {
		return "", ErrInvalidKey
	}
	return m.store.IdempotencyKey(scope, key), nil
}
