package idempotency

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	redislib "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu   sync.Mutex
	data map[string]string
	ttls map[string]time.Duration
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	if !ok {
		return "", redislib.Nil
	}
	return v, nil
}

func (f *fakeStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = fmt.Sprint(value)
	f.ttls[key] = ttl
	return nil
}

func (f *fakeStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	f.data[key] = fmt.Sprint(value)
	f.ttls[key] = ttl
	return true, nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return "sf:idempotency:" + scope + ":" + id
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		delete(f.data, k)
	}
	return nil
}

func TestBeginCompleteReplay(t *testing.T) {
	store := newFakeStore()
	manager, err := NewManager(store, 24*time.Hour)
	require.NoError(t, err)
	ctx := context.Background()

	resp, err := manager.Begin(ctx, "user-1", "abc", "h1")
	require.NoError(t, err)
	assert.Nil(t, resp, "first request owns the key")
	assert.Equal(t, 24*time.Hour, store.ttls["sf:idempotency:user-1:abc"])

	_, err = manager.Begin(ctx, "user-1", "abc", "h1")
	assert.ErrorIs(t, err, ErrInProgress)

	body := json.RawMessage(`{"success":true,"data":{"orderNumber":"ORD-1"}}`)
	require.NoError(t, manager.Complete(ctx, "user-1", "abc", Response{Status: 201, ContentType: "application/json", Body: body, RequestHash: "h1"}))

	resp, err = manager.Begin(ctx, "user-1", "abc", "h1")
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 201, resp.Status)
	assert.JSONEq(t, string(body), string(resp.Body))

	_, err = manager.Begin(ctx, "user-1", "abc", "other-body")
	assert.ErrorIs(t, err, ErrKeyReused)

	resp, err = manager.Begin(ctx, "user-2", "abc", "h1")
	require.NoError(t, err)
	assert.Nil(t, resp, "keys are scoped per user")
}

func TestReleaseAllowsRetry(t *testing.T) {
	manager, err := NewManager(newFakeStore(), time.Hour)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = manager.Begin(ctx, "user-1", "retry-me", "h")
	require.NoError(t, err)
	require.NoError(t, manager.Release(ctx, "user-1", "retry-me"))

	resp, err := manager.Begin(ctx, "user-1", "retry-me", "h")
	require.NoError(t, err)
	assert.Nil(t, resp)
}

func TestInvalidKeys(t *testing.T) {
	manager, err := NewManager(newFakeStore(), time.Hour)
	require.NoError(t, err)
	ctx := context.Background()

	for _, key := range []string{"", "   ", "has space", "a:b", strings.Repeat("k", 256)} {
		_, err := manager.Begin(ctx, "user-1", key, "h")
		assert.ErrorIs(t, err, ErrInvalidKey, "key %q", key)
	}
	_, err = manager.Begin(ctx, "", "abc", "h")
	assert.Error(t, err)
}

func TestNewManagerValidation(t *testing.T) {
	_, err := NewManager(nil, time.Hour)
	assert.Error(t, err)
	_, err = NewManager(newFakeStore(), 0)
	assert.Error(t, err)
}
