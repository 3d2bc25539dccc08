package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type document struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func newTestStore(t *testing.T, ttl time.Duration) (*SessionStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSessionStore(client, "cart-storage", ttl), mr
}

func TestSessionStoreRoundTrip(t *testing.T) {
	store, mr := newTestStore(t, time.Hour)
	ctx := context.Background()

	var got document
	found, err := store.Load(ctx, "abc", &got)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.Save(ctx, "abc", document{Name: "deck log", Count: 2}))
	assert.True(t, mr.Exists("cart-storage:abc"))
	assert.Equal(t, time.Hour, mr.TTL("cart-storage:abc"))

	found, err = store.Load(ctx, "abc", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, document{Name: "deck log", Count: 2}, got)

	require.NoError(t, store.Delete(ctx, "abc"))
	assert.False(t, mr.Exists("cart-storage:abc"))
}

func TestSessionStoreExpires(t *testing.T) {
	store, mr := newTestStore(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "abc", document{Name: "x"}))
	mr.FastForward(2 * time.Minute)

	var got document
	found, err := store.Load(ctx, "abc", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSessionStoreRejectsCorruptDocument(t *testing.T) {
	store, mr := newTestStore(t, time.Minute)
	require.NoError(t, mr.Set("cart-storage:abc", "{not json"))

	var got document
	_, err := store.Load(context.Background(), "abc", &got)
	assert.Error(t, err)
}
