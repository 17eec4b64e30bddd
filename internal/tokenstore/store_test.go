package tokenstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisBackend(t *testing.T) (*RedisBackend, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisBackend(client, "test:token"), mr
}

func newFileBackend(t *testing.T) *FileBackend {
	t.Helper()
	backend, err := NewFileBackend(filepath.Join(t.TempDir(), "state", "token.json"))
	require.NoError(t, err)
	return backend
}

func TestStoreContract(t *testing.T) {
	backends := map[string]func(t *testing.T) Backend{
		"memory": func(*testing.T) Backend { return NewMemoryBackend() },
		"file":   func(t *testing.T) Backend { return newFileBackend(t) },
		"redis": func(t *testing.T) Backend {
			backend, _ := newRedisBackend(t)
			return backend
		},
	}
	for name, build := range backends {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := New(build(t), nil)

			_, ok := store.Get(ctx)
			assert.False(t, ok)
			assert.False(t, store.HasToken(ctx))

			require.NoError(t, store.Set(ctx, "abc"))
			token, ok := store.Get(ctx)
			require.True(t, ok)
			assert.Equal(t, "abc", token)
			assert.True(t, store.HasToken(ctx))

			require.NoError(t, store.Set(ctx, "def"))
			token, _ = store.Get(ctx)
			assert.Equal(t, "def", token)

			require.NoError(t, store.Clear(ctx))
			assert.False(t, store.HasToken(ctx))
			require.NoError(t, store.Clear(ctx))
		})
	}
}

func TestEmptyTokenIsAbsent(t *testing.T) {
	ctx := context.Background()
	store := New(NewMemoryBackend(), nil)
	require.NoError(t, store.Set(ctx, ""))
	assert.False(t, store.HasToken(ctx))
}

func TestFileBackendSurvivesNewStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "token.json")

	first, err := NewFileBackend(path)
	require.NoError(t, err)
	require.NoError(t, New(first, nil).Set(ctx, "persisted"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	if filepath.Separator == '/' {
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	}

	second, err := NewFileBackend(path)
	require.NoError(t, err)
	token, ok := New(second, nil).Get(ctx)
	require.True(t, ok)
	assert.Equal(t, "persisted", token)

	require.NoError(t, New(second, nil).Clear(ctx))
	_, err = os.Stat(path)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestFileBackendKeepsOtherKeys(t *testing.T) {
	ctx := context.Background()
	backend := newFileBackend(t)
	require.NoError(t, os.WriteFile(backend.Path(), []byte(`{"theme":"dark"}`), 0o600))

	require.NoError(t, backend.Save(ctx, "abc"))
	require.NoError(t, backend.Delete(ctx))

	data, err := os.ReadFile(backend.Path())
	require.NoError(t, err)
	assert.JSONEq(t, `{"theme":"dark"}`, string(data))
}

func TestCorruptFileReadsAsAbsent(t *testing.T) {
	ctx := context.Background()
	backend := newFileBackend(t)
	require.NoError(t, os.WriteFile(backend.Path(), []byte("{not json"), 0o600))

	store := New(backend, nil)
	assert.False(t, store.HasToken(ctx))
}

func TestRedisBackendUsesConfiguredKey(t *testing.T) {
	ctx := context.Background()
	backend, mr := newRedisBackend(t)

	require.NoError(t, New(backend, nil).Set(ctx, "abc"))
	value, err := mr.Get("test:token")
	require.NoError(t, err)
	assert.Equal(t, "abc", value)

	mr.Del("test:token")
	_, err = backend.Load(ctx)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisUnavailableReadsAsAbsent(t *testing.T) {
	ctx := context.Background()
	backend, mr := newRedisBackend(t)
	mr.Close()

	store := New(backend, nil)
	assert.False(t, store.HasToken(ctx))
	assert.Error(t, store.Set(ctx, "abc"))
}

func TestNewRedisClientPings(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := NewRedisClient(context.Background(), "redis://"+mr.Addr()+"/0")
	require.NoError(t, err)
	client.Close()

	_, err = NewRedisClient(context.Background(), "")
	assert.Error(t, err)
}

func TestInspect(t *testing.T) {
	expires := time.Now().Add(time.Hour).Truncate(time.Second)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "alice",
		ExpiresAt: jwt.NewNumericDate(expires),
	}).SignedString([]byte("any-secret"))
	require.NoError(t, err)

	claims, err := Inspect(signed)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Subject)
	assert.True(t, claims.ExpiresAt.Equal(expires))
	assert.False(t, claims.Expired(time.Now()))
	assert.True(t, claims.Expired(expires.Add(time.Second)))

	_, err = Inspect("abc")
	assert.Error(t, err)
}
