package cache_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/tome/internal/adapters/cache"
)

type payload struct {
	Value string `json:"value"`
}

func TestStore_WriteAndRead(t *testing.T) {
	s := cache.NewStore(t.TempDir())

	require.NoError(t, cache.Write(s, "analysis/auth-service", "rev1", payload{Value: "v"}))

	got, ok := cache.Read(s, "analysis/auth-service", cache.WithIdentity[payload]("rev1"))
	require.True(t, ok)
	assert.Equal(t, "v", got.Value)

	// A different current identity invalidates the entry.
	_, ok = cache.Read(s, "analysis/auth-service", cache.WithIdentity[payload]("rev2"))
	assert.False(t, ok)

	// An unknown identity accepts nothing.
	_, ok = cache.Read(s, "analysis/auth-service", cache.WithIdentity[payload](""))
	assert.False(t, ok)

	// A nil validate bypasses identity checking.
	got, ok = cache.Read[payload](s, "analysis/auth-service", nil)
	require.True(t, ok)
	assert.Equal(t, "v", got.Value)
}

func TestStore_MissNeverErrors(t *testing.T) {
	s := cache.NewStore(t.TempDir())

	// Missing entry.
	_, ok := cache.Read[payload](s, "analysis/absent", nil)
	assert.False(t, ok)

	// Corrupt entry.
	path := filepath.Join(s.Root(), "analysis", "broken.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, ok = cache.Read[payload](s, "analysis/broken", nil)
	assert.False(t, ok)
}

func TestStore_AtomicWrite_KillBeforeRename(t *testing.T) {
	s := cache.NewStore(t.TempDir())

	require.NoError(t, cache.Write(s, "article/api", "rev1", payload{Value: "old"}))

	// Simulate a process killed mid-write: a leftover temp file next to the
	// entry, never renamed into place.
	dir := filepath.Join(s.Root(), "article")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "api.json.tmp-123"), []byte(`{"truncat`), 0o644))

	got, ok := cache.Read(s, "article/api", cache.WithIdentity[payload]("rev1"))
	require.True(t, ok, "prior entry must stay fully parsable")
	assert.Equal(t, "old", got.Value)
}

func TestStore_Overwrite(t *testing.T) {
	s := cache.NewStore(t.TempDir())

	require.NoError(t, cache.Write(s, "article/api", "rev1", payload{Value: "one"}))
	require.NoError(t, cache.Write(s, "article/api", "rev2", payload{Value: "two"}))

	got, ok := cache.Read(s, "article/api", cache.WithIdentity[payload]("rev2"))
	require.True(t, ok)
	assert.Equal(t, "two", got.Value)
}

func TestStore_ScanMany(t *testing.T) {
	s := cache.NewStore(t.TempDir())
	keyOf := func(id string) string { return "analysis/" + id }

	require.NoError(t, cache.Write(s, keyOf("a"), "rev1", payload{Value: "A"}))
	require.NoError(t, cache.Write(s, keyOf("b"), "stale", payload{Value: "B"}))

	found, missing := cache.ScanMany(s, []string{"a", "b", "c"}, keyOf,
		cache.WithIdentity[payload]("rev1"),
		func(id string, env *cache.Envelope[payload]) string { return id + "=" + env.Payload.Value },
	)

	assert.Equal(t, []string{"a=A"}, found)
	assert.Equal(t, []string{"b", "c"}, missing)
}

func TestStore_ScanMap(t *testing.T) {
	s := cache.NewStore(t.TempDir())
	keyOf := func(id string) string { return "article/" + id }

	require.NoError(t, cache.Write(s, keyOf("a"), "rev1", payload{Value: "A"}))
	require.NoError(t, cache.Write(s, keyOf("b"), "rev1", payload{Value: "B"}))

	found, missing := cache.ScanMap(s, []string{"a", "b", "c"}, keyOf, cache.WithIdentity[payload]("rev1"))

	assert.Equal(t, map[string]payload{"a": {Value: "A"}, "b": {Value: "B"}}, found)
	assert.Equal(t, []string{"c"}, missing)
}

func TestStore_Clear(t *testing.T) {
	s := cache.NewStore(t.TempDir())

	existed, err := s.Clear("analysis/nothing")
	require.NoError(t, err)
	assert.False(t, existed)

	require.NoError(t, cache.Write(s, "analysis/a", "rev1", payload{}))
	existed, err = s.Clear("analysis/a")
	require.NoError(t, err)
	assert.True(t, existed)
}

func TestStore_ClearNamespace(t *testing.T) {
	s := cache.NewStore(t.TempDir())

	existed, err := s.ClearNamespace("article")
	require.NoError(t, err)
	assert.False(t, existed)

	require.NoError(t, cache.Write(s, "article/a", "rev1", payload{}))
	require.NoError(t, cache.Write(s, "article/b", "rev1", payload{}))

	existed, err = s.ClearNamespace("article")
	require.NoError(t, err)
	assert.True(t, existed)

	_, ok := cache.Read[payload](s, "article/a", nil)
	assert.False(t, ok)
}

func TestStore_ReadEnvelope(t *testing.T) {
	s := cache.NewStore(t.TempDir())

	require.NoError(t, cache.Write(s, "article/a", "rev1", payload{Value: "kept"}))

	env, ok := cache.ReadEnvelope[payload](s, "article/a")
	require.True(t, ok)
	assert.Equal(t, "rev1", env.ContentIdentity)
	assert.Equal(t, "kept", env.Payload.Value)
}
