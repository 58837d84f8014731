package file

import (
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigStore(t *testing.T) {
	tmpDir := t.TempDir()

	store, err := NewConfigStore(tmpDir)

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(tmpDir, "config.toml"), store.Path())
	_, ok := store.Get("anything")
	assert.False(t, ok)
}

func TestNewConfigStore_CreatesNestedDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")

	_, err := NewConfigStore(dir)

	require.NoError(t, err)
	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestConfigStore_TypedGetters(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Set("oauth.client_id", "client"))
	require.NoError(t, store.Set("sync.max_attempts", 4))
	require.NoError(t, store.Set("sync.requests_per_second", 2.5))
	require.NoError(t, store.Set("scheduler.enabled", true))
	require.NoError(t, store.Set("oauth.scopes", []string{"a", "b"}))

	assert.Equal(t, "client", store.GetString("oauth.client_id"))
	assert.Equal(t, 4, store.GetInt("sync.max_attempts"))
	assert.Equal(t, 4.0, store.GetFloat("sync.max_attempts"))
	assert.Equal(t, 2.5, store.GetFloat("sync.requests_per_second"))
	assert.True(t, store.GetBool("scheduler.enabled"))
	assert.Equal(t, []string{"a", "b"}, store.GetStringSlice("oauth.scopes"))

	// Wrong types read as zero values.
	assert.Empty(t, store.GetString("sync.max_attempts"))
	assert.Zero(t, store.GetInt("oauth.client_id"))
	assert.Zero(t, store.GetFloat("oauth.client_id"))
	assert.False(t, store.GetBool("oauth.client_id"))
	assert.Nil(t, store.GetStringSlice("oauth.client_id"))
}

func TestConfigStore_PersistsNestedTables(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	require.NoError(t, store.Set("oauth.client_id", "client"))
	require.NoError(t, store.Set("sync.max_attempts", 4))
	require.NoError(t, store.Set("sync.base_backoff", "1.5s"))
	require.NoError(t, store.Set("sync.requests_per_second", 2.5))
	require.NoError(t, store.Set("oauth.scopes", []string{"a", "b"}))

	raw, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Contains(t, string(raw), "[oauth]")
	assert.Contains(t, string(raw), "[sync]")

	reloaded, err := NewConfigStore(tmpDir)
	require.NoError(t, err)
	assert.Equal(t, "client", reloaded.GetString("oauth.client_id"))
	assert.Equal(t, 4, reloaded.GetInt("sync.max_attempts"))
	assert.Equal(t, "1.5s", reloaded.GetString("sync.base_backoff"))
	assert.Equal(t, 2.5, reloaded.GetFloat("sync.requests_per_second"))
	assert.Equal(t, []string{"a", "b"}, reloaded.GetStringSlice("oauth.scopes"))
}

func TestConfigStore_ReadsHandWrittenFile(t *testing.T) {
	tmpDir := t.TempDir()
	content := `
[oauth]
client_id = "from-file"
scopes = ["https://www.googleapis.com/auth/business.manage"]

[scheduler]
enabled = false
account_sync_interval = "2h"
`
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(content), 0600))

	store, err := NewConfigStore(tmpDir)

	require.NoError(t, err)
	assert.Equal(t, "from-file", store.GetString("oauth.client_id"))
	assert.Equal(t, []string{"https://www.googleapis.com/auth/business.manage"}, store.GetStringSlice("oauth.scopes"))
	enabled, ok := store.Get("scheduler.enabled")
	assert.True(t, ok)
	assert.Equal(t, false, enabled)
	assert.Equal(t, "2h", store.GetString("scheduler.account_sync_interval"))
}

func TestConfigStore_FilePermissions(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Set("security.encryption_key", "secret"))

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestConfigStore_EmptyFile(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "config.toml"), nil, 0600))

	store, err := NewConfigStore(tmpDir)

	require.NoError(t, err)
	_, ok := store.Get("any")
	assert.False(t, ok)
}

func TestConfigStore_InvalidTOML(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte("not = [valid"), 0600))

	_, err := NewConfigStore(tmpDir)

	assert.Error(t, err)
}

func TestConfigStore_SetRollsBackOnWriteError(t *testing.T) {
	if os.Getuid() == 0 {
		t.Skip("root ignores directory permissions")
	}
	tmpDir := t.TempDir()
	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)
	require.NoError(t, store.Set("logging.level", "info"))

	require.NoError(t, os.Chmod(store.Path(), 0400))
	t.Cleanup(func() { _ = os.Chmod(store.Path(), 0600) })

	assert.Error(t, store.Set("logging.level", "debug"))
	assert.Equal(t, "info", store.GetString("logging.level"))
	assert.Error(t, store.Set("logging.format", "json"))
	_, ok := store.Get("logging.format")
	assert.False(t, ok)
}

func TestConfigStore_Concurrency(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			key := "concurrent.key" + strconv.Itoa(id)
			_ = store.Set(key, id)
			_ = store.GetInt(key)
			_, _ = store.Get(key)
		}(i)
	}
	wg.Wait()

	assert.NoError(t, store.Load())
	assert.Equal(t, 3, store.GetInt("concurrent.key3"))
}

func TestNestAndFlatten(t *testing.T) {
	flat := map[string]any{
		"a":     1,
		"a.b":   2,
		"x.y.z": "deep",
		"top":   true,
	}

	nested := nest(flat)

	assert.Equal(t, 1, nested["a"])
	assert.Equal(t, true, nested["top"])
	assert.Equal(t, "deep", nested["x"].(map[string]any)["y"].(map[string]any)["z"])
	assert.Equal(t, map[string]any{"a": 1, "x.y.z": "deep", "top": true}, flatten(nested, ""))
}
