package memory

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigStore_TypedGetters(t *testing.T) {
	store := NewConfigStore()
	require.NoError(t, store.Set("s", "value"))
	require.NoError(t, store.Set("i", 7))
	require.NoError(t, store.Set("i64", int64(8)))
	require.NoError(t, store.Set("f", 2.5))
	require.NoError(t, store.Set("b", true))
	require.NoError(t, store.Set("list", []any{"a", 1, "b"}))

	assert.Equal(t, "value", store.GetString("s"))
	assert.Equal(t, "", store.GetString("i"))
	assert.Equal(t, 7, store.GetInt("i"))
	assert.Equal(t, 8, store.GetInt("i64"))
	assert.Equal(t, 2, store.GetInt("f"))
	assert.Equal(t, 2.5, store.GetFloat("f"))
	assert.Equal(t, 7.0, store.GetFloat("i"))
	assert.True(t, store.GetBool("b"))
	assert.False(t, store.GetBool("s"))
	assert.Equal(t, []string{"a", "b"}, store.GetStringSlice("list"))

	_, ok := store.Get("missing")
	assert.False(t, ok)
	assert.Zero(t, store.GetInt("missing"))
	assert.Nil(t, store.GetStringSlice("missing"))
}

func TestConfigStore_NoOps(t *testing.T) {
	store := NewConfigStore()
	assert.NoError(t, store.Save())
	assert.NoError(t, store.Load())
	assert.Equal(t, ":memory:", store.Path())
}

func TestConfigStore_Concurrency(t *testing.T) {
	store := NewConfigStore()

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := fmt.Sprintf("key%d", n)
			_ = store.Set(key, n)
			assert.Equal(t, n, store.GetInt(key))
		}(i)
	}
	wg.Wait()
}
