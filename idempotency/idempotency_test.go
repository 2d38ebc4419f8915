package idempotency

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrCreateKey_StableAcrossCalls(t *testing.T) {
	m := NewManager(NewMemoryStore())

	first, err := m.GetOrCreateKey()
	require.NoError(t, err)
	require.NotEmpty(t, first)
	assert.True(t, strings.HasPrefix(first, "ek-"))

	for i := 0; i < 10; i++ {
		again, err := m.GetOrCreateKey()
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestClearKey_NextKeyDiffers(t *testing.T) {
	m := NewManager(NewMemoryStore())

	first, err := m.GetOrCreateKey()
	require.NoError(t, err)

	require.NoError(t, m.ClearKey())

	second, err := m.GetOrCreateKey()
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestCurrentKey_EmptyUntilCreated(t *testing.T) {
	m := NewManager(NewMemoryStore())

	_, ok, err := m.CurrentKey()
	require.NoError(t, err)
	assert.False(t, ok)

	key, err := m.GetOrCreateKey()
	require.NoError(t, err)

	current, ok, err := m.CurrentKey()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, key, current)
}

func TestFileStore_SurvivesReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")

	m := NewManager(NewFileStore(path))
	key, err := m.GetOrCreateKey()
	require.NoError(t, err)

	// A fresh manager over the same file simulates a page reload within the
	// same session.
	reloaded := NewManager(NewFileStore(path))
	again, err := reloaded.GetOrCreateKey()
	require.NoError(t, err)
	assert.Equal(t, key, again)

	require.NoError(t, reloaded.ClearKey())
	next, err := reloaded.GetOrCreateKey()
	require.NoError(t, err)
	assert.NotEqual(t, key, next)
}

func TestNewManager_NilStoreDefaultsToMemory(t *testing.T) {
	m := NewManager(nil)
	key, err := m.GetOrCreateKey()
	require.NoError(t, err)
	assert.NotEmpty(t, key)
}
