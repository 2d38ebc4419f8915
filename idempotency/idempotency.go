// Package idempotency manages the session-scoped token that tags every
// verification attempt belonging to one logical purchase, so the external
// Verification Service can deduplicate retried submissions.
package idempotency

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store is the persistence port for the session key. Implementations must
// survive whatever "session" means to the embedding application: an
// in-memory store for tests, a file store for a desktop session, or a bridge
// to browser session storage.
type Store interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(key string) error
}

const storageKey = "entry_purchase_idempotency_key"

// Manager hands out a stable idempotency key per purchase attempt. The key
// is a dedup token, not a secret; a timestamp plus a random suffix is
// sufficient.
type Manager struct {
	mu    sync.Mutex
	store Store
}

// NewManager wires a Manager to the given store. A nil store falls back to
// an in-memory one.
func NewManager(store Store) *Manager {
	if store == nil {
		store = NewMemoryStore()
	}
	return &Manager{store: store}
}

// GetOrCreateKey returns the existing session key, generating and persisting
// a new one when none exists. While a key exists every verification request
// for the in-progress attempt must reuse it unchanged.
func (m *Manager) GetOrCreateKey() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok, err := m.store.Get(storageKey)
	if err != nil {
		return "", fmt.Errorf("reading idempotency key: %w", err)
	}
	if ok && existing != "" {
		return existing, nil
	}

	key := fmt.Sprintf("ek-%d-%s", time.Now().UnixMilli(), uuid.NewString()[:8])
	if err := m.store.Set(storageKey, key); err != nil {
		return "", fmt.Errorf("persisting idempotency key: %w", err)
	}
	return key, nil
}

// ClearKey removes the persisted key. Call exactly once, after a terminal
// success response or when the user explicitly abandons the purchase to
// start a fresh one.
func (m *Manager) ClearKey() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.store.Delete(storageKey); err != nil {
		return fmt.Errorf("clearing idempotency key: %w", err)
	}
	return nil
}

// CurrentKey returns the persisted key without creating one.
func (m *Manager) CurrentKey() (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store.Get(storageKey)
}
