// Package store implements the trivial key->bytes value store the DHT
// node uses to satisfy STORE and FIND_VALUE requests: no eviction, no
// expiration, no persistence across restarts.
package store

import (
	"math/big"
	"sync"
)

// Store is the two operations the core requires of a value store.
type Store interface {
	Put(key *big.Int, value []byte)
	Get(key *big.Int) ([]byte, bool)
}

// Memory is an in-memory Store backed by a map keyed on the decimal string
// form of the key, guarded by a mutex so concurrent STORE writers and
// FIND_VALUE readers never tear.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemory constructs an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

// Put inserts or overwrites the value for key.
func (m *Memory) Put(key *big.Int, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key.String()] = value
}

// Get returns the value for key, if present.
func (m *Memory) Get(key *big.Int) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key.String()]
	return v, ok
}
