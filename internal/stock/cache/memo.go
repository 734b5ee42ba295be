// Package cache memoizes batch reconstructions on a content hash of the
// event history, so identical snapshots are never reconstructed twice.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
)

// Memo stores JSON-encodable values under content-derived keys.
type Memo interface {
	// Get decodes the value stored under key into dst. found is false on a
	// miss.
	Get(ctx context.Context, key string, dst any) (found bool, err error)
	Set(ctx context.Context, key string, value any) error
}

// Key hashes parts into a stable memo key. Equal parts always give equal
// keys; any change to any part changes the key.
func Key(parts ...any) (string, error) {
	h := sha256.New()
	enc := json.NewEncoder(h)
	for _, p := range parts {
		if err := enc.Encode(p); err != nil {
			return "", fmt.Errorf("hash memo key: %w", err)
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// DefaultLocalEntries bounds a LocalMemo created with a non-positive size.
const DefaultLocalEntries = 1024

// LocalMemo is an in-process Memo. When full it drops everything and starts
// over; keys are content hashes so a cold memo only costs recomputation.
type LocalMemo struct {
	mu      sync.RWMutex
	entries map[string][]byte
	max     int
}

// NewLocalMemo creates a memo holding at most maxEntries values.
func NewLocalMemo(maxEntries int) *LocalMemo {
	if maxEntries <= 0 {
		maxEntries = DefaultLocalEntries
	}
	return &LocalMemo{entries: make(map[string][]byte), max: maxEntries}
}

func (m *LocalMemo) Get(_ context.Context, key string, dst any) (bool, error) {
	m.mu.RLock()
	raw, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, err
	}
	return true, nil
}

func (m *LocalMemo) Set(_ context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.entries[key]; !exists && len(m.entries) >= m.max {
		m.entries = make(map[string][]byte)
	}
	m.entries[key] = raw
	return nil
}

// Len reports how many values are held.
func (m *LocalMemo) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
