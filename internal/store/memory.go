package store

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"botcast/internal/game"
)

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// Memory is an in-process Store for single-instance deployments and tests.
// Expired entries are pruned lazily on access. Records are kept as JSON so
// reads hand out independent copies, same as a remote backend would.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

func NewMemory() *Memory {
	return &Memory{entries: make(map[string]memoryEntry)}
}

func (m *Memory) Get(_ context.Context, code string) (*game.Session, error) {
	m.prune()
	m.mu.RLock()
	entry, ok := m.entries[code]
	m.mu.RUnlock()
	if !ok || time.Now().After(entry.expiresAt) {
		return nil, game.ErrSessionNotFound
	}
	var s game.Session
	if err := json.Unmarshal(entry.data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (m *Memory) Set(_ context.Context, code string, session *game.Session, ttl time.Duration) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.entries[code] = memoryEntry{data: data, expiresAt: time.Now().Add(ttl)}
	m.mu.Unlock()
	return nil
}

func (m *Memory) Exists(_ context.Context, code string) (bool, error) {
	m.prune()
	m.mu.RLock()
	entry, ok := m.entries[code]
	m.mu.RUnlock()
	return ok && time.Now().Before(entry.expiresAt), nil
}

func (m *Memory) prune() {
	now := time.Now()
	m.mu.Lock()
	for code, entry := range m.entries {
		if now.After(entry.expiresAt) {
			delete(m.entries, code)
		}
	}
	m.mu.Unlock()
}
