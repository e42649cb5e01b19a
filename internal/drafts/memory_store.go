package drafts

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"fieldbook/api/internal/editor"
)

type memoryEntry struct {
	payload   []byte
	expiresAt time.Time
}

// MemoryStore is the single-process fallback used when no Redis is
// configured. Drafts are stored as JSON so callers never share trees.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &MemoryStore{
		entries: map[string]memoryEntry{},
		ttl:     ttl,
		now:     time.Now,
	}
}

func (s *MemoryStore) Save(_ context.Context, sessionID string, state editor.State) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal draft: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweep()
	s.entries[sessionID] = memoryEntry{payload: payload, expiresAt: s.now().Add(s.ttl)}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, sessionID string) (editor.State, error) {
	s.mu.Lock()
	entry, ok := s.entries[sessionID]
	if ok && !s.now().Before(entry.expiresAt) {
		delete(s.entries, sessionID)
		ok = false
	}
	s.mu.Unlock()
	if !ok {
		return editor.State{}, ErrNotFound
	}

	var state editor.State
	if err := json.Unmarshal(entry.payload, &state); err != nil {
		return editor.State{}, fmt.Errorf("unmarshal draft: %w", err)
	}
	return state, nil
}

func (s *MemoryStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	delete(s.entries, sessionID)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }

// sweep drops expired entries. Callers hold s.mu.
func (s *MemoryStore) sweep() {
	now := s.now()
	for id, entry := range s.entries {
		if !now.Before(entry.expiresAt) {
			delete(s.entries, id)
		}
	}
}
