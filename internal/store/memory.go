package store

import (
	"context"
	"maps"
	"sync"

	"github.com/aaronzipp/werewolf-gm/internal/models"
)

// MemoryStore keeps sessions in process memory. Sessions are cloned on the way
// in and out so callers never share state with the store.
type MemoryStore struct {
	sessions map[string]*models.Session
	mu       sync.RWMutex
}

// NewMemoryStore creates a new in-memory session store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*models.Session),
	}
}

// Create stores a new session
func (m *MemoryStore) Create(ctx context.Context, s *models.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.sessions[s.Code]; exists {
		return ErrDuplicateCode
	}
	s.Version = 0
	m.sessions[s.Code] = s.Clone()
	return nil
}

// Get retrieves a session by code
func (m *MemoryStore) Get(ctx context.Context, code string) (*models.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, exists := m.sessions[code]
	if !exists {
		return nil, ErrNotFound
	}
	return s.Clone(), nil
}

// Save replaces the stored session if its version matches
func (m *MemoryStore) Save(ctx context.Context, s *models.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	current, exists := m.sessions[s.Code]
	if !exists {
		return ErrNotFound
	}
	if current.Version != s.Version {
		return ErrVersionConflict
	}
	next := s.Clone()
	// keep the append-only logs from ever shrinking
	if len(next.History) < len(current.History) || len(next.ChatHistory) < len(current.ChatHistory) {
		return ErrVersionConflict
	}
	next.Version++
	m.sessions[s.Code] = next
	s.Version = next.Version
	return nil
}

// AppendEvent adds one entry to a session's history
func (m *MemoryStore) AppendEvent(ctx context.Context, code string, e models.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, exists := m.sessions[code]
	if !exists {
		return ErrNotFound
	}
	e.Payload = maps.Clone(e.Payload)
	s.History = append(s.History, e)
	s.Version++
	return nil
}

// AppendChat adds dialogue turns to a session's chat history
func (m *MemoryStore) AppendChat(ctx context.Context, code string, msgs ...models.ChatMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, exists := m.sessions[code]
	if !exists {
		return ErrNotFound
	}
	s.ChatHistory = append(s.ChatHistory, msgs...)
	s.Version++
	return nil
}

// Exists checks if a session code exists
func (m *MemoryStore) Exists(ctx context.Context, code string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, exists := m.sessions[code]
	return exists, nil
}

var _ Store = (*MemoryStore)(nil)
