package store

import (
	"context"
	"errors"

	"github.com/aaronzipp/werewolf-gm/internal/models"
)

var (
	// ErrNotFound is returned when no session exists for a code
	ErrNotFound = errors.New("session not found")

	// ErrDuplicateCode is returned by Create when the code is already taken
	ErrDuplicateCode = errors.New("session code already exists")

	// ErrVersionConflict is returned by Save when the stored session changed since
	// it was loaded
	ErrVersionConflict = errors.New("session version conflict")
)

// Store persists sessions keyed by code.
//
// Save is an optimistic write: it succeeds only when the stored version still
// equals s.Version, and bumps s.Version on success. History and ChatHistory are
// append-only; Save never rewrites entries that are already stored.
type Store interface {
	Create(ctx context.Context, s *models.Session) error
	Get(ctx context.Context, code string) (*models.Session, error)
	Save(ctx context.Context, s *models.Session) error
	AppendEvent(ctx context.Context, code string, e models.Event) error
	AppendChat(ctx context.Context, code string, msgs ...models.ChatMessage) error
	Exists(ctx context.Context, code string) (bool, error)
}
