package session

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for count session persistence
type Repository interface {
	// FindByID finds a session by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*CountSession, error)

	// FindByShortID finds a session by its 8-character short identifier
	FindByShortID(ctx context.Context, shortID string) (*CountSession, error)

	// FindAll returns sessions ordered by creation time, newest first
	FindAll(ctx context.Context, limit, offset int) ([]CountSession, error)

	// FindExpired returns terminal sessions that finished before the cutoff
	FindExpired(ctx context.Context, cutoff time.Time) ([]CountSession, error)

	// Save creates or updates a session
	Save(ctx context.Context, s *CountSession) error

	// Delete deletes a session
	Delete(ctx context.Context, id uuid.UUID) error

	// Count counts all sessions
	Count(ctx context.Context) (int64, error)
}
