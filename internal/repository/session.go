package repository

import (
	"context"
	"time"

	"tasktracker/internal/domain"
)

// SessionRepository stores server-side sessions and their pending flash messages.
type SessionRepository interface {
	Create(ctx context.Context, session *domain.Session) error
	Get(ctx context.Context, id string) (*domain.Session, error)
	Delete(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
	AddFlash(ctx context.Context, sessionID, message string) error
	// PopFlashes returns the pending messages in the order they were added and removes them.
	PopFlashes(ctx context.Context, sessionID string) ([]string, error)
}
