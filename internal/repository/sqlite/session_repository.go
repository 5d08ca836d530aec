package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"tasktracker/internal/domain"
	"tasktracker/internal/repository"
)

type SessionRepository struct {
	db *sql.DB
}

func NewSessionRepository(db *sql.DB) repository.SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Create(ctx context.Context, session *domain.Session) error {
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}

	userID := sql.NullInt64{Int64: session.UserID, Valid: session.UserID != 0}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO sessions (id, user_id, created_at, expires_at)
VALUES (?, ?, ?, ?)`,
		session.ID,
		userID,
		session.CreatedAt.UTC(),
		session.ExpiresAt.Unix(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("session: %w", repository.ErrDuplicate)
		}
		if isForeignKeyViolation(err) {
			return fmt.Errorf("session owner %d: %w", session.UserID, repository.ErrNotFound)
		}
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (r *SessionRepository) Get(ctx context.Context, id string) (*domain.Session, error) {
	var (
		session   domain.Session
		userID    sql.NullInt64
		expiresAt int64
	)
	err := r.db.QueryRowContext(ctx, `
SELECT id, user_id, created_at, expires_at
FROM sessions
WHERE id = ?`,
		id,
	).Scan(&session.ID, &userID, &session.CreatedAt, &expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("session: %w", repository.ErrNotFound)
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}

	if userID.Valid {
		session.UserID = userID.Int64
	}
	session.CreatedAt = session.CreatedAt.Local()
	session.ExpiresAt = time.Unix(expiresAt, 0)
	return &session, nil
}

func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (r *SessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, now.Unix())
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("expired sessions rows affected: %w", err)
	}
	return n, nil
}

func (r *SessionRepository) AddFlash(ctx context.Context, sessionID, message string) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO session_flashes (session_id, message, created_at)
VALUES (?, ?, ?)`,
		sessionID,
		message,
		time.Now().UTC(),
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("flash session: %w", repository.ErrNotFound)
		}
		return fmt.Errorf("insert flash: %w", err)
	}
	return nil
}

func (r *SessionRepository) PopFlashes(ctx context.Context, sessionID string) ([]string, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `
SELECT message
FROM session_flashes
WHERE session_id = ?
ORDER BY id ASC`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("query flashes: %w", err)
	}

	var messages []string
	for rows.Next() {
		var msg string
		if err := rows.Scan(&msg); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan flash: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate flashes: %w", err)
	}
	rows.Close()

	if len(messages) == 0 {
		return nil, nil
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM session_flashes WHERE session_id = ?`, sessionID); err != nil {
		return nil, fmt.Errorf("delete flashes: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit flashes: %w", err)
	}
	return messages, nil
}
