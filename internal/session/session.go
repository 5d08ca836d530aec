// Package session keeps login state on the server. The browser only holds a
// signed token naming a row in the sessions table, so deleting the row logs
// the client out regardless of the token's own expiry.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"tasktracker/internal/domain"
	"tasktracker/internal/repository"
)

// CookieName is the cookie carrying the session token.
const CookieName = "tasktracker_session"

// purgeInterval bounds how often session creation sweeps expired rows.
const purgeInterval = time.Minute

var (
	// ErrUnauthenticated is returned when an operation needs a logged-in user and none is attached.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrInvalidToken is returned by Parse for tokens that are malformed, forged or expired.
	ErrInvalidToken = errors.New("invalid session token")
)

type Config struct {
	Secret string
	TTL    time.Duration
	// Now overrides the clock, mainly for tests.
	Now func() time.Time
}

type Manager struct {
	repo   repository.SessionRepository
	secret []byte
	ttl    time.Duration
	now    func() time.Time

	mu        sync.Mutex
	lastPurge time.Time
}

func NewManager(repo repository.SessionRepository, cfg Config) (*Manager, error) {
	if cfg.Secret == "" {
		return nil, fmt.Errorf("session secret is required")
	}
	if cfg.TTL <= 0 {
		return nil, fmt.Errorf("session ttl must be positive")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Manager{
		repo:   repo,
		secret: []byte(cfg.Secret),
		ttl:    cfg.TTL,
		now:    cfg.Now,
	}, nil
}

// TTL is the lifetime of newly created sessions.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Login starts an authenticated session for userID. The previous session, if
// any, is discarded so a token issued before login never becomes privileged.
func (m *Manager) Login(ctx context.Context, previousID string, userID int64) (*domain.Session, string, error) {
	if userID == 0 {
		return nil, "", ErrUnauthenticated
	}
	if previousID != "" {
		if err := m.repo.Delete(ctx, previousID); err != nil {
			return nil, "", err
		}
	}
	return m.start(ctx, userID)
}

// Anonymous starts a session without a user. It exists to carry flash messages.
func (m *Manager) Anonymous(ctx context.Context) (*domain.Session, string, error) {
	return m.start(ctx, 0)
}

func (m *Manager) start(ctx context.Context, userID int64) (*domain.Session, string, error) {
	if err := m.purgeIfDue(ctx); err != nil {
		return nil, "", err
	}

	now := m.now()
	sess := &domain.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: now.UTC(),
		ExpiresAt: now.Add(m.ttl).Truncate(time.Second),
	}
	if err := m.repo.Create(ctx, sess); err != nil {
		return nil, "", fmt.Errorf("create session: %w", err)
	}

	token, err := m.sign(sess)
	if err != nil {
		return nil, "", err
	}
	return sess, token, nil
}

// Resolve maps a cookie token to its live session. Unknown, forged and
// expired tokens resolve to nil without an error; errors are storage failures.
func (m *Manager) Resolve(ctx context.Context, token string) (*domain.Session, error) {
	if token == "" {
		return nil, nil
	}
	id, err := m.Parse(token)
	if err != nil {
		return nil, nil
	}

	sess, err := m.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if sess.Expired(m.now()) {
		if err := m.repo.Delete(ctx, sess.ID); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return sess, nil
}

// Logout destroys the session.
func (m *Manager) Logout(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	return m.repo.Delete(ctx, id)
}

// Require returns ErrUnauthenticated unless a user is attached to sess.
func Require(sess *domain.Session) error {
	if !sess.Authenticated() {
		return ErrUnauthenticated
	}
	return nil
}

// Flash queues a message for the next rendered page of the session.
func (m *Manager) Flash(ctx context.Context, id, message string) error {
	return m.repo.AddFlash(ctx, id, message)
}

// Flashes returns and clears the queued messages.
func (m *Manager) Flashes(ctx context.Context, id string) ([]string, error) {
	if id == "" {
		return nil, nil
	}
	return m.repo.PopFlashes(ctx, id)
}

// PurgeExpired removes sessions whose expiry has passed.
func (m *Manager) PurgeExpired(ctx context.Context) (int64, error) {
	now := m.now()
	n, err := m.repo.DeleteExpired(ctx, now)
	if err != nil {
		return 0, err
	}
	m.mu.Lock()
	m.lastPurge = now
	m.mu.Unlock()
	return n, nil
}

// purgeIfDue sweeps expired sessions at most once per purgeInterval. Visitors
// without a cookie create a row on every flash, so the sweep rides on creation.
func (m *Manager) purgeIfDue(ctx context.Context) error {
	m.mu.Lock()
	due := m.now().Sub(m.lastPurge) >= purgeInterval
	m.mu.Unlock()
	if !due {
		return nil
	}
	if _, err := m.PurgeExpired(ctx); err != nil {
		return fmt.Errorf("purge expired sessions: %w", err)
	}
	return nil
}

func (m *Manager) sign(sess *domain.Session) (string, error) {
	claims := jwt.RegisteredClaims{
		ID:        sess.ID,
		IssuedAt:  jwt.NewNumericDate(sess.CreatedAt),
		ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return token, nil
}

// Parse verifies a token and returns the session id it names.
func (m *Manager) Parse(token string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.ID == "" {
		return "", fmt.Errorf("%w: missing session id", ErrInvalidToken)
	}
	return claims.ID, nil
}
