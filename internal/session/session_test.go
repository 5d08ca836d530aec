package session_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tasktracker/internal/domain"
	"tasktracker/internal/repository"
	"tasktracker/internal/repository/sqlite"
	"tasktracker/internal/session"
)

type clock struct{ t time.Time }

func (c *clock) Now() time.Time { return c.t }

func setup(t *testing.T) (*session.Manager, repository.SessionRepository, *domain.User, *clock) {
	t.Helper()

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "session.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, sqlite.Migrate(context.Background(), db, nil))

	user := &domain.User{Username: "alice", PasswordHash: "x"}
	_, err = sqlite.NewUserRepository(db).Create(context.Background(), user)
	require.NoError(t, err)

	repo := sqlite.NewSessionRepository(db)
	c := &clock{t: time.Now()}
	m, err := session.NewManager(repo, session.Config{Secret: "test-secret", TTL: time.Hour, Now: c.Now})
	require.NoError(t, err)
	return m, repo, user, c
}

func TestNewManagerRequiresSecret(t *testing.T) {
	_, err := session.NewManager(nil, session.Config{TTL: time.Hour})
	assert.Error(t, err)

	_, err = session.NewManager(nil, session.Config{Secret: "s"})
	assert.Error(t, err)
}

func TestLoginResolveLogout(t *testing.T) {
	m, _, user, _ := setup(t)
	ctx := context.Background()

	sess, token, err := m.Login(ctx, "", user.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.NoError(t, session.Require(sess))

	resolved, err := m.Resolve(ctx, token)
	require.NoError(t, err)
	require.NotNil(t, resolved)
	assert.Equal(t, sess.ID, resolved.ID)
	assert.Equal(t, user.ID, resolved.UserID)

	require.NoError(t, m.Logout(ctx, sess.ID))

	resolved, err = m.Resolve(ctx, token)
	require.NoError(t, err)
	assert.Nil(t, resolved)
	assert.ErrorIs(t, session.Require(resolved), session.ErrUnauthenticated)
}

func TestLoginRotatesPreviousSession(t *testing.T) {
	m, repo, user, _ := setup(t)
	ctx := context.Background()

	anon, anonToken, err := m.Anonymous(ctx)
	require.NoError(t, err)
	assert.ErrorIs(t, session.Require(anon), session.ErrUnauthenticated)

	sess, _, err := m.Login(ctx, anon.ID, user.ID)
	require.NoError(t, err)
	assert.NotEqual(t, anon.ID, sess.ID)

	_, err = repo.Get(ctx, anon.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	resolved, err := m.Resolve(ctx, anonToken)
	require.NoError(t, err)
	assert.Nil(t, resolved)
}

func TestResolveRejectsBadTokens(t *testing.T) {
	m, _, user, _ := setup(t)
	ctx := context.Background()

	_, token, err := m.Login(ctx, "", user.ID)
	require.NoError(t, err)

	other, err := session.NewManager(nil, session.Config{Secret: "other-secret", TTL: time.Hour})
	require.NoError(t, err)
	_, err = other.Parse(token)
	assert.ErrorIs(t, err, session.ErrInvalidToken)

	for _, bad := range []string{"", "garbage", token + "x"} {
		resolved, err := m.Resolve(ctx, bad)
		require.NoError(t, err)
		assert.Nil(t, resolved, "token %q", bad)
	}
}

func TestResolveExpired(t *testing.T) {
	m, repo, user, c := setup(t)
	ctx := context.Background()

	sess, token, err := m.Login(ctx, "", user.ID)
	require.NoError(t, err)

	c.t = c.t.Add(2 * time.Hour)

	resolved, err := m.Resolve(ctx, token)
	require.NoError(t, err)
	assert.Nil(t, resolved)

	// the row is still there until purged; the token itself has expired
	_, err = repo.Get(ctx, sess.ID)
	require.NoError(t, err)

	n, err := m.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestSessionCreationPurgesExpiredRows(t *testing.T) {
	m, repo, user, c := setup(t)
	ctx := context.Background()

	stale, _, err := m.Anonymous(ctx)
	require.NoError(t, err)
	require.NoError(t, m.Flash(ctx, stale.ID, "Please log in to access this page."))

	c.t = c.t.Add(2 * time.Hour)

	fresh, _, err := m.Anonymous(ctx)
	require.NoError(t, err)

	_, err = repo.Get(ctx, stale.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = repo.Get(ctx, fresh.ID)
	require.NoError(t, err)

	// each later creation past the sweep interval sweeps again
	c.t = c.t.Add(2 * time.Hour)
	_, _, err = m.Login(ctx, "", user.ID)
	require.NoError(t, err)
	_, err = repo.Get(ctx, fresh.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestFlashes(t *testing.T) {
	m, _, _, _ := setup(t)
	ctx := context.Background()

	sess, _, err := m.Anonymous(ctx)
	require.NoError(t, err)

	require.NoError(t, m.Flash(ctx, sess.ID, "Registration successful! Please log in."))

	msgs, err := m.Flashes(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Registration successful! Please log in."}, msgs)

	msgs, err = m.Flashes(ctx, sess.ID)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	msgs, err = m.Flashes(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, msgs)
}
