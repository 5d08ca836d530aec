package service_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"tasktracker/internal/repository/sqlite"
	"tasktracker/internal/service"
)

type fixture struct {
	db    *sql.DB
	users service.UserService
	tasks service.TaskService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "service.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, sqlite.Migrate(context.Background(), db, nil))

	return &fixture{
		db:    db,
		users: service.NewUserService(sqlite.NewUserRepository(db), bcrypt.MinCost),
		tasks: service.NewTaskService(sqlite.NewTaskRepository(db)),
	}
}
