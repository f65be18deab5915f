package repository

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"palantir/internal/domain"
	"palantir/internal/errors"
	"palantir/internal/session"
	"palantir/internal/testutil"
)

// Unit Tests

func TestNewMySQLSessionRepository(t *testing.T) {
	db := &sql.DB{}
	repo := NewMySQLSessionRepository(db)

	assert.NotNil(t, repo)
	assert.Equal(t, db, repo.db)
}

// Integration Tests

func TestSessionRepository_SaveAndLoad(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SetupTestTables(t, db)
	defer testutil.CleanupTestDB(t, db)

	repo := NewMySQLSessionRepository(db)

	tokens := session.Tokens{Access: "acc-token", Refresh: "ref-token"}
	user := &domain.User{ID: 3, Username: "admin", Role: "admin"}

	err := repo.Save(context.Background(), tokens, user)
	require.NoError(t, err)

	loaded, loadedUser, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, tokens, loaded)
	require.NotNil(t, loadedUser)
	assert.Equal(t, "admin", loadedUser.Username)
	assert.Equal(t, "admin", loadedUser.Role)
}

func TestSessionRepository_SaveOverwritesPreviousSession(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SetupTestTables(t, db)
	defer testutil.CleanupTestDB(t, db)

	repo := NewMySQLSessionRepository(db)

	err := repo.Save(context.Background(), session.Tokens{Access: "first", Refresh: "r1"}, nil)
	require.NoError(t, err)

	err = repo.Save(context.Background(), session.Tokens{Access: "second", Refresh: "r2"}, nil)
	require.NoError(t, err)

	loaded, user, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "second", loaded.Access)
	assert.Equal(t, "r2", loaded.Refresh)
	assert.Nil(t, user)
}

func TestSessionRepository_Load_NoSession(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SetupTestTables(t, db)
	defer testutil.CleanupTestDB(t, db)

	repo := NewMySQLSessionRepository(db)

	_, _, err := repo.Load(context.Background())
	assert.Error(t, err)

	nfe, ok := errors.IsNotFoundError(err)
	assert.True(t, ok)
	assert.NotNil(t, nfe)
}

func TestSessionRepository_Delete(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SetupTestTables(t, db)
	defer testutil.CleanupTestDB(t, db)

	repo := NewMySQLSessionRepository(db)

	err := repo.Save(context.Background(), session.Tokens{Access: "a", Refresh: "r"}, nil)
	require.NoError(t, err)

	err = repo.Delete(context.Background())
	require.NoError(t, err)

	_, _, err = repo.Load(context.Background())
	_, ok := errors.IsNotFoundError(err)
	assert.True(t, ok)
}
