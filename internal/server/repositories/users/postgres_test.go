package users

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/contactbook/internal/common"
	"github.com/dmitrijs2005/contactbook/internal/server/models"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	insertQuery     = `(?s)^INSERT\s+INTO\s+users\s*\(id,\s*username,\s*email,\s*hashed_password,\s*confirmed\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4,\s*\$5\)\s*RETURNING\s+created_at\s*$`
	byEmailQuery    = `(?s)^SELECT\s+id,\s*username,\s*email,\s*hashed_password,\s*confirmed,\s*created_at\s+FROM\s+users\s+WHERE\s+email\s*=\s*\$1\s*$`
	byUsernameQuery = `(?s)^SELECT\s+id,\s*username,\s*email,\s*hashed_password,\s*confirmed,\s*created_at\s+FROM\s+users\s+WHERE\s+username\s*=\s*\$1\s*$`
	confirmQuery    = `(?s)^UPDATE\s+users\s+SET\s+confirmed\s*=\s*TRUE\s+WHERE\s+email\s*=\s*\$1\s+AND\s+confirmed\s*=\s*FALSE\s*$`
)

var userColumns = []string{"id", "username", "email", "hashed_password", "confirmed", "created_at"}

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresRepository(db), mock, db
}

func TestCreate_Success(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	created := time.Date(2025, 4, 13, 19, 45, 0, 0, time.UTC)
	mock.ExpectQuery(insertQuery).
		WithArgs(sqlmock.AnyArg(), "alice", "alice@example.com", "hash", false).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(created))

	u := &models.User{UserName: "alice", Email: "alice@example.com", HashedPassword: "hash"}
	got, err := repo.Create(context.Background(), u)
	require.NoError(t, err)

	assert.NotEmpty(t, got.ID)
	assert.Len(t, got.ID, 36)
	assert.Equal(t, created, got.CreatedAt)
	assert.False(t, got.Confirmed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_KeepsProvidedID(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectQuery(insertQuery).
		WithArgs("u-1", "alice", "alice@example.com", "hash", false).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))

	got, err := repo.Create(context.Background(), &models.User{ID: "u-1", UserName: "alice", Email: "alice@example.com", HashedPassword: "hash"})
	require.NoError(t, err)
	assert.Equal(t, "u-1", got.ID)
}

func TestCreate_UniqueViolation(t *testing.T) {
	tests := []struct {
		constraint string
		field      string
	}{
		{"users_email_key", "email"},
		{"users_username_key", "username"},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			repo, mock, _ := newRepoWithMock(t)

			mock.ExpectQuery(insertQuery).
				WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: tt.constraint})

			_, err := repo.Create(context.Background(), &models.User{UserName: "alice", Email: "alice@example.com", HashedPassword: "h"})
			require.Error(t, err)
			assert.True(t, errors.Is(err, common.ErrUniqueViolation))

			var uv *common.UniqueViolationError
			require.True(t, errors.As(err, &uv))
			assert.Equal(t, tt.field, uv.Field)
			assert.Equal(t, tt.constraint, uv.Constraint)
		})
	}
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectQuery(insertQuery).WillReturnError(errors.New("db down"))

	_, err := repo.Create(context.Background(), &models.User{UserName: "alice", Email: "a@b.c", HashedPassword: "h"})
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
	assert.False(t, errors.Is(err, common.ErrUniqueViolation))
}

func TestGetByEmail_Found(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	created := time.Now().UTC()
	mock.ExpectQuery(byEmailQuery).
		WithArgs("alice@example.com").
		WillReturnRows(sqlmock.NewRows(userColumns).AddRow("u-1", "alice", "alice@example.com", "hash", true, created))

	got, err := repo.GetByEmail(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, &models.User{ID: "u-1", UserName: "alice", Email: "alice@example.com", HashedPassword: "hash", Confirmed: true, CreatedAt: created}, got)
}

func TestGetByEmail_NotFound(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectQuery(byEmailQuery).WithArgs("ghost@example.com").WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByEmail(context.Background(), "ghost@example.com")
	assert.True(t, errors.Is(err, common.ErrorNotFound))
}

func TestGetByUsername_Found(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectQuery(byUsernameQuery).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows(userColumns).AddRow("u-1", "alice", "alice@example.com", "hash", false, time.Now()))

	got, err := repo.GetByUsername(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "u-1", got.ID)
	assert.False(t, got.Confirmed)
}

func TestGetByUsername_NotFoundAndDBError(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectQuery(byUsernameQuery).WithArgs("ghost").WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(byUsernameQuery).WithArgs("alice").WillReturnError(errors.New("db err"))

	_, err := repo.GetByUsername(context.Background(), "ghost")
	assert.True(t, errors.Is(err, common.ErrorNotFound))

	_, err = repo.GetByUsername(context.Background(), "alice")
	if err == nil || !regexp.MustCompile(`db error: .*db err`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestMarkConfirmed_Idempotent(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectExec(confirmQuery).WithArgs("alice@example.com").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(confirmQuery).WithArgs("alice@example.com").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.MarkConfirmed(context.Background(), "alice@example.com"))
	require.NoError(t, repo.MarkConfirmed(context.Background(), "alice@example.com"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkConfirmed_DBError(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectExec(confirmQuery).WillReturnError(errors.New("db err"))

	err := repo.MarkConfirmed(context.Background(), "alice@example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db error")
}
