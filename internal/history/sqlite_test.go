package history

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLite(t *testing.T) *SQLiteBackend {
	t.Helper()
	b, err := NewSQLite(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	require.NoError(t, b.Migrate(context.Background()))
	t.Cleanup(func() { b.Close() })
	return b
}

func TestSQLiteStore(t *testing.T) {
	t.Parallel()
	exerciseStore(t, newTestSQLite(t).Session("s1"))
}

func TestSQLiteSessionsAreIsolated(t *testing.T) {
	t.Parallel()

	b := newTestSQLite(t)
	ctx := context.Background()

	require.NoError(t, b.Session("a").Append(ctx, sampleRecords()[0]))
	require.NoError(t, b.Session("b").Append(ctx, sampleRecords()[1]))
	require.NoError(t, b.Session("b").Clear(ctx))

	a, err := b.Session("a").List(ctx)
	require.NoError(t, err)
	assert.Len(t, a, 1)

	other, err := b.Session("b").List(ctx)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestSQLiteAppendAll(t *testing.T) {
	t.Parallel()

	s := newTestSQLite(t).Session("import")
	ctx := context.Background()

	n, err := AppendAll(ctx, s, sampleRecords())
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	got, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Nil(t, got[2].BMI)
	assert.Equal(t, sampleRecords()[0].CreatedAt, got[0].CreatedAt)
}

func TestSQLiteMigrateIdempotent(t *testing.T) {
	t.Parallel()

	b := newTestSQLite(t)
	assert.NoError(t, b.Migrate(context.Background()))
}

func newMockSQLite(t *testing.T) (*SQLiteBackend, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &SQLiteBackend{db: db}, mock
}

func TestSQLiteAppendError(t *testing.T) {
	t.Parallel()

	b, mock := newMockSQLite(t)
	mock.ExpectExec(`INSERT INTO assessment_records`).
		WillReturnError(errors.New("database is locked"))

	err := b.Session("s1").Append(context.Background(), sampleRecords()[0])
	require.Error(t, err)
	assert.Contains(t, err.Error(), "append record for session s1")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLiteListErrors(t *testing.T) {
	t.Parallel()

	b, mock := newMockSQLite(t)
	mock.ExpectQuery(`SELECT created_at, tier`).
		WithArgs("s1").
		WillReturnError(errors.New("no such table"))

	_, err := b.Session("s1").List(context.Background())
	require.Error(t, err)

	rows := sqlmock.NewRows([]string{"created_at", "tier", "probability", "age", "weight_kg", "height_cm", "bmi"}).
		AddRow("yesterday", "Low", 0.1, 30, 70.0, 170.0, nil)
	mock.ExpectQuery(`SELECT created_at, tier`).
		WithArgs("s1").
		WillReturnRows(rows)

	_, err = b.Session("s1").List(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse created_at")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLiteClearError(t *testing.T) {
	t.Parallel()

	b, mock := newMockSQLite(t)
	mock.ExpectExec(`DELETE FROM assessment_records`).
		WithArgs("s1").
		WillReturnError(errors.New("readonly database"))

	err := b.Session("s1").Clear(context.Background())
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
