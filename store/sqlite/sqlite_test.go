package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/mizan/store"
	"github.com/hupe1980/mizan/store/storetest"
)

func TestStore_InMemory(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		s, err := New(":memory:")
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestStore_FilePersistsAcrossOpen(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "mizan.db")
	ctx := context.Background()
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	s, err := New(dsn)
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, storetest.SampleResult("run-1", "task-a", start)))
	require.NoError(t, s.Close())

	s, err = New(dsn)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Get(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "echo:bye", got.Turns[1].Response)
	assert.Equal(t, map[string]float64{"exact": 1}, got.Turns[1].Scores)
}

func TestStore_SaveRollsBackOnTurnFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	mock.ExpectExec("PRAGMA foreign_keys = ON").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS runs").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM turns WHERE run_id").WithArgs("run-1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT OR REPLACE INTO runs").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO turns").WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	s, err := NewWithDB(db)
	require.NoError(t, err)

	err = s.Save(context.Background(), storetest.SampleResult("run-1", "task-a", time.Now()))
	assert.ErrorContains(t, err, "disk full")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_SchemaFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("PRAGMA foreign_keys = ON").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS runs").WillReturnError(errors.New("read-only"))

	_, err = NewWithDB(db)
	assert.ErrorContains(t, err, "failed to create schema")
}
