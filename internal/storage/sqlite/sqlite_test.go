package sqlite

import (
	"path/filepath"
	"testing"

	"github.com/aanand-mishra/students-roster/internal/config"
	"github.com/aanand-mishra/students-roster/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, path string) *SQLite {
	t.Helper()
	cfg := &config.Config{Storage: config.Storage{Backend: config.BackendSQLite, Path: path}}
	s, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLite_LoadMissing(t *testing.T) {
	s := newTestStore(t, filepath.Join(t.TempDir(), "roster.db"))

	_, err := s.Load("students")
	assert.ErrorIs(t, err, storage.ErrKeyNotFound)
}

func TestSQLite_SaveOverwrites(t *testing.T) {
	s := newTestStore(t, filepath.Join(t.TempDir(), "roster.db"))

	require.NoError(t, s.Save(
		storage.Entry{Key: "students", Value: []byte(`[]`)},
		storage.Entry{Key: "studentIdCounter", Value: []byte("1")},
	))
	require.NoError(t, s.Save(storage.Entry{Key: "studentIdCounter", Value: []byte("7")}))

	got, err := s.Load("studentIdCounter")
	require.NoError(t, err)
	assert.Equal(t, "7", string(got))

	got, err = s.Load("students")
	require.NoError(t, err)
	assert.Equal(t, "[]", string(got))
}

func TestSQLite_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "roster.db")

	first := newTestStore(t, path)
	require.NoError(t, first.Save(storage.Entry{Key: "students", Value: []byte(`[{"id":1}]`)}))
	require.NoError(t, first.Close())

	second := newTestStore(t, path)
	got, err := second.Load("students")
	require.NoError(t, err)
	assert.Equal(t, `[{"id":1}]`, string(got))
}

func TestSQLite_SaveAfterCloseFails(t *testing.T) {
	s := newTestStore(t, filepath.Join(t.TempDir(), "roster.db"))
	require.NoError(t, s.Close())

	err := s.Save(storage.Entry{Key: "students", Value: []byte(`[]`)})
	assert.ErrorIs(t, err, storage.ErrSaveFailed)
}
