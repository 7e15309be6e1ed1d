package memory

import (
	"errors"
	"testing"

	"github.com/aanand-mishra/students-roster/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_LoadMissing(t *testing.T) {
	_, err := New().Load("students")
	assert.ErrorIs(t, err, storage.ErrKeyNotFound)
}

func TestMemory_SaveLoad(t *testing.T) {
	m := New()
	require.NoError(t, m.Save(
		storage.Entry{Key: "students", Value: []byte("[]")},
		storage.Entry{Key: "studentIdCounter", Value: []byte("1")},
	))

	got, err := m.Load("students")
	require.NoError(t, err)
	assert.Equal(t, "[]", string(got))

	got, err = m.Load("studentIdCounter")
	require.NoError(t, err)
	assert.Equal(t, "1", string(got))
}

func TestMemory_ValuesAreCopied(t *testing.T) {
	m := New()
	value := []byte("abc")
	require.NoError(t, m.Save(storage.Entry{Key: "k", Value: value}))
	value[0] = 'z'

	got, err := m.Load("k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))

	got[0] = 'y'
	again, _ := m.Load("k")
	assert.Equal(t, "abc", string(again))
}

func TestMemory_FailSave(t *testing.T) {
	m := New()
	m.FailSave = errors.New("quota exceeded")

	err := m.Save(storage.Entry{Key: "k", Value: []byte("v")})
	assert.EqualError(t, err, "quota exceeded")

	_, err = m.Load("k")
	assert.ErrorIs(t, err, storage.ErrKeyNotFound)
}
