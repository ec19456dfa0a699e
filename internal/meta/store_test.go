package meta

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/billylighter/telegrab/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "meta.json"))
	require.NoError(t, err)
	return s
}

func TestNewStoreRejectsNonJSONPath(t *testing.T) {
	_, err := NewStore(filepath.Join(t.TempDir(), "meta.txt"))
	require.Error(t, err)
	assert.True(t, IsStorageError(err))
}

func TestLoadMissingFileIsEmpty(t *testing.T) {
	s := newTestStore(t)

	records, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestLoadCorruptFileIsStorageError(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.WriteFile(s.Path(), []byte("not json"), 0o600))

	_, err := s.Load()
	require.Error(t, err)
	assert.True(t, IsStorageError(err))
}

func TestPutGetRoundTrip(t *testing.T) {
	s := newTestStore(t)

	want := model.Account{
		APIID:       111,
		APIHash:     "abc",
		DisplayName: "Alice",
		UserID:      1001,
	}
	require.NoError(t, s.Put("alice", want))

	got, ok, err := s.Get("alice")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want, got)

	// The file keys records by "<id>.session".
	records, err := s.Load()
	require.NoError(t, err)
	assert.Contains(t, records, "alice.session")
}

func TestUpdateCreatesAndMutates(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Put("alice", model.Account{APIID: 111, APIHash: "abc"}))

	require.NoError(t, s.Update("alice", func(acc *model.Account) {
		acc.Avatar = "/tmp/alice.png"
	}))

	got, ok, err := s.Get("alice")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 111, got.APIID)
	assert.Equal(t, "/tmp/alice.png", got.Avatar)
}

func TestDeleteMissingIsNoOp(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Put("alice", model.Account{APIID: 111}))

	_, existed, err := s.Delete("ghost")
	require.NoError(t, err)
	assert.False(t, existed)

	// The existing record is untouched.
	_, ok, err := s.Get("alice")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDeleteReturnsRemovedRecord(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Put("alice", model.Account{APIID: 111, Avatar: "/tmp/a.png"}))

	acc, existed, err := s.Delete("alice")
	require.NoError(t, err)
	require.True(t, existed)
	assert.Equal(t, "/tmp/a.png", acc.Avatar)

	_, ok, err := s.Get("alice")
	require.NoError(t, err)
	assert.False(t, ok)
}
