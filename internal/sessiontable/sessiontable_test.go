package sessiontable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAssignsNonZeroIDs(t *testing.T) {
	tbl := New(2)
	s1, err := tbl.Create(nil)
	require.NoError(t, err)
	assert.NotZero(t, s1.ID)
	assert.Equal(t, GotSessionID, s1.State)

	s2, err := tbl.Create(nil)
	require.NoError(t, err)
	assert.NotEqual(t, s1.ID, s2.ID)
}

func TestCreateFailsAtCapacity(t *testing.T) {
	tbl := New(1)
	_, err := tbl.Create(nil)
	require.NoError(t, err)

	_, err = tbl.Create(nil)
	assert.ErrorIs(t, err, ErrTooManyConnections)
}

func TestLookupAndRemove(t *testing.T) {
	tbl := New(2)
	s, err := tbl.Create(nil)
	require.NoError(t, err)

	found, ok := tbl.Lookup(s.ID)
	require.True(t, ok)
	assert.Equal(t, s, found)

	tbl.Remove(s.ID)
	_, ok = tbl.Lookup(s.ID)
	assert.False(t, ok)
}

func TestMarkConnectedTransition(t *testing.T) {
	tbl := New(1)
	s, err := tbl.Create(nil)
	require.NoError(t, err)
	assert.Equal(t, GotSessionID, s.State)

	tbl.MarkConnected(s.ID)
	assert.Equal(t, Connected, s.State)

	// A second call is a no-op, not a panic or regression to GotSessionID.
	tbl.MarkConnected(s.ID)
	assert.Equal(t, Connected, s.State)
}

func TestRemoveBySocket(t *testing.T) {
	tbl := New(2)
	sock := new(int)
	s, err := tbl.Create(sock)
	require.NoError(t, err)

	tbl.RemoveBySocket(sock)
	_, ok := tbl.Lookup(s.ID)
	assert.False(t, ok)
}

func TestSize(t *testing.T) {
	tbl := New(3)
	assert.Equal(t, 0, tbl.Size())
	_, err := tbl.Create(nil)
	require.NoError(t, err)
	assert.Equal(t, 1, tbl.Size())
}
