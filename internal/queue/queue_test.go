package queue_test

import (
	"testing"
	"time"

	"github.com/mavh/rallyrank/internal/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddToBackPreservesFIFOOrder(t *testing.T) {
	q := queue.New()

	users := []string{"alice", "bob", "carol", "dave"}
	for _, u := range users {
		_, err := q.AddToBack(u)
		require.NoError(t, err)
	}

	all := q.All()
	require.Len(t, all, len(users))
	for i, u := range users {
		assert.Equal(t, u, all[i].UserID)
	}
}

func TestAddToFrontTakesPriority(t *testing.T) {
	q := queue.New()

	_, err := q.AddToBack("alice")
	require.NoError(t, err)
	_, err = q.AddToBack("bob")
	require.NoError(t, err)

	_, err = q.AddToFront("carol")
	require.NoError(t, err)

	assert.Equal(t, 1, q.Position("carol"))
	assert.Equal(t, 2, q.Position("alice"))
	assert.Equal(t, 3, q.Position("bob"))
}

func TestDuplicateInsertsAreRejected(t *testing.T) {
	q := queue.New()

	_, err := q.AddToBack("alice")
	require.NoError(t, err)

	_, err = q.AddToBack("alice")
	assert.ErrorIs(t, err, queue.ErrDuplicateEntry)

	_, err = q.AddToFront("alice")
	assert.ErrorIs(t, err, queue.ErrDuplicateEntry)

	// The failed inserts must not have mutated the queue.
	assert.Equal(t, 1, q.Size())
	assert.Equal(t, 1, q.Position("alice"))
}

func TestRemove(t *testing.T) {
	q := queue.New()

	_, err := q.AddToBack("alice")
	require.NoError(t, err)
	_, err = q.AddToBack("bob")
	require.NoError(t, err)

	assert.True(t, q.Remove("alice"))
	assert.False(t, q.Remove("alice"))
	assert.Equal(t, 1, q.Size())
	assert.Equal(t, 1, q.Position("bob"))

	// Removed users can rejoin.
	_, err = q.AddToBack("alice")
	require.NoError(t, err)
	assert.Equal(t, 2, q.Position("alice"))
}

func TestNOldest(t *testing.T) {
	q := queue.New()

	for _, u := range []string{"alice", "bob", "carol"} {
		_, err := q.AddToBack(u)
		require.NoError(t, err)
	}

	oldest := q.NOldest(2)
	require.Len(t, oldest, 2)
	assert.Equal(t, "alice", oldest[0].UserID)
	assert.Equal(t, "bob", oldest[1].UserID)

	// Asking for more than the queue holds returns what there is.
	oldest = q.NOldest(10)
	assert.Len(t, oldest, 3)
}

func TestPositionSentinel(t *testing.T) {
	q := queue.New()
	assert.Equal(t, queue.PositionNotFound, q.Position("ghost"))
}

func TestRemoveStale(t *testing.T) {
	q := queue.New()

	stale, err := q.AddToBack("alice")
	require.NoError(t, err)
	stale.JoinedAt = time.Now().Add(-20 * time.Minute)

	_, err = q.AddToBack("bob")
	require.NoError(t, err)

	removed := q.RemoveStale(time.Now().Add(-10 * time.Minute))
	require.Len(t, removed, 1)
	assert.Equal(t, "alice", removed[0].UserID)
	assert.Equal(t, 1, q.Size())
	assert.False(t, q.Contains("alice"))
	assert.True(t, q.Contains("bob"))
}

func TestTouchUpdatesHeartbeat(t *testing.T) {
	q := queue.New()

	entry, err := q.AddToBack("alice")
	require.NoError(t, err)
	entry.LastActive = time.Now().Add(-time.Minute)
	before := entry.LastActive

	assert.True(t, q.Touch("alice"))
	assert.True(t, entry.LastActive.After(before))

	assert.False(t, q.Touch("ghost"))
}

func TestClearAndDefensiveCopy(t *testing.T) {
	q := queue.New()

	_, err := q.AddToBack("alice")
	require.NoError(t, err)

	all := q.All()
	all[0].UserID = "mallory"
	assert.Equal(t, 1, q.Position("alice"))

	q.Clear()
	assert.Equal(t, 0, q.Size())
	assert.Empty(t, q.All())
}
