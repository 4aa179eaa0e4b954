package queue

import (
	"errors"
	"time"
)

// ErrDuplicateEntry is returned when a user is inserted into a queue that
// already contains them.
var ErrDuplicateEntry = errors.New("user is already in the queue")

// PositionNotFound is the sentinel returned by Position for unknown users.
const PositionNotFound = -1

// Entry is a single waiting player. Front of the queue is the oldest (or
// priority re-inserted) entry.
type Entry struct {
	UserID     string
	JoinedAt   time.Time
	LastActive time.Time
}

// PairingQueue is an ordered collection of waiting players with O(1)
// membership checks. It performs no synchronization of its own; the owning
// service serializes all mutations (pairing removes two entries and must
// never observe a player twice).
type PairingQueue struct {
	entries []*Entry
	members map[string]struct{}
}

// New creates an empty pairing queue.
func New() *PairingQueue {
	return &PairingQueue{
		members: make(map[string]struct{}),
	}
}

// AddToBack appends a user to the end of the queue.
func (q *PairingQueue) AddToBack(userID string) (*Entry, error) {
	if _, ok := q.members[userID]; ok {
		return nil, ErrDuplicateEntry
	}
	now := time.Now()
	entry := &Entry{UserID: userID, JoinedAt: now, LastActive: now}
	q.entries = append(q.entries, entry)
	q.members[userID] = struct{}{}
	return entry, nil
}

// AddToFront prepends a user. Used exclusively for priority return after an
// opponent failed to acknowledge a match.
func (q *PairingQueue) AddToFront(userID string) (*Entry, error) {
	if _, ok := q.members[userID]; ok {
		return nil, ErrDuplicateEntry
	}
	now := time.Now()
	entry := &Entry{UserID: userID, JoinedAt: now, LastActive: now}
	q.entries = append([]*Entry{entry}, q.entries...)
	q.members[userID] = struct{}{}
	return entry, nil
}

// Remove deletes a user from the queue. Returns false if they were not in it.
func (q *PairingQueue) Remove(userID string) bool {
	if _, ok := q.members[userID]; !ok {
		return false
	}
	for i, e := range q.entries {
		if e.UserID == userID {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			break
		}
	}
	delete(q.members, userID)
	return true
}

// Contains reports whether the user is currently queued.
func (q *PairingQueue) Contains(userID string) bool {
	_, ok := q.members[userID]
	return ok
}

// NOldest returns the first n entries in queue order (front = oldest).
// Returns fewer if the queue is smaller than n.
func (q *PairingQueue) NOldest(n int) []*Entry {
	if n > len(q.entries) {
		n = len(q.entries)
	}
	oldest := make([]*Entry, n)
	copy(oldest, q.entries[:n])
	return oldest
}

// Position returns the 1-indexed position of a user, or PositionNotFound.
func (q *PairingQueue) Position(userID string) int {
	if _, ok := q.members[userID]; !ok {
		return PositionNotFound
	}
	for i, e := range q.entries {
		if e.UserID == userID {
			return i + 1
		}
	}
	return PositionNotFound
}

// Touch updates a user's activity heartbeat. Returns false if they are not
// queued.
func (q *PairingQueue) Touch(userID string) bool {
	if _, ok := q.members[userID]; !ok {
		return false
	}
	for _, e := range q.entries {
		if e.UserID == userID {
			e.LastActive = time.Now()
			return true
		}
	}
	return false
}

// RemoveStale evicts every entry that joined before the cutoff and returns
// the removed entries.
func (q *PairingQueue) RemoveStale(cutoff time.Time) []*Entry {
	var removed []*Entry
	kept := q.entries[:0]
	for _, e := range q.entries {
		if e.JoinedAt.Before(cutoff) {
			removed = append(removed, e)
			delete(q.members, e.UserID)
		} else {
			kept = append(kept, e)
		}
	}
	q.entries = kept
	return removed
}

// Clear empties the queue.
func (q *PairingQueue) Clear() {
	q.entries = nil
	q.members = make(map[string]struct{})
}

// Size returns the number of queued players.
func (q *PairingQueue) Size() int {
	return len(q.entries)
}

// All returns a defensive copy of the queue in order.
func (q *PairingQueue) All() []Entry {
	all := make([]Entry, len(q.entries))
	for i, e := range q.entries {
		all[i] = *e
	}
	return all
}
