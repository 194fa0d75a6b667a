// Package ledger records which conversation interactions already triggered a
// successful place lookup, so each interaction is looked up at most once.
package ledger

import (
	"sort"
	"sync"
)

// Ledger is a set of interaction ids safe for concurrent use. Besides
// completed ids it tracks in-flight claims so a chain that is still waiting on
// its first response is not started twice.
type Ledger struct {
	mu       sync.Mutex
	done     map[string]struct{}
	inFlight map[string]uint64
	seq      uint64
}

// Claim is one chain's hold on an interaction. A claim goes stale once it is
// released or completed, or when the ledger is cleared.
type Claim struct {
	ID  string
	seq uint64
}

// New returns a ledger seeded with already completed ids.
func New(ids ...string) *Ledger {
	l := &Ledger{
		done:     make(map[string]struct{}, len(ids)),
		inFlight: make(map[string]uint64),
	}
	for _, id := range ids {
		if id != "" {
			l.done[id] = struct{}{}
		}
	}
	return l
}

// Contains reports whether id completed a lookup.
func (l *Ledger) Contains(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.done[id]
	return ok
}

// Add records id as completed. Adding an id twice is a no-op.
func (l *Ledger) Add(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.inFlight, id)
	l.done[id] = struct{}{}
}

// Claim marks id in flight. It returns false when id is already completed or
// claimed by another chain.
func (l *Ledger) Claim(id string) (Claim, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.done[id]; ok {
		return Claim{}, false
	}
	if _, ok := l.inFlight[id]; ok {
		return Claim{}, false
	}
	l.seq++
	l.inFlight[id] = l.seq
	return Claim{ID: id, seq: l.seq}, true
}

// Complete records c's id as completed if c still holds the in-flight marker.
// It reports whether the id was recorded.
func (l *Ledger) Complete(c Claim) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.holdsLocked(c) {
		return false
	}
	delete(l.inFlight, c.ID)
	l.done[c.ID] = struct{}{}
	return true
}

// Release drops c's in-flight marker without completing it. Stale claims are
// ignored.
func (l *Ledger) Release(c Claim) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.holdsLocked(c) {
		delete(l.inFlight, c.ID)
	}
}

func (l *Ledger) holdsLocked(c Claim) bool {
	seq, ok := l.inFlight[c.ID]
	return ok && c.seq != 0 && seq == c.seq
}

// Claimed reports whether id is completed or in flight.
func (l *Ledger) Claimed(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.done[id]; ok {
		return true
	}
	_, ok := l.inFlight[id]
	return ok
}

// Clear drops every completed id and in-flight claim.
func (l *Ledger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.done = make(map[string]struct{})
	l.inFlight = make(map[string]uint64)
}

// Len returns the number of completed ids.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.done)
}

// IDs returns the completed ids in sorted order.
func (l *Ledger) IDs() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	ids := make([]string, 0, len(l.done))
	for id := range l.done {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
