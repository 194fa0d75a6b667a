package usecase

import (
	"context"
	"sync"

	"weather-agent/internal/domain"
)

// Feed delivers conversation events. Register functions return a func that
// removes the listener.
type Feed interface {
	OnHistoryChanged(fn func(turns []domain.ConversationTurn)) (remove func())
	OnStateChanged(fn func(state domain.ConnectionState)) (remove func())
}

// Attach subscribes the session to feed. The returned func detaches it.
func (s *Session) Attach(ctx context.Context, feed Feed) (detach func()) {
	removeHistory := feed.OnHistoryChanged(func(turns []domain.ConversationTurn) {
		s.OnHistoryChanged(ctx, turns)
	})
	removeState := feed.OnStateChanged(s.OnStateChanged)
	return func() {
		removeHistory()
		removeState()
	}
}

// MemoryFeed is an in-process Feed. Publish and SetState call listeners
// synchronously, in registration order.
type MemoryFeed struct {
	mu       sync.Mutex
	nextID   int
	history  map[int]func([]domain.ConversationTurn)
	states   map[int]func(domain.ConnectionState)
	turns    []domain.ConversationTurn
	lastSeen domain.ConnectionState
}

func NewMemoryFeed() *MemoryFeed {
	return &MemoryFeed{
		history:  make(map[int]func([]domain.ConversationTurn)),
		states:   make(map[int]func(domain.ConnectionState)),
		lastSeen: domain.StateDisconnected,
	}
}

func (f *MemoryFeed) OnHistoryChanged(fn func([]domain.ConversationTurn)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextID
	f.nextID++
	f.history[id] = fn
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.history, id)
	}
}

func (f *MemoryFeed) OnStateChanged(fn func(domain.ConnectionState)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextID
	f.nextID++
	f.states[id] = fn
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.states, id)
	}
}

// Append adds turns to the history and notifies listeners with the full history.
func (f *MemoryFeed) Append(turns ...domain.ConversationTurn) {
	f.mu.Lock()
	f.turns = append(f.turns, turns...)
	snapshot := append([]domain.ConversationTurn(nil), f.turns...)
	listeners := make([]func([]domain.ConversationTurn), 0, len(f.history))
	for id := 0; id < f.nextID; id++ {
		if fn, ok := f.history[id]; ok {
			listeners = append(listeners, fn)
		}
	}
	f.mu.Unlock()

	for _, fn := range listeners {
		fn(snapshot)
	}
}

// SetState records a connection state change. Connected also drops the history.
func (f *MemoryFeed) SetState(state domain.ConnectionState) {
	f.mu.Lock()
	f.lastSeen = state
	if state == domain.StateConnected {
		f.turns = nil
	}
	listeners := make([]func(domain.ConnectionState), 0, len(f.states))
	for id := 0; id < f.nextID; id++ {
		if fn, ok := f.states[id]; ok {
			listeners = append(listeners, fn)
		}
	}
	f.mu.Unlock()

	for _, fn := range listeners {
		fn(state)
	}
}

// State returns the last connection state.
func (f *MemoryFeed) State() domain.ConnectionState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastSeen
}
