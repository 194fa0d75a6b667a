// Package sink holds the latest weather lookup result for display.
package sink

import (
	"sync"

	"weather-agent/internal/domain"
)

// Sink holds the latest resolved place name and short forecast.
// Writes are last-writer-wins; no history is kept.
type Sink struct {
	mu       sync.RWMutex
	location string
	forecast string
	onChange func(domain.Result)
}

// New returns a Sink seeded with a previous result.
func New(initial domain.Result) *Sink {
	return &Sink{location: initial.Location, forecast: initial.Forecast}
}

// OnChange registers fn to be called with the new snapshot after every write.
// fn runs on the writer's goroutine.
func (s *Sink) OnChange(fn func(domain.Result)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}

// SetLocation replaces the place name.
func (s *Sink) SetLocation(name string) {
	s.mu.Lock()
	s.location = name
	snap, fn := s.snapshotLocked(), s.onChange
	s.mu.Unlock()
	if fn != nil {
		fn(snap)
	}
}

// SetForecast replaces the short forecast.
func (s *Sink) SetForecast(text string) {
	s.mu.Lock()
	s.forecast = text
	snap, fn := s.snapshotLocked(), s.onChange
	s.mu.Unlock()
	if fn != nil {
		fn(snap)
	}
}

func (s *Sink) Location() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.location
}

func (s *Sink) Forecast() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.forecast
}

// Snapshot returns both fields read under one lock.
func (s *Sink) Snapshot() domain.Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Sink) snapshotLocked() domain.Result {
	return domain.Result{Location: s.location, Forecast: s.forecast}
}
