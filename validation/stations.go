package validation

import "sync"

// Factory builds a station for an operator brand.
type Factory func(brand string) *Station

// Stations hands out the station for the signed-in brand. A device serves one
// operator at a time, so a brand change replaces the station and drops any
// pending result.
type Stations struct {
	build Factory

	mu      sync.Mutex
	current *Station
}

func NewStations(build Factory) *Stations {
	return &Stations{build: build}
}

// For returns the station for brand, building a new one when the brand changed.
func (s *Stations) For(brand string) *Station {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil || s.current.Brand() != brand {
		s.current = s.build(brand)
	}
	return s.current
}

// Drop forgets the current station, e.g. on sign-out.
func (s *Stations) Drop() {
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()
}
