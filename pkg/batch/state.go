package batch

import (
	"sort"
	"sync"
)

// Summary is the outcome of a run
type Summary struct {
	Successful int
	Attempted  int
	Skipped    int
	Failed     int
	// Paths of the files written in this run
	Paths []string
}

// State accumulates results from concurrent downloads
type State struct {
	mu      sync.Mutex
	summary Summary
}

func (s *State) attempted(n int) {
	s.mu.Lock()
	s.summary.Attempted += n
	s.mu.Unlock()
}

func (s *State) skipped() {
	s.mu.Lock()
	s.summary.Skipped++
	s.mu.Unlock()
}

func (s *State) failed() {
	s.mu.Lock()
	s.summary.Failed++
	s.mu.Unlock()
}

func (s *State) succeeded(path string) {
	s.mu.Lock()
	s.summary.Successful++
	s.summary.Paths = append(s.summary.Paths, path)
	s.mu.Unlock()
}

// Summary returns a copy of the current totals with paths sorted
func (s *State) Summary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.summary
	out.Paths = append([]string(nil), s.summary.Paths...)
	sort.Strings(out.Paths)
	return out
}
