package dataset

import (
	"sync"
	"sync/atomic"
	"time"
)

// Store provides thread-safe access to the current dataset.
type Store struct {
	current atomic.Pointer[Loaded]
	mu      sync.Mutex // serializes reloads
}

// NewStore creates a new empty Store.
func NewStore() *Store {
	return &Store{}
}

// Get returns the current dataset, or nil if none has been loaded.
func (s *Store) Get() *Loaded {
	return s.current.Load()
}

// Set atomically replaces the current dataset.
func (s *Store) Set(l *Loaded) {
	s.current.Store(l)
}

// Ready reports whether a dataset is loaded.
func (s *Store) Ready() bool {
	return s.current.Load() != nil
}

// AgeSeconds returns the age of the current dataset in seconds.
// Returns -1 if no dataset is loaded.
func (s *Store) AgeSeconds() float64 {
	l := s.current.Load()
	if l == nil {
		return -1
	}
	return time.Since(l.LoadedAt).Seconds()
}

// Reload loads path, or the embedded dataset when path is empty, and swaps
// it in. On error the current dataset is kept.
func (s *Store) Reload(path string) (*Loaded, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		l   *Loaded
		err error
	)
	if path == "" {
		l, err = Default()
	} else {
		l, err = LoadFile(path)
	}
	if err != nil {
		return nil, err
	}
	s.current.Store(l)
	return l, nil
}
