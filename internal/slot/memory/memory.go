package memory

import (
	"context"
	"sync"

	"kharcha/internal/slot"
)

var _ slot.Slot = (*Store)(nil)

// Store keeps slot values in process memory. Nothing survives a restart.
type Store struct {
	mu     sync.Mutex
	values map[string][]byte

	// PutErr, when set, is returned by every Put without storing anything.
	PutErr error
}

func New() *Store {
	return &Store{values: make(map[string][]byte)}
}

// NewWith seeds the store with an initial value for key.
func NewWith(key string, value []byte) *Store {
	s := New()
	s.values[key] = append([]byte(nil), value...)
	return s
}

func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	if !ok {
		return nil, slot.ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (s *Store) Put(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.PutErr != nil {
		return s.PutErr
	}
	s.values[key] = append([]byte(nil), value...)
	return nil
}
