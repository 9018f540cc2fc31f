package memstore

import (
	"sync"

	"github.com/jrsteele09/go-classroom-client/storage"
)

var _ storage.Store = (*MemStore)(nil)

type MemStore struct {
	values map[string]string
	lock   sync.RWMutex
}

func New() *MemStore {
	return &MemStore{values: make(map[string]string)}
}

// NewWithValues returns a store pre-populated with values, handy for
// simulating a session persisted by a previous run.
func NewWithValues(values map[string]string) *MemStore {
	s := New()
	for k, v := range values {
		s.values[k] = v
	}
	return s
}

func (s *MemStore) Get(key string) (string, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	value, ok := s.values[key]
	if !ok {
		return "", storage.ErrNotFound
	}
	return value, nil
}

func (s *MemStore) Set(key, value string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.values[key] = value
	return nil
}

func (s *MemStore) Delete(keys ...string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	for _, k := range keys {
		delete(s.values, k)
	}
	return nil
}

// Len reports the number of stored keys.
func (s *MemStore) Len() int {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return len(s.values)
}
