package settings

import (
	"context"
	"sync"
)

type StubStore struct {
	mu   sync.Mutex
	data map[string]string
}

func NewStubStore(initial map[string]string) *StubStore {
	data := map[string]string{}
	for k, v := range initial {
		data[k] = v
	}
	return &StubStore{data: data}
}

func (s *StubStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data[key], nil
}

func (s *StubStore) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

func (s *StubStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

func (s *StubStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = map[string]string{}
}
