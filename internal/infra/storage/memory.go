package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"firma/internal/domain"
)

type object struct {
	data        []byte
	contentType string
}

// Memory is the in-process store used in tests and local runs.
type Memory struct {
	mu      sync.RWMutex
	objects map[string]object
}

func NewMemory() *Memory {
	return &Memory{objects: make(map[string]object)}
}

func (s *Memory) Put(_ context.Context, path string, data []byte, contentType string) (string, error) {
	cp := make([]byte, len(data))
	copy(cp, data)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[path] = object{data: cp, contentType: contentType}
	return path, nil
}

func (s *Memory) Get(_ context.Context, path string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[path]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := make([]byte, len(obj.data))
	copy(cp, obj.data)
	return cp, nil
}

func (s *Memory) SignedURL(_ context.Context, path string, ttl time.Duration) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.objects[path]; !ok {
		return "", domain.ErrNotFound
	}
	return fmt.Sprintf("memory://%s?ttl=%d", path, int(ttl.Seconds())), nil
}

var _ domain.ObjectStore = (*Memory)(nil)
