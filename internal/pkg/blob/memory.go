package blob

import (
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"
)

// Memory is an in-process Store, used by the memory driver and in tests.
type Memory struct {
	mu      sync.RWMutex
	objects map[string][]byte

	// PutErr and GetErr, when set, are returned by Put and Get.
	PutErr error
	GetErr error
}

func NewMemory() *Memory {
	return &Memory{objects: make(map[string][]byte)}
}

func (m *Memory) Put(_ context.Context, key string, data []byte, _ string) error {
	if m.PutErr != nil {
		return m.PutErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = append([]byte(nil), data...)
	return nil
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.objects[key]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "memory object %q", key)
	}
	return append([]byte(nil), b...), nil
}

func (m *Memory) Remove(_ context.Context, keys []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.objects, k)
	}
	return nil
}

// Keys returns the stored keys sorted.
func (m *Memory) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
