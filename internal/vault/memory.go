package vault

import (
	"context"
	"sync"
)

// MemoryVault keeps archives in memory. Used in tests and for the "memory"
// archive type.
type MemoryVault struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func NewMemoryVault() *MemoryVault {
	return &MemoryVault{objects: make(map[string][]byte)}
}

func (v *MemoryVault) Archive(_ context.Context, name string, data []byte) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.objects[name] = append([]byte(nil), data...)
	return nil
}

// Get returns a stored object.
func (v *MemoryVault) Get(name string) ([]byte, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	data, ok := v.objects[name]
	return data, ok
}

// Len reports the number of stored objects.
func (v *MemoryVault) Len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.objects)
}
