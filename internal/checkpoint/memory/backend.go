// Package memory keeps checkpoint objects in-memory for tests and dry runs.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/JakeFAU/wayback-journey/internal/checkpoint"
)

// Backend stores objects in a map guarded by a RWMutex.
type Backend struct {
	mu     sync.RWMutex
	data   map[string][]byte
	writes int
}

// New creates an empty Backend.
func New() *Backend {
	return &Backend{data: make(map[string][]byte)}
}

// Read returns a copy of the stored object.
func (b *Backend) Read(_ context.Context, name string) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	data, ok := b.data[name]
	if !ok {
		return nil, checkpoint.ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

// Write replaces the object under name.
func (b *Backend) Write(_ context.Context, name string, data []byte) error {
	cp := append([]byte(nil), data...)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data[name] = cp
	b.writes++
	return nil
}

// Exists reports whether name is stored.
func (b *Backend) Exists(_ context.Context, name string) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.data[name]
	return ok, nil
}

// List returns the names under prefix in ascending order.
func (b *Backend) List(_ context.Context, prefix string) ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []string
	for name := range b.data {
		if strings.HasPrefix(name, prefix) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out, nil
}

// DeletePrefix removes every object under prefix.
func (b *Backend) DeletePrefix(_ context.Context, prefix string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for name := range b.data {
		if strings.HasPrefix(name, prefix) {
			delete(b.data, name)
		}
	}
	return nil
}

// Writes returns how many writes the backend has accepted.
func (b *Backend) Writes() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.writes
}

// Snapshot returns a deep copy of every stored object.
func (b *Backend) Snapshot() map[string][]byte {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[string][]byte, len(b.data))
	for k, v := range b.data {
		out[k] = append([]byte(nil), v...)
	}
	return out
}
