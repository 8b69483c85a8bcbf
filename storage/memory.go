package storage

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"github.com/ruteri/ida-persistence-engine/interfaces"
)

// MemoryRepository keeps fragments in process memory.
type MemoryRepository struct {
	locationURI string

	mu      sync.RWMutex
	objects map[string][]byte
}

// NewMemoryRepository creates an empty repository identified by locationURI.
func NewMemoryRepository(locationURI string) *MemoryRepository {
	return &MemoryRepository{
		locationURI: locationURI,
		objects:     make(map[string][]byte),
	}
}

func (r *MemoryRepository) Location() string { return r.locationURI }

// SaveFragment stores a copy of data under name.
func (r *MemoryRepository) SaveFragment(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return interfaces.NewRepositoryError("SaveFragment", r.locationURI, "cancelled", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.objects[name] = bytes.Clone(data)
	return nil
}

// LoadFragment returns a copy of the stored fragment.
func (r *MemoryRepository) LoadFragment(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, interfaces.NewRepositoryError("LoadFragment", r.locationURI, "cancelled", err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	data, ok := r.objects[name]
	if !ok {
		return nil, interfaces.NewRepositoryError("LoadFragment", r.locationURI,
			fmt.Sprintf("no fragment %q", name), interfaces.ErrFragmentNotFound)
	}
	if data == nil {
		return []byte{}, nil
	}
	return bytes.Clone(data), nil
}

// DeleteFragment removes the fragment, reporting whether it existed.
func (r *MemoryRepository) DeleteFragment(ctx context.Context, name string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, interfaces.NewRepositoryError("DeleteFragment", r.locationURI, "cancelled", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.objects[name]
	delete(r.objects, name)
	return ok, nil
}

// Names returns the names of the stored fragments.
func (r *MemoryRepository) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.objects))
	for name := range r.objects {
		names = append(names, name)
	}
	return names
}

// Objects returns a copy of every stored fragment, keyed by name.
func (r *MemoryRepository) Objects() map[string][]byte {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string][]byte, len(r.objects))
	for name, data := range r.objects {
		out[name] = bytes.Clone(data)
	}
	return out
}
