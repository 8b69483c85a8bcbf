package metadata

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ruteri/ida-persistence-engine/interfaces"
)

type fragmentKey struct {
	dataID         string
	fragmentNumber int
}

// MemoryStore keeps fragment metadata in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[fragmentKey]interfaces.FragmentMetadata
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[fragmentKey]interfaces.FragmentMetadata)}
}

func (s *MemoryStore) SaveFragmentMetadata(ctx context.Context, md interfaces.FragmentMetadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[fragmentKey{md.DataID, md.FragmentNumber}] = md
	return nil
}

func (s *MemoryStore) UpdateFragmentMetadata(ctx context.Context, md interfaces.FragmentMetadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := fragmentKey{md.DataID, md.FragmentNumber}
	if _, ok := s.records[key]; !ok {
		return fmt.Errorf("%w: %s", interfaces.ErrFragmentNotFound, md)
	}
	s.records[key] = md
	return nil
}

func (s *MemoryStore) GetAllFragmentMetadataForData(ctx context.Context, dataID string) ([]interfaces.FragmentMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := []interfaces.FragmentMetadata{}
	for key, md := range s.records {
		if key.dataID == dataID {
			records = append(records, md)
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].FragmentNumber < records[j].FragmentNumber })
	return records, nil
}

func (s *MemoryStore) GetFragmentMetadata(ctx context.Context, dataID string, fragmentNumber int) (interfaces.FragmentMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	md, ok := s.records[fragmentKey{dataID, fragmentNumber}]
	if !ok {
		return md, fmt.Errorf("%w: %q fragment %d", interfaces.ErrFragmentNotFound, dataID, fragmentNumber)
	}
	return md, nil
}

func (s *MemoryStore) DeleteFragmentMetadata(ctx context.Context, md interfaces.FragmentMetadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, fragmentKey{md.DataID, md.FragmentNumber})
	return nil
}

// Len returns the number of stored records.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// MemoryKeyStore keeps serialized encryption keys in process memory.
type MemoryKeyStore struct {
	mu   sync.RWMutex
	keys map[string]string
}

func NewMemoryKeyStore() *MemoryKeyStore {
	return &MemoryKeyStore{keys: make(map[string]string)}
}

func (s *MemoryKeyStore) SaveKey(ctx context.Context, dataID string, serializedKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[dataID] = serializedKey
	return nil
}

func (s *MemoryKeyStore) GetKey(ctx context.Context, dataID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key, ok := s.keys[dataID]
	if !ok {
		return "", fmt.Errorf("%w: %q", interfaces.ErrKeyNotFound, dataID)
	}
	return key, nil
}

func (s *MemoryKeyStore) DeleteKey(ctx context.Context, dataID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.keys, dataID)
	return nil
}

// Len returns the number of stored keys.
func (s *MemoryKeyStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.keys)
}
