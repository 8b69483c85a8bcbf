package persistence

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/ruteri/ida-persistence-engine/executor"
	"github.com/ruteri/ida-persistence-engine/ida"
	"github.com/ruteri/ida-persistence-engine/interfaces"
	"github.com/ruteri/ida-persistence-engine/metadata"
	"github.com/ruteri/ida-persistence-engine/storage"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// faultyRepository is a memory repository with injectable failures.
type faultyRepository struct {
	*storage.MemoryRepository

	mu         sync.Mutex
	failSave   error
	failLoad   error
	failDelete error
	panicLoad  bool
	blockLoad  bool

	saves   atomic.Int32
	loads   atomic.Int32
	deletes atomic.Int32
}

func newFaultyRepository(location string) *faultyRepository {
	return &faultyRepository{MemoryRepository: storage.NewMemoryRepository(location)}
}

func (r *faultyRepository) set(fn func(r *faultyRepository)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(r)
}

func (r *faultyRepository) SaveFragment(ctx context.Context, name string, data []byte) error {
	r.saves.Inc()
	r.mu.Lock()
	err := r.failSave
	r.mu.Unlock()
	if err != nil {
		return interfaces.NewRepositoryError("SaveFragment", r.Location(), "injected", err)
	}
	return r.MemoryRepository.SaveFragment(ctx, name, data)
}

func (r *faultyRepository) LoadFragment(ctx context.Context, name string) ([]byte, error) {
	r.loads.Inc()
	r.mu.Lock()
	err, panics, blocks := r.failLoad, r.panicLoad, r.blockLoad
	r.mu.Unlock()

	if panics {
		panic("injected load panic")
	}
	if blocks {
		<-ctx.Done()
		return nil, interfaces.NewRepositoryError("LoadFragment", r.Location(), "cancelled", ctx.Err())
	}
	if err != nil {
		return nil, interfaces.NewRepositoryError("LoadFragment", r.Location(), "injected", err)
	}
	return r.MemoryRepository.LoadFragment(ctx, name)
}

func (r *faultyRepository) DeleteFragment(ctx context.Context, name string) (bool, error) {
	r.deletes.Inc()
	r.mu.Lock()
	err := r.failDelete
	r.mu.Unlock()
	if err != nil {
		return false, interfaces.NewRepositoryError("DeleteFragment", r.Location(), "injected", err)
	}
	return r.MemoryRepository.DeleteFragment(ctx, name)
}

// faultyMetadataStore fails metadata saves of selected fragment numbers.
type faultyMetadataStore struct {
	*metadata.MemoryStore

	mu           sync.Mutex
	failSaveOf   map[int]error
	failListWith error
}

func newFaultyMetadataStore() *faultyMetadataStore {
	return &faultyMetadataStore{MemoryStore: metadata.NewMemoryStore(), failSaveOf: map[int]error{}}
}

func (s *faultyMetadataStore) SaveFragmentMetadata(ctx context.Context, md interfaces.FragmentMetadata) error {
	s.mu.Lock()
	err := s.failSaveOf[md.FragmentNumber]
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.MemoryStore.SaveFragmentMetadata(ctx, md)
}

func (s *faultyMetadataStore) GetAllFragmentMetadataForData(ctx context.Context, dataID string) ([]interfaces.FragmentMetadata, error) {
	s.mu.Lock()
	err := s.failListWith
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return s.MemoryStore.GetAllFragmentMetadataForData(ctx, dataID)
}

type fixture struct {
	service      *Service
	repositories []*faultyRepository
	store        *faultyMetadataStore
	pool         *executor.Pool
}

func newFixture(t *testing.T, algorithm string, n, r int) *fixture {
	t.Helper()

	alg, err := ida.New(algorithm, n, r)
	require.NoError(t, err)

	f := &fixture{
		store: newFaultyMetadataStore(),
		pool:  executor.New(8, discardLogger()),
	}
	repositories := make([]interfaces.FragmentRepository, 0, n)
	for i := 0; i < n; i++ {
		repository := newFaultyRepository(fmt.Sprintf("mem://repo-%d", i))
		f.repositories = append(f.repositories, repository)
		repositories = append(repositories, repository)
	}

	f.service, err = NewService(Options{
		Repositories:  repositories,
		MetadataStore: f.store,
		Algorithm:     alg,
		Executor:      f.pool,
		Logger:        discardLogger(),
	})
	require.NoError(t, err)

	t.Cleanup(f.pool.Close)
	return f
}

func (f *fixture) totalLoads() int {
	total := 0
	for _, r := range f.repositories {
		total += int(r.loads.Load())
	}
	return total
}
