// Package persistence disperses blobs across fragment repositories and
// reassembles them, tolerating the failure of up to R repositories on read.
//
// Every operation fans fragment-level I/O out to a shared executor pool and
// collects the results in completion order. Save is all-or-nothing: it
// reports success only if all N fragments and their metadata were stored.
// Load reads the minimum N-R fragments and substitutes a backup fragment for
// every failed read. Delete is best-effort and returns how many fragments it
// removed.
package persistence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ruteri/ida-persistence-engine/executor"
	"github.com/ruteri/ida-persistence-engine/interfaces"
)

// Options holds the collaborators of a Service. All fields but Logger are required.
type Options struct {
	// Repositories are the configured fragment repositories, in configuration order.
	Repositories []interfaces.FragmentRepository
	// MetadataStore records which repository holds which fragment.
	MetadataStore interfaces.FragmentMetadataStore
	// Algorithm splits and combines the data.
	Algorithm interfaces.DispersalAlgorithm
	// Executor runs the fragment tasks.
	Executor *executor.Pool
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Service implements interfaces.PersistenceService. Its configuration is
// fixed at construction and shared by all concurrent operations.
type Service struct {
	repositories []interfaces.FragmentRepository
	byLocation   map[string]interfaces.FragmentRepository
	metadata     interfaces.FragmentMetadataStore
	algorithm    interfaces.DispersalAlgorithm
	pool         *executor.Pool
	log          *slog.Logger
}

var _ interfaces.PersistenceService = (*Service)(nil)

// placement pairs a metadata record with the repository it resolved to.
type placement struct {
	metadata   interfaces.FragmentMetadata
	repository interfaces.FragmentRepository
}

// NewService validates opts and creates the service.
func NewService(opts Options) (*Service, error) {
	if len(opts.Repositories) == 0 {
		return nil, interfaces.NewPersistenceError("NewService", "", "no fragment repositories configured", interfaces.ErrInvalidConfiguration)
	}
	if opts.MetadataStore == nil {
		return nil, interfaces.NewPersistenceError("NewService", "", "no fragment metadata store configured", interfaces.ErrInvalidConfiguration)
	}
	if opts.Algorithm == nil {
		return nil, interfaces.NewPersistenceError("NewService", "", "no dispersal algorithm configured", interfaces.ErrInvalidConfiguration)
	}
	if opts.Executor == nil {
		return nil, interfaces.NewPersistenceError("NewService", "", "no executor configured", interfaces.ErrInvalidConfiguration)
	}

	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	byLocation := make(map[string]interfaces.FragmentRepository, len(opts.Repositories))
	for _, repository := range opts.Repositories {
		if repository == nil {
			return nil, interfaces.NewPersistenceError("NewService", "", "nil fragment repository configured", interfaces.ErrInvalidConfiguration)
		}
		location := repository.Location()
		if _, dup := byLocation[location]; dup {
			return nil, interfaces.NewPersistenceError("NewService", "",
				fmt.Sprintf("repository location %q configured twice", location), interfaces.ErrInvalidConfiguration)
		}
		byLocation[location] = repository
	}

	if n := opts.Algorithm.FragmentNumber(); len(opts.Repositories) < n {
		log.Warn("Fewer repositories than fragments, every save will fail",
			slog.Int("repositories", len(opts.Repositories)),
			slog.Int("fragments", n))
	}

	return &Service{
		repositories: append([]interfaces.FragmentRepository(nil), opts.Repositories...),
		byLocation:   byLocation,
		metadata:     opts.MetadataStore,
		algorithm:    opts.Algorithm,
		pool:         opts.Executor,
		log:          log,
	}, nil
}

// Save splits data into N fragments and stores each one on a distinct repository.
func (s *Service) Save(ctx context.Context, dataID string, data []byte) error {
	start := time.Now()

	fragments, err := s.algorithm.Split(data)
	if err != nil {
		return interfaces.NewPersistenceError("save", dataID, "error while trying to split the data", err)
	}
	n := s.algorithm.FragmentNumber()
	if len(fragments) != n {
		return interfaces.NewPersistenceError("save", dataID,
			fmt.Sprintf("dispersal algorithm returned %d fragments, expected %d", len(fragments), n), nil)
	}

	// Assign every fragment before submitting any, so a short repository list fails without I/O.
	repositories := NewRepositoryPool(s.repositories)
	tasks := make([]*SaveFragmentTask, 0, n)
	for i, fragment := range fragments {
		repository, ok := repositories.Take()
		if !ok {
			return interfaces.NewPersistenceError("save", dataID,
				fmt.Sprintf("%d repositories configured for %d fragments", len(s.repositories), n),
				interfaces.ErrRepositoryPoolExhausted)
		}

		tasks = append(tasks, &SaveFragmentTask{
			Fragment:      fragment,
			Metadata:      interfaces.NewFragmentMetadata(dataID, i, repository.Location()),
			Repository:    repository,
			MetadataStore: s.metadata,
			Log:           s.log,
		})
	}

	queue := executor.NewCompletionQueue(s.pool, len(tasks), func(r any) SaveOutcome {
		return SaveOutcome{Err: fmt.Errorf("save task panicked: %v", r)}
	})
	for _, task := range tasks {
		if err := queue.Submit(func() SaveOutcome { return task.Run(ctx) }); err != nil {
			return interfaces.NewPersistenceError("save", dataID, "error while submitting save task", err)
		}
	}

	var failures []error
	for range tasks {
		outcome, err := queue.Take(ctx)
		if err != nil {
			return interfaces.NewPersistenceError("save", dataID, "interrupted while waiting for save tasks", err)
		}
		if !outcome.Ok() {
			failures = append(failures, outcome.Err)
		}
	}

	if len(failures) > 0 {
		return interfaces.NewPersistenceError("save", dataID,
			fmt.Sprintf("%d of %d fragments couldn't be saved", len(failures), n),
			errors.Join(append([]error{interfaces.ErrNotFullySaved}, failures...)...))
	}

	s.log.Debug("Saved data",
		slog.String("data_id", dataID),
		slog.Int("size", len(data)),
		slog.Int("fragments", n),
		slog.Duration("duration", time.Since(start)))
	return nil
}

// Load reads N-R fragments and combines them. Each failed read is replaced by
// a read of one of the remaining recorded fragments until none are left.
func (s *Service) Load(ctx context.Context, dataID string) ([]byte, error) {
	start := time.Now()

	records, err := s.metadata.GetAllFragmentMetadataForData(ctx, dataID)
	if err != nil {
		return nil, interfaces.NewPersistenceError("load", dataID, "error while trying to retrieve all fragment metadata for the data", err)
	}

	required := interfaces.RequiredFragments(s.algorithm)
	if len(records) < required {
		return nil, interfaces.NewPersistenceError("load", dataID,
			fmt.Sprintf("%d fragments recorded, %d required", len(records), required),
			interfaces.ErrInsufficientFragments)
	}

	placements, err := s.resolve("load", dataID, records)
	if err != nil {
		return nil, err
	}

	available := NewRepositoryPool(placements)
	queue := executor.NewCompletionQueue(s.pool, len(placements), func(r any) LoadOutcome {
		return LoadOutcome{Err: fmt.Errorf("load task panicked: %v", r)}
	})
	submit := func(p placement) error {
		task := &LoadFragmentTask{Metadata: p.metadata, Repository: p.repository, Log: s.log}
		return queue.Submit(func() LoadOutcome { return task.Run(ctx) })
	}

	for i := 0; i < required; i++ {
		p, _ := available.Take()
		if err := submit(p); err != nil {
			return nil, interfaces.NewPersistenceError("load", dataID, "error while submitting load task", err)
		}
	}

	fragments := make([]interfaces.Fragment, 0, required)
	var failures []error
	for len(fragments) < required {
		outcome, err := queue.Take(ctx)
		if err != nil {
			return nil, interfaces.NewPersistenceError("load", dataID, "interrupted while waiting for load tasks", err)
		}
		if outcome.Ok() {
			fragments = append(fragments, outcome.Fragment())
			continue
		}

		failures = append(failures, outcome.Err)
		backup, ok := available.Take()
		if !ok {
			return nil, interfaces.NewPersistenceError("load", dataID,
				fmt.Sprintf("retrieved %d of %d required fragments", len(fragments), required),
				errors.Join(append([]error{interfaces.ErrInsufficientFragments}, failures...)...))
		}

		s.log.Debug("Submitting backup fragment load",
			slog.String("data_id", dataID),
			slog.Int("fragment", backup.metadata.FragmentNumber),
			slog.String("repository", backup.metadata.RepositoryLocation))
		if err := submit(backup); err != nil {
			return nil, interfaces.NewPersistenceError("load", dataID, "error while submitting backup load task", err)
		}
	}

	data, err := s.algorithm.Combine(fragments)
	if err != nil {
		return nil, interfaces.NewPersistenceError("load", dataID, "error while trying to combine the fragments", err)
	}

	s.log.Debug("Loaded data",
		slog.String("data_id", dataID),
		slog.Int("size", len(data)),
		slog.Int("failed_fragments", len(failures)),
		slog.Duration("duration", time.Since(start)))
	return data, nil
}

// Delete removes every recorded fragment of dataID and returns how many were
// removed. A partial count is not an error.
func (s *Service) Delete(ctx context.Context, dataID string) (int, error) {
	records, err := s.metadata.GetAllFragmentMetadataForData(ctx, dataID)
	if err != nil {
		return 0, interfaces.NewPersistenceError("delete", dataID, "error while trying to retrieve all fragment metadata for the data", err)
	}
	if len(records) == 0 {
		return 0, nil
	}

	// Resolve every location before submitting any delete task.
	placements, err := s.resolve("delete", dataID, records)
	if err != nil {
		return 0, err
	}

	queue := executor.NewCompletionQueue(s.pool, len(placements), func(r any) DeleteOutcome {
		return DeleteOutcome{Err: fmt.Errorf("delete task panicked: %v", r)}
	})
	for _, p := range placements {
		task := &DeleteFragmentTask{Metadata: p.metadata, Repository: p.repository, MetadataStore: s.metadata, Log: s.log}
		if err := queue.Submit(func() DeleteOutcome { return task.Run(ctx) }); err != nil {
			return 0, interfaces.NewPersistenceError("delete", dataID, "error while submitting delete task", err)
		}
	}

	deleted := 0
	for range placements {
		outcome, err := queue.Take(ctx)
		if err != nil {
			return deleted, interfaces.NewPersistenceError("delete", dataID, "interrupted while waiting for delete tasks", err)
		}
		if outcome.Ok() {
			deleted++
		}
	}

	if deleted < len(placements) {
		s.log.Warn("Data partially deleted",
			slog.String("data_id", dataID),
			slog.Int("deleted", deleted),
			slog.Int("recorded", len(placements)))
	}
	return deleted, nil
}

// resolve maps every record to a configured repository, failing on the first
// location that isn't configured.
func (s *Service) resolve(op, dataID string, records []interfaces.FragmentMetadata) ([]placement, error) {
	placements := make([]placement, 0, len(records))
	for _, md := range records {
		repository, ok := s.byLocation[md.RepositoryLocation]
		if !ok {
			return nil, interfaces.NewPersistenceError(op, dataID,
				fmt.Sprintf("no repository found for URL [%s]", md.RepositoryLocation),
				interfaces.ErrUnknownRepository)
		}
		placements = append(placements, placement{metadata: md, repository: repository})
	}
	return placements, nil
}
