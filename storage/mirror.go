package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ruteri/ida-persistence-engine/interfaces"
)

// MirrorRepository replicates every fragment to several repositories.
// Saves must succeed on every mirror, loads return the first copy found.
type MirrorRepository struct {
	mirrors     []interfaces.FragmentRepository
	log         *slog.Logger
	locationURI string
}

// NewMirrorRepository combines mirrors into a single repository.
func NewMirrorRepository(locationURI string, mirrors []interfaces.FragmentRepository, logger *slog.Logger) *MirrorRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &MirrorRepository{
		mirrors:     mirrors,
		log:         logger,
		locationURI: locationURI,
	}
}

// Location returns the URI that identifies this repository.
func (m *MirrorRepository) Location() string {
	return m.locationURI
}

// SaveFragment stores the fragment on every mirror.
func (m *MirrorRepository) SaveFragment(ctx context.Context, name string, data []byte) error {
	var errs []error
	for _, mirror := range m.mirrors {
		if err := mirror.SaveFragment(ctx, name, data); err != nil {
			errs = append(errs, err)
			m.log.Debug("Failed to store to mirror",
				slog.String("mirror", mirror.Location()),
				"err", err)
		}
	}

	if len(errs) > 0 {
		return interfaces.NewRepositoryError("SaveFragment", m.locationURI,
			fmt.Sprintf("%d of %d mirrors failed", len(errs), len(m.mirrors)), errors.Join(errs...))
	}
	return nil
}

// LoadFragment returns the fragment from the first mirror that has it.
func (m *MirrorRepository) LoadFragment(ctx context.Context, name string) ([]byte, error) {
	start := time.Now()
	var errs []error
	for _, mirror := range m.mirrors {
		data, err := mirror.LoadFragment(ctx, name)
		if err == nil {
			m.log.Debug("Fetched fragment from mirror",
				slog.String("mirror", mirror.Location()),
				slog.Duration("duration", time.Since(start)))
			return data, nil
		}

		errs = append(errs, err)
		m.log.Debug("Failed to fetch from mirror",
			slog.String("mirror", mirror.Location()),
			"err", err)
	}

	return nil, interfaces.NewRepositoryError("LoadFragment", m.locationURI,
		fmt.Sprintf("all %d mirrors failed to fetch %q", len(m.mirrors), name), errors.Join(errs...))
}

// DeleteFragment removes the fragment from every mirror. It reports true if
// any mirror held the fragment.
func (m *MirrorRepository) DeleteFragment(ctx context.Context, name string) (bool, error) {
	var errs []error
	deleted := false

	for _, mirror := range m.mirrors {
		ok, err := mirror.DeleteFragment(ctx, name)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		deleted = deleted || ok
	}

	if len(errs) > 0 {
		return deleted, interfaces.NewRepositoryError("DeleteFragment", m.locationURI,
			fmt.Sprintf("%d of %d mirrors failed", len(errs), len(m.mirrors)), errors.Join(errs...))
	}
	return deleted, nil
}
