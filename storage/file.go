package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ruteri/ida-persistence-engine/interfaces"
)

// FileRepository stores fragments as files in a single directory on the local filesystem.
type FileRepository struct {
	baseDir     string
	log         *slog.Logger
	locationURI string
}

// NewFileRepository creates a filesystem repository rooted at baseDir,
// creating the directory if it doesn't exist.
func NewFileRepository(locationURI, baseDir string, log *slog.Logger) (*FileRepository, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, interfaces.NewRepositoryError("NewFileRepository", locationURI, "failed to create base directory", err)
	}

	return &FileRepository{
		baseDir:     baseDir,
		log:         log,
		locationURI: locationURI,
	}, nil
}

// Location returns the URI that identifies this repository.
func (r *FileRepository) Location() string {
	return r.locationURI
}

// SaveFragment writes the fragment to a temporary file and renames it into
// place, so readers never observe a partially written fragment.
func (r *FileRepository) SaveFragment(ctx context.Context, name string, data []byte) error {
	filePath, err := r.filePath(name)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(r.baseDir, "."+name+".*")
	if err != nil {
		return interfaces.NewRepositoryError("SaveFragment", r.locationURI, "failed to create temporary file", err)
	}
	tmpPath := tmp.Name()

	_, writeErr := tmp.Write(data)
	closeErr := tmp.Close()
	if err := errors.Join(writeErr, closeErr); err != nil {
		os.Remove(tmpPath)
		return interfaces.NewRepositoryError("SaveFragment", r.locationURI, "failed to write file", err)
	}

	if err := os.Rename(tmpPath, filePath); err != nil {
		os.Remove(tmpPath)
		return interfaces.NewRepositoryError("SaveFragment", r.locationURI, "failed to move file into place", err)
	}

	r.log.Debug("Stored fragment in file",
		slog.String("path", filePath),
		slog.Int("size", len(data)))

	return nil
}

// LoadFragment reads the fragment file.
func (r *FileRepository) LoadFragment(ctx context.Context, name string) ([]byte, error) {
	filePath, err := r.filePath(name)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filePath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, interfaces.NewRepositoryError("LoadFragment", r.locationURI,
			fmt.Sprintf("no fragment %q", name), interfaces.ErrFragmentNotFound)
	}
	if err != nil {
		return nil, interfaces.NewRepositoryError("LoadFragment", r.locationURI, "failed to read file", err)
	}

	r.log.Debug("Fetched fragment from file",
		slog.String("path", filePath),
		slog.Int("size", len(data)))

	return data, nil
}

// DeleteFragment removes the fragment file, reporting whether it existed.
func (r *FileRepository) DeleteFragment(ctx context.Context, name string) (bool, error) {
	filePath, err := r.filePath(name)
	if err != nil {
		return false, err
	}

	err = os.Remove(filePath)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, interfaces.NewRepositoryError("DeleteFragment", r.locationURI, "failed to remove file", err)
	}
	return true, nil
}

// filePath maps an object name to a path inside the base directory.
// Names that would escape the directory are rejected.
func (r *FileRepository) filePath(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return "", interfaces.NewRepositoryError("", r.locationURI, fmt.Sprintf("invalid fragment name %q", name), nil)
	}
	return filepath.Join(r.baseDir, name), nil
}
