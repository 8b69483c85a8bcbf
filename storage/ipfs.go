package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	shell "github.com/ipfs/go-ipfs-api"
	"github.com/ruteri/ida-persistence-engine/interfaces"
)

// IPFSRepository stores fragments as files in a directory of an IPFS node's
// mutable file system (MFS), so fragments keep their {dataId}.frag names.
type IPFSRepository struct {
	shell       *shell.Shell
	host        string
	dir         string
	log         *slog.Logger
	locationURI string
}

// NewIPFSRepository creates a repository using the IPFS API at host (host:port).
func NewIPFSRepository(locationURI, host, dir, timeout string, log *slog.Logger) (*IPFSRepository, error) {
	d, err := time.ParseDuration(timeout)
	if err != nil {
		return nil, interfaces.NewRepositoryError("NewIPFSRepository", locationURI,
			fmt.Sprintf("invalid timeout %q", timeout), interfaces.ErrInvalidLocationURI)
	}

	sh := shell.NewShell(host)
	sh.SetTimeout(d)

	return &IPFSRepository{
		shell:       sh,
		host:        host,
		dir:         dir,
		log:         log,
		locationURI: locationURI,
	}, nil
}

// Location returns the URI that identifies this repository.
func (r *IPFSRepository) Location() string {
	return r.locationURI
}

// SaveFragment writes the fragment file, replacing any previous content.
func (r *IPFSRepository) SaveFragment(ctx context.Context, name string, data []byte) error {
	start := time.Now()
	filePath := r.filePath(name)

	err := r.shell.FilesWrite(ctx, filePath, bytes.NewReader(data),
		shell.FilesWrite.Create(true),
		shell.FilesWrite.Parents(true),
		shell.FilesWrite.Truncate(true))
	if err != nil {
		return interfaces.NewRepositoryError("SaveFragment", r.locationURI, "failed to write file to IPFS", err)
	}

	r.log.Debug("Stored fragment in IPFS",
		slog.String("path", filePath),
		slog.Int("size", len(data)),
		slog.Duration("duration", time.Since(start)))

	return nil
}

// LoadFragment reads the fragment file.
func (r *IPFSRepository) LoadFragment(ctx context.Context, name string) ([]byte, error) {
	start := time.Now()
	filePath := r.filePath(name)

	reader, err := r.shell.FilesRead(ctx, filePath)
	if err != nil {
		if isIPFSNotFound(err) {
			return nil, interfaces.NewRepositoryError("LoadFragment", r.locationURI,
				fmt.Sprintf("no fragment %q", name), interfaces.ErrFragmentNotFound)
		}
		return nil, interfaces.NewRepositoryError("LoadFragment", r.locationURI, "failed to read file from IPFS", err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, interfaces.NewRepositoryError("LoadFragment", r.locationURI, "failed to read file from IPFS", err)
	}

	r.log.Debug("Fetched fragment from IPFS",
		slog.String("path", filePath),
		slog.Int("size", len(data)),
		slog.Duration("duration", time.Since(start)))

	return data, nil
}

// DeleteFragment removes the fragment file, reporting whether it existed.
func (r *IPFSRepository) DeleteFragment(ctx context.Context, name string) (bool, error) {
	filePath := r.filePath(name)

	if _, err := r.shell.FilesStat(ctx, filePath); err != nil {
		if isIPFSNotFound(err) {
			return false, nil
		}
		return false, interfaces.NewRepositoryError("DeleteFragment", r.locationURI, "failed to stat file in IPFS", err)
	}

	if err := r.shell.FilesRm(ctx, filePath, true); err != nil {
		return false, interfaces.NewRepositoryError("DeleteFragment", r.locationURI, "failed to remove file from IPFS", err)
	}
	return true, nil
}

func (r *IPFSRepository) filePath(name string) string {
	return path.Join(r.dir, name)
}

func isIPFSNotFound(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "file does not exist") || strings.Contains(msg, "no link named")
}
