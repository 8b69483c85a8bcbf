package interfaces

import "context"

// FragmentRepository stores named fragment blobs in one storage endpoint.
// Implementations must be safe for concurrent use.
type FragmentRepository interface {
	// Location returns the unique URI identifying this repository.
	// It is the value recorded in FragmentMetadata.RepositoryLocation.
	Location() string

	// SaveFragment stores data under name, replacing any previous content.
	SaveFragment(ctx context.Context, name string, data []byte) error

	// LoadFragment returns the content stored under name.
	// A missing fragment is reported with an error wrapping ErrFragmentNotFound.
	LoadFragment(ctx context.Context, name string) ([]byte, error)

	// DeleteFragment removes the content stored under name.
	// It returns false without error when there was nothing to delete.
	DeleteFragment(ctx context.Context, name string) (bool, error)
}

// FragmentMetadataStore is the durable index of fragment placement.
// Implementations must be safe for concurrent use.
type FragmentMetadataStore interface {
	// SaveFragmentMetadata inserts the record, overwriting the repository
	// location of an existing (data ID, fragment number) key.
	SaveFragmentMetadata(ctx context.Context, metadata FragmentMetadata) error

	// UpdateFragmentMetadata changes the repository location of an existing record.
	UpdateFragmentMetadata(ctx context.Context, metadata FragmentMetadata) error

	// GetAllFragmentMetadataForData returns every record of the data ID.
	// An unknown data ID yields an empty slice.
	GetAllFragmentMetadataForData(ctx context.Context, dataID string) ([]FragmentMetadata, error)

	// GetFragmentMetadata returns a single record, or an error wrapping ErrFragmentNotFound.
	GetFragmentMetadata(ctx context.Context, dataID string, fragmentNumber int) (FragmentMetadata, error)

	// DeleteFragmentMetadata removes the record. Deleting a missing record is not an error.
	DeleteFragmentMetadata(ctx context.Context, metadata FragmentMetadata) error
}

// RepositoryFactory creates fragment repositories from location URIs.
type RepositoryFactory interface {
	// RepositoryFor creates the repository for a location URI.
	// Supports file://, s3://, minio://, ipfs://, mirror://, mem://
	RepositoryFor(location string) (FragmentRepository, error)
}
