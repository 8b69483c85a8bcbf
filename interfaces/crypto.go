package interfaces

import "context"

// EncryptionParams is the per-blob key material.
type EncryptionParams struct {
	Key []byte
	IV  []byte
}

// EncryptionProvider encrypts and decrypts blobs with an implementation-specific cipher.
type EncryptionProvider interface {
	// Name returns the registry name of the provider.
	Name() string

	// NewParams returns freshly generated random key material.
	NewParams() (EncryptionParams, error)

	// ParamsFrom validates previously generated key material.
	ParamsFrom(key, iv []byte) (EncryptionParams, error)

	// Encrypt encrypts data with params.
	Encrypt(params EncryptionParams, data []byte) ([]byte, error)

	// Decrypt reverses Encrypt.
	Decrypt(params EncryptionParams, data []byte) ([]byte, error)
}

// EncryptionKeyRepository stores serialized key material per data ID.
type EncryptionKeyRepository interface {
	// SaveKey stores the serialized key of the data ID, replacing any previous one.
	SaveKey(ctx context.Context, dataID string, serializedKey string) error

	// GetKey returns the serialized key, or an error wrapping ErrKeyNotFound.
	GetKey(ctx context.Context, dataID string) (string, error)

	// DeleteKey removes the key. Deleting a missing key is not an error.
	DeleteKey(ctx context.Context, dataID string) error
}
