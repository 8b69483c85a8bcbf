package persistence

import (
	"context"
	"errors"
	"log/slog"

	"github.com/ruteri/ida-persistence-engine/cryptoutils"
	"github.com/ruteri/ida-persistence-engine/interfaces"
)

// EncryptingOptions holds the collaborators of an EncryptingService.
type EncryptingOptions struct {
	// Provider generates per-blob key material and encrypts with it.
	Provider interfaces.EncryptionProvider
	// Keys stores the serialized key material of every blob.
	Keys interfaces.EncryptionKeyRepository
	// BestEffortKeyDelete logs key deletion failures instead of returning
	// them once the fragments are gone.
	BestEffortKeyDelete bool
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// EncryptingService encrypts every blob with a fresh key before handing the
// ciphertext to the wrapped service. Repositories only ever see ciphertext.
type EncryptingService struct {
	next                interfaces.PersistenceService
	provider            interfaces.EncryptionProvider
	keys                interfaces.EncryptionKeyRepository
	bestEffortKeyDelete bool
	log                 *slog.Logger
}

var _ interfaces.PersistenceService = (*EncryptingService)(nil)

// NewEncryptingService wraps next.
func NewEncryptingService(next interfaces.PersistenceService, opts EncryptingOptions) (*EncryptingService, error) {
	if next == nil {
		return nil, interfaces.NewPersistenceError("NewEncryptingService", "", "no persistence service to wrap", interfaces.ErrInvalidConfiguration)
	}
	if opts.Provider == nil {
		return nil, interfaces.NewPersistenceError("NewEncryptingService", "", "no encryption provider configured", interfaces.ErrInvalidConfiguration)
	}
	if opts.Keys == nil {
		return nil, interfaces.NewPersistenceError("NewEncryptingService", "", "no encryption key repository configured", interfaces.ErrInvalidConfiguration)
	}

	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	return &EncryptingService{
		next:                next,
		provider:            opts.Provider,
		keys:                opts.Keys,
		bestEffortKeyDelete: opts.BestEffortKeyDelete,
		log:                 log,
	}, nil
}

// Save encrypts data and persists the key before any fragment is written.
func (s *EncryptingService) Save(ctx context.Context, dataID string, data []byte) error {
	params, err := s.provider.NewParams()
	if err != nil {
		return interfaces.NewPersistenceError("save", dataID, "error while generating encryption key", err)
	}

	ciphertext, err := s.provider.Encrypt(params, data)
	if err != nil {
		return interfaces.NewPersistenceError("save", dataID, "error while encrypting the data", err)
	}

	if err := s.keys.SaveKey(ctx, dataID, cryptoutils.SerializeParams(params)); err != nil {
		return interfaces.NewPersistenceError("save", dataID, "error while saving the encryption key", err)
	}

	return s.next.Save(ctx, dataID, ciphertext)
}

// Load reassembles the ciphertext and decrypts it with the stored key.
func (s *EncryptingService) Load(ctx context.Context, dataID string) ([]byte, error) {
	ciphertext, err := s.next.Load(ctx, dataID)
	if err != nil {
		return nil, err
	}

	serialized, err := s.keys.GetKey(ctx, dataID)
	if err != nil {
		return nil, interfaces.NewPersistenceError("load", dataID, "error while retrieving the encryption key", err)
	}

	key, iv, err := cryptoutils.DeserializeParams(serialized)
	if err != nil {
		return nil, interfaces.NewPersistenceError("load", dataID, "stored encryption key is malformed", err)
	}
	params, err := s.provider.ParamsFrom(key, iv)
	if err != nil {
		return nil, interfaces.NewPersistenceError("load", dataID, "stored encryption key doesn't match the provider", err)
	}

	plaintext, err := s.provider.Decrypt(params, ciphertext)
	if err != nil {
		return nil, interfaces.NewPersistenceError("load", dataID, "error while decrypting the data", err)
	}
	return plaintext, nil
}

// Delete removes the fragments and then the key. If the key can't be removed
// the fragment count is still returned, together with the error unless
// BestEffortKeyDelete is set.
func (s *EncryptingService) Delete(ctx context.Context, dataID string) (int, error) {
	deleted, err := s.next.Delete(ctx, dataID)
	if err != nil {
		return deleted, err
	}

	if err := s.keys.DeleteKey(ctx, dataID); err != nil && !errors.Is(err, interfaces.ErrKeyNotFound) {
		if s.bestEffortKeyDelete {
			s.log.Error("Failed to delete encryption key, it is now orphaned",
				slog.String("data_id", dataID),
				slog.Int("deleted_fragments", deleted),
				"err", err)
			return deleted, nil
		}
		return deleted, interfaces.NewPersistenceError("delete", dataID, "fragments deleted but the encryption key wasn't", err)
	}
	return deleted, nil
}
