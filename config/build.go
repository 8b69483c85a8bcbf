package config

import (
	"context"
	"errors"
	"log/slog"

	"github.com/ruteri/ida-persistence-engine/cryptoutils"
	"github.com/ruteri/ida-persistence-engine/executor"
	"github.com/ruteri/ida-persistence-engine/ida"
	"github.com/ruteri/ida-persistence-engine/interfaces"
	"github.com/ruteri/ida-persistence-engine/keystore"
	"github.com/ruteri/ida-persistence-engine/metadata"
	"github.com/ruteri/ida-persistence-engine/persistence"
	"github.com/ruteri/ida-persistence-engine/storage"
)

// Assembly is a fully wired persistence engine.
type Assembly struct {
	// Service is the entry point: the encrypting service when encryption is
	// configured, the plain persistence service otherwise.
	Service interfaces.PersistenceService

	Persistence  *persistence.Service
	Algorithm    interfaces.DispersalAlgorithm
	Repositories []interfaces.FragmentRepository
	Metadata     *metadata.SQLiteStore
	Keys         interfaces.EncryptionKeyRepository
	Executor     *executor.Pool

	log *slog.Logger
}

// Build wires every component described by cfg. The returned assembly must be
// closed to release the metadata database.
func Build(ctx context.Context, cfg *Config, logger *slog.Logger) (*Assembly, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	algorithm, err := ida.New(cfg.Algorithm, cfg.FragmentNumber, cfg.RedundantFragmentNumber)
	if err != nil {
		return nil, err
	}

	factory := storage.NewRepositoryFactory(logger)
	repositories, err := factory.RepositoriesFor(cfg.Locations())
	if err != nil {
		return nil, err
	}

	store, err := metadata.OpenAndInitialize(ctx, cfg.Metadata.DSN)
	if err != nil {
		return nil, err
	}

	a := &Assembly{
		Algorithm:    algorithm,
		Repositories: repositories,
		Metadata:     store,
		Executor:     executor.New(cfg.Workers, logger),
		log:          logger,
	}

	a.Persistence, err = persistence.NewService(persistence.Options{
		Repositories:  repositories,
		MetadataStore: store,
		Algorithm:     algorithm,
		Executor:      a.Executor,
		Logger:        logger,
	})
	if err != nil {
		return nil, errors.Join(err, a.Close())
	}
	a.Service = a.Persistence

	if enc := cfg.Encryption; enc != nil {
		if err := a.wrapWithEncryption(enc, logger); err != nil {
			return nil, errors.Join(err, a.Close())
		}
	}

	logger.Info("Persistence engine assembled",
		slog.String("algorithm", cfg.Algorithm),
		slog.Int("fragments", cfg.FragmentNumber),
		slog.Int("redundant", cfg.RedundantFragmentNumber),
		slog.Int("repositories", len(repositories)),
		slog.Int("workers", a.Executor.Workers()),
		slog.Bool("encrypted", cfg.Encryption != nil))

	return a, nil
}

func (a *Assembly) wrapWithEncryption(enc *EncryptionConfig, logger *slog.Logger) error {
	provider, err := cryptoutils.NewEncryptionProvider(enc.Provider, enc.KeySize)
	if err != nil {
		return err
	}

	switch enc.KeyStore {
	case KeyStoreSQLite:
		a.Keys = a.Metadata
	case KeyStoreMemory:
		a.Keys = metadata.NewMemoryKeyStore()
	case KeyStoreVault:
		a.Keys, err = keystore.NewVaultKeyRepository(keystore.VaultOptions{
			Address:  enc.Vault.Address,
			Token:    enc.Vault.Token,
			Mount:    enc.Vault.Mount,
			Path:     enc.Vault.Path,
			CertFile: enc.Vault.CertFile,
			KeyFile:  enc.Vault.KeyFile,
			Timeout:  enc.Vault.Timeout(),
		}, logger)
		if err != nil {
			return err
		}
	}

	a.Service, err = persistence.NewEncryptingService(a.Persistence, persistence.EncryptingOptions{
		Provider:            provider,
		Keys:                a.Keys,
		BestEffortKeyDelete: enc.BestEffortKeyDelete,
		Logger:              logger,
	})
	return err
}

// Close waits for in-flight fragment tasks and closes the metadata database.
func (a *Assembly) Close() error {
	a.Executor.Close()
	if err := a.Metadata.Close(); err != nil {
		a.log.Error("Failed to close metadata store", "err", err)
		return err
	}
	return nil
}
