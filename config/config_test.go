package config

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ruteri/ida-persistence-engine/cryptoutils"
	"github.com/ruteri/ida-persistence-engine/ida"
	"github.com/ruteri/ida-persistence-engine/interfaces"
	"github.com/ruteri/ida-persistence-engine/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
fragment_number = 5
redundant_fragment_number = 2
algorithm = "shamir"
workers = 4

[metadata]
dsn = "/tmp/meta.db"

[encryption]
provider = "xchacha20poly1305"
key_store = "vault"
best_effort_key_delete = true

[encryption.vault]
address = "http://127.0.0.1:8200"
mount = "secret"
path = "ida/keys"
timeout_seconds = 5

[[repositories]]
location = "file:///var/lib/ida/repo0"
[[repositories]]
location = "s3://bucket/prefix?region=eu-west-1"
[[repositories]]
location = "minio://play.min.io:9000/bucket"
[[repositories]]
location = "ipfs://127.0.0.1:5001/ida"
[[repositories]]
location = "mem://spare"
`

func memoryRepositories(n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		b.WriteString("[[repositories]]\nlocation = \"mem://repo-")
		b.WriteByte(byte('a' + i))
		b.WriteString("\"\n")
	}
	return b.String()
}

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.FragmentNumber)
	assert.Equal(t, 2, cfg.RedundantFragmentNumber)
	assert.Equal(t, ida.ShamirName, cfg.Algorithm)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, "/tmp/meta.db", cfg.Metadata.DSN)
	require.NotNil(t, cfg.Encryption)
	assert.Equal(t, cryptoutils.XChaChaName, cfg.Encryption.Provider)
	assert.Equal(t, KeyStoreVault, cfg.Encryption.KeyStore)
	assert.True(t, cfg.Encryption.BestEffortKeyDelete)
	assert.Equal(t, "secret", cfg.Encryption.Vault.Mount)
	assert.Equal(t, "5s", cfg.Encryption.Vault.Timeout().String())
	assert.Equal(t, []string{
		"file:///var/lib/ida/repo0",
		"s3://bucket/prefix?region=eu-west-1",
		"minio://play.min.io:9000/bucket",
		"ipfs://127.0.0.1:5001/ida",
		"mem://spare",
	}, cfg.Locations())
}

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte("fragment_number = 3\n[encryption]\nkey_size = 16\n" + memoryRepositories(3)))
	require.NoError(t, err)

	assert.Equal(t, ida.DefaultRedundantFragmentNumber, cfg.RedundantFragmentNumber)
	assert.Equal(t, ida.CRSName, cfg.Algorithm)
	assert.Equal(t, DefaultMetadataDSN, cfg.Metadata.DSN)
	assert.Zero(t, cfg.Workers)
	require.NotNil(t, cfg.Encryption)
	assert.Equal(t, cryptoutils.AESCBCName, cfg.Encryption.Provider)
	assert.Equal(t, KeyStoreSQLite, cfg.Encryption.KeyStore)
	assert.Equal(t, 16, cfg.Encryption.KeySize)
}

func TestParse_NoEncryption(t *testing.T) {
	cfg, err := Parse([]byte("fragment_number = 3\n" + memoryRepositories(3)))
	require.NoError(t, err)
	assert.Nil(t, cfg.Encryption)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		problem string
	}{
		{
			name:    "malformed toml",
			doc:     "fragment_number = ",
			problem: "failed to parse config",
		},
		{
			name:    "missing fragment number",
			doc:     memoryRepositories(3),
			problem: "fragment_number must be positive",
		},
		{
			name:    "redundancy not below fragment number",
			doc:     "fragment_number = 2\n" + memoryRepositories(2),
			problem: "must be less than fragment_number",
		},
		{
			name:    "negative redundancy",
			doc:     "fragment_number = 3\nredundant_fragment_number = -1\n" + memoryRepositories(3),
			problem: "must not be negative",
		},
		{
			name:    "unknown algorithm",
			doc:     "fragment_number = 3\nalgorithm = \"raid5\"\n" + memoryRepositories(3),
			problem: `unknown algorithm "raid5"`,
		},
		{
			name:    "too few repositories",
			doc:     "fragment_number = 4\n" + memoryRepositories(3),
			problem: "3 repositories configured",
		},
		{
			name:    "duplicate repository",
			doc:     "fragment_number = 3\n" + memoryRepositories(2) + "[[repositories]]\nlocation = \"mem://repo-a\"\n",
			problem: "configured twice",
		},
		{
			name:    "location without scheme",
			doc:     "fragment_number = 3\n" + memoryRepositories(2) + "[[repositories]]\nlocation = \"repo-z\"\n",
			problem: "repositories[2]",
		},
		{
			name:    "unknown provider",
			doc:     "fragment_number = 3\n[encryption]\nprovider = \"rot13\"\n" + memoryRepositories(3),
			problem: `unknown encryption provider "rot13"`,
		},
		{
			name:    "unknown key store",
			doc:     "fragment_number = 3\n[encryption]\nkey_store = \"etcd\"\n" + memoryRepositories(3),
			problem: `unknown key_store "etcd"`,
		},
		{
			name:    "vault without mount",
			doc:     "fragment_number = 3\n[encryption]\nkey_store = \"vault\"\n" + memoryRepositories(3),
			problem: "encryption.vault.mount is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			require.Error(t, err)
			assert.ErrorIs(t, err, interfaces.ErrInvalidConfiguration)
			assert.Contains(t, err.Error(), tt.problem)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ida.toml")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.FragmentNumber)

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

// buildFromDoc appends a metadata table pointing at a temporary database,
// so doc must only contain top-level keys and earlier tables.
func buildFromDoc(t *testing.T, doc string) *Assembly {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "meta.db")
	cfg, err := Parse([]byte(doc + "\n[metadata]\ndsn = \"" + dsn + "\"\n"))
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	a, err := Build(context.Background(), cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestBuild(t *testing.T) {
	ctx := context.Background()
	a := buildFromDoc(t, "fragment_number = 5\nworkers = 3\n"+memoryRepositories(6))

	assert.Len(t, a.Repositories, 6)
	assert.Equal(t, 5, a.Algorithm.FragmentNumber())
	assert.Equal(t, 2, a.Algorithm.RedundantFragmentNumber())
	assert.Equal(t, 3, a.Executor.Workers())
	assert.Nil(t, a.Keys)
	assert.Same(t, a.Persistence, a.Service)

	payload := []byte("assembled from configuration")
	require.NoError(t, a.Service.Save(ctx, "blob", payload))

	loaded, err := a.Service.Load(ctx, "blob")
	require.NoError(t, err)
	assert.Equal(t, payload, loaded)

	records, err := a.Metadata.GetAllFragmentMetadataForData(ctx, "blob")
	require.NoError(t, err)
	assert.Len(t, records, 5)

	deleted, err := a.Service.Delete(ctx, "blob")
	require.NoError(t, err)
	assert.Equal(t, 5, deleted)
}

func TestBuild_Encrypted(t *testing.T) {
	tests := []struct {
		name     string
		keyStore string
	}{
		{name: "keys in metadata database", keyStore: KeyStoreSQLite},
		{name: "keys in memory", keyStore: KeyStoreMemory},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			a := buildFromDoc(t, "fragment_number = 4\nredundant_fragment_number = 1\nalgorithm = \"shamir\"\n"+
				"[encryption]\nprovider = \"aes-gcm\"\nkey_store = \""+tt.keyStore+"\"\n"+
				memoryRepositories(4))

			require.NotNil(t, a.Keys)
			assert.IsType(t, &persistence.EncryptingService{}, a.Service)
			if tt.keyStore == KeyStoreSQLite {
				assert.Same(t, a.Metadata, a.Keys)
			}

			payload := []byte("encrypted before dispersal")
			require.NoError(t, a.Service.Save(ctx, "secret-blob", payload))

			key, err := a.Keys.GetKey(ctx, "secret-blob")
			require.NoError(t, err)
			assert.Contains(t, key, cryptoutils.ParamsSeparator)

			plain, err := a.Persistence.Load(ctx, "secret-blob")
			require.NoError(t, err)
			assert.NotEqual(t, payload, plain)

			loaded, err := a.Service.Load(ctx, "secret-blob")
			require.NoError(t, err)
			assert.Equal(t, payload, loaded)

			deleted, err := a.Service.Delete(ctx, "secret-blob")
			require.NoError(t, err)
			assert.Equal(t, 4, deleted)

			_, err = a.Keys.GetKey(ctx, "secret-blob")
			assert.ErrorIs(t, err, interfaces.ErrKeyNotFound)
		})
	}
}

func TestBuild_InvalidAlgorithmParameters(t *testing.T) {
	// Shamir needs a threshold of at least two shares.
	dsn := filepath.Join(t.TempDir(), "meta.db")
	cfg, err := Parse([]byte("fragment_number = 3\nalgorithm = \"shamir\"\n" + memoryRepositories(3) +
		"[metadata]\ndsn = \"" + dsn + "\"\n"))
	require.NoError(t, err)

	_, err = Build(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.ErrorIs(t, err, interfaces.ErrInvalidConfiguration)
}

func TestBuild_UnsupportedScheme(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "meta.db")
	cfg, err := Parse([]byte("fragment_number = 3\nredundant_fragment_number = 1\n" + memoryRepositories(2) +
		"[[repositories]]\nlocation = \"ftp://host/dir\"\n" +
		"[metadata]\ndsn = \"" + dsn + "\"\n"))
	require.NoError(t, err)

	_, err = Build(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.ErrorIs(t, err, interfaces.ErrUnknownRepository)
}
