// Package keystore stores per-blob encryption keys outside the metadata
// database, in HashiCorp Vault's KV v2 secrets engine.
package keystore

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/vault/api"
	"github.com/ruteri/ida-persistence-engine/interfaces"
)

// keyField is the KV field holding the serialized key.
const keyField = "key"

// VaultOptions configures VaultKeyRepository.
type VaultOptions struct {
	// Address is the Vault server address (e.g. https://vault.example.com:8200)
	Address string
	// Token authenticates requests. Empty falls back to VAULT_TOKEN.
	Token string
	// Mount is the KV v2 mount path (e.g. "secret")
	Mount string
	// Path is the directory within the mount (e.g. "ida/keys")
	Path string
	// CertFile and KeyFile enable TLS client certificate authentication.
	CertFile string
	KeyFile  string
	// Timeout bounds every request. Defaults to 30s.
	Timeout time.Duration
}

// VaultKeyRepository implements interfaces.EncryptionKeyRepository on Vault.
// Each key lives at {mount}/data/{path}/{dataId} in the field "key".
type VaultKeyRepository struct {
	client    *api.Client
	mountPath string
	dataPath  string
	log       *slog.Logger
}

// NewVaultKeyRepository creates a client for the configured Vault server.
func NewVaultKeyRepository(opts VaultOptions, log *slog.Logger) (*VaultKeyRepository, error) {
	if opts.Mount == "" {
		return nil, fmt.Errorf("%w: vault mount is required", interfaces.ErrInvalidConfiguration)
	}
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}

	config := api.DefaultConfig()
	if opts.Address != "" {
		config.Address = opts.Address
	}

	if opts.CertFile != "" || opts.KeyFile != "" {
		clientCert, err := tls.LoadX509KeyPair(opts.CertFile, opts.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load Vault client certificate: %w", err)
		}
		config.HttpClient = &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{Certificates: []tls.Certificate{clientCert}},
			},
		}
	}
	config.Timeout = opts.Timeout

	client, err := api.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vault client: %w", err)
	}
	if opts.Token != "" {
		client.SetToken(opts.Token)
	}

	return &VaultKeyRepository{
		client:    client,
		mountPath: strings.Trim(opts.Mount, "/"),
		dataPath:  strings.Trim(opts.Path, "/"),
		log:       log,
	}, nil
}

// SaveKey writes the serialized key, creating a new KV version.
func (v *VaultKeyRepository) SaveKey(ctx context.Context, dataID string, serializedKey string) error {
	start := time.Now()
	path := v.secretPath("data", dataID)

	secretData := map[string]interface{}{
		"data": map[string]interface{}{
			keyField: serializedKey,
		},
	}

	if _, err := v.client.Logical().WriteWithContext(ctx, path, secretData); err != nil {
		v.log.Error("Failed to write key to Vault",
			slog.String("path", path),
			"err", err)
		return fmt.Errorf("failed to write key of %q to Vault: %w", dataID, err)
	}

	v.log.Debug("Stored key in Vault",
		slog.String("data_id", dataID),
		slog.Duration("duration", time.Since(start)))
	return nil
}

// GetKey reads the latest version of the serialized key.
func (v *VaultKeyRepository) GetKey(ctx context.Context, dataID string) (string, error) {
	path := v.secretPath("data", dataID)

	secret, err := v.client.Logical().ReadWithContext(ctx, path)
	if err != nil {
		return "", fmt.Errorf("failed to read key of %q from Vault: %w", dataID, err)
	}
	if secret == nil || secret.Data == nil || secret.Data["data"] == nil {
		return "", fmt.Errorf("%w: %q", interfaces.ErrKeyNotFound, dataID)
	}

	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		return "", fmt.Errorf("invalid data format in Vault response for %q", dataID)
	}

	key, ok := data[keyField].(string)
	if !ok {
		return "", fmt.Errorf("key field not found in Vault data for %q", dataID)
	}
	return key, nil
}

// DeleteKey removes every version and the metadata of the key.
func (v *VaultKeyRepository) DeleteKey(ctx context.Context, dataID string) error {
	path := v.secretPath("metadata", dataID)

	if _, err := v.client.Logical().DeleteWithContext(ctx, path); err != nil {
		return fmt.Errorf("failed to delete key of %q from Vault: %w", dataID, err)
	}
	return nil
}

// Available reports whether Vault is initialized and unsealed.
func (v *VaultKeyRepository) Available(ctx context.Context) bool {
	healthCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	health, err := v.client.Sys().HealthWithContext(healthCtx)
	if err != nil {
		v.log.Debug("Vault health check failed", "err", err)
		return false
	}

	if !health.Initialized || health.Sealed {
		v.log.Debug("Vault is not available",
			slog.Bool("initialized", health.Initialized),
			slog.Bool("sealed", health.Sealed))
		return false
	}
	return true
}

func (v *VaultKeyRepository) secretPath(kind, dataID string) string {
	parts := []string{v.mountPath, kind}
	if v.dataPath != "" {
		parts = append(parts, v.dataPath)
	}
	return strings.Join(append(parts, url.PathEscape(dataID)), "/")
}
