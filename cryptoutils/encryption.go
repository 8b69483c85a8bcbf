package cryptoutils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/ruteri/ida-persistence-engine/interfaces"
)

// ParamsSeparator joins the hex encoded key and IV of a serialized key record.
const ParamsSeparator = "$"

// DefaultKeySize is the key size in bytes used when none is configured.
const DefaultKeySize = 32

// ProviderConstructor creates a provider generating keys of keySize bytes.
// Providers with a fixed key size reject any other non-zero value.
type ProviderConstructor func(keySize int) (interfaces.EncryptionProvider, error)

var providers = map[string]ProviderConstructor{
	AESCBCName:  func(keySize int) (interfaces.EncryptionProvider, error) { return NewAESCBCProvider(keySize) },
	AESGCMName:  func(keySize int) (interfaces.EncryptionProvider, error) { return NewAESGCMProvider(keySize) },
	XChaChaName: func(keySize int) (interfaces.EncryptionProvider, error) { return NewXChaChaProvider(keySize) },
}

// NewEncryptionProvider creates the provider registered under name.
// A zero keySize selects the provider's default.
func NewEncryptionProvider(name string, keySize int) (interfaces.EncryptionProvider, error) {
	constructor, ok := providers[strings.ToLower(name)]
	if !ok {
		return nil, interfaces.NewCryptoError("NewEncryptionProvider",
			fmt.Sprintf("unsupported encryption provider %q", name), interfaces.ErrInvalidConfiguration)
	}
	return constructor(keySize)
}

// ProviderNames returns the supported provider names, sorted.
func ProviderNames() []string {
	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SerializeParams encodes key material as hex(key)$hex(iv).
func SerializeParams(params interfaces.EncryptionParams) string {
	return hex.EncodeToString(params.Key) + ParamsSeparator + hex.EncodeToString(params.IV)
}

// DeserializeParams reverses SerializeParams.
func DeserializeParams(serialized string) (key, iv []byte, err error) {
	keyHex, ivHex, found := strings.Cut(serialized, ParamsSeparator)
	if !found {
		return nil, nil, interfaces.NewCryptoError("DeserializeParams", "missing key separator", nil)
	}

	key, err = hex.DecodeString(keyHex)
	if err != nil {
		return nil, nil, interfaces.NewCryptoError("DeserializeParams", "invalid key encoding", err)
	}
	iv, err = hex.DecodeString(ivHex)
	if err != nil {
		return nil, nil, interfaces.NewCryptoError("DeserializeParams", "invalid iv encoding", err)
	}
	return key, iv, nil
}

func randomBytes(op string, size int) ([]byte, error) {
	buf := make([]byte, size)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return nil, interfaces.NewCryptoError(op, "failed to read random bytes", err)
	}
	return buf, nil
}

func checkParams(op string, key, iv []byte, keySize, ivSize int) error {
	if len(key) != keySize {
		return interfaces.NewCryptoError(op, fmt.Sprintf("key must be %d bytes, got %d", keySize, len(key)), nil)
	}
	if len(iv) != ivSize {
		return interfaces.NewCryptoError(op, fmt.Sprintf("iv must be %d bytes, got %d", ivSize, len(iv)), nil)
	}
	return nil
}
