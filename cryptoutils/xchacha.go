package cryptoutils

import (
	"fmt"

	"github.com/ruteri/ida-persistence-engine/interfaces"
	"golang.org/x/crypto/chacha20poly1305"
)

// XChaChaName is the registry name of XChaChaProvider.
const XChaChaName = "xchacha20poly1305"

// XChaChaProvider encrypts with XChaCha20-Poly1305 using a 32-byte key and
// a 24-byte nonce stored as the IV.
type XChaChaProvider struct{}

// NewXChaChaProvider accepts only the 32-byte key size, or zero for the default.
func NewXChaChaProvider(keySize int) (*XChaChaProvider, error) {
	if keySize != 0 && keySize != chacha20poly1305.KeySize {
		return nil, interfaces.NewCryptoError("NewXChaChaProvider",
			fmt.Sprintf("invalid key size %d, XChaCha20-Poly1305 requires %d", keySize, chacha20poly1305.KeySize),
			interfaces.ErrInvalidConfiguration)
	}
	return &XChaChaProvider{}, nil
}

func (p *XChaChaProvider) Name() string { return XChaChaName }

func (p *XChaChaProvider) NewParams() (interfaces.EncryptionParams, error) {
	key, err := randomBytes("xchacha.NewParams", chacha20poly1305.KeySize)
	if err != nil {
		return interfaces.EncryptionParams{}, err
	}
	nonce, err := randomBytes("xchacha.NewParams", chacha20poly1305.NonceSizeX)
	if err != nil {
		return interfaces.EncryptionParams{}, err
	}
	return interfaces.EncryptionParams{Key: key, IV: nonce}, nil
}

func (p *XChaChaProvider) ParamsFrom(key, iv []byte) (interfaces.EncryptionParams, error) {
	err := checkParams("xchacha.ParamsFrom", key, iv, chacha20poly1305.KeySize, chacha20poly1305.NonceSizeX)
	if err != nil {
		return interfaces.EncryptionParams{}, err
	}
	return interfaces.EncryptionParams{Key: key, IV: iv}, nil
}

func (p *XChaChaProvider) Encrypt(params interfaces.EncryptionParams, data []byte) ([]byte, error) {
	if _, err := p.ParamsFrom(params.Key, params.IV); err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.NewX(params.Key)
	if err != nil {
		return nil, interfaces.NewCryptoError("xchacha.Encrypt", "failed to create cipher", err)
	}
	return aead.Seal(nil, params.IV, data, nil), nil
}

func (p *XChaChaProvider) Decrypt(params interfaces.EncryptionParams, data []byte) ([]byte, error) {
	if _, err := p.ParamsFrom(params.Key, params.IV); err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.NewX(params.Key)
	if err != nil {
		return nil, interfaces.NewCryptoError("xchacha.Decrypt", "failed to create cipher", err)
	}
	plaintext, err := aead.Open(nil, params.IV, data, nil)
	if err != nil {
		return nil, interfaces.NewCryptoError("xchacha.Decrypt", "failed to decrypt", err)
	}
	return plaintext, nil
}
