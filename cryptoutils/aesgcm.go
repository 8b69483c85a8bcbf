package cryptoutils

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"

	"github.com/ruteri/ida-persistence-engine/interfaces"
)

// AESGCMName is the registry name of AESGCMProvider.
const AESGCMName = "aes-gcm"

const gcmNonceSize = 12

// AESGCMProvider encrypts with AES-GCM. The stored IV is the 12-byte nonce,
// which is safe to reuse only because every blob gets a fresh key.
type AESGCMProvider struct {
	keySize int
}

// NewAESGCMProvider accepts key sizes of 16, 24 or 32 bytes.
func NewAESGCMProvider(keySize int) (*AESGCMProvider, error) {
	if keySize == 0 {
		keySize = DefaultKeySize
	}
	switch keySize {
	case 16, 24, 32:
	default:
		return nil, interfaces.NewCryptoError("NewAESGCMProvider",
			fmt.Sprintf("invalid AES key size %d", keySize), interfaces.ErrInvalidConfiguration)
	}
	return &AESGCMProvider{keySize: keySize}, nil
}

func (p *AESGCMProvider) Name() string { return AESGCMName }

func (p *AESGCMProvider) NewParams() (interfaces.EncryptionParams, error) {
	key, err := randomBytes("aes-gcm.NewParams", p.keySize)
	if err != nil {
		return interfaces.EncryptionParams{}, err
	}
	nonce, err := randomBytes("aes-gcm.NewParams", gcmNonceSize)
	if err != nil {
		return interfaces.EncryptionParams{}, err
	}
	return interfaces.EncryptionParams{Key: key, IV: nonce}, nil
}

func (p *AESGCMProvider) ParamsFrom(key, iv []byte) (interfaces.EncryptionParams, error) {
	if err := checkParams("aes-gcm.ParamsFrom", key, iv, p.keySize, gcmNonceSize); err != nil {
		return interfaces.EncryptionParams{}, err
	}
	return interfaces.EncryptionParams{Key: key, IV: iv}, nil
}

func (p *AESGCMProvider) Encrypt(params interfaces.EncryptionParams, data []byte) ([]byte, error) {
	aead, err := p.aead("aes-gcm.Encrypt", params)
	if err != nil {
		return nil, err
	}
	return aead.Seal(nil, params.IV, data, nil), nil
}

func (p *AESGCMProvider) Decrypt(params interfaces.EncryptionParams, data []byte) ([]byte, error) {
	aead, err := p.aead("aes-gcm.Decrypt", params)
	if err != nil {
		return nil, err
	}
	plaintext, err := aead.Open(nil, params.IV, data, nil)
	if err != nil {
		return nil, interfaces.NewCryptoError("aes-gcm.Decrypt", "failed to decrypt", err)
	}
	return plaintext, nil
}

func (p *AESGCMProvider) aead(op string, params interfaces.EncryptionParams) (cipher.AEAD, error) {
	if err := checkParams(op, params.Key, params.IV, p.keySize, gcmNonceSize); err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(params.Key)
	if err != nil {
		return nil, interfaces.NewCryptoError(op, "failed to create cipher", err)
	}

	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return nil, interfaces.NewCryptoError(op, "failed to create GCM", err)
	}
	return aesGCM, nil
}
