package cryptoutils

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"fmt"

	"github.com/ruteri/ida-persistence-engine/interfaces"
)

// AESCBCName is the registry name of AESCBCProvider.
const AESCBCName = "aes-cbc"

// AESCBCProvider encrypts with AES in CBC mode and PKCS#7 padding.
// The key is random per blob and the IV is one AES block.
type AESCBCProvider struct {
	keySize int
}

// NewAESCBCProvider accepts key sizes of 16, 24 or 32 bytes.
func NewAESCBCProvider(keySize int) (*AESCBCProvider, error) {
	if keySize == 0 {
		keySize = DefaultKeySize
	}
	switch keySize {
	case 16, 24, 32:
	default:
		return nil, interfaces.NewCryptoError("NewAESCBCProvider",
			fmt.Sprintf("invalid AES key size %d", keySize), interfaces.ErrInvalidConfiguration)
	}
	return &AESCBCProvider{keySize: keySize}, nil
}

func (p *AESCBCProvider) Name() string { return AESCBCName }

func (p *AESCBCProvider) NewParams() (interfaces.EncryptionParams, error) {
	key, err := randomBytes("aes-cbc.NewParams", p.keySize)
	if err != nil {
		return interfaces.EncryptionParams{}, err
	}
	iv, err := randomBytes("aes-cbc.NewParams", aes.BlockSize)
	if err != nil {
		return interfaces.EncryptionParams{}, err
	}
	return interfaces.EncryptionParams{Key: key, IV: iv}, nil
}

func (p *AESCBCProvider) ParamsFrom(key, iv []byte) (interfaces.EncryptionParams, error) {
	if err := checkParams("aes-cbc.ParamsFrom", key, iv, p.keySize, aes.BlockSize); err != nil {
		return interfaces.EncryptionParams{}, err
	}
	return interfaces.EncryptionParams{Key: key, IV: iv}, nil
}

func (p *AESCBCProvider) Encrypt(params interfaces.EncryptionParams, data []byte) ([]byte, error) {
	block, err := p.block("aes-cbc.Encrypt", params)
	if err != nil {
		return nil, err
	}

	padding := aes.BlockSize - len(data)%aes.BlockSize
	padded := make([]byte, len(data)+padding)
	copy(padded, data)
	copy(padded[len(data):], bytes.Repeat([]byte{byte(padding)}, padding))

	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, params.IV).CryptBlocks(ciphertext, padded)
	return ciphertext, nil
}

func (p *AESCBCProvider) Decrypt(params interfaces.EncryptionParams, data []byte) ([]byte, error) {
	block, err := p.block("aes-cbc.Decrypt", params)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 || len(data)%aes.BlockSize != 0 {
		return nil, interfaces.NewCryptoError("aes-cbc.Decrypt",
			fmt.Sprintf("ciphertext length %d is not a multiple of the block size", len(data)), nil)
	}

	plaintext := make([]byte, len(data))
	cipher.NewCBCDecrypter(block, params.IV).CryptBlocks(plaintext, data)

	padding := int(plaintext[len(plaintext)-1])
	if padding == 0 || padding > aes.BlockSize {
		return nil, interfaces.NewCryptoError("aes-cbc.Decrypt", "invalid padding", nil)
	}
	for _, b := range plaintext[len(plaintext)-padding:] {
		if int(b) != padding {
			return nil, interfaces.NewCryptoError("aes-cbc.Decrypt", "invalid padding", nil)
		}
	}
	return plaintext[:len(plaintext)-padding], nil
}

func (p *AESCBCProvider) block(op string, params interfaces.EncryptionParams) (cipher.Block, error) {
	if err := checkParams(op, params.Key, params.IV, p.keySize, aes.BlockSize); err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(params.Key)
	if err != nil {
		return nil, interfaces.NewCryptoError(op, "failed to create cipher", err)
	}
	return block, nil
}
