package cryptoutils

import (
	"bytes"
	"errors"
	"testing"

	"github.com/ruteri/ida-persistence-engine/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProviders_RoundTrip(t *testing.T) {
	testCases := []struct {
		name string
		data []byte
	}{
		{name: "Empty data", data: []byte{}},
		{name: "Simple string", data: []byte("This is a secret message")},
		{name: "Binary data", data: []byte{0x00, 0x01, 0x02, 0x03, 0xFF, 0xFE, 0xFD}},
		{name: "Block aligned", data: bytes.Repeat([]byte{0xAB}, 32)},
		{name: "Long data", data: make([]byte, 10_000)},
	}

	for _, providerName := range ProviderNames() {
		provider, err := NewEncryptionProvider(providerName, 0)
		require.NoError(t, err)
		assert.Equal(t, providerName, provider.Name())

		for _, tc := range testCases {
			t.Run(providerName+"/"+tc.name, func(t *testing.T) {
				params, err := provider.NewParams()
				require.NoError(t, err)

				ciphertext, err := provider.Encrypt(params, tc.data)
				require.NoError(t, err)
				if len(tc.data) > 0 {
					assert.False(t, bytes.Contains(ciphertext, tc.data))
				}

				plaintext, err := provider.Decrypt(params, ciphertext)
				require.NoError(t, err)
				assert.True(t, bytes.Equal(tc.data, plaintext))
			})
		}
	}
}

func TestProviders_FreshParams(t *testing.T) {
	for _, providerName := range ProviderNames() {
		provider, err := NewEncryptionProvider(providerName, 0)
		require.NoError(t, err)

		a, err := provider.NewParams()
		require.NoError(t, err)
		b, err := provider.NewParams()
		require.NoError(t, err)
		assert.NotEqual(t, a.Key, b.Key, providerName)
		assert.NotEqual(t, a.IV, b.IV, providerName)
	}
}

func TestProviders_WrongKeyFails(t *testing.T) {
	// CBC has no authentication, a wrong key only shows up as bad padding most of the time.
	for _, providerName := range []string{AESGCMName, XChaChaName} {
		provider, err := NewEncryptionProvider(providerName, 0)
		require.NoError(t, err)

		params, err := provider.NewParams()
		require.NoError(t, err)
		other, err := provider.NewParams()
		require.NoError(t, err)

		ciphertext, err := provider.Encrypt(params, []byte("secret"))
		require.NoError(t, err)

		_, err = provider.Decrypt(interfaces.EncryptionParams{Key: other.Key, IV: params.IV}, ciphertext)
		assert.Error(t, err, providerName)
	}
}

func TestNewEncryptionProvider(t *testing.T) {
	tests := []struct {
		name    string
		keySize int
		wantErr bool
	}{
		{AESCBCName, 16, false},
		{AESCBCName, 24, false},
		{AESCBCName, 32, false},
		{AESCBCName, 20, true},
		{AESGCMName, 16, false},
		{AESGCMName, 8, true},
		{XChaChaName, 32, false},
		{XChaChaName, 16, true},
		{"AES-CBC", 16, false},
		{"rot13", 0, true},
	}

	for _, tt := range tests {
		_, err := NewEncryptionProvider(tt.name, tt.keySize)
		if tt.wantErr {
			require.Error(t, err, "%s/%d", tt.name, tt.keySize)
			assert.True(t, errors.Is(err, interfaces.ErrInvalidConfiguration))
		} else {
			require.NoError(t, err, "%s/%d", tt.name, tt.keySize)
		}
	}
}

func TestParamsFrom(t *testing.T) {
	provider, err := NewAESCBCProvider(16)
	require.NoError(t, err)

	_, err = provider.ParamsFrom(make([]byte, 16), make([]byte, 16))
	assert.NoError(t, err)
	_, err = provider.ParamsFrom(make([]byte, 32), make([]byte, 16))
	assert.Error(t, err)
	_, err = provider.ParamsFrom(make([]byte, 16), make([]byte, 12))
	assert.Error(t, err)
}

func TestAESCBC_RejectsCorruptCiphertext(t *testing.T) {
	provider, err := NewAESCBCProvider(32)
	require.NoError(t, err)
	params, err := provider.NewParams()
	require.NoError(t, err)

	_, err = provider.Decrypt(params, []byte("short"))
	assert.Error(t, err)
	_, err = provider.Decrypt(params, nil)
	assert.Error(t, err)
}

func TestSerializeParams(t *testing.T) {
	params := interfaces.EncryptionParams{Key: []byte{0xDE, 0xAD}, IV: []byte{0xBE, 0xEF, 0x01}}

	serialized := SerializeParams(params)
	assert.Equal(t, "dead$beef01", serialized)

	key, iv, err := DeserializeParams(serialized)
	require.NoError(t, err)
	assert.Equal(t, params.Key, key)
	assert.Equal(t, params.IV, iv)
}

func TestDeserializeParams_Invalid(t *testing.T) {
	for _, input := range []string{"", "deadbeef", "zz$00", "00$zz"} {
		_, _, err := DeserializeParams(input)
		assert.Error(t, err, input)
	}
}
