// Package cryptoutils provides the symmetric encryption providers used to
// encrypt blobs before dispersal.
//
// Every blob is encrypted with freshly generated key material. The key and
// IV are persisted together as a single string, hex(key) + "$" + hex(iv),
// by the encryption key repository.
//
// # Providers
//
//   - aes-cbc: AES in CBC mode with PKCS#7 padding, 128, 192 or 256 bit keys
//     and a random 16 byte IV
//   - aes-gcm: AES-GCM with a 256 bit key and a random 12 byte nonce as IV
//   - xchacha20poly1305: XChaCha20-Poly1305 with a 256 bit key and a random
//     24 byte nonce as IV
//
// The AEAD providers detect tampering and wrong keys on decryption. The CBC
// provider only detects invalid padding.
package cryptoutils
