// Package interfaces defines the core contracts and types of the dispersal
// persistence engine, separating interface definitions from implementations.
//
// # Storage Interfaces
//
// FragmentRepository: a storage endpoint, identified by a unique location URI,
// that saves, loads and deletes named fragment blobs (file, S3, MinIO, IPFS,
// in-memory).
//
// FragmentMetadataStore: the durable index mapping (data ID, fragment number)
// to the location of the repository holding that fragment.
//
// # Dispersal Interfaces
//
// DispersalAlgorithm: splits data into N fragments and reconstructs it from any
// N-R of them, tagged with their original fragment numbers.
//
// # Crypto Interfaces
//
// EncryptionProvider: generates random key material and encrypts/decrypts blobs.
//
// EncryptionKeyRepository: persists the serialized key material per data ID.
//
// # Service Interfaces
//
// PersistenceService: saves, loads and deletes whole blobs.
//
// # Errors
//
// Failures are reported with three error types: AlgorithmError for split and
// combine failures, RepositoryError for I/O against a single repository or
// store, and PersistenceError for orchestration-level failures. CryptoError
// covers key generation and cipher failures. Each wraps its cause and can be
// matched against the sentinel errors with errors.Is.
package interfaces
