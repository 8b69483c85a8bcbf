package interfaces

import (
	"errors"
	"fmt"
)

var (
	// ErrFragmentNotFound is returned when a fragment or its metadata record does not exist.
	ErrFragmentNotFound = errors.New("fragment not found")

	// ErrKeyNotFound is returned when no encryption key is stored for a data ID.
	ErrKeyNotFound = errors.New("encryption key not found")

	// ErrNotFullySaved is returned when at least one fragment of a save could not be stored.
	ErrNotFullySaved = errors.New("data not fully saved")

	// ErrInsufficientFragments is returned when fewer fragments than required are
	// recorded or could be retrieved.
	ErrInsufficientFragments = errors.New("not enough fragments to rebuild the data")

	// ErrUnknownRepository is returned when a metadata record points at a
	// location that is not one of the configured repositories.
	ErrUnknownRepository = errors.New("no repository found for location")

	// ErrRepositoryPoolExhausted is returned when there are fewer configured
	// repositories than fragments to place.
	ErrRepositoryPoolExhausted = errors.New("no more available repositories")

	// ErrInvalidLocationURI is returned when a repository location URI is malformed or unsupported.
	// URIs must follow the format: [scheme]://[auth@]host[:port][/path][?params]
	ErrInvalidLocationURI = errors.New("invalid repository location URI")

	// ErrInvalidConfiguration is returned when a component is built from inconsistent settings.
	ErrInvalidConfiguration = errors.New("invalid configuration")
)

func formatError(kind, op, msg string, err error) string {
	prefix := kind
	if op != "" {
		prefix = op
	}
	if err == nil {
		return prefix + ": " + msg
	}
	return fmt.Sprintf("%s: %s: %v", prefix, msg, err)
}

// AlgorithmError reports a split or combine failure, or a misconfigured algorithm.
type AlgorithmError struct {
	Op  string
	Msg string
	Err error
}

// NewAlgorithmError creates an AlgorithmError.
func NewAlgorithmError(op, msg string, err error) *AlgorithmError {
	return &AlgorithmError{Op: op, Msg: msg, Err: err}
}

func (e *AlgorithmError) Error() string { return formatError("algorithm", e.Op, e.Msg, e.Err) }

func (e *AlgorithmError) Unwrap() error { return e.Err }

// RepositoryError reports an I/O failure against one repository or store.
type RepositoryError struct {
	Op       string
	Location string
	Msg      string
	Err      error
}

// NewRepositoryError creates a RepositoryError.
func NewRepositoryError(op, location, msg string, err error) *RepositoryError {
	return &RepositoryError{Op: op, Location: location, Msg: msg, Err: err}
}

func (e *RepositoryError) Error() string {
	msg := e.Msg
	if e.Location != "" {
		msg = fmt.Sprintf("%s [%s]", e.Msg, e.Location)
	}
	return formatError("repository", e.Op, msg, e.Err)
}

func (e *RepositoryError) Unwrap() error { return e.Err }

// PersistenceError reports an orchestration-level failure: insufficient
// fragments, an unresolved repository location or a partial save.
type PersistenceError struct {
	Op     string
	DataID string
	Msg    string
	Err    error
}

// NewPersistenceError creates a PersistenceError.
func NewPersistenceError(op, dataID, msg string, err error) *PersistenceError {
	return &PersistenceError{Op: op, DataID: dataID, Msg: msg, Err: err}
}

func (e *PersistenceError) Error() string {
	msg := e.Msg
	if e.DataID != "" {
		msg = fmt.Sprintf("%s (data %q)", e.Msg, e.DataID)
	}
	return formatError("persistence", e.Op, msg, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// CryptoError reports a key generation, encryption or decryption failure.
type CryptoError struct {
	Op  string
	Msg string
	Err error
}

// NewCryptoError creates a CryptoError.
func NewCryptoError(op, msg string, err error) *CryptoError {
	return &CryptoError{Op: op, Msg: msg, Err: err}
}

func (e *CryptoError) Error() string { return formatError("crypto", e.Op, e.Msg, e.Err) }

func (e *CryptoError) Unwrap() error { return e.Err }
