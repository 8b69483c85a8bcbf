// Package metadata provides durable and in-memory stores for fragment
// placement records and per-blob encryption keys.
package metadata

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/ruteri/ida-persistence-engine/interfaces"
	_ "modernc.org/sqlite"
)

// SQLiteStore stores fragment metadata and encryption keys in a SQLite database.
// It implements both interfaces.FragmentMetadataStore and interfaces.EncryptionKeyRepository.
type SQLiteStore struct {
	db *sql.DB
}

// Open opens the database at dbPath. Plain paths get WAL journaling and a busy
// timeout, DSNs already carrying parameters are used as-is.
func Open(dbPath string) (*SQLiteStore, error) {
	dsn := dbPath
	if !strings.Contains(dsn, "?") {
		dsn += "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection serializes writers, SQLite allows only one at a time anyway.
	db.SetMaxOpenConns(1)

	return &SQLiteStore{db: db}, nil
}

// OpenAndInitialize opens the database and creates the schema.
func OpenAndInitialize(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	s, err := Open(dbPath)
	if err != nil {
		return nil, err
	}
	if err := s.Initialize(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Initialize creates the database schema
func (s *SQLiteStore) Initialize(ctx context.Context) error {
	schema := `
	-- One row per fragment of a saved blob
	CREATE TABLE IF NOT EXISTS ida_fragments (
		data_id TEXT NOT NULL,
		fragment_number INTEGER NOT NULL,
		repository_location TEXT NOT NULL,
		PRIMARY KEY (data_id, fragment_number)
	);

	-- Serialized per-blob key material, hex(key)$hex(iv)
	CREATE TABLE IF NOT EXISTS encryption_keys (
		data_id TEXT PRIMARY KEY,
		serialized_key TEXT NOT NULL
	);
	`

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// SaveFragmentMetadata inserts the record, replacing the location of an
// existing record with the same data ID and fragment number.
func (s *SQLiteStore) SaveFragmentMetadata(ctx context.Context, md interfaces.FragmentMetadata) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ida_fragments (data_id, fragment_number, repository_location)
		VALUES (?, ?, ?)
		ON CONFLICT(data_id, fragment_number) DO UPDATE SET repository_location = excluded.repository_location
	`, md.DataID, md.FragmentNumber, md.RepositoryLocation)
	if err != nil {
		return fmt.Errorf("failed to save fragment metadata %s: %w", md, err)
	}
	return nil
}

// UpdateFragmentMetadata changes the location of an existing record.
func (s *SQLiteStore) UpdateFragmentMetadata(ctx context.Context, md interfaces.FragmentMetadata) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE ida_fragments SET repository_location = ?
		WHERE data_id = ? AND fragment_number = ?
	`, md.RepositoryLocation, md.DataID, md.FragmentNumber)
	if err != nil {
		return fmt.Errorf("failed to update fragment metadata %s: %w", md, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update fragment metadata %s: %w", md, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", interfaces.ErrFragmentNotFound, md)
	}
	return nil
}

// GetAllFragmentMetadataForData returns the records of dataID ordered by fragment number.
// An unknown data ID yields an empty slice.
func (s *SQLiteStore) GetAllFragmentMetadataForData(ctx context.Context, dataID string) ([]interfaces.FragmentMetadata, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT data_id, fragment_number, repository_location
		FROM ida_fragments WHERE data_id = ?
		ORDER BY fragment_number
	`, dataID)
	if err != nil {
		return nil, fmt.Errorf("failed to query fragment metadata of %q: %w", dataID, err)
	}
	defer rows.Close()

	records := []interfaces.FragmentMetadata{}
	for rows.Next() {
		var md interfaces.FragmentMetadata
		if err := rows.Scan(&md.DataID, &md.FragmentNumber, &md.RepositoryLocation); err != nil {
			return nil, fmt.Errorf("failed to scan fragment metadata: %w", err)
		}
		records = append(records, md)
	}
	return records, rows.Err()
}

// GetFragmentMetadata returns a single record or an error wrapping ErrFragmentNotFound.
func (s *SQLiteStore) GetFragmentMetadata(ctx context.Context, dataID string, fragmentNumber int) (interfaces.FragmentMetadata, error) {
	var md interfaces.FragmentMetadata
	err := s.db.QueryRowContext(ctx, `
		SELECT data_id, fragment_number, repository_location
		FROM ida_fragments WHERE data_id = ? AND fragment_number = ?
	`, dataID, fragmentNumber).Scan(&md.DataID, &md.FragmentNumber, &md.RepositoryLocation)
	if errors.Is(err, sql.ErrNoRows) {
		return md, fmt.Errorf("%w: %q fragment %d", interfaces.ErrFragmentNotFound, dataID, fragmentNumber)
	}
	if err != nil {
		return md, fmt.Errorf("failed to get fragment metadata: %w", err)
	}
	return md, nil
}

// DeleteFragmentMetadata removes the record. Deleting a missing record is not an error.
func (s *SQLiteStore) DeleteFragmentMetadata(ctx context.Context, md interfaces.FragmentMetadata) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM ida_fragments WHERE data_id = ? AND fragment_number = ?
	`, md.DataID, md.FragmentNumber)
	if err != nil {
		return fmt.Errorf("failed to delete fragment metadata %s: %w", md, err)
	}
	return nil
}

// SaveKey stores the serialized key of dataID, replacing any previous one.
func (s *SQLiteStore) SaveKey(ctx context.Context, dataID string, serializedKey string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO encryption_keys (data_id, serialized_key) VALUES (?, ?)
		ON CONFLICT(data_id) DO UPDATE SET serialized_key = excluded.serialized_key
	`, dataID, serializedKey)
	if err != nil {
		return fmt.Errorf("failed to save key of %q: %w", dataID, err)
	}
	return nil
}

// GetKey returns the serialized key of dataID or an error wrapping ErrKeyNotFound.
func (s *SQLiteStore) GetKey(ctx context.Context, dataID string) (string, error) {
	var serialized string
	err := s.db.QueryRowContext(ctx, `SELECT serialized_key FROM encryption_keys WHERE data_id = ?`, dataID).Scan(&serialized)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %q", interfaces.ErrKeyNotFound, dataID)
	}
	if err != nil {
		return "", fmt.Errorf("failed to get key of %q: %w", dataID, err)
	}
	return serialized, nil
}

// DeleteKey removes the key of dataID. Deleting a missing key is not an error.
func (s *SQLiteStore) DeleteKey(ctx context.Context, dataID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM encryption_keys WHERE data_id = ?`, dataID); err != nil {
		return fmt.Errorf("failed to delete key of %q: %w", dataID, err)
	}
	return nil
}
