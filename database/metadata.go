package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

// Metadata is the JSON blob stored alongside each collection.
type Metadata map[string]any

// CollectionMetadata tracks which collections of one type exist, together
// with their metadata. It owns a single registry table named
// "<collectionType>_collection_metadata".
type CollectionMetadata struct {
	collectionType string
	db             *sql.DB

	mu        sync.Mutex
	existence map[string]bool
}

// NewCollectionMetadata returns a registry for the given collection type.
func NewCollectionMetadata(collectionType string, db *sql.DB) *CollectionMetadata {
	return &CollectionMetadata{
		collectionType: collectionType,
		db:             db,
		existence:      make(map[string]bool),
	}
}

// TableName returns the name of the registry table.
func (m *CollectionMetadata) TableName() string {
	return fmt.Sprintf("%s_collection_metadata", m.collectionType)
}

// Create creates the registry table if it does not already exist.
func (m *CollectionMetadata) Create(ctx context.Context) error {
	query := fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (name TEXT PRIMARY KEY, metadata TEXT)",
		m.TableName())
	_, err := m.db.ExecContext(ctx, query)
	return err
}

// Exists reports whether the registry table exists.
func (m *CollectionMetadata) Exists(ctx context.Context) (bool, error) {
	var n int
	err := m.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?",
		m.TableName()).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (m *CollectionMetadata) cacheGet(name string) (bool, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.existence[name]
	return v, ok
}

func (m *CollectionMetadata) cacheSet(name string, exists bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.existence[name] = exists
}

// CollectionExists reports whether a collection with the given name has been
// registered. A missing registry table counts as not registered. Results are
// cached per name; CreateCollection and GetMetadata keep the cache current.
func (m *CollectionMetadata) CollectionExists(ctx context.Context, name string) (bool, error) {
	if v, ok := m.cacheGet(name); ok {
		return v, nil
	}
	query := fmt.Sprintf("SELECT name FROM %s WHERE name = ?", m.TableName())
	var got string
	err := m.db.QueryRowContext(ctx, query, name).Scan(&got)
	switch {
	case err == nil:
		m.cacheSet(name, true)
		return true, nil
	case errors.Is(err, sql.ErrNoRows):
		m.cacheSet(name, false)
		return false, nil
	case errors.Is(mapTableError(err), ErrCollectionMissing):
		return false, nil
	default:
		return false, err
	}
}

// CreateCollection registers a collection, creating the registry table first
// if necessary. A nil metadata is stored as an empty object.
func (m *CollectionMetadata) CreateCollection(ctx context.Context, name string, metadata Metadata) error {
	if err := m.Create(ctx); err != nil {
		return err
	}
	if metadata == nil {
		metadata = Metadata{}
	}
	encoded, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("encode metadata for %q: %w", name, err)
	}
	query := fmt.Sprintf(
		"INSERT INTO %s (name, metadata) VALUES (?, ?) ON CONFLICT(name) DO UPDATE SET metadata = excluded.metadata",
		m.TableName())
	if _, err := m.db.ExecContext(ctx, query, name, string(encoded)); err != nil {
		return err
	}
	m.cacheSet(name, true)
	return nil
}

// GetMetadata fetches the metadata for one collection. It fails with
// ErrCollectionMissing when the registry table or the row is absent, and
// updates the existence cache either way.
func (m *CollectionMetadata) GetMetadata(ctx context.Context, name string) (Metadata, error) {
	query := fmt.Sprintf("SELECT metadata FROM %s WHERE name = ?", m.TableName())
	var raw sql.NullString
	err := m.db.QueryRowContext(ctx, query, name).Scan(&raw)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		m.cacheSet(name, false)
		return nil, fmt.Errorf("collection %q: %w", name, ErrCollectionMissing)
	case errors.Is(mapTableError(err), ErrCollectionMissing):
		return nil, fmt.Errorf("collection %q: %w", name, ErrCollectionMissing)
	case err != nil:
		return nil, err
	}
	m.cacheSet(name, true)
	return decodeMetadata(raw)
}

// GetAllMetadata fetches the metadata for every registered collection of
// this type. Rows with NULL metadata are skipped.
func (m *CollectionMetadata) GetAllMetadata(ctx context.Context) (map[string]Metadata, error) {
	query := fmt.Sprintf("SELECT name, metadata FROM %s", m.TableName())
	rows, err := m.db.QueryContext(ctx, query)
	if err != nil {
		return nil, mapTableError(err)
	}
	defer func() { _ = rows.Close() }()

	all := make(map[string]Metadata)
	for rows.Next() {
		var name string
		var raw sql.NullString
		if err := rows.Scan(&name, &raw); err != nil {
			return nil, err
		}
		if !raw.Valid {
			continue
		}
		md, err := decodeMetadata(raw)
		if err != nil {
			return nil, err
		}
		all[name] = md
	}
	return all, rows.Err()
}

// SetMetadata replaces the metadata for one collection.
func (m *CollectionMetadata) SetMetadata(ctx context.Context, name string, metadata Metadata) error {
	if metadata == nil {
		metadata = Metadata{}
	}
	encoded, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("encode metadata for %q: %w", name, err)
	}
	query := fmt.Sprintf("UPDATE %s SET metadata = ? WHERE name = ?", m.TableName())
	_, err = m.db.ExecContext(ctx, query, string(encoded), name)
	return mapTableError(err)
}

func decodeMetadata(raw sql.NullString) (Metadata, error) {
	if !raw.Valid || raw.String == "" {
		return Metadata{}, nil
	}
	var md Metadata
	if err := json.Unmarshal([]byte(raw.String), &md); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	return md, nil
}
