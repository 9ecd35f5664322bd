package database

import (
	"context"
	"database/sql"
	"fmt"
)

// Collection is a named group of tables sharing the prefix
// "<Type>_<name>_". Its tables are created together and its existence is
// tracked through a CollectionMetadata registry.
type Collection struct {
	collectionType string
	name           string
	db             *sql.DB
	metadata       *CollectionMetadata
	specs          []TableSpec
}

// CollectionOption configures a Collection at construction time.
type CollectionOption func(*Collection)

// WithMetadata supplies a shared CollectionMetadata registry. Without it the
// collection builds its own registry for its type.
func WithMetadata(m *CollectionMetadata) CollectionOption {
	return func(c *Collection) {
		c.metadata = m
	}
}

// NewCollection builds a collection of the given type and name over db.
func NewCollection(collectionType, name string, db *sql.DB, specs []TableSpec, opts ...CollectionOption) *Collection {
	c := &Collection{
		collectionType: collectionType,
		name:           name,
		db:             db,
		specs:          specs,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.metadata == nil {
		c.metadata = NewCollectionMetadata(collectionType, db)
	}
	return c
}

// Type returns the collection type.
func (c *Collection) Type() string { return c.collectionType }

// Name returns the collection name.
func (c *Collection) Name() string { return c.name }

// TableName builds the full table name for a bare table name.
func (c *Collection) TableName(base string) string {
	return fmt.Sprintf("%s_%s_%s", c.collectionType, c.name, base)
}

// Exists reports whether this collection has been registered.
func (c *Collection) Exists(ctx context.Context) (bool, error) {
	return c.metadata.CollectionExists(ctx, c.name)
}

// CreateTables creates every table in the collection and registers it with
// the given metadata. When the collection already exists nothing happens and
// the original metadata is preserved.
func (c *Collection) CreateTables(ctx context.Context, metadata Metadata) error {
	exists, err := c.Exists(ctx)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, spec := range c.specs {
		if _, err := tx.ExecContext(ctx, spec.createSQL(c.TableName(spec.Name))); err != nil {
			return fmt.Errorf("create table %s: %w", c.TableName(spec.Name), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	return c.metadata.CreateCollection(ctx, c.name, metadata)
}

// GetMetadata fetches this collection's metadata.
func (c *Collection) GetMetadata(ctx context.Context) (Metadata, error) {
	return c.metadata.GetMetadata(ctx, c.name)
}

// SetMetadata replaces this collection's metadata.
func (c *Collection) SetMetadata(ctx context.Context, metadata Metadata) error {
	return c.metadata.SetMetadata(ctx, c.name, metadata)
}

func (c *Collection) guard(ctx context.Context) error {
	exists, err := c.Exists(ctx)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("collection %q: %w", c.name, ErrCollectionMissing)
	}
	return nil
}

// Query runs a query against the collection's tables. It fails with
// ErrCollectionMissing when the collection has not been created.
func (c *Collection) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	if err := c.guard(ctx); err != nil {
		return nil, err
	}
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapTableError(err)
	}
	return rows, nil
}

// QueryRow runs a single-row query after the same existence guard as Query.
// The guard error, if any, surfaces from the returned row's Scan.
func (c *Collection) QueryRow(ctx context.Context, query string, args ...any) (*sql.Row, error) {
	if err := c.guard(ctx); err != nil {
		return nil, err
	}
	return c.db.QueryRowContext(ctx, query, args...), nil
}

// Exec runs a statement against the collection's tables. It fails with
// ErrCollectionMissing when the collection has not been created.
func (c *Collection) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if err := c.guard(ctx); err != nil {
		return nil, err
	}
	res, err := c.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, mapTableError(err)
	}
	return res, nil
}
