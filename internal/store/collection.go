package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/roach88/wizard/internal/schema"
	"github.com/roach88/wizard/internal/value"
)

// Collection is a named set of documents inside a Store.
type Collection struct {
	store *Store
	name  string

	mu     sync.RWMutex
	schema *schema.Schema
}

// Name returns the collection name.
func (c *Collection) Name() string {
	return c.name
}

// AttachSchema binds a schema to the collection. Engines initialized
// without an explicit schema use it.
func (c *Collection) AttachSchema(s *schema.Schema) {
	c.mu.Lock()
	c.schema = s
	c.mu.Unlock()
}

// Schema returns the attached schema, or nil.
func (c *Collection) Schema() *schema.Schema {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.schema
}

// Insert stores rec as a new document and returns its id. A non-empty
// id key in rec is used as is; otherwise a UUIDv7 is generated. Inserting
// an id that already exists is an error.
func (c *Collection) Insert(ctx context.Context, rec value.Record) (string, error) {
	id, ok := rec.ID()
	if !ok {
		u, err := uuid.NewV7()
		if err != nil {
			return "", fmt.Errorf("insert into %s: generate id: %w", c.name, err)
		}
		id = u.String()
	}

	body, err := marshalBody(rec)
	if err != nil {
		return "", fmt.Errorf("insert into %s: %w", c.name, err)
	}

	_, err = c.store.db.ExecContext(ctx, `
		INSERT INTO documents (collection, id, body, seq)
		VALUES (?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM documents WHERE collection = ?))
	`, c.name, id, body, c.name)
	if err != nil {
		return "", fmt.Errorf("insert into %s: %w", c.name, err)
	}
	return id, nil
}

// FindOne fetches the document with the given id. The bool is false when
// no such document exists.
func (c *Collection) FindOne(ctx context.Context, id string) (value.Record, bool, error) {
	var body string
	err := c.store.db.QueryRowContext(ctx, `
		SELECT body FROM documents WHERE collection = ? AND id = ?
	`, c.name, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("find %s in %s: %w", id, c.name, err)
	}

	rec, err := unmarshalBody(id, body)
	if err != nil {
		return nil, false, err
	}
	return rec, true, nil
}

// Update merges fields into the stored document ("$set" semantics) and
// returns the number of documents changed: 1, or 0 when id is unknown.
// An id key in fields is ignored.
func (c *Collection) Update(ctx context.Context, id string, fields value.Record) (int64, error) {
	tx, err := c.store.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("update %s in %s: begin: %w", id, c.name, err)
	}
	defer tx.Rollback()

	var body string
	err = tx.QueryRowContext(ctx, `
		SELECT body FROM documents WHERE collection = ? AND id = ?
	`, c.name, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("update %s in %s: %w", id, c.name, err)
	}

	current, err := unmarshalBody(id, body)
	if err != nil {
		return 0, err
	}
	for k, v := range fields {
		if k == value.IDKey {
			continue
		}
		current[k] = v
	}

	merged, err := marshalBody(current)
	if err != nil {
		return 0, fmt.Errorf("update %s in %s: %w", id, c.name, err)
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE documents SET body = ?, rev = rev + 1
		WHERE collection = ? AND id = ?
	`, merged, c.name, id)
	if err != nil {
		return 0, fmt.Errorf("update %s in %s: %w", id, c.name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("update %s in %s: %w", id, c.name, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("update %s in %s: commit: %w", id, c.name, err)
	}
	return n, nil
}

// Remove deletes the document with the given id and returns the number of
// documents removed.
func (c *Collection) Remove(ctx context.Context, id string) (int64, error) {
	res, err := c.store.db.ExecContext(ctx, `
		DELETE FROM documents WHERE collection = ? AND id = ?
	`, c.name, id)
	if err != nil {
		return 0, fmt.Errorf("remove %s from %s: %w", id, c.name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("remove %s from %s: %w", id, c.name, err)
	}
	return n, nil
}

// Revision returns how many times the document has been written: 1 after
// insert, incremented by each Update.
func (c *Collection) Revision(ctx context.Context, id string) (int64, bool, error) {
	var rev int64
	err := c.store.db.QueryRowContext(ctx, `
		SELECT rev FROM documents WHERE collection = ? AND id = ?
	`, c.name, id).Scan(&rev)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("revision of %s in %s: %w", id, c.name, err)
	}
	return rev, true, nil
}

// List returns every document in insertion order.
// Returns an empty slice (not nil) for an empty collection.
func (c *Collection) List(ctx context.Context) ([]value.Record, error) {
	rows, err := c.store.db.QueryContext(ctx, `
		SELECT id, body FROM documents
		WHERE collection = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, c.name)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", c.name, err)
	}
	defer rows.Close()

	out := []value.Record{}
	for rows.Next() {
		var id, body string
		if err := rows.Scan(&id, &body); err != nil {
			return nil, fmt.Errorf("scan %s: %w", c.name, err)
		}
		rec, err := unmarshalBody(id, body)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", c.name, err)
	}
	return out, nil
}

// Count returns the number of documents in the collection.
func (c *Collection) Count(ctx context.Context) (int, error) {
	var n int
	err := c.store.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM documents WHERE collection = ?
	`, c.name).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", c.name, err)
	}
	return n, nil
}
