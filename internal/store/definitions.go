package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// SetVisibleFields stores the visible-field list of a collection's form.
// Paths use schema form ("tags.$.label"). Writing the same collection
// again replaces the list.
func (s *Store) SetVisibleFields(ctx context.Context, collection string, fields []string) error {
	data, err := marshalFields(fields)
	if err != nil {
		return fmt.Errorf("set visible fields of %s: %w", collection, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO definitions (collection, visible_fields)
		VALUES (?, ?)
		ON CONFLICT(collection) DO UPDATE SET visible_fields = excluded.visible_fields
	`, collection, data)
	if err != nil {
		return fmt.Errorf("set visible fields of %s: %w", collection, err)
	}
	return nil
}

// VisibleFields returns the visible-field list of a collection. The bool
// is false when the collection has no definition.
func (s *Store) VisibleFields(ctx context.Context, collection string) ([]string, bool, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `
		SELECT visible_fields FROM definitions WHERE collection = ?
	`, collection).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("visible fields of %s: %w", collection, err)
	}

	fields, err := unmarshalFields(data)
	if err != nil {
		return nil, false, fmt.Errorf("visible fields of %s: %w", collection, err)
	}
	return fields, true, nil
}
