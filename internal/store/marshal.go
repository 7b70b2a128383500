package store

import (
	"fmt"

	json "github.com/goccy/go-json"

	"github.com/roach88/wizard/internal/value"
)

// marshalBody converts a record to canonical JSON TEXT for storage.
// The id key is stored in its own column and never in the body.
func marshalBody(rec value.Record) (string, error) {
	data, err := value.MarshalCanonical(rec.Without(value.IDKey))
	if err != nil {
		return "", fmt.Errorf("marshal body: %w", err)
	}
	return string(data), nil
}

// unmarshalBody parses a stored body and restores the id key.
func unmarshalBody(id, data string) (value.Record, error) {
	rec, err := value.ParseRecord([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("unmarshal body of %s: %w", id, err)
	}
	rec[value.IDKey] = value.String(id)
	return rec, nil
}

func marshalFields(fields []string) (string, error) {
	if fields == nil {
		fields = []string{}
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("marshal fields: %w", err)
	}
	return string(data), nil
}

func unmarshalFields(data string) ([]string, error) {
	var fields []string
	if err := json.Unmarshal([]byte(data), &fields); err != nil {
		return nil, fmt.Errorf("unmarshal fields: %w", err)
	}
	if fields == nil {
		fields = []string{}
	}
	return fields, nil
}
