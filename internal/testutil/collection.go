package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/roach88/wizard/internal/schema"
	"github.com/roach88/wizard/internal/value"
)

// CountingCollection is an in-memory collection that records how often
// each operation was called.
//
// It satisfies engine.Collection. Stored records are copied on the way in
// and out, so callers cannot alias stored state.
//
// Thread-safety: all methods are safe for concurrent use via internal mutex.
type CountingCollection struct {
	mu     sync.Mutex
	name   string
	schema *schema.Schema
	docs   map[string]value.Record
	calls  map[string]int
	fail   map[string]error
}

// NewCountingCollection creates an empty collection with s attached.
// s may be nil.
func NewCountingCollection(name string, s *schema.Schema) *CountingCollection {
	return &CountingCollection{
		name:   name,
		schema: s,
		docs:   make(map[string]value.Record),
		calls:  make(map[string]int),
		fail:   make(map[string]error),
	}
}

func (c *CountingCollection) Name() string { return c.name }

func (c *CountingCollection) Schema() *schema.Schema { return c.schema }

// FailWith makes every later call of op ("insert", "findOne", "update",
// "remove") return err. A nil err clears the failure.
func (c *CountingCollection) FailWith(op string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err == nil {
		delete(c.fail, op)
		return
	}
	c.fail[op] = err
}

// Calls returns how many times op was called.
func (c *CountingCollection) Calls(op string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[op]
}

// TotalCalls returns the number of calls of every operation together.
func (c *CountingCollection) TotalCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := 0
	for _, n := range c.calls {
		total += n
	}
	return total
}

// Put stores rec under its id without counting a call.
func (c *CountingCollection) Put(rec value.Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id, _ := rec.ID()
	c.docs[id] = rec.Clone()
}

// Get returns the stored record without counting a call.
func (c *CountingCollection) Get(id string) (value.Record, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.docs[id]
	return rec.Clone(), ok
}

func (c *CountingCollection) record(op string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls[op]++
	return c.fail[op]
}

func (c *CountingCollection) Insert(ctx context.Context, rec value.Record) (string, error) {
	if err := c.record("insert"); err != nil {
		return "", err
	}
	id, ok := rec.ID()
	if !ok {
		return "", fmt.Errorf("insert into %s: record has no id", c.name)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.docs[id]; exists {
		return "", fmt.Errorf("insert into %s: duplicate id %s", c.name, id)
	}
	c.docs[id] = rec.Clone()
	return id, nil
}

func (c *CountingCollection) FindOne(ctx context.Context, id string) (value.Record, bool, error) {
	if err := c.record("findOne"); err != nil {
		return nil, false, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.docs[id]
	if !ok {
		return nil, false, nil
	}
	return rec.Clone(), true, nil
}

func (c *CountingCollection) Update(ctx context.Context, id string, fields value.Record) (int64, error) {
	if err := c.record("update"); err != nil {
		return 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.docs[id]
	if !ok {
		return 0, nil
	}
	next := rec.Clone()
	for k, v := range fields {
		if k == value.IDKey {
			continue
		}
		next[k] = v
	}
	c.docs[id] = next
	return 1, nil
}

func (c *CountingCollection) Remove(ctx context.Context, id string) (int64, error) {
	if err := c.record("remove"); err != nil {
		return 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.docs[id]; !ok {
		return 0, nil
	}
	delete(c.docs, id)
	return 1, nil
}
