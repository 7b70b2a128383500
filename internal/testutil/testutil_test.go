package testutil

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/wizard/internal/value"
)

func TestSequentialIDGenerator_Sequence(t *testing.T) {
	gen := NewSequentialIDGenerator("contact")

	assert.Equal(t, "contact-1", gen.Generate())
	assert.Equal(t, "contact-2", gen.Generate())

	gen.Reset()
	assert.Equal(t, "contact-1", gen.Generate())
}

func TestSequentialIDGenerator_DefaultPrefix(t *testing.T) {
	gen := NewSequentialIDGenerator("")
	assert.Equal(t, "doc-1", gen.Generate())
}

func TestSequentialIDGenerator_ThreadSafe(t *testing.T) {
	gen := NewSequentialIDGenerator("t")

	var mu sync.Mutex
	seen := make(map[string]bool)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				id := gen.Generate()
				mu.Lock()
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, 1000, "every id should be unique")
}

func TestCountingCollection_CountsCalls(t *testing.T) {
	ctx := context.Background()
	c := NewCountingCollection("contacts", nil)

	id, err := c.Insert(ctx, value.Record{"id": value.String("a"), "name": value.String("Ada")})
	require.NoError(t, err)
	assert.Equal(t, "a", id)

	rec, found, err := c.FindOne(ctx, "a")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, value.String("Ada"), rec["name"])

	n, err := c.Update(ctx, "a", value.Record{"name": value.String("Grace")})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = c.Remove(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	assert.Equal(t, 1, c.Calls("insert"))
	assert.Equal(t, 1, c.Calls("findOne"))
	assert.Equal(t, 1, c.Calls("update"))
	assert.Equal(t, 1, c.Calls("remove"))
	assert.Equal(t, 4, c.TotalCalls())
}

func TestCountingCollection_PutAndGetAreNotCounted(t *testing.T) {
	c := NewCountingCollection("contacts", nil)
	c.Put(value.Record{"id": value.String("a")})

	_, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 0, c.TotalCalls())
}

func TestCountingCollection_FailWith(t *testing.T) {
	ctx := context.Background()
	c := NewCountingCollection("contacts", nil)
	boom := errors.New("disk full")

	c.FailWith("update", boom)
	_, err := c.Update(ctx, "a", value.Record{})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, c.Calls("update"), "failed calls are counted")

	c.FailWith("update", nil)
	n, err := c.Update(ctx, "a", value.Record{})
	require.NoError(t, err)
	assert.Equal(t, int64(0), n, "unknown id updates nothing")
}

func TestCountingCollection_StoredCopiesAreIsolated(t *testing.T) {
	ctx := context.Background()
	c := NewCountingCollection("contacts", nil)

	rec := value.Record{"id": value.String("a"), "name": value.String("Ada")}
	_, err := c.Insert(ctx, rec)
	require.NoError(t, err)

	rec["name"] = value.String("changed")
	got, _, err := c.FindOne(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, value.String("Ada"), got["name"])
}
