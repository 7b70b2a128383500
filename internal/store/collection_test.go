package store

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/wizard/internal/schema"
	"github.com/roach88/wizard/internal/value"
)

func TestInsert_GeneratesUUIDv7(t *testing.T) {
	ctx := context.Background()
	c := createTestStore(t).Collection("contacts")

	id, err := c.Insert(ctx, value.Record{"name": value.String("Ada")})
	require.NoError(t, err)

	u, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), u.Version())

	got, ok, err := c.FindOne(ctx, id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, value.Record{"id": value.String(id), "name": value.String("Ada")}, got)
}

func TestInsert_UsesGivenID(t *testing.T) {
	ctx := context.Background()
	c := createTestStore(t).Collection("contacts")

	id, err := c.Insert(ctx, value.Record{"id": value.String("doc-1"), "n": value.Number(1)})
	require.NoError(t, err)
	assert.Equal(t, "doc-1", id)

	_, err = c.Insert(ctx, value.Record{"id": value.String("doc-1")})
	assert.Error(t, err, "duplicate id must fail")
}

func TestFindOne_Missing(t *testing.T) {
	c := createTestStore(t).Collection("contacts")
	got, ok, err := c.FindOne(context.Background(), "nope")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestCollections_AreIsolated(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	_, err := s.Collection("a").Insert(ctx, value.Record{"id": value.String("1")})
	require.NoError(t, err)
	_, err = s.Collection("b").Insert(ctx, value.Record{"id": value.String("1")})
	require.NoError(t, err, "same id in another collection")

	_, ok, err := s.Collection("c").FindOne(ctx, "1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUpdate_MergesFields(t *testing.T) {
	ctx := context.Background()
	c := createTestStore(t).Collection("contacts")

	id, err := c.Insert(ctx, value.Record{
		"name":    value.String("Ada"),
		"country": value.String("UK"),
	})
	require.NoError(t, err)

	n, err := c.Update(ctx, id, value.Record{
		"id":      value.String("ignored"),
		"country": value.String("FR"),
		"tags":    value.Array{value.Object{"label": value.String("x")}},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, _, err := c.FindOne(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, value.Record{
		"id":      value.String(id),
		"name":    value.String("Ada"),
		"country": value.String("FR"),
		"tags":    value.Array{value.Object{"label": value.String("x")}},
	}, got)

	rev, ok, err := c.Revision(ctx, id)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(2), rev)
}

func TestUpdate_Missing(t *testing.T) {
	c := createTestStore(t).Collection("contacts")
	n, err := c.Update(context.Background(), "nope", value.Record{"a": value.String("x")})
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	c := createTestStore(t).Collection("contacts")

	id, err := c.Insert(ctx, value.Record{"name": value.String("Ada")})
	require.NoError(t, err)

	n, err := c.Remove(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = c.Remove(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	_, ok, err := c.FindOne(ctx, id)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestList_InsertionOrder(t *testing.T) {
	ctx := context.Background()
	c := createTestStore(t).Collection("contacts")

	empty, err := c.List(ctx)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	for _, id := range []string{"c", "a", "b"} {
		_, err := c.Insert(ctx, value.Record{"id": value.String(id)})
		require.NoError(t, err)
	}

	docs, err := c.List(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 3)
	var ids []string
	for _, d := range docs {
		id, _ := d.ID()
		ids = append(ids, id)
	}
	assert.Equal(t, []string{"c", "a", "b"}, ids)

	n, err := c.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestAttachSchema(t *testing.T) {
	s := createTestStore(t)
	sch := schema.MustNew("contacts", &schema.Field{Name: "name", Kind: schema.KindString})

	assert.Nil(t, s.Collection("contacts").Schema())
	s.Collection("contacts").AttachSchema(sch)
	assert.Same(t, sch, s.Collection("contacts").Schema())
}

func TestPureDriver_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := OpenDriver(DriverPure, ":memory:")
	require.NoError(t, err)
	defer s.Close()
	c := s.Collection("contacts")

	id, err := c.Insert(ctx, value.Record{"age": value.Number(36), "ok": value.Bool(true)})
	require.NoError(t, err)
	_, err = c.Update(ctx, id, value.Record{"age": value.Number(37)})
	require.NoError(t, err)

	got, ok, err := c.FindOne(ctx, id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, value.Number(37), got["age"])
	assert.Equal(t, value.Bool(true), got["ok"])
}
