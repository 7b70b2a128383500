package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/wizard/internal/store"
	"github.com/roach88/wizard/internal/value"
)

func setupTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(t.TempDir() + "/wizard.db")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestEngine_SQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	st := setupTestStore(t)
	coll := st.Collection("contacts")
	coll.AttachSchema(contactSchema(t))
	require.NoError(t, st.SetVisibleFields(ctx, "contacts", []string{"name", "age", "tags.$.label"}))

	e := New(WithLogger(quietLogger()), WithDefinitions(st), WithIDGenerator(NewFixedGenerator("c1")))
	runEngine(t, e)
	require.NoError(t, e.Init(ctx, Config{Collection: coll}))

	assert.True(t, e.IsFieldActive("tags.0.label"))
	assert.False(t, e.IsFieldActive("colors"))

	require.NoError(t, e.ProcessFieldValuePair("name", value.String("Ada")))
	require.NoError(t, e.ProcessFieldValuePair("age", value.String("36")))
	require.NoError(t, e.ProcessFieldValuePair("tags", value.Object{"label": value.String("vip")}))

	op, err := e.Create(ctx)
	require.NoError(t, err)
	waitOp(t, op)

	changed, err := e.HasChanged(ctx)
	require.NoError(t, err)
	assert.False(t, changed, "stored copy matches after create")

	require.NoError(t, e.ProcessFieldValuePair("tags.0.label", value.String("gold")))
	op, err = e.Save(ctx)
	require.NoError(t, err)
	waitOp(t, op)

	rev, found, err := coll.Revision(ctx, "c1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, int64(2), rev)

	// A second engine sees the saved document.
	other := New(WithLogger(quietLogger()))
	runEngine(t, other)
	require.NoError(t, other.Init(ctx, Config{Collection: coll, ID: "c1"}))
	assert.Equal(t, StateEditing, other.State())
	assert.True(t, value.EqualRecords(e.Context(), other.Context()))

	got, ok := other.FieldValue("tags.0.label")
	require.True(t, ok)
	assert.Equal(t, value.String("gold"), got)
	assert.Equal(t, value.Number(36), other.Context()["age"])
}

func TestEngine_DecomposedTextIsUnchangedAfterCreate(t *testing.T) {
	ctx := context.Background()
	st := setupTestStore(t)
	coll := st.Collection("contacts")

	e := New(WithLogger(quietLogger()), WithIDGenerator(NewFixedGenerator("n1")))
	runEngine(t, e)
	require.NoError(t, e.Init(ctx, Config{Collection: coll, Schema: contactSchema(t)}))

	require.NoError(t, e.ProcessFieldValuePair("name", value.String("Jose\u0301")))
	assert.Equal(t, value.String("Jos\u00e9"), e.Context()["name"])

	op, err := e.Create(ctx)
	require.NoError(t, err)
	waitOp(t, op)

	changed, err := e.HasChanged(ctx)
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestEngine_SQLitePureDriver(t *testing.T) {
	ctx := context.Background()
	st, err := store.OpenDriver(store.DriverPure, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	coll := st.Collection("contacts")
	e := New(WithLogger(quietLogger()), WithIDGenerator(NewFixedGenerator("p1")))
	runEngine(t, e)
	require.NoError(t, e.Init(ctx, Config{Collection: coll, Schema: contactSchema(t)}))

	require.NoError(t, e.ProcessFieldValuePair("name", value.String("Grace")))
	op, err := e.Create(ctx)
	require.NoError(t, err)
	waitOp(t, op)

	op, err = e.Remove(ctx)
	require.NoError(t, err)
	waitOp(t, op)
	assert.Equal(t, int64(1), op.Affected())

	n, err := coll.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
