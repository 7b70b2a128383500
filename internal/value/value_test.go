package value

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordID(t *testing.T) {
	tests := []struct {
		name string
		rec  Record
		want string
		ok   bool
	}{
		{"absent", Record{"a": String("x")}, "", false},
		{"empty", Record{"id": String("")}, "", false},
		{"null", Record{"id": Null{}}, "", false},
		{"set", Record{"id": String("abc")}, "abc", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := tt.rec.ID()
			assert.Equal(t, tt.want, id)
			assert.Equal(t, tt.ok, ok)
		})
	}
}

func TestArrayAppend_LeavesOriginal(t *testing.T) {
	orig := make(Array, 1, 4)
	orig[0] = String("x")

	grown := orig.Append(String("y"))

	assert.Equal(t, Array{String("x"), String("y")}, grown)
	assert.Len(t, orig, 1)
	assert.NotSame(t, &orig[0], &grown[0])
}

func TestCloneIsShallow(t *testing.T) {
	inner := Array{String("a")}
	rec := Record{"tags": inner}
	cp := rec.Clone()
	cp["other"] = Bool(true)

	assert.NotContains(t, rec, "other")
	assert.Same(t, &inner[0], &cp["tags"].(Array)[0])
	assert.Nil(t, Record(nil).Clone())
}

func TestWithout(t *testing.T) {
	rec := Record{"id": String("1"), "a": String("x")}
	assert.Equal(t, Record{"a": String("x")}, rec.Without(IDKey))
	assert.Contains(t, rec, "id")
}

func TestText(t *testing.T) {
	assert.Equal(t, "abc", Text(String("abc")))
	assert.Equal(t, "42", Text(Number(42)))
	assert.Equal(t, "1.5", Text(Number(1.5)))
	assert.Equal(t, "true", Text(Bool(true)))
	assert.Equal(t, "", Text(Array{}))
	assert.Equal(t, "1e+20", FormatNumber(1e20))
}

func TestIsEmpty(t *testing.T) {
	assert.True(t, IsEmpty(nil))
	assert.True(t, IsEmpty(Null{}))
	assert.True(t, IsEmpty(String("")))
	assert.False(t, IsEmpty(Bool(false)))
	assert.False(t, IsEmpty(Array{}))
	assert.False(t, IsEmpty(Number(0)))
}

func TestArrayContains(t *testing.T) {
	arr := Array{String("a"), Number(2), Object{}}
	assert.True(t, arr.Contains("a"))
	assert.True(t, arr.Contains("2"))
	assert.False(t, arr.Contains("b"))
}

func TestEqual(t *testing.T) {
	a := Record{
		"name": String("x"),
		"tags": Array{Object{"label": String("a")}},
		"n":    Number(1),
	}
	b := Record{
		"n":    Number(1),
		"tags": Array{Object{"label": String("a")}},
		"name": String("x"),
	}
	assert.True(t, EqualRecords(a, b))

	b["tags"] = Array{Object{"label": String("b")}}
	assert.False(t, EqualRecords(a, b))

	assert.True(t, Equal(nil, Null{}))
	assert.True(t, Equal(Array(nil), Array{}))
	assert.False(t, Equal(String("1"), Number(1)))
	assert.False(t, EqualRecords(nil, Record{}))
	assert.False(t, EqualRecords(Record{"a": Null{}}, Record{"b": Null{}}))
}

func TestMarshalCanonical(t *testing.T) {
	rec := Record{
		"b":    String("<café>"),
		"a":    Number(2),
		"tags": Array{Object{"z": Bool(true), "y": Null{}}},
	}
	data, err := MarshalCanonical(rec)
	require.NoError(t, err)
	assert.Equal(t, `{"a":2,"b":"<café>","tags":[{"y":null,"z":true}]}`, string(data))

	_, err = MarshalCanonical(Record{"n": Number(math.NaN())})
	assert.Error(t, err)

	_, err = MarshalCanonical(struct{}{})
	assert.Error(t, err)
}

func TestMarshalCanonical_NFC(t *testing.T) {
	decomposed := "cafe\u0301"
	data, err := MarshalCanonical(String(decomposed))
	require.NoError(t, err)
	assert.Equal(t, "\"caf\u00e9\"", string(data))
}

func TestParseRecord(t *testing.T) {
	rec, err := ParseRecord([]byte(`{"id":"1","age":36,"tags":[{"label":"x"}],"ok":true,"none":null}`))
	require.NoError(t, err)

	assert.Equal(t, Record{
		"id":   String("1"),
		"age":  Number(36),
		"tags": Array{Object{"label": String("x")}},
		"ok":   Bool(true),
		"none": Null{},
	}, rec)

	_, err = ParseRecord([]byte(`[1]`))
	assert.Error(t, err)
	_, err = ParseRecord([]byte(`null`))
	assert.Error(t, err)
}

func TestRecordJSONRoundTrip(t *testing.T) {
	rec := Record{"a": Array{String("x")}, "n": Number(1.25)}
	data, err := rec.MarshalJSON()
	require.NoError(t, err)

	var back Record
	require.NoError(t, back.UnmarshalJSON(data))
	assert.True(t, EqualRecords(rec, back))
}

func TestFromAny(t *testing.T) {
	v, err := FromAny(map[string]any{
		"list": []any{"a", 1, true, nil},
		"strs": []string{"x"},
	})
	require.NoError(t, err)
	assert.Equal(t, Object{
		"list": Array{String("a"), Number(1), Bool(true), Null{}},
		"strs": Array{String("x")},
	}, v)

	_, err = FromAny(struct{}{})
	assert.Error(t, err)

	assert.Equal(t, map[string]any{"a": []any{"x"}}, RecordToAny(Record{"a": Array{String("x")}}))
}
