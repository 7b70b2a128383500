package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/wizard/internal/value"
)

func TestClean_Coercion(t *testing.T) {
	s := contactSchema(t)
	keep := CleanOptions{PreserveEmptyStrings: true}

	tests := []struct {
		name  string
		field string
		in    value.Value
		want  value.Value
	}{
		{"trim string", "name", value.String("  Ada "), value.String("Ada")},
		{"number to string field", "name", value.Number(7), value.String("7")},
		{"numeric text", "age", value.String(" 42 "), value.Number(42)},
		{"decimal text", "age", value.String("1.5"), value.Number(1.5)},
		{"bad numeric text stays raw", "age", value.String("abc"), value.String("abc")},
		{"empty number", "age", value.String(""), value.String("")},
		{"checkbox on", "subscribed", value.String("on"), value.Bool(true)},
		{"checkbox empty", "subscribed", value.String(""), value.Bool(false)},
		{"bool passes", "subscribed", value.Bool(true), value.Bool(true)},
		{"scalar wrapped", "colors", value.String("red"), value.Array{value.String("red")}},
		{"empty scalar to empty array", "colors", value.String(""), value.Array{}},
		{"array elements trimmed", "colors",
			value.Array{value.String(" red"), value.String("")},
			value.Array{value.String("red")}},
		{"null array", "colors", value.Null{}, value.Array{}},
		{"single object not wrapped", "tags",
			value.Object{"label": value.String(" y "), "weight": value.String("3")},
			value.Object{"label": value.String("y"), "weight": value.Number(3)}},
		{"indexed subfield", "tags.1.weight", value.String("2"), value.Number(2)},
		{"infinity stays raw", "age", value.String("Inf"), value.String("Inf")},
		{"signed infinity stays raw", "age", value.String("-infinity"), value.String("-infinity")},
		{"nan stays raw", "age", value.String("NaN"), value.String("NaN")},
		{"overflow stays raw", "age", value.String("1e999"), value.String("1e999")},
		{"decomposed to NFC", "name", value.String("Jose\u0301"), value.String("Jos\u00e9")},
		{"array element to NFC", "colors",
			value.Array{value.String("be\u0301ige")},
			value.Array{value.String("b\u00e9ige")}},
		{"subfield to NFC", "tags",
			value.Array{value.Object{"label": value.String("cafe\u0301")}},
			value.Array{value.Object{"label": value.String("caf\u00e9")}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Clean(value.Record{tt.field: tt.in}, keep)
			assert.Equal(t, tt.want, got[tt.field])
		})
	}
}

func TestClean_EmptyStrings(t *testing.T) {
	s := contactSchema(t)
	in := value.Record{"name": value.String(" "), "region": value.String("")}

	dropped := s.Clean(in, CleanOptions{})
	assert.Empty(t, dropped)

	kept := s.Clean(in, CleanOptions{PreserveEmptyStrings: true})
	assert.Equal(t, value.Record{"name": value.String(""), "region": value.String("")}, kept)
}

func TestClean_UnknownAndID(t *testing.T) {
	s := contactSchema(t)
	in := value.Record{
		"id":    value.String("abc"),
		"bogus": value.String("x"),
		"tags": value.Array{
			value.Object{"label": value.String("a"), "extra": value.Bool(true)},
		},
	}

	got := s.Clean(in, CleanOptions{PreserveEmptyStrings: true})
	assert.Equal(t, value.Record{
		"id":   value.String("abc"),
		"tags": value.Array{value.Object{"label": value.String("a")}},
	}, got)

	got = s.Clean(in, CleanOptions{KeepUnknown: true})
	assert.Equal(t, value.String("x"), got["bogus"])
}

func TestClean_DoesNotModifyInput(t *testing.T) {
	s := contactSchema(t)
	tags := value.Array{value.Object{"label": value.String(" a ")}}
	in := value.Record{"tags": tags}

	_ = s.Clean(in, CleanOptions{PreserveEmptyStrings: true})

	assert.Equal(t, value.String(" a "), tags[0].(value.Object)["label"])
}
