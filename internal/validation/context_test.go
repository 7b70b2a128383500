package validation

import (
	"math"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/wizard/internal/reactive"
	"github.com/roach88/wizard/internal/schema"
	"github.com/roach88/wizard/internal/value"
)

func ptr[T any](v T) *T { return &v }

func testSchema(t *testing.T) *schema.Schema {
	t.Helper()
	s, err := schema.New("contacts",
		&schema.Field{Name: "name", Kind: schema.KindString, Min: ptr(2.0), Max: ptr(10.0)},
		&schema.Field{Name: "age", Kind: schema.KindNumber, Optional: true, Min: ptr(0.0), Max: ptr(130.0)},
		&schema.Field{Name: "zip", Kind: schema.KindString, Optional: true,
			Pattern: regexp.MustCompile(`^[0-9]{5}$`)},
		&schema.Field{Name: "country", Kind: schema.KindString, Optional: true,
			Allowed: []schema.Option{{Value: "FR"}, {Value: "US"}}},
		&schema.Field{Name: "colors", Kind: schema.KindArray, MaxCount: ptr(2),
			Allowed: []schema.Option{{Value: "red"}, {Value: "blue"}, {Value: "green"}}},
		&schema.Field{Name: "tags", Kind: schema.KindObjectArray, Subfields: []*schema.Field{
			{Name: "label", Kind: schema.KindString},
		}},
	)
	require.NoError(t, err)
	return s
}

func validRecord() value.Record {
	return value.Record{
		"name":    value.String("Ada"),
		"age":     value.Number(36),
		"zip":     value.String(""),
		"country": value.String("FR"),
		"colors":  value.Array{value.String("red")},
		"tags":    value.Array{value.Object{"label": value.String("x")}},
	}
}

func TestValidateAll_Valid(t *testing.T) {
	vc := NewContext(testSchema(t), "wizard")
	assert.True(t, vc.ValidateAll(validRecord()))
	assert.Empty(t, vc.InvalidFieldNames())
	assert.True(t, vc.IsValid())
}

func TestValidateAll_Codes(t *testing.T) {
	tests := []struct {
		name  string
		field string
		v     value.Value
		addr  string
		code  string
		msg   string
	}{
		{"required", "name", value.String(""), "name", CodeRequired, "Name is required"},
		{"too short", "name", value.String("A"), "name", CodeTooShort, "Name must be at least 2 characters"},
		{"too long", "name", value.String("Ada Lovelace!"), "name", CodeTooLong, "Name cannot exceed 10 characters"},
		{"not a number", "age", value.String("abc"), "age", CodeInvalidType, "Age must be of type number"},
		{"too big", "age", value.Number(200), "age", CodeTooBig, "Age cannot exceed 130"},
		{"too small", "age", value.Number(-1), "age", CodeTooSmall, "Age must be at least 0"},
		{"pattern", "zip", value.String("abc"), "zip", CodePattern, "Zip has an invalid format"},
		{"not allowed", "country", value.String("DE"), "country", CodeNotAllowed, "DE is not an allowed value"},
		{"element not allowed", "colors", value.Array{value.String("pink")}, "colors", CodeNotAllowed, "pink is not an allowed value"},
		{"too many", "colors",
			value.Array{value.String("red"), value.String("blue"), value.String("green")},
			"colors", CodeTooLong, "You cannot specify more than 2 values"},
		{"wrong container type", "colors", value.String("red"), "colors", CodeInvalidType, "Colors must be of type array"},
		{"subfield required", "tags",
			value.Array{value.Object{"label": value.String("x")}, value.Object{}},
			"tags.1.label", CodeRequired, "Label is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vc := NewContext(testSchema(t), "wizard")
			rec := validRecord()
			rec[tt.field] = tt.v

			assert.False(t, vc.ValidateAll(rec))
			assert.Equal(t, []string{tt.addr}, vc.InvalidFieldNames())
			assert.True(t, vc.KeyIsInvalid(tt.addr))
			assert.Equal(t, tt.msg, vc.MessageFor(tt.addr))
			assert.Equal(t, tt.code, vc.Issues()[0].Code)
		})
	}
}

func TestValidateAll_RejectsNonFiniteNumbers(t *testing.T) {
	for _, n := range []float64{math.Inf(1), math.Inf(-1), math.NaN()} {
		vc := NewContext(testSchema(t), "wizard")
		rec := validRecord()
		rec["age"] = value.Number(n)

		assert.False(t, vc.ValidateAll(rec))
		assert.Equal(t, []string{"age"}, vc.InvalidFieldNames())
		assert.Equal(t, CodeInvalidType, vc.Issues()[0].Code)
		assert.Equal(t, "Age must be of type number", vc.MessageFor("age"))
	}
}

func TestValidateAll_ReportsEveryRow(t *testing.T) {
	vc := NewContext(testSchema(t), "wizard")
	rec := validRecord()
	rec["name"] = value.String("")
	rec["tags"] = value.Array{
		value.Object{},
		value.String("x"),
		value.Object{"label": value.String("")},
	}

	assert.False(t, vc.ValidateAll(rec))
	assert.Equal(t, []string{"name", "tags.0.label", "tags.1", "tags.2.label"}, vc.InvalidFieldNames())
	assert.Equal(t, "Tags must be of type object", vc.MessageFor("tags.1"))
	assert.Equal(t, "Label is required", vc.MessageFor("tags.2.label"))
}

func TestValidateAll_ElementType(t *testing.T) {
	vc := NewContext(testSchema(t), "wizard")
	rec := validRecord()
	rec["colors"] = value.Array{value.Number(3)}

	assert.False(t, vc.ValidateAll(rec))
	assert.Equal(t, []string{"colors.0"}, vc.InvalidFieldNames())
	assert.Equal(t, "Colors must be of type string", vc.MessageFor("colors.0"))
}

func TestValidateAll_SchemaOrder(t *testing.T) {
	vc := NewContext(testSchema(t), "wizard")
	rec := validRecord()
	rec["aaa"] = value.String("x")
	rec["tags"] = value.Array{}
	rec["zip"] = value.String("1")
	rec["name"] = value.String("")

	assert.False(t, vc.ValidateAll(rec))
	assert.Equal(t, []string{"name", "zip", "aaa"}, vc.InvalidFieldNames())
}

func TestSubfieldRuleSeesIndexedAddress(t *testing.T) {
	s := testSchema(t)
	var seen []string
	require.NoError(t, s.AddRule("tags.$.label", func(field string, v value.Value, _ value.Record) string {
		seen = append(seen, field)
		if v == value.String("bad") {
			return "badLabel"
		}
		return ""
	}))
	vc := NewContext(s, "wizard")

	rec := validRecord()
	rec["tags"] = value.Array{
		value.Object{"label": value.String("ok")},
		value.Object{"label": value.String("bad")},
	}
	assert.False(t, vc.ValidateAll(rec))
	assert.Equal(t, []string{"tags.1.label"}, vc.InvalidFieldNames())
	assert.Equal(t, "badLabel", vc.Issues()[0].Code)
	assert.Equal(t, []string{"tags.0.label", "tags.1.label"}, seen)

	seen = nil
	assert.False(t, vc.ValidateOne(rec, "tags.1.label"))
	assert.Equal(t, []string{"tags.1.label"}, seen)
}

func TestValidateAll_UnknownKey(t *testing.T) {
	vc := NewContext(testSchema(t), "wizard")
	rec := validRecord()
	rec["bogus"] = value.String("x")
	rec["id"] = value.String("abc")

	assert.False(t, vc.ValidateAll(rec))
	assert.Equal(t, []string{"bogus"}, vc.InvalidFieldNames())
	assert.Equal(t, CodeUnknownKey, vc.Issues()[0].Code)
}

func TestValidateAll_ReplacesPreviousIssues(t *testing.T) {
	vc := NewContext(testSchema(t), "wizard")
	rec := validRecord()
	rec["name"] = value.String("")
	require.False(t, vc.ValidateAll(rec))

	assert.True(t, vc.ValidateAll(validRecord()))
	assert.Empty(t, vc.InvalidFieldNames())
}

func TestValidateOne_KeepsOtherFields(t *testing.T) {
	vc := NewContext(testSchema(t), "wizard")
	rec := validRecord()
	rec["name"] = value.String("")
	rec["age"] = value.String("abc")
	require.False(t, vc.ValidateAll(rec))
	require.Equal(t, []string{"name", "age"}, vc.InvalidFieldNames())

	rec["age"] = value.Number(3)
	assert.True(t, vc.ValidateOne(rec, "age"))
	assert.Equal(t, []string{"name"}, vc.InvalidFieldNames())
}

func TestValidateOne_IndexedAddress(t *testing.T) {
	vc := NewContext(testSchema(t), "wizard")
	rec := validRecord()
	rec["tags"] = value.Array{value.Object{"label": value.String("")}}

	assert.False(t, vc.ValidateOne(rec, "tags.0.label"))
	assert.Equal(t, []string{"tags.0.label"}, vc.InvalidFieldNames())

	rec["tags"] = value.Array{value.Object{"label": value.String("ok")}}
	assert.True(t, vc.ValidateOne(rec, "tags"))
	assert.Empty(t, vc.InvalidFieldNames())
}

func TestValidateOne_SeesSiblings(t *testing.T) {
	s := testSchema(t)
	require.NoError(t, s.AddRule("zip", func(field string, v value.Value, rec value.Record) string {
		if rec["country"] != value.String("US") {
			return "zipOnlyInUS"
		}
		return ""
	}))
	vc := NewContext(s, "wizard")

	rec := validRecord()
	rec["zip"] = value.String("12345")
	assert.False(t, vc.ValidateOne(rec, "zip"))
	assert.Equal(t, "zipOnlyInUS", vc.Issues()[0].Code)

	rec["country"] = value.String("US")
	assert.True(t, vc.ValidateOne(rec, "zip"))

	rec["zip"] = value.String("1")
	assert.False(t, vc.ValidateOne(rec, "zip"))
	assert.Equal(t, "Zip has an invalid format", vc.MessageFor("zip"))
}

func TestCustomRuleMessage(t *testing.T) {
	s := testSchema(t)
	require.NoError(t, s.AddRule("name", func(string, value.Value, value.Record) string {
		return "taken"
	}))
	vc := NewContext(s, "wizard")

	assert.False(t, vc.ValidateOne(validRecord(), "name"))
	assert.Equal(t, "Name is invalid", vc.MessageFor("name"))
	assert.Equal(t, "taken", vc.Issues()[0].Code)
}

func TestAllowedFunc_ReadsRecord(t *testing.T) {
	s := testSchema(t)
	require.NoError(t, s.SetAllowedFunc("zip", func(get value.Getter) []schema.Option {
		if get("country") == value.String("FR") {
			return []schema.Option{{Value: "75001"}}
		}
		return nil
	}))
	vc := NewContext(s, "wizard")

	rec := validRecord()
	rec["zip"] = value.String("75001")
	assert.True(t, vc.ValidateOne(rec, "zip"))

	rec["country"] = value.String("US")
	assert.False(t, vc.ValidateOne(rec, "zip"))
	assert.Equal(t, CodeNotAllowed, vc.Issues()[0].Code)
}

func TestReset(t *testing.T) {
	vc := NewContext(testSchema(t), "wizard")
	rec := validRecord()
	rec["name"] = value.String("")
	require.False(t, vc.ValidateAll(rec))

	vc.Reset()
	assert.Empty(t, vc.InvalidFieldNames())
	assert.Equal(t, "", vc.MessageFor("name"))
}

func TestReactiveInvalidation(t *testing.T) {
	vc := NewContext(testSchema(t), "wizard")

	var seen [][]string
	comp := reactive.Autorun(func(c *reactive.Computation) {
		vc.Depend(c)
		seen = append(seen, vc.InvalidFieldNames())
	})
	defer comp.Stop()

	rec := validRecord()
	rec["name"] = value.String("")
	vc.ValidateOne(rec, "name")
	vc.Reset()

	assert.Equal(t, [][]string{{}, {"name"}, {}}, seen)

	calls := 0
	unsubscribe := vc.Subscribe(func() { calls++ })
	vc.Reset()
	unsubscribe()
	vc.Reset()
	assert.Equal(t, 1, calls)
}

func TestIssuesError(t *testing.T) {
	iss := Issues{
		{Field: "a", Code: CodeRequired},
		{Field: "b", Code: CodeTooLong},
		{Field: "c", Code: CodePattern},
		{Field: "d", Code: CodeTooBig},
	}
	assert.Equal(t, "required at a; too_long at b; pattern at c; ... (total 4)", iss.Error())
	assert.Equal(t, []string{"a", "b", "c", "d"}, iss.Fields())
	assert.Equal(t, "", Issues(nil).Error())
}
