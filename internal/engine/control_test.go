package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/wizard/internal/value"
)

func TestParseControl(t *testing.T) {
	tests := []struct {
		name    string
		control Control
		want    value.Value
	}{
		{
			name:    "checkbox checked",
			control: Control{Name: "subscribed", Type: ControlCheckbox, Checked: true, Value: "ignored"},
			want:    value.Bool(true),
		},
		{
			name:    "checkbox unchecked",
			control: Control{Name: "subscribed", Type: ControlCheckbox},
			want:    value.Bool(false),
		},
		{
			name:    "multiselect",
			control: Control{Name: "colors", Type: ControlMultiSelect, Selected: []string{"red", "blue"}},
			want:    value.Array{value.String("red"), value.String("blue")},
		},
		{
			name:    "multiselect nothing selected",
			control: Control{Name: "colors", Type: ControlMultiSelect},
			want:    value.Array{},
		},
		{
			name:    "select",
			control: Control{Name: "country", Type: ControlSelect, Value: "FR"},
			want:    value.String("FR"),
		},
		{
			name:    "unknown type reads value",
			control: Control{Name: "name", Type: "textarea", Value: "Ada"},
			want:    value.String("Ada"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pair, err := ParseControl(tt.control)
			require.NoError(t, err)
			assert.Equal(t, tt.control.Name, pair.Field)
			assert.Equal(t, tt.want, pair.Value)
		})
	}
}

func TestParseControl_RequiresName(t *testing.T) {
	_, err := ParseControl(Control{Type: ControlText, Value: "x"})
	assert.ErrorContains(t, err, "has no name")
}

func TestSaveControl(t *testing.T) {
	e, _ := startEngine(t)

	require.NoError(t, e.SaveControl(Control{Name: "subscribed", Type: ControlCheckbox, Checked: true}))
	require.NoError(t, e.SaveControl(Control{Name: "age", Type: ControlText, Value: "36"}))
	require.NoError(t, e.SaveControl(Control{Name: "colors", Type: ControlMultiSelect, Selected: []string{"red"}}))

	ctx := e.Context()
	assert.Equal(t, value.Bool(true), ctx["subscribed"])
	assert.Equal(t, value.Number(36), ctx["age"])
	assert.Equal(t, value.Array{value.String("red")}, ctx["colors"])

	assert.Error(t, e.SaveControl(Control{Type: ControlText}))
}
