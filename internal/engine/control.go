package engine

import (
	"fmt"

	"github.com/roach88/wizard/internal/value"
)

// ControlType is the kind of form control a value comes from.
type ControlType string

const (
	ControlText        ControlType = "text"
	ControlCheckbox    ControlType = "checkbox"
	ControlSelect      ControlType = "select"
	ControlMultiSelect ControlType = "multiselect"
)

// Control describes the state of a form control when it changed.
type Control struct {
	// Name is the field address the control is bound to.
	Name string
	Type ControlType

	Value    string   // text, select and unknown types
	Checked  bool     // checkbox
	Selected []string // multiselect, in option order
}

// FieldValuePair is a field address and the raw value to write there.
type FieldValuePair struct {
	Field string
	Value value.Value
}

// ParseControl reads the raw value of a control. Checkboxes yield their
// checked state, multi-selects the list of selected option values, every
// other control its text value.
func ParseControl(c Control) (FieldValuePair, error) {
	if c.Name == "" {
		return FieldValuePair{}, fmt.Errorf("control of type %q has no name", c.Type)
	}

	switch c.Type {
	case ControlCheckbox:
		return FieldValuePair{Field: c.Name, Value: value.Bool(c.Checked)}, nil
	case ControlMultiSelect:
		arr := make(value.Array, len(c.Selected))
		for i, s := range c.Selected {
			arr[i] = value.String(s)
		}
		return FieldValuePair{Field: c.Name, Value: arr}, nil
	default:
		return FieldValuePair{Field: c.Name, Value: value.String(c.Value)}, nil
	}
}

// SaveControl parses c and processes the resulting pair.
func (e *Engine) SaveControl(c Control) error {
	pair, err := ParseControl(c)
	if err != nil {
		return err
	}
	return e.ProcessFieldValuePair(pair.Field, pair.Value)
}
