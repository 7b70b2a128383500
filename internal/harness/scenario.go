package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario is one end-to-end form editing session.
type Scenario struct {
	// Name uniquely identifies this scenario; it names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Schema is the CUE file declaring the form schema.
	// Relative paths are resolved against the scenario file location.
	Schema string `yaml:"schema"`

	// SchemaName selects a schema when the file declares several.
	SchemaName string `yaml:"schema_name,omitempty"`

	// Collection names the store collection. Defaults to the schema name.
	Collection string `yaml:"collection,omitempty"`

	// VisibleFields is stored as the collection's form definition.
	VisibleFields []string `yaml:"visible_fields,omitempty"`

	// Documents are inserted into the collection before Init.
	// Each must carry an id.
	Documents []map[string]any `yaml:"documents,omitempty"`

	// IDPrefix prefixes generated document ids. Defaults to "doc".
	IDPrefix string `yaml:"id_prefix,omitempty"`

	Init InitClause `yaml:"init,omitempty"`

	Steps []Step `yaml:"steps"`

	Assertions []Assertion `yaml:"assertions"`
}

// InitClause configures the Init call.
type InitClause struct {
	ID       string `yaml:"id,omitempty"`
	Template string `yaml:"template,omitempty"`
	Modal    bool   `yaml:"modal,omitempty"`
}

// Step is one engine call.
type Step struct {
	// Action is one of the Action* constants.
	Action string `yaml:"action"`

	// Field and Value are used by set.
	Field string `yaml:"field,omitempty"`
	Value any    `yaml:"value,omitempty"`

	// Control is used by control.
	Control *ControlClause `yaml:"control,omitempty"`

	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ControlClause describes a form control for the control action.
type ControlClause struct {
	Name     string   `yaml:"name"`
	Type     string   `yaml:"type"`
	Value    string   `yaml:"value,omitempty"`
	Checked  bool     `yaml:"checked,omitempty"`
	Selected []string `yaml:"selected,omitempty"`
}

// ExpectClause checks the outcome of a step.
type ExpectClause struct {
	// Outcome is "ok" or an engine error code such as VALIDATION_FAILED.
	Outcome string `yaml:"outcome,omitempty"`

	// Invalid is the exact set of invalid fields after the step.
	Invalid []string `yaml:"invalid,omitempty"`

	// Changed is the expected has_changed result.
	Changed *bool `yaml:"changed,omitempty"`
}

// Assertion validates the final state of a scenario.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Field is used by message.
	Field string `yaml:"field,omitempty"`

	// Fields is used by invalid and active.
	Fields []string `yaml:"fields,omitempty"`

	// Expect holds expected field values (context, stored).
	// Subset match: only the listed fields are compared.
	Expect map[string]any `yaml:"expect,omitempty"`

	// Message is used by message.
	Message string `yaml:"message,omitempty"`

	// State is used by state.
	State string `yaml:"state,omitempty"`

	// ID and Absent are used by stored.
	ID     string `yaml:"id,omitempty"`
	Absent bool   `yaml:"absent,omitempty"`
}

// Step actions.
const (
	ActionSet        = "set"
	ActionControl    = "control"
	ActionCreate     = "create"
	ActionSave       = "save"
	ActionRemove     = "remove"
	ActionHasChanged = "has_changed"
	ActionDiscard    = "discard"
	ActionReset      = "reset"
)

// Assertion types.
const (
	AssertContext = "context"
	AssertInvalid = "invalid"
	AssertMessage = "message"
	AssertState   = "state"
	AssertStored  = "stored"
	AssertActive  = "active"
)

// OutcomeOK is the outcome of a step that returned no error.
const OutcomeOK = "ok"

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data, filepath.Dir(path))
}

// ParseScenario parses scenario YAML. A relative schema path is resolved
// against baseDir.
func ParseScenario(data []byte, baseDir string) (*Scenario, error) {
	var sc Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // catches typos like "assertion:" vs "assertions:"
	if err := decoder.Decode(&sc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if sc.Schema != "" && !filepath.IsAbs(sc.Schema) && baseDir != "" {
		sc.Schema = filepath.Join(baseDir, sc.Schema)
	}

	if err := validateScenario(&sc); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &sc, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Schema == "" {
		return fmt.Errorf("schema is required")
	}
	if _, err := os.Stat(s.Schema); os.IsNotExist(err) {
		return fmt.Errorf("schema file not found: %s", s.Schema)
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, doc := range s.Documents {
		if id, ok := doc["id"].(string); !ok || id == "" {
			return fmt.Errorf("documents[%d]: id is required", i)
		}
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, s *Step) error {
	switch s.Action {
	case ActionSet:
		if s.Field == "" {
			return fmt.Errorf("steps[%d]: field is required for set", index)
		}
	case ActionControl:
		if s.Control == nil || s.Control.Name == "" {
			return fmt.Errorf("steps[%d]: control with a name is required for control", index)
		}
	case ActionCreate, ActionSave, ActionRemove, ActionHasChanged, ActionDiscard, ActionReset:
	case "":
		return fmt.Errorf("steps[%d]: action is required", index)
	default:
		return fmt.Errorf("steps[%d]: unknown action %q", index, s.Action)
	}

	if s.Expect != nil && s.Expect.Changed != nil && s.Action != ActionHasChanged {
		return fmt.Errorf("steps[%d].expect: changed is only valid for has_changed", index)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case AssertContext:
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for context", index)
		}
	case AssertInvalid:
		// An empty list asserts the context is valid.
	case AssertMessage:
		if a.Field == "" {
			return fmt.Errorf("assertions[%d]: field is required for message", index)
		}
	case AssertState:
		switch a.State {
		case "uninitialized", "new", "editing":
		default:
			return fmt.Errorf("assertions[%d]: unknown state %q", index, a.State)
		}
	case AssertStored:
		if a.ID == "" {
			return fmt.Errorf("assertions[%d]: id is required for stored", index)
		}
		if !a.Absent && len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: stored needs expect or absent", index)
		}
	case AssertActive:
		if len(a.Fields) == 0 {
			return fmt.Errorf("assertions[%d]: fields is required for active", index)
		}
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
