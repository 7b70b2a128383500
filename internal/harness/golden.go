package harness

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/wizard/internal/value"
)

// TraceSnapshot captures the trace and final context of a scenario run.
// It is serialized with canonical JSON for deterministic comparison.
type TraceSnapshot struct {
	ScenarioName string
	Trace        []TraceEvent
	Context      value.Record
}

// toCanonical converts the snapshot to a value.Object, the shape
// value.MarshalCanonical serializes.
func (s *TraceSnapshot) toCanonical() value.Object {
	trace := make(value.Array, len(s.Trace))
	for i, ev := range s.Trace {
		obj := value.Object{
			"seq":     value.Number(ev.Seq),
			"action":  value.String(ev.Action),
			"outcome": value.String(ev.Outcome),
			"state":   value.String(ev.State),
		}
		if ev.Field != "" {
			obj["field"] = value.String(ev.Field)
		}
		if ev.Value != nil {
			obj["value"] = ev.Value
		}
		if len(ev.Invalid) > 0 {
			obj["invalid"] = stringArray(ev.Invalid)
		}
		if ev.Changed != nil {
			obj["changed"] = value.Bool(*ev.Changed)
		}
		trace[i] = obj
	}

	snap := value.Object{
		"scenario_name": value.String(s.ScenarioName),
		"trace":         trace,
		"context":       value.Null{},
	}
	if s.Context != nil {
		snap["context"] = value.Object(s.Context)
	}
	return snap
}

func stringArray(ss []string) value.Array {
	arr := make(value.Array, len(ss))
	for i, s := range ss {
		arr[i] = value.String(s)
	}
	return arr
}

// MarshalSnapshot returns the canonical JSON of a result's snapshot.
func MarshalSnapshot(name string, result *Result) ([]byte, error) {
	snap := TraceSnapshot{
		ScenarioName: name,
		Trace:        result.Trace,
		Context:      result.Context,
	}
	return value.MarshalCanonical(snap.toCanonical())
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns the result so callers can inspect Pass and Errors. Test failure
// (via goldie) occurs if the snapshot doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := MarshalSnapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}

// WriteGolden writes the snapshot of result to path, creating its directory.
func WriteGolden(path, scenarioName string, result *Result) error {
	data, err := MarshalSnapshot(scenarioName, result)
	if err != nil {
		return fmt.Errorf("failed to marshal trace: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create golden directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write golden file: %w", err)
	}
	return nil
}

// CompareGolden reports whether the snapshot of result matches the golden
// file at path byte for byte.
func CompareGolden(path, scenarioName string, result *Result) (bool, error) {
	want, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("failed to read golden file: %w", err)
	}
	got, err := MarshalSnapshot(scenarioName, result)
	if err != nil {
		return false, fmt.Errorf("failed to marshal current trace: %w", err)
	}
	return bytes.Equal(want, got), nil
}
