package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scenariosDir = "../harness/testdata/scenarios"

const quickScenario = `name: quick_create
description: A named contact is created
schema: contacts.cue
steps:
  - action: set
    field: name
    value: Grace
  - action: create
assertions:
  - type: context
    expect:
      id: doc-1
      name: Grace
`

func TestTest_Scenarios(t *testing.T) {
	out, err := execute(t, "test", scenariosDir)
	require.NoError(t, err, out)
	assert.Contains(t, out, "✓ create_contact")
	assert.Contains(t, out, "✓ country_resets_region")
	assert.Contains(t, out, "Test Summary: 5 passed, 0 failed, 5 total")
	assert.Contains(t, out, "✓ All scenarios passed")
}

func TestTest_Filter(t *testing.T) {
	out, err := execute(t, "test", scenariosDir, "--filter", "create_*", "--format", "json")
	require.NoError(t, err, out)

	resp, data := decodeResponse(t, out)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, float64(1), data["total"])
}

func TestTest_Failure(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "contacts.cue", contactsCUE)
	writeFile(t, dir, "wrong.yaml", `name: wrong
description: Expects a name that was never set
schema: contacts.cue
steps:
  - action: set
    field: name
    value: Grace
assertions:
  - type: context
    expect:
      name: Ada
`)

	out, err := execute(t, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ wrong")
	assert.Contains(t, out, "Test Summary: 0 passed, 1 failed, 1 total")
}

func TestTest_FailureJSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "contacts.cue", contactsCUE)
	writeFile(t, dir, "unsaved.yaml", `name: unsaved
description: Save before create is refused
schema: contacts.cue
steps:
  - action: save
assertions:
  - type: state
    state: new
`)

	out, err := execute(t, "test", dir, "--format", "json")
	require.Error(t, err)

	resp, data := decodeResponse(t, out)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E_TEST_FAILED", resp.Error.Code)
	assert.Equal(t, float64(1), data["failed"])
}

func TestTest_UpdateGolden(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "contacts.cue", contactsCUE)
	writeFile(t, dir, "quick_create.yaml", quickScenario)
	golden := filepath.Join(dir, "golden", "quick_create.golden")

	out, err := execute(t, "test", dir, "--update")
	require.NoError(t, err, out)
	assert.Contains(t, out, "✓ quick_create (golden updated)")
	require.FileExists(t, golden)

	out, err = execute(t, "test", dir)
	require.NoError(t, err, out)
	assert.Contains(t, out, "✓ quick_create\n")

	require.NoError(t, os.WriteFile(golden, []byte(`{"scenario_name":"quick_create"}`), 0o644))
	out, err = execute(t, "test", dir)
	require.Error(t, err)
	assert.Contains(t, out, "trace does not match golden file")
}

func TestTest_CommandErrors(t *testing.T) {
	_, err := execute(t, "test", filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = execute(t, "test", scenariosDir, "--filter", "[")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTest_NoScenarios(t *testing.T) {
	out, err := execute(t, "test", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found.")
}
