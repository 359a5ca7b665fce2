package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const passingScenario = `
name: counting
description: three increments
steps:
  - {action: increment, repeat: 3}
expect:
  count: 3
`

const failingScenario = `
name: wrong
description: expects the wrong count
steps:
  - {action: increment}
expect:
  count: 7
`

const tomlScenario = `
name = "toml-set"
description = "set from a toml file"

[[steps]]
action = "set"
value = 4

[expect]
count = 4
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRunCommandMissingArgs(t *testing.T) {
	_, err := execute(t, "run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires at least 1 arg")
}

func TestRunCommandNonExistentPath(t *testing.T) {
	_, err := execute(t, "run", "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scenario path not found")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRunCommandEmptyDir(t *testing.T) {
	out, err := execute(t, "run", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found")
}

func TestRunCommandPassing(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "counting.yaml", passingScenario)
	writeFile(t, dir, "nested/set.toml", tomlScenario)
	writeFile(t, dir, "notes.txt", "ignored")

	out, err := execute(t, "run", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ counting (3 events, final count 3)")
	assert.Contains(t, out, "✓ toml-set")
	assert.Contains(t, out, "commits=3 unchanged=0 publishes=3 failures=0 dropped=0")
	assert.Contains(t, out, "2 passed, 0 failed, 2 total")
}

func TestRunCommandFailingExitsOne(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "counting.yaml", passingScenario)
	writeFile(t, dir, "wrong.yaml", failingScenario)

	out, err := execute(t, "run", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ wrong")
	assert.Contains(t, out, "final count: expected 7, got 1")
	assert.Contains(t, out, "1 passed, 1 failed, 2 total")
}

func TestRunCommandLoadError(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "broken.yaml", "name: broken\nunknown_field: 1\n")

	out, err := execute(t, "run", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ broken.yaml")
	assert.Contains(t, out, "failed to load scenario")
}

func TestRunCommandFilter(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "counting.yaml", passingScenario)
	writeFile(t, dir, "wrong.yaml", failingScenario)

	out, err := execute(t, "run", dir, "--filter", "count*")
	require.NoError(t, err)
	assert.Contains(t, out, "1 passed, 0 failed, 1 total")
	assert.NotContains(t, out, "wrong")

	_, err = execute(t, "run", dir, "--filter", "[")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid filter pattern")
}

func TestRunCommandJSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "counting.yaml", passingScenario)

	out, err := execute(t, "run", dir, "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status string    `json:"status"`
		Data   RunReport `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 1, resp.Data.Total)
	assert.Equal(t, 1, resp.Data.Passed)
	require.Len(t, resp.Data.Scenarios, 1)

	r := resp.Data.Scenarios[0]
	assert.Equal(t, "counting", r.Name)
	assert.True(t, r.Pass)
	assert.Equal(t, 3, r.Events)
	require.NotNil(t, r.Final)
	assert.Equal(t, 3, r.Final.Count)
	require.NotNil(t, r.Stats)
	assert.Equal(t, int64(3), r.Stats.Commits)
}

func TestRunCommandGoldenUpdateAndCompare(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "counting.yaml", passingScenario)

	_, err := execute(t, "run", path, "--update")
	require.NoError(t, err)

	goldenPath := filepath.Join(dir, "golden", "counting.golden")
	data, err := os.ReadFile(goldenPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"scenario": "counting"`)

	out, err := execute(t, "run", path)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ counting")

	require.NoError(t, os.WriteFile(goldenPath, []byte("{}\n"), 0o644))
	out, err = execute(t, "run", path)
	require.Error(t, err)
	assert.Contains(t, out, "trace does not match golden file")
}

func TestRunCommandGoldenDirOverride(t *testing.T) {
	dir := t.TempDir()
	goldenDir := filepath.Join(dir, "expected")
	path := writeFile(t, dir, "counting.yaml", passingScenario)

	_, err := execute(t, "run", path, "--update", "--golden-dir", goldenDir)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(goldenDir, "counting.golden"))
	assert.NoDirExists(t, filepath.Join(dir, "golden"))
}

func TestRunCommandWritesJournal(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "counting.yaml", passingScenario)
	db := filepath.Join(dir, "audit.db")

	_, err := execute(t, "run", path, "--journal", db)
	require.NoError(t, err)

	out, err := execute(t, "journal", db)
	require.NoError(t, err)
	assert.Contains(t, out, "commits=3 failures=0")
}

func TestFindScenarioFiles(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.yaml", passingScenario)
	b := writeFile(t, dir, "sub/b.yml", passingScenario)
	c := writeFile(t, dir, "sub/c.TOML", tomlScenario)
	writeFile(t, dir, "sub/golden/a.golden", "{}")

	files, err := findScenarioFiles([]string{dir}, "")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{a, b, c}, files)

	files, err = findScenarioFiles([]string{a}, "b")
	require.NoError(t, err)
	assert.Empty(t, files)
}
