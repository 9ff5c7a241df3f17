package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// executeCommand runs a cobra command with args and returns captured output
func executeCommand(root *cobra.Command, args ...string) (string, error) {
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

const corridorScenario = `
name = "corridor"
seed = 3
duration = "120s"

[[regions]]
name = "hall"
left = 0.0
right = 20.0
top = 0.0
bottom = 2.0

[[robots]]
id = "A"
x = 2.0
y = 1.0
garbage = [[18.0, 1.0]]

[[robots]]
id = "B"
x = 18.0
y = 1.0
garbage = [[2.0, 1.0]]
`

func TestRootCommand(t *testing.T) {
	assert.Equal(t, "fleetsim", rootCmd.Use)

	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"run", "summary", "scenario"} {
		assert.True(t, names[want], "missing command %s", want)
	}
}

func TestScenarioCommand(t *testing.T) {
	out, err := executeCommand(rootCmd, "scenario")
	require.NoError(t, err)
	assert.Contains(t, out, `name = "office"`)
	assert.Contains(t, out, `id = "Collector1"`)

	path := filepath.Join(t.TempDir(), "office.toml")
	_, err = executeCommand(rootCmd, "scenario", "-o", path)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Corridor center left")
}

func TestRunThenSummary(t *testing.T) {
	dir := t.TempDir()
	outDir := filepath.Join(dir, "out")
	t.Setenv("FLEETSIM_OUTPUT_DIR", outDir)
	t.Setenv("FLEETSIM_OUTPUT_DATABASE", filepath.Join(dir, "runs.db"))
	t.Setenv("FLEETSIM_LOG_LEVEL", "disabled")

	path := filepath.Join(dir, "corridor.toml")
	require.NoError(t, os.WriteFile(path, []byte(corridorScenario), 0644))

	out, err := executeCommand(rootCmd, "run", "-s", path, "--stop-when-done")
	require.NoError(t, err)
	assert.Contains(t, out, "2/2 reached")

	stats, err := filepath.Glob(filepath.Join(outDir, "corridor-*.txt"))
	require.NoError(t, err)
	require.Len(t, stats, 1)
	data, err := os.ReadFile(stats[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "A B ")
	assert.Contains(t, string(data), "B A ")

	geo, err := filepath.Glob(filepath.Join(outDir, "corridor-*.geojson"))
	require.NoError(t, err)
	assert.Len(t, geo, 1)

	out, err = executeCommand(rootCmd, "summary")
	require.NoError(t, err)
	assert.Contains(t, out, "corridor")
	assert.Contains(t, out, "2/2")
}

func TestRunRejectsUnknownStrategy(t *testing.T) {
	t.Setenv("FLEETSIM_PROTOCOL_STRATEGY", "teleport")
	t.Setenv("FLEETSIM_LOG_LEVEL", "disabled")
	_, err := executeCommand(rootCmd, "run", "--duration", "1s")
	assert.Error(t, err)
}

func TestInterruptedRunStillWritesLedger(t *testing.T) {
	dir := t.TempDir()
	outDir := filepath.Join(dir, "out")
	t.Setenv("FLEETSIM_OUTPUT_DIR", outDir)
	t.Setenv("FLEETSIM_OUTPUT_DATABASE", filepath.Join(dir, "runs.db"))
	t.Setenv("FLEETSIM_LOG_LEVEL", "disabled")

	path := filepath.Join(dir, "corridor.toml")
	require.NoError(t, os.WriteFile(path, []byte(corridorScenario), 0644))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rootCmd.SetContext(ctx)
	runCmd.SetContext(ctx)
	t.Cleanup(func() {
		rootCmd.SetContext(context.Background())
		runCmd.SetContext(context.Background())
	})

	out, err := executeCommand(rootCmd, "run", "-s", path)
	require.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, out, "0/2 reached")

	stats, err := filepath.Glob(filepath.Join(outDir, "corridor-*.txt"))
	require.NoError(t, err)
	require.Len(t, stats, 1)
	data, err := os.ReadFile(stats[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "A none ")

	rootCmd.SetContext(context.Background())
	runCmd.SetContext(context.Background())
	out, err = executeCommand(rootCmd, "summary")
	require.NoError(t, err)
	assert.Contains(t, out, "0/2")
}
