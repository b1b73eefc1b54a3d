package cli

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs a fresh root command with args and returns combined output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestVersionCommand(t *testing.T) {
	t.Chdir(t.TempDir())

	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "shelfline "+Version)
}

func TestUnknownCommand(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := execute(t, "frobnicate")
	assert.Error(t, err)
}

func TestUnknownStageSelection(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	_, err := execute(t, "run",
		"--select", "nope",
		"--database", filepath.Join(dir, "wh.duckdb"),
		"--state-path", filepath.Join(dir, "state.db"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown stage "nope"`)
}

func TestInvalidAnchorFlag(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := execute(t, "runs", "--anchor", "yesterday")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid anchor")
}

func TestEndToEnd(t *testing.T) {
	if testing.Short() {
		t.Skip("end-to-end pipeline run")
	}

	dir := t.TempDir()
	t.Chdir(dir)

	dataDir := filepath.Join(dir, "raw")
	exportDir := filepath.Join(dir, "processed")
	common := []string{
		"--data-dir", dataDir,
		"--export-dir", exportDir,
		"--database", filepath.Join(dir, "wh.duckdb"),
		"--state-path", filepath.Join(dir, "state.db"),
		"--anchor", "latest-data",
	}

	out, err := execute(t, append([]string{"generate", "--seed", "42", "--sales", "1000", "--products", "10"}, common...)...)
	require.NoError(t, err, out)

	out, err = execute(t, append([]string{"load"}, common...)...)
	require.NoError(t, err, out)

	out, err = execute(t, append([]string{"run"}, common...)...)
	require.NoError(t, err, out)
	assert.Contains(t, out, "completed")

	out, err = execute(t, append([]string{"export"}, common...)...)
	require.NoError(t, err, out)
	assert.Contains(t, out, "inventory_snapshot_")
	assert.Contains(t, out, "pricing_recommendations_")

	out, err = execute(t, append([]string{"runs"}, common...)...)
	require.NoError(t, err, out)
	assert.Contains(t, out, "completed")

	out, err = execute(t, append([]string{"describe", "marts.fct_sales"}, common...)...)
	require.NoError(t, err, out)
	assert.Contains(t, out, "net_sales_amount")
}
