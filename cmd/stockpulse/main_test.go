package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockpulse/internal/config"
	"stockpulse/internal/shared/testutil"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeInventoryWorkbook(t *testing.T, name string, rows int) string {
	t.Helper()
	data := [][]interface{}{{"Material", "Description", "Plant", "FG Value"}}
	for i := 1; i <= rows; i++ {
		data = append(data, []interface{}{fmt.Sprintf("MAT-%03d", i), "Widget", "P1", float64(i * 100)})
	}
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path,
		testutil.WorkbookBytes(t, testutil.SheetFixture{Name: "FG Value", Rows: data}), 0o644))
	return path
}

func TestProcessCommand(t *testing.T) {
	path := writeInventoryWorkbook(t, "stock.xlsx", 5)

	out, err := run(t, "process", path, "--category", "inventory", "--metrics")
	require.NoError(t, err)

	var got struct {
		Result struct {
			Success bool `json:"success"`
			Stats   struct {
				TotalRows int `json:"total_rows"`
			} `json:"stats"`
		} `json:"result"`
		Metrics map[string]interface{} `json:"metrics"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got), out)
	assert.True(t, got.Result.Success)
	assert.Equal(t, 5, got.Result.Stats.TotalRows)
	require.NotNil(t, got.Metrics)
	assert.Equal(t, true, got.Metrics["partial"])
}

func TestProcessMetricsWithoutRows(t *testing.T) {
	path := writeInventoryWorkbook(t, "empty.xlsx", 0)

	out, err := run(t, "process", path, "--category", "inventory", "--metrics")
	require.NoError(t, err)

	var got map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(out), &got), out)
	assert.Contains(t, string(got["result"]), `"success": true`)
	assert.NotContains(t, got, "metrics")
}

func TestProcessCategoryFromEnv(t *testing.T) {
	path := writeInventoryWorkbook(t, "stock.xlsx", 2)
	t.Setenv("STOCKPULSE_CATEGORY", "inventory")

	out, err := run(t, "process", path)
	require.NoError(t, err)
	assert.Contains(t, out, `"success": true`)
}

func TestProcessErrors(t *testing.T) {
	tests := []struct {
		name    string
		args    func(t *testing.T) []string
		wantErr string
	}{
		{
			name: "missing category",
			args: func(t *testing.T) []string {
				return []string{"process", writeInventoryWorkbook(t, "stock.xlsx", 1)}
			},
			wantErr: "--category",
		},
		{
			name: "unsupported extension",
			args: func(t *testing.T) []string {
				return []string{"process", writeInventoryWorkbook(t, "stock.csv", 1), "-c", "inventory"}
			},
			wantErr: "unsupported file type",
		},
		{
			name: "missing file",
			args: func(t *testing.T) []string {
				return []string{"process", filepath.Join(t.TempDir(), "nope.xlsx"), "-c", "osr"}
			},
			wantErr: "failed to read workbook",
		},
		{
			name: "bad log level",
			args: func(t *testing.T) []string {
				return []string{"process", "x.xlsx", "-c", "osr", "--log-level", "loud"}
			},
			wantErr: "invalid log level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.args(t)...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSchemaCommands(t *testing.T) {
	out, err := run(t, "schema", "dump", "--category", "osr")
	require.NoError(t, err)
	assert.Contains(t, out, "category: osr")
	assert.NotContains(t, out, "category: inventory")

	path := filepath.Join(t.TempDir(), "schema.yaml")
	out, err = run(t, "schema", "dump")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, []byte(out), 0o644))

	out, err = run(t, "schema", "check", path)
	require.NoError(t, err)
	assert.Contains(t, out, "ok")

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("max_file_size: -1\n"), 0o644))
	_, err = run(t, "schema", "check", bad)
	assert.Error(t, err)
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "StockPulse v"+config.AppVersion)
}
