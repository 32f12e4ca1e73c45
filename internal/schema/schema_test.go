package schema

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSchemaIsValid(t *testing.T) {
	require.NoError(t, Validate(Default()))
}

func TestParseCategory(t *testing.T) {
	tests := []struct {
		input   string
		want    Category
		wantErr bool
	}{
		{"inventory", CategoryInventory, false},
		{" OSR ", CategoryOSR, false},
		{"Inventory", CategoryInventory, false},
		{"sales", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseCategory(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMatching_CaseInsensitive(t *testing.T) {
	sheet := SheetSchema{CanonicalName: "FG value", Aliases: []string{"Finished Goods"}}
	col := ColumnSchema{CanonicalName: "Value", Aliases: []string{"Total Value"}}

	tests := []struct {
		name   string
		actual string
		match  bool
	}{
		{"exact", "FG value", true},
		{"upper", "FG VALUE", true},
		{"mixed case", "fg Value", true},
		{"extra whitespace", "  FG   value ", true},
		{"alias", "finished goods", true},
		{"other", "FG values", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.match, sheet.Matches(tt.actual))
		})
	}

	// Matching is commutative over case
	for _, h := range []string{"value", "VALUE", "Value", "total VALUE"} {
		assert.True(t, col.Matches(h), h)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*SchemaConfig)
		wantMsg string
	}{
		{
			name:    "no sheets",
			mutate:  func(c *SchemaConfig) { c.Sheets = nil },
			wantMsg: "Sheets",
		},
		{
			name:    "bad extension",
			mutate:  func(c *SchemaConfig) { c.AllowedExtensions = []string{"xlsx"} },
			wantMsg: "AllowedExtensions",
		},
		{
			name:    "unknown value type",
			mutate:  func(c *SchemaConfig) { c.Sheets[0].Columns[0].ValueType = "bool" },
			wantMsg: "ValueType",
		},
		{
			name:    "unknown category",
			mutate:  func(c *SchemaConfig) { c.Sheets[0].Category = "sales" },
			wantMsg: "Category",
		},
		{
			name: "duplicate column",
			mutate: func(c *SchemaConfig) {
				c.Sheets[0].Columns = append(c.Sheets[0].Columns, ColumnSchema{CanonicalName: "value", ValueType: TypeNumber})
			},
			wantMsg: "twice",
		},
		{
			name: "invalid regex",
			mutate: func(c *SchemaConfig) {
				c.Sheets[0].Columns[0].Rules = []ValidationRule{{Kind: RuleRegex, Bound: "[a-"}}
			},
			wantMsg: "invalid pattern",
		},
		{
			name: "min on string column",
			mutate: func(c *SchemaConfig) {
				c.Sheets[0].Columns[0].Rules = []ValidationRule{{Kind: RuleMin, Bound: 1}}
			},
			wantMsg: "does not apply",
		},
		{
			name: "empty oneOf",
			mutate: func(c *SchemaConfig) {
				c.Sheets[0].Columns[0].Rules = []ValidationRule{{Kind: RuleOneOf, Bound: []string{}}}
			},
			wantMsg: "at least one",
		},
		{
			name: "missing bound",
			mutate: func(c *SchemaConfig) {
				c.Sheets[0].Columns[0].Rules = []ValidationRule{{Kind: RuleMaxLength}}
			},
			wantMsg: "no bound",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)

			err := Validate(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestRuleBounds(t *testing.T) {
	n, err := ValidationRule{Kind: RuleMin, Bound: "12.5"}.NumberBound()
	require.NoError(t, err)
	assert.Equal(t, 12.5, n)

	list, err := ValidationRule{Kind: RuleOneOf, Bound: []interface{}{"a", 1}}.ListBound()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "1"}, list)

	list, err = ValidationRule{Kind: RuleOneOf, Bound: "x, y,,z"}.ListBound()
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y", "z"}, list)

	d, err := ValidationRule{Kind: RuleMin, Bound: "2024-03-01"}.DateBound()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), d)
}

func TestRegistry_For(t *testing.T) {
	reg := DefaultRegistry()

	inv, err := reg.For(CategoryInventory)
	require.NoError(t, err)
	for _, s := range inv.Sheets {
		assert.Equal(t, CategoryInventory, s.Category)
	}
	assert.Equal(t, "FG value", inv.Sheets[0].CanonicalName)

	osr, err := reg.For(CategoryOSR)
	require.NoError(t, err)
	assert.Equal(t, "OSR Issues", osr.Sheets[0].CanonicalName)

	// Copies are independent of the registry
	inv.Sheets[0].CanonicalName = "changed"
	again, err := reg.For(CategoryInventory)
	require.NoError(t, err)
	assert.Equal(t, "FG value", again.Sheets[0].CanonicalName)
}

func TestRegistry_ForUnknownCategory(t *testing.T) {
	cfg := Default()
	cfg.Sheets = cfg.Sheets[:2] // inventory only
	reg, err := NewRegistry(cfg)
	require.NoError(t, err)

	_, err = reg.For(CategoryOSR)
	assert.Error(t, err)
}

func TestParse_OverlaysDefaults(t *testing.T) {
	doc := []byte(`
max_file_size: 1048576
processing_timeout: 30s
metrics:
  default_impact: 3
  default_effort: 7
`)
	reg, err := Parse(doc)
	require.NoError(t, err)

	cfg := reg.Config()
	assert.Equal(t, int64(1048576), cfg.MaxFileSize)
	assert.Equal(t, 30*time.Second, cfg.ProcessingTimeout)
	assert.Equal(t, 3.0, cfg.Metrics.DefaultImpact)
	assert.Equal(t, 7.0, cfg.Metrics.DefaultEffort)
	assert.Len(t, cfg.Sheets, len(Default().Sheets))
}

func TestParse_RejectsUnknownKeys(t *testing.T) {
	_, err := Parse([]byte("max_size: 10\n"))
	assert.Error(t, err)
}

func TestDumpParseRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Dump(&buf, Default()))

	reg, err := Parse(buf.Bytes())
	require.NoError(t, err)

	cfg := reg.Config()
	assert.Equal(t, Default().ProcessingTimeout, cfg.ProcessingTimeout)
	require.Len(t, cfg.Sheets, len(Default().Sheets))
	sev, ok := cfg.Sheets[2].Column(ColSeverity)
	require.True(t, ok)
	list, err := sev.Rules[0].ListBound()
	require.NoError(t, err)
	assert.Contains(t, list, "critical")
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.yaml")
	require.NoError(t, os.WriteFile(path, []byte("skip_empty_rows: false\n"), 0o600))

	reg, err := LoadFile(path)
	require.NoError(t, err)
	assert.False(t, reg.Config().SkipEmptyRows)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
