package schema

import (
	"time"

	"stockpulse/pkg/contracts/domain"
)

// Category is the kind of workbook an upload carries.
type Category = domain.Category

const (
	CategoryInventory = domain.CategoryInventory
	CategoryOSR       = domain.CategoryOSR
)

// ParseCategory converts user input into a Category.
func ParseCategory(s string) (Category, error) {
	return domain.ParseCategory(s)
}

// ValueType is the declared type of a column.
type ValueType string

const (
	TypeString ValueType = "string"
	TypeNumber ValueType = "number"
	TypeDate   ValueType = "date"
)

// RuleKind selects how a ValidationRule checks a value.
type RuleKind string

const (
	RuleMinLength RuleKind = "minLength"
	RuleMaxLength RuleKind = "maxLength"
	RuleMin       RuleKind = "min"
	RuleMax       RuleKind = "max"
	RuleRegex     RuleKind = "regex"
	RuleOneOf     RuleKind = "oneOf"
)

// ValidationRule is a single check applied to a coerced cell value. Bound is
// a number for length and range rules, a pattern for regex, a list of
// strings for oneOf, and an ISO date for range rules on date columns.
type ValidationRule struct {
	Kind    RuleKind    `yaml:"kind" json:"kind" validate:"required,oneof=minLength maxLength min max regex oneOf"`
	Bound   interface{} `yaml:"bound" json:"bound"`
	Message string      `yaml:"message,omitempty" json:"message,omitempty"`
}

// ColumnSchema declares one expected column of a sheet.
type ColumnSchema struct {
	CanonicalName string           `yaml:"name" json:"name" validate:"required"`
	Aliases       []string         `yaml:"aliases,omitempty" json:"aliases,omitempty" validate:"dive,required"`
	ValueType     ValueType        `yaml:"type" json:"type" validate:"required,oneof=string number date"`
	Required      bool             `yaml:"required,omitempty" json:"required"`
	Rules         []ValidationRule `yaml:"rules,omitempty" json:"rules,omitempty" validate:"dive"`
}

// SheetSchema declares one expected worksheet.
type SheetSchema struct {
	CanonicalName string         `yaml:"name" json:"name" validate:"required"`
	Aliases       []string       `yaml:"aliases,omitempty" json:"aliases,omitempty" validate:"dive,required"`
	Category      Category       `yaml:"category" json:"category" validate:"required,oneof=inventory osr"`
	Optional      bool           `yaml:"optional,omitempty" json:"optional"`
	Columns       []ColumnSchema `yaml:"columns" json:"columns" validate:"required,min=1,dive"`
}

// MetricsDefaults replaces missing impact and effort scores when metrics
// are derived from OSR rows.
type MetricsDefaults struct {
	DefaultImpact float64 `yaml:"default_impact" json:"default_impact" validate:"gte=0,lte=10"`
	DefaultEffort float64 `yaml:"default_effort" json:"default_effort" validate:"gte=0,lte=10"`
}

// SchemaConfig is the complete declarative description of acceptable
// workbooks. It is loaded once and never mutated afterwards.
type SchemaConfig struct {
	Version           string          `yaml:"version,omitempty" json:"version,omitempty"`
	MaxFileSize       int64           `yaml:"max_file_size" json:"max_file_size" validate:"gt=0"`
	AllowedExtensions []string        `yaml:"allowed_extensions" json:"allowed_extensions" validate:"required,min=1,dive,startswith=."`
	ProcessingTimeout time.Duration   `yaml:"processing_timeout" json:"processing_timeout" validate:"gt=0"`
	SkipEmptyRows     bool            `yaml:"skip_empty_rows" json:"skip_empty_rows"`
	TrimStrings       bool            `yaml:"trim_strings" json:"trim_strings"`
	Metrics           MetricsDefaults `yaml:"metrics" json:"metrics"`
	Sheets            []SheetSchema   `yaml:"sheets" json:"sheets" validate:"required,min=1,dive"`
}

// Clone returns a deep copy so callers cannot alter registry state.
func (c SchemaConfig) Clone() SchemaConfig {
	out := c
	out.AllowedExtensions = append([]string(nil), c.AllowedExtensions...)
	out.Sheets = make([]SheetSchema, len(c.Sheets))
	for i, s := range c.Sheets {
		out.Sheets[i] = s.clone()
	}
	return out
}

func (s SheetSchema) clone() SheetSchema {
	out := s
	out.Aliases = append([]string(nil), s.Aliases...)
	out.Columns = make([]ColumnSchema, len(s.Columns))
	for i, col := range s.Columns {
		c := col
		c.Aliases = append([]string(nil), col.Aliases...)
		c.Rules = append([]ValidationRule(nil), col.Rules...)
		out.Columns[i] = c
	}
	return out
}

// Column returns the column declared with the given canonical name.
func (s SheetSchema) Column(name string) (ColumnSchema, bool) {
	for _, c := range s.Columns {
		if c.CanonicalName == name {
			return c, true
		}
	}
	return ColumnSchema{}, false
}
