package dataprocessing

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"stockpulse/internal/schema"
)

// RowCoercer converts raw cells to the declared column type and applies the
// column's validation rules in order.
type RowCoercer struct {
	trimStrings bool
	patterns    sync.Map // pattern -> *regexp.Regexp
}

// NewRowCoercer creates a coercer
func NewRowCoercer(trimStrings bool) *RowCoercer {
	return &RowCoercer{trimStrings: trimStrings}
}

// Coerce converts raw to the column's value type without applying rules.
func (c *RowCoercer) Coerce(raw interface{}, col schema.ColumnSchema) (interface{}, error) {
	switch col.ValueType {
	case schema.TypeNumber:
		return ParseNumber(raw)
	case schema.TypeDate:
		return ParseDate(raw)
	default:
		s := FormatString(raw)
		if c.trimStrings {
			s = strings.TrimSpace(s)
		}
		return s, nil
	}
}

// Check runs the rules of col against an already coerced value. The first
// failing rule decides the error.
func (c *RowCoercer) Check(value interface{}, col schema.ColumnSchema) error {
	for _, rule := range col.Rules {
		ok, err := c.evaluate(value, rule)
		if err != nil {
			return err
		}
		if !ok {
			if rule.Message != "" {
				return fmt.Errorf("%s", rule.Message)
			}
			return fmt.Errorf("%s", defaultRuleMessage(rule))
		}
	}
	return nil
}

// Field coerces and checks one cell. When the cell is unusable ok is false
// and warning explains why; rowNum is the 1-based worksheet row.
func (c *RowCoercer) Field(raw interface{}, col schema.ColumnSchema, rowNum int) (value interface{}, ok bool, warning string) {
	if isBlank(raw) {
		if col.Required {
			return nil, false, fmt.Sprintf("row %d: column %q is required", rowNum, col.CanonicalName)
		}
		return nil, false, ""
	}

	v, err := c.Coerce(raw, col)
	if err != nil {
		return nil, false, fmt.Sprintf("row %d: column %q: %v", rowNum, col.CanonicalName, err)
	}

	if err := c.Check(v, col); err != nil {
		return nil, false, fmt.Sprintf("row %d: column %q: %v", rowNum, col.CanonicalName, err)
	}

	return v, true, ""
}

func (c *RowCoercer) evaluate(value interface{}, rule schema.ValidationRule) (bool, error) {
	switch rule.Kind {
	case schema.RuleMinLength, schema.RuleMaxLength:
		bound, err := rule.NumberBound()
		if err != nil {
			return false, err
		}
		n := float64(utf8.RuneCountInString(FormatString(value)))
		if rule.Kind == schema.RuleMinLength {
			return n >= bound, nil
		}
		return n <= bound, nil

	case schema.RuleMin, schema.RuleMax:
		return compareBound(value, rule)

	case schema.RuleRegex:
		pattern, err := rule.StringBound()
		if err != nil {
			return false, err
		}
		re, err := c.compile(pattern)
		if err != nil {
			return false, err
		}
		return re.MatchString(FormatString(value)), nil

	case schema.RuleOneOf:
		allowed, err := rule.ListBound()
		if err != nil {
			return false, err
		}
		s := strings.TrimSpace(FormatString(value))
		for _, a := range allowed {
			if strings.EqualFold(s, a) {
				return true, nil
			}
		}
		return false, nil

	default:
		return false, fmt.Errorf("unknown rule kind %q", rule.Kind)
	}
}

func compareBound(value interface{}, rule schema.ValidationRule) (bool, error) {
	switch v := value.(type) {
	case float64:
		bound, err := rule.NumberBound()
		if err != nil {
			return false, err
		}
		if rule.Kind == schema.RuleMin {
			return v >= bound, nil
		}
		return v <= bound, nil
	case time.Time:
		bound, err := rule.DateBound()
		if err != nil {
			return false, err
		}
		if rule.Kind == schema.RuleMin {
			return !v.Before(bound), nil
		}
		return !v.After(bound), nil
	default:
		// Range rules do not apply to text
		return true, nil
	}
}

func (c *RowCoercer) compile(pattern string) (*regexp.Regexp, error) {
	if re, ok := c.patterns.Load(pattern); ok {
		return re.(*regexp.Regexp), nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}
	c.patterns.Store(pattern, re)
	return re, nil
}

func defaultRuleMessage(rule schema.ValidationRule) string {
	switch rule.Kind {
	case schema.RuleMinLength:
		return fmt.Sprintf("must be at least %v characters", rule.Bound)
	case schema.RuleMaxLength:
		return fmt.Sprintf("must be at most %v characters", rule.Bound)
	case schema.RuleMin:
		return fmt.Sprintf("must be at least %v", rule.Bound)
	case schema.RuleMax:
		return fmt.Sprintf("must be at most %v", rule.Bound)
	case schema.RuleRegex:
		return fmt.Sprintf("does not match %v", rule.Bound)
	default:
		return fmt.Sprintf("must be one of %v", rule.Bound)
	}
}
