package schema

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var structValidator = validator.New()

// Validate checks a schema for structural and semantic errors: every
// required field set, known enums, rule bounds that fit their kind, and
// canonical column names unique within a sheet.
func Validate(cfg SchemaConfig) error {
	if err := structValidator.Struct(cfg); err != nil {
		return fmt.Errorf("invalid schema: %w", err)
	}

	for _, sheet := range cfg.Sheets {
		seen := make(map[string]bool, len(sheet.Columns))
		for _, col := range sheet.Columns {
			key := NormalizeName(col.CanonicalName)
			if seen[key] {
				return fmt.Errorf("invalid schema: sheet %q declares column %q twice", sheet.CanonicalName, col.CanonicalName)
			}
			seen[key] = true

			for i, rule := range col.Rules {
				if err := checkRule(col, rule); err != nil {
					return fmt.Errorf("invalid schema: sheet %q column %q rule %d: %w",
						sheet.CanonicalName, col.CanonicalName, i+1, err)
				}
			}
		}
	}

	return nil
}

func checkRule(col ColumnSchema, rule ValidationRule) error {
	if rule.Bound == nil {
		return fmt.Errorf("%s rule has no bound", rule.Kind)
	}

	switch rule.Kind {
	case RuleMinLength, RuleMaxLength:
		n, err := rule.NumberBound()
		if err != nil {
			return err
		}
		if n < 0 {
			return fmt.Errorf("%s bound must not be negative", rule.Kind)
		}
	case RuleMin, RuleMax:
		if col.ValueType == TypeDate {
			_, err := rule.DateBound()
			return err
		}
		if col.ValueType == TypeString {
			return fmt.Errorf("%s rule does not apply to string columns", rule.Kind)
		}
		_, err := rule.NumberBound()
		return err
	case RuleRegex:
		pattern, err := rule.StringBound()
		if err != nil {
			return err
		}
		if _, err := regexp.Compile(pattern); err != nil {
			return fmt.Errorf("invalid pattern: %w", err)
		}
	case RuleOneOf:
		list, err := rule.ListBound()
		if err != nil {
			return err
		}
		if len(list) == 0 {
			return fmt.Errorf("oneOf rule needs at least one value")
		}
	default:
		return fmt.Errorf("unknown rule kind %q", rule.Kind)
	}
	return nil
}

// NumberBound returns the bound of a length or range rule.
func (r ValidationRule) NumberBound() (float64, error) {
	switch v := r.Bound.(type) {
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("%s bound %q is not a number", r.Kind, v)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("%s bound must be a number, got %T", r.Kind, r.Bound)
	}
}

// StringBound returns the pattern of a regex rule.
func (r ValidationRule) StringBound() (string, error) {
	s, ok := r.Bound.(string)
	if !ok {
		return "", fmt.Errorf("%s bound must be a string, got %T", r.Kind, r.Bound)
	}
	return s, nil
}

// ListBound returns the accepted values of a oneOf rule.
func (r ValidationRule) ListBound() ([]string, error) {
	switch v := r.Bound.(type) {
	case []string:
		return v, nil
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, fmt.Sprint(item))
		}
		return out, nil
	case string:
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%s bound must be a list, got %T", r.Kind, r.Bound)
	}
}

// DateBound returns the bound of a range rule on a date column.
func (r ValidationRule) DateBound() (time.Time, error) {
	switch v := r.Bound.(type) {
	case time.Time:
		return v.UTC(), nil
	case string:
		for _, layout := range []string{"2006-01-02", time.RFC3339} {
			if t, err := time.Parse(layout, strings.TrimSpace(v)); err == nil {
				return t.UTC(), nil
			}
		}
		return time.Time{}, fmt.Errorf("%s bound %q is not an ISO date", r.Kind, v)
	default:
		return time.Time{}, fmt.Errorf("%s bound must be an ISO date, got %T", r.Kind, r.Bound)
	}
}
