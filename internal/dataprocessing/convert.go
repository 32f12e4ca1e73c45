package dataprocessing

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// numericPattern validates a number after currency symbols and separators
// have been removed. Integers, decimals and scientific notation match.
var numericPattern = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// numberNoise is stripped from numeric cells before parsing.
var numberNoise = strings.NewReplacer(
	"$", "", "€", "", "£", "", "¥", "", "₹", "",
	",", "", "_", "", " ", "", "\u00a0", "", "\u202f", "",
)

// Serial dates above this value fall after 9999-12-31 and are read as Unix
// timestamps instead.
const maxExcelSerial = 2958465

// maxUnixMilli is 9999-12-31T23:59:59.999Z in Unix milliseconds.
const maxUnixMilli = 253402300799999

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"01-02-2006",
	"02-Jan-2006",
	"2-Jan-2006",
	"02 Jan 2006",
	"2 Jan 2006",
	"Jan 2, 2006",
	"January 2, 2006",
}

// ParseNumber converts a cell to a float64. Currency symbols, thousands
// separators, a trailing percent sign and accounting parentheses are
// accepted: "1,234.56" is 1234.56, "$1,000" is 1000, "(50)" is -50.
func ParseNumber(v interface{}) (float64, error) {
	switch n := v.(type) {
	case float64:
		return finite(n)
	case float32:
		return finite(float64(n))
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	case string:
		return parseNumberString(n)
	case nil:
		return 0, fmt.Errorf("empty value is not a number")
	default:
		return 0, fmt.Errorf("%v is not a number", v)
	}
}

func parseNumberString(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, fmt.Errorf("empty value is not a number")
	}

	s = strings.TrimSpace(strings.TrimSuffix(s, "%"))
	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	s = strings.TrimSuffix(s, "%")
	s = numberNoise.Replace(s)

	if !numericPattern.MatchString(s) {
		return 0, fmt.Errorf("%q is not a number", raw)
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", raw)
	}
	if negative {
		f = -f
	}
	return finite(f)
}

func finite(f float64) (float64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%v is not a finite number", f)
	}
	return f, nil
}

// ParseDate converts a cell to a UTC time. Accepted inputs are time values,
// ISO-8601 and common written layouts, eight-digit yyyymmdd strings, Excel
// serial dates, and Unix timestamps in seconds or milliseconds.
func ParseDate(v interface{}) (time.Time, error) {
	switch d := v.(type) {
	case time.Time:
		return d.UTC(), nil
	case string:
		return parseDateString(d)
	case nil:
		return time.Time{}, fmt.Errorf("empty value is not a date")
	default:
		f, err := ParseNumber(v)
		if err != nil {
			return time.Time{}, fmt.Errorf("%v is not a date", v)
		}
		return dateFromNumber(f)
	}
}

func parseDateString(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty value is not a date")
	}

	if len(s) == 8 && (strings.HasPrefix(s, "19") || strings.HasPrefix(s, "20")) {
		if t, err := time.Parse("20060102", s); err == nil {
			return t, nil
		}
	}

	if numericPattern.MatchString(s) {
		f, err := strconv.ParseFloat(s, 64)
		if err == nil {
			return dateFromNumber(f)
		}
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}

	return time.Time{}, fmt.Errorf("%q is not a date", raw)
}

func dateFromNumber(f float64) (time.Time, error) {
	switch {
	case f <= 0 || math.IsNaN(f) || math.IsInf(f, 0):
		return time.Time{}, fmt.Errorf("%v is not a date", f)
	case f <= maxExcelSerial:
		t, err := excelize.ExcelDateToTime(f, false)
		if err != nil {
			return time.Time{}, fmt.Errorf("%v is not a date: %w", f, err)
		}
		return t.UTC(), nil
	case f < 1e11:
		return time.Unix(int64(f), 0).UTC(), nil
	case f <= maxUnixMilli:
		return time.UnixMilli(int64(f)).UTC(), nil
	default:
		return time.Time{}, fmt.Errorf("%v is not a date", f)
	}
}

// FormatString renders any cell value as text. Nil renders as "".
func FormatString(v interface{}) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case time.Time:
		if s.Hour() == 0 && s.Minute() == 0 && s.Second() == 0 {
			return s.Format("2006-01-02")
		}
		return s.Format(time.RFC3339)
	default:
		return fmt.Sprint(v)
	}
}

// isBlank reports whether a raw cell holds no data.
func isBlank(v interface{}) bool {
	switch s := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(s) == ""
	default:
		return false
	}
}
