package bulkorder

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// FieldRule validates one cell. The set of rules is closed: StringRule,
// NumberRule, EnumRule, DateRule and PhoneRule.
type FieldRule interface {
	// IsRequired reports whether an empty cell is an error.
	IsRequired() bool

	// Kind names the rule for catalog output.
	Kind() string

	// check validates a non-empty, trimmed value and returns one message per
	// violation.
	check(field, value string) []string
}

// StringRule bounds the length of a value in characters. A zero bound is not
// checked.
type StringRule struct {
	Required  bool
	MinLength int
	MaxLength int
}

func (r StringRule) IsRequired() bool { return r.Required }
func (r StringRule) Kind() string     { return "string" }

func (r StringRule) check(field, value string) []string {
	var msgs []string
	n := utf8.RuneCountInString(value)
	if r.MinLength > 0 && n < r.MinLength {
		msgs = append(msgs, fmt.Sprintf("Field '%s' must be at least %d characters", field, r.MinLength))
	}
	if r.MaxLength > 0 && n > r.MaxLength {
		msgs = append(msgs, fmt.Sprintf("Field '%s' must not exceed %d characters", field, r.MaxLength))
	}
	return msgs
}

// NumberRule requires a decimal number, optionally bounded.
type NumberRule struct {
	Required bool
	Min      *float64
	Max      *float64
}

// Between returns a NumberRule bounded by lo and hi inclusive.
func Between(required bool, lo, hi float64) NumberRule {
	return NumberRule{Required: required, Min: &lo, Max: &hi}
}

func (r NumberRule) IsRequired() bool { return r.Required }
func (r NumberRule) Kind() string     { return "number" }

func (r NumberRule) check(field, value string) []string {
	n, ok := parseNumber(value)
	if !ok {
		return []string{fmt.Sprintf("Field '%s' must be a number", field)}
	}
	var msgs []string
	if r.Min != nil && n < *r.Min {
		msgs = append(msgs, fmt.Sprintf("Field '%s' must be at least %s", field, formatNumber(*r.Min)))
	}
	if r.Max != nil && n > *r.Max {
		msgs = append(msgs, fmt.Sprintf("Field '%s' must not exceed %s", field, formatNumber(*r.Max)))
	}
	return msgs
}

// EnumRule requires an exact, case-sensitive member of Allowed.
type EnumRule struct {
	Required bool
	Allowed  []string
}

func (r EnumRule) IsRequired() bool { return r.Required }
func (r EnumRule) Kind() string     { return "enum" }

func (r EnumRule) check(field, value string) []string {
	for _, v := range r.Allowed {
		if v == value {
			return nil
		}
	}
	return []string{fmt.Sprintf("Field '%s' must be one of: %s", field, strings.Join(r.Allowed, ", "))}
}

// DateRule requires a calendar date.
type DateRule struct {
	Required bool
}

func (r DateRule) IsRequired() bool { return r.Required }
func (r DateRule) Kind() string     { return "date" }

func (r DateRule) check(field, value string) []string {
	if _, ok := parseDate(value); !ok {
		return []string{fmt.Sprintf("Field '%s' must be a valid date (YYYY-MM-DD format)", field)}
	}
	return nil
}

// PhoneRule matches a phone number against Pattern.
type PhoneRule struct {
	Required bool
	Pattern  *regexp.Regexp
}

// DefaultPhonePattern accepts 10 to 15 digits, spaces, dashes and
// parentheses with an optional leading plus.
var DefaultPhonePattern = regexp.MustCompile(`^[+]?[0-9\s\-\(\)]{10,15}$`)

func (r PhoneRule) IsRequired() bool { return r.Required }
func (r PhoneRule) Kind() string     { return "phone" }

func (r PhoneRule) check(field, value string) []string {
	pattern := r.Pattern
	if pattern == nil {
		pattern = DefaultPhonePattern
	}
	if !pattern.MatchString(value) {
		return []string{fmt.Sprintf("Field '%s' must be a valid phone number", field)}
	}
	return nil
}

// parseNumber accepts a finite decimal number. Unlike a lenient prefix parse,
// trailing garbage such as "12abc" is rejected.
func parseNumber(s string) (float64, bool) {
	n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

func formatNumber(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}

var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	time.RFC3339,
}

// parseDate accepts ISO dates, US month/day/year dates and RFC 3339 timestamps.
func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
