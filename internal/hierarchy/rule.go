package hierarchy

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// RuleKind is the closed set of completion-rule types. Adding a kind means
// every switch over RuleKind stops compiling until it handles the new case.
type RuleKind int

const (
	RuleFixedDate RuleKind = iota + 1
	RuleDurationFromSelf
	RuleDurationFromParent
	RuleDurationFromCourseRoot
)

func (k RuleKind) String() string {
	switch k {
	case RuleFixedDate:
		return "fixed_date"
	case RuleDurationFromSelf:
		return "duration_from_self"
	case RuleDurationFromParent:
		return "duration_from_parent"
	case RuleDurationFromCourseRoot:
		return "duration_from_course_root"
	default:
		return "unknown"
	}
}

// Rule is a parsed completion rule. Date is set for fixed-date rules,
// Duration for the three duration kinds.
type Rule struct {
	Kind     RuleKind
	Date     time.Time
	Duration Period
}

// Period is a calendar-aware span (ISO-8601 period). Calendar units go
// through time.AddDate so month/year arithmetic follows the calendar, not a
// fixed hour count.
type Period struct {
	Years  int
	Months int
	Days   int
	Clock  time.Duration
}

func (p Period) AddTo(t time.Time) time.Time {
	return t.AddDate(p.Years, p.Months, p.Days).Add(p.Clock)
}

func (p Period) Zero() bool {
	return p.Years == 0 && p.Months == 0 && p.Days == 0 && p.Clock == 0
}

var periodRe = regexp.MustCompile(`^P(?:(\d+)Y)?(?:(\d+)M)?(?:(\d+)W)?(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?)?$`)

// ParsePeriod parses an ISO-8601 duration such as "P3D" or "P1Y2MT3H".
// Plain Go durations ("72h") are accepted as a fallback.
func ParsePeriod(s string) (Period, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Period{}, fmt.Errorf("empty duration")
	}
	m := periodRe.FindStringSubmatch(strings.ToUpper(s))
	if m == nil {
		d, err := time.ParseDuration(s)
		if err != nil {
			return Period{}, fmt.Errorf("invalid duration %q", s)
		}
		return Period{Clock: d}, nil
	}
	atoi := func(v string) int {
		if v == "" {
			return 0
		}
		n, _ := strconv.Atoi(v)
		return n
	}
	p := Period{
		Years:  atoi(m[1]),
		Months: atoi(m[2]),
		Days:   atoi(m[3])*7 + atoi(m[4]),
		Clock: time.Duration(atoi(m[5]))*time.Hour +
			time.Duration(atoi(m[6]))*time.Minute +
			time.Duration(atoi(m[7]))*time.Second,
	}
	if p.Zero() {
		return Period{}, fmt.Errorf("zero duration %q", s)
	}
	return p, nil
}

// ParseRule turns a stored completion-rule row into its tagged variant.
func ParseRule(ruleType, value string) (*Rule, error) {
	switch strings.TrimSpace(strings.ToLower(ruleType)) {
	case "fixed_date":
		date, err := parseDate(value)
		if err != nil {
			return nil, err
		}
		return &Rule{Kind: RuleFixedDate, Date: date}, nil
	case "duration_from_self":
		return parseDurationRule(RuleDurationFromSelf, value)
	case "duration_from_parent":
		return parseDurationRule(RuleDurationFromParent, value)
	case "duration_from_course_root":
		return parseDurationRule(RuleDurationFromCourseRoot, value)
	default:
		return nil, fmt.Errorf("unknown completion rule type %q", ruleType)
	}
}

func parseDurationRule(kind RuleKind, value string) (*Rule, error) {
	p, err := ParsePeriod(value)
	if err != nil {
		return nil, fmt.Errorf("completion rule %s: %w", kind, err)
	}
	return &Rule{Kind: kind, Duration: p}, nil
}

func parseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid fixed date %q", value)
}
