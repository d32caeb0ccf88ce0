package main

import (
	"fmt"
	"regexp"
	"strings"
)

// =============================================================================
// Date Range Filtering
// =============================================================================

// DateSpecMode selects how filenames are compared against the datespec.
type DateSpecMode string

const (
	DateSpecAll      DateSpecMode = "ALL"
	DateSpecNewer    DateSpecMode = "NEWER_ONLY"
	DateSpecAbsolute DateSpecMode = "ABSOLUTE_DATE"
)

// dateSpecHelp is shown in the usage text for the positional argument.
const dateSpecHelp = `Defines the date ranges that are considered for copying.

 (1) "all"        All dates are considered
 (2) "yyyyMMdd"   All dates after that date ("yyyyMM" and "yyyy" also work)
 (3) "[yyyyMMdd]" Only that date`

var (
	newerSpecPattern    = regexp.MustCompile(`^(\d{8}|\d{6}|\d{4})$`)
	absoluteSpecPattern = regexp.MustCompile(`^\[(\d{8})\]$`)
)

// DateSpec filters filenames by their leading date.
type DateSpec struct {
	Mode  DateSpecMode
	Value string // the date portion, without brackets
}

// ParseDateSpec interprets a datespec string. An empty spec, "." or "all"
// selects every file.
func ParseDateSpec(s string) (DateSpec, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "", s == ".", strings.EqualFold(s, "all"):
		return DateSpec{Mode: DateSpecAll}, nil
	case newerSpecPattern.MatchString(s):
		return DateSpec{Mode: DateSpecNewer, Value: s}, nil
	case absoluteSpecPattern.MatchString(s):
		return DateSpec{Mode: DateSpecAbsolute, Value: absoluteSpecPattern.FindStringSubmatch(s)[1]}, nil
	}
	return DateSpec{}, fmt.Errorf("invalid datespec %q: expected all, yyyyMMdd, yyyyMM, yyyy or [yyyyMMdd]", s)
}

// Match reports whether filename falls inside the spec.
//
// NEWER_ONLY compares the whole filename lexically with the spec. Fixed-width
// dates make that chronological, and a longer string sharing the prefix sorts
// after it: "2011" < "20110222", so files from the spec date itself match.
func (s DateSpec) Match(filename string) bool {
	switch s.Mode {
	case DateSpecNewer:
		return filename > s.Value
	case DateSpecAbsolute:
		return strings.HasPrefix(filename, s.Value)
	default:
		return true
	}
}

func (s DateSpec) String() string {
	if s.Value == "" {
		return string(s.Mode)
	}
	return fmt.Sprintf("%s(%s)", s.Mode, s.Value)
}
