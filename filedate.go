package main

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// =============================================================================
// Filename Date Extraction
// =============================================================================

// Sentinel errors for errors.Is checks. The concrete error types below carry
// the context (filename, attempted path) needed for a useful log line.
var (
	ErrDateNotFound        = errors.New("date not found in filename")
	ErrInvalidCalendarDate = errors.New("invalid calendar date")
	ErrDirectoryCreation   = errors.New("directory creation failed")
	ErrFolderCollision     = errors.New("date folder collision")
)

// dateKeyPattern matches the yyyyMMdd prefix used by Samsung phone cameras,
// e.g. "20190519_105307.jpg". Anything after the 8 digits is ignored.
var dateKeyPattern = regexp.MustCompile(`^(\d{4})(\d{2})(\d{2})`)

// FileDate is the decomposed calendar date taken from a DateKey.
type FileDate struct {
	Year  int
	Month int
	Day   int
}

// DateNotFoundError reports a filename that does not start with 8 digits.
type DateNotFoundError struct {
	Filename string
}

func (e *DateNotFoundError) Error() string {
	return fmt.Sprintf("expected timestamp in 'yyyyMMdd' format not found in filename: %q", e.Filename)
}

func (e *DateNotFoundError) Is(target error) bool { return target == ErrDateNotFound }

// InvalidCalendarDateError reports 8 leading digits that are not a real date.
type InvalidCalendarDateError struct {
	Filename string
	DateKey  string
}

func (e *InvalidCalendarDateError) Error() string {
	return fmt.Sprintf("filename %q starts with %q which is not a valid calendar date", e.Filename, e.DateKey)
}

func (e *InvalidCalendarDateError) Is(target error) bool { return target == ErrInvalidCalendarDate }

// ExtractDate reads the leading yyyyMMdd of filename.
// filename must not include a directory component.
//
// Returns the 8-digit DateKey verbatim along with its decomposed form.
func ExtractDate(filename string) (string, FileDate, error) {
	m := dateKeyPattern.FindStringSubmatch(filename)
	if m == nil {
		return "", FileDate{}, &DateNotFoundError{Filename: filename}
	}

	key := m[0]
	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	day, _ := strconv.Atoi(m[3])

	d, ok := newFileDate(year, month, day)
	if !ok {
		return "", FileDate{}, &InvalidCalendarDateError{Filename: filename, DateKey: key}
	}
	return key, d, nil
}

// newFileDate validates year/month/day. time.Date normalizes overflow
// (Feb 30 -> Mar 2), so the round trip must reproduce the inputs.
func newFileDate(year, month, day int) (FileDate, bool) {
	if month < 1 || month > 12 || day < 1 {
		return FileDate{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return FileDate{}, false
	}
	return FileDate{Year: year, Month: month, Day: day}, true
}

// dateKeyFromTime formats t as a DateKey. Used for dates that did not come
// from the filename (EXIF fallback).
func dateKeyFromTime(t time.Time) (string, FileDate) {
	return t.Format("20060102"), FileDate{Year: t.Year(), Month: int(t.Month()), Day: t.Day()}
}
