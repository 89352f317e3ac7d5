// Package datetemplate parses dates written in a positional template
// language. A template is a string of the same length as the dates it
// describes; the characters y, m, d and w mark the digits of the year,
// month, day and ISO week. Every other character is a placeholder that
// must be present but is not read.
//
//	yyyy-mm-dd   2024-03-01
//	mm/dd/yy     03/01/24
//	yyyyww       201501      (ISO week 1 of 2015, Monday 2014-12-29)
package datetemplate

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrNotADate is returned when a candidate does not parse under a template.
var ErrNotADate = errors.New("not a date")

// shiftDays is the reporting-calendar shift applied by WithShift.
const shiftDays = 28

const codes = "ymdw"

// Template is a compiled date template.
type Template struct {
	pattern string
	shift   bool
	counts  map[byte]int
}

// Option configures a Template.
type Option func(*Template)

// WithShift moves every parsed date four weeks later. Some retailers report
// on a calendar that runs four weeks behind the gregorian one.
func WithShift(shift bool) Option {
	return func(t *Template) {
		t.shift = shift
	}
}

// New compiles a template. Templates without a year code can never match.
func New(pattern string, opts ...Option) *Template {
	t := &Template{
		pattern: pattern,
		counts:  make(map[byte]int, len(codes)),
	}
	for i := 0; i < len(pattern); i++ {
		if strings.IndexByte(codes, pattern[i]) >= 0 {
			t.counts[pattern[i]]++
		}
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// String returns the template pattern.
func (t *Template) String() string {
	return t.pattern
}

// Shifted reports whether parsed dates are shifted four weeks.
func (t *Template) Shifted() bool {
	return t.shift
}

// IsWeekly reports whether the template resolves dates through ISO weeks.
// A template with w and d but no m reads d as the ISO weekday, Monday 1
// through Sunday 7. A calendar date is built only when m and d are both
// present, in which case any w component is ignored.
func (t *Template) IsWeekly() bool {
	return t.counts['w'] > 0 && (t.counts['d'] == 0 || t.counts['m'] == 0)
}

// Parse converts candidate to a date. It never panics; any mismatch in
// length, non-digit component or out-of-range value yields ErrNotADate.
func (t *Template) Parse(candidate string) (time.Time, error) {
	if len(candidate) != len(t.pattern) || t.counts['y'] == 0 {
		return time.Time{}, ErrNotADate
	}

	parts := make(map[byte][]byte, len(codes))
	for i := 0; i < len(t.pattern); i++ {
		c := t.pattern[i]
		if strings.IndexByte(codes, c) < 0 {
			continue
		}
		parts[c] = append(parts[c], candidate[i])
	}

	year, ok := component(parts['y'], -1)
	if !ok {
		return time.Time{}, ErrNotADate
	}
	if len(parts['y']) == 2 {
		year += 2000
	}

	day, ok := component(parts['d'], 1)
	if !ok {
		return time.Time{}, ErrNotADate
	}

	var date time.Time
	if t.IsWeekly() {
		week, ok := component(parts['w'], -1)
		if !ok {
			return time.Time{}, ErrNotADate
		}
		date, ok = isoWeekDate(year, week, day)
		if !ok {
			return time.Time{}, ErrNotADate
		}
	} else {
		month, ok := component(parts['m'], -1)
		if !ok || month < 1 || month > 12 {
			return time.Time{}, ErrNotADate
		}
		date = time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
		if date.Day() != day || int(date.Month()) != month {
			return time.Time{}, ErrNotADate
		}
	}

	if t.shift {
		date = date.AddDate(0, 0, shiftDays)
	}

	return date, nil
}

// Format writes date under the template, the inverse of Parse for dates the
// template can represent. The shift is not reversed.
func (t *Template) Format(date time.Time) string {
	isoYear, isoWeek := date.ISOWeek()
	weekly := t.IsWeekly()

	values := map[byte]int{
		'y': date.Year(),
		'm': int(date.Month()),
		'd': date.Day(),
		'w': isoWeek,
	}
	if weekly {
		values['y'] = isoYear
		values['d'] = isoWeekday(date)
	}

	digits := make(map[byte]string, len(codes))
	for c, n := range t.counts {
		s := strconv.Itoa(values[c])
		if len(s) < n {
			s = strings.Repeat("0", n-len(s)) + s
		}
		digits[c] = s[len(s)-n:]
	}

	var b strings.Builder
	b.Grow(len(t.pattern))
	used := make(map[byte]int, len(codes))
	for i := 0; i < len(t.pattern); i++ {
		c := t.pattern[i]
		if s, ok := digits[c]; ok {
			b.WriteByte(s[used[c]])
			used[c]++
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// ParseDate is a convenience wrapper around New(pattern).Parse(candidate).
func ParseDate(pattern, candidate string) (time.Time, error) {
	date, err := New(pattern).Parse(candidate)
	if err != nil {
		return time.Time{}, fmt.Errorf("%q under %q: %w", candidate, pattern, err)
	}
	return date, nil
}

// component reads an all-digit component. An empty component yields def,
// and is rejected when def is negative.
func component(digits []byte, def int) (int, bool) {
	if len(digits) == 0 {
		return def, def >= 0
	}
	n := 0
	for _, c := range digits {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, true
}

// isoYearStart returns the Monday of ISO week 1, the week containing 4 January.
func isoYearStart(year int) time.Time {
	jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, time.UTC)
	return jan4.AddDate(0, 0, 1-isoWeekday(jan4))
}

func isoWeekDate(year, week, day int) (time.Time, bool) {
	if week < 1 || week > 53 || day < 1 || day > 7 {
		return time.Time{}, false
	}
	date := isoYearStart(year).AddDate(0, 0, (week-1)*7+day-1)
	if y, w := date.ISOWeek(); y != year || w != week {
		return time.Time{}, false
	}
	return date, true
}

// isoWeekday numbers Monday 1 through Sunday 7.
func isoWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}
