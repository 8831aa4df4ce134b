// Package datenorm parses sighting dates into comparable calendar dates.
//
// Two encodings are accepted verbatim: DD-MM-YYYY (what the matrix source
// emits) and YYYY-MM-DD. Anything else goes through a small list of common
// layouts. Comparison is always by calendar date; time-of-day and zone are
// dropped as written, never converted.
package datenorm

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	dmyPattern = regexp.MustCompile(`^(\d{2})-(\d{2})-(\d{4})$`)
	ymdPattern = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)
)

// fallbackLayouts are tried in order for input matching neither exact pattern.
var fallbackLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006/01/02",
	"02.01.2006",
	"2 Jan 2006",
	"2 January 2006",
	"Jan 2, 2006",
	"January 2, 2006",
	time.RFC1123Z,
	time.RFC1123,
	time.UnixDate,
}

// Date is a calendar date without time-of-day or zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate builds a Date, reporting false when the fields do not name a real day.
func NewDate(year int, month time.Month, day int) (Date, bool) {
	if year < 1 || month < time.January || month > time.December || day < 1 {
		return Date{}, false
	}
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || t.Month() != month || t.Day() != day {
		return Date{}, false
	}
	return Date{Year: year, Month: month, Day: day}, true
}

// FromTime takes the calendar fields of t in its own location.
func FromTime(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// Compare returns -1, 0 or +1 ordering d against o by year, month, then day.
func (d Date) Compare(o Date) int {
	switch {
	case d.Year != o.Year:
		return cmpInt(d.Year, o.Year)
	case d.Month != o.Month:
		return cmpInt(int(d.Month), int(o.Month))
	default:
		return cmpInt(d.Day, o.Day)
	}
}

// SameOrBefore reports whether d falls on or before o.
func (d Date) SameOrBefore(o Date) bool { return d.Compare(o) <= 0 }

// Before reports whether d is strictly earlier than o.
func (d Date) Before(o Date) bool { return d.Compare(o) < 0 }

// IsZero reports whether d is the zero Date.
func (d Date) IsZero() bool { return d == Date{} }

// AddDays returns the date n days after d (n may be negative).
func (d Date) AddDays(n int) Date {
	return FromTime(d.Time().AddDate(0, 0, n))
}

// Time returns midnight UTC of d.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// String renders DD-MM-YYYY.
func (d Date) String() string {
	return fmt.Sprintf("%02d-%02d-%04d", d.Day, int(d.Month), d.Year)
}

// ISO renders YYYY-MM-DD.
func (d Date) ISO() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// Value is the tagged outcome of Parse: either a parsed Date or the raw,
// unparseable input.
type Value struct {
	raw  string
	date Date
	ok   bool
}

// Parse classifies raw. Empty input is unparseable; callers decide whether
// empty means "absent" before calling.
func Parse(raw string) Value {
	s := strings.TrimSpace(raw)
	v := Value{raw: raw}
	if s == "" {
		return v
	}

	if m := dmyPattern.FindStringSubmatch(s); m != nil {
		v.date, v.ok = fromFields(m[3], m[2], m[1])
		return v
	}
	if m := ymdPattern.FindStringSubmatch(s); m != nil {
		v.date, v.ok = fromFields(m[1], m[2], m[3])
		return v
	}

	for _, layout := range fallbackLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		v.date, v.ok = NewDate(t.Date())
		return v
	}
	return v
}

// Parsed wraps an already known date.
func Parsed(d Date) Value {
	return Value{raw: d.String(), date: d, ok: true}
}

// Date returns the parsed date and whether parsing succeeded.
func (v Value) Date() (Date, bool) { return v.date, v.ok }

// Valid reports whether the value holds a comparable date.
func (v Value) Valid() bool { return v.ok }

// Raw returns the input as given.
func (v Value) Raw() string { return v.raw }

// Compare orders two values by date. Unparseable values sort before every
// parsed date and are equal to each other.
func (v Value) Compare(o Value) int {
	switch {
	case v.ok && o.ok:
		return v.date.Compare(o.date)
	case v.ok:
		return 1
	case o.ok:
		return -1
	default:
		return 0
	}
}

func fromFields(ys, ms, ds string) (Date, bool) {
	y, err := strconv.Atoi(ys)
	if err != nil {
		return Date{}, false
	}
	m, err := strconv.Atoi(ms)
	if err != nil {
		return Date{}, false
	}
	d, err := strconv.Atoi(ds)
	if err != nil {
		return Date{}, false
	}
	return NewDate(y, time.Month(m), d)
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
