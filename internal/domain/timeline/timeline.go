// Package timeline computes how the standings evolved day by day.
package timeline

import (
	"sort"
	"time"

	"github.com/okian/kryds/internal/domain/datenorm"
	"github.com/okian/kryds/internal/domain/matrix"
)

// Timeline is the cumulative species count per observer at the end of each
// day, plus the observers sharing the lead that day.
type Timeline struct {
	Days      []datenorm.Date  `json:"-"`
	Observers []string         `json:"observers"`
	Series    map[string][]int `json:"series"`
	Leaders   [][]string       `json:"leaders"`
}

// Option configures Build and Trend.
type Option func(*options)

type options struct {
	reporter datenorm.Reporter
}

// WithReporter receives every present cell left out because its date could
// not be parsed. Each cell is reported once per call.
func WithReporter(r datenorm.Reporter) Option {
	return func(o *options) {
		if r != nil {
			o.reporter = r
		}
	}
}

func newOptions(opts []Option) options {
	o := options{reporter: datenorm.Discard}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Range returns the inclusive first and last day plotted for year. The range
// stops at today when today falls inside the year; a year that has not started
// yet has no days (ok is false).
func Range(year int, today datenorm.Date) (first, last datenorm.Date, ok bool) {
	first = datenorm.Date{Year: year, Month: time.January, Day: 1}
	last = datenorm.Date{Year: year, Month: time.December, Day: 31}
	if today.Year == year {
		last = today
	}
	if last.Before(first) || today.Before(first) {
		return first, last, false
	}
	return first, last, true
}

// Build computes the day-by-day leaderboard for year over v.
func Build(v matrix.View, year int, today datenorm.Date, opts ...Option) Timeline {
	o := newOptions(opts)
	tl := Timeline{
		Observers: v.Codes(),
		Series:    make(map[string][]int, v.Len()),
	}
	if v.Empty() {
		tl.Leaders = [][]string{}
		return tl
	}

	first, last, ok := Range(year, today)
	if ok {
		for d := first; d.SameOrBefore(last); d = d.AddDays(1) {
			tl.Days = append(tl.Days, d)
		}
	}

	dated := sortedDates(v, o.reporter)
	for _, code := range tl.Observers {
		tl.Series[code] = cumulative(dated[code], tl.Days)
	}

	tl.Leaders = make([][]string, len(tl.Days))
	for k := range tl.Days {
		tl.Leaders[k] = leadersAt(tl.Observers, tl.Series, k)
	}
	return tl
}

// Last returns each observer's count on the final day, or nil without days.
func (tl Timeline) Last() map[string]int {
	if len(tl.Days) == 0 {
		return nil
	}
	out := make(map[string]int, len(tl.Series))
	for code, s := range tl.Series {
		out[code] = s[len(s)-1]
	}
	return out
}

// leadersAt returns every observer holding the maximum count on day k, in
// observer order.
func leadersAt(codes []string, series map[string][]int, k int) []string {
	best := -1
	var leaders []string
	for _, code := range codes {
		n := series[code][k]
		switch {
		case n > best:
			best = n
			leaders = []string{code}
		case n == best:
			leaders = append(leaders, code)
		}
	}
	return leaders
}

// sortedDates collects each observer's parseable dates in ascending order.
func sortedDates(v matrix.View, r datenorm.Reporter) map[string][]datenorm.Date {
	m := v.Matrix()
	out := make(map[string][]datenorm.Date, v.Len())
	for _, j := range v.Columns() {
		code := m.ObserverAt(j).Code
		var dates []datenorm.Date
		for i := 0; i < m.Rows(); i++ {
			val, present := m.Value(i, j)
			if !present {
				continue
			}
			d, ok := val.Date()
			if !ok {
				r.ReportUnparseable(m.SpeciesAt(i), code, val.Raw())
				continue
			}
			dates = append(dates, d)
		}
		sort.Slice(dates, func(a, b int) bool { return dates[a].Before(dates[b]) })
		out[code] = dates
	}
	return out
}

// cumulative counts, for each day on axis, how many of the ascending dates
// fall on or before it.
func cumulative(dates, axis []datenorm.Date) []int {
	out := make([]int, len(axis))
	next := 0
	for k, day := range axis {
		for next < len(dates) && dates[next].SameOrBefore(day) {
			next++
		}
		out[k] = next
	}
	return out
}
