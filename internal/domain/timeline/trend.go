package timeline

import (
	"sort"

	"github.com/okian/kryds/internal/domain/datenorm"
	"github.com/okian/kryds/internal/domain/matrix"
)

// Trend is the "species seen" development over the dates on which anybody in
// the view ticked something, rather than over every calendar day.
type Trend struct {
	Dates     []datenorm.Date  `json:"-"`
	Observers []string         `json:"observers"`
	Series    map[string][]int `json:"series"`
}

// BuildTrend computes the cumulative count per observer on each distinct
// parseable date present in v.
func BuildTrend(v matrix.View, opts ...Option) Trend {
	o := newOptions(opts)
	tr := Trend{
		Observers: v.Codes(),
		Series:    make(map[string][]int, v.Len()),
	}
	if v.Empty() {
		return tr
	}

	dated := sortedDates(v, o.reporter)
	seen := make(map[datenorm.Date]struct{})
	for _, dates := range dated {
		for _, d := range dates {
			seen[d] = struct{}{}
		}
	}
	for d := range seen {
		tr.Dates = append(tr.Dates, d)
	}
	sort.Slice(tr.Dates, func(a, b int) bool { return tr.Dates[a].Before(tr.Dates[b]) })

	for _, code := range tr.Observers {
		tr.Series[code] = cumulative(dated[code], tr.Dates)
	}
	return tr
}
