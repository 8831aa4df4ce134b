// Package projection restricts and reorders matrix views for display.
// Every function is pure; selections are parameters, never package state.
package projection

import (
	"fmt"
	"sort"
	"sync"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/okian/kryds/internal/domain/aggregate"
	"github.com/okian/kryds/internal/domain/datenorm"
	"github.com/okian/kryds/internal/domain/matrix"
)

// SortMode orders species rows.
type SortMode string

// Species row orderings.
const (
	SortAlphabetical SortMode = "alphabetical"
	SortLatest       SortMode = "latest"
)

// ListMode orders a single observer's crossings.
type ListMode string

// Observer list orderings.
const (
	ListAlphabetical ListMode = "alphabetical"
	ListNewest       ListMode = "newest"
	ListOldest       ListMode = "oldest"
)

// ParseSortMode maps query input to a SortMode; empty means alphabetical.
func ParseSortMode(s string) (SortMode, error) {
	switch SortMode(s) {
	case "", SortAlphabetical:
		return SortAlphabetical, nil
	case SortLatest:
		return SortLatest, nil
	default:
		return "", fmt.Errorf("unknown sort mode %q", s)
	}
}

// ParseListMode maps query input to a ListMode; empty means alphabetical.
func ParseListMode(s string) (ListMode, error) {
	switch ListMode(s) {
	case "", ListAlphabetical:
		return ListAlphabetical, nil
	case ListNewest, ListOldest:
		return ListMode(s), nil
	default:
		return "", fmt.Errorf("unknown list mode %q", s)
	}
}

// Row is one displayed species row.
type Row struct {
	Index   int
	Species string
	Latest  datenorm.Date
	Dated   bool
}

// FilterObservers scopes m to the given codes. No match is not an error: the
// view is simply empty and every aggregate over it is empty too.
func FilterObservers(m *matrix.Matrix, codes []string) matrix.View {
	return m.Restrict(codes)
}

// SortSpecies returns the species rows that have at least one sighting in v,
// ordered by mode. Alphabetical uses Danish collation (æ, ø, å after z).
// Latest orders by the newest parseable date in scope, descending; ties and
// undated rows fall back to alphabetical, undated rows last.
func SortSpecies(v matrix.View, mode SortMode) []Row {
	if v.Empty() {
		return []Row{}
	}
	m := v.Matrix()
	rows := make([]Row, 0, m.Rows())
	for i := 0; i < m.Rows(); i++ {
		if v.RowCount(i) == 0 {
			continue
		}
		latest, dated := v.Latest(i)
		rows = append(rows, Row{Index: i, Species: m.SpeciesAt(i), Latest: latest, Dated: dated})
	}

	col := collators.Get().(*collate.Collator)
	defer collators.Put(col)
	alpha := func(a, b Row) bool { return col.CompareString(a.Species, b.Species) < 0 }

	switch mode {
	case SortLatest:
		sort.SliceStable(rows, func(a, b int) bool {
			ra, rb := rows[a], rows[b]
			if ra.Dated != rb.Dated {
				return ra.Dated
			}
			if c := ra.Latest.Compare(rb.Latest); ra.Dated && c != 0 {
				return c > 0
			}
			return alpha(ra, rb)
		})
	default:
		sort.SliceStable(rows, func(a, b int) bool { return alpha(rows[a], rows[b]) })
	}
	return rows
}

// SortNames orders species names with Danish collation.
func SortNames(names []string) []string {
	out := append([]string(nil), names...)
	col := collators.Get().(*collate.Collator)
	defer collators.Put(col)
	sort.SliceStable(out, func(a, b int) bool { return col.CompareString(out[a], out[b]) < 0 })
	return out
}

// SortObserversByTotal orders the view's totals descending; equal totals keep
// view order.
func SortObserversByTotal(v matrix.View) []matrix.Total {
	totals := v.Totals()
	sort.SliceStable(totals, func(a, b int) bool { return totals[a].Count > totals[b].Count })
	return totals
}

// SingleObserverView builds a one-column matrix holding only the species the
// observer has recorded, newest first, unparseable dates last.
func SingleObserverView(m *matrix.Matrix, code string) (*matrix.Matrix, error) {
	j, ok := m.Column(code)
	if !ok {
		return nil, fmt.Errorf("%w: %s", matrix.ErrUnknownObserver, code)
	}
	crossings := aggregate.Crossings(m, j)
	sort.SliceStable(crossings, func(a, b int) bool {
		return crossings[a].Value.Compare(crossings[b].Value) > 0
	})

	species := make([]string, len(crossings))
	cells := make([][]string, len(crossings))
	for k, c := range crossings {
		species[k] = c.Species
		cells[k] = []string{c.Raw}
	}
	return matrix.New(species, []matrix.Observer{m.ObserverAt(j)}, cells)
}

// ObserverList returns the observer's crossings in the requested order.
// Newest and oldest keep species order on equal dates; unparseable dates sort
// as the oldest.
func ObserverList(m *matrix.Matrix, code string, mode ListMode) ([]aggregate.Crossing, error) {
	j, ok := m.Column(code)
	if !ok {
		return nil, fmt.Errorf("%w: %s", matrix.ErrUnknownObserver, code)
	}
	crossings := aggregate.Crossings(m, j)
	switch mode {
	case ListNewest:
		sort.SliceStable(crossings, func(a, b int) bool {
			return crossings[a].Value.Compare(crossings[b].Value) > 0
		})
	case ListOldest:
		sort.SliceStable(crossings, func(a, b int) bool {
			return crossings[a].Value.Compare(crossings[b].Value) < 0
		})
	default:
		col := collators.Get().(*collate.Collator)
		defer collators.Put(col)
		sort.SliceStable(crossings, func(a, b int) bool {
			return col.CompareString(crossings[a].Species, crossings[b].Species) < 0
		})
	}
	if crossings == nil {
		crossings = []aggregate.Crossing{}
	}
	return crossings, nil
}

// collators hands out Danish collators; one collator must not be used by two
// goroutines at once.
var collators = sync.Pool{
	New: func() any { return collate.New(language.Danish) },
}
