// Package aggregate derives per-observer and per-species summaries from a
// matrix view: totals, blockers, scarcity and the most recent crossings.
package aggregate

import (
	"sort"

	"github.com/okian/kryds/internal/domain/datenorm"
	"github.com/okian/kryds/internal/domain/matrix"
)

// DefaultLatest is how many recent crossings the scoreboard shows per observer.
const DefaultLatest = 5

// Scarcity describes one species row within a view.
type Scarcity struct {
	Species string      `json:"species"`
	Count   int         `json:"count"`
	Tier    matrix.Tier `json:"tier"`
}

// Crossing is one species ticked off by an observer.
type Crossing struct {
	Species string         `json:"species"`
	Raw     string         `json:"date"`
	Value   datenorm.Value `json:"-"`
	row     int
}

// Result bundles the aggregates of one view.
type Result struct {
	Totals   []matrix.Total      `json:"totals"`
	Blockers map[string][]string `json:"blockers"`
	Scarcity []Scarcity          `json:"scarcity"`
}

// Aggregate computes totals, blockers and scarcity for v.
func Aggregate(v matrix.View) Result {
	return Result{
		Totals:   v.Totals(),
		Blockers: Blockers(v),
		Scarcity: ScarcityRows(v),
	}
}

// Blockers maps every observer in scope to the species only they have
// recorded within the view, in species row order.
func Blockers(v matrix.View) map[string][]string {
	out := make(map[string][]string, v.Len())
	for _, code := range v.Codes() {
		out[code] = []string{}
	}
	if v.Empty() {
		return out
	}
	m := v.Matrix()
	for i := 0; i < m.Rows(); i++ {
		seen := v.SeenBy(i)
		if len(seen) == 1 {
			out[seen[0]] = append(out[seen[0]], m.SpeciesAt(i))
		}
	}
	return out
}

// ScarcityRows returns the scarcity of every species row. An empty view
// yields no rows.
func ScarcityRows(v matrix.View) []Scarcity {
	if v.Empty() {
		return []Scarcity{}
	}
	m := v.Matrix()
	out := make([]Scarcity, m.Rows())
	for i := range out {
		n := v.RowCount(i)
		out[i] = Scarcity{Species: m.SpeciesAt(i), Count: n, Tier: matrix.TierFor(n)}
	}
	return out
}

// LatestCrossings returns up to n of code's crossings, newest first.
// Unparseable dates sort as oldest; equal dates keep species order.
// A code outside the view yields nil.
func LatestCrossings(v matrix.View, code string, n int) []Crossing {
	if n <= 0 || v.Empty() {
		return nil
	}
	m := v.Matrix()
	j, ok := m.Column(code)
	if !ok || !inView(v, j) {
		return nil
	}
	all := Crossings(m, j)
	sort.SliceStable(all, func(a, b int) bool {
		return all[a].Value.Compare(all[b].Value) > 0
	})
	if len(all) > n {
		all = all[:n]
	}
	return all
}

// LatestCrossingsAll runs LatestCrossings for every observer in scope.
func LatestCrossingsAll(v matrix.View, n int) map[string][]Crossing {
	out := make(map[string][]Crossing, v.Len())
	for _, code := range v.Codes() {
		out[code] = LatestCrossings(v, code, n)
	}
	return out
}

// Crossings lists the present cells of column j in species order.
func Crossings(m *matrix.Matrix, j int) []Crossing {
	var out []Crossing
	for i := 0; i < m.Rows(); i++ {
		val, ok := m.Value(i, j)
		if !ok {
			continue
		}
		out = append(out, Crossing{Species: m.SpeciesAt(i), Raw: val.Raw(), Value: val, row: i})
	}
	return out
}

// Row returns the matrix row the crossing came from.
func (c Crossing) Row() int { return c.row }

func inView(v matrix.View, col int) bool {
	for _, j := range v.Columns() {
		if j == col {
			return true
		}
	}
	return false
}
