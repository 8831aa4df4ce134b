package matrix

import "github.com/okian/kryds/internal/domain/datenorm"

// Tier buckets how many observers in a view have recorded a species.
type Tier int

// Scarcity tiers, rarest first.
const (
	TierNone Tier = iota
	TierSingle
	TierPair
	TierTriple
	TierCommon
)

// TierFor maps an observer count to its tier.
func TierFor(count int) Tier {
	switch {
	case count <= 0:
		return TierNone
	case count == 1:
		return TierSingle
	case count == 2:
		return TierPair
	case count == 3:
		return TierTriple
	default:
		return TierCommon
	}
}

func (t Tier) String() string {
	switch t {
	case TierSingle:
		return "single"
	case TierPair:
		return "pair"
	case TierTriple:
		return "triple"
	case TierCommon:
		return "common"
	default:
		return "none"
	}
}

// MarshalText encodes the tier by name.
func (t Tier) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

// Total is one observer's count of present cells within a view.
type Total struct {
	Code  string `json:"code"`
	Count int    `json:"count"`
}

// View is a matrix plus the observer columns in scope. The zero View is empty.
type View struct {
	m    *Matrix
	cols []int
}

// Matrix returns the underlying matrix.
func (v View) Matrix() *Matrix { return v.m }

// Empty reports whether no observer is in scope.
func (v View) Empty() bool { return v.m == nil || len(v.cols) == 0 }

// Len returns the number of observers in scope.
func (v View) Len() int { return len(v.cols) }

// Columns returns the matrix column indices in scope.
func (v View) Columns() []int { return append([]int(nil), v.cols...) }

// Codes returns the observer codes in scope.
func (v View) Codes() []string {
	out := make([]string, len(v.cols))
	for k, j := range v.cols {
		out[k] = v.m.observers[j].Code
	}
	return out
}

// Observers returns the observers in scope.
func (v View) Observers() []Observer {
	out := make([]Observer, len(v.cols))
	for k, j := range v.cols {
		out[k] = v.m.observers[j]
	}
	return out
}

// Rows returns the number of species rows, or 0 for a view without a matrix.
func (v View) Rows() int {
	if v.m == nil {
		return 0
	}
	return v.m.Rows()
}

// Totals counts present cells per observer in scope, in view order.
func (v View) Totals() []Total {
	out := make([]Total, len(v.cols))
	for k, j := range v.cols {
		n := 0
		for i := range v.m.present {
			if v.m.present[i][j] {
				n++
			}
		}
		out[k] = Total{Code: v.m.observers[j].Code, Count: n}
	}
	return out
}

// RowCount counts the observers in scope with a sighting of species row i.
func (v View) RowCount(i int) int {
	n := 0
	for _, j := range v.cols {
		if v.m.present[i][j] {
			n++
		}
	}
	return n
}

// ScarcityTier buckets RowCount(i).
func (v View) ScarcityTier(i int) Tier { return TierFor(v.RowCount(i)) }

// SeenBy returns the codes in scope that recorded species row i.
func (v View) SeenBy(i int) []string {
	var out []string
	for _, j := range v.cols {
		if v.m.present[i][j] {
			out = append(out, v.m.observers[j].Code)
		}
	}
	return out
}

// Latest returns the most recent parseable date in row i within scope.
func (v View) Latest(i int) (datenorm.Date, bool) {
	var (
		best  datenorm.Date
		found bool
	)
	for _, j := range v.cols {
		if !v.m.present[i][j] {
			continue
		}
		d, ok := v.m.cells[i][j].Date()
		if !ok {
			continue
		}
		if !found || best.Before(d) {
			best, found = d, true
		}
	}
	return best, found
}
