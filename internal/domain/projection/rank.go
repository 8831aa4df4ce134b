package projection

import "github.com/okian/kryds/internal/domain/matrix"

// Placement is an observer's position in the standings.
type Placement struct {
	Rank  int    `json:"rank"`
	Code  string `json:"code"`
	Count int    `json:"count"`
}

// Rank assigns competition ranks to totals already sorted descending: equal
// counts share a rank and the next rank skips (1, 1, 3).
func Rank(sorted []matrix.Total) []Placement {
	out := make([]Placement, len(sorted))
	for k, t := range sorted {
		rank := k + 1
		if k > 0 && t.Count == sorted[k-1].Count {
			rank = out[k-1].Rank
		}
		out[k] = Placement{Rank: rank, Code: t.Code, Count: t.Count}
	}
	return out
}
