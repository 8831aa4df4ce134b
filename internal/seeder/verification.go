package seeder

import (
	"errors"
	"fmt"
)

// ErrMismatch is returned when the served scoreboard disagrees with the
// generated data.
var ErrMismatch = errors.New("scoreboard mismatch")

// Verify checks that every generated observer is on the scoreboard with its
// distinct species count, that totals never increase down the table and that
// tied observers share a rank. It returns how many standings were checked.
func Verify(expected map[string]int, sb Scoreboard) (int, error) {
	var errs []error

	seen := make(map[string]bool, len(sb.Standings))
	for k, st := range sb.Standings {
		seen[st.Code] = true

		if k > 0 {
			prev := sb.Standings[k-1]
			if st.Total > prev.Total {
				errs = append(errs, fmt.Errorf("standing %d (%s) outscores %s above it", k, st.Code, prev.Code))
			}
			want := k + 1
			if st.Total == prev.Total {
				want = prev.Rank
			}
			if st.Rank != want {
				errs = append(errs, fmt.Errorf("%s has rank %d, want %d", st.Code, st.Rank, want))
			}
		} else if st.Rank != 1 {
			errs = append(errs, fmt.Errorf("%s leads with rank %d", st.Code, st.Rank))
		}

		if total, ok := expected[st.Code]; ok && total != st.Total {
			errs = append(errs, fmt.Errorf("%s has %d species, want %d", st.Code, st.Total, total))
		}
	}

	for code := range expected {
		if !seen[code] {
			errs = append(errs, fmt.Errorf("%s is missing", code))
		}
	}

	if len(errs) > 0 {
		return len(sb.Standings), fmt.Errorf("%w: %w", ErrMismatch, errors.Join(errs...))
	}
	return len(sb.Standings), nil
}
