// Package ingest turns raw observation records into an observation matrix.
package ingest

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/okian/kryds/internal/domain/datenorm"
	"github.com/okian/kryds/internal/domain/matrix"
	"github.com/okian/kryds/internal/domain/model"
)

const tripClockLayout = "15:04"

// MainSpecies reduces an exported species name to the species it counts as:
// the text before any "(" and then before any ",". Genus-only records
// ("sp."), pairs ("/") and hybrids (" x ") do not count and return false.
func MainSpecies(name string) (string, bool) {
	main, _, _ := strings.Cut(name, "(")
	main, _, _ = strings.Cut(main, ",")
	main = strings.TrimSpace(main)
	if main == "" {
		return "", false
	}
	if strings.Contains(main, "sp.") || strings.Contains(main, "/") || strings.Contains(main, " x ") {
		return "", false
	}
	return main, true
}

// KeepTrips returns the records whose trip notes contain tag. An empty tag
// keeps everything.
func KeepTrips(records []model.Observation, tag string) []model.Observation {
	if tag == "" {
		return records
	}
	out := make([]model.Observation, 0, len(records))
	for _, r := range records {
		if strings.Contains(r.TripNotes, tag) {
			out = append(out, r)
		}
	}
	return out
}

// Build assembles the matrix for the given records. Each cell holds the
// observer's earliest date for the species as DD-MM-YYYY. Columns are the
// union of registered observers and observers with records, sorted by code;
// rows are the counted species, sorted by name.
func Build(records []model.Observation, registered []model.Observer) (*matrix.Matrix, error) {
	type tripKey struct{ observer, trip string }

	earliest := make(map[string]map[string]datenorm.Date)
	names := make(map[string]string)
	trips := make(map[string]map[string]struct{})
	tripSpan := make(map[tripKey][2]string)

	for _, o := range registered {
		names[o.Code] = o.DisplayName()
	}

	for _, r := range records {
		species, ok := MainSpecies(r.Species)
		if !ok {
			continue
		}
		if _, ok := names[r.Observer]; !ok {
			names[r.Observer] = r.Observer
		}
		bySpecies := earliest[species]
		if bySpecies == nil {
			bySpecies = make(map[string]datenorm.Date)
			earliest[species] = bySpecies
		}
		if cur, ok := bySpecies[r.Observer]; !ok || r.Date.Before(cur) {
			bySpecies[r.Observer] = r.Date
		}

		if r.TripID == "" {
			continue
		}
		if trips[r.Observer] == nil {
			trips[r.Observer] = make(map[string]struct{})
		}
		trips[r.Observer][r.TripID] = struct{}{}
		if r.TripStart != "" && r.TripEnd != "" {
			tripSpan[tripKey{r.Observer, r.TripID}] = [2]string{r.TripStart, r.TripEnd}
		}
	}

	codes := make([]string, 0, len(names))
	for code := range names {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	minutes := make(map[string]int, len(codes))
	for k, span := range tripSpan {
		minutes[k.observer] += TripMinutes(span[0], span[1])
	}

	observers := make([]matrix.Observer, len(codes))
	for j, code := range codes {
		observers[j] = matrix.Observer{
			Code:         code,
			Name:         names[code],
			Observations: len(trips[code]),
			TimeSpent:    FormatMinutes(minutes[code]),
		}
	}

	species := make([]string, 0, len(earliest))
	for s := range earliest {
		species = append(species, s)
	}
	sort.Strings(species)

	cells := make([][]string, len(species))
	for i, s := range species {
		row := make([]string, len(codes))
		for j, code := range codes {
			if d, ok := earliest[s][code]; ok {
				row[j] = d.String()
			}
		}
		cells[i] = row
	}
	return matrix.New(species, observers, cells)
}

// TripMinutes returns the whole minutes between two HH:MM clock readings.
// Malformed input or an end before the start counts as zero.
func TripMinutes(start, end string) int {
	t1, err := time.Parse(tripClockLayout, strings.TrimSpace(start))
	if err != nil {
		return 0
	}
	t2, err := time.Parse(tripClockLayout, strings.TrimSpace(end))
	if err != nil {
		return 0
	}
	diff := int(t2.Sub(t1).Minutes())
	if diff < 0 {
		return 0
	}
	return diff
}

// FormatMinutes renders a duration in minutes as HH:MM.
func FormatMinutes(total int) string {
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}
