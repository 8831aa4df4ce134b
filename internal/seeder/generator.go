package seeder

import (
	"fmt"
	"math/rand/v2"
	"time"
)

// species is the pool sightings are drawn from. Names are plain so every one
// counts as its own species.
var species = []string{
	"Allike", "Blåmejse", "Bogfinke", "Dompap", "Gråand", "Gråkrage",
	"Gærdesmutte", "Husskade", "Knopsvane", "Musvåge", "Musvit", "Rødhals",
	"Ringdue", "Solsort", "Spurvehøg", "Stær", "Sølvmåge", "Tårnfalk",
	"Skovskade", "Fiskehejre", "Gransanger", "Grønirisk", "Stillits", "Sjagger",
}

const (
	tripMinutesMin   = 30
	tripMinutesRange = 240
	tripStartMin     = 5 * 60
	tripStartRange   = 10 * 60
)

// Generate builds one upload per observer. Observer k gets code "S<k>" and
// sightings dated within cfg.Year, spread over a handful of trips.
func Generate(cfg *Config) []Upload {
	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	rng := rand.New(rand.NewPCG(seed, seed>>1|1))

	start := time.Date(cfg.Year, time.January, 1, 0, 0, 0, 0, time.UTC)
	daysInYear := start.AddDate(1, 0, 0).Sub(start).Hours() / 24

	uploads := make([]Upload, cfg.Observers)
	for k := range uploads {
		code := fmt.Sprintf("S%d", k+1)
		trips := 1 + cfg.Sightings/4
		sightings := make([]Sighting, cfg.Sightings)
		for i := range sightings {
			trip := rng.IntN(trips)
			day := start.AddDate(0, 0, rng.IntN(int(daysInYear)))
			from := tripStartMin + (trip*37)%tripStartRange
			sightings[i] = Sighting{
				Species:   species[rng.IntN(len(species))],
				Date:      day.Format("02-01-2006"),
				TripID:    fmt.Sprintf("%s-t%d", code, trip),
				TripStart: clock(from),
				TripEnd:   clock(from + tripMinutesMin + (trip*53)%tripMinutesRange),
				TripNotes: cfg.TripNotes,
			}
		}
		uploads[k] = Upload{Code: code, Name: "Seeded observer " + code, Observations: sightings}
	}
	return uploads
}

// Expected returns the distinct species count per observer code.
func Expected(uploads []Upload) map[string]int {
	out := make(map[string]int, len(uploads))
	for _, u := range uploads {
		seen := make(map[string]struct{}, len(u.Observations))
		for _, s := range u.Observations {
			seen[s.Species] = struct{}{}
		}
		out[u.Code] = len(seen)
	}
	return out
}

func clock(minutes int) string {
	minutes %= 24 * 60
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
