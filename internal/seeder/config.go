// Package seeder fills a running kryds service with a generated competition
// and checks that the scoreboard it serves agrees with the generated data.
package seeder

import "time"

// Config holds configuration for a seeding run.
type Config struct {
	BaseURL    string        // Base URL of the service
	Observers  int           // Number of observers to register
	Sightings  int           // Sightings generated per observer
	Year       int           // Competition year the sightings fall in
	Seed       uint64        // Generator seed, 0 picks one from the clock
	Workers    int           // Concurrent uploads
	Timeout    time.Duration // HTTP request timeout
	TripNotes  string        // Notes put on every trip, e.g. the server's trip filter tag
	OutputFile string        // Where generated uploads are saved, empty skips saving
	Verbose    bool          // Log every upload
}

// Sighting is one generated record in the PUT /observations body shape.
type Sighting struct {
	Species   string `json:"species"`
	Date      string `json:"date"`
	TripID    string `json:"trip_id,omitempty"`
	TripStart string `json:"trip_start,omitempty"`
	TripEnd   string `json:"trip_end,omitempty"`
	TripNotes string `json:"trip_notes,omitempty"`
}

// Upload is everything generated for one observer.
type Upload struct {
	Code         string     `json:"code"`
	Name         string     `json:"name"`
	Observations []Sighting `json:"observations"`
}

// Standing is the subset of a scoreboard line the verifier reads.
type Standing struct {
	Rank  int    `json:"rank"`
	Code  string `json:"code"`
	Total int    `json:"total"`
}

// Scoreboard is the subset of GET /scoreboard the verifier reads.
type Scoreboard struct {
	Year      int        `json:"year"`
	Standings []Standing `json:"standings"`
}

// Stats holds run statistics.
type Stats struct {
	ObserversGenerated  int
	ObserversRegistered int
	ObserversExisting   int
	UploadsSuccessful   int
	UploadsFailed       int
	SightingsUploaded   int
	StandingsVerified   int
	StartTime           time.Time
	EndTime             time.Time
	Duration            time.Duration
}
