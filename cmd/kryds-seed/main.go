package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/okian/kryds/internal/seeder"
	"github.com/okian/kryds/pkg/logger"
)

// Default configuration constants.
const (
	defaultObservers = 12
	defaultSightings = 80
	defaultWorkers   = 2 // multiplier for runtime.NumCPU()
	defaultTimeout   = 30 * time.Second
	defaultRunLimit  = 10 * time.Minute
)

const usage = `kryds seeding tool
==================

Registers generated observers with a running kryds service, uploads their
sightings and verifies the scoreboard it serves.

Usage:
  go run ./cmd/kryds-seed [options]

Options:
`

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:9080", "Base URL of the service")
		observers  = flag.Int("observers", defaultObservers, "Number of observers to register")
		sightings  = flag.Int("sightings", defaultSightings, "Sightings generated per observer")
		year       = flag.Int("year", time.Now().Year(), "Competition year the sightings fall in")
		seed       = flag.Uint64("seed", 0, "Generator seed (0 picks one from the clock)")
		workers    = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Concurrent uploads")
		timeout    = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		tripNotes  = flag.String("trip-notes", "", "Notes put on every generated trip (match the server's trip_filter)")
		outputFile = flag.String("output", "", "Save generated uploads to this JSON file")
		logFormat  = flag.String("log-format", "text", "Log format: text or json")
		verbose    = flag.Bool("verbose", false, "Log every upload")
	)
	flag.Usage = func() {
		os.Stderr.WriteString(usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if err := logger.Init(logger.WithFormat(*logFormat)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := logger.Named("seeder")

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunLimit)
	defer cancel()

	cfg := &seeder.Config{
		BaseURL:    *baseURL,
		Observers:  *observers,
		Sightings:  *sightings,
		Year:       *year,
		Seed:       *seed,
		Workers:    *workers,
		Timeout:    *timeout,
		TripNotes:  *tripNotes,
		OutputFile: *outputFile,
		Verbose:    *verbose,
	}

	if _, err := seeder.Run(ctx, cfg, log); err != nil {
		log.Error(ctx, "seeding run failed", logger.Error(err))
		cancel()
		os.Exit(1)
	}
}
