// Package repository persists registered observers and their raw observations.
package repository

import (
	"context"

	"github.com/okian/kryds/internal/domain/model"
)

// Store provides read/write access to the competition records. Only raw
// records are kept; every derived view is recomputed by the engine.
type Store interface {
	// AddObserver registers an observer.
	// Returns ErrAlreadyExists if the code is taken.
	AddObserver(ctx context.Context, o model.Observer) error

	// DeleteObserver removes an observer and all of their observations.
	// Returns ErrNotFound if the code is unknown.
	DeleteObserver(ctx context.Context, code string) error

	// Observers returns every registered observer ordered by code.
	Observers(ctx context.Context) ([]model.Observer, error)

	// ReplaceObservations swaps the observer's records for records in one
	// transaction and returns how many were stored.
	// Returns ErrNotFound if the observer is not registered.
	ReplaceObservations(ctx context.Context, code string, records []model.Observation) (int, error)

	// Observations returns every record dated within year.
	Observations(ctx context.Context, year int) ([]model.Observation, error)

	// Count returns the number of stored observations.
	Count(ctx context.Context) int

	// Close releases the underlying database.
	Close() error
}
