// Package model contains domain models passed between layers.
package model

import (
	"time"

	"github.com/okian/kryds/internal/domain/datenorm"
)

// Observation is one raw sighting as delivered by the observation export.
// Several observations may exist per (observer, species); the matrix keeps
// only the earliest.
type Observation struct {
	ID        string        // row id assigned on storage
	Observer  string        // observer code
	Species   string        // species name as exported, possibly with subspecies
	Date      datenorm.Date // sighting day
	TripID    string        // trip/list identifier, optional
	TripStart string        // HH:MM, optional
	TripEnd   string        // HH:MM, optional
	TripNotes string        // free text on the trip, optional
}

// Observer is a registered competition participant.
type Observer struct {
	Code      string
	Name      string
	CreatedAt time.Time
}

// DisplayName returns Name, falling back to Code.
func (o Observer) DisplayName() string {
	if o.Name == "" {
		return o.Code
	}
	return o.Name
}
