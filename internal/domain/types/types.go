// Package types contains the read shapes returned by the service and served as JSON.
package types

import (
	"github.com/okian/kryds/internal/domain/aggregate"
	"github.com/okian/kryds/internal/domain/datenorm"
	"github.com/okian/kryds/internal/domain/matrix"
	"github.com/okian/kryds/internal/domain/timeline"
)

// Standing is one observer's line on the scoreboard.
type Standing struct {
	Rank         int                  `json:"rank"`
	Code         string               `json:"code"`
	Name         string               `json:"name"`
	Total        int                  `json:"total"`
	Observations int                  `json:"observations"`
	TimeSpent    string               `json:"time_spent"`
	Blockers     []string             `json:"blockers"`
	Latest       []aggregate.Crossing `json:"latest"`
}

// SpeciesRow is one species line: who has it and how scarce it is.
type SpeciesRow struct {
	Species string            `json:"species"`
	Count   int               `json:"count"`
	Tier    matrix.Tier       `json:"tier"`
	Cells   map[string]string `json:"cells"`
}

// Scoreboard is the full competition table for a year and observer selection.
type Scoreboard struct {
	Year        int          `json:"year"`
	Sort        string       `json:"sort"`
	Unparseable int          `json:"unparseable"`
	Standings   []Standing   `json:"standings"`
	Species     []SpeciesRow `json:"species"`
}

// Timeline is the day-by-day leaderboard with days rendered DD-MM-YYYY.
type Timeline struct {
	Year      int              `json:"year"`
	Days      []string         `json:"days"`
	Observers []string         `json:"observers"`
	Series    map[string][]int `json:"series"`
	Leaders   [][]string       `json:"leaders"`
}

// Trend is the cumulative species count on each date somebody ticked something.
type Trend struct {
	Year      int              `json:"year"`
	Dates     []string         `json:"dates"`
	Observers []string         `json:"observers"`
	Series    map[string][]int `json:"series"`
}

// ObserverList is one observer's crossings in the requested order.
type ObserverList struct {
	Year      int                  `json:"year"`
	Observer  matrix.Observer      `json:"observer"`
	Mode      string               `json:"mode"`
	Total     int                  `json:"total"`
	Crossings []aggregate.Crossing `json:"crossings"`
}

// Dashboard bundles the scoreboard, timeline and trend of one snapshot.
type Dashboard struct {
	Scoreboard Scoreboard `json:"scoreboard"`
	Timeline   Timeline   `json:"timeline"`
	Trend      Trend      `json:"trend"`
}

// Matrix is the raw grid as served by GET /matrix.
type Matrix struct {
	Year      int               `json:"year"`
	Species   []string          `json:"species"`
	Observers []matrix.Observer `json:"observers"`
	Cells     [][]string        `json:"cells"`
}

// Observer is a registered participant.
type Observer struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// NewTimeline renders a computed timeline for the wire.
func NewTimeline(year int, tl timeline.Timeline) Timeline {
	leaders := tl.Leaders
	if leaders == nil {
		leaders = [][]string{}
	}
	return Timeline{
		Year:      year,
		Days:      formatDates(tl.Days),
		Observers: nonNil(tl.Observers),
		Series:    tl.Series,
		Leaders:   leaders,
	}
}

// NewTrend renders a computed trend for the wire.
func NewTrend(year int, tr timeline.Trend) Trend {
	return Trend{
		Year:      year,
		Dates:     formatDates(tr.Dates),
		Observers: nonNil(tr.Observers),
		Series:    tr.Series,
	}
}

// NewMatrix copies m into its wire shape.
func NewMatrix(year int, m *matrix.Matrix) Matrix {
	out := Matrix{
		Year:      year,
		Species:   nonNil(m.Species()),
		Observers: m.Observers(),
		Cells:     make([][]string, m.Rows()),
	}
	if out.Observers == nil {
		out.Observers = []matrix.Observer{}
	}
	for i := range out.Cells {
		row := make([]string, m.Cols())
		for j := range row {
			row[j] = m.Raw(i, j)
		}
		out.Cells[i] = row
	}
	return out
}

func formatDates(days []datenorm.Date) []string {
	out := make([]string, len(days))
	for k, d := range days {
		out[k] = d.String()
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
