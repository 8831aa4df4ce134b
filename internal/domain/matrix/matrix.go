// Package matrix holds the species x observer sighting grid.
//
// A Matrix is immutable once built: every accessor returns copies, and every
// date cell is parsed exactly once at construction. Aggregations run over a
// View, which pairs the matrix with an observer column restriction.
package matrix

import (
	"fmt"
	"strings"

	"github.com/okian/kryds/internal/domain/datenorm"
)

// Observer is a competition participant. Observations and TimeSpent are
// supplied alongside the matrix and passed through untouched.
type Observer struct {
	Code         string `json:"code"`
	Name         string `json:"name"`
	Observations int    `json:"observations"`
	TimeSpent    string `json:"time_spent"`
}

// Cell is one present sighting: a species seen by an observer.
type Cell struct {
	Species  string
	Observer string
	Value    datenorm.Value
}

// Matrix is a sparse grid of sighting dates. Row order follows species,
// column order follows observers.
type Matrix struct {
	species   []string
	observers []Observer
	cells     [][]datenorm.Value
	present   [][]bool
	columns   map[string]int
	rows      map[string]int
}

// New validates shape and identifiers and parses every non-empty cell.
// cells[i][j] is the date for species i and observer j; "" means absent.
func New(species []string, observers []Observer, cells [][]string) (*Matrix, error) {
	if len(cells) != len(species) {
		return nil, fmt.Errorf("%w: %d species but %d rows", ErrInvalidMatrixShape, len(species), len(cells))
	}

	m := &Matrix{
		species:   append([]string(nil), species...),
		observers: append([]Observer(nil), observers...),
		cells:     make([][]datenorm.Value, len(species)),
		present:   make([][]bool, len(species)),
		columns:   make(map[string]int, len(observers)),
		rows:      make(map[string]int, len(species)),
	}

	for j, o := range observers {
		if _, dup := m.columns[o.Code]; dup {
			return nil, fmt.Errorf("%w: duplicate observer %q", ErrInvalidMatrixShape, o.Code)
		}
		m.columns[o.Code] = j
		if m.observers[j].Name == "" {
			m.observers[j].Name = o.Code
		}
	}

	for i, name := range species {
		if _, dup := m.rows[name]; dup {
			return nil, fmt.Errorf("%w: duplicate species %q", ErrInvalidMatrixShape, name)
		}
		m.rows[name] = i

		row := cells[i]
		if len(row) != len(observers) {
			return nil, fmt.Errorf("%w: row %d (%s) has %d cells, want %d",
				ErrInvalidMatrixShape, i, name, len(row), len(observers))
		}
		m.cells[i] = make([]datenorm.Value, len(row))
		m.present[i] = make([]bool, len(row))
		for j, raw := range row {
			if strings.TrimSpace(raw) == "" {
				continue
			}
			m.cells[i][j] = datenorm.Parse(raw)
			m.present[i][j] = true
		}
	}
	return m, nil
}

// FromCodes builds a matrix whose observers carry only their codes.
func FromCodes(species, codes []string, cells [][]string) (*Matrix, error) {
	observers := make([]Observer, len(codes))
	for j, c := range codes {
		observers[j] = Observer{Code: c}
	}
	return New(species, observers, cells)
}

// Species returns the species names in row order.
func (m *Matrix) Species() []string { return append([]string(nil), m.species...) }

// SpeciesAt returns the species name of row i.
func (m *Matrix) SpeciesAt(i int) string { return m.species[i] }

// Observers returns the observers in column order.
func (m *Matrix) Observers() []Observer { return append([]Observer(nil), m.observers...) }

// ObserverAt returns the observer of column j.
func (m *Matrix) ObserverAt(j int) Observer { return m.observers[j] }

// Codes returns the observer codes in column order.
func (m *Matrix) Codes() []string {
	out := make([]string, len(m.observers))
	for j, o := range m.observers {
		out[j] = o.Code
	}
	return out
}

// Rows returns the number of species.
func (m *Matrix) Rows() int { return len(m.species) }

// Cols returns the number of observers.
func (m *Matrix) Cols() int { return len(m.observers) }

// Column returns the column index of an observer code.
func (m *Matrix) Column(code string) (int, bool) {
	j, ok := m.columns[code]
	return j, ok
}

// Row returns the row index of a species name.
func (m *Matrix) Row(species string) (int, bool) {
	i, ok := m.rows[species]
	return i, ok
}

// Present reports whether cell (i, j) holds a sighting.
func (m *Matrix) Present(i, j int) bool { return m.present[i][j] }

// Value returns the parsed date of cell (i, j) and whether the cell is present.
func (m *Matrix) Value(i, j int) (datenorm.Value, bool) {
	return m.cells[i][j], m.present[i][j]
}

// Raw returns the cell text as supplied, or "" when absent.
func (m *Matrix) Raw(i, j int) string {
	if !m.present[i][j] {
		return ""
	}
	return m.cells[i][j].Raw()
}

// Unparseable lists present cells whose date could not be parsed, in row
// then column order.
func (m *Matrix) Unparseable() []Cell {
	var out []Cell
	for i := range m.cells {
		for j, v := range m.cells[i] {
			if m.present[i][j] && !v.Valid() {
				out = append(out, Cell{Species: m.species[i], Observer: m.observers[j].Code, Value: v})
			}
		}
	}
	return out
}

// View returns an unrestricted view over every observer column.
func (m *Matrix) View() View {
	cols := make([]int, len(m.observers))
	for j := range cols {
		cols[j] = j
	}
	return View{m: m, cols: cols}
}

// Restrict returns a view over the given observer codes. Columns keep matrix
// order; unknown codes are ignored. An empty result is a valid, empty view.
func (m *Matrix) Restrict(codes []string) View {
	want := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		want[c] = struct{}{}
	}
	cols := make([]int, 0, len(want))
	for j, o := range m.observers {
		if _, ok := want[o.Code]; ok {
			cols = append(cols, j)
		}
	}
	return View{m: m, cols: cols}
}
