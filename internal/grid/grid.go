// Package grid groups classified conversations into scheduling cells:
// one workstation, one calendar date, one fixed-width time window. A cell is
// the unit of the "one participant per workstation at a time" constraint.
package grid

import (
	"fmt"
	"sort"
	"time"

	"github.com/sessionlab/rollcall/internal/archive"
	"github.com/sessionlab/rollcall/internal/classify"
)

// DefaultWindowMinutes is the discretization width the original study used.
const DefaultWindowMinutes = 15

// CellKey identifies one scheduling cell.
type CellKey struct {
	Year    int
	Month   int
	Day     int
	Window  int // index of the time window within the day
	Station int
}

// Date renders the cell's calendar date as YYYY-MM-DD.
func (k CellKey) Date() string {
	return fmt.Sprintf("%04d-%02d-%02d", k.Year, k.Month, k.Day)
}

// Entry is a classified conversation placed in the grid.
type Entry struct {
	Conv  *archive.Conversation
	Class classify.Classification
}

// Grid is the full scheduling grid. It is built completely before inference
// runs; inference uses only same-cell evidence.
type Grid struct {
	WindowMinutes int
	Cells         map[CellKey][]Entry
}

// Build places every conversation with a valid creation timestamp into
// exactly one cell. Conversations without a creation timestamp are returned
// separately: they cannot participate in scheduling inference but their
// extracted identifiers still count as evidence.
func Build(entries []Entry, windowMinutes int) (*Grid, []Entry) {
	if windowMinutes <= 0 {
		windowMinutes = DefaultWindowMinutes
	}

	g := &Grid{
		WindowMinutes: windowMinutes,
		Cells:         make(map[CellKey][]Entry),
	}

	var unplaced []Entry
	for _, e := range entries {
		ts := e.Conv.CreateTime
		if ts.IsZero() {
			unplaced = append(unplaced, e)
			continue
		}
		key := g.keyFor(ts, e.Conv.Station)
		g.Cells[key] = append(g.Cells[key], e)
	}

	// Stable order inside each cell: by creation time, then id.
	for key := range g.Cells {
		cell := g.Cells[key]
		sort.SliceStable(cell, func(i, j int) bool {
			ti, tj := cell[i].Conv.CreateTime, cell[j].Conv.CreateTime
			if !ti.Equal(tj) {
				return ti.Before(tj)
			}
			return cell[i].Conv.ID < cell[j].Conv.ID
		})
	}

	return g, unplaced
}

func (g *Grid) keyFor(ts time.Time, station int) CellKey {
	return CellKey{
		Year:    ts.Year(),
		Month:   int(ts.Month()),
		Day:     ts.Day(),
		Window:  (ts.Hour()*60 + ts.Minute()) / g.WindowMinutes,
		Station: station,
	}
}

// SortedKeys returns the cell keys in a fixed total order, so every
// traversal of the grid is deterministic.
func (g *Grid) SortedKeys() []CellKey {
	keys := make([]CellKey, 0, len(g.Cells))
	for k := range g.Cells {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		switch {
		case a.Year != b.Year:
			return a.Year < b.Year
		case a.Month != b.Month:
			return a.Month < b.Month
		case a.Day != b.Day:
			return a.Day < b.Day
		case a.Window != b.Window:
			return a.Window < b.Window
		default:
			return a.Station < b.Station
		}
	})
	return keys
}

// Size returns the number of conversations placed in the grid.
func (g *Grid) Size() int {
	n := 0
	for _, cell := range g.Cells {
		n += len(cell)
	}
	return n
}
