// Package domain holds the value types shared across the scheduling solver
// pipeline: the time grid, patients, schedulable units, pins and visits.
package domain

import "fmt"

// Grid is the uniform discretization of a scheduling day into fixed-width
// cells. Every duration and arrival in the solver is expressed as an integer
// cell count against this grid.
type Grid struct {
	labels      []string
	index       map[string]int
	widthMin    int
}

// MinCells and MaxCells bound the number of cells a request may declare (§6).
const (
	MinCells = 2
	MaxCells = 192
)

// NewGrid builds a Grid from an ordered list of equally spaced "H:MM" style
// labels. It rejects duplicate labels, fewer than MinCells or more than
// MaxCells entries, and non-uniform spacing once the labels are parsed as
// minute-of-day offsets.
func NewGrid(labels []string) (*Grid, error) {
	if len(labels) < MinCells {
		return nil, fmt.Errorf("time_slots: need at least %d entries, got %d", MinCells, len(labels))
	}
	if len(labels) > MaxCells {
		return nil, fmt.Errorf("time_slots: at most %d entries allowed, got %d", MaxCells, len(labels))
	}

	index := make(map[string]int, len(labels))
	minutes := make([]int, len(labels))
	for i, label := range labels {
		if _, dup := index[label]; dup {
			return nil, fmt.Errorf("time_slots: duplicate label %q", label)
		}
		m, err := parseClock(label)
		if err != nil {
			return nil, fmt.Errorf("time_slots[%d]: %w", i, err)
		}
		minutes[i] = m
		index[label] = i
	}

	width := minutes[1] - minutes[0]
	if width <= 0 {
		return nil, fmt.Errorf("time_slots: must be strictly increasing, got %q then %q", labels[0], labels[1])
	}
	for i := 2; i < len(minutes); i++ {
		if minutes[i]-minutes[i-1] != width {
			return nil, fmt.Errorf("time_slots: non-uniform spacing at %q (expected %d minute step)", labels[i], width)
		}
	}

	g := &Grid{
		labels:   append([]string(nil), labels...),
		index:    index,
		widthMin: width,
	}
	return g, nil
}

// Horizon is the number of cells H in the grid.
func (g *Grid) Horizon() int { return len(g.labels) }

// WidthMinutes is the uniform width W of a cell, in minutes.
func (g *Grid) WidthMinutes() int { return g.widthMin }

// Cell maps a label to its index. The second return value is false when the
// label is not part of the grid.
func (g *Grid) Cell(label string) (int, bool) {
	i, ok := g.index[label]
	return i, ok
}

// Label is the inverse of Cell; it panics on an out-of-range index since
// callers only ever invoke it with indices the solver itself produced.
func (g *Grid) Label(i int) string {
	return g.labels[i]
}

// DurationCells converts a duration in minutes to a cell count, rounding up
// and enforcing a minimum of one cell.
func (g *Grid) DurationCells(durationMinutes int) int {
	if durationMinutes <= 0 {
		return 1
	}
	cells := (durationMinutes + g.widthMin - 1) / g.widthMin
	if cells < 1 {
		cells = 1
	}
	return cells
}

func parseClock(label string) (int, error) {
	var h, m int
	n, err := fmt.Sscanf(label, "%d:%d", &h, &m)
	if err != nil || n != 2 {
		return 0, fmt.Errorf("invalid time label %q, expected H:MM", label)
	}
	if h < 0 || h > 47 || m < 0 || m >= 60 {
		return 0, fmt.Errorf("invalid time label %q, out of range", label)
	}
	return h*60 + m, nil
}
