// Package histogram provides race-safe binned accumulation for the
// detector: grids of cells holding a hit count, a weight sum, and a
// weight-squared sum, each updated with an independent atomic add so many
// event workers can write concurrently without locks.
package histogram

import (
	"fmt"
	"math"
	"sync/atomic"

	"gonum.org/v1/gonum/stat"
)

// Cell is one histogram bin. Counts use a plain atomic add; the float
// sums are added with a compare-and-swap loop on their bit patterns. The
// three fields are each atomic on their own, with no ordering between
// them; they only ever grow during a run.
type Cell struct {
	count uint64
	sum   uint64 // float64 bits
	sumSq uint64 // float64 bits
}

// addFloat atomically adds v to the float64 stored in bits.
func addFloat(bits *uint64, v float64) {
	for {
		old := atomic.LoadUint64(bits)
		cur := math.Float64frombits(old)
		if atomic.CompareAndSwapUint64(bits, old, math.Float64bits(cur+v)) {
			return
		}
	}
}

// Add records one hit of the given weight.
func (c *Cell) Add(w float64) {
	atomic.AddUint64(&c.count, 1)
	addFloat(&c.sum, w)
	addFloat(&c.sumSq, w*w)
}

// Count returns the number of hits recorded in the cell.
func (c *Cell) Count() uint64 { return atomic.LoadUint64(&c.count) }

// Sum returns the accumulated weight.
func (c *Cell) Sum() float64 { return math.Float64frombits(atomic.LoadUint64(&c.sum)) }

// SumSq returns the accumulated squared weight.
func (c *Cell) SumSq() float64 { return math.Float64frombits(atomic.LoadUint64(&c.sumSq)) }

// Grid is a rows x cols array of cells. The detector's per-tube histogram
// is (numTubes, pixelsPerTube); the flattened series-wire histogram is a
// single row of numTubes*pixelsPerTube cells.
type Grid struct {
	rows, cols int
	cells      []Cell

	// Axis bounds handed to persistence sinks alongside the raw arrays.
	XMin, XMax float64
	YMin, YMax float64
}

// NewGrid allocates a zeroed grid.
func NewGrid(rows, cols int) (*Grid, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("histogram: grid dimensions must be positive, got %dx%d", rows, cols)
	}
	return &Grid{
		rows:  rows,
		cols:  cols,
		cells: make([]Cell, rows*cols),
	}, nil
}

// Rows returns the number of rows.
func (g *Grid) Rows() int { return g.rows }

// Cols returns the number of columns.
func (g *Grid) Cols() int { return g.cols }

// Add accumulates a hit into (row, col) and reports whether the indices
// were in range; out-of-range hits are dropped.
func (g *Grid) Add(row, col int, w float64) bool {
	if row < 0 || row >= g.rows || col < 0 || col >= g.cols {
		return false
	}
	g.cells[row*g.cols+col].Add(w)
	return true
}

// At returns the cell at (row, col).
func (g *Grid) At(row, col int) *Cell {
	return &g.cells[row*g.cols+col]
}

// Snapshot is a point-in-time copy of a grid's raw arrays, in row-major
// order, together with its dimensions and axis bounds. It is what
// persistence sinks receive; the file format is theirs.
type Snapshot struct {
	Rows, Cols int
	Counts     []uint64
	Sums       []float64
	SumSqs     []float64
	XMin, XMax float64
	YMin, YMax float64
}

// Snapshot copies the grid's current contents. Taken while workers are
// still accumulating it is a consistent-per-field view, not a global one;
// the detector only snapshots after event processing ends.
func (g *Grid) Snapshot() Snapshot {
	s := Snapshot{
		Rows:   g.rows,
		Cols:   g.cols,
		Counts: make([]uint64, len(g.cells)),
		Sums:   make([]float64, len(g.cells)),
		SumSqs: make([]float64, len(g.cells)),
		XMin:   g.XMin,
		XMax:   g.XMax,
		YMin:   g.YMin,
		YMax:   g.YMax,
	}
	for i := range g.cells {
		c := &g.cells[i]
		s.Counts[i] = c.Count()
		s.Sums[i] = c.Sum()
		s.SumSqs[i] = c.SumSq()
	}
	return s
}

// Sink persists one named snapshot. Implementations live outside the
// detector core, which supplies only the raw arrays and axis bounds.
type Sink interface {
	Write(name string, snap Snapshot) error
}

// Stats summarizes a snapshot's column (pixel) distribution.
type Stats struct {
	Hits      uint64  // total recorded hits
	Weight    float64 // total accumulated weight
	MeanCol   float64 // weight-averaged column index
	StdDevCol float64 // weighted standard deviation of the column index
}

// Stats folds the snapshot over rows and summarizes the resulting column
// distribution with weighted moments.
func (s Snapshot) Stats() Stats {
	st := Stats{}
	cols := make([]float64, s.Cols)
	weights := make([]float64, s.Cols)
	for i := range cols {
		cols[i] = float64(i)
	}
	for i, w := range s.Sums {
		weights[i%s.Cols] += w
		st.Weight += w
		st.Hits += s.Counts[i]
	}
	if st.Weight > 0 {
		st.MeanCol = stat.Mean(cols, weights)
		st.StdDevCol = stat.StdDev(cols, weights)
	}
	return st
}
