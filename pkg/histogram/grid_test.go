package histogram

import (
	"math"
	"sync"
	"testing"
)

func TestCellAccumulation(t *testing.T) {
	var c Cell
	c.Add(0.5)
	c.Add(2)

	if c.Count() != 2 {
		t.Errorf("Count = %d, want 2", c.Count())
	}
	if math.Abs(c.Sum()-2.5) > 1e-12 {
		t.Errorf("Sum = %g, want 2.5", c.Sum())
	}
	if math.Abs(c.SumSq()-4.25) > 1e-12 {
		t.Errorf("SumSq = %g, want 4.25", c.SumSq())
	}
}

func TestGridBounds(t *testing.T) {
	g, err := NewGrid(2, 4)
	if err != nil {
		t.Fatalf("NewGrid failed: %v", err)
	}

	if !g.Add(1, 3, 1) {
		t.Error("In-range add rejected")
	}
	for _, idx := range [][2]int{{-1, 0}, {0, -1}, {2, 0}, {0, 4}} {
		if g.Add(idx[0], idx[1], 1) {
			t.Errorf("Out-of-range add (%d,%d) accepted", idx[0], idx[1])
		}
	}
	if g.At(1, 3).Count() != 1 {
		t.Errorf("Cell (1,3) count = %d, want 1", g.At(1, 3).Count())
	}

	if _, err := NewGrid(0, 4); err == nil {
		t.Error("Expected error for zero rows")
	}
}

func TestGridConcurrentAccumulation(t *testing.T) {
	g, err := NewGrid(1, 2)
	if err != nil {
		t.Fatalf("NewGrid failed: %v", err)
	}

	const (
		workers = 8
		adds    = 10000
	)
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := 0; i < adds; i++ {
				g.Add(0, i%2, 0.5)
			}
		}()
	}
	wg.Wait()

	for col := 0; col < 2; col++ {
		c := g.At(0, col)
		wantN := uint64(workers * adds / 2)
		if c.Count() != wantN {
			t.Errorf("Cell %d count = %d, want %d", col, c.Count(), wantN)
		}
		wantSum := float64(wantN) * 0.5
		if math.Abs(c.Sum()-wantSum) > 1e-6 {
			t.Errorf("Cell %d sum = %g, want %g", col, c.Sum(), wantSum)
		}
		wantSq := float64(wantN) * 0.25
		if math.Abs(c.SumSq()-wantSq) > 1e-6 {
			t.Errorf("Cell %d sumSq = %g, want %g", col, c.SumSq(), wantSq)
		}
	}
}

func TestSnapshotAndStats(t *testing.T) {
	g, err := NewGrid(2, 3)
	if err != nil {
		t.Fatalf("NewGrid failed: %v", err)
	}
	g.XMin, g.XMax = 0, 1
	g.YMin, g.YMax = 0, 2

	g.Add(0, 1, 2)
	g.Add(1, 1, 2)
	g.Add(0, 2, 4)

	snap := g.Snapshot()
	if snap.Rows != 2 || snap.Cols != 3 {
		t.Fatalf("Snapshot dims = %dx%d, want 2x3", snap.Rows, snap.Cols)
	}
	if snap.Counts[0*3+1] != 1 || snap.Counts[1*3+1] != 1 || snap.Counts[0*3+2] != 1 {
		t.Errorf("Snapshot counts = %v", snap.Counts)
	}
	if snap.XMax != 1 || snap.YMax != 2 {
		t.Errorf("Snapshot bounds = (%g, %g), want (1, 2)", snap.XMax, snap.YMax)
	}

	st := snap.Stats()
	if st.Hits != 3 {
		t.Errorf("Stats hits = %d, want 3", st.Hits)
	}
	if math.Abs(st.Weight-8) > 1e-12 {
		t.Errorf("Stats weight = %g, want 8", st.Weight)
	}
	// Column weights: col 1 carries 4, col 2 carries 4.
	if math.Abs(st.MeanCol-1.5) > 1e-12 {
		t.Errorf("Stats mean column = %g, want 1.5", st.MeanCol)
	}
}

func TestSnapshotIndependence(t *testing.T) {
	g, err := NewGrid(1, 1)
	if err != nil {
		t.Fatalf("NewGrid failed: %v", err)
	}
	g.Add(0, 0, 1)
	snap := g.Snapshot()
	g.Add(0, 0, 1)

	if snap.Counts[0] != 1 {
		t.Errorf("Snapshot mutated by later accumulation: count = %d", snap.Counts[0])
	}
}
