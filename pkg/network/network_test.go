package network

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/floats"
)

func TestBuildSharedInterResistance(t *testing.T) {
	lengths := []float64{0.5, 0.5, 0.5}
	net, err := Build(Params{
		NumTubes:        3,
		Resistivity:     140,
		InterResistance: 2,
	}, lengths)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	t.Run("FreeEndsZero", func(t *testing.T) {
		if net.Pre[0] != 0 {
			t.Errorf("Pre[0] = %g, want 0", net.Pre[0])
		}
		if net.Post[2] != 0 {
			t.Errorf("Post[2] = %g, want 0", net.Post[2])
		}
	})

	t.Run("JointsSumToConfigured", func(t *testing.T) {
		for i := 0; i < 2; i++ {
			sum := net.Post[i] + net.Pre[i+1]
			if math.Abs(sum-2) > 1e-12 {
				t.Errorf("Joint %d contact sum = %g, want 2", i, sum)
			}
		}
	})

	t.Run("TubeResistance", func(t *testing.T) {
		// Middle tube carries half a joint on each side.
		want := 1 + 140*0.5 + 1
		if math.Abs(net.Resistance[1]-want) > 1e-12 {
			t.Errorf("Resistance[1] = %g, want %g", net.Resistance[1], want)
		}
	})

	t.Run("ParallelTotals", func(t *testing.T) {
		for i, r := range net.Resistance {
			if net.Total[i] != r {
				t.Errorf("Total[%d] = %g, want tube-local %g", i, net.Total[i], r)
			}
		}
	})
}

func TestBuildSeriesTotals(t *testing.T) {
	lengths := []float64{0.5, 0.4, 0.3}
	net, err := Build(Params{
		NumTubes:        3,
		Resistivity:     140,
		InterResistance: 2,
		Series:          true,
	}, lengths)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	chain := floats.Sum(net.Resistance)
	if math.Abs(net.ChainTotal-chain) > 1e-12 {
		t.Fatalf("ChainTotal = %g, want %g", net.ChainTotal, chain)
	}
	for i := range net.Total {
		if net.Total[i] != chain {
			t.Errorf("Total[%d] = %g, want the chain total %g", i, net.Total[i], chain)
		}
	}
	if chain <= 0 {
		t.Errorf("Chain total %g must be positive", chain)
	}
}

func TestBuildExplicitInterResistances(t *testing.T) {
	lengths := []float64{1, 1, 1}
	net, err := Build(Params{
		NumTubes:         3,
		Resistivity:      100,
		InterResistance:  99, // shadowed by the explicit array
		InterResistances: []float64{7, 4, 6, 7},
	}, lengths)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if net.Post[0] != 2 || net.Pre[1] != 2 {
		t.Errorf("Joint 1 split = (%g, %g), want (2, 2)", net.Post[0], net.Pre[1])
	}
	if net.Post[1] != 3 || net.Pre[2] != 3 {
		t.Errorf("Joint 2 split = (%g, %g), want (3, 3)", net.Post[1], net.Pre[2])
	}
	// The entries at the free ends are ignored.
	if net.Pre[0] != 0 || net.Post[2] != 0 {
		t.Errorf("Free-end contacts = (%g, %g), want (0, 0)", net.Pre[0], net.Post[2])
	}
}

func TestBuildExplicitContacts(t *testing.T) {
	lengths := []float64{1, 1}
	net, err := Build(Params{
		NumTubes:        2,
		Resistivity:     50,
		InterResistance: 99, // explicit arrays take precedence
		PreContacts:     []float64{1, 2},
		PostContacts:    []float64{3, 4},
	}, lengths)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	wantPre := []float64{1, 2}
	wantPost := []float64{3, 4}
	for i := range wantPre {
		if net.Pre[i] != wantPre[i] || net.Post[i] != wantPost[i] {
			t.Errorf("Tube %d contacts = (%g, %g), want (%g, %g)",
				i, net.Pre[i], net.Post[i], wantPre[i], wantPost[i])
		}
	}
	if want := 1.0 + 50 + 3; net.Resistance[0] != want {
		t.Errorf("Resistance[0] = %g, want %g", net.Resistance[0], want)
	}
}

func TestBuildPerTubeResistivities(t *testing.T) {
	lengths := []float64{2, 2}
	net, err := Build(Params{
		NumTubes:      2,
		Resistivity:   99, // shadowed by the per-tube array
		Resistivities: []float64{10, 20},
	}, lengths)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if net.Resistance[0] != 20 || net.Resistance[1] != 40 {
		t.Errorf("Resistances = %v, want [20 40]", net.Resistance)
	}
}

func TestBuildNonPositiveCount(t *testing.T) {
	for _, n := range []int{0, -3} {
		net, err := Build(Params{NumTubes: n}, nil)
		if err != nil {
			t.Fatalf("Build with count %d failed: %v", n, err)
		}
		if len(net.Resistance) != 0 {
			t.Errorf("Count %d produced %d resistances, want none", n, len(net.Resistance))
		}
	}
}

func TestBuildValidation(t *testing.T) {
	tests := []struct {
		name    string
		params  Params
		lengths []float64
	}{
		{"LengthCountMismatch", Params{NumTubes: 2, Resistivity: 1}, []float64{1}},
		{"ResistivityCountMismatch", Params{NumTubes: 2, Resistivities: []float64{1}}, []float64{1, 1}},
		{"InterCountMismatch", Params{NumTubes: 2, InterResistances: []float64{1, 2}}, []float64{1, 1}},
		{"ContactsMismatch", Params{NumTubes: 2, PreContacts: []float64{1}, PostContacts: []float64{1, 2}}, []float64{1, 1}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Build(tc.params, tc.lengths); err == nil {
				t.Errorf("Expected error for %s, got none", tc.name)
			}
		})
	}
}
