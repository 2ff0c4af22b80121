// Package network derives the resistive readout network of a tube bank:
// per-tube contact resistances, wire resistances, and the total-resistance
// normalizer the charge-division electronics divide by.
package network

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// Params holds the electrical configuration. Explicit arrays take
// precedence over the shared scalars; PreContacts/PostContacts take
// precedence over InterResistances, which takes precedence over
// InterResistance.
type Params struct {
	// NumTubes is the raw configured tube count. Non-positive values
	// produce an empty network; in particular the free-end zeroing of the
	// last tube's post-contact resistance is a no-op then.
	NumTubes int

	// Resistivity is the shared wire resistance per meter (ohm/m), used
	// when Resistivities is absent.
	Resistivity float64

	// Resistivities gives per-tube wire resistance per meter.
	Resistivities []float64

	// InterResistance is the shared resistance between adjacent tubes.
	InterResistance float64

	// InterResistances gives the NumTubes+1 resistances between adjacent
	// tubes, index i sitting between tube i-1 and tube i; the two entries
	// at the free ends of the bank are ignored, as the free ends carry no
	// contact resistance.
	InterResistances []float64

	// PreContacts and PostContacts give the contact resistances at each
	// tube's low and high end explicitly; both must have NumTubes entries
	// and are used verbatim when present.
	PreContacts  []float64
	PostContacts []float64

	// Series selects series wiring: all tubes' wires chained into one
	// resistive line read from a single pair of ends.
	Series bool
}

// Network is the derived electrical model of the bank.
type Network struct {
	// Pre and Post are the contact resistances at each tube's low and
	// high end.
	Pre  []float64
	Post []float64

	// Resistivity is the wire resistance per meter of each tube.
	Resistivity []float64

	// Resistance is each tube's own pre + wire + post resistance.
	Resistance []float64

	// Total is the charge-division normalizer per tube: the whole chain's
	// resistance under series wiring, the tube's own resistance otherwise.
	Total []float64

	// ChainTotal is the sum of all tubes' resistances.
	ChainTotal float64
}

// Build derives the network from the configuration and the per-tube wire
// lengths produced by the geometry builder.
func Build(p Params, lengths []float64) (*Network, error) {
	n := p.NumTubes
	if n <= 0 {
		return &Network{}, nil
	}
	if len(lengths) != n {
		return nil, fmt.Errorf("network: got %d tube lengths for %d tubes", len(lengths), n)
	}
	if p.Resistivities != nil && len(p.Resistivities) != n {
		return nil, fmt.Errorf("network: got %d resistivities for %d tubes", len(p.Resistivities), n)
	}

	net := &Network{
		Pre:         make([]float64, n),
		Post:        make([]float64, n),
		Resistivity: make([]float64, n),
		Resistance:  make([]float64, n),
		Total:       make([]float64, n),
	}

	for i := range net.Resistivity {
		if p.Resistivities != nil {
			net.Resistivity[i] = p.Resistivities[i]
		} else {
			net.Resistivity[i] = p.Resistivity
		}
	}

	if err := contacts(p, net); err != nil {
		return nil, err
	}

	for i := range net.Resistance {
		net.Resistance[i] = net.Pre[i] + net.Resistivity[i]*lengths[i] + net.Post[i]
	}
	net.ChainTotal = floats.Sum(net.Resistance)

	for i := range net.Total {
		if p.Series {
			net.Total[i] = net.ChainTotal
		} else {
			net.Total[i] = net.Resistance[i]
		}
	}
	return net, nil
}

// contacts fills Pre and Post so that the contact resistance between
// adjacent tubes sums to the configured inter-tube value, split evenly
// across the joint, and the two free ends of the bank carry none.
func contacts(p Params, net *Network) error {
	n := p.NumTubes

	if p.PreContacts != nil || p.PostContacts != nil {
		if len(p.PreContacts) != n || len(p.PostContacts) != n {
			return fmt.Errorf("network: explicit contact arrays must both have %d entries, got %d pre and %d post",
				n, len(p.PreContacts), len(p.PostContacts))
		}
		copy(net.Pre, p.PreContacts)
		copy(net.Post, p.PostContacts)
		return nil
	}

	inter := func(i int) float64 { return p.InterResistance }
	if p.InterResistances != nil {
		if len(p.InterResistances) != n+1 {
			return fmt.Errorf("network: got %d inter-tube resistances for %d tubes, want %d",
				len(p.InterResistances), n, n+1)
		}
		inter = func(i int) float64 { return p.InterResistances[i] }
	}

	for i := 0; i < n-1; i++ {
		// Joint i+1 sits between tube i and tube i+1.
		r := inter(i + 1)
		net.Post[i] = 0.5 * r
		net.Pre[i+1] = 0.5 * r
	}
	net.Pre[0] = 0
	if n > 0 {
		net.Post[n-1] = 0
	}
	return nil
}
