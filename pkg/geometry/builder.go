package geometry

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Params holds the geometric configuration of a tube bank. Any subset may
// be supplied; absent fields are defaulted by Build. Per-tube arrays take
// precedence over the shared scalars.
type Params struct {
	// NumTubes is the number of tubes in the bank.
	NumTubes int

	// Radius is the shared tube radius in m, used when Radii is absent.
	Radius float64

	// Radii gives per-tube radii; when set it must have NumTubes entries.
	Radii []float64

	// Length is the shared full tube length in m, used when Ends is absent.
	Length float64

	// Width is the lateral extent of the bank along x, used to lay tubes
	// out when Centers is absent.
	Width float64

	// Height offsets every defaulted tube center along y.
	Height float64

	// Curvature is the radius of curvature in m of the arc the tubes are
	// placed on; zero or negative selects a linear layout.
	Curvature float64

	// Centers gives explicit tube center positions; when set it must have
	// NumTubes entries.
	Centers []r3.Vec

	// Ends gives explicit center-to-end vectors, defining each tube's
	// half-length and orientation; when set it must have NumTubes entries.
	Ends []r3.Vec
}

// Tube is the fully derived geometry of one detector tube.
type Tube struct {
	Radius     float64
	Center     r3.Vec
	End        r3.Vec // center-to-end vector, always synthesized
	Length     float64
	HalfLength float64
	ThetaX     float64 // rotation about x
	ThetaZ     float64 // rotation about z
}

// WorldToLocal transforms a bank-frame point into the tube's local frame,
// where the tube center is the origin and the axis is +y.
func (t *Tube) WorldToLocal(p r3.Vec) r3.Vec {
	return WorldToLocal(r3.Sub(p, t.Center), t.ThetaX, t.ThetaZ)
}

// WorldToLocalDir rotates a bank-frame direction into the tube's local
// frame without translating.
func (t *Tube) WorldToLocalDir(v r3.Vec) r3.Vec {
	return WorldToLocal(v, t.ThetaX, t.ThetaZ)
}

// Axis returns the unit axis direction of the tube in the bank frame.
func (t *Tube) Axis() r3.Vec {
	if t.HalfLength == 0 {
		return r3.Vec{Y: 1}
	}
	return r3.Scale(1/t.HalfLength, t.End)
}

// Build derives the complete per-tube geometry from the configuration,
// defaulting whatever was not supplied. The result is deterministic: the
// same Params always yield the same tubes.
func Build(p Params) ([]Tube, error) {
	n := p.NumTubes
	if n <= 0 {
		return nil, nil
	}
	if p.Radii != nil && len(p.Radii) != n {
		return nil, fmt.Errorf("geometry: got %d radii for %d tubes", len(p.Radii), n)
	}
	if p.Centers != nil && len(p.Centers) != n {
		return nil, fmt.Errorf("geometry: got %d centers for %d tubes", len(p.Centers), n)
	}
	if p.Ends != nil && len(p.Ends) != n {
		return nil, fmt.Errorf("geometry: got %d end vectors for %d tubes", len(p.Ends), n)
	}

	tubes := make([]Tube, n)

	for i := range tubes {
		r := p.Radius
		if p.Radii != nil {
			r = p.Radii[i]
		}
		if r <= 0 {
			return nil, fmt.Errorf("geometry: tube %d has non-positive radius %g", i, r)
		}
		tubes[i].Radius = r
	}

	// Length and orientation. Without explicit end vectors every tube gets
	// the shared length with zero rotation; an end vector is synthesized
	// anyway so validation and rendering see one uniform representation.
	for i := range tubes {
		t := &tubes[i]
		if p.Ends == nil {
			if p.Length <= 0 {
				return nil, fmt.Errorf("geometry: shared tube length %g must be positive when end vectors are absent", p.Length)
			}
			t.Length = p.Length
			t.HalfLength = 0.5 * p.Length
			t.End = r3.Vec{Y: t.HalfLength}
			continue
		}
		w := p.Ends[i]
		thetaX, thetaZ, half := anglesFromEnd(w)
		if half == 0 {
			return nil, fmt.Errorf("geometry: tube %d has a zero end vector", i)
		}
		t.End = w
		t.HalfLength = half
		t.Length = 2 * half
		t.ThetaX = thetaX
		t.ThetaZ = thetaZ
	}

	if p.Centers != nil {
		for i := range tubes {
			tubes[i].Center = p.Centers[i]
		}
		return tubes, nil
	}

	layoutCenters(tubes, p)
	return tubes, nil
}

// layoutCenters spreads the tubes evenly across the configured width,
// shrinking the span by the two extreme tubes' radii so the outermost tube
// walls stay inside it. A positive curvature bends the same span onto a
// circular arc in the xz plane; otherwise the layout is linear along x.
func layoutCenters(tubes []Tube, p Params) {
	n := len(tubes)
	span := p.Width - tubes[0].Radius - tubes[n-1].Radius

	if n == 1 {
		// Spacing is undefined for a single tube; put it at the layout
		// origin.
		tubes[0].Center = r3.Vec{Y: p.Height}
		return
	}

	if p.Curvature > 0 {
		angular := 2 * math.Asin(span/(2*p.Curvature))
		for i := range tubes {
			phi := -0.5*angular + float64(i)*angular/float64(n-1)
			tubes[i].Center = r3.Vec{
				X: p.Curvature * math.Sin(phi),
				Y: p.Height,
				Z: p.Curvature * (1 - math.Cos(phi)),
			}
		}
		return
	}

	for i := range tubes {
		tubes[i].Center = r3.Vec{
			X: -0.5*span + float64(i)*span/float64(n-1),
			Y: p.Height,
		}
	}
}
