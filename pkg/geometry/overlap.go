package geometry

import (
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// parallelTol bounds the cross product norm below which two tube axes are
// treated as parallel.
const parallelTol = 1e-9

// ValidateNoOverlap checks every pair of tubes for geometric overlap of
// their cylindrical volumes. Each overlapping pair is logged; the returned
// error reports the total count. The check is O(N^2) over tens of tubes,
// which is deliberate: a spatial index would not pay for itself at setup
// time.
func ValidateNoOverlap(tubes []Tube) error {
	overlaps := 0
	for i := range tubes {
		for j := i + 1; j < len(tubes); j++ {
			if cylindersOverlap(&tubes[i], &tubes[j]) {
				overlaps++
				slog.Error("tube volumes overlap",
					"tube_a", i,
					"tube_b", j,
					"center_a", tubes[i].Center,
					"center_b", tubes[j].Center)
			}
		}
	}
	if overlaps > 0 {
		return fmt.Errorf("geometry: %d overlapping tube pair(s) in bank", overlaps)
	}
	return nil
}

// cylindersOverlap reports whether the finite cylindrical volumes of two
// tubes intersect.
func cylindersOverlap(a, b *Tube) bool {
	ua := a.Axis()
	ub := b.Axis()
	d := r3.Sub(b.Center, a.Center)

	n := r3.Cross(ua, ub)
	nn := r3.Norm(n)
	if nn < parallelTol {
		// Parallel axes: compare the axis-perpendicular center separation
		// with the radii, then the along-axis separation with the
		// half-lengths.
		along := r3.Dot(d, ua)
		perp := r3.Sub(d, r3.Scale(along, ua))
		if r3.Norm(perp) >= a.Radius+b.Radius {
			return false
		}
		return math.Abs(along) <= a.HalfLength+b.HalfLength
	}

	// Skew axes: the direction perpendicular to both separates the two
	// cylinders when the centers are further apart along it than the sum
	// of radii.
	n = r3.Scale(1/nn, n)
	if math.Abs(r3.Dot(d, n)) >= a.Radius+b.Radius {
		return false
	}

	// Otherwise probe the four extreme points of tube b, offset from its
	// center by the half-axis and by the radius along the in-plane
	// transverse direction, against tube a's axial and radial extents.
	tb := r3.Unit(r3.Cross(ub, n))
	for _, sAxis := range []float64{-1, 1} {
		for _, sRad := range []float64{-1, 1} {
			p := r3.Add(b.Center,
				r3.Add(r3.Scale(sAxis*b.HalfLength, ub), r3.Scale(sRad*b.Radius, tb)))
			rel := r3.Sub(p, a.Center)
			axial := r3.Dot(rel, ua)
			radial := r3.Norm(r3.Sub(rel, r3.Scale(axial, ua)))
			if math.Abs(axial) <= a.HalfLength && radial <= a.Radius {
				return true
			}
		}
	}
	return false
}
