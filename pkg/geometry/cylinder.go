package geometry

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// IntersectCylinder computes the parametric entry and exit times of a ray
// p(t) = pos + t·vel with a finite closed cylinder of the given radius and
// half-length, centered at the local origin with its axis along y. Both
// the curved wall and the end caps bound the volume.
//
// The returned interval satisfies t0 <= t1. ok is false when the ray never
// crosses the cylinder ahead of its current position (t1 <= 0 counts as a
// miss; a ray starting inside yields t0 < 0 < t1).
func IntersectCylinder(pos, vel r3.Vec, radius, halfLen float64) (t0, t1 float64, ok bool) {
	const eps = 1e-12

	if vel.X == 0 && vel.Y == 0 && vel.Z == 0 {
		return 0, 0, false
	}

	// Interval against the infinite cylinder x^2 + z^2 <= r^2.
	sideLo, sideHi := math.Inf(-1), math.Inf(1)
	a := vel.X*vel.X + vel.Z*vel.Z
	if a < eps {
		// Traveling parallel to the axis: inside the wall or never.
		if pos.X*pos.X+pos.Z*pos.Z > radius*radius {
			return 0, 0, false
		}
	} else {
		b := pos.X*vel.X + pos.Z*vel.Z
		c := pos.X*pos.X + pos.Z*pos.Z - radius*radius
		disc := b*b - a*c
		if disc < 0 {
			return 0, 0, false
		}
		sq := math.Sqrt(disc)
		sideLo = (-b - sq) / a
		sideHi = (-b + sq) / a
	}

	// Interval against the slab |y| <= halfLen.
	capLo, capHi := math.Inf(-1), math.Inf(1)
	if math.Abs(vel.Y) < eps {
		if math.Abs(pos.Y) > halfLen {
			return 0, 0, false
		}
	} else {
		capLo = (-halfLen - pos.Y) / vel.Y
		capHi = (halfLen - pos.Y) / vel.Y
		if capLo > capHi {
			capLo, capHi = capHi, capLo
		}
	}

	t0 = math.Max(sideLo, capLo)
	t1 = math.Min(sideHi, capHi)
	if t0 >= t1 || t1 <= 0 {
		return 0, 0, false
	}
	return t0, t1, true
}
