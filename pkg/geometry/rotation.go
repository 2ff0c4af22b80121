// Package geometry builds the tube-bank geometry from configuration and
// provides the closed-form 3D primitives the per-event code relies on:
// tube-frame rotations, finite-cylinder ray intersection, and the pairwise
// cylinder overlap check run once at setup.
//
// Reference frame: a tube's axis defaults to +y, tubes are laid out along x,
// and the beam travels along +z. A tube's orientation is stored as two
// angles, ThetaX (rotation about x) and ThetaZ (rotation about z), chosen so
// that the center-to-end vector w satisfies
//
//	w = Rx(ThetaX) · Rz(ThetaZ) · (0, |w|, 0)
package geometry

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// rotX rotates v by theta about the x axis.
func rotX(v r3.Vec, theta float64) r3.Vec {
	s, c := math.Sincos(theta)
	return r3.Vec{
		X: v.X,
		Y: c*v.Y - s*v.Z,
		Z: s*v.Y + c*v.Z,
	}
}

// rotZ rotates v by theta about the z axis.
func rotZ(v r3.Vec, theta float64) r3.Vec {
	s, c := math.Sincos(theta)
	return r3.Vec{
		X: c*v.X - s*v.Y,
		Y: s*v.X + c*v.Y,
		Z: v.Z,
	}
}

// LocalToWorld rotates a tube-local vector into the bank frame.
func LocalToWorld(v r3.Vec, thetaX, thetaZ float64) r3.Vec {
	return rotX(rotZ(v, thetaZ), thetaX)
}

// WorldToLocal rotates a bank-frame vector into the tube-local frame where
// the tube axis is +y. It inverts LocalToWorld.
func WorldToLocal(v r3.Vec, thetaX, thetaZ float64) r3.Vec {
	return rotZ(rotX(v, -thetaX), -thetaZ)
}

// anglesFromEnd derives the two orientation angles and the half-length from
// a center-to-end vector. A zero vector yields zero angles and length.
func anglesFromEnd(w r3.Vec) (thetaX, thetaZ, half float64) {
	half = r3.Norm(w)
	if half == 0 {
		return 0, 0, 0
	}
	thetaZ = math.Asin(-w.X / half)
	if w.Y == 0 && w.Z == 0 {
		// Axis along +-x: the yz projection vanishes and the rotation
		// about x is undetermined; pin it to zero.
		return 0, thetaZ, half
	}
	thetaX = math.Atan2(w.Z, w.Y)
	return thetaX, thetaZ, half
}
