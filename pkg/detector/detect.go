package detector

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/spatial/r3"

	"psdtubes/internal/models"
	"psdtubes/pkg/geometry"
)

// Physical constants of the gas-absorption correction. He-3 absorbs with
// a 1/v cross section, so the absorption probability over a path flown in
// time dt depends only on pressure and dt: the path length v*dt and the
// wavelength lambda = v2Lambda/v cancel their velocity factors.
const (
	// he3Sigma is the He-3 macroscopic absorption coefficient per bar of
	// pressure, per meter of path, per angstrom of wavelength.
	he3Sigma = 7.26

	// v2Lambda converts a speed in m/s to a wavelength in angstrom.
	v2Lambda = 3956.034
)

// Hit is the outcome of one detected trajectory.
type Hit struct {
	// TubeIndex is the configured index of the tube that fired.
	TubeIndex int

	// Fraction is the absorption position along the tube in [0,1],
	// before any series polarity flip.
	Fraction float64

	// WireFraction is the position on the continuous series wire: equal
	// to Fraction except on odd-indexed tubes of a series chain, where
	// the polarity flip keeps the wire coordinate monotonic.
	WireFraction float64

	// Pixel and FlatPixel are the histogram bins: Pixel from Fraction
	// within the tube, FlatPixel from WireFraction offset by the tube's
	// position in the chain. FlatPixel is -1 when no flattened histogram
	// exists.
	Pixel     int
	FlatPixel int

	// PulseHeight is the simulated total pulse; Left and Right are its
	// charge-division split, with Left + Right == PulseHeight exactly.
	PulseHeight float64
	Left        float64
	Right       float64

	// Time is the detection time in seconds: the trajectory's time of
	// flight to the bank plus the mean of the entry and exit times.
	Time float64

	// Weight is the trajectory weight after the gas-absorption and
	// dead-zone efficiency corrections.
	Weight float64

	// WireIndex is the electronics wire number written to the event
	// record: firstWire + wireStep*tubeIndex.
	WireIndex int
}

// Detect runs one trajectory through the bank: intersection search in
// configured tube order, absorption position and efficiency corrections,
// charge-division readout, and histogram accumulation. It returns the hit
// and true, or a zero Hit and false on a miss. Safe for concurrent use;
// rng must be owned by the calling worker.
func (a *TubeArray) Detect(traj models.Trajectory, rng *rand.Rand) (Hit, bool) {
	for i := range a.tubes {
		t := &a.tubes[i]
		lp := t.WorldToLocal(traj.Position)
		lv := t.WorldToLocalDir(traj.Velocity)
		t0, t1, ok := geometry.IntersectCylinder(lp, lv, t.Radius, t.HalfLength)
		if !ok {
			continue
		}
		// First configured tube with a valid crossing wins; overlap
		// validation at setup makes a second volumetric hit impossible.
		return a.absorb(i, traj, lp, lv, t0, t1, rng)
	}
	return Hit{}, false
}

// absorb models the absorption inside tube i and everything downstream of
// it. A fractional position outside the tube is still a miss.
func (a *TubeArray) absorb(i int, traj models.Trajectory, lp, lv r3.Vec, t0, t1 float64, rng *rand.Rand) (Hit, bool) {
	t := &a.tubes[i]

	tm := 0.5 * (t0 + t1)
	frac := 0.5 + (lp.Y+tm*lv.Y)/t.Length
	if frac < 0 || frac > 1 {
		return Hit{}, false
	}

	weight := traj.Weight
	if a.pressure > 0 {
		weight *= 1 - math.Exp(-he3Sigma*a.pressure*math.Abs(t1-t0)*v2Lambda)
	}
	if a.deadZone > 0 {
		weight *= a.efficiency(frac, t.Length)
	}

	wireFrac := frac
	if a.series && i%2 == 1 {
		wireFrac = 1 - frac
	}

	pulse := a.threshold + rng.Float64()*(a.maxLevel-a.threshold)
	var rightRes float64
	if a.series {
		rightRes = a.chainBefore[i]
	}
	rightRes += t.PreContact + wireFrac*t.Length*t.Resistivity
	right := math.Round(pulse * rightRes / t.TotalResistance)
	left := pulse - right

	h := Hit{
		TubeIndex:    i,
		Fraction:     frac,
		WireFraction: wireFrac,
		Pixel:        int(math.Floor(float64(a.pixels) * frac)),
		FlatPixel:    -1,
		PulseHeight:  pulse,
		Left:         left,
		Right:        right,
		Time:         traj.Time + tm,
		Weight:       weight,
		WireIndex:    a.firstWire + a.wireStep*i,
	}

	a.grid2D.Add(i, h.Pixel, weight)
	if a.grid1D != nil {
		h.FlatPixel = int(math.Floor(float64(a.pixels)*wireFrac)) + i*a.pixels
		a.grid1D.Add(0, h.FlatPixel, weight)
	}

	if traj.Fields != nil {
		a.writeFields(traj.Fields, h)
	}
	return h, true
}

// efficiency is the dead-zone profile: a quintic smoothstep ramp from 0
// to 1 over the dead-zone length at each tube end, combined so the
// interior stays at exactly 1. The ramp length is clamped to half the
// tube so the two ends never overlap and the midpoint is always fully
// efficient.
func (a *TubeArray) efficiency(frac, length float64) float64 {
	d := a.deadZone / length
	if d > 0.5 {
		d = 0.5
	}
	return smoothstep(0, d, frac) + smoothstep(0, d, 1-frac) - 1
}

// smoothstep is the quintic 6t^5-15t^4+10t^3 ramp from 0 at e0 to 1 at
// e1, with zero first and second derivatives at both edges. A degenerate
// edge pair acts as a hard step.
func smoothstep(e0, e1, x float64) float64 {
	if e1 <= e0 {
		if x < e0 {
			return 0
		}
		return 1
	}
	t := (x - e0) / (e1 - e0)
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	return t * t * t * (t*(t*6-15) + 10)
}

// writeFields copies the readout values into the event record. Each write
// is skipped when its name is not configured; the names themselves were
// validated against the schema at construction.
func (a *TubeArray) writeFields(fields models.FieldStore, h Hit) {
	if a.leftField != "" {
		fields.Set(a.leftField, h.Left)
	}
	if a.rightField != "" {
		fields.Set(a.rightField, h.Right)
	}
	if a.timeField != "" {
		fields.Set(a.timeField, h.Time)
	}
	if a.wireField != "" {
		fields.Set(a.wireField, float64(h.WireIndex))
	}
}
