// Package detector implements a bank of serially-connectable cylindrical
// position-sensitive detector tubes with resistive charge-division
// readout. Construction derives the tube geometry and the readout network
// once and validates that no two tubes overlap; after that the bank is
// immutable and any number of event workers may call Detect concurrently,
// sharing only the atomically updated histograms.
package detector

import (
	"fmt"
	"log/slog"
	"sort"

	"golang.org/x/exp/maps"

	"psdtubes/internal/models"
	"psdtubes/pkg/geometry"
	"psdtubes/pkg/histogram"
	"psdtubes/pkg/network"
)

// Config assembles everything the bank needs at construction time.
type Config struct {
	Geometry   geometry.Params
	Electrical network.Params

	// Series selects series wiring of all tubes into one resistive chain.
	Series bool

	// PixelsPerTube is the number of histogram bins along each tube.
	PixelsPerTube int

	// Threshold and MaxLevel bound the simulated pulse height of the
	// charge-discrimination electronics.
	Threshold float64
	MaxLevel  float64

	// Pressure is the converter-gas pressure in bar; zero disables the
	// gas-absorption weight correction.
	Pressure float64

	// DeadZone is the reduced-efficiency length in m at each tube end;
	// zero disables the dead-zone weight correction.
	DeadZone float64

	// Optional per-event field names written by the charge-division
	// electronics. An empty name disables that write; a non-empty name
	// that the event schema does not carry fails construction.
	LeftField  string
	RightField string
	TimeField  string
	WireField  string

	// FirstWire and WireStep map a tube index to the wire index written
	// into WireField: firstWire + wireStep*tubeIndex.
	FirstWire int
	WireStep  int

	// SkipOverlapCheck disables the pairwise tube-overlap validation, at
	// the caller's risk.
	SkipOverlapCheck bool

	// Restore tells the surrounding transport engine to pass a hit
	// trajectory through unchanged instead of consuming it. The bank
	// itself never mutates trajectories; it only carries the flag.
	Restore bool

	// Output2D and Output1D name the persistence targets for the
	// per-tube and flattened-wire histograms. The flattened histogram
	// exists only under series wiring with Output1D set.
	Output2D string
	Output1D string
}

// Tube couples one tube's geometry with its electrical parameters.
type Tube struct {
	geometry.Tube

	// PreContact and PostContact are the contact resistances at the low
	// and high end of the tube's wire.
	PreContact  float64
	PostContact float64

	// Resistivity is the wire resistance per meter.
	Resistivity float64

	// Resistance is this tube's own pre + wire + post resistance.
	Resistance float64

	// TotalResistance is the charge-division normalizer: the whole
	// chain's resistance under series wiring, Resistance otherwise.
	TotalResistance float64
}

// TubeArray is the constructed bank. It is immutable after New; only the
// histogram cells change during event processing.
type TubeArray struct {
	tubes   []Tube
	series  bool
	pixels  int
	restore bool

	threshold float64
	maxLevel  float64
	pressure  float64
	deadZone  float64

	leftField  string
	rightField string
	timeField  string
	wireField  string
	firstWire  int
	wireStep   int

	output2D string
	output1D string

	// chainBefore[i] is the summed resistance of all tubes preceding
	// tube i in the series chain.
	chainBefore []float64

	grid2D *histogram.Grid
	grid1D *histogram.Grid
}

// New builds the bank: geometry, readout network, overlap validation, and
// histogram allocation. The schema is consulted for every configured
// field name; pass nil when no names are configured. Construction errors
// are returned, never fatal — the caller decides whether to abort.
func New(cfg Config, schema models.FieldSchema) (*TubeArray, error) {
	if cfg.Geometry.NumTubes <= 0 {
		// An empty bank misses every trajectory. Legal, but almost
		// certainly a configuration mistake.
		slog.Warn("detector: non-positive tube count, bank will never register a hit",
			"numTubes", cfg.Geometry.NumTubes)
	}
	if cfg.PixelsPerTube <= 0 {
		return nil, fmt.Errorf("detector: pixelsPerTube must be positive, got %d", cfg.PixelsPerTube)
	}
	if cfg.MaxLevel < cfg.Threshold {
		return nil, fmt.Errorf("detector: maxLevel %g below threshold %g", cfg.MaxLevel, cfg.Threshold)
	}
	if err := checkFields(cfg, schema); err != nil {
		return nil, err
	}

	tubes, err := geometry.Build(cfg.Geometry)
	if err != nil {
		return nil, err
	}

	if !cfg.SkipOverlapCheck {
		if err := geometry.ValidateNoOverlap(tubes); err != nil {
			return nil, err
		}
	}

	lengths := make([]float64, len(tubes))
	for i := range tubes {
		lengths[i] = tubes[i].Length
	}
	cfg.Electrical.NumTubes = cfg.Geometry.NumTubes
	cfg.Electrical.Series = cfg.Series
	net, err := network.Build(cfg.Electrical, lengths)
	if err != nil {
		return nil, err
	}

	a := &TubeArray{
		tubes:      make([]Tube, len(tubes)),
		series:     cfg.Series,
		pixels:     cfg.PixelsPerTube,
		restore:    cfg.Restore,
		threshold:  cfg.Threshold,
		maxLevel:   cfg.MaxLevel,
		pressure:   cfg.Pressure,
		deadZone:   cfg.DeadZone,
		leftField:  cfg.LeftField,
		rightField: cfg.RightField,
		timeField:  cfg.TimeField,
		wireField:  cfg.WireField,
		firstWire:  cfg.FirstWire,
		wireStep:   cfg.WireStep,
		output2D:   cfg.Output2D,
		output1D:   cfg.Output1D,
	}
	a.chainBefore = make([]float64, len(tubes))
	acc := 0.0
	for i := range tubes {
		a.tubes[i] = Tube{
			Tube:            tubes[i],
			PreContact:      net.Pre[i],
			PostContact:     net.Post[i],
			Resistivity:     net.Resistivity[i],
			Resistance:      net.Resistance[i],
			TotalResistance: net.Total[i],
		}
		a.chainBefore[i] = acc
		acc += net.Resistance[i]
	}

	if len(tubes) > 0 {
		g, err := histogram.NewGrid(len(tubes), cfg.PixelsPerTube)
		if err != nil {
			return nil, err
		}
		g.XMin, g.XMax = 0, 1
		g.YMin, g.YMax = 0, float64(len(tubes))
		a.grid2D = g

		if cfg.Series && cfg.Output1D != "" {
			g1, err := histogram.NewGrid(1, len(tubes)*cfg.PixelsPerTube)
			if err != nil {
				return nil, err
			}
			g1.XMin, g1.XMax = 0, float64(len(tubes))
			a.grid1D = g1
		}
	}
	return a, nil
}

// checkFields validates every configured field name against the event
// schema so a misspelled name aborts setup instead of silently dropping
// readout writes for the whole run.
func checkFields(cfg Config, schema models.FieldSchema) error {
	named := map[string]string{
		"left":  cfg.LeftField,
		"right": cfg.RightField,
		"time":  cfg.TimeField,
		"wire":  cfg.WireField,
	}
	keys := maps.Keys(named)
	sort.Strings(keys)
	for _, k := range keys {
		name := named[k]
		if name == "" {
			continue
		}
		if schema == nil || !schema.Has(name) {
			return fmt.Errorf("detector: configured %s field %q does not exist in the event schema", k, name)
		}
	}
	return nil
}

// NumTubes returns the number of tubes in the bank.
func (a *TubeArray) NumTubes() int { return len(a.tubes) }

// PixelsPerTube returns the histogram binning along each tube.
func (a *TubeArray) PixelsPerTube() int { return a.pixels }

// Series reports whether the tubes are wired in series.
func (a *TubeArray) Series() bool { return a.series }

// Restore reports whether a hit trajectory should be passed through
// unchanged by the transport engine rather than consumed.
func (a *TubeArray) Restore() bool { return a.restore }

// Tube returns the i-th tube.
func (a *TubeArray) Tube(i int) Tube { return a.tubes[i] }

// Grid2D returns the per-tube histogram, nil for an empty bank.
func (a *TubeArray) Grid2D() *histogram.Grid { return a.grid2D }

// Grid1D returns the flattened-wire histogram, or nil when the bank is
// not series-wired or no 1D persistence target is configured.
func (a *TubeArray) Grid1D() *histogram.Grid { return a.grid1D }

// Persist hands the histograms to the sink under their configured target
// names. The 1D grid goes out only when it exists.
func (a *TubeArray) Persist(sink histogram.Sink) error {
	if a.grid2D != nil && a.output2D != "" {
		if err := sink.Write(a.output2D, a.grid2D.Snapshot()); err != nil {
			return fmt.Errorf("detector: persisting 2D histogram: %w", err)
		}
	}
	if a.grid1D != nil && a.output1D != "" {
		if err := sink.Write(a.output1D, a.grid1D.Snapshot()); err != nil {
			return fmt.Errorf("detector: persisting 1D histogram: %w", err)
		}
	}
	return nil
}
