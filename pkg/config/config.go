// Package config provides configuration loading and management for psdtubes.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Config represents the detector-bank configuration loaded from YAML.
type Config struct {
	// Detector parameters
	Detector struct {
		// NumTubes is the number of tubes in the bank
		NumTubes int `yaml:"numTubes"`

		// Series wires all tube anodes into one resistive chain
		Series bool `yaml:"series"`

		// PixelsPerTube is the histogram binning along each tube
		PixelsPerTube int `yaml:"pixelsPerTube"`

		// SkipOverlapCheck disables the pairwise overlap validation
		SkipOverlapCheck bool `yaml:"skipOverlapCheck"`

		// Restore passes a hit trajectory through unchanged instead of
		// consuming it
		Restore bool `yaml:"restore"`
	} `yaml:"detector"`

	// Charge-discrimination electronics parameters
	Charge struct {
		// Threshold is the lowest simulated pulse height
		Threshold float64 `yaml:"threshold"`

		// MaxLevel is the highest simulated pulse height
		MaxLevel float64 `yaml:"maxLevel"`
	} `yaml:"charge"`

	// Geometry parameters; per-tube arrays override the shared scalars
	Geometry struct {
		// Radius is the shared tube radius in m
		Radius float64 `yaml:"radius"`

		// Radii gives per-tube radii in m
		Radii []float64 `yaml:"radii"`

		// Length is the shared full tube length in m
		Length float64 `yaml:"length"`

		// Width is the lateral extent of the bank in m
		Width float64 `yaml:"width"`

		// Height offsets the defaulted tube centers vertically in m
		Height float64 `yaml:"height"`

		// Curvature is the radius of curvature of the bank arc in m;
		// zero keeps the layout linear
		Curvature float64 `yaml:"curvature"`

		// Centers gives explicit tube centers as [x, y, z] triples in m
		Centers [][3]float64 `yaml:"centers"`

		// Ends gives explicit center-to-end vectors as [x, y, z] triples
		Ends [][3]float64 `yaml:"ends"`
	} `yaml:"geometry"`

	// Electrical parameters of the readout network
	Electrical struct {
		// Resistivity is the shared wire resistance per meter in ohm/m
		Resistivity float64 `yaml:"resistivity"`

		// Resistivities gives per-tube wire resistance per meter
		Resistivities []float64 `yaml:"resistivities"`

		// InterResistance is the shared resistance between adjacent tubes
		InterResistance float64 `yaml:"interResistance"`

		// InterResistances gives the numTubes+1 inter-tube resistances
		InterResistances []float64 `yaml:"interResistances"`

		// PreContacts and PostContacts give explicit per-tube contact
		// resistances, used verbatim when present
		PreContacts  []float64 `yaml:"preContacts"`
		PostContacts []float64 `yaml:"postContacts"`
	} `yaml:"electrical"`

	// Gas parameters
	Gas struct {
		// Pressure is the converter-gas pressure in bar; zero disables
		// the absorption correction
		Pressure float64 `yaml:"pressure"`
	} `yaml:"gas"`

	// DeadZone parameters
	DeadZone struct {
		// Length is the reduced-efficiency length at each tube end in m
		Length float64 `yaml:"length"`
	} `yaml:"deadZone"`

	// Fields names the per-event record fields the electronics write;
	// empty names disable the corresponding write
	Fields struct {
		Left  string `yaml:"left"`
		Right string `yaml:"right"`
		Time  string `yaml:"time"`
		Wire  string `yaml:"wire"`

		// FirstWire and WireStep map tube index to wire number
		FirstWire int `yaml:"firstWire"`
		WireStep  int `yaml:"wireStep"`
	} `yaml:"fields"`

	// Output parameters
	Output struct {
		// Histogram2D names the per-tube histogram persistence target
		Histogram2D string `yaml:"histogram2D"`

		// Histogram1D names the flattened-wire histogram target, used
		// only under series wiring
		Histogram1D string `yaml:"histogram1D"`

		// Wireframe names the PNG file for the bank wireframe render
		Wireframe string `yaml:"wireframe"`

		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`

	// Source parameters of the example-instrument Monte Carlo driver
	Source struct {
		// Events is the number of trajectories to fire
		Events int `yaml:"events"`

		// Cores is the number of event workers
		Cores int `yaml:"cores"`

		// Seed seeds the per-worker random streams
		Seed int64 `yaml:"seed"`

		// Distance is the source-to-bank distance along the beam in m
		Distance float64 `yaml:"distance"`

		// Divergence is the Gaussian beam divergence in rad
		Divergence float64 `yaml:"divergence"`

		// Speed is the particle speed in m/s
		Speed float64 `yaml:"speed"`
	} `yaml:"source"`
}

// DefaultConfig returns a configuration with default values: a small
// series-wired linear He-3 bank with charge-division readout.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Detector.NumTubes = 3
	cfg.Detector.Series = true
	cfg.Detector.PixelsPerTube = 100

	cfg.Charge.Threshold = 100
	cfg.Charge.MaxLevel = 65535

	cfg.Geometry.Radius = 0.00625
	cfg.Geometry.Length = 0.5
	cfg.Geometry.Width = 0.05

	cfg.Electrical.Resistivity = 140
	cfg.Electrical.InterResistance = 2

	cfg.Gas.Pressure = 5
	cfg.DeadZone.Length = 0.01

	cfg.Fields.Left = "chargeLeft"
	cfg.Fields.Right = "chargeRight"
	cfg.Fields.Time = "detTime"
	cfg.Fields.Wire = "wire"
	cfg.Fields.WireStep = 1

	cfg.Output.Histogram2D = "psd_tubes"
	cfg.Output.Histogram1D = "psd_wire"
	cfg.Output.Verbose = true

	cfg.Source.Events = 100000
	cfg.Source.Cores = runtime.NumCPU()
	cfg.Source.Seed = 1
	cfg.Source.Distance = 2.0
	cfg.Source.Divergence = 0.01
	cfg.Source.Speed = 2200

	return cfg
}

// LoadConfig loads configuration from a YAML file.
// If the file doesn't exist, it returns the default configuration.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file.
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the
// specified path.
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
