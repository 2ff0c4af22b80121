package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gonum.org/v1/gonum/spatial/r3"
	"gopkg.in/yaml.v3"

	"psdtubes/internal/models"
	"psdtubes/pkg/config"
	"psdtubes/pkg/detector"
	"psdtubes/pkg/histogram"
	"psdtubes/pkg/visualization"
)

func main() {
	// Parse command line arguments
	configPath := flag.String("config", "psdtubes.yaml", "YAML configuration file")
	events := flag.Int("events", 0, "Number of trajectories to fire (overrides config)")
	cores := flag.Int("cores", 0, "Number of event workers (overrides config)")
	seed := flag.Int64("seed", 0, "Random seed (overrides config)")
	outputDir := flag.String("output", "results", "Directory for histogram dumps and renders")
	writeConfig := flag.Bool("write-config", false, "Write the default configuration to the config path and exit")
	flag.Parse()

	if *writeConfig {
		if err := config.CreateDefaultConfigFile(*configPath); err != nil {
			log.Fatalf("Failed to write default config: %v", err)
		}
		fmt.Printf("Default configuration written to %s\n", *configPath)
		return
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *events > 0 {
		cfg.Source.Events = *events
	}
	if *cores > 0 {
		cfg.Source.Cores = *cores
	}
	if *seed != 0 {
		cfg.Source.Seed = *seed
	}

	level := slog.LevelWarn
	if cfg.Output.Verbose {
		level = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	fmt.Println("================================")
	fmt.Println("PSD TUBE BANK - RESISTIVE CHARGE-DIVISION MONTE CARLO")
	fmt.Println("================================")

	// The instrument defines the per-event record schema; the bank
	// validates its configured field names against it at construction.
	template := models.NewRecord(fieldNames(cfg)...)

	bank, err := detector.New(detectorConfig(cfg), template)
	if err != nil {
		log.Fatalf("Detector construction failed: %v", err)
	}

	fmt.Printf("Bank: %d tubes, %d pixels/tube, series=%v\n",
		bank.NumTubes(), bank.PixelsPerTube(), bank.Series())

	start := time.Now()
	hits := run(bank, cfg, template)
	elapsed := time.Since(start)

	fmt.Printf("\nProcessed %d trajectories in %.2f seconds (%d workers)\n",
		cfg.Source.Events, elapsed.Seconds(), workers(cfg))
	fmt.Printf("Registered hits: %d (%.2f%%)\n",
		hits, 100*float64(hits)/math.Max(1, float64(cfg.Source.Events)))

	if g := bank.Grid2D(); g != nil {
		st := g.Snapshot().Stats()
		fmt.Printf("\nPer-tube histogram statistics:\n")
		fmt.Printf("  total weight:  %.4f\n", st.Weight)
		fmt.Printf("  mean pixel:    %.3f\n", st.MeanCol)
		fmt.Printf("  pixel stddev:  %.3f\n", st.StdDevCol)

		for i := 0; i < bank.NumTubes(); i++ {
			var n uint64
			for p := 0; p < bank.PixelsPerTube(); p++ {
				n += g.At(i, p).Count()
			}
			fmt.Printf("  tube %d hits:   %d\n", i, n)
		}
	}

	sink := &yamlSink{dir: *outputDir}
	if err := bank.Persist(sink); err != nil {
		log.Fatalf("Failed to persist histograms: %v", err)
	}

	if cfg.Output.Wireframe != "" {
		shapes := make([]visualization.TubeShape, bank.NumTubes())
		for i := range shapes {
			t := bank.Tube(i)
			shapes[i] = visualization.TubeShape{
				Radius: t.Radius,
				Length: t.Length,
				ThetaX: t.ThetaX,
				ThetaZ: t.ThetaZ,
				Center: t.Center,
			}
		}
		viewer := visualization.NewViewer(shapes)
		out := filepath.Join(*outputDir, cfg.Output.Wireframe)
		if err := viewer.SavePNG(out, "z", 800, 600); err != nil {
			slog.Warn("wireframe render failed", "error", err)
		} else {
			fmt.Printf("\nWireframe saved to %s\n", out)
		}
	}
}

// run fires the configured number of trajectories through the bank with a
// pool of independent event workers and returns the number of hits.
func run(bank *detector.TubeArray, cfg *config.Config, template models.Record) uint64 {
	n := cfg.Source.Events
	w := workers(cfg)

	// Spread the events across workers, remainder to the first ones.
	per := make([]int, w)
	for i := range per {
		per[i] = n / w
		if i < n%w {
			per[i]++
		}
	}

	var hits uint64
	var mu sync.Mutex
	var wg sync.WaitGroup
	wg.Add(w)
	for wid := 0; wid < w; wid++ {
		go func(wid, count int) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(cfg.Source.Seed + int64(wid)*0x9e3779b9))
			local := uint64(0)
			for e := 0; e < count; e++ {
				traj := sample(cfg, rng, template)
				if _, ok := bank.Detect(traj, rng); ok {
					local++
				}
			}
			mu.Lock()
			hits += local
			mu.Unlock()
		}(wid, per[wid])
	}
	wg.Wait()
	return hits
}

// sample draws one trajectory from a point source upstream of the bank
// with Gaussian angular divergence across the bank width.
func sample(cfg *config.Config, rng *rand.Rand, template models.Record) models.Trajectory {
	dx := rng.NormFloat64() * cfg.Source.Divergence
	dy := rng.NormFloat64() * cfg.Source.Divergence
	dir := r3.Unit(r3.Vec{X: dx, Y: dy, Z: 1})
	return models.Trajectory{
		Position: r3.Vec{Z: -cfg.Source.Distance},
		Velocity: r3.Scale(cfg.Source.Speed, dir),
		Time:     cfg.Source.Distance / cfg.Source.Speed,
		Weight:   1,
		Fields:   template.Clone(),
	}
}

func workers(cfg *config.Config) int {
	if cfg.Source.Cores > 0 {
		return cfg.Source.Cores
	}
	return 1
}

// fieldNames lists the configured non-empty event field names.
func fieldNames(cfg *config.Config) []string {
	var names []string
	for _, n := range []string{cfg.Fields.Left, cfg.Fields.Right, cfg.Fields.Time, cfg.Fields.Wire} {
		if n != "" {
			names = append(names, n)
		}
	}
	return names
}

// detectorConfig assembles the bank configuration from the loaded YAML.
func detectorConfig(cfg *config.Config) detector.Config {
	dc := detector.Config{
		Series:           cfg.Detector.Series,
		PixelsPerTube:    cfg.Detector.PixelsPerTube,
		Threshold:        cfg.Charge.Threshold,
		MaxLevel:         cfg.Charge.MaxLevel,
		Pressure:         cfg.Gas.Pressure,
		DeadZone:         cfg.DeadZone.Length,
		LeftField:        cfg.Fields.Left,
		RightField:       cfg.Fields.Right,
		TimeField:        cfg.Fields.Time,
		WireField:        cfg.Fields.Wire,
		FirstWire:        cfg.Fields.FirstWire,
		WireStep:         cfg.Fields.WireStep,
		SkipOverlapCheck: cfg.Detector.SkipOverlapCheck,
		Restore:          cfg.Detector.Restore,
		Output2D:         cfg.Output.Histogram2D,
		Output1D:         cfg.Output.Histogram1D,
	}

	dc.Geometry.NumTubes = cfg.Detector.NumTubes
	dc.Geometry.Radius = cfg.Geometry.Radius
	dc.Geometry.Radii = cfg.Geometry.Radii
	dc.Geometry.Length = cfg.Geometry.Length
	dc.Geometry.Width = cfg.Geometry.Width
	dc.Geometry.Height = cfg.Geometry.Height
	dc.Geometry.Curvature = cfg.Geometry.Curvature
	dc.Geometry.Centers = vecs(cfg.Geometry.Centers)
	dc.Geometry.Ends = vecs(cfg.Geometry.Ends)

	dc.Electrical.Resistivity = cfg.Electrical.Resistivity
	dc.Electrical.Resistivities = cfg.Electrical.Resistivities
	dc.Electrical.InterResistance = cfg.Electrical.InterResistance
	dc.Electrical.InterResistances = cfg.Electrical.InterResistances
	dc.Electrical.PreContacts = cfg.Electrical.PreContacts
	dc.Electrical.PostContacts = cfg.Electrical.PostContacts

	return dc
}

func vecs(triples [][3]float64) []r3.Vec {
	if triples == nil {
		return nil
	}
	out := make([]r3.Vec, len(triples))
	for i, t := range triples {
		out[i] = r3.Vec{X: t[0], Y: t[1], Z: t[2]}
	}
	return out
}

// yamlSink persists histogram snapshots as YAML files, one per target
// name. The detector core supplies only the raw arrays and axis bounds;
// the file layout is this instrument's choice.
type yamlSink struct {
	dir string
}

type yamlHistogram struct {
	Rows   int       `yaml:"rows"`
	Cols   int       `yaml:"cols"`
	XMin   float64   `yaml:"xmin"`
	XMax   float64   `yaml:"xmax"`
	YMin   float64   `yaml:"ymin"`
	YMax   float64   `yaml:"ymax"`
	Counts []uint64  `yaml:"counts,flow"`
	Sums   []float64 `yaml:"sums,flow"`
	SumSqs []float64 `yaml:"sumSquares,flow"`
}

func (s *yamlSink) Write(name string, snap histogram.Snapshot) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("error creating output directory: %w", err)
	}
	data, err := yaml.Marshal(yamlHistogram{
		Rows:   snap.Rows,
		Cols:   snap.Cols,
		XMin:   snap.XMin,
		XMax:   snap.XMax,
		YMin:   snap.YMin,
		YMax:   snap.YMax,
		Counts: snap.Counts,
		Sums:   snap.Sums,
		SumSqs: snap.SumSqs,
	})
	if err != nil {
		return fmt.Errorf("error marshaling histogram: %w", err)
	}
	path := filepath.Join(s.dir, name+".yaml")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("error writing histogram file: %w", err)
	}
	fmt.Printf("Histogram %q written to %s\n", name, path)
	return nil
}
