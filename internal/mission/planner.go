// Package mission runs the full planning pipeline: terrain classification,
// agent simulation, density estimation, POI selection and routing. The
// result is what the CLI renders, exports and stores.
package mission

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/paulmach/orb"

	"github.com/banshee-data/sarplan/internal/cluster"
	"github.com/banshee-data/sarplan/internal/config"
	"github.com/banshee-data/sarplan/internal/density"
	"github.com/banshee-data/sarplan/internal/elevation"
	"github.com/banshee-data/sarplan/internal/monitoring"
	"github.com/banshee-data/sarplan/internal/poi"
	"github.com/banshee-data/sarplan/internal/route"
	"github.com/banshee-data/sarplan/internal/sim"
	"github.com/banshee-data/sarplan/internal/terrain"
	"github.com/banshee-data/sarplan/internal/timeutil"
)

// poiStreamSalt separates the POI random stream from the agent streams,
// which share the same root seed.
const poiStreamSalt = 0x706f69 // "poi"

var (
	ErrNoTerrain     = errors.New("mission: terrain raster is required")
	ErrNoPositions   = errors.New("mission: at least one position is required")
	ErrInvalidExtent = errors.New("mission: map extent must be positive")
)

// Inputs are the rasters for one run. Only Terrain is required.
type Inputs struct {
	Terrain   *terrain.Raster
	Palette   terrain.Palette  // nil uses terrain.DefaultPalette
	Elevation *elevation.Field // nil uses a flat field
	Launch    *orb.Point       // nil picks a mode-dependent default
}

// Hotspot is a region the route is built around: a DBSCAN cluster in
// hotspot mode, a dense grid cell in grid mode.
type Hotspot struct {
	ID       int
	Centroid orb.Point
	Size     int
}

// Timings records wall time per pipeline stage.
type Timings struct {
	Classify time.Duration
	Simulate time.Duration
	Density  time.Duration
	Plan     time.Duration
	Total    time.Duration
}

// Result is the outcome of one planning run. Terrain, Agents and Trace are
// empty when planning from known positions.
type Result struct {
	Mode      string
	Seed      uint64
	Ticks     int
	Width     float64
	Height    float64
	Terrain   *terrain.Grid
	Agents    []sim.AgentState
	Trace     []sim.TraceFrame
	Positions []orb.Point    // final agent positions, or the input positions
	Density   *density.Field // nil with fewer than two positions
	Hotspots  []Hotspot
	POIs      []orb.Point
	Path      route.Path
	Coverage  float64 // sum of density at the waypoints
	Timings   Timings
}

// Planner runs the pipeline with one configuration.
type Planner struct {
	cfg       *config.PlannerConfig
	clusterer cluster.Clusterer
	clock     timeutil.Clock
}

// NewPlanner validates cfg and builds a planner using DBSCAN for hotspots.
func NewPlanner(cfg *config.PlannerConfig) (*Planner, error) {
	if cfg == nil {
		cfg = config.EmptyPlannerConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid planner config: %w", err)
	}
	return &Planner{
		cfg:       cfg,
		clusterer: cluster.NewDBSCANClusterer(cfg.GetDBSCANEps(), cfg.GetDBSCANMinSamples()),
		clock:     timeutil.RealClock{},
	}, nil
}

// WithClock replaces the clock used for stage timings.
func (p *Planner) WithClock(c timeutil.Clock) *Planner {
	p.clock = c
	return p
}

// WithClusterer replaces the hotspot clusterer.
func (p *Planner) WithClusterer(c cluster.Clusterer) *Planner {
	p.clusterer = c
	return p
}

// Config returns the planner configuration.
func (p *Planner) Config() *config.PlannerConfig {
	return p.cfg
}

// SimConfig maps the planner configuration onto simulation settings.
func SimConfig(cfg *config.PlannerConfig) sim.Config {
	return sim.Config{
		AgentCount:          cfg.GetAgentCount(),
		SensingRadius:       cfg.GetSensingRadius(),
		ElevationPreference: cfg.GetElevationPreference(),
		SpeedMin:            cfg.GetSpeedMin(),
		SpeedMax:            cfg.GetSpeedMax(),
		AgeMin:              cfg.GetAgeMin(),
		AgeMax:              cfg.GetAgeMax(),
		AgeSpeedFactor:      cfg.GetAgeSpeedFactor(),
		Seed:                cfg.GetSeed(),
		Workers:             cfg.GetWorkers(),
		TraceEvery:          cfg.GetTraceEvery(),
	}
}

// POIParams maps the planner configuration onto POI selection settings for
// a width×height map.
func POIParams(cfg *config.PlannerConfig, width, height float64) poi.Params {
	return poi.Params{
		TargetCount: cfg.GetPOITargetCount(),
		MinDistance: cfg.GetPOIMinDistance(),
		Bounds:      poi.MapBounds(width, height),
		Margin:      cfg.GetPOIMargin(),
		MaxOffset:   cfg.GetPOIMaxOffset(),
		MaxAttempts: cfg.GetPOIMaxAttempts(),
		RelaxAfter:  cfg.GetPOIRelaxAfter(),
	}
}

// Run executes the pipeline. The run is bounded by the configured
// run_timeout in addition to ctx.
func (p *Planner) Run(ctx context.Context, in Inputs) (*Result, error) {
	if in.Terrain == nil {
		return nil, ErrNoTerrain
	}
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	start := p.clock.Now()
	res := &Result{Mode: p.cfg.GetPlannerMode(), Seed: p.cfg.GetSeed(), Ticks: p.cfg.GetTicks()}

	palette := in.Palette
	if palette == nil {
		palette = terrain.DefaultPalette()
	}
	t0 := p.clock.Now()
	grid, err := terrain.Classify(in.Terrain, palette)
	if err != nil {
		return nil, fmt.Errorf("classify terrain: %w", err)
	}
	res.Terrain = grid
	res.Width, res.Height = float64(grid.Width), float64(grid.Height)
	res.Timings.Classify = p.clock.Since(t0)

	elev := in.Elevation
	if elev == nil {
		if elev, err = elevation.Flat(grid.Width, grid.Height, 0); err != nil {
			return nil, fmt.Errorf("flat elevation: %w", err)
		}
	}

	t0 = p.clock.Now()
	s, err := sim.New(grid, elev, SimConfig(p.cfg))
	if err != nil {
		return nil, fmt.Errorf("create simulation: %w", err)
	}
	if err := s.Run(ctx, p.cfg.GetTicks()); err != nil {
		return nil, err
	}
	res.Agents = s.Agents()
	res.Trace = s.Trace()
	res.Positions = s.Positions()
	res.Timings.Simulate = p.clock.Since(t0)

	if err := p.plan(ctx, res, in.Launch); err != nil {
		return nil, err
	}
	res.Timings.Total = p.clock.Since(start)
	p.logSummary(res)
	return res, nil
}

// RunPositions plans from already known positions on a width×height map,
// skipping classification and simulation.
func (p *Planner) RunPositions(ctx context.Context, positions []orb.Point, width, height float64, launch *orb.Point) (*Result, error) {
	if len(positions) == 0 {
		return nil, ErrNoPositions
	}
	if !(width > 0) || !(height > 0) {
		return nil, fmt.Errorf("%w: %gx%g", ErrInvalidExtent, width, height)
	}
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	start := p.clock.Now()
	res := &Result{
		Mode:      p.cfg.GetPlannerMode(),
		Seed:      p.cfg.GetSeed(),
		Width:     width,
		Height:    height,
		Positions: slices.Clone(positions),
	}
	if err := p.plan(ctx, res, launch); err != nil {
		return nil, err
	}
	res.Timings.Total = p.clock.Since(start)
	p.logSummary(res)
	return res, nil
}

func (p *Planner) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if d := p.cfg.GetRunTimeout(); d > 0 {
		return context.WithTimeout(ctx, d)
	}
	return context.WithCancel(ctx)
}

// plan runs density estimation and waypoint planning over res.Positions.
// Density is only used for scoring and rendering, so fewer than two
// positions leave it nil and planning carries on.
func (p *Planner) plan(ctx context.Context, res *Result, launch *orb.Point) error {
	t0 := p.clock.Now()
	if len(res.Positions) < 2 {
		monitoring.Logf("mission: %d position(s), skipping density estimate", len(res.Positions))
	} else {
		var err error
		res.Density, err = density.Estimate(res.Positions, res.Width, res.Height, p.cfg.GetDensityResolution())
		if err != nil {
			return fmt.Errorf("estimate density: %w", err)
		}
	}
	res.Timings.Density = p.clock.Since(t0)

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("mission: cancelled before planning: %w", err)
	}

	t0 = p.clock.Now()
	var err error
	switch res.Mode {
	case config.ModeHotspot:
		err = p.planHotspots(res, res.Positions, launch)
	default:
		err = p.planGrid(res, res.Positions, launch)
	}
	if err != nil {
		return err
	}
	res.Coverage = Coverage(res.Density, res.Path.Waypoints())
	res.Timings.Plan = p.clock.Since(t0)
	return nil
}

func (p *Planner) logSummary(res *Result) {
	monitoring.Logf("mission: mode=%s hotspots=%d waypoints=%d length=%.1f coverage=%.3f in %v",
		res.Mode, len(res.Hotspots), len(res.POIs), res.Path.Length(), res.Coverage, res.Timings.Total)
}

// planHotspots clusters the final positions, spreads POIs around the
// cluster centroids and routes them greedily from the launch point (map
// centre by default).
func (p *Planner) planHotspots(res *Result, positions []orb.Point, launch *orb.Point) error {
	clusters, err := p.clusterer.Cluster(positions)
	if err != nil {
		return fmt.Errorf("cluster positions: %w", err)
	}
	for _, c := range clusters {
		res.Hotspots = append(res.Hotspots, Hotspot{ID: c.ID, Centroid: c.Centroid, Size: c.Size})
	}

	params := POIParams(p.cfg, res.Width, res.Height)
	seed := p.cfg.GetSeed()
	rng := rand.New(rand.NewPCG(seed, seed^poiStreamSalt))
	res.POIs, err = poi.Distributed(cluster.Centroids(clusters), params, rng)
	if err != nil {
		return fmt.Errorf("select pois: %w", err)
	}

	startAt := params.Bounds.Center()
	if launch != nil {
		startAt = *launch
	}
	res.Path, err = route.Plan(route.ModeGreedy, startAt, res.POIs)
	return err
}

// planGrid picks the densest grid cells and visits them in descending
// count order from the launch point (mean agent position by default).
func (p *Planner) planGrid(res *Result, positions []orb.Point, launch *orb.Point) error {
	cells, err := poi.GridDensity(positions, poi.MapBounds(res.Width, res.Height),
		p.cfg.GetGridRows(), p.cfg.GetGridCols(), p.cfg.GetGridTopK())
	if err != nil {
		return fmt.Errorf("grid density: %w", err)
	}
	for i, c := range cells {
		res.Hotspots = append(res.Hotspots, Hotspot{ID: i + 1, Centroid: c.Center, Size: c.Count})
	}
	res.POIs = poi.Centers(cells)

	startAt := meanPoint(positions)
	if launch != nil {
		startAt = *launch
	}
	res.Path, err = route.Plan(route.ModeInOrder, startAt, res.POIs)
	return err
}

// Coverage sums the normalised density at each waypoint. Higher means the
// route passes over more of the probable area.
func Coverage(f *density.Field, waypoints []orb.Point) float64 {
	if f == nil {
		return 0
	}
	var sum float64
	for _, w := range waypoints {
		sum += f.ValueAt(w[0], w[1])
	}
	return sum
}

func meanPoint(pts []orb.Point) orb.Point {
	if len(pts) == 0 {
		return orb.Point{}
	}
	var sx, sy float64
	for _, p := range pts {
		sx += p[0]
		sy += p[1]
	}
	n := float64(len(pts))
	return orb.Point{sx / n, sy / n}
}
