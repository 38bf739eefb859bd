package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultConfigPath is the path to the canonical planner defaults file.
const DefaultConfigPath = "config/planner.defaults.json"

// Planner modes.
const (
	ModeHotspot = "hotspot" // DBSCAN hotspots, distributed POIs, greedy route
	ModeGrid    = "grid"    // grid top-k cells visited in density order
)

// PlannerConfig is the root configuration for a planning run. Every field
// is optional; the Get* methods supply defaults for omitted values so
// partial files are safe.
type PlannerConfig struct {
	// Simulation
	AgentCount          *int     `json:"agent_count,omitempty"`
	SensingRadius       *int     `json:"sensing_radius,omitempty"`
	ElevationPreference *float64 `json:"elevation_preference,omitempty"`
	SpeedMin            *float64 `json:"speed_min,omitempty"`
	SpeedMax            *float64 `json:"speed_max,omitempty"`
	AgeMin              *float64 `json:"age_min,omitempty"`
	AgeMax              *float64 `json:"age_max,omitempty"`
	AgeSpeedFactor      *float64 `json:"age_speed_factor,omitempty"`
	Ticks               *int     `json:"ticks,omitempty"`
	Seed                *uint64  `json:"seed,omitempty"`
	Workers             *int     `json:"workers,omitempty"`
	TraceEvery          *int     `json:"trace_every,omitempty"`

	// Density
	DensityResolution *int `json:"density_resolution,omitempty"`

	// Hotspot clustering
	DBSCANEps        *float64 `json:"dbscan_eps,omitempty"`
	DBSCANMinSamples *int     `json:"dbscan_min_samples,omitempty"`

	// POI selection
	POITargetCount *int     `json:"poi_target_count,omitempty"`
	POIMinDistance *float64 `json:"poi_min_distance,omitempty"`
	POIMargin      *float64 `json:"poi_margin,omitempty"`
	POIMaxOffset   *float64 `json:"poi_max_offset,omitempty"`
	POIMaxAttempts *int     `json:"poi_max_attempts,omitempty"`
	POIRelaxAfter  *float64 `json:"poi_relax_after,omitempty"`

	// Grid selection
	GridRows *int `json:"grid_rows,omitempty"`
	GridCols *int `json:"grid_cols,omitempty"`
	GridTopK *int `json:"grid_top_k,omitempty"`

	// Planning
	PlannerMode *string     `json:"planner_mode,omitempty"`
	RunTimeout  *string     `json:"run_timeout,omitempty"` // duration string like "5m"
	BBox        *[4]float64 `json:"bbox,omitempty"`        // west, south, east, north in degrees
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }
func ptrUint64(v uint64) *uint64    { return &v }

// EmptyPlannerConfig returns a PlannerConfig with all fields nil.
func EmptyPlannerConfig() *PlannerConfig {
	return &PlannerConfig{}
}

// DefaultPlannerConfig returns a PlannerConfig with every field set to its
// default value.
func DefaultPlannerConfig() *PlannerConfig {
	e := EmptyPlannerConfig()
	return &PlannerConfig{
		AgentCount:          ptrInt(e.GetAgentCount()),
		SensingRadius:       ptrInt(e.GetSensingRadius()),
		ElevationPreference: ptrFloat64(e.GetElevationPreference()),
		SpeedMin:            ptrFloat64(e.GetSpeedMin()),
		SpeedMax:            ptrFloat64(e.GetSpeedMax()),
		AgeMin:              ptrFloat64(e.GetAgeMin()),
		AgeMax:              ptrFloat64(e.GetAgeMax()),
		AgeSpeedFactor:      ptrFloat64(e.GetAgeSpeedFactor()),
		Ticks:               ptrInt(e.GetTicks()),
		Seed:                ptrUint64(e.GetSeed()),
		Workers:             ptrInt(e.GetWorkers()),
		TraceEvery:          ptrInt(e.GetTraceEvery()),
		DensityResolution:   ptrInt(e.GetDensityResolution()),
		DBSCANEps:           ptrFloat64(e.GetDBSCANEps()),
		DBSCANMinSamples:    ptrInt(e.GetDBSCANMinSamples()),
		POITargetCount:      ptrInt(e.GetPOITargetCount()),
		POIMinDistance:      ptrFloat64(e.GetPOIMinDistance()),
		POIMargin:           ptrFloat64(e.GetPOIMargin()),
		POIMaxOffset:        ptrFloat64(e.GetPOIMaxOffset()),
		POIMaxAttempts:      ptrInt(e.GetPOIMaxAttempts()),
		POIRelaxAfter:       ptrFloat64(e.GetPOIRelaxAfter()),
		GridRows:            ptrInt(e.GetGridRows()),
		GridCols:            ptrInt(e.GetGridCols()),
		GridTopK:            ptrInt(e.GetGridTopK()),
		PlannerMode:         ptrString(e.GetPlannerMode()),
		RunTimeout:          ptrString(e.GetRunTimeout().String()),
	}
}

// LoadPlannerConfig loads a PlannerConfig from a JSON file.
// The file must have a .json extension and be under 1MB.
func LoadPlannerConfig(path string) (*PlannerConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyPlannerConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath, searching upward from the
// current directory. Panics if the file cannot be loaded; intended for
// test setup.
func MustLoadDefaultConfig() *PlannerConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // from internal/storage/sqlite/
	}
	for _, path := range candidates {
		if cfg, err := LoadPlannerConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks the values that are set. Range checks that depend on
// several fields (speed_min <= speed_max and so on) use the effective
// values, so a partial file is checked against the defaults.
func (c *PlannerConfig) Validate() error {
	if n := c.GetAgentCount(); n <= 0 {
		return fmt.Errorf("agent_count must be positive, got %d", n)
	}
	if r := c.GetSensingRadius(); r < 0 {
		return fmt.Errorf("sensing_radius must be non-negative, got %d", r)
	}
	if p := c.GetElevationPreference(); p < 0 || p > 1 {
		return fmt.Errorf("elevation_preference must be between 0 and 1, got %f", p)
	}
	if lo, hi := c.GetSpeedMin(), c.GetSpeedMax(); lo <= 0 || hi < lo {
		return fmt.Errorf("speed range must satisfy 0 < speed_min <= speed_max, got [%f, %f]", lo, hi)
	}
	if lo, hi := c.GetAgeMin(), c.GetAgeMax(); lo < 0 || hi < lo || hi >= 1.1 {
		return fmt.Errorf("age range must satisfy 0 <= age_min <= age_max < 1.1, got [%f, %f]", lo, hi)
	}
	if t := c.GetTicks(); t < 0 {
		return fmt.Errorf("ticks must be non-negative, got %d", t)
	}
	if c.Workers != nil && *c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", *c.Workers)
	}
	if c.TraceEvery != nil && *c.TraceEvery < 0 {
		return fmt.Errorf("trace_every must be non-negative, got %d", *c.TraceEvery)
	}
	if r := c.GetDensityResolution(); r < 2 {
		return fmt.Errorf("density_resolution must be at least 2, got %d", r)
	}
	if e := c.GetDBSCANEps(); e <= 0 {
		return fmt.Errorf("dbscan_eps must be positive, got %f", e)
	}
	if m := c.GetDBSCANMinSamples(); m < 1 {
		return fmt.Errorf("dbscan_min_samples must be at least 1, got %d", m)
	}
	if n := c.GetPOITargetCount(); n < 0 {
		return fmt.Errorf("poi_target_count must be non-negative, got %d", n)
	}
	if d := c.GetPOIMinDistance(); d < 0 {
		return fmt.Errorf("poi_min_distance must be non-negative, got %f", d)
	}
	if n := c.GetPOIMaxAttempts(); n < 1 {
		return fmt.Errorf("poi_max_attempts must be at least 1, got %d", n)
	}
	if f := c.GetPOIRelaxAfter(); f < 0 || f > 1 {
		return fmt.Errorf("poi_relax_after must be between 0 and 1, got %f", f)
	}
	if c.GetGridRows() < 1 || c.GetGridCols() < 1 || c.GetGridTopK() < 1 {
		return fmt.Errorf("grid_rows, grid_cols and grid_top_k must be at least 1")
	}
	switch m := c.GetPlannerMode(); m {
	case ModeHotspot, ModeGrid:
	default:
		return fmt.Errorf("planner_mode must be %q or %q, got %q", ModeHotspot, ModeGrid, m)
	}
	if c.RunTimeout != nil && *c.RunTimeout != "" {
		if _, err := time.ParseDuration(*c.RunTimeout); err != nil {
			return fmt.Errorf("invalid run_timeout '%s': %w", *c.RunTimeout, err)
		}
	}
	if c.BBox != nil {
		b := *c.BBox
		if b[0] >= b[2] || b[1] >= b[3] || b[1] < -90 || b[3] > 90 || b[0] < -180 || b[2] > 180 {
			return fmt.Errorf("bbox must be [west, south, east, north] with west < east and south < north, got %v", b)
		}
	}
	return nil
}

// GetAgentCount returns the agent_count value or the default.
func (c *PlannerConfig) GetAgentCount() int {
	if c.AgentCount == nil {
		return 250
	}
	return *c.AgentCount
}

// GetSensingRadius returns the sensing_radius value or the default.
func (c *PlannerConfig) GetSensingRadius() int {
	if c.SensingRadius == nil {
		return 3
	}
	return *c.SensingRadius
}

// GetElevationPreference returns the elevation_preference value or the default.
func (c *PlannerConfig) GetElevationPreference() float64 {
	if c.ElevationPreference == nil {
		return 0.65
	}
	return *c.ElevationPreference
}

// GetSpeedMin returns the speed_min value or the default.
func (c *PlannerConfig) GetSpeedMin() float64 {
	if c.SpeedMin == nil {
		return 1.0
	}
	return *c.SpeedMin
}

// GetSpeedMax returns the speed_max value or the default.
func (c *PlannerConfig) GetSpeedMax() float64 {
	if c.SpeedMax == nil {
		return 3.0
	}
	return *c.SpeedMax
}

// GetAgeMin returns the age_min value or the default.
func (c *PlannerConfig) GetAgeMin() float64 {
	if c.AgeMin == nil {
		return 0.1
	}
	return *c.AgeMin
}

// GetAgeMax returns the age_max value or the default.
func (c *PlannerConfig) GetAgeMax() float64 {
	if c.AgeMax == nil {
		return 1.0
	}
	return *c.AgeMax
}

// GetAgeSpeedFactor returns the age_speed_factor value or the default.
func (c *PlannerConfig) GetAgeSpeedFactor() float64 {
	if c.AgeSpeedFactor == nil {
		return 2.0
	}
	return *c.AgeSpeedFactor
}

// GetTicks returns the ticks value or the default.
func (c *PlannerConfig) GetTicks() int {
	if c.Ticks == nil {
		return 150
	}
	return *c.Ticks
}

// GetSeed returns the seed value or the default.
func (c *PlannerConfig) GetSeed() uint64 {
	if c.Seed == nil {
		return 1
	}
	return *c.Seed
}

// GetWorkers returns the workers value or the default (serial).
func (c *PlannerConfig) GetWorkers() int {
	if c.Workers == nil {
		return 1
	}
	return *c.Workers
}

// GetTraceEvery returns the trace_every value or the default (every 10
// ticks). Zero disables tracing.
func (c *PlannerConfig) GetTraceEvery() int {
	if c.TraceEvery == nil {
		return 10
	}
	return *c.TraceEvery
}

// GetDensityResolution returns the density_resolution value or the default.
func (c *PlannerConfig) GetDensityResolution() int {
	if c.DensityResolution == nil {
		return 100
	}
	return *c.DensityResolution
}

// GetDBSCANEps returns the dbscan_eps value or the default.
func (c *PlannerConfig) GetDBSCANEps() float64 {
	if c.DBSCANEps == nil {
		return 50
	}
	return *c.DBSCANEps
}

// GetDBSCANMinSamples returns the dbscan_min_samples value or the default.
func (c *PlannerConfig) GetDBSCANMinSamples() int {
	if c.DBSCANMinSamples == nil {
		return 5
	}
	return *c.DBSCANMinSamples
}

// GetPOITargetCount returns the poi_target_count value or the default.
func (c *PlannerConfig) GetPOITargetCount() int {
	if c.POITargetCount == nil {
		return 6
	}
	return *c.POITargetCount
}

// GetPOIMinDistance returns the poi_min_distance value or the default.
func (c *PlannerConfig) GetPOIMinDistance() float64 {
	if c.POIMinDistance == nil {
		return 100
	}
	return *c.POIMinDistance
}

// GetPOIMargin returns the poi_margin value or the default.
func (c *PlannerConfig) GetPOIMargin() float64 {
	if c.POIMargin == nil {
		return 100
	}
	return *c.POIMargin
}

// GetPOIMaxOffset returns the poi_max_offset value or the default.
func (c *PlannerConfig) GetPOIMaxOffset() float64 {
	if c.POIMaxOffset == nil {
		return 200
	}
	return *c.POIMaxOffset
}

// GetPOIMaxAttempts returns the poi_max_attempts value or the default.
func (c *PlannerConfig) GetPOIMaxAttempts() int {
	if c.POIMaxAttempts == nil {
		return 1000
	}
	return *c.POIMaxAttempts
}

// GetPOIRelaxAfter returns the poi_relax_after value or the default.
func (c *PlannerConfig) GetPOIRelaxAfter() float64 {
	if c.POIRelaxAfter == nil {
		return 0.5
	}
	return *c.POIRelaxAfter
}

// GetGridRows returns the grid_rows value or the default.
func (c *PlannerConfig) GetGridRows() int {
	if c.GridRows == nil {
		return 5
	}
	return *c.GridRows
}

// GetGridCols returns the grid_cols value or the default.
func (c *PlannerConfig) GetGridCols() int {
	if c.GridCols == nil {
		return 5
	}
	return *c.GridCols
}

// GetGridTopK returns the grid_top_k value or the default.
func (c *PlannerConfig) GetGridTopK() int {
	if c.GridTopK == nil {
		return 10
	}
	return *c.GridTopK
}

// GetPlannerMode returns the planner_mode value or the default.
func (c *PlannerConfig) GetPlannerMode() string {
	if c.PlannerMode == nil || *c.PlannerMode == "" {
		return ModeGrid
	}
	return *c.PlannerMode
}

// GetRunTimeout parses and returns RunTimeout. Zero means no timeout.
func (c *PlannerConfig) GetRunTimeout() time.Duration {
	if c.RunTimeout == nil || *c.RunTimeout == "" {
		return 5 * time.Minute // default
	}
	d, err := time.ParseDuration(*c.RunTimeout)
	if err != nil {
		return 5 * time.Minute // default on parse error
	}
	return d
}

// GetBBox returns the georeference bounding box and whether one is set.
func (c *PlannerConfig) GetBBox() (west, south, east, north float64, ok bool) {
	if c.BBox == nil {
		return 0, 0, 0, 0, false
	}
	return c.BBox[0], c.BBox[1], c.BBox[2], c.BBox[3], true
}
