package mission

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/sarplan/internal/cluster"
	"github.com/banshee-data/sarplan/internal/config"
	"github.com/banshee-data/sarplan/internal/density"
	"github.com/banshee-data/sarplan/internal/fsutil"
	"github.com/banshee-data/sarplan/internal/monitoring"
	"github.com/banshee-data/sarplan/internal/storage/sqlite"
	"github.com/banshee-data/sarplan/internal/terrain"
	"github.com/banshee-data/sarplan/internal/timeutil"
)

func quietLogs(t *testing.T) {
	t.Helper()
	prev := monitoring.Logf
	monitoring.SetLogger(t.Logf)
	t.Cleanup(func() { monitoring.SetLogger(prev) })
}

// testRaster is a 200x150 sparse forest crossed by a road at y=100.
func testRaster() *terrain.Raster {
	r := terrain.NewRaster(200, 150)
	for y := 0; y < r.Height; y++ {
		for x := 0; x < r.Width; x++ {
			c := terrain.RGB{144, 238, 144}
			if y >= 100 && y < 103 {
				c = terrain.RGB{51, 51, 51}
			}
			r.Set(x, y, c)
		}
	}
	return r
}

func testConfig(mode string) *config.PlannerConfig {
	cfg := config.EmptyPlannerConfig()
	cfg.AgentCount = ptr(80)
	cfg.Ticks = ptr(20)
	cfg.Seed = ptr(uint64(7))
	cfg.DensityResolution = ptr(20)
	cfg.DBSCANEps = ptr(20.0)
	cfg.DBSCANMinSamples = ptr(3)
	cfg.POITargetCount = ptr(4)
	cfg.POIMinDistance = ptr(20.0)
	cfg.POIMargin = ptr(10.0)
	cfg.POIMaxOffset = ptr(30.0)
	cfg.GridRows = ptr(3)
	cfg.GridCols = ptr(3)
	cfg.GridTopK = ptr(4)
	cfg.PlannerMode = ptr(mode)
	return cfg
}

func ptr[T any](v T) *T { return &v }

func runPlanner(t *testing.T, cfg *config.PlannerConfig, in Inputs) *Result {
	t.Helper()
	p, err := NewPlanner(cfg)
	require.NoError(t, err)
	res, err := p.Run(context.Background(), in)
	require.NoError(t, err)
	return res
}

// assertCompletePath checks the path starts at start and visits every POI once.
func assertCompletePath(t *testing.T, res *Result, start orb.Point) {
	t.Helper()
	require.Len(t, res.Path, len(res.POIs)+1)
	assert.Equal(t, start, res.Path[0])
	seen := make(map[orb.Point]int)
	for _, w := range res.Path.Waypoints() {
		seen[w]++
	}
	for _, p := range res.POIs {
		assert.Positive(t, seen[p], "poi %v missing from path", p)
	}
}

func TestRun_GridMode(t *testing.T) {
	quietLogs(t)
	res := runPlanner(t, testConfig(config.ModeGrid), Inputs{Terrain: testRaster()})

	assert.Equal(t, config.ModeGrid, res.Mode)
	assert.Equal(t, 200.0, res.Width)
	assert.Equal(t, 150.0, res.Height)
	require.Len(t, res.Agents, 80)
	require.NotNil(t, res.Density)
	assert.Equal(t, 20, res.Density.Rows)

	require.NotEmpty(t, res.POIs)
	assert.LessOrEqual(t, len(res.POIs), 4)
	require.Len(t, res.Hotspots, len(res.POIs))
	for i := 1; i < len(res.Hotspots); i++ {
		assert.GreaterOrEqual(t, res.Hotspots[i-1].Size, res.Hotspots[i].Size, "cells ordered by count")
	}

	var mean orb.Point
	for _, a := range res.Agents {
		mean[0] += a.X / 80
		mean[1] += a.Y / 80
	}
	require.Len(t, res.Path, len(res.POIs)+1)
	assert.InDelta(t, mean[0], res.Path[0][0], 1e-9)
	assert.InDelta(t, mean[1], res.Path[0][1], 1e-9)
	// In-order routing keeps the density ordering.
	assert.Equal(t, res.POIs, res.Path.Waypoints())

	assert.GreaterOrEqual(t, res.Coverage, 0.0)
	assert.LessOrEqual(t, res.Coverage, float64(len(res.POIs)))
}

func TestRun_HotspotMode(t *testing.T) {
	quietLogs(t)
	res := runPlanner(t, testConfig(config.ModeHotspot), Inputs{Terrain: testRaster()})

	assert.Equal(t, config.ModeHotspot, res.Mode)
	require.Len(t, res.POIs, 4)
	for _, p := range res.POIs {
		assert.True(t, p[0] >= 0 && p[0] <= 200 && p[1] >= 0 && p[1] <= 150, "poi %v off map", p)
	}
	assertCompletePath(t, res, orb.Point{100, 75})
}

func TestRun_LaunchOverride(t *testing.T) {
	quietLogs(t)
	launch := orb.Point{5, 5}
	for _, mode := range []string{config.ModeGrid, config.ModeHotspot} {
		t.Run(mode, func(t *testing.T) {
			res := runPlanner(t, testConfig(mode), Inputs{Terrain: testRaster(), Launch: &launch})
			assertCompletePath(t, res, launch)
		})
	}
}

func TestRun_Reproducible(t *testing.T) {
	quietLogs(t)
	for _, mode := range []string{config.ModeGrid, config.ModeHotspot} {
		t.Run(mode, func(t *testing.T) {
			a := runPlanner(t, testConfig(mode), Inputs{Terrain: testRaster()})
			cfg := testConfig(mode)
			cfg.Workers = ptr(4)
			b := runPlanner(t, cfg, Inputs{Terrain: testRaster()})
			if diff := cmp.Diff(a.Path, b.Path); diff != "" {
				t.Errorf("path mismatch (-serial +parallel):\n%s", diff)
			}
			assert.Equal(t, a.Coverage, b.Coverage)
		})
	}
}

func TestRun_Timings(t *testing.T) {
	quietLogs(t)
	clock := timeutil.NewMockClock(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	clock.SetAutoStep(time.Second)

	p, err := NewPlanner(testConfig(config.ModeGrid))
	require.NoError(t, err)
	res, err := p.WithClock(clock).Run(context.Background(), Inputs{Terrain: testRaster()})
	require.NoError(t, err)

	want := Timings{
		Classify: time.Second,
		Simulate: time.Second,
		Density:  time.Second,
		Plan:     time.Second,
		Total:    5 * time.Second,
	}
	assert.Equal(t, want, res.Timings)
}

type stubClusterer struct {
	clusters []cluster.Cluster
}

func (s *stubClusterer) Cluster([]orb.Point) ([]cluster.Cluster, error) { return s.clusters, nil }
func (s *stubClusterer) GetParams() cluster.Params                        { return cluster.Params{} }
func (s *stubClusterer) SetParams(cluster.Params)                         {}

func TestRun_UsesInjectedClusterer(t *testing.T) {
	quietLogs(t)
	stub := &stubClusterer{clusters: []cluster.Cluster{
		{ID: 1, Centroid: orb.Point{20, 20}, Size: 9},
		{ID: 2, Centroid: orb.Point{180, 130}, Size: 4},
	}}
	cfg := testConfig(config.ModeHotspot)
	cfg.POITargetCount = ptr(2)

	p, err := NewPlanner(cfg)
	require.NoError(t, err)
	res, err := p.WithClusterer(stub).Run(context.Background(), Inputs{Terrain: testRaster()})
	require.NoError(t, err)

	assert.Equal(t, []Hotspot{
		{ID: 1, Centroid: orb.Point{20, 20}, Size: 9},
		{ID: 2, Centroid: orb.Point{180, 130}, Size: 4},
	}, res.Hotspots)
	// Exactly target centroids are kept as-is, then routed greedily from the centre.
	assert.ElementsMatch(t, []orb.Point{{20, 20}, {180, 130}}, res.POIs)
	assert.Equal(t, orb.Point{100, 75}, res.Path[0])
}

func TestRun_Errors(t *testing.T) {
	quietLogs(t)
	p, err := NewPlanner(testConfig(config.ModeGrid))
	require.NoError(t, err)

	_, err = p.Run(context.Background(), Inputs{})
	assert.ErrorIs(t, err, ErrNoTerrain)

	_, err = p.Run(context.Background(), Inputs{Terrain: &terrain.Raster{Width: 2, Height: 2, Channels: 3}})
	assert.ErrorIs(t, err, terrain.ErrMalformedRaster)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.Run(ctx, Inputs{Terrain: testRaster()})
	assert.True(t, errors.Is(err, context.Canceled), "got %v", err)

	bad := testConfig("spiral")
	_, err = NewPlanner(bad)
	assert.Error(t, err)
}

func TestCoverage(t *testing.T) {
	f := &density.Field{Rows: 2, Cols: 2, Width: 10, Height: 10, Values: []float64{0, 0.5, 1, 0.25}}
	assert.Equal(t, 0.0, Coverage(nil, []orb.Point{{1, 1}}))
	assert.Equal(t, 0.0, Coverage(f, nil))
	// (10,0) -> row 0 col 1; (0,10) -> row 1 col 0
	assert.Equal(t, 1.5, Coverage(f, []orb.Point{{10, 0}, {0, 10}}))
}

func TestResult_Mission(t *testing.T) {
	quietLogs(t)
	cfg := testConfig(config.ModeGrid)
	cfg.BBox = &[4]float64{10, 40, 12, 41.5}
	res := runPlanner(t, cfg, Inputs{Terrain: testRaster()})

	georef, err := Georef(cfg, res.Width, res.Height)
	require.NoError(t, err)
	require.NotNil(t, georef)

	m, err := res.Mission(cfg, georef, "sarplan test")
	require.NoError(t, err)
	assert.Equal(t, config.ModeGrid, m.Mode)
	assert.Equal(t, uint64(7), m.Seed)
	assert.Equal(t, 80, m.AgentCount)
	assert.Equal(t, 20, m.Ticks)
	assert.Contains(t, string(m.ParamsJSON), `"planner_mode":"grid"`)
	require.Len(t, m.Waypoints, len(res.Path))
	for _, w := range m.Waypoints {
		require.NotNil(t, w.Lon)
		assert.True(t, *w.Lon >= 10 && *w.Lon <= 12)
		assert.True(t, *w.Lat >= 40 && *w.Lat <= 41.5)
	}
	assert.Len(t, m.Hotspots, len(res.Hotspots))

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "missions.db"))
	require.NoError(t, err)
	defer db.Close()
	store := sqlite.NewMissionStore(db.DB)
	require.NoError(t, store.Insert(m))
	got, err := store.Get(m.MissionID)
	require.NoError(t, err)
	assert.Equal(t, m.PathLength, got.PathLength)
	assert.Len(t, got.Waypoints, len(m.Waypoints))
}

func TestGeoref_NoBBox(t *testing.T) {
	g, err := Georef(config.EmptyPlannerConfig(), 10, 10)
	require.NoError(t, err)
	assert.Nil(t, g)
}

func TestResult_WriteArtifacts(t *testing.T) {
	quietLogs(t)
	res := runPlanner(t, testConfig(config.ModeHotspot), Inputs{Terrain: testRaster()})

	mfs := fsutil.NewMemoryFileSystem()
	written, err := res.WriteArtifacts(mfs, "out/run1", "test", nil)
	require.NoError(t, err)
	require.Len(t, written, 4)
	assert.Equal(t, []string{
		"out/run1/agents.csv",
		"out/run1/flightplan.geojson",
		"out/run1/mission.html",
		"out/run1/mission.png",
	}, mfs.Files())

	csv, err := mfs.ReadFile(filepath.Join("out/run1", AgentsFile))
	require.NoError(t, err)
	assert.Equal(t, 81, bytes.Count(csv, []byte("\n")), "header plus one row per agent")
}

func TestResult_WriteArtifactsToDisk(t *testing.T) {
	quietLogs(t)
	res := runPlanner(t, testConfig(config.ModeGrid), Inputs{Terrain: testRaster()})

	dir := filepath.Join(t.TempDir(), "out")
	_, err := res.WriteArtifacts(fsutil.OSFileSystem{}, dir, "test", nil)
	require.NoError(t, err)
	for _, name := range []string{AgentsFile, FlightPlanFile, PlotFile, ChartFile} {
		info, err := os.Stat(filepath.Join(dir, name))
		require.NoError(t, err, name)
		assert.Positive(t, info.Size(), name)
	}
}

func TestRun_SingleAgent(t *testing.T) {
	quietLogs(t)
	for _, mode := range []string{config.ModeGrid, config.ModeHotspot} {
		t.Run(mode, func(t *testing.T) {
			cfg := testConfig(mode)
			cfg.AgentCount = ptr(1)
			res := runPlanner(t, cfg, Inputs{Terrain: testRaster()})

			require.Len(t, res.Positions, 1)
			assert.Nil(t, res.Density, "one position cannot support a density estimate")
			assert.Equal(t, 0.0, res.Coverage)
			require.NotEmpty(t, res.POIs)

			start := res.Positions[0]
			if mode == config.ModeHotspot {
				start = orb.Point{100, 75}
			}
			assertCompletePath(t, res, start)

			_, err := res.WriteArtifacts(fsutil.NewMemoryFileSystem(), "out", "single", nil)
			require.NoError(t, err, "artifacts render without a density field")
		})
	}
}

func TestRunPositions(t *testing.T) {
	quietLogs(t)
	var positions []orb.Point
	for i := 0; i < 30; i++ {
		positions = append(positions, orb.Point{150 + float64(i%5), 40 + float64(i/5)})
	}
	positions = append(positions, orb.Point{20, 130})

	for _, mode := range []string{config.ModeGrid, config.ModeHotspot} {
		t.Run(mode, func(t *testing.T) {
			p, err := NewPlanner(testConfig(mode))
			require.NoError(t, err)
			res, err := p.RunPositions(context.Background(), positions, 200, 150, nil)
			require.NoError(t, err)

			assert.Nil(t, res.Terrain)
			assert.Empty(t, res.Agents)
			assert.Empty(t, res.Trace)
			assert.Equal(t, positions, res.Positions)
			require.NotNil(t, res.Density)
			require.NotEmpty(t, res.Hotspots)
			// The busy block dominates either way.
			top := res.Hotspots[0].Centroid
			assert.True(t, top[0] > 100 && top[1] < 75, "top hotspot %v", top)

			m, err := res.Mission(p.Config(), nil, "test")
			require.NoError(t, err)
			assert.Equal(t, len(positions), m.AgentCount)
			assert.Zero(t, m.Ticks)
		})
	}
}

func TestRunPositions_Errors(t *testing.T) {
	quietLogs(t)
	p, err := NewPlanner(testConfig(config.ModeGrid))
	require.NoError(t, err)

	_, err = p.RunPositions(context.Background(), nil, 100, 100, nil)
	assert.ErrorIs(t, err, ErrNoPositions)

	_, err = p.RunPositions(context.Background(), []orb.Point{{1, 1}}, 0, 100, nil)
	assert.ErrorIs(t, err, ErrInvalidExtent)
}

func TestResult_Trails(t *testing.T) {
	quietLogs(t)
	res := runPlanner(t, testConfig(config.ModeGrid), Inputs{Terrain: testRaster()})
	// Ticks 0, 10 and 20 with the default trace interval.
	require.Len(t, res.Trace, 3)

	trails := res.Trails(8)
	require.Len(t, trails, 8)
	for k, trail := range trails {
		i := k * 10
		require.Len(t, trail, 3, "final tick is already in the trace")
		assert.Equal(t, res.Trace[0].Positions[i], trail[0])
		assert.Equal(t, orb.Point{res.Agents[i].X, res.Agents[i].Y}, trail[len(trail)-1])
	}

	assert.Len(t, res.Trails(500), 80, "capped at population size")
	assert.Nil(t, res.Trails(0))
	assert.Len(t, res.Scene("t").Trails, maxTrails)

	cfg := testConfig(config.ModeGrid)
	cfg.TraceEvery = ptr(0)
	untraced := runPlanner(t, cfg, Inputs{Terrain: testRaster()})
	assert.Nil(t, untraced.Trails(8))
}
