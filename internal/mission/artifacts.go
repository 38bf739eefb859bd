package mission

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"

	"github.com/paulmach/orb"

	"github.com/banshee-data/sarplan/internal/config"
	"github.com/banshee-data/sarplan/internal/export"
	"github.com/banshee-data/sarplan/internal/fsutil"
	"github.com/banshee-data/sarplan/internal/geo"
	"github.com/banshee-data/sarplan/internal/monitoring"
	"github.com/banshee-data/sarplan/internal/report"
	"github.com/banshee-data/sarplan/internal/storage/sqlite"
)

// maxTrails bounds how many agent trails a scene draws.
const maxTrails = 25

// Output file names written by WriteArtifacts.
const (
	AgentsFile     = "agents.csv"
	FlightPlanFile = "flightplan.geojson"
	PlotFile       = "mission.png"
	ChartFile      = "mission.html"
)

// Georef returns the georeference for a width×height map when cfg carries
// a bbox, or nil.
func Georef(cfg *config.PlannerConfig, width, height float64) (*geo.Georef, error) {
	west, south, east, north, ok := cfg.GetBBox()
	if !ok {
		return nil, nil
	}
	g, err := geo.New(width, height, west, south, east, north)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// ExportHotspots converts hotspots for GeoJSON export.
func (r *Result) ExportHotspots() []export.Hotspot {
	out := make([]export.Hotspot, len(r.Hotspots))
	for i, h := range r.Hotspots {
		out[i] = export.Hotspot{Centroid: h.Centroid, Size: h.Size}
	}
	return out
}

// Trails returns movement trails from the recorded trace for at most n
// agents spread evenly over the population. Each trail ends at the agent's
// final position.
func (r *Result) Trails(n int) [][]orb.Point {
	if len(r.Trace) == 0 || len(r.Agents) == 0 || n <= 0 {
		return nil
	}
	count := min(n, len(r.Agents))
	stride := len(r.Agents) / count
	last := r.Trace[len(r.Trace)-1]

	out := make([][]orb.Point, 0, count)
	for k := 0; k < count; k++ {
		i := k * stride
		trail := make([]orb.Point, 0, len(r.Trace)+1)
		for _, f := range r.Trace {
			trail = append(trail, f.Positions[i])
		}
		if final := (orb.Point{r.Agents[i].X, r.Agents[i].Y}); final != last.Positions[i] {
			trail = append(trail, final)
		}
		out = append(out, trail)
	}
	return out
}

// Scene builds the rendering input for the result.
func (r *Result) Scene(title string) *report.Scene {
	s := &report.Scene{
		Title:     title,
		Width:     r.Width,
		Height:    r.Height,
		Density:   r.Density,
		Trails:    r.Trails(maxTrails),
		Agents:    r.Agents,
		Positions: r.Positions,
		POIs:      r.POIs,
		Path:      r.Path,
	}
	for _, h := range r.Hotspots {
		s.Hotspots = append(s.Hotspots, h.Centroid)
	}
	return s
}

// Mission converts the result into a storable record. Waypoints carry
// lon/lat when georef is set.
func (r *Result) Mission(cfg *config.PlannerConfig, georef *geo.Georef, buildVersion string) (*sqlite.Mission, error) {
	params, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshal params: %w", err)
	}
	m := &sqlite.Mission{
		Mode:         r.Mode,
		Seed:         r.Seed,
		AgentCount:   len(r.Positions),
		Ticks:        r.Ticks,
		MapWidth:     r.Width,
		MapHeight:    r.Height,
		PathLength:   r.Path.Length(),
		Coverage:     r.Coverage,
		ParamsJSON:   params,
		BuildVersion: buildVersion,
	}
	for i, p := range r.Path {
		w := sqlite.Waypoint{Seq: i, X: p[0], Y: p[1]}
		if georef != nil {
			ll := georef.ToLonLat(p)
			lon, lat := ll[0], ll[1]
			w.Lon, w.Lat = &lon, &lat
		}
		m.Waypoints = append(m.Waypoints, w)
	}
	for _, h := range r.Hotspots {
		m.Hotspots = append(m.Hotspots, sqlite.Hotspot{
			HotspotID: h.ID, X: h.Centroid[0], Y: h.Centroid[1], Size: h.Size,
		})
	}
	return m, nil
}

// WriteArtifacts writes the agent CSV, GeoJSON flight plan, PNG plot and
// HTML chart into dir on fsys, creating dir if needed. It returns the
// written paths.
func (r *Result) WriteArtifacts(fsys fsutil.FileSystem, dir, title string, georef *geo.Georef) ([]string, error) {
	if err := fsys.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}

	scene := r.Scene(title)
	steps := []struct {
		name  string
		write func(w io.Writer) error
	}{
		{AgentsFile, func(w io.Writer) error { return export.WriteAgents(w, r.Agents) }},
		{FlightPlanFile, func(w io.Writer) error {
			return export.WriteFlightPlan(w, r.Path, r.ExportHotspots(), georef)
		}},
		{PlotFile, func(w io.Writer) error { return report.WritePNG(w, scene) }},
		{ChartFile, func(w io.Writer) error { return report.WriteHTML(w, scene) }},
	}

	var written []string
	for _, s := range steps {
		path := filepath.Join(dir, s.name)
		if err := writeFile(fsys, path, s.write); err != nil {
			return written, fmt.Errorf("write %s: %w", s.name, err)
		}
		written = append(written, path)
	}
	monitoring.Logf("mission: wrote %d files to %s", len(written), dir)
	return written, nil
}

func writeFile(fsys fsutil.FileSystem, path string, write func(w io.Writer) error) error {
	f, err := fsys.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
