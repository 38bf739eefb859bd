package export

import (
	"fmt"
	"io"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/banshee-data/sarplan/internal/geo"
	"github.com/banshee-data/sarplan/internal/route"
)

// Feature kinds written to the "kind" property.
const (
	KindFlightPath = "flight_path"
	KindLaunch     = "launch"
	KindWaypoint   = "waypoint"
	KindHotspot    = "hotspot"
)

// Hotspot is the subset of a cluster written to GeoJSON.
type Hotspot struct {
	Centroid orb.Point
	Size     int
}

// FlightPlan builds a FeatureCollection holding the path as a LineString,
// the launch point, one Point per waypoint carrying its visit order, and
// one Point per hotspot. With a nil georef coordinates stay in pixels.
func FlightPlan(path route.Path, hotspots []Hotspot, georef *geo.Georef) *geojson.FeatureCollection {
	project := func(p orb.Point) orb.Point { return p }
	if georef != nil {
		project = georef.ToLonLat
	}

	fc := geojson.NewFeatureCollection()
	if len(path) == 0 {
		return fc
	}

	ls := make(orb.LineString, len(path))
	for i, p := range path {
		ls[i] = project(p)
	}
	line := geojson.NewFeature(ls)
	line.Properties["kind"] = KindFlightPath
	line.Properties["length_px"] = path.Length()
	line.Properties["waypoints"] = len(path) - 1
	fc.Append(line)

	launch := geojson.NewFeature(ls[0])
	launch.Properties["kind"] = KindLaunch
	fc.Append(launch)

	for i := 1; i < len(ls); i++ {
		f := geojson.NewFeature(ls[i])
		f.Properties["kind"] = KindWaypoint
		f.Properties["order"] = i
		fc.Append(f)
	}

	for i, h := range hotspots {
		f := geojson.NewFeature(project(h.Centroid))
		f.Properties["kind"] = KindHotspot
		f.Properties["id"] = i + 1
		f.Properties["size"] = h.Size
		fc.Append(f)
	}
	return fc
}

// WriteFlightPlan marshals FlightPlan output to w.
func WriteFlightPlan(w io.Writer, path route.Path, hotspots []Hotspot, georef *geo.Georef) error {
	data, err := FlightPlan(path, hotspots, georef).MarshalJSON()
	if err != nil {
		return fmt.Errorf("marshal flight plan: %w", err)
	}
	_, err = w.Write(data)
	return err
}
