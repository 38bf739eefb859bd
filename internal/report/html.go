package report

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/paulmach/orb"
)

// HTMLChart builds an echarts scatter of agents (or input positions),
// hotspots, POIs and the ordered flight path waypoints. Trails are only
// drawn in the PNG.
func (s *Scene) HTMLChart() (*charts.Scatter, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}

	subtitle := fmt.Sprintf("agents=%d hotspots=%d pois=%d waypoints=%d",
		max(len(s.Agents), len(s.Positions)), len(s.Hotspots), len(s.POIs), max(len(s.Path)-1, 0))

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: s.Title, Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{Title: s.Title, Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: 0, Max: s.Width, Name: "x (px)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: 0, Max: s.Height, Name: "y (px, north up)", NameLocation: "middle", NameGap: 30}),
	)

	if len(s.Agents) == 0 && len(s.Positions) > 0 {
		scatter.AddSeries("positions", scatterData(s.flipped(s.Positions), "", nil),
			charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 3}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: hexColor(positionColor)}),
		)
	}

	colors := generateColors(len(ageBands))
	for band, pts := range s.agentsByBand() {
		if len(pts) == 0 {
			continue
		}
		scatter.AddSeries(ageBands[band], scatterData(pts, "", nil),
			charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 3}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: hexColor(colors[band])}),
		)
	}

	if len(s.Hotspots) > 0 {
		scatter.AddSeries("hotspots", scatterData(s.flipped(s.Hotspots), "diamond", func(i int) string {
			return fmt.Sprintf("hotspot %d", i+1)
		}),
			charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 14}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: hexColor(hotspotColor)}),
		)
	}

	if len(s.POIs) > 0 {
		scatter.AddSeries("POIs", scatterData(s.flipped(s.POIs), "triangle", func(i int) string {
			return fmt.Sprintf("poi %d", i+1)
		}),
			charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 12}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: hexColor(poiColor)}),
		)
	}

	if len(s.Path) > 0 {
		scatter.AddSeries("flight path", scatterData(s.flipped(s.Path), "rect", func(i int) string {
			if i == 0 {
				return "launch"
			}
			return fmt.Sprintf("waypoint %d", i)
		}),
			charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 8}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: hexColor(pathColor)}),
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "right", Formatter: "{b}"}),
		)
	}

	return scatter, nil
}

// WriteHTML renders the scene as a standalone HTML page to w.
func WriteHTML(w io.Writer, s *Scene) error {
	scatter, err := s.HTMLChart()
	if err != nil {
		return err
	}
	if err := scatter.Render(w); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	return nil
}

func scatterData(pts []orb.Point, symbol string, name func(i int) string) []opts.ScatterData {
	data := make([]opts.ScatterData, len(pts))
	for i, p := range pts {
		data[i] = opts.ScatterData{Value: []interface{}{p[0], p[1]}, Symbol: symbol}
		if name != nil {
			data[i].Name = name(i)
		}
	}
	return data
}
