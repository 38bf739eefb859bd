// Package export reads and writes the plain-text artefacts exchanged with
// other tools: agent position CSVs, elevation grids and GeoJSON flight
// plans.
package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/paulmach/orb"

	"github.com/banshee-data/sarplan/internal/monitoring"
	"github.com/banshee-data/sarplan/internal/sim"
)

var (
	ErrMissingColumn = errors.New("export: missing column")
	ErrRaggedGrid    = errors.New("export: grid rows differ in length")
)

// AgentHeader is the column layout written by WriteAgents.
var AgentHeader = []string{"id", "x", "y", "age", "speed"}

// WriteAgents writes one row per agent.
func WriteAgents(w io.Writer, agents []sim.AgentState) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(AgentHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, a := range agents {
		row := []string{
			strconv.Itoa(a.ID),
			strconv.FormatFloat(a.X, 'f', 6, 64),
			strconv.FormatFloat(a.Y, 'f', 6, 64),
			strconv.FormatFloat(a.Age, 'f', 6, 64),
			strconv.FormatFloat(a.Speed, 'f', 6, 64),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write agent %d: %w", a.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadPositions reads x and y columns (located by header name, any order)
// from a CSV. Rows whose x or y do not parse are skipped and logged.
func ReadPositions(r io.Reader) ([]orb.Point, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	xi, yi := -1, -1
	for i, h := range header {
		switch strings.TrimSpace(strings.ToLower(h)) {
		case "x":
			xi = i
		case "y":
			yi = i
		}
	}
	if xi < 0 || yi < 0 {
		return nil, fmt.Errorf("%w: need x and y, got %v", ErrMissingColumn, header)
	}

	var pts []orb.Point
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if xi >= len(rec) || yi >= len(rec) {
			monitoring.Logf("export: skipping line %d: too few fields", line)
			continue
		}
		x, errX := strconv.ParseFloat(strings.TrimSpace(rec[xi]), 64)
		y, errY := strconv.ParseFloat(strings.TrimSpace(rec[yi]), 64)
		if err := errors.Join(errX, errY); err != nil {
			monitoring.Logf("export: skipping line %d: %v", line, err)
			continue
		}
		pts = append(pts, orb.Point{x, y})
	}
	return pts, nil
}

// ReadGrid reads a headerless CSV of numbers, one raster row per line,
// and returns it row-major.
func ReadGrid(r io.Reader) (width, height int, values []float64, err error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, 0, nil, fmt.Errorf("row %d: %w", height+1, err)
		}
		if height == 0 {
			width = len(rec)
		} else if len(rec) != width {
			return 0, 0, nil, fmt.Errorf("%w: row %d has %d values, want %d", ErrRaggedGrid, height+1, len(rec), width)
		}
		for col, field := range rec {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return 0, 0, nil, fmt.Errorf("row %d col %d: %w", height+1, col+1, err)
			}
			values = append(values, v)
		}
		height++
	}
	return width, height, values, nil
}

// WriteGrid writes a row-major grid as headerless CSV.
func WriteGrid(w io.Writer, width int, values []float64) error {
	if width <= 0 || len(values)%width != 0 {
		return fmt.Errorf("%w: %d values do not fill rows of %d", ErrRaggedGrid, len(values), width)
	}
	cw := csv.NewWriter(w)
	row := make([]string, width)
	for start := 0; start < len(values); start += width {
		for i, v := range values[start : start+width] {
			row[i] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
