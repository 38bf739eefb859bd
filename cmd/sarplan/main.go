package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	_ "image/png"
	"log"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/paulmach/orb"

	"github.com/banshee-data/sarplan/internal/config"
	"github.com/banshee-data/sarplan/internal/elevation"
	"github.com/banshee-data/sarplan/internal/export"
	"github.com/banshee-data/sarplan/internal/fsutil"
	"github.com/banshee-data/sarplan/internal/geo"
	"github.com/banshee-data/sarplan/internal/mission"
	"github.com/banshee-data/sarplan/internal/monitoring"
	"github.com/banshee-data/sarplan/internal/storage/sqlite"
	"github.com/banshee-data/sarplan/internal/terrain"
	"github.com/banshee-data/sarplan/internal/version"
)

var (
	configPath    = flag.String("config", "", "Planner config JSON (defaults built in when empty)")
	terrainPath   = flag.String("terrain", "", "Segmented terrain PNG (required unless -positions or -list)")
	elevationPath = flag.String("elevation", "", "Elevation grid CSV, one row per line (flat when empty)")
	positionsPath = flag.String("positions", "", "CSV with x,y columns to plan from instead of simulating")
	mapSize       = flag.String("size", "2000x2000", "Map extent WxH in pixels for -positions")
	seed          = flag.Uint64("seed", 0, "Override the config seed (config value when not set)")
	mode          = flag.String("mode", "", "Override planner mode: 'grid' or 'hotspot'")
	launch        = flag.String("launch", "", "Launch point as x,y in pixels (mode default when empty)")
	outDir        = flag.String("out", "out", "Directory for CSV, GeoJSON, PNG and HTML outputs")
	dbPath        = flag.String("db", "", "SQLite mission database (no storage when empty)")
	listMissions  = flag.Int("list", 0, "List the N most recent stored missions and exit (requires -db)")
	debug         = flag.Bool("debug", false, "Enable debug logging")
	showVersion   = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}
	monitoring.SetDebug(*debug)

	if *listMissions > 0 {
		if *dbPath == "" {
			log.Fatal("-list requires -db")
		}
		if err := printMissions(*dbPath, *listMissions); err != nil {
			log.Fatalf("failed to list missions: %v", err)
		}
		return
	}

	switch {
	case *terrainPath == "" && *positionsPath == "":
		log.Fatal("Terrain image (-terrain) or positions CSV (-positions) is required")
	case *terrainPath != "" && *positionsPath != "":
		log.Fatal("-terrain and -positions are mutually exclusive")
	}

	cfg := config.DefaultPlannerConfig()
	if *configPath != "" {
		var err error
		if cfg, err = config.LoadPlannerConfig(*configPath); err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	}
	if isFlagSet(flag.CommandLine, "seed") {
		cfg.Seed = seed
	}
	if *mode != "" {
		cfg.PlannerMode = mode
	}

	planner, err := mission.NewPlanner(cfg)
	if err != nil {
		log.Fatalf("failed to create planner: %v", err)
	}

	var launchAt *orb.Point
	if *launch != "" {
		p, err := parseLaunch(*launch)
		if err != nil {
			log.Fatalf("invalid -launch: %v", err)
		}
		launchAt = &p
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fsys := fsutil.OSFileSystem{}
	var res *mission.Result
	if *positionsPath != "" {
		width, height, err := parseSize(*mapSize)
		if err != nil {
			log.Fatalf("invalid -size: %v", err)
		}
		positions, err := loadPositions(fsys, *positionsPath)
		if err != nil {
			log.Fatalf("failed to load positions: %v", err)
		}
		if res, err = planner.RunPositions(ctx, positions, width, height, launchAt); err != nil {
			log.Fatalf("planning failed: %v", err)
		}
	} else {
		in := mission.Inputs{Launch: launchAt}
		if in.Terrain, err = loadTerrain(fsys, *terrainPath); err != nil {
			log.Fatalf("failed to load terrain: %v", err)
		}
		if *elevationPath != "" {
			if in.Elevation, err = loadElevation(fsys, *elevationPath); err != nil {
				log.Fatalf("failed to load elevation: %v", err)
			}
		}
		if res, err = planner.Run(ctx, in); err != nil {
			log.Fatalf("planning failed: %v", err)
		}
	}

	georef, err := mission.Georef(cfg, res.Width, res.Height)
	if err != nil {
		log.Fatalf("invalid georeference: %v", err)
	}

	title := fmt.Sprintf("sarplan %s mission (seed %d)", res.Mode, res.Seed)
	written, err := res.WriteArtifacts(fsys, *outDir, title, georef)
	if err != nil {
		log.Fatalf("failed to write outputs: %v", err)
	}
	for _, path := range written {
		log.Printf("wrote %s", path)
	}

	if *dbPath != "" {
		id, err := storeMission(*dbPath, res, cfg, georef)
		if err != nil {
			log.Fatalf("failed to store mission: %v", err)
		}
		log.Printf("stored mission %s", id)
	}

	log.Printf("planned %d waypoints, path length %.1f px, coverage %.3f (classify %v, simulate %v, density %v, plan %v)",
		len(res.POIs), res.Path.Length(), res.Coverage,
		res.Timings.Classify, res.Timings.Simulate, res.Timings.Density, res.Timings.Plan)
}

func loadTerrain(fsys fsutil.FileSystem, path string) (*terrain.Raster, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return terrain.FromImage(img), nil
}

func loadElevation(fsys fsutil.FileSystem, path string) (*elevation.Field, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	w, h, values, err := export.ReadGrid(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return elevation.New(w, h, values)
}

func loadPositions(fsys fsutil.FileSystem, path string) ([]orb.Point, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	positions, err := export.ReadPositions(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return positions, nil
}

// isFlagSet reports whether name was given on the command line, so zero
// values can still override the config.
func isFlagSet(fs *flag.FlagSet, name string) bool {
	set := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

// parseSize parses "WxH" with both sides positive.
func parseSize(s string) (width, height float64, err error) {
	w, h, ok := strings.Cut(strings.ToLower(s), "x")
	if !ok {
		return 0, 0, fmt.Errorf("expected WxH, got %q", s)
	}
	if width, err = strconv.ParseFloat(strings.TrimSpace(w), 64); err != nil {
		return 0, 0, fmt.Errorf("invalid width '%s': %w", w, err)
	}
	if height, err = strconv.ParseFloat(strings.TrimSpace(h), 64); err != nil {
		return 0, 0, fmt.Errorf("invalid height '%s': %w", h, err)
	}
	if !(width > 0) || !(height > 0) {
		return 0, 0, fmt.Errorf("size must be positive, got %q", s)
	}
	return width, height, nil
}

// parseLaunch parses "x,y".
func parseLaunch(s string) (orb.Point, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return orb.Point{}, fmt.Errorf("expected x,y, got %q", s)
	}
	var p orb.Point
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return orb.Point{}, fmt.Errorf("invalid coordinate '%s': %w", part, err)
		}
		p[i] = v
	}
	return p, nil
}

func storeMission(path string, res *mission.Result, cfg *config.PlannerConfig, georef *geo.Georef) (string, error) {
	db, err := sqlite.Open(path)
	if err != nil {
		return "", err
	}
	defer db.Close()

	m, err := res.Mission(cfg, georef, version.String())
	if err != nil {
		return "", err
	}
	if err := sqlite.NewMissionStore(db.DB).Insert(m); err != nil {
		return "", err
	}
	return m.MissionID, nil
}

func printMissions(path string, limit int) error {
	db, err := sqlite.Open(path)
	if err != nil {
		return err
	}
	defer db.Close()

	missions, err := sqlite.NewMissionStore(db.DB).List(limit)
	if err != nil {
		return err
	}
	for _, m := range missions {
		fmt.Printf("%s  %-7s seed=%-6d agents=%-5d length=%8.1f coverage=%.3f\n",
			m.MissionID, m.Mode, m.Seed, m.AgentCount, m.PathLength, m.Coverage)
	}
	return nil
}
