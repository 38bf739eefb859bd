package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestEmptyPlannerConfig_Defaults(t *testing.T) {
	cfg := EmptyPlannerConfig()

	if got := cfg.GetAgentCount(); got != 250 {
		t.Errorf("GetAgentCount() = %d, want 250", got)
	}
	if got := cfg.GetSensingRadius(); got != 3 {
		t.Errorf("GetSensingRadius() = %d, want 3", got)
	}
	if got := cfg.GetElevationPreference(); got != 0.65 {
		t.Errorf("GetElevationPreference() = %f, want 0.65", got)
	}
	if got := cfg.GetPlannerMode(); got != ModeGrid {
		t.Errorf("GetPlannerMode() = %q, want %q", got, ModeGrid)
	}
	if got := cfg.GetRunTimeout(); got != 5*time.Minute {
		t.Errorf("GetRunTimeout() = %v, want 5m", got)
	}
	if _, _, _, _, ok := cfg.GetBBox(); ok {
		t.Error("GetBBox() reported a bbox on an empty config")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("empty config should validate: %v", err)
	}
}

func TestDefaultPlannerConfig_MatchesDefaultsFile(t *testing.T) {
	want := DefaultPlannerConfig()
	got := MustLoadDefaultConfig()

	checks := []struct {
		name      string
		got, want interface{}
	}{
		{"agent_count", got.GetAgentCount(), want.GetAgentCount()},
		{"sensing_radius", got.GetSensingRadius(), want.GetSensingRadius()},
		{"elevation_preference", got.GetElevationPreference(), want.GetElevationPreference()},
		{"speed_min", got.GetSpeedMin(), want.GetSpeedMin()},
		{"speed_max", got.GetSpeedMax(), want.GetSpeedMax()},
		{"age_min", got.GetAgeMin(), want.GetAgeMin()},
		{"age_max", got.GetAgeMax(), want.GetAgeMax()},
		{"age_speed_factor", got.GetAgeSpeedFactor(), want.GetAgeSpeedFactor()},
		{"ticks", got.GetTicks(), want.GetTicks()},
		{"seed", got.GetSeed(), want.GetSeed()},
		{"workers", got.GetWorkers(), want.GetWorkers()},
		{"trace_every", got.GetTraceEvery(), want.GetTraceEvery()},
		{"density_resolution", got.GetDensityResolution(), want.GetDensityResolution()},
		{"dbscan_eps", got.GetDBSCANEps(), want.GetDBSCANEps()},
		{"dbscan_min_samples", got.GetDBSCANMinSamples(), want.GetDBSCANMinSamples()},
		{"poi_target_count", got.GetPOITargetCount(), want.GetPOITargetCount()},
		{"poi_min_distance", got.GetPOIMinDistance(), want.GetPOIMinDistance()},
		{"poi_margin", got.GetPOIMargin(), want.GetPOIMargin()},
		{"poi_max_offset", got.GetPOIMaxOffset(), want.GetPOIMaxOffset()},
		{"poi_max_attempts", got.GetPOIMaxAttempts(), want.GetPOIMaxAttempts()},
		{"poi_relax_after", got.GetPOIRelaxAfter(), want.GetPOIRelaxAfter()},
		{"grid_rows", got.GetGridRows(), want.GetGridRows()},
		{"grid_cols", got.GetGridCols(), want.GetGridCols()},
		{"grid_top_k", got.GetGridTopK(), want.GetGridTopK()},
		{"planner_mode", got.GetPlannerMode(), want.GetPlannerMode()},
		{"run_timeout", got.GetRunTimeout(), want.GetRunTimeout()},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s: defaults file has %v, code default is %v", c.name, c.got, c.want)
		}
	}
}

func TestLoadPlannerConfig_Partial(t *testing.T) {
	path := writeConfig(t, "partial.json", `{"agent_count": 40, "planner_mode": "hotspot", "bbox": [10.0, 45.0, 10.5, 45.3]}`)
	cfg, err := LoadPlannerConfig(path)
	if err != nil {
		t.Fatalf("LoadPlannerConfig: %v", err)
	}
	if got := cfg.GetAgentCount(); got != 40 {
		t.Errorf("GetAgentCount() = %d, want 40", got)
	}
	if got := cfg.GetPlannerMode(); got != ModeHotspot {
		t.Errorf("GetPlannerMode() = %q, want hotspot", got)
	}
	if got := cfg.GetTicks(); got != 150 {
		t.Errorf("omitted ticks should default to 150, got %d", got)
	}
	west, south, east, north, ok := cfg.GetBBox()
	if !ok || west != 10 || south != 45 || east != 10.5 || north != 45.3 {
		t.Errorf("GetBBox() = %v %v %v %v %v", west, south, east, north, ok)
	}
}

func TestLoadPlannerConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		body    string
		wantErr string
	}{
		{"wrong extension", "cfg.yaml", `{}`, ".json extension"},
		{"bad json", "bad.json", `{"agent_count":`, "failed to parse"},
		{"zero agents", "z.json", `{"agent_count": 0}`, "agent_count"},
		{"inverted speed", "s.json", `{"speed_min": 4, "speed_max": 2}`, "speed range"},
		{"age too old", "a.json", `{"age_max": 1.2}`, "age range"},
		{"bad resolution", "r.json", `{"density_resolution": 1}`, "density_resolution"},
		{"bad eps", "e.json", `{"dbscan_eps": 0}`, "dbscan_eps"},
		{"bad relax", "x.json", `{"poi_relax_after": 2}`, "poi_relax_after"},
		{"bad grid", "g.json", `{"grid_top_k": 0}`, "grid_rows"},
		{"bad mode", "m.json", `{"planner_mode": "tsp"}`, "planner_mode"},
		{"bad timeout", "t.json", `{"run_timeout": "soon"}`, "run_timeout"},
		{"bad workers", "w.json", `{"workers": 0}`, "workers"},
		{"inverted bbox", "b.json", `{"bbox": [11, 45, 10, 46]}`, "bbox"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.file, tt.body)
			_, err := LoadPlannerConfig(path)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadPlannerConfig_MissingFile(t *testing.T) {
	_, err := LoadPlannerConfig(filepath.Join(t.TempDir(), "missing.json"))
	if err == nil || !strings.Contains(err.Error(), "failed to stat") {
		t.Errorf("expected stat error, got %v", err)
	}
}

func TestLoadPlannerConfig_TooLarge(t *testing.T) {
	body := `{"agent_count": 10, "pad": "` + strings.Repeat("x", 1024*1024) + `"}`
	_, err := LoadPlannerConfig(writeConfig(t, "big.json", body))
	if err == nil || !strings.Contains(err.Error(), "too large") {
		t.Errorf("expected size error, got %v", err)
	}
}

func TestGetRunTimeout_ZeroDisables(t *testing.T) {
	cfg := &PlannerConfig{RunTimeout: ptrString("0s")}
	if got := cfg.GetRunTimeout(); got != 0 {
		t.Errorf("GetRunTimeout() = %v, want 0", got)
	}
}
