package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/banshee-data/sarplan/internal/timeutil"
)

var ErrMissionNotFound = errors.New("mission not found")

// Mission is one persisted planning run.
type Mission struct {
	MissionID    string          `json:"mission_id"`
	CreatedAt    int64           `json:"created_at"` // unix nanoseconds
	Mode         string          `json:"mode"`
	Seed         uint64          `json:"seed"`
	AgentCount   int             `json:"agent_count"`
	Ticks        int             `json:"ticks"`
	MapWidth     float64         `json:"map_width"`
	MapHeight    float64         `json:"map_height"`
	PathLength   float64         `json:"path_length"`
	Coverage     float64         `json:"coverage"`
	ParamsJSON   json.RawMessage `json:"params_json,omitempty"`
	BuildVersion string          `json:"build_version,omitempty"`

	Waypoints []Waypoint `json:"waypoints,omitempty"`
	Hotspots  []Hotspot  `json:"hotspots,omitempty"`
}

// Waypoint is one point of the stored flight path. Seq 0 is the launch
// point. Lon and Lat are nil when the map was not georeferenced.
type Waypoint struct {
	Seq int      `json:"seq"`
	X   float64  `json:"x"`
	Y   float64  `json:"y"`
	Lon *float64 `json:"lon,omitempty"`
	Lat *float64 `json:"lat,omitempty"`
}

// Hotspot is a stored cluster centroid.
type Hotspot struct {
	HotspotID int     `json:"hotspot_id"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Size      int     `json:"size"`
}

// MissionStore provides persistence for missions.
type MissionStore struct {
	db    *sql.DB
	clock timeutil.Clock
}

// NewMissionStore creates a MissionStore using the wall clock.
func NewMissionStore(db *sql.DB) *MissionStore {
	return &MissionStore{db: db, clock: timeutil.RealClock{}}
}

// WithClock replaces the clock used for CreatedAt stamps.
func (s *MissionStore) WithClock(c timeutil.Clock) *MissionStore {
	s.clock = c
	return s
}

// Insert persists m with its waypoints and hotspots in one transaction.
// If MissionID is empty, a UUID is generated; if CreatedAt is zero, it is
// stamped from the store clock.
func (s *MissionStore) Insert(m *Mission) error {
	if m.MissionID == "" {
		m.MissionID = uuid.New().String()
	}
	if m.CreatedAt == 0 {
		m.CreatedAt = s.clock.Now().UnixNano()
	}

	var params interface{}
	if len(m.ParamsJSON) > 0 {
		params = string(m.ParamsJSON)
	}

	return retryOnBusy(func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("begin: %w", err)
		}
		defer tx.Rollback()

		if _, err := tx.Exec(`
			INSERT INTO missions (
				mission_id, created_at, mode, seed, agent_count, ticks,
				map_width, map_height, path_length, coverage, params_json, build_version
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			m.MissionID, m.CreatedAt, m.Mode, int64(m.Seed), m.AgentCount, m.Ticks,
			m.MapWidth, m.MapHeight, m.PathLength, m.Coverage, params, m.BuildVersion,
		); err != nil {
			return fmt.Errorf("insert mission: %w", err)
		}

		for _, w := range m.Waypoints {
			if _, err := tx.Exec(`
				INSERT INTO mission_waypoints (mission_id, seq, x, y, lon, lat)
				VALUES (?, ?, ?, ?, ?, ?)`,
				m.MissionID, w.Seq, w.X, w.Y, w.Lon, w.Lat,
			); err != nil {
				return fmt.Errorf("insert waypoint %d: %w", w.Seq, err)
			}
		}
		for _, h := range m.Hotspots {
			if _, err := tx.Exec(`
				INSERT INTO mission_hotspots (mission_id, hotspot_id, x, y, size)
				VALUES (?, ?, ?, ?, ?)`,
				m.MissionID, h.HotspotID, h.X, h.Y, h.Size,
			); err != nil {
				return fmt.Errorf("insert hotspot %d: %w", h.HotspotID, err)
			}
		}
		return tx.Commit()
	})
}

const missionColumns = `
	mission_id, created_at, mode, seed, agent_count, ticks,
	map_width, map_height, path_length, coverage, params_json, build_version`

// Get returns a mission with its waypoints and hotspots.
func (s *MissionStore) Get(missionID string) (*Mission, error) {
	row := s.db.QueryRow(`SELECT `+missionColumns+` FROM missions WHERE mission_id = ?`, missionID)
	m, err := scanMission(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrMissionNotFound, missionID)
	}
	if err != nil {
		return nil, err
	}

	if m.Waypoints, err = s.waypoints(missionID); err != nil {
		return nil, err
	}
	if m.Hotspots, err = s.hotspots(missionID); err != nil {
		return nil, err
	}
	return m, nil
}

// List returns up to limit missions, newest first, without waypoints or
// hotspots. A limit <= 0 returns all missions.
func (s *MissionStore) List(limit int) ([]*Mission, error) {
	query := `SELECT ` + missionColumns + ` FROM missions ORDER BY created_at DESC, mission_id`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query missions: %w", err)
	}
	defer rows.Close()

	var out []*Mission
	for rows.Next() {
		m, err := scanMission(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Delete removes a mission and, by cascade, its waypoints and hotspots.
func (s *MissionStore) Delete(missionID string) error {
	return retryOnBusy(func() error {
		result, err := s.db.Exec(`DELETE FROM missions WHERE mission_id = ?`, missionID)
		if err != nil {
			return fmt.Errorf("delete mission: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf("%w: %s", ErrMissionNotFound, missionID)
		}
		return nil
	})
}

func (s *MissionStore) waypoints(missionID string) ([]Waypoint, error) {
	rows, err := s.db.Query(`
		SELECT seq, x, y, lon, lat FROM mission_waypoints
		WHERE mission_id = ? ORDER BY seq`, missionID)
	if err != nil {
		return nil, fmt.Errorf("query waypoints: %w", err)
	}
	defer rows.Close()

	var out []Waypoint
	for rows.Next() {
		var w Waypoint
		var lon, lat sql.NullFloat64
		if err := rows.Scan(&w.Seq, &w.X, &w.Y, &lon, &lat); err != nil {
			return nil, fmt.Errorf("scan waypoint row: %w", err)
		}
		if lon.Valid && lat.Valid {
			w.Lon, w.Lat = &lon.Float64, &lat.Float64
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func (s *MissionStore) hotspots(missionID string) ([]Hotspot, error) {
	rows, err := s.db.Query(`
		SELECT hotspot_id, x, y, size FROM mission_hotspots
		WHERE mission_id = ? ORDER BY hotspot_id`, missionID)
	if err != nil {
		return nil, fmt.Errorf("query hotspots: %w", err)
	}
	defer rows.Close()

	var out []Hotspot
	for rows.Next() {
		var h Hotspot
		if err := rows.Scan(&h.HotspotID, &h.X, &h.Y, &h.Size); err != nil {
			return nil, fmt.Errorf("scan hotspot row: %w", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanMission(sc scanner) (*Mission, error) {
	var m Mission
	var seed int64
	var params, build sql.NullString
	err := sc.Scan(
		&m.MissionID, &m.CreatedAt, &m.Mode, &seed, &m.AgentCount, &m.Ticks,
		&m.MapWidth, &m.MapHeight, &m.PathLength, &m.Coverage, &params, &build,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan mission row: %w", err)
	}
	m.Seed = uint64(seed)
	if params.Valid {
		m.ParamsJSON = json.RawMessage(params.String)
	}
	m.BuildVersion = build.String
	return &m, nil
}
