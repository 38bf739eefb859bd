package sim

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"

	"github.com/paulmach/orb"

	"github.com/banshee-data/sarplan/internal/elevation"
	"github.com/banshee-data/sarplan/internal/monitoring"
	"github.com/banshee-data/sarplan/internal/terrain"
)

// streamSalt separates the initialisation stream from per-agent streams.
const streamSalt = 0x9e3779b97f4a7c15

// TraceFrame is a snapshot of every agent position at a given tick.
type TraceFrame struct {
	Tick      int
	Positions []orb.Point
}

// Simulation advances a fixed population over a terrain and elevation
// raster one tick at a time. It is not safe for concurrent use; Step may
// itself fan out across Config.Workers goroutines.
type Simulation struct {
	cfg       Config
	terrain   *terrain.Grid
	elevation *elevation.Field
	width     float64
	height    float64

	agents  Agents
	streams []*rand.Rand // one independent stream per agent
	tick    int
	trace   []TraceFrame
	fired   [4]int // branch counters, indexed by Branch, for the last tick
}

// New validates cfg and spawns the population. Terrain and elevation must
// share dimensions.
func New(tg *terrain.Grid, ef *elevation.Field, cfg Config) (*Simulation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if tg == nil || ef == nil {
		return nil, fmt.Errorf("%w: terrain and elevation are required", ErrInvalidConfig)
	}
	if tg.Width != ef.Width || tg.Height != ef.Height {
		return nil, fmt.Errorf("%w: terrain %dx%d does not match elevation %dx%d",
			ErrInvalidConfig, tg.Width, tg.Height, ef.Width, ef.Height)
	}

	s := &Simulation{
		cfg:       cfg,
		terrain:   tg,
		elevation: ef,
		width:     float64(tg.Width),
		height:    float64(tg.Height),
		agents:    newAgents(cfg.AgentCount),
		streams:   make([]*rand.Rand, cfg.AgentCount),
	}

	spawnRNG := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^streamSalt))
	for i := 0; i < cfg.AgentCount; i++ {
		s.agents.spawn(i, s.width, s.height, cfg, spawnRNG)
		s.streams[i] = rand.New(rand.NewPCG(cfg.Seed, uint64(i)+1))
	}

	if cfg.TraceEvery > 0 {
		s.record()
	}
	return s, nil
}

// Step advances every agent by one tick. Agents never read each other's
// state, so the population is split into contiguous chunks when Workers > 1;
// each agent draws only from its own stream so the outcome is identical to
// a serial pass.
func (s *Simulation) Step() {
	n := s.agents.Len()
	workers := min(max(s.cfg.Workers, 1), n)
	branches := make([]Branch, n)

	if workers == 1 {
		for i := 0; i < n; i++ {
			branches[i] = s.update(i)
		}
	} else {
		chunk := (n + workers - 1) / workers
		var wg sync.WaitGroup
		for lo := 0; lo < n; lo += chunk {
			hi := min(n, lo+chunk)
			wg.Add(1)
			go func(lo, hi int) {
				defer wg.Done()
				for i := lo; i < hi; i++ {
					branches[i] = s.update(i)
				}
			}(lo, hi)
		}
		wg.Wait()
	}

	s.fired = [4]int{}
	for _, b := range branches {
		s.fired[b]++
	}

	s.tick++
	if s.cfg.TraceEvery > 0 && s.tick%s.cfg.TraceEvery == 0 {
		s.record()
	}
}

// update applies one tick to agent i and reports which rule fired.
func (s *Simulation) update(i int) Branch {
	a := &s.agents
	cx := int(math.Floor(a.X[i]))
	cy := int(math.Floor(a.Y[i]))
	cx, cy = s.terrain.Clamp(cx, cy)

	wc := s.terrain.Window(cx, cy, s.cfg.SensingRadius)
	grad := s.elevation.GradientAt(cx, cy)

	st := steer(wc, grad, a.Heading[i], a.Age[i], s.cfg.ElevationPreference, s.streams[i])

	h := wrapAngle(a.Heading[i] + st.Delta)
	a.Heading[i] = h
	a.X[i] = wrap(a.X[i]+a.Speed[i]*math.Cos(h), s.width)
	a.Y[i] = wrap(a.Y[i]+a.Speed[i]*math.Sin(h), s.height)
	return st.Branch
}

// Run advances ticks steps. The context is checked between ticks only.
func (s *Simulation) Run(ctx context.Context, ticks int) error {
	if ticks < 0 {
		return fmt.Errorf("%w: negative tick count %d", ErrInvalidConfig, ticks)
	}
	monitoring.Logf("sim: running %d agents for %d ticks on %dx%d grid",
		s.agents.Len(), ticks, s.terrain.Width, s.terrain.Height)

	progressEvery := max(ticks/10, 1)
	for t := 0; t < ticks; t++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("sim: stopped at tick %d: %w", s.tick, err)
		}
		s.Step()
		if (t+1)%progressEvery == 0 {
			monitoring.Debugf("sim: tick %d/%d water=%d road=%d elevation=%d",
				t+1, ticks, s.fired[BranchWaterEdge], s.fired[BranchRoad], s.fired[BranchElevation])
		}
	}
	monitoring.Logf("sim: complete at tick %d", s.tick)
	return nil
}

func (s *Simulation) record() {
	s.trace = append(s.trace, TraceFrame{Tick: s.tick, Positions: s.agents.positions()})
}

// Tick returns the number of completed ticks.
func (s *Simulation) Tick() int { return s.tick }

// Agents returns a copy of the current population as flat records.
func (s *Simulation) Agents() []AgentState {
	out := make([]AgentState, s.agents.Len())
	for i := range out {
		out[i] = s.agents.State(i)
	}
	return out
}

// Positions returns the current agent positions.
func (s *Simulation) Positions() []orb.Point {
	return s.agents.positions()
}

// Trace returns recorded position frames, oldest first. Empty unless
// Config.TraceEvery > 0.
func (s *Simulation) Trace() []TraceFrame {
	return s.trace
}

// BranchCounts returns how many agents took each rule on the last tick.
func (s *Simulation) BranchCounts() map[Branch]int {
	return map[Branch]int{
		BranchNone:      s.fired[BranchNone],
		BranchWaterEdge: s.fired[BranchWaterEdge],
		BranchRoad:      s.fired[BranchRoad],
		BranchElevation: s.fired[BranchElevation],
	}
}
