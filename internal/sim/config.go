package sim

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig is returned by New for unusable simulation settings.
var ErrInvalidConfig = errors.New("sim: invalid config")

// Default simulation parameters.
const (
	DefaultAgentCount          = 250
	DefaultSensingRadius       = 3
	DefaultElevationPreference = 0.65
	DefaultSpeedMin            = 1.0
	DefaultSpeedMax            = 3.0
	DefaultAgeMin              = 0.1
	DefaultAgeMax              = 1.0
	DefaultAgeSpeedFactor      = 2.0
	DefaultTicks               = 150
)

// maxAge keeps speed = base * factor * (1.1 - age) strictly positive.
const maxAge = 1.1

// Config holds the per-run simulation settings.
type Config struct {
	AgentCount          int     // Population size, fixed for the run
	SensingRadius       int     // Half-width of the terrain window (cells)
	ElevationPreference float64 // Base probability of steering downhill
	SpeedMin, SpeedMax  float64 // Range of the base speed draw (cells/tick)
	AgeMin, AgeMax      float64 // Range of the age draw
	AgeSpeedFactor      float64 // Multiplier applied with (1.1 - age)
	Seed                uint64  // Root seed for every random stream
	Workers             int     // Goroutines per tick; <= 1 runs serially
	TraceEvery          int     // Record positions every N ticks; 0 disables
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		AgentCount:          DefaultAgentCount,
		SensingRadius:       DefaultSensingRadius,
		ElevationPreference: DefaultElevationPreference,
		SpeedMin:            DefaultSpeedMin,
		SpeedMax:            DefaultSpeedMax,
		AgeMin:              DefaultAgeMin,
		AgeMax:              DefaultAgeMax,
		AgeSpeedFactor:      DefaultAgeSpeedFactor,
		Seed:                1,
		Workers:             1,
	}
}

// Validate reports the first unusable setting.
func (c Config) Validate() error {
	switch {
	case c.AgentCount <= 0:
		return fmt.Errorf("%w: agent count must be positive, got %d", ErrInvalidConfig, c.AgentCount)
	case c.SensingRadius < 0:
		return fmt.Errorf("%w: sensing radius must be non-negative, got %d", ErrInvalidConfig, c.SensingRadius)
	case c.ElevationPreference < 0 || c.ElevationPreference > 1:
		return fmt.Errorf("%w: elevation preference must be in [0,1], got %g", ErrInvalidConfig, c.ElevationPreference)
	case c.SpeedMin <= 0 || c.SpeedMax < c.SpeedMin:
		return fmt.Errorf("%w: speed range [%g,%g]", ErrInvalidConfig, c.SpeedMin, c.SpeedMax)
	case c.AgeMin < 0 || c.AgeMax < c.AgeMin || c.AgeMax >= maxAge:
		return fmt.Errorf("%w: age range [%g,%g] must lie in [0,%g)", ErrInvalidConfig, c.AgeMin, c.AgeMax, maxAge)
	case c.AgeSpeedFactor <= 0:
		return fmt.Errorf("%w: age speed factor must be positive, got %g", ErrInvalidConfig, c.AgeSpeedFactor)
	case c.TraceEvery < 0:
		return fmt.Errorf("%w: trace interval must be non-negative, got %d", ErrInvalidConfig, c.TraceEvery)
	}
	return nil
}
