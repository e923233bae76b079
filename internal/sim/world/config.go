package world

import (
	"fmt"

	"dronegrid/internal/sim/tuning"
)

// Config describes one simulation run. Only malformed configuration is
// user-visible at construction time; everything reachable through
// agent behavior afterwards is absorbed internally.
type Config struct {
	Width  int
	Height int
	// ZoneAgents is the number of drones per zone specialization.
	ZoneAgents [3]int
	// ZoneWaste is the number of waste items seeded into each zone.
	ZoneWaste [3]int
	Seed      int64

	Tuning tuning.Tuning
}

func (c *Config) applyDefaults() {
	if c.Width == 0 {
		c.Width = 12
	}
	if c.Height == 0 {
		c.Height = 10
	}
	c.Tuning = c.Tuning.Normalized()
}

func (c Config) validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("grid dimensions must be positive: %dx%d", c.Width, c.Height)
	}
	if c.Width%3 != 0 {
		return fmt.Errorf("grid width must be divisible by 3: %d", c.Width)
	}
	zoneCells := (c.Width / 3) * c.Height
	for z := 0; z < 3; z++ {
		if c.ZoneAgents[z] < 0 || c.ZoneWaste[z] < 0 {
			return fmt.Errorf("zone %d counts must be non-negative", z)
		}
		if c.ZoneAgents[z] > zoneCells {
			return fmt.Errorf("zone %d: %d agents exceed %d cells", z, c.ZoneAgents[z], zoneCells)
		}
		seedable := zoneCells
		if z == 2 {
			// The drop column never holds resting waste, so zone 2
			// seeds into one column less than it owns.
			seedable -= c.Height
		}
		if c.ZoneWaste[z] > seedable {
			return fmt.Errorf("zone %d: %d waste items exceed %d seedable cells", z, c.ZoneWaste[z], seedable)
		}
	}
	return nil
}
