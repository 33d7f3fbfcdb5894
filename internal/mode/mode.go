// Package mode implements the Single / Swarm / Autonomous state machine and
// the agent population each mode brings.
package mode

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/tomz197/swarmship/internal/loop/config"
	"github.com/tomz197/swarmship/internal/object"
)

// ErrUnknownMode is returned when a mode number is outside {1,2,3}.
var ErrUnknownMode = errors.New("unknown mode")

// Mode is the active population strategy.
type Mode int

const (
	Single     Mode = 1
	Swarm      Mode = 2
	Autonomous Mode = 3
)

// Parse converts a mode number into a Mode.
func Parse(n int) (Mode, error) {
	m := Mode(n)
	if !m.Valid() {
		return 0, fmt.Errorf("%w: %d", ErrUnknownMode, n)
	}
	return m, nil
}

// Valid reports whether m is one of the known modes.
func (m Mode) Valid() bool {
	return m >= Single && m <= Autonomous
}

func (m Mode) String() string {
	switch m {
	case Single:
		return "single"
	case Swarm:
		return "swarm"
	case Autonomous:
		return "autonomous"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Roster describes the agents a mode populates.
type Roster struct {
	Count   int
	Kind    object.AgentKind
	Control object.ControlMode
	// Prime runs every agent's behavior once right after population.
	Prime bool
}

var rosters = map[Mode]Roster{
	Single:     {Count: config.SingleAgents, Kind: object.KindExplorer, Control: object.ControlManual},
	Swarm:      {Count: config.SwarmAgents, Kind: object.KindSwarmScout, Control: object.ControlAutonomous, Prime: true},
	Autonomous: {Count: config.AutonomousAgents, Kind: object.KindAutonomousCollector, Control: object.ControlAutonomous, Prime: true},
}

// Roster returns the population of m. Unknown modes have an empty roster.
func (m Mode) Roster() Roster {
	return rosters[m]
}

// Populate creates the agents of m's roster at random positions.
func (m Mode) Populate(rng *rand.Rand, screen object.Screen) []*object.Agent {
	r := m.Roster()
	agents := make([]*object.Agent, 0, r.Count)
	for i := 0; i < r.Count; i++ {
		agents = append(agents, object.NewAgent(rng, screen, r.Kind, r.Control))
	}
	return agents
}

// Controller holds the active mode.
type Controller struct {
	current Mode
	changes int
}

// NewController creates a controller in Single mode.
func NewController() *Controller {
	return &Controller{current: Single}
}

// Current returns the active mode.
func (c *Controller) Current() Mode {
	return c.current
}

// Changes counts successful transitions, self transitions included.
func (c *Controller) Changes() int {
	return c.changes
}

// Switch makes m the active mode and returns its roster. Any mode may follow
// any other, itself included. Invalid modes leave the controller untouched.
func (c *Controller) Switch(m Mode) (Roster, error) {
	if !m.Valid() {
		return Roster{}, fmt.Errorf("%w: %d", ErrUnknownMode, int(m))
	}
	c.current = m
	c.changes++
	return m.Roster(), nil
}
