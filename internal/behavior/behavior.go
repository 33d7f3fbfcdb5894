// Package behavior maps agent kinds to their per-tick update rules.
package behavior

import (
	"math/rand"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/tomz197/swarmship/internal/object"
)

// Context is the world view handed to every behavior during a tick.
type Context struct {
	Screen    object.Screen
	Rand      *rand.Rand
	Ship      *object.Spaceship
	ShipDelta mgl64.Vec2 // Ship displacement of the current tick, before wrapping
	Asteroids []*object.Asteroid
	Planets   []*object.Planet
}

// Func advances one agent by one tick.
type Func func(a *object.Agent, ctx *Context)

// Behavior is a named update rule.
type Behavior struct {
	Name string
	Run  Func
	// Combat-capable behaviors keep running while their agent is in combat.
	Combat bool
}

// Table dispatches agents to behaviors by kind.
type Table struct {
	byKind map[object.AgentKind]Behavior
	manual Behavior
	noop   Behavior
}

// NewTable builds the dispatch table with every known kind registered.
func NewTable() *Table {
	scout := Behavior{Name: "approach", Run: Approach}
	collect := Behavior{Name: "collect", Run: Collect}

	return &Table{
		byKind: map[object.AgentKind]Behavior{
			object.KindExplorer:            {Name: "explore", Run: Explore},
			object.KindSwarmScout:          scout,
			object.KindAutonomousCollector: collect,
			object.KindScout:               scout,
			object.KindDefender:            {Name: "defend", Run: Defend, Combat: true},
			object.KindCollector:           collect,
		},
		manual: Behavior{Name: "manual-follow", Run: Follow},
		noop:   Behavior{Name: "noop", Run: Hold},
	}
}

// Lookup returns the behavior registered for kind. Unregistered kinds get the no-op.
func (t *Table) Lookup(kind object.AgentKind) Behavior {
	if b, ok := t.byKind[kind]; ok {
		return b
	}
	return t.noop
}

// For resolves the behavior an agent runs this tick. Manually controlled
// agents follow the ship whatever their kind.
func (t *Table) For(a *object.Agent) Behavior {
	if a.Control == object.ControlManual {
		return t.manual
	}
	return t.Lookup(a.Kind)
}

// Step runs the agent's behavior once. Agents in combat stay put unless
// their behavior can fight.
func (t *Table) Step(a *object.Agent, ctx *Context) {
	b := t.For(a)
	if a.State == object.StateCombat && !b.Combat {
		Hold(a, ctx)
		return
	}
	b.Run(a, ctx)
}

// StepAll runs Step over every agent in order.
func (t *Table) StepAll(agents []*object.Agent, ctx *Context) {
	for _, a := range agents {
		t.Step(a, ctx)
	}
}
