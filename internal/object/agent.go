package object

import (
	"math/rand"
	"strings"
)

// AgentKind selects the per-tick behavior of an agent.
type AgentKind int

const (
	KindUnknown AgentKind = iota
	KindExplorer            // explore_new_world
	KindSwarmScout          // swarm_scout
	KindAutonomousCollector // autonomous_collector
	KindScout               // scout
	KindDefender            // defender
	KindCollector           // collector
)

var kindNames = map[AgentKind]string{
	KindUnknown:             "unknown",
	KindExplorer:            "explore_new_world",
	KindSwarmScout:          "swarm_scout",
	KindAutonomousCollector: "autonomous_collector",
	KindScout:               "scout",
	KindDefender:            "defender",
	KindCollector:           "collector",
}

// ParseKind maps a tool name to its kind. Unrecognized names map to KindUnknown.
func ParseKind(name string) AgentKind {
	name = strings.ToLower(strings.TrimSpace(name))
	for kind, n := range kindNames {
		if n == name {
			return kind
		}
	}
	return KindUnknown
}

func (k AgentKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return kindNames[KindUnknown]
}

// MarshalText encodes the kind as its tool name.
func (k AgentKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// AgentState is the activity label of an agent.
type AgentState int

const (
	StateIdle AgentState = iota
	StateExploring
	StateCombat
)

func (s AgentState) String() string {
	switch s {
	case StateExploring:
		return "exploring"
	case StateCombat:
		return "combat"
	default:
		return "idle"
	}
}

// MarshalText encodes the state as its label.
func (s AgentState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ControlMode tells whether an agent follows the player or acts on its own.
type ControlMode int

const (
	ControlAutonomous ControlMode = iota
	ControlManual
)

func (c ControlMode) String() string {
	if c == ControlManual {
		return "manual"
	}
	return "autonomous"
}

// MarshalText encodes the control mode as its label.
func (c ControlMode) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// Agent is a swarm bot.
type Agent struct {
	ID       string      `json:"id"`
	X        float64     `json:"x"`
	Y        float64     `json:"y"`
	VX       float64     `json:"vx"` // Displacement of the last tick
	VY       float64     `json:"vy"`
	Kind     AgentKind   `json:"kind"`
	State    AgentState  `json:"state"`
	Control  ControlMode `json:"control"`
	Cargo    int         `json:"cargo"`              // Resources collected so far
	TargetID string      `json:"targetId,omitempty"` // Planet the agent is heading to, if any
}

// NewAgent creates an idle agent of the given kind at a random position.
func NewAgent(rng *rand.Rand, screen Screen, kind AgentKind, control ControlMode) *Agent {
	x, y := screen.RandomPoint(rng)
	return &Agent{
		ID:      newID(),
		X:       x,
		Y:       y,
		Kind:    kind,
		State:   StateIdle,
		Control: control,
	}
}

// MoveTo relocates the agent and records the displacement as its velocity.
func (a *Agent) MoveTo(x, y float64) {
	a.VX = x - a.X
	a.VY = y - a.Y
	a.X = x
	a.Y = y
}

// GetPosition returns the agent's position.
func (a *Agent) GetPosition() (float64, float64) {
	return a.X, a.Y
}
