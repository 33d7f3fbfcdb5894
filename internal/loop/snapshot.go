package loop

import (
	"github.com/tomz197/swarmship/internal/feed"
	"github.com/tomz197/swarmship/internal/mode"
	"github.com/tomz197/swarmship/internal/object"
)

// Bounds are the simulation dimensions.
type Bounds struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Snapshot is an immutable copy of the simulation after a tick. Renderers
// only ever read snapshots.
type Snapshot struct {
	Tick       uint64            `json:"tick"`
	Running    bool              `json:"running"`
	Mode       mode.Mode         `json:"mode"`
	ModeName   string            `json:"modeName"`
	Bounds     Bounds            `json:"bounds"`
	Ship       object.Spaceship  `json:"ship"`
	Asteroids  []object.Asteroid `json:"asteroids"`
	Bullets    []object.Bullet   `json:"bullets"`
	Agents     []object.Agent    `json:"agents"`
	Planets    []object.Planet   `json:"planets"`
	Mission    string            `json:"mission"`
	Collisions []CollisionEvent  `json:"collisions"`
	GameOver   bool              `json:"gameOver"`

	// Filled in by the tick server.
	Spectrum []int         `json:"spectrum"`
	Feeds    []feed.Status `json:"feeds"`
	Advice   string        `json:"advice,omitempty"`
}

func copyValues[T any](src []*T) []T {
	out := make([]T, len(src))
	for i, p := range src {
		out[i] = *p
	}
	return out
}

// Snapshot copies the current state.
func (s *Simulation) Snapshot() *Snapshot {
	collisions := make([]CollisionEvent, len(s.collisions))
	copy(collisions, s.collisions)

	m := s.modes.Current()
	return &Snapshot{
		Tick:       s.tick,
		Running:    s.running,
		Mode:       m,
		ModeName:   m.String(),
		Bounds:     Bounds{Width: s.screen.Width, Height: s.screen.Height},
		Ship:       *s.Ship,
		Asteroids:  copyValues(s.Asteroids),
		Bullets:    copyValues(s.Bullets),
		Agents:     copyValues(s.Agents),
		Planets:    copyValues(s.Planets),
		Mission:    s.Mission,
		Collisions: collisions,
		GameOver:   s.gameOver,
		Spectrum:   []int{},
		Feeds:      []feed.Status{},
	}
}
