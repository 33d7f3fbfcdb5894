package loop

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/tomz197/swarmship/internal/loop/config"
	"github.com/tomz197/swarmship/internal/object"
	"github.com/tomz197/swarmship/internal/physics"
)

// ErrUnknownPolicy is returned for collision policy names other than report and damage.
var ErrUnknownPolicy = errors.New("unknown collision policy")

// CollisionPolicy decides what a ship-asteroid collision does to the game.
type CollisionPolicy int

const (
	// PolicyReport only records the collision.
	PolicyReport CollisionPolicy = iota
	// PolicyDamage removes the asteroid and costs the ship one health point.
	// The game pauses when health runs out.
	PolicyDamage
)

// ParsePolicy converts a policy name.
func ParsePolicy(name string) (CollisionPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "report":
		return PolicyReport, nil
	case "damage":
		return PolicyDamage, nil
	default:
		return PolicyReport, fmt.Errorf("%w: %q", ErrUnknownPolicy, name)
	}
}

func (p CollisionPolicy) String() string {
	if p == PolicyDamage {
		return "damage"
	}
	return "report"
}

// CollisionEvent records a ship-asteroid overlap.
type CollisionEvent struct {
	Tick       uint64  `json:"tick"`
	AsteroidID string  `json:"asteroidId"`
	Distance   float64 `json:"distance"`
	Threshold  float64 `json:"threshold"` // Sum of the two radii
}

// collisionGridCellSize must cover the largest ship-asteroid collision distance.
const collisionGridCellSize = config.AsteroidMaxSize + config.SpaceshipSize

// findCollisions returns the indices of asteroids overlapping the ship, in
// collection order. The grid is rebuilt from the asteroid positions.
func findCollisions(ship *object.Spaceship, asteroids []*object.Asteroid, grid *physics.SpatialGrid) []int {
	grid.Clear()
	for i, a := range asteroids {
		grid.Insert(a.X, a.Y, i)
	}

	var hits []int
	grid.QueryAround(ship.X, ship.Y, func(i int) bool {
		if physics.Collide(ship, asteroids[i]) {
			hits = append(hits, i)
		}
		return false
	})
	sort.Ints(hits)
	return hits
}

// removeIndices drops the asteroids at the given sorted indices, compacting in place.
func removeIndices(asteroids []*object.Asteroid, indices []int) []*object.Asteroid {
	if len(indices) == 0 {
		return asteroids
	}
	kept := asteroids[:0]
	next := 0
	for i, a := range asteroids {
		if next < len(indices) && indices[next] == i {
			next++
			continue
		}
		kept = append(kept, a)
	}
	for i := len(kept); i < len(asteroids); i++ {
		asteroids[i] = nil
	}
	return kept
}
