package object

import "math/rand"

// AsteroidSpawner builds the asteroid field for a fresh game.
type AsteroidSpawner struct {
	target int
}

// NewAsteroidSpawner creates a spawner with a target asteroid count.
func NewAsteroidSpawner(target int) *AsteroidSpawner {
	if target < 0 {
		target = 0
	}
	return &AsteroidSpawner{
		target: target,
	}
}

// Target returns the number of asteroids Populate creates.
func (s *AsteroidSpawner) Target() int {
	return s.target
}

// Populate creates target asteroids at random positions.
func (s *AsteroidSpawner) Populate(rng *rand.Rand, screen Screen) []*Asteroid {
	asteroids := make([]*Asteroid, 0, s.target)
	for i := 0; i < s.target; i++ {
		asteroids = append(asteroids, NewAsteroidRandom(rng, screen))
	}
	return asteroids
}
