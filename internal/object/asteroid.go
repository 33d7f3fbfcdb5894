package object

import (
	"math/rand"

	"github.com/tomz197/swarmship/internal/loop/config"
)

// Asteroid is a drifting space rock.
type Asteroid struct {
	ID   string  `json:"id"`
	X    float64 `json:"x"` // Position (center)
	Y    float64 `json:"y"`
	VX   float64 `json:"vx"` // Velocity per tick
	VY   float64 `json:"vy"`
	Size float64 `json:"size"` // Collision/draw radius
}

// NewAsteroid creates an asteroid at position (x,y).
func NewAsteroid(x, y, vx, vy, size float64) *Asteroid {
	return &Asteroid{
		ID:   newID(),
		X:    x,
		Y:    y,
		VX:   vx,
		VY:   vy,
		Size: size,
	}
}

// NewAsteroidRandom creates an asteroid at a random position on the screen
// with a random size in [AsteroidMinSize, AsteroidMaxSize) and velocity
// components in [-AsteroidMaxSpeed, AsteroidMaxSpeed).
func NewAsteroidRandom(rng *rand.Rand, screen Screen) *Asteroid {
	x, y := screen.RandomPoint(rng)
	size := config.AsteroidMinSize + rng.Float64()*(config.AsteroidMaxSize-config.AsteroidMinSize)
	vx := (rng.Float64()*2 - 1) * config.AsteroidMaxSpeed
	vy := (rng.Float64()*2 - 1) * config.AsteroidMaxSpeed
	return NewAsteroid(x, y, vx, vy, size)
}

// Update moves the asteroid and wraps it around the screen edges.
func (a *Asteroid) Update(ctx UpdateContext) bool {
	a.X += a.VX
	a.Y += a.VY

	ctx.Screen.WrapPosition(&a.X, &a.Y)

	return false
}

// GetPosition returns the asteroid's center position.
func (a *Asteroid) GetPosition() (float64, float64) {
	return a.X, a.Y
}

// GetRadius returns the asteroid's collision radius.
func (a *Asteroid) GetRadius() float64 {
	return a.Size
}
