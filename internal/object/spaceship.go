package object

import (
	"math"

	"github.com/tomz197/swarmship/internal/loop/config"
)

// Spaceship is the player-controlled ship.
type Spaceship struct {
	X      float64 `json:"x"` // Position (center of ship)
	Y      float64 `json:"y"`
	VX     float64 `json:"vx"` // Velocity (momentum)
	VY     float64 `json:"vy"`
	Angle  float64 `json:"angle"` // Heading in radians (0 = pointing right)
	Size   float64 `json:"size"`  // Collision/draw radius
	Boost  bool    `json:"boost"` // Pending boost, applied once on the next update
	Health int     `json:"health"`
}

// NewSpaceship creates a spaceship at the given position, pointing up.
func NewSpaceship(x, y float64) *Spaceship {
	return &Spaceship{
		X:      x,
		Y:      y,
		Angle:  -math.Pi / 2,
		Size:   config.SpaceshipSize,
		Health: config.SpaceshipHealth,
	}
}

// Move displaces the ship by (dx,dy).
func (s *Spaceship) Move(dx, dy float64) {
	s.X += dx
	s.Y += dy
}

// Aim sets the heading, normalized to [-π, π].
func (s *Spaceship) Aim(angle float64) {
	for angle > math.Pi {
		angle -= 2 * math.Pi
	}
	for angle < -math.Pi {
		angle += 2 * math.Pi
	}
	s.Angle = angle
}

// Shoot creates a bullet at the ship's position along its heading.
func (s *Spaceship) Shoot() *Bullet {
	return NewBullet(s.X, s.Y, s.Angle)
}

// Update applies a pending boost, moves the ship by its velocity and wraps it.
func (s *Spaceship) Update(ctx UpdateContext) bool {
	if s.Boost {
		s.VX *= config.BoostFactor
		s.VY *= config.BoostFactor
		s.Boost = false
	}

	s.X += s.VX
	s.Y += s.VY

	ctx.Screen.WrapPosition(&s.X, &s.Y)

	return false
}

// GetPosition returns the ship's center position.
func (s *Spaceship) GetPosition() (float64, float64) {
	return s.X, s.Y
}

// GetRadius returns the ship's collision radius.
func (s *Spaceship) GetRadius() float64 {
	return s.Size
}
