package object

import (
	"math"

	"github.com/tomz197/swarmship/internal/loop/config"
)

// Bullet is a shot fired by the spaceship.
type Bullet struct {
	ID string  `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
	VX float64 `json:"vx"` // Velocity per tick
	VY float64 `json:"vy"`
}

// BulletRadius is the draw radius of a bullet.
const BulletRadius = 5.0

// NewBullet creates a bullet at (x,y) traveling in direction angle at BulletSpeed.
func NewBullet(x, y, angle float64) *Bullet {
	return &Bullet{
		ID: newID(),
		X:  x,
		Y:  y,
		VX: math.Cos(angle) * config.BulletSpeed,
		VY: math.Sin(angle) * config.BulletSpeed,
	}
}

// Update moves the bullet. Bullets that leave the screen are removed.
func (b *Bullet) Update(ctx UpdateContext) bool {
	b.X += b.VX
	b.Y += b.VY

	return !ctx.Screen.Contains(b.X, b.Y)
}
