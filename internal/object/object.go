// Package object defines the simulated entities: the spaceship, asteroids,
// bullets, swarm agents and planets.
package object

import (
	"math/rand"

	"github.com/google/uuid"
)

// Screen represents the bounded coordinate space of the simulation.
type Screen struct {
	Width   int
	Height  int
	CenterX int
	CenterY int
}

// NewScreen creates a screen of the given dimensions.
func NewScreen(width, height int) Screen {
	return Screen{
		Width:   width,
		Height:  height,
		CenterX: width / 2,
		CenterY: height / 2,
	}
}

// WrapPosition wraps x and y to the opposite edge once they leave the screen
// (Asteroids-style). Leaving through 0 lands on the far edge and leaving
// through the far edge lands on 0. Axes are independent.
func (s Screen) WrapPosition(x, y *float64) {
	w := float64(s.Width)
	h := float64(s.Height)

	if *x < 0 {
		*x = w
	} else if *x > w {
		*x = 0
	}
	if *y < 0 {
		*y = h
	} else if *y > h {
		*y = 0
	}
}

// Contains reports whether (x,y) lies within [0,Width]x[0,Height].
func (s Screen) Contains(x, y float64) bool {
	return x >= 0 && x <= float64(s.Width) && y >= 0 && y <= float64(s.Height)
}

// RandomPoint returns a point uniformly distributed in [0,Width)x[0,Height).
func (s Screen) RandomPoint(rng *rand.Rand) (float64, float64) {
	return rng.Float64() * float64(s.Width), rng.Float64() * float64(s.Height)
}

// UpdateContext provides all the information an object needs during update.
type UpdateContext struct {
	Screen Screen
	Rand   *rand.Rand
}

// Object is an updatable simulation entity.
type Object interface {
	// Update advances the object one tick. Returns true if the object should be removed.
	Update(ctx UpdateContext) (remove bool)
}

// UpdateAll updates every object and compacts the slice in place, dropping
// the ones that asked to be removed.
func UpdateAll[T Object](objects []T, ctx UpdateContext) []T {
	kept := objects[:0] // reuse backing array
	for _, obj := range objects {
		if !obj.Update(ctx) {
			kept = append(kept, obj)
		}
	}
	// Release references held past the new length
	var zero T
	for i := len(kept); i < len(objects); i++ {
		objects[i] = zero
	}
	return kept
}

// newID returns a fresh entity identifier.
func newID() string {
	return uuid.NewString()
}
