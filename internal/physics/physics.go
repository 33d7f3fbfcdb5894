// Package physics provides collision tests and distance utilities for the
// simulation plane.
package physics

import "math"

// Distance calculates the Euclidean distance between two points.
func Distance(x1, y1, x2, y2 float64) float64 {
	return math.Sqrt(DistanceSquared(x1, y1, x2, y2))
}

// DistanceSquared calculates the squared distance between two points.
func DistanceSquared(x1, y1, x2, y2 float64) float64 {
	dx := x2 - x1
	dy := y2 - y1
	return dx*dx + dy*dy
}

// Within reports whether two points are no farther than radius apart.
func Within(x1, y1, x2, y2, radius float64) bool {
	return DistanceSquared(x1, y1, x2, y2) <= radius*radius
}

// CirclesOverlap reports whether the centers are strictly closer than the sum
// of the radii. Circles that merely touch do not overlap.
func CirclesOverlap(x1, y1, r1, x2, y2, r2 float64) bool {
	minDist := r1 + r2
	return DistanceSquared(x1, y1, x2, y2) < minDist*minDist
}

// Circle is anything with a center and a collision radius.
type Circle interface {
	GetPosition() (float64, float64)
	GetRadius() float64
}

// Collide reports whether a and b overlap.
func Collide(a, b Circle) bool {
	ax, ay := a.GetPosition()
	bx, by := b.GetPosition()
	return CirclesOverlap(ax, ay, a.GetRadius(), bx, by, b.GetRadius())
}
