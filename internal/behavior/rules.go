package behavior

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/tomz197/swarmship/internal/loop/config"
	"github.com/tomz197/swarmship/internal/object"
)

func position(a *object.Agent) mgl64.Vec2 {
	return mgl64.Vec2{a.X, a.Y}
}

func moveTo(a *object.Agent, p mgl64.Vec2) {
	a.MoveTo(p.X(), p.Y())
}

// approach covers factor of the distance between from and to.
func approach(from, to mgl64.Vec2, factor float64) mgl64.Vec2 {
	return from.Add(to.Sub(from).Mul(factor))
}

// Hold leaves the agent where it is.
func Hold(a *object.Agent, _ *Context) {
	a.MoveTo(a.X, a.Y)
}

// Explore performs a random walk of up to ExploreJitter per axis.
func Explore(a *object.Agent, ctx *Context) {
	jitter := mgl64.Vec2{
		(ctx.Rand.Float64()*2 - 1) * config.ExploreJitter,
		(ctx.Rand.Float64()*2 - 1) * config.ExploreJitter,
	}
	p := position(a).Add(jitter)
	ctx.Screen.WrapPosition(&p[0], &p[1])

	moveTo(a, p)
	a.State = object.StateExploring
}

// Approach moves the agent a fixed fraction of the way to the ship.
func Approach(a *object.Agent, ctx *Context) {
	ship := mgl64.Vec2{ctx.Ship.X, ctx.Ship.Y}
	moveTo(a, approach(position(a), ship, config.ApproachFactor))
	a.State = object.StateIdle
}

// Follow mirrors the ship's displacement of the tick.
func Follow(a *object.Agent, ctx *Context) {
	p := position(a).Add(ctx.ShipDelta)
	ctx.Screen.WrapPosition(&p[0], &p[1])
	moveTo(a, p)
}

// Collect heads for the nearest planet with resources left and mines it once
// docked. With nothing left to mine the agent explores.
func Collect(a *object.Agent, ctx *Context) {
	target := findPlanet(ctx.Planets, a.TargetID)
	if target == nil || target.Depleted() {
		target = nearestPlanet(ctx.Planets, position(a))
	}
	if target == nil {
		a.TargetID = ""
		Explore(a, ctx)
		return
	}
	a.TargetID = target.ID
	a.State = object.StateIdle

	pos := position(a)
	dest := mgl64.Vec2{target.X, target.Y}
	offset := dest.Sub(pos)
	dist := offset.Len()

	if dist <= target.Radius {
		Hold(a, ctx)
		a.Cargo += target.Take(config.CollectRate)
		return
	}

	// Stop at the rim
	step := math.Min(config.CollectorSpeed, dist-target.Radius)
	moveTo(a, pos.Add(offset.Normalize().Mul(step)))
}

// Defend intercepts the asteroid closest to the ship once it comes within
// DefenderRange. Without a threat the agent closes on the ship.
func Defend(a *object.Agent, ctx *Context) {
	ship := mgl64.Vec2{ctx.Ship.X, ctx.Ship.Y}
	pos := position(a)

	var (
		threat *object.Asteroid
		best   = math.Inf(1)
	)
	for _, ast := range ctx.Asteroids {
		d := (mgl64.Vec2{ast.X, ast.Y}).Sub(ship).Len()
		if d <= config.DefenderRange && d < best {
			best = d
			threat = ast
		}
	}

	if threat == nil {
		moveTo(a, approach(pos, ship, config.ApproachFactor))
		a.State = object.StateIdle
		return
	}

	moveTo(a, approach(pos, mgl64.Vec2{threat.X, threat.Y}, config.ApproachFactor))
	a.State = object.StateCombat
}

func findPlanet(planets []*object.Planet, id string) *object.Planet {
	if id == "" {
		return nil
	}
	for _, p := range planets {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func nearestPlanet(planets []*object.Planet, from mgl64.Vec2) *object.Planet {
	var (
		nearest *object.Planet
		best    = math.Inf(1)
	)
	for _, p := range planets {
		if p.Depleted() {
			continue
		}
		if d := (mgl64.Vec2{p.X, p.Y}).Sub(from).Len(); d < best {
			best = d
			nearest = p
		}
	}
	return nearest
}
