// Package loop holds the simulation context and its per-tick step.
package loop

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-gl/mathgl/mgl64"

	"github.com/tomz197/swarmship/internal/behavior"
	"github.com/tomz197/swarmship/internal/input"
	"github.com/tomz197/swarmship/internal/loop/config"
	"github.com/tomz197/swarmship/internal/mode"
	"github.com/tomz197/swarmship/internal/object"
	"github.com/tomz197/swarmship/internal/physics"
	"github.com/tomz197/swarmship/internal/procgen"
)

// ErrInvalidBounds is returned when resizing to a non-positive dimension.
var ErrInvalidBounds = errors.New("invalid bounds")

// Options configures a Simulation. Zero values take the defaults from config.
type Options struct {
	Width     int
	Height    int
	Asteroids int
	Planets   int
	Policy    CollisionPolicy
	Rand      *rand.Rand
	Logger    *log.Logger
}

// Simulation owns every entity of one game. It is not safe for concurrent
// use; the tick server is its only owner.
type Simulation struct {
	screen  object.Screen
	rng     *rand.Rand
	logger  *log.Logger
	policy  CollisionPolicy
	table   *behavior.Table
	modes   *mode.Controller
	gen     *procgen.Generator
	spawner *object.AsteroidSpawner
	grid    *physics.SpatialGrid
	planets int

	Ship      *object.Spaceship
	Asteroids []*object.Asteroid
	Bullets   []*object.Bullet
	Agents    []*object.Agent
	Planets   []*object.Planet
	Mission   string

	tick       uint64
	running    bool
	gameOver   bool
	handsLost  bool
	collisions []CollisionEvent
	touching   map[string]struct{} // Asteroids overlapping the ship on the previous tick
}

// NewSimulation creates a paused simulation in Single mode with a fresh world.
func NewSimulation(opts Options) *Simulation {
	if opts.Width <= 0 {
		opts.Width = config.CanvasWidth
	}
	if opts.Height <= 0 {
		opts.Height = config.CanvasHeight
	}
	if opts.Asteroids <= 0 {
		opts.Asteroids = config.InitialAsteroids
	}
	if opts.Planets <= 0 {
		opts.Planets = config.InitialPlanets
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if opts.Logger == nil {
		opts.Logger = log.Default().WithPrefix("sim")
	}

	screen := object.NewScreen(opts.Width, opts.Height)
	s := &Simulation{
		screen:   screen,
		rng:      opts.Rand,
		logger:   opts.Logger,
		policy:   opts.Policy,
		table:    behavior.NewTable(),
		modes:    mode.NewController(),
		gen:      procgen.New(opts.Rand),
		spawner:  object.NewAsteroidSpawner(opts.Asteroids),
		grid:     physics.NewSpatialGrid(float64(screen.Width), float64(screen.Height), collisionGridCellSize),
		planets:  opts.Planets,
		touching: make(map[string]struct{}),
	}
	s.Reset()
	return s
}

// Reset discards every entity and rebuilds the world for the current mode.
// The game is left paused.
func (s *Simulation) Reset() {
	s.Ship = object.NewSpaceship(float64(s.screen.CenterX), float64(s.screen.CenterY))
	s.Asteroids = s.spawner.Populate(s.rng, s.screen)
	s.Bullets = nil
	s.Planets = s.gen.Planets(s.screen, s.planets)
	s.Mission = s.gen.Mission()

	s.tick = 0
	s.running = false
	s.gameOver = false
	s.handsLost = false
	s.collisions = nil
	clear(s.touching)

	s.populate(s.modes.Current())

	s.logger.Info("world reset",
		"mode", s.modes.Current(),
		"asteroids", len(s.Asteroids),
		"planets", len(s.Planets),
		"mission", s.Mission,
	)
}

// Start resumes stepping. A destroyed ship needs a reset first.
func (s *Simulation) Start() bool {
	if s.gameOver {
		s.logger.Warn("cannot start, ship destroyed; reset first")
		return false
	}
	s.running = true
	return true
}

// Pause stops stepping.
func (s *Simulation) Pause() {
	s.running = false
}

// Running reports whether the game advances on each tick.
func (s *Simulation) Running() bool {
	return s.running
}

// Tick returns the number of steps since the last reset.
func (s *Simulation) Tick() uint64 {
	return s.tick
}

// Mode returns the active mode.
func (s *Simulation) Mode() mode.Mode {
	return s.modes.Current()
}

// Screen returns the simulation bounds.
func (s *Simulation) Screen() object.Screen {
	return s.screen
}

// Collisions returns the collision events of the last step.
func (s *Simulation) Collisions() []CollisionEvent {
	return s.collisions
}

// SwitchMode activates m, replacing every agent with m's roster. Switching to
// the active mode repopulates it.
func (s *Simulation) SwitchMode(m mode.Mode) error {
	prev := s.modes.Current()
	if _, err := s.modes.Switch(m); err != nil {
		s.logger.Warn("mode change ignored", "err", err)
		return err
	}
	s.populate(m)
	s.logger.Info("mode changed", "from", prev, "to", m, "agents", len(s.Agents))
	return nil
}

// populate replaces the agents with m's roster and primes them when the
// roster asks for it.
func (s *Simulation) populate(m mode.Mode) {
	s.Agents = m.Populate(s.rng, s.screen)
	if m.Roster().Prime {
		s.table.StepAll(s.Agents, s.behaviorContext(mgl64.Vec2{}))
	}
}

// Resize changes the simulation bounds. Entities outside the new bounds are
// wrapped or pruned on the next step; the ship is wrapped right away.
func (s *Simulation) Resize(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidBounds, width, height)
	}
	s.screen = object.NewScreen(width, height)
	s.grid.Resize(float64(width), float64(height))
	s.screen.WrapPosition(&s.Ship.X, &s.Ship.Y)
	s.logger.Info("resized", "width", width, "height", height)
	return nil
}

func (s *Simulation) updateContext() object.UpdateContext {
	return object.UpdateContext{
		Screen: s.screen,
		Rand:   s.rng,
	}
}

func (s *Simulation) behaviorContext(shipDelta mgl64.Vec2) *behavior.Context {
	return &behavior.Context{
		Screen:    s.screen,
		Rand:      s.rng,
		Ship:      s.Ship,
		ShipDelta: shipDelta,
		Asteroids: s.Asteroids,
		Planets:   s.Planets,
	}
}

// Step advances the simulation by one tick:
// controls, agents, asteroids, bullets, then collisions.
func (s *Simulation) Step(controls input.State) {
	s.tick++
	ctx := s.updateContext()

	shipDelta := s.applyControls(controls, ctx)
	if controls.Mode != 0 {
		// Errors are logged by SwitchMode
		_ = s.SwitchMode(controls.Mode)
	}

	s.table.StepAll(s.Agents, s.behaviorContext(shipDelta))

	s.Asteroids = object.UpdateAll(s.Asteroids, ctx)
	s.Bullets = object.UpdateAll(s.Bullets, ctx)

	s.resolveCollisions()
}

// applyControls steers, fires and moves the ship. It returns the ship's
// displacement before wrapping.
func (s *Simulation) applyControls(c input.State, ctx object.UpdateContext) mgl64.Vec2 {
	var move mgl64.Vec2

	if !c.HandsPresent() {
		if !s.handsLost {
			s.logger.Warn("hand data missing, controls idle")
			s.handsLost = true
		}
	} else {
		if s.handsLost {
			s.logger.Info("hand data restored")
			s.handsLost = false
		}

		move = mgl64.Vec2{
			(c.Left.X - 0.5) * config.ControlGain,
			(c.Left.Y - 0.5) * config.ControlGain,
		}
		s.Ship.Move(move.X(), move.Y())

		if c.Heading != nil {
			s.Ship.Aim(*c.Heading)
		}
		if c.Shoot {
			s.Bullets = append(s.Bullets, s.Ship.Shoot())
		}
		if c.Boost {
			s.Ship.Boost = true
		}
	}

	s.Ship.Update(ctx)
	return move.Add(mgl64.Vec2{s.Ship.VX, s.Ship.VY})
}

// resolveCollisions records ship-asteroid overlaps and applies the policy.
func (s *Simulation) resolveCollisions() {
	hits := findCollisions(s.Ship, s.Asteroids, s.grid)

	s.collisions = s.collisions[:0]
	current := make(map[string]struct{}, len(hits))
	for _, i := range hits {
		a := s.Asteroids[i]
		ev := CollisionEvent{
			Tick:       s.tick,
			AsteroidID: a.ID,
			Distance:   physics.Distance(s.Ship.X, s.Ship.Y, a.X, a.Y),
			Threshold:  a.Size + s.Ship.Size,
		}
		s.collisions = append(s.collisions, ev)
		current[a.ID] = struct{}{}

		if _, seen := s.touching[a.ID]; seen {
			s.logger.Debug("collision", "asteroid", a.ID, "distance", ev.Distance)
		} else {
			s.logger.Info("collision detected", "asteroid", a.ID, "distance", ev.Distance, "tick", s.tick)
		}
	}
	s.touching = current

	if s.policy != PolicyDamage || len(hits) == 0 {
		return
	}

	s.Asteroids = removeIndices(s.Asteroids, hits)
	s.Ship.Health -= len(hits)
	if s.Ship.Health <= 0 {
		s.Ship.Health = 0
		s.gameOver = true
		s.running = false
		s.logger.Warn("ship destroyed, game paused", "tick", s.tick)
	}
}
