package loop

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomz197/swarmship/internal/input"
	"github.com/tomz197/swarmship/internal/mode"
	"github.com/tomz197/swarmship/internal/object"
)

func newTestSim(t *testing.T, policy CollisionPolicy) *Simulation {
	t.Helper()
	return NewSimulation(Options{
		Width:  800,
		Height: 600,
		Policy: policy,
		Rand:   rand.New(rand.NewSource(11)),
		Logger: log.New(&strings.Builder{}),
	})
}

func hands(x, y float64) input.State {
	return input.State{Left: &input.Point{X: x, Y: y}}
}

func TestNewSimulationDefaults(t *testing.T) {
	s := newTestSim(t, PolicyReport)

	assert.False(t, s.Running())
	assert.Equal(t, mode.Single, s.Mode())
	assert.Len(t, s.Asteroids, 20)
	assert.Len(t, s.Planets, 6)
	assert.Empty(t, s.Bullets)
	require.Len(t, s.Agents, 1)
	assert.Equal(t, object.KindExplorer, s.Agents[0].Kind)
	assert.Equal(t, object.ControlManual, s.Agents[0].Control)
	assert.Equal(t, 400.0, s.Ship.X)
	assert.Equal(t, 300.0, s.Ship.Y)
	assert.NotEmpty(t, s.Mission)
}

func TestAsteroidWrapScenario(t *testing.T) {
	s := newTestSim(t, PolicyReport)
	a := object.NewAsteroid(795, 300, 2, 0, 20)
	s.Asteroids = []*object.Asteroid{a}

	want := []float64{797, 799, 0}
	for _, x := range want {
		s.Step(input.State{})
		assert.Equal(t, x, a.X)
	}
}

func TestBulletsPrunedOutsideBounds(t *testing.T) {
	s := newTestSim(t, PolicyReport)
	s.Asteroids = nil
	s.Ship.X, s.Ship.Y = 785, 300
	s.Ship.Aim(0)

	// Centered hands: no displacement, fire once
	st := hands(0.5, 0.5)
	st.Shoot = true
	s.Step(st)
	require.Len(t, s.Bullets, 1)
	assert.Equal(t, 795.0, s.Bullets[0].X) // moved in the same tick

	// Collections never hold an out-of-bounds bullet past the next step
	s.Step(hands(0.5, 0.5))
	assert.Empty(t, s.Bullets)

	s.Step(hands(0.5, 0.5))
	assert.Empty(t, s.Bullets)
}

func TestControlsMoveShip(t *testing.T) {
	s := newTestSim(t, PolicyReport)
	s.Asteroids = nil
	manual := s.Agents[0]
	manual.X, manual.Y = 100, 100

	s.Step(hands(0.75, 0.25))

	assert.Equal(t, 405.0, s.Ship.X)
	assert.Equal(t, 295.0, s.Ship.Y)
	assert.InDelta(t, 105.0, manual.X, 1e-9)
	assert.InDelta(t, 95.0, manual.Y, 1e-9)
}

func TestMissingHandsSkipControls(t *testing.T) {
	s := newTestSim(t, PolicyReport)
	s.Asteroids = nil

	st := input.State{Shoot: true, Boost: true}
	s.Step(st)
	s.Step(st)

	assert.Equal(t, 400.0, s.Ship.X)
	assert.Empty(t, s.Bullets)
	assert.False(t, s.Ship.Boost)
}

func TestHeadingFromControls(t *testing.T) {
	s := newTestSim(t, PolicyReport)
	s.Asteroids = nil
	st := hands(0.5, 0.5)
	heading := 0.0
	st.Heading = &heading
	st.Shoot = true

	s.Step(st)

	require.Len(t, s.Bullets, 1)
	assert.InDelta(t, 0.0, s.Ship.Angle, 1e-9)
	assert.InDelta(t, 10.0, s.Bullets[0].VX, 1e-9)
}

func TestBoostMultipliesVelocityOnce(t *testing.T) {
	s := newTestSim(t, PolicyReport)
	s.Asteroids = nil
	s.Ship.VX = 1

	st := hands(0.5, 0.5)
	st.Boost = true
	s.Step(st)
	assert.InDelta(t, 1.2, s.Ship.VX, 1e-9)
	assert.InDelta(t, 401.2, s.Ship.X, 1e-9)

	s.Step(hands(0.5, 0.5))
	assert.InDelta(t, 1.2, s.Ship.VX, 1e-9)
}

func TestCollisionBoundary(t *testing.T) {
	s := newTestSim(t, PolicyReport)

	touching := object.NewAsteroid(470, 300, 0, 0, 30) // distance 70 == 30 + 40
	s.Asteroids = []*object.Asteroid{touching}
	s.Step(input.State{})
	assert.Empty(t, s.Collisions())

	overlapping := object.NewAsteroid(469.5, 300, 0, 0, 30)
	s.Asteroids = []*object.Asteroid{overlapping}
	s.Step(input.State{})
	require.Len(t, s.Collisions(), 1)
	ev := s.Collisions()[0]
	assert.Equal(t, overlapping.ID, ev.AsteroidID)
	assert.InDelta(t, 69.5, ev.Distance, 1e-9)
	assert.Equal(t, 70.0, ev.Threshold)

	// Report policy keeps everything
	assert.Len(t, s.Asteroids, 1)
	assert.Equal(t, 3, s.Ship.Health)
}

func TestCollisionAcrossGridCells(t *testing.T) {
	s := newTestSim(t, PolicyReport)
	s.Ship.X, s.Ship.Y = 108, 108
	s.Asteroids = []*object.Asteroid{
		object.NewAsteroid(170, 170, 0, 0, 60), // different cell, distance ~87.7
		object.NewAsteroid(700, 500, 0, 0, 60),
	}

	s.Step(input.State{})
	require.Len(t, s.Collisions(), 1)
	assert.Equal(t, s.Asteroids[0].ID, s.Collisions()[0].AsteroidID)
}

func TestDamagePolicy(t *testing.T) {
	s := newTestSim(t, PolicyDamage)
	require.True(t, s.Start())

	for i := 0; i < 3; i++ {
		s.Asteroids = []*object.Asteroid{
			object.NewAsteroid(400, 300, 0, 0, 20),
			object.NewAsteroid(100, 100, 0, 0, 20),
		}
		s.Step(input.State{})
		assert.Len(t, s.Asteroids, 1)
	}

	assert.Zero(t, s.Ship.Health)
	assert.False(t, s.Running())
	assert.True(t, s.Snapshot().GameOver)
	assert.False(t, s.Start())

	s.Reset()
	assert.True(t, s.Start())
	assert.Equal(t, 3, s.Ship.Health)
}

func TestSwitchModePopulation(t *testing.T) {
	s := newTestSim(t, PolicyReport)

	require.NoError(t, s.SwitchMode(mode.Autonomous))
	require.Len(t, s.Agents, 15)
	for _, a := range s.Agents {
		assert.Equal(t, object.KindAutonomousCollector, a.Kind)
		assert.Equal(t, object.ControlAutonomous, a.Control)
	}

	for _, from := range []mode.Mode{mode.Single, mode.Swarm, mode.Autonomous} {
		require.NoError(t, s.SwitchMode(from))
		require.NoError(t, s.SwitchMode(mode.Swarm))
		require.Len(t, s.Agents, 10)
		for _, a := range s.Agents {
			assert.Equal(t, object.KindSwarmScout, a.Kind)
		}
	}

	assert.ErrorIs(t, s.SwitchMode(mode.Mode(7)), mode.ErrUnknownMode)
	assert.Equal(t, mode.Swarm, s.Mode())
	assert.Len(t, s.Agents, 10)
}

func TestSwarmActivationPrimesAgents(t *testing.T) {
	s := newTestSim(t, PolicyReport)
	require.NoError(t, s.SwitchMode(mode.Swarm))

	for _, a := range s.Agents {
		// One approach step already happened, so the displacement is recorded
		assert.False(t, a.VX == 0 && a.VY == 0)
	}
}

func TestPendingModeAppliedDuringStep(t *testing.T) {
	s := newTestSim(t, PolicyReport)
	s.Step(input.State{Mode: mode.Swarm})

	assert.Equal(t, mode.Swarm, s.Mode())
	assert.Len(t, s.Agents, 10)
}

func TestResetKeepsModeAndPauses(t *testing.T) {
	s := newTestSim(t, PolicyReport)
	require.NoError(t, s.SwitchMode(mode.Autonomous))
	s.Start()
	s.Step(hands(1, 1))
	s.Bullets = append(s.Bullets, object.NewBullet(10, 10, 0))

	s.Reset()

	assert.False(t, s.Running())
	assert.Zero(t, s.Tick())
	assert.Equal(t, mode.Autonomous, s.Mode())
	assert.Len(t, s.Agents, 15)
	assert.Empty(t, s.Bullets)
	assert.Equal(t, 400.0, s.Ship.X)
}

func TestResize(t *testing.T) {
	s := newTestSim(t, PolicyReport)
	s.Ship.X = 700

	require.NoError(t, s.Resize(640, 480))
	assert.Equal(t, 640, s.Screen().Width)
	assert.Equal(t, 0.0, s.Ship.X)

	assert.ErrorIs(t, s.Resize(0, 480), ErrInvalidBounds)
	assert.Equal(t, 640, s.Screen().Width)

	snap := s.Snapshot()
	assert.Equal(t, Bounds{Width: 640, Height: 480}, snap.Bounds)
}

func TestSnapshotIsACopy(t *testing.T) {
	s := newTestSim(t, PolicyReport)
	snap := s.Snapshot()

	s.Asteroids[0].X = -1000
	s.Ship.X = -1000
	s.Step(input.State{})

	assert.NotEqual(t, -1000.0, snap.Asteroids[0].X)
	assert.Equal(t, 400.0, snap.Ship.X)
	assert.Equal(t, "single", snap.ModeName)
	assert.Equal(t, uint64(0), snap.Tick)
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("DAMAGE")
	require.NoError(t, err)
	assert.Equal(t, PolicyDamage, p)

	p, err = ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyReport, p)

	_, err = ParsePolicy("explode")
	assert.ErrorIs(t, err, ErrUnknownPolicy)
}
