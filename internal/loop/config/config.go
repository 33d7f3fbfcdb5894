// Package config centralizes all tunable game parameters.
package config

import "time"

// Canvas - logical dimensions of the simulated area.
// Renderers scale this to whatever surface they draw on.
const (
	CanvasWidth  = 800
	CanvasHeight = 600
)

// Spaceship
const (
	SpaceshipSize   = 40.0
	SpaceshipHealth = 3
	ControlGain     = 20.0 // Displacement per unit of hand offset from center
	BulletSpeed     = 10.0
	BoostFactor     = 1.2
)

// Asteroids
const (
	InitialAsteroids = 20
	AsteroidMinSize  = 20.0
	AsteroidMaxSize  = 70.0 // Exclusive
	AsteroidMaxSpeed = 1.0  // Per axis, velocity in [-max, max)
)

// Agents
const (
	SingleAgents     = 1
	SwarmAgents      = 10
	AutonomousAgents = 15
	AgentSize        = 20.0

	ExploreJitter  = 2.0  // Random walk amplitude per axis
	ApproachFactor = 0.05 // Fraction of the remaining distance covered per tick
	CollectorSpeed = 2.0
	CollectRate    = 1   // Resources taken per tick while docked
	DefenderRange  = 200 // Asteroids this close to the ship draw defenders
)

// Planets (procedural content)
const (
	InitialPlanets      = 6
	PlanetMinRadius     = 15.0
	PlanetMaxRadius     = 35.0
	PlanetResources     = 100 // Exclusive upper bound
	PlanetNameSyllables = 2
)

// Audio visualization
const (
	SpectrumFFTSize = 256
	SpectrumBins    = SpectrumFFTSize / 2
)

// Server tick rate
const (
	ServerTickRate = 60
	ServerTickTime = time.Second / ServerTickRate
)

// Client rendering
const (
	ClientTargetFPS       = 30
	ClientTargetFrameTime = time.Second / ClientTargetFPS
	MaxTermWidth          = 200
	MaxTermHeight         = 60
)

// Snapshot stream
const (
	StreamInterval   = 50 * time.Millisecond
	StreamQueueDepth = 4
)

// Shutdown
const (
	ShutdownTimeout = 5 * time.Second
)
