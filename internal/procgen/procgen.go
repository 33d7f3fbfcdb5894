// Package procgen generates planets and missions for a fresh game.
package procgen

import (
	"math/rand"
	"strings"

	"github.com/tomz197/swarmship/internal/loop/config"
	"github.com/tomz197/swarmship/internal/object"
)

// Missions are the objectives a game can start with.
var Missions = []string{
	"Explore new planet",
	"Defeat enemy fleet",
	"Gather rare resources",
}

// nameSyllables are joined to form planet names.
var nameSyllables = []string{
	"Xar", "Quo", "Val", "Tuk", "Zim", "Ark", "Bel", "Cor", "Dra", "Eon",
	"Fyr", "Gal", "Hel", "Ith", "Jov", "Kel", "Lun", "Mor", "Nyx", "Orb",
	"Pyr", "Rho", "Syl", "Tor", "Umb", "Vex", "Wyn", "Yar", "Zor",
}

// Generator produces procedural content from a seeded source.
type Generator struct {
	rng *rand.Rand
}

// New creates a generator drawing from rng.
func New(rng *rand.Rand) *Generator {
	return &Generator{rng: rng}
}

// PlanetName returns a generated name such as "Xarquo". The same seed
// yields the same names.
func (g *Generator) PlanetName() string {
	var b strings.Builder
	for i := 0; i < config.PlanetNameSyllables; i++ {
		syl := nameSyllables[g.rng.Intn(len(nameSyllables))]
		if i > 0 {
			syl = strings.ToLower(syl)
		}
		b.WriteString(syl)
	}
	return b.String()
}

// Planet creates a planet at a random position on screen, with resources in
// [0,PlanetResources) and enemies present half of the time.
func (g *Generator) Planet(screen object.Screen) *object.Planet {
	x, y := screen.RandomPoint(g.rng)
	radius := config.PlanetMinRadius + g.rng.Float64()*(config.PlanetMaxRadius-config.PlanetMinRadius)
	resources := g.rng.Intn(config.PlanetResources)
	enemies := g.rng.Float64() > 0.5
	return object.NewPlanet(g.PlanetName(), x, y, radius, resources, enemies)
}

// Planets creates n planets.
func (g *Generator) Planets(screen object.Screen, n int) []*object.Planet {
	planets := make([]*object.Planet, 0, max(n, 0))
	for i := 0; i < n; i++ {
		planets = append(planets, g.Planet(screen))
	}
	return planets
}

// Mission picks one of Missions.
func (g *Generator) Mission() string {
	return Missions[g.rng.Intn(len(Missions))]
}
