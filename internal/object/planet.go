package object

// Planet is a resource deposit collector agents draw from.
type Planet struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	X             float64 `json:"x"`
	Y             float64 `json:"y"`
	Radius        float64 `json:"radius"`
	Resources     int     `json:"resources"`
	EnemyPresence bool    `json:"enemyPresence"`
}

// NewPlanet creates a planet.
func NewPlanet(name string, x, y, radius float64, resources int, enemies bool) *Planet {
	return &Planet{
		ID:            newID(),
		Name:          name,
		X:             x,
		Y:             y,
		Radius:        radius,
		Resources:     resources,
		EnemyPresence: enemies,
	}
}

// Depleted reports whether the planet has no resources left.
func (p *Planet) Depleted() bool {
	return p.Resources <= 0
}

// Take removes up to n resources and returns how many were taken.
func (p *Planet) Take(n int) int {
	if n > p.Resources {
		n = p.Resources
	}
	if n < 0 {
		n = 0
	}
	p.Resources -= n
	return n
}
