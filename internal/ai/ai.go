// Package ai talks to the decision backend: an observation of the game goes
// out, an action name comes back.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/charmbracelet/log"

	"github.com/tomz197/swarmship/internal/loop"
	"github.com/tomz197/swarmship/internal/physics"
)

var (
	// ErrBadStatus is returned when the backend answers with a non-2xx status.
	ErrBadStatus = errors.New("ai backend returned an error status")
	// ErrNoAction is returned when the backend answer carries no action.
	ErrNoAction = errors.New("ai backend returned no action")
)

// Actions the local decision stub can return.
const (
	ActionEvade   = "evade"
	ActionCollect = "collect"
	ActionExplore = "explore"
)

// PlanetInfo is what the backend sees of a planet.
type PlanetInfo struct {
	Name          string  `json:"name"`
	Resources     int     `json:"resources"`
	EnemyPresence bool    `json:"enemyPresence"`
	Distance      float64 `json:"distance"` // From the ship
}

// Observation summarizes the game for the backend.
type Observation struct {
	Tick            uint64       `json:"tick"`
	Mode            int          `json:"mode"`
	ShipX           float64      `json:"shipX"`
	ShipY           float64      `json:"shipY"`
	ShipHealth      int          `json:"shipHealth"`
	Asteroids       int          `json:"asteroids"`
	NearestAsteroid float64      `json:"nearestAsteroid"` // Surface distance, -1 without asteroids
	Agents          int          `json:"agents"`
	Planets         []PlanetInfo `json:"planets"`
	Mission         string       `json:"mission"`
}

// Request is the body posted to the backend.
type Request struct {
	Observation Observation `json:"observation"`
}

// Response is the body the backend answers with.
type Response struct {
	Action string `json:"action"`
}

// Observe builds an observation from a snapshot.
func Observe(snap *loop.Snapshot) Observation {
	obs := Observation{
		Tick:            snap.Tick,
		Mode:            int(snap.Mode),
		ShipX:           snap.Ship.X,
		ShipY:           snap.Ship.Y,
		ShipHealth:      snap.Ship.Health,
		Asteroids:       len(snap.Asteroids),
		NearestAsteroid: -1,
		Agents:          len(snap.Agents),
		Planets:         make([]PlanetInfo, 0, len(snap.Planets)),
		Mission:         snap.Mission,
	}

	nearest := math.Inf(1)
	for _, a := range snap.Asteroids {
		d := physics.Distance(snap.Ship.X, snap.Ship.Y, a.X, a.Y) - a.Size - snap.Ship.Size
		nearest = math.Min(nearest, d)
	}
	if !math.IsInf(nearest, 1) {
		obs.NearestAsteroid = nearest
	}

	for _, p := range snap.Planets {
		obs.Planets = append(obs.Planets, PlanetInfo{
			Name:          p.Name,
			Resources:     p.Resources,
			EnemyPresence: p.EnemyPresence,
			Distance:      physics.Distance(snap.Ship.X, snap.Ship.Y, p.X, p.Y),
		})
	}
	return obs
}

// evadeDistance is the surface distance under which the stub advises evasion.
const evadeDistance = 50.0

// Decide is the local stand-in for the backend. It is a fixed rule, not a
// learned policy.
func Decide(obs Observation) string {
	if obs.NearestAsteroid >= 0 && obs.NearestAsteroid < evadeDistance {
		return ActionEvade
	}

	best := -1
	for i, p := range obs.Planets {
		if p.Resources == 0 || p.EnemyPresence {
			continue
		}
		if best < 0 || p.Distance < obs.Planets[best].Distance {
			best = i
		}
	}
	if best >= 0 {
		return ActionCollect + ":" + obs.Planets[best].Name
	}
	return ActionExplore
}

// Client posts observations to the backend endpoint.
type Client struct {
	endpoint string
	http     *http.Client
	logger   *log.Logger
}

// NewClient creates a client for endpoint. Requests time out after timeout.
func NewClient(endpoint string, timeout time.Duration, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.Default()
	}
	return &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: timeout},
		logger:   logger.WithPrefix("ai"),
	}
}

// Action asks the backend for an action.
func (c *Client) Action(ctx context.Context, obs Observation) (string, error) {
	body, err := json.Marshal(Request{Observation: obs})
	if err != nil {
		return "", fmt.Errorf("encode observation: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("post observation: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("%w: %d %s", ErrBadStatus, resp.StatusCode, bytes.TrimSpace(msg))
	}

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode action: %w", err)
	}
	if out.Action == "" {
		return "", ErrNoAction
	}

	c.logger.Debug("action received", "action", out.Action, "tick", obs.Tick)
	return out.Action, nil
}

// Advise asks the backend what to do given a snapshot.
func (c *Client) Advise(ctx context.Context, snap *loop.Snapshot) (string, error) {
	return c.Action(ctx, Observe(snap))
}
