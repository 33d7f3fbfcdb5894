package client

import (
	"fmt"
	"math"
	"strings"

	"github.com/tomz197/swarmship/internal/draw"
	"github.com/tomz197/swarmship/internal/loop"
	"github.com/tomz197/swarmship/internal/loop/config"
)

const (
	barsHeight = 3
	helpText   = "space start/pause  r reset  1/2/3 mode  arrows steer  f fire  b boost  q quit"
)

// drawFrame draws the latest snapshot.
func (c *Client) drawFrame() error {
	snap := c.game.Snapshot()
	if snap == nil {
		return nil
	}

	if snap.Bounds != c.bounds && snap.Bounds.Width > 0 && snap.Bounds.Height > 0 {
		c.bounds = snap.Bounds
		c.canvas.SetLogicalSize(float64(c.bounds.Width), float64(c.bounds.Height))
		c.chunkWriter.Clear()
		c.canvas.ForceRedraw()
	}
	if c.banner && !snap.GameOver {
		// The banner was written over canvas cells
		c.canvas.ForceRedraw()
	}
	c.banner = snap.GameOver

	c.canvas.Clear()
	c.drawWorld(snap)

	if err := c.canvas.Render(c.chunkWriter); err != nil {
		return err
	}
	if err := c.canvas.RenderBorder(c.chunkWriter); err != nil {
		return err
	}
	c.drawUI(snap)

	return c.chunkWriter.Flush()
}

// drawWorld draws every entity of the snapshot onto the canvas.
func (c *Client) drawWorld(snap *loop.Snapshot) {
	for _, p := range snap.Planets {
		c.canvas.DrawCircle(p.X, p.Y, p.Radius)
	}
	for _, a := range snap.Asteroids {
		c.canvas.FillCircle(a.X, a.Y, a.Size)
	}
	for _, a := range snap.Agents {
		c.canvas.FillCircle(a.X, a.Y, config.AgentSize/2)
	}
	for _, b := range snap.Bullets {
		c.canvas.SetFloat(b.X, b.Y)
	}
	c.drawShip(snap)
}

// drawShip draws the ship as a triangle pointing along its heading.
func (c *Client) drawShip(snap *loop.Snapshot) {
	ship := snap.Ship
	var pts [3]draw.Point
	pts[0] = draw.Point{
		X: ship.X + ship.Size*math.Cos(ship.Angle),
		Y: ship.Y + ship.Size*math.Sin(ship.Angle),
	}
	for i, side := range []float64{-1, 1} {
		a := ship.Angle + side*0.8*math.Pi
		pts[i+1] = draw.Point{
			X: ship.X + 0.6*ship.Size*math.Cos(a),
			Y: ship.Y + 0.6*ship.Size*math.Sin(a),
		}
	}
	c.canvas.DrawPolygon(pts[:], true)
}

// drawUI draws the status lines, the frequency bars and the help line.
func (c *Client) drawUI(snap *loop.Snapshot) {
	view := c.canvas.Viewport()
	width, height := view.Width, view.Height
	if width <= 0 || height <= 0 {
		return
	}

	state := "paused"
	if snap.Running {
		state = "running"
	}
	status := fmt.Sprintf(" tick %d | %s | %s | health %d | agents %d | asteroids %d",
		snap.Tick, snap.ModeName, state, snap.Ship.Health, len(snap.Agents), len(snap.Asteroids))
	if len(snap.Collisions) > 0 {
		status += fmt.Sprintf(" | collisions %d", len(snap.Collisions))
	}
	c.chunkWriter.Line(1, width, status)

	mission := " mission: " + snap.Mission
	if snap.Advice != "" {
		mission += " | ai: " + snap.Advice
	}
	c.chunkWriter.Line(2, width, mission)

	if snap.GameOver {
		c.chunkWriter.Centered(height/2, width, "SHIP DESTROYED - press r to reset")
	}

	if height > barsHeight+3 {
		c.chunkWriter.Bars(1, height-1, width, barsHeight, snap.Spectrum, 255)
	}

	var feeds []string
	for _, f := range snap.Feeds {
		feeds = append(feeds, fmt.Sprintf("%s:%s", f.Name, f.State))
	}
	footer := " pilot " + c.username
	if len(feeds) > 0 {
		footer += " | " + strings.Join(feeds, " ")
	}
	if c.message != "" {
		footer += " | " + c.message
	}
	footer += " | " + helpText
	c.chunkWriter.Line(height, width, footer)
}
