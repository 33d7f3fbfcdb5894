// Package client renders simulation snapshots to a terminal and turns key
// presses into game commands.
package client

import (
	"bufio"
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
	petname "github.com/dustinkirkland/golang-petname"

	"github.com/tomz197/swarmship/internal/draw"
	"github.com/tomz197/swarmship/internal/input"
	"github.com/tomz197/swarmship/internal/loop"
	"github.com/tomz197/swarmship/internal/loop/config"
	"github.com/tomz197/swarmship/internal/mode"
)

// Game is the side of the tick server a terminal client talks to.
type Game interface {
	Snapshot() *loop.Snapshot
	Start() error
	Pause() error
	Reset() error
	SetMode(m mode.Mode) error
	Controls() *input.Controls
}

// Client handles rendering and input for a single terminal.
type Client struct {
	game         Game
	canvas       *draw.Canvas
	chunkWriter  *draw.ChunkWriter // Accumulates UI text for chunked output
	writer       io.Writer
	inputStream  *input.Stream
	termSizeFunc draw.TermSizeFunc
	logger       *log.Logger
	username     string

	running  bool
	steering bool   // Keyboard steering was active last frame
	message  string // Last command feedback shown in the status line
	bounds   loop.Bounds
	banner   bool // Game-over banner drawn on the last frame
}

// ClientOptions configures the client.
type ClientOptions struct {
	TermSizeFunc draw.TermSizeFunc
	Username     string
	Logger       *log.Logger
}

// NewClient creates a client rendering g.
func NewClient(g Game, r *bufio.Reader, w io.Writer, opts ClientOptions) *Client {
	termSizeFunc := opts.TermSizeFunc
	if termSizeFunc == nil {
		termSizeFunc = draw.DefaultTermSizeFunc
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	bounds := loop.Bounds{Width: config.CanvasWidth, Height: config.CanvasHeight}
	if snap := g.Snapshot(); snap != nil {
		bounds = snap.Bounds
	}

	termWidth, termHeight, _ := termSizeFunc()
	view := viewport(termWidth, termHeight)
	canvas := draw.NewScaledCanvas(view.Width, view.Height, float64(bounds.Width), float64(bounds.Height))
	canvas.SetViewport(view)

	return &Client{
		game:         g,
		canvas:       canvas,
		chunkWriter:  draw.NewChunkWriter(w, view.OffsetCol, view.OffsetRow),
		writer:       w,
		inputStream:  input.StartStream(r),
		termSizeFunc: termSizeFunc,
		logger:       logger.WithPrefix("client"),
		username:     callsign(opts.Username),
		running:      true,
		bounds:       bounds,
	}
}

// Run starts the client loop. Blocks until the player quits, the input closes
// or ctx ends.
func (c *Client) Run(ctx context.Context) error {
	draw.EnterScreen(c.writer)
	defer draw.LeaveScreen(c.writer)

	for c.running {
		select {
		case <-ctx.Done():
			c.running = false
			continue
		default:
		}

		frameStart := time.Now()

		c.processInput()
		c.updateScreen()

		if err := c.drawFrame(); err != nil {
			return err
		}

		// Frame timing
		elapsed := time.Since(frameStart)
		if elapsed < config.ClientTargetFrameTime {
			time.Sleep(config.ClientTargetFrameTime - elapsed)
		}
	}
	return nil
}

// processInput reads keys and forwards them to the game.
func (c *Client) processInput() {
	c.handleKeys(input.ReadKeys(c.inputStream))
}

func (c *Client) handleKeys(k input.Keys) {
	if k.Quit || k.Closed {
		c.running = false
		return
	}

	if k.Toggle {
		snap := c.game.Snapshot()
		if snap != nil && snap.Running {
			c.command("paused", c.game.Pause())
		} else {
			c.command("started", c.game.Start())
		}
	}
	if k.Reset {
		c.command("reset", c.game.Reset())
	}
	if k.Mode != 0 {
		m := mode.Mode(k.Mode)
		c.command("mode "+m.String(), c.game.SetMode(m))
	}

	// Keys stand in for the hand tracker while held; releasing them
	// recenters the pose once.
	active := k.Steering() || k.Fire || k.Boost
	if active || c.steering {
		c.game.Controls().SetFrame(k.Frame())
	}
	c.steering = active
}

func (c *Client) command(done string, err error) {
	if err != nil {
		c.logger.Warn("command failed", "user", c.username, "err", err)
		c.message = err.Error()
		return
	}
	c.message = done
}

// updateScreen follows terminal resizes. A changed viewport clears the
// terminal so old borders and offset content disappear.
func (c *Client) updateScreen() {
	termWidth, termHeight, err := c.termSizeFunc()
	if err != nil {
		return
	}

	view := viewport(termWidth, termHeight)
	if view == c.canvas.Viewport() {
		return
	}
	c.chunkWriter.Clear()
	c.canvas.SetViewport(view)
	c.canvas.ForceRedraw()
	c.chunkWriter.SetOffset(view.OffsetCol, view.OffsetRow)
}

// callsign names the pilot of a session. Anonymous sessions get a generated
// name such as "brave-otter".
func callsign(username string) string {
	if username != "" {
		return username
	}
	return petname.Generate(2, "-")
}

// viewport clamps a terminal to the max render resolution.
func viewport(termWidth, termHeight int) draw.Viewport {
	return draw.FitViewport(termWidth, termHeight, config.MaxTermWidth, config.MaxTermHeight)
}
