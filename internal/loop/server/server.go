// Package server runs the tick loop that owns the simulation and publishes
// snapshots to renderers.
package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/tomz197/swarmship/internal/feed"
	"github.com/tomz197/swarmship/internal/input"
	"github.com/tomz197/swarmship/internal/loop"
	"github.com/tomz197/swarmship/internal/loop/config"
	"github.com/tomz197/swarmship/internal/mode"
)

var (
	// ErrQueueFull is returned when a command cannot be queued without blocking.
	ErrQueueFull = errors.New("command queue full")
	// ErrStopped is returned for subscriptions after the server stopped.
	ErrStopped = errors.New("server stopped")
)

const commandQueueDepth = 16

// CommandKind identifies a UI command.
type CommandKind int

const (
	CmdStart CommandKind = iota
	CmdPause
	CmdReset
	CmdMode
	CmdResize
)

func (k CommandKind) String() string {
	switch k {
	case CmdStart:
		return "start"
	case CmdPause:
		return "pause"
	case CmdReset:
		return "reset"
	case CmdMode:
		return "mode"
	case CmdResize:
		return "resize"
	default:
		return "unknown"
	}
}

// Command is a request from a UI surface, applied at the start of a tick.
type Command struct {
	Kind   CommandKind
	Mode   mode.Mode
	Width  int
	Height int
}

// SpectrumSource provides the latest frequency bins.
type SpectrumSource interface {
	Spectrum() []uint8
}

// FeedStatus reports the state of an input channel.
type FeedStatus interface {
	Status() feed.Status
}

// Advisor is asked for an action when the autonomous mode activates.
type Advisor interface {
	Advise(ctx context.Context, snap *loop.Snapshot) (string, error)
}

// Options configures a Server.
type Options struct {
	Sim           *loop.Simulation
	Controls      *input.Controls
	Spectrum      SpectrumSource // Optional
	Feeds         []FeedStatus
	Advisor       Advisor // Optional
	AdviceTimeout time.Duration
	TickTime      time.Duration
	Logger        *log.Logger
}

// Server owns the simulation. Run is the only goroutine that touches it;
// everything else goes through commands, the control slot and snapshots.
type Server struct {
	sim      *loop.Simulation
	controls *input.Controls
	spectrum SpectrumSource
	feeds    []FeedStatus
	advisor  Advisor
	timeout  time.Duration
	tickTime time.Duration
	logger   *log.Logger

	commands chan Command
	snapshot atomic.Pointer[loop.Snapshot]
	lastMode mode.Mode
	advising sync.WaitGroup

	adviceMu  sync.Mutex
	advice    string
	adviceGen uint64 // Bumped per request and by reset; older answers are dropped

	mu      sync.Mutex
	subs    map[int]chan *loop.Snapshot
	nextSub int
	stopped bool
}

// New creates a server and publishes the initial snapshot.
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.TickTime <= 0 {
		opts.TickTime = config.ServerTickTime
	}
	if opts.AdviceTimeout <= 0 {
		opts.AdviceTimeout = 2 * time.Second
	}
	if opts.Controls == nil {
		opts.Controls = input.NewControls(opts.Logger)
	}

	s := &Server{
		sim:      opts.Sim,
		controls: opts.Controls,
		spectrum: opts.Spectrum,
		feeds:    opts.Feeds,
		advisor:  opts.Advisor,
		timeout:  opts.AdviceTimeout,
		tickTime: opts.TickTime,
		logger:   opts.Logger.WithPrefix("server"),
		commands: make(chan Command, commandQueueDepth),
		lastMode: opts.Sim.Mode(),
		subs:     make(map[int]chan *loop.Snapshot),
	}
	s.publish()
	return s
}

// Controls returns the control slot the tick loop reads.
func (s *Server) Controls() *input.Controls {
	return s.controls
}

// Send queues a command for the next tick without blocking.
func (s *Server) Send(cmd Command) error {
	select {
	case s.commands <- cmd:
		return nil
	default:
		s.logger.Warn("command dropped", "command", cmd.Kind)
		return fmt.Errorf("%w: %s", ErrQueueFull, cmd.Kind)
	}
}

// Start queues a start command.
func (s *Server) Start() error {
	return s.Send(Command{Kind: CmdStart})
}

// Pause queues a pause command.
func (s *Server) Pause() error {
	return s.Send(Command{Kind: CmdPause})
}

// Reset queues a reset command.
func (s *Server) Reset() error {
	return s.Send(Command{Kind: CmdReset})
}

// SetMode queues a mode change. Unknown modes are rejected right away.
func (s *Server) SetMode(m mode.Mode) error {
	if !m.Valid() {
		return fmt.Errorf("%w: %d", mode.ErrUnknownMode, int(m))
	}
	return s.Send(Command{Kind: CmdMode, Mode: m})
}

// Resize queues a bounds change. Non-positive sizes are rejected right away.
func (s *Server) Resize(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: %dx%d", loop.ErrInvalidBounds, width, height)
	}
	return s.Send(Command{Kind: CmdResize, Width: width, Height: height})
}

// Snapshot returns the latest published snapshot.
func (s *Server) Snapshot() *loop.Snapshot {
	return s.snapshot.Load()
}

// Subscribe registers for every published snapshot. Slow subscribers miss
// snapshots instead of stalling the tick loop. The channel is closed when the
// server stops or the returned cancel func is called.
func (s *Server) Subscribe() (<-chan *loop.Snapshot, func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return nil, nil, ErrStopped
	}

	id := s.nextSub
	s.nextSub++
	ch := make(chan *loop.Snapshot, config.StreamQueueDepth)
	s.subs[id] = ch

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if c, ok := s.subs[id]; ok {
			close(c)
			delete(s.subs, id)
		}
	}
	return ch, cancel, nil
}

// Run ticks until the context is cancelled. Blocks.
func (s *Server) Run(ctx context.Context) {
	s.logger.Info("tick loop started", "interval", s.tickTime)
	defer s.stop()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		frameStart := time.Now()
		s.tick(ctx)

		// Frame timing
		elapsed := time.Since(frameStart)
		if elapsed < s.tickTime {
			time.Sleep(s.tickTime - elapsed)
		}
	}
}

// stop waits for pending advice and closes every subscription.
func (s *Server) stop() {
	s.advising.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	for id, ch := range s.subs {
		close(ch)
		delete(s.subs, id)
	}
	s.logger.Info("tick loop stopped", "tick", s.sim.Tick())
}

// tick applies queued commands, steps the simulation when it runs and
// publishes a snapshot.
func (s *Server) tick(ctx context.Context) {
	s.applyCommands()

	controls := s.controls.Consume()
	if s.sim.Running() {
		s.sim.Step(controls)
	} else if controls.Mode != 0 {
		// Voice commands still switch modes while paused
		_ = s.sim.SwitchMode(controls.Mode)
	}

	if m := s.sim.Mode(); m != s.lastMode {
		if m == mode.Autonomous {
			s.requestAdvice(ctx)
		}
		s.lastMode = m
	}

	s.publish()
}

// applyCommands drains the command queue.
func (s *Server) applyCommands() {
	for {
		select {
		case cmd := <-s.commands:
			s.apply(cmd)
		default:
			return
		}
	}
}

func (s *Server) apply(cmd Command) {
	switch cmd.Kind {
	case CmdStart:
		if s.sim.Start() {
			s.logger.Info("game started")
		}
	case CmdPause:
		s.sim.Pause()
		s.logger.Info("game paused")
	case CmdReset:
		s.sim.Reset()
		s.controls.Reset()
		s.clearAdvice()
		if s.sim.Mode() == mode.Autonomous {
			s.lastMode = 0 // The rebuilt swarm gets fresh advice
		}
	case CmdMode:
		_ = s.sim.SwitchMode(cmd.Mode)
	case CmdResize:
		if err := s.sim.Resize(cmd.Width, cmd.Height); err != nil {
			s.logger.Warn("resize ignored", "err", err)
		}
	default:
		s.logger.Warn("unknown command", "kind", int(cmd.Kind))
	}
}

// requestAdvice asks the advisor in the background; the answer shows up in
// later snapshots.
func (s *Server) requestAdvice(ctx context.Context) {
	if s.advisor == nil {
		return
	}

	snap := s.sim.Snapshot()
	s.adviceMu.Lock()
	s.adviceGen++
	gen := s.adviceGen
	s.adviceMu.Unlock()

	s.advising.Add(1)
	go func() {
		defer s.advising.Done()

		ctx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()

		action, err := s.advisor.Advise(ctx, snap)
		if err != nil {
			s.logger.Warn("ai advice unavailable", "err", err)
			return
		}
		if !s.storeAdvice(gen, action) {
			s.logger.Debug("stale ai advice dropped", "action", action, "tick", snap.Tick)
			return
		}
		s.logger.Info("ai advice", "action", action, "tick", snap.Tick)
	}()
}

// storeAdvice keeps action if no newer request or reset happened since gen.
func (s *Server) storeAdvice(gen uint64, action string) bool {
	s.adviceMu.Lock()
	defer s.adviceMu.Unlock()
	if gen != s.adviceGen {
		return false
	}
	s.advice = action
	return true
}

func (s *Server) clearAdvice() {
	s.adviceMu.Lock()
	s.adviceGen++
	s.advice = ""
	s.adviceMu.Unlock()
}

func (s *Server) currentAdvice() string {
	s.adviceMu.Lock()
	defer s.adviceMu.Unlock()
	return s.advice
}

// publish stores a new snapshot and offers it to every subscriber.
func (s *Server) publish() {
	snap := s.sim.Snapshot()

	if s.spectrum != nil {
		bins := s.spectrum.Spectrum()
		snap.Spectrum = make([]int, len(bins))
		for i, b := range bins {
			snap.Spectrum[i] = int(b)
		}
	}
	for _, f := range s.feeds {
		snap.Feeds = append(snap.Feeds, f.Status())
	}
	snap.Advice = s.currentAdvice()

	s.snapshot.Store(snap)

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- snap:
		default:
		}
	}
}
