package server

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomz197/swarmship/internal/feed"
	"github.com/tomz197/swarmship/internal/input"
	"github.com/tomz197/swarmship/internal/loop"
	"github.com/tomz197/swarmship/internal/mode"
)

type fixedSpectrum []uint8

func (f fixedSpectrum) Spectrum() []uint8 { return f }

type fixedFeed feed.Status

func (f fixedFeed) Status() feed.Status { return feed.Status(f) }

type fakeAdvisor struct {
	calls  atomic.Int32
	action string
	err    error
}

func (f *fakeAdvisor) Advise(ctx context.Context, snap *loop.Snapshot) (string, error) {
	f.calls.Add(1)
	return f.action, f.err
}

// gatedAdvisor holds every request until the test answers it.
type gatedAdvisor struct {
	mu      sync.Mutex
	pending []chan string
}

func (g *gatedAdvisor) Advise(ctx context.Context, snap *loop.Snapshot) (string, error) {
	ch := make(chan string, 1)
	g.mu.Lock()
	g.pending = append(g.pending, ch)
	g.mu.Unlock()

	select {
	case action := <-ch:
		return action, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (g *gatedAdvisor) waiting() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.pending)
}

func (g *gatedAdvisor) answer(i int, action string) {
	g.mu.Lock()
	ch := g.pending[i]
	g.mu.Unlock()
	ch <- action
}

func newTestServer(t *testing.T, opts Options) *Server {
	t.Helper()
	logger := log.New(&strings.Builder{})
	opts.Sim = loop.NewSimulation(loop.Options{
		Rand:   rand.New(rand.NewSource(5)),
		Logger: logger,
	})
	opts.Logger = logger
	if opts.Controls == nil {
		opts.Controls = input.NewControls(logger)
	}
	return New(opts)
}

func TestInitialSnapshot(t *testing.T) {
	s := newTestServer(t, Options{})

	snap := s.Snapshot()
	require.NotNil(t, snap)
	assert.False(t, snap.Running)
	assert.Equal(t, "single", snap.ModeName)
	assert.Empty(t, snap.Spectrum)
	assert.Empty(t, snap.Feeds)
}

func TestCommandsAppliedOnTick(t *testing.T) {
	s := newTestServer(t, Options{})
	ctx := context.Background()

	require.NoError(t, s.Start())
	assert.False(t, s.Snapshot().Running) // Not before the tick
	s.tick(ctx)
	assert.True(t, s.Snapshot().Running)
	assert.Equal(t, uint64(1), s.Snapshot().Tick)

	require.NoError(t, s.SetMode(mode.Swarm))
	s.tick(ctx)
	assert.Equal(t, mode.Swarm, s.Snapshot().Mode)
	assert.Len(t, s.Snapshot().Agents, 10)

	require.NoError(t, s.Resize(640, 480))
	s.tick(ctx)
	assert.Equal(t, loop.Bounds{Width: 640, Height: 480}, s.Snapshot().Bounds)

	require.NoError(t, s.Pause())
	s.tick(ctx)
	paused := s.Snapshot().Tick
	s.tick(ctx)
	assert.Equal(t, paused, s.Snapshot().Tick)

	require.NoError(t, s.Reset())
	s.tick(ctx)
	assert.Zero(t, s.Snapshot().Tick)
	assert.Equal(t, mode.Swarm, s.Snapshot().Mode)
}

func TestInvalidCommandsRejected(t *testing.T) {
	s := newTestServer(t, Options{})

	assert.ErrorIs(t, s.SetMode(mode.Mode(4)), mode.ErrUnknownMode)
	assert.ErrorIs(t, s.Resize(0, 10), loop.ErrInvalidBounds)
}

func TestSendQueueFull(t *testing.T) {
	s := newTestServer(t, Options{})

	for i := 0; i < commandQueueDepth; i++ {
		require.NoError(t, s.Pause())
	}
	assert.ErrorIs(t, s.Start(), ErrQueueFull)

	s.tick(context.Background())
	assert.NoError(t, s.Start())
}

func TestPausedTickAppliesVoiceMode(t *testing.T) {
	s := newTestServer(t, Options{})

	_, ok := s.Controls().OnVoiceCommand("go autonomous")
	require.True(t, ok)
	s.tick(context.Background())

	snap := s.Snapshot()
	assert.Zero(t, snap.Tick)
	assert.Equal(t, mode.Autonomous, snap.Mode)
	assert.Len(t, snap.Agents, 15)
}

func TestSnapshotCarriesSpectrumAndFeeds(t *testing.T) {
	s := newTestServer(t, Options{
		Spectrum: fixedSpectrum{0, 128, 255},
		Feeds: []FeedStatus{
			fixedFeed{Name: "gesture", State: feed.StateConnected},
			fixedFeed{Name: "voice", State: feed.StateDisabled},
		},
	})
	s.tick(context.Background())

	snap := s.Snapshot()
	assert.Equal(t, []int{0, 128, 255}, snap.Spectrum)
	require.Len(t, snap.Feeds, 2)
	assert.Equal(t, "gesture", snap.Feeds[0].Name)
	assert.Equal(t, feed.StateDisabled, snap.Feeds[1].State)
}

func TestAdvisorQueriedOnAutonomousActivation(t *testing.T) {
	advisor := &fakeAdvisor{action: "collect:Brave-Otter"}
	s := newTestServer(t, Options{Advisor: advisor})
	ctx := context.Background()

	require.NoError(t, s.SetMode(mode.Swarm))
	s.tick(ctx)
	assert.Zero(t, advisor.calls.Load())

	require.NoError(t, s.SetMode(mode.Autonomous))
	s.tick(ctx)
	assert.Eventually(t, func() bool {
		s.tick(ctx)
		return s.Snapshot().Advice == "collect:Brave-Otter"
	}, time.Second, 5*time.Millisecond)

	// Staying in the mode does not ask again
	s.tick(ctx)
	assert.Equal(t, int32(1), advisor.calls.Load())

	// Reset clears the advice and asks again for the rebuilt swarm
	require.NoError(t, s.Reset())
	s.tick(ctx)
	s.advising.Wait()
	assert.Equal(t, int32(2), advisor.calls.Load())
}

func TestAdviceFromBeforeResetIsDropped(t *testing.T) {
	advisor := &gatedAdvisor{}
	s := newTestServer(t, Options{Advisor: advisor, AdviceTimeout: 5 * time.Second})
	ctx := context.Background()

	require.NoError(t, s.SetMode(mode.Autonomous))
	s.tick(ctx)
	require.Eventually(t, func() bool { return advisor.waiting() == 1 }, time.Second, time.Millisecond)

	require.NoError(t, s.Reset())
	s.tick(ctx)
	require.Eventually(t, func() bool { return advisor.waiting() == 2 }, time.Second, time.Millisecond)

	advisor.answer(1, "collect:Xarquo")
	require.Eventually(t, func() bool {
		s.tick(ctx)
		return s.Snapshot().Advice == "collect:Xarquo"
	}, time.Second, 5*time.Millisecond)

	// The answer to the request made before the reset arrives last
	advisor.answer(0, "evade")
	s.advising.Wait()
	s.tick(ctx)
	assert.Equal(t, "collect:Xarquo", s.Snapshot().Advice)
}

func TestAdvisorFailureLeavesNoAdvice(t *testing.T) {
	advisor := &fakeAdvisor{err: errors.New("backend down")}
	s := newTestServer(t, Options{Advisor: advisor})
	ctx := context.Background()

	require.NoError(t, s.SetMode(mode.Autonomous))
	s.tick(ctx)
	s.advising.Wait()
	s.tick(ctx)

	assert.Equal(t, int32(1), advisor.calls.Load())
	assert.Empty(t, s.Snapshot().Advice)
}

func TestSubscribers(t *testing.T) {
	s := newTestServer(t, Options{})

	ch, cancel, err := s.Subscribe()
	require.NoError(t, err)

	s.tick(context.Background())
	snap := <-ch
	assert.Equal(t, s.Snapshot(), snap)

	// A full subscriber does not block the loop
	for i := 0; i < 10; i++ {
		s.tick(context.Background())
	}

	cancel()
	for range ch {
	}
	cancel() // Idempotent
}

func TestRunClosesSubscribersOnCancel(t *testing.T) {
	s := newTestServer(t, Options{TickTime: time.Millisecond})
	ch, _, err := s.Subscribe()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	require.NoError(t, s.Start())
	assert.Eventually(t, func() bool {
		return s.Snapshot().Tick > 3
	}, time.Second, time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return")
	}

	for range ch {
	}
	_, _, err = s.Subscribe()
	assert.ErrorIs(t, err, ErrStopped)
}

func TestCommandKindString(t *testing.T) {
	assert.Equal(t, "resize", CmdResize.String())
	assert.Equal(t, "unknown", CommandKind(42).String())
}
