package api

import (
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomz197/swarmship/internal/ai"
	"github.com/tomz197/swarmship/internal/feed"
	"github.com/tomz197/swarmship/internal/input"
	"github.com/tomz197/swarmship/internal/loop"
	"github.com/tomz197/swarmship/internal/loop/server"
	"github.com/tomz197/swarmship/internal/mode"
)

func quietLogger() *log.Logger {
	return log.New(&strings.Builder{})
}

type fakeGame struct {
	mu       sync.Mutex
	calls    []string
	modes    []mode.Mode
	err      error
	snap     *loop.Snapshot
	controls *input.Controls
	snaps    chan *loop.Snapshot
}

func newFakeGame() *fakeGame {
	return &fakeGame{
		snap: &loop.Snapshot{
			Tick:     7,
			Running:  true,
			Mode:     mode.Swarm,
			ModeName: "swarm",
			Feeds:    []feed.Status{{Name: "gesture", State: feed.StateConnected}},
		},
		controls: input.NewControls(quietLogger()),
		snaps:    make(chan *loop.Snapshot, 8),
	}
}

func (g *fakeGame) record(name string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, name)
	return g.err
}

func (g *fakeGame) Start() error { return g.record("start") }
func (g *fakeGame) Pause() error { return g.record("pause") }
func (g *fakeGame) Reset() error { return g.record("reset") }

func (g *fakeGame) SetMode(m mode.Mode) error {
	g.mu.Lock()
	g.modes = append(g.modes, m)
	g.mu.Unlock()
	return g.record("mode")
}

func (g *fakeGame) Resize(width, height int) error {
	if width <= 0 || height <= 0 {
		return loop.ErrInvalidBounds
	}
	return g.record("resize")
}

func (g *fakeGame) Snapshot() *loop.Snapshot  { return g.snap }
func (g *fakeGame) Controls() *input.Controls { return g.controls }

func (g *fakeGame) Subscribe() (<-chan *loop.Snapshot, func(), error) {
	return g.snaps, func() {}, nil
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var e ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&e))
	return e
}

func TestHealth(t *testing.T) {
	g := newFakeGame()
	h := NewServer(g, quietLogger()).Routes()

	rec := do(t, h, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp struct {
		Status string `json:"status"`
		Tick   uint64 `json:"tick"`
		Mode   string `json:"mode"`
		Feeds  []struct {
			Name  string `json:"name"`
			State string `json:"state"`
		} `json:"feeds"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, uint64(7), resp.Tick)
	assert.Equal(t, "swarm", resp.Mode)
	require.Len(t, resp.Feeds, 1)
	assert.Equal(t, "connected", resp.Feeds[0].State)

	g.snap.Feeds[0].State = feed.StateStopped
	rec = do(t, h, http.MethodGet, "/health", "")
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "degraded", resp.Status)
}

func TestLifecycleCommands(t *testing.T) {
	g := newFakeGame()
	h := NewServer(g, quietLogger()).Routes()

	for _, cmd := range []string{"start", "pause", "reset"} {
		rec := do(t, h, http.MethodPost, "/api/v1/game/"+cmd, "")
		assert.Equal(t, http.StatusAccepted, rec.Code, cmd)
	}
	assert.Equal(t, []string{"start", "pause", "reset"}, g.calls)

	rec := do(t, h, http.MethodGet, "/api/v1/game/start", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestCommandQueueFull(t *testing.T) {
	g := newFakeGame()
	g.err = server.ErrQueueFull
	h := NewServer(g, quietLogger()).Routes()

	rec := do(t, h, http.MethodPost, "/api/v1/game/start", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, ErrTypeBusy, decodeError(t, rec).Type)
}

func TestSetMode(t *testing.T) {
	cases := []struct {
		name     string
		body     string
		wantCode int
		wantType string
	}{
		{"swarm", `{"mode": 2}`, http.StatusAccepted, ""},
		{"autonomous", `{"mode": 3}`, http.StatusAccepted, ""},
		{"out of range", `{"mode": 4}`, http.StatusBadRequest, ErrTypeInvalidMode},
		{"zero", `{"mode": 0}`, http.StatusBadRequest, ErrTypeInvalidMode},
		{"not a number", `{"mode": "swarm"}`, http.StatusBadRequest, ErrTypeInvalidRequest},
		{"garbage", `{`, http.StatusBadRequest, ErrTypeInvalidRequest},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g := newFakeGame()
			h := NewServer(g, quietLogger()).Routes()

			rec := do(t, h, http.MethodPut, "/api/v1/game/mode", tc.body)
			assert.Equal(t, tc.wantCode, rec.Code)
			if tc.wantType != "" {
				assert.Equal(t, tc.wantType, decodeError(t, rec).Type)
				assert.Empty(t, g.modes)
			}
		})
	}
}

func TestResize(t *testing.T) {
	g := newFakeGame()
	h := NewServer(g, quietLogger()).Routes()

	rec := do(t, h, http.MethodPut, "/api/v1/game/size", `{"width": 1024, "height": 768}`)
	assert.Equal(t, http.StatusAccepted, rec.Code)

	rec = do(t, h, http.MethodPut, "/api/v1/game/size", `{"width": 0, "height": 768}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, ErrTypeInvalidRequest, decodeError(t, rec).Type)
}

func TestVoice(t *testing.T) {
	g := newFakeGame()
	h := NewServer(g, quietLogger()).Routes()

	rec := do(t, h, http.MethodPost, "/api/v1/voice", `{"transcript": "Activate Swarm Mode"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp VoiceResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.Matched)
	assert.Equal(t, "swarm", resp.Mode)
	assert.Equal(t, mode.Swarm, g.controls.Consume().Mode)

	rec = do(t, h, http.MethodPost, "/api/v1/voice", `{"transcript": "hello there"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	resp = VoiceResponse{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.False(t, resp.Matched)
	assert.Zero(t, g.controls.Consume().Mode)

	rec = do(t, h, http.MethodPost, "/api/v1/voice", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSnapshot(t *testing.T) {
	g := newFakeGame()
	h := NewServer(g, quietLogger()).Routes()

	rec := do(t, h, http.MethodGet, "/api/v1/snapshot", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, float64(7), body["tick"])
	assert.Equal(t, "swarm", body["modeName"])
}

func TestAIAction(t *testing.T) {
	h := NewServer(newFakeGame(), quietLogger()).Routes()

	body := `{"observation": {"nearestAsteroid": 12, "planets": []}}`
	rec := do(t, h, http.MethodPost, "/api/v1/ai/action", body)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ai.Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, ai.ActionEvade, resp.Action)

	rec = do(t, h, http.MethodPost, "/api/v1/ai/action", `nope`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAIActionServesClient(t *testing.T) {
	ts := httptest.NewServer(NewServer(newFakeGame(), quietLogger()).Routes())
	defer ts.Close()

	client := ai.NewClient(ts.URL+"/api/v1/ai/action", time.Second, quietLogger())
	action, err := client.Action(context.Background(), ai.Observation{NearestAsteroid: -1})
	require.NoError(t, err)
	assert.Equal(t, ai.ActionExplore, action)
}

func wsURL(ts *httptest.Server, path string) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http") + path
}

func TestStreamSendsSnapshots(t *testing.T) {
	g := newFakeGame()
	srv := NewServer(g, quietLogger())
	srv.interval = 0
	ts := httptest.NewServer(srv.Routes())
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts, "/api/v1/stream"), nil)
	require.NoError(t, err)
	defer conn.Close()

	g.snaps <- &loop.Snapshot{Tick: 1, ModeName: "single"}
	g.snaps <- &loop.Snapshot{Tick: 2, ModeName: "single"}

	for _, want := range []float64{1, 2} {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
		var got map[string]any
		require.NoError(t, conn.ReadJSON(&got))
		assert.Equal(t, want, got["tick"])
	}
}

func TestStreamRateLimited(t *testing.T) {
	g := newFakeGame()
	srv := NewServer(g, quietLogger())
	srv.interval = time.Hour
	ts := httptest.NewServer(srv.Routes())
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts, "/api/v1/stream"), nil)
	require.NoError(t, err)
	defer conn.Close()

	for i := 1; i <= 3; i++ {
		g.snaps <- &loop.Snapshot{Tick: uint64(i)}
	}

	var got map[string]any
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, float64(1), got["tick"])

	// The rest fall inside the interval
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	assert.Error(t, conn.ReadJSON(&got))
}

func TestStreamFromTickServer(t *testing.T) {
	logger := quietLogger()
	sim := loop.NewSimulation(loop.Options{Rand: rand.New(rand.NewSource(3)), Logger: logger})
	game := server.New(server.Options{Sim: sim, TickTime: time.Millisecond, Logger: logger})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		game.Run(ctx)
		close(done)
	}()
	defer func() {
		cancel()
		<-done
	}()

	srv := NewServer(game, logger)
	srv.interval = 0
	ts := httptest.NewServer(srv.Routes())
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts, "/api/v1/stream"), nil)
	require.NoError(t, err)
	defer conn.Close()

	rec := do(t, srv.Routes(), http.MethodPut, "/api/v1/game/mode", `{"mode": 2}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		var snap struct {
			ModeName string            `json:"modeName"`
			Agents   []json.RawMessage `json:"agents"`
		}
		require.NoError(t, conn.ReadJSON(&snap))
		if snap.ModeName == "swarm" {
			assert.Len(t, snap.Agents, 10)
			break
		}
	}
}
