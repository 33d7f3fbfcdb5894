package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *log.Logger {
	return log.New(&strings.Builder{})
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

// burstServer sends msgs on every connection, then closes it.
func burstServer(t *testing.T, msgs ...string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var conns atomic.Int32
	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conns.Add(1)
		for _, m := range msgs {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(m)); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &conns
}

func TestChannelDeliversAndReconnects(t *testing.T) {
	srv, conns := burstServer(t, `{"left":null}`, `{"right":null}`)

	var (
		mu  sync.Mutex
		got []string
	)
	ch := New(Options{
		Name:            "gesture",
		URL:             wsURL(srv),
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
		Logger:          quietLogger(),
	}, func(msg []byte) error {
		mu.Lock()
		got = append(got, string(msg))
		mu.Unlock()
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ch.Run(ctx) }()

	require.Eventually(t, func() bool { return conns.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return ch.Status().Reconnects >= 1 }, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	mu.Lock()
	defer mu.Unlock()
	require.GreaterOrEqual(t, len(got), 2)
	assert.Equal(t, `{"left":null}`, got[0])
	assert.Equal(t, `{"right":null}`, got[1])

	st := ch.Status()
	assert.Equal(t, StateStopped, st.State)
	assert.Equal(t, "gesture", st.Name)
	assert.GreaterOrEqual(t, st.Messages, uint64(2))
}

func TestChannelGivesUpAfterMaxAttempts(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := wsURL(srv)
	srv.Close()

	ch := New(Options{
		Name:            "voice",
		URL:             url,
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
		MaxAttempts:     3,
		Logger:          quietLogger(),
	}, nil)

	err := ch.Run(context.Background())
	require.Error(t, err)

	st := ch.Status()
	assert.Equal(t, StateStopped, st.State)
	assert.Equal(t, 3, st.Attempts)
	assert.NotEmpty(t, st.LastError)
}

func TestChannelWaitsBeforeRedial(t *testing.T) {
	srv, conns := burstServer(t)

	ch := New(Options{
		Name:            "gesture",
		URL:             wsURL(srv),
		InitialInterval: 400 * time.Millisecond,
		MaxInterval:     time.Second,
		Logger:          quietLogger(),
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- ch.Run(ctx) }()

	require.Eventually(t, func() bool { return conns.Load() == 1 }, 2*time.Second, 5*time.Millisecond)
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, int32(1), conns.Load(), "redialed inside the reconnect delay")
	assert.Equal(t, StateDisconnected, ch.Status().State)

	require.Eventually(t, func() bool { return conns.Load() == 2 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, ch.Status().Reconnects)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestDroppedConnectionsCountAsAttempts(t *testing.T) {
	srv, conns := burstServer(t)

	ch := New(Options{
		Name:            "gesture",
		URL:             wsURL(srv),
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
		MaxAttempts:     3,
		Logger:          quietLogger(),
	}, nil)

	err := ch.Run(context.Background())
	require.Error(t, err)

	st := ch.Status()
	assert.Equal(t, int32(3), conns.Load())
	assert.Equal(t, 3, st.Attempts)
	assert.Equal(t, 2, st.Reconnects)
	assert.Equal(t, StateStopped, st.State)
}

func TestDisabledChannel(t *testing.T) {
	ch := New(Options{Name: "voice", Logger: quietLogger()}, nil)

	assert.Equal(t, StateDisabled, ch.Status().State)
	assert.ErrorIs(t, ch.Run(context.Background()), ErrDisabled)
}

func TestConnStateText(t *testing.T) {
	b, err := StateConnected.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "connected", string(b))
	assert.Equal(t, "disconnected", ConnState(99).String())
}
