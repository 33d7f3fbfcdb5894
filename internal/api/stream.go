package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = time.Second

// handleStream upgrades to a WebSocket and sends snapshots, at most one per
// stream interval. Snapshots published in between are skipped.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	snaps, cancel, err := s.game.Subscribe()
	if err != nil {
		s.writeError(w, http.StatusServiceUnavailable, ErrTypeUnavailable, err.Error())
		return
	}
	defer cancel()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	s.logger.Info("stream client connected", "remote", r.RemoteAddr)
	defer s.logger.Info("stream client disconnected", "remote", r.RemoteAddr)

	// Reading is needed to notice when the client goes away
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	var last time.Time
	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case snap, ok := <-snaps:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server stopped"),
					time.Now().Add(writeWait))
				return
			}
			if time.Since(last) < s.interval {
				continue
			}
			last = time.Now()

			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(snap); err != nil {
				s.logger.Debug("stream write failed", "err", err)
				return
			}
		}
	}
}
