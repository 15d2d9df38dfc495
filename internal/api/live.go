package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/erazemk/najdisce/internal/live"
	"github.com/erazemk/najdisce/internal/model"
	"github.com/erazemk/najdisce/internal/report"
	"github.com/erazemk/najdisce/internal/view"
)

const (
	liveWriteWait  = 10 * time.Second
	livePongWait   = 60 * time.Second
	livePingPeriod = livePongWait * 9 / 10
)

// LiveHandler streams item snapshots over a websocket.
type LiveHandler struct {
	Reports  *report.Service
	Upgrader websocket.Upgrader
}

type liveMessage struct {
	Filter string       `json:"filter"`
	Items  []model.Item `json:"items"`
	Error  string       `json:"error,omitempty"`
}

// Stream handles GET /api/items/live. Every snapshot of the selected view is
// sent as one JSON message until the client disconnects.
func (h *LiveHandler) Stream(w http.ResponseWriter, r *http.Request) {
	filter := view.ParseBrowse(r.URL.Query()).Filter()

	conn, err := h.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	sub, err := h.Reports.Subscribe(ctx, filter)
	if err != nil {
		msg := "live view unavailable"
		if errors.Is(err, live.ErrClosed) {
			msg = "server is shutting down"
		}
		writeLive(conn, liveMessage{Filter: filter.String(), Error: msg})
		return
	}
	defer sub.Close()

	go readLive(conn, cancel)

	ping := time.NewTicker(livePingPeriod)
	defer ping.Stop()

	for {
		select {
		case ev, ok := <-sub.C():
			if !ok {
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
					time.Now().Add(liveWriteWait))
				return
			}
			msg := liveMessage{Filter: filter.String(), Items: ev.Items}
			if ev.Err != nil {
				msg.Error = "failed to load items"
			}
			if err := writeLive(conn, msg); err != nil {
				return
			}
		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func writeLive(conn *websocket.Conn, msg liveMessage) error {
	conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
	return conn.WriteJSON(msg)
}

// readLive drains client frames so pongs and close frames are processed,
// and cancels the stream when the connection goes away.
func readLive(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()

	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(livePongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(livePongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
