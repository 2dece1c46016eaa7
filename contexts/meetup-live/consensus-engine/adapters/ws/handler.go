package wsadapter

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	httpadapter "overlap/contexts/meetup-live/consensus-engine/adapters/http"
	"overlap/contexts/meetup-live/consensus-engine/application"
	"overlap/contexts/meetup-live/consensus-engine/application/queries"
	httptransport "overlap/contexts/meetup-live/consensus-engine/transport/http"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

const (
	MsgSession = "session"
	MsgTallies = "tallies"
)

// ServerMessage is the only frame shape sent to stream clients; clients
// never send anything the server acts on besides close/pong.
type ServerMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Handler upgrades stream requests and forwards subscription snapshots
// over the socket. One goroutine writes, one drains client frames to keep
// pong handling alive.
type Handler struct {
	Subscriptions queries.SubscriptionUseCase
	upgrader      websocket.Upgrader
	logger        *slog.Logger
}

func NewHandler(subscriptions queries.SubscriptionUseCase, logger *slog.Logger) *Handler {
	return &Handler{
		Subscriptions: subscriptions,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// Session IDs are unguessable; origin policy is a gateway concern.
				return true
			},
		},
		logger: logger,
	}
}

func (h *Handler) SessionStream() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID := r.PathValue("session_id")
		updates, err := h.Subscriptions.SubscribeSession(r.Context(), sessionID)
		if err != nil {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		msgs := make(chan ServerMessage)
		go func() {
			defer close(msgs)
			for snapshot := range updates {
				select {
				case msgs <- ServerMessage{
					Type:    MsgSession,
					Payload: httpadapter.MapSession(snapshot),
				}:
				case <-r.Context().Done():
					return
				}
			}
		}()
		h.serve(w, r, sessionID, msgs)
	})
}

func (h *Handler) TallyStream() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID := r.PathValue("session_id")
		updates, err := h.Subscriptions.SubscribeTallies(r.Context(), sessionID)
		if err != nil {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		msgs := make(chan ServerMessage)
		go func() {
			defer close(msgs)
			for snapshot := range updates {
				payload := make(map[string]httptransport.TallyResponse, len(snapshot))
				for id, tally := range snapshot {
					payload[id] = httpadapter.MapTally(tally)
				}
				select {
				case msgs <- ServerMessage{
					Type:    MsgTallies,
					Payload: httptransport.TalliesResponse{Tallies: payload},
				}:
				case <-r.Context().Done():
					return
				}
			}
		}()
		h.serve(w, r, sessionID, msgs)
	})
}

// serve owns the connection lifecycle: writes run until msgs closes or a
// write fails, the read loop until the peer goes away.
func (h *Handler) serve(w http.ResponseWriter, r *http.Request, sessionID string, msgs <-chan ServerMessage) {
	logger := application.ResolveLogger(h.logger)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("websocket upgrade failed",
			"event", "consensus_stream_upgrade_failed",
			"module", "meetup-live/consensus-engine",
			"layer", "adapter",
			"session_id", sessionID,
			"error", err.Error(),
		)
		return
	}
	defer conn.Close()

	logger.Info("stream connected",
		"event", "consensus_stream_connected",
		"module", "meetup-live/consensus-engine",
		"layer", "adapter",
		"session_id", sessionID,
	)

	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			conn.SetReadDeadline(time.Now().Add(pongWait))
			return nil
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case msg, ok := <-msgs:
			if !ok {
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				_ = conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if !h.writeMessage(conn, sessionID, msg) {
				return
			}
		}
	}
}

func (h *Handler) writeMessage(conn *websocket.Conn, sessionID string, msg ServerMessage) bool {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(msg); err != nil {
		application.ResolveLogger(h.logger).Debug("stream write failed",
			"event", "consensus_stream_write_failed",
			"module", "meetup-live/consensus-engine",
			"layer", "adapter",
			"session_id", sessionID,
			"error", err.Error(),
		)
		return false
	}
	return true
}
