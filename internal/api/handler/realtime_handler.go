package handler

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/2emr/sensor-backend/internal/core/domain"
	"github.com/2emr/sensor-backend/internal/infrastructure/broadcast"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// realtimeFrame is the message pushed to live clients for each stored reading.
type realtimeFrame struct {
	Event string         `json:"event"`
	Data  domain.Reading `json:"data"`
}

// RealtimeHandler upgrades GET /ws to a websocket and streams every reading
// published on the hub. Clients only receive; inbound messages are discarded.
type RealtimeHandler struct {
	hub      *broadcast.Hub
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

func NewRealtimeHandler(hub *broadcast.Hub, allowedOrigins []string, log zerolog.Logger) *RealtimeHandler {
	return &RealtimeHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		log: log,
	}
}

// Stream handles the websocket handshake and runs the connection until the
// client goes away or the hub drops the subscription.
//
// @Summary      Stream stored readings
// @Tags         realtime
// @Param        token  query     string  false  "Bearer token, when the handshake requires one"
// @Success      101    {object}  realtimeFrame
// @Failure      401    {object}  map[string]string
// @Failure      403    {object}  map[string]string
// @Router       /ws [get]
func (h *RealtimeHandler) Stream(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// The upgrader has already replied with an HTTP error.
		h.log.Debug().Err(err).Msg("websocket upgrade failed")
		return nil
	}
	defer conn.Close()

	sub := h.hub.Subscribe()
	defer h.hub.Unsubscribe(sub)

	log := h.log.With().Str("subscriber_id", sub.ID).Str("remote", c.RealIP()).Logger()
	log.Info().Msg("realtime client connected")

	done := make(chan struct{})
	go readPump(conn, done)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			log.Info().Msg("realtime client disconnected")
			return nil
		case reading, ok := <-sub.C():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return nil
			}
			if err := conn.WriteJSON(realtimeFrame{Event: domain.EventSensorDataUpdate, Data: reading}); err != nil {
				log.Debug().Err(err).Msg("realtime write failed")
				return nil
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return nil
			}
		}
	}
}

// readPump drains inbound frames so control messages (pong, close) are
// processed, and closes done when the connection fails.
func readPump(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func originChecker(allowed []string) func(*http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}
