package resources

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/itsatony/soundscape/hub/internal/hubservice"
	nuts "github.com/vaudience/go-nuts"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// LiveHandlers pushes the dashboard view over a websocket
type LiveHandlers struct {
	hubservice *hubservice.HubService
	upgrader   websocket.Upgrader
}

// NewLiveHandlers creates the websocket handler. allowedOrigins holds host
// names; "*" or an empty list accepts every origin.
func NewLiveHandlers(svc *hubservice.HubService, allowedOrigins []string) *LiveHandlers {
	return &LiveHandlers{
		hubservice: svc,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

// @Summary Live dashboard updates
// @Description Upgrades to a websocket. The full view is sent on connect and after every update.
// @Tags live
// @Success 101
// @Router /live [get]
// @Security BearerAuth
func (h *LiveHandlers) Stream(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response
		nuts.L.Warnf("[Live] Websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	id, updates := h.hubservice.Subscribe()
	defer h.hubservice.Unsubscribe(id)
	nuts.L.Infof("[Live] Client %s connected from %s", id, r.RemoteAddr)

	initial, err := h.hubservice.ViewJSON()
	if err != nil {
		nuts.L.Errorf("[Live] Failed to render view for %s: %v", id, err)
		return
	}
	if err := write(conn, websocket.TextMessage, initial); err != nil {
		return
	}

	closed := make(chan struct{})
	go readPump(conn, closed)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			nuts.L.Infof("[Live] Client %s disconnected", id)
			return
		case data, ok := <-updates:
			if !ok {
				write(conn, websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
				return
			}
			if err := write(conn, websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			if err := write(conn, websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump only exists to process control frames and notice the close
func readPump(conn *websocket.Conn, closed chan<- struct{}) {
	defer close(closed)
	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func write(conn *websocket.Conn, messageType int, data []byte) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(messageType, data)
}

func originChecker(allowed []string) func(r *http.Request) bool {
	hosts := make(map[string]bool, len(allowed))
	for _, a := range allowed {
		if a == "*" {
			return func(*http.Request) bool { return true }
		}
		hosts[strings.ToLower(a)] = true
	}
	if len(hosts) == 0 {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return hosts[strings.ToLower(u.Hostname())]
	}
}
