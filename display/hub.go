package display

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/liam5322/smite-assault-advisor/analysis"
	"github.com/liam5322/smite-assault-advisor/domain/state"
	"github.com/liam5322/smite-assault-advisor/fault"
)

const (
	writeWait      = 5 * time.Second
	clientSendSize = 16
)

// envelope is the wire frame pushed to overlay clients.
type envelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type analysisPayload struct {
	Team1          []string `json:"team1"`
	Team2          []string `json:"team2"`
	WinProbability float64  `json:"win_probability"`
	ItemPriorities []string `json:"item_priorities"`
	KeyAdvice      string   `json:"key_advice"`
}

type statePayload struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// command is the only inbound frame the hub understands.
type command struct {
	Type string `json:"type"`
}

// Hub broadcasts pipeline output to overlay clients over websockets. It
// implements Sink; broadcasts to a slow or absent client never block the
// orchestrator.
type Hub struct {
	listen string
	logger *slog.Logger

	register   chan *client
	unregister chan *client
	broadcast  chan []byte

	analyzeFn func()

	upgrader websocket.Upgrader
}

var _ Sink = (*Hub)(nil)

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// NewHub prepares a hub listening on addr. Run must be called for clients to
// connect and receive broadcasts.
func NewHub(addr string, logger *slog.Logger) *Hub {
	return &Hub{
		listen:     addr,
		logger:     logger,
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan []byte, 64),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Overlay connects from a local file or dev server.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Run serves websocket clients until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", h.serveWS)

	srv := &http.Server{Addr: h.listen, Handler: mux}
	errc := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
	}()
	go h.loop(ctx)

	h.logger.Info("display hub listening", "addr", h.listen)
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errc:
		return err
	}
}

// loop owns the client set; all membership changes and broadcasts serialize
// through it.
func (h *Hub) loop(ctx context.Context) {
	clients := make(map[*client]bool)
	for {
		select {
		case <-ctx.Done():
			for c := range clients {
				close(c.send)
			}
			return
		case c := <-h.register:
			clients[c] = true
			h.logger.Debug("overlay client connected", "clients", len(clients))
		case c := <-h.unregister:
			if clients[c] {
				delete(clients, c)
				close(c.send)
			}
		case msg := <-h.broadcast:
			for c := range clients {
				select {
				case c.send <- msg:
				default:
					// Slow client, drop it rather than stall the hub.
					delete(clients, c)
					close(c.send)
				}
			}
		}
	}
}

func (h *Hub) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	c := &client{conn: conn, send: make(chan []byte, clientSendSize)}
	h.register <- c

	go c.writePump()
	go c.readPump(h)
}

func (c *client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
	_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// OnAnalyzeRequest registers the handler for the overlay's analyze command.
// Must be called before Run.
func (h *Hub) OnAnalyzeRequest(fn func()) {
	h.analyzeFn = fn
}

// readPump detects disconnects and serves the overlay's one inbound command,
// an explicit analysis request. Everything else is discarded.
func (c *client) readPump(h *Hub) {
	defer func() {
		h.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var cmd command
		if err := json.Unmarshal(msg, &cmd); err != nil {
			continue
		}
		if cmd.Type == "analyze" && h.analyzeFn != nil {
			// The handler may run a full pass; never stall disconnect detection.
			go h.analyzeFn()
		}
	}
}

func (h *Hub) push(kind string, payload any) {
	msg, err := json.Marshal(envelope{Type: kind, Payload: payload})
	if err != nil {
		h.logger.Error("marshal display frame", "type", kind, "error", err)
		return
	}
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn("display broadcast buffer full, dropping frame", "type", kind)
	}
}

func (h *Hub) ShowAnalysis(ext state.Extraction, result analysis.Result) {
	h.push("analysis", analysisPayload{
		Team1:          ext.Team1,
		Team2:          ext.Team2,
		WinProbability: result.WinProbability,
		ItemPriorities: result.ItemPriorities,
		KeyAdvice:      result.KeyAdvice,
	})
}

func (h *Hub) ShowError(err *fault.BoundaryError) {
	h.push("error", err)
}

func (h *Hub) StateChanged(prev, next state.Phase) {
	h.push("state", statePayload{From: prev.String(), To: next.String()})
}
