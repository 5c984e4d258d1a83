package websocket

import (
	"encoding/json"
	"net/http"

	gws "github.com/gorilla/websocket"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	domainerrors "github.com/qualphys/reasoner/internal/domain/errors"
	"github.com/qualphys/reasoner/internal/graph"
	"github.com/qualphys/reasoner/internal/infrastructure/auth"
	"github.com/qualphys/reasoner/internal/propagation"
)

var upgrader = gws.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// GraphProvider returns the currently loaded graph; it is read once
// per connection, so a reload mid-stream never changes a simulation
// already in flight (spec §5: reload swaps the graph handle
// atomically).
type GraphProvider func() *graph.Graph

// Handler upgrades GET /ws/simulate, reads one simulate request from
// the new connection, runs it, and streams TickEvents until done.
type Handler struct {
	hub   *Hub
	graph GraphProvider
	auth  auth.Authenticator
}

func NewHandler(hub *Hub, graphProvider GraphProvider, authenticator auth.Authenticator) *Handler {
	return &Handler{hub: hub, graph: graphProvider, auth: authenticator}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	subject, err := h.auth.Authenticate(r)
	if err != nil {
		http.Error(w, `{"detail":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Str("remote_addr", r.RemoteAddr).Msg("websocket upgrade failed")
		return
	}

	client := newClient(uuid.New().String(), h.hub, conn)
	h.hub.register(client)
	log.Info().Str("client_id", client.id).Str("subject", subject).Msg("websocket client connected")

	done := make(chan struct{})
	go client.readPump(done)
	go client.writePump()
	go h.stream(client, done)
}

// stream reads one simulate request off the connection, runs it with
// OnTick forwarding frames to the client, then sends a done frame and
// unregisters — one simulation per connection (spec §5: "streams
// TickEvents for the duration of one simulation, then closes").
func (h *Handler) stream(c *Client, done <-chan struct{}) {
	defer h.hub.unregister(c)

	_, raw, err := c.conn.ReadMessage()
	if err != nil {
		return
	}

	var req propagation.Request
	if err := json.Unmarshal(raw, &req); err != nil {
		h.send(c, done, errorFrame(domainerrors.NewValidationError("body", "invalid JSON")))
		return
	}
	if req.Options == (propagation.Options{}) {
		req.Options = propagation.DefaultOptions()
	}

	req.OnTick = func(e propagation.TickEvent) {
		h.send(c, done, tickFrame(e))
	}

	g := h.graph()
	if g == nil {
		h.send(c, done, errorFrame(domainerrors.NewInternalError("no-graph-loaded", nil)))
		return
	}

	result, err := propagation.Simulate(g, req)
	if err != nil {
		h.send(c, done, errorFrame(err))
		return
	}
	h.send(c, done, doneFrame(result))
}

// send delivers a frame unless the connection has already gone away.
func (h *Handler) send(c *Client, done <-chan struct{}, frame *Frame) {
	select {
	case c.send <- frame:
	case <-done:
	}
}
