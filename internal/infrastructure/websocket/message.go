// Package websocket streams a running simulation's frontier to a
// connected client, grounded on the teacher's
// internal/infrastructure/websocket package (hub/client/handler split,
// gorilla/websocket conn management, JSON frame shapes), adapted from
// "broadcast workflow execution events to many subscribed clients" to
// "stream one simulation's ticks to the one client that started it"
// (spec.md has no multi-room fan-out requirement to ground the
// teacher's subscription indexes against, so they are dropped —
// see DESIGN.md).
package websocket

import (
	"time"

	"github.com/qualphys/reasoner/internal/domain"
	"github.com/qualphys/reasoner/internal/propagation"
)

// Frame types (server -> client).
const (
	FrameTick  = "tick"
	FrameDone  = "done"
	FrameError = "error"
)

// Frame is one message sent to a connected client.
type Frame struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`

	Tick       int             `json:"tick,omitempty"`
	NodeID     string          `json:"node_id,omitempty"`
	Direction  domain.Direction `json:"direction,omitempty"`
	Confidence float64         `json:"confidence,omitempty"`

	AffectedNodes []domain.AffectedNode `json:"affected_nodes,omitempty"`

	Error string `json:"error,omitempty"`
}

func tickFrame(e propagation.TickEvent) *Frame {
	return &Frame{
		Type:       FrameTick,
		Timestamp:  time.Now(),
		Tick:       e.Tick,
		NodeID:     e.NodeID,
		Direction:  e.Direction,
		Confidence: e.Confidence,
	}
}

func doneFrame(result *propagation.Result) *Frame {
	return &Frame{Type: FrameDone, Timestamp: time.Now(), AffectedNodes: result.AffectedNodes}
}

func errorFrame(err error) *Frame {
	return &Frame{Type: FrameError, Timestamp: time.Now(), Error: err.Error()}
}
