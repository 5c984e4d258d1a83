package websocket

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qualphys/reasoner/internal/domain"
	"github.com/qualphys/reasoner/internal/graph"
	"github.com/qualphys/reasoner/internal/infrastructure/auth"
	"github.com/qualphys/reasoner/internal/loader"
	"github.com/qualphys/reasoner/internal/pack"
	"github.com/qualphys/reasoner/internal/propagation"
)

func testGraph(t *testing.T) *graph.Graph {
	t.Helper()
	g, diags, err := loader.Merge([]pack.Document{{
		Nodes: []pack.Node{
			{ID: "cardio.hemodynamics.map", Label: "MAP", Domain: "cardio", Type: "variable", StateType: "qualitative"},
			{ID: "neuro.ans.sympathetic_tone", Label: "Sympathetic Tone", Domain: "neuro", Type: "variable", StateType: "qualitative"},
		},
		Edges: []pack.Edge{
			{Source: "cardio.hemodynamics.map", Target: "neuro.ans.sympathetic_tone", Rel: "decreases", Weight: 0.8, Delay: "immediate"},
		},
	}})
	require.NoError(t, err)
	require.Empty(t, diags)
	return g
}

func TestHandler_ServeHTTP_StreamsTicksThenCloses(t *testing.T) {
	g := testGraph(t)
	hub := NewHub()
	handler := NewHandler(hub, func() *graph.Graph { return g }, auth.NewNoAuth())

	server := httptest.NewServer(handler)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	ws, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer ws.Close()
	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)

	req := propagation.Request{
		Perturbations: []domain.Perturbation{{NodeID: "cardio.hemodynamics.map", Op: domain.OpDecrease}},
		Options:       propagation.Options{MaxHops: 5, TimeWindow: domain.WindowAll},
	}
	require.NoError(t, ws.WriteJSON(req))

	ws.SetReadDeadline(time.Now().Add(2 * time.Second))

	var frames []Frame
	for {
		var f Frame
		if err := ws.ReadJSON(&f); err != nil {
			break
		}
		frames = append(frames, f)
		if f.Type == FrameDone || f.Type == FrameError {
			break
		}
	}

	require.NotEmpty(t, frames)
	last := frames[len(frames)-1]
	assert.Equal(t, FrameDone, last.Type)
	require.Len(t, last.AffectedNodes, 2)
	assert.Equal(t, "neuro.ans.sympathetic_tone", last.AffectedNodes[1].NodeID)

	foundTick := false
	for _, f := range frames[:len(frames)-1] {
		if f.Type == FrameTick {
			foundTick = true
		}
	}
	assert.True(t, foundTick, "expected at least one tick frame before done")
}

func TestHandler_ServeHTTP_AuthenticationFailed(t *testing.T) {
	hub := NewHub()
	handler := NewHandler(hub, func() *graph.Graph { return nil }, auth.NewJWTAuth("secret"))

	server := httptest.NewServer(handler)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	ws, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)

	assert.Error(t, err)
	assert.Nil(t, ws)
	if resp != nil {
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}
}

func TestHandler_ServeHTTP_UnknownPerturbationNodeSendsErrorFrame(t *testing.T) {
	g := testGraph(t)
	hub := NewHub()
	handler := NewHandler(hub, func() *graph.Graph { return g }, auth.NewNoAuth())

	server := httptest.NewServer(handler)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	ws, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer ws.Close()

	req := propagation.Request{
		Perturbations: []domain.Perturbation{{NodeID: "does.not.exist", Op: domain.OpDecrease}},
		Options:       propagation.Options{MaxHops: 5, TimeWindow: domain.WindowAll},
	}
	require.NoError(t, ws.WriteJSON(req))

	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	var f Frame
	require.NoError(t, ws.ReadJSON(&f))
	assert.Equal(t, FrameError, f.Type)
	assert.NotEmpty(t, f.Error)
}
