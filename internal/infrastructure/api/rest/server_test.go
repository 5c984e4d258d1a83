package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qualphys/reasoner/internal/domain"
	"github.com/qualphys/reasoner/internal/graph"
	"github.com/qualphys/reasoner/internal/infrastructure/auth"
	"github.com/qualphys/reasoner/internal/infrastructure/narrator"
	"github.com/qualphys/reasoner/internal/infrastructure/storage"
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

func testServer(t *testing.T) (*Server, storage.Store) {
	t.Helper()
	store := storage.NewMemStore()
	reload := func(paths []string) (*graph.Graph, []string, error) {
		return testGraph(t), nil, nil
	}
	srv := NewServer(testGraph(t), store, auth.NewNoAuth(), narrator.Noop{}, reload, []string{"testdata/packs"})
	return srv, store
}

func doRequest(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func TestHandleHealth_ReturnsOK(t *testing.T) {
	srv, _ := testServer(t)
	rec := doRequest(t, srv, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleReady_ReturnsReadyWhenGraphLoaded(t *testing.T) {
	srv, _ := testServer(t)
	rec := doRequest(t, srv, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleGraph_ReturnsNodesEdgesAndStats(t *testing.T) {
	srv, _ := testServer(t)
	rec := doRequest(t, srv, http.MethodGet, "/graph", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp GraphResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Nodes, 2)
	assert.Len(t, resp.Edges, 1)
	assert.Equal(t, 2, resp.Stats.NodeCount)
}

func TestHandleSimulate_ReturnsAffectedNodes(t *testing.T) {
	srv, _ := testServer(t)
	req := SimulateRequest{
		Perturbations: []domain.Perturbation{{NodeID: "cardio.hemodynamics.map", Op: domain.OpDecrease}},
		Options:       propagation.Options{MaxHops: 5, TimeWindow: domain.WindowAll},
	}
	rec := doRequest(t, srv, http.MethodPost, "/simulate", req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp SimulateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.AffectedNodes, 2)
	assert.Equal(t, "neuro.ans.sympathetic_tone", resp.AffectedNodes[1].NodeID)
}

func TestHandleSimulate_UnknownNodeReturnsBadRequestWithDetailBody(t *testing.T) {
	srv, _ := testServer(t)
	req := SimulateRequest{
		Perturbations: []domain.Perturbation{{NodeID: "does.not.exist", Op: domain.OpDecrease}},
		Options:       propagation.Options{MaxHops: 5, TimeWindow: domain.WindowAll},
	}
	rec := doRequest(t, srv, http.MethodPost, "/simulate", req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body.Detail)
}

func TestHandleSimulate_InvalidOptionsReturnsBadRequest(t *testing.T) {
	srv, _ := testServer(t)
	req := SimulateRequest{
		Perturbations: []domain.Perturbation{{NodeID: "cardio.hemodynamics.map", Op: domain.OpDecrease}},
		Options:       propagation.Options{MaxHops: -1, TimeWindow: domain.WindowAll},
	}
	rec := doRequest(t, srv, http.MethodPost, "/simulate", req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleCompare_ClassifiesChangedNodes(t *testing.T) {
	srv, _ := testServer(t)
	req := CompareRequest{
		Baseline: SimulateRequest{
			Options: propagation.Options{MaxHops: 5, TimeWindow: domain.WindowAll},
		},
		Intervention: SimulateRequest{
			Perturbations: []domain.Perturbation{{NodeID: "cardio.hemodynamics.map", Op: domain.OpDecrease}},
			Options:       propagation.Options{MaxHops: 5, TimeWindow: domain.WindowAll},
		},
	}
	rec := doRequest(t, srv, http.MethodPost, "/simulate/compare", req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp CompareResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.ChangedNodes, 2)
	assert.Equal(t, domain.ChangeNew, resp.ChangedNodes[0].Class)
}

func TestHandleNarrate_DisabledByDefaultReturnsNotImplemented(t *testing.T) {
	srv, _ := testServer(t)
	req := NarrateRequest{SimulateRequest: SimulateRequest{
		Perturbations: []domain.Perturbation{{NodeID: "cardio.hemodynamics.map", Op: domain.OpDecrease}},
		Options:       propagation.Options{MaxHops: 5, TimeWindow: domain.WindowAll},
	}}
	rec := doRequest(t, srv, http.MethodPost, "/simulate/narrate", req)
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}

func TestScenarioLifecycle_CreateListRunDelete(t *testing.T) {
	srv, _ := testServer(t)

	create := ScenarioRequest{
		Name: "baseline-map-drop",
		Perturbations: []domain.Perturbation{
			{NodeID: "cardio.hemodynamics.map", Op: domain.OpDecrease},
		},
		Options: propagation.Options{MaxHops: 5, TimeWindow: domain.WindowAll},
	}
	rec := doRequest(t, srv, http.MethodPost, "/scenarios", create)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(t, srv, http.MethodGet, "/scenarios", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []ScenarioResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)

	rec = doRequest(t, srv, http.MethodPost, "/scenarios/baseline-map-drop/run", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var simResp SimulateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &simResp))
	require.Len(t, simResp.AffectedNodes, 1)

	rec = doRequest(t, srv, http.MethodDelete, "/scenarios/baseline-map-drop", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doRequest(t, srv, http.MethodGet, "/scenarios/baseline-map-drop", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleReload_SwapsActiveGraphAndRecordsAudit(t *testing.T) {
	srv, store := testServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/reload", ReloadRequest{})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ReloadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 2, resp.Stats.NodeCount)

	loads, err := store.ListPackLoads(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, loads, 1)
	assert.True(t, loads[0].Success)
}

func TestCORSMiddleware_HandlesPreflight(t *testing.T) {
	srv, _ := testServer(t)
	r := httptest.NewRequest(http.MethodOptions, "/graph", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, r)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
