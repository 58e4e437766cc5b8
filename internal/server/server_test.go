package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/glyph/internal/core"
	"github.com/agenthands/glyph/internal/core/model"
)

type fakeDriver struct {
	queries []string
	result  neo4j.EagerResult
	err     error
}

func (f *fakeDriver) ExecuteQuery(ctx context.Context, query string, params map[string]any) (neo4j.EagerResult, error) {
	f.queries = append(f.queries, query)
	return f.result, f.err
}

func (f *fakeDriver) BuildIndices(ctx context.Context) error { return nil }
func (f *fakeDriver) Close(ctx context.Context) error        { return nil }

type failingRunner struct{}

func (failingRunner) Run(ctx context.Context, in model.Input) (*model.Result, error) {
	return &model.Result{}, &model.StageError{Stage: core.StageSubgraph, Kind: model.FatalError, Err: errors.New("boom")}
}

func newTestServer(d *fakeDriver) *Server {
	gin.SetMode(gin.TestMode)
	var engine *core.Engine
	if d != nil {
		engine = core.NewEngine(nil, nil, nil, d, nil)
	} else {
		engine = core.NewEngine(nil, nil, nil, nil, nil)
	}
	return New(engine, nil, nil)
}

func do(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.SetupRouter().ServeHTTP(w, req)
	return w
}

func sampleInput() model.Input {
	return model.Input{
		Topic: "graphs",
		Sources: []model.Source{
			{Title: "Graph Basics", URL: "https://example.org/a", Content: "A vertex joins an edge. Every edge has a vertex."},
			{Title: "More Graphs", URL: "https://example.org/b", Content: "Each vertex and edge forms a graph."},
		},
		Nodes: []model.ExtractedNode{
			{Label: "vertex", Kind: model.KindConcept, Frequency: 2},
			{Label: "edge", Kind: model.KindConcept, Frequency: 2},
		},
	}
}

func TestHealth(t *testing.T) {
	w := do(t, newTestServer(nil), http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","persistence":false}`, w.Body.String())
}

func TestCreateGraph(t *testing.T) {
	w := do(t, newTestServer(nil), http.MethodPost, "/graphs", sampleInput())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var result model.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, 2, result.Metadata.TotalNodes)
	assert.Equal(t, 1, result.Metadata.TotalEdges)
	assert.Len(t, result.Concepts, 2)
}

func TestCreateGraph_InvalidBody(t *testing.T) {
	s := newTestServer(nil)
	req := httptest.NewRequest(http.MethodPost, "/graphs", bytes.NewBufferString("{not json"))
	w := httptest.NewRecorder()
	s.SetupRouter().ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateGraph_Persist(t *testing.T) {
	d := &fakeDriver{}
	w := do(t, newTestServer(d), http.MethodPost, "/graphs?persist=true", sampleInput())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.NotEmpty(t, d.queries)

	w = do(t, newTestServer(nil), http.MethodPost, "/graphs?persist=true", sampleInput())
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestCreateGraph_PersistFailure(t *testing.T) {
	d := &fakeDriver{err: errors.New("connection refused")}
	w := do(t, newTestServer(d), http.MethodPost, "/graphs?persist=true", sampleInput())
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestCreateGraph_StageFailure(t *testing.T) {
	s := newTestServer(nil)
	s.Runner = failingRunner{}
	w := do(t, s, http.MethodPost, "/graphs", sampleInput())
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, core.StageSubgraph, body["stage"])
}

func TestDedupe(t *testing.T) {
	req := DedupeRequest{Concepts: []model.ConceptRecord{
		{Name: "Algorithm", ImportanceScore: 0.9},
		{Name: "Algorithms", ImportanceScore: 0.5},
		{Name: "Graph", ImportanceScore: 0.4},
	}}
	w := do(t, newTestServer(nil), http.MethodPost, "/concepts/dedupe", req)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Concepts []model.ConceptRecord `json:"concepts"`
		Report   model.DedupeReport    `json:"report"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Concepts, 2)
	assert.Equal(t, 3, body.Report.Input)
	assert.Equal(t, 2, body.Report.Output)
}

func TestGetRun(t *testing.T) {
	d := &fakeDriver{result: neo4j.EagerResult{Records: []*neo4j.Record{{
		Keys:   []string{"id", "topic", "concepts"},
		Values: []any{"run-1", "graphs", []any{"vertex"}},
	}}}}
	w := do(t, newTestServer(d), http.MethodGet, "/runs/run-1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var run model.RunSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &run))
	assert.Equal(t, "graphs", run.Topic)
	assert.Equal(t, []string{"vertex"}, run.Concepts)
}

func TestGetRun_Errors(t *testing.T) {
	w := do(t, newTestServer(&fakeDriver{}), http.MethodGet, "/runs/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, newTestServer(nil), http.MethodGet, "/runs/run-1", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = do(t, newTestServer(&fakeDriver{err: errors.New("down")}), http.MethodGet, "/runs/run-1", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestDeleteRun(t *testing.T) {
	d := &fakeDriver{}
	w := do(t, newTestServer(d), http.MethodDelete, "/runs/run-1", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Len(t, d.queries, 1)
}
