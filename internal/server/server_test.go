package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/flowgrid/flowgrid/pkg/diagram"
	"github.com/flowgrid/flowgrid/pkg/model"
	"github.com/flowgrid/flowgrid/pkg/pipeline"
	"github.com/flowgrid/flowgrid/pkg/store"
)

func testServer() *Server {
	logger := log.NewWithOptions(io.Discard, log.Options{})
	runner := pipeline.NewRunner(nil, nil, logger)
	return New(store.NewMemoryStore(), runner, logger)
}

func testDiagram() diagram.Diagram {
	return diagram.Diagram{
		Name: "order",
		Elements: []diagram.Element{
			{ID: "start", Type: "startEvent", Bounds: model.Bounds{X: 0, Y: 22, Width: 36, Height: 36}},
			{ID: "check", Type: "task", Name: "Check order", Bounds: model.Bounds{X: 120, Y: 0, Width: 100, Height: 80}},
			{ID: "done", Type: "endEvent", Bounds: model.Bounds{X: 300, Y: 22, Width: 36, Height: 36}},
		},
		Connections: []diagram.Connection{
			{ID: "c1", Source: "start", Target: "check"},
			{ID: "c2", Source: "check", Target: "done"},
		},
		HappyPath: []string{"c1", "c2"},
	}
}

func doRequest(t *testing.T, h http.Handler, method, path string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	rec := doRequest(t, testServer().Router(), http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /healthz = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}

func TestVersion(t *testing.T) {
	rec := doRequest(t, testServer().Router(), http.MethodGet, "/version", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /version = %d, want 200", rec.Code)
	}
	var got map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got["version"] == "" {
		t.Error("version missing from response")
	}
}

func TestTidy(t *testing.T) {
	body, err := json.Marshal(tidyRequest{
		Diagram: testDiagram(),
		Options: pipeline.Options{Formats: []string{"svg"}},
	})
	if err != nil {
		t.Fatal(err)
	}

	rec := doRequest(t, testServer().Router(), http.MethodPost, "/v1/tidy", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /v1/tidy = %d: %s", rec.Code, rec.Body.String())
	}

	var resp tidyResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Diagram.Elements) != 3 {
		t.Errorf("refined diagram has %d elements, want 3", len(resp.Diagram.Elements))
	}
	if resp.DiagramHash == "" {
		t.Error("diagram hash missing")
	}
	if !bytes.Contains(resp.Artifacts["svg"], []byte("<svg")) {
		t.Error("svg artifact missing or malformed")
	}
}

func TestTidyRejectsEmptyDiagram(t *testing.T) {
	body, _ := json.Marshal(tidyRequest{})
	rec := doRequest(t, testServer().Router(), http.MethodPost, "/v1/tidy", body)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("POST /v1/tidy = %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "INVALID_DIAGRAM") {
		t.Errorf("expected INVALID_DIAGRAM code, got: %s", rec.Body.String())
	}
}

func TestTidyRejectsMalformedJSON(t *testing.T) {
	rec := doRequest(t, testServer().Router(), http.MethodPost, "/v1/tidy", []byte("{not json"))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("POST /v1/tidy = %d, want 400", rec.Code)
	}
}

func TestDiagramLifecycle(t *testing.T) {
	router := testServer().Router()

	d, err := diagram.Marshal(testDiagram())
	if err != nil {
		t.Fatal(err)
	}

	// Put
	rec := doRequest(t, router, http.MethodPut, "/v1/diagrams/order", d)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("PUT = %d: %s", rec.Code, rec.Body.String())
	}

	// Get
	rec = doRequest(t, router, http.MethodGet, "/v1/diagrams/order", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET = %d", rec.Code)
	}
	var got store.Record
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.Name != "order" || len(got.Diagram.Elements) != 3 {
		t.Errorf("unexpected record: %+v", got)
	}

	// List
	rec = doRequest(t, router, http.MethodGet, "/v1/diagrams", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("LIST = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"order"`) {
		t.Errorf("list missing diagram: %s", rec.Body.String())
	}

	// Delete
	rec = doRequest(t, router, http.MethodDelete, "/v1/diagrams/order", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("DELETE = %d", rec.Code)
	}

	// Get after delete
	rec = doRequest(t, router, http.MethodGet, "/v1/diagrams/order", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("GET after delete = %d, want 404", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "DIAGRAM_NOT_FOUND") {
		t.Errorf("expected DIAGRAM_NOT_FOUND code, got: %s", rec.Body.String())
	}
}

func TestPutRejectsInvalidName(t *testing.T) {
	d, _ := diagram.Marshal(testDiagram())
	rec := doRequest(t, testServer().Router(), http.MethodPut, "/v1/diagrams/a..b", d)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("PUT invalid name = %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "INVALID_NAME") {
		t.Errorf("expected INVALID_NAME code, got: %s", rec.Body.String())
	}
}
