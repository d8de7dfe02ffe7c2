package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/flowgrid/flowgrid/pkg/buildinfo"
	"github.com/flowgrid/flowgrid/pkg/diagram"
	"github.com/flowgrid/flowgrid/pkg/errors"
	"github.com/flowgrid/flowgrid/pkg/pipeline"
	"github.com/flowgrid/flowgrid/pkg/refine"
)

// tidyRequest is the body of POST /v1/tidy.
type tidyRequest struct {
	Diagram diagram.Diagram  `json:"diagram"`
	Options pipeline.Options `json:"options"`
}

// tidyResponse is the body of a successful tidy.
type tidyResponse struct {
	Diagram     diagram.Diagram    `json:"diagram"`
	DiagramHash string             `json:"diagram_hash"`
	Diagnostics refine.Diagnostics `json:"diagnostics"`
	Artifacts   map[string][]byte  `json:"artifacts,omitempty"`
	CacheInfo   pipeline.CacheInfo `json:"cache_info"`
}

func (s *Server) handleTidy(w http.ResponseWriter, r *http.Request) {
	var req tidyRequest
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		respondError(w, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode request"))
		return
	}
	if len(req.Diagram.Elements) == 0 {
		respondError(w, errors.New(errors.ErrCodeInvalidDiagram, "diagram has no elements"))
		return
	}

	result, err := s.runner.Execute(r.Context(), req.Diagram, req.Options)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, tidyResponse{
		Diagram:     result.Diagram,
		DiagramHash: result.DiagramHash,
		Diagnostics: result.Diagnostics,
		Artifacts:   result.Artifacts,
		CacheInfo:   result.CacheInfo,
	})
}

func (s *Server) handleListDiagrams(w http.ResponseWriter, r *http.Request) {
	names, err := s.store.List(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string][]string{"diagrams": names})
}

func (s *Server) handleGetDiagram(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	rec, err := s.store.Get(r.Context(), name)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

func (s *Server) handlePutDiagram(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := errors.ValidateDiagramName(name); err != nil {
		respondError(w, err)
		return
	}

	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	d, err := diagram.Read(body)
	if err != nil {
		respondError(w, errors.Wrap(errors.ErrCodeInvalidDiagram, err, "decode diagram"))
		return
	}

	if err := s.store.Put(r.Context(), name, d); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteDiagram(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := s.store.Delete(r.Context(), name); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"version": buildinfo.Version,
		"commit":  buildinfo.Commit,
		"built":   buildinfo.Date,
	})
}

// errorResponse is the body of every error reply.
type errorResponse struct {
	Error string      `json:"error"`
	Code  errors.Code `json:"code"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)
	respondJSON(w, httpStatus(code), errorResponse{
		Error: errors.UserMessage(err),
		Code:  code,
	})
}

// httpStatus maps error codes to HTTP status codes.
func httpStatus(code errors.Code) int {
	switch code {
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidDiagram,
		errors.ErrCodeInvalidConfig, errors.ErrCodeInvalidFormat,
		errors.ErrCodeInvalidName, errors.ErrCodeInvalidPath,
		errors.ErrCodeUnsupported:
		return http.StatusBadRequest
	case errors.ErrCodeNotFound, errors.ErrCodeDiagramNotFound,
		errors.ErrCodeElementNotFound, errors.ErrCodeFileNotFound:
		return http.StatusNotFound
	case errors.ErrCodeStorage, errors.ErrCodeCache:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
