package http

import (
	"encoding/json"
	"net/http"

	"github.com/m-mizutani/goerr/v2"
	"github.com/relayforge/taskmesh/pkg/domain/model"
	"github.com/relayforge/taskmesh/pkg/domain/types"
	"github.com/relayforge/taskmesh/pkg/utils/errutil"
)

const defaultSearchLimit = 10

func (s *Server) validateVector(vector []float32) error {
	if len(vector) == 0 {
		return goerr.New("vector is required")
	}
	if s.vectorDim > 0 && len(vector) != s.vectorDim {
		return goerr.New("vector dimensionality mismatch",
			goerr.V("expected", s.vectorDim), goerr.V("got", len(vector)))
	}
	return nil
}

func (s *Server) upsertEmbeddingHandler(w http.ResponseWriter, r *http.Request) {
	var record model.Embedding
	if err := json.NewDecoder(r.Body).Decode(&record); err != nil {
		errutil.HandleHTTP(r.Context(), w, goerr.Wrap(err, "failed to decode embedding"), http.StatusBadRequest)
		return
	}

	if record.ID == "" {
		errutil.HandleHTTP(r.Context(), w, goerr.New("embedding id is required"), http.StatusBadRequest)
		return
	}
	if record.TenantID == "" {
		errutil.HandleHTTP(r.Context(), w, goerr.New("tenant_id is required"), http.StatusBadRequest)
		return
	}
	if err := s.validateVector(record.Vector); err != nil {
		errutil.HandleHTTP(r.Context(), w, err, http.StatusBadRequest)
		return
	}

	if err := s.store.Embeddings().Upsert(r.Context(), &record); err != nil {
		errutil.HandleHTTP(r.Context(), w, err, http.StatusInternalServerError)
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]string{"id": string(record.ID)})
}

type searchRequest struct {
	TenantID types.TenantID `json:"tenant_id"`
	Vector   []float32      `json:"vector"`
	Limit    int            `json:"limit,omitempty"`
}

type searchResponse struct {
	Results []*model.Embedding `json:"results"`
}

func (s *Server) searchEmbeddingHandler(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errutil.HandleHTTP(r.Context(), w, goerr.Wrap(err, "failed to decode search request"), http.StatusBadRequest)
		return
	}

	if req.TenantID == "" {
		errutil.HandleHTTP(r.Context(), w, goerr.New("tenant_id is required"), http.StatusBadRequest)
		return
	}
	if err := s.validateVector(req.Vector); err != nil {
		errutil.HandleHTTP(r.Context(), w, err, http.StatusBadRequest)
		return
	}
	if req.Limit <= 0 {
		req.Limit = defaultSearchLimit
	}

	results, err := s.store.Embeddings().Nearest(r.Context(), req.TenantID, req.Vector, req.Limit)
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, err, http.StatusInternalServerError)
		return
	}
	if results == nil {
		results = []*model.Embedding{}
	}

	writeJSON(w, r, http.StatusOK, searchResponse{Results: results})
}
