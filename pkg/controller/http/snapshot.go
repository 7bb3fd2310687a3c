package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/relayforge/taskmesh/pkg/domain/model"
	"github.com/relayforge/taskmesh/pkg/domain/types"
	"github.com/relayforge/taskmesh/pkg/utils/errutil"
)

// putSnapshotHandler stores a context fragment for later task hydration.
// A missing id gets a generated time-ordered UUID.
func (s *Server) putSnapshotHandler(w http.ResponseWriter, r *http.Request) {
	var snapshot model.Snapshot
	if err := json.NewDecoder(r.Body).Decode(&snapshot); err != nil {
		errutil.HandleHTTP(r.Context(), w, goerr.Wrap(err, "failed to decode snapshot"), http.StatusBadRequest)
		return
	}

	if snapshot.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			errutil.HandleHTTP(r.Context(), w, goerr.Wrap(err, "failed to generate snapshot id"), http.StatusInternalServerError)
			return
		}
		snapshot.ID = types.SnapshotID(id.String())
	}
	if len(snapshot.Values) == 0 {
		errutil.HandleHTTP(r.Context(), w, goerr.New("snapshot values are required"), http.StatusBadRequest)
		return
	}

	if err := s.store.Snapshots().Put(r.Context(), &snapshot); err != nil {
		errutil.HandleHTTP(r.Context(), w, err, http.StatusInternalServerError)
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]string{"id": string(snapshot.ID)})
}

func (s *Server) getSnapshotHandler(w http.ResponseWriter, r *http.Request) {
	id := types.SnapshotID(chi.URLParam(r, "id"))

	snapshot, err := s.store.Snapshots().Get(r.Context(), id)
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, err, http.StatusInternalServerError)
		return
	}
	if snapshot == nil {
		errutil.HandleHTTP(r.Context(), w, goerr.New("snapshot not found", goerr.V("id", id)), http.StatusNotFound)
		return
	}

	writeJSON(w, r, http.StatusOK, snapshot)
}

type historyResponse struct {
	Entries []*model.HistoryEntry `json:"entries"`
}

// getHistoryHandler lists a conversation's entries in sequence order
func (s *Server) getHistoryHandler(w http.ResponseWriter, r *http.Request) {
	conversationID := types.ConversationID(chi.URLParam(r, "id"))

	entries, err := s.store.History().List(r.Context(), conversationID)
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, err, http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []*model.HistoryEntry{}
	}

	writeJSON(w, r, http.StatusOK, historyResponse{Entries: entries})
}
