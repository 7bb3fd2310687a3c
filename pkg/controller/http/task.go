package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/goerr/v2"
	"github.com/relayforge/taskmesh/pkg/dispatcher"
	"github.com/relayforge/taskmesh/pkg/domain/model"
	"github.com/relayforge/taskmesh/pkg/domain/types"
	"github.com/relayforge/taskmesh/pkg/utils/errutil"
	"github.com/relayforge/taskmesh/pkg/utils/safe"
)

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, goerr.Wrap(err, "failed to marshal response"), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	safe.Write(r.Context(), w, data)
}

// submitTaskHandler runs a task through the dispatcher. The dispatcher
// converts pipeline errors into failed responses, so this always returns a
// Response body.
func (s *Server) submitTaskHandler(w http.ResponseWriter, r *http.Request) {
	var task model.Task
	if err := json.NewDecoder(r.Body).Decode(&task); err != nil {
		errutil.HandleHTTP(r.Context(), w, goerr.Wrap(err, "failed to decode task"), http.StatusBadRequest)
		return
	}

	resp := s.dispatcher.Submit(r.Context(), &task)

	status := http.StatusOK
	if resp.Status == types.TaskStatusFailed {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, r, status, resp)
}

func (s *Server) getTaskHandler(w http.ResponseWriter, r *http.Request) {
	taskID := types.TaskID(chi.URLParam(r, "id"))

	resp, err := s.dispatcher.Status(r.Context(), taskID)
	if err != nil {
		if errors.Is(err, dispatcher.ErrTaskNotFound) {
			errutil.HandleHTTP(r.Context(), w, err, http.StatusNotFound)
			return
		}
		errutil.HandleHTTP(r.Context(), w, err, http.StatusInternalServerError)
		return
	}

	writeJSON(w, r, http.StatusOK, resp)
}

// streamSubmitHandler submits the task and emits each element of the
// resulting sequence as a server-sent event. The sequence is single-shot:
// exactly one terminal response is observed.
func (s *Server) streamSubmitHandler(w http.ResponseWriter, r *http.Request) {
	var task model.Task
	if err := json.NewDecoder(r.Body).Decode(&task); err != nil {
		errutil.HandleHTTP(r.Context(), w, goerr.Wrap(err, "failed to decode task"), http.StatusBadRequest)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		errutil.HandleHTTP(r.Context(), w, goerr.New("streaming unsupported by connection"), http.StatusInternalServerError)
		return
	}

	setSSEHeaders(w)

	for resp := range s.dispatcher.Stream(r.Context(), &task) {
		writeSSEEvent(w, r, resp)
		flusher.Flush()
	}
}

// streamStatusHandler emits the current state of an existing task as a
// single server-sent event.
func (s *Server) streamStatusHandler(w http.ResponseWriter, r *http.Request) {
	taskID := types.TaskID(chi.URLParam(r, "id"))

	resp, err := s.dispatcher.Status(r.Context(), taskID)
	if err != nil {
		if errors.Is(err, dispatcher.ErrTaskNotFound) {
			errutil.HandleHTTP(r.Context(), w, err, http.StatusNotFound)
			return
		}
		errutil.HandleHTTP(r.Context(), w, err, http.StatusInternalServerError)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		errutil.HandleHTTP(r.Context(), w, goerr.New("streaming unsupported by connection"), http.StatusInternalServerError)
		return
	}

	setSSEHeaders(w)
	writeSSEEvent(w, r, resp)
	flusher.Flush()
}

func setSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
}

func writeSSEEvent(w http.ResponseWriter, r *http.Request, resp *model.Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		safe.Write(r.Context(), w, []byte("event: error\ndata: {}\n\n"))
		return
	}
	safe.Write(r.Context(), w, []byte(fmt.Sprintf("data: %s\n\n", data)))
}
