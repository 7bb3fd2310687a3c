package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/relayforge/taskmesh/pkg/agent"
	httpctrl "github.com/relayforge/taskmesh/pkg/controller/http"
	"github.com/relayforge/taskmesh/pkg/dispatcher"
	"github.com/relayforge/taskmesh/pkg/domain/interfaces"
	"github.com/relayforge/taskmesh/pkg/domain/model"
	"github.com/relayforge/taskmesh/pkg/domain/types"
	"github.com/relayforge/taskmesh/pkg/repository/memory"
	"github.com/relayforge/taskmesh/pkg/selector"
)

type stubSelector struct{}

func (s *stubSelector) Choose(policy model.TaskPolicy) (*model.Provider, error) {
	for _, name := range policy.Ranking {
		if name == "gpt4" {
			return &model.Provider{Name: "gpt4", Endpoint: "http://gpt4.example.com",
				CostPerToken: 0.03, Available: true}, nil
		}
	}
	return nil, selector.ErrNoProviderAvailable
}

func (s *stubSelector) HealthCheck(ctx context.Context) error { return nil }

func newTestServer(t *testing.T) (*httpctrl.Server, interfaces.Store) {
	t.Helper()

	store := memory.New()
	dsp := dispatcher.New(store, &stubSelector{})
	gt.NoError(t, dsp.RegisterAgent(agent.NewIntelligence("intel"))).Required()

	return httpctrl.New(dsp, store, httpctrl.WithVectorDimension(3)), store
}

func taskBody(t *testing.T, id string) *bytes.Reader {
	t.Helper()

	task := model.Task{
		ID:      types.TaskID(id),
		AgentID: "intel",
		Input: model.TaskInput{
			Kind:    types.InputKindText,
			Content: "summarize: release notes",
		},
		Policy: model.TaskPolicy{
			Ranking:   []types.ProviderName{"gpt4"},
			TimeoutMS: 5000,
		},
	}
	data, err := json.Marshal(task)
	gt.NoError(t, err).Required()
	return bytes.NewReader(data)
}

func TestSubmitTask(t *testing.T) {
	server, _ := newTestServer(t)

	t.Run("completes a valid task", func(t *testing.T) {
		rec := httptest.NewRecorder()
		server.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/tasks", taskBody(t, "t1")))

		gt.Value(t, rec.Code).Equal(http.StatusOK)

		var resp model.Response
		gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp)).Required()
		gt.Value(t, resp.TaskID).Equal(types.TaskID("t1"))
		gt.Value(t, resp.Status).Equal(types.TaskStatusCompleted)
		gt.Value(t, resp.Metadata.Provider).Equal(types.ProviderName("gpt4"))
	})

	t.Run("invalid task yields a failed response", func(t *testing.T) {
		rec := httptest.NewRecorder()
		server.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/tasks",
			strings.NewReader(`{"task_id": "t2"}`)))

		gt.Value(t, rec.Code).Equal(http.StatusUnprocessableEntity)

		var resp model.Response
		gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp)).Required()
		gt.Value(t, resp.Status).Equal(types.TaskStatusFailed)
	})

	t.Run("malformed body is a bad request", func(t *testing.T) {
		rec := httptest.NewRecorder()
		server.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/tasks",
			strings.NewReader("not json")))

		gt.Value(t, rec.Code).Equal(http.StatusBadRequest)
	})
}

func TestGetTask(t *testing.T) {
	server, _ := newTestServer(t)

	t.Run("unknown task is 404", func(t *testing.T) {
		rec := httptest.NewRecorder()
		server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tasks/unknown", nil))
		gt.Value(t, rec.Code).Equal(http.StatusNotFound)
	})

	t.Run("finished task is returned", func(t *testing.T) {
		rec := httptest.NewRecorder()
		server.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/tasks", taskBody(t, "t3")))
		gt.Value(t, rec.Code).Equal(http.StatusOK)

		rec = httptest.NewRecorder()
		server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tasks/t3", nil))
		gt.Value(t, rec.Code).Equal(http.StatusOK)

		var resp model.Response
		gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp)).Required()
		gt.Value(t, resp.Status).Equal(types.TaskStatusCompleted)
	})
}

func TestStreamSubmit(t *testing.T) {
	server, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/tasks/stream", taskBody(t, "t4")))

	gt.Value(t, rec.Code).Equal(http.StatusOK)
	gt.Value(t, rec.Header().Get("Content-Type")).Equal("text/event-stream")

	body := rec.Body.String()
	gt.Bool(t, strings.HasPrefix(body, "data: ")).True()
	gt.Value(t, strings.Count(body, "data: ")).Equal(1)
}

func TestHealth(t *testing.T) {
	server, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	gt.Value(t, rec.Code).Equal(http.StatusOK)

	var snap map[string]any
	gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap)).Required()
	gt.Value(t, snap["status"]).Equal(any("healthy"))
	gt.Value(t, snap["active_agents"]).Equal(any(float64(1)))
}

func TestMetricsSnapshot(t *testing.T) {
	server, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	gt.Value(t, rec.Code).Equal(http.StatusOK)

	rec = httptest.NewRecorder()
	server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics/prometheus", nil))
	gt.Value(t, rec.Code).Equal(http.StatusOK)
}

func TestEmbeddings(t *testing.T) {
	server, _ := newTestServer(t)

	t.Run("upsert then search", func(t *testing.T) {
		rec := httptest.NewRecorder()
		server.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/embeddings",
			strings.NewReader(`{"id":"e1","tenant_id":"acme","content":"hello","vector":[1,0,0]}`)))
		gt.Value(t, rec.Code).Equal(http.StatusOK)

		rec = httptest.NewRecorder()
		server.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/embeddings/search",
			strings.NewReader(`{"tenant_id":"acme","vector":[1,0,0],"limit":5}`)))
		gt.Value(t, rec.Code).Equal(http.StatusOK)

		var resp struct {
			Results []*model.Embedding `json:"results"`
		}
		gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp)).Required()
		gt.Array(t, resp.Results).Length(1)
		gt.Value(t, resp.Results[0].ID).Equal(types.EmbeddingID("e1"))
	})

	t.Run("dimension mismatch is rejected", func(t *testing.T) {
		rec := httptest.NewRecorder()
		server.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/embeddings",
			strings.NewReader(`{"id":"e2","tenant_id":"acme","vector":[1,0]}`)))
		gt.Value(t, rec.Code).Equal(http.StatusBadRequest)
	})

	t.Run("missing tenant is rejected", func(t *testing.T) {
		rec := httptest.NewRecorder()
		server.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/embeddings/search",
			strings.NewReader(`{"vector":[1,0,0]}`)))
		gt.Value(t, rec.Code).Equal(http.StatusBadRequest)
	})
}

func TestSnapshots(t *testing.T) {
	server, _ := newTestServer(t)

	t.Run("create with generated id then fetch", func(t *testing.T) {
		rec := httptest.NewRecorder()
		server.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/snapshots",
			strings.NewReader(`{"tenant_id":"acme","values":{"topic":"billing"}}`)))
		gt.Value(t, rec.Code).Equal(http.StatusOK)

		var created map[string]string
		gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created)).Required()
		gt.String(t, created["id"]).NotEqual("")

		rec = httptest.NewRecorder()
		server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/snapshots/"+created["id"], nil))
		gt.Value(t, rec.Code).Equal(http.StatusOK)
	})

	t.Run("unknown snapshot is 404", func(t *testing.T) {
		rec := httptest.NewRecorder()
		server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/snapshots/none", nil))
		gt.Value(t, rec.Code).Equal(http.StatusNotFound)
	})
}

func TestConversationHistory(t *testing.T) {
	server, store := newTestServer(t)
	ctx := context.Background()

	_, err := store.History().Append(ctx, "conv-1", "t1")
	gt.NoError(t, err).Required()
	_, err = store.History().Append(ctx, "conv-1", "t2")
	gt.NoError(t, err).Required()

	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/conversations/conv-1/history", nil))
	gt.Value(t, rec.Code).Equal(http.StatusOK)

	var resp struct {
		Entries []*model.HistoryEntry `json:"entries"`
	}
	gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp)).Required()
	gt.Array(t, resp.Entries).Length(2)
	gt.Value(t, resp.Entries[0].Seq).Equal(int64(1))
	gt.Value(t, resp.Entries[1].Seq).Equal(int64(2))
}
