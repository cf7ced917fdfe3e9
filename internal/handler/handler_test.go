package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/louayabidi/web-semantique/internal/lexicon"
	"github.com/louayabidi/web-semantique/internal/model"
	"github.com/louayabidi/web-semantique/internal/ontology"
	"github.com/louayabidi/web-semantique/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubStore struct {
	err error
}

func (s *stubStore) Query(context.Context, string) (*model.QueryResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &model.QueryResult{
		Vars:     []string{"id", "nom"},
		Bindings: []model.Binding{{"id": {Type: "literal", Value: "Pomme"}, "nom": {Type: "literal", Value: "Pomme"}}},
	}, nil
}

func (s *stubStore) Ping(context.Context) error { return s.err }

type stubHistory struct {
	known string
}

func (h *stubHistory) LogSearch(context.Context, *model.SearchLogEntry) error { return nil }

func (h *stubHistory) SimilarSearches(_ context.Context, searchID string, limit int) ([]model.SimilarSearch, error) {
	if searchID != h.known {
		return nil, model.ErrSearchNotFound
	}
	return []model.SimilarSearch{{SearchID: uuid.NewString(), Question: fmt.Sprintf("top %d", limit)}}, nil
}

func (h *stubHistory) PopularQuestions(context.Context, int) ([]string, error) { return nil, nil }

func (h *stubHistory) LogFeedback(_ context.Context, searchID, _, _ string) error {
	if searchID != h.known {
		return model.ErrSearchNotFound
	}
	return nil
}

func (h *stubHistory) GetSearch(_ context.Context, searchID string) (*model.SearchLogEntry, error) {
	if searchID != h.known {
		return nil, model.ErrSearchNotFound
	}
	return &model.SearchLogEntry{SearchID: searchID, Question: "aliments"}, nil
}

func newRouter(t *testing.T, store service.Store, history service.SearchLog) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mapping := ontology.Default()
	analyzer, err := service.NewAnalyzer(service.ModeKeyword, lexicon.MustDefault(), mapping, service.DefaultLimits())
	require.NoError(t, err)
	translator, err := service.NewTranslator(analyzer, service.NewBuilder(mapping, nil, nil, nil), 0, nil)
	require.NoError(t, err)
	svc := service.NewSearchService(store, history, translator, mapping, nil, model.MaxLimit)

	search := NewSearchHandler(svc, model.MaxLimit)
	feedback := NewFeedbackHandler(svc)
	hist := NewHistoryHandler(svc)

	r := gin.New()
	api := r.Group("/api/v1")
	api.POST("/semantic-search", search.Search)
	api.POST("/semantic-search/stream", search.SearchStream)
	api.POST("/translate", search.Translate)
	api.POST("/sparql", search.RawQuery)
	api.GET("/search-suggestions", search.Suggestions)
	api.GET("/search-stats", search.Stats)
	api.GET("/searches/:id", hist.Get)
	api.GET("/searches/:id/similar", hist.Similar)
	api.POST("/feedback", feedback.Submit)
	return r
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestSemanticSearch(t *testing.T) {
	r := newRouter(t, &stubStore{}, nil)

	w := do(r, http.MethodPost, "/api/v1/semantic-search", `{"query":"Aliments appelés pomme","options":{"limit":5}}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp model.SemanticSearchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)
	assert.Equal(t, "pomme", resp.Intent.NamePattern)
	assert.Equal(t, 5, resp.Intent.Limit)
	assert.Contains(t, resp.GeneratedSPARQL, "LIMIT 5")
	_, err := uuid.Parse(resp.SearchID)
	assert.NoError(t, err)
}

func TestSemanticSearchErrors(t *testing.T) {
	r := newRouter(t, &stubStore{err: fmt.Errorf("%w: dial tcp: connection refused", model.ErrQueryExecution)}, nil)

	w := do(r, http.MethodPost, "/api/v1/semantic-search", `{"query":""}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPost, "/api/v1/semantic-search", `{"query":"   "}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPost, "/api/v1/semantic-search", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPost, "/api/v1/semantic-search", `{"query":"aliments riches en fibres"}`)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "query execution failed", decode(t, w)["error"])
}

func TestSemanticSearchStream(t *testing.T) {
	r := newRouter(t, &stubStore{}, nil)

	w := do(r, http.MethodPost, "/api/v1/semantic-search/stream", `{"query":"recettes pour diabétiques"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream; charset=utf-8", w.Header().Get("Content-Type"))

	body := w.Body.String()
	var order []int
	for _, event := range []string{"start", "intent", "sparql", "executing", "results", "done"} {
		idx := strings.Index(body, "event: "+event+"\n")
		require.GreaterOrEqual(t, idx, 0, "missing %s event in %s", event, body)
		order = append(order, idx)
	}
	assert.IsIncreasing(t, order)
	assert.Contains(t, body, "event: done\ndata: {}\n\n")
}

func TestSemanticSearchStreamError(t *testing.T) {
	r := newRouter(t, &stubStore{err: model.ErrQueryExecution}, nil)

	w := do(r, http.MethodPost, "/api/v1/semantic-search/stream", `{"query":"aliments"}`)
	body := w.Body.String()
	assert.Contains(t, body, "event: error\ndata: {\"error\":\"query execution failed\"}")
	assert.NotContains(t, body, "event: done")
}

func TestTranslateHandler(t *testing.T) {
	r := newRouter(t, &stubStore{}, nil)

	w := do(r, http.MethodPost, "/api/v1/translate", `{"query":"Personnes de plus de 60 ans"}`)
	require.Equal(t, http.StatusOK, w.Code)
	out := decode(t, w)
	assert.Equal(t, "keyword", out["analyzer_mode"])
	assert.Contains(t, out["sparql"], "?age > 60")
}

func TestRawQueryHandler(t *testing.T) {
	r := newRouter(t, &stubStore{}, nil)

	w := do(r, http.MethodPost, "/api/v1/sparql", `{"query":"SELECT * WHERE { ?s ?p ?o } LIMIT 1"}`)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(r, http.MethodPost, "/api/v1/sparql", `{"query":"DROP ALL"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSuggestionsAndStats(t *testing.T) {
	r := newRouter(t, &stubStore{}, nil)

	w := do(r, http.MethodGet, "/api/v1/search-suggestions", "")
	require.Equal(t, http.StatusOK, w.Code)
	var suggestions []string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &suggestions))
	assert.NotEmpty(t, suggestions)

	w = do(r, http.MethodGet, "/api/v1/search-stats", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestFeedbackHandler(t *testing.T) {
	known := uuid.NewString()

	disabled := newRouter(t, &stubStore{}, nil)
	w := do(disabled, http.MethodPost, "/api/v1/feedback", fmt.Sprintf(`{"search_id":%q,"result_id":"Pomme","action":"click"}`, known))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	r := newRouter(t, &stubStore{}, &stubHistory{known: known})

	w = do(r, http.MethodPost, "/api/v1/feedback", fmt.Sprintf(`{"search_id":%q,"result_id":"Pomme","action":"click"}`, known))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["success"])

	w = do(r, http.MethodPost, "/api/v1/feedback", fmt.Sprintf(`{"search_id":%q,"result_id":"Pomme","action":"like"}`, known))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPost, "/api/v1/feedback", fmt.Sprintf(`{"search_id":%q,"result_id":"Pomme","action":"useful"}`, uuid.NewString()))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(r, http.MethodPost, "/api/v1/feedback", `{"search_id":"x"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHistoryHandler(t *testing.T) {
	known := uuid.NewString()
	r := newRouter(t, &stubStore{}, &stubHistory{known: known})

	w := do(r, http.MethodGet, "/api/v1/searches/"+known+"/similar?limit=3", "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp model.SimilarSearchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, known, resp.SearchID)
	assert.Equal(t, "top 3", resp.Similar[0].Question)

	w = do(r, http.MethodGet, "/api/v1/searches/not-a-uuid/similar", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodGet, "/api/v1/searches/"+known+"/similar?limit=-1", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodGet, "/api/v1/searches/"+uuid.NewString()+"/similar", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(r, http.MethodGet, "/api/v1/searches/"+known, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "aliments", decode(t, w)["question"])

	disabled := newRouter(t, &stubStore{}, nil)
	w = do(disabled, http.MethodGet, "/api/v1/searches/"+known+"/similar", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
