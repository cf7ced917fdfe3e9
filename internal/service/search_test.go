package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/louayabidi/web-semantique/internal/model"
	"github.com/louayabidi/web-semantique/internal/ontology"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu      sync.Mutex
	queries []string
	result  *model.QueryResult
	err     error
}

func (s *fakeStore) Query(_ context.Context, sparql string) (*model.QueryResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries = append(s.queries, sparql)
	if s.err != nil {
		return nil, s.err
	}
	if s.result == nil {
		return &model.QueryResult{Vars: []string{"id", "nom"}}, nil
	}
	return s.result, nil
}

func (s *fakeStore) Ping(context.Context) error {
	return s.err
}

func (s *fakeStore) lastQuery() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queries) == 0 {
		return ""
	}
	return s.queries[len(s.queries)-1]
}

type fakeHistory struct {
	mu       sync.Mutex
	entries  []*model.SearchLogEntry
	popular  []string
	feedback []string
	err      error
}

func (h *fakeHistory) LogSearch(_ context.Context, entry *model.SearchLogEntry) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, entry)
	return h.err
}

func (h *fakeHistory) SimilarSearches(_ context.Context, searchID string, limit int) ([]model.SimilarSearch, error) {
	if h.err != nil {
		return nil, h.err
	}
	return []model.SimilarSearch{{SearchID: searchID, Question: fmt.Sprintf("limit %d", limit)}}, nil
}

func (h *fakeHistory) PopularQuestions(context.Context, int) ([]string, error) {
	return h.popular, h.err
}

func (h *fakeHistory) LogFeedback(_ context.Context, searchID, resultID, action string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.feedback = append(h.feedback, searchID+"/"+resultID+"/"+action)
	return h.err
}

func (h *fakeHistory) GetSearch(_ context.Context, searchID string) (*model.SearchLogEntry, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, e := range h.entries {
		if e.SearchID == searchID {
			return e, nil
		}
	}
	return nil, model.ErrSearchNotFound
}

func (h *fakeHistory) logged() []*model.SearchLogEntry {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]*model.SearchLogEntry(nil), h.entries...)
}

func newTestSearchService(t *testing.T, store Store, history SearchLog) *SearchService {
	t.Helper()
	return NewSearchService(store, history, newTestTranslator(t, ModeKeyword), ontology.Default(), nil, model.MaxLimit)
}

func TestSearch(t *testing.T) {
	store := &fakeStore{result: &model.QueryResult{
		Vars: []string{"id", "nom"},
		Bindings: []model.Binding{
			{"id": {Type: "literal", Value: "Lentilles"}, "nom": {Type: "literal", Value: "Lentilles"}},
		},
	}}
	history := &fakeHistory{}
	svc := newTestSearchService(t, store, history)

	resp, err := svc.Search(context.Background(), &model.SemanticSearchRequest{Query: "Aliments riches en fibres"})
	require.NoError(t, err)

	assert.NotEmpty(t, resp.SearchID)
	assert.Equal(t, 1, resp.Count)
	assert.Equal(t, "Aliments riches en fibres", resp.OriginalQuery)
	assert.Equal(t, model.EntityFood, resp.Intent.EntityKind)
	assert.Equal(t, store.lastQuery(), resp.GeneratedSPARQL)

	assert.Eventually(t, func() bool { return len(history.logged()) == 1 }, time.Second, 10*time.Millisecond)
	entry := history.logged()[0]
	assert.Equal(t, resp.SearchID, entry.SearchID)
	assert.Equal(t, "Food", entry.EntityKind)
	assert.Equal(t, []string{"Fiber"}, []string(entry.Attributes))
	assert.Equal(t, ModeKeyword, entry.AnalyzerMode)
	assert.Len(t, entry.IntentVector.Slice(), IntentVectorDims)
	assert.Equal(t, "Food", entry.Intent["entity_kind"])

	got, err := svc.GetSearch(context.Background(), resp.SearchID)
	require.NoError(t, err)
	assert.Equal(t, "Aliments riches en fibres", got.Question)
	_, err = svc.GetSearch(context.Background(), "missing")
	assert.ErrorIs(t, err, model.ErrSearchNotFound)
}

func TestSearchOptionsLimit(t *testing.T) {
	store := &fakeStore{}
	svc := newTestSearchService(t, store, nil)

	resp, err := svc.Search(context.Background(), &model.SemanticSearchRequest{
		Query:   "aliments",
		Options: &model.SearchOptions{Limit: 500},
	})
	require.NoError(t, err)
	assert.Equal(t, model.MaxLimit, resp.Intent.Limit)
	assert.Contains(t, store.lastQuery(), "LIMIT 100")
	assert.NotNil(t, resp.Results)
}

func TestSearchErrors(t *testing.T) {
	svc := newTestSearchService(t, &fakeStore{err: fmt.Errorf("%w: connection refused", model.ErrQueryExecution)}, nil)

	_, err := svc.Search(context.Background(), &model.SemanticSearchRequest{Query: "   "})
	assert.ErrorIs(t, err, model.ErrEmptyQuestion)

	_, err = svc.Search(context.Background(), &model.SemanticSearchRequest{Query: "aliments"})
	assert.ErrorIs(t, err, model.ErrQueryExecution)
	assert.NotErrorIs(t, err, model.ErrEmptyQuestion)
}

func TestSearchStreamEvents(t *testing.T) {
	svc := newTestSearchService(t, &fakeStore{}, nil)

	var events []string
	_, err := svc.SearchStream(context.Background(), &model.SemanticSearchRequest{Query: "recettes"}, func(event string, _ any) error {
		events = append(events, event)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"intent", "sparql", "executing"}, events)

	stop := errors.New("client gone")
	_, err = svc.SearchStream(context.Background(), &model.SemanticSearchRequest{Query: "recettes"}, func(string, any) error {
		return stop
	})
	assert.ErrorIs(t, err, stop)
}

func TestTranslate(t *testing.T) {
	svc := newTestSearchService(t, &fakeStore{}, nil)

	resp, err := svc.Translate("Personnes de plus de 60 ans")
	require.NoError(t, err)
	assert.Equal(t, model.EntityPerson, resp.Intent.EntityKind)
	assert.Contains(t, resp.SPARQL, "?age > 60")
	assert.Equal(t, ModeKeyword, resp.Mode)

	_, err = svc.Translate("")
	assert.ErrorIs(t, err, model.ErrEmptyQuestion)
}

func TestRawQuery(t *testing.T) {
	store := &fakeStore{}
	svc := newTestSearchService(t, store, nil)

	_, err := svc.RawQuery(context.Background(), "SELECT * WHERE { ?s ?p ?o } LIMIT 1")
	require.NoError(t, err)

	_, err = svc.RawQuery(context.Background(), "DELETE WHERE { ?s ?p ?o }")
	assert.ErrorIs(t, err, model.ErrUnsupportedQuery)
}

func TestIsReadQuery(t *testing.T) {
	tests := map[string]bool{
		"SELECT ?s WHERE { ?s ?p ?o }":                                true,
		"  ask { ?s ?p ?o }":                                          true,
		"PREFIX n: <http://x#>\nSELECT * WHERE { ?s a n:Aliment }":    true,
		"# comment\nPREFIX n: <http://x#>\nBASE <http://y/>\nASK {}":  true,
		"INSERT DATA { <a> <b> <c> }":                                 false,
		"PREFIX n: <http://x#>\nDELETE WHERE { ?s ?p ?o }":            false,
		"CONSTRUCT { ?s ?p ?o } WHERE { ?s ?p ?o }":                   false,
		"# only a comment":                                            false,
		"":                                                            false,
	}
	for q, want := range tests {
		assert.Equal(t, want, IsReadQuery(q), q)
	}
}

func TestStats(t *testing.T) {
	store := &fakeStore{result: &model.QueryResult{
		Vars: []string{"class", "count"},
		Bindings: []model.Binding{
			{"class": {Type: "uri", Value: ontology.Namespace + "Aliment"}, "count": {Type: "literal", Value: "42"}},
			{"class": {Type: "uri", Value: ontology.Namespace + "Recette"}, "count": {Type: "literal", Value: "7"}},
			{"class": {Type: "uri", Value: "http://other#Thing"}, "count": {Type: "literal", Value: "1000"}},
		},
	}}
	svc := newTestSearchService(t, store, nil)

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, stats.Counts["Food"])
	assert.Equal(t, 7, stats.Counts["Recipe"])
	assert.Equal(t, 0, stats.Counts["Person"])
	assert.Len(t, stats.Counts, 6)
	assert.Equal(t, 49, stats.Total)
}

func TestSuggestions(t *testing.T) {
	svc := newTestSearchService(t, &fakeStore{}, nil)
	assert.Equal(t, baseSuggestions, svc.Suggestions(context.Background()))

	history := &fakeHistory{popular: []string{"recettes sans gluten", "Aliments faibles en calories"}}
	svc = newTestSearchService(t, &fakeStore{}, history)
	got := svc.Suggestions(context.Background())
	assert.Equal(t, "recettes sans gluten", got[0])
	assert.Equal(t, "Aliments faibles en calories", got[1])
	assert.Len(t, got, len(baseSuggestions)+1)
}

func TestSearchLogDisabled(t *testing.T) {
	svc := newTestSearchService(t, &fakeStore{}, nil)

	_, err := svc.SimilarSearches(context.Background(), "id", 5)
	assert.ErrorIs(t, err, model.ErrSearchLogDisabled)
	assert.ErrorIs(t, svc.LogFeedback(context.Background(), "id", "r", "click"), model.ErrSearchLogDisabled)
	_, err = svc.GetSearch(context.Background(), "id")
	assert.ErrorIs(t, err, model.ErrSearchLogDisabled)
}

func TestSimilarAndFeedback(t *testing.T) {
	history := &fakeHistory{}
	svc := newTestSearchService(t, &fakeStore{}, history)

	similar, err := svc.SimilarSearches(context.Background(), "abc", 1000)
	require.NoError(t, err)
	assert.Equal(t, "limit 100", similar[0].Question)

	require.NoError(t, svc.LogFeedback(context.Background(), "abc", "Lentilles", "useful"))
	assert.Equal(t, []string{"abc/Lentilles/useful"}, history.feedback)
}

func TestHealth(t *testing.T) {
	assert.NoError(t, newTestSearchService(t, &fakeStore{}, nil).Health(context.Background()))
	assert.Error(t, newTestSearchService(t, &fakeStore{err: errors.New("down")}, nil).Health(context.Background()))
}
