package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/louayabidi/web-semantique/internal/model"
	"github.com/louayabidi/web-semantique/internal/ontology"
	"github.com/pgvector/pgvector-go"
)

// Store runs SPARQL against the triple store
type Store interface {
	Query(ctx context.Context, sparql string) (*model.QueryResult, error)
	Ping(ctx context.Context) error
}

// SearchLog persists searches and feedback
type SearchLog interface {
	LogSearch(ctx context.Context, entry *model.SearchLogEntry) error
	SimilarSearches(ctx context.Context, searchID string, limit int) ([]model.SimilarSearch, error)
	PopularQuestions(ctx context.Context, limit int) ([]string, error)
	LogFeedback(ctx context.Context, searchID, resultID, action string) error
	GetSearch(ctx context.Context, searchID string) (*model.SearchLogEntry, error)
}

// baseSuggestions are shown before any history exists
var baseSuggestions = []string{
	"Quels aliments sont riches en fibres ?",
	"Montre-moi les aliments à faible index glycémique",
	"Donne-moi des recettes pour diabétiques",
	"Quels aliments pour perdre du poids ?",
	"Aliments faibles en calories",
	"Activités physiques pour brûler des calories",
	"Aliments riches en protéines",
	"Personnes de plus de 60 ans",
	"Aliments sans gluten",
	"Quels aliments sont bons pour le cœur ?",
}

// SearchService handles semantic search business logic
type SearchService struct {
	store      Store
	history    SearchLog
	translator *Translator
	mapping    *ontology.Mapping
	logger     *slog.Logger
	maxLimit   int
}

// NewSearchService creates a new search service. history may be nil.
func NewSearchService(
	store Store,
	history SearchLog,
	translator *Translator,
	mapping *ontology.Mapping,
	logger *slog.Logger,
	maxLimit int,
) *SearchService {
	if logger == nil {
		logger = slog.Default()
	}
	if maxLimit <= 0 || maxLimit > model.MaxLimit {
		maxLimit = model.MaxLimit
	}
	return &SearchService{
		store:      store,
		history:    history,
		translator: translator,
		mapping:    mapping,
		logger:     logger,
		maxLimit:   maxLimit,
	}
}

// SearchEventCallback is called for streaming search events
type SearchEventCallback func(event string, data any) error

// Translate returns the intent and SPARQL of a question without running it
func (s *SearchService) Translate(question string) (*model.TranslateResponse, error) {
	if strings.TrimSpace(question) == "" {
		return nil, model.ErrEmptyQuestion
	}
	tr := s.translator.Translate(question)
	return &model.TranslateResponse{
		Intent: tr.Intent,
		SPARQL: tr.SPARQL,
		Mode:   s.translator.Mode(),
	}, nil
}

// Search translates the question, runs the query and logs the search
func (s *SearchService) Search(ctx context.Context, req *model.SemanticSearchRequest) (*model.SemanticSearchResponse, error) {
	return s.SearchStream(ctx, req, nil)
}

// SearchStream is Search reporting each stage to callback
func (s *SearchService) SearchStream(ctx context.Context, req *model.SemanticSearchRequest, callback SearchEventCallback) (*model.SemanticSearchResponse, error) {
	startTime := time.Now()
	emit := func(event string, data any) error {
		if callback == nil {
			return nil
		}
		return callback(event, data)
	}

	question := strings.TrimSpace(req.Query)
	if question == "" {
		return nil, model.ErrEmptyQuestion
	}

	tr := s.translator.Translate(question)
	if req.Options != nil && req.Options.Limit > 0 {
		tr.Intent.Limit = clampLimit(req.Options.Limit, s.maxLimit)
		tr.SPARQL = s.translator.Rebuild(tr.Intent)
	}

	if err := emit("intent", tr.Intent); err != nil {
		return nil, err
	}
	if err := emit("sparql", map[string]any{"sparql": tr.SPARQL}); err != nil {
		return nil, err
	}
	if err := emit("executing", map[string]any{"status": "Interrogation de la base de connaissances..."}); err != nil {
		return nil, err
	}

	result, err := s.store.Query(ctx, tr.SPARQL)
	if err != nil {
		s.logger.Error("semantic search failed",
			"question", question,
			"entity_kind", tr.Intent.EntityKind,
			"error", err,
		)
		return nil, fmt.Errorf("semantic search: %w", err)
	}

	bindings := result.Bindings
	if bindings == nil {
		bindings = []model.Binding{}
	}
	took := time.Since(startTime).Milliseconds()

	response := &model.SemanticSearchResponse{
		SearchID:        uuid.NewString(),
		Results:         bindings,
		Vars:            result.Vars,
		Count:           len(bindings),
		GeneratedSPARQL: tr.SPARQL,
		OriginalQuery:   req.Query,
		Intent:          tr.Intent,
		Took:            took,
	}

	s.logger.Info("semantic search",
		"search_id", response.SearchID,
		"entity_kind", tr.Intent.EntityKind,
		"intent_class", tr.Intent.IntentClass,
		"results", response.Count,
		"took_ms", took,
	)

	// Log search (non-blocking)
	if s.history != nil {
		entry, err := s.logEntry(response, tr.Intent)
		if err != nil {
			s.logger.Warn("failed to encode search log entry", "error", err)
		} else {
			go func() {
				if err := s.history.LogSearch(context.Background(), entry); err != nil {
					s.logger.Warn("failed to log search", "search_id", entry.SearchID, "error", err)
				}
			}()
		}
	}

	return response, nil
}

func (s *SearchService) logEntry(resp *model.SemanticSearchResponse, intent model.QueryIntent) (*model.SearchLogEntry, error) {
	encoded, err := model.ToJSONMap(intent)
	if err != nil {
		return nil, err
	}
	attrs := make([]string, len(intent.Attributes))
	for i, a := range intent.Attributes {
		attrs[i] = string(a)
	}
	return &model.SearchLogEntry{
		SearchID:        resp.SearchID,
		Question:        resp.OriginalQuery,
		EntityKind:      string(intent.EntityKind),
		Attributes:      attrs,
		Intent:          encoded,
		GeneratedSPARQL: resp.GeneratedSPARQL,
		ResultCount:     resp.Count,
		ResponseTimeMs:  int(resp.Took),
		AnalyzerMode:    s.translator.Mode(),
		IntentVector:    pgvector.NewVector(IntentVector(intent)),
	}, nil
}

// RawQuery forwards a read-only SPARQL query to the store
func (s *SearchService) RawQuery(ctx context.Context, sparql string) (*model.QueryResult, error) {
	if !IsReadQuery(sparql) {
		return nil, model.ErrUnsupportedQuery
	}
	return s.store.Query(ctx, sparql)
}

// IsReadQuery reports whether q is a SELECT or ASK query once its prologue
// (PREFIX and BASE declarations, comments) is skipped
func IsReadQuery(q string) bool {
	rest := strings.TrimSpace(q)
	for rest != "" {
		upper := strings.ToUpper(rest)
		switch {
		case strings.HasPrefix(rest, "#"):
			nl := strings.IndexByte(rest, '\n')
			if nl < 0 {
				return false
			}
			rest = rest[nl+1:]
		case strings.HasPrefix(upper, "PREFIX"), strings.HasPrefix(upper, "BASE"):
			end := strings.IndexByte(rest, '>')
			if end < 0 {
				return false
			}
			rest = rest[end+1:]
		default:
			return strings.HasPrefix(upper, "SELECT") || strings.HasPrefix(upper, "ASK")
		}
		rest = strings.TrimSpace(rest)
	}
	return false
}

// Stats counts the individuals of each mapped class
func (s *SearchService) Stats(ctx context.Context) (*model.SearchStats, error) {
	result, err := s.store.Query(ctx, s.translator.CountQuery())
	if err != nil {
		return nil, fmt.Errorf("search stats: %w", err)
	}

	stats := &model.SearchStats{Counts: map[string]int{}}
	for _, c := range s.mapping.Classes() {
		stats.Counts[string(c.Kind)] = 0
	}
	for _, row := range result.Bindings {
		iri := row["class"].Value
		local := iri[strings.LastIndex(iri, "#")+1:]
		kind, ok := s.mapping.KindOf(local)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(row["count"].Value)
		if err != nil {
			continue
		}
		stats.Counts[string(kind)] = n
		stats.Total += n
	}
	return stats, nil
}

// Suggestions returns example questions, most popular past questions first
func (s *SearchService) Suggestions(ctx context.Context) []string {
	out := make([]string, 0, len(baseSuggestions))
	seen := map[string]bool{}
	if s.history != nil {
		popular, err := s.history.PopularQuestions(ctx, 5)
		if err != nil {
			s.logger.Warn("failed to load popular questions", "error", err)
		}
		for _, q := range popular {
			key := strings.ToLower(strings.TrimSpace(q))
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, q)
		}
	}
	for _, q := range baseSuggestions {
		key := strings.ToLower(q)
		if !seen[key] {
			seen[key] = true
			out = append(out, q)
		}
	}
	return out
}

// SimilarSearches returns past searches whose intents are nearest to searchID
func (s *SearchService) SimilarSearches(ctx context.Context, searchID string, limit int) ([]model.SimilarSearch, error) {
	if s.history == nil {
		return nil, model.ErrSearchLogDisabled
	}
	return s.history.SimilarSearches(ctx, searchID, clampLimit(limit, s.maxLimit))
}

// GetSearch returns one logged search
func (s *SearchService) GetSearch(ctx context.Context, searchID string) (*model.SearchLogEntry, error) {
	if s.history == nil {
		return nil, model.ErrSearchLogDisabled
	}
	return s.history.GetSearch(ctx, searchID)
}

// LogFeedback logs user feedback/action
func (s *SearchService) LogFeedback(ctx context.Context, searchID, resultID, action string) error {
	if s.history == nil {
		return model.ErrSearchLogDisabled
	}
	return s.history.LogFeedback(ctx, searchID, resultID, action)
}

// Health pings the triple store
func (s *SearchService) Health(ctx context.Context) error {
	return s.store.Ping(ctx)
}
