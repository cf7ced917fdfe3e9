package service

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/louayabidi/web-semantique/internal/metrics"
	"github.com/louayabidi/web-semantique/internal/model"
	"github.com/louayabidi/web-semantique/internal/utils"
)

// Translation is the analyzer and builder output for one question
type Translation struct {
	Intent model.QueryIntent `json:"intent"`
	SPARQL string            `json:"sparql"`
}

// Translator runs Analyze then Build, memoizing results by normalized question
type Translator struct {
	analyzer Analyzer
	builder  *Builder
	cache    *lru.Cache[string, Translation]
	metrics  *metrics.Metrics
}

// NewTranslator creates a translator. cacheSize <= 0 disables the cache.
func NewTranslator(analyzer Analyzer, builder *Builder, cacheSize int, m *metrics.Metrics) (*Translator, error) {
	t := &Translator{
		analyzer: analyzer,
		builder:  builder,
		metrics:  m,
	}
	if cacheSize > 0 {
		cache, err := lru.New[string, Translation](cacheSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create translation cache: %w", err)
		}
		t.cache = cache
	}
	return t, nil
}

// Mode returns the analyzer mode
func (t *Translator) Mode() string {
	return t.analyzer.Mode()
}

// Translate returns the intent and SPARQL of question. The returned intent
// is a copy and may be modified by the caller.
func (t *Translator) Translate(question string) Translation {
	key := utils.Normalize(question)
	if t.cache != nil {
		if cached, ok := t.cache.Get(key); ok {
			t.metrics.CacheHit()
			t.metrics.ObserveTranslation(string(cached.Intent.EntityKind), t.Mode())
			return Translation{Intent: cached.Intent.Clone(), SPARQL: cached.SPARQL}
		}
		t.metrics.CacheMiss()
	}

	intent := t.analyzer.Analyze(question)
	tr := Translation{Intent: intent, SPARQL: t.builder.Build(intent)}
	if t.cache != nil {
		t.cache.Add(key, Translation{Intent: intent.Clone(), SPARQL: tr.SPARQL})
	}
	t.metrics.ObserveTranslation(string(intent.EntityKind), t.Mode())
	return tr
}

// Rebuild renders an intent changed by the caller, e.g. with a new limit
func (t *Translator) Rebuild(intent model.QueryIntent) string {
	return t.builder.Build(intent)
}

// CountQuery returns the per-class count query
func (t *Translator) CountQuery() string {
	return t.builder.BuildCountQuery()
}
