package repository

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/louayabidi/web-semantique/internal/model"
	"github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestPostgres connects to TEST_DATABASE_URL, a database with the
// vector extension available; the test is skipped when it is unset
func newTestPostgres(t *testing.T) *PostgresRepository {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	db, err := sqlx.Connect("postgres", dsn)
	require.NoError(t, err)
	repo := NewPostgresRepositoryFromDB(db)
	t.Cleanup(func() { _ = repo.Close() })

	require.NoError(t, repo.EnsureSchema(context.Background()))
	_, err = db.Exec(`TRUNCATE search_logs`)
	require.NoError(t, err)
	return repo
}

func logEntry(question, kind string, vec []float32, results int) *model.SearchLogEntry {
	return &model.SearchLogEntry{
		SearchID:        uuid.NewString(),
		Question:        question,
		EntityKind:      kind,
		Attributes:      []string{"Fiber"},
		Intent:          model.JSONMap{"entity_kind": kind},
		GeneratedSPARQL: "SELECT ?id WHERE { ?id ?p ?o }",
		ResultCount:     results,
		ResponseTimeMs:  12,
		AnalyzerMode:    "keyword",
		IntentVector:    pgvector.NewVector(vec),
	}
}

func vector(ones ...int) []float32 {
	v := make([]float32, 27)
	for _, i := range ones {
		v[i] = 1
	}
	return v
}

func TestPostgresSearchLog(t *testing.T) {
	repo := newTestPostgres(t)
	ctx := context.Background()

	fiber := logEntry("aliments riches en fibres", "Food", vector(1, 6, 13, 21), 4)
	fiber2 := logEntry("aliments riches en fibres", "Food", vector(1, 6, 13, 21), 3)
	recipe := logEntry("recettes pour diabétiques", "Recipe", vector(2, 6, 12, 22), 2)
	person := logEntry("personnes âgées", "Person", vector(0, 6, 17, 21), 0)
	for _, e := range []*model.SearchLogEntry{fiber, fiber2, recipe, person} {
		require.NoError(t, repo.LogSearch(ctx, e))
	}

	got, err := repo.GetSearch(ctx, fiber.SearchID)
	require.NoError(t, err)
	assert.Equal(t, fiber.Question, got.Question)
	assert.Equal(t, []string{"Fiber"}, []string(got.Attributes))
	assert.Equal(t, "Food", got.Intent["entity_kind"])
	assert.Len(t, got.IntentVector.Slice(), 27)

	similar, err := repo.SimilarSearches(ctx, fiber.SearchID, 2)
	require.NoError(t, err)
	require.Len(t, similar, 2)
	assert.Equal(t, fiber2.SearchID, similar[0].SearchID)
	assert.Zero(t, similar[0].Distance)

	_, err = repo.SimilarSearches(ctx, uuid.NewString(), 2)
	assert.ErrorIs(t, err, model.ErrSearchNotFound)

	popular, err := repo.PopularQuestions(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"aliments riches en fibres", "recettes pour diabétiques"}, popular)

	require.NoError(t, repo.LogFeedback(ctx, recipe.SearchID, "TarteAuxPommes", "useful"))
	assert.ErrorIs(t, repo.LogFeedback(ctx, uuid.NewString(), "x", "click"), model.ErrSearchNotFound)

	_, err = repo.GetSearch(ctx, uuid.NewString())
	assert.ErrorIs(t, err, model.ErrSearchNotFound)
}
