package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/louayabidi/web-semantique/internal/model"
)

//go:embed schema.sql
var schemaSQL string

// PostgresRepository stores the search log
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(dsn string, maxConn, maxIdleConn int) (*PostgresRepository, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(maxConn)
	db.SetMaxIdleConns(maxIdleConn)
	db.SetConnMaxLifetime(5 * time.Minute) // Shorter lifetime to avoid stale connections
	db.SetConnMaxIdleTime(2 * time.Minute) // Close idle connections sooner

	// Test connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{db: db}, nil
}

// NewPostgresRepositoryFromDB wraps an existing connection
func NewPostgresRepositoryFromDB(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Close closes the database connection
func (r *PostgresRepository) Close() error {
	return r.db.Close()
}

// EnsureSchema creates the search log table when missing
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// LogSearch logs a search
func (r *PostgresRepository) LogSearch(ctx context.Context, entry *model.SearchLogEntry) error {
	query := `
		INSERT INTO search_logs (
			search_id, question, entity_kind, attributes, intent, generated_sparql,
			result_count, response_time_ms, analyzer_mode, intent_vector
		) VALUES (
			:search_id, :question, :entity_kind, :attributes, :intent, :generated_sparql,
			:result_count, :response_time_ms, :analyzer_mode, :intent_vector
		)
	`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("failed to log search: %w", err)
	}
	return nil
}

// SimilarSearches returns the logged searches whose intent vectors are closest to searchID's
func (r *PostgresRepository) SimilarSearches(ctx context.Context, searchID string, limit int) ([]model.SimilarSearch, error) {
	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM search_logs WHERE search_id = $1)`, searchID); err != nil {
		return nil, fmt.Errorf("failed to look up search: %w", err)
	}
	if !exists {
		return nil, model.ErrSearchNotFound
	}

	query := `
		SELECT
			s.search_id, s.question, s.entity_kind, s.result_count,
			s.intent_vector <-> ref.intent_vector AS distance
		FROM search_logs s,
			(SELECT intent_vector FROM search_logs WHERE search_id = $1) ref
		WHERE s.search_id <> $1 AND s.intent_vector IS NOT NULL
		ORDER BY distance ASC, s.created_at DESC
		LIMIT $2
	`
	similar := []model.SimilarSearch{}
	if err := r.db.SelectContext(ctx, &similar, query, searchID, limit); err != nil {
		return nil, fmt.Errorf("failed to fetch similar searches: %w", err)
	}
	return similar, nil
}

// PopularQuestions returns the most frequent questions that returned results
func (r *PostgresRepository) PopularQuestions(ctx context.Context, limit int) ([]string, error) {
	query := `
		SELECT question
		FROM search_logs
		WHERE result_count > 0
		GROUP BY question
		ORDER BY COUNT(*) DESC, MAX(created_at) DESC
		LIMIT $1
	`
	questions := []string{}
	if err := r.db.SelectContext(ctx, &questions, query, limit); err != nil {
		return nil, fmt.Errorf("failed to fetch popular questions: %w", err)
	}
	return questions, nil
}

// GetSearch retrieves a logged search by its id
func (r *PostgresRepository) GetSearch(ctx context.Context, searchID string) (*model.SearchLogEntry, error) {
	var entry model.SearchLogEntry
	query := `
		SELECT
			search_id, question, entity_kind, attributes, intent, generated_sparql,
			result_count, response_time_ms, analyzer_mode, intent_vector, created_at
		FROM search_logs
		WHERE search_id = $1
	`
	if err := r.db.GetContext(ctx, &entry, query, searchID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrSearchNotFound
		}
		return nil, fmt.Errorf("failed to get search: %w", err)
	}
	return &entry, nil
}

// LogFeedback logs user feedback/action
func (r *PostgresRepository) LogFeedback(ctx context.Context, searchID, resultID, action string) error {
	query := `
		UPDATE search_logs
		SET clicked_result_id = $2, action = $3
		WHERE search_id = $1
	`
	res, err := r.db.ExecContext(ctx, query, searchID, resultID, action)
	if err != nil {
		return fmt.Errorf("failed to log feedback: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return model.ErrSearchNotFound
	}
	return nil
}
