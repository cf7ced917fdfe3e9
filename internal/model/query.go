package model

// SemanticSearchRequest represents a natural language search request
type SemanticSearchRequest struct {
	Query   string         `json:"query" binding:"required"`
	Options *SearchOptions `json:"options,omitempty"`
}

// SearchOptions represents search options
type SearchOptions struct {
	// Limit overrides the limit read from the question when positive
	Limit int `json:"limit"`
}

// SemanticSearchResponse represents a semantic search result
type SemanticSearchResponse struct {
	SearchID        string      `json:"search_id"`
	Results         []Binding   `json:"results"`
	Vars            []string    `json:"vars"`
	Count           int         `json:"count"`
	GeneratedSPARQL string      `json:"generated_sparql"`
	OriginalQuery   string      `json:"original_query"`
	Intent          QueryIntent `json:"intent"`
	Took            int64       `json:"took_ms"` // Response time in milliseconds
}

// TranslateRequest asks for the SPARQL of a question without running it
type TranslateRequest struct {
	Query string `json:"query" binding:"required"`
}

// TranslateResponse is the translator output
type TranslateResponse struct {
	Intent QueryIntent `json:"intent"`
	SPARQL string      `json:"sparql"`
	Mode   string      `json:"analyzer_mode"`
}

// SPARQLRequest is a raw query passthrough request
type SPARQLRequest struct {
	Query string `json:"query" binding:"required"`
}

// SearchStats counts the individuals of each entity class
type SearchStats struct {
	Counts map[string]int `json:"counts"`
	Total  int            `json:"total"`
}

// SimilarSearchResponse lists past questions close to a search
type SimilarSearchResponse struct {
	SearchID string          `json:"search_id"`
	Similar  []SimilarSearch `json:"similar"`
}

// FeedbackRequest represents user feedback on a search result
type FeedbackRequest struct {
	SearchID string `json:"search_id" binding:"required"`
	ResultID string `json:"result_id" binding:"required"`
	Action   string `json:"action" binding:"required"` // click, useful, not_useful
}

// FeedbackResponse represents feedback response
type FeedbackResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}
