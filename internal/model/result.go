package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

// QueryResult is a SPARQL SELECT/ASK response as returned by the store
type QueryResult struct {
	Vars     []string  `json:"vars"`
	Bindings []Binding `json:"bindings"`
	Boolean  *bool     `json:"boolean,omitempty"`
}

// Binding is one solution row, keyed by variable name
type Binding map[string]BindingValue

// BindingValue is a single bound RDF term
type BindingValue struct {
	Type     string `json:"type"`
	Value    string `json:"value"`
	Datatype string `json:"datatype,omitempty"`
	Lang     string `json:"xml:lang,omitempty"`
}

// SearchLogEntry is one row of the search log
type SearchLogEntry struct {
	SearchID        string          `json:"search_id" db:"search_id"`
	Question        string          `json:"question" db:"question"`
	EntityKind      string          `json:"entity_kind" db:"entity_kind"`
	Attributes      pq.StringArray  `json:"attributes" db:"attributes"`
	Intent          JSONMap         `json:"intent" db:"intent"`
	GeneratedSPARQL string          `json:"generated_sparql" db:"generated_sparql"`
	ResultCount     int             `json:"result_count" db:"result_count"`
	ResponseTimeMs  int             `json:"response_time_ms" db:"response_time_ms"`
	AnalyzerMode    string          `json:"analyzer_mode" db:"analyzer_mode"`
	IntentVector    pgvector.Vector `json:"-" db:"intent_vector"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
}

// SimilarSearch is a past question close to a given one
type SimilarSearch struct {
	SearchID    string  `json:"search_id" db:"search_id"`
	Question    string  `json:"question" db:"question"`
	EntityKind  string  `json:"entity_kind" db:"entity_kind"`
	ResultCount int     `json:"result_count" db:"result_count"`
	Distance    float64 `json:"distance" db:"distance"`
}

// JSONMap represents a JSON object field
type JSONMap map[string]interface{}

// Value implements driver.Valuer interface
func (j JSONMap) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan implements sql.Scanner interface
func (j *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, j)
	case string:
		return json.Unmarshal([]byte(v), j)
	default:
		return fmt.Errorf("unsupported JSONMap source type %T", value)
	}
}

// ToJSONMap converts any JSON-serialisable value into a JSONMap
func ToJSONMap(v any) (JSONMap, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m JSONMap
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}
