package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/louayabidi/web-semantique/internal/config"
	"github.com/louayabidi/web-semantique/internal/metrics"
	"github.com/louayabidi/web-semantique/internal/model"
	"github.com/louayabidi/web-semantique/internal/ontology"
)

// FusekiRepository talks to an Apache Jena Fuseki dataset over the SPARQL protocol
type FusekiRepository struct {
	config     *config.FusekiConfig
	httpClient *http.Client
	metrics    *metrics.Metrics
}

// NewFusekiRepository creates a new Fuseki client
func NewFusekiRepository(cfg *config.FusekiConfig, m *metrics.Metrics) *FusekiRepository {
	return &FusekiRepository{
		config:  cfg,
		metrics: m,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
	}
}

// sparqlResponse is the application/sparql-results+json document
type sparqlResponse struct {
	Head struct {
		Vars []string `json:"vars"`
	} `json:"head"`
	Results *struct {
		Bindings []model.Binding `json:"bindings"`
	} `json:"results,omitempty"`
	Boolean *bool `json:"boolean,omitempty"`
}

// QueryEndpoint returns the dataset query URL
func (r *FusekiRepository) QueryEndpoint() string {
	return r.endpoint("sparql")
}

// UpdateEndpoint returns the dataset update URL
func (r *FusekiRepository) UpdateEndpoint() string {
	return r.endpoint("update")
}

func (r *FusekiRepository) endpoint(service string) string {
	return fmt.Sprintf("%s/%s/%s", strings.TrimRight(r.config.URL, "/"), r.config.Dataset, service)
}

// Query runs a SELECT or ASK query and returns its bindings unchanged
func (r *FusekiRepository) Query(ctx context.Context, sparql string) (*model.QueryResult, error) {
	started := time.Now()
	body, err := r.post(ctx, r.QueryEndpoint(), "query", withPrefixes(sparql))
	r.metrics.ObserveStore("query", started, err)
	if err != nil {
		return nil, err
	}

	var resp sparqlResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: failed to decode results: %w", model.ErrQueryExecution, err)
	}

	result := &model.QueryResult{
		Vars:     resp.Head.Vars,
		Bindings: []model.Binding{},
		Boolean:  resp.Boolean,
	}
	if resp.Results != nil && resp.Results.Bindings != nil {
		result.Bindings = resp.Results.Bindings
	}
	return result, nil
}

// Update runs a SPARQL update
func (r *FusekiRepository) Update(ctx context.Context, sparql string) error {
	started := time.Now()
	_, err := r.post(ctx, r.UpdateEndpoint(), "update", withPrefixes(sparql))
	r.metrics.ObserveStore("update", started, err)
	return err
}

// Ping checks that the Fuseki server answers
func (r *FusekiRepository) Ping(ctx context.Context) error {
	started := time.Now()
	err := r.ping(ctx)
	r.metrics.ObserveStore("ping", started, err)
	return err
}

func (r *FusekiRepository) ping(ctx context.Context) error {
	pingURL := strings.TrimRight(r.config.URL, "/") + "/$/ping"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, pingURL, nil)
	if err != nil {
		return fmt.Errorf("%w: failed to create request: %w", model.ErrQueryExecution, err)
	}
	r.authorize(httpReq)

	resp, err := r.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: %w", model.ErrQueryExecution, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: ping returned status %d", model.ErrQueryExecution, resp.StatusCode)
	}
	return nil
}

// post sends a form-encoded SPARQL request, retrying network errors and 5xx
func (r *FusekiRepository) post(ctx context.Context, endpoint, field, sparql string) ([]byte, error) {
	form := url.Values{field: {sparql}}.Encode()

	operation := func() ([]byte, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form))
		if err != nil {
			return nil, backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
		}
		httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		httpReq.Header.Set("Accept", "application/sparql-results+json")
		r.authorize(httpReq)

		resp, err := r.httpClient.Do(httpReq)
		if err != nil {
			if ctx.Err() != nil {
				return nil, backoff.Permanent(err)
			}
			return nil, fmt.Errorf("failed to send request: %w", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read response: %w", err)
		}

		switch {
		case resp.StatusCode >= 500:
			return nil, fmt.Errorf("store returned status %d: %s", resp.StatusCode, snippet(body))
		case resp.StatusCode >= 300:
			return nil, backoff.Permanent(fmt.Errorf("store returned status %d: %s", resp.StatusCode, snippet(body)))
		}
		return body, nil
	}

	body, err := backoff.RetryWithData(operation, r.backOff(ctx))
	if err != nil {
		var permanent *backoff.PermanentError
		if errors.As(err, &permanent) {
			err = permanent.Err
		}
		return nil, fmt.Errorf("%w: %w", model.ErrQueryExecution, err)
	}
	return body, nil
}

func (r *FusekiRepository) backOff(ctx context.Context) backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	if r.config.RetryInterval > 0 {
		eb.InitialInterval = r.config.RetryInterval
	}
	retries := r.config.MaxRetries
	if retries < 0 {
		retries = 0
	}
	return backoff.WithContext(backoff.WithMaxRetries(eb, uint64(retries)), ctx)
}

func (r *FusekiRepository) authorize(req *http.Request) {
	if r.config.Username != "" {
		req.SetBasicAuth(r.config.Username, r.config.Password)
	}
}

// withPrefixes adds the ontology prefixes to hand-written queries that lack them
func withPrefixes(sparql string) string {
	if strings.Contains(sparql, "PREFIX "+ontology.Prefix+":") {
		return sparql
	}
	return ontology.WithPrefixes(sparql)
}

func snippet(body []byte) string {
	const max = 200
	s := strings.TrimSpace(string(body))
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
