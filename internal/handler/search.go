package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/louayabidi/web-semantique/internal/model"
	"github.com/louayabidi/web-semantique/internal/service"
)

// SearchHandler handles search-related HTTP requests
type SearchHandler struct {
	searchService *service.SearchService
	maxLimit      int
}

// NewSearchHandler creates a new search handler
func NewSearchHandler(searchService *service.SearchService, maxLimit int) *SearchHandler {
	return &SearchHandler{
		searchService: searchService,
		maxLimit:      maxLimit,
	}
}

// errorStatus maps service errors to HTTP statuses. A store failure is
// never reported as a question the service could not understand.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, model.ErrEmptyQuestion):
		return http.StatusBadRequest, "Question must not be empty"
	case errors.Is(err, model.ErrUnsupportedQuery):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, model.ErrQueryExecution):
		return http.StatusBadGateway, model.ErrQueryExecution.Error()
	case errors.Is(err, model.ErrSearchNotFound):
		return http.StatusNotFound, "Search not found"
	case errors.Is(err, model.ErrSearchLogDisabled):
		return http.StatusServiceUnavailable, "Search history is disabled"
	}
	return http.StatusInternalServerError, "Internal error"
}

func (h *SearchHandler) capOptions(req *model.SemanticSearchRequest) {
	if req.Options == nil {
		return
	}
	if req.Options.Limit < 0 {
		req.Options.Limit = 0
	}
	if req.Options.Limit > h.maxLimit {
		req.Options.Limit = h.maxLimit
	}
}

// Search handles POST /api/v1/semantic-search
func (h *SearchHandler) Search(c *gin.Context) {
	var req model.SemanticSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	h.capOptions(&req)

	response, err := h.searchService.Search(c.Request.Context(), &req)
	if err != nil {
		status, msg := errorStatus(err)
		c.JSON(status, gin.H{"error": msg})
		return
	}

	c.JSON(http.StatusOK, response)
}

// SearchStream handles POST /api/v1/semantic-search/stream - SSE streaming search
func (h *SearchHandler) SearchStream(c *gin.Context) {
	var req model.SemanticSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	h.capOptions(&req)

	// Set SSE headers
	c.Header("Content-Type", "text/event-stream; charset=utf-8")
	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Streaming not supported"})
		return
	}

	sendSSE(c, "start", map[string]any{"query": req.Query})
	flusher.Flush()

	response, err := h.searchService.SearchStream(c.Request.Context(), &req, func(event string, data any) error {
		sendSSE(c, event, data)
		flusher.Flush()
		return nil
	})
	if err != nil {
		_, msg := errorStatus(err)
		sendSSE(c, "error", map[string]any{"error": msg})
		flusher.Flush()
		return
	}

	sendSSE(c, "results", response)
	flusher.Flush()

	sendSSE(c, "done", nil)
	flusher.Flush()
}

// sendSSE sends a Server-Sent Event
func sendSSE(c *gin.Context, event string, data any) {
	if data != nil {
		jsonData, err := json.Marshal(data)
		if err != nil {
			fmt.Fprintf(c.Writer, "event: error\ndata: {\"error\": \"JSON marshal failed\"}\n\n")
			return
		}
		fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", event, string(jsonData))
	} else {
		fmt.Fprintf(c.Writer, "event: %s\ndata: {}\n\n", event)
	}
}

// Translate handles POST /api/v1/translate
func (h *SearchHandler) Translate(c *gin.Context) {
	var req model.TranslateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	response, err := h.searchService.Translate(req.Query)
	if err != nil {
		status, msg := errorStatus(err)
		c.JSON(status, gin.H{"error": msg})
		return
	}
	c.JSON(http.StatusOK, response)
}

// RawQuery handles POST /api/v1/sparql
func (h *SearchHandler) RawQuery(c *gin.Context) {
	var req model.SPARQLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	result, err := h.searchService.RawQuery(c.Request.Context(), req.Query)
	if err != nil {
		status, msg := errorStatus(err)
		c.JSON(status, gin.H{"error": msg})
		return
	}
	c.JSON(http.StatusOK, result)
}

// Suggestions handles GET /api/v1/search-suggestions
func (h *SearchHandler) Suggestions(c *gin.Context) {
	c.JSON(http.StatusOK, h.searchService.Suggestions(c.Request.Context()))
}

// Stats handles GET /api/v1/search-stats
func (h *SearchHandler) Stats(c *gin.Context) {
	stats, err := h.searchService.Stats(c.Request.Context())
	if err != nil {
		status, msg := errorStatus(err)
		c.JSON(status, gin.H{"error": msg})
		return
	}
	c.JSON(http.StatusOK, stats)
}
