package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/louayabidi/web-semantique/internal/model"
	"github.com/louayabidi/web-semantique/internal/service"
)

// HistoryHandler serves the search log
type HistoryHandler struct {
	searchService *service.SearchService
}

// NewHistoryHandler creates a new history handler
func NewHistoryHandler(searchService *service.SearchService) *HistoryHandler {
	return &HistoryHandler{
		searchService: searchService,
	}
}

// Get handles GET /api/v1/searches/:id
func (h *HistoryHandler) Get(c *gin.Context) {
	searchID := c.Param("id")
	if _, err := uuid.Parse(searchID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid search ID"})
		return
	}

	entry, err := h.searchService.GetSearch(c.Request.Context(), searchID)
	if err != nil {
		status, msg := errorStatus(err)
		c.JSON(status, gin.H{"error": msg})
		return
	}
	c.JSON(http.StatusOK, entry)
}

// Similar handles GET /api/v1/searches/:id/similar
func (h *HistoryHandler) Similar(c *gin.Context) {
	searchID := c.Param("id")
	if _, err := uuid.Parse(searchID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid search ID"})
		return
	}

	limit := 5
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
		limit = n
	}

	similar, err := h.searchService.SimilarSearches(c.Request.Context(), searchID, limit)
	if err != nil {
		status, msg := errorStatus(err)
		c.JSON(status, gin.H{"error": msg})
		return
	}

	c.JSON(http.StatusOK, model.SimilarSearchResponse{
		SearchID: searchID,
		Similar:  similar,
	})
}
