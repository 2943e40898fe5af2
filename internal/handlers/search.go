package handlers

import (
	"net/http"

	"textilserver/internal/logger"
	"textilserver/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

type SearchHandler struct {
	search *services.SearchService
	log    zerolog.Logger
}

func NewSearchHandler(search *services.SearchService, log zerolog.Logger) *SearchHandler {
	return &SearchHandler{search: search, log: log}
}

// API answers the quick search box: GET /api/search?q=...&type=listings|companies
func (h *SearchHandler) API(c *gin.Context) {
	kind := services.SearchKind(c.DefaultQuery("type", string(services.SearchListings)))
	if kind != services.SearchListings && kind != services.SearchCompanies {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown search type"})
		return
	}

	results, err := h.search.Search(c.Request.Context(), c.Query("q"), kind)
	if err != nil {
		logger.FromContext(c.Request.Context(), h.log).Error().Err(err).Msg("search failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "search failed"})
		return
	}
	c.JSON(http.StatusOK, results)
}
