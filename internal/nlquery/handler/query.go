// Package handler provides the HTTP handlers of the query engine service.
package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kart-io/nlquery/internal/nlquery/biz"
)

// queryTimeout bounds one query end to end, including LLM round trips.
const queryTimeout = 120 * time.Second

// QueryHandler handles query and history requests.
type QueryHandler struct {
	service biz.Service
}

// NewQueryHandler creates a QueryHandler.
func NewQueryHandler(service biz.Service) *QueryHandler {
	return &QueryHandler{service: service}
}

// SuccessResponse is a standard success response.
type SuccessResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// ErrorResponse is a standard error response.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// QueryRequest represents one natural language query.
type QueryRequest struct {
	Query    string `json:"query" binding:"required"`
	TopKDocs int    `json:"top_k_docs"`
}

// Query answers a natural language query.
func (h *QueryHandler) Query(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: 400, Message: err.Error()})
		return
	}
	if !h.service.Connected() {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: 400, Message: "no database connected"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), queryTimeout)
	defer cancel()

	resp := h.service.ProcessQuery(ctx, req.Query, req.TopKDocs)
	c.JSON(http.StatusOK, SuccessResponse{Code: 0, Message: "ok", Data: resp})
}

// History returns recent queries, newest first.
func (h *QueryHandler) History(c *gin.Context) {
	limit := 50
	if raw, ok := c.GetQuery("limit"); ok {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	c.JSON(http.StatusOK, SuccessResponse{Code: 0, Message: "ok", Data: h.service.History(limit)})
}
