package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kart-io/nlquery/internal/nlquery/biz"
	"github.com/kart-io/nlquery/internal/nlquery/store"
)

// maxUploadBytes bounds one uploaded document.
const maxUploadBytes = 32 << 20

// AdminHandler handles database connection, document ingestion and stats.
type AdminHandler struct {
	service biz.Service
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(service biz.Service) *AdminHandler {
	return &AdminHandler{service: service}
}

// ConnectRequest carries the database connection string.
type ConnectRequest struct {
	ConnectionString string `json:"connection_string" binding:"required"`
}

// ConnectDatabase connects the engine to a database and reports its schema.
func (h *AdminHandler) ConnectDatabase(c *gin.Context) {
	var req ConnectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: 400, Message: err.Error()})
		return
	}

	schema, err := h.service.ConnectDatabase(c.Request.Context(), req.ConnectionString)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: 400, Message: err.Error()})
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Code: 0, Message: "connected", Data: gin.H{
		"status": "connected",
		"tables": len(schema.Tables),
	}})
}

// UploadDocuments ingests one or more uploaded files into the document index.
func (h *AdminHandler) UploadDocuments(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: 400, Message: err.Error()})
		return
	}

	uploads := form.File["files"]
	if len(uploads) == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: 400, Message: "no files uploaded"})
		return
	}

	files := make([]store.IngestFile, 0, len(uploads))
	for _, upload := range uploads {
		f, err := upload.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Code: 400, Message: err.Error()})
			return
		}
		content, err := io.ReadAll(io.LimitReader(f, maxUploadBytes))
		_ = f.Close()
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Code: 400, Message: err.Error()})
			return
		}
		files = append(files, store.IngestFile{Filename: upload.Filename, Content: content})
	}

	report, err := h.service.IngestDocuments(c.Request.Context(), files)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Code: 500, Message: err.Error()})
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Code: 0, Message: "ok", Data: report})
}

// Stats returns engine counters and sizes.
func (h *AdminHandler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, SuccessResponse{Code: 0, Message: "ok", Data: h.service.Stats()})
}

// Health reports liveness and whether a database is attached.
func (h *AdminHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":             "ok",
		"database_connected": h.service.Connected(),
	})
}
