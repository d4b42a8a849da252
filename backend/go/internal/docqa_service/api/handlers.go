package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"DocQA/backend/go/internal/docqa_service/rag/schema"
	"DocQA/backend/go/internal/docqa_service/service"
	"DocQA/backend/go/internal/models"
	"DocQA/backend/go/pkg/logger"

	"github.com/gin-gonic/gin"
)

// API provides handlers for the document QA service.
type API struct {
	service        *service.Service
	logger         *logger.Logger
	maxUploadBytes int64
}

// NewAPI creates a new API handler. maxUploadBytes <= 0 disables the size check.
func NewAPI(service *service.Service, logger *logger.Logger, maxUploadBytes int64) *API {
	return &API{service: service, logger: logger, maxUploadBytes: maxUploadBytes}
}

// UploadHandler stores and indexes the multipart "file" field, replacing the current document.
func (a *API) UploadHandler(c *gin.Context) {
	if a.maxUploadBytes > 0 {
		if c.Request.ContentLength > a.maxUploadBytes {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"detail": fmt.Sprintf("File exceeds the %d byte upload limit", a.maxUploadBytes)})
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, a.maxUploadBytes)
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"detail": fmt.Sprintf("File exceeds the %d byte upload limit", tooLarge.Limit)})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"detail": "A multipart field named \"file\" is required"})
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Could not read uploaded file"})
		return
	}
	raw, err := io.ReadAll(f)
	f.Close()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Could not read uploaded file"})
		return
	}

	res, err := a.service.Upload(c.Request.Context(), fileHeader.Filename, raw)
	if err != nil {
		a.writeUploadError(c, fileHeader.Filename, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "File uploaded and processed successfully",
		"file_id":  res.Document.ID,
		"filename": res.Document.Filename,
		"chunks":   res.Chunks,
	})
}

func (a *API) writeUploadError(c *gin.Context, filename string, err error) {
	if errors.Is(err, schema.ErrUnsupportedFormat) {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	var ue *service.UploadError
	if !errors.As(err, &ue) {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}
	switch ue.Stage {
	case service.StageIndexing:
		c.JSON(http.StatusInternalServerError, gin.H{
			"detail": fmt.Sprintf("File %q was stored as file_id %d but indexing failed; "+
				"the document store and the vector index are now inconsistent: %v", filename, ue.Document.ID, ue.Err),
			"stage":    ue.Stage,
			"file_id":  ue.Document.ID,
			"filename": ue.Document.Filename,
		})
	case service.StageCleanup:
		c.JSON(http.StatusInternalServerError, gin.H{
			"detail": fmt.Sprintf("Could not remove the vectors of the document being replaced; upload aborted: %v", ue.Err),
			"stage":  ue.Stage,
		})
	default:
		if ue.Previous != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"detail": fmt.Sprintf("Could not store file %q; the vectors of the replaced file %q (file_id %d) "+
					"were already deleted, so it is no longer searchable: %v", filename, ue.Previous.Filename, ue.Previous.ID, ue.Err),
				"stage":            ue.Stage,
				"replaced_file_id": ue.Previous.ID,
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"detail": fmt.Sprintf("Could not store file %q: %v", filename, ue.Err),
			"stage":  ue.Stage,
		})
	}
}

// DeleteFileHandler removes a document and its vectors.
func (a *API) DeleteFileHandler(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 0)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "file id must be a positive integer"})
		return
	}

	if err := a.service.Delete(c.Request.Context(), uint(id)); err != nil {
		if errors.Is(err, schema.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"detail": "File not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("File %d deleted successfully", id)})
}

type queryRequest struct {
	Query  string `json:"query"`
	FileID *uint  `json:"file_id"`
}

// ProcessQueryHandler streams the answer as it is generated.
// Errors before the first byte get a JSON body; after that the stream carries
// an apology fragment instead.
func (a *API) ProcessQueryHandler(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		a.logger.WithErrorInfo(models.ErrorInfo{Message: err.Error(), Type: "validation"}).Warn("Invalid request payload")
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid request payload"})
		return
	}

	stream, err := a.service.Query(c.Request.Context(), req.Query, req.FileID)
	if err != nil {
		if errors.Is(err, service.ErrEmptyQuery) {
			c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}
	defer stream.Close()

	h := c.Writer.Header()
	h.Set("Content-Type", "text/event-stream; charset=utf-8")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.WriteHeaderNow()
	c.Writer.Flush()

	for fragment := range stream.Fragments() {
		if _, err := c.Writer.WriteString(fragment); err != nil {
			// 客户端断开，Close 会取消生成
			return
		}
		c.Writer.Flush()
	}
}

// CurrentFileHandler returns the current document or nulls.
func (a *API) CurrentFileHandler(c *gin.Context) {
	doc, err := a.service.CurrentFile(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}
	if doc == nil {
		c.JSON(http.StatusOK, gin.H{"filename": nil, "file_id": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"filename": doc.Filename, "file_id": doc.ID})
}

// HistoryHandler lists recent questions, optionally for one file.
func (a *API) HistoryHandler(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "limit must be a positive integer"})
		return
	}
	var fileID *uint
	if raw := c.Query("file_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 0)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "file_id must be a positive integer"})
			return
		}
		v := uint(id)
		fileID = &v
	}

	records, err := a.service.History(c.Request.Context(), fileID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}
	if records == nil {
		records = []*models.QueryRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"records": records})
}

// HealthzHandler is the liveness probe.
func (a *API) HealthzHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
