package documents

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"docanalyzer/internal/export"
	"docanalyzer/internal/extract"
	"docanalyzer/internal/llm"
	"docanalyzer/internal/shared/server/middleware"
	"docanalyzer/internal/shared/server/respond"
)

const defaultMaxUploadSize = 10 << 20 // 10MB

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Processor runs the document lifecycle on behalf of the handler.
type Processor interface {
	// Process runs extraction and analysis synchronously.
	Process(ctx context.Context, id string) (Document, error)
	// Dispatch processes now or enqueues, depending on the configured backend.
	// queued reports whether the work was deferred.
	Dispatch(ctx context.Context, id string) (doc Document, queued bool, err error)
	Act(ctx context.Context, id, instruction string) (string, error)
}

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc            *Service
	Proc           Processor
	MaxUploadBytes int64
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service, proc Processor, maxUploadBytes int64) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = defaultMaxUploadSize
	}
	return &Handler{Svc: svc, Proc: proc, MaxUploadBytes: maxUploadBytes}
}

// RegisterRoutes attaches document routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/documents/upload", h.upload)
	rg.POST("/documents/analyze-text", h.analyzeText)
	rg.GET("/documents/:id", h.get)
	rg.POST("/documents/:id/process", h.process)
	rg.POST("/documents/:id/action", h.action)
	rg.GET("/documents/:id/export.xlsx", h.exportXLSX)
}

func (h *Handler) upload(c *gin.Context) {
	ownerID := middleware.UserIDFromContext(c)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxUploadBytes)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respond.Error(c, http.StatusRequestEntityTooLarge, "file_too_large", fmt.Sprintf("file exceeds %d bytes", h.MaxUploadBytes), nil)
			return
		}
		respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", nil)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}
	defer file.Close()

	doc, err := h.Svc.Upload(c.Request.Context(), ownerID, fileHeader.Filename, fileHeader.Header.Get("Content-Type"), file)
	if err != nil {
		switch {
		case errors.Is(err, ErrUnsupportedType):
			respond.Error(c, http.StatusBadRequest, "unsupported_file_type", "only PDF, image and plain text files are accepted", nil)
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to upload document", nil)
		}
		return
	}

	respond.Created(c, toResponse(doc))
}

func (h *Handler) analyzeText(c *gin.Context) {
	ownerID := middleware.UserIDFromContext(c)

	var req analyzeTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "text is required", nil)
		return
	}

	doc, err := h.Svc.Paste(c.Request.Context(), ownerID, req.Title, req.Text)
	if err != nil {
		if errors.Is(err, ErrInvalidInput) {
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to create document", nil)
		return
	}

	processed, err := h.Proc.Process(c.Request.Context(), doc.ID)
	if err != nil {
		writeProcessError(c, doc.ID, err)
		return
	}
	respond.JSON(c, http.StatusOK, toResponse(processed))
}

func (h *Handler) get(c *gin.Context) {
	doc, ok := h.load(c)
	if !ok {
		return
	}
	respond.JSON(c, http.StatusOK, toResponse(doc))
}

func (h *Handler) process(c *gin.Context) {
	doc, ok := h.load(c)
	if !ok {
		return
	}

	processed, queued, err := h.Proc.Dispatch(c.Request.Context(), doc.ID)
	if err != nil {
		writeProcessError(c, doc.ID, err)
		return
	}
	c.Set("statusTransition", string(doc.Status)+"->"+string(processed.Status))
	if queued {
		respond.Accepted(c, processResponse{DocumentResponse: toResponse(processed), Queued: true})
		return
	}
	respond.JSON(c, http.StatusOK, processResponse{DocumentResponse: toResponse(processed)})
}

func (h *Handler) action(c *gin.Context) {
	doc, ok := h.load(c)
	if !ok {
		return
	}

	var req actionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	if strings.TrimSpace(req.Instruction) == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "instruction is required", nil)
		return
	}

	result, err := h.Proc.Act(c.Request.Context(), doc.ID, req.Instruction)
	if err != nil {
		writeProcessError(c, doc.ID, err)
		return
	}
	respond.JSON(c, http.StatusOK, actionResponse{Result: result})
}

func (h *Handler) exportXLSX(c *gin.Context) {
	doc, ok := h.load(c)
	if !ok {
		return
	}
	if doc.Status != StatusAnalyzed || doc.Analysis == nil {
		respond.Error(c, http.StatusConflict, "not_analyzed", "document has no analysis yet", gin.H{"status": doc.Status})
		return
	}

	analyzedAt := doc.UpdatedAt
	if doc.ProcessedAt != nil {
		analyzedAt = *doc.ProcessedAt
	}
	data, err := export.AnalysisXLSX(doc.OriginalName, analyzedAt, *doc.Analysis)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to export analysis", nil)
		return
	}

	name := strings.TrimSuffix(doc.OriginalName, filepath.Ext(doc.OriginalName))
	if name == "" {
		name = doc.ID
	}
	respond.Attachment(c, name+"-analyse.xlsx", xlsxContentType, data)
}

// load fetches the :id document and enforces ownership. It writes the error
// response itself and reports whether the handler may continue.
func (h *Handler) load(c *gin.Context) (Document, bool) {
	requesterID := middleware.UserIDFromContext(c)
	doc, err := h.Svc.Get(c.Request.Context(), requesterID, c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
		case errors.Is(err, ErrForbidden):
			respond.Error(c, http.StatusForbidden, "forbidden", "access denied", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch document", nil)
		}
		return Document{}, false
	}
	c.Set("documentId", doc.ID)
	return doc, true
}

func writeProcessError(c *gin.Context, documentID string, err error) {
	details := gin.H{"documentId": documentID}
	switch {
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
	case errors.Is(err, extract.ErrUnsupportedMimeType):
		respond.Error(c, http.StatusUnprocessableEntity, "unsupported_mime_type", err.Error(), details)
	case errors.Is(err, extract.ErrExtractionTimeout), errors.Is(err, context.DeadlineExceeded):
		respond.Error(c, http.StatusGatewayTimeout, "extraction_timeout", "document processing timed out", details)
	case errors.Is(err, extract.ErrExtractionFailed):
		respond.Error(c, http.StatusInternalServerError, "extraction_failed", err.Error(), details)
	case errors.Is(err, llm.ErrAnalysisFailed):
		respond.Error(c, http.StatusBadGateway, "analysis_failed", "analysis service failed", details)
	case errors.Is(err, llm.ErrRewriteFailed):
		respond.Error(c, http.StatusBadGateway, "rewrite_failed", "rewrite service failed", details)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to process document", details)
	}
}
