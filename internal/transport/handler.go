package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"go-card-scanner/internal/config"
	apperrors "go-card-scanner/internal/errors"
	"go-card-scanner/internal/logger"
	"go-card-scanner/internal/observer"
	"go-card-scanner/internal/repository"
	"go-card-scanner/internal/storage"
	"go-card-scanner/pkg/models"
	"go-card-scanner/pkg/validation"
)

// ScanService is the pipeline surface the HTTP layer depends on.
type ScanService interface {
	Scan(ctx context.Context, data []byte) (*models.ScanResult, error)
	ScanText(ctx context.Context, data []byte) (*models.ScanResult, error)
	ScanQR(ctx context.Context, data []byte) (*models.ScanResult, error)
}

// URLScanRequest asks the service to fetch and scan a remote image.
type URLScanRequest struct {
	URL string `json:"url" binding:"required"`
}

type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// Handler wires the scan pipeline and its optional collaborators to HTTP.
// Repository and archiver may be nil; the matching routes then report the
// capability as unavailable instead of failing.
type Handler struct {
	scanner   ScanService
	fetcher   storage.ImageFetcher
	contacts  repository.ContactRepository
	archiver  storage.BlobArchiver
	publisher observer.Subject
	metrics   *observer.MetricsObserver
	validator *validation.URLValidator
	cfg       *config.Config
}

func NewHandler(
	scanner ScanService,
	fetcher storage.ImageFetcher,
	contacts repository.ContactRepository,
	archiver storage.BlobArchiver,
	publisher observer.Subject,
	metrics *observer.MetricsObserver,
	cfg *config.Config,
) http.Handler {
	h := &Handler{
		scanner:   scanner,
		fetcher:   fetcher,
		contacts:  contacts,
		archiver:  archiver,
		publisher: publisher,
		metrics:   metrics,
		validator: validation.NewURLValidator(),
		cfg:       cfg,
	}

	r := gin.Default()

	r.Use(
		requestSizeLimiter(cfg.MaxRequestBodySize),
		errorHandler(),
	)

	r.GET("/", h.root)
	r.GET("/health", h.healthCheck)
	r.POST("/ocr", h.scanOCR)
	r.POST("/qr-scan", h.scanQR)
	r.POST("/business-card", h.scanBusinessCard)
	r.POST("/batch-ocr", h.batchOCR)
	r.GET("/data/contacts", h.listContacts)
	r.GET("/data/contacts/:id", h.getContact)
	r.DELETE("/data/contacts", h.deleteContacts)

	return r
}

func (h *Handler) root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "card-scanner",
		"endpoints": []string{
			"/health", "/ocr", "/qr-scan", "/business-card", "/batch-ocr", "/data/contacts",
		},
	})
}

func (h *Handler) healthCheck(c *gin.Context) {
	status := gin.H{
		"status":  "available",
		"version": "1.0.0",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"capabilities": gin.H{
			"remote_qr":   h.cfg.RemoteQREnabled(),
			"vision_ocr":  h.cfg.VisionEnabled(),
			"persistence": h.contacts != nil,
			"archive":     h.archiver != nil,
		},
	}
	if h.metrics != nil {
		status["metrics"] = h.metrics.GetMetrics()
	}
	c.JSON(http.StatusOK, status)
}

func (h *Handler) scanOCR(c *gin.Context) {
	h.runScan(c, h.scanner.ScanText)
}

func (h *Handler) scanQR(c *gin.Context) {
	h.runScan(c, h.scanner.ScanQR)
}

// runScan resolves the image input, applies the scan timeout and renders the
// common response envelope.
func (h *Handler) runScan(c *gin.Context, scan func(context.Context, []byte) (*models.ScanResult, error)) {
	data, source, err := h.resolveInput(c)
	if err != nil {
		respondError(c, apperrors.GetStatusCode(err), "could not read image input", err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.cfg.ScanTimeout)
	defer cancel()

	result, err := scan(ctx, data)
	if err != nil {
		h.notify(observer.ScanFailed, source, 0, err)
		respondError(c, apperrors.GetStatusCode(err), "scan failed", err)
		return
	}

	h.notify(observer.ScanCompleted, source, time.Duration(result.ProcessingTimeSec*float64(time.Second)), nil)
	c.JSON(http.StatusOK, gin.H{"success": true, "result": result})
}

func (h *Handler) scanBusinessCard(c *gin.Context) {
	startTime := time.Now()

	data, source, err := h.resolveInput(c)
	if err != nil {
		respondError(c, apperrors.GetStatusCode(err), "could not read image input", err)
		return
	}

	logger.WithFields(logrus.Fields{
		"source": source,
		"bytes":  len(data),
		"ip":     c.ClientIP(),
	}).Info("Processing business card scan")
	h.notify(observer.ScanStarted, source, 0, nil)

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.cfg.ScanTimeout)
	defer cancel()

	result, err := h.scanner.Scan(ctx, data)
	if err != nil {
		h.notify(observer.ScanFailed, source, time.Since(startTime), err)
		respondError(c, apperrors.GetStatusCode(err), "scan failed", err)
		return
	}

	archiveURL := h.archive(source, data)
	recordID := h.persist(c.Request.Context(), source, result)

	h.notify(observer.ScanCompleted, source, time.Since(startTime), nil)

	response := gin.H{"success": true, "result": result}
	if h.contacts != nil {
		response["saved"] = recordID != ""
	}
	if recordID != "" {
		response["record_id"] = recordID
	}
	if archiveURL != "" {
		response["archive_url"] = archiveURL
	}
	c.JSON(http.StatusOK, response)
}

// batchOCR runs text recognition over every file of a multipart upload.
// Per-image failures are reported in place; the batch itself succeeds as
// long as the request was well formed.
func (h *Handler) batchOCR(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		respondError(c, http.StatusBadRequest, "expected multipart form", err)
		return
	}

	files := form.File["images"]
	if len(files) == 0 {
		respondError(c, http.StatusBadRequest, "no files in field 'images'", nil)
		return
	}
	if len(files) > h.cfg.MaxBatchSize {
		respondError(c, http.StatusBadRequest,
			fmt.Sprintf("batch exceeds limit of %d images", h.cfg.MaxBatchSize), nil)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.cfg.ScanTimeout*time.Duration(len(files)))
	defer cancel()

	type batchItem struct {
		Filename string             `json:"filename"`
		Success  bool               `json:"success"`
		Result   *models.ScanResult `json:"result,omitempty"`
		Error    string             `json:"error,omitempty"`
	}

	items := make([]batchItem, 0, len(files))
	for _, file := range files {
		data, err := readUpload(file)
		if err != nil {
			items = append(items, batchItem{Filename: file.Filename, Error: err.Error()})
			continue
		}

		result, err := h.scanner.ScanText(ctx, data)
		if err != nil {
			items = append(items, batchItem{Filename: file.Filename, Error: err.Error()})
			continue
		}
		items = append(items, batchItem{Filename: file.Filename, Success: true, Result: result})
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "count": len(items), "results": items})
}

func (h *Handler) listContacts(c *gin.Context) {
	if h.contacts == nil {
		respondError(c, http.StatusServiceUnavailable, "persistence is not configured", nil)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.cfg.ExternalTimeout)
	defer cancel()

	records, err := h.contacts.List(ctx, 100)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "could not list contacts", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "count": len(records), "contacts": records})
}

func (h *Handler) getContact(c *gin.Context) {
	if h.contacts == nil {
		respondError(c, http.StatusServiceUnavailable, "persistence is not configured", nil)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.cfg.ExternalTimeout)
	defer cancel()

	record, err := h.contacts.GetByID(ctx, c.Param("id"))
	if errors.Is(err, repository.ErrContactNotFound) {
		respondError(c, http.StatusNotFound, "contact not found", err)
		return
	}
	if err != nil {
		respondError(c, http.StatusInternalServerError, "could not load contact", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "contact": record})
}

func (h *Handler) deleteContacts(c *gin.Context) {
	if h.contacts == nil {
		respondError(c, http.StatusServiceUnavailable, "persistence is not configured", nil)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.cfg.ExternalTimeout)
	defer cancel()

	deleted, err := h.contacts.DeleteAll(ctx)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "could not delete contacts", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "deleted": deleted})
}

// resolveInput accepts either a multipart upload (field "image") or a JSON
// body naming a URL to fetch. Returns the raw bytes and a source label.
func (h *Handler) resolveInput(c *gin.Context) ([]byte, string, error) {
	contentType := c.ContentType()

	if strings.HasPrefix(contentType, "multipart/form-data") {
		file, err := c.FormFile("image")
		if err != nil {
			return nil, "", apperrors.NewValidationError("missing form file 'image'", err)
		}
		data, err := readUpload(file)
		if err != nil {
			return nil, "", apperrors.NewValidationError("unreadable upload", err)
		}
		return data, file.Filename, nil
	}

	var req URLScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, "", apperrors.NewValidationError("expected an image upload or a JSON body with 'url'", err)
	}
	if err := h.validator.ValidateImageURL(req.URL); err != nil {
		return nil, "", err
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.cfg.RequestTimeout)
	defer cancel()

	data, err := h.fetcher.FetchImage(ctx, req.URL)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, "", apperrors.NewTimeoutError("image fetch timeout", err)
		}
		return nil, "", apperrors.NewNetworkError("failed to fetch image", err)
	}
	return data, req.URL, nil
}

// archive uploads the original bytes, best effort. A failure is logged and
// the scan response is unaffected.
func (h *Handler) archive(source string, data []byte) string {
	if h.archiver == nil {
		return ""
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.cfg.ExternalTimeout)
	defer cancel()

	name := fmt.Sprintf("%d-%s", time.Now().UnixNano(), sanitizeName(source))
	url, err := h.archiver.Archive(ctx, name, data)
	if err != nil {
		logger.WithError(err).WithField("source", source).Warn("Image archive failed")
		return ""
	}
	h.notify(observer.ImageArchived, source, 0, nil)
	return url
}

// persist stores the extracted contact, best effort. Returns the record id
// or empty when persistence is off or failed.
func (h *Handler) persist(ctx context.Context, source string, result *models.ScanResult) string {
	if h.contacts == nil || result.Contact == nil {
		return ""
	}

	saveCtx, cancel := context.WithTimeout(ctx, h.cfg.ExternalTimeout)
	defer cancel()

	record := &models.StoredContact{
		Contact:          *result.Contact,
		Source:           source,
		ProcessingMethod: result.OCR.EngineLabel,
		RawText:          result.OCR.Text,
	}
	if err := h.contacts.Save(saveCtx, record); err != nil {
		logger.WithError(err).WithField("source", source).Warn("Contact persistence failed")
		return ""
	}
	h.notify(observer.ContactSaved, source, 0, nil)
	return record.ID
}

func (h *Handler) notify(eventType observer.EventType, source string, elapsed time.Duration, err error) {
	if h.publisher == nil {
		return
	}
	event := observer.ScanEvent{
		EventType:      eventType,
		Timestamp:      time.Now().UTC(),
		Source:         source,
		ProcessingTime: elapsed,
		Success:        err == nil,
	}
	if err != nil {
		event.ErrorMessage = err.Error()
	}
	h.publisher.NotifyObservers(context.Background(), event)
}

func readUpload(file *multipart.FileHeader) ([]byte, error) {
	f, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func sanitizeName(name string) string {
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		default:
			return '-'
		}
	}, name)
	if len(name) > 64 {
		name = name[len(name)-64:]
	}
	if name == "" {
		name = "upload"
	}
	return name
}

// Middleware and helper functions
func requestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

func errorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			err := c.Errors.Last()
			respondError(c, determineStatusCode(err), "request processing failed", err)
		}
	}
}

func determineStatusCode(err error) int {
	if appErr, ok := err.(*apperrors.AppError); ok {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, code int, message string, err error) {
	logger.WithError(err).WithFields(logrus.Fields{
		"status_code": code,
		"message":     message,
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
		"ip":          c.ClientIP(),
	}).Error("Request failed")

	detail := message
	if err != nil {
		detail = fmt.Sprintf("%s: %v", message, err)
	}
	c.AbortWithStatusJSON(code, ErrorResponse{
		Success: false,
		Error:   http.StatusText(code),
		Message: detail,
	})
}
