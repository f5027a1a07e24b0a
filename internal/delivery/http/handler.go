package http

import (
	"context"
	"errors"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"

	"github.com/smarties/backend/internal/domain"
	"github.com/smarties/backend/internal/platform/logger"
)

// Reported by the health endpoint and used as the tracing service name.
const (
	ServiceName = "smarties-backend"
	Version     = "1.0.0"
)

// Scanner runs the scan pipeline. *usecase.ScanService satisfies it.
type Scanner interface {
	ScanAndAnalyze(ctx context.Context, request *domain.ScanRequest) (*domain.ScanResponse, error)
}

// StatsFunc returns a JSON-encodable snapshot for the cache stats endpoint.
type StatsFunc func() interface{}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	scanner Scanner
	stats   map[string]StatsFunc
	log     *logger.Logger
}

// NewHandler creates a new HTTP handler. scanner may be nil, in which case
// scans answer 503.
func NewHandler(scanner Scanner, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.NewNop()
	}
	return &Handler{
		scanner: scanner,
		stats:   make(map[string]StatsFunc),
		log:     log.With("component", "http"),
	}
}

// RegisterStats adds a named section to the cache stats response.
func (h *Handler) RegisterStats(name string, fn StatsFunc) {
	if fn != nil {
		h.stats[name] = fn
	}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": ServiceName,
		"version": Version,
	})
}

// Scan handles product scan requests
func (h *Handler) Scan(c *gin.Context) {
	if h.scanner == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "scan service not configured"})
		return
	}

	var req domain.ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	resp, err := h.scanner.ScanAndAnalyze(c.Request.Context(), &req)
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			h.log.Error("scan failed", "upc", req.UPC, "status", status, "error", err)
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// CacheStats reports every registered cache section.
func (h *Handler) CacheStats(c *gin.Context) {
	names := make([]string, 0, len(h.stats))
	for name := range h.stats {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make(gin.H, len(names))
	for _, name := range names {
		out[name] = h.stats[name]()
	}
	c.JSON(http.StatusOK, out)
}

// statusFor maps pipeline errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrProductNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, domain.ErrProductLookupFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
