package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/pricelens/backend/internal/domain"
	"github.com/pricelens/backend/internal/usecase"
)

// SearchStatusHeader reports how a catalog read was served: ok, no_matches or degraded.
const SearchStatusHeader = "X-Search-Status"

// Services are the use cases the HTTP layer exposes.
type Services struct {
	Ingest   *usecase.IngestService
	Search   *usecase.SearchService
	Stores   *usecase.StoreService
	Barcodes *usecase.BarcodeService
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	ingest   *usecase.IngestService
	search   *usecase.SearchService
	stores   *usecase.StoreService
	barcodes *usecase.BarcodeService
	version  string
	logger   zerolog.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(services Services, version string, logger zerolog.Logger) *Handler {
	return &Handler{
		ingest:   services.Ingest,
		search:   services.Search,
		stores:   services.Stores,
		barcodes: services.Barcodes,
		version:  version,
		logger:   logger.With().Str("component", "http").Logger(),
	}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "pricelens-backend",
		"version": h.version,
	})
}

// CreateProduct records a listing. With a store_id the observation is merged into
// the matching product or creates one; without it only the product is recorded.
func (h *Handler) CreateProduct(c *gin.Context) {
	var entry domain.ManualEntry
	if err := c.ShouldBindJSON(&entry); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	res, err := h.ingest.Ingest(c.Request.Context(), entry)
	if err != nil {
		h.writeError(c, err)
		return
	}

	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	c.JSON(status, res)
}

// SearchProducts searches the catalog. Failures render as an empty list with the
// degraded search status.
func (h *Handler) SearchProducts(c *gin.Context) {
	limit, ok := intParam(c, "limit")
	if !ok {
		return
	}
	mode := strings.ToLower(strings.TrimSpace(c.Query("mode")))
	switch mode {
	case "", domain.SearchModeText, domain.SearchModeSemantic, domain.SearchModeExternal:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "mode must be one of text, semantic, external"})
		return
	}

	query := c.Query("q")
	if strings.TrimSpace(query) == "" {
		query = c.Query("name")
	}

	outcome := h.search.Search(c.Request.Context(), domain.SearchQuery{
		Query:    query,
		Category: c.Query("category"),
		Tag:      c.Query("tag"),
		StoreID:  c.Query("store_id"),
		Limit:    limit,
		Mode:     mode,
	})

	c.Header(SearchStatusHeader, string(outcome.Status))
	c.JSON(http.StatusOK, outcome.Products)
}

// GetProduct returns one product by id.
func (h *Handler) GetProduct(c *gin.Context) {
	view, err := h.search.GetOne(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	if view == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
		return
	}
	c.JSON(http.StatusOK, view)
}

// GetCategories returns the most frequent categories.
func (h *Handler) GetCategories(c *gin.Context) {
	limit, ok := intParam(c, "limit")
	if !ok {
		return
	}
	outcome := h.search.GetCategories(c.Request.Context(), limit)
	c.Header(SearchStatusHeader, string(outcome.Status))
	c.JSON(http.StatusOK, outcome.Categories)
}

// ListStores returns the stores that carry products.
func (h *Handler) ListStores(c *gin.Context) {
	stores, err := h.stores.ListProductStores(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stores)
}

// SearchStores looks stores up by name or address.
func (h *Handler) SearchStores(c *gin.Context) {
	stores, err := h.stores.SearchStores(c.Request.Context(), c.Query("name"), c.Query("address"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stores)
}

// GetBarcode returns the product linked to a barcode.
func (h *Handler) GetBarcode(c *gin.Context) {
	view, err := h.barcodes.Lookup(c.Request.Context(), c.Param("barcode"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

type linkBarcodeRequest struct {
	ProductID string `json:"product_id"`
}

// LinkBarcode links a barcode to a product, replacing any earlier link.
func (h *Handler) LinkBarcode(c *gin.Context) {
	var req linkBarcodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	mapping, err := h.barcodes.Link(c.Request.Context(), c.Param("barcode"), req.ProductID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, mapping)
}

// UnlinkBarcode removes a barcode link.
func (h *Handler) UnlinkBarcode(c *gin.Context) {
	if err := h.barcodes.Unlink(c.Request.Context(), c.Param("barcode")); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// intParam reads an optional positive integer query parameter, answering 400 when malformed.
func intParam(c *gin.Context, name string) (int, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": name + " must be a positive integer"})
		return 0, false
	}
	return n, true
}

// writeError maps use case errors to HTTP responses.
func (h *Handler) writeError(c *gin.Context, err error) {
	var validation *domain.ValidationError
	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"error": validation.Error()})
	case errors.Is(err, domain.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrProductNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
	case errors.Is(err, domain.ErrBarcodeNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "barcode not found"})
	case errors.Is(err, domain.ErrStoreNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "store not found"})
	case errors.Is(err, domain.ErrEnrichmentUnavailable):
		c.JSON(http.StatusNotImplemented, gin.H{"error": "store lookup is not configured"})
	case errors.Is(err, domain.ErrGeoAPIFailure):
		h.logger.Error().Err(err).Str("path", c.FullPath()).Msg("geolocation lookup failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "store lookup failed"})
	case errors.Is(err, domain.ErrCatalogUnavailable):
		h.logger.Error().Err(err).Str("path", c.FullPath()).Msg("catalog unavailable")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "catalog unavailable"})
	default:
		h.logger.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
