package transport

import (
	"net/http"

	"squad-stash/internal/middleware"
	"squad-stash/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// CatalogHandler handles HTTP requests for the shared price list
type CatalogHandler struct {
	catalogService service.CatalogService
	logger         *zap.Logger
}

// NewCatalogHandler creates a new CatalogHandler
func NewCatalogHandler(catalogService service.CatalogService, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{
		catalogService: catalogService,
		logger:         logger,
	}
}

// RegisterRoutes registers all catalog routes
func (h *CatalogHandler) RegisterRoutes(r chi.Router) {
	r.Get("/items", h.ListItems)
	r.Get("/update", h.Update)
	r.Get("/search", h.Search)
}

// ListItems returns the whole cached price list
func (h *CatalogHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	h.logger.Debug("Request: items")

	items, err := h.catalogService.ListItems(r.Context())
	if err != nil {
		h.logger.Error("Failed to list catalog items", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, items)
}

// Update triggers a synchronous catalog refresh from the external feed
func (h *CatalogHandler) Update(w http.ResponseWriter, r *http.Request) {
	if err := h.catalogService.Refresh(r.Context()); err != nil {
		h.logger.Error("Catalog update failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to update data")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "Data updated"})
}

// Search matches catalog item names case-insensitively against ?q=
func (h *CatalogHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		middleware.RespondWithError(w, http.StatusBadRequest, `query parameter "q" is required`)
		return
	}

	items, err := h.catalogService.Search(r.Context(), query)
	if err != nil {
		h.logger.Error("Catalog search failed", zap.Error(err), zap.String("query", query))
		middleware.RespondWithError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, items)
}
