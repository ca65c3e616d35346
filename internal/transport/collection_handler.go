package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"squad-stash/internal/domain"
	"squad-stash/internal/middleware"
	"squad-stash/internal/registry"
	"squad-stash/internal/repository"
	"squad-stash/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// InventoryItemPayload is the wire shape of one inventory row
type InventoryItemPayload struct {
	ID       string  `json:"id" validate:"required"`
	Name     string  `json:"name" validate:"required"`
	Price    float64 `json:"price" validate:"required"`
	Link     *string `json:"link,omitempty"`
	Count    int64   `json:"count,omitempty"`
	NickName string  `json:"nickName" validate:"required"`
}

// ItemRefPayload identifies an existing row by its logical key
type ItemRefPayload struct {
	ID       string `json:"id" validate:"required"`
	NickName string `json:"nickName" validate:"required"`
}

// AddItemRequest is the body of POST /addItemsToCollection
type AddItemRequest struct {
	TableName string               `json:"tableName" validate:"required,len=16,hexadecimal,lowercase"`
	Item      InventoryItemPayload `json:"item"`
}

// ItemCountRequest is the body of the count and delete endpoints. Amount
// is kept raw so malformed values fall back to the default instead of
// failing the whole request; the API has always been lenient here.
type ItemCountRequest struct {
	TableName string          `json:"tableName" validate:"required,len=16,hexadecimal,lowercase"`
	Item      ItemRefPayload  `json:"item"`
	Amount    json.RawMessage `json:"amount,omitempty"`
}

// CollectionHandler handles HTTP requests for the per-room collections
type CollectionHandler struct {
	collectionService service.CollectionService
	logger            *zap.Logger
}

// NewCollectionHandler creates a new CollectionHandler
func NewCollectionHandler(collectionService service.CollectionService, logger *zap.Logger) *CollectionHandler {
	return &CollectionHandler{
		collectionService: collectionService,
		logger:            logger,
	}
}

// RegisterRoutes registers all collection routes
func (h *CollectionHandler) RegisterRoutes(r chi.Router) {
	r.Post("/createCollection", h.CreateCollection)
	r.Post("/addItemsToCollection", h.AddItem)
	r.Get("/getitemsFromCollection", h.ListItems)
	r.Post("/increaseItemCount", h.IncreaseCount)
	r.Post("/decreaseItemCount", h.DecreaseCount)
	r.Delete("/deleteItemFromCollection", h.DeleteItem)
}

// CreateCollection provisions a new randomly named collection
func (h *CollectionHandler) CreateCollection(w http.ResponseWriter, r *http.Request) {
	name, err := h.collectionService.Create(r.Context())
	if err != nil {
		h.logger.Error("Failed to create collection", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to create collection")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]string{
		"message":   fmt.Sprintf("Collection '%s' created successfully", name),
		"tableName": name,
	})
}

// AddItem adds an item to a collection, incrementing the count when the
// (key, nickname) row already exists
func (h *CollectionHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.respondInvalidRequest(w, err)
		return
	}

	item := &domain.InventoryItem{
		ID:       req.Item.ID,
		Name:     req.Item.Name,
		Price:    req.Item.Price,
		Link:     req.Item.Link,
		Count:    req.Item.Count,
		NickName: req.Item.NickName,
	}

	added, err := h.collectionService.AddItem(r.Context(), req.TableName, item)
	if err != nil {
		h.respondServiceError(w, err, "failed to add item")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"message": fmt.Sprintf("Item added to '%s'", req.TableName),
		"item":    added,
	})
}

// ListItems returns all rows of ?tableName=
func (h *CollectionHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	tableName := r.URL.Query().Get("tableName")
	if tableName == "" {
		middleware.RespondWithError(w, http.StatusBadRequest, `query parameter "tableName" is required`)
		return
	}

	items, err := h.collectionService.ListItems(r.Context(), tableName)
	if err != nil {
		h.respondServiceError(w, err, "failed to fetch items")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, items)
}

// IncreaseCount adds amount (default 1) to an existing row's count
func (h *CollectionHandler) IncreaseCount(w http.ResponseWriter, r *http.Request) {
	var req ItemCountRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.respondInvalidRequest(w, err)
		return
	}

	count, err := h.collectionService.IncreaseCount(r.Context(), req.TableName, req.Item.ID, req.Item.NickName, coerceAmount(req.Amount))
	if err != nil {
		h.respondServiceError(w, err, "failed to increase item count")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]int64{"newCount": count})
}

// DecreaseCount subtracts amount (default 1) from an existing row's
// count, refusing to go below zero
func (h *CollectionHandler) DecreaseCount(w http.ResponseWriter, r *http.Request) {
	var req ItemCountRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.respondInvalidRequest(w, err)
		return
	}

	count, err := h.collectionService.DecreaseCount(r.Context(), req.TableName, req.Item.ID, req.Item.NickName, coerceAmount(req.Amount))
	if err != nil {
		h.respondServiceError(w, err, "failed to decrease item count")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]int64{"newCount": count})
}

// DeleteItem removes the unique (key, nickname) row from a collection
func (h *CollectionHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	var req ItemCountRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.respondInvalidRequest(w, err)
		return
	}

	if err := h.collectionService.DeleteItem(r.Context(), req.TableName, req.Item.ID, req.Item.NickName); err != nil {
		h.respondServiceError(w, err, "failed to delete item")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Item deleted from '%s'", req.TableName),
	})
}

// maxAmount bounds a single count adjustment. A float above it would
// overflow the int64 conversion and flip negative.
const maxAmount = 1 << 62

// coerceAmount turns the raw amount field into a usable quantity.
// Missing, malformed, non-positive or out-of-range values all fall
// back to 1.
func coerceAmount(raw json.RawMessage) int64 {
	if len(raw) == 0 {
		return 1
	}

	var num float64
	if err := json.Unmarshal(raw, &num); err != nil {
		var str string
		if err := json.Unmarshal(raw, &str); err != nil {
			return 1
		}
		parsed, err := strconv.ParseFloat(strings.TrimSpace(str), 64)
		if err != nil {
			return 1
		}
		num = parsed
	}

	// The range check also rejects NaN and infinities.
	if !(num >= 1 && num <= maxAmount) {
		return 1
	}
	return int64(num)
}

func (h *CollectionHandler) respondInvalidRequest(w http.ResponseWriter, err error) {
	h.logger.Debug("Request validation failed", zap.Error(err))

	if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
		middleware.RespondWithValidationErrors(w, validationErrors)
		return
	}

	middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
}

func (h *CollectionHandler) respondServiceError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, registry.ErrInvalidName):
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid or missing tableName")
	case errors.Is(err, service.ErrInvalidItem):
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid item data")
	case errors.Is(err, repository.ErrCollectionNotFound):
		middleware.RespondWithError(w, http.StatusNotFound, "collection not found")
	case errors.Is(err, repository.ErrItemNotFound):
		middleware.RespondWithError(w, http.StatusNotFound, "item not found")
	case errors.Is(err, repository.ErrInsufficientCount):
		middleware.RespondWithError(w, http.StatusBadRequest, "cannot decrease item count below zero")
	default:
		h.logger.Error("Collection operation failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, fallback)
	}
}
