package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/appforge/data-platform/internal/api/metrics"
	"github.com/appforge/data-platform/internal/core/domain"
	"github.com/appforge/data-platform/internal/core/policy"
	"github.com/appforge/data-platform/internal/core/ports"
)

// reservedQueryParams are list parameters that never become data filters.
var reservedQueryParams = map[string]struct{}{
	"limit": {}, "offset": {}, "order_by": {}, "order": {},
}

// ItemHandler handles HTTP requests for item CRUD and bulk operations.
type ItemHandler struct {
	items ports.ItemService
}

func NewItemHandler(items ports.ItemService) *ItemHandler {
	return &ItemHandler{items: items}
}

// --- Request / Response types ---

type bulkRequest struct {
	IDs []string `json:"ids" validate:"required,min=1"`
}

type bulkResponse struct {
	Requested int   `json:"requested"`
	Affected  int64 `json:"affected"`
}

type countResponse struct {
	Count int64 `json:"count"`
}

// List returns one page of a collection's items.
//
// Query parameters: limit, offset, order_by (created_at | updated_at |
// sort_order), order (asc | desc). Every other parameter is treated as an
// equality filter on a data field.
//
// @Summary      List items
// @Tags         data
// @Produce      json
// @Security     BearerAuth
// @Param        collection  path      string  true   "Collection name"
// @Param        limit       query     int     false  "Page size (max 1000)"
// @Param        offset      query     int     false  "Page offset"
// @Param        order_by    query     string  false  "Sort field"
// @Param        order       query     string  false  "asc or desc"
// @Success      200         {object}  ports.ListItemsResult
// @Failure      422         {object}  map[string]string
// @Router       /v1/data/{collection} [get]
func (h *ItemHandler) List(c echo.Context) error {
	tid, err := tenantID(c)
	if err != nil {
		return err
	}

	in := ports.ListItemsInput{
		TenantID:   tid,
		Collection: c.Param("collection"),
		OrderBy:    c.QueryParam("order_by"),
		Order:      c.QueryParam("order"),
		Caller:     caller(c),
	}

	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return domain.NewValidation("limit must be a non-negative integer")
		}
		in.Limit = n
	}
	if raw := c.QueryParam("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return domain.NewValidation("offset must be a non-negative integer")
		}
		in.Offset = n
	}

	filters := make(map[string]string)
	for key, values := range c.QueryParams() {
		if _, reserved := reservedQueryParams[key]; reserved {
			continue
		}
		if len(values) > 0 {
			filters[key] = values[0]
		}
	}
	if len(filters) > 0 {
		in.Filters = filters
	}

	result, err := h.items.List(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// Get returns a single item by id.
//
// @Summary      Get an item
// @Tags         data
// @Produce      json
// @Security     BearerAuth
// @Param        collection  path      string  true  "Collection name"
// @Param        id          path      string  true  "Item id"
// @Success      200         {object}  domain.Item
// @Failure      404         {object}  map[string]string
// @Router       /v1/data/{collection}/{id} [get]
func (h *ItemHandler) Get(c echo.Context) error {
	tid, err := tenantID(c)
	if err != nil {
		return err
	}

	item, err := h.items.Get(c.Request().Context(), tid, c.Param("collection"), c.Param("id"), caller(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, item)
}

// Create validates the payload against the collection schema and stores it.
//
// @Summary      Create an item
// @Tags         data
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        collection  path      string       true  "Collection name"
// @Param        body        body      domain.Data  true  "Item data"
// @Success      201         {object}  domain.Item
// @Failure      403         {object}  map[string]string
// @Failure      422         {object}  map[string]string
// @Router       /v1/data/{collection} [post]
func (h *ItemHandler) Create(c echo.Context) error {
	tid, err := tenantID(c)
	if err != nil {
		return err
	}

	var data domain.Data
	if err := c.Bind(&data); err != nil {
		return domain.NewValidation("body must be a JSON object")
	}

	item, err := h.items.Create(c.Request().Context(), tid, c.Param("collection"), data, caller(c))
	if err != nil {
		if domain.KindOf(err) == domain.KindValidation {
			metrics.ValidationFailuresTotal.Inc()
		}
		return err
	}

	metrics.ItemWritesTotal.WithLabelValues("create").Inc()
	return c.JSON(http.StatusCreated, item)
}

// Update shallow-merges the partial payload into the stored item.
//
// @Summary      Update an item
// @Tags         data
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        collection  path      string       true  "Collection name"
// @Param        id          path      string       true  "Item id"
// @Param        body        body      domain.Data  true  "Fields to merge"
// @Success      200         {object}  domain.Item
// @Failure      404         {object}  map[string]string
// @Failure      422         {object}  map[string]string
// @Router       /v1/data/{collection}/{id} [patch]
func (h *ItemHandler) Update(c echo.Context) error {
	tid, err := tenantID(c)
	if err != nil {
		return err
	}

	var partial domain.Data
	if err := c.Bind(&partial); err != nil {
		return domain.NewValidation("body must be a JSON object")
	}

	item, err := h.items.Update(c.Request().Context(), tid, c.Param("collection"), c.Param("id"), partial, caller(c))
	if err != nil {
		if domain.KindOf(err) == domain.KindValidation {
			metrics.ValidationFailuresTotal.Inc()
		}
		return err
	}

	metrics.ItemWritesTotal.WithLabelValues("update").Inc()
	return c.JSON(http.StatusOK, item)
}

// Delete removes an item permanently.
//
// @Summary      Delete an item
// @Tags         data
// @Produce      json
// @Security     BearerAuth
// @Param        collection  path  string  true  "Collection name"
// @Param        id          path  string  true  "Item id"
// @Success      204
// @Failure      404  {object}  map[string]string
// @Router       /v1/data/{collection}/{id} [delete]
func (h *ItemHandler) Delete(c echo.Context) error {
	tid, err := tenantID(c)
	if err != nil {
		return err
	}

	if err := h.items.Delete(c.Request().Context(), tid, c.Param("collection"), c.Param("id"), caller(c)); err != nil {
		return err
	}

	metrics.ItemWritesTotal.WithLabelValues("delete").Inc()
	return c.NoContent(http.StatusNoContent)
}

// Count returns the number of non-archived items in a collection.
//
// @Summary      Count items
// @Tags         data
// @Produce      json
// @Security     BearerAuth
// @Param        collection  path      string  true  "Collection name"
// @Success      200         {object}  countResponse
// @Router       /v1/data/{collection}/count [get]
func (h *ItemHandler) Count(c echo.Context) error {
	tid, err := tenantID(c)
	if err != nil {
		return err
	}

	n, err := h.items.Count(c.Request().Context(), tid, c.Param("collection"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, countResponse{Count: n})
}

// BulkDelete removes a batch of items by id. Admin only.
//
// @Summary      Bulk delete items
// @Tags         data
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        collection  path      string       true  "Collection name"
// @Param        body        body      bulkRequest  true  "Item ids"
// @Success      200         {object}  bulkResponse
// @Failure      403         {object}  map[string]string
// @Router       /v1/data/{collection}/bulk-delete [post]
func (h *ItemHandler) BulkDelete(c echo.Context) error {
	return h.bulk(c, "bulk_delete", h.items.BulkDelete)
}

// BulkArchive soft-archives a batch of items by id. Admin only.
//
// @Summary      Bulk archive items
// @Tags         data
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        collection  path      string       true  "Collection name"
// @Param        body        body      bulkRequest  true  "Item ids"
// @Success      200         {object}  bulkResponse
// @Failure      403         {object}  map[string]string
// @Router       /v1/data/{collection}/bulk-archive [post]
func (h *ItemHandler) BulkArchive(c echo.Context) error {
	return h.bulk(c, "bulk_archive", h.items.BulkArchive)
}

type bulkFunc func(ctx context.Context, tenantID, collection string, ids []string, caller policy.Caller) (int64, error)

func (h *ItemHandler) bulk(c echo.Context, operation string, fn bulkFunc) error {
	tid, err := tenantID(c)
	if err != nil {
		return err
	}

	var req bulkRequest
	if err := c.Bind(&req); err != nil {
		return domain.NewValidation("invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	affected, err := fn(c.Request().Context(), tid, c.Param("collection"), req.IDs, caller(c))
	if err != nil {
		return err
	}

	metrics.ItemWritesTotal.WithLabelValues(operation).Inc()
	return c.JSON(http.StatusOK, bulkResponse{Requested: len(req.IDs), Affected: affected})
}
