package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/appforge/data-platform/internal/core/domain"
	"github.com/appforge/data-platform/internal/core/ports"
)

// CollectionHandler handles HTTP requests for the collection registry.
type CollectionHandler struct {
	collections ports.CollectionService
	items       ports.ItemService
}

func NewCollectionHandler(collections ports.CollectionService, items ports.ItemService) *CollectionHandler {
	return &CollectionHandler{collections: collections, items: items}
}

// --- Request / Response types ---

type updateSchemaRequest struct {
	Schema   []domain.FieldDef          `json:"schema"`
	Settings *domain.CollectionSettings `json:"settings"`
}

type listCollectionsResponse struct {
	Collections []*domain.Collection `json:"collections"`
}

type collectionStatsResponse struct {
	Collections []ports.CollectionStats `json:"collections"`
}

// List returns the tenant's collections in creation order.
//
// @Summary      List collections
// @Tags         collections
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  listCollectionsResponse
// @Failure      403  {object}  map[string]string
// @Router       /v1/collections [get]
func (h *CollectionHandler) List(c echo.Context) error {
	tid, err := tenantID(c)
	if err != nil {
		return err
	}

	cols, err := h.collections.List(c.Request().Context(), tid)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, listCollectionsResponse{Collections: cols})
}

// Get resolves one collection by name, provisioning it on first reference.
//
// @Summary      Get a collection
// @Tags         collections
// @Produce      json
// @Security     BearerAuth
// @Param        name  path      string  true  "Collection name"
// @Success      200   {object}  domain.Collection
// @Failure      422   {object}  map[string]string
// @Router       /v1/collections/{name} [get]
func (h *CollectionHandler) Get(c echo.Context) error {
	tid, err := tenantID(c)
	if err != nil {
		return err
	}

	col, err := h.collections.GetOrCreate(c.Request().Context(), tid, c.Param("name"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, col)
}

// UpdateSchema replaces a collection's schema and optionally its access
// settings. Existing items are not revalidated.
//
// @Summary      Update a collection's schema
// @Tags         collections
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        name  path      string               true  "Collection name"
// @Param        body  body      updateSchemaRequest  true  "New schema and settings"
// @Success      200   {object}  domain.Collection
// @Failure      403   {object}  map[string]string
// @Failure      422   {object}  map[string]string
// @Router       /v1/collections/{name} [put]
func (h *CollectionHandler) UpdateSchema(c echo.Context) error {
	tid, err := tenantID(c)
	if err != nil {
		return err
	}

	var req updateSchemaRequest
	if err := c.Bind(&req); err != nil {
		return domain.NewValidation("invalid payload")
	}

	col, err := h.collections.UpdateSchema(c.Request().Context(), ports.UpdateSchemaInput{
		TenantID: tid,
		Name:     c.Param("name"),
		Schema:   req.Schema,
		Settings: req.Settings,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, col)
}

// Stats returns per-collection item counts and last update times.
//
// @Summary      Collection statistics
// @Tags         collections
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  collectionStatsResponse
// @Failure      403  {object}  map[string]string
// @Router       /v1/collections/stats [get]
func (h *CollectionHandler) Stats(c echo.Context) error {
	tid, err := tenantID(c)
	if err != nil {
		return err
	}

	stats, err := h.items.GetStats(c.Request().Context(), tid)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, collectionStatsResponse{Collections: stats})
}
