package ports

import (
	"context"
	"time"

	"github.com/appforge/data-platform/internal/core/domain"
)

// ItemQuery carries every parameter for a list query. The service layer
// guarantees Filters keys already passed the safe-identifier check and
// OrderBy is one of the enumerated sort fields.
type ItemQuery struct {
	TenantID     string
	CollectionID string
	// OwnerID scopes the result set to one owner when OwnerOnly is set.
	// OwnerOnly with an empty OwnerID matches nothing (anonymous caller
	// against an owner-read-only collection).
	OwnerID   string
	OwnerOnly bool
	Filters   map[string]string
	OrderBy   string // created_at | updated_at | sort_order
	Desc      bool
	Limit     int
	Offset    int
}

// ItemUpdate carries the replacement state for one item write. SortOrder
// is applied only when SetSortOrder is true; nil with SetSortOrder clears
// the stored order.
type ItemUpdate struct {
	Data         domain.Data
	SortOrder    *float64
	SetSortOrder bool
}

// CollectionStats is the per-collection aggregate used by dashboards.
type CollectionStats struct {
	Name        string     `json:"name"`
	Count       int64      `json:"count"`
	LastUpdated *time.Time `json:"last_updated,omitempty"`
}

// ItemRepository is the generic row-storage interface items live behind.
// Every operation is scoped by (tenant, collection); archived items are
// excluded from reads unless stated otherwise.
type ItemRepository interface {
	Insert(ctx context.Context, item *domain.Item) error
	// FindByID returns a non-archived item. When ownerOnly is set the match
	// is additionally filtered by owner; a filtered miss is reported the
	// same way as genuine absence (NOT_FOUND).
	FindByID(ctx context.Context, tenantID, collectionID, id, ownerID string, ownerOnly bool) (*domain.Item, error)
	// List returns one page plus the total matching count.
	List(ctx context.Context, q ItemQuery) ([]*domain.Item, int64, error)
	// UpdateData replaces the item's data map (and optionally its sort
	// order) and bumps updated_at. The owner scoping mirrors FindByID.
	// Returns NOT_FOUND when nothing matched.
	UpdateData(ctx context.Context, tenantID, collectionID, id, ownerID string, ownerOnly bool, upd ItemUpdate) (*domain.Item, error)
	// Delete hard-deletes one item, owner-scoped like FindByID. Returns
	// NOT_FOUND when nothing matched.
	Delete(ctx context.Context, tenantID, collectionID, id, ownerID string, ownerOnly bool) error
	// Exists reports whether a non-archived item with the id exists. Used
	// for relation existence checks.
	Exists(ctx context.Context, tenantID, collectionID, id string) (bool, error)
	// Count counts non-archived items with no ownership filtering.
	Count(ctx context.Context, tenantID, collectionID string) (int64, error)
	// DeleteMany removes the given ids in one set-based operation and
	// returns the number actually deleted.
	DeleteMany(ctx context.Context, tenantID, collectionID string, ids []string) (int64, error)
	// ArchiveMany sets is_archived on the given ids and returns the number
	// of newly archived items.
	ArchiveMany(ctx context.Context, tenantID, collectionID string, ids []string) (int64, error)
	// Stats returns count and most recent updated_at for one collection.
	Stats(ctx context.Context, tenantID, collectionID string) (count int64, lastUpdated *time.Time, err error)
}
