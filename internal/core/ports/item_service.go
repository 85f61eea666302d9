package ports

import (
	"context"

	"github.com/appforge/data-platform/internal/core/domain"
	"github.com/appforge/data-platform/internal/core/policy"
)

// ListItemsInput carries all parameters for the list operation.
type ListItemsInput struct {
	TenantID   string
	Collection string
	Limit      int // capped at 1000, default 100
	Offset     int
	OrderBy    string // created_at | updated_at | sort_order
	Order      string // asc | desc, default desc
	Filters    map[string]string
	Caller     policy.Caller
}

// ListItemsResult is one page of items plus pagination metadata.
type ListItemsResult struct {
	Items   []*domain.Item `json:"items"`
	Total   int64          `json:"total"`
	Limit   int            `json:"limit"`
	Offset  int            `json:"offset"`
	HasMore bool           `json:"has_more"`
}

// ItemService implements CRUD, list/filter/paginate/count and bulk
// operations over schema-validated, access-controlled records. Role
// enforcement for the bulk operations happens in the transport layer.
type ItemService interface {
	List(ctx context.Context, in ListItemsInput) (*ListItemsResult, error)
	Get(ctx context.Context, tenantID, collection, id string, caller policy.Caller) (*domain.Item, error)
	// Create inserts a new item. The reserved sort_order payload key is
	// lifted out of data into item metadata and never schema-validated.
	Create(ctx context.Context, tenantID, collection string, data domain.Data, caller policy.Caller) (*domain.Item, error)
	// Update shallow-merges partial into the stored data and validates the
	// merged result against the collection schema before persisting. A
	// sort_order key in partial updates the item's sort position; null
	// clears it.
	Update(ctx context.Context, tenantID, collection, id string, partial domain.Data, caller policy.Caller) (*domain.Item, error)
	Delete(ctx context.Context, tenantID, collection, id string, caller policy.Caller) error
	// Count counts non-archived items. Intentionally unfiltered by
	// ownership: counts are tenant-wide aggregate statistics.
	Count(ctx context.Context, tenantID, collection string) (int64, error)
	BulkDelete(ctx context.Context, tenantID, collection string, ids []string, caller policy.Caller) (int64, error)
	BulkArchive(ctx context.Context, tenantID, collection string, ids []string, caller policy.Caller) (int64, error)
	// GetStats returns per-collection counts and last update times for the
	// whole tenant.
	GetStats(ctx context.Context, tenantID string) ([]CollectionStats, error)
}
