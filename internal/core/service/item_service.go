package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/appforge/data-platform/internal/core/domain"
	"github.com/appforge/data-platform/internal/core/policy"
	"github.com/appforge/data-platform/internal/core/ports"
	"github.com/appforge/data-platform/internal/core/schema"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

var orderableFields = map[string]struct{}{
	"created_at": {},
	"updated_at": {},
	"sort_order": {},
}

// sortOrderKey is a reserved payload key. It is lifted out of the data
// map into item metadata so orderBy=sort_order has something to sort on.
const sortOrderKey = "sort_order"

// popSortOrder removes the reserved sort_order key from the payload and
// returns its numeric value. A null value clears the stored order.
func popSortOrder(data domain.Data) (value *float64, present bool, err error) {
	raw, ok := data[sortOrderKey]
	if !ok {
		return nil, false, nil
	}
	delete(data, sortOrderKey)
	if raw == nil {
		return nil, true, nil
	}

	var n float64
	switch v := raw.(type) {
	case float64:
		n = v
	case float32:
		n = float64(v)
	case int:
		n = float64(v)
	case int32:
		n = float64(v)
	case int64:
		n = float64(v)
	default:
		return nil, false, domain.NewValidation("invalid sort order", domain.FieldViolation{
			Field: sortOrderKey, Rule: "number", Message: "must be a number",
		})
	}
	return &n, true, nil
}

// ItemService executes CRUD and aggregate operations over schema-validated,
// access-controlled records. Collections are resolved (and lazily created)
// through the registry on every call.
type ItemService struct {
	items    ports.ItemRepository
	registry ports.CollectionService
	audit    ports.AuditSink
	logger   zerolog.Logger
}

func NewItemService(
	items ports.ItemRepository,
	registry ports.CollectionService,
	audit ports.AuditSink,
	logger zerolog.Logger,
) *ItemService {
	return &ItemService{items: items, registry: registry, audit: audit, logger: logger}
}

// List returns one page of non-archived items. Dynamic filters are
// equality predicates on individual data keys; unsafe keys are rejected
// before they ever reach the storage layer.
func (s *ItemService) List(ctx context.Context, in ports.ListItemsInput) (*ports.ListItemsResult, error) {
	col, err := s.registry.GetOrCreate(ctx, in.TenantID, in.Collection)
	if err != nil {
		return nil, err
	}

	limit := in.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	offset := in.Offset
	if offset < 0 {
		offset = 0
	}

	orderBy := in.OrderBy
	if orderBy == "" {
		orderBy = "created_at"
	}
	if _, ok := orderableFields[orderBy]; !ok {
		return nil, domain.NewValidation("invalid order field", domain.FieldViolation{
			Field: "orderBy", Rule: "enum", Message: "must be one of created_at, updated_at, sort_order",
		})
	}
	desc := in.Order != "asc"

	for key := range in.Filters {
		if !domain.SafeFilterKey(key) {
			return nil, domain.NewValidation("unsafe filter key", domain.FieldViolation{
				Field: key, Rule: "pattern", Message: "filter keys must be plain identifiers",
			})
		}
	}

	ownerID, ownerOnly := policy.ReadScope(col.Settings, in.Caller)

	items, total, err := s.items.List(ctx, ports.ItemQuery{
		TenantID:     in.TenantID,
		CollectionID: col.ID,
		OwnerID:      ownerID,
		OwnerOnly:    ownerOnly,
		Filters:      in.Filters,
		OrderBy:      orderBy,
		Desc:         desc,
		Limit:        limit,
		Offset:       offset,
	})
	if err != nil {
		return nil, err
	}

	return &ports.ListItemsResult{
		Items:   items,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: int64(offset+limit) < total,
	}, nil
}

// Get returns one item, ownership-filtered per the collection policy.
func (s *ItemService) Get(ctx context.Context, tenantID, collection, id string, caller policy.Caller) (*domain.Item, error) {
	col, err := s.registry.GetOrCreate(ctx, tenantID, collection)
	if err != nil {
		return nil, err
	}
	ownerID, ownerOnly := policy.ReadScope(col.Settings, caller)
	return s.items.FindByID(ctx, tenantID, col.ID, id, ownerID, ownerOnly)
}

// Create validates data against the collection schema, resolves relation
// references, and inserts the item. Validation and relation checks complete
// before any mutation; a violation is an atomic no-op.
func (s *ItemService) Create(ctx context.Context, tenantID, collection string, data domain.Data, caller policy.Caller) (*domain.Item, error) {
	col, err := s.registry.GetOrCreate(ctx, tenantID, collection)
	if err != nil {
		return nil, err
	}

	if err := policy.CanWrite(col.Settings, caller); err != nil {
		return nil, err
	}

	sortOrder, _, err := popSortOrder(data)
	if err != nil {
		return nil, err
	}

	if violations := schema.Validate(data, col.Schema); len(violations) > 0 {
		return nil, domain.NewValidation("schema validation failed", violations...)
	}
	if err := s.resolveRelations(ctx, tenantID, col.Schema, data); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	item := &domain.Item{
		ID:           uuid.NewString(),
		TenantID:     tenantID,
		CollectionID: col.ID,
		OwnerID:      caller.IdentityID,
		Data:         data,
		SortOrder:    sortOrder,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.items.Insert(ctx, item); err != nil {
		return nil, err
	}

	s.logger.Debug().
		Str("tenant_id", tenantID).
		Str("collection", collection).
		Str("item_id", item.ID).
		Msg("item created")

	return item, nil
}

// Update shallow-merges partial over the stored data, validates the merged
// result against the schema (not just the delta), and persists it.
func (s *ItemService) Update(ctx context.Context, tenantID, collection, id string, partial domain.Data, caller policy.Caller) (*domain.Item, error) {
	col, err := s.registry.GetOrCreate(ctx, tenantID, collection)
	if err != nil {
		return nil, err
	}

	if err := policy.CanWrite(col.Settings, caller); err != nil {
		return nil, err
	}
	ownerID, ownerOnly := policy.WriteScope(col.Settings, caller)

	sortOrder, setSortOrder, err := popSortOrder(partial)
	if err != nil {
		return nil, err
	}

	existing, err := s.items.FindByID(ctx, tenantID, col.ID, id, ownerID, ownerOnly)
	if err != nil {
		return nil, err
	}

	merged := existing.Data.Merge(partial)
	if violations := schema.Validate(merged, col.Schema); len(violations) > 0 {
		return nil, domain.NewValidation("schema validation failed", violations...)
	}
	if err := s.resolveRelations(ctx, tenantID, col.Schema, partial); err != nil {
		return nil, err
	}

	return s.items.UpdateData(ctx, tenantID, col.ID, id, ownerID, ownerOnly, ports.ItemUpdate{
		Data:         merged,
		SortOrder:    sortOrder,
		SetSortOrder: setSortOrder,
	})
}

// Delete hard-deletes one item, ownership-filtered. Deleting an absent or
// filtered id is NOT_FOUND, not silent success.
func (s *ItemService) Delete(ctx context.Context, tenantID, collection, id string, caller policy.Caller) error {
	col, err := s.registry.GetOrCreate(ctx, tenantID, collection)
	if err != nil {
		return err
	}

	if err := policy.CanWrite(col.Settings, caller); err != nil {
		return err
	}
	ownerID, ownerOnly := policy.WriteScope(col.Settings, caller)

	return s.items.Delete(ctx, tenantID, col.ID, id, ownerID, ownerOnly)
}

// Count counts non-archived items. No ownership filtering is applied:
// counts are tenant-wide aggregate statistics, even for owner-read-only
// collections.
func (s *ItemService) Count(ctx context.Context, tenantID, collection string) (int64, error) {
	col, err := s.registry.GetOrCreate(ctx, tenantID, collection)
	if err != nil {
		return 0, err
	}
	return s.items.Count(ctx, tenantID, col.ID)
}

// BulkDelete removes the given ids in one set-based operation. The
// returned count may be lower than len(ids) when some ids do not belong to
// the tenant or collection. Role enforcement happens in the layer above.
func (s *ItemService) BulkDelete(ctx context.Context, tenantID, collection string, ids []string, caller policy.Caller) (int64, error) {
	col, err := s.registry.GetOrCreate(ctx, tenantID, collection)
	if err != nil {
		return 0, err
	}

	affected, err := s.items.DeleteMany(ctx, tenantID, col.ID, ids)
	if err != nil {
		return 0, err
	}

	s.audit.Record(ctx, ports.AuditEntry{
		TenantID:     tenantID,
		ActorID:      caller.IdentityID,
		Action:       "bulk_delete",
		ResourceType: "item",
		ResourceID:   collection,
		Details:      map[string]any{"requested": len(ids), "deleted": affected},
	})
	return affected, nil
}

// BulkArchive soft-deletes the given ids. Idempotent: archiving an already
// archived item changes nothing and is not counted again.
func (s *ItemService) BulkArchive(ctx context.Context, tenantID, collection string, ids []string, caller policy.Caller) (int64, error) {
	col, err := s.registry.GetOrCreate(ctx, tenantID, collection)
	if err != nil {
		return 0, err
	}

	affected, err := s.items.ArchiveMany(ctx, tenantID, col.ID, ids)
	if err != nil {
		return 0, err
	}

	s.audit.Record(ctx, ports.AuditEntry{
		TenantID:     tenantID,
		ActorID:      caller.IdentityID,
		Action:       "bulk_archive",
		ResourceType: "item",
		ResourceID:   collection,
		Details:      map[string]any{"requested": len(ids), "archived": affected},
	})
	return affected, nil
}

// GetStats returns {count, lastUpdated} for every collection of the tenant.
func (s *ItemService) GetStats(ctx context.Context, tenantID string) ([]ports.CollectionStats, error) {
	cols, err := s.registry.List(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	stats := make([]ports.CollectionStats, 0, len(cols))
	for _, col := range cols {
		count, lastUpdated, err := s.items.Stats(ctx, tenantID, col.ID)
		if err != nil {
			return nil, err
		}
		stats = append(stats, ports.CollectionStats{
			Name:        col.Name,
			Count:       count,
			LastUpdated: lastUpdated,
		})
	}
	return stats, nil
}

// resolveRelations verifies, for every schema field carrying a relation,
// that a payload-supplied reference points at an existing item. Existence
// checking only: references are not cleaned up when the referent is later
// deleted.
func (s *ItemService) resolveRelations(ctx context.Context, tenantID string, fields []domain.FieldDef, data domain.Data) error {
	var violations []domain.FieldViolation

	for _, field := range fields {
		if field.Relation == nil {
			continue
		}
		value, present := data[field.Name]
		if !present || value == nil {
			continue
		}
		refID, ok := value.(string)
		if !ok || refID == "" {
			violations = append(violations, domain.FieldViolation{
				Field: field.Name, Rule: "relation", Message: "relation value must be an item id string",
			})
			continue
		}

		target, err := s.registry.GetOrCreate(ctx, tenantID, field.Relation.Collection)
		if err != nil {
			return err
		}
		exists, err := s.items.Exists(ctx, tenantID, target.ID, refID)
		if err != nil {
			return err
		}
		if !exists {
			violations = append(violations, domain.FieldViolation{
				Field: field.Name,
				Rule:  "relation",
				Message: fmt.Sprintf("references missing item %q in collection %q",
					refID, field.Relation.Collection),
			})
		}
	}

	if len(violations) > 0 {
		return domain.NewValidation("dangling relation reference", violations...)
	}
	return nil
}
