package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/appforge/data-platform/internal/core/domain"
	"github.com/appforge/data-platform/internal/core/ports"
)

// CollectionService is the tenant-scoped collection registry with lazy
// provisioning.
type CollectionService struct {
	collections ports.CollectionRepository
	logger      zerolog.Logger
}

func NewCollectionService(collections ports.CollectionRepository, logger zerolog.Logger) *CollectionService {
	return &CollectionService{collections: collections, logger: logger}
}

// GetOrCreate resolves a collection by name, creating it with an empty
// schema and all-false settings on first reference. Concurrent first
// writers race on the unique (tenant_id, name) index: the loser re-fetches
// the winner's row, so exactly one collection exists afterwards.
func (s *CollectionService) GetOrCreate(ctx context.Context, tenantID, name string) (*domain.Collection, error) {
	if !domain.ValidCollectionName(name) {
		return nil, domain.NewValidation("invalid collection name", domain.FieldViolation{
			Field:   "collection",
			Rule:    "pattern",
			Message: "must be lowercase letters, digits or underscore and must not start with a digit",
		})
	}

	col, err := s.collections.FindByName(ctx, tenantID, name)
	if err == nil {
		return col, nil
	}
	if domain.KindOf(err) != domain.KindNotFound {
		return nil, err
	}

	now := time.Now().UTC()
	col = &domain.Collection{
		ID:          uuid.NewString(),
		TenantID:    tenantID,
		Name:        name,
		Description: domain.AutoCreatedDescription,
		Schema:      []domain.FieldDef{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.collections.Insert(ctx, col); err != nil {
		if domain.KindOf(err) == domain.KindConflict {
			// Lost the provisioning race; the winner's row is authoritative.
			return s.collections.FindByName(ctx, tenantID, name)
		}
		return nil, err
	}

	s.logger.Info().Str("tenant_id", tenantID).Str("collection", name).Msg("collection auto-created")
	return col, nil
}

// UpdateSchema replaces the collection's schema and optionally its
// settings. Existing items are revalidated only at their next write.
func (s *CollectionService) UpdateSchema(ctx context.Context, in ports.UpdateSchemaInput) (*domain.Collection, error) {
	if violations := validateSchemaDef(in.Schema); len(violations) > 0 {
		return nil, domain.NewValidation("invalid schema definition", violations...)
	}

	col, err := s.GetOrCreate(ctx, in.TenantID, in.Name)
	if err != nil {
		return nil, err
	}

	col.Schema = in.Schema
	if in.Settings != nil {
		col.Settings = *in.Settings
	}
	col.UpdatedAt = time.Now().UTC()

	if err := s.collections.Update(ctx, col); err != nil {
		return nil, err
	}
	return col, nil
}

// List returns the tenant's collections in creation order.
func (s *CollectionService) List(ctx context.Context, tenantID string) ([]*domain.Collection, error) {
	return s.collections.List(ctx, tenantID)
}

// validateSchemaDef checks the field definitions themselves: names must be
// safe identifiers, types known, enum fields must carry values.
func validateSchemaDef(schema []domain.FieldDef) []domain.FieldViolation {
	var violations []domain.FieldViolation
	seen := make(map[string]struct{}, len(schema))

	for i, field := range schema {
		ref := fmt.Sprintf("schema[%d]", i)
		if field.Name == "" || !domain.SafeFilterKey(field.Name) {
			violations = append(violations, domain.FieldViolation{
				Field: ref, Rule: "name", Message: "field name must be a safe identifier",
			})
			continue
		}
		if _, dup := seen[field.Name]; dup {
			violations = append(violations, domain.FieldViolation{
				Field: field.Name, Rule: "duplicate", Message: "duplicate field name",
			})
		}
		seen[field.Name] = struct{}{}

		if !field.Type.Valid() {
			violations = append(violations, domain.FieldViolation{
				Field: field.Name, Rule: "type", Message: fmt.Sprintf("unknown field type %q", field.Type),
			})
		}
		if field.Type == domain.FieldEnum && len(field.EnumValues) == 0 {
			violations = append(violations, domain.FieldViolation{
				Field: field.Name, Rule: "enum_values", Message: "enum fields need at least one value",
			})
		}
		if field.Relation != nil && !domain.ValidCollectionName(field.Relation.Collection) {
			violations = append(violations, domain.FieldViolation{
				Field: field.Name, Rule: "relation", Message: "relation target must be a valid collection name",
			})
		}
	}
	return violations
}
