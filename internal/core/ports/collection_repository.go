package ports

import (
	"context"

	"github.com/appforge/data-platform/internal/core/domain"
)

// CollectionRepository persists per-tenant collection definitions.
type CollectionRepository interface {
	// Insert stores a new collection. The adapter must hold a unique
	// (tenant_id, name) constraint; a duplicate insert returns a CONFLICT
	// error so the registry can resolve concurrent first-access races.
	Insert(ctx context.Context, col *domain.Collection) error
	FindByName(ctx context.Context, tenantID, name string) (*domain.Collection, error)
	Update(ctx context.Context, col *domain.Collection) error
	// List returns every collection of the tenant ordered by creation time
	// ascending, name ascending as tiebreaker.
	List(ctx context.Context, tenantID string) ([]*domain.Collection, error)
}
