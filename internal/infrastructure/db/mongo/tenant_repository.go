package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/appforge/data-platform/internal/core/domain"
)

const collectionTenants = "tenants"

// TenantRepository reads tenants written by the external provisioning
// system. Read-only from this service's point of view.
type TenantRepository struct {
	col *mongo.Collection
}

func NewTenantRepository(db *mongo.Database) *TenantRepository {
	return &TenantRepository{col: db.Collection(collectionTenants)}
}

func (r *TenantRepository) FindByID(ctx context.Context, id string) (*domain.Tenant, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var tenant domain.Tenant
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&tenant); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.NewNotFound("tenant")
		}
		return nil, internalErr("find tenant", err)
	}
	return &tenant, nil
}
