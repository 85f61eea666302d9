package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/appforge/data-platform/internal/core/domain"
)

const collectionCollections = "collections"

type CollectionRepository struct {
	col *mongo.Collection
}

func NewCollectionRepository(db *mongo.Database) *CollectionRepository {
	return &CollectionRepository{col: db.Collection(collectionCollections)}
}

// Insert stores a new collection definition. The unique (tenant_id, name)
// index is what makes registry auto-creation race-safe: the second
// concurrent first-writer gets a CONFLICT and re-fetches.
func (r *CollectionRepository) Insert(ctx context.Context, col *domain.Collection) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if _, err := r.col.InsertOne(ctx, col); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.NewConflict("collection already exists")
		}
		return internalErr("insert collection", err)
	}
	return nil
}

func (r *CollectionRepository) FindByName(ctx context.Context, tenantID, name string) (*domain.Collection, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var col domain.Collection
	err := r.col.FindOne(ctx, bson.M{"tenant_id": tenantID, "name": name}).Decode(&col)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.NewNotFound("collection")
		}
		return nil, internalErr("find collection", err)
	}
	return &col, nil
}

func (r *CollectionRepository) Update(ctx context.Context, col *domain.Collection) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": col.ID, "tenant_id": col.TenantID},
		bson.M{"$set": bson.M{
			"description": col.Description,
			"schema":      col.Schema,
			"settings":    col.Settings,
			"updated_at":  col.UpdatedAt,
		}},
	)
	if err != nil {
		return internalErr("update collection", err)
	}
	if res.MatchedCount == 0 {
		return domain.NewNotFound("collection")
	}
	return nil
}

// List returns the tenant's collections ordered by creation time, name as
// tiebreaker.
func (r *CollectionRepository) List(ctx context.Context, tenantID string) ([]*domain.Collection, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "name", Value: 1}})
	cursor, err := r.col.Find(ctx, bson.M{"tenant_id": tenantID}, opts)
	if err != nil {
		return nil, internalErr("list collections", err)
	}
	defer cursor.Close(ctx)

	var cols []*domain.Collection
	if err := cursor.All(ctx, &cols); err != nil {
		return nil, internalErr("decode collections", err)
	}
	return cols, nil
}

// EnsureIndexes creates the unique (tenant_id, name) index.
func (r *CollectionRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "tenant_id", Value: 1}, {Key: "name", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}
