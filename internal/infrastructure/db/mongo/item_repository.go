package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/appforge/data-platform/internal/core/domain"
	"github.com/appforge/data-platform/internal/core/ports"
)

const collectionItems = "items"

// ItemRepository stores every tenant's items in one sharded-friendly
// MongoDB collection, scoped by (tenant_id, collection_id). The open data
// map persists as a nested document, so dynamic equality filters become
// plain "data.<key>" matches. Filter values are passed as BSON operands,
// never interpolated into a query string.
type ItemRepository struct {
	col *mongo.Collection
}

func NewItemRepository(db *mongo.Database) *ItemRepository {
	return &ItemRepository{col: db.Collection(collectionItems)}
}

func (r *ItemRepository) Insert(ctx context.Context, item *domain.Item) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if _, err := r.col.InsertOne(ctx, item); err != nil {
		return internalErr("insert item", err)
	}
	return nil
}

// scopeFilter builds the base filter every read and write shares.
// ownerOnly with an empty ownerID matches nothing, which is exactly the
// empty-result semantics an anonymous caller gets on owner-scoped
// collections.
func scopeFilter(tenantID, collectionID, ownerID string, ownerOnly bool) bson.M {
	filter := bson.M{
		"tenant_id":     tenantID,
		"collection_id": collectionID,
		"is_archived":   false,
	}
	if ownerOnly {
		filter["owner_id"] = ownerID
	}
	return filter
}

func (r *ItemRepository) FindByID(ctx context.Context, tenantID, collectionID, id, ownerID string, ownerOnly bool) (*domain.Item, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := scopeFilter(tenantID, collectionID, ownerID, ownerOnly)
	filter["_id"] = id

	var item domain.Item
	if err := r.col.FindOne(ctx, filter).Decode(&item); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.NewNotFound("item")
		}
		return nil, internalErr("find item", err)
	}
	return &item, nil
}

// List returns one page plus the total matching count. The _id tiebreaker
// keeps pagination stable when orderBy values collide under concurrent
// writes.
func (r *ItemRepository) List(ctx context.Context, q ports.ItemQuery) ([]*domain.Item, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := scopeFilter(q.TenantID, q.CollectionID, q.OwnerID, q.OwnerOnly)
	for key, value := range q.Filters {
		filter["data."+key] = value
	}

	total, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, internalErr("count items", err)
	}

	dir := 1
	if q.Desc {
		dir = -1
	}
	opts := options.Find().
		SetSort(bson.D{{Key: q.OrderBy, Value: dir}, {Key: "_id", Value: dir}}).
		SetSkip(int64(q.Offset)).
		SetLimit(int64(q.Limit))

	cursor, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, internalErr("list items", err)
	}
	defer cursor.Close(ctx)

	items := []*domain.Item{}
	if err := cursor.All(ctx, &items); err != nil {
		return nil, 0, internalErr("decode items", err)
	}
	return items, total, nil
}

func (r *ItemRepository) UpdateData(ctx context.Context, tenantID, collectionID, id, ownerID string, ownerOnly bool, upd ports.ItemUpdate) (*domain.Item, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := scopeFilter(tenantID, collectionID, ownerID, ownerOnly)
	filter["_id"] = id

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	set := bson.M{"data": upd.Data, "updated_at": time.Now().UTC()}
	update := bson.M{"$set": set}
	if upd.SetSortOrder {
		if upd.SortOrder != nil {
			set["sort_order"] = *upd.SortOrder
		} else {
			update["$unset"] = bson.M{"sort_order": ""}
		}
	}

	var item domain.Item
	if err := r.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&item); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.NewNotFound("item")
		}
		return nil, internalErr("update item", err)
	}
	return &item, nil
}

func (r *ItemRepository) Delete(ctx context.Context, tenantID, collectionID, id, ownerID string, ownerOnly bool) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := scopeFilter(tenantID, collectionID, ownerID, ownerOnly)
	filter["_id"] = id

	res, err := r.col.DeleteOne(ctx, filter)
	if err != nil {
		return internalErr("delete item", err)
	}
	if res.DeletedCount == 0 {
		return domain.NewNotFound("item")
	}
	return nil
}

func (r *ItemRepository) Exists(ctx context.Context, tenantID, collectionID, id string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := scopeFilter(tenantID, collectionID, "", false)
	filter["_id"] = id

	n, err := r.col.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, internalErr("item exists", err)
	}
	return n > 0, nil
}

func (r *ItemRepository) Count(ctx context.Context, tenantID, collectionID string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	n, err := r.col.CountDocuments(ctx, scopeFilter(tenantID, collectionID, "", false))
	if err != nil {
		return 0, internalErr("count items", err)
	}
	return n, nil
}

func (r *ItemRepository) DeleteMany(ctx context.Context, tenantID, collectionID string, ids []string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.DeleteMany(ctx, bson.M{
		"tenant_id":     tenantID,
		"collection_id": collectionID,
		"_id":           bson.M{"$in": ids},
	})
	if err != nil {
		return 0, internalErr("bulk delete items", err)
	}
	return res.DeletedCount, nil
}

// ArchiveMany flags the given ids as archived. Already-archived items are
// excluded from the match, so repeated calls report zero newly affected.
func (r *ItemRepository) ArchiveMany(ctx context.Context, tenantID, collectionID string, ids []string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.UpdateMany(ctx,
		bson.M{
			"tenant_id":     tenantID,
			"collection_id": collectionID,
			"_id":           bson.M{"$in": ids},
			"is_archived":   false,
		},
		bson.M{"$set": bson.M{"is_archived": true, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return 0, internalErr("bulk archive items", err)
	}
	return res.ModifiedCount, nil
}

// Stats returns the non-archived count and most recent update time for
// one collection.
func (r *ItemRepository) Stats(ctx context.Context, tenantID, collectionID string) (int64, *time.Time, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := scopeFilter(tenantID, collectionID, "", false)

	count, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return 0, nil, internalErr("stats count", err)
	}
	if count == 0 {
		return 0, nil, nil
	}

	opts := options.FindOne().
		SetSort(bson.D{{Key: "updated_at", Value: -1}}).
		SetProjection(bson.M{"updated_at": 1})

	var latest struct {
		UpdatedAt time.Time `bson:"updated_at"`
	}
	if err := r.col.FindOne(ctx, filter, opts).Decode(&latest); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return count, nil, nil
		}
		return 0, nil, internalErr("stats last updated", err)
	}
	return count, &latest.UpdatedAt, nil
}

// EnsureIndexes creates the scoping and sort indexes.
func (r *ItemRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{
			{Key: "tenant_id", Value: 1},
			{Key: "collection_id", Value: 1},
			{Key: "is_archived", Value: 1},
			{Key: "created_at", Value: -1},
		}},
		{Keys: bson.D{
			{Key: "tenant_id", Value: 1},
			{Key: "collection_id", Value: 1},
			{Key: "owner_id", Value: 1},
		}},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}
