package mongo

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/appforge/data-platform/internal/core/domain"
)

const collectionEndUsers = "end_users"

type IdentityRepository struct {
	col *mongo.Collection
}

func NewIdentityRepository(db *mongo.Database) *IdentityRepository {
	return &IdentityRepository{col: db.Collection(collectionEndUsers)}
}

// Insert stores a new identity. The unique (tenant_id, email) index turns
// a duplicate signup into a CONFLICT.
func (r *IdentityRepository) Insert(ctx context.Context, user *domain.EndUser) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	user.Email = strings.ToLower(user.Email)
	if _, err := r.col.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.NewConflict("email already registered")
		}
		return internalErr("insert identity", err)
	}
	return nil
}

func (r *IdentityRepository) FindByID(ctx context.Context, tenantID, id string) (*domain.EndUser, error) {
	return r.findOne(ctx, bson.M{"_id": id, "tenant_id": tenantID})
}

func (r *IdentityRepository) FindByEmail(ctx context.Context, tenantID, email string) (*domain.EndUser, error) {
	return r.findOne(ctx, bson.M{"tenant_id": tenantID, "email": strings.ToLower(email)})
}

func (r *IdentityRepository) FindByResetToken(ctx context.Context, tenantID, token string) (*domain.EndUser, error) {
	if token == "" {
		return nil, domain.NewNotFound("identity")
	}
	return r.findOne(ctx, bson.M{"tenant_id": tenantID, "reset_token": token})
}

func (r *IdentityRepository) findOne(ctx context.Context, filter bson.M) (*domain.EndUser, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var user domain.EndUser
	if err := r.col.FindOne(ctx, filter).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.NewNotFound("identity")
		}
		return nil, internalErr("find identity", err)
	}
	return &user, nil
}

// Update replaces the stored document. Reset token fields are cleared by
// unsetting them when empty, so stale tokens never linger.
func (r *IdentityRepository) Update(ctx context.Context, user *domain.EndUser) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	set := bson.M{
		"email":         strings.ToLower(user.Email),
		"password_hash": user.PasswordHash,
		"display_name":  user.DisplayName,
		"avatar_url":    user.AvatarURL,
		"role":          user.Role,
		"profile_data":  user.ProfileData,
		"updated_at":    user.UpdatedAt,
	}
	unset := bson.M{}

	if user.LastLoginAt != nil {
		set["last_login_at"] = user.LastLoginAt
	}
	if user.BannedAt != nil {
		set["banned_at"] = user.BannedAt
	} else {
		unset["banned_at"] = ""
	}
	if user.ResetToken != "" {
		set["reset_token"] = user.ResetToken
		set["reset_token_expires"] = user.ResetTokenExpires
	} else {
		unset["reset_token"] = ""
		unset["reset_token_expires"] = ""
	}

	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	res, err := r.col.UpdateOne(ctx, bson.M{"_id": user.ID, "tenant_id": user.TenantID}, update)
	if err != nil {
		return internalErr("update identity", err)
	}
	if res.MatchedCount == 0 {
		return domain.NewNotFound("identity")
	}
	return nil
}

func (r *IdentityRepository) CountByTenant(ctx context.Context, tenantID string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	n, err := r.col.CountDocuments(ctx, bson.M{"tenant_id": tenantID})
	if err != nil {
		return 0, internalErr("count identities", err)
	}
	return n, nil
}

// EnsureIndexes creates the unique email index and lookup indexes.
func (r *IdentityRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "tenant_id", Value: 1}, {Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "reset_token", Value: 1}}},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}
