package mongo

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/99minutos/identity-service/internal/core/domain"
	"github.com/99minutos/identity-service/internal/core/ports"
)

const collectionIdentities = "users"

var _ ports.IdentityRepository = (*IdentityRepository)(nil)

type IdentityRepository struct {
	col *mongo.Collection
	now func() time.Time
}

func NewIdentityRepository(db *mongo.Database) *IdentityRepository {
	return &IdentityRepository{col: db.Collection(collectionIdentities), now: time.Now}
}

type identityDocument struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Email        string             `bson:"email"`
	Name         string             `bson:"name"`
	PasswordHash string             `bson:"password_hash,omitempty"`
	Role         string             `bson:"role"`
	CreatedAt    time.Time          `bson:"created_at"`
	UpdatedAt    time.Time          `bson:"updated_at"`
}

func (d identityDocument) toDomain() *domain.Identity {
	return &domain.Identity{
		ID:           d.ID.Hex(),
		Email:        d.Email,
		Name:         d.Name,
		PasswordHash: d.PasswordHash,
		Role:         domain.Role(d.Role),
		CreatedAt:    d.CreatedAt.UTC(),
		UpdatedAt:    d.UpdatedAt.UTC(),
	}
}

// Insert stores a new identity. The unique email index turns a concurrent
// duplicate into domain.ErrEmailTaken.
func (r *IdentityRepository) Insert(ctx context.Context, identity *domain.Identity) (*domain.Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	now := r.now().UTC().Truncate(time.Millisecond)
	doc := identityDocument{
		ID:           primitive.NewObjectID(),
		Email:        domain.NormalizeEmail(identity.Email),
		Name:         identity.Name,
		PasswordHash: identity.PasswordHash,
		Role:         string(identity.Role),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrEmailTaken
		}
		return nil, fmt.Errorf("insert identity: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *IdentityRepository) FindByEmail(ctx context.Context, email string) (*domain.Identity, error) {
	return r.findOne(ctx, bson.M{"email": domain.NormalizeEmail(email)})
}

// FindByID treats an id that is not an ObjectID as unknown.
func (r *IdentityRepository) FindByID(ctx context.Context, id string) (*domain.Identity, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrIdentityNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *IdentityRepository) findOne(ctx context.Context, filter bson.M) (*domain.Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc identityDocument
	if err := r.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrIdentityNotFound
		}
		return nil, fmt.Errorf("find identity: %w", err)
	}
	return doc.toDomain(), nil
}

// UpdateFields applies the update atomically. When UnlessRole is set the
// filter refuses to match a record holding that role.
func (r *IdentityRepository) UpdateFields(ctx context.Context, id string, upd domain.IdentityUpdate) (*domain.Identity, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrIdentityNotFound
	}
	if upd.Empty() {
		current, err := r.findOne(ctx, bson.M{"_id": oid})
		if err != nil {
			return nil, err
		}
		if upd.UnlessRole != "" && current.Role == upd.UnlessRole {
			return nil, domain.ErrProtectedIdentity
		}
		return current, nil
	}

	opCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc identityDocument
	err = r.col.FindOneAndUpdate(opCtx, guardedFilter(oid, upd.UnlessRole), updateDocument(upd, r.now()), opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, r.missOrProtected(ctx, oid, upd.UnlessRole)
		}
		return nil, fmt.Errorf("update identity: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *IdentityRepository) Delete(ctx context.Context, id string, unlessRole domain.Role) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrIdentityNotFound
	}

	opCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.DeleteOne(opCtx, guardedFilter(oid, unlessRole))
	if err != nil {
		return fmt.Errorf("delete identity: %w", err)
	}
	if res.DeletedCount == 0 {
		return r.missOrProtected(ctx, oid, unlessRole)
	}
	return nil
}

// missOrProtected explains why a guarded write matched nothing.
func (r *IdentityRepository) missOrProtected(ctx context.Context, oid primitive.ObjectID, unlessRole domain.Role) error {
	if unlessRole == "" {
		return domain.ErrIdentityNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	n, err := r.col.CountDocuments(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("count identity: %w", err)
	}
	if n == 0 {
		return domain.ErrIdentityNotFound
	}
	return domain.ErrProtectedIdentity
}

// List returns one page ordered by creation time. Password hashes are not
// read back.
func (r *IdentityRepository) List(ctx context.Context, f ports.ListIdentitiesFilter) ([]*domain.Identity, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := listFilter(f)
	total, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count identities: %w", err)
	}

	cur, err := r.col.Find(ctx, filter, listOptions(f))
	if err != nil {
		return nil, 0, fmt.Errorf("list identities: %w", err)
	}
	defer cur.Close(ctx)

	var docs []identityDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, 0, fmt.Errorf("decode identities: %w", err)
	}

	items := make([]*domain.Identity, 0, len(docs))
	for _, d := range docs {
		items = append(items, d.toDomain())
	}
	return items, total, nil
}

// EnsureIndexes creates the unique email index the directory relies on.
func (r *IdentityRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "role", Value: 1}, {Key: "created_at", Value: 1}}},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}

func guardedFilter(oid primitive.ObjectID, unlessRole domain.Role) bson.M {
	filter := bson.M{"_id": oid}
	if unlessRole != "" {
		filter["role"] = bson.M{"$ne": string(unlessRole)}
	}
	return filter
}

func updateDocument(upd domain.IdentityUpdate, now time.Time) bson.M {
	set := bson.M{"updated_at": now.UTC().Truncate(time.Millisecond)}
	if upd.Name != nil {
		set["name"] = *upd.Name
	}
	if upd.PasswordHash != nil {
		set["password_hash"] = *upd.PasswordHash
	}
	if upd.Role != nil {
		set["role"] = string(*upd.Role)
	}
	return bson.M{"$set": set}
}

func listFilter(f ports.ListIdentitiesFilter) bson.M {
	filter := bson.M{}
	if f.Role != "" {
		filter["role"] = string(f.Role)
	}
	return filter
}

func listOptions(f ports.ListIdentitiesFilter) *options.FindOptions {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}).
		SetProjection(bson.M{"password_hash": 0})
	if f.Limit > 0 {
		page := f.Page
		if page < 1 {
			page = 1
		}
		skip := int64(math.MaxInt64)
		if int64(page-1) <= math.MaxInt64/int64(f.Limit) {
			skip = int64(page-1) * int64(f.Limit)
		}
		opts.SetSkip(skip).SetLimit(int64(f.Limit))
	}
	return opts
}
