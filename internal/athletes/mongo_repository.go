package athletes

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/harry-lons/runsum-be-nonorg/internal/apperrors"
	"github.com/harry-lons/runsum-be-nonorg/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoRepository implements Repository using MongoDB.
// Athletes live in one collection keyed by a unique athlete_id index,
// audit rows in a second collection.
type MongoRepository struct {
	athletes *mongo.Collection
	queries  *mongo.Collection
}

// NewMongoRepository creates the repository and ensures its indexes.
func NewMongoRepository(ctx context.Context, db *mongo.Database) (*MongoRepository, error) {
	r := &MongoRepository{athletes: db.Collection("athletes"), queries: db.Collection("queries")}
	idx := mongo.IndexModel{Keys: bson.D{{Key: "athlete_id", Value: 1}}, Options: options.Index().SetUnique(true)}
	if _, err := r.athletes.Indexes().CreateOne(ctx, idx); err != nil {
		return nil, fmt.Errorf("mongo index: %w", err)
	}
	qidx := mongo.IndexModel{Keys: bson.D{{Key: "athlete_id", Value: 1}, {Key: "query_time", Value: 1}}, Options: options.Index().SetUnique(true)}
	if _, err := r.queries.Indexes().CreateOne(ctx, qidx); err != nil {
		return nil, fmt.Errorf("mongo index: %w", err)
	}
	return r, nil
}

func (r *MongoRepository) Upsert(ctx context.Context, a *models.Athlete) (*models.Athlete, error) {
	now := time.Now().UTC()
	filter := bson.M{"athlete_id": a.ID}
	update := bson.M{
		"$set": bson.M{
			"first_name":    a.FirstName,
			"last_name":     a.LastName,
			"access_token":  a.AccessToken,
			"refresh_token": a.RefreshToken,
			"expires_at":    a.ExpiresAt.UTC(),
			"updated_at":    now,
		},
		"$setOnInsert": bson.M{"created_at": now},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var updated models.Athlete
	if err := r.athletes.FindOneAndUpdate(ctx, filter, update, opts).Decode(&updated); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &updated, nil
}

func (r *MongoRepository) Get(ctx context.Context, id int64) (*models.Athlete, error) {
	var a models.Athlete
	if err := r.athletes.FindOne(ctx, bson.M{"athlete_id": id}).Decode(&a); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.Wrapf(apperrors.ErrNotFound, nil, "athlete %d", id)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &a, nil
}

// UpdateTokens matches on the previous expiry so a concurrent writer wins at most once.
func (r *MongoRepository) UpdateTokens(ctx context.Context, id int64, prevExpiresAt time.Time, next models.TokenSet) (bool, error) {
	filter := bson.M{"athlete_id": id, "expires_at": prevExpiresAt.UTC()}
	update := bson.M{"$set": bson.M{
		"access_token":  next.AccessToken,
		"refresh_token": next.RefreshToken,
		"expires_at":    next.ExpiresAt.UTC(),
		"updated_at":    time.Now().UTC(),
	}}
	res, err := r.athletes.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return res.MatchedCount == 1, nil
}

func (r *MongoRepository) LogQuery(ctx context.Context, q models.QueryLog) error {
	if _, err := r.queries.InsertOne(ctx, q); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
