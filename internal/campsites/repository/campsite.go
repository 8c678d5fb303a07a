package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	campsiteerrors "basecamp/internal/campsites/errors"
	"basecamp/pkg/config"
	mongotx "basecamp/pkg/db/mongo"
	"basecamp/pkg/model"
)

type CampsiteRepository interface {
	Create(ctx context.Context, campsite *model.Campsite) error
	FindByID(ctx context.Context, id string) (*model.Campsite, error)
	FindAll(ctx context.Context, limit int, offset int64) ([]*model.Campsite, error)
	Count(ctx context.Context) (int64, error)
	UpdateName(ctx context.Context, id string, name string) error
	Delete(ctx context.Context, id string) error
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

type mongoCampsiteRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

func NewMongoCampsiteRepository(cfg *config.Config) CampsiteRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoCampsiteRepository{
		cfg:        cfg,
		collection: db.Collection(CampsiteCollection),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

func (r *mongoCampsiteRepository) Create(ctx context.Context, campsite *model.Campsite) error {
	ctx, cancel := withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	campsite.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	result, err := r.collection.InsertOne(ctx, campsite)
	if err != nil {
		return fmt.Errorf("failed to create campsite: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		campsite.ID = oid.Hex()
	}
	return nil
}

func (r *mongoCampsiteRepository) FindByID(ctx context.Context, id string) (*model.Campsite, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", campsiteerrors.ErrInvalidID, id)
	}

	var campsite model.Campsite
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&campsite)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, campsiteerrors.ErrCampsiteNotFound
		}
		return nil, fmt.Errorf("failed to find campsite: %w", err)
	}

	return &campsite, nil
}

func (r *mongoCampsiteRepository) FindAll(ctx context.Context, limit int, offset int64) ([]*model.Campsite, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find campsites: %w", err)
	}
	defer cursor.Close(ctx)

	var campsites []*model.Campsite
	if err = cursor.All(ctx, &campsites); err != nil {
		return nil, fmt.Errorf("failed to decode campsites: %w", err)
	}

	return campsites, nil
}

func (r *mongoCampsiteRepository) Count(ctx context.Context) (int64, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to count campsites: %w", err)
	}

	return count, nil
}

// UpdateName is the only mutable field update. Capacity is deliberately not
// updatable: availability rows are already seeded from it.
func (r *mongoCampsiteRepository) UpdateName(ctx context.Context, id string, name string) error {
	ctx, cancel := withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", campsiteerrors.ErrInvalidID, id)
	}

	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": objectID},
		bson.M{"$set": bson.M{"name": name}},
	)
	if err != nil {
		return fmt.Errorf("failed to update campsite: %w", err)
	}

	if result.MatchedCount == 0 {
		return campsiteerrors.ErrCampsiteNotFound
	}

	return nil
}

func (r *mongoCampsiteRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", campsiteerrors.ErrInvalidID, id)
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return fmt.Errorf("failed to delete campsite: %w", err)
	}

	if result.DeletedCount == 0 {
		return campsiteerrors.ErrCampsiteNotFound
	}

	return nil
}

func (r *mongoCampsiteRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
