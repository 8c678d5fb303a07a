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
	"basecamp/pkg/model"
)

// AvailabilityRepository owns the per-(campsite, date) remaining-capacity
// counters. Decrement and Increment are version-conditioned: the update filter
// carries the version the caller read, so a write against a record that moved
// underneath fails instead of losing the update.
type AvailabilityRepository interface {
	InsertMany(ctx context.Context, records []*model.Availability) error
	FindRange(ctx context.Context, campsiteID string, start, end time.Time) ([]*model.Availability, error)
	FindRangeInclusive(ctx context.Context, campsiteID string, start, end time.Time) ([]*model.Availability, error)
	FindByIDs(ctx context.Context, ids []string) ([]*model.Availability, error)
	FindLast(ctx context.Context, campsiteID string) (*model.Availability, error)
	Decrement(ctx context.Context, record *model.Availability) error
	Increment(ctx context.Context, record *model.Availability, capacity int) error
	DeleteByCampsite(ctx context.Context, campsiteID string) error
}

type mongoAvailabilityRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoAvailabilityRepository(cfg *config.Config) AvailabilityRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoAvailabilityRepository{
		cfg:        cfg,
		collection: db.Collection(AvailabilityCollection),
	}
}

func (r *mongoAvailabilityRepository) InsertMany(ctx context.Context, records []*model.Availability) error {
	if len(records) == 0 {
		return nil
	}

	ctx, cancel := withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	docs := make([]any, 0, len(records))
	for _, record := range records {
		if record.ID == "" {
			record.ID = primitive.NewObjectID().Hex()
		}
		record.CreatedAt = now

		objectID, err := primitive.ObjectIDFromHex(record.ID)
		if err != nil {
			return fmt.Errorf("%w: %s", campsiteerrors.ErrInvalidID, record.ID)
		}

		docs = append(docs, bson.M{
			"_id":         objectID,
			"campsite_id": record.CampsiteID,
			"date":        record.Date,
			"sites":       record.Sites,
			"version":     record.Version,
			"created_at":  record.CreatedAt,
		})
	}

	// Unordered so one duplicate (campsite_id, date) does not abort the rest;
	// duplicates are expected when two extensions race.
	opts := options.InsertMany().SetOrdered(false)
	_, err := r.collection.InsertMany(ctx, docs, opts)
	if err != nil && !isDuplicateOnly(err) {
		return fmt.Errorf("failed to insert availability records: %w", err)
	}

	return nil
}

func isDuplicateOnly(err error) bool {
	var bulkErr mongo.BulkWriteException
	if !errors.As(err, &bulkErr) {
		return false
	}
	for _, writeErr := range bulkErr.WriteErrors {
		if !mongo.IsDuplicateKeyError(writeErr) {
			return false
		}
	}
	return true
}

// FindRange returns records for dates in [start, end), ascending by date.
func (r *mongoAvailabilityRepository) FindRange(ctx context.Context, campsiteID string, start, end time.Time) ([]*model.Availability, error) {
	return r.findDateFilter(ctx, campsiteID, bson.M{"$gte": start, "$lt": end})
}

// FindRangeInclusive returns records for dates in [start, end], ascending by date.
func (r *mongoAvailabilityRepository) FindRangeInclusive(ctx context.Context, campsiteID string, start, end time.Time) ([]*model.Availability, error) {
	return r.findDateFilter(ctx, campsiteID, bson.M{"$gte": start, "$lte": end})
}

func (r *mongoAvailabilityRepository) findDateFilter(ctx context.Context, campsiteID string, dateFilter bson.M) ([]*model.Availability, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"campsite_id": campsiteID,
		"date":        dateFilter,
	}
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find availability records: %w", err)
	}
	defer cursor.Close(ctx)

	var records []*model.Availability
	if err = cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode availability records: %w", err)
	}

	return records, nil
}

func (r *mongoAvailabilityRepository) FindByIDs(ctx context.Context, ids []string) ([]*model.Availability, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectIDs := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		objectID, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", campsiteerrors.ErrInvalidID, id)
		}
		objectIDs = append(objectIDs, objectID)
	}

	filter := bson.M{"_id": bson.M{"$in": objectIDs}}
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find availability records: %w", err)
	}
	defer cursor.Close(ctx)

	var records []*model.Availability
	if err = cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode availability records: %w", err)
	}

	return records, nil
}

// FindLast returns the record at the campsite's current horizon.
func (r *mongoAvailabilityRepository) FindLast(ctx context.Context, campsiteID string) (*model.Availability, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.FindOne().SetSort(bson.D{{Key: "date", Value: -1}})

	var record model.Availability
	err := r.collection.FindOne(ctx, bson.M{"campsite_id": campsiteID}, opts).Decode(&record)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, campsiteerrors.ErrAvailabilityNotFound
		}
		return nil, fmt.Errorf("failed to find last availability record: %w", err)
	}

	return &record, nil
}

// Decrement takes one site from the record, conditioned on the version the
// caller read and on at least one site remaining. On success the in-memory
// record is advanced to match the stored state.
func (r *mongoAvailabilityRepository) Decrement(ctx context.Context, record *model.Availability) error {
	objectID, err := primitive.ObjectIDFromHex(record.ID)
	if err != nil {
		return fmt.Errorf("%w: %s", campsiteerrors.ErrInvalidID, record.ID)
	}

	filter := bson.M{
		"_id":     objectID,
		"version": record.Version,
		"sites":   bson.M{"$gt": 0},
	}
	update := bson.M{"$inc": bson.M{"sites": -1, "version": 1}}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to decrement availability: %w", err)
	}

	if result.MatchedCount == 0 {
		return r.classifyFailedMutation(ctx, objectID, record.Version)
	}

	record.Sites--
	record.Version++
	return nil
}

// Increment returns one site to the record, conditioned on the version the
// caller read and on the counter staying within the campsite's capacity.
func (r *mongoAvailabilityRepository) Increment(ctx context.Context, record *model.Availability, capacity int) error {
	objectID, err := primitive.ObjectIDFromHex(record.ID)
	if err != nil {
		return fmt.Errorf("%w: %s", campsiteerrors.ErrInvalidID, record.ID)
	}

	filter := bson.M{
		"_id":     objectID,
		"version": record.Version,
		"sites":   bson.M{"$lt": capacity},
	}
	update := bson.M{"$inc": bson.M{"sites": 1, "version": 1}}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to increment availability: %w", err)
	}

	if result.MatchedCount == 0 {
		return r.classifyFailedMutation(ctx, objectID, record.Version)
	}

	record.Sites++
	record.Version++
	return nil
}

// classifyFailedMutation distinguishes a lost optimistic race from a counter
// that was already at its bound at the version the caller read.
func (r *mongoAvailabilityRepository) classifyFailedMutation(ctx context.Context, objectID primitive.ObjectID, version int64) error {
	var current model.Availability
	err := r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&current)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return campsiteerrors.ErrAvailabilityNotFound
		}
		return fmt.Errorf("failed to classify availability mutation failure: %w", err)
	}

	if current.Version != version {
		return campsiteerrors.ErrStaleVersion
	}
	return campsiteerrors.ErrInvariantViolation
}

func (r *mongoAvailabilityRepository) DeleteByCampsite(ctx context.Context, campsiteID string) error {
	ctx, cancel := withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	_, err := r.collection.DeleteMany(ctx, bson.M{"campsite_id": campsiteID})
	if err != nil {
		return fmt.Errorf("failed to delete availability records: %w", err)
	}
	return nil
}
