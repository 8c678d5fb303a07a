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

type ReservationRepository interface {
	Create(ctx context.Context, reservation *model.Reservation) error
	FindByID(ctx context.Context, campsiteID, id string) (*model.Reservation, error)
	FindAllByCampsite(ctx context.Context, campsiteID string, limit int, offset int64) ([]*model.Reservation, error)
	CountByCampsite(ctx context.Context, campsiteID string) (int64, error)
	Update(ctx context.Context, reservation *model.Reservation) error
	Delete(ctx context.Context, campsiteID, id string) error
	DeleteByCampsite(ctx context.Context, campsiteID string) error
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

type mongoReservationRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

func NewMongoReservationRepository(cfg *config.Config) ReservationRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoReservationRepository{
		cfg:        cfg,
		collection: db.Collection(ReservationCollection),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

func (r *mongoReservationRepository) Create(ctx context.Context, reservation *model.Reservation) error {
	ctx, cancel := withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	reservation.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	result, err := r.collection.InsertOne(ctx, reservation)
	if err != nil {
		return fmt.Errorf("failed to create reservation: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		reservation.ID = oid.Hex()
	}
	return nil
}

// FindByID scopes the lookup to the campsite so a reservation ID cannot be
// addressed through another campsite's URL.
func (r *mongoReservationRepository) FindByID(ctx context.Context, campsiteID, id string) (*model.Reservation, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", campsiteerrors.ErrInvalidID, id)
	}

	filter := bson.M{"_id": objectID, "campsite_id": campsiteID}

	var reservation model.Reservation
	err = r.collection.FindOne(ctx, filter).Decode(&reservation)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, campsiteerrors.ErrReservationNotFound
		}
		return nil, fmt.Errorf("failed to find reservation: %w", err)
	}

	return &reservation, nil
}

func (r *mongoReservationRepository) FindAllByCampsite(ctx context.Context, campsiteID string, limit int, offset int64) ([]*model.Reservation, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, bson.M{"campsite_id": campsiteID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find reservations: %w", err)
	}
	defer cursor.Close(ctx)

	var reservations []*model.Reservation
	if err = cursor.All(ctx, &reservations); err != nil {
		return nil, fmt.Errorf("failed to decode reservations: %w", err)
	}

	return reservations, nil
}

func (r *mongoReservationRepository) CountByCampsite(ctx context.Context, campsiteID string) (int64, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, bson.M{"campsite_id": campsiteID})
	if err != nil {
		return 0, fmt.Errorf("failed to count reservations: %w", err)
	}

	return count, nil
}

// Update rewrites the mutable fields and the ledger join as one document
// write. It runs inside the modify transaction, after the ledger moves.
func (r *mongoReservationRepository) Update(ctx context.Context, reservation *model.Reservation) error {
	objectID, err := primitive.ObjectIDFromHex(reservation.ID)
	if err != nil {
		return fmt.Errorf("%w: %s", campsiteerrors.ErrInvalidID, reservation.ID)
	}

	update := bson.M{"$set": bson.M{
		"name":             reservation.Name,
		"email":            reservation.Email,
		"check_in":         reservation.CheckIn,
		"check_out":        reservation.CheckOut,
		"availability_ids": reservation.AvailabilityIDs,
	}}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objectID}, update)
	if err != nil {
		return fmt.Errorf("failed to update reservation: %w", err)
	}

	if result.MatchedCount == 0 {
		return campsiteerrors.ErrReservationNotFound
	}

	return nil
}

func (r *mongoReservationRepository) Delete(ctx context.Context, campsiteID, id string) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", campsiteerrors.ErrInvalidID, id)
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": objectID, "campsite_id": campsiteID})
	if err != nil {
		return fmt.Errorf("failed to delete reservation: %w", err)
	}

	if result.DeletedCount == 0 {
		return campsiteerrors.ErrReservationNotFound
	}

	return nil
}

func (r *mongoReservationRepository) DeleteByCampsite(ctx context.Context, campsiteID string) error {
	ctx, cancel := withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	_, err := r.collection.DeleteMany(ctx, bson.M{"campsite_id": campsiteID})
	if err != nil {
		return fmt.Errorf("failed to delete reservations: %w", err)
	}
	return nil
}

func (r *mongoReservationRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
