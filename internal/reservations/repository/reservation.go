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

	reserrors "roomres/internal/reservations/errors"
	"roomres/internal/reservations/lifecycle"
	"roomres/pkg/config"
	mongotx "roomres/pkg/db/mongo"
	"roomres/pkg/model"
)

const (
	CollectionName = "Reservations"
)

type ReservationRepository interface {
	Create(ctx context.Context, res *model.Reservation) error
	FindByID(ctx context.Context, id string) (*model.Reservation, error)
	FindByRoom(ctx context.Context, roomID string, statuses []model.Status, limit int, offset int64) ([]*model.Reservation, error)
	CountByRoom(ctx context.Context, roomID string, statuses []model.Status) (int64, error)
	Save(ctx context.Context, res *model.Reservation, expectedVersion int64) error
	FindOngoingByRoom(ctx context.Context, roomID string) (*model.Reservation, error)
	FindNextConflict(ctx context.Context, roomID string, after time.Time) (*time.Time, error)
	FindDueExpiry(ctx context.Context, cutoff time.Time) ([]*model.Reservation, error)
	FindDueCompletion(ctx context.Context, now time.Time) ([]*model.Reservation, error)
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

// The repository doubles as the schedule oracle for extension decisions.
var _ lifecycle.ConflictChecker = (ReservationRepository)(nil)

type mongoReservationRepository struct {
	cfg        *config.Config
	db         *mongo.Database
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

func NewMongoReservationRepository(cfg *config.Config) ReservationRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoReservationRepository{
		cfg:        cfg,
		db:         db,
		collection: db.Collection(CollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

// withTimeout wraps the context with a timeout unless already inside a
// transaction: a SessionContext cannot be wrapped without breaking
// transaction semantics, so it is returned unchanged with a no-op cancel.
func (r *mongoReservationRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}

	deadline, hasDeadline := ctx.Deadline()
	if hasDeadline {
		if remaining := time.Until(deadline); remaining < timeout {
			return context.WithTimeout(ctx, remaining)
		}
	}

	return context.WithTimeout(ctx, timeout)
}

func (r *mongoReservationRepository) Create(ctx context.Context, res *model.Reservation) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	res.CreatedAt = now
	res.UpdatedAt = now
	res.Version = 1

	result, err := r.collection.InsertOne(ctx, res)
	if err != nil {
		return fmt.Errorf("failed to create reservation: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		res.ID = oid.Hex()
	}
	return nil
}

func (r *mongoReservationRepository) FindByID(ctx context.Context, id string) (*model.Reservation, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", reserrors.ErrInvalidID, id)
	}

	var res model.Reservation
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&res)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, reserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find reservation: %w", err)
	}

	return &res, nil
}

func (r *mongoReservationRepository) FindByRoom(ctx context.Context, roomID string, statuses []model.Status, limit int, offset int64) ([]*model.Reservation, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "start_time", Value: 1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, roomFilter(roomID, statuses), opts)
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

func (r *mongoReservationRepository) CountByRoom(ctx context.Context, roomID string, statuses []model.Status) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, roomFilter(roomID, statuses))
	if err != nil {
		return 0, fmt.Errorf("failed to count reservations: %w", err)
	}
	return count, nil
}

// Save applies the reservation state conditionally on the version the caller
// loaded. A version miss on an existing document means a concurrent writer
// won; the caller gets ErrVersionConflict and must re-fetch.
func (r *mongoReservationRepository) Save(ctx context.Context, res *model.Reservation, expectedVersion int64) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(res.ID)
	if err != nil {
		return fmt.Errorf("%w: %s", reserrors.ErrInvalidID, res.ID)
	}

	filter := bson.M{"_id": objectID, "version": expectedVersion}
	update := bson.M{
		"$set": bson.M{
			"status":               res.Status,
			"extension_requested":  res.ExtensionRequested,
			"extension_status":     res.ExtensionStatus,
			"extension_reason":     res.ExtensionReason,
			"extended_end":         res.ExtendedEnd,
			"extension_open_ended": res.ExtensionOpenEnded,
			"started_at":           res.StartedAt,
			"ended_at":             res.EndedAt,
			"updated_at":           res.UpdatedAt,
		},
		"$inc": bson.M{"version": 1},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to save reservation: %w", err)
	}

	if result.MatchedCount == 0 {
		// Distinguish a lost race from a missing document.
		count, err := r.collection.CountDocuments(ctx, bson.M{"_id": objectID})
		if err != nil {
			return fmt.Errorf("failed to save reservation: %w", err)
		}
		if count == 0 {
			return reserrors.ErrNotFound
		}
		return reserrors.ErrVersionConflict
	}

	res.Version = expectedVersion + 1
	return nil
}

func (r *mongoReservationRepository) FindOngoingByRoom(ctx context.Context, roomID string) (*model.Reservation, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var res model.Reservation
	err := r.collection.FindOne(ctx, bson.M{
		"room_id": roomID,
		"status":  model.StatusOngoing,
	}).Decode(&res)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find ongoing reservation: %w", err)
	}

	return &res, nil
}

// FindNextConflict returns the start time of the earliest approved or
// ongoing reservation on the room strictly after the given time, or nil.
func (r *mongoReservationRepository) FindNextConflict(ctx context.Context, roomID string, after time.Time) (*time.Time, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"room_id":    roomID,
		"status":     bson.M{"$in": []model.Status{model.StatusApproved, model.StatusOngoing}},
		"start_time": bson.M{"$gt": after},
	}
	opts := options.FindOne().SetSort(bson.D{{Key: "start_time", Value: 1}})

	var res model.Reservation
	err := r.collection.FindOne(ctx, filter, opts).Decode(&res)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find next conflict: %w", err)
	}

	return &res.StartTime, nil
}

// FindDueExpiry lists pending and approved reservations whose scheduled
// start passed before the cutoff without being started.
func (r *mongoReservationRepository) FindDueExpiry(ctx context.Context, cutoff time.Time) ([]*model.Reservation, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"status":     bson.M{"$in": []model.Status{model.StatusPending, model.StatusApproved}},
		"start_time": bson.M{"$lt": cutoff},
	}

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to find overdue reservations: %w", err)
	}
	defer cursor.Close(ctx)

	var reservations []*model.Reservation
	if err = cursor.All(ctx, &reservations); err != nil {
		return nil, fmt.Errorf("failed to decode overdue reservations: %w", err)
	}

	return reservations, nil
}

// FindDueCompletion lists ongoing reservations whose bounded effective end
// has been reached. Open-ended extensions are excluded even while a follow-up
// request is awaiting review: the active grant runs until explicitly ended.
func (r *mongoReservationRepository) FindDueCompletion(ctx context.Context, now time.Time) ([]*model.Reservation, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"status":               model.StatusOngoing,
		"extension_open_ended": bson.M{"$ne": true},
		"$or": []bson.M{
			{"extended_end": bson.M{"$ne": nil, "$lte": now}},
			{
				"extended_end": nil,
				"end_time":     bson.M{"$lte": now},
			},
		},
	}

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to find elapsed reservations: %w", err)
	}
	defer cursor.Close(ctx)

	var reservations []*model.Reservation
	if err = cursor.All(ctx, &reservations); err != nil {
		return nil, fmt.Errorf("failed to decode elapsed reservations: %w", err)
	}

	return reservations, nil
}

func (r *mongoReservationRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}

func roomFilter(roomID string, statuses []model.Status) bson.M {
	filter := bson.M{"room_id": roomID}
	if len(statuses) > 0 {
		filter["status"] = bson.M{"$in": statuses}
	}
	return filter
}
