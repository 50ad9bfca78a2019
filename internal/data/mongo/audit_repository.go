// Package mongo stores the read-only audit trail of committed ledger events.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/microcredit-pool-ledger/internal/domain/event"
)

const (
	// AuditCollectionName is the name of the audit collection in MongoDB
	AuditCollectionName = "loan_events"
)

// AuditRepository implements the event.Repository interface for MongoDB
type AuditRepository struct {
	collection *mongo.Collection
	logger     *slog.Logger
}

// NewAuditRepository creates a new MongoDB audit repository
func NewAuditRepository(logger *slog.Logger, db *mongo.Database) *AuditRepository {
	return newAuditRepository(logger, db.Collection(AuditCollectionName))
}

func newAuditRepository(logger *slog.Logger, collection *mongo.Collection) *AuditRepository {
	return &AuditRepository{
		collection: collection,
		logger:     logger,
	}
}

var _ event.Repository = (*AuditRepository)(nil)

// EnsureIndexes creates the unique event_id index and the lookup indexes.
func (r *AuditRepository) EnsureIndexes(ctx context.Context) error {
	models := []mongo.IndexModel{
		{Keys: bson.D{{Key: "event_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "account", Value: 1}, {Key: "occurred_at", Value: -1}}},
		{Keys: bson.D{{Key: "loan_id", Value: 1}}},
	}
	if _, err := r.collection.Indexes().CreateMany(ctx, models); err != nil {
		r.logger.Error("Failed to create audit indexes", "error", err)
		return fmt.Errorf("failed to create audit indexes: %w", err)
	}
	return nil
}

// Create records e. Returns ErrDuplicateEvent if the event ID was already recorded.
func (r *AuditRepository) Create(ctx context.Context, e *event.Event) error {
	if _, err := r.collection.InsertOne(ctx, e); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return event.ErrDuplicateEvent{ID: e.ID}
		}
		r.logger.Error("Failed to record audit event",
			"event_id", e.ID.String(),
			"error", err)
		return fmt.Errorf("failed to record audit event: %w", err)
	}
	return nil
}

// GetByID returns ErrEventNotFound if no event exists for id.
func (r *AuditRepository) GetByID(ctx context.Context, id uuid.UUID) (*event.Event, error) {
	var e event.Event
	err := r.collection.FindOne(ctx, bson.M{"event_id": id}).Decode(&e)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, event.ErrEventNotFound{ID: id}
		}
		r.logger.Error("Failed to get audit event",
			"event_id", id.String(),
			"error", err)
		return nil, fmt.Errorf("failed to get audit event: %w", err)
	}
	return &e, nil
}

// GetByAccount retrieves paginated events for an account, newest first.
func (r *AuditRepository) GetByAccount(ctx context.Context, account string, limit, offset int) ([]*event.Event, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "occurred_at", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	events, err := r.find(ctx, bson.M{"account": account}, opts)
	if err != nil {
		r.logger.Error("Failed to get audit events",
			"account", account,
			"error", err)
		return nil, fmt.Errorf("failed to get audit events: %w", err)
	}
	return events, nil
}

func (r *AuditRepository) CountByAccount(ctx context.Context, account string) (int64, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{"account": account})
	if err != nil {
		r.logger.Error("Failed to count audit events",
			"account", account,
			"error", err)
		return 0, fmt.Errorf("failed to count audit events: %w", err)
	}
	return count, nil
}

// GetByLoanID returns a loan's events in the order they occurred.
func (r *AuditRepository) GetByLoanID(ctx context.Context, loanID int64) ([]*event.Event, error) {
	opts := options.Find().SetSort(bson.D{{Key: "occurred_at", Value: 1}})

	events, err := r.find(ctx, bson.M{"loan_id": loanID}, opts)
	if err != nil {
		r.logger.Error("Failed to get loan events",
			"loan_id", loanID,
			"error", err)
		return nil, fmt.Errorf("failed to get loan events: %w", err)
	}
	return events, nil
}

// GetByTimeRange retrieves paginated events within the window, newest first.
func (r *AuditRepository) GetByTimeRange(ctx context.Context, startTime, endTime time.Time, limit, offset int) ([]*event.Event, error) {
	filter := bson.M{
		"occurred_at": bson.M{
			"$gte": startTime,
			"$lte": endTime,
		},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "occurred_at", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	events, err := r.find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to get audit events by time range",
			"start_time", startTime,
			"end_time", endTime,
			"error", err)
		return nil, fmt.Errorf("failed to get audit events by time range: %w", err)
	}
	return events, nil
}

func (r *AuditRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*event.Event, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	events := []*event.Event{}
	if err := cursor.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}
