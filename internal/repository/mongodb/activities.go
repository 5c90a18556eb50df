package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mamadbah2/dispatch/internal/domain/models"
	"github.com/mamadbah2/dispatch/internal/repository"
)

// AppendActivity inserts a journal entry.
func (r *Repository) AppendActivity(ctx context.Context, event models.ActivityEvent) (models.ActivityEvent, error) {
	if event.ID == "" {
		event.ID = repository.NewID()
	}
	if _, err := r.activities.InsertOne(ctx, event); err != nil {
		return models.ActivityEvent{}, fmt.Errorf("failed to insert activity: %w", err)
	}
	return event, nil
}

// ListRecentActivities returns the newest events first. Ids are ObjectID
// hex strings, so they break createdAt ties in insertion order.
func (r *Repository) ListRecentActivities(ctx context.Context, limit int) ([]models.ActivityEvent, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit))

	cur, err := r.activities.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list activities: %w", err)
	}

	out := make([]models.ActivityEvent, 0, limit)
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode activities: %w", err)
	}
	return out, nil
}

// DeleteActivitiesByOrder removes the journal entries of a deleted order.
func (r *Repository) DeleteActivitiesByOrder(ctx context.Context, orderID string) (int64, error) {
	res, err := r.activities.DeleteMany(ctx, bson.M{"orderId": orderID})
	if err != nil {
		return 0, fmt.Errorf("failed to delete activities of order: %w", err)
	}
	return res.DeletedCount, nil
}
