package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/mamadbah2/dispatch/internal/repository"
)

const (
	ordersCollection     = "orders"
	schedulesCollection  = "schedules"
	activitiesCollection = "activities"
)

// Repository implements repository.Store on MongoDB.
type Repository struct {
	client     *mongo.Client
	orders     *mongo.Collection
	schedules  *mongo.Collection
	activities *mongo.Collection
	logger     *zap.Logger
}

var _ repository.Store = (*Repository)(nil)

// NewRepository connects, verifies the connection and ensures indexes.
func NewRepository(ctx context.Context, uri string, dbName string, logger *zap.Logger) (*Repository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	db := client.Database(dbName)
	r := &Repository{
		client:     client,
		orders:     db.Collection(ordersCollection),
		schedules:  db.Collection(schedulesCollection),
		activities: db.Collection(activitiesCollection),
		logger:     logger,
	}

	if err := r.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}

	logger.Info("mongodb repository ready", zap.String("db", dbName))
	return r, nil
}

func (r *Repository) ensureIndexes(ctx context.Context) error {
	if _, err := r.schedules.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "orderId", Value: 1}}},
		{Keys: bson.D{{Key: "loadingDate", Value: 1}, {Key: "createdAt", Value: 1}}},
	}); err != nil {
		return fmt.Errorf("create schedule indexes: %w", err)
	}

	if _, err := r.activities.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "orderId", Value: 1}}},
	}); err != nil {
		return fmt.Errorf("create activity indexes: %w", err)
	}

	if _, err := r.orders.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "createdAt", Value: -1}},
	}); err != nil {
		return fmt.Errorf("create order indexes: %w", err)
	}
	return nil
}

// Close closes the MongoDB connection.
func (r *Repository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}

func notFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return repository.ErrNotFound
	}
	return err
}
