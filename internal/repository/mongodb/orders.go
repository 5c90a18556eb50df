package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mamadbah2/dispatch/internal/domain/models"
	"github.com/mamadbah2/dispatch/internal/repository"
)

// InsertOrder stores a new order.
func (r *Repository) InsertOrder(ctx context.Context, order models.Order) (models.Order, error) {
	if order.ID == "" {
		order.ID = repository.NewID()
	}
	if _, err := r.orders.InsertOne(ctx, order); err != nil {
		return models.Order{}, fmt.Errorf("failed to insert order: %w", err)
	}
	return order, nil
}

// GetOrder loads one order by id.
func (r *Repository) GetOrder(ctx context.Context, id string) (models.Order, error) {
	var out models.Order
	if err := r.orders.FindOne(ctx, bson.M{"_id": id}).Decode(&out); err != nil {
		return models.Order{}, notFound(err)
	}
	return out, nil
}

// ListOrders returns every order, newest first.
func (r *Repository) ListOrders(ctx context.Context) ([]models.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := r.orders.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	out := make([]models.Order, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode orders: %w", err)
	}
	return out, nil
}

// FindOrders resolves a batch of ids.
func (r *Repository) FindOrders(ctx context.Context, ids []string) (map[string]models.Order, error) {
	out := make(map[string]models.Order, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	cur, err := r.orders.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("failed to find orders: %w", err)
	}

	var orders []models.Order
	if err := cur.All(ctx, &orders); err != nil {
		return nil, fmt.Errorf("failed to decode orders: %w", err)
	}
	for _, o := range orders {
		out[o.ID] = o
	}
	return out, nil
}

// UpdateOrder sets the patched fields and returns the updated document.
func (r *Repository) UpdateOrder(ctx context.Context, id string, patch models.OrderPatch, now time.Time) (models.Order, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var out models.Order
	err := r.orders.FindOneAndUpdate(ctx, bson.M{"_id": id}, orderPatchUpdate(patch, now), opts).Decode(&out)
	if err != nil {
		return models.Order{}, notFound(err)
	}
	return out, nil
}

// DeleteOrder removes one order.
func (r *Repository) DeleteOrder(ctx context.Context, id string) error {
	res, err := r.orders.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete order: %w", err)
	}
	if res.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func orderPatchUpdate(p models.OrderPatch, now time.Time) bson.M {
	set := bson.M{"updatedAt": now}
	if p.From != nil {
		set["from"] = *p.From
	}
	if p.To != nil {
		set["to"] = *p.To
	}
	if p.Cargo != nil {
		set["cargo"] = *p.Cargo
	}
	if p.PricePerTon != nil {
		set["pricePerTon"] = *p.PricePerTon
	}
	if p.DistanceKm != nil {
		set["distanceKm"] = *p.DistanceKm
	}
	if p.Lat != nil {
		set["lat"] = *p.Lat
	}
	if p.Lon != nil {
		set["lon"] = *p.Lon
	}
	if p.ToLat != nil {
		set["toLat"] = *p.ToLat
	}
	if p.ToLon != nil {
		set["toLon"] = *p.ToLon
	}
	return bson.M{"$set": set}
}
