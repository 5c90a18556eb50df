package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/mamadbah2/dispatch/internal/domain/models"
	"github.com/mamadbah2/dispatch/internal/repository"
)

// maxShipmentAttempts bounds the re-check loop when the conditional
// increment misses because a concurrent write moved the counter.
const maxShipmentAttempts = 3

// InsertAllocation stores a new allocation.
func (r *Repository) InsertAllocation(ctx context.Context, allocation models.Allocation) (models.Allocation, error) {
	if allocation.ID == "" {
		allocation.ID = repository.NewID()
	}
	if _, err := r.schedules.InsertOne(ctx, allocation); err != nil {
		return models.Allocation{}, fmt.Errorf("failed to insert allocation: %w", err)
	}
	return allocation, nil
}

// GetAllocation loads one allocation by id.
func (r *Repository) GetAllocation(ctx context.Context, id string) (models.Allocation, error) {
	var out models.Allocation
	if err := r.schedules.FindOne(ctx, bson.M{"_id": id}).Decode(&out); err != nil {
		return models.Allocation{}, notFound(err)
	}
	return out, nil
}

// ListAllocations returns allocations matching filter by date then creation.
func (r *Repository) ListAllocations(ctx context.Context, filter repository.AllocationFilter) ([]models.Allocation, error) {
	opts := options.Find().SetSort(bson.D{
		{Key: "loadingDate", Value: 1},
		{Key: "createdAt", Value: 1},
		{Key: "_id", Value: 1},
	})

	cur, err := r.schedules.Find(ctx, allocationListFilter(filter), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list allocations: %w", err)
	}

	out := make([]models.Allocation, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode allocations: %w", err)
	}
	return out, nil
}

// FindAllocations resolves a batch of ids.
func (r *Repository) FindAllocations(ctx context.Context, ids []string) (map[string]models.Allocation, error) {
	out := make(map[string]models.Allocation, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	cur, err := r.schedules.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("failed to find allocations: %w", err)
	}

	var allocations []models.Allocation
	if err := cur.All(ctx, &allocations); err != nil {
		return nil, fmt.Errorf("failed to decode allocations: %w", err)
	}
	for _, a := range allocations {
		out[a.ID] = a
	}
	return out, nil
}

// UpdateAllocation applies patch in one conditional write.
func (r *Repository) UpdateAllocation(ctx context.Context, id string, patch models.AllocationPatch, now time.Time) (models.Allocation, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var out models.Allocation
	err := r.schedules.FindOneAndUpdate(ctx, allocationPatchFilter(id, patch), allocationPatchUpdate(patch, now), opts).Decode(&out)
	if err == nil {
		return out, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return models.Allocation{}, fmt.Errorf("failed to update allocation: %w", err)
	}

	current, err := r.GetAllocation(ctx, id)
	if err != nil {
		return models.Allocation{}, err
	}
	return current, repository.ErrBelowShipped
}

// IncrementShipped adds tons with a ceiling check evaluated by the server
// inside the same FindOneAndUpdate, so concurrent increments never read a
// stale base.
func (r *Repository) IncrementShipped(ctx context.Context, id string, tons float64, logistician string, now time.Time) (models.Allocation, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var current models.Allocation
	for attempt := 1; attempt <= maxShipmentAttempts; attempt++ {
		var out models.Allocation
		err := r.schedules.FindOneAndUpdate(ctx, shipmentFilter(id, tons), shipmentUpdate(tons, logistician, now), opts).Decode(&out)
		if err == nil {
			return out, nil
		}
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return models.Allocation{}, fmt.Errorf("failed to record shipment: %w", err)
		}

		current, err = r.GetAllocation(ctx, id)
		if err != nil {
			return models.Allocation{}, err
		}
		if current.ShippedTons+tons > current.RequiredTons+models.TonsEpsilon {
			return current, repository.ErrCeilingExceeded
		}
		r.logger.Debug("shipment increment raced, retrying",
			zap.String("schedule_id", id), zap.Int("attempt", attempt))
	}
	return current, repository.ErrCeilingExceeded
}

// UpdateAndIncrement applies patch and adds tons in one FindOneAndUpdate
// whose ceiling is the patched target.
func (r *Repository) UpdateAndIncrement(ctx context.Context, id string, patch models.AllocationPatch, tons float64, logistician string, now time.Time) (models.Allocation, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var next models.Allocation
	for attempt := 1; attempt <= maxShipmentAttempts; attempt++ {
		var out models.Allocation
		err := r.schedules.FindOneAndUpdate(ctx, patchedShipmentFilter(id, patch, tons), patchedShipmentUpdate(patch, tons, logistician, now), opts).Decode(&out)
		if err == nil {
			return out, nil
		}
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return models.Allocation{}, fmt.Errorf("failed to update and record shipment: %w", err)
		}

		current, err := r.GetAllocation(ctx, id)
		if err != nil {
			return models.Allocation{}, err
		}
		next = patch.Apply(current)
		if current.ShippedTons > next.RequiredTons+models.TonsEpsilon {
			return next, repository.ErrBelowShipped
		}
		if current.ShippedTons+tons > next.RequiredTons+models.TonsEpsilon {
			return next, repository.ErrCeilingExceeded
		}
		r.logger.Debug("patched shipment raced, retrying",
			zap.String("schedule_id", id), zap.Int("attempt", attempt))
	}
	return next, repository.ErrCeilingExceeded
}

// DeleteAllocation removes one allocation.
func (r *Repository) DeleteAllocation(ctx context.Context, id string) error {
	res, err := r.schedules.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete allocation: %w", err)
	}
	if res.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// DeleteAllocationsByOrder removes every allocation of an order.
func (r *Repository) DeleteAllocationsByOrder(ctx context.Context, orderID string) (int64, error) {
	res, err := r.schedules.DeleteMany(ctx, bson.M{"orderId": orderID})
	if err != nil {
		return 0, fmt.Errorf("failed to delete allocations of order: %w", err)
	}
	return res.DeletedCount, nil
}

// CountAllocationsByOrder counts allocations referencing an order.
func (r *Repository) CountAllocationsByOrder(ctx context.Context, orderID string) (int64, error) {
	n, err := r.schedules.CountDocuments(ctx, bson.M{"orderId": orderID})
	if err != nil {
		return 0, fmt.Errorf("failed to count allocations: %w", err)
	}
	return n, nil
}

func allocationListFilter(f repository.AllocationFilter) bson.M {
	filter := bson.M{}
	if f.OrderID != "" {
		filter["orderId"] = f.OrderID
	}

	switch {
	case !f.Date.IsZero():
		filter["loadingDate"] = f.Date.String()
	case !f.From.IsZero() || !f.To.IsZero():
		// YYYY-MM-DD strings order the same way as the dates they encode.
		rng := bson.M{}
		if !f.From.IsZero() {
			rng["$gte"] = f.From.String()
		}
		if !f.To.IsZero() {
			rng["$lte"] = f.To.String()
		}
		filter["loadingDate"] = rng
	}
	return filter
}

func shipmentFilter(id string, tons float64) bson.M {
	return ceilingFilter(id, tons, "$requiredTons")
}

// patchedShipmentFilter checks the increment against the patched target.
func patchedShipmentFilter(id string, p models.AllocationPatch, tons float64) bson.M {
	if p.RequiredTons != nil {
		return ceilingFilter(id, tons, *p.RequiredTons)
	}
	return shipmentFilter(id, tons)
}

// ceilingFilter matches id only while shippedTons + tons <= required.
// required is a field path or a literal.
func ceilingFilter(id string, tons float64, required interface{}) bson.M {
	return bson.M{
		"_id": id,
		"$expr": bson.M{
			"$lte": bson.A{
				bson.M{"$add": bson.A{"$shippedTons", tons}},
				bson.M{"$add": bson.A{required, models.TonsEpsilon}},
			},
		},
	}
}

func patchedShipmentUpdate(p models.AllocationPatch, tons float64, logistician string, now time.Time) bson.M {
	set := allocationPatchSet(p, now)
	set["logistician"] = logistician
	return bson.M{
		"$inc": bson.M{"shippedTons": tons},
		"$set": set,
	}
}

func shipmentUpdate(tons float64, logistician string, now time.Time) bson.M {
	return bson.M{
		"$inc": bson.M{"shippedTons": tons},
		"$set": bson.M{"logistician": logistician, "updatedAt": now},
	}
}

func allocationPatchFilter(id string, p models.AllocationPatch) bson.M {
	filter := bson.M{"_id": id}
	if p.RequiredTons != nil {
		filter["shippedTons"] = bson.M{"$lte": *p.RequiredTons + models.TonsEpsilon}
	}
	return filter
}

func allocationPatchUpdate(p models.AllocationPatch, now time.Time) bson.M {
	return bson.M{"$set": allocationPatchSet(p, now)}
}

func allocationPatchSet(p models.AllocationPatch, now time.Time) bson.M {
	set := bson.M{"updatedAt": now}
	if p.LoadingDate != nil {
		set["loadingDate"] = p.LoadingDate.String()
	}
	if p.RequiredTons != nil {
		set["requiredTons"] = *p.RequiredTons
	}
	if p.Comment != nil {
		set["comment"] = *p.Comment
	}
	if p.ClientPrice != nil {
		set["clientPrice"] = *p.ClientPrice
	}
	if p.OurPrice != nil {
		set["ourPrice"] = *p.OurPrice
	}
	return set
}
