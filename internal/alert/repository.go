package alert

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Repository struct {
	collection *mongo.Collection
}

func NewRepository(db *mongo.Database) *Repository {
	return &Repository{collection: db.Collection("alerts")}
}

func (r *Repository) Insert(ctx context.Context, a *Alert) error {
	res, err := r.collection.InsertOne(ctx, a)
	if err != nil {
		return err
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		a.ID = id
	}
	return nil
}

func (r *Repository) FindByID(ctx context.Context, id primitive.ObjectID) (*Alert, error) {
	var a Alert
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&a)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

func (r *Repository) SetNotifiedDonors(ctx context.Context, id primitive.ObjectID, donorIDs []primitive.ObjectID) error {
	_, err := r.collection.UpdateByID(ctx, id, bson.M{
		"$set": bson.M{"notified_donors": donorIDs, "updated_at": time.Now()},
	})
	return err
}

// UpsertResponse records a donor's response without a read-modify-write of
// the embedded list. The first update rewrites the donor's existing entry
// in place via the positional operator; if no entry matched, the second
// pushes a new one, guarded so a concurrent push for the same donor cannot
// produce a duplicate.
func (r *Repository) UpsertResponse(ctx context.Context, alertID primitive.ObjectID, resp DonorResponse) error {
	set := bson.M{
		"responses.$.status":        resp.Status,
		"responses.$.response_time": resp.ResponseTime,
		"responses.$.notes":         resp.Notes,
		"updated_at":                time.Now(),
	}
	if resp.EstimatedArrival != nil {
		set["responses.$.estimated_arrival"] = resp.EstimatedArrival
	} else {
		set["responses.$.estimated_arrival"] = nil
	}

	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": alertID, "responses.donor_id": resp.DonorID},
		bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount > 0 {
		return nil
	}

	_, err = r.collection.UpdateOne(ctx,
		bson.M{"_id": alertID, "responses.donor_id": bson.M{"$ne": resp.DonorID}},
		bson.M{
			"$push": bson.M{"responses": resp},
			"$set":  bson.M{"updated_at": time.Now()},
		})
	return err
}

func (r *Repository) SetStatus(ctx context.Context, id primitive.ObjectID, status Status) error {
	res, err := r.collection.UpdateByID(ctx, id, bson.M{
		"$set": bson.M{"status": status, "updated_at": time.Now()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// FindActive returns alerts that are active and not yet past their expiry,
// so an overdue alert is never served between sweeps. Priority ordering is
// applied by the caller.
func (r *Repository) FindActive(ctx context.Context, now time.Time) ([]*Alert, error) {
	filter := bson.M{
		"status":     StatusActive,
		"expires_at": bson.M{"$gt": now},
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var alerts []*Alert
	if err := cursor.All(ctx, &alerts); err != nil {
		return nil, err
	}
	return alerts, nil
}

func (r *Repository) FindByHospital(ctx context.Context, hospitalID primitive.ObjectID, status Status) ([]*Alert, error) {
	filter := bson.M{"hospital_id": hospitalID}
	if status != "" {
		filter["status"] = status
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var alerts []*Alert
	if err := cursor.All(ctx, &alerts); err != nil {
		return nil, err
	}
	return alerts, nil
}

// ExpireOverdue transitions every active alert whose expiry has passed to
// expired, retaining the document for audit.
func (r *Repository) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.collection.UpdateMany(ctx,
		bson.M{"status": StatusActive, "expires_at": bson.M{"$lte": now}},
		bson.M{"$set": bson.M{"status": StatusExpired, "updated_at": now}})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}
