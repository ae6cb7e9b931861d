package hospital

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type Repository struct {
	collection *mongo.Collection
}

func NewRepository(db *mongo.Database) *Repository {
	return &Repository{collection: db.Collection("hospitals")}
}

func (r *Repository) Create(ctx context.Context, h *Hospital) error {
	_, err := r.collection.InsertOne(ctx, h)
	return err
}

func (r *Repository) FindByID(ctx context.Context, id primitive.ObjectID) (*Hospital, error) {
	var h Hospital
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&h)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &h, nil
}

func (r *Repository) FindByUserID(ctx context.Context, userID primitive.ObjectID) (*Hospital, error) {
	var h Hospital
	err := r.collection.FindOne(ctx, bson.M{"user_id": userID}).Decode(&h)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &h, nil
}

func (r *Repository) Update(ctx context.Context, h *Hospital) error {
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": h.ID}, h)
	return err
}

// IncrementAlertsRaised bumps the hospital's alerts-raised counter without
// a read-modify-write round trip.
func (r *Repository) IncrementAlertsRaised(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.collection.UpdateByID(ctx, id, bson.M{"$inc": bson.M{"total_alerts_raised": 1}})
	return err
}
