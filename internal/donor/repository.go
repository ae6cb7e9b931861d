package donor

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
	return &Repository{collection: db.Collection("donors")}
}

func (r *Repository) Create(ctx context.Context, d *Donor) error {
	_, err := r.collection.InsertOne(ctx, d)
	return err
}

func (r *Repository) FindByUserID(ctx context.Context, userID primitive.ObjectID) (*Donor, error) {
	var d Donor
	err := r.collection.FindOne(ctx, bson.M{"user_id": userID}).Decode(&d)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &d, nil
}

func (r *Repository) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*Donor, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	cursor, err := r.collection.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	var donors []*Donor
	if err := cursor.All(ctx, &donors); err != nil {
		return nil, err
	}
	return donors, nil
}

// EligibleFilter is the attribute stage of the donor match: exact blood
// group, medically eligible, opted in for emergencies and notifications,
// scoped to the user ids the geo stage produced.
func EligibleFilter(userIDs []primitive.ObjectID, group BloodGroup) bson.M {
	return bson.M{
		"user_id":                 bson.M{"$in": userIDs},
		"blood_group":             group,
		"status":                  StatusEligible,
		"available_for_emergency": true,
		"notifications_enabled":   true,
	}
}

// FindEligibleByUserIDs returns the donors among userIDs that pass every
// attribute predicate for the given blood group.
func (r *Repository) FindEligibleByUserIDs(ctx context.Context, userIDs []primitive.ObjectID, group BloodGroup) ([]*Donor, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	cursor, err := r.collection.Find(ctx, EligibleFilter(userIDs, group))
	if err != nil {
		return nil, err
	}
	var donors []*Donor
	if err := cursor.All(ctx, &donors); err != nil {
		return nil, err
	}
	return donors, nil
}

func (r *Repository) Update(ctx context.Context, d *Donor) error {
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": d.ID}, d)
	return err
}

func (r *Repository) UpdateFCMToken(ctx context.Context, userID primitive.ObjectID, token string) error {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"user_id": userID},
		bson.M{"$set": bson.M{"fcm_token": token}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}
