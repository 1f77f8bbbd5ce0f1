package repository

import (
	"context"
	"time"

	"ezeatin-backend/internal/database"
	"ezeatin-backend/internal/models"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type UserRepo struct {
	collection *mongo.Collection
}

func NewUserRepo() *UserRepo {
	return &UserRepo{
		collection: database.GetCollection("users"),
	}
}

func (r *UserRepo) FindByID(ctx context.Context, id bson.ObjectID) (*models.User, error) {
	var user models.User
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// EnsureUser creates the user record for a newly registered account that
// enters onboarding, or refreshes its email if it already exists.
func (r *UserRepo) EnsureUser(ctx context.Context, id bson.ObjectID, email string) error {
	now := time.Now()
	set := bson.M{"updated_at": now}
	if email != "" {
		set["email"] = email
	}
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": set,
		"$setOnInsert": bson.M{
			"onboarding_completed": false,
			"created_at":           now,
		},
	}, options.UpdateOne().SetUpsert(true))
	return err
}

func (r *UserRepo) SetPlan(ctx context.Context, id bson.ObjectID, plan string) error {
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{
			"plan":       plan,
			"updated_at": time.Now(),
		},
	})
	return err
}

func (r *UserRepo) MarkOnboarded(ctx context.Context, id bson.ObjectID) error {
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{
			"onboarding_completed": true,
			"updated_at":           time.Now(),
		},
	})
	return err
}

// EnsureIndexes creates necessary indexes for the users collection
func (r *UserRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetSparse(true),
	})
	return err
}
