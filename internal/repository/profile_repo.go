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

type ProfileRepo struct {
	collection *mongo.Collection
}

func NewProfileRepo() *ProfileRepo {
	return &ProfileRepo{
		collection: database.GetCollection("profiles"),
	}
}

// SaveAnswers replaces the user's answer map. Repeating the call with the
// same payload leaves the stored answers unchanged.
func (r *ProfileRepo) SaveAnswers(ctx context.Context, userID bson.ObjectID, answers map[string][]string) error {
	now := time.Now()
	_, err := r.collection.UpdateOne(ctx, bson.M{"user_id": userID}, bson.M{
		"$set": bson.M{
			"answers":    answers,
			"updated_at": now,
		},
		"$inc":         bson.M{"submissions": 1},
		"$setOnInsert": bson.M{"created_at": now},
	}, options.UpdateOne().SetUpsert(true))
	return err
}

func (r *ProfileRepo) FindByUserID(ctx context.Context, userID bson.ObjectID) (*models.Profile, error) {
	var profile models.Profile
	err := r.collection.FindOne(ctx, bson.M{"user_id": userID}).Decode(&profile)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &profile, nil
}

// EnsureIndexes creates necessary indexes for the profiles collection
func (r *ProfileRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}
