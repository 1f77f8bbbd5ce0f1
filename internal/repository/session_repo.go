package repository

import (
	"context"
	"errors"

	"ezeatin-backend/internal/database"
	"ezeatin-backend/internal/onboarding"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// SessionRepo stores onboarding sessions; it implements onboarding.Store.
type SessionRepo struct {
	collection *mongo.Collection
}

var _ onboarding.Store = (*SessionRepo)(nil)

func NewSessionRepo() *SessionRepo {
	return &SessionRepo{
		collection: database.GetCollection("onboarding_sessions"),
	}
}

func (r *SessionRepo) Get(ctx context.Context, id string) (*onboarding.Session, error) {
	var s onboarding.Session
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&s)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, onboarding.ErrSessionNotFound
		}
		return nil, err
	}
	normalize(&s)
	return &s, nil
}

// Save inserts a new session (version 0) or replaces the stored document
// only while its version still matches, so two instances writing the same
// session cannot silently overwrite each other.
func (r *SessionRepo) Save(ctx context.Context, s *onboarding.Session) error {
	next := *s
	next.Version = s.Version + 1
	if s.Version == 0 {
		_, err := r.collection.InsertOne(ctx, &next)
		if mongo.IsDuplicateKeyError(err) {
			return onboarding.ErrVersionConflict
		}
		if err != nil {
			return err
		}
	} else {
		result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": s.ID, "version": s.Version}, &next)
		if err != nil {
			return err
		}
		if result.MatchedCount == 0 {
			return onboarding.ErrVersionConflict
		}
	}
	s.Version = next.Version
	return nil
}

func (r *SessionRepo) FindCurrentByOwner(ctx context.Context, ownerID string) (*onboarding.Session, error) {
	var s onboarding.Session
	err := r.collection.FindOne(ctx,
		bson.M{
			"owner_id": ownerID,
			"status":   bson.M{"$ne": string(onboarding.StatusAbandoned)},
		},
		options.FindOne().SetSort(bson.D{{Key: "updated_at", Value: -1}}),
	).Decode(&s)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, onboarding.ErrSessionNotFound
		}
		return nil, err
	}
	normalize(&s)
	return &s, nil
}

// EnsureIndexes creates necessary indexes for the onboarding_sessions collection
func (r *SessionRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "updated_at", Value: -1}},
	})
	return err
}

// normalize replaces nil collections decoded from empty documents.
func normalize(s *onboarding.Session) {
	if s.Answers == nil {
		s.Answers = map[string]onboarding.Answer{}
	}
	if s.Questions == nil {
		s.Questions = []onboarding.Question{}
	}
}
