package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Profile holds the answers a user gave during onboarding. There is one
// profile per user; every submission replaces the answer map wholesale.
type Profile struct {
	ID          bson.ObjectID       `bson:"_id,omitempty" json:"id"`
	UserID      bson.ObjectID       `bson:"user_id" json:"user_id"`
	Answers     map[string][]string `bson:"answers" json:"answers"`
	Submissions int                 `bson:"submissions" json:"submissions"`
	CreatedAt   time.Time           `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time           `bson:"updated_at" json:"updated_at"`
}
