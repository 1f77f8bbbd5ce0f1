// Package finalize persists completed onboarding answers.
package finalize

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"ezeatin-backend/internal/models"
	"ezeatin-backend/internal/notify"
	"ezeatin-backend/internal/onboarding"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.uber.org/zap"
)

// ErrInvalidOwner means the owner id can never be stored; retrying or
// queueing the payload will not help.
var ErrInvalidOwner = errors.New("invalid owner id")

type profileStore interface {
	SaveAnswers(ctx context.Context, userID bson.ObjectID, answers map[string][]string) error
}

type userStore interface {
	FindByID(ctx context.Context, id bson.ObjectID) (*models.User, error)
	MarkOnboarded(ctx context.Context, id bson.ObjectID) error
}

// ProfileFinalizer saves the answers to the user's profile, flags the user
// as onboarded and sends a welcome email in the background.
type ProfileFinalizer struct {
	profiles profileStore
	users    userStore
	notifier notify.Notifier
	log      *zap.Logger
	wg       sync.WaitGroup
}

var _ onboarding.Finalizer = (*ProfileFinalizer)(nil)

func NewProfileFinalizer(profiles profileStore, users userStore, notifier notify.Notifier, log *zap.Logger) *ProfileFinalizer {
	return &ProfileFinalizer{
		profiles: profiles,
		users:    users,
		notifier: notifier,
		log:      log,
	}
}

func (f *ProfileFinalizer) Submit(ctx context.Context, ownerID string, answers map[string]onboarding.Answer) error {
	userID, err := bson.ObjectIDFromHex(ownerID)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidOwner, ownerID)
	}

	payload := make(map[string][]string, len(answers))
	for k, v := range answers {
		payload[k] = []string(v)
	}
	if err := f.profiles.SaveAnswers(ctx, userID, payload); err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	if err := f.users.MarkOnboarded(ctx, userID); err != nil {
		return fmt.Errorf("mark onboarded: %w", err)
	}

	user, err := f.users.FindByID(ctx, userID)
	if err != nil {
		f.log.Warn("Could not load user for welcome email", zap.String("user_id", ownerID), zap.Error(err))
		return nil
	}
	if user == nil || user.Email == "" {
		return nil
	}

	// Best effort, outside the request's lifetime.
	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		sendCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := f.notifier.Send(sendCtx, notify.WelcomeMessage(user.Email)); err != nil {
			f.log.Error("Error sending welcome email", zap.String("user_id", ownerID), zap.Error(err))
		}
	}()
	return nil
}

// Wait blocks until queued welcome emails have been handed off.
func (f *ProfileFinalizer) Wait() {
	f.wg.Wait()
}
