package handlers

import (
	"context"
	"net/http"

	"ezeatin-backend/internal/middleware"
	"ezeatin-backend/internal/models"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.uber.org/zap"
)

type userFinder interface {
	FindByID(ctx context.Context, id bson.ObjectID) (*models.User, error)
}

type profileFinder interface {
	FindByUserID(ctx context.Context, userID bson.ObjectID) (*models.Profile, error)
}

type UserHandler struct {
	userRepo    userFinder
	profileRepo profileFinder
	log         *zap.Logger
}

func NewUserHandler(userRepo userFinder, profileRepo profileFinder, log *zap.Logger) *UserHandler {
	return &UserHandler{
		userRepo:    userRepo,
		profileRepo: profileRepo,
		log:         log,
	}
}

// --- GET /user/status ---

func (h *UserHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	userIDHex := middleware.GetUserID(r.Context())
	if userIDHex == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	userID, err := bson.ObjectIDFromHex(userIDHex)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid user ID"})
		return
	}

	user, err := h.userRepo.FindByID(r.Context(), userID)
	if err != nil {
		h.log.Error("Error finding user", zap.String("user_id", userIDHex), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	if user == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "user not found"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"onboarding_completed": user.OnboardingCompleted,
		"plan":                 user.Plan,
	})
}

// --- GET /user/profile ---

// GetProfile returns the answers saved when the caller finished onboarding.
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userIDHex := middleware.GetUserID(r.Context())
	if userIDHex == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	userID, err := bson.ObjectIDFromHex(userIDHex)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid user ID"})
		return
	}

	profile, err := h.profileRepo.FindByUserID(r.Context(), userID)
	if err != nil {
		h.log.Error("Error finding profile", zap.String("user_id", userIDHex), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	if profile == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "profile not found"})
		return
	}

	writeJSON(w, http.StatusOK, profile)
}
