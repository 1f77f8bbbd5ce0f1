package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"ezeatin-backend/internal/middleware"
	"ezeatin-backend/internal/onboarding"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.uber.org/zap"
)

// UserDirectory is the slice of the user repository onboarding needs.
type UserDirectory interface {
	EnsureUser(ctx context.Context, id bson.ObjectID, email string) error
	SetPlan(ctx context.Context, id bson.ObjectID, plan string) error
}

type OnboardingHandler struct {
	manager *onboarding.Manager
	catalog onboarding.PlanCatalog
	users   UserDirectory
	log     *zap.Logger
}

func NewOnboardingHandler(manager *onboarding.Manager, catalog onboarding.PlanCatalog, users UserDirectory, log *zap.Logger) *OnboardingHandler {
	return &OnboardingHandler{
		manager: manager,
		catalog: catalog,
		users:   users,
		log:     log,
	}
}

// Routes mounts the onboarding endpoints; they expect JWTAuth upstream.
func (h *OnboardingHandler) Routes(r chi.Router) {
	r.Post("/sessions", h.StartSession)
	r.Get("/sessions/{id}", h.GetSession)
	r.Delete("/sessions/{id}", h.AbandonSession)
	r.Put("/sessions/{id}/plan", h.ChoosePlan)
	r.Post("/sessions/{id}/answers", h.AnswerQuestion)
	r.Post("/sessions/{id}/complete", h.Complete)
	r.Get("/plans/{plan}/questions", h.ListQuestions)
}

// --- Request / Response types ---

type ChoosePlanRequest struct {
	Plan string `json:"plan"`
}

type AnswerRequest struct {
	QuestionID string   `json:"question_id"`
	Values     []string `json:"values"`
}

type SessionResponse struct {
	Session         *onboarding.Session  `json:"session"`
	Progress        onboarding.Progress  `json:"progress"`
	CurrentQuestion *onboarding.Question `json:"current_question,omitempty"`
	CanComplete     bool                 `json:"can_complete"`
}

func newSessionResponse(s *onboarding.Session) SessionResponse {
	resp := SessionResponse{
		Session:     s,
		Progress:    s.Progress(),
		CanComplete: s.Status == onboarding.StatusReadyToComplete || s.Status == onboarding.StatusFailed,
	}
	if q, ok := s.CurrentQuestion(); ok {
		resp.CurrentQuestion = &q
	}
	return resp
}

// owner returns the authenticated user's id or writes an error response.
func (h *OnboardingHandler) owner(w http.ResponseWriter, r *http.Request) (bson.ObjectID, bool) {
	userIDHex := middleware.GetUserID(r.Context())
	if userIDHex == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return bson.ObjectID{}, false
	}
	userID, err := bson.ObjectIDFromHex(userIDHex)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid user ID"})
		return bson.ObjectID{}, false
	}
	return userID, true
}

// --- POST /onboarding/sessions ---

func (h *OnboardingHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.owner(w, r)
	if !ok {
		return
	}

	if err := h.users.EnsureUser(r.Context(), userID, middleware.GetEmail(r.Context())); err != nil {
		h.log.Error("Error ensuring user", zap.String("user_id", userID.Hex()), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	s, err := h.manager.Start(r.Context(), userID.Hex())
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionResponse(s))
}

// --- GET /onboarding/sessions/{id} ---

func (h *OnboardingHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.owner(w, r)
	if !ok {
		return
	}
	s, err := h.manager.Get(r.Context(), userID.Hex(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionResponse(s))
}

// --- DELETE /onboarding/sessions/{id} ---

func (h *OnboardingHandler) AbandonSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.owner(w, r)
	if !ok {
		return
	}
	s, err := h.manager.Abandon(r.Context(), userID.Hex(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionResponse(s))
}

// --- PUT /onboarding/sessions/{id}/plan ---

func (h *OnboardingHandler) ChoosePlan(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.owner(w, r)
	if !ok {
		return
	}

	var req ChoosePlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	plan, err := onboarding.ParsePlan(req.Plan)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "plan must be one of free, basic, premium"})
		return
	}

	s, err := h.manager.ChoosePlan(r.Context(), userID.Hex(), chi.URLParam(r, "id"), plan)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	if err := h.users.SetPlan(r.Context(), userID, string(plan)); err != nil {
		h.log.Warn("Error recording plan on user", zap.String("user_id", userID.Hex()), zap.Error(err))
	}
	writeJSON(w, http.StatusOK, newSessionResponse(s))
}

// --- POST /onboarding/sessions/{id}/answers ---

func (h *OnboardingHandler) AnswerQuestion(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.owner(w, r)
	if !ok {
		return
	}

	var req AnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	s, err := h.manager.Answer(r.Context(), userID.Hex(), chi.URLParam(r, "id"), req.QuestionID, onboarding.Answer(req.Values))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionResponse(s))
}

// --- POST /onboarding/sessions/{id}/complete ---

func (h *OnboardingHandler) Complete(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.owner(w, r)
	if !ok {
		return
	}

	s, err := h.manager.Complete(r.Context(), userID.Hex(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, onboarding.ErrFinalizeFailed) && s != nil {
			// The session is kept and can be completed again.
			writeJSON(w, http.StatusBadGateway, map[string]interface{}{
				"error":   "could not save your profile, please try again",
				"session": newSessionResponse(s),
			})
			return
		}
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionResponse(s))
}

// --- GET /onboarding/plans/{plan}/questions ---

func (h *OnboardingHandler) ListQuestions(w http.ResponseWriter, r *http.Request) {
	plan, err := onboarding.ParsePlan(chi.URLParam(r, "plan"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown plan"})
		return
	}
	questions, err := h.catalog.QuestionsFor(plan)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"plan":      plan,
		"questions": questions,
	})
}
