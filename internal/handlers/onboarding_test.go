package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"ezeatin-backend/internal/middleware"
	"ezeatin-backend/internal/models"
	"ezeatin-backend/internal/onboarding"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.uber.org/zap/zaptest"
)

const testSecret = "handler-secret"

type fakeDirectory struct {
	mu    sync.Mutex
	users map[bson.ObjectID]*models.User
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{users: map[bson.ObjectID]*models.User{}}
}

func (d *fakeDirectory) EnsureUser(_ context.Context, id bson.ObjectID, email string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.users[id]; !ok {
		d.users[id] = &models.User{ID: id}
	}
	d.users[id].Email = email
	return nil
}

func (d *fakeDirectory) SetPlan(_ context.Context, id bson.ObjectID, plan string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[id].Plan = plan
	return nil
}

func (d *fakeDirectory) FindByID(_ context.Context, id bson.ObjectID) (*models.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.users[id], nil
}

type fakeProfiles struct {
	mu       sync.Mutex
	profiles map[bson.ObjectID]*models.Profile
}

func (p *fakeProfiles) FindByUserID(_ context.Context, userID bson.ObjectID) (*models.Profile, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.profiles[userID], nil
}

// switchFinalizer records every payload and, unless failing, stores it as
// the owner's profile.
type switchFinalizer struct {
	mu       sync.Mutex
	fail     bool
	sent     []map[string]onboarding.Answer
	profiles *fakeProfiles
}

func (f *switchFinalizer) Submit(_ context.Context, ownerID string, answers map[string]onboarding.Answer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, answers)
	if f.fail {
		return errors.New("profile API unreachable")
	}
	userID, err := bson.ObjectIDFromHex(ownerID)
	if err != nil {
		return err
	}
	stored := make(map[string][]string, len(answers))
	for k, v := range answers {
		stored[k] = v
	}
	f.profiles.mu.Lock()
	defer f.profiles.mu.Unlock()
	f.profiles.profiles[userID] = &models.Profile{UserID: userID, Answers: stored, Submissions: 1}
	return nil
}

type testServer struct {
	router    chi.Router
	users     *fakeDirectory
	finalizer *switchFinalizer
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	log := zaptest.NewLogger(t)
	catalog := onboarding.DefaultCatalog()
	profiles := &fakeProfiles{profiles: map[bson.ObjectID]*models.Profile{}}
	fin := &switchFinalizer{profiles: profiles}
	users := newFakeDirectory()
	manager := onboarding.NewManager(onboarding.NewMemoryStore(), catalog, fin, log)

	oh := NewOnboardingHandler(manager, catalog, users, log)
	uh := NewUserHandler(users, profiles, log)

	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(middleware.JWTAuth(testSecret))
		r.Route("/onboarding", oh.Routes)
		r.Get("/user/status", uh.GetStatus)
		r.Get("/user/profile", uh.GetProfile)
	})
	return &testServer{router: r, users: users, finalizer: fin}
}

func tokenFor(t *testing.T, userID bson.ObjectID) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID.Hex(),
		"email":   "cook@example.com",
		"exp":     time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

func (ts *testServer) do(t *testing.T, token, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func decodeSession(t *testing.T, rec *httptest.ResponseRecorder) SessionResponse {
	t.Helper()
	var resp SessionResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

var freeAnswers = map[string][]string{
	"household_size":      {"2"},
	"dietary_preferences": {"vegan"},
	"zip_code":            {"45202"},
	"preferred_grocer":    {"kroger"},
}

func TestOnboardingFlow(t *testing.T) {
	ts := newTestServer(t)
	userID := bson.NewObjectID()
	token := tokenFor(t, userID)

	rec := ts.do(t, token, http.MethodPost, "/onboarding/sessions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	started := decodeSession(t, rec)
	id := started.Session.ID
	assert.Equal(t, onboarding.StatusNotStarted, started.Session.Status)

	rec = ts.do(t, token, http.MethodPut, "/onboarding/sessions/"+id+"/plan", ChoosePlanRequest{Plan: "Free"})
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeSession(t, rec)
	assert.Equal(t, onboarding.StatusInProgress, resp.Session.Status)
	assert.Equal(t, 4, resp.Progress.Total)
	require.NotNil(t, resp.CurrentQuestion)
	assert.Equal(t, "household_size", resp.CurrentQuestion.ID)
	assert.Equal(t, "free", ts.users.users[userID].Plan)

	// Empty multi-select is rejected with details.
	rec = ts.do(t, token, http.MethodPost, "/onboarding/sessions/"+id+"/answers", AnswerRequest{QuestionID: "household_size", Values: []string{"2"}})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = ts.do(t, token, http.MethodPost, "/onboarding/sessions/"+id+"/answers", AnswerRequest{QuestionID: "dietary_preferences"})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var verr map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&verr))
	assert.Equal(t, "dietary_preferences", verr["question_id"])
	assert.Equal(t, onboarding.RuleRequired, verr["rule"])

	for _, qid := range []string{"dietary_preferences", "zip_code", "preferred_grocer"} {
		rec = ts.do(t, token, http.MethodPost, "/onboarding/sessions/"+id+"/answers", AnswerRequest{QuestionID: qid, Values: freeAnswers[qid]})
		require.Equal(t, http.StatusOK, rec.Code, qid)
	}
	resp = decodeSession(t, rec)
	assert.Equal(t, onboarding.StatusReadyToComplete, resp.Session.Status)
	assert.True(t, resp.CanComplete)
	assert.Nil(t, resp.CurrentQuestion)

	// No more answers once ready.
	rec = ts.do(t, token, http.MethodPost, "/onboarding/sessions/"+id+"/answers", AnswerRequest{Values: []string{"aldi"}})
	assert.Equal(t, http.StatusConflict, rec.Code)

	// First completion fails downstream, second succeeds.
	ts.finalizer.fail = true
	rec = ts.do(t, token, http.MethodPost, "/onboarding/sessions/"+id+"/complete", nil)
	require.Equal(t, http.StatusBadGateway, rec.Code)

	ts.finalizer.fail = false
	rec = ts.do(t, token, http.MethodPost, "/onboarding/sessions/"+id+"/complete", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp = decodeSession(t, rec)
	assert.Equal(t, onboarding.StatusCompleted, resp.Session.Status)
	assert.Equal(t, 2, resp.Session.Attempts)

	require.Len(t, ts.finalizer.sent, 2)
	assert.Equal(t, ts.finalizer.sent[0], ts.finalizer.sent[1])
}

func TestOnboarding_OtherUsersSessionIsHidden(t *testing.T) {
	ts := newTestServer(t)
	owner := tokenFor(t, bson.NewObjectID())
	other := tokenFor(t, bson.NewObjectID())

	rec := ts.do(t, owner, http.MethodPost, "/onboarding/sessions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	id := decodeSession(t, rec).Session.ID

	rec = ts.do(t, other, http.MethodGet, "/onboarding/sessions/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOnboarding_ChoosePlanTwiceConflicts(t *testing.T) {
	ts := newTestServer(t)
	token := tokenFor(t, bson.NewObjectID())

	rec := ts.do(t, token, http.MethodPost, "/onboarding/sessions", nil)
	id := decodeSession(t, rec).Session.ID

	rec = ts.do(t, token, http.MethodPut, "/onboarding/sessions/"+id+"/plan", ChoosePlanRequest{Plan: "basic"})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = ts.do(t, token, http.MethodPut, "/onboarding/sessions/"+id+"/plan", ChoosePlanRequest{Plan: "premium"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.do(t, token, http.MethodPut, "/onboarding/sessions/"+id+"/plan", ChoosePlanRequest{Plan: "gold"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOnboarding_ListQuestions(t *testing.T) {
	ts := newTestServer(t)
	token := tokenFor(t, bson.NewObjectID())

	for plan, n := range map[string]int{"free": 4, "basic": 8, "premium": 13} {
		rec := ts.do(t, token, http.MethodGet, "/onboarding/plans/"+plan+"/questions", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var body struct {
			Questions []onboarding.Question `json:"questions"`
		}
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.Len(t, body.Questions, n, plan)
	}

	rec := ts.do(t, token, http.MethodGet, "/onboarding/plans/enterprise/questions", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUserStatus(t *testing.T) {
	ts := newTestServer(t)
	userID := bson.NewObjectID()
	token := tokenFor(t, userID)

	rec := ts.do(t, token, http.MethodGet, "/user/status", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	ts.do(t, token, http.MethodPost, "/onboarding/sessions", nil)
	rec = ts.do(t, token, http.MethodGet, "/user/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, false, body["onboarding_completed"])
}

func TestOnboarding_AbandonSession(t *testing.T) {
	ts := newTestServer(t)
	token := tokenFor(t, bson.NewObjectID())

	rec := ts.do(t, token, http.MethodPost, "/onboarding/sessions", nil)
	first := decodeSession(t, rec).Session.ID

	rec = ts.do(t, token, http.MethodDelete, "/onboarding/sessions/"+first, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, onboarding.StatusAbandoned, decodeSession(t, rec).Session.Status)

	rec = ts.do(t, token, http.MethodDelete, "/onboarding/sessions/"+first, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.do(t, token, http.MethodPost, "/onboarding/sessions", nil)
	assert.NotEqual(t, first, decodeSession(t, rec).Session.ID)
}

func TestUserProfile(t *testing.T) {
	ts := newTestServer(t)
	userID := bson.NewObjectID()
	token := tokenFor(t, userID)

	rec := ts.do(t, token, http.MethodGet, "/user/profile", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, token, http.MethodPost, "/onboarding/sessions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	id := decodeSession(t, rec).Session.ID
	rec = ts.do(t, token, http.MethodPut, "/onboarding/sessions/"+id+"/plan", ChoosePlanRequest{Plan: "free"})
	require.Equal(t, http.StatusOK, rec.Code)
	for _, qid := range []string{"household_size", "dietary_preferences", "zip_code", "preferred_grocer"} {
		rec = ts.do(t, token, http.MethodPost, "/onboarding/sessions/"+id+"/answers", AnswerRequest{QuestionID: qid, Values: freeAnswers[qid]})
		require.Equal(t, http.StatusOK, rec.Code, qid)
	}
	rec = ts.do(t, token, http.MethodPost, "/onboarding/sessions/"+id+"/complete", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, token, http.MethodGet, "/user/profile", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var profile models.Profile
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&profile))
	assert.Equal(t, userID, profile.UserID)
	assert.Equal(t, freeAnswers, profile.Answers)

	other := tokenFor(t, bson.NewObjectID())
	rec = ts.do(t, other, http.MethodGet, "/user/profile", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
