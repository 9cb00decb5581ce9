package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"groupfinder/internal/auth"
	"groupfinder/internal/authz"
	"groupfinder/internal/config"
	"groupfinder/internal/db"
	"groupfinder/internal/db/dbtest"
	"groupfinder/internal/middleware"
	"groupfinder/internal/models"
	"groupfinder/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const testSecret = "router-test-secret"

type testServer struct {
	engine *gin.Engine
	db     *gorm.DB
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	gdb := dbtest.New(t)
	log := zap.NewNop()
	db.Seed(gdb, log)

	cfg := config.FromEnv()
	cfg.JWTSecret = testSecret
	cfg.SessionSecret = "router-test-session"
	cfg.TokenTTL = time.Hour

	r := gin.New()
	RegisterRoutes(r, Deps{
		DB:         gdb,
		Log:        log,
		Config:     cfg,
		Authorizer: authz.NewRoleAuthorizer(""),
		Ranking:    services.NewRankingService(gdb, log),
		Limiter:    middleware.NewIPRateLimiter(1000, 1000),
	})
	return &testServer{engine: r, db: gdb}
}

func (s *testServer) token(t *testing.T, u *models.User) string {
	t.Helper()
	tok, err := auth.NewToken([]byte(testSecret), u.ID, time.Hour)
	require.NoError(t, err)
	return tok
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	out := map[string]interface{}{}
	if w.Body.Len() > 0 {
		_ = json.Unmarshal(w.Body.Bytes(), &out)
	}
	return w, out
}

func TestVoteEndpoint(t *testing.T) {
	s := newTestServer(t)
	owner := dbtest.User(t, s.db, "owner", models.RoleUser)
	voter := dbtest.User(t, s.db, "voter", models.RoleUser)
	g := dbtest.Group(t, s.db, owner, "vote-endpoint")
	path := fmt.Sprintf("/api/groups/%d/vote", g.ID)

	w, _ := s.do(t, http.MethodPost, path, "", gin.H{"voteType": "up"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	tok := s.token(t, voter)
	w, body := s.do(t, http.MethodPost, path, tok, gin.H{"voteType": "sideways"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_vote_type", body["code"])

	w, body = s.do(t, http.MethodPost, path, tok, gin.H{"voteType": "up"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), body["upvotes"])
	assert.Equal(t, float64(0), body["downvotes"])
	assert.Equal(t, "created", body["status"])

	w, body = s.do(t, http.MethodPost, path, tok, gin.H{"voteType": "down"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(0), body["upvotes"])
	assert.Equal(t, float64(1), body["downvotes"])
	assert.Equal(t, "changed", body["status"])

	w, body = s.do(t, http.MethodGet, path, tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "down", body["voteType"])

	w, body = s.do(t, http.MethodPost, "/api/groups/99999/vote", tok, gin.H{"voteType": "up"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", body["code"])
}

func TestInvalidBearerToken(t *testing.T) {
	s := newTestServer(t)

	w, body := s.do(t, http.MethodGet, "/api/saved", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "unauthorized", body["code"])
}

func TestReviewEndpoint(t *testing.T) {
	s := newTestServer(t)
	owner := dbtest.User(t, s.db, "owner", models.RoleUser)
	reviewer := dbtest.User(t, s.db, "reviewer", models.RoleUser)
	g := dbtest.Group(t, s.db, owner, "review-endpoint")
	path := fmt.Sprintf("/api/groups/%d/review", g.ID)
	tok := s.token(t, reviewer)

	w, body := s.do(t, http.MethodPost, path, tok, gin.H{"rating": 6})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_rating", body["code"])

	w, body = s.do(t, http.MethodPost, path, tok, gin.H{"rating": 4, "comment": "friendly admins"})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, float64(4), body["average_rating"])
	assert.Equal(t, float64(1), body["review_count"])

	w, body = s.do(t, http.MethodPost, path, tok, gin.H{"rating": 2})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(2), body["average_rating"])
	assert.Equal(t, float64(1), body["review_count"])
}

func TestVerificationRequiresAdmin(t *testing.T) {
	s := newTestServer(t)
	owner := dbtest.User(t, s.db, "owner", models.RoleUser)
	admin := dbtest.User(t, s.db, "admin", models.RoleAdmin)
	g := dbtest.Group(t, s.db, owner, "verify-endpoint")
	path := fmt.Sprintf("/api/groups/%d/verification", g.ID)

	w, _ := s.do(t, http.MethodPut, path, s.token(t, owner), gin.H{"verification_status": "verified"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	adminTok := s.token(t, admin)
	w, body := s.do(t, http.MethodPut, path, adminTok, gin.H{"verification_status": "approved"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_status", body["code"])

	w, body = s.do(t, http.MethodPut, path, adminTok, gin.H{"verification_status": "verified", "notes": "checked rules"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["success"])
	state := body["verification"].(map[string]interface{})
	assert.Equal(t, "verified", state["verification_status"])
	assert.Equal(t, true, state["is_verified"])

	w, body = s.do(t, http.MethodGet, path, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	history := body["history"].([]interface{})
	require.Len(t, history, 1)
	entry := history[0].(map[string]interface{})
	assert.Equal(t, "verified", entry["status"])
	assert.Equal(t, "admin", entry["admin"].(map[string]interface{})["username"])
}

func TestReputationEndpoints(t *testing.T) {
	s := newTestServer(t)
	user := dbtest.User(t, s.db, "member", models.RoleUser)
	admin := dbtest.User(t, s.db, "admin", models.RoleAdmin)
	adminTok := s.token(t, admin)

	w, _ := s.do(t, http.MethodPost, "/api/reputation", s.token(t, user), gin.H{"userId": user.ID, "points": 10, "reason": "self award"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, body := s.do(t, http.MethodPost, "/api/reputation", adminTok, gin.H{"userId": user.ID, "points": 0, "reason": "nothing"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_points", body["code"])

	w, body = s.do(t, http.MethodPost, "/api/reputation", adminTok, gin.H{"userId": user.ID, "points": 120, "reason": "great curation"})
	require.Equal(t, http.StatusCreated, w.Code)
	rep := body["reputation"].(map[string]interface{})
	assert.Equal(t, float64(120), rep["points"])
	assert.Equal(t, float64(1), rep["level"])

	w, body = s.do(t, http.MethodGet, fmt.Sprintf("/api/reputation?userId=%d", user.ID), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), body["total"])
	entry := body["history"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "other", entry["source_type"])

	w, _ = s.do(t, http.MethodGet, "/api/reputation", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestBadgeEndpoints(t *testing.T) {
	s := newTestServer(t)
	user := dbtest.User(t, s.db, "member", models.RoleUser)
	admin := dbtest.User(t, s.db, "admin", models.RoleAdmin)
	adminTok := s.token(t, admin)

	var badge models.Badge
	require.NoError(t, s.db.Where("name = ?", "Trusted Reviewer").First(&badge).Error)
	req := gin.H{"userId": user.ID, "badgeId": badge.ID}

	w, _ := s.do(t, http.MethodPost, "/api/user-badges", adminTok, req)
	require.Equal(t, http.StatusCreated, w.Code)

	w, body := s.do(t, http.MethodPost, "/api/user-badges", adminTok, req)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "conflict", body["code"])

	w, _ = s.do(t, http.MethodDelete, "/api/user-badges", adminTok, req)
	assert.Equal(t, http.StatusOK, w.Code)

	w, body = s.do(t, http.MethodDelete, "/api/user-badges", adminTok, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", body["code"])
}

func TestCreateToken(t *testing.T) {
	s := newTestServer(t)
	hash, err := auth.HashPassword("hunter22")
	require.NoError(t, err)
	u := &models.User{Username: "alice", Email: "alice@example.org", Password: hash, Role: models.RoleUser}
	require.NoError(t, s.db.Create(u).Error)

	w, body := s.do(t, http.MethodPost, "/api/tokens", "", gin.H{"email": "alice@example.org", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "unauthorized", body["code"])

	w, body = s.do(t, http.MethodPost, "/api/tokens", "", gin.H{"email": "alice@example.org", "password": "hunter22"})
	require.Equal(t, http.StatusCreated, w.Code)
	tok, ok := body["token"].(string)
	require.True(t, ok)
	assert.Equal(t, float64(3600), body["expires_in"])

	claims, err := auth.ParseToken([]byte(testSecret), tok)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.UserID)

	w, _ = s.do(t, http.MethodGet, "/api/saved", tok, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSubmitGroupWithToken(t *testing.T) {
	s := newTestServer(t)
	user := dbtest.User(t, s.db, "submitter", models.RoleUser)
	tok := s.token(t, user)

	req := gin.H{
		"name":        "Sourdough Bakers",
		"url":         "https://www.facebook.com/groups/sourdoughbakers",
		"description": "Starters and crumb shots",
		"category_id": 1,
	}
	w, body := s.do(t, http.MethodPost, "/api/groups", tok, req)
	require.Equal(t, http.StatusCreated, w.Code, body)

	w, body = s.do(t, http.MethodPost, "/api/groups", tok, req)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "conflict", body["code"])

	w, body = s.do(t, http.MethodGet, "/api/groups?q=sourdough", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), body["total"])
}
