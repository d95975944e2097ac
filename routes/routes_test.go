package routes

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/LovationAdmin/finance-api/handlers"
	"github.com/LovationAdmin/finance-api/middleware"
	"github.com/LovationAdmin/finance-api/repository"
	"github.com/LovationAdmin/finance-api/services"
	"github.com/LovationAdmin/finance-api/utils"
)

const testEncryptionKey = "0123456789abcdef0123456789abcdef"

func init() {
	gin.SetMode(gin.TestMode)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestRouter wires the real router on the in-memory store. cipher and
// limiter may be nil.
func newTestRouter(t *testing.T, cipher *utils.Cipher, limiter *middleware.RateLimiter) (*gin.Engine, *handlers.WSHandler) {
	t.Helper()
	logger := discardLogger()
	store := repository.NewMemoryStore()
	ws := handlers.NewWSHandler(logger)
	t.Cleanup(func() { ws.Close() })

	auth := services.NewAuthService(store.Users, utils.NewTokenManager("test-secret", time.Hour), cipher, "Finance Test", logger)
	router := NewRouter(Options{
		Logger:       logger,
		CORSOrigins:  []string{"*"},
		RateLimiter:  limiter,
		Auth:         auth,
		Transactions: services.NewTransactionService(store.Transactions, ws, logger),
		Goals:        services.NewGoalService(store.Goals, ws, logger),
		Budgets:      services.NewBudgetService(store.Budgets, ws, logger),
		Reports:      services.NewReportService(store.Transactions, store.Goals, store.Budgets),
		WS:           ws,
		Debug:        handlers.NewDebugHandler(store, auth, store.Backend, "test", true, false),
	})
	return router, ws
}

type response struct {
	Status int
	Body   map[string]any
}

func (r response) data() map[string]any {
	d, _ := r.Body["data"].(map[string]any)
	return d
}

func (r response) list() []any {
	l, _ := r.Body["data"].([]any)
	return l
}

func call(t *testing.T, h http.Handler, method, path, token string, body any) response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			reader = bytes.NewBufferString(b)
		default:
			payload, err := json.Marshal(b)
			require.NoError(t, err)
			reader = bytes.NewReader(payload)
		}
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	out := response{Status: w.Code}
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out.Body), w.Body.String())
	}
	return out
}

// ============================================================================
// API SUITE
// ============================================================================

type APISuite struct {
	suite.Suite
	router *gin.Engine

	alice, bob     string
	aliceID, bobID string
}

func (s *APISuite) SetupTest() {
	s.router, _ = newTestRouter(s.T(), nil, nil)
	s.alice, s.aliceID = s.register("alice", "alice@example.com")
	s.bob, s.bobID = s.register("bob", "bob@example.com")
}

func (s *APISuite) register(username, email string) (string, string) {
	res := s.call(http.MethodPost, "/api/auth/register", "", gin.H{
		"username": username,
		"email":    email,
		"password": "pw123456",
	})
	s.Require().Equal(http.StatusCreated, res.Status, res.Body)
	user := res.Body["user"].(map[string]any)
	return res.Body["token"].(string), user["id"].(string)
}

func (s *APISuite) call(method, path, token string, body any) response {
	return call(s.T(), s.router, method, path, token, body)
}

func (s *APISuite) TestRegister() {
	res := s.call(http.MethodPost, "/api/auth/register", "", gin.H{
		"username": "carol",
		"email":    "Carol@Example.com",
		"password": "pw123456",
	})
	s.Require().Equal(http.StatusCreated, res.Status)
	s.Equal(true, res.Body["success"])
	s.NotEmpty(res.Body["token"])

	user := res.Body["user"].(map[string]any)
	s.Equal("carol@example.com", user["email"])
	s.NotContains(user, "password")
	s.NotContains(user, "PasswordHash")

	dup := s.call(http.MethodPost, "/api/auth/register", "", gin.H{
		"username": "carol2",
		"email":    "carol@example.com",
		"password": "pw123456",
	})
	s.Equal(http.StatusBadRequest, dup.Status)
	s.Equal(false, dup.Body["success"])
}

func (s *APISuite) TestRegister_MissingFields() {
	res := s.call(http.MethodPost, "/api/auth/register", "", gin.H{"email": "not-an-email"})
	s.Equal(http.StatusBadRequest, res.Status)
	s.NotEmpty(res.Body["errors"])

	res = s.call(http.MethodPost, "/api/auth/register", "", "{broken")
	s.Equal(http.StatusBadRequest, res.Status)
	s.Equal("Invalid request body", res.Body["error"])
}

func (s *APISuite) TestLogin() {
	res := s.call(http.MethodPost, "/api/auth/login", "", gin.H{"email": "alice@example.com", "password": "pw123456"})
	s.Require().Equal(http.StatusOK, res.Status)
	s.NotEmpty(res.Body["token"])

	res = s.call(http.MethodPost, "/api/auth/login", "", gin.H{"email": "alice@example.com", "password": "wrong"})
	s.Equal(http.StatusUnauthorized, res.Status)
	s.Equal("Invalid credentials", res.Body["error"])

	res = s.call(http.MethodPost, "/api/auth/login", "", gin.H{"email": "alice@example.com"})
	s.Equal(http.StatusBadRequest, res.Status)
}

func (s *APISuite) TestMe() {
	res := s.call(http.MethodGet, "/api/auth/me", "", nil)
	s.Equal(http.StatusUnauthorized, res.Status)

	res = s.call(http.MethodGet, "/api/auth/me", s.alice, nil)
	s.Require().Equal(http.StatusOK, res.Status)
	s.Equal(s.aliceID, res.data()["id"])
	s.Equal("alice@example.com", res.data()["email"])
}

func (s *APISuite) TestProtectedRoutesRequireToken() {
	for _, path := range []string{"/api/transactions", "/api/goals", "/api/budgets", "/api/reports/summary"} {
		res := s.call(http.MethodGet, path, "", nil)
		s.Equal(http.StatusUnauthorized, res.Status, path)

		res = s.call(http.MethodGet, path, "not.a.jwt", nil)
		s.Equal(http.StatusUnauthorized, res.Status, path)
	}
}

var resources = []struct {
	path   string
	create gin.H
	update gin.H
	field  string
}{
	{
		path:   "/api/transactions",
		create: gin.H{"amount": 100, "type": "income", "category": "Salary"},
		update: gin.H{"category": "Stolen"},
		field:  "category",
	},
	{
		path:   "/api/goals",
		create: gin.H{"title": "Emergency Fund", "targetAmount": 1000, "category": "Savings"},
		update: gin.H{"title": "Stolen"},
		field:  "title",
	},
	{
		path:   "/api/budgets",
		create: gin.H{"category": "Food", "limit": 300},
		update: gin.H{"category": "Stolen"},
		field:  "category",
	},
}

func (s *APISuite) TestOwnershipAcrossResources() {
	for _, r := range resources {
		created := s.call(http.MethodPost, r.path, s.alice, r.create)
		s.Require().Equal(http.StatusCreated, created.Status, r.path)
		id := created.data()["id"].(string)
		original := created.data()[r.field]
		item := r.path + "/" + id

		s.Equal(http.StatusUnauthorized, s.call(http.MethodGet, item, s.bob, nil).Status, item)
		s.Equal(http.StatusUnauthorized, s.call(http.MethodPut, item, s.bob, r.update).Status, item)
		s.Equal(http.StatusUnauthorized, s.call(http.MethodDelete, item, s.bob, nil).Status, item)

		got := s.call(http.MethodGet, item, s.alice, nil)
		s.Require().Equal(http.StatusOK, got.Status, item)
		s.Equal(original, got.data()[r.field], "non-owner update must not change %s", item)

		bobs := s.call(http.MethodGet, r.path, s.bob, nil)
		s.Equal(float64(0), bobs.Body["count"], r.path)
		s.Empty(bobs.list())

		alices := s.call(http.MethodGet, r.path, s.alice, nil)
		s.Equal(float64(1), alices.Body["count"], r.path)

		s.Equal(http.StatusOK, s.call(http.MethodPut, item, s.alice, r.update).Status, item)
		deleted := s.call(http.MethodDelete, item, s.alice, nil)
		s.Equal(http.StatusOK, deleted.Status, item)
		s.Equal(map[string]any{}, deleted.Body["data"])
		s.Equal(http.StatusNotFound, s.call(http.MethodGet, item, s.alice, nil).Status, item)
	}
}

func (s *APISuite) TestMissingFieldsWriteNothing() {
	for _, r := range resources {
		res := s.call(http.MethodPost, r.path, s.alice, gin.H{})
		s.Equal(http.StatusBadRequest, res.Status, r.path)
		s.NotEmpty(res.Body["errors"], r.path)

		list := s.call(http.MethodGet, r.path, s.alice, nil)
		s.Equal(float64(0), list.Body["count"], r.path)
	}
}

func (s *APISuite) TestCreateIgnoresClientOwner() {
	res := s.call(http.MethodPost, "/api/transactions", s.alice, gin.H{
		"amount":   "12.50",
		"type":     "expense",
		"category": "Food",
		"user":     s.bobID,
	})
	s.Require().Equal(http.StatusCreated, res.Status)
	s.Equal(s.aliceID, res.data()["user"])
	s.Equal(12.5, res.data()["amount"])

	s.Equal(float64(0), s.call(http.MethodGet, "/api/transactions", s.bob, nil).Body["count"])
}

func (s *APISuite) TestMalformedIDIsNotFound() {
	res := s.call(http.MethodGet, "/api/goals/not-an-id", s.alice, nil)
	s.Equal(http.StatusNotFound, res.Status)
	s.Equal("Goal not found", res.Body["error"])
}

func (s *APISuite) TestContribute() {
	created := s.call(http.MethodPost, "/api/goals", s.alice, gin.H{"title": "Trip", "targetAmount": 500, "category": "Travel"})
	s.Require().Equal(http.StatusCreated, created.Status)
	path := "/api/goals/" + created.data()["id"].(string) + "/contribute"

	for _, body := range []any{gin.H{}, gin.H{"amount": 0}, gin.H{"amount": -5}, gin.H{"amount": "abc"}} {
		res := s.call(http.MethodPost, path, s.alice, body)
		s.Equal(http.StatusBadRequest, res.Status, body)
	}

	s.Equal(http.StatusUnauthorized, s.call(http.MethodPost, path, s.bob, gin.H{"amount": 10}).Status)

	res := s.call(http.MethodPost, path, s.alice, gin.H{"amount": 200})
	s.Require().Equal(http.StatusOK, res.Status)
	s.Equal(200.0, res.data()["currentAmount"])

	res = s.call(http.MethodPut, path, s.alice, gin.H{"amount": "50"})
	s.Require().Equal(http.StatusOK, res.Status)
	s.Equal(250.0, res.data()["currentAmount"])
	s.Equal(0.5, res.data()["progress"])
	s.Len(res.data()["contributions"], 2)
}

func (s *APISuite) TestReports() {
	s.call(http.MethodPost, "/api/transactions", s.alice, gin.H{"amount": 2000, "type": "income", "category": "Salary"})
	s.call(http.MethodPost, "/api/transactions", s.alice, gin.H{"amount": 500, "type": "expense", "category": "Rent"})

	res := s.call(http.MethodGet, "/api/reports/summary", s.alice, nil)
	s.Require().Equal(http.StatusOK, res.Status)
	s.Equal(2000.0, res.data()["totalIncome"])
	s.Equal(1500.0, res.data()["net"])

	res = s.call(http.MethodGet, "/api/reports/recommendations?mode=savings", s.alice, nil)
	s.Require().Equal(http.StatusOK, res.Status)
	s.Equal("savings", res.data()["mode"])

	res = s.call(http.MethodGet, "/api/reports/budget-plan?strategy=50-30-20", s.alice, nil)
	s.Require().Equal(http.StatusOK, res.Status)
	s.Contains(res.data(), "buckets")

	s.Equal(http.StatusBadRequest, s.call(http.MethodGet, "/api/reports/recommendations?mode=yolo", s.alice, nil).Status)
	s.Equal(http.StatusBadRequest, s.call(http.MethodGet, "/api/reports/budget-plan?strategy=envelope", s.alice, nil).Status)

	// Bob sees none of alice's money.
	res = s.call(http.MethodGet, "/api/reports/summary", s.bob, nil)
	s.Equal(0.0, res.data()["totalIncome"])
}

func (s *APISuite) TestDebugEndpoints() {
	res := s.call(http.MethodGet, "/api/debug", "", nil)
	s.Require().Equal(http.StatusOK, res.Status)
	s.Equal(true, res.data()["jwtSecret"])
	s.Equal(false, res.data()["jwtExpire"])
	s.NotContains(res.data(), "secret")

	res = s.call(http.MethodGet, "/api/auth/test", "", nil)
	s.Equal(http.StatusOK, res.Status)
	s.Equal(true, res.data()["jwtSecret"])

	res = s.call(http.MethodGet, "/api/debug/auth-test", "bogus", nil)
	s.Equal(http.StatusOK, res.Status)
	s.Equal(true, res.data()["tokenProvided"])
	s.Equal(false, res.data()["tokenValid"])

	res = s.call(http.MethodGet, "/api/debug/auth-test", s.alice, nil)
	s.Equal(true, res.data()["tokenValid"])

	res = s.call(http.MethodGet, "/api/debug/db", "", nil)
	s.Equal(true, res.data()["connected"])
	s.Equal("memory", res.data()["backend"])

	res = s.call(http.MethodGet, "/health", "", nil)
	s.Equal("healthy", res.Body["status"])
}

func (s *APISuite) TestUnknownRoute() {
	res := s.call(http.MethodGet, "/api/nothing-here", "", nil)
	s.Equal(http.StatusNotFound, res.Status)
	s.Equal(false, res.Body["success"])
}

func (s *APISuite) TestTwoFactorNotConfigured() {
	res := s.call(http.MethodPost, "/api/auth/2fa/setup", s.alice, nil)
	s.Equal(http.StatusBadRequest, res.Status)
}

// TestAliceScenario registers, records income, creates a goal, contributes
// to it and checks the results are scoped to alice.
func (s *APISuite) TestAliceScenario() {
	router, _ := newTestRouter(s.T(), nil, nil)
	do := func(method, path, token string, body any) response {
		return call(s.T(), router, method, path, token, body)
	}

	reg := do(http.MethodPost, "/api/auth/register", "", gin.H{"username": "alice", "email": "alice@example.com", "password": "pw123456"})
	s.Require().Equal(http.StatusCreated, reg.Status)

	login := do(http.MethodPost, "/api/auth/login", "", gin.H{"email": "alice@example.com", "password": "pw123456"})
	s.Require().Equal(http.StatusOK, login.Status)
	token := login.Body["token"].(string)

	tx := do(http.MethodPost, "/api/transactions", token, gin.H{"amount": 100, "type": "income", "category": "Salary"})
	s.Require().Equal(http.StatusCreated, tx.Status)

	goal := do(http.MethodPost, "/api/goals", token, gin.H{"title": "Emergency Fund", "targetAmount": 1000, "category": "Savings"})
	s.Require().Equal(http.StatusCreated, goal.Status)
	goalPath := "/api/goals/" + goal.data()["id"].(string)

	s.Require().Equal(http.StatusOK, do(http.MethodPost, goalPath+"/contribute", token, gin.H{"amount": 250}).Status)

	got := do(http.MethodGet, goalPath, token, nil)
	s.Equal(250.0, got.data()["currentAmount"])

	list := do(http.MethodGet, "/api/transactions", token, nil)
	s.Require().Len(list.list(), 1)
	s.Equal(tx.data()["id"], list.list()[0].(map[string]any)["id"])
}

func TestAPISuite(t *testing.T) {
	suite.Run(t, new(APISuite))
}

// ============================================================================
// STANDALONE
// ============================================================================

func TestTwoFactorFlow(t *testing.T) {
	cipher, err := utils.NewCipher(testEncryptionKey)
	require.NoError(t, err)
	router, _ := newTestRouter(t, cipher, nil)

	reg := call(t, router, http.MethodPost, "/api/auth/register", "", gin.H{"username": "alice", "email": "alice@example.com", "password": "pw123456"})
	require.Equal(t, http.StatusCreated, reg.Status)
	token := reg.Body["token"].(string)

	setup := call(t, router, http.MethodPost, "/api/auth/2fa/setup", token, nil)
	require.Equal(t, http.StatusOK, setup.Status)
	secret := setup.data()["secret"].(string)
	assert.Contains(t, setup.data()["otpauth_url"], "otpauth://")

	code, err := utils.TOTPCode(secret, time.Now())
	require.NoError(t, err)
	verify := call(t, router, http.MethodPost, "/api/auth/2fa/verify", token, gin.H{"code": code})
	require.Equal(t, http.StatusOK, verify.Status, verify.Body)

	login := call(t, router, http.MethodPost, "/api/auth/login", "", gin.H{"email": "alice@example.com", "password": "pw123456"})
	assert.Equal(t, http.StatusUnauthorized, login.Status)
	assert.Equal(t, true, login.Body["requires_2fa"])

	login = call(t, router, http.MethodPost, "/api/auth/login", "", gin.H{"email": "alice@example.com", "password": "pw123456", "totp_code": code})
	assert.Equal(t, http.StatusOK, login.Status)
}

func TestRateLimit(t *testing.T) {
	router, _ := newTestRouter(t, nil, middleware.NewRateLimiter(2, time.Minute))

	assert.Equal(t, http.StatusOK, call(t, router, http.MethodGet, "/health", "", nil).Status)
	assert.Equal(t, http.StatusOK, call(t, router, http.MethodGet, "/health", "", nil).Status)

	res := call(t, router, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusTooManyRequests, res.Status)
	assert.Equal(t, false, res.Body["success"])
}

func TestCORSPreflight(t *testing.T) {
	router, _ := newTestRouter(t, nil, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/goals", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
