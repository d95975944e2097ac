package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LovationAdmin/finance-api/models"
	"github.com/LovationAdmin/finance-api/repository"
	"github.com/LovationAdmin/finance-api/services"
	"github.com/LovationAdmin/finance-api/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type authFixture struct {
	router  *gin.Engine
	tokens  *utils.TokenManager
	user    *models.User
	reached bool
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	store := repository.NewMemoryStore()
	tokens := utils.NewTokenManager("test-secret", time.Hour)
	auth := services.NewAuthService(store.Users, tokens, nil, "Test", discardLogger())

	resp, err := auth.Register(context.Background(), models.RegisterRequest{Username: "alice", Email: "alice@example.com", Password: "secret1"})
	require.NoError(t, err)

	f := &authFixture{tokens: tokens, user: &resp.User}
	f.router = gin.New()
	f.router.GET("/protected", AuthMiddleware(auth), func(c *gin.Context) {
		f.reached = true
		c.JSON(http.StatusOK, gin.H{"user_id": GetUserID(c), "email": GetUser(c).Email})
	})
	f.router.GET("/ws", WebSocketAuth(auth), func(c *gin.Context) {
		f.reached = true
		c.Status(http.StatusOK)
	})
	return f
}

func (f *authFixture) do(path, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware_Rejects(t *testing.T) {
	f := newAuthFixture(t)

	expired, err := f.tokens.WithClock(func() time.Time { return time.Now().Add(-2 * time.Hour) }).Generate(f.user.ID)
	require.NoError(t, err)
	forged, err := utils.NewTokenManager("other-secret", time.Hour).Generate(f.user.ID)
	require.NoError(t, err)
	ghost, err := f.tokens.Generate("0000")
	require.NoError(t, err)

	tests := map[string]string{
		"missing header":  "",
		"wrong scheme":    "Basic abc",
		"empty token":     "Bearer ",
		"garbage token":   "Bearer not-a-jwt",
		"expired token":   "Bearer " + expired,
		"foreign secret":  "Bearer " + forged,
		"unknown user id": "Bearer " + ghost,
	}

	for name, header := range tests {
		t.Run(name, func(t *testing.T) {
			f.reached = false
			w := f.do("/protected", header)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.False(t, f.reached, "handler must not run")

			var env models.Envelope
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
			assert.False(t, env.Success)
			assert.NotEmpty(t, env.Error)
		})
	}
}

func TestAuthMiddleware_Accepts(t *testing.T) {
	f := newAuthFixture(t)
	token, err := f.tokens.Generate(f.user.ID)
	require.NoError(t, err)

	w := f.do("/protected", "Bearer "+token)

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, f.reached)
	assert.JSONEq(t, `{"user_id":"`+f.user.ID+`","email":"alice@example.com"}`, w.Body.String())
}

func TestWebSocketAuth_QueryToken(t *testing.T) {
	f := newAuthFixture(t)
	token, err := f.tokens.Generate(f.user.ID)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, f.do("/ws?token="+token, "").Code)
	assert.Equal(t, http.StatusUnauthorized, f.do("/ws?token=bad", "").Code)
	assert.Equal(t, http.StatusUnauthorized, f.do("/ws", "").Code)
}

type brokenAuth struct{}

func (brokenAuth) Authenticate(context.Context, string) (*models.User, error) {
	return nil, errors.New("connection refused")
}

func TestAuthMiddleware_StoreFailure(t *testing.T) {
	r := gin.New()
	r.GET("/protected", AuthMiddleware(brokenAuth{}), func(c *gin.Context) {
		t.Fatal("handler must not run")
	})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer token")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestRateLimiter(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(2, time.Minute)
	rl.now = func() time.Time { return now }

	r := gin.New()
	r.Use(rl.Middleware())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	hit := func() int {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		return w.Code
	}

	assert.Equal(t, http.StatusOK, hit())
	assert.Equal(t, http.StatusOK, hit())
	assert.Equal(t, http.StatusTooManyRequests, hit())

	now = now.Add(61 * time.Second)
	assert.Equal(t, http.StatusOK, hit())

	now = now.Add(2 * time.Minute)
	rl.cleanup()
	assert.Empty(t, rl.requests)
}

func TestRequestLogger_SetsRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestLogger(discardLogger()), Recovery(discardLogger()))
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/panic", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set("X-Request-ID", "abc")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc", w.Header().Get("X-Request-ID"))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"success":false,"error":"Server error"}`, w.Body.String())
}
