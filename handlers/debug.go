package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/LovationAdmin/finance-api/middleware"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// DebugHandler serves the diagnostics endpoints. None of them require a
// token and none expose configuration values, only whether they are set.
type DebugHandler struct {
	Store       Pinger
	Auth        middleware.Authenticator
	Backend     string
	Environment string
	Version     string

	JWTSecretSet bool
	JWTExpireSet bool
	startedAt    time.Time
}

func NewDebugHandler(store Pinger, auth middleware.Authenticator, backend, environment string, jwtSecretSet, jwtExpireSet bool) *DebugHandler {
	return &DebugHandler{
		Store:        store,
		Auth:         auth,
		Backend:      backend,
		Environment:  environment,
		Version:      "1.0.0",
		JWTSecretSet: jwtSecretSet,
		JWTExpireSet: jwtExpireSet,
		startedAt:    time.Now(),
	}
}

func (h *DebugHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"version": h.Version,
		"time":    time.Now().Format(time.RFC3339),
	})
}

func (h *DebugHandler) Info(c *gin.Context) {
	respondData(c, http.StatusOK, gin.H{
		"environment":   h.Environment,
		"backend":       h.Backend,
		"uptimeSeconds": int64(time.Since(h.startedAt).Seconds()),
		"jwtSecret":     h.JWTSecretSet,
		"jwtExpire":     h.JWTExpireSet,
	})
}

// JWTConfig answers /api/auth/test.
func (h *DebugHandler) JWTConfig(c *gin.Context) {
	respondData(c, http.StatusOK, gin.H{
		"jwtSecret": h.JWTSecretSet,
		"jwtExpire": h.JWTExpireSet,
	})
}

// AuthTest reports whether the request carries a token and whether it
// resolves to a user. It never answers 401.
func (h *DebugHandler) AuthTest(c *gin.Context) {
	token := middleware.BearerToken(c.GetHeader("Authorization"))
	valid := false
	if token != "" {
		_, err := h.Auth.Authenticate(c.Request.Context(), token)
		valid = err == nil
	}
	respondData(c, http.StatusOK, gin.H{
		"tokenProvided": token != "",
		"tokenValid":    valid,
		"jwtSecret":     h.JWTSecretSet,
	})
}

func (h *DebugHandler) DB(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	respondData(c, http.StatusOK, gin.H{
		"backend":   h.Backend,
		"connected": h.Store.Ping(ctx) == nil,
	})
}
