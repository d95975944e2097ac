package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/LovationAdmin/finance-api/models"
	"github.com/LovationAdmin/finance-api/services"
)

const (
	userIDKey = "user_id"
	userKey   = "user"
)

// Authenticator resolves a bearer token to the user it was issued for.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

// AuthMiddleware requires "Authorization: Bearer <token>" and stores the
// resolved user in the context. Requests without a valid token never reach
// the next handler.
func AuthMiddleware(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authenticate(c, auth, BearerToken(c.GetHeader("Authorization")))
	}
}

// WebSocketAuth also accepts the token from the "token" query parameter;
// browsers cannot set headers on a websocket upgrade.
func WebSocketAuth(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := BearerToken(c.GetHeader("Authorization"))
		if token == "" {
			token = c.Query("token")
		}
		authenticate(c, auth, token)
	}
}

func authenticate(c *gin.Context, auth Authenticator, token string) {
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, models.Envelope{
			Success: false,
			Error:   "Not authorized to access this route",
		})
		return
	}

	user, err := auth.Authenticate(c.Request.Context(), token)
	if err != nil {
		status, message := http.StatusUnauthorized, "Not authorized to access this route"
		var se *services.Error
		if services.KindOf(err) == services.KindInternal {
			status, message = http.StatusInternalServerError, "Server error"
			c.Error(err)
		} else if errors.As(err, &se) {
			message = se.Message
		}
		c.AbortWithStatusJSON(status, models.Envelope{Success: false, Error: message})
		return
	}

	c.Set(userIDKey, user.ID)
	c.Set(userKey, user)
	c.Next()
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// GetUserID returns the authenticated user's id, or "" outside protected
// routes.
func GetUserID(c *gin.Context) string {
	return c.GetString(userIDKey)
}

func GetUser(c *gin.Context) *models.User {
	if v, ok := c.Get(userKey); ok {
		if u, ok := v.(*models.User); ok {
			return u
		}
	}
	return nil
}
