package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LovationAdmin/finance-api/events"
	"github.com/LovationAdmin/finance-api/middleware"
	"github.com/LovationAdmin/finance-api/models"
	"github.com/LovationAdmin/finance-api/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// tokenAuth treats the token as the user id.
type tokenAuth struct{}

func (tokenAuth) Authenticate(_ context.Context, token string) (*models.User, error) {
	if token == "" || token == "bad" {
		return nil, &services.Error{Kind: services.KindUnauthenticated, Message: "Not authorized to access this route"}
	}
	return &models.User{ID: token}, nil
}

func dial(t *testing.T, srv *httptest.Server, token string) <-chan events.Event {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	out := make(chan events.Event, 32)
	go func() {
		defer close(out)
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var e events.Event
			if json.Unmarshal(msg, &e) == nil {
				out <- e
			}
		}
	}()
	return out
}

// warmUp publishes until the session is registered with the hub.
func warmUp(t *testing.T, h *WSHandler, userID string, in <-chan events.Event) {
	t.Helper()
	for range 50 {
		require.NoError(t, h.Publish(context.Background(), events.New(events.TransactionCreated, userID, "warmup")))
		select {
		case <-in:
			return
		case <-time.After(50 * time.Millisecond):
		}
	}
	t.Fatalf("session for %s never registered", userID)
}

func next(t *testing.T, in <-chan events.Event) events.Event {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case e, ok := <-in:
			require.True(t, ok, "connection closed")
			if e.ResourceID != "warmup" {
				return e
			}
		case <-timeout:
			t.Fatal("no event received")
		}
	}
}

func TestWSHandler_BroadcastsToOwnerOnly(t *testing.T) {
	h := NewWSHandler(slog.New(slog.NewTextHandler(io.Discard, nil)))
	defer h.Close()

	router := gin.New()
	router.GET("/ws", middleware.WebSocketAuth(tokenAuth{}), h.HandleWS)
	srv := httptest.NewServer(router)
	defer srv.Close()

	alice := dial(t, srv, "alice")
	bob := dial(t, srv, "bob")
	warmUp(t, h, "alice", alice)
	warmUp(t, h, "bob", bob)

	require.NoError(t, h.Publish(context.Background(), events.New(events.GoalCreated, "alice", "g1")))
	require.NoError(t, h.Publish(context.Background(), events.New(events.BudgetCreated, "bob", "b1")))

	got := next(t, alice)
	assert.Equal(t, events.GoalCreated, got.Type)
	assert.Equal(t, "g1", got.ResourceID)

	got = next(t, bob)
	assert.Equal(t, "b1", got.ResourceID, "bob must not see alice's events")
}

func TestWSHandler_RejectsBadToken(t *testing.T) {
	h := NewWSHandler(slog.New(slog.NewTextHandler(io.Discard, nil)))
	defer h.Close()

	router := gin.New()
	router.GET("/ws", middleware.WebSocketAuth(tokenAuth{}), h.HandleWS)
	srv := httptest.NewServer(router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=bad"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 401, resp.StatusCode)
}
