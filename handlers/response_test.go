package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LovationAdmin/finance-api/models"
	"github.com/LovationAdmin/finance-api/services"
)

func bindContext(body string) *gin.Context {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	return c
}

func TestBindJSON(t *testing.T) {
	tests := []struct {
		name string
		body string
		dst  any
		want []string
	}{
		{
			name: "valid",
			body: `{"amount": "12.5"}`,
			dst:  &models.ContributeRequest{},
		},
		{
			name: "number that is not a number",
			body: `{"amount": "abc"}`,
			dst:  &models.ContributeRequest{},
			want: []string{`"abc" is not a valid number`},
		},
		{
			name: "malformed json",
			body: `{"amount": `,
			dst:  &models.ContributeRequest{},
			want: []string{"Invalid request body"},
		},
		{
			name: "empty body still validates",
			body: ``,
			dst:  &models.VerifyTOTPRequest{},
			want: []string{"Please add a code"},
		},
		{
			name: "field rules",
			body: `{"username": "a", "email": "nope", "password": "123"}`,
			dst:  &models.RegisterRequest{},
			want: []string{"Please add a valid email", "Password must be at least 6 characters"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, bindJSON(bindContext(tt.body), tt.dst))
		})
	}
}

func TestBindJSON_NumberErrorIsTyped(t *testing.T) {
	var req models.ContributeRequest
	err := bindContext(`{"amount": "1e400"}`).ShouldBindJSON(&req)

	var numErr *models.NumberError
	require.True(t, errors.As(err, &numErr))
	assert.Equal(t, `"1e400"`, numErr.Raw)
}

func TestRespondError(t *testing.T) {
	tests := []struct {
		err    error
		status int
		msg    string
	}{
		{&services.Error{Kind: services.KindValidation, Message: "bad"}, http.StatusBadRequest, "bad"},
		{&services.Error{Kind: services.KindUnauthenticated, Message: "who"}, http.StatusUnauthorized, "who"},
		{&services.Error{Kind: services.KindForbidden, Message: "not yours"}, ownershipDeniedStatus, "not yours"},
		{&services.Error{Kind: services.KindNotFound, Message: "gone"}, http.StatusNotFound, "gone"},
		{errors.New("connection reset"), http.StatusInternalServerError, "Server error"},
	}

	for _, tt := range tests {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		respondError(c, tt.err)

		assert.Equal(t, tt.status, w.Code)
		assert.Contains(t, w.Body.String(), tt.msg)
		assert.NotContains(t, w.Body.String(), "connection reset")
	}
}
