package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/LovationAdmin/finance-api/models"
	"github.com/LovationAdmin/finance-api/services"
)

// ownershipDeniedStatus answers requests on records owned by someone else.
// Clients treat it like any other 401.
const ownershipDeniedStatus = http.StatusUnauthorized

func statusFor(kind services.Kind) int {
	switch kind {
	case services.KindValidation:
		return http.StatusBadRequest
	case services.KindUnauthenticated:
		return http.StatusUnauthorized
	case services.KindForbidden:
		return ownershipDeniedStatus
	case services.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes the envelope for err. Internal causes are attached
// to the gin context for the request logger and never sent to the client.
func respondError(c *gin.Context, err error) {
	var se *services.Error
	if !errors.As(err, &se) {
		se = &services.Error{Kind: services.KindInternal, Message: "Server error", Err: err}
	}
	if se.Kind == services.KindInternal {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, models.Envelope{Success: false, Error: "Server error"})
		return
	}
	c.JSON(statusFor(se.Kind), models.Envelope{Success: false, Error: se.Message, Errors: se.Details})
}

func badRequest(c *gin.Context, messages ...string) {
	c.JSON(http.StatusBadRequest, models.Envelope{
		Success: false,
		Error:   strings.Join(messages, ", "),
		Errors:  messages,
	})
}

func respondData(c *gin.Context, status int, data any) {
	c.JSON(status, models.Envelope{Success: true, Data: data})
}

func respondList[T any](c *gin.Context, items []T) {
	count := len(items)
	if items == nil {
		items = []T{}
	}
	c.JSON(http.StatusOK, models.Envelope{Success: true, Count: &count, Data: items})
}

// bindJSON decodes the body into dst. An empty body decodes as {}. It
// returns the messages to answer with when the body is unusable.
func bindJSON(c *gin.Context, dst any) []string {
	err := c.ShouldBindJSON(dst)
	if errors.Is(err, io.EOF) {
		err = binding.Validator.ValidateStruct(dst)
	}
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		out := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			out = append(out, fieldMessage(fe))
		}
		return out
	}

	var numErr *models.NumberError
	if errors.As(err, &numErr) {
		return []string{numErr.Error()}
	}
	return []string{"Invalid request body"}
}

func fieldMessage(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		if strings.ContainsAny(field[:1], "aeiou") {
			return fmt.Sprintf("Please add an %s", field)
		}
		return fmt.Sprintf("Please add a %s", field)
	case "email":
		return "Please add a valid email"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "len":
		return fmt.Sprintf("%s must be %s characters", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}
