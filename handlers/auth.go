package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/LovationAdmin/finance-api/middleware"
	"github.com/LovationAdmin/finance-api/models"
	"github.com/LovationAdmin/finance-api/services"
)

type AuthHandler struct {
	Auth *services.AuthService
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if msgs := bindJSON(c, &req); msgs != nil {
		badRequest(c, msgs...)
		return
	}

	resp, err := h.Auth.Register(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, models.Envelope{Success: true, Token: resp.Token, User: &resp.User})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if msgs := bindJSON(c, &req); msgs != nil {
		badRequest(c, msgs...)
		return
	}

	resp, err := h.Auth.Login(c.Request.Context(), req)
	if errors.Is(err, services.ErrTOTPRequired) {
		c.JSON(http.StatusUnauthorized, models.Envelope{Success: false, Error: err.Error(), Requires2FA: true})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.Envelope{Success: true, Token: resp.Token, User: &resp.User})
}

// Me returns the user resolved by the auth middleware.
func (h *AuthHandler) Me(c *gin.Context) {
	respondData(c, http.StatusOK, middleware.GetUser(c))
}

// ============================================================================
// 2FA
// ============================================================================

func (h *AuthHandler) SetupTOTP(c *gin.Context) {
	setup, err := h.Auth.SetupTOTP(c.Request.Context(), middleware.GetUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, setup)
}

func (h *AuthHandler) VerifyTOTP(c *gin.Context) {
	var req models.VerifyTOTPRequest
	if msgs := bindJSON(c, &req); msgs != nil {
		badRequest(c, msgs...)
		return
	}

	if err := h.Auth.EnableTOTP(c.Request.Context(), middleware.GetUser(c), req.Code); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.Envelope{Success: true, Message: "2FA enabled"})
}

func (h *AuthHandler) DisableTOTP(c *gin.Context) {
	var req models.DisableTOTPRequest
	if msgs := bindJSON(c, &req); msgs != nil {
		badRequest(c, msgs...)
		return
	}

	if err := h.Auth.DisableTOTP(c.Request.Context(), middleware.GetUser(c), req.Password, req.Code); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.Envelope{Success: true, Message: "2FA disabled"})
}
