package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/LovationAdmin/finance-api/middleware"
	"github.com/LovationAdmin/finance-api/models"
	"github.com/LovationAdmin/finance-api/services"
)

type TransactionHandler struct {
	Transactions *services.TransactionService
}

func (h *TransactionHandler) List(c *gin.Context) {
	list, err := h.Transactions.List(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondList(c, list)
}

func (h *TransactionHandler) Get(c *gin.Context) {
	t, err := h.Transactions.Get(c.Request.Context(), middleware.GetUserID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, t)
}

func (h *TransactionHandler) Create(c *gin.Context) {
	var in models.TransactionInput
	if msgs := bindJSON(c, &in); msgs != nil {
		badRequest(c, msgs...)
		return
	}

	t, err := h.Transactions.Create(c.Request.Context(), middleware.GetUserID(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusCreated, t)
}

func (h *TransactionHandler) Update(c *gin.Context) {
	var in models.TransactionInput
	if msgs := bindJSON(c, &in); msgs != nil {
		badRequest(c, msgs...)
		return
	}

	t, err := h.Transactions.Update(c.Request.Context(), middleware.GetUserID(c), c.Param("id"), in)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, t)
}

func (h *TransactionHandler) Delete(c *gin.Context) {
	if err := h.Transactions.Delete(c.Request.Context(), middleware.GetUserID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, gin.H{})
}
