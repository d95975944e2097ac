package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/LovationAdmin/finance-api/middleware"
	"github.com/LovationAdmin/finance-api/models"
	"github.com/LovationAdmin/finance-api/services"
)

type BudgetHandler struct {
	Budgets *services.BudgetService
}

func (h *BudgetHandler) List(c *gin.Context) {
	list, err := h.Budgets.List(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondList(c, list)
}

func (h *BudgetHandler) Get(c *gin.Context) {
	b, err := h.Budgets.Get(c.Request.Context(), middleware.GetUserID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, b)
}

func (h *BudgetHandler) Create(c *gin.Context) {
	var in models.BudgetInput
	if msgs := bindJSON(c, &in); msgs != nil {
		badRequest(c, msgs...)
		return
	}

	b, err := h.Budgets.Create(c.Request.Context(), middleware.GetUserID(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusCreated, b)
}

func (h *BudgetHandler) Update(c *gin.Context) {
	var in models.BudgetInput
	if msgs := bindJSON(c, &in); msgs != nil {
		badRequest(c, msgs...)
		return
	}

	b, err := h.Budgets.Update(c.Request.Context(), middleware.GetUserID(c), c.Param("id"), in)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, b)
}

func (h *BudgetHandler) Delete(c *gin.Context) {
	if err := h.Budgets.Delete(c.Request.Context(), middleware.GetUserID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, gin.H{})
}
