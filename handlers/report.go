package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/LovationAdmin/finance-api/middleware"
	"github.com/LovationAdmin/finance-api/services"
)

type ReportHandler struct {
	Reports *services.ReportService
}

func (h *ReportHandler) Summary(c *gin.Context) {
	s, err := h.Reports.Summary(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, s)
}

// Recommendations takes ?mode=budgeting|savings|investment (default budgeting).
func (h *ReportHandler) Recommendations(c *gin.Context) {
	set, err := h.Reports.Recommendations(c.Request.Context(), middleware.GetUserID(c), c.DefaultQuery("mode", "budgeting"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, set)
}

// BudgetPlan takes ?strategy=zero-based|50-30-20 (default zero-based).
func (h *ReportHandler) BudgetPlan(c *gin.Context) {
	plan, err := h.Reports.BudgetPlan(c.Request.Context(), middleware.GetUserID(c), c.DefaultQuery("strategy", "zero-based"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, plan)
}
