package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/LovationAdmin/finance-api/middleware"
	"github.com/LovationAdmin/finance-api/models"
	"github.com/LovationAdmin/finance-api/services"
)

type GoalHandler struct {
	Goals *services.GoalService
}

func (h *GoalHandler) List(c *gin.Context) {
	list, err := h.Goals.List(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondList(c, list)
}

func (h *GoalHandler) Get(c *gin.Context) {
	g, err := h.Goals.Get(c.Request.Context(), middleware.GetUserID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, g)
}

func (h *GoalHandler) Create(c *gin.Context) {
	var in models.GoalInput
	if msgs := bindJSON(c, &in); msgs != nil {
		badRequest(c, msgs...)
		return
	}

	g, err := h.Goals.Create(c.Request.Context(), middleware.GetUserID(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusCreated, g)
}

func (h *GoalHandler) Update(c *gin.Context) {
	var in models.GoalInput
	if msgs := bindJSON(c, &in); msgs != nil {
		badRequest(c, msgs...)
		return
	}

	g, err := h.Goals.Update(c.Request.Context(), middleware.GetUserID(c), c.Param("id"), in)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, g)
}

func (h *GoalHandler) Delete(c *gin.Context) {
	if err := h.Goals.Delete(c.Request.Context(), middleware.GetUserID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, gin.H{})
}

func (h *GoalHandler) Contribute(c *gin.Context) {
	var req models.ContributeRequest
	if msgs := bindJSON(c, &req); msgs != nil {
		badRequest(c, msgs...)
		return
	}

	g, err := h.Goals.Contribute(c.Request.Context(), middleware.GetUserID(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, g)
}
