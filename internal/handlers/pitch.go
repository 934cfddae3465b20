package handlers

import (
	"net/http"

	"pitchfeed/internal/models"
	"pitchfeed/internal/services"

	"github.com/gin-gonic/gin"
)

type PitchHandler struct {
	pitches *services.PitchService
}

func NewPitchHandler(svc *services.Services) *PitchHandler {
	return &PitchHandler{pitches: svc.Pitches}
}

type createPitchRequest struct {
	AssetID string            `json:"asset_id" binding:"required"`
	Thesis  string            `json:"thesis"`
	Class   models.AssetClass `json:"class"`
}

func (h *PitchHandler) Create(c *gin.Context) {
	var req createPitchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "asset_id is required")
		return
	}
	pitch, err := h.pitches.CreatePitch(c.Request.Context(), currentUser(c).ID, req.AssetID, req.Thesis, req.Class)
	if err != nil {
		RenderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, pitch)
}

func (h *PitchHandler) Detail(c *gin.Context) {
	view, err := h.pitches.GetPitch(c.Request.Context(), c.Param("id"))
	if err != nil {
		RenderError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *PitchHandler) Like(c *gin.Context) {
	count, err := h.pitches.LikePitch(c.Request.Context(), c.Param("id"), currentUser(c).ID)
	if err != nil {
		RenderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"like_count": count})
}

func (h *PitchHandler) Share(c *gin.Context) {
	count, err := h.pitches.SharePitch(c.Request.Context(), c.Param("id"), currentUser(c).ID)
	if err != nil {
		RenderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"share_count": count})
}

func (h *PitchHandler) Return(c *gin.Context) {
	quote, err := h.pitches.CurrentReturn(c.Request.Context(), c.Param("id"))
	if err != nil {
		RenderError(c, err)
		return
	}
	c.JSON(http.StatusOK, quote)
}
