package handlers

import (
	"net/http"

	"pitchfeed/internal/services"
	"pitchfeed/internal/utils"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	identity *services.IdentityService
	pitches  *services.PitchService
}

func NewUserHandler(svc *services.Services) *UserHandler {
	return &UserHandler{identity: svc.Identity, pitches: svc.Pitches}
}

// Register creates a user. No credentials are involved.
func (h *UserHandler) Register(c *gin.Context) {
	var in services.NewUser
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid JSON body")
		return
	}
	user, err := h.identity.CreateUser(c.Request.Context(), in)
	if err != nil {
		RenderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

// Profile serves the public user page.
func (h *UserHandler) Profile(c *gin.Context) {
	profile, err := h.identity.Profile(c.Request.Context(), c.Param("id"))
	if err != nil {
		RenderError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (h *UserHandler) Follow(c *gin.Context) {
	if err := h.identity.Follow(c.Request.Context(), currentUser(c).ID, c.Param("id")); err != nil {
		RenderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"following": true})
}

func (h *UserHandler) Unfollow(c *gin.Context) {
	if err := h.identity.Unfollow(c.Request.Context(), currentUser(c).ID, c.Param("id")); err != nil {
		RenderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"following": false})
}

func (h *UserHandler) Followers(c *gin.Context) {
	users, err := h.identity.Followers(c.Request.Context(), c.Param("id"))
	if err != nil {
		RenderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

func (h *UserHandler) Following(c *gin.Context) {
	users, err := h.identity.Following(c.Request.Context(), c.Param("id"))
	if err != nil {
		RenderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

func (h *UserHandler) Pitches(c *gin.Context) {
	limit := utils.ParseLimit(c.Query("limit"), 20, 100)
	pitches, err := h.pitches.ListByUser(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		RenderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"pitches": pitches})
}

// Performance prices every pitch by the user and summarizes the returns.
func (h *UserHandler) Performance(c *gin.Context) {
	perf, err := h.pitches.PerformanceMetrics(c.Request.Context(), c.Param("id"))
	if err != nil {
		RenderError(c, err)
		return
	}
	c.JSON(http.StatusOK, perf)
}
