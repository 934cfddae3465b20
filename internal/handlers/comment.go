package handlers

import (
	"net/http"

	"pitchfeed/internal/models"
	"pitchfeed/internal/services"
	"pitchfeed/internal/utils"

	"github.com/gin-gonic/gin"
)

type CommentHandler struct {
	threads *services.ThreadService
}

func NewCommentHandler(svc *services.Services) *CommentHandler {
	return &CommentHandler{threads: svc.Threads}
}

type createCommentRequest struct {
	Content  string  `json:"content"`
	ParentID *string `json:"parent_id"`
}

// commentView adds rendered HTML and the nesting depth to a comment.
type commentView struct {
	*models.Comment
	ContentHTML string `json:"content_html"`
	Depth       int    `json:"depth"`
}

func (h *CommentHandler) Create(c *gin.Context) {
	var req createCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid JSON body")
		return
	}
	comment, err := h.threads.CreateComment(c.Request.Context(), c.Param("id"), currentUser(c).ID, req.Content, req.ParentID)
	if err != nil {
		RenderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

// List walks the thread in the requested order. Depth is derived from the
// parent links seen so far, since the walk is pre-order.
func (h *CommentHandler) List(c *gin.Context) {
	order, err := services.ParseOrdering(c.Query("order"))
	if err != nil {
		RenderError(c, err)
		return
	}
	seq, err := h.threads.GetThread(c.Request.Context(), c.Param("id"), order)
	if err != nil {
		RenderError(c, err)
		return
	}

	depth := make(map[string]int)
	out := make([]commentView, 0)
	for cm := range seq {
		d := 0
		if cm.ParentID != nil {
			d = depth[*cm.ParentID] + 1
		}
		depth[cm.ID] = d
		out = append(out, commentView{Comment: cm, ContentHTML: utils.RenderComment(cm.Content), Depth: d})
	}
	c.JSON(http.StatusOK, gin.H{"order": order, "comments": out})
}

func (h *CommentHandler) Like(c *gin.Context) {
	count, err := h.threads.LikeComment(c.Request.Context(), c.Param("id"), currentUser(c).ID)
	if err != nil {
		RenderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"like_count": count})
}

func (h *CommentHandler) Descendants(c *gin.Context) {
	n, err := h.threads.CountDescendants(c.Request.Context(), c.Param("id"))
	if err != nil {
		RenderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": c.Param("id"), "descendants": n})
}
