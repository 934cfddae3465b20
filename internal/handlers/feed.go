package handlers

import (
	"net/http"
	"strconv"

	"pitchfeed/internal/config"
	"pitchfeed/internal/services"
	"pitchfeed/internal/utils"

	"github.com/gin-gonic/gin"
)

type FeedHandler struct {
	feed *services.FeedService
	cfg  config.FeedConfig
}

func NewFeedHandler(svc *services.Services, cfg config.FeedConfig) *FeedHandler {
	return &FeedHandler{feed: svc.Feed, cfg: cfg}
}

// Feed GET /feed?limit=&discovery=&discovery_size=&seed=
func (h *FeedHandler) Feed(c *gin.Context) {
	cfg := services.FeedConfig{
		Limit:            utils.ParseLimit(c.Query("limit"), h.cfg.Limit, 100),
		IncludeDiscovery: utils.ParseBool(c.Query("discovery"), false),
		DiscoverySize:    utils.ParseLimit(c.Query("discovery_size"), h.cfg.DiscoverySize, 50),
		Rank:             h.cfg.Rank,
	}
	if s := c.Query("seed"); s != "" {
		seed, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			badRequest(c, "seed must be an integer")
			return
		}
		cfg.Seed = seed
	}

	items, err := h.feed.Compose(c.Request.Context(), currentUser(c).ID, cfg)
	if err != nil {
		RenderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}
