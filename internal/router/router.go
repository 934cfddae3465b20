package router

import (
	"net/http"

	"pitchfeed/internal/config"
	"pitchfeed/internal/handlers"
	"pitchfeed/internal/metrics"
	"pitchfeed/internal/middleware"
	"pitchfeed/internal/services"

	"github.com/gin-gonic/gin"
)

// Health reports readiness details for /healthz.
type Health func() gin.H

func RegisterRoutes(r *gin.Engine, svc *services.Services, feedCfg config.FeedConfig, m *metrics.Registry, health Health) {
	// Handlers
	userHandler := handlers.NewUserHandler(svc)
	pitchHandler := handlers.NewPitchHandler(svc)
	commentHandler := handlers.NewCommentHandler(svc)
	feedHandler := handlers.NewFeedHandler(svc, feedCfg)
	notificationHandler := handlers.NewNotificationHandler(svc)

	r.Use(middleware.LoadUser(svc.Identity))

	r.GET("/healthz", func(c *gin.Context) {
		body := gin.H{"status": "ok"}
		if health != nil {
			for k, v := range health() {
				body[k] = v
			}
		}
		c.JSON(http.StatusOK, body)
	})
	r.GET("/metrics", gin.WrapH(m.Handler()))

	// Public Routes
	r.POST("/users", userHandler.Register)                         // register
	r.GET("/users/:id", userHandler.Profile)                       // profile with karma tier
	r.GET("/users/:id/followers", userHandler.Followers)           // who follows the user
	r.GET("/users/:id/following", userHandler.Following)           // who the user follows
	r.GET("/users/:id/pitches", userHandler.Pitches)               // the user's pitches, newest first
	r.GET("/users/:id/performance", userHandler.Performance)       // success rate and average return
	r.GET("/pitches/:id", pitchHandler.Detail)                     // pitch with rendered thesis
	r.GET("/pitches/:id/return", pitchHandler.Return)              // live return percentage
	r.GET("/pitches/:id/comments", commentHandler.List)            // thread walk, ?order=
	r.GET("/comments/:id/descendants", commentHandler.Descendants) // replies at every depth

	// Protected Routes
	authorized := r.Group("/")
	authorized.Use(middleware.AuthRequired())
	{
		authorized.POST("/users/:id/follow", userHandler.Follow)
		authorized.DELETE("/users/:id/follow", userHandler.Unfollow)

		authorized.POST("/pitches", pitchHandler.Create)
		authorized.POST("/pitches/:id/like", pitchHandler.Like)
		authorized.POST("/pitches/:id/share", pitchHandler.Share)
		authorized.POST("/pitches/:id/comments", commentHandler.Create)
		authorized.POST("/comments/:id/like", commentHandler.Like)

		authorized.GET("/feed", feedHandler.Feed)

		authorized.GET("/notifications", notificationHandler.List)
		authorized.POST("/notifications/:id/read", notificationHandler.Read)
	}
}
