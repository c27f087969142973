package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	config "github.com/phillip/community-goals-go/config"
	controllers "github.com/phillip/community-goals-go/controllers"
	middleware "github.com/phillip/community-goals-go/middleware"
)

func SetupRoutes(r *gin.Engine, cfg *config.Config) {
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(cfg.Logger))
	if len(cfg.CORSOrigins) > 0 {
		r.Use(middleware.CORS(cfg.CORSOrigins))
	}

	// public
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// protected
	auth := middleware.AuthMiddleware(cfg)

	goals := r.Group("/goals")
	goals.Use(auth)
	{
		goals.POST("", controllers.CreateGoal(cfg))
		goals.GET("", controllers.ListGoals(cfg))
		goals.GET("/:id", controllers.GetGoal(cfg))
		goals.PATCH("/:id/status", controllers.UpdateGoalStatus(cfg))

		goals.POST("/:id/proofs", controllers.UploadProof(cfg))
		goals.DELETE("/:id/proofs", controllers.DeleteProof(cfg))

		goals.POST("/:id/contributions", controllers.SubmitContribution(cfg))
		goals.POST("/:id/contributions/:contributionId/verify", controllers.VerifyContribution(cfg))
		goals.POST("/:id/contributions/:contributionId/comments", controllers.CommentOnContribution(cfg))
	}
}
