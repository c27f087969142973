package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	config "github.com/phillip/community-goals-go/config"
	"github.com/phillip/community-goals-go/services"
)

// ---------------- SUBMIT / UPDATE ----------------
func SubmitContribution(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		goalID, ok := objectIDParam(c, "id", "goal")
		if !ok {
			return
		}

		var input services.SubmissionInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		goal, err := cfg.Goals.SubmitContribution(c.Request.Context(), goalID, userID, input)
		if err != nil {
			respondError(c, cfg, err)
			return
		}
		respondGoal(c, cfg, http.StatusOK, goal)
	}
}

// ---------------- VERIFY ----------------
func VerifyContribution(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		goalID, ok := objectIDParam(c, "id", "goal")
		if !ok {
			return
		}
		contributionID, ok := objectIDParam(c, "contributionId", "contribution")
		if !ok {
			return
		}

		var input services.VerifyInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		goal, err := cfg.Goals.VerifyContribution(c.Request.Context(), goalID, contributionID, userID, input)
		if err != nil {
			respondError(c, cfg, err)
			return
		}
		respondGoal(c, cfg, http.StatusOK, goal)
	}
}

// ---------------- COMMENT ----------------
func CommentOnContribution(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		goalID, ok := objectIDParam(c, "id", "goal")
		if !ok {
			return
		}
		contributionID, ok := objectIDParam(c, "contributionId", "contribution")
		if !ok {
			return
		}

		var input services.CommentInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		goal, err := cfg.Goals.CommentOnContribution(c.Request.Context(), goalID, contributionID, userID, input)
		if err != nil {
			respondError(c, cfg, err)
			return
		}
		respondGoal(c, cfg, http.StatusOK, goal)
	}
}
