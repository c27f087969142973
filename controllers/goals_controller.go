package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	config "github.com/phillip/community-goals-go/config"
	models "github.com/phillip/community-goals-go/models"
	"github.com/phillip/community-goals-go/repository"
	"github.com/phillip/community-goals-go/services"
	utils "github.com/phillip/community-goals-go/utils"
)

// ---------------- CREATE ----------------
func CreateGoal(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}

		var input struct {
			services.CreateGoalInput
			Deadline string `json:"deadline"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		deadline, err := utils.ParseDeadline(input.Deadline)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		input.CreateGoalInput.Deadline = deadline

		goal, err := cfg.Goals.CreateGoal(c.Request.Context(), userID, input.CreateGoalInput)
		if err != nil {
			respondError(c, cfg, err)
			return
		}
		respondGoal(c, cfg, http.StatusCreated, goal)
	}
}

// ---------------- LIST ----------------
func ListGoals(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := currentUser(c); !ok {
			return
		}

		filter := repository.GoalFilter{
			Status:   models.GoalStatus(c.Query("status")),
			GoalType: c.Query("goal_type"),
			Query:    c.Query("q"),
		}
		if creator := c.Query("creator"); creator != "" {
			oid, err := primitive.ObjectIDFromHex(creator)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid creator id"})
				return
			}
			filter.Creator = oid
		}

		goals, err := cfg.Goals.ListGoals(c.Request.Context(), filter)
		if err != nil {
			respondError(c, cfg, err)
			return
		}
		if len(goals) == 0 {
			c.JSON(http.StatusOK, []models.CommunityGoal{})
			return
		}

		// --- ETag from the most recently updated goal ---
		latest := goals[0]
		for _, g := range goals {
			if g.UpdatedAt.After(latest.UpdatedAt) {
				latest = g
			}
		}
		etag := utils.GenerateETag(latest.ID, latest.Version, latest.UpdatedAt)
		if match := c.GetHeader("If-None-Match"); match != "" && match == etag {
			c.Status(http.StatusNotModified)
			return
		}
		c.Header("ETag", etag)
		c.Header("Last-Modified", latest.UpdatedAt.UTC().Format(http.TimeFormat))

		c.JSON(http.StatusOK, goals)
	}
}

// ---------------- GET ----------------
func GetGoal(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := currentUser(c); !ok {
			return
		}
		goalID, ok := objectIDParam(c, "id", "goal")
		if !ok {
			return
		}

		goal, err := cfg.Goals.GetGoal(c.Request.Context(), goalID)
		if err != nil {
			respondError(c, cfg, err)
			return
		}

		view, err := cfg.Goals.Populate(c.Request.Context(), goal)
		if err != nil {
			respondError(c, cfg, err)
			return
		}

		etag := utils.GenerateETag(goal.ID, goal.Version, goal.UpdatedAt, view.ProfileStamps()...)
		if match := c.GetHeader("If-None-Match"); match != "" && match == etag {
			c.Status(http.StatusNotModified)
			return
		}
		c.Header("ETag", etag)
		c.JSON(http.StatusOK, view)
	}
}

// ---------------- STATUS ----------------
func UpdateGoalStatus(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		goalID, ok := objectIDParam(c, "id", "goal")
		if !ok {
			return
		}

		var input services.StatusInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		goal, err := cfg.Goals.UpdateStatus(c.Request.Context(), goalID, userID, input)
		if err != nil {
			respondError(c, cfg, err)
			return
		}
		respondGoal(c, cfg, http.StatusOK, goal)
	}
}
