package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	config "github.com/phillip/community-goals-go/config"
	models "github.com/phillip/community-goals-go/models"
	"github.com/phillip/community-goals-go/services"
)

func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrValidation), errors.Is(err, services.ErrNotActive):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes the error envelope. Errors that did not come from the
// goal engine are logged with the request's identifiers and hidden behind a
// generic message.
func respondError(c *gin.Context, cfg *config.Config, err error) {
	var known *services.Error
	if !errors.As(err, &known) {
		if cfg.Logger != nil {
			cfg.Logger.Error("unexpected error",
				"error", err,
				"goal_id", c.Param("id"),
				"contribution_id", c.Param("contributionId"),
				"user_id", c.GetString("user_id"),
				"request_id", c.GetString("request_id"),
			)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	status := statusFor(err)
	if status == http.StatusInternalServerError && cfg.Logger != nil {
		cfg.Logger.Error("request failed",
			"error", err,
			"goal_id", c.Param("id"),
			"contribution_id", c.Param("contributionId"),
			"user_id", c.GetString("user_id"),
		)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// respondGoal writes the goal with user references populated.
func respondGoal(c *gin.Context, cfg *config.Config, status int, goal *models.CommunityGoal) {
	view, err := cfg.Goals.Populate(c.Request.Context(), goal)
	if err != nil {
		respondError(c, cfg, err)
		return
	}
	c.JSON(status, view)
}

func currentUser(c *gin.Context) (primitive.ObjectID, bool) {
	uid, err := primitive.ObjectIDFromHex(c.GetString("user_id"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid user id"})
		return primitive.NilObjectID, false
	}
	return uid, true
}

func objectIDParam(c *gin.Context, name, label string) (primitive.ObjectID, bool) {
	oid, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + label + " id"})
		return primitive.NilObjectID, false
	}
	return oid, true
}
