package repository

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"

	models "github.com/phillip/community-goals-go/models"
)

var (
	ErrGoalNotFound    = errors.New("goal not found")
	ErrVersionConflict = errors.New("goal was modified concurrently")
	ErrUserNotFound    = errors.New("user not found")
)

// GoalFilter narrows List. Zero fields are ignored.
type GoalFilter struct {
	Status   models.GoalStatus
	GoalType string
	Creator  primitive.ObjectID
	Query    string
}

// GoalStore persists whole goal documents. Save is a compare-and-swap on
// Version: it succeeds only if the stored version equals goal.Version, and on
// success bumps goal.Version.
type GoalStore interface {
	Create(ctx context.Context, goal *models.CommunityGoal) error
	Load(ctx context.Context, id primitive.ObjectID) (*models.CommunityGoal, error)
	Save(ctx context.Context, goal *models.CommunityGoal) error
	List(ctx context.Context, filter GoalFilter) ([]models.CommunityGoal, error)
}
