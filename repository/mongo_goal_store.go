package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	models "github.com/phillip/community-goals-go/models"
)

const goalsCollection = "community_goals"

type MongoGoalStore struct {
	col     *mongo.Collection
	timeout time.Duration
}

func NewMongoGoalStore(db *mongo.Database) *MongoGoalStore {
	return &MongoGoalStore{col: db.Collection(goalsCollection), timeout: 5 * time.Second}
}

func (s *MongoGoalStore) Create(ctx context.Context, goal *models.CommunityGoal) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if goal.ID.IsZero() {
		goal.ID = primitive.NewObjectID()
	}
	goal.Version = 1
	if _, err := s.col.InsertOne(ctx, goal); err != nil {
		return fmt.Errorf("insert goal: %w", err)
	}
	return nil
}

func (s *MongoGoalStore) Load(ctx context.Context, id primitive.ObjectID) (*models.CommunityGoal, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var goal models.CommunityGoal
	err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&goal)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrGoalNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find goal: %w", err)
	}
	return &goal, nil
}

func (s *MongoGoalStore) Save(ctx context.Context, goal *models.CommunityGoal) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	expected := goal.Version
	goal.Version = expected + 1
	res, err := s.col.ReplaceOne(ctx, versionFilter(goal.ID, expected), goal)
	if err != nil {
		goal.Version = expected
		return fmt.Errorf("replace goal: %w", err)
	}
	if res.MatchedCount == 0 {
		goal.Version = expected
		return ErrVersionConflict
	}
	return nil
}

// versionFilter matches the goal at the expected version. Documents written
// before the version field existed decode as version 0.
func versionFilter(id primitive.ObjectID, expected int64) bson.M {
	if expected == 0 {
		return bson.M{
			"_id": id,
			"$or": bson.A{
				bson.M{"version": 0},
				bson.M{"version": bson.M{"$exists": false}},
			},
		}
	}
	return bson.M{"_id": id, "version": expected}
}

func (s *MongoGoalStore) List(ctx context.Context, filter GoalFilter) ([]models.CommunityGoal, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	query := bson.M{}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if filter.GoalType != "" {
		query["goal_type"] = filter.GoalType
	}
	if !filter.Creator.IsZero() {
		query["creator"] = filter.Creator
	}
	if filter.Query != "" {
		query["title"] = bson.M{"$regex": regexp.QuoteMeta(filter.Query), "$options": "i"}
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := s.col.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("find goals: %w", err)
	}
	goals := []models.CommunityGoal{}
	if err := cursor.All(ctx, &goals); err != nil {
		return nil, fmt.Errorf("decode goals: %w", err)
	}
	return goals, nil
}
