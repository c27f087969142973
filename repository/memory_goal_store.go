package repository

import (
	"context"
	"sort"
	"strings"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	models "github.com/phillip/community-goals-go/models"
)

// MemoryGoalStore keeps goals in process. It honours the same version
// compare-and-swap as the Mongo store.
type MemoryGoalStore struct {
	mu    sync.RWMutex
	goals map[primitive.ObjectID]*models.CommunityGoal
}

func NewMemoryGoalStore() *MemoryGoalStore {
	return &MemoryGoalStore{goals: make(map[primitive.ObjectID]*models.CommunityGoal)}
}

func (s *MemoryGoalStore) Create(_ context.Context, goal *models.CommunityGoal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if goal.ID.IsZero() {
		goal.ID = primitive.NewObjectID()
	}
	goal.Version = 1
	s.goals[goal.ID] = goal.Clone()
	return nil
}

func (s *MemoryGoalStore) Load(_ context.Context, id primitive.ObjectID) (*models.CommunityGoal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	goal, ok := s.goals[id]
	if !ok {
		return nil, ErrGoalNotFound
	}
	return goal.Clone(), nil
}

func (s *MemoryGoalStore) Save(_ context.Context, goal *models.CommunityGoal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.goals[goal.ID]
	if !ok || current.Version != goal.Version {
		return ErrVersionConflict
	}
	goal.Version++
	s.goals[goal.ID] = goal.Clone()
	return nil
}

func (s *MemoryGoalStore) List(_ context.Context, filter GoalFilter) ([]models.CommunityGoal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q := strings.ToLower(filter.Query)
	out := []models.CommunityGoal{}
	for _, g := range s.goals {
		if filter.Status != "" && g.Status != filter.Status {
			continue
		}
		if filter.GoalType != "" && g.GoalType != filter.GoalType {
			continue
		}
		if !filter.Creator.IsZero() && g.Creator != filter.Creator {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(g.Title), q) {
			continue
		}
		out = append(out, *g.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
