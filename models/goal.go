package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type GoalStatus string

const (
	GoalStatusActive    GoalStatus = "Active"
	GoalStatusCompleted GoalStatus = "Completed"
	GoalStatusOnHold    GoalStatus = "OnHold"
	GoalStatusCancelled GoalStatus = "Cancelled"
)

func (s GoalStatus) Valid() bool {
	switch s {
	case GoalStatusActive, GoalStatusCompleted, GoalStatusOnHold, GoalStatusCancelled:
		return true
	}
	return false
}

// CommunityGoal is the root aggregate. Tasks and contributions are embedded and
// only ever change through the contribution engine in package services.
type CommunityGoal struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Creator       primitive.ObjectID `bson:"creator" json:"creator"`
	Title         string             `bson:"title" json:"title"`
	Description   string             `bson:"description,omitempty" json:"description,omitempty"`
	GoalType      string             `bson:"goal_type,omitempty" json:"goalType,omitempty"`
	TargetAmount  float64            `bson:"target_amount,omitempty" json:"targetAmount,omitempty"`
	Deadline      *time.Time         `bson:"deadline,omitempty" json:"deadline,omitempty"`
	Images        []string           `bson:"images" json:"images"`
	Status        GoalStatus         `bson:"status" json:"status"`
	TotalProgress int                `bson:"total_progress" json:"totalProgress"`
	Tasks         []Task             `bson:"tasks" json:"tasks"`
	Contributions []Contribution     `bson:"contributions" json:"contributions"`
	Version       int64              `bson:"version" json:"version"`
	CreatedAt     time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt     time.Time          `bson:"updated_at" json:"updatedAt"`
}

// Task is a sub-objective with its own quantity target and a fixed weight.
type Task struct {
	ID                     primitive.ObjectID `bson:"_id" json:"id"`
	Title                  string             `bson:"title" json:"title"`
	TaskType               ContributionType   `bson:"task_type" json:"taskType"`
	QuantityNeeded         float64            `bson:"quantity_needed" json:"quantityNeeded"`
	QuantityFulfilled      float64            `bson:"quantity_fulfilled" json:"quantityFulfilled"`
	ContributionPercentage int                `bson:"contribution_percentage" json:"contributionPercentage"`
	Contributions          []ContributionRef  `bson:"contributions" json:"contributions"`
}

// Task returns a pointer into g.Tasks, or nil.
func (g *CommunityGoal) Task(id primitive.ObjectID) *Task {
	for i := range g.Tasks {
		if g.Tasks[i].ID == id {
			return &g.Tasks[i]
		}
	}
	return nil
}

// ContributionIndex returns the slice position of the contribution, or -1.
func (g *CommunityGoal) ContributionIndex(id primitive.ObjectID) int {
	for i := range g.Contributions {
		if g.Contributions[i].ID == id {
			return i
		}
	}
	return -1
}

// HasRef reports whether the task already references the contribution.
func (t *Task) HasRef(id primitive.ObjectID) bool {
	for _, ref := range t.Contributions {
		if ref.ObjectID() == id {
			return true
		}
	}
	return false
}

// AddRef appends the reference unless it is already present.
func (t *Task) AddRef(id primitive.ObjectID) {
	if t.HasRef(id) {
		return
	}
	t.Contributions = append(t.Contributions, ContributionRef(id))
}

// RemoveRef drops every reference to the contribution.
func (t *Task) RemoveRef(id primitive.ObjectID) {
	kept := t.Contributions[:0]
	for _, ref := range t.Contributions {
		if ref.ObjectID() != id {
			kept = append(kept, ref)
		}
	}
	t.Contributions = kept
}

// Clone returns a deep copy so a failed operation never leaks partial edits
// into a goal another caller still holds.
func (g *CommunityGoal) Clone() *CommunityGoal {
	if g == nil {
		return nil
	}
	out := *g
	if g.Deadline != nil {
		d := *g.Deadline
		out.Deadline = &d
	}
	if g.Images != nil {
		out.Images = append(make([]string, 0, len(g.Images)), g.Images...)
	}
	out.Tasks = make([]Task, len(g.Tasks))
	for i, t := range g.Tasks {
		if t.Contributions != nil {
			t.Contributions = append(make([]ContributionRef, 0, len(t.Contributions)), t.Contributions...)
		}
		out.Tasks[i] = t
	}
	out.Contributions = make([]Contribution, len(g.Contributions))
	for i, c := range g.Contributions {
		out.Contributions[i] = c.clone()
	}
	return &out
}
