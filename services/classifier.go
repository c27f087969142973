package services

import (
	"math"

	"go.mongodb.org/mongo-driver/bson/primitive"

	models "github.com/phillip/community-goals-go/models"
)

const (
	// MaxContributionPercentage caps what any single contribution may add to a goal.
	MaxContributionPercentage = 25

	skillPercentage  = 15
	itemPercentRate  = 2
	itemPercentCap   = 20
	timePercentRate  = 3
	timePercentCap   = 25
	defaultMagnitude = 1.0
)

// Pledge is one of SkillPledge, ItemPledge or TimePledge.
type Pledge interface {
	Type() models.ContributionType
	// Magnitude is the amount a pledge adds to a task's fulfilled quantity.
	Magnitude() float64
	generalPercentage() int
	details() models.ContributionDetails
}

type SkillPledge struct {
	SkillType    string
	Availability string
}

func (SkillPledge) Type() models.ContributionType { return models.ContributionSkill }
func (SkillPledge) Magnitude() float64            { return 1 }
func (SkillPledge) generalPercentage() int        { return skillPercentage }
func (p SkillPledge) details() models.ContributionDetails {
	return models.ContributionDetails{SkillType: p.SkillType, Availability: p.Availability}
}

// ItemPledge Quantity of zero means "not given" and counts as one.
type ItemPledge struct {
	ItemName        string
	Quantity        float64
	ItemDescription string
}

func (ItemPledge) Type() models.ContributionType { return models.ContributionItem }
func (p ItemPledge) Magnitude() float64          { return orOne(p.Quantity) }
func (p ItemPledge) generalPercentage() int {
	return percent(itemPercentRate*p.Magnitude(), itemPercentCap)
}
func (p ItemPledge) details() models.ContributionDetails {
	return models.ContributionDetails{ItemName: p.ItemName, Quantity: p.Quantity, ItemDescription: p.ItemDescription}
}

type TimePledge struct {
	HoursCommitted float64
	Role           string
}

func (TimePledge) Type() models.ContributionType { return models.ContributionTime }
func (p TimePledge) Magnitude() float64          { return orOne(p.HoursCommitted) }
func (p TimePledge) generalPercentage() int {
	return percent(timePercentRate*p.Magnitude(), timePercentCap)
}
func (p TimePledge) details() models.ContributionDetails {
	return models.ContributionDetails{HoursCommitted: p.HoursCommitted, Role: p.Role}
}

// TaskUpdate describes the effect of a task-scoped submission on its task.
type TaskUpdate struct {
	TaskID            primitive.ObjectID
	Delta             float64
	QuantityFulfilled float64
}

// Classify scores a submission against a goal. It never mutates the goal.
func Classify(goal *models.CommunityGoal, sub Submission) (int, *TaskUpdate, error) {
	if sub.Pledge == nil {
		return 0, nil, validationErr("contributionType is required")
	}
	if sub.TaskID.IsZero() {
		return capPercentage(sub.Pledge.generalPercentage()), nil, nil
	}

	task := goal.Task(sub.TaskID)
	if task == nil {
		return 0, nil, validationErr("task %s does not exist on this goal", sub.TaskID.Hex())
	}
	delta := sub.Pledge.Magnitude()
	update := &TaskUpdate{
		TaskID:            task.ID,
		Delta:             delta,
		QuantityFulfilled: clampQuantity(task.QuantityFulfilled+delta, task.QuantityNeeded),
	}
	return capPercentage(task.ContributionPercentage), update, nil
}

// PledgeMagnitude rebuilds the task delta rule from stored details, for
// contributions persisted without a recorded applied quantity.
func PledgeMagnitude(c *models.Contribution) float64 {
	switch c.ContributionType {
	case models.ContributionItem:
		return orOne(c.Details.Quantity)
	case models.ContributionTime:
		return orOne(c.Details.HoursCommitted)
	default:
		return 1
	}
}

func capPercentage(p int) int {
	if p > MaxContributionPercentage {
		return MaxContributionPercentage
	}
	if p < 0 {
		return 0
	}
	return p
}

func clampQuantity(v, need float64) float64 {
	return math.Max(0, math.Min(need, v))
}

// percent rounds v to a whole percentage no larger than ceiling. The ceiling
// is checked before the int conversion, which overflows for huge pledges.
func percent(v float64, ceiling int) int {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	if v >= float64(ceiling) {
		return ceiling
	}
	return int(math.Round(v))
}

func orOne(v float64) float64 {
	if v <= 0 {
		return defaultMagnitude
	}
	return v
}
