package services

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	models "github.com/phillip/community-goals-go/models"
)

// ReconcileResult describes what a Reconcile call did to the goal.
type ReconcileResult struct {
	ContributionID primitive.ObjectID
	Replaced       bool
	Completed      bool
}

// Reconcile applies a submission from user to goal in memory.
//
// A user holds at most one general contribution per goal and one contribution
// per task; a repeat submission in the same scope overwrites the earlier entry
// in place, keeps its id and resets it to Pending. When a task-scoped entry is
// overwritten its earlier task quantity is rolled back before the new one is
// applied.
func Reconcile(goal *models.CommunityGoal, user primitive.ObjectID, sub Submission, now time.Time) (ReconcileResult, error) {
	var res ReconcileResult
	if goal.Status != models.GoalStatusActive {
		return res, newError(ErrNotActive, "goal is not accepting contributions (status %s)", goal.Status)
	}

	percentage, update, err := Classify(goal, sub)
	if err != nil {
		return res, err
	}

	idx := findScoped(goal, user, sub.TaskID)
	if idx >= 0 {
		rollbackTaskQuantity(goal, &goal.Contributions[idx])
	}

	var applied *float64
	var task *models.Task
	if update != nil {
		task = goal.Task(update.TaskID)
		before := task.QuantityFulfilled
		task.QuantityFulfilled = clampQuantity(before+update.Delta, task.QuantityNeeded)
		a := task.QuantityFulfilled - before
		applied = &a
	}

	var taskRef *primitive.ObjectID
	if !sub.TaskID.IsZero() {
		id := sub.TaskID
		taskRef = &id
	}

	if idx >= 0 {
		c := &goal.Contributions[idx]
		c.ContributionType = sub.Pledge.Type()
		c.Task = taskRef
		c.Details = sub.Pledge.details()
		c.ProofOfContribution = sub.Proof
		c.Percentage = percentage
		c.TaskQuantityApplied = applied
		c.VerificationStatus = models.VerificationPending
		c.VerifiedBy = nil
		c.VerificationDate = nil
		c.VerificationNotes = ""
		c.UpdatedAt = now
		res.ContributionID = c.ID
		res.Replaced = true
	} else {
		c := models.Contribution{
			ID:                  primitive.NewObjectID(),
			User:                user,
			ContributionType:    sub.Pledge.Type(),
			Task:                taskRef,
			Details:             sub.Pledge.details(),
			ProofOfContribution: sub.Proof,
			VerificationStatus:  models.VerificationPending,
			Percentage:          percentage,
			TaskQuantityApplied: applied,
			Comments:            []models.Comment{},
			CreatedAt:           now,
			UpdatedAt:           now,
		}
		goal.Contributions = append(goal.Contributions, c)
		res.ContributionID = c.ID
	}

	if task != nil {
		task.AddRef(res.ContributionID)
	}

	res.Completed = Aggregate(goal)
	return res, nil
}

// findScoped locates the user's contribution in the given scope. A zero
// taskID is the general (task-less) scope.
func findScoped(goal *models.CommunityGoal, user, taskID primitive.ObjectID) int {
	for i := range goal.Contributions {
		c := &goal.Contributions[i]
		if c.User == user && c.TaskID() == taskID {
			return i
		}
	}
	return -1
}

// rollbackTaskQuantity undoes the task quantity a contribution added. It
// prefers the recorded applied amount and falls back to the per-type rule.
func rollbackTaskQuantity(goal *models.CommunityGoal, c *models.Contribution) {
	if c.Task == nil {
		return
	}
	task := goal.Task(*c.Task)
	if task == nil {
		return
	}
	delta := PledgeMagnitude(c)
	if c.TaskQuantityApplied != nil {
		delta = *c.TaskQuantityApplied
	}
	task.QuantityFulfilled = clampQuantity(task.QuantityFulfilled-delta, task.QuantityNeeded)
	c.TaskQuantityApplied = nil
}
