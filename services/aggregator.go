package services

import models "github.com/phillip/community-goals-go/models"

const maxProgress = 100

// Aggregate recomputes TotalProgress from the contribution list and moves an
// Active goal to Completed once it reaches 100. It is the only writer of
// TotalProgress. Completed goals are never moved back to Active.
// It reports whether this call completed the goal.
func Aggregate(goal *models.CommunityGoal) bool {
	sum := 0
	for _, c := range goal.Contributions {
		sum += c.Percentage
	}
	if sum > maxProgress {
		sum = maxProgress
	}
	if sum < 0 {
		sum = 0
	}
	goal.TotalProgress = sum

	if goal.TotalProgress >= maxProgress && goal.Status == models.GoalStatusActive {
		goal.Status = models.GoalStatusCompleted
		return true
	}
	return false
}
