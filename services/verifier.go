package services

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	models "github.com/phillip/community-goals-go/models"
)

// ParseDecision accepts only Approved or Rejected.
func ParseDecision(raw string) (models.VerificationStatus, error) {
	switch s := models.VerificationStatus(strings.TrimSpace(raw)); s {
	case models.VerificationApproved, models.VerificationRejected:
		return s, nil
	case "":
		return "", validationErr("verificationStatus is required")
	default:
		return "", validationErr("verificationStatus must be Approved or Rejected")
	}
}

// VerifyResult reports the contribution a verification touched.
type VerifyResult struct {
	Contribution models.Contribution
	Decision     models.VerificationStatus
}

// Verify applies the creator's decision to a contribution.
//
// Approving is an attestation only: progress was already counted at
// submission. Rejecting removes the contribution and undoes everything
// Reconcile did for it. Already decided contributions may be decided again.
func Verify(goal *models.CommunityGoal, contributionID primitive.ObjectID, decision models.VerificationStatus, verifier primitive.ObjectID, in VerifyInput, now time.Time) (VerifyResult, error) {
	var res VerifyResult
	if goal.Creator != verifier {
		return res, newError(ErrForbidden, "only the goal creator can verify contributions")
	}
	idx := goal.ContributionIndex(contributionID)
	if idx < 0 {
		return res, newError(ErrNotFound, "contribution not found")
	}
	res.Decision = decision

	switch decision {
	case models.VerificationApproved:
		c := &goal.Contributions[idx]
		v := verifier
		c.VerificationStatus = models.VerificationApproved
		c.VerifiedBy = &v
		c.VerificationDate = &now
		if notes := strings.TrimSpace(in.VerificationNotes); notes != "" {
			c.VerificationNotes = notes
		}
		if text := strings.TrimSpace(in.Comment); text != "" {
			c.Comments = append(c.Comments, models.Comment{Author: verifier, Text: text, CreatedAt: now})
		}
		c.UpdatedAt = now
		res.Contribution = *c
	case models.VerificationRejected:
		c := goal.Contributions[idx]
		rollbackTaskQuantity(goal, &c)
		if c.Task != nil {
			if task := goal.Task(*c.Task); task != nil {
				task.RemoveRef(c.ID)
			}
		}
		goal.Contributions = append(goal.Contributions[:idx], goal.Contributions[idx+1:]...)
		Aggregate(goal)
		c.VerificationStatus = models.VerificationRejected
		res.Contribution = c
	default:
		return res, validationErr("verificationStatus must be Approved or Rejected")
	}
	return res, nil
}

// AddComment appends a comment from the contributor or the goal creator.
func AddComment(goal *models.CommunityGoal, contributionID, author primitive.ObjectID, text string, now time.Time) (models.Contribution, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.Contribution{}, validationErr("comment text is required")
	}
	idx := goal.ContributionIndex(contributionID)
	if idx < 0 {
		return models.Contribution{}, newError(ErrNotFound, "contribution not found")
	}
	c := &goal.Contributions[idx]
	if author != c.User && author != goal.Creator {
		return models.Contribution{}, newError(ErrForbidden, "only the contributor or the goal creator can comment")
	}
	c.Comments = append(c.Comments, models.Comment{Author: author, Text: text, CreatedAt: now})
	c.UpdatedAt = now
	return *c, nil
}

// SetStatus is the creator's manual status change. Completed is reached only
// through Aggregate, and Completed or Cancelled goals are closed.
func SetStatus(goal *models.CommunityGoal, actor primitive.ObjectID, status models.GoalStatus) error {
	if goal.Creator != actor {
		return newError(ErrForbidden, "only the goal creator can change its status")
	}
	switch status {
	case models.GoalStatusActive, models.GoalStatusOnHold, models.GoalStatusCancelled:
	case models.GoalStatusCompleted:
		return validationErr("a goal is completed by its contributions, not manually")
	default:
		return validationErr("invalid status %q", status)
	}
	if goal.Status == models.GoalStatusCompleted || goal.Status == models.GoalStatusCancelled {
		return validationErr("goal is %s and can no longer change status", goal.Status)
	}
	goal.Status = status
	Aggregate(goal)
	return nil
}
