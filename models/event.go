package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type GoalEventType string

const (
	EventContributionSubmitted GoalEventType = "contribution.submitted"
	EventContributionApproved  GoalEventType = "contribution.approved"
	EventContributionRejected  GoalEventType = "contribution.rejected"
	EventGoalCompleted         GoalEventType = "goal.completed"
)

// GoalEvent is published after a goal mutation has been persisted.
type GoalEvent struct {
	Type           GoalEventType      `json:"type"`
	GoalID         primitive.ObjectID `json:"goalId"`
	GoalTitle      string             `json:"goalTitle"`
	ContributionID primitive.ObjectID `json:"contributionId,omitzero"`
	Recipient      primitive.ObjectID `json:"recipient"`
	Actor          primitive.ObjectID `json:"actor"`
	TotalProgress  int                `json:"totalProgress"`
	Notes          string             `json:"notes,omitempty"`
	OccurredAt     time.Time          `json:"occurredAt"`
}
