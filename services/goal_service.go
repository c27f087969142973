package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/phillip/community-goals-go/logger"
	models "github.com/phillip/community-goals-go/models"
	"github.com/phillip/community-goals-go/repository"
)

const defaultMaxRetries = 3

// GoalService runs every goal mutation as load, mutate, save. Work on one goal
// is serialised inside the process, and the store's version check catches
// writers in other processes; a conflicting save reloads and reapplies.
type GoalService struct {
	store      repository.GoalStore
	users      repository.UserDirectory
	notifier   Notifier
	log        *logger.Logger
	locks      *keyedMutex
	maxRetries int

	Now func() time.Time
}

func NewGoalService(store repository.GoalStore, users repository.UserDirectory, notifier Notifier, log *logger.Logger, maxRetries int) *GoalService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if log == nil {
		log = logger.Nop()
	}
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	return &GoalService{
		store:      store,
		users:      users,
		notifier:   notifier,
		log:        log.With("service", "GoalService"),
		locks:      newKeyedMutex(),
		maxRetries: maxRetries,
		Now:        time.Now,
	}
}

// ---------------- GOALS ----------------

func (s *GoalService) CreateGoal(ctx context.Context, creator primitive.ObjectID, in CreateGoalInput) (*models.CommunityGoal, error) {
	if err := s.requireUser(ctx, creator); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, validationErr("title is required")
	}

	tasks := make([]models.Task, 0, len(in.Tasks))
	for i, t := range in.Tasks {
		kind := models.ContributionType(t.TaskType)
		if !kind.Valid() {
			return nil, validationErr("tasks[%d].taskType must be Skill, Item or Time", i)
		}
		if t.QuantityNeeded <= 0 {
			return nil, validationErr("tasks[%d].quantityNeeded must be positive", i)
		}
		if t.ContributionPercentage < 0 || t.ContributionPercentage > maxProgress {
			return nil, validationErr("tasks[%d].contributionPercentage must be between 0 and 100", i)
		}
		tasks = append(tasks, models.Task{
			ID:                     primitive.NewObjectID(),
			Title:                  strings.TrimSpace(t.Title),
			TaskType:               kind,
			QuantityNeeded:         t.QuantityNeeded,
			ContributionPercentage: t.ContributionPercentage,
			Contributions:          []models.ContributionRef{},
		})
	}

	now := s.Now()
	goal := &models.CommunityGoal{
		ID:            primitive.NewObjectID(),
		Creator:       creator,
		Title:         title,
		Description:   in.Description,
		GoalType:      in.GoalType,
		TargetAmount:  in.TargetAmount,
		Deadline:      in.Deadline,
		Images:        append([]string{}, in.Images...),
		Status:        models.GoalStatusActive,
		Tasks:         tasks,
		Contributions: []models.Contribution{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.store.Create(ctx, goal); err != nil {
		s.log.Error("create goal", "error", err, "user_id", creator.Hex())
		return nil, newError(ErrPersistence, "could not create goal")
	}
	return goal, nil
}

func (s *GoalService) GetGoal(ctx context.Context, id primitive.ObjectID) (*models.CommunityGoal, error) {
	goal, err := s.store.Load(ctx, id)
	if errors.Is(err, repository.ErrGoalNotFound) {
		return nil, newError(ErrNotFound, "goal not found")
	}
	if err != nil {
		s.log.Error("load goal", "error", err, "goal_id", id.Hex())
		return nil, newError(ErrPersistence, "could not load goal")
	}
	return goal, nil
}

func (s *GoalService) ListGoals(ctx context.Context, filter repository.GoalFilter) ([]models.CommunityGoal, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, validationErr("invalid status %q", filter.Status)
	}
	goals, err := s.store.List(ctx, filter)
	if err != nil {
		s.log.Error("list goals", "error", err)
		return nil, newError(ErrPersistence, "could not fetch goals")
	}
	return goals, nil
}

func (s *GoalService) UpdateStatus(ctx context.Context, goalID, actor primitive.ObjectID, in StatusInput) (*models.CommunityGoal, error) {
	status := models.GoalStatus(strings.TrimSpace(in.Status))
	return s.mutate(ctx, goalID, func(goal *models.CommunityGoal) error {
		return SetStatus(goal, actor, status)
	})
}

// ---------------- CONTRIBUTIONS ----------------

// SubmitContribution creates or overwrites the caller's contribution.
func (s *GoalService) SubmitContribution(ctx context.Context, goalID, user primitive.ObjectID, in SubmissionInput) (*models.CommunityGoal, error) {
	sub, err := ParseSubmission(in, s.Now())
	if err != nil {
		return nil, err
	}
	if err := s.requireUser(ctx, user); err != nil {
		return nil, err
	}

	var res ReconcileResult
	goal, err := s.mutate(ctx, goalID, func(goal *models.CommunityGoal) error {
		var err error
		res, err = Reconcile(goal, user, sub, s.Now())
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("contribution reconciled",
		"goal_id", goalID.Hex(),
		"contribution_id", res.ContributionID.Hex(),
		"user_id", user.Hex(),
		"replaced", res.Replaced,
		"total_progress", goal.TotalProgress,
	)
	s.emit(ctx, goal, models.EventContributionSubmitted, res.ContributionID, goal.Creator, user, "")
	if res.Completed {
		s.emit(ctx, goal, models.EventGoalCompleted, primitive.NilObjectID, goal.Creator, user, "")
	}
	return goal, nil
}

// VerifyContribution approves or rejects a contribution on behalf of the goal creator.
func (s *GoalService) VerifyContribution(ctx context.Context, goalID, contributionID, verifier primitive.ObjectID, in VerifyInput) (*models.CommunityGoal, error) {
	decision, err := ParseDecision(in.VerificationStatus)
	if err != nil {
		return nil, err
	}
	if err := s.requireUser(ctx, verifier); err != nil {
		return nil, err
	}

	var res VerifyResult
	goal, err := s.mutate(ctx, goalID, func(goal *models.CommunityGoal) error {
		var err error
		res, err = Verify(goal, contributionID, decision, verifier, in, s.Now())
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("contribution verified",
		"goal_id", goalID.Hex(),
		"contribution_id", contributionID.Hex(),
		"user_id", verifier.Hex(),
		"decision", decision,
		"total_progress", goal.TotalProgress,
	)
	event := models.EventContributionApproved
	if decision == models.VerificationRejected {
		event = models.EventContributionRejected
	}
	s.emit(ctx, goal, event, contributionID, res.Contribution.User, verifier, res.Contribution.VerificationNotes)
	return goal, nil
}

func (s *GoalService) CommentOnContribution(ctx context.Context, goalID, contributionID, author primitive.ObjectID, in CommentInput) (*models.CommunityGoal, error) {
	if err := s.requireUser(ctx, author); err != nil {
		return nil, err
	}
	return s.mutate(ctx, goalID, func(goal *models.CommunityGoal) error {
		_, err := AddComment(goal, contributionID, author, in.Text, s.Now())
		return err
	})
}

// mutate loads the goal, applies fn and saves, retrying on version conflicts.
// fn always sees a freshly loaded copy, so a failed attempt leaves nothing behind.
func (s *GoalService) mutate(ctx context.Context, goalID primitive.ObjectID, fn func(goal *models.CommunityGoal) error) (*models.CommunityGoal, error) {
	unlock := s.locks.Lock(goalID.Hex())
	defer unlock()

	for attempt := 1; ; attempt++ {
		goal, err := s.GetGoal(ctx, goalID)
		if err != nil {
			return nil, err
		}
		if err := fn(goal); err != nil {
			return nil, err
		}
		goal.UpdatedAt = s.Now()

		err = s.store.Save(ctx, goal)
		if err == nil {
			return goal, nil
		}
		if !errors.Is(err, repository.ErrVersionConflict) {
			s.log.Error("save goal", "error", err, "goal_id", goalID.Hex())
			return nil, newError(ErrPersistence, "could not save goal")
		}
		if attempt >= s.maxRetries {
			s.log.Error("save goal: retries exhausted", "goal_id", goalID.Hex(), "attempts", attempt)
			return nil, newError(ErrPersistence, "goal is being updated by someone else, please retry")
		}
		s.log.Warn("save goal: version conflict, retrying", "goal_id", goalID.Hex(), "attempt", attempt)
	}
}

func (s *GoalService) requireUser(ctx context.Context, id primitive.ObjectID) error {
	if id.IsZero() {
		return newError(ErrUnauthenticated, "unauthorized")
	}
	_, err := s.users.Get(ctx, id)
	if errors.Is(err, repository.ErrUserNotFound) {
		return newError(ErrNotFound, "user not found")
	}
	if err != nil {
		s.log.Error("load user", "error", err, "user_id", id.Hex())
		return newError(ErrPersistence, "could not load user")
	}
	return nil
}

func (s *GoalService) emit(ctx context.Context, goal *models.CommunityGoal, kind models.GoalEventType, contributionID, recipient, actor primitive.ObjectID, notes string) {
	s.notifier.Notify(ctx, models.GoalEvent{
		Type:           kind,
		GoalID:         goal.ID,
		GoalTitle:      goal.Title,
		ContributionID: contributionID,
		Recipient:      recipient,
		Actor:          actor,
		TotalProgress:  goal.TotalProgress,
		Notes:          notes,
		OccurredAt:     s.Now(),
	})
}
