package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	models "github.com/phillip/community-goals-go/models"
	"github.com/phillip/community-goals-go/repository"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []models.GoalEvent
}

func (r *recordingNotifier) Notify(_ context.Context, e models.GoalEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingNotifier) types() []models.GoalEventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.GoalEventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

// conflictingStore fails the first n saves with a version conflict.
type conflictingStore struct {
	repository.GoalStore
	mu        sync.Mutex
	conflicts int
	saves     int
}

func (s *conflictingStore) Save(ctx context.Context, goal *models.CommunityGoal) error {
	s.mu.Lock()
	s.saves++
	if s.conflicts > 0 {
		s.conflicts--
		s.mu.Unlock()
		return repository.ErrVersionConflict
	}
	s.mu.Unlock()
	return s.GoalStore.Save(ctx, goal)
}

type serviceEnv struct {
	svc      *GoalService
	store    *repository.MemoryGoalStore
	users    *repository.MemoryUserDirectory
	notifier *recordingNotifier
	creator  primitive.ObjectID
}

func newServiceEnv(t *testing.T) *serviceEnv {
	t.Helper()
	env := &serviceEnv{
		store:    repository.NewMemoryGoalStore(),
		users:    repository.NewMemoryUserDirectory(),
		notifier: &recordingNotifier{},
		creator:  primitive.NewObjectID(),
	}
	env.users.Put(models.User{ID: env.creator, Name: "Creator", Email: "creator@example.com"})
	env.svc = NewGoalService(env.store, env.users, env.notifier, nil, 3)
	env.svc.Now = func() time.Time { return testNow }
	return env
}

func (e *serviceEnv) newUser(name string) primitive.ObjectID {
	id := primitive.NewObjectID()
	e.users.Put(models.User{ID: id, Name: name})
	return id
}

func (e *serviceEnv) createGoal(t *testing.T, tasks ...TaskInput) *models.CommunityGoal {
	t.Helper()
	goal, err := e.svc.CreateGoal(context.Background(), e.creator, CreateGoalInput{Title: "Textbook swap", Tasks: tasks})
	if err != nil {
		t.Fatalf("CreateGoal: %v", err)
	}
	return goal
}

func TestCreateGoalValidation(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()

	cases := []CreateGoalInput{
		{Title: "  "},
		{Title: "x", Tasks: []TaskInput{{TaskType: "Money", QuantityNeeded: 1}}},
		{Title: "x", Tasks: []TaskInput{{TaskType: "Item", QuantityNeeded: 0}}},
		{Title: "x", Tasks: []TaskInput{{TaskType: "Item", QuantityNeeded: 1, ContributionPercentage: 101}}},
	}
	for i, in := range cases {
		if _, err := env.svc.CreateGoal(ctx, env.creator, in); !errors.Is(err, ErrValidation) {
			t.Errorf("case %d: err = %v, want ErrValidation", i, err)
		}
	}
	if _, err := env.svc.CreateGoal(ctx, primitive.NewObjectID(), CreateGoalInput{Title: "x"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown creator: err = %v, want ErrNotFound", err)
	}

	goal := env.createGoal(t, TaskInput{Title: "Chairs", TaskType: "Item", QuantityNeeded: 10, ContributionPercentage: 8})
	if goal.Status != models.GoalStatusActive || goal.Version != 1 || len(goal.Tasks) != 1 {
		t.Fatalf("unexpected goal %+v", goal)
	}
}

func TestSubmitContributionPersistsAndNotifies(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()
	goal := env.createGoal(t)
	user := env.newUser("Amina")

	updated, err := env.svc.SubmitContribution(ctx, goal.ID, user, SubmissionInput{
		ContributionType: "Time",
		Details:          DetailsInput{HoursCommitted: f(5)},
	})
	if err != nil {
		t.Fatalf("SubmitContribution: %v", err)
	}
	if updated.TotalProgress != 15 || updated.Version != 2 {
		t.Fatalf("progress=%d version=%d, want 15/2", updated.TotalProgress, updated.Version)
	}

	stored, err := env.store.Load(ctx, goal.ID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if stored.TotalProgress != 15 || len(stored.Contributions) != 1 {
		t.Fatalf("stored progress=%d contributions=%d", stored.TotalProgress, len(stored.Contributions))
	}

	got := env.notifier.types()
	if len(got) != 1 || got[0] != models.EventContributionSubmitted {
		t.Fatalf("events = %v", got)
	}
	if e := env.notifier.events[0]; e.Recipient != env.creator || e.Actor != user {
		t.Fatalf("event routed to %s from %s", e.Recipient.Hex(), e.Actor.Hex())
	}
}

func TestSubmitContributionErrors(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()
	goal := env.createGoal(t)
	user := env.newUser("Ben")

	if _, err := env.svc.SubmitContribution(ctx, primitive.NewObjectID(), user, skill()); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing goal: err = %v, want ErrNotFound", err)
	}
	if _, err := env.svc.SubmitContribution(ctx, goal.ID, primitive.NewObjectID(), skill()); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing user: err = %v, want ErrNotFound", err)
	}
	if _, err := env.svc.SubmitContribution(ctx, goal.ID, primitive.NilObjectID, skill()); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("anonymous: err = %v, want ErrUnauthenticated", err)
	}
	if _, err := env.svc.SubmitContribution(ctx, goal.ID, user, SubmissionInput{ContributionType: "Skill"}); !errors.Is(err, ErrValidation) {
		t.Errorf("invalid body: err = %v, want ErrValidation", err)
	}

	if _, err := env.svc.UpdateStatus(ctx, goal.ID, env.creator, StatusInput{Status: "OnHold"}); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if _, err := env.svc.SubmitContribution(ctx, goal.ID, user, skill()); !errors.Is(err, ErrNotActive) {
		t.Errorf("on hold: err = %v, want ErrNotActive", err)
	}
	if len(env.notifier.types()) != 0 {
		t.Errorf("failed submissions emitted events: %v", env.notifier.types())
	}
}

func TestConcurrentSubmissionsAreAllCounted(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()
	goal := env.createGoal(t, TaskInput{Title: "Books", TaskType: "Item", QuantityNeeded: 100, ContributionPercentage: 1})
	taskID := goal.Tasks[0].ID.Hex()

	const n = 20
	users := make([]primitive.ObjectID, n)
	for i := range users {
		users[i] = env.newUser("student")
	}

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for _, u := range users {
		wg.Add(1)
		go func(u primitive.ObjectID) {
			defer wg.Done()
			_, err := env.svc.SubmitContribution(ctx, goal.ID, u, SubmissionInput{
				ContributionType: "Item",
				TaskID:           taskID,
				Details:          DetailsInput{ItemName: "Book", Quantity: f(2)},
			})
			errs <- err
		}(u)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("SubmitContribution: %v", err)
		}
	}

	stored, err := env.store.Load(ctx, goal.ID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(stored.Contributions) != n {
		t.Fatalf("contributions = %d, want %d", len(stored.Contributions), n)
	}
	if stored.Tasks[0].QuantityFulfilled != 2*n {
		t.Fatalf("quantityFulfilled = %v, want %d", stored.Tasks[0].QuantityFulfilled, 2*n)
	}
	if stored.TotalProgress != n {
		t.Fatalf("progress = %d, want %d", stored.TotalProgress, n)
	}
	if len(stored.Tasks[0].Contributions) != n {
		t.Fatalf("task refs = %d, want %d", len(stored.Tasks[0].Contributions), n)
	}
}

func TestMutateRetriesVersionConflicts(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()
	goal := env.createGoal(t)
	user := env.newUser("Chi")

	store := &conflictingStore{GoalStore: env.store, conflicts: 2}
	svc := NewGoalService(store, env.users, nil, nil, 3)

	updated, err := svc.SubmitContribution(ctx, goal.ID, user, skill())
	if err != nil {
		t.Fatalf("SubmitContribution: %v", err)
	}
	if store.saves != 3 {
		t.Fatalf("saves = %d, want 3", store.saves)
	}
	if updated.TotalProgress != 15 || len(updated.Contributions) != 1 {
		t.Fatalf("retry duplicated work: progress=%d contributions=%d", updated.TotalProgress, len(updated.Contributions))
	}

	store.conflicts = 5
	if _, err := svc.SubmitContribution(ctx, goal.ID, user, skill()); !errors.Is(err, ErrPersistence) {
		t.Fatalf("exhausted retries: err = %v, want ErrPersistence", err)
	}
}

func TestVerifyContributionFlow(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()
	goal := env.createGoal(t, TaskInput{Title: "Chairs", TaskType: "Item", QuantityNeeded: 10, ContributionPercentage: 8})
	user := env.newUser("Dee")

	submitted, err := env.svc.SubmitContribution(ctx, goal.ID, user, SubmissionInput{
		ContributionType: "Item",
		TaskID:           goal.Tasks[0].ID.Hex(),
		Details:          DetailsInput{ItemName: "Chair", Quantity: f(4)},
	})
	if err != nil {
		t.Fatalf("SubmitContribution: %v", err)
	}
	cid := submitted.Contributions[0].ID

	if _, err := env.svc.VerifyContribution(ctx, goal.ID, cid, user, VerifyInput{VerificationStatus: "Approved"}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("contributor verify: err = %v, want ErrForbidden", err)
	}
	if _, err := env.svc.VerifyContribution(ctx, goal.ID, cid, env.creator, VerifyInput{VerificationStatus: "Maybe"}); !errors.Is(err, ErrValidation) {
		t.Fatalf("bad decision: err = %v, want ErrValidation", err)
	}

	rejected, err := env.svc.VerifyContribution(ctx, goal.ID, cid, env.creator, VerifyInput{VerificationStatus: "Rejected"})
	if err != nil {
		t.Fatalf("VerifyContribution: %v", err)
	}
	if rejected.TotalProgress != 0 || rejected.Tasks[0].QuantityFulfilled != 0 || len(rejected.Contributions) != 0 {
		t.Fatalf("reject did not roll back: %+v", rejected)
	}

	got := env.notifier.types()
	want := []models.GoalEventType{models.EventContributionSubmitted, models.EventContributionRejected}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("events = %v, want %v", got, want)
	}
	if e := env.notifier.events[1]; e.Recipient != user || e.ContributionID != cid {
		t.Fatalf("rejection event = %+v", e)
	}
}

func TestGoalCompletionEmitsEvent(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()
	goal := env.createGoal(t)

	for i := 0; i < 7; i++ {
		if _, err := env.svc.SubmitContribution(ctx, goal.ID, env.newUser("s"), skill()); err != nil {
			t.Fatalf("SubmitContribution %d: %v", i, err)
		}
	}
	completed := 0
	for _, typ := range env.notifier.types() {
		if typ == models.EventGoalCompleted {
			completed++
		}
	}
	if completed != 1 {
		t.Fatalf("goal.completed events = %d, want 1", completed)
	}
	if _, err := env.svc.SubmitContribution(ctx, goal.ID, env.newUser("late"), skill()); !errors.Is(err, ErrNotActive) {
		t.Fatalf("completed goal: err = %v, want ErrNotActive", err)
	}
}

func TestPopulateResolvesProfiles(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()
	goal := env.createGoal(t)
	user := env.newUser("Efe")

	updated, err := env.svc.SubmitContribution(ctx, goal.ID, user, skill())
	if err != nil {
		t.Fatalf("SubmitContribution: %v", err)
	}
	updated, err = env.svc.CommentOnContribution(ctx, goal.ID, updated.Contributions[0].ID, env.creator, CommentInput{Text: "welcome"})
	if err != nil {
		t.Fatalf("CommentOnContribution: %v", err)
	}

	view, err := env.svc.Populate(ctx, updated)
	if err != nil {
		t.Fatalf("Populate: %v", err)
	}
	if view.Creator.Name != "Creator" {
		t.Fatalf("creator = %+v", view.Creator)
	}
	if len(view.Contributions) != 1 || view.Contributions[0].User.Name != "Efe" {
		t.Fatalf("contributions = %+v", view.Contributions)
	}
	if cm := view.Contributions[0].Comments; len(cm) != 1 || cm[0].Author.Name != "Creator" {
		t.Fatalf("comments = %+v", cm)
	}
}
