package services

import (
	"context"
	"sort"

	"go.mongodb.org/mongo-driver/bson/primitive"

	models "github.com/phillip/community-goals-go/models"
)

// GoalView is a goal with user references replaced by public profiles.
type GoalView struct {
	models.CommunityGoal
	Creator       models.Profile     `json:"creator"`
	Contributions []ContributionView `json:"contributions"`
}

type ContributionView struct {
	models.Contribution
	User       models.Profile  `json:"user"`
	VerifiedBy *models.Profile `json:"verifiedBy,omitempty"`
	Comments   []CommentView   `json:"comments"`
}

type CommentView struct {
	models.Comment
	Author models.Profile `json:"author"`
}

// Populate resolves every user reference on the goal in one directory call.
func (s *GoalService) Populate(ctx context.Context, goal *models.CommunityGoal) (*GoalView, error) {
	seen := map[primitive.ObjectID]bool{}
	var ids []primitive.ObjectID
	add := func(id primitive.ObjectID) {
		if id.IsZero() || seen[id] {
			return
		}
		seen[id] = true
		ids = append(ids, id)
	}
	add(goal.Creator)
	for _, c := range goal.Contributions {
		add(c.User)
		if c.VerifiedBy != nil {
			add(*c.VerifiedBy)
		}
		for _, cm := range c.Comments {
			add(cm.Author)
		}
	}

	profiles, err := s.users.Profiles(ctx, ids)
	if err != nil {
		return nil, newError(ErrPersistence, "could not resolve users")
	}
	profile := func(id primitive.ObjectID) models.Profile {
		if p, ok := profiles[id]; ok {
			return p
		}
		return models.Profile{ID: id}
	}

	view := &GoalView{
		CommunityGoal: *goal,
		Creator:       profile(goal.Creator),
		Contributions: make([]ContributionView, 0, len(goal.Contributions)),
	}
	for _, c := range goal.Contributions {
		cv := ContributionView{
			Contribution: c,
			User:         profile(c.User),
			Comments:     make([]CommentView, 0, len(c.Comments)),
		}
		if c.VerifiedBy != nil {
			p := profile(*c.VerifiedBy)
			cv.VerifiedBy = &p
		}
		for _, cm := range c.Comments {
			cv.Comments = append(cv.Comments, CommentView{Comment: cm, Author: profile(cm.Author)})
		}
		view.Contributions = append(view.Contributions, cv)
	}
	return view, nil
}

// ProfileStamps lists every distinct profile on the view as id:name:picture,
// sorted, so validators change when a joined user does.
func (v *GoalView) ProfileStamps() []string {
	seen := map[primitive.ObjectID]bool{}
	var out []string
	add := func(p models.Profile) {
		if seen[p.ID] {
			return
		}
		seen[p.ID] = true
		out = append(out, p.ID.Hex()+":"+p.Name+":"+p.Picture)
	}
	add(v.Creator)
	for _, c := range v.Contributions {
		add(c.User)
		if c.VerifiedBy != nil {
			add(*c.VerifiedBy)
		}
		for _, cm := range c.Comments {
			add(cm.Author)
		}
	}
	sort.Strings(out)
	return out
}
