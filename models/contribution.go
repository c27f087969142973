package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ContributionType string

const (
	ContributionSkill ContributionType = "Skill"
	ContributionItem  ContributionType = "Item"
	ContributionTime  ContributionType = "Time"
)

func (t ContributionType) Valid() bool {
	switch t {
	case ContributionSkill, ContributionItem, ContributionTime:
		return true
	}
	return false
}

type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "Pending"
	VerificationApproved VerificationStatus = "Approved"
	VerificationRejected VerificationStatus = "Rejected"
)

// ContributionDetails is the stored shape of the per-type payload. Which
// fields are meaningful depends on ContributionType.
type ContributionDetails struct {
	SkillType       string  `bson:"skill_type,omitempty" json:"skillType,omitempty"`
	Availability    string  `bson:"availability,omitempty" json:"availability,omitempty"`
	ItemName        string  `bson:"item_name,omitempty" json:"itemName,omitempty"`
	Quantity        float64 `bson:"quantity,omitempty" json:"quantity,omitempty"`
	ItemDescription string  `bson:"item_description,omitempty" json:"itemDescription,omitempty"`
	HoursCommitted  float64 `bson:"hours_committed,omitempty" json:"hoursCommitted,omitempty"`
	Role            string  `bson:"role,omitempty" json:"role,omitempty"`
}

type Proof struct {
	FileType   string    `bson:"file_type" json:"fileType"`
	FileURL    string    `bson:"file_url" json:"fileUrl"`
	UploadedAt time.Time `bson:"uploaded_at" json:"uploadedAt"`
}

type Comment struct {
	Author    primitive.ObjectID `bson:"author" json:"author"`
	Text      string             `bson:"text" json:"text"`
	CreatedAt time.Time          `bson:"created_at" json:"createdAt"`
}

type Contribution struct {
	ID                  primitive.ObjectID  `bson:"_id" json:"id"`
	User                primitive.ObjectID  `bson:"user" json:"user"`
	ContributionType    ContributionType    `bson:"contribution_type" json:"contributionType"`
	Task                *primitive.ObjectID `bson:"task,omitempty" json:"task,omitempty"`
	Details             ContributionDetails `bson:"details" json:"details"`
	ProofOfContribution []Proof             `bson:"proof_of_contribution" json:"proofOfContribution"`
	VerificationStatus  VerificationStatus  `bson:"verification_status" json:"verificationStatus"`
	Percentage          int                 `bson:"percentage" json:"percentage"`
	// TaskQuantityApplied is the post-clamp amount this contribution added to
	// its task's QuantityFulfilled.
	TaskQuantityApplied *float64            `bson:"task_quantity_applied,omitempty" json:"-"`
	VerifiedBy          *primitive.ObjectID `bson:"verified_by,omitempty" json:"verifiedBy,omitempty"`
	VerificationDate    *time.Time          `bson:"verification_date,omitempty" json:"verificationDate,omitempty"`
	VerificationNotes   string              `bson:"verification_notes,omitempty" json:"verificationNotes,omitempty"`
	Comments            []Comment           `bson:"comments" json:"comments"`
	CreatedAt           time.Time           `bson:"created_at" json:"createdAt"`
	UpdatedAt           time.Time           `bson:"updated_at" json:"updatedAt"`
}

// TaskID returns the referenced task id, or the zero id for a general contribution.
func (c *Contribution) TaskID() primitive.ObjectID {
	if c.Task == nil {
		return primitive.NilObjectID
	}
	return *c.Task
}

func (c Contribution) clone() Contribution {
	out := c
	if c.Task != nil {
		id := *c.Task
		out.Task = &id
	}
	if c.TaskQuantityApplied != nil {
		q := *c.TaskQuantityApplied
		out.TaskQuantityApplied = &q
	}
	if c.VerifiedBy != nil {
		id := *c.VerifiedBy
		out.VerifiedBy = &id
	}
	if c.VerificationDate != nil {
		d := *c.VerificationDate
		out.VerificationDate = &d
	}
	if c.ProofOfContribution != nil {
		out.ProofOfContribution = append(make([]Proof, 0, len(c.ProofOfContribution)), c.ProofOfContribution...)
	}
	if c.Comments != nil {
		out.Comments = append(make([]Comment, 0, len(c.Comments)), c.Comments...)
	}
	return out
}
