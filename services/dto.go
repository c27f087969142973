package services

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	models "github.com/phillip/community-goals-go/models"
)

// SubmissionInput is the request body of the submit/update contribution route.
type SubmissionInput struct {
	ContributionType    string       `json:"contributionType"`
	TaskID              string       `json:"taskId"`
	Details             DetailsInput `json:"details"`
	ProofOfContribution []ProofInput `json:"proofOfContribution"`
}

type DetailsInput struct {
	SkillType       string   `json:"skillType"`
	Availability    string   `json:"availability"`
	ItemName        string   `json:"itemName"`
	Quantity        *float64 `json:"quantity"`
	ItemDescription string   `json:"itemDescription"`
	HoursCommitted  *float64 `json:"hoursCommitted"`
	Role            string   `json:"role"`
}

type ProofInput struct {
	FileType string `json:"fileType"`
	FileURL  string `json:"fileUrl"`
}

// VerifyInput is the request body of the verify route.
type VerifyInput struct {
	VerificationStatus string `json:"verificationStatus"`
	VerificationNotes  string `json:"verificationNotes"`
	Comment            string `json:"comment"`
}

type CommentInput struct {
	Text string `json:"text"`
}

type StatusInput struct {
	Status string `json:"status"`
}

type CreateGoalInput struct {
	Title        string      `json:"title"`
	Description  string      `json:"description"`
	GoalType     string      `json:"goalType"`
	TargetAmount float64     `json:"targetAmount"`
	Deadline     *time.Time  `json:"-"`
	Images       []string    `json:"images"`
	Tasks        []TaskInput `json:"tasks"`
}

type TaskInput struct {
	Title                  string  `json:"title"`
	TaskType               string  `json:"taskType"`
	QuantityNeeded         float64 `json:"quantityNeeded"`
	ContributionPercentage int     `json:"contributionPercentage"`
}

// Submission is a validated SubmissionInput. The pledge variant guarantees
// its own required field is present.
type Submission struct {
	Pledge Pledge
	TaskID primitive.ObjectID
	Proof  []models.Proof
}

// ParseSubmission validates the raw body and builds the typed submission.
func ParseSubmission(in SubmissionInput, now time.Time) (Submission, error) {
	var sub Submission

	pledge, err := parsePledge(models.ContributionType(strings.TrimSpace(in.ContributionType)), in.Details)
	if err != nil {
		return sub, err
	}
	sub.Pledge = pledge

	if taskID := strings.TrimSpace(in.TaskID); taskID != "" {
		oid, err := primitive.ObjectIDFromHex(taskID)
		if err != nil {
			return sub, validationErr("invalid taskId")
		}
		sub.TaskID = oid
	}

	for _, p := range in.ProofOfContribution {
		if strings.TrimSpace(p.FileURL) == "" {
			return sub, validationErr("proofOfContribution entries require fileUrl")
		}
		sub.Proof = append(sub.Proof, models.Proof{
			FileType:   p.FileType,
			FileURL:    p.FileURL,
			UploadedAt: now,
		})
	}
	return sub, nil
}

func parsePledge(kind models.ContributionType, d DetailsInput) (Pledge, error) {
	switch kind {
	case "":
		return nil, validationErr("contributionType is required")
	case models.ContributionSkill:
		if strings.TrimSpace(d.SkillType) == "" {
			return nil, validationErr("details.skillType is required for Skill contributions")
		}
		return SkillPledge{SkillType: d.SkillType, Availability: d.Availability}, nil
	case models.ContributionItem:
		if strings.TrimSpace(d.ItemName) == "" {
			return nil, validationErr("details.itemName is required for Item contributions")
		}
		qty, err := optionalPositive("details.quantity", d.Quantity)
		if err != nil {
			return nil, err
		}
		return ItemPledge{ItemName: d.ItemName, Quantity: qty, ItemDescription: d.ItemDescription}, nil
	case models.ContributionTime:
		if d.HoursCommitted == nil || *d.HoursCommitted == 0 {
			return nil, validationErr("details.hoursCommitted is required for Time contributions")
		}
		hours, err := optionalPositive("details.hoursCommitted", d.HoursCommitted)
		if err != nil {
			return nil, err
		}
		return TimePledge{HoursCommitted: hours, Role: d.Role}, nil
	default:
		return nil, validationErr("unrecognized contributionType %q", kind)
	}
}

func optionalPositive(field string, v *float64) (float64, error) {
	if v == nil {
		return 0, nil
	}
	if *v < 0 {
		return 0, validationErr("%s must not be negative", field)
	}
	return *v, nil
}
