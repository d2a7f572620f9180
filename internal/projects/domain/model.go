package domain

import "time"

// Stage is the project's position in the delivery pipeline. Stages move
// forward through the pipeline except for the permitted build/review
// cycle driven by modification requests.
type Stage string

const (
	StageOnboarding Stage = "onboarding"
	StageDesign     Stage = "design"
	StageBuild      Stage = "build"
	StageReview     Stage = "review"
	StageDelivered  Stage = "delivered"
)

// BriefStatus is the approval state of a single brief version. Only the
// latest version of a project's brief may change status.
type BriefStatus string

const (
	BriefSent     BriefStatus = "sent"
	BriefApproved BriefStatus = "approved"
	BriefRejected BriefStatus = "rejected"
)

// Project is a client engagement owned by exactly one contact. Stage and
// delivered_at are mutated only through the workflow service.
type Project struct {
	ID          string     `json:"id"`
	OwnerID     string     `json:"owner_id"`
	Name        string     `json:"name"`
	Stage       Stage      `json:"stage"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Brief is one immutable version of a project's scope document. Versions
// are per-project, start at 1 and strictly increase; a version number is
// never reused, even after rejection.
type Brief struct {
	ID            string      `json:"id"`
	ProjectID     string      `json:"project_id"`
	Version       int         `json:"version"`
	Content       string      `json:"content"`
	Status        BriefStatus `json:"status"`
	ClientComment string      `json:"client_comment,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}
