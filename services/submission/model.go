package submission

import (
	"time"

	"gorm.io/datatypes"

	"leaps-platform/services/ledger"
)

type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
	StatusRevoked  Status = "REVOKED"
)

// Submission is one piece of evidence for a program stage. The payload shape
// depends on the activity code; field names follow the external snake_case
// contract.
type Submission struct {
	ID               string              `gorm:"column:id;primaryKey"`
	CreatedAt        time.Time           `gorm:"column:created_at"`
	UpdatedAt        time.Time           `gorm:"column:updated_at"`
	UserID           string              `gorm:"column:user_id;index;not null"`
	ActivityCode     ledger.ActivityCode `gorm:"column:activity_code;type:varchar(16);not null"`
	Status           Status              `gorm:"column:status;type:varchar(16);default:'PENDING';not null"`
	Payload          datatypes.JSON      `gorm:"column:payload"`
	ReviewerID       *string             `gorm:"column:reviewer_id"`
	ApprovalTimezone string              `gorm:"column:approval_timezone;type:varchar(64)"`
}

func (Submission) TableName() string { return "submissions" }

type Location struct {
	City string `json:"city,omitempty"`
}

// AmplifyPayload is the evidence shape for peer/student training sessions.
type AmplifyPayload struct {
	PeersTrained     int       `json:"peers_trained"`
	StudentsTrained  int       `json:"students_trained"`
	SessionDate      string    `json:"session_date"`
	SessionStartTime string    `json:"session_start_time,omitempty"`
	Location         *Location `json:"location,omitempty"`
}

func (p AmplifyPayload) City() string {
	if p.Location == nil {
		return ""
	}
	return p.Location.City
}
