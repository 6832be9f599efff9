package audit

import (
	"context"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	ActionSubmissionApproved = "submission.approved"
	ActionSubmissionRevoked  = "submission.revoked"
)

type Log struct {
	ID        string         `gorm:"column:id;primaryKey"`
	CreatedAt time.Time      `gorm:"column:created_at"`
	ActorID   string         `gorm:"column:actor_id;index;not null"`
	Action    string         `gorm:"column:action;type:varchar(64);not null"`
	TargetID  string         `gorm:"column:target_id;index"`
	Meta      datatypes.JSON `gorm:"column:meta"`
}

func (Log) TableName() string { return "audit_log" }

// Record appends one audit row inside the caller's transaction.
func Record(ctx context.Context, tx *gorm.DB, entry *Log) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	return tx.WithContext(ctx).Create(entry).Error
}
