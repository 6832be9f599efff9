package ledger

import (
	"context"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ActivityCode identifies one of the five program stages.
type ActivityCode string

const (
	ActivityLearn   ActivityCode = "LEARN"
	ActivityExplore ActivityCode = "EXPLORE"
	ActivityAmplify ActivityCode = "AMPLIFY"
	ActivityPresent ActivityCode = "PRESENT"
	ActivityShine   ActivityCode = "SHINE"
)

func (a ActivityCode) Valid() bool {
	switch a {
	case ActivityLearn, ActivityExplore, ActivityAmplify, ActivityPresent, ActivityShine:
		return true
	default:
		return false
	}
}

type Source string

const (
	SourceForm    Source = "FORM"
	SourceWebhook Source = "WEBHOOK"
	SourceManual  Source = "MANUAL"
)

// Entry is one signed point delta in the append-only ledger. Rows are only
// ever inserted; a reversal is a second row with the negated delta.
// ExternalEventID is the idempotency key: at most one credit per logical
// real-world event.
type Entry struct {
	ID              string         `gorm:"column:id;primaryKey"`
	CreatedAt       time.Time      `gorm:"column:created_at"`
	ExternalEventID string         `gorm:"column:external_event_id;uniqueIndex;not null"`
	UserID          string         `gorm:"column:user_id;index;not null"`
	ActivityCode    ActivityCode   `gorm:"column:activity_code;type:varchar(16);not null"`
	Source          Source         `gorm:"column:source;type:varchar(16);not null"`
	DeltaPoints     int            `gorm:"column:delta_points;not null"`
	EventTime       time.Time      `gorm:"column:event_time;not null"`
	Meta            datatypes.JSON `gorm:"column:meta"`
}

func (Entry) TableName() string { return "points_ledger" }

type UserTotal struct {
	UserID string `gorm:"column:user_id" json:"user_id"`
	Points int64  `gorm:"column:points" json:"points"`
}

// SumForUser returns the user's current point total across all entries.
func SumForUser(ctx context.Context, tx *gorm.DB, userID string) (int64, error) {
	var total int64
	err := tx.WithContext(ctx).Model(&Entry{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(delta_points), 0)").
		Scan(&total).Error
	return total, err
}

// TopTotals returns the highest point totals, feeding the leaderboard.
func TopTotals(ctx context.Context, tx *gorm.DB, limit int) ([]UserTotal, error) {
	var totals []UserTotal
	err := tx.WithContext(ctx).Model(&Entry{}).
		Select("user_id, COALESCE(SUM(delta_points), 0) AS points").
		Group("user_id").
		Order("points DESC").
		Limit(limit).
		Scan(&totals).Error
	return totals, err
}
