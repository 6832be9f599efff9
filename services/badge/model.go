package badge

import (
	"time"
)

// Badge codes granted by the engine. New badges get a row in Rules, not new
// control flow.
const (
	CodeStarter   = "STARTER"
	CodeExplorer  = "EXPLORER"
	CodePresenter = "PRESENTER"
)

// Learn-stage completion tags whose pair unlocks the Starter badge.
const (
	StarterTagOne = "leaps-learn-1-completed"
	StarterTagTwo = "leaps-learn-2-completed"
)

// EarnedBadge records that a user holds a badge. Monotonic: rows are only
// ever added by the engine, never removed.
type EarnedBadge struct {
	ID        string    `gorm:"column:id;primaryKey"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UserID    string    `gorm:"column:user_id;uniqueIndex:idx_user_badge;not null"`
	BadgeCode string    `gorm:"column:badge_code;uniqueIndex:idx_user_badge;type:varchar(32);not null"`
}

func (EarnedBadge) TableName() string { return "earned_badges" }

// LearnTagGrant records that a completion tag from the learning platform has
// been credited to a user. Re-processing the same tag is a no-op.
type LearnTagGrant struct {
	ID        string    `gorm:"column:id;primaryKey"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UserID    string    `gorm:"column:user_id;uniqueIndex:idx_user_tag;not null"`
	TagName   string    `gorm:"column:tag_name;uniqueIndex:idx_user_tag;type:varchar(128);not null"`
}

func (LearnTagGrant) TableName() string { return "learn_tag_grants" }
