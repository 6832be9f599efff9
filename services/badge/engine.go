package badge

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"leaps-platform/services/ledger"
)

// Rule pairs a badge code with its eligibility predicate over derived state.
type Rule struct {
	Code     string
	Eligible func(ctx context.Context, tx *gorm.DB, userID string) (bool, error)
}

// Rules is the declarative badge catalogue the engine walks on every
// re-evaluation.
var Rules = []Rule{
	{
		Code: CodeStarter,
		Eligible: func(ctx context.Context, tx *gorm.DB, userID string) (bool, error) {
			var n int64
			err := tx.WithContext(ctx).Model(&LearnTagGrant{}).
				Where("user_id = ? AND tag_name IN ?", userID, []string{StarterTagOne, StarterTagTwo}).
				Count(&n).Error
			return n == 2, err
		},
	},
	{
		Code:     CodeExplorer,
		Eligible: hasApprovedSubmission(ledger.ActivityExplore),
	},
	{
		Code:     CodePresenter,
		Eligible: hasApprovedSubmission(ledger.ActivityPresent),
	},
}

// submissionRow is a read-only projection of the submissions table. The badge
// package keeps its own view so the dependency stays submission -> badge.
type submissionRow struct {
	UserID       string `gorm:"column:user_id"`
	ActivityCode string `gorm:"column:activity_code"`
	Status       string `gorm:"column:status"`
}

func (submissionRow) TableName() string { return "submissions" }

func hasApprovedSubmission(activity ledger.ActivityCode) func(context.Context, *gorm.DB, string) (bool, error) {
	return func(ctx context.Context, tx *gorm.DB, userID string) (bool, error) {
		var n int64
		err := tx.WithContext(ctx).Model(&submissionRow{}).
			Where("user_id = ? AND activity_code = ? AND status = ?", userID, activity, "APPROVED").
			Count(&n).Error
		return n > 0, err
	}
}

type Engine struct {
	node *snowflake.Node
}

type EngineParams struct {
	fx.In
	Node *snowflake.Node
}

func NewEngine(p EngineParams) *Engine {
	return &Engine{node: p.Node}
}

// GrantForUser re-evaluates every rule and additively grants the badges the
// user became eligible for. Safe to repeat: already-held badges are skipped
// up front and raced inserts fall into the unique index's DO NOTHING. A rule
// that fails to evaluate is logged and skipped so a badge problem can never
// abort the approval or revocation that triggered the re-evaluation.
func (e *Engine) GrantForUser(ctx context.Context, tx *gorm.DB, userID string) error {
	var held []EarnedBadge
	if err := tx.WithContext(ctx).Where("user_id = ?", userID).Find(&held).Error; err != nil {
		return err
	}

	heldCodes := make(map[string]bool, len(held))
	for _, b := range held {
		heldCodes[b.BadgeCode] = true
	}

	now := time.Now()
	grants := make([]*EarnedBadge, 0, len(Rules))
	for _, rule := range Rules {
		if heldCodes[rule.Code] {
			continue
		}

		eligible, err := rule.Eligible(ctx, tx, userID)
		if err != nil {
			zap.L().Warn("badge rule evaluation failed",
				zap.String("badge_code", rule.Code),
				zap.String("user_id", userID),
				zap.Error(err),
			)
			continue
		}
		if !eligible {
			continue
		}

		grants = append(grants, &EarnedBadge{
			ID:        e.node.Generate().String(),
			CreatedAt: now,
			UserID:    userID,
			BadgeCode: rule.Code,
		})
	}

	if len(grants) == 0 {
		return nil
	}

	return tx.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&grants).Error
}
