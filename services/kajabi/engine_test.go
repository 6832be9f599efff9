package kajabi

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"leaps-platform/services/badge"
	"leaps-platform/services/ledger"
	"leaps-platform/services/submission"
	"leaps-platform/services/testutil"
	"leaps-platform/services/user"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

var testAllowedTags = AllowedTags([]string{badge.StarterTagOne, badge.StarterTagTwo})

func newWebhookEngine(t *testing.T) (*Engine, *gorm.DB) {
	t.Helper()

	db := testutil.NewTestDB(t,
		&user.User{},
		&ledger.Entry{},
		&badge.EarnedBadge{},
		&badge.LearnTagGrant{},
		&submission.Submission{},
	)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	engine := NewEngine(EngineParams{
		DB:     db,
		Node:   node,
		Badges: badge.NewEngine(badge.EngineParams{Node: node}),
	})
	return engine, db
}

func seedUser(t *testing.T, db *gorm.DB, id, email string, contactID *string) {
	t.Helper()
	require.NoError(t, db.Create(&user.User{
		ID:              id,
		Name:            "Test Educator",
		Email:           email,
		KajabiContactID: contactID,
	}).Error)
}

func TestProcessGrantsLearnCompletion(t *testing.T) {
	engine, db := newWebhookEngine(t)
	ctx := context.Background()
	now := time.Now().UTC()

	seedUser(t, db, "user-1", "edu@example.com", nil)

	result, err := engine.Process(ctx, db, Event{
		ContactID: "kj-1",
		Email:     "edu@example.com",
		TagName:   "  LEAPS-Learn-1-Completed ",
		EventID:   "evt-1",
	}, now, testAllowedTags)
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Equal(t, ReasonGranted, result.Reason)
	require.Equal(t, "user-1", result.UserID)
	require.Equal(t, "kj-1", result.KajabiContactID)
	require.Equal(t, ledger.LearnTagPoints, result.PointsAwarded)

	// Resolution by email stamps the linkage for next time.
	var u user.User
	require.NoError(t, db.Where("id = ?", "user-1").First(&u).Error)
	require.NotNil(t, u.KajabiContactID)
	require.Equal(t, "kj-1", *u.KajabiContactID)

	var entry ledger.Entry
	require.NoError(t, db.Where("external_event_id = ?", "evt-1").First(&entry).Error)
	require.Equal(t, ledger.LearnTagPoints, entry.DeltaPoints)
	require.Equal(t, ledger.ActivityLearn, entry.ActivityCode)
	require.Equal(t, ledger.SourceWebhook, entry.Source)

	var grants int64
	require.NoError(t, db.Model(&badge.LearnTagGrant{}).
		Where("user_id = ? AND tag_name = ?", "user-1", badge.StarterTagOne).
		Count(&grants).Error)
	require.Equal(t, int64(1), grants)

	var subs int64
	require.NoError(t, db.Model(&submission.Submission{}).
		Where("user_id = ? AND activity_code = ? AND status = ?",
			"user-1", ledger.ActivityLearn, submission.StatusApproved).
		Count(&subs).Error)
	require.Equal(t, int64(1), subs)
}

func TestProcessReplayedDelivery(t *testing.T) {
	engine, db := newWebhookEngine(t)
	ctx := context.Background()
	now := time.Now().UTC()

	contactID := "kj-1"
	seedUser(t, db, "user-1", "edu@example.com", &contactID)

	event := Event{ContactID: "kj-1", TagName: badge.StarterTagOne, EventID: "evt-1"}

	result, err := engine.Process(ctx, db, event, now, testAllowedTags)
	require.NoError(t, err)
	require.Equal(t, ReasonGranted, result.Reason)

	result, err = engine.Process(ctx, db, event, now, testAllowedTags)
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Equal(t, ReasonAlreadyProcessed, result.Reason)
	require.Equal(t, "user-1", result.UserID)
	require.Zero(t, result.PointsAwarded)

	var entries int64
	require.NoError(t, db.Model(&ledger.Entry{}).Count(&entries).Error)
	require.Equal(t, int64(1), entries)
}

func TestProcessFallbackIdempotencyKey(t *testing.T) {
	engine, db := newWebhookEngine(t)
	ctx := context.Background()

	contactID := "kj-1"
	seedUser(t, db, "user-1", "edu@example.com", &contactID)

	// No provider event ID: identity derives from contact, tag and time.
	at := time.Date(2025, 5, 6, 1, 0, 0, 0, time.UTC)
	event := Event{ContactID: "kj-1", TagName: badge.StarterTagOne}

	result, err := engine.Process(ctx, db, event, at, testAllowedTags)
	require.NoError(t, err)
	require.Equal(t, ReasonGranted, result.Reason)

	result, err = engine.Process(ctx, db, event, at, testAllowedTags)
	require.NoError(t, err)
	require.Equal(t, ReasonAlreadyProcessed, result.Reason)

	// A different occurrence of the same tag is a distinct event.
	result, err = engine.Process(ctx, db, event, at.Add(time.Hour), testAllowedTags)
	require.NoError(t, err)
	require.Equal(t, ReasonGranted, result.Reason)

	var entries int64
	require.NoError(t, db.Model(&ledger.Entry{}).Count(&entries).Error)
	require.Equal(t, int64(2), entries)
}

func TestProcessUnknownTag(t *testing.T) {
	engine, db := newWebhookEngine(t)
	ctx := context.Background()

	contactID := "kj-1"
	seedUser(t, db, "user-1", "edu@example.com", &contactID)

	result, err := engine.Process(ctx, db, Event{
		ContactID: "kj-1",
		TagName:   "newsletter-subscriber",
	}, time.Now().UTC(), testAllowedTags)
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Equal(t, ReasonTagNotProcessed, result.Reason)

	var entries int64
	require.NoError(t, db.Model(&ledger.Entry{}).Count(&entries).Error)
	require.Equal(t, int64(0), entries)

	var grants int64
	require.NoError(t, db.Model(&badge.LearnTagGrant{}).Count(&grants).Error)
	require.Equal(t, int64(0), grants)
}

func TestProcessUserNotFound(t *testing.T) {
	engine, db := newWebhookEngine(t)
	ctx := context.Background()

	result, err := engine.Process(ctx, db, Event{
		ContactID: "kj-404",
		Email:     "stranger@example.com",
		TagName:   badge.StarterTagOne,
	}, time.Now().UTC(), testAllowedTags)
	require.NoError(t, err)
	require.False(t, result.Success)
	require.Equal(t, ReasonUserNotFound, result.Reason)

	var entries int64
	require.NoError(t, db.Model(&ledger.Entry{}).Count(&entries).Error)
	require.Equal(t, int64(0), entries)
}

func TestProcessBothTagsEarnStarterBadge(t *testing.T) {
	engine, db := newWebhookEngine(t)
	ctx := context.Background()
	now := time.Now().UTC()

	contactID := "kj-1"
	seedUser(t, db, "user-1", "edu@example.com", &contactID)

	_, err := engine.Process(ctx, db, Event{
		ContactID: "kj-1", TagName: badge.StarterTagOne, EventID: "evt-1",
	}, now, testAllowedTags)
	require.NoError(t, err)

	var badges int64
	require.NoError(t, db.Model(&badge.EarnedBadge{}).
		Where("user_id = ?", "user-1").Count(&badges).Error)
	require.Equal(t, int64(0), badges)

	_, err = engine.Process(ctx, db, Event{
		ContactID: "kj-1", TagName: badge.StarterTagTwo, EventID: "evt-2",
	}, now, testAllowedTags)
	require.NoError(t, err)

	var earned badge.EarnedBadge
	require.NoError(t, db.Where("user_id = ?", "user-1").First(&earned).Error)
	require.Equal(t, badge.CodeStarter, earned.BadgeCode)
}

func TestAllowedTags(t *testing.T) {
	allowed := AllowedTags([]string{" LEAPS-Learn-1-Completed ", "leaps-learn-2-completed"})
	require.True(t, allowed["leaps-learn-1-completed"])
	require.True(t, allowed["leaps-learn-2-completed"])
	require.False(t, allowed["leaps-learn-3-completed"])
}
