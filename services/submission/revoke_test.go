package submission

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"leaps-platform/pkg/errutil"
	"leaps-platform/services/audit"
	"leaps-platform/services/ledger"
)

func TestRevoke(t *testing.T) {
	engine, db := newTestEngine(t)
	ctx := context.Background()

	payload := AmplifyPayload{
		PeersTrained:     2,
		StudentsTrained:  3,
		SessionDate:      "2025-05-06",
		SessionStartTime: "08:00",
		Location:         &Location{City: "Jakarta"},
	}
	seedSubmission(t, db, "sub-1", "user-1", StatusPending, payload)

	_, err := engine.ApproveAmplify(ctx, db, jakartaInput("sub-1", "user-1", payload))
	require.NoError(t, err)

	require.NoError(t, engine.Revoke(ctx, db, RevokeInput{
		SubmissionID: "sub-1",
		ActorID:      "admin-2",
		Reason:       "evidence withdrawn",
	}))

	var sub Submission
	require.NoError(t, db.Where("id = ?", "sub-1").First(&sub).Error)
	require.Equal(t, StatusRevoked, sub.Status)
	require.NotNil(t, sub.ReviewerID)
	require.Equal(t, "admin-2", *sub.ReviewerID)

	var compensating ledger.Entry
	require.NoError(t, db.
		Where("external_event_id = ?", ledger.SubmissionRevokedEventID("sub-1")).
		First(&compensating).Error)
	require.Equal(t, -7, compensating.DeltaPoints)
	require.Equal(t, ledger.ActivityAmplify, compensating.ActivityCode)
	require.Equal(t, ledger.SourceForm, compensating.Source)

	var original ledger.Entry
	require.NoError(t, db.
		Where("external_event_id = ?", ledger.SubmissionApprovedEventID("sub-1")).
		First(&original).Error)
	require.True(t, compensating.EventTime.Equal(original.EventTime))

	total, err := ledger.SumForUser(ctx, db, "user-1")
	require.NoError(t, err)
	require.Equal(t, int64(0), total)

	var audits int64
	require.NoError(t, db.Model(&audit.Log{}).
		Where("action = ? AND target_id = ?", audit.ActionSubmissionRevoked, "sub-1").
		Count(&audits).Error)
	require.Equal(t, int64(1), audits)
}

func TestRevokeIdempotent(t *testing.T) {
	engine, db := newTestEngine(t)
	ctx := context.Background()

	payload := AmplifyPayload{
		PeersTrained:     2,
		StudentsTrained:  3,
		SessionDate:      "2025-05-06",
		SessionStartTime: "08:00",
		Location:         &Location{City: "Jakarta"},
	}
	seedSubmission(t, db, "sub-1", "user-1", StatusPending, payload)

	_, err := engine.ApproveAmplify(ctx, db, jakartaInput("sub-1", "user-1", payload))
	require.NoError(t, err)

	in := RevokeInput{SubmissionID: "sub-1", ActorID: "admin-2", Reason: "first"}
	require.NoError(t, engine.Revoke(ctx, db, in))
	require.NoError(t, engine.Revoke(ctx, db, in))
	require.NoError(t, engine.Revoke(ctx, db, in))

	var entries int64
	require.NoError(t, db.Model(&ledger.Entry{}).
		Where("user_id = ?", "user-1").
		Count(&entries).Error)
	require.Equal(t, int64(2), entries)

	total, err := ledger.SumForUser(ctx, db, "user-1")
	require.NoError(t, err)
	require.Equal(t, int64(0), total)
}

func TestRevokeNotApproved(t *testing.T) {
	engine, db := newTestEngine(t)
	ctx := context.Background()

	seedSubmission(t, db, "sub-1", "user-1", StatusPending, AmplifyPayload{SessionDate: "2025-05-06"})

	err := engine.Revoke(ctx, db, RevokeInput{SubmissionID: "sub-1", ActorID: "admin-2"})
	require.Error(t, err)

	var be errutil.BaseError
	require.ErrorAs(t, err, &be)
	require.Equal(t, errutil.StatusConflict, be.Status())
}

func TestRevokeUnknownSubmission(t *testing.T) {
	engine, db := newTestEngine(t)

	err := engine.Revoke(context.Background(), db, RevokeInput{SubmissionID: "missing", ActorID: "admin-2"})
	require.Error(t, err)

	var be errutil.BaseError
	require.ErrorAs(t, err, &be)
	require.Equal(t, errutil.StatusNotFound, be.Status())
}

func TestRevokeWithoutApprovalEntry(t *testing.T) {
	engine, db := newTestEngine(t)
	ctx := context.Background()

	// An APPROVED submission with no ledger entry points at a data problem;
	// revocation refuses rather than inventing a negative delta.
	seedSubmission(t, db, "sub-1", "user-1", StatusApproved, AmplifyPayload{SessionDate: "2025-05-06"})

	err := engine.Revoke(ctx, db, RevokeInput{SubmissionID: "sub-1", ActorID: "admin-2"})
	require.Error(t, err)

	var be errutil.BaseError
	require.ErrorAs(t, err, &be)
	require.Equal(t, errutil.StatusInternal, be.Status())
}
