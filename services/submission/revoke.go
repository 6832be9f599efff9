package submission

import (
	"context"
	"encoding/json"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"leaps-platform/pkg/errutil"
	"leaps-platform/services/audit"
	"leaps-platform/services/ledger"
)

type RevokeInput struct {
	SubmissionID string
	ActorID      string
	Reason       string
}

// Revoke reverses a previously approved submission's point award by writing
// the compensating ledger entry under the deterministic companion ID. The
// call is idempotent: once the revoked entry exists, repeats are no-ops.
// Badges stay: grants are additive-only, so a revocation never takes back a
// badge already earned.
func (e *Engine) Revoke(ctx context.Context, tx *gorm.DB, in RevokeInput) error {
	span := trace.SpanFromContext(ctx)
	zapLog := zap.L().With(
		zap.String("trace_id", span.SpanContext().TraceID().String()),
		zap.String("submission_id", in.SubmissionID),
		zap.String("actor_id", in.ActorID),
	)

	sub, err := e.submissions.WithTrx(tx).FindOne(ctx, &Submission{ID: in.SubmissionID})
	if err != nil {
		return err
	}
	if sub == nil {
		return errutil.NotFound("submission not found")
	}

	approvedID := ledger.SubmissionApprovedEventID(in.SubmissionID)
	revokedID := ledger.SubmissionRevokedEventID(in.SubmissionID)

	// The compensating entry, not the status, is the idempotency record:
	// once it exists the revocation already happened and repeats are no-ops.
	existing, err := e.entries.WithTrx(tx).FindOne(ctx, &ledger.Entry{ExternalEventID: revokedID})
	if err != nil {
		return err
	}
	if existing != nil {
		zapLog.Info("submission already revoked, nothing to do")
		return nil
	}

	if sub.Status != StatusApproved {
		return errutil.Conflict("submission is not approved")
	}

	original, err := e.entries.WithTrx(tx).FindOne(ctx, &ledger.Entry{ExternalEventID: approvedID})
	if err != nil {
		return err
	}
	if original == nil {
		return errutil.Internal("approval ledger entry is missing; cannot revoke what was never credited")
	}

	if err := e.submissions.WithTrx(tx).Update(ctx, in.SubmissionID, map[string]any{
		"status":      StatusRevoked,
		"reviewer_id": in.ActorID,
		"updated_at":  time.Now(),
	}); err != nil {
		return err
	}

	meta, _ := json.Marshal(map[string]any{
		"reverses": approvedID,
		"reason":   in.Reason,
	})
	if err := e.entries.WithTrx(tx).Create(ctx, &ledger.Entry{
		ID:              e.node.Generate().String(),
		ExternalEventID: revokedID,
		UserID:          original.UserID,
		ActivityCode:    original.ActivityCode,
		Source:          original.Source,
		DeltaPoints:     -original.DeltaPoints,
		EventTime:       original.EventTime,
		Meta:            datatypes.JSON(meta),
	}); err != nil {
		return err
	}

	auditMeta, _ := json.Marshal(map[string]string{"reason": in.Reason})
	if err := audit.Record(ctx, tx, &audit.Log{
		ID:       e.node.Generate().String(),
		ActorID:  in.ActorID,
		Action:   audit.ActionSubmissionRevoked,
		TargetID: in.SubmissionID,
		Meta:     datatypes.JSON(auditMeta),
	}); err != nil {
		return err
	}

	if err := e.badges.GrantForUser(ctx, tx, original.UserID); err != nil {
		zapLog.Warn("badge re-evaluation failed after revocation", zap.Error(err))
	}

	zapLog.Info("submission revoked", zap.Int("delta_points", -original.DeltaPoints))

	return nil
}
