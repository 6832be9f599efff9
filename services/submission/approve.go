package submission

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"leaps-platform/pkg/db"
	"leaps-platform/pkg/errutil"
	"leaps-platform/pkg/repository"
	"leaps-platform/services/audit"
	"leaps-platform/services/badge"
	"leaps-platform/services/ledger"
)

const DefaultDuplicateWindowMinutes = 45

type Warning string

const (
	WarningMissingSessionStartTime Warning = "MISSING_SESSION_START_TIME"
	WarningMissingCity             Warning = "MISSING_CITY"
	WarningDuplicateSessionSuspect Warning = "DUPLICATE_SESSION_SUSPECT"
)

type Caps struct {
	PeersPer7d    int
	StudentsPer7d int
}

type ApproveAmplifyInput struct {
	SubmissionID string
	UserID       string
	Payload      AmplifyPayload
	OrgTimezone  string
	Caps         Caps
	ReviewerID   string
	// DuplicateWindowMinutes of 0 falls back to the 45 minute default.
	DuplicateWindowMinutes int
}

type Engine struct {
	node   *snowflake.Node
	badges *badge.Engine

	submissions repository.Repository[Submission]
	entries     repository.Repository[ledger.Entry]
}

type EngineParams struct {
	fx.In
	DB     *gorm.DB
	Node   *snowflake.Node
	Badges *badge.Engine
}

func NewEngine(p EngineParams) *Engine {
	return &Engine{
		node:   p.Node,
		badges: p.Badges,

		submissions: repository.ProvideStore[Submission](p.DB),
		entries:     repository.ProvideStore[ledger.Entry](p.DB),
	}
}

// ApproveAmplify approves one Amplify submission inside the caller's
// transaction: it serializes per user, enforces the rolling 7-day peer and
// student caps, flags suspected duplicate sessions, awards the ledger points
// and re-evaluates badges. Warnings never block the approval; only a cap
// violation does.
func (e *Engine) ApproveAmplify(ctx context.Context, tx *gorm.DB, in ApproveAmplifyInput) ([]Warning, error) {
	span := trace.SpanFromContext(ctx)
	zapLog := zap.L().With(
		zap.String("trace_id", span.SpanContext().TraceID().String()),
		zap.String("submission_id", in.SubmissionID),
		zap.String("user_id", in.UserID),
	)

	// Two concurrent approvals for the same user must not both pass the cap
	// check against stale totals. The lock releases with the transaction.
	if err := db.AdvisoryLock(ctx, tx, "AMPLIFY:"+in.UserID); err != nil {
		return nil, err
	}

	loc, err := time.LoadLocation(in.OrgTimezone)
	if err != nil {
		return nil, errutil.ValidationFailed("unknown org timezone", errutil.WithErr(err))
	}

	eventTime, err := sessionInstant(in.Payload, loc)
	if err != nil {
		return nil, err
	}

	windowStart, windowEnd, err := quotaWindow(in.Payload.SessionDate, loc)
	if err != nil {
		return nil, err
	}

	sub, err := e.submissions.WithTrx(tx).FindOne(ctx, &Submission{ID: in.SubmissionID})
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, errutil.NotFound("submission not found")
	}
	if sub.Status == StatusApproved {
		return nil, errutil.Conflict("submission is already approved")
	}

	prior, err := e.submissions.WithTrx(tx).Find(ctx, &Submission{
		UserID:       in.UserID,
		ActivityCode: ledger.ActivityAmplify,
		Status:       StatusApproved,
	})
	if err != nil {
		return nil, err
	}

	dupWindow := time.Duration(in.DuplicateWindowMinutes) * time.Minute
	if in.DuplicateWindowMinutes == 0 {
		dupWindow = DefaultDuplicateWindowMinutes * time.Minute
	}

	var peersUsed, studentsUsed int
	var duplicate bool
	for _, p := range prior {
		if p.ID == in.SubmissionID {
			continue
		}

		var payload AmplifyPayload
		if err := json.Unmarshal(p.Payload, &payload); err != nil {
			zapLog.Warn("skipping prior submission with unreadable payload",
				zap.String("prior_submission_id", p.ID), zap.Error(err))
			continue
		}

		instant, err := sessionInstant(payload, loc)
		if err != nil {
			zapLog.Warn("skipping prior submission with invalid session date",
				zap.String("prior_submission_id", p.ID), zap.Error(err))
			continue
		}

		if inWindow(instant, windowStart, windowEnd) {
			peersUsed += payload.PeersTrained
			studentsUsed += payload.StudentsTrained
		}

		if isDuplicateSession(in.Payload, payload, eventTime, instant, dupWindow) {
			duplicate = true
		}
	}

	var warnings []Warning
	switch {
	case in.Payload.SessionStartTime == "":
		warnings = append(warnings, WarningMissingSessionStartTime)
	case in.Payload.City() == "":
		warnings = append(warnings, WarningMissingCity)
	case duplicate:
		warnings = append(warnings, WarningDuplicateSessionSuspect)
	}

	if attempted := peersUsed + in.Payload.PeersTrained; attempted > in.Caps.PeersPer7d {
		return nil, errutil.LimitExceeded("Peer training", attempted, in.Caps.PeersPer7d)
	}
	if attempted := studentsUsed + in.Payload.StudentsTrained; attempted > in.Caps.StudentsPer7d {
		return nil, errutil.LimitExceeded("Student training", attempted, in.Caps.StudentsPer7d)
	}

	updates := map[string]any{
		"status":            StatusApproved,
		"approval_timezone": in.OrgTimezone,
		"updated_at":        time.Now(),
	}
	if in.ReviewerID != "" {
		updates["reviewer_id"] = in.ReviewerID
	}
	if err := e.submissions.WithTrx(tx).Update(ctx, in.SubmissionID, updates); err != nil {
		return nil, err
	}

	eventID := ledger.SubmissionApprovedEventID(in.SubmissionID)
	if existing, err := e.entries.WithTrx(tx).FindOne(ctx, &ledger.Entry{ExternalEventID: eventID}); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, errutil.Conflict("submission was already credited")
	}

	meta, _ := json.Marshal(map[string]any{
		"peers_trained":    in.Payload.PeersTrained,
		"students_trained": in.Payload.StudentsTrained,
	})
	entry := &ledger.Entry{
		ID:              e.node.Generate().String(),
		ExternalEventID: eventID,
		UserID:          in.UserID,
		ActivityCode:    ledger.ActivityAmplify,
		Source:          ledger.SourceForm,
		DeltaPoints:     ledger.AmplifyDelta(in.Payload.PeersTrained, in.Payload.StudentsTrained),
		EventTime:       eventTime,
		Meta:            datatypes.JSON(meta),
	}
	if err := e.entries.WithTrx(tx).Create(ctx, entry); err != nil {
		return nil, err
	}

	if err := audit.Record(ctx, tx, &audit.Log{
		ID:       e.node.Generate().String(),
		ActorID:  in.ReviewerID,
		Action:   audit.ActionSubmissionApproved,
		TargetID: in.SubmissionID,
	}); err != nil {
		return nil, err
	}

	if err := e.badges.GrantForUser(ctx, tx, in.UserID); err != nil {
		zapLog.Warn("badge re-evaluation failed after approval", zap.Error(err))
	}

	zapLog.Info("amplify submission approved",
		zap.Int("delta_points", entry.DeltaPoints),
		zap.Time("event_time", eventTime),
		zap.Int("warnings", len(warnings)),
	)

	return warnings, nil
}

// isDuplicateSession flags two sessions in the same city (case-insensitive)
// whose explicit start times sit within the duplicate window of each other.
// Sessions missing a start time or a city are never flagged; those cases get
// their own warnings.
func isDuplicateSession(next, prior AmplifyPayload, nextAt, priorAt time.Time, window time.Duration) bool {
	if next.SessionStartTime == "" || prior.SessionStartTime == "" {
		return false
	}
	if next.City() == "" || prior.City() == "" {
		return false
	}
	if !strings.EqualFold(strings.TrimSpace(next.City()), strings.TrimSpace(prior.City())) {
		return false
	}

	gap := nextAt.Sub(priorAt)
	if gap < 0 {
		gap = -gap
	}
	return gap <= window
}
