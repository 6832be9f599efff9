package kajabi

import (
	"context"
	"encoding/json"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"leaps-platform/pkg/repository"
	"leaps-platform/services/badge"
	"leaps-platform/services/ledger"
	"leaps-platform/services/submission"
	"leaps-platform/services/user"
)

type Engine struct {
	node   *snowflake.Node
	badges *badge.Engine

	entries     repository.Repository[ledger.Entry]
	submissions repository.Repository[submission.Submission]
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

		entries:     repository.ProvideStore[ledger.Entry](p.DB),
		submissions: repository.ProvideStore[submission.Submission](p.DB),
	}
}

// Process converts one tag event into a user linkage, a Learn tag grant, an
// idempotent ledger credit and an auto-approved submission record, all inside
// the caller's transaction. Replayed deliveries of the same logical event
// converge on the same idempotency key and report already_processed.
func (e *Engine) Process(ctx context.Context, tx *gorm.DB, event Event, eventTime time.Time, allowedTags map[string]bool) (*Result, error) {
	span := trace.SpanFromContext(ctx)
	zapLog := zap.L().With(
		zap.String("trace_id", span.SpanContext().TraceID().String()),
		zap.String("contact_id", event.ContactID),
		zap.String("tag_name", event.TagName),
	)

	tag := normalizeTag(event.TagName)
	if !allowedTags[tag] {
		return &Result{Success: true, Reason: ReasonTagNotProcessed}, nil
	}

	eventID := event.EventID
	if eventID == "" {
		eventID = ledger.WebhookFallbackEventID(event.ContactID, tag, eventTime)
	}

	u, err := e.resolveUser(ctx, tx, event)
	if err != nil {
		return nil, err
	}
	if u == nil {
		zapLog.Info("webhook contact does not resolve to a user yet")
		return &Result{Success: false, Reason: ReasonUserNotFound}, nil
	}

	grant := &badge.LearnTagGrant{
		ID:        e.node.Generate().String(),
		CreatedAt: time.Now(),
		UserID:    u.ID,
		TagName:   tag,
	}
	if err := tx.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(grant).Error; err != nil {
		return nil, err
	}

	existing, err := e.entries.WithTrx(tx).FindOne(ctx, &ledger.Entry{ExternalEventID: eventID})
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return &Result{
			Success:         true,
			Reason:          ReasonAlreadyProcessed,
			UserID:          u.ID,
			KajabiContactID: event.ContactID,
		}, nil
	}

	entryMeta, _ := json.Marshal(map[string]string{"tag_name": tag})
	if err := e.entries.WithTrx(tx).Create(ctx, &ledger.Entry{
		ID:              e.node.Generate().String(),
		ExternalEventID: eventID,
		UserID:          u.ID,
		ActivityCode:    ledger.ActivityLearn,
		Source:          ledger.SourceWebhook,
		DeltaPoints:     ledger.LearnTagPoints,
		EventTime:       eventTime,
		Meta:            datatypes.JSON(entryMeta),
	}); err != nil {
		return nil, err
	}

	// Auto-approved submission so reviewers can audit webhook credits the
	// same way as form evidence.
	subPayload, _ := json.Marshal(map[string]string{
		"tag_name":          tag,
		"kajabi_contact_id": event.ContactID,
	})
	if err := e.submissions.WithTrx(tx).Create(ctx, &submission.Submission{
		ID:           e.node.Generate().String(),
		UserID:       u.ID,
		ActivityCode: ledger.ActivityLearn,
		Status:       submission.StatusApproved,
		Payload:      datatypes.JSON(subPayload),
	}); err != nil {
		return nil, err
	}

	if err := e.badges.GrantForUser(ctx, tx, u.ID); err != nil {
		zapLog.Warn("badge re-evaluation failed after webhook credit", zap.Error(err))
	}

	zapLog.Info("learn completion credited",
		zap.String("user_id", u.ID),
		zap.Int("points", ledger.LearnTagPoints),
	)

	return &Result{
		Success:         true,
		Reason:          ReasonGranted,
		UserID:          u.ID,
		KajabiContactID: event.ContactID,
		PointsAwarded:   ledger.LearnTagPoints,
	}, nil
}

// resolveUser finds the user for an event: first by contact linkage, then by
// email. A user found by email gets the linkage stamped; losing that race to
// a concurrent linker is fine, whoever ended up linked wins.
func (e *Engine) resolveUser(ctx context.Context, tx *gorm.DB, event Event) (*user.User, error) {
	u, err := user.FindByKajabiContact(ctx, tx, event.ContactID)
	if err != nil {
		return nil, err
	}
	if u != nil {
		return u, nil
	}

	if event.Email == "" {
		return nil, nil
	}

	u, err = user.FindByEmail(ctx, tx, event.Email)
	if err != nil || u == nil {
		return u, err
	}

	if u.KajabiContactID == nil {
		if err := user.LinkKajabiContact(ctx, tx, u.ID, event.ContactID); err != nil {
			linked, rerr := user.FindByKajabiContact(ctx, tx, event.ContactID)
			if rerr != nil {
				return nil, rerr
			}
			if linked != nil {
				return linked, nil
			}
			return nil, err
		}
		contactID := event.ContactID
		u.KajabiContactID = &contactID
	}

	return u, nil
}
