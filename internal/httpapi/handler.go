package httpapi

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"leaps-platform/pkg/config"
	"leaps-platform/pkg/errutil"
	"leaps-platform/pkg/health"
	"leaps-platform/pkg/task"
	"leaps-platform/services/kajabi"
	"leaps-platform/services/leaderboard"
	"leaps-platform/services/submission"
)

var Module = fx.Module("httpapi",
	fx.Provide(NewHandler),
	fx.Invoke(RegisterRoutes),
)

const webhookSecretHeader = "X-Kajabi-Secret"

// Handler is the thin caller layer: it opens one database transaction per
// mutating request and delegates to the engines.
type Handler struct {
	db          *gorm.DB
	cfg         *config.Config
	submissions *submission.Engine
	webhooks    *kajabi.Engine
	leaderboard *leaderboard.Service
	enqueuer    task.Enqueuer
	allowedTags map[string]bool
}

type HandlerParams struct {
	fx.In

	DB          *gorm.DB
	Config      *config.Config
	Submissions *submission.Engine
	Webhooks    *kajabi.Engine
	Leaderboard *leaderboard.Service
	Enqueuer    task.Enqueuer `optional:"true"`
}

func NewHandler(p HandlerParams) *Handler {
	return &Handler{
		db:          p.DB,
		cfg:         p.Config,
		submissions: p.Submissions,
		webhooks:    p.Webhooks,
		leaderboard: p.Leaderboard,
		enqueuer:    p.Enqueuer,
		allowedTags: kajabi.AllowedTags(p.Config.Kajabi.AllowedTags),
	}
}

func RegisterRoutes(engine *gin.Engine, h *Handler, hs health.HealthService) {
	engine.GET("/healthz", hs.Liveness)
	engine.GET("/readyz", hs.Readiness)

	v1 := engine.Group("/v1")
	v1.POST("/webhooks/kajabi", h.KajabiWebhook)
	v1.POST("/submissions/:id/approve", h.ApproveSubmission)
	v1.POST("/submissions/:id/revoke", h.RevokeSubmission)
	v1.GET("/leaderboard", h.Leaderboard)
	v1.GET("/users/:id/points", h.UserPoints)
}

type webhookRequest struct {
	kajabi.Event
	OccurredAt *time.Time `json:"occurred_at,omitempty"`
}

// KajabiWebhook always answers 200 for resolvable outcomes, including
// user_not_found, so the provider does not retry-storm; unresolved events go
// to the reconciliation queue instead.
func (h *Handler) KajabiWebhook(c *gin.Context) {
	secret := c.GetHeader(webhookSecretHeader)
	if subtle.ConstantTimeCompare([]byte(secret), []byte(h.cfg.Kajabi.WebhookSecret)) != 1 {
		_ = c.Error(errutil.Unauthorized("invalid webhook secret"))
		return
	}

	var req webhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errutil.BadRequest("invalid webhook payload", errutil.WithErr(err)))
		return
	}

	eventTime := time.Now()
	if req.OccurredAt != nil {
		eventTime = *req.OccurredAt
	}

	var result *kajabi.Result
	if err := h.db.Transaction(func(tx *gorm.DB) error {
		var err error
		result, err = h.webhooks.Process(c.Request.Context(), tx, req.Event, eventTime, h.allowedTags)
		return err
	}); err != nil {
		_ = c.Error(err)
		return
	}

	if !result.Success && result.Reason == kajabi.ReasonUserNotFound && h.enqueuer != nil {
		t, err := kajabi.NewReconcileTask(req.Event, eventTime)
		if err == nil {
			_, err = h.enqueuer.Enqueue(t)
		}
		if err != nil {
			zap.L().Error("failed to enqueue webhook reconciliation",
				zap.String("contact_id", req.Event.ContactID), zap.Error(err))
		}
	}

	c.JSON(http.StatusOK, result)
}

type approveRequest struct {
	UserID     string                    `json:"user_id" binding:"required"`
	ReviewerID string                    `json:"reviewer_id"`
	Payload    submission.AmplifyPayload `json:"payload" binding:"required"`
}

func (h *Handler) ApproveSubmission(c *gin.Context) {
	var req approveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errutil.BadRequest("invalid approval request", errutil.WithErr(err)))
		return
	}

	input := submission.ApproveAmplifyInput{
		SubmissionID: c.Param("id"),
		UserID:       req.UserID,
		Payload:      req.Payload,
		OrgTimezone:  h.cfg.Program.Timezone,
		Caps: submission.Caps{
			PeersPer7d:    h.cfg.Program.AmplifyPeersPer7d,
			StudentsPer7d: h.cfg.Program.AmplifyStudentsPer7d,
		},
		ReviewerID:             req.ReviewerID,
		DuplicateWindowMinutes: h.cfg.Program.DuplicateWindowMinutes,
	}

	var warnings []submission.Warning
	if err := h.db.Transaction(func(tx *gorm.DB) error {
		var err error
		warnings, err = h.submissions.ApproveAmplify(c.Request.Context(), tx, input)
		return err
	}); err != nil {
		_ = c.Error(err)
		return
	}

	if warnings == nil {
		warnings = []submission.Warning{}
	}
	c.JSON(http.StatusOK, gin.H{"warnings": warnings})
}

type revokeRequest struct {
	ActorID string `json:"actor_id" binding:"required"`
	Reason  string `json:"reason"`
}

func (h *Handler) RevokeSubmission(c *gin.Context) {
	var req revokeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errutil.BadRequest("invalid revocation request", errutil.WithErr(err)))
		return
	}

	if err := h.db.Transaction(func(tx *gorm.DB) error {
		return h.submissions.Revoke(c.Request.Context(), tx, submission.RevokeInput{
			SubmissionID: c.Param("id"),
			ActorID:      req.ActorID,
			Reason:       req.Reason,
		})
	}); err != nil {
		_ = c.Error(err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) Leaderboard(c *gin.Context) {
	totals, err := h.leaderboard.Top(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": totals})
}

func (h *Handler) UserPoints(c *gin.Context) {
	points, err := h.leaderboard.UserPoints(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_id": c.Param("id"), "points": points})
}
