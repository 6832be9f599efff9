package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestComputePoints(t *testing.T) {
	require.Equal(t, 20, ComputePoints(ActivityLearn, nil))
	require.Equal(t, 50, ComputePoints(ActivityExplore, nil))
	require.Equal(t, 20, ComputePoints(ActivityPresent, nil))
	require.Equal(t, 0, ComputePoints(ActivityShine, nil))
	require.Equal(t, 0, ComputePoints(ActivityCode("BOGUS"), nil))
}

func TestComputePointsAmplify(t *testing.T) {
	payload := map[string]any{
		"peers_trained":    float64(2),
		"students_trained": float64(3),
	}
	require.Equal(t, 7, ComputePoints(ActivityAmplify, payload))

	require.Equal(t, 0, ComputePoints(ActivityAmplify, nil))
	require.Equal(t, 4, ComputePoints(ActivityAmplify, map[string]any{"peers_trained": 2}))
}

func TestAmplifyDelta(t *testing.T) {
	require.Equal(t, 7, AmplifyDelta(2, 3))
	require.Equal(t, 0, AmplifyDelta(0, 0))
	require.Equal(t, 100, AmplifyDelta(50, 0))
}

func TestSubmissionEventIDs(t *testing.T) {
	require.Equal(t, "submission:sub-1:approved:v1", SubmissionApprovedEventID("sub-1"))
	require.Equal(t, "submission:sub-1:revoked:v1", SubmissionRevokedEventID("sub-1"))
}

func TestWebhookFallbackEventIDDeterministic(t *testing.T) {
	at := time.Date(2025, 5, 6, 1, 0, 0, 0, time.UTC)

	first := WebhookFallbackEventID("kj-1", "leaps-learn-1-completed", at)
	second := WebhookFallbackEventID("kj-1", "leaps-learn-1-completed", at)
	require.Equal(t, first, second)

	require.NotEqual(t, first, WebhookFallbackEventID("kj-2", "leaps-learn-1-completed", at))
	require.NotEqual(t, first, WebhookFallbackEventID("kj-1", "leaps-learn-2-completed", at))
	require.NotEqual(t, first, WebhookFallbackEventID("kj-1", "leaps-learn-1-completed", at.Add(time.Second)))
}
