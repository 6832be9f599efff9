package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Companion event IDs pair an approval with its reversal. The :v1 suffix
// versions the key scheme so a future migration cannot collide with old rows.
func SubmissionApprovedEventID(submissionID string) string {
	return fmt.Sprintf("submission:%s:approved:v1", submissionID)
}

func SubmissionRevokedEventID(submissionID string) string {
	return fmt.Sprintf("submission:%s:revoked:v1", submissionID)
}

// WebhookFallbackEventID derives a deterministic idempotency key for webhook
// deliveries that omit a provider event ID. The same contact, tag and
// business timestamp always hash to the same key, so redeliveries of the
// same logical event converge.
func WebhookFallbackEventID(contactID, tagName string, eventTime time.Time) string {
	sum := sha256.Sum256([]byte(contactID + "|" + tagName + "|" + eventTime.UTC().Format(time.RFC3339Nano)))
	return "kajabi:" + hex.EncodeToString(sum[:])
}
