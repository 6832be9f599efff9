package kajabi

import "strings"

// Event is an inbound "contact tagged" notification from the learning
// platform.
type Event struct {
	ContactID string `json:"contact_id"`
	Email     string `json:"email,omitempty"`
	TagName   string `json:"tag_name"`
	EventID   string `json:"event_id,omitempty"`
}

type Reason string

const (
	ReasonGranted          Reason = "granted"
	ReasonAlreadyProcessed Reason = "already_processed"
	ReasonTagNotProcessed  Reason = "tag_not_processed"
	ReasonUserNotFound     Reason = "user_not_found"
)

// Result reports the outcome of processing one event. Expected alternate
// outcomes (unknown tag, unresolved user, replayed delivery) come back here
// as data, not as errors.
type Result struct {
	Success         bool   `json:"success"`
	Reason          Reason `json:"reason"`
	UserID          string `json:"user_id,omitempty"`
	KajabiContactID string `json:"kajabi_contact_id,omitempty"`
	PointsAwarded   int    `json:"points_awarded,omitempty"`
}

// AllowedTags normalizes the configured completion-trigger tag names into a
// lower-cased lookup set.
func AllowedTags(tags []string) map[string]bool {
	allowed := make(map[string]bool, len(tags))
	for _, tag := range tags {
		allowed[strings.ToLower(strings.TrimSpace(tag))] = true
	}
	return allowed
}

func normalizeTag(tag string) string {
	return strings.ToLower(strings.TrimSpace(tag))
}
