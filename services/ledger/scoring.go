package ledger

// Canonical point values per stage. Amplify is the only formula-based stage.
const (
	LearnTagPoints       = 20
	ExplorePoints        = 50
	PresentPoints        = 20
	AmplifyPeerPoints    = 2
	AmplifyStudentPoints = 1
)

// AmplifyDelta scores a peer/student training session.
func AmplifyDelta(peersTrained, studentsTrained int) int {
	return peersTrained*AmplifyPeerPoints + studentsTrained*AmplifyStudentPoints
}

// ComputePoints maps an activity code and its submission payload to a point
// value. Pure, no I/O; used by the simpler non-Amplify approval paths.
// Unknown activity codes score zero.
func ComputePoints(activity ActivityCode, payload map[string]any) int {
	switch activity {
	case ActivityLearn:
		return LearnTagPoints
	case ActivityExplore:
		return ExplorePoints
	case ActivityAmplify:
		return AmplifyDelta(payloadInt(payload, "peers_trained"), payloadInt(payload, "students_trained"))
	case ActivityPresent:
		return PresentPoints
	case ActivityShine:
		return 0
	default:
		return 0
	}
}

// payloadInt tolerates the numeric types a decoded JSON payload can carry.
func payloadInt(payload map[string]any, key string) int {
	if payload == nil {
		return 0
	}
	switch v := payload[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}
