package submission

import (
	"time"

	"leaps-platform/pkg/errutil"
)

const (
	sessionDateLayout = "2006-01-02"
	sessionTimeLayout = "15:04"
)

// sessionInstant converts a submission's local session date/time, interpreted
// in the organization's timezone, to the absolute instant used for the ledger
// entry and for quota windowing. A missing start time anchors to local
// midnight.
func sessionInstant(p AmplifyPayload, loc *time.Location) (time.Time, error) {
	day, err := time.ParseInLocation(sessionDateLayout, p.SessionDate, loc)
	if err != nil {
		return time.Time{}, errutil.ValidationFailed("invalid session_date", errutil.WithErr(err))
	}

	if p.SessionStartTime == "" {
		return day.UTC(), nil
	}

	clock, err := time.ParseInLocation(sessionTimeLayout, p.SessionStartTime, loc)
	if err != nil {
		return time.Time{}, errutil.ValidationFailed("invalid session_start_time", errutil.WithErr(err))
	}

	return time.Date(
		day.Year(), day.Month(), day.Day(),
		clock.Hour(), clock.Minute(), 0, 0,
		loc,
	).UTC(), nil
}

// quotaWindow computes the trailing 7-calendar-day window anchored to the
// submission's local day: start is the local day start minus six days, end is
// the local day start plus one day minus one millisecond. Both bounds are
// returned as absolute instants.
func quotaWindow(sessionDate string, loc *time.Location) (start, end time.Time, err error) {
	day, err := time.ParseInLocation(sessionDateLayout, sessionDate, loc)
	if err != nil {
		return time.Time{}, time.Time{}, errutil.ValidationFailed("invalid session_date", errutil.WithErr(err))
	}

	start = day.AddDate(0, 0, -6).UTC()
	end = day.AddDate(0, 0, 1).Add(-time.Millisecond).UTC()
	return start, end, nil
}

func inWindow(t, start, end time.Time) bool {
	return !t.Before(start) && !t.After(end)
}
