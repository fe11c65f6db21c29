package models

import "time"

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

type SessionStatus string

const (
	SessionCollecting SessionStatus = "collecting"
	SessionActive     SessionStatus = "active"
	SessionFinished   SessionStatus = "finished"
)

// CanAdvanceTo reports whether the lifecycle may move to next. Sessions only
// move forward: collecting -> active -> finished, with a shortcut from
// collecting straight to finished (cancellation).
func (s SessionStatus) CanAdvanceTo(next SessionStatus) bool {
	switch s {
	case SessionCollecting:
		return next == SessionActive || next == SessionFinished
	case SessionActive:
		return next == SessionFinished
	default:
		return false
	}
}

// Session is one day's admission cycle: a concurrency policy plus a lifecycle.
type Session struct {
	ID               string        `json:"id"`
	Date             string        `json:"date"`              // DateLayout
	AnnouncementTime string        `json:"announcement_time"` // TimeLayout
	StartTime        string        `json:"start_time"`        // TimeLayout
	ConcurrencyLimit int           `json:"concurrency_limit"`
	GroupSize        int           `json:"group_size"`
	Status           SessionStatus `json:"status"`
}

// DueToStart reports whether the admission start time has been reached.
func (s *Session) DueToStart(now time.Time) bool {
	start, err := time.ParseInLocation(DateLayout+" "+TimeLayout, s.Date+" "+s.StartTime, now.Location())
	if err != nil {
		return false
	}
	return !now.Before(start)
}
