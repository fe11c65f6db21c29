package models

import "time"

type EntryStatus string

const (
	EntryWaiting  EntryStatus = "waiting"
	EntryNotified EntryStatus = "notified"
	EntryReady    EntryStatus = "ready"
	EntryAtLunch  EntryStatus = "at_lunch"
	EntryFinished EntryStatus = "finished"
)

func (s EntryStatus) rank() int {
	switch s {
	case EntryWaiting:
		return 0
	case EntryNotified:
		return 1
	case EntryReady:
		return 2
	case EntryAtLunch:
		return 3
	case EntryFinished:
		return 4
	}
	return -1
}

// CanAdvanceTo reports whether next is a forward step. Every status may jump
// to finished (forced close / expiry), otherwise only the immediate successor
// in waiting -> notified -> ready -> at_lunch -> finished is allowed.
func (s EntryStatus) CanAdvanceTo(next EntryStatus) bool {
	cur, nxt := s.rank(), next.rank()
	if cur < 0 || nxt < 0 || s == EntryFinished {
		return false
	}
	return nxt == cur+1 || next == EntryFinished
}

// QueueEntry is one participant's slot within a session. It is never deleted;
// a finished entry remains as the day's audit trail.
type QueueEntry struct {
	ID              string      `json:"id"`
	SessionID       string      `json:"session_id"`
	ParticipantID   string      `json:"participant_id"`
	Position        int         `json:"position"`
	Status          EntryStatus `json:"status"`
	BatchID         string      `json:"batch_id,omitempty"`
	NotifiedAt      *time.Time  `json:"notified_at,omitempty"`
	StartPromptedAt *time.Time  `json:"start_prompted_at,omitempty"`
	LunchStartedAt  *time.Time  `json:"lunch_started_at,omitempty"`
	LunchFinishedAt *time.Time  `json:"lunch_finished_at,omitempty"`
	ReminderSentAt  *time.Time  `json:"reminder_sent_at,omitempty"`
}

// RemainingLunchTime returns how much of the return window is left.
// Negative when the entry is overdue, zero when lunch has not started.
func (e *QueueEntry) RemainingLunchTime(now time.Time, returnWindow time.Duration) time.Duration {
	if e.LunchStartedAt == nil {
		return 0
	}
	return e.LunchStartedAt.Add(returnWindow).Sub(now)
}

// QueueStatsLine is one row of the supervisor status board.
type QueueStatsLine struct {
	Position  int         `json:"position"`
	Name      string      `json:"name"`
	Status    EntryStatus `json:"status"`
	StartedAt *time.Time  `json:"started_at,omitempty"`
}

// QueueStats is the read-only snapshot behind dashboards and /status.
type QueueStats struct {
	SessionID    string           `json:"session_id"`
	TotalInQueue int              `json:"total_in_queue"`
	InProgress   int              `json:"in_progress"`
	Waiting      int              `json:"waiting"`
	Finished     int              `json:"finished"`
	Entries      []QueueStatsLine `json:"entries"`
}
