package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"lunch-queue/internal/status"
	"lunch-queue/models"
)

// Callback data prefixes for inline actions.
const (
	actionJoinQueue    = "join_queue_"
	actionConfirmLunch = "confirm_lunch_"
	actionStartLunch   = "start_lunch_"
	actionReturnLunch  = "return_lunch_"
)

func JoinQueueAction(sessionID string) Action {
	return Action{Label: "Join lunch queue", Data: actionJoinQueue + sessionID}
}

func ConfirmLunchAction(entryID string) Action {
	return Action{Label: "I'm going", Data: actionConfirmLunch + entryID}
}

func StartLunchAction(entryID string) Action {
	return Action{Label: "Start lunch", Data: actionStartLunch + entryID}
}

func ReturnLunchAction(entryID string) Action {
	return Action{Label: "I'm back", Data: actionReturnLunch + entryID}
}

func announcementMessage(s *models.Session, returnWindow time.Duration) string {
	return fmt.Sprintf(
		"Lunch sign-up is open!\nStart: %s\nDuration: %d minutes\nUp to %d people at once.",
		s.StartTime, int(returnWindow.Minutes()), s.ConcurrencyLimit)
}

func queuePromptMessage(now time.Time, returnWindow time.Duration) string {
	return fmt.Sprintf(
		"Your lunch turn!\nTime: %s\nDuration: %d minutes\nConfirm that you are going to lunch.",
		now.Format(models.TimeLayout), int(returnWindow.Minutes()))
}

func joinedMessage(position int) string {
	return fmt.Sprintf("You are in the lunch queue. Your number: %d", position)
}

func enrollmentRejectedMessage() string {
	return "You are already in the queue today or sign-up is closed."
}

func noSessionMessage() string {
	return "There is no lunch session open for sign-up right now."
}

func entryStatusMessage(e *models.QueueEntry) string {
	return fmt.Sprintf("Your queue number: %d\nStatus: %s", e.Position, statusLabel(e.Status))
}

func groupReadyMessage() string {
	return "Everyone in your group is ready! Press the button when you actually start your lunch."
}

func readyProgressMessage(ready, total int) string {
	return fmt.Sprintf("You confirmed you're ready. Waiting for others: %d/%d", ready, total)
}

func lunchStartedMessage(returnWindow time.Duration) string {
	return fmt.Sprintf("Enjoy your lunch! Don't forget to return in %d minutes.", int(returnWindow.Minutes()))
}

func returnedMessage() string {
	return "Thank you for confirming your return!"
}

func reminderMessage(remaining time.Duration) string {
	minutes := int(remaining.Round(time.Minute).Minutes())
	if minutes < 1 {
		minutes = 1
	}
	return fmt.Sprintf("Your lunch break ends in %d min. Please wrap up and head back.", minutes)
}

func overdueMessage() string {
	return "Lunch time is over! Your break was closed automatically, please return to work."
}

func cancelledMessage() string {
	return "Lunch sign-up was cancelled."
}

func recordNotFoundMessage() string {
	return "Record not found."
}

func supervisorGoingMessage(name string, at time.Time) string {
	return fmt.Sprintf("%s is going to lunch (%s)", name, at.Format(models.TimeLayout))
}

func supervisorReturnedMessage(name string, at time.Time) string {
	return fmt.Sprintf("%s returned from lunch (%s)", name, at.Format(models.TimeLayout))
}

func supervisorOverdueMessage(name string, at time.Time) string {
	return fmt.Sprintf("%s exceeded lunch time, closed automatically (%s)", name, at.Format(models.TimeLayout))
}

// rejectionMessage maps a domain rejection to the participant-facing reply.
// Unmapped errors are infrastructure failures and stay errors.
func rejectionMessage(err error) (string, bool) {
	switch {
	case errors.Is(err, status.ErrNotNotified):
		return "Your queue is not ready for confirmation.", true
	case errors.Is(err, status.ErrNotReady):
		return "Your group is not ready to start lunch yet.", true
	case errors.Is(err, status.ErrNotAtLunch):
		return "Record not found or you have already returned from lunch.", true
	case errors.Is(err, status.ErrSessionNotActive):
		return "The lunch session has not started yet.", true
	case errors.Is(err, status.ErrSessionFinished):
		return "The lunch session is already over.", true
	case errors.Is(err, status.ErrEntryNotFound):
		return recordNotFoundMessage(), true
	case errors.Is(err, status.ErrSessionNotFound):
		return noSessionMessage(), true
	}
	return "", false
}

func statusLabel(s models.EntryStatus) string {
	switch s {
	case models.EntryWaiting:
		return "waiting"
	case models.EntryNotified:
		return "notified"
	case models.EntryReady:
		return "ready"
	case models.EntryAtLunch:
		return "at lunch"
	case models.EntryFinished:
		return "finished"
	}
	return "unknown"
}

// StatusBoard renders the human-readable session dashboard.
func StatusBoard(s *models.Session, stats *models.QueueStats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Status for %s\n\n", s.Date)
	fmt.Fprintf(&b, "Total in queue: %d\n", stats.TotalInQueue)
	fmt.Fprintf(&b, "In progress: %d / %d\n", stats.InProgress, s.ConcurrencyLimit)
	fmt.Fprintf(&b, "Waiting: %d\n", stats.Waiting)
	fmt.Fprintf(&b, "Finished: %d\n\n", stats.Finished)
	b.WriteString("Queue:\n")
	if len(stats.Entries) == 0 {
		b.WriteString("Queue is empty.")
		return b.String()
	}
	for _, line := range stats.Entries {
		fmt.Fprintf(&b, "%d. %s - %s\n", line.Position, line.Name, statusLabel(line.Status))
	}
	return b.String()
}

// GroupBoard renders the queue chunked into admission-sized groups with an
// aggregate status per group.
func GroupBoard(s *models.Session, stats *models.QueueStats) string {
	if len(stats.Entries) == 0 {
		return "No one is in the queue yet."
	}
	size := s.GroupSize
	if size < 1 {
		size = 1
	}
	var b strings.Builder
	b.WriteString("Current lunch groups\n")
	for i := 0; i < len(stats.Entries); i += size {
		end := i + size
		if end > len(stats.Entries) {
			end = len(stats.Entries)
		}
		group := stats.Entries[i:end]
		fmt.Fprintf(&b, "\nGroup %d (%s)\n", i/size+1, groupStatus(group))
		for _, line := range group {
			fmt.Fprintf(&b, "%d. %s - %s\n", line.Position, line.Name, statusLabel(line.Status))
		}
	}
	fmt.Fprintf(&b, "\nTotal people in queue: %d\nGroup size: %d", len(stats.Entries), size)
	return b.String()
}

func groupStatus(group []models.QueueStatsLine) string {
	has := func(status models.EntryStatus) bool {
		for _, line := range group {
			if line.Status == status {
				return true
			}
		}
		return false
	}
	switch {
	case has(models.EntryAtLunch):
		return "at lunch"
	case has(models.EntryFinished):
		return "finished"
	case has(models.EntryReady) || has(models.EntryNotified):
		return "ready to start"
	default:
		return "waiting"
	}
}
