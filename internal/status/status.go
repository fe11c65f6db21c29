package status

import "errors"

var (
	ErrDuplicateSession    = errors.New("session: session already exists for this date and announcement time")
	ErrSessionNotFound     = errors.New("session: session not found")
	ErrSessionNotActive    = errors.New("session: session is not active")
	ErrSessionFinished     = errors.New("session: session is finished")
	ErrInvalidTransition   = errors.New("session: transition not allowed from current status")
	ErrEntryNotFound       = errors.New("queue: entry not found")
	ErrNotNotified         = errors.New("queue: entry is not in notified status")
	ErrNotReady            = errors.New("queue: entry is not in ready status")
	ErrNotAtLunch          = errors.New("queue: entry is not at lunch")
	ErrParticipantNotFound = errors.New("participant: participant not found")

	// ErrNotificationDelivery is absorbed by the admission engine: the entry
	// stays in waiting and is picked up again on the next pass.
	ErrNotificationDelivery = errors.New("notify: message delivery failed")
)
