package services

import "context"

// Action is an opaque labeled trigger the transport renders as a button.
// When pressed, the data string comes back through the action surface.
type Action struct {
	Label string `json:"label"`
	Data  string `json:"data"`
}

// Notifier is the outbound messaging port. Recipients are addressed by the
// participant's external id; delivery failures are returned, never retried
// here (the next admission pass retries).
type Notifier interface {
	Notify(ctx context.Context, recipientID, text string, actions ...Action) error
	// Announce publishes to the shared channel everyone can see.
	Announce(ctx context.Context, text string, actions ...Action) error
}
