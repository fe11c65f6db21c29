package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSessionStatusCanAdvanceTo(t *testing.T) {
	tests := []struct {
		from    SessionStatus
		to      SessionStatus
		allowed bool
	}{
		{SessionCollecting, SessionActive, true},
		{SessionCollecting, SessionFinished, true},
		{SessionActive, SessionFinished, true},
		{SessionActive, SessionCollecting, false},
		{SessionFinished, SessionActive, false},
		{SessionFinished, SessionCollecting, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.allowed, tt.from.CanAdvanceTo(tt.to),
			"%s -> %s", tt.from, tt.to)
	}
}

func TestEntryStatusCanAdvanceTo(t *testing.T) {
	tests := []struct {
		from    EntryStatus
		to      EntryStatus
		allowed bool
	}{
		{EntryWaiting, EntryNotified, true},
		{EntryNotified, EntryReady, true},
		{EntryReady, EntryAtLunch, true},
		{EntryAtLunch, EntryFinished, true},
		// Forced finish is allowed from any live state.
		{EntryWaiting, EntryFinished, true},
		{EntryNotified, EntryFinished, true},
		{EntryReady, EntryFinished, true},
		// No skipping or regressing.
		{EntryWaiting, EntryReady, false},
		{EntryNotified, EntryAtLunch, false},
		{EntryReady, EntryNotified, false},
		{EntryAtLunch, EntryWaiting, false},
		{EntryFinished, EntryWaiting, false},
		{EntryFinished, EntryAtLunch, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.allowed, tt.from.CanAdvanceTo(tt.to),
			"%s -> %s", tt.from, tt.to)
	}
}

func TestSessionDueToStart(t *testing.T) {
	session := &Session{Date: "2026-08-29", StartTime: "13:00"}

	before := time.Date(2026, 8, 29, 12, 59, 0, 0, time.Local)
	at := time.Date(2026, 8, 29, 13, 0, 0, 0, time.Local)
	after := time.Date(2026, 8, 29, 14, 30, 0, 0, time.Local)

	assert.False(t, session.DueToStart(before))
	assert.True(t, session.DueToStart(at))
	assert.True(t, session.DueToStart(after))

	broken := &Session{Date: "2026-08-29", StartTime: "25:99"}
	assert.False(t, broken.DueToStart(after))
}

func TestRemainingLunchTime(t *testing.T) {
	now := time.Date(2026, 8, 29, 13, 20, 0, 0, time.UTC)
	started := now.Add(-20 * time.Minute)

	entry := &QueueEntry{LunchStartedAt: &started}
	assert.Equal(t, 10*time.Minute, entry.RemainingLunchTime(now, 30*time.Minute))

	overdue := now.Add(-40 * time.Minute)
	entry = &QueueEntry{LunchStartedAt: &overdue}
	assert.Equal(t, -10*time.Minute, entry.RemainingLunchTime(now, 30*time.Minute))

	entry = &QueueEntry{}
	assert.Equal(t, time.Duration(0), entry.RemainingLunchTime(now, 30*time.Minute))
}

func TestParticipantDisplayName(t *testing.T) {
	assert.Equal(t, "Alex", (&Participant{FirstName: "Alex", Username: "alx", ExternalID: "42"}).DisplayName())
	assert.Equal(t, "alx", (&Participant{Username: "alx", ExternalID: "42"}).DisplayName())
	assert.Equal(t, "42", (&Participant{ExternalID: "42"}).DisplayName())
}
