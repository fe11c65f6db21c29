package services

import (
	"context"

	"lunch-queue/models"
)

// Store is the persistence surface the lunch service relies on. The
// production implementation lives in internal/store on top of PocketBase;
// tests substitute an in-memory one.
type Store interface {
	// Participants are created on first contact and never deleted.
	UpsertParticipant(ctx context.Context, p *models.Participant) error
	FindParticipant(ctx context.Context, id string) (*models.Participant, error)
	FindParticipantByExternalID(ctx context.Context, externalID string) (*models.Participant, error)
	SetParticipantRole(ctx context.Context, externalID string, role models.Role) (*models.Participant, error)
	ListSupervisors(ctx context.Context) ([]models.Participant, error)

	CreateSession(ctx context.Context, s *models.Session) error
	FindSession(ctx context.Context, id string) (*models.Session, error)
	FindSessionByDateTime(ctx context.Context, date, announcementTime string) (*models.Session, error)
	// FindLatestSessionForDate returns the newest session for the date whose
	// status is one of the given ones, or nil when there is none.
	FindLatestSessionForDate(ctx context.Context, date string, statuses ...models.SessionStatus) (*models.Session, error)
	ListSessionsByStatus(ctx context.Context, status models.SessionStatus) ([]models.Session, error)
	UpdateSession(ctx context.Context, s *models.Session) error

	CreateEntry(ctx context.Context, e *models.QueueEntry) error
	FindEntry(ctx context.Context, id string) (*models.QueueEntry, error)
	// FindEntryForParticipantDate looks across all sessions of the date; the
	// "already enrolled today" rule spans sessions.
	FindEntryForParticipantDate(ctx context.Context, participantID, date string) (*models.QueueEntry, error)
	CountEntries(ctx context.Context, sessionID string) (int, error)
	CountEntriesInStatus(ctx context.Context, sessionID string, statuses ...models.EntryStatus) (int, error)
	// ListEntries returns every entry of the session ordered by position.
	ListEntries(ctx context.Context, sessionID string) ([]models.QueueEntry, error)
	// ListWaiting returns up to limit waiting entries ordered by position.
	ListWaiting(ctx context.Context, sessionID string, limit int) ([]models.QueueEntry, error)
	ListBatch(ctx context.Context, sessionID, batchID string) ([]models.QueueEntry, error)
	// ListAtLunch spans all sessions; the sweep recomputes deadlines from it.
	ListAtLunch(ctx context.Context) ([]models.QueueEntry, error)
	UpdateEntry(ctx context.Context, e *models.QueueEntry) error
}

// Locker serializes mutating operations per session. Acquire blocks until the
// lock is held or ctx is done; the returned func releases it.
type Locker interface {
	Acquire(ctx context.Context, key string) (func(), error)
}
