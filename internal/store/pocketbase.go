// Package store implements the persistence surface on top of PocketBase
// collections. Records are mapped to the domain models at the boundary; no
// *core.Record leaks out.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"

	"lunch-queue/internal/status"
	"lunch-queue/models"
)

const (
	collectionParticipants = "participants"
	collectionSessions     = "lunch_sessions"
	collectionQueue        = "lunch_queue"
)

type PocketBaseStore struct {
	app core.App
}

func New(app core.App) *PocketBaseStore {
	return &PocketBaseStore{app: app}
}

// Participants

func (s *PocketBaseStore) UpsertParticipant(ctx context.Context, p *models.Participant) error {
	record, err := s.app.FindFirstRecordByFilter(
		collectionParticipants,
		"external_id = {:externalId}",
		dbx.Params{"externalId": p.ExternalID},
	)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("find participant: %w", err)
	}
	if record == nil {
		collection, err := s.app.FindCollectionByNameOrId(collectionParticipants)
		if err != nil {
			return err
		}
		record = core.NewRecord(collection)
		record.Set("external_id", p.ExternalID)
		record.Set("role", string(p.Role))
	}
	record.Set("first_name", p.FirstName)
	record.Set("last_name", p.LastName)
	record.Set("username", p.Username)
	if err := s.app.Save(record); err != nil {
		return fmt.Errorf("save participant: %w", err)
	}
	p.ID = record.Id
	p.Role = models.Role(record.GetString("role"))
	return nil
}

func (s *PocketBaseStore) FindParticipant(ctx context.Context, id string) (*models.Participant, error) {
	record, err := s.app.FindRecordById(collectionParticipants, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, status.ErrParticipantNotFound
		}
		return nil, err
	}
	return recordToParticipant(record), nil
}

func (s *PocketBaseStore) FindParticipantByExternalID(ctx context.Context, externalID string) (*models.Participant, error) {
	record, err := s.app.FindFirstRecordByFilter(
		collectionParticipants,
		"external_id = {:externalId}",
		dbx.Params{"externalId": externalID},
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return recordToParticipant(record), nil
}

func (s *PocketBaseStore) SetParticipantRole(ctx context.Context, externalID string, role models.Role) (*models.Participant, error) {
	record, err := s.app.FindFirstRecordByFilter(
		collectionParticipants,
		"external_id = {:externalId}",
		dbx.Params{"externalId": externalID},
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, status.ErrParticipantNotFound
		}
		return nil, err
	}
	record.Set("role", string(role))
	if err := s.app.Save(record); err != nil {
		return nil, fmt.Errorf("save participant role: %w", err)
	}
	return recordToParticipant(record), nil
}

func (s *PocketBaseStore) ListSupervisors(ctx context.Context) ([]models.Participant, error) {
	records, err := s.app.FindRecordsByFilter(
		collectionParticipants,
		"role = {:role}",
		"external_id",
		-1,
		0,
		dbx.Params{"role": string(models.RoleSupervisor)},
	)
	if err != nil {
		return nil, err
	}
	participants := make([]models.Participant, len(records))
	for i, record := range records {
		participants[i] = *recordToParticipant(record)
	}
	return participants, nil
}

// Sessions

func (s *PocketBaseStore) CreateSession(ctx context.Context, session *models.Session) error {
	collection, err := s.app.FindCollectionByNameOrId(collectionSessions)
	if err != nil {
		return err
	}
	record := core.NewRecord(collection)
	applySession(record, session)
	if err := s.app.Save(record); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	session.ID = record.Id
	return nil
}

func (s *PocketBaseStore) FindSession(ctx context.Context, id string) (*models.Session, error) {
	record, err := s.app.FindRecordById(collectionSessions, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, status.ErrSessionNotFound
		}
		return nil, err
	}
	return recordToSession(record), nil
}

func (s *PocketBaseStore) FindSessionByDateTime(ctx context.Context, date, announcementTime string) (*models.Session, error) {
	record, err := s.app.FindFirstRecordByFilter(
		collectionSessions,
		"date = {:date} && announcement_time = {:announcementTime}",
		dbx.Params{"date": date, "announcementTime": announcementTime},
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return recordToSession(record), nil
}

func (s *PocketBaseStore) FindLatestSessionForDate(ctx context.Context, date string, statuses ...models.SessionStatus) (*models.Session, error) {
	filter, params := sessionForDateFilter(date, statuses)
	records, err := s.app.FindRecordsByFilter(collectionSessions, filter, "-created", 1, 0, params)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return recordToSession(records[0]), nil
}

// sessionForDateFilter keeps the status disjunction parenthesized: && binds
// tighter than || in the filter language, so a bare status disjunct would
// escape the date constraint and match sessions of any date.
func sessionForDateFilter(date string, statuses []models.SessionStatus) (string, dbx.Params) {
	filter := "date = {:date}"
	params := dbx.Params{"date": date}
	if len(statuses) == 0 {
		return filter, params
	}
	parts := make([]string, len(statuses))
	for i, st := range statuses {
		key := fmt.Sprintf("status%d", i)
		parts[i] = "status = {:" + key + "}"
		params[key] = string(st)
	}
	return filter + " && (" + strings.Join(parts, " || ") + ")", params
}

func (s *PocketBaseStore) ListSessionsByStatus(ctx context.Context, sessionStatus models.SessionStatus) ([]models.Session, error) {
	records, err := s.app.FindRecordsByFilter(
		collectionSessions,
		"status = {:status}",
		"-created",
		-1,
		0,
		dbx.Params{"status": string(sessionStatus)},
	)
	if err != nil {
		return nil, err
	}
	sessions := make([]models.Session, len(records))
	for i, record := range records {
		sessions[i] = *recordToSession(record)
	}
	return sessions, nil
}

func (s *PocketBaseStore) UpdateSession(ctx context.Context, session *models.Session) error {
	record, err := s.app.FindRecordById(collectionSessions, session.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return status.ErrSessionNotFound
		}
		return err
	}
	applySession(record, session)
	if err := s.app.Save(record); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Queue entries

func (s *PocketBaseStore) CreateEntry(ctx context.Context, e *models.QueueEntry) error {
	collection, err := s.app.FindCollectionByNameOrId(collectionQueue)
	if err != nil {
		return err
	}
	record := core.NewRecord(collection)
	applyEntry(record, e)
	if err := s.app.Save(record); err != nil {
		return fmt.Errorf("save queue entry: %w", err)
	}
	e.ID = record.Id
	return nil
}

func (s *PocketBaseStore) FindEntry(ctx context.Context, id string) (*models.QueueEntry, error) {
	record, err := s.app.FindRecordById(collectionQueue, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, status.ErrEntryNotFound
		}
		return nil, err
	}
	return recordToEntry(record), nil
}

// FindEntryForParticipantDate joins the queue against the sessions table so a
// participant enrolled in any of the day's sessions is found.
func (s *PocketBaseStore) FindEntryForParticipantDate(ctx context.Context, participantID, date string) (*models.QueueEntry, error) {
	var rows []dbx.NullStringMap
	err := s.app.DB().NewQuery(
		"SELECT q.id FROM " + collectionQueue + " q" +
			" JOIN " + collectionSessions + " s ON q.session = s.id" +
			" WHERE q.participant = {:participant} AND s.date = {:date}" +
			" LIMIT 1",
	).Bind(dbx.Params{"participant": participantID, "date": date}).All(&rows)
	if err != nil {
		return nil, fmt.Errorf("query entry for date: %w", err)
	}
	if len(rows) == 0 || rows[0]["id"].String == "" {
		return nil, nil
	}
	return s.FindEntry(ctx, rows[0]["id"].String)
}

func (s *PocketBaseStore) CountEntries(ctx context.Context, sessionID string) (int, error) {
	total, err := s.app.CountRecords(collectionQueue, dbx.HashExp{"session": sessionID})
	if err != nil {
		return 0, err
	}
	return int(total), nil
}

func (s *PocketBaseStore) CountEntriesInStatus(ctx context.Context, sessionID string, statuses ...models.EntryStatus) (int, error) {
	vals := make([]any, len(statuses))
	for i, st := range statuses {
		vals[i] = string(st)
	}
	total, err := s.app.CountRecords(collectionQueue, dbx.And(
		dbx.HashExp{"session": sessionID},
		dbx.In("status", vals...),
	))
	if err != nil {
		return 0, err
	}
	return int(total), nil
}

func (s *PocketBaseStore) ListEntries(ctx context.Context, sessionID string) ([]models.QueueEntry, error) {
	records, err := s.app.FindRecordsByFilter(
		collectionQueue,
		"session = {:sessionId}",
		"position",
		-1,
		0,
		dbx.Params{"sessionId": sessionID},
	)
	if err != nil {
		return nil, err
	}
	return recordsToEntries(records), nil
}

func (s *PocketBaseStore) ListWaiting(ctx context.Context, sessionID string, limit int) ([]models.QueueEntry, error) {
	records, err := s.app.FindRecordsByFilter(
		collectionQueue,
		"session = {:sessionId} && status = {:status}",
		"position",
		limit,
		0,
		dbx.Params{"sessionId": sessionID, "status": string(models.EntryWaiting)},
	)
	if err != nil {
		return nil, err
	}
	return recordsToEntries(records), nil
}

func (s *PocketBaseStore) ListBatch(ctx context.Context, sessionID, batchID string) ([]models.QueueEntry, error) {
	records, err := s.app.FindRecordsByFilter(
		collectionQueue,
		"session = {:sessionId} && batch_id = {:batchId}",
		"position",
		-1,
		0,
		dbx.Params{"sessionId": sessionID, "batchId": batchID},
	)
	if err != nil {
		return nil, err
	}
	return recordsToEntries(records), nil
}

func (s *PocketBaseStore) ListAtLunch(ctx context.Context) ([]models.QueueEntry, error) {
	records, err := s.app.FindRecordsByFilter(
		collectionQueue,
		"status = {:status}",
		"lunch_started_at",
		-1,
		0,
		dbx.Params{"status": string(models.EntryAtLunch)},
	)
	if err != nil {
		return nil, err
	}
	return recordsToEntries(records), nil
}

func (s *PocketBaseStore) UpdateEntry(ctx context.Context, e *models.QueueEntry) error {
	record, err := s.app.FindRecordById(collectionQueue, e.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return status.ErrEntryNotFound
		}
		return err
	}
	applyEntry(record, e)
	if err := s.app.Save(record); err != nil {
		return fmt.Errorf("save queue entry: %w", err)
	}
	return nil
}

// Converters

func recordToParticipant(record *core.Record) *models.Participant {
	return &models.Participant{
		ID:         record.Id,
		ExternalID: record.GetString("external_id"),
		FirstName:  record.GetString("first_name"),
		LastName:   record.GetString("last_name"),
		Username:   record.GetString("username"),
		Role:       models.Role(record.GetString("role")),
	}
}

func recordToSession(record *core.Record) *models.Session {
	return &models.Session{
		ID:               record.Id,
		Date:             record.GetString("date"),
		AnnouncementTime: record.GetString("announcement_time"),
		StartTime:        record.GetString("start_time"),
		ConcurrencyLimit: record.GetInt("concurrency_limit"),
		GroupSize:        record.GetInt("group_size"),
		Status:           models.SessionStatus(record.GetString("status")),
	}
}

func applySession(record *core.Record, s *models.Session) {
	record.Set("date", s.Date)
	record.Set("announcement_time", s.AnnouncementTime)
	record.Set("start_time", s.StartTime)
	record.Set("concurrency_limit", s.ConcurrencyLimit)
	record.Set("group_size", s.GroupSize)
	record.Set("status", string(s.Status))
}

func recordToEntry(record *core.Record) *models.QueueEntry {
	return &models.QueueEntry{
		ID:              record.Id,
		SessionID:       record.GetString("session"),
		ParticipantID:   record.GetString("participant"),
		Position:        record.GetInt("position"),
		Status:          models.EntryStatus(record.GetString("status")),
		BatchID:         record.GetString("batch_id"),
		NotifiedAt:      timePtr(record, "notified_at"),
		StartPromptedAt: timePtr(record, "start_prompted_at"),
		LunchStartedAt:  timePtr(record, "lunch_started_at"),
		LunchFinishedAt: timePtr(record, "lunch_finished_at"),
		ReminderSentAt:  timePtr(record, "reminder_sent_at"),
	}
}

func applyEntry(record *core.Record, e *models.QueueEntry) {
	record.Set("session", e.SessionID)
	record.Set("participant", e.ParticipantID)
	record.Set("position", e.Position)
	record.Set("status", string(e.Status))
	record.Set("batch_id", e.BatchID)
	setTime(record, "notified_at", e.NotifiedAt)
	setTime(record, "start_prompted_at", e.StartPromptedAt)
	setTime(record, "lunch_started_at", e.LunchStartedAt)
	setTime(record, "lunch_finished_at", e.LunchFinishedAt)
	setTime(record, "reminder_sent_at", e.ReminderSentAt)
}

func recordsToEntries(records []*core.Record) []models.QueueEntry {
	entries := make([]models.QueueEntry, len(records))
	for i, record := range records {
		entries[i] = *recordToEntry(record)
	}
	return entries
}

func timePtr(record *core.Record, field string) *time.Time {
	dt := record.GetDateTime(field)
	if dt.IsZero() {
		return nil
	}
	t := dt.Time()
	return &t
}

func setTime(record *core.Record, field string, t *time.Time) {
	if t == nil {
		record.Set(field, "")
		return
	}
	record.Set(field, t.UTC())
}
