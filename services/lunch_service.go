package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"lunch-queue/config"
	"lunch-queue/internal/status"
	"lunch-queue/models"
	"lunch-queue/monitoring"
	"lunch-queue/utils"
)

// LunchService is the admission core: session lifecycle, enrollment, the
// admission engine, the confirmation handshake and the reminder/expiry sweep.
// Every mutating operation is serialized per session through the Locker.
type LunchService struct {
	store    Store
	notifier Notifier
	locker   Locker
	monitor  *monitoring.Monitor
	config   *config.Config
}

func NewLunchService(store Store, notifier Notifier, locker Locker, monitor *monitoring.Monitor, cfg *config.Config) *LunchService {
	return &LunchService{
		store:    store,
		notifier: notifier,
		locker:   locker,
		monitor:  monitor,
		config:   cfg,
	}
}

// advanceSession and advanceEntry are the only status mutators; every
// lifecycle move has to pass CanAdvanceTo.

func advanceSession(session *models.Session, next models.SessionStatus) error {
	if !session.Status.CanAdvanceTo(next) {
		return status.ErrInvalidTransition
	}
	session.Status = next
	return nil
}

func advanceEntry(entry *models.QueueEntry, next models.EntryStatus) error {
	if !entry.Status.CanAdvanceTo(next) {
		return status.ErrInvalidTransition
	}
	entry.Status = next
	return nil
}

// CreateSession opens a new collecting session and announces it on the shared
// channel. Empty/zero arguments fall back to the configured defaults.
func (s *LunchService) CreateSession(ctx context.Context, date, announcementTime, startTime string, concurrencyLimit, groupSize int) (*models.Session, error) {
	if date == "" {
		date = time.Now().Format(models.DateLayout)
	}
	if announcementTime == "" {
		announcementTime = s.config.AnnouncementTime
	}
	if startTime == "" {
		startTime = s.config.StartTime
	}
	if concurrencyLimit <= 0 {
		concurrencyLimit = s.config.DefaultConcurrencyLimit
	}
	if groupSize <= 0 {
		groupSize = s.config.DefaultGroupSize
	}

	existing, err := s.store.FindSessionByDateTime(ctx, date, announcementTime)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, status.ErrDuplicateSession
	}

	session := &models.Session{
		Date:             date,
		AnnouncementTime: announcementTime,
		StartTime:        startTime,
		ConcurrencyLimit: concurrencyLimit,
		GroupSize:        groupSize,
		Status:           models.SessionCollecting,
	}
	if err := s.store.CreateSession(ctx, session); err != nil {
		return nil, err
	}
	s.monitor.TrackOperation("create_session", "success")

	if err := s.notifier.Announce(ctx, announcementMessage(session, s.config.ReturnWindow), JoinQueueAction(session.ID)); err != nil {
		slog.Warn("announcement delivery failed", "session", session.ID, "error", err)
	}
	return session, nil
}

// Activate moves a collecting session to active and runs the first admission
// pass. Returns how many entries were notified.
func (s *LunchService) Activate(ctx context.Context, sessionID string) (int, error) {
	release, err := s.locker.Acquire(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	defer release()

	session, err := s.store.FindSession(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	if session.Status == models.SessionFinished {
		return 0, status.ErrSessionFinished
	}
	if err := advanceSession(session, models.SessionActive); err != nil {
		return 0, err
	}
	if err := s.store.UpdateSession(ctx, session); err != nil {
		return 0, err
	}
	s.monitor.TrackOperation("activate", "success")
	return s.admitLocked(ctx, session)
}

// Close finishes a session from collecting or active. Every entry that has
// not finished is force-finished; those still waiting get a cancellation
// notice. Returns the number of cancellation notices sent.
func (s *LunchService) Close(ctx context.Context, sessionID string) (int, error) {
	release, err := s.locker.Acquire(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	defer release()

	session, err := s.store.FindSession(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	if session.Status == models.SessionFinished {
		return 0, status.ErrSessionFinished
	}
	if err := advanceSession(session, models.SessionFinished); err != nil {
		return 0, err
	}
	if err := s.store.UpdateSession(ctx, session); err != nil {
		return 0, err
	}

	entries, err := s.store.ListEntries(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	now := time.Now()
	cancelled := 0
	for i := range entries {
		entry := &entries[i]
		if entry.Status == models.EntryFinished {
			continue
		}
		wasWaiting := entry.Status == models.EntryWaiting
		if err := advanceEntry(entry, models.EntryFinished); err != nil {
			return cancelled, err
		}
		entry.LunchFinishedAt = &now
		if err := s.store.UpdateEntry(ctx, entry); err != nil {
			return cancelled, err
		}
		if wasWaiting {
			if participant, err := s.store.FindParticipant(ctx, entry.ParticipantID); err == nil {
				s.trySend(ctx, participant.ExternalID, cancelledMessage())
			}
			cancelled++
		}
	}
	s.monitor.TrackOperation("close", "success")
	s.monitor.SetQueueDepth(sessionID, 0, 0)
	return cancelled, nil
}

// SetConcurrencyLimit changes the session's concurrency policy. Takes effect
// on the next admission pass; already-notified entries are not re-evaluated.
func (s *LunchService) SetConcurrencyLimit(ctx context.Context, sessionID string, limit int) error {
	if limit < 1 {
		return fmt.Errorf("concurrency limit must be at least 1, got %d", limit)
	}
	return s.updatePolicy(ctx, sessionID, func(session *models.Session) {
		session.ConcurrencyLimit = limit
	})
}

// SetGroupSize changes how many entries are notified per admission batch.
// Batches already notified keep their frozen membership.
func (s *LunchService) SetGroupSize(ctx context.Context, sessionID string, size int) error {
	if size < 1 {
		return fmt.Errorf("group size must be at least 1, got %d", size)
	}
	return s.updatePolicy(ctx, sessionID, func(session *models.Session) {
		session.GroupSize = size
	})
}

func (s *LunchService) updatePolicy(ctx context.Context, sessionID string, apply func(*models.Session)) error {
	release, err := s.locker.Acquire(ctx, sessionID)
	if err != nil {
		return err
	}
	defer release()

	session, err := s.store.FindSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.Status == models.SessionFinished {
		return status.ErrSessionFinished
	}
	apply(session)
	return s.store.UpdateSession(ctx, session)
}

// Enroll adds the participant to the session's queue. Rejections (collection
// closed, already enrolled today) are a normal outcome, not an error: the
// second return value is false and the error nil.
func (s *LunchService) Enroll(ctx context.Context, participantID, sessionID string) (*models.QueueEntry, bool, error) {
	release, err := s.locker.Acquire(ctx, sessionID)
	if err != nil {
		return nil, false, err
	}
	defer release()

	session, err := s.store.FindSession(ctx, sessionID)
	if err != nil {
		return nil, false, err
	}
	if session.Status != models.SessionCollecting {
		s.monitor.TrackOperation("enroll", "rejected")
		return nil, false, nil
	}
	existing, err := s.store.FindEntryForParticipantDate(ctx, participantID, session.Date)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		s.monitor.TrackOperation("enroll", "rejected")
		return nil, false, nil
	}

	count, err := s.store.CountEntries(ctx, sessionID)
	if err != nil {
		return nil, false, err
	}
	entry := &models.QueueEntry{
		SessionID:     sessionID,
		ParticipantID: participantID,
		Position:      count + 1,
		Status:        models.EntryWaiting,
	}
	if err := s.store.CreateEntry(ctx, entry); err != nil {
		return nil, false, err
	}
	s.monitor.TrackOperation("enroll", "success")
	return entry, true, nil
}

// EnrollToday enrolls into today's collecting session, if any.
func (s *LunchService) EnrollToday(ctx context.Context, participantID string, now time.Time) (*models.QueueEntry, bool, error) {
	session, err := s.store.FindLatestSessionForDate(ctx, now.Format(models.DateLayout), models.SessionCollecting)
	if err != nil {
		return nil, false, err
	}
	if session == nil {
		return nil, false, status.ErrSessionNotFound
	}
	return s.Enroll(ctx, participantID, session.ID)
}

// TodayEntry returns the participant's entry for today across all sessions,
// or nil when there is none.
func (s *LunchService) TodayEntry(ctx context.Context, participantID string, now time.Time) (*models.QueueEntry, error) {
	return s.store.FindEntryForParticipantDate(ctx, participantID, now.Format(models.DateLayout))
}

// Session returns one session by id.
func (s *LunchService) Session(ctx context.Context, id string) (*models.Session, error) {
	return s.store.FindSession(ctx, id)
}

// TodaySession returns today's newest session regardless of status.
func (s *LunchService) TodaySession(ctx context.Context, now time.Time) (*models.Session, error) {
	session, err := s.store.FindLatestSessionForDate(ctx, now.Format(models.DateLayout))
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, status.ErrSessionNotFound
	}
	return session, nil
}

// AdmitNext runs one admission pass: it notifies the lowest-position waiting
// entries up to the free capacity, bounded by the group size. Admission is
// level-triggered; calling it again is always safe.
func (s *LunchService) AdmitNext(ctx context.Context, sessionID string) (int, error) {
	release, err := s.locker.Acquire(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	defer release()

	session, err := s.store.FindSession(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	if session.Status == models.SessionFinished {
		return 0, status.ErrSessionFinished
	}
	if session.Status != models.SessionActive {
		return 0, status.ErrSessionNotActive
	}
	return s.admitLocked(ctx, session)
}

// admitLocked assumes the session lock is held.
func (s *LunchService) admitLocked(ctx context.Context, session *models.Session) (int, error) {
	inProgress, err := s.store.CountEntriesInStatus(ctx, session.ID,
		models.EntryNotified, models.EntryReady, models.EntryAtLunch)
	if err != nil {
		return 0, err
	}
	batchSize := session.ConcurrencyLimit - inProgress
	if session.GroupSize < batchSize {
		batchSize = session.GroupSize
	}
	if batchSize <= 0 {
		return 0, nil
	}
	waiting, err := s.store.ListWaiting(ctx, session.ID, batchSize)
	if err != nil {
		return 0, err
	}
	if len(waiting) == 0 {
		return 0, nil
	}

	// Batch membership is frozen at notify time; resizing the group later
	// must not regroup an in-flight handshake.
	batchID, err := utils.GenerateCode(6)
	if err != nil {
		return 0, fmt.Errorf("mint batch id: %w", err)
	}

	now := time.Now()
	notified := 0
	for i := range waiting {
		entry := &waiting[i]
		participant, err := s.store.FindParticipant(ctx, entry.ParticipantID)
		if err != nil {
			slog.Error("admission: participant lookup failed", "entry", entry.ID, "error", err)
			continue
		}
		if !s.trySend(ctx, participant.ExternalID, queuePromptMessage(now, s.config.ReturnWindow), ConfirmLunchAction(entry.ID)) {
			// Stays in waiting; the next pass retries.
			continue
		}
		if err := advanceEntry(entry, models.EntryNotified); err != nil {
			return notified, err
		}
		notifiedAt := now
		entry.NotifiedAt = &notifiedAt
		entry.BatchID = batchID
		if err := s.store.UpdateEntry(ctx, entry); err != nil {
			return notified, err
		}
		notified++
		s.monitor.TrackOperation("admit", "success")
		s.BroadcastToObservers(ctx, supervisorGoingMessage(participant.DisplayName(), now))
	}

	if waitingLeft, err := s.store.CountEntriesInStatus(ctx, session.ID, models.EntryWaiting); err == nil {
		s.monitor.SetQueueDepth(session.ID, waitingLeft, inProgress+notified)
	}
	return notified, nil
}

// ConfirmReady moves a notified entry to ready and re-evaluates the group
// barrier: when every member of the entry's batch is ready, each one gets the
// start-lunch prompt; until then the confirmer is told how many are missing.
// Delivered prompts are stamped on the entry; a member whose prompt failed is
// retried by the sweep.
func (s *LunchService) ConfirmReady(ctx context.Context, entryID string) error {
	entry, err := s.store.FindEntry(ctx, entryID)
	if err != nil {
		return err
	}
	release, err := s.locker.Acquire(ctx, entry.SessionID)
	if err != nil {
		return err
	}
	defer release()

	entry, err = s.store.FindEntry(ctx, entryID)
	if err != nil {
		return err
	}
	session, err := s.store.FindSession(ctx, entry.SessionID)
	if err != nil {
		return err
	}
	if session.Status == models.SessionFinished {
		return status.ErrSessionFinished
	}
	if entry.Status != models.EntryNotified {
		return status.ErrNotNotified
	}
	if err := advanceEntry(entry, models.EntryReady); err != nil {
		return err
	}
	if err := s.store.UpdateEntry(ctx, entry); err != nil {
		return err
	}
	s.monitor.TrackOperation("confirm_ready", "success")

	group, err := s.store.ListBatch(ctx, session.ID, entry.BatchID)
	if err != nil {
		return err
	}
	ready := 0
	for i := range group {
		if group[i].Status == models.EntryReady {
			ready++
		}
	}
	if ready == len(group) {
		now := time.Now()
		for i := range group {
			member := group[i]
			participant, err := s.store.FindParticipant(ctx, member.ParticipantID)
			if err != nil {
				slog.Error("handshake: participant lookup failed", "entry", member.ID, "error", err)
				continue
			}
			if !s.trySend(ctx, participant.ExternalID, groupReadyMessage(), StartLunchAction(member.ID)) {
				// Stays unstamped; the next sweep retries the prompt.
				continue
			}
			promptedAt := now
			member.StartPromptedAt = &promptedAt
			if err := s.store.UpdateEntry(ctx, &member); err != nil {
				slog.Error("handshake: prompt stamp failed", "entry", member.ID, "error", err)
			}
		}
		return nil
	}
	participant, err := s.store.FindParticipant(ctx, entry.ParticipantID)
	if err != nil {
		return err
	}
	s.trySend(ctx, participant.ExternalID, readyProgressMessage(ready, len(group)))
	return nil
}

// BeginLunch moves a ready entry to at_lunch and stamps the start time. The
// reminder and expiry deadlines are derived from that stamp by the sweep; no
// in-process timer is kept.
func (s *LunchService) BeginLunch(ctx context.Context, entryID string) error {
	entry, err := s.store.FindEntry(ctx, entryID)
	if err != nil {
		return err
	}
	release, err := s.locker.Acquire(ctx, entry.SessionID)
	if err != nil {
		return err
	}
	defer release()

	entry, err = s.store.FindEntry(ctx, entryID)
	if err != nil {
		return err
	}
	session, err := s.store.FindSession(ctx, entry.SessionID)
	if err != nil {
		return err
	}
	if session.Status == models.SessionFinished {
		return status.ErrSessionFinished
	}
	if session.Status != models.SessionActive {
		return status.ErrSessionNotActive
	}
	if entry.Status != models.EntryReady {
		return status.ErrNotReady
	}
	if err := advanceEntry(entry, models.EntryAtLunch); err != nil {
		return err
	}
	now := time.Now()
	entry.LunchStartedAt = &now
	if err := s.store.UpdateEntry(ctx, entry); err != nil {
		return err
	}
	s.monitor.TrackOperation("begin_lunch", "success")

	if participant, err := s.store.FindParticipant(ctx, entry.ParticipantID); err == nil {
		s.trySend(ctx, participant.ExternalID, lunchStartedMessage(s.config.ReturnWindow), ReturnLunchAction(entry.ID))
	}
	return nil
}

// ConfirmReturn finishes an at_lunch entry, fans the return out to the
// supervisors and immediately re-runs admission for the freed slot.
func (s *LunchService) ConfirmReturn(ctx context.Context, entryID string) error {
	entry, err := s.store.FindEntry(ctx, entryID)
	if err != nil {
		return err
	}
	release, err := s.locker.Acquire(ctx, entry.SessionID)
	if err != nil {
		return err
	}
	defer release()

	entry, err = s.store.FindEntry(ctx, entryID)
	if err != nil {
		return err
	}
	session, err := s.store.FindSession(ctx, entry.SessionID)
	if err != nil {
		return err
	}
	if session.Status == models.SessionFinished {
		return status.ErrSessionFinished
	}
	if entry.Status != models.EntryAtLunch {
		return status.ErrNotAtLunch
	}
	if err := advanceEntry(entry, models.EntryFinished); err != nil {
		return err
	}
	now := time.Now()
	entry.LunchFinishedAt = &now
	if err := s.store.UpdateEntry(ctx, entry); err != nil {
		return err
	}
	s.monitor.TrackOperation("confirm_return", "success")
	if entry.LunchStartedAt != nil {
		s.monitor.TrackLunchDuration(now.Sub(*entry.LunchStartedAt))
	}

	participant, err := s.store.FindParticipant(ctx, entry.ParticipantID)
	if err == nil {
		s.trySend(ctx, participant.ExternalID, returnedMessage())
		s.BroadcastToObservers(ctx, supervisorReturnedMessage(participant.DisplayName(), now))
	}

	_, err = s.admitLocked(ctx, session)
	return err
}

// RunSweep is the periodic time-driven pass: it activates due sessions, sends
// end-of-lunch reminders, force-finishes overdue entries and re-runs
// admission for every active session. All per-item failures are absorbed and
// logged; the sweep never aborts the triggering process.
func (s *LunchService) RunSweep(ctx context.Context, now time.Time) error {
	s.activateDueSessions(ctx, now)
	s.remindAndExpire(ctx, now)
	s.resendStartPrompts(ctx, now)
	s.admitActiveSessions(ctx)
	return nil
}

// RunSweepLoop drives RunSweep on a fixed interval until ctx is cancelled.
func (s *LunchService) RunSweepLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	slog.Info("sweep loop started", "interval", interval)
	for {
		select {
		case <-ctx.Done():
			slog.Info("sweep loop stopping")
			return
		case now := <-ticker.C:
			if err := s.RunSweep(ctx, now); err != nil {
				slog.Error("sweep failed", "error", err)
			}
		}
	}
}

func (s *LunchService) activateDueSessions(ctx context.Context, now time.Time) {
	sessions, err := s.store.ListSessionsByStatus(ctx, models.SessionCollecting)
	if err != nil {
		slog.Error("sweep: listing collecting sessions failed", "error", err)
		return
	}
	today := now.Format(models.DateLayout)
	for i := range sessions {
		session := &sessions[i]
		if session.Date != today || !session.DueToStart(now) {
			continue
		}
		if _, err := s.Activate(ctx, session.ID); err != nil {
			slog.Error("sweep: auto-activation failed", "session", session.ID, "error", err)
		}
	}
}

func (s *LunchService) remindAndExpire(ctx context.Context, now time.Time) {
	entries, err := s.store.ListAtLunch(ctx)
	if err != nil {
		slog.Error("sweep: listing at-lunch entries failed", "error", err)
		return
	}
	for i := range entries {
		entry := entries[i]
		if entry.LunchStartedAt == nil {
			continue
		}
		elapsed := now.Sub(*entry.LunchStartedAt)
		switch {
		case elapsed >= s.config.ReturnWindow:
			s.expireEntry(ctx, entry.ID, now)
		case elapsed >= s.config.ReturnWindow-s.config.ReminderLead && entry.ReminderSentAt == nil:
			s.remindEntry(ctx, entry.ID, now)
		}
	}
}

// resendStartPrompts retries the start-lunch prompt for ready entries whose
// barrier already released but whose delivery failed.
func (s *LunchService) resendStartPrompts(ctx context.Context, now time.Time) {
	sessions, err := s.store.ListSessionsByStatus(ctx, models.SessionActive)
	if err != nil {
		slog.Error("sweep: listing active sessions failed", "error", err)
		return
	}
	for i := range sessions {
		s.resendSessionStartPrompts(ctx, sessions[i].ID, now)
	}
}

func (s *LunchService) resendSessionStartPrompts(ctx context.Context, sessionID string, now time.Time) {
	release, err := s.locker.Acquire(ctx, sessionID)
	if err != nil {
		slog.Error("sweep: lock acquisition failed", "session", sessionID, "error", err)
		return
	}
	defer release()

	entries, err := s.store.ListEntries(ctx, sessionID)
	if err != nil {
		slog.Error("sweep: listing entries failed", "session", sessionID, "error", err)
		return
	}
	// A batch has released once no member is still deciding.
	deciding := map[string]bool{}
	for i := range entries {
		if entries[i].BatchID != "" && entries[i].Status == models.EntryNotified {
			deciding[entries[i].BatchID] = true
		}
	}
	for i := range entries {
		entry := entries[i]
		if entry.Status != models.EntryReady || entry.StartPromptedAt != nil || deciding[entry.BatchID] {
			continue
		}
		participant, err := s.store.FindParticipant(ctx, entry.ParticipantID)
		if err != nil {
			slog.Error("sweep: participant lookup failed", "entry", entry.ID, "error", err)
			continue
		}
		if !s.trySend(ctx, participant.ExternalID, groupReadyMessage(), StartLunchAction(entry.ID)) {
			continue
		}
		promptedAt := now
		entry.StartPromptedAt = &promptedAt
		if err := s.store.UpdateEntry(ctx, &entry); err != nil {
			slog.Error("sweep: prompt stamp failed", "entry", entry.ID, "error", err)
		}
	}
}

func (s *LunchService) admitActiveSessions(ctx context.Context) {
	sessions, err := s.store.ListSessionsByStatus(ctx, models.SessionActive)
	if err != nil {
		slog.Error("sweep: listing active sessions failed", "error", err)
		return
	}
	for i := range sessions {
		if _, err := s.AdmitNext(ctx, sessions[i].ID); err != nil {
			slog.Error("sweep: admission failed", "session", sessions[i].ID, "error", err)
		}
	}
}

func (s *LunchService) remindEntry(ctx context.Context, entryID string, now time.Time) {
	entry, release, err := s.lockedEntry(ctx, entryID)
	if err != nil {
		slog.Error("sweep: reminder lookup failed", "entry", entryID, "error", err)
		return
	}
	defer release()
	if entry.Status != models.EntryAtLunch || entry.ReminderSentAt != nil {
		return
	}
	sentAt := now
	entry.ReminderSentAt = &sentAt
	if err := s.store.UpdateEntry(ctx, entry); err != nil {
		slog.Error("sweep: reminder stamp failed", "entry", entryID, "error", err)
		return
	}
	if participant, err := s.store.FindParticipant(ctx, entry.ParticipantID); err == nil {
		s.trySend(ctx, participant.ExternalID, reminderMessage(entry.RemainingLunchTime(now, s.config.ReturnWindow)))
	}
	s.monitor.TrackOperation("remind", "success")
}

func (s *LunchService) expireEntry(ctx context.Context, entryID string, now time.Time) {
	entry, release, err := s.lockedEntry(ctx, entryID)
	if err != nil {
		slog.Error("sweep: expiry lookup failed", "entry", entryID, "error", err)
		return
	}
	defer release()
	if entry.Status != models.EntryAtLunch {
		// Raced with a return confirmation.
		return
	}
	if err := advanceEntry(entry, models.EntryFinished); err != nil {
		slog.Error("sweep: expiry transition rejected", "entry", entryID, "error", err)
		return
	}
	finishedAt := now
	entry.LunchFinishedAt = &finishedAt
	if err := s.store.UpdateEntry(ctx, entry); err != nil {
		slog.Error("sweep: expiry update failed", "entry", entryID, "error", err)
		return
	}
	s.monitor.TrackOperation("expire", "success")
	if entry.LunchStartedAt != nil {
		s.monitor.TrackLunchDuration(now.Sub(*entry.LunchStartedAt))
	}

	participant, err := s.store.FindParticipant(ctx, entry.ParticipantID)
	if err == nil {
		s.trySend(ctx, participant.ExternalID, overdueMessage())
		s.BroadcastToObservers(ctx, supervisorOverdueMessage(participant.DisplayName(), now))
	}

	session, err := s.store.FindSession(ctx, entry.SessionID)
	if err == nil && session.Status == models.SessionActive {
		if _, err := s.admitLocked(ctx, session); err != nil {
			slog.Error("sweep: post-expiry admission failed", "session", session.ID, "error", err)
		}
	}
}

// lockedEntry acquires the owning session's lock and re-reads the entry.
func (s *LunchService) lockedEntry(ctx context.Context, entryID string) (*models.QueueEntry, func(), error) {
	entry, err := s.store.FindEntry(ctx, entryID)
	if err != nil {
		return nil, nil, err
	}
	release, err := s.locker.Acquire(ctx, entry.SessionID)
	if err != nil {
		return nil, nil, err
	}
	entry, err = s.store.FindEntry(ctx, entryID)
	if err != nil {
		release()
		return nil, nil, err
	}
	return entry, release, nil
}

// SessionStats builds the read-only dashboard snapshot.
func (s *LunchService) SessionStats(ctx context.Context, sessionID string) (*models.QueueStats, error) {
	entries, err := s.store.ListEntries(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	stats := &models.QueueStats{SessionID: sessionID, TotalInQueue: len(entries)}
	for i := range entries {
		entry := entries[i]
		switch entry.Status {
		case models.EntryWaiting:
			stats.Waiting++
		case models.EntryNotified, models.EntryReady, models.EntryAtLunch:
			stats.InProgress++
		case models.EntryFinished:
			stats.Finished++
		}
		name := entry.ParticipantID
		if participant, err := s.store.FindParticipant(ctx, entry.ParticipantID); err == nil {
			name = participant.DisplayName()
		}
		stats.Entries = append(stats.Entries, models.QueueStatsLine{
			Position:  entry.Position,
			Name:      name,
			Status:    entry.Status,
			StartedAt: entry.LunchStartedAt,
		})
	}
	return stats, nil
}

// HandleAction routes an inbound button press (callback data) to the matching
// operation. The returned string, when non-empty, is the participant-facing
// reply; operations that message the participant themselves return "".
func (s *LunchService) HandleAction(ctx context.Context, participantID, data string) (string, error) {
	switch {
	case strings.HasPrefix(data, actionJoinQueue):
		sessionID := strings.TrimPrefix(data, actionJoinQueue)
		entry, enrolled, err := s.Enroll(ctx, participantID, sessionID)
		if err != nil {
			if msg, ok := rejectionMessage(err); ok {
				return msg, nil
			}
			return "", err
		}
		if !enrolled {
			// Already enrolled today reads as a status request.
			today := time.Now().Format(models.DateLayout)
			if existing, lookupErr := s.store.FindEntryForParticipantDate(ctx, participantID, today); lookupErr == nil && existing != nil {
				return entryStatusMessage(existing), nil
			}
			return enrollmentRejectedMessage(), nil
		}
		return joinedMessage(entry.Position), nil

	case strings.HasPrefix(data, actionConfirmLunch):
		return s.routeEntryAction(ctx, participantID, strings.TrimPrefix(data, actionConfirmLunch), s.ConfirmReady)

	case strings.HasPrefix(data, actionStartLunch):
		return s.routeEntryAction(ctx, participantID, strings.TrimPrefix(data, actionStartLunch), s.BeginLunch)

	case strings.HasPrefix(data, actionReturnLunch):
		return s.routeEntryAction(ctx, participantID, strings.TrimPrefix(data, actionReturnLunch), s.ConfirmReturn)
	}
	return "", fmt.Errorf("unknown action %q", data)
}

func (s *LunchService) routeEntryAction(ctx context.Context, participantID, entryID string, op func(context.Context, string) error) (string, error) {
	entry, err := s.store.FindEntry(ctx, entryID)
	if err != nil {
		if errors.Is(err, status.ErrEntryNotFound) {
			return recordNotFoundMessage(), nil
		}
		return "", err
	}
	if entry.ParticipantID != participantID {
		// Pressing someone else's button is indistinguishable from a stale one.
		return recordNotFoundMessage(), nil
	}
	if err := op(ctx, entryID); err != nil {
		if msg, ok := rejectionMessage(err); ok {
			return msg, nil
		}
		return "", err
	}
	return "", nil
}

// RegisterParticipant creates or refreshes a participant on first contact.
func (s *LunchService) RegisterParticipant(ctx context.Context, p *models.Participant) error {
	if p.Role == "" {
		p.Role = models.RoleMember
	}
	return s.store.UpsertParticipant(ctx, p)
}

func (s *LunchService) ParticipantByExternalID(ctx context.Context, externalID string) (*models.Participant, error) {
	participant, err := s.store.FindParticipantByExternalID(ctx, externalID)
	if err != nil {
		return nil, err
	}
	if participant == nil {
		return nil, status.ErrParticipantNotFound
	}
	return participant, nil
}

func (s *LunchService) SetParticipantRole(ctx context.Context, externalID string, role models.Role) (*models.Participant, error) {
	return s.store.SetParticipantRole(ctx, externalID, role)
}

// BroadcastToObservers fans a status event out to every supervisor. Delivery
// failures are logged and dropped; supervisor traffic is informational.
func (s *LunchService) BroadcastToObservers(ctx context.Context, text string) {
	supervisors, err := s.store.ListSupervisors(ctx)
	if err != nil {
		slog.Error("supervisor lookup failed", "error", err)
		return
	}
	for i := range supervisors {
		s.trySend(ctx, supervisors[i].ExternalID, text)
	}
}

// trySend delivers with a bounded timeout. A failure is logged and counted
// but never propagated; callers decide what staying silent means.
func (s *LunchService) trySend(ctx context.Context, recipientID, text string, actions ...Action) bool {
	nctx, cancel := context.WithTimeout(ctx, s.config.NotifyTimeout)
	defer cancel()
	if err := s.notifier.Notify(nctx, recipientID, text, actions...); err != nil {
		slog.Warn("notification delivery failed", "recipient", recipientID, "error", err)
		s.monitor.TrackNotifyFailure()
		return false
	}
	return true
}
