package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"lunch-queue/internal/status"
	"lunch-queue/models"
	"lunch-queue/security"
	"lunch-queue/services"
)

// QueueHandler is the participant-facing HTTP surface. It mirrors the chat
// button flow: join, confirm, start, return, plus read-only status.
type QueueHandler struct {
	service *services.LunchService
	limiter *security.RateLimiter
}

func NewQueueHandler(service *services.LunchService, limiter *security.RateLimiter) *QueueHandler {
	return &QueueHandler{service: service, limiter: limiter}
}

type participantPayload struct {
	ExternalID string `json:"external_id"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Username   string `json:"username"`
}

// Join enrolls the caller into today's queue, registering the participant on
// first contact. When already enrolled it answers with the current entry
// status instead of an error.
func (h *QueueHandler) Join(e *core.RequestEvent) error {
	var req struct {
		Participant participantPayload `json:"participant"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if req.Participant.ExternalID == "" {
		return apis.NewBadRequestError("external_id is required", nil)
	}
	if !h.limiter.Allow(e.Request.Context(), req.Participant.ExternalID) {
		return apis.NewTooManyRequestsError("Too many requests", nil)
	}

	ctx := e.Request.Context()
	participant := &models.Participant{
		ExternalID: req.Participant.ExternalID,
		FirstName:  req.Participant.FirstName,
		LastName:   req.Participant.LastName,
		Username:   req.Participant.Username,
	}
	if err := h.service.RegisterParticipant(ctx, participant); err != nil {
		return apis.NewBadRequestError("Failed to register participant", err)
	}

	now := time.Now()
	existing, err := h.service.TodayEntry(ctx, participant.ID, now)
	if err != nil {
		return apis.NewBadRequestError("Failed to look up queue entry", err)
	}
	if existing != nil {
		return e.JSON(http.StatusOK, map[string]any{
			"enrolled": false,
			"entry":    existing,
		})
	}

	entry, enrolled, err := h.service.EnrollToday(ctx, participant.ID, now)
	if err != nil {
		if errors.Is(err, status.ErrSessionNotFound) {
			return apis.NewNotFoundError("No lunch session open for sign-up", nil)
		}
		return apis.NewBadRequestError("Failed to join queue", err)
	}
	if !enrolled {
		return e.JSON(http.StatusConflict, map[string]any{
			"enrolled": false,
			"message":  "Sign-up is closed or you already joined today",
		})
	}
	return e.JSON(http.StatusOK, map[string]any{
		"enrolled": true,
		"entry":    entry,
	})
}

// Action routes a raw button payload, the same surface the chat listener
// uses. The reply text, when present, is what the participant would see.
func (h *QueueHandler) Action(e *core.RequestEvent) error {
	var req struct {
		ExternalID string `json:"participant"`
		Data       string `json:"data"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if !h.limiter.Allow(e.Request.Context(), req.ExternalID) {
		return apis.NewTooManyRequestsError("Too many requests", nil)
	}

	ctx := e.Request.Context()
	participant, err := h.service.ParticipantByExternalID(ctx, req.ExternalID)
	if err != nil {
		if errors.Is(err, status.ErrParticipantNotFound) {
			return apis.NewNotFoundError("Unknown participant", nil)
		}
		return apis.NewBadRequestError("Failed to look up participant", err)
	}

	reply, err := h.service.HandleAction(ctx, participant.ID, req.Data)
	if err != nil {
		return apis.NewBadRequestError("Failed to process action", err)
	}
	return e.JSON(http.StatusOK, map[string]any{"reply": reply})
}

// Ready, Start and Return expose the three handshake steps as plain endpoints
// for non-chat clients. They reuse the action router so the ownership check
// and reply texts stay identical.

func (h *QueueHandler) Ready(e *core.RequestEvent) error {
	return h.entryAction(e, services.ConfirmLunchAction)
}

func (h *QueueHandler) Start(e *core.RequestEvent) error {
	return h.entryAction(e, services.StartLunchAction)
}

func (h *QueueHandler) Return(e *core.RequestEvent) error {
	return h.entryAction(e, services.ReturnLunchAction)
}

func (h *QueueHandler) entryAction(e *core.RequestEvent, action func(string) services.Action) error {
	var req struct {
		ExternalID string `json:"participant"`
		EntryID    string `json:"entry_id"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if !h.limiter.Allow(e.Request.Context(), req.ExternalID) {
		return apis.NewTooManyRequestsError("Too many requests", nil)
	}

	ctx := e.Request.Context()
	participant, err := h.service.ParticipantByExternalID(ctx, req.ExternalID)
	if err != nil {
		if errors.Is(err, status.ErrParticipantNotFound) {
			return apis.NewNotFoundError("Unknown participant", nil)
		}
		return apis.NewBadRequestError("Failed to look up participant", err)
	}

	reply, err := h.service.HandleAction(ctx, participant.ID, action(req.EntryID).Data)
	if err != nil {
		return apis.NewBadRequestError("Failed to process action", err)
	}
	return e.JSON(http.StatusOK, map[string]any{"reply": reply})
}

// Status returns the caller's entry for today. Supervisors get the whole
// board instead of a single entry.
func (h *QueueHandler) Status(e *core.RequestEvent) error {
	externalID := e.Request.URL.Query().Get("participant")
	if externalID == "" {
		return apis.NewBadRequestError("participant query parameter is required", nil)
	}

	ctx := e.Request.Context()
	participant, err := h.service.ParticipantByExternalID(ctx, externalID)
	if err != nil {
		if errors.Is(err, status.ErrParticipantNotFound) {
			return apis.NewNotFoundError("Unknown participant", nil)
		}
		return apis.NewBadRequestError("Failed to look up participant", err)
	}

	if participant.IsSupervisor() {
		session, err := h.service.TodaySession(ctx, time.Now())
		if err != nil {
			if errors.Is(err, status.ErrSessionNotFound) {
				return apis.NewNotFoundError("No lunch session today", nil)
			}
			return apis.NewBadRequestError("Failed to look up session", err)
		}
		stats, err := h.service.SessionStats(ctx, session.ID)
		if err != nil {
			return apis.NewBadRequestError("Failed to build stats", err)
		}
		return e.JSON(http.StatusOK, map[string]any{
			"board": services.StatusBoard(session, stats),
			"stats": stats,
		})
	}

	entry, err := h.service.TodayEntry(ctx, participant.ID, time.Now())
	if err != nil {
		return apis.NewBadRequestError("Failed to look up queue entry", err)
	}
	if entry == nil {
		return apis.NewNotFoundError("You are not in today's queue", nil)
	}
	return e.JSON(http.StatusOK, map[string]any{"entry": entry})
}

// TodayStats returns the aggregate snapshot for today's session.
func (h *QueueHandler) TodayStats(e *core.RequestEvent) error {
	ctx := e.Request.Context()
	session, err := h.service.TodaySession(ctx, time.Now())
	if err != nil {
		if errors.Is(err, status.ErrSessionNotFound) {
			return apis.NewNotFoundError("No lunch session today", nil)
		}
		return apis.NewBadRequestError("Failed to look up session", err)
	}
	stats, err := h.service.SessionStats(ctx, session.ID)
	if err != nil {
		return apis.NewBadRequestError("Failed to build stats", err)
	}
	return e.JSON(http.StatusOK, map[string]any{
		"session": session,
		"stats":   stats,
	})
}
