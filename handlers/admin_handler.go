package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"lunch-queue/internal/status"
	"lunch-queue/models"
	"lunch-queue/security"
	"lunch-queue/services"
)

// AdminHandler exposes the supervisor surface: session lifecycle, policy
// changes, boards and role management. Every endpoint requires the shared
// admin token.
type AdminHandler struct {
	service *services.LunchService
	guard   *security.TokenGuard
}

func NewAdminHandler(service *services.LunchService, guard *security.TokenGuard) *AdminHandler {
	return &AdminHandler{service: service, guard: guard}
}

func (h *AdminHandler) authorize(e *core.RequestEvent) error {
	token := strings.TrimPrefix(e.Request.Header.Get("Authorization"), "Bearer ")
	if !h.guard.Verify(token) {
		return apis.NewUnauthorizedError("Invalid admin token", nil)
	}
	return nil
}

func mapSessionError(err error) error {
	switch {
	case errors.Is(err, status.ErrSessionNotFound):
		return apis.NewNotFoundError("Session not found", nil)
	case errors.Is(err, status.ErrDuplicateSession):
		return apis.NewBadRequestError("A session for that date and time already exists", nil)
	case errors.Is(err, status.ErrSessionFinished):
		return apis.NewBadRequestError("Session is already finished", nil)
	case errors.Is(err, status.ErrInvalidTransition):
		return apis.NewBadRequestError("Session is not in a state that allows this", nil)
	case errors.Is(err, status.ErrSessionNotActive):
		return apis.NewBadRequestError("Session is not active", nil)
	}
	return apis.NewBadRequestError("Operation failed", err)
}

// CreateSession opens a session and publishes the announcement.
func (h *AdminHandler) CreateSession(e *core.RequestEvent) error {
	if err := h.authorize(e); err != nil {
		return err
	}
	var req struct {
		Date             string `json:"date"`
		AnnouncementTime string `json:"announcement_time"`
		StartTime        string `json:"start_time"`
		ConcurrencyLimit int    `json:"concurrency_limit"`
		GroupSize        int    `json:"group_size"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	session, err := h.service.CreateSession(e.Request.Context(),
		req.Date, req.AnnouncementTime, req.StartTime, req.ConcurrencyLimit, req.GroupSize)
	if err != nil {
		return mapSessionError(err)
	}
	return e.JSON(http.StatusOK, map[string]any{"session": session})
}

// Activate starts admission ahead of the scheduled start time.
func (h *AdminHandler) Activate(e *core.RequestEvent) error {
	if err := h.authorize(e); err != nil {
		return err
	}
	sessionID := e.Request.PathValue("sessionId")
	notified, err := h.service.Activate(e.Request.Context(), sessionID)
	if err != nil {
		return mapSessionError(err)
	}
	return e.JSON(http.StatusOK, map[string]any{
		"message":  "Session activated",
		"notified": notified,
	})
}

// Close cancels or wraps up a session.
func (h *AdminHandler) Close(e *core.RequestEvent) error {
	if err := h.authorize(e); err != nil {
		return err
	}
	sessionID := e.Request.PathValue("sessionId")
	cancelled, err := h.service.Close(e.Request.Context(), sessionID)
	if err != nil {
		return mapSessionError(err)
	}
	return e.JSON(http.StatusOK, map[string]any{
		"message":   "Session closed",
		"cancelled": cancelled,
	})
}

// UpdatePolicy changes the concurrency limit and/or group size.
func (h *AdminHandler) UpdatePolicy(e *core.RequestEvent) error {
	if err := h.authorize(e); err != nil {
		return err
	}
	sessionID := e.Request.PathValue("sessionId")
	var req struct {
		ConcurrencyLimit int `json:"concurrency_limit"`
		GroupSize        int `json:"group_size"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if req.ConcurrencyLimit == 0 && req.GroupSize == 0 {
		return apis.NewBadRequestError("Nothing to update", nil)
	}

	ctx := e.Request.Context()
	if req.ConcurrencyLimit > 0 {
		if err := h.service.SetConcurrencyLimit(ctx, sessionID, req.ConcurrencyLimit); err != nil {
			return mapSessionError(err)
		}
	}
	if req.GroupSize > 0 {
		if err := h.service.SetGroupSize(ctx, sessionID, req.GroupSize); err != nil {
			return mapSessionError(err)
		}
	}
	return e.JSON(http.StatusOK, map[string]string{"message": "Policy updated"})
}

// Admit forces an admission pass, e.g. after fixing a stuck notification.
func (h *AdminHandler) Admit(e *core.RequestEvent) error {
	if err := h.authorize(e); err != nil {
		return err
	}
	sessionID := e.Request.PathValue("sessionId")
	notified, err := h.service.AdmitNext(e.Request.Context(), sessionID)
	if err != nil {
		return mapSessionError(err)
	}
	return e.JSON(http.StatusOK, map[string]any{"notified": notified})
}

// Sweep triggers the reminder/expiry pass manually.
func (h *AdminHandler) Sweep(e *core.RequestEvent) error {
	if err := h.authorize(e); err != nil {
		return err
	}
	if err := h.service.RunSweep(e.Request.Context(), time.Now()); err != nil {
		return apis.NewBadRequestError("Sweep failed", err)
	}
	return e.JSON(http.StatusOK, map[string]string{"message": "Sweep completed"})
}

// Board renders the text dashboards supervisors see in chat.
func (h *AdminHandler) Board(e *core.RequestEvent) error {
	if err := h.authorize(e); err != nil {
		return err
	}
	sessionID := e.Request.PathValue("sessionId")

	ctx := e.Request.Context()
	session, err := h.service.Session(ctx, sessionID)
	if err != nil {
		return mapSessionError(err)
	}
	stats, err := h.service.SessionStats(ctx, sessionID)
	if err != nil {
		return apis.NewBadRequestError("Failed to build stats", err)
	}
	return e.JSON(http.StatusOK, map[string]any{
		"status_board": services.StatusBoard(session, stats),
		"group_board":  services.GroupBoard(session, stats),
		"stats":        stats,
	})
}

// SetRole promotes or demotes a participant.
func (h *AdminHandler) SetRole(e *core.RequestEvent) error {
	if err := h.authorize(e); err != nil {
		return err
	}
	externalID := e.Request.PathValue("externalId")
	var req struct {
		Role string `json:"role"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	role := models.Role(req.Role)
	if role != models.RoleMember && role != models.RoleSupervisor {
		return apis.NewBadRequestError("Role must be member or supervisor", nil)
	}

	participant, err := h.service.SetParticipantRole(e.Request.Context(), externalID, role)
	if err != nil {
		if errors.Is(err, status.ErrParticipantNotFound) {
			return apis.NewNotFoundError("Unknown participant", nil)
		}
		return apis.NewBadRequestError("Failed to update role", err)
	}
	return e.JSON(http.StatusOK, map[string]any{"participant": participant})
}
