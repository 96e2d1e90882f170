package handlers

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jwc684/ptmaster-sub000/internal/models"
	"github.com/jwc684/ptmaster-sub000/internal/repository"
	"github.com/jwc684/ptmaster-sub000/internal/services"
)

type SessionHandler struct {
	service sessionLedgerService
}

type sessionLedgerService interface {
	CreateSession(ctx context.Context, shopID int64, input services.CreateSessionInput) (*models.SessionDetail, error)
	Complete(ctx context.Context, shopID int64, sessionID int64, notes services.SessionNotesInput) (*models.SessionDetail, error)
	RevertComplete(ctx context.Context, shopID int64, sessionID int64) (*models.SessionDetail, error)
	Cancel(ctx context.Context, shopID int64, sessionID int64, forfeit bool, notes services.SessionNotesInput) (*models.SessionDetail, error)
	RevertCancel(ctx context.Context, shopID int64, sessionID int64) (*models.SessionDetail, error)
	MarkNoShow(ctx context.Context, shopID int64, sessionID int64, notes services.SessionNotesInput) (*models.SessionDetail, error)
	RevertNoShow(ctx context.Context, shopID int64, sessionID int64) (*models.SessionDetail, error)
	DeleteSession(ctx context.Context, shopID int64, sessionID int64) (int, error)
	GetSession(ctx context.Context, shopID int64, sessionID int64) (*models.SessionDetail, error)
	ListSessions(ctx context.Context, filter repository.SessionListFilter) ([]models.Session, error)
}

func NewSessionHandler(service sessionLedgerService) *SessionHandler {
	return &SessionHandler{service: service}
}

type createSessionRequest struct {
	MemberID    int64   `json:"member_id"`
	TrainerID   int64   `json:"trainer_id"`
	ScheduledAt string  `json:"scheduled_at"`
	Notes       *string `json:"notes"`
	IsFree      bool    `json:"is_free"`
}

type sessionNotesRequest struct {
	Notes         *string `json:"notes"`
	InternalNotes *string `json:"internal_notes"`
}

type cancelSessionRequest struct {
	Forfeit       bool    `json:"forfeit"`
	Notes         *string `json:"notes"`
	InternalNotes *string `json:"internal_notes"`
}

func (h *SessionHandler) CreateSession(c *fiber.Ctx) error {
	actor, ok := requireStaff(c)
	if !ok {
		return nil
	}

	var req createSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	scheduledAt, err := time.Parse(time.RFC3339, strings.TrimSpace(req.ScheduledAt))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).
			JSON(fiber.Map{"error": "scheduled_at must be a valid RFC3339 timestamp"})
	}

	trainerID := req.TrainerID
	if actor.Role == models.RoleTrainer {
		// Trainers book their own sessions.
		trainerID = actor.UserID
	}

	detail, err := h.service.CreateSession(c.Context(), actor.ShopID, services.CreateSessionInput{
		MemberID:    req.MemberID,
		TrainerID:   trainerID,
		ScheduledAt: scheduledAt,
		Notes:       req.Notes,
		IsFree:      req.IsFree,
	})
	if err != nil {
		return mapLedgerError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"session": detail})
}

func (h *SessionHandler) ListSessions(c *fiber.Ctx) error {
	actor, ok := requireStaff(c)
	if !ok {
		return nil
	}

	timeframe := strings.TrimSpace(c.Query("timeframe"))
	if timeframe != "" && timeframe != "upcoming" && timeframe != "past" {
		return c.Status(fiber.StatusBadRequest).
			JSON(fiber.Map{"error": "timeframe must be upcoming or past"})
	}

	filter := repository.SessionListFilter{
		ShopID:    actor.ShopID,
		MemberID:  int64(c.QueryInt("member_id")),
		Status:    strings.TrimSpace(c.Query("status")),
		Timeframe: timeframe,
	}
	if actor.Role == models.RoleTrainer {
		filter.TrainerID = actor.UserID
	} else {
		filter.TrainerID = int64(c.QueryInt("trainer_id"))
	}

	sessions, err := h.service.ListSessions(c.Context(), filter)
	if err != nil {
		return mapLedgerError(c, err)
	}

	return c.JSON(fiber.Map{"sessions": sessions})
}

func (h *SessionHandler) GetSession(c *fiber.Ctx) error {
	actor, ok := requireStaff(c)
	if !ok {
		return nil
	}

	sessionID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid session id"})
	}

	detail, err := h.service.GetSession(c.Context(), actor.ShopID, sessionID)
	if err != nil {
		return mapLedgerError(c, err)
	}

	return c.JSON(fiber.Map{"session": detail})
}

func (h *SessionHandler) CompleteSession(c *fiber.Ctx) error {
	return h.withNotes(c, h.service.Complete)
}

func (h *SessionHandler) RevertCompleteSession(c *fiber.Ctx) error {
	return h.withoutBody(c, h.service.RevertComplete)
}

func (h *SessionHandler) CancelSession(c *fiber.Ctx) error {
	actor, ok := requireStaff(c)
	if !ok {
		return nil
	}

	sessionID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid session id"})
	}

	var req cancelSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	detail, err := h.service.Cancel(c.Context(), actor.ShopID, sessionID, req.Forfeit, services.SessionNotesInput{
		SharedNotes:   req.Notes,
		InternalNotes: req.InternalNotes,
	})
	if err != nil {
		return mapLedgerError(c, err)
	}

	return c.JSON(fiber.Map{"session": detail})
}

func (h *SessionHandler) RevertCancelSession(c *fiber.Ctx) error {
	return h.withoutBody(c, h.service.RevertCancel)
}

func (h *SessionHandler) MarkNoShowSession(c *fiber.Ctx) error {
	return h.withNotes(c, h.service.MarkNoShow)
}

func (h *SessionHandler) RevertNoShowSession(c *fiber.Ctx) error {
	return h.withoutBody(c, h.service.RevertNoShow)
}

func (h *SessionHandler) DeleteSession(c *fiber.Ctx) error {
	actor, ok := requireStaff(c)
	if !ok {
		return nil
	}

	sessionID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid session id"})
	}

	balanceAfter, err := h.service.DeleteSession(c.Context(), actor.ShopID, sessionID)
	if err != nil {
		return mapLedgerError(c, err)
	}

	return c.JSON(fiber.Map{"balance_after": balanceAfter})
}

func (h *SessionHandler) withNotes(
	c *fiber.Ctx,
	op func(ctx context.Context, shopID int64, sessionID int64, notes services.SessionNotesInput) (*models.SessionDetail, error),
) error {
	actor, ok := requireStaff(c)
	if !ok {
		return nil
	}

	sessionID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid session id"})
	}

	var req sessionNotesRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}
	}

	detail, err := op(c.Context(), actor.ShopID, sessionID, services.SessionNotesInput{
		SharedNotes:   req.Notes,
		InternalNotes: req.InternalNotes,
	})
	if err != nil {
		return mapLedgerError(c, err)
	}

	return c.JSON(fiber.Map{"session": detail})
}

func (h *SessionHandler) withoutBody(
	c *fiber.Ctx,
	op func(ctx context.Context, shopID int64, sessionID int64) (*models.SessionDetail, error),
) error {
	actor, ok := requireStaff(c)
	if !ok {
		return nil
	}

	sessionID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid session id"})
	}

	detail, err := op(c.Context(), actor.ShopID, sessionID)
	if err != nil {
		return mapLedgerError(c, err)
	}

	return c.JSON(fiber.Map{"session": detail})
}
