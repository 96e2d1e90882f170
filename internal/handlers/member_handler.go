package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/jwc684/ptmaster-sub000/internal/models"
	"github.com/jwc684/ptmaster-sub000/internal/services"
)

type MemberHandler struct {
	members  memberManagementService
	payments paymentRegistrationService
}

type memberManagementService interface {
	CreateMember(ctx context.Context, shopID int64, input services.CreateMemberInput) (*models.MemberDetail, error)
	GetMember(ctx context.Context, shopID int64, memberID int64) (*models.MemberDetail, error)
	ListMembers(ctx context.Context, shopID int64, page int, limit int) ([]models.Member, models.PaginationMeta, error)
}

type paymentRegistrationService interface {
	RegisterPayment(ctx context.Context, shopID int64, input services.RegisterPaymentInput) (*models.Payment, error)
	CompletePayment(ctx context.Context, shopID int64, paymentID int64) (*models.Payment, error)
	ListPayments(ctx context.Context, shopID int64, memberID int64) ([]models.Payment, error)
}

func NewMemberHandler(
	members memberManagementService,
	payments paymentRegistrationService,
) *MemberHandler {
	return &MemberHandler{members: members, payments: payments}
}

type createMemberRequest struct {
	Name  string  `json:"name"`
	Phone *string `json:"phone"`
}

type registerPaymentRequest struct {
	Amount      int64 `json:"amount"`
	CreditCount int   `json:"credit_count"`
	Completed   bool  `json:"completed"`
}

func (h *MemberHandler) CreateMember(c *fiber.Ctx) error {
	actor, ok := requireStaff(c)
	if !ok {
		return nil
	}
	if actor.Role != models.RoleAdmin {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	var req createMemberRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	member, err := h.members.CreateMember(c.Context(), actor.ShopID, services.CreateMemberInput{
		Name:  req.Name,
		Phone: req.Phone,
	})
	if err != nil {
		return mapLedgerError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"member": member})
}

func (h *MemberHandler) GetMember(c *fiber.Ctx) error {
	actor, ok := requireStaff(c)
	if !ok {
		return nil
	}

	memberID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid member id"})
	}

	member, err := h.members.GetMember(c.Context(), actor.ShopID, memberID)
	if err != nil {
		return mapLedgerError(c, err)
	}

	return c.JSON(fiber.Map{"member": member})
}

func (h *MemberHandler) ListMembers(c *fiber.Ctx) error {
	actor, ok := requireStaff(c)
	if !ok {
		return nil
	}

	page, limit := parsePagination(c)
	members, meta, err := h.members.ListMembers(c.Context(), actor.ShopID, page, limit)
	if err != nil {
		return mapLedgerError(c, err)
	}

	return c.JSON(fiber.Map{"members": members, "pagination": meta})
}

func (h *MemberHandler) RegisterPayment(c *fiber.Ctx) error {
	actor, ok := requireStaff(c)
	if !ok {
		return nil
	}
	if actor.Role != models.RoleAdmin {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	memberID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid member id"})
	}

	var req registerPaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	payment, err := h.payments.RegisterPayment(c.Context(), actor.ShopID, services.RegisterPaymentInput{
		MemberID:    memberID,
		Amount:      req.Amount,
		CreditCount: req.CreditCount,
		Completed:   req.Completed,
	})
	if err != nil {
		return mapLedgerError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"payment": payment})
}

func (h *MemberHandler) ListPayments(c *fiber.Ctx) error {
	actor, ok := requireStaff(c)
	if !ok {
		return nil
	}

	memberID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid member id"})
	}

	payments, err := h.payments.ListPayments(c.Context(), actor.ShopID, memberID)
	if err != nil {
		return mapLedgerError(c, err)
	}

	return c.JSON(fiber.Map{"payments": payments})
}

func (h *MemberHandler) CompletePayment(c *fiber.Ctx) error {
	actor, ok := requireStaff(c)
	if !ok {
		return nil
	}
	if actor.Role != models.RoleAdmin {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	paymentID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid payment id"})
	}

	payment, err := h.payments.CompletePayment(c.Context(), actor.ShopID, paymentID)
	if err != nil {
		return mapLedgerError(c, err)
	}

	return c.JSON(fiber.Map{"payment": payment})
}
