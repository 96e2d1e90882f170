package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/jwc684/ptmaster-sub000/internal/models"
	"github.com/jwc684/ptmaster-sub000/internal/services"
)

var errInvalidActor = errors.New("invalid actor")

// actorScope is what the auth middleware resolved from the token: who is
// calling and which shop their rows live in.
type actorScope struct {
	UserID int64
	Role   string
	ShopID int64
}

func parseActor(c *fiber.Ctx) (actorScope, error) {
	userIDStr, ok := c.Locals("user_id").(string)
	if !ok {
		return actorScope{}, errInvalidActor
	}
	role, ok := c.Locals("role").(string)
	if !ok {
		return actorScope{}, errInvalidActor
	}
	shopIDStr, ok := c.Locals("shop_id").(string)
	if !ok {
		return actorScope{}, errInvalidActor
	}

	userID, err := strconv.ParseInt(userIDStr, 10, 64)
	if err != nil || userID <= 0 {
		return actorScope{}, errInvalidActor
	}
	shopID, err := strconv.ParseInt(shopIDStr, 10, 64)
	if err != nil || shopID <= 0 {
		return actorScope{}, errInvalidActor
	}

	return actorScope{UserID: userID, Role: role, ShopID: shopID}, nil
}

func requireStaff(c *fiber.Ctx) (actorScope, bool) {
	actor, err := parseActor(c)
	if err != nil {
		_ = c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
		return actorScope{}, false
	}
	if actor.Role != models.RoleAdmin && actor.Role != models.RoleTrainer {
		_ = c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
		return actorScope{}, false
	}
	return actor, true
}

func parseIDParam(c *fiber.Ctx, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Params(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, errInvalidActor
	}
	return id, nil
}

func mapLedgerError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrInsufficientCredit):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "Member has no remaining credits"})
	case errors.Is(err, services.ErrInvalidTransition):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrSessionNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Session not found"})
	case errors.Is(err, services.ErrMemberNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Member not found"})
	case errors.Is(err, services.ErrTrainerNotAssigned):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Trainer not found in this shop"})
	case errors.Is(err, services.ErrPaymentNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Payment not found"})
	case errors.Is(err, pgx.ErrNoRows):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Not found"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process request"})
	}
}
