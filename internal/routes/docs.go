package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jwc684/ptmaster-sub000/internal/config"
)

type docsEndpoint struct {
	Method      string `json:"method"`
	Path        string `json:"path"`
	Description string `json:"description"`
}

var docsEndpoints = []docsEndpoint{
	{"POST", "/api/v1/auth/register", "Open a shop with its first admin account"},
	{"POST", "/api/v1/auth/login", "Exchange credentials for a JWT"},
	{"GET", "/api/v1/auth/me", "Current staff account and shop"},
	{"POST", "/api/v1/auth/staff", "Admin: add a trainer or admin to the shop"},
	{"POST", "/api/v1/members", "Admin: register a member with an empty credit account"},
	{"GET", "/api/v1/members", "List the shop's members"},
	{"GET", "/api/v1/members/:id", "Member with remaining credit balance"},
	{"POST", "/api/v1/members/:id/payments", "Admin: register a credit purchase"},
	{"GET", "/api/v1/members/:id/payments", "Member's payment history"},
	{"POST", "/api/v1/payments/:id/complete", "Admin: settle a pending payment, granting credits"},
	{"POST", "/api/v1/sessions", "Schedule a session (debits one credit unless free)"},
	{"GET", "/api/v1/sessions", "List sessions, filterable by member/status/timeframe"},
	{"GET", "/api/v1/sessions/:id", "Session with its attendance record"},
	{"POST", "/api/v1/sessions/:id/complete", "Mark held; writes the attendance record"},
	{"POST", "/api/v1/sessions/:id/revert-complete", "Undo complete; attendance removed"},
	{"POST", "/api/v1/sessions/:id/cancel", "Cancel with forfeit (charged) or refund"},
	{"POST", "/api/v1/sessions/:id/revert-cancel", "Undo cancel, re-applying its balance effect"},
	{"POST", "/api/v1/sessions/:id/no-show", "Charge the slot as a no-show"},
	{"POST", "/api/v1/sessions/:id/revert-no-show", "Undo a no-show mark"},
	{"DELETE", "/api/v1/sessions/:id", "Delete; refunds only scheduled non-free sessions"},
	{"GET", "/ws/notifications", "Websocket feed of the shop's ledger events"},
}

// registerDocs exposes a plain endpoint listing in development builds.
func registerDocs(app *fiber.App, cfg *config.Config) {
	if !cfg.DocsEnabled() {
		return
	}

	app.Get("/docs", func(c *fiber.Ctx) error {
		c.Set("Content-Security-Policy", "default-src 'none'")
		return c.JSON(fiber.Map{"endpoints": docsEndpoints})
	})
}
