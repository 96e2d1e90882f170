package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jwc684/ptmaster-sub000/internal/models"
	"github.com/jwc684/ptmaster-sub000/internal/repository"
	"github.com/jwc684/ptmaster-sub000/internal/services"
)

type stubLedgerService struct {
	detailResult *models.SessionDetail
	detailErr    error
	listResult   []models.Session
	listErr      error
	deleteResult int
	deleteErr    error

	lastShopID      int64
	lastSessionID   int64
	lastForfeit     bool
	lastCreateInput services.CreateSessionInput
	lastListFilter  repository.SessionListFilter
	lastNotes       services.SessionNotesInput
}

func (s *stubLedgerService) CreateSession(_ context.Context, shopID int64, input services.CreateSessionInput) (*models.SessionDetail, error) {
	s.lastShopID = shopID
	s.lastCreateInput = input
	return s.detailResult, s.detailErr
}

func (s *stubLedgerService) Complete(_ context.Context, shopID int64, sessionID int64, notes services.SessionNotesInput) (*models.SessionDetail, error) {
	s.lastShopID = shopID
	s.lastSessionID = sessionID
	s.lastNotes = notes
	return s.detailResult, s.detailErr
}

func (s *stubLedgerService) RevertComplete(_ context.Context, shopID int64, sessionID int64) (*models.SessionDetail, error) {
	s.lastShopID = shopID
	s.lastSessionID = sessionID
	return s.detailResult, s.detailErr
}

func (s *stubLedgerService) Cancel(_ context.Context, shopID int64, sessionID int64, forfeit bool, notes services.SessionNotesInput) (*models.SessionDetail, error) {
	s.lastShopID = shopID
	s.lastSessionID = sessionID
	s.lastForfeit = forfeit
	s.lastNotes = notes
	return s.detailResult, s.detailErr
}

func (s *stubLedgerService) RevertCancel(_ context.Context, shopID int64, sessionID int64) (*models.SessionDetail, error) {
	s.lastShopID = shopID
	s.lastSessionID = sessionID
	return s.detailResult, s.detailErr
}

func (s *stubLedgerService) MarkNoShow(_ context.Context, shopID int64, sessionID int64, notes services.SessionNotesInput) (*models.SessionDetail, error) {
	s.lastShopID = shopID
	s.lastSessionID = sessionID
	s.lastNotes = notes
	return s.detailResult, s.detailErr
}

func (s *stubLedgerService) RevertNoShow(_ context.Context, shopID int64, sessionID int64) (*models.SessionDetail, error) {
	s.lastShopID = shopID
	s.lastSessionID = sessionID
	return s.detailResult, s.detailErr
}

func (s *stubLedgerService) DeleteSession(_ context.Context, shopID int64, sessionID int64) (int, error) {
	s.lastShopID = shopID
	s.lastSessionID = sessionID
	return s.deleteResult, s.deleteErr
}

func (s *stubLedgerService) GetSession(_ context.Context, shopID int64, sessionID int64) (*models.SessionDetail, error) {
	s.lastShopID = shopID
	s.lastSessionID = sessionID
	return s.detailResult, s.detailErr
}

func (s *stubLedgerService) ListSessions(_ context.Context, filter repository.SessionListFilter) ([]models.Session, error) {
	s.lastListFilter = filter
	return s.listResult, s.listErr
}

func newSessionTestApp(service sessionLedgerService, userID, role, shopID string) *fiber.App {
	handler := NewSessionHandler(service)

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user_id", userID)
		c.Locals("role", role)
		c.Locals("shop_id", shopID)
		return c.Next()
	})

	app.Post("/api/v1/sessions", handler.CreateSession)
	app.Get("/api/v1/sessions", handler.ListSessions)
	app.Get("/api/v1/sessions/:id", handler.GetSession)
	app.Post("/api/v1/sessions/:id/complete", handler.CompleteSession)
	app.Post("/api/v1/sessions/:id/revert-complete", handler.RevertCompleteSession)
	app.Post("/api/v1/sessions/:id/cancel", handler.CancelSession)
	app.Post("/api/v1/sessions/:id/revert-cancel", handler.RevertCancelSession)
	app.Post("/api/v1/sessions/:id/no-show", handler.MarkNoShowSession)
	app.Post("/api/v1/sessions/:id/revert-no-show", handler.RevertNoShowSession)
	app.Delete("/api/v1/sessions/:id", handler.DeleteSession)

	return app
}

func jsonRequest(t *testing.T, method, target string, payload any) *http.Request {
	t.Helper()

	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal request body: %v", err)
	}
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestCreateSessionReturnsCreated(t *testing.T) {
	balance := 4
	service := &stubLedgerService{
		detailResult: &models.SessionDetail{
			Session: models.Session{
				ID:        11,
				MemberID:  42,
				TrainerID: 7,
				ShopID:    3,
				Status:    models.SessionScheduled,
			},
			BalanceAfter: &balance,
		},
	}
	app := newSessionTestApp(service, "1", models.RoleAdmin, "3")

	req := jsonRequest(t, http.MethodPost, "/api/v1/sessions", map[string]any{
		"member_id":    42,
		"trainer_id":   7,
		"scheduled_at": "2030-03-15T09:00:00Z",
	})
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	if service.lastShopID != 3 {
		t.Fatalf("expected shop 3 from token, got %d", service.lastShopID)
	}
	if service.lastCreateInput.TrainerID != 7 {
		t.Fatalf("expected trainer 7, got %d", service.lastCreateInput.TrainerID)
	}
	if !service.lastCreateInput.ScheduledAt.Equal(time.Date(2030, 3, 15, 9, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected scheduled_at %v", service.lastCreateInput.ScheduledAt)
	}

	var payload struct {
		Session models.SessionDetail `json:"session"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Session.BalanceAfter == nil || *payload.Session.BalanceAfter != 4 {
		t.Fatalf("expected balance_after 4 in response, got %+v", payload.Session.BalanceAfter)
	}
}

func TestCreateSessionTrainerBooksOwnSessions(t *testing.T) {
	service := &stubLedgerService{
		detailResult: &models.SessionDetail{Session: models.Session{ID: 12}},
	}
	app := newSessionTestApp(service, "9", models.RoleTrainer, "3")

	req := jsonRequest(t, http.MethodPost, "/api/v1/sessions", map[string]any{
		"member_id":    42,
		"trainer_id":   7,
		"scheduled_at": "2030-03-15T09:00:00Z",
	})
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	if service.lastCreateInput.TrainerID != 9 {
		t.Fatalf("trainer must book their own sessions, got trainer %d", service.lastCreateInput.TrainerID)
	}
}

func TestCreateSessionRejectsBadTimestamp(t *testing.T) {
	service := &stubLedgerService{}
	app := newSessionTestApp(service, "1", models.RoleAdmin, "3")

	req := jsonRequest(t, http.MethodPost, "/api/v1/sessions", map[string]any{
		"member_id":    42,
		"trainer_id":   7,
		"scheduled_at": "tomorrow",
	})
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestCreateSessionInsufficientCredit(t *testing.T) {
	service := &stubLedgerService{detailErr: services.ErrInsufficientCredit}
	app := newSessionTestApp(service, "1", models.RoleAdmin, "3")

	req := jsonRequest(t, http.MethodPost, "/api/v1/sessions", map[string]any{
		"member_id":    42,
		"trainer_id":   7,
		"scheduled_at": "2030-03-15T09:00:00Z",
	})
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
}

func TestCompleteSessionInvalidTransition(t *testing.T) {
	service := &stubLedgerService{detailErr: services.ErrInvalidTransition}
	app := newSessionTestApp(service, "1", models.RoleAdmin, "3")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/11/complete", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
	if service.lastSessionID != 11 {
		t.Fatalf("expected session 11, got %d", service.lastSessionID)
	}
}

func TestCompleteSessionForwardsNotes(t *testing.T) {
	service := &stubLedgerService{
		detailResult: &models.SessionDetail{Session: models.Session{ID: 11, Status: models.SessionCompleted}},
	}
	app := newSessionTestApp(service, "1", models.RoleAdmin, "3")

	req := jsonRequest(t, http.MethodPost, "/api/v1/sessions/11/complete", map[string]any{
		"notes":          "great squats",
		"internal_notes": "watch the left knee",
	})
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if service.lastNotes.SharedNotes == nil || *service.lastNotes.SharedNotes != "great squats" {
		t.Fatalf("expected shared notes forwarded, got %+v", service.lastNotes.SharedNotes)
	}
	if service.lastNotes.InternalNotes == nil || *service.lastNotes.InternalNotes != "watch the left knee" {
		t.Fatalf("expected internal notes forwarded, got %+v", service.lastNotes.InternalNotes)
	}
}

func TestCancelSessionForwardsForfeit(t *testing.T) {
	reason := models.CancelForfeit
	service := &stubLedgerService{
		detailResult: &models.SessionDetail{
			Session: models.Session{ID: 11, Status: models.SessionCancelled, CancelReason: &reason},
		},
	}
	app := newSessionTestApp(service, "1", models.RoleAdmin, "3")

	req := jsonRequest(t, http.MethodPost, "/api/v1/sessions/11/cancel", map[string]any{
		"forfeit": true,
	})
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if !service.lastForfeit {
		t.Fatal("expected forfeit flag forwarded to the service")
	}
}

func TestGetSessionNotFound(t *testing.T) {
	service := &stubLedgerService{detailErr: services.ErrSessionNotFound}
	app := newSessionTestApp(service, "1", models.RoleAdmin, "3")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/999", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestDeleteSessionReturnsBalance(t *testing.T) {
	service := &stubLedgerService{deleteResult: 5}
	app := newSessionTestApp(service, "1", models.RoleAdmin, "3")

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/sessions/11", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var payload struct {
		BalanceAfter int `json:"balance_after"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.BalanceAfter != 5 {
		t.Fatalf("expected balance_after 5, got %d", payload.BalanceAfter)
	}
}

func TestListSessionsTrainerSeesOwnOnly(t *testing.T) {
	service := &stubLedgerService{listResult: []models.Session{}}
	app := newSessionTestApp(service, "9", models.RoleTrainer, "3")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions?trainer_id=7&timeframe=upcoming", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if service.lastListFilter.TrainerID != 9 {
		t.Fatalf("trainer filter must be forced to the caller, got %d", service.lastListFilter.TrainerID)
	}
	if service.lastListFilter.Timeframe != "upcoming" {
		t.Fatalf("expected timeframe upcoming, got %q", service.lastListFilter.Timeframe)
	}
}

func TestListSessionsRejectsBadTimeframe(t *testing.T) {
	service := &stubLedgerService{}
	app := newSessionTestApp(service, "1", models.RoleAdmin, "3")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions?timeframe=someday", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestSessionRoutesRejectMissingToken(t *testing.T) {
	handler := NewSessionHandler(&stubLedgerService{})

	app := fiber.New()
	app.Get("/api/v1/sessions/:id", handler.GetSession)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/1", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}
