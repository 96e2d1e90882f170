package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/jwc684/ptmaster-sub000/internal/models"
	"github.com/jwc684/ptmaster-sub000/internal/services"
)

type stubMemberService struct {
	createResult *models.MemberDetail
	createErr    error
	getResult    *models.MemberDetail
	getErr       error
	listResult   []models.Member
	listMeta     models.PaginationMeta
	listErr      error

	lastShopID      int64
	lastMemberID    int64
	lastPage        int
	lastLimit       int
	lastCreateInput services.CreateMemberInput
}

func (s *stubMemberService) CreateMember(_ context.Context, shopID int64, input services.CreateMemberInput) (*models.MemberDetail, error) {
	s.lastShopID = shopID
	s.lastCreateInput = input
	return s.createResult, s.createErr
}

func (s *stubMemberService) GetMember(_ context.Context, shopID int64, memberID int64) (*models.MemberDetail, error) {
	s.lastShopID = shopID
	s.lastMemberID = memberID
	return s.getResult, s.getErr
}

func (s *stubMemberService) ListMembers(_ context.Context, shopID int64, page int, limit int) ([]models.Member, models.PaginationMeta, error) {
	s.lastShopID = shopID
	s.lastPage = page
	s.lastLimit = limit
	return s.listResult, s.listMeta, s.listErr
}

type stubPaymentService struct {
	registerResult *models.Payment
	registerErr    error
	completeResult *models.Payment
	completeErr    error
	listResult     []models.Payment
	listErr        error

	lastShopID        int64
	lastMemberID      int64
	lastPaymentID     int64
	lastRegisterInput services.RegisterPaymentInput
}

func (s *stubPaymentService) RegisterPayment(_ context.Context, shopID int64, input services.RegisterPaymentInput) (*models.Payment, error) {
	s.lastShopID = shopID
	s.lastRegisterInput = input
	return s.registerResult, s.registerErr
}

func (s *stubPaymentService) CompletePayment(_ context.Context, shopID int64, paymentID int64) (*models.Payment, error) {
	s.lastShopID = shopID
	s.lastPaymentID = paymentID
	return s.completeResult, s.completeErr
}

func (s *stubPaymentService) ListPayments(_ context.Context, shopID int64, memberID int64) ([]models.Payment, error) {
	s.lastShopID = shopID
	s.lastMemberID = memberID
	return s.listResult, s.listErr
}

func newMemberTestApp(members memberManagementService, payments paymentRegistrationService, userID, role, shopID string) *fiber.App {
	handler := NewMemberHandler(members, payments)

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user_id", userID)
		c.Locals("role", role)
		c.Locals("shop_id", shopID)
		return c.Next()
	})

	app.Post("/api/v1/members", handler.CreateMember)
	app.Get("/api/v1/members", handler.ListMembers)
	app.Get("/api/v1/members/:id", handler.GetMember)
	app.Post("/api/v1/members/:id/payments", handler.RegisterPayment)
	app.Get("/api/v1/members/:id/payments", handler.ListPayments)
	app.Post("/api/v1/payments/:id/complete", handler.CompletePayment)

	return app
}

func TestCreateMemberAsAdmin(t *testing.T) {
	members := &stubMemberService{
		createResult: &models.MemberDetail{
			Member: models.Member{ID: 42, ShopID: 3, Name: "New Member"},
		},
	}
	app := newMemberTestApp(members, &stubPaymentService{}, "1", models.RoleAdmin, "3")

	req := jsonRequest(t, http.MethodPost, "/api/v1/members", map[string]any{
		"name": "New Member",
	})
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	if members.lastShopID != 3 {
		t.Fatalf("expected shop 3 from token, got %d", members.lastShopID)
	}
	if members.lastCreateInput.Name != "New Member" {
		t.Fatalf("expected member name forwarded, got %q", members.lastCreateInput.Name)
	}
}

func TestCreateMemberForbiddenForTrainer(t *testing.T) {
	members := &stubMemberService{}
	app := newMemberTestApp(members, &stubPaymentService{}, "9", models.RoleTrainer, "3")

	req := jsonRequest(t, http.MethodPost, "/api/v1/members", map[string]any{
		"name": "New Member",
	})
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
	if members.lastShopID != 0 {
		t.Fatal("service must not be called for a forbidden request")
	}
}

func TestGetMemberReturnsBalance(t *testing.T) {
	members := &stubMemberService{
		getResult: &models.MemberDetail{
			Member:           models.Member{ID: 42, ShopID: 3, Name: "Member"},
			RemainingCredits: 7,
		},
	}
	app := newMemberTestApp(members, &stubPaymentService{}, "9", models.RoleTrainer, "3")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/members/42", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if members.lastMemberID != 42 {
		t.Fatalf("expected member 42, got %d", members.lastMemberID)
	}

	var payload struct {
		Member models.MemberDetail `json:"member"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Member.RemainingCredits != 7 {
		t.Fatalf("expected remaining_credits 7, got %d", payload.Member.RemainingCredits)
	}
}

func TestListMembersForwardsPagination(t *testing.T) {
	members := &stubMemberService{
		listResult: []models.Member{},
		listMeta:   models.PaginationMeta{Page: 2, Limit: 20, Total: 55, TotalPages: 3},
	}
	app := newMemberTestApp(members, &stubPaymentService{}, "1", models.RoleAdmin, "3")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/members?page=2&limit=20", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if members.lastPage != 2 || members.lastLimit != 20 {
		t.Fatalf("expected page 2 limit 20, got page %d limit %d", members.lastPage, members.lastLimit)
	}
}

func TestRegisterPaymentAdminOnly(t *testing.T) {
	payments := &stubPaymentService{
		registerResult: &models.Payment{ID: 5, MemberID: 42, Amount: 550000, CreditCount: 10, Status: models.PaymentCompleted},
	}
	app := newMemberTestApp(&stubMemberService{}, payments, "1", models.RoleAdmin, "3")

	req := jsonRequest(t, http.MethodPost, "/api/v1/members/42/payments", map[string]any{
		"amount":       550000,
		"credit_count": 10,
		"completed":    true,
	})
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	if payments.lastRegisterInput.MemberID != 42 {
		t.Fatalf("expected member 42 from path, got %d", payments.lastRegisterInput.MemberID)
	}
	if payments.lastRegisterInput.CreditCount != 10 || !payments.lastRegisterInput.Completed {
		t.Fatalf("unexpected register input %+v", payments.lastRegisterInput)
	}
}

func TestRegisterPaymentForbiddenForTrainer(t *testing.T) {
	payments := &stubPaymentService{}
	app := newMemberTestApp(&stubMemberService{}, payments, "9", models.RoleTrainer, "3")

	req := jsonRequest(t, http.MethodPost, "/api/v1/members/42/payments", map[string]any{
		"amount":       550000,
		"credit_count": 10,
	})
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
}

func TestCompletePaymentInvalidTransition(t *testing.T) {
	payments := &stubPaymentService{completeErr: services.ErrInvalidTransition}
	app := newMemberTestApp(&stubMemberService{}, payments, "1", models.RoleAdmin, "3")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/5/complete", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
	if payments.lastPaymentID != 5 {
		t.Fatalf("expected payment 5, got %d", payments.lastPaymentID)
	}
}

func TestGetMemberNotFound(t *testing.T) {
	members := &stubMemberService{getErr: services.ErrMemberNotFound}
	app := newMemberTestApp(members, &stubPaymentService{}, "1", models.RoleAdmin, "3")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/members/999", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}
