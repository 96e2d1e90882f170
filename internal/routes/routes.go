package routes

import (
	"errors"
	"strconv"

	websocket "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jwc684/ptmaster-sub000/internal/config"
	"github.com/jwc684/ptmaster-sub000/internal/handlers"
	"github.com/jwc684/ptmaster-sub000/internal/middleware"
	"github.com/jwc684/ptmaster-sub000/internal/notify"
	"github.com/jwc684/ptmaster-sub000/internal/repository"
	"github.com/jwc684/ptmaster-sub000/internal/services"
)

func RegisterRoutes(app *fiber.App, cfg *config.Config, db *pgxpool.Pool) error {
	userRepo := repository.NewUserRepository(db)
	shopRepo := repository.NewShopRepository(db)
	memberRepo := repository.NewMemberRepository(db)
	creditRepo := repository.NewCreditRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)

	hub := notify.NewHub()
	go hub.Run()

	ledgerService := services.NewLedgerService(
		db,
		sessionRepo,
		attendanceRepo,
		creditRepo,
		memberRepo,
		userRepo,
		hub,
	)
	memberService := services.NewMemberService(db, memberRepo, creditRepo)
	paymentService := services.NewPaymentService(db, paymentRepo, memberRepo)

	authHandler := handlers.NewAuthHandler(db, userRepo, shopRepo, cfg.JWTSecret)
	sessionHandler := handlers.NewSessionHandler(ledgerService)
	memberHandler := handlers.NewMemberHandler(memberService, paymentService)

	api := app.Group("/api/v1")

	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Get("/me", middleware.AuthRequired(cfg.JWTSecret), authHandler.Me)
	auth.Post("/staff", middleware.AuthRequired(cfg.JWTSecret), authHandler.AddStaff)

	protected := api.Group("", middleware.AuthRequired(cfg.JWTSecret))

	protected.Post("/members", memberHandler.CreateMember)
	protected.Get("/members", memberHandler.ListMembers)
	protected.Get("/members/:id", memberHandler.GetMember)
	protected.Post("/members/:id/payments", memberHandler.RegisterPayment)
	protected.Get("/members/:id/payments", memberHandler.ListPayments)
	protected.Post("/payments/:id/complete", memberHandler.CompletePayment)

	protected.Post("/sessions", sessionHandler.CreateSession)
	protected.Get("/sessions", sessionHandler.ListSessions)
	protected.Get("/sessions/:id", sessionHandler.GetSession)
	protected.Post("/sessions/:id/complete", sessionHandler.CompleteSession)
	protected.Post("/sessions/:id/revert-complete", sessionHandler.RevertCompleteSession)
	protected.Post("/sessions/:id/cancel", sessionHandler.CancelSession)
	protected.Post("/sessions/:id/revert-cancel", sessionHandler.RevertCancelSession)
	protected.Post("/sessions/:id/no-show", sessionHandler.MarkNoShowSession)
	protected.Post("/sessions/:id/revert-no-show", sessionHandler.RevertNoShowSession)
	protected.Delete("/sessions/:id", sessionHandler.DeleteSession)

	app.Get("/ws/notifications", middleware.AuthRequired(cfg.JWTSecret), func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		shopID, ok := c.Locals("shop_id").(string)
		if !ok || shopID == "" {
			return fiber.ErrUnauthorized
		}
		return websocket.New(notificationSocket(hub))(c)
	})

	registerDocs(app, cfg)

	return nil
}

func notificationSocket(hub *notify.Hub) func(*websocket.Conn) {
	return func(conn *websocket.Conn) {
		shopID, err := shopIDFromConn(conn)
		if err != nil {
			_ = conn.Close()
			return
		}

		client := notify.NewClient(hub, conn, shopID)
		hub.Register(client)
		go client.WritePump()
		client.ReadPump()
	}
}

func shopIDFromConn(conn *websocket.Conn) (int64, error) {
	shopIDStr, ok := conn.Locals("shop_id").(string)
	if !ok {
		return 0, errors.New("missing shop id")
	}
	shopID, err := strconv.ParseInt(shopIDStr, 10, 64)
	if err != nil || shopID <= 0 {
		return 0, errors.New("invalid shop id")
	}
	return shopID, nil
}
