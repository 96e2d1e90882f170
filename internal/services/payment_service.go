package services

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jwc684/ptmaster-sub000/internal/models"
	"github.com/jwc684/ptmaster-sub000/internal/repository"
)

var ErrPaymentNotFound = errors.New("payment not found")

type PaymentService struct {
	db          *pgxpool.Pool
	paymentRepo *repository.PaymentRepository
	memberRepo  *repository.MemberRepository
}

func NewPaymentService(
	db *pgxpool.Pool,
	paymentRepo *repository.PaymentRepository,
	memberRepo *repository.MemberRepository,
) *PaymentService {
	return &PaymentService{
		db:          db,
		paymentRepo: paymentRepo,
		memberRepo:  memberRepo,
	}
}

type RegisterPaymentInput struct {
	MemberID    int64
	Amount      int64
	CreditCount int
	Completed   bool
}

// RegisterPayment records a credit purchase. A payment registered as
// completed grants its credits immediately, in the same transaction that
// writes the payment row.
func (s *PaymentService) RegisterPayment(
	ctx context.Context,
	shopID int64,
	input RegisterPaymentInput,
) (*models.Payment, error) {
	if input.MemberID <= 0 || input.Amount < 0 || input.CreditCount <= 0 {
		return nil, ErrInvalidInput
	}

	member, err := s.memberRepo.GetByID(ctx, shopID, input.MemberID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMemberNotFound
		}
		return nil, err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txPaymentRepo := repository.NewPaymentRepository(tx)
	txCreditRepo := repository.NewCreditRepository(tx)

	status := models.PaymentPending
	if input.Completed {
		status = models.PaymentCompleted
	}

	payment, err := txPaymentRepo.Create(ctx, repository.CreatePaymentInput{
		MemberID:    member.ID,
		ShopID:      shopID,
		Amount:      input.Amount,
		CreditCount: input.CreditCount,
		Status:      status,
	})
	if err != nil {
		return nil, err
	}

	if input.Completed {
		if _, err := txCreditRepo.AdjustBalance(ctx, member.ID, input.CreditCount); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return payment, nil
}

// CompletePayment settles a pending payment and grants its credits.
func (s *PaymentService) CompletePayment(
	ctx context.Context,
	shopID int64,
	paymentID int64,
) (*models.Payment, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txPaymentRepo := repository.NewPaymentRepository(tx)
	txCreditRepo := repository.NewCreditRepository(tx)

	payment, err := txPaymentRepo.GetByIDForUpdate(ctx, paymentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	if payment.ShopID != shopID {
		return nil, ErrPaymentNotFound
	}
	if payment.Status != models.PaymentPending {
		return nil, ErrInvalidTransition
	}

	updated, err := txPaymentRepo.UpdateStatusIfCurrent(
		ctx,
		payment.ID,
		models.PaymentPending,
		models.PaymentCompleted,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidTransition
		}
		return nil, err
	}

	if _, err := txCreditRepo.AdjustBalance(ctx, payment.MemberID, payment.CreditCount); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return updated, nil
}

func (s *PaymentService) ListPayments(
	ctx context.Context,
	shopID int64,
	memberID int64,
) ([]models.Payment, error) {
	if _, err := s.memberRepo.GetByID(ctx, shopID, memberID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMemberNotFound
		}
		return nil, err
	}
	return s.paymentRepo.ListByMemberID(ctx, memberID)
}
