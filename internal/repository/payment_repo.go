package repository

import (
	"context"

	"github.com/jwc684/ptmaster-sub000/internal/models"
)

type CreatePaymentInput struct {
	MemberID    int64
	ShopID      int64
	Amount      int64
	CreditCount int
	Status      string
}

type PaymentRepository struct {
	db DBTX
}

func NewPaymentRepository(db DBTX) *PaymentRepository {
	return &PaymentRepository{db: db}
}

const paymentColumns = "id, member_id, shop_id, amount, credit_count, status, created_at"

func (r *PaymentRepository) Create(ctx context.Context, input CreatePaymentInput) (*models.Payment, error) {
	query := `
		INSERT INTO payments (member_id, shop_id, amount, credit_count, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + paymentColumns

	return r.scan(ctx, query, input.MemberID, input.ShopID, input.Amount, input.CreditCount, input.Status)
}

func (r *PaymentRepository) GetByID(ctx context.Context, paymentID int64) (*models.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE id = $1
	`
	return r.scan(ctx, query, paymentID)
}

func (r *PaymentRepository) GetByIDForUpdate(ctx context.Context, paymentID int64) (*models.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE id = $1
		FOR UPDATE
	`
	return r.scan(ctx, query, paymentID)
}

func (r *PaymentRepository) ListByMemberID(ctx context.Context, memberID int64) ([]models.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE member_id = $1
		ORDER BY id DESC
	`

	rows, err := r.db.Query(ctx, query, memberID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payments := make([]models.Payment, 0)
	for rows.Next() {
		var payment models.Payment
		if err := rows.Scan(
			&payment.ID,
			&payment.MemberID,
			&payment.ShopID,
			&payment.Amount,
			&payment.CreditCount,
			&payment.Status,
			&payment.CreatedAt,
		); err != nil {
			return nil, err
		}
		payments = append(payments, payment)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return payments, nil
}

func (r *PaymentRepository) UpdateStatusIfCurrent(
	ctx context.Context,
	paymentID int64,
	currentStatus string,
	nextStatus string,
) (*models.Payment, error) {
	query := `
		UPDATE payments
		SET status = $3
		WHERE id = $1 AND status = $2
		RETURNING ` + paymentColumns

	return r.scan(ctx, query, paymentID, currentStatus, nextStatus)
}

// SumCompletedByMember aggregates the member's completed payments for the
// historical unit-price calculation.
func (r *PaymentRepository) SumCompletedByMember(
	ctx context.Context,
	memberID int64,
) (totalAmount int64, totalCredits int64, err error) {
	query := `
		SELECT COALESCE(SUM(amount), 0), COALESCE(SUM(credit_count), 0)
		FROM payments
		WHERE member_id = $1 AND status = 'completed'
	`
	if err := r.db.QueryRow(ctx, query, memberID).Scan(&totalAmount, &totalCredits); err != nil {
		return 0, 0, err
	}
	return totalAmount, totalCredits, nil
}

func (r *PaymentRepository) scan(ctx context.Context, query string, args ...any) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.QueryRow(ctx, query, args...).Scan(
		&payment.ID,
		&payment.MemberID,
		&payment.ShopID,
		&payment.Amount,
		&payment.CreditCount,
		&payment.Status,
		&payment.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &payment, nil
}
