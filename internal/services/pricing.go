package services

import (
	"context"
	"math"

	"github.com/jwc684/ptmaster-sub000/internal/models"
	"github.com/jwc684/ptmaster-sub000/internal/repository"
)

// UnitPrice derives a per-session price from a member's payment history:
// everything they paid divided by every credit they bought, rounded to
// the nearest whole amount. Nil when no credits were ever purchased.
func UnitPrice(totalAmount, totalCredits int64) *int64 {
	if totalCredits <= 0 {
		return nil
	}
	price := int64(math.Round(float64(totalAmount) / float64(totalCredits)))
	return &price
}

// sessionUnitPrice captures the price recorded on an attendance row.
// Free sessions are always priced at zero, never from payment history.
func sessionUnitPrice(
	ctx context.Context,
	paymentRepo *repository.PaymentRepository,
	session *models.Session,
) (*int64, error) {
	if session.IsFree {
		zero := int64(0)
		return &zero, nil
	}
	totalAmount, totalCredits, err := paymentRepo.SumCompletedByMember(ctx, session.MemberID)
	if err != nil {
		return nil, err
	}
	return UnitPrice(totalAmount, totalCredits), nil
}
