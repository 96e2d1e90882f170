package models

import "time"

// Payment statuses. Only completed payments grant credits and feed the
// unit-price calculation.
const (
	PaymentPending   = "pending"
	PaymentCompleted = "completed"
	PaymentCancelled = "cancelled"
)

type Payment struct {
	ID          int64     `json:"id"`
	MemberID    int64     `json:"member_id"`
	ShopID      int64     `json:"shop_id"`
	Amount      int64     `json:"amount"`
	CreditCount int       `json:"credit_count"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}
