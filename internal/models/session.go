package models

import "time"

// Session statuses. A session starts out scheduled and moves through the
// ledger transitions; the credit for a non-free session is taken when the
// session is created, not when it completes.
const (
	SessionScheduled = "scheduled"
	SessionCompleted = "completed"
	SessionCancelled = "cancelled"
	SessionNoShow    = "no_show"
)

// Cancellation reasons. Stored as a first-class column so a cancelled
// session never has to be reverse-engineered from its attendance row.
const (
	CancelForfeit = "forfeit"
	CancelRefund  = "refund"
)

type Session struct {
	ID           int64     `json:"id"`
	MemberID     int64     `json:"member_id"`
	TrainerID    int64     `json:"trainer_id"`
	ShopID       int64     `json:"shop_id"`
	ScheduledAt  time.Time `json:"scheduled_at"`
	Status       string    `json:"status"`
	CancelReason *string   `json:"cancel_reason,omitempty"`
	IsFree       bool      `json:"is_free"`
	Notes        *string   `json:"notes"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type Attendance struct {
	ID                    int64     `json:"id"`
	SessionID             int64     `json:"session_id"`
	MemberID              int64     `json:"member_id"`
	CheckInTime           time.Time `json:"check_in_time"`
	RemainingCreditsAfter int       `json:"remaining_credits_after"`
	UnitPrice             *int64    `json:"unit_price"`
	SharedNotes           *string   `json:"shared_notes"`
	InternalNotes         *string   `json:"internal_notes"`
	CreatedAt             time.Time `json:"created_at"`
}

type SessionDetail struct {
	Session
	Attendance   *Attendance `json:"attendance,omitempty"`
	BalanceAfter *int        `json:"balance_after,omitempty"`
}
