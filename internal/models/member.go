package models

import "time"

type Member struct {
	ID        int64     `json:"id"`
	ShopID    int64     `json:"shop_id"`
	Name      string    `json:"name"`
	Phone     *string   `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreditAccount is the member's balance of remaining PT session credits.
// It is mutated only through relative adjustments inside ledger
// transactions and through payment completion.
type CreditAccount struct {
	ID               int64     `json:"id"`
	MemberID         int64     `json:"member_id"`
	ShopID           int64     `json:"shop_id"`
	RemainingCredits int       `json:"remaining_credits"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type MemberDetail struct {
	Member
	RemainingCredits int `json:"remaining_credits"`
}

type PaginationMeta struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}
