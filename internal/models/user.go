package models

import "time"

// Staff roles. Members are not users; they are managed by staff.
const (
	RoleAdmin   = "admin"
	RoleTrainer = "trainer"
)

type User struct {
	ID           int64     `json:"id"`
	ShopID       int64     `json:"shop_id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type Shop struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
