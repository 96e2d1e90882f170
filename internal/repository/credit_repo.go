package repository

import (
	"context"

	"github.com/jwc684/ptmaster-sub000/internal/models"
)

type CreditRepository struct {
	db DBTX
}

func NewCreditRepository(db DBTX) *CreditRepository {
	return &CreditRepository{db: db}
}

const creditColumns = "id, member_id, shop_id, remaining_credits, created_at, updated_at"

func (r *CreditRepository) Create(
	ctx context.Context,
	memberID int64,
	shopID int64,
) (*models.CreditAccount, error) {
	query := `
		INSERT INTO credit_accounts (member_id, shop_id, remaining_credits)
		VALUES ($1, $2, 0)
		RETURNING ` + creditColumns

	return r.scan(ctx, query, memberID, shopID)
}

func (r *CreditRepository) GetByMemberID(
	ctx context.Context,
	memberID int64,
) (*models.CreditAccount, error) {
	query := `
		SELECT ` + creditColumns + `
		FROM credit_accounts
		WHERE member_id = $1
	`
	return r.scan(ctx, query, memberID)
}

// AdjustBalance applies a relative credit adjustment in a single
// statement. The balance can never go negative: when the guard fails no
// row matches and pgx.ErrNoRows comes back, which callers that already
// verified the account exists treat as insufficient credit.
func (r *CreditRepository) AdjustBalance(
	ctx context.Context,
	memberID int64,
	delta int,
) (int, error) {
	query := `
		UPDATE credit_accounts
		SET remaining_credits = remaining_credits + $2, updated_at = NOW()
		WHERE member_id = $1 AND remaining_credits + $2 >= 0
		RETURNING remaining_credits
	`
	var remaining int
	if err := r.db.QueryRow(ctx, query, memberID, delta).Scan(&remaining); err != nil {
		return 0, err
	}
	return remaining, nil
}

func (r *CreditRepository) scan(ctx context.Context, query string, args ...any) (*models.CreditAccount, error) {
	var account models.CreditAccount
	err := r.db.QueryRow(ctx, query, args...).Scan(
		&account.ID,
		&account.MemberID,
		&account.ShopID,
		&account.RemainingCredits,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &account, nil
}
