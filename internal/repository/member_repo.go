package repository

import (
	"context"

	"github.com/jwc684/ptmaster-sub000/internal/models"
)

type MemberRepository struct {
	db DBTX
}

func NewMemberRepository(db DBTX) *MemberRepository {
	return &MemberRepository{db: db}
}

const memberColumns = "id, shop_id, name, phone, created_at, updated_at"

func (r *MemberRepository) Create(
	ctx context.Context,
	shopID int64,
	name string,
	phone *string,
) (*models.Member, error) {
	query := `
		INSERT INTO members (shop_id, name, phone)
		VALUES ($1, $2, $3)
		RETURNING ` + memberColumns

	return r.scan(ctx, query, shopID, name, phone)
}

func (r *MemberRepository) GetByID(
	ctx context.Context,
	shopID int64,
	memberID int64,
) (*models.Member, error) {
	query := `
		SELECT ` + memberColumns + `
		FROM members
		WHERE id = $1 AND shop_id = $2
	`
	return r.scan(ctx, query, memberID, shopID)
}

func (r *MemberRepository) List(
	ctx context.Context,
	shopID int64,
	limit int,
	offset int,
) ([]models.Member, error) {
	query := `
		SELECT ` + memberColumns + `
		FROM members
		WHERE shop_id = $1
		ORDER BY id ASC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, shopID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	members := make([]models.Member, 0)
	for rows.Next() {
		var member models.Member
		if err := rows.Scan(
			&member.ID,
			&member.ShopID,
			&member.Name,
			&member.Phone,
			&member.CreatedAt,
			&member.UpdatedAt,
		); err != nil {
			return nil, err
		}
		members = append(members, member)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return members, nil
}

func (r *MemberRepository) CountByShop(ctx context.Context, shopID int64) (int, error) {
	var total int
	err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM members WHERE shop_id = $1", shopID).Scan(&total)
	if err != nil {
		return 0, err
	}
	return total, nil
}

func (r *MemberRepository) scan(ctx context.Context, query string, args ...any) (*models.Member, error) {
	var member models.Member
	err := r.db.QueryRow(ctx, query, args...).Scan(
		&member.ID,
		&member.ShopID,
		&member.Name,
		&member.Phone,
		&member.CreatedAt,
		&member.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &member, nil
}
