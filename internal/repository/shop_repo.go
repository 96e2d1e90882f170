package repository

import (
	"context"

	"github.com/jwc684/ptmaster-sub000/internal/models"
)

type ShopRepository struct {
	db DBTX
}

func NewShopRepository(db DBTX) *ShopRepository {
	return &ShopRepository{db: db}
}

func (r *ShopRepository) Create(ctx context.Context, name string) (*models.Shop, error) {
	query := `
		INSERT INTO shops (name)
		VALUES ($1)
		RETURNING id, name, created_at
	`
	var shop models.Shop
	if err := r.db.QueryRow(ctx, query, name).Scan(&shop.ID, &shop.Name, &shop.CreatedAt); err != nil {
		return nil, err
	}
	return &shop, nil
}

func (r *ShopRepository) GetByID(ctx context.Context, shopID int64) (*models.Shop, error) {
	query := `
		SELECT id, name, created_at
		FROM shops
		WHERE id = $1
	`
	var shop models.Shop
	if err := r.db.QueryRow(ctx, query, shopID).Scan(&shop.ID, &shop.Name, &shop.CreatedAt); err != nil {
		return nil, err
	}
	return &shop, nil
}
