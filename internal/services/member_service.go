package services

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jwc684/ptmaster-sub000/internal/models"
	"github.com/jwc684/ptmaster-sub000/internal/repository"
)

type MemberService struct {
	db         *pgxpool.Pool
	memberRepo *repository.MemberRepository
	creditRepo *repository.CreditRepository
}

func NewMemberService(
	db *pgxpool.Pool,
	memberRepo *repository.MemberRepository,
	creditRepo *repository.CreditRepository,
) *MemberService {
	return &MemberService{
		db:         db,
		memberRepo: memberRepo,
		creditRepo: creditRepo,
	}
}

type CreateMemberInput struct {
	Name  string
	Phone *string
}

// CreateMember registers a member together with their empty credit
// account; the two rows always exist as a pair.
func (s *MemberService) CreateMember(
	ctx context.Context,
	shopID int64,
	input CreateMemberInput,
) (*models.MemberDetail, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, ErrInvalidInput
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txMemberRepo := repository.NewMemberRepository(tx)
	txCreditRepo := repository.NewCreditRepository(tx)

	member, err := txMemberRepo.Create(ctx, shopID, strings.TrimSpace(input.Name), input.Phone)
	if err != nil {
		return nil, err
	}
	account, err := txCreditRepo.Create(ctx, member.ID, shopID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return &models.MemberDetail{
		Member:           *member,
		RemainingCredits: account.RemainingCredits,
	}, nil
}

func (s *MemberService) GetMember(
	ctx context.Context,
	shopID int64,
	memberID int64,
) (*models.MemberDetail, error) {
	member, err := s.memberRepo.GetByID(ctx, shopID, memberID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMemberNotFound
		}
		return nil, err
	}

	account, err := s.creditRepo.GetByMemberID(ctx, member.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMemberNotFound
		}
		return nil, err
	}

	return &models.MemberDetail{
		Member:           *member,
		RemainingCredits: account.RemainingCredits,
	}, nil
}

func (s *MemberService) ListMembers(
	ctx context.Context,
	shopID int64,
	page int,
	limit int,
) ([]models.Member, models.PaginationMeta, error) {
	offset := (page - 1) * limit
	members, err := s.memberRepo.List(ctx, shopID, limit, offset)
	if err != nil {
		return nil, models.PaginationMeta{}, err
	}

	total, err := s.memberRepo.CountByShop(ctx, shopID)
	if err != nil {
		return nil, models.PaginationMeta{}, err
	}

	totalPages := 0
	if total > 0 {
		totalPages = (total + limit - 1) / limit
	}

	return members, models.PaginationMeta{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
	}, nil
}
