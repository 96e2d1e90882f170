package services

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jwc684/ptmaster-sub000/internal/models"
	"github.com/jwc684/ptmaster-sub000/internal/notify"
	"github.com/jwc684/ptmaster-sub000/internal/repository"
)

var (
	ErrInsufficientCredit = errors.New("insufficient credit")
	ErrInvalidTransition  = errors.New("invalid state transition")
	ErrSessionNotFound    = errors.New("session not found")
	ErrMemberNotFound     = errors.New("member not found")
	ErrTrainerNotAssigned = errors.New("trainer not assigned")
	ErrInvalidInput       = errors.New("invalid input")
)

type trainerReader interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
}

// LedgerService owns the session lifecycle and the member's credit
// balance. A non-free session costs one credit the moment it is created;
// completion and forfeit-cancellation only add an attendance record, they
// never move the balance again. Every operation is a single transaction
// over the session row (locked FOR UPDATE), the credit account and the
// attendance record, so a transition is never observably partial.
type LedgerService struct {
	db             *pgxpool.Pool
	sessionRepo    *repository.SessionRepository
	attendanceRepo *repository.AttendanceRepository
	creditRepo     *repository.CreditRepository
	memberRepo     *repository.MemberRepository
	userRepo       trainerReader
	notifier       notify.Notifier
}

func NewLedgerService(
	db *pgxpool.Pool,
	sessionRepo *repository.SessionRepository,
	attendanceRepo *repository.AttendanceRepository,
	creditRepo *repository.CreditRepository,
	memberRepo *repository.MemberRepository,
	userRepo trainerReader,
	notifier notify.Notifier,
) *LedgerService {
	if notifier == nil {
		notifier = notify.LogNotifier{}
	}
	return &LedgerService{
		db:             db,
		sessionRepo:    sessionRepo,
		attendanceRepo: attendanceRepo,
		creditRepo:     creditRepo,
		memberRepo:     memberRepo,
		userRepo:       userRepo,
		notifier:       notifier,
	}
}

type CreateSessionInput struct {
	MemberID    int64
	TrainerID   int64
	ScheduledAt time.Time
	Notes       *string
	IsFree      bool
}

type SessionNotesInput struct {
	SharedNotes   *string
	InternalNotes *string
}

// CreateSession schedules a session and, unless it is free, takes one
// credit up front. Fails with ErrInsufficientCredit before any mutation
// when the member has no credits left.
func (s *LedgerService) CreateSession(
	ctx context.Context,
	shopID int64,
	input CreateSessionInput,
) (*models.SessionDetail, error) {
	if input.MemberID <= 0 || input.TrainerID <= 0 || input.ScheduledAt.IsZero() {
		return nil, ErrInvalidInput
	}

	member, err := s.memberRepo.GetByID(ctx, shopID, input.MemberID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMemberNotFound
		}
		return nil, err
	}

	trainer, err := s.userRepo.GetByID(ctx, input.TrainerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTrainerNotAssigned
		}
		return nil, err
	}
	if trainer.Role != models.RoleTrainer || trainer.ShopID != shopID {
		return nil, ErrTrainerNotAssigned
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txSessionRepo := repository.NewSessionRepository(tx)
	txCreditRepo := repository.NewCreditRepository(tx)

	var balanceAfter int
	if input.IsFree {
		account, err := txCreditRepo.GetByMemberID(ctx, member.ID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrMemberNotFound
			}
			return nil, err
		}
		balanceAfter = account.RemainingCredits
	} else {
		balanceAfter, err = txCreditRepo.AdjustBalance(ctx, member.ID, -1)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrInsufficientCredit
			}
			return nil, err
		}
	}

	session, err := txSessionRepo.Create(ctx, repository.CreateSessionInput{
		MemberID:    member.ID,
		TrainerID:   input.TrainerID,
		ShopID:      shopID,
		ScheduledAt: input.ScheduledAt.UTC(),
		Notes:       input.Notes,
		IsFree:      input.IsFree,
	})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	s.notifyAfter(session, notify.KindCreated, balanceAfter)

	return &models.SessionDetail{Session: *session, BalanceAfter: &balanceAfter}, nil
}

// Complete marks a scheduled session as held and writes the attendance
// record with the balance snapshot and the historical unit price. The
// balance itself does not move; the credit was taken at creation.
func (s *LedgerService) Complete(
	ctx context.Context,
	shopID int64,
	sessionID int64,
	notes SessionNotesInput,
) (*models.SessionDetail, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txSessionRepo := repository.NewSessionRepository(tx)
	txAttendanceRepo := repository.NewAttendanceRepository(tx)
	txCreditRepo := repository.NewCreditRepository(tx)
	txPaymentRepo := repository.NewPaymentRepository(tx)

	session, err := s.lockSession(ctx, txSessionRepo, shopID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != models.SessionScheduled {
		return nil, ErrInvalidTransition
	}

	account, err := txCreditRepo.GetByMemberID(ctx, session.MemberID)
	if err != nil {
		return nil, err
	}

	unitPrice, err := sessionUnitPrice(ctx, txPaymentRepo, session)
	if err != nil {
		return nil, err
	}

	attendance, err := txAttendanceRepo.Create(ctx, repository.CreateAttendanceInput{
		SessionID:             session.ID,
		MemberID:              session.MemberID,
		CheckInTime:           session.ScheduledAt,
		RemainingCreditsAfter: account.RemainingCredits,
		UnitPrice:             unitPrice,
		SharedNotes:           notes.SharedNotes,
		InternalNotes:         notes.InternalNotes,
	})
	if err != nil {
		return nil, err
	}

	updated, err := txSessionRepo.UpdateStatusIfCurrent(
		ctx,
		session.ID,
		models.SessionScheduled,
		models.SessionCompleted,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidTransition
		}
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	s.notifyAfter(updated, notify.KindCompleted, account.RemainingCredits)

	return &models.SessionDetail{Session: *updated, Attendance: attendance}, nil
}

// RevertComplete undoes Complete: the attendance record is removed and
// the session goes back on the schedule. The balance stays where it is;
// the credit taken at creation remains taken.
func (s *LedgerService) RevertComplete(
	ctx context.Context,
	shopID int64,
	sessionID int64,
) (*models.SessionDetail, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txSessionRepo := repository.NewSessionRepository(tx)
	txAttendanceRepo := repository.NewAttendanceRepository(tx)
	txCreditRepo := repository.NewCreditRepository(tx)

	session, err := s.lockSession(ctx, txSessionRepo, shopID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != models.SessionCompleted {
		return nil, ErrInvalidTransition
	}

	if _, err := txAttendanceRepo.DeleteBySessionID(ctx, session.ID); err != nil {
		return nil, err
	}

	updated, err := txSessionRepo.UpdateStatusIfCurrent(
		ctx,
		session.ID,
		models.SessionCompleted,
		models.SessionScheduled,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidTransition
		}
		return nil, err
	}

	account, err := txCreditRepo.GetByMemberID(ctx, session.MemberID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	s.notifyAfter(updated, notify.KindRescheduled, account.RemainingCredits)

	return &models.SessionDetail{Session: *updated}, nil
}

// Cancel takes a scheduled session off the schedule. With forfeit the
// member keeps paying for the slot: an attendance record is written and
// the balance stays put. Without forfeit the credit is returned.
func (s *LedgerService) Cancel(
	ctx context.Context,
	shopID int64,
	sessionID int64,
	forfeit bool,
	notes SessionNotesInput,
) (*models.SessionDetail, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txSessionRepo := repository.NewSessionRepository(tx)
	txAttendanceRepo := repository.NewAttendanceRepository(tx)
	txCreditRepo := repository.NewCreditRepository(tx)
	txPaymentRepo := repository.NewPaymentRepository(tx)

	session, err := s.lockSession(ctx, txSessionRepo, shopID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != models.SessionScheduled {
		return nil, ErrInvalidTransition
	}

	var (
		balanceAfter int
		attendance   *models.Attendance
	)

	if forfeit {
		account, err := txCreditRepo.GetByMemberID(ctx, session.MemberID)
		if err != nil {
			return nil, err
		}
		balanceAfter = account.RemainingCredits

		unitPrice, err := sessionUnitPrice(ctx, txPaymentRepo, session)
		if err != nil {
			return nil, err
		}

		attendance, err = txAttendanceRepo.Create(ctx, repository.CreateAttendanceInput{
			SessionID:             session.ID,
			MemberID:              session.MemberID,
			CheckInTime:           session.ScheduledAt,
			RemainingCreditsAfter: account.RemainingCredits,
			UnitPrice:             unitPrice,
			SharedNotes:           notes.SharedNotes,
			InternalNotes:         notes.InternalNotes,
		})
		if err != nil {
			return nil, err
		}
	}

	reason := models.CancelRefund
	if forfeit {
		reason = models.CancelForfeit
	}
	updated, err := txSessionRepo.MarkCancelled(ctx, session.ID, reason)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidTransition
		}
		return nil, err
	}

	if !forfeit {
		if session.IsFree {
			// A free session never debited anything, so there is
			// nothing to give back.
			account, err := txCreditRepo.GetByMemberID(ctx, session.MemberID)
			if err != nil {
				return nil, err
			}
			balanceAfter = account.RemainingCredits
		} else {
			balanceAfter, err = txCreditRepo.AdjustBalance(ctx, session.MemberID, +1)
			if err != nil {
				return nil, err
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	s.notifyAfter(updated, notify.KindCancelled, balanceAfter)

	return &models.SessionDetail{
		Session:      *updated,
		Attendance:   attendance,
		BalanceAfter: &balanceAfter,
	}, nil
}

// RevertCancel puts a cancelled session back on the schedule, undoing
// whatever the cancellation did: a forfeit loses its attendance record, a
// refund gives its credit back.
func (s *LedgerService) RevertCancel(
	ctx context.Context,
	shopID int64,
	sessionID int64,
) (*models.SessionDetail, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txSessionRepo := repository.NewSessionRepository(tx)
	txAttendanceRepo := repository.NewAttendanceRepository(tx)
	txCreditRepo := repository.NewCreditRepository(tx)

	session, err := s.lockSession(ctx, txSessionRepo, shopID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != models.SessionCancelled || session.CancelReason == nil {
		return nil, ErrInvalidTransition
	}

	var balanceAfter int
	switch *session.CancelReason {
	case models.CancelForfeit:
		if _, err := txAttendanceRepo.DeleteBySessionID(ctx, session.ID); err != nil {
			return nil, err
		}
		account, err := txCreditRepo.GetByMemberID(ctx, session.MemberID)
		if err != nil {
			return nil, err
		}
		balanceAfter = account.RemainingCredits
	case models.CancelRefund:
		if session.IsFree {
			account, err := txCreditRepo.GetByMemberID(ctx, session.MemberID)
			if err != nil {
				return nil, err
			}
			balanceAfter = account.RemainingCredits
		} else {
			// The refund is taken back. The guard cannot fire right
			// after a refund, but a payment rollback elsewhere could
			// have drained the account in between.
			balanceAfter, err = txCreditRepo.AdjustBalance(ctx, session.MemberID, -1)
			if err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return nil, ErrInsufficientCredit
				}
				return nil, err
			}
		}
	default:
		return nil, ErrInvalidTransition
	}

	updated, err := txSessionRepo.UpdateStatusIfCurrent(
		ctx,
		session.ID,
		models.SessionCancelled,
		models.SessionScheduled,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidTransition
		}
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	s.notifyAfter(updated, notify.KindRescheduled, balanceAfter)

	return &models.SessionDetail{Session: *updated, BalanceAfter: &balanceAfter}, nil
}

// MarkNoShow records that the member did not turn up: the slot is charged
// like a forfeit cancellation and the attendance row keeps the audit
// trail.
func (s *LedgerService) MarkNoShow(
	ctx context.Context,
	shopID int64,
	sessionID int64,
	notes SessionNotesInput,
) (*models.SessionDetail, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txSessionRepo := repository.NewSessionRepository(tx)
	txAttendanceRepo := repository.NewAttendanceRepository(tx)
	txCreditRepo := repository.NewCreditRepository(tx)
	txPaymentRepo := repository.NewPaymentRepository(tx)

	session, err := s.lockSession(ctx, txSessionRepo, shopID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != models.SessionScheduled {
		return nil, ErrInvalidTransition
	}

	account, err := txCreditRepo.GetByMemberID(ctx, session.MemberID)
	if err != nil {
		return nil, err
	}

	unitPrice, err := sessionUnitPrice(ctx, txPaymentRepo, session)
	if err != nil {
		return nil, err
	}

	attendance, err := txAttendanceRepo.Create(ctx, repository.CreateAttendanceInput{
		SessionID:             session.ID,
		MemberID:              session.MemberID,
		CheckInTime:           session.ScheduledAt,
		RemainingCreditsAfter: account.RemainingCredits,
		UnitPrice:             unitPrice,
		SharedNotes:           notes.SharedNotes,
		InternalNotes:         notes.InternalNotes,
	})
	if err != nil {
		return nil, err
	}

	updated, err := txSessionRepo.UpdateStatusIfCurrent(
		ctx,
		session.ID,
		models.SessionScheduled,
		models.SessionNoShow,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidTransition
		}
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	s.notifyAfter(updated, notify.KindCancelled, account.RemainingCredits)

	return &models.SessionDetail{Session: *updated, Attendance: attendance}, nil
}

// RevertNoShow puts a no-show session back on the schedule and drops its
// attendance record. The balance stays unchanged, mirroring the mark.
func (s *LedgerService) RevertNoShow(
	ctx context.Context,
	shopID int64,
	sessionID int64,
) (*models.SessionDetail, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txSessionRepo := repository.NewSessionRepository(tx)
	txAttendanceRepo := repository.NewAttendanceRepository(tx)
	txCreditRepo := repository.NewCreditRepository(tx)

	session, err := s.lockSession(ctx, txSessionRepo, shopID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != models.SessionNoShow {
		return nil, ErrInvalidTransition
	}

	if _, err := txAttendanceRepo.DeleteBySessionID(ctx, session.ID); err != nil {
		return nil, err
	}

	updated, err := txSessionRepo.UpdateStatusIfCurrent(
		ctx,
		session.ID,
		models.SessionNoShow,
		models.SessionScheduled,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidTransition
		}
		return nil, err
	}

	account, err := txCreditRepo.GetByMemberID(ctx, session.MemberID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	s.notifyAfter(updated, notify.KindRescheduled, account.RemainingCredits)

	return &models.SessionDetail{Session: *updated}, nil
}

// DeleteSession removes a session entirely. Only a scheduled non-free
// session gets its credit back; completed, cancelled and no-show sessions
// already settled their cost one way or the other.
func (s *LedgerService) DeleteSession(
	ctx context.Context,
	shopID int64,
	sessionID int64,
) (int, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txSessionRepo := repository.NewSessionRepository(tx)
	txAttendanceRepo := repository.NewAttendanceRepository(tx)
	txCreditRepo := repository.NewCreditRepository(tx)

	session, err := s.lockSession(ctx, txSessionRepo, shopID, sessionID)
	if err != nil {
		return 0, err
	}

	var balanceAfter int
	if session.Status == models.SessionScheduled && !session.IsFree {
		balanceAfter, err = txCreditRepo.AdjustBalance(ctx, session.MemberID, +1)
		if err != nil {
			return 0, err
		}
	} else {
		account, err := txCreditRepo.GetByMemberID(ctx, session.MemberID)
		if err != nil {
			return 0, err
		}
		balanceAfter = account.RemainingCredits
	}

	if _, err := txAttendanceRepo.DeleteBySessionID(ctx, session.ID); err != nil {
		return 0, err
	}
	if err := txSessionRepo.Delete(ctx, session.ID); err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}

	return balanceAfter, nil
}

func (s *LedgerService) GetSession(
	ctx context.Context,
	shopID int64,
	sessionID int64,
) (*models.SessionDetail, error) {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	if session.ShopID != shopID {
		return nil, ErrSessionNotFound
	}

	detail := &models.SessionDetail{Session: *session}
	attendance, err := s.attendanceRepo.GetBySessionID(ctx, sessionID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if err == nil {
		detail.Attendance = attendance
	}
	return detail, nil
}

func (s *LedgerService) ListSessions(
	ctx context.Context,
	filter repository.SessionListFilter,
) ([]models.Session, error) {
	return s.sessionRepo.List(ctx, filter)
}

// lockSession loads the session FOR UPDATE so concurrent transitions on
// the same session serialize. A session from another shop is reported as
// absent, not forbidden.
func (s *LedgerService) lockSession(
	ctx context.Context,
	txSessionRepo *repository.SessionRepository,
	shopID int64,
	sessionID int64,
) (*models.Session, error) {
	session, err := txSessionRepo.GetByIDForUpdate(ctx, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	if session.ShopID != shopID {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// notifyAfter dispatches the post-commit notification out of band.
// Gateway failures are the gateway's problem; they never reach the
// caller.
func (s *LedgerService) notifyAfter(session *models.Session, kind string, balanceAfter int) {
	event := notify.Event{
		Kind:         kind,
		MemberID:     session.MemberID,
		TrainerID:    session.TrainerID,
		ShopID:       session.ShopID,
		ScheduledAt:  session.ScheduledAt,
		BalanceAfter: balanceAfter,
	}
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("session notify %s: %v", kind, r)
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.notifier.Notify(ctx, event)
	}()
}
